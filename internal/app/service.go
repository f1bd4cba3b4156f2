// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/eventsoft/internal/adapters/repository"
	"github.com/okian/eventsoft/internal/config"
	"github.com/okian/eventsoft/internal/domain/criteria"
	"github.com/okian/eventsoft/internal/domain/dedupe"
	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/internal/domain/ranking"
	"github.com/okian/eventsoft/internal/domain/rating"
	"github.com/okian/eventsoft/internal/domain/scoring"
	"github.com/okian/eventsoft/pkg/logger"
	"github.com/okian/eventsoft/pkg/metrics"
)

// Service wires storage and the scoring components behind one facade.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	ownsStore  bool
	registry   *criteria.Registry
	ratings    *rating.Service
	aggregator *scoring.Aggregator
	ranker     *ranking.Builder
	deduper    dedupe.Deduper

	// Configuration
	storage         string
	dsn             string
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	autoMigrate     bool
	idempotencySize int
	maxRankingSize  int

	// State
	started        bool
	batches        atomic.Int64
	replays        atomic.Int64
	rankingsServed atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a ready store. The service does not close it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStorage selects the backend Start opens: memory, postgres or mysql.
func WithStorage(kind, dsn string) Option {
	return func(s *Service) {
		if kind != "" {
			s.storage = kind
		}
		s.dsn = dsn
	}
}

// WithDBPool sizes the SQL connection pool.
func WithDBPool(maxOpen, maxIdle int, maxLifetime time.Duration) Option {
	return func(s *Service) {
		s.maxOpenConns = maxOpen
		s.maxIdleConns = maxIdle
		s.connMaxLifetime = maxLifetime
	}
}

// WithAutoMigrate toggles schema migration for SQL backends.
func WithAutoMigrate(enabled bool) Option {
	return func(s *Service) {
		s.autoMigrate = enabled
	}
}

// WithIdempotencyCacheSize bounds the remembered rating batch keys.
func WithIdempotencyCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.idempotencySize = size
		}
	}
}

// WithMaxRankingSize caps each ranking list. Zero disables the cap.
func WithMaxRankingSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.maxRankingSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storage:         config.StorageMemory,
		autoMigrate:     true,
		idempotencySize: 10_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens storage (unless injected) and builds the components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting scoring service...", logger.String("storage", s.storage))

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
		s.ownsStore = true
	}

	s.registry = criteria.NewRegistry(s.store, s.store, criteria.WithLogger(s.logger.Named("criteria")))
	s.ratings = rating.NewService(s.store, rating.WithLogger(s.logger.Named("rating")))
	s.aggregator = scoring.NewAggregator(s.store, s.store, scoring.WithLogger(s.logger.Named("scoring")))
	s.ranker = ranking.NewBuilder(s.store, s.aggregator, ranking.WithLogger(s.logger.Named("ranking")))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.idempotencySize))

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.String("storage", s.storage),
		logger.Int("idempotencyCacheSize", s.idempotencySize),
		logger.Int("maxRankingSize", s.maxRankingSize),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	opts := []repository.Option{
		repository.WithLogger(s.logger.Named("repository")),
		repository.WithPool(s.maxOpenConns, s.maxIdleConns, s.connMaxLifetime),
		repository.WithAutoMigrate(s.autoMigrate),
	}
	switch s.storage {
	case config.StorageMemory:
		return repository.NewMemoryStore(opts...), nil
	case config.StoragePostgres:
		return repository.Open(ctx, repository.DialectPostgres, s.dsn, opts...)
	case config.StorageMySQL:
		return repository.Open(ctx, repository.DialectMySQL, s.dsn, opts...)
	default:
		return nil, fmt.Errorf("unknown storage %q", s.storage)
	}
}

// Stop releases storage opened by Start.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping scoring service...")
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}
	s.started = false
	s.logger.Info(context.Background(), "scoring service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":              s.started,
		"storage":              s.storage,
		"idempotencyCacheSize": s.idempotencySize,
		"ratingBatches":        s.batches.Load(),
		"idempotentReplays":    s.replays.Load(),
		"rankingsServed":       s.rankingsServed.Load(),
	}
	if s.started {
		stats["idempotencyKeys"] = s.deduper.Size()
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.HeapAlloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if mem.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(mem.PauseNs[(mem.NumGC+255)%256]) / 1e6)
	}
	return stats
}

// CreateEvent stores a new event.
func (s *Service) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	if err := s.ready(); err != nil {
		return model.Event{}, err
	}
	if err := s.store.CreateEvent(ctx, &e); err != nil {
		return model.Event{}, err
	}
	s.logger.Info(ctx, "event created", logger.Int64("event_id", e.ID), logger.String("name", e.Name))
	return e, nil
}

// GetEvent returns an event.
func (s *Service) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	if err := s.ready(); err != nil {
		return model.Event{}, err
	}
	return s.store.GetEvent(ctx, id)
}

// EnrollEvaluator enrolls an evaluator; a blank status means Pending.
func (s *Service) EnrollEvaluator(ctx context.Context, e model.EvaluatorEnrollment) (model.EvaluatorEnrollment, error) {
	if err := s.ready(); err != nil {
		return model.EvaluatorEnrollment{}, err
	}
	if e.Status == "" {
		e.Status = model.StatusPending
	}
	if err := s.store.EnrollEvaluator(ctx, e); err != nil {
		return model.EvaluatorEnrollment{}, err
	}
	return e, nil
}

// SetEnrollmentStatus approves or rejects an evaluator enrollment.
func (s *Service) SetEnrollmentStatus(ctx context.Context, eventID, evaluatorID int64, status model.Status) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.store.SetEnrollmentStatus(ctx, eventID, evaluatorID, status)
}

// RegisterParticipation registers a participant; a blank status means Pending.
func (s *Service) RegisterParticipation(ctx context.Context, p model.Participation) (model.Participation, error) {
	if err := s.ready(); err != nil {
		return model.Participation{}, err
	}
	if p.Status == "" {
		p.Status = model.StatusPending
	}
	if p.Status == model.StatusApproved {
		// Approval goes through SetParticipationStatus so capacity is consumed.
		p.Status = model.StatusPending
		if err := s.store.RegisterParticipation(ctx, &p); err != nil {
			return model.Participation{}, err
		}
		if err := s.store.SetParticipationStatus(ctx, p.ID, model.StatusApproved); err != nil {
			return p, err
		}
		p.Status = model.StatusApproved
		return p, nil
	}
	if err := s.store.RegisterParticipation(ctx, &p); err != nil {
		return model.Participation{}, err
	}
	return p, nil
}

// SetParticipationStatus changes a participation's status.
func (s *Service) SetParticipationStatus(ctx context.Context, id int64, status model.Status) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.store.SetParticipationStatus(ctx, id, status)
}

// CreateProject creates a group project; a blank status means Pending.
func (s *Service) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	if err := s.ready(); err != nil {
		return model.Project{}, err
	}
	if p.Status == "" {
		p.Status = model.StatusPending
	}
	if err := s.store.CreateProject(ctx, &p); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// SetProjectStatus changes a project's status.
func (s *Service) SetProjectStatus(ctx context.Context, id int64, status model.Status) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.store.SetProjectStatus(ctx, id, status)
}

// AssignMember links a participation to a project and re-aggregates the
// project so the new member carries its score.
func (s *Service) AssignMember(ctx context.Context, projectID, participationID int64, leader bool) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.AssignMember(ctx, projectID, participationID, leader); err != nil {
		return err
	}
	if _, err := s.aggregator.ScoreProject(ctx, projectID); err != nil {
		s.logger.Error(ctx, "aggregation after member assignment failed",
			logger.Int64("project_id", projectID), logger.Int64("participation_id", participationID), logger.Error(err))
		return err
	}
	return nil
}

// DeleteProject deletes a project with its members and ratings.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.store.DeleteProject(ctx, id)
}
