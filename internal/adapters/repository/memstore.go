package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/pkg/logger"
)

type enrollmentKey struct {
	eventID     int64
	evaluatorID int64
}

type ratingKey struct {
	evaluatorID int64
	criterionID int64
	subject     model.SubjectRef
}

// MemoryStore is an in-memory Store. Every operation runs under one mutex,
// which makes each call (and each batch) atomic.
type MemoryStore struct {
	mu  sync.Mutex
	now func() time.Time
	log logger.Logger

	seq            int64
	events         map[int64]model.Event
	criteria       map[int64]model.Criterion
	enrollments    map[enrollmentKey]model.EvaluatorEnrollment
	participations map[int64]model.Participation
	projects       map[int64]model.Project
	ratings        map[ratingKey]model.Rating
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &MemoryStore{
		now:            s.now,
		log:            s.log,
		events:         make(map[int64]model.Event),
		criteria:       make(map[int64]model.Criterion),
		enrollments:    make(map[enrollmentKey]model.EvaluatorEnrollment),
		participations: make(map[int64]model.Participation),
		projects:       make(map[int64]model.Project),
		ratings:        make(map[ratingKey]model.Rating),
	}
}

func (s *MemoryStore) nextID() int64 {
	s.seq++
	return s.seq
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextID()
	e.CreatedAt = s.now()
	s.events[e.ID] = cloneEvent(*e)
	return nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id int64) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return cloneEvent(e), nil
}

func (s *MemoryStore) EnrollEvaluator(_ context.Context, e model.EvaluatorEnrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.EventID]; !ok {
		return fmt.Errorf("event %d: %w", e.EventID, ErrNotFound)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%q: %w", e.Status, ErrInvalidStatus)
	}
	key := enrollmentKey{eventID: e.EventID, evaluatorID: e.EvaluatorID}
	if _, ok := s.enrollments[key]; ok {
		return fmt.Errorf("evaluator %d in event %d: %w", e.EvaluatorID, e.EventID, ErrDuplicate)
	}
	s.enrollments[key] = cloneEnrollment(e)
	return nil
}

func (s *MemoryStore) GetEnrollment(_ context.Context, eventID, evaluatorID int64) (model.EvaluatorEnrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.enrollments[enrollmentKey{eventID: eventID, evaluatorID: evaluatorID}]
	if !ok {
		return model.EvaluatorEnrollment{}, fmt.Errorf("evaluator %d in event %d: %w", evaluatorID, eventID, ErrNotFound)
	}
	return cloneEnrollment(e), nil
}

func (s *MemoryStore) SetEnrollmentStatus(_ context.Context, eventID, evaluatorID int64, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := enrollmentKey{eventID: eventID, evaluatorID: evaluatorID}
	e, ok := s.enrollments[key]
	if !ok {
		return fmt.Errorf("evaluator %d in event %d: %w", evaluatorID, eventID, ErrNotFound)
	}
	e.Status = status
	s.enrollments[key] = e
	return nil
}

func (s *MemoryStore) RegisterParticipation(_ context.Context, p *model.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[p.EventID]; !ok {
		return fmt.Errorf("event %d: %w", p.EventID, ErrNotFound)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%q: %w", p.Status, ErrInvalidStatus)
	}
	for _, existing := range s.participations {
		if existing.EventID == p.EventID && existing.ParticipantID == p.ParticipantID {
			return fmt.Errorf("participant %d in event %d: %w", p.ParticipantID, p.EventID, ErrDuplicate)
		}
	}
	p.ID = s.nextID()
	p.RegisteredAt = s.now()
	p.ProjectID, p.Leader, p.Score = nil, false, nil
	s.participations[p.ID] = cloneParticipation(*p)
	return nil
}

func (s *MemoryStore) SetParticipationStatus(_ context.Context, id int64, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participations[id]
	if !ok {
		return fmt.Errorf("participation %d: %w", id, ErrNotFound)
	}
	if status == model.StatusApproved && p.Status != model.StatusApproved {
		e := s.events[p.EventID]
		if e.Capacity != nil {
			if *e.Capacity <= 0 {
				return fmt.Errorf("event %d: %w", e.ID, ErrCapacityExhausted)
			}
			left := *e.Capacity - 1
			e.Capacity = &left
			s.events[e.ID] = e
		}
	}
	p.Status = status
	s.participations[id] = p
	return nil
}

func (s *MemoryStore) CreateProject(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[p.EventID]; !ok {
		return fmt.Errorf("event %d: %w", p.EventID, ErrNotFound)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%q: %w", p.Status, ErrInvalidStatus)
	}
	p.ID = s.nextID()
	p.CreatedAt = s.now()
	p.Score = nil
	s.projects[p.ID] = cloneProject(*p)
	return nil
}

func (s *MemoryStore) SetProjectStatus(_ context.Context, id int64, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	p.Status = status
	s.projects[id] = p
	return nil
}

func (s *MemoryStore) AssignMember(_ context.Context, projectID, participationID int64, leader bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[projectID]
	if !ok {
		return fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	p, ok := s.participations[participationID]
	if !ok {
		return fmt.Errorf("participation %d: %w", participationID, ErrNotFound)
	}
	if p.EventID != project.EventID {
		return fmt.Errorf("participation %d is not in event %d: %w", participationID, project.EventID, ErrInvalidMember)
	}
	if p.ProjectID != nil && *p.ProjectID != projectID {
		return fmt.Errorf("participation %d already in project %d: %w", participationID, *p.ProjectID, ErrInvalidMember)
	}
	if leader {
		for _, other := range s.participations {
			if other.ID != participationID && other.Leader && other.ProjectID != nil && *other.ProjectID == projectID {
				return fmt.Errorf("project %d: %w", projectID, ErrLeaderExists)
			}
		}
	}
	p.ProjectID = &projectID
	p.Leader = leader
	s.participations[participationID] = p
	return nil
}

func (s *MemoryStore) DeleteProject(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	members := make(map[int64]struct{})
	for pid, p := range s.participations {
		if p.ProjectID != nil && *p.ProjectID == id {
			members[pid] = struct{}{}
			delete(s.participations, pid)
		}
	}
	for key := range s.ratings {
		switch key.subject.Kind {
		case model.SubjectProject:
			if key.subject.ID == id {
				delete(s.ratings, key)
			}
		case model.SubjectParticipant:
			if _, ok := members[key.subject.ID]; ok {
				delete(s.ratings, key)
			}
		}
	}
	delete(s.projects, id)
	s.log.Debug(context.Background(), "project deleted",
		logger.Int64("project_id", id), logger.Int("members_removed", len(members)))
	return nil
}

func (s *MemoryStore) GetParticipation(_ context.Context, id int64) (model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participations[id]
	if !ok {
		return model.Participation{}, fmt.Errorf("participation %d: %w", id, ErrNotFound)
	}
	return cloneParticipation(p), nil
}

func (s *MemoryStore) GetProject(_ context.Context, id int64) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return model.Project{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return cloneProject(p), nil
}

func (s *MemoryStore) ListParticipations(_ context.Context, eventID int64) ([]model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filterParticipations(func(p model.Participation) bool { return p.EventID == eventID }), nil
}

func (s *MemoryStore) ListProjectMembers(_ context.Context, projectID int64) ([]model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[projectID]; !ok {
		return nil, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	return s.filterParticipations(func(p model.Participation) bool {
		return p.ProjectID != nil && *p.ProjectID == projectID
	}), nil
}

func (s *MemoryStore) filterParticipations(keep func(model.Participation) bool) []model.Participation {
	out := make([]model.Participation, 0)
	for _, p := range s.participations {
		if keep(p) {
			out = append(out, cloneParticipation(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *MemoryStore) ListProjects(_ context.Context, eventID int64) ([]model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Project, 0)
	for _, p := range s.projects {
		if p.EventID == eventID {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreateCriterion(_ context.Context, c *model.Criterion, check WeightCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[c.EventID]; !ok {
		return fmt.Errorf("event %d: %w", c.EventID, ErrNotFound)
	}
	if check != nil {
		if err := check(s.eventCriteria(c.EventID)); err != nil {
			return err
		}
	}
	c.ID = s.nextID()
	s.criteria[c.ID] = *c
	return nil
}

func (s *MemoryStore) UpdateCriterion(_ context.Context, c model.Criterion, check WeightCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.criteria[c.ID]
	if !ok {
		return fmt.Errorf("criterion %d: %w", c.ID, ErrNotFound)
	}
	if check != nil {
		if err := check(s.eventCriteria(current.EventID)); err != nil {
			return err
		}
	}
	current.Description = c.Description
	current.Weight = c.Weight
	s.criteria[c.ID] = current
	return nil
}

func (s *MemoryStore) DeleteCriterion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.criteria[id]; !ok {
		return fmt.Errorf("criterion %d: %w", id, ErrNotFound)
	}
	for key := range s.ratings {
		if key.criterionID == id {
			delete(s.ratings, key)
		}
	}
	delete(s.criteria, id)
	return nil
}

func (s *MemoryStore) GetCriterion(_ context.Context, id int64) (model.Criterion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.criteria[id]
	if !ok {
		return model.Criterion{}, fmt.Errorf("criterion %d: %w", id, ErrNotFound)
	}
	return c, nil
}

func (s *MemoryStore) ListCriteria(_ context.Context, eventID int64) ([]model.Criterion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.eventCriteria(eventID), nil
}

func (s *MemoryStore) eventCriteria(eventID int64) []model.Criterion {
	out := make([]model.Criterion, 0)
	for _, c := range s.criteria {
		if c.EventID == eventID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) UpsertRatings(_ context.Context, ratings []model.Rating) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range ratings {
		if _, ok := s.criteria[r.CriterionID]; !ok {
			return 0, fmt.Errorf("criterion %d: %w", r.CriterionID, ErrNotFound)
		}
		if !s.subjectExists(r.Subject) {
			return 0, fmt.Errorf("%s %d: %w", r.Subject.Kind, r.Subject.ID, ErrNotFound)
		}
	}
	now := s.now()
	for _, r := range ratings {
		r.UpdatedAt = now
		s.ratings[ratingKey{evaluatorID: r.EvaluatorID, criterionID: r.CriterionID, subject: r.Subject}] = r
	}
	return len(ratings), nil
}

func (s *MemoryStore) subjectExists(ref model.SubjectRef) bool {
	switch ref.Kind {
	case model.SubjectParticipant:
		_, ok := s.participations[ref.ID]
		return ok
	case model.SubjectProject:
		_, ok := s.projects[ref.ID]
		return ok
	default:
		return false
	}
}

func (s *MemoryStore) ListRatings(_ context.Context, subject model.SubjectRef, eventID int64) ([]model.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Rating, 0)
	for key, r := range s.ratings {
		if key.subject != subject {
			continue
		}
		if c, ok := s.criteria[key.criterionID]; !ok || c.EventID != eventID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EvaluatorID != out[j].EvaluatorID {
			return out[i].EvaluatorID < out[j].EvaluatorID
		}
		return out[i].CriterionID < out[j].CriterionID
	})
	return out, nil
}

func (s *MemoryStore) SaveParticipationScore(_ context.Context, id int64, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participations[id]
	if !ok {
		return fmt.Errorf("participation %d: %w", id, ErrNotFound)
	}
	p.Score = &score
	s.participations[id] = p
	return nil
}

func (s *MemoryStore) SaveProjectScore(_ context.Context, projectID int64, score float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[projectID]
	if !ok {
		return 0, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	project.Score = &score
	s.projects[projectID] = project

	updated := 0
	for id, p := range s.participations {
		if p.ProjectID != nil && *p.ProjectID == projectID && p.EventID == project.EventID {
			v := score
			p.Score = &v
			s.participations[id] = p
			updated++
		}
	}
	return updated, nil
}

func cloneScore(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneEvent(e model.Event) model.Event {
	if e.Capacity != nil {
		c := *e.Capacity
		e.Capacity = &c
	}
	return e
}

func cloneEnrollment(e model.EvaluatorEnrollment) model.EvaluatorEnrollment {
	if e.CategoryID != nil {
		c := *e.CategoryID
		e.CategoryID = &c
	}
	return e
}

func cloneParticipation(p model.Participation) model.Participation {
	p.Score = cloneScore(p.Score)
	if p.ProjectID != nil {
		id := *p.ProjectID
		p.ProjectID = &id
	}
	p.Categories = slices.Clone(p.Categories)
	return p
}

func cloneProject(p model.Project) model.Project {
	p.Score = cloneScore(p.Score)
	p.Categories = slices.Clone(p.Categories)
	return p
}
