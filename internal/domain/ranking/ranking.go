// Package ranking orders an event's approved subjects by aggregate score.
//
// Ordering is score descending; ties keep registration (or creation) order,
// then ascending ID.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/internal/domain/scoring"
	"github.com/okian/eventsoft/pkg/logger"
	"github.com/okian/eventsoft/pkg/metrics"
)

// Reader lists an event's subjects in registration order.
type Reader interface {
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	ListParticipations(ctx context.Context, eventID int64) ([]model.Participation, error)
	ListProjects(ctx context.Context, eventID int64) ([]model.Project, error)
	ListProjectMembers(ctx context.Context, projectID int64) ([]model.Participation, error)
}

// Scorer computes a missing score on demand.
type Scorer interface {
	ScoreParticipation(ctx context.Context, id int64) (scoring.Result, error)
	ScoreProject(ctx context.Context, id int64) (scoring.Result, error)
}

// Filter narrows a ranking.
type Filter struct {
	// Category keeps only subjects tagged with it.
	Category *int64
	// Limit caps each list; zero means no cap.
	Limit int
}

// Member is an approved participation of a ranked project.
type Member struct {
	ParticipationID int64
	ParticipantID   int64
	Leader          bool
}

// Entry is one ranked subject.
type Entry struct {
	Position      int
	Subject       model.SubjectRef
	ParticipantID int64  // individuals only
	Name          string // projects only
	Score         float64
	Scored        bool
	Categories    []int64
	Members       []Member // projects only
}

// Table is an event's ranking.
type Table struct {
	EventID     int64
	Individuals []Entry
	Projects    []Entry
}

// Builder builds rankings.
type Builder struct {
	reader Reader
	scorer Scorer
	log    logger.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBuilder creates a Builder.
func NewBuilder(reader Reader, scorer Scorer, opts ...Option) *Builder {
	b := &Builder{reader: reader, scorer: scorer, log: logger.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build ranks an event's approved individual participations and approved
// projects. Subjects without a cached score are aggregated on the spot;
// those still unrated stay listed at 0 with Scored false.
func (b *Builder) Build(ctx context.Context, eventID int64, filter Filter) (Table, error) {
	start := time.Now()
	if _, err := b.reader.GetEvent(ctx, eventID); err != nil {
		return Table{}, err
	}

	individuals, err := b.individuals(ctx, eventID, filter)
	if err != nil {
		return Table{}, err
	}
	projects, err := b.projects(ctx, eventID, filter)
	if err != nil {
		return Table{}, err
	}

	table := Table{
		EventID:     eventID,
		Individuals: finish(individuals, filter.Limit),
		Projects:    finish(projects, filter.Limit),
	}
	metrics.RecordRankingBuild(float64(time.Since(start).Microseconds()) / 1000)
	b.log.Debug(ctx, "ranking built",
		logger.Int64("event_id", eventID),
		logger.Int("individuals", len(table.Individuals)),
		logger.Int("projects", len(table.Projects)))
	return table, nil
}

func keep(status model.Status, categories []int64, filter Filter) bool {
	if status != model.StatusApproved {
		return false
	}
	if filter.Category == nil {
		return true
	}
	for _, c := range categories {
		if c == *filter.Category {
			return true
		}
	}
	return false
}

func (b *Builder) individuals(ctx context.Context, eventID int64, filter Filter) ([]Entry, error) {
	ps, err := b.reader.ListParticipations(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(ps))
	for _, p := range ps {
		if p.Grouped() || !keep(p.Status, p.Categories, filter) {
			continue
		}
		e := Entry{
			Subject:       model.SubjectRef{Kind: model.SubjectParticipant, ID: p.ID},
			ParticipantID: p.ParticipantID,
			Categories:    p.Categories,
		}
		if p.Score != nil {
			e.Score, e.Scored = *p.Score, true
		} else {
			res, err := b.scorer.ScoreParticipation(ctx, p.ID)
			if err != nil {
				return nil, fmt.Errorf("backfill participation %d: %w", p.ID, err)
			}
			e.Score, e.Scored = res.Score, res.Scored
			if res.Scored {
				metrics.RecordRankingBackfill(metrics.SubjectParticipant)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *Builder) projects(ctx context.Context, eventID int64, filter Filter) ([]Entry, error) {
	ps, err := b.reader.ListProjects(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(ps))
	for _, p := range ps {
		if !keep(p.Status, p.Categories, filter) {
			continue
		}
		e := Entry{
			Subject:    model.SubjectRef{Kind: model.SubjectProject, ID: p.ID},
			Name:       p.Name,
			Categories: p.Categories,
		}
		if p.Score != nil {
			e.Score, e.Scored = *p.Score, true
		} else {
			res, err := b.scorer.ScoreProject(ctx, p.ID)
			if err != nil {
				return nil, fmt.Errorf("backfill project %d: %w", p.ID, err)
			}
			e.Score, e.Scored = res.Score, res.Scored
			if res.Scored {
				metrics.RecordRankingBackfill(metrics.SubjectProject)
			}
		}
		members, err := b.reader.ListProjectMembers(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		e.Members = make([]Member, 0, len(members))
		for _, m := range members {
			if m.Status == model.StatusApproved {
				e.Members = append(e.Members, Member{ParticipationID: m.ID, ParticipantID: m.ParticipantID, Leader: m.Leader})
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// finish sorts entries (already in base order), assigns positions and applies limit.
func finish(entries []Entry, limit int) []Entry {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

// Placement is a participation's standing among the event's scored,
// approved participations.
type Placement struct {
	Position int
	Score    float64
	Total    int
}

// Position returns the 1-based placement of a participation among every
// approved participation of the event that has a cached score, grouped or not.
func (b *Builder) Position(ctx context.Context, eventID, participationID int64) (Placement, error) {
	ps, err := b.reader.ListParticipations(ctx, eventID)
	if err != nil {
		return Placement{}, err
	}
	scored := make([]model.Participation, 0, len(ps))
	for _, p := range ps {
		if p.Status == model.StatusApproved && p.Score != nil {
			scored = append(scored, p)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return *scored[i].Score > *scored[j].Score })
	for i, p := range scored {
		if p.ID == participationID {
			return Placement{Position: i + 1, Score: *p.Score, Total: len(scored)}, nil
		}
	}
	return Placement{}, fmt.Errorf("participation %d in event %d: %w", participationID, eventID, ErrNotRanked)
}
