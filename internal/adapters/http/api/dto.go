package api

import (
	"encoding/json"
	"fmt"
	"time"

	service "github.com/okian/eventsoft/internal/app"
	"github.com/okian/eventsoft/internal/domain/criteria"
	"github.com/okian/eventsoft/internal/domain/model"
	"github.com/okian/eventsoft/internal/domain/ranking"
	"github.com/okian/eventsoft/internal/domain/rating"
	"github.com/okian/eventsoft/internal/domain/scoring"
)

// Requests.

type createEventRequest struct {
	Name              string `json:"name" validate:"required,max=200"`
	Multidisciplinary bool   `json:"multidisciplinary"`
	Capacity          *int   `json:"capacity" validate:"omitempty,min=0"`
}

type enrollRequest struct {
	EvaluatorID int64  `json:"evaluator_id" validate:"required,gt=0"`
	Status      string `json:"status" validate:"omitempty,oneof=Pending Approved Rejected"`
	CategoryID  *int64 `json:"category_id" validate:"omitempty,gt=0"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=Pending Approved Rejected"`
}

type participationRequest struct {
	ParticipantID int64   `json:"participant_id" validate:"required,gt=0"`
	Status        string  `json:"status" validate:"omitempty,oneof=Pending Approved Rejected"`
	Categories    []int64 `json:"categories" validate:"dive,gt=0"`
}

type projectRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Status      string  `json:"status" validate:"omitempty,oneof=Pending Approved Rejected"`
	Categories  []int64 `json:"categories" validate:"dive,gt=0"`
}

type memberRequest struct {
	ParticipationID int64 `json:"participation_id" validate:"required,gt=0"`
	Leader          bool  `json:"leader"`
}

type criterionRequest struct {
	Description string  `json:"description" validate:"required"`
	Weight      float64 `json:"weight" validate:"min=0,max=100"`
}

type ratingEntryRequest struct {
	CriterionID int64 `json:"criterion_id" validate:"required,gt=0"`
	// Value is kept raw so that non-numeric input is reported as an
	// invalid rating rather than a malformed body.
	Value json.RawMessage `json:"value"`
	Note  string          `json:"note" validate:"max=2000"`
}

type ratingBatchRequest struct {
	Ratings []ratingEntryRequest `json:"ratings" validate:"required,min=1,dive"`
}

func (b ratingBatchRequest) entries() ([]rating.Entry, error) {
	out := make([]rating.Entry, len(b.Ratings))
	for i, r := range b.Ratings {
		v, err := rating.ParseValue(rawValue(r.Value))
		if err != nil {
			return nil, fmt.Errorf("ratings[%d].value: %w", i, err)
		}
		out[i] = rating.Entry{CriterionID: r.CriterionID, Value: v, Note: r.Note}
	}
	return out, nil
}

// rawValue returns the text of a JSON scalar, unquoting strings.
func rawValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Responses.

type eventResponse struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Multidisciplinary bool      `json:"multidisciplinary"`
	Capacity          *int      `json:"capacity"`
	CreatedAt         time.Time `json:"created_at"`
}

func toEvent(e model.Event) eventResponse {
	return eventResponse{
		ID:                e.ID,
		Name:              e.Name,
		Multidisciplinary: e.Multidisciplinary,
		Capacity:          e.Capacity,
		CreatedAt:         e.CreatedAt,
	}
}

type enrollmentResponse struct {
	EvaluatorID int64        `json:"evaluator_id"`
	EventID     int64        `json:"event_id"`
	Status      model.Status `json:"status"`
	CategoryID  *int64       `json:"category_id,omitempty"`
}

type participationResponse struct {
	ID            int64        `json:"id"`
	ParticipantID int64        `json:"participant_id"`
	EventID       int64        `json:"event_id"`
	Status        model.Status `json:"status"`
	ProjectID     *int64       `json:"project_id,omitempty"`
	Leader        bool         `json:"leader"`
	Score         *float64     `json:"score"`
	Categories    []int64      `json:"categories"`
	RegisteredAt  time.Time    `json:"registered_at"`
}

func toParticipation(p model.Participation) participationResponse {
	return participationResponse{
		ID:            p.ID,
		ParticipantID: p.ParticipantID,
		EventID:       p.EventID,
		Status:        p.Status,
		ProjectID:     p.ProjectID,
		Leader:        p.Leader,
		Score:         p.Score,
		Categories:    nonNil(p.Categories),
		RegisteredAt:  p.RegisteredAt,
	}
}

type projectResponse struct {
	ID          int64        `json:"id"`
	EventID     int64        `json:"event_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Status      model.Status `json:"status"`
	Score       *float64     `json:"score"`
	Categories  []int64      `json:"categories"`
	CreatedAt   time.Time    `json:"created_at"`
}

func toProject(p model.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		EventID:     p.EventID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		Score:       p.Score,
		Categories:  nonNil(p.Categories),
		CreatedAt:   p.CreatedAt,
	}
}

type criterionResponse struct {
	ID          int64   `json:"id"`
	EventID     int64   `json:"event_id"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

func toCriterion(c model.Criterion) criterionResponse {
	return criterionResponse{ID: c.ID, EventID: c.EventID, Description: c.Description, Weight: c.Weight}
}

type criteriaResponse struct {
	Criteria        []criterionResponse `json:"criteria"`
	TotalWeight     float64             `json:"total_weight"`
	RemainingWeight float64             `json:"remaining_weight"`
}

func toCriteria(s criteria.Summary) criteriaResponse {
	out := criteriaResponse{
		Criteria:        make([]criterionResponse, len(s.Criteria)),
		TotalWeight:     s.Total,
		RemainingWeight: s.Remaining,
	}
	for i, c := range s.Criteria {
		out.Criteria[i] = toCriterion(c)
	}
	return out
}

type rateResponse struct {
	Duplicate      bool     `json:"duplicate"`
	Written        int      `json:"written,omitempty"`
	Scored         bool     `json:"scored,omitempty"`
	Score          *float64 `json:"score,omitempty"`
	Evaluators     int      `json:"evaluators,omitempty"`
	MembersUpdated int      `json:"members_updated,omitempty"`
}

func toRate(o service.RateOutcome) rateResponse {
	out := rateResponse{
		Duplicate:      o.Duplicate,
		Written:        o.Written,
		Scored:         o.Score.Scored,
		Evaluators:     o.Score.Evaluators,
		MembersUpdated: o.Score.MembersUpdated,
	}
	if o.Score.Scored {
		score := o.Score.Score
		out.Score = &score
	}
	return out
}

type breakdownLineResponse struct {
	CriterionID  int64   `json:"criterion_id"`
	Description  string  `json:"description"`
	Weight       float64 `json:"weight"`
	Value        int     `json:"value"`
	Note         string  `json:"note,omitempty"`
	Contribution float64 `json:"contribution"`
}

type breakdownResponse struct {
	EvaluatorID   int64                   `json:"evaluator_id"`
	Lines         []breakdownLineResponse `json:"lines"`
	Total         *float64                `json:"total"`
	Rated         int                     `json:"rated"`
	CriteriaCount int                     `json:"criteria_count"`
	Evaluated     bool                    `json:"evaluated"`
}

func toBreakdowns(bs []scoring.Breakdown) []breakdownResponse {
	out := make([]breakdownResponse, len(bs))
	for i, b := range bs {
		lines := make([]breakdownLineResponse, len(b.Lines))
		for j, l := range b.Lines {
			lines[j] = breakdownLineResponse{
				CriterionID:  l.CriterionID,
				Description:  l.Description,
				Weight:       l.Weight,
				Value:        l.Value,
				Note:         l.Note,
				Contribution: l.Contribution,
			}
		}
		out[i] = breakdownResponse{
			EvaluatorID:   b.EvaluatorID,
			Lines:         lines,
			Total:         b.Total,
			Rated:         b.Rated,
			CriteriaCount: b.CriteriaCount,
			Evaluated:     b.Evaluated,
		}
	}
	return out
}

type memberResponse struct {
	ParticipationID int64 `json:"participation_id"`
	ParticipantID   int64 `json:"participant_id"`
	Leader          bool  `json:"leader"`
}

type rankEntryResponse struct {
	Position      int              `json:"position"`
	Kind          string           `json:"kind"`
	SubjectID     int64            `json:"subject_id"`
	ParticipantID int64            `json:"participant_id,omitempty"`
	Name          string           `json:"name,omitempty"`
	Score         float64          `json:"score"`
	Scored        bool             `json:"scored"`
	Categories    []int64          `json:"categories"`
	Members       []memberResponse `json:"members,omitempty"`
}

type rankingResponse struct {
	EventID     int64               `json:"event_id"`
	Individuals []rankEntryResponse `json:"individuals"`
	Projects    []rankEntryResponse `json:"projects"`
}

func toRanking(t ranking.Table) rankingResponse {
	return rankingResponse{
		EventID:     t.EventID,
		Individuals: toRankEntries(t.Individuals),
		Projects:    toRankEntries(t.Projects),
	}
}

func toRankEntries(es []ranking.Entry) []rankEntryResponse {
	out := make([]rankEntryResponse, len(es))
	for i, e := range es {
		var members []memberResponse
		for _, m := range e.Members {
			members = append(members, memberResponse{
				ParticipationID: m.ParticipationID,
				ParticipantID:   m.ParticipantID,
				Leader:          m.Leader,
			})
		}
		out[i] = rankEntryResponse{
			Position:      e.Position,
			Kind:          string(e.Subject.Kind),
			SubjectID:     e.Subject.ID,
			ParticipantID: e.ParticipantID,
			Name:          e.Name,
			Score:         e.Score,
			Scored:        e.Scored,
			Categories:    nonNil(e.Categories),
			Members:       members,
		}
	}
	return out
}

type positionResponse struct {
	ParticipationID int64   `json:"participation_id"`
	Position        int     `json:"position"`
	Score           float64 `json:"score"`
	Total           int     `json:"total"`
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
