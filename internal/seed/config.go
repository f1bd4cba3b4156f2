// Package seed drives a running scoring service over HTTP: it registers an
// event with weighted criteria, evaluators, individuals and projects, submits
// random ratings concurrently and verifies the resulting ranking.
package seed

import "time"

// Config holds configuration for a seed run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Participants int           // Individual participants
	Projects     int           // Group projects
	ProjectSize  int           // Members per project, the first is the leader
	Evaluators   int           // Approved evaluators
	Criteria     int           // Criteria; weights always sum to at most 100
	Workers      int           // Concurrent rating submitters
	Timeout      time.Duration // HTTP request timeout
	Seed         uint64        // Random seed; the same seed yields the same plan
	Verbose      bool          // Log every request failure
}

// Stats holds run statistics.
type Stats struct {
	BatchesPlanned    int
	BatchesSubmitted  int
	BatchesSuccessful int
	BatchesDuplicate  int
	BatchesFailed     int
	RankedIndividuals int
	RankedProjects    int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// criterion is a criterion as planned and as returned by the service.
type criterion struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// subject is something the plan rates: a participation or a project.
type subject struct {
	Kind string // participant | project
	ID   int64
}

func (s subject) path() string {
	if s.Kind == kindProject {
		return "/projects/"
	}
	return "/participations/"
}

const (
	kindParticipant = "participant"
	kindProject     = "project"
)

// entry is one rating inside a batch.
type entry struct {
	CriterionID int64  `json:"criterion_id"`
	Value       int    `json:"value"`
	Note        string `json:"note,omitempty"`
}

// batch is one evaluator's ratings of one subject.
type batch struct {
	Evaluator int64
	Subject   subject
	Key       string
	Ratings   []entry
}

// project is a planned project with its member participations.
type project struct {
	ID      int64
	Members []int64
}

// rankEntry mirrors the ranking response rows.
type rankEntry struct {
	Position      int     `json:"position"`
	Kind          string  `json:"kind"`
	SubjectID     int64   `json:"subject_id"`
	ParticipantID int64   `json:"participant_id"`
	Name          string  `json:"name"`
	Score         float64 `json:"score"`
	Scored        bool    `json:"scored"`
	Members       []struct {
		ParticipationID int64 `json:"participation_id"`
		Leader          bool  `json:"leader"`
	} `json:"members"`
}

type rankingResponse struct {
	EventID     int64       `json:"event_id"`
	Individuals []rankEntry `json:"individuals"`
	Projects    []rankEntry `json:"projects"`
}

type positionResponse struct {
	Position int     `json:"position"`
	Score    float64 `json:"score"`
	Total    int     `json:"total"`
}

type rateResponse struct {
	Duplicate bool `json:"duplicate"`
	Written   int  `json:"written"`
}

type idResponse struct {
	ID int64 `json:"id"`
}
