package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/eventsoft/pkg/logger"
)

const (
	workerChannelMultiplier = 2
	percentageMultiplier    = 100
)

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	case c.Participants < 0 || c.Projects < 0:
		return fmt.Errorf("%w: participant and project counts must not be negative", ErrInvalidConfig)
	case c.Projects > 0 && c.ProjectSize < 1:
		return fmt.Errorf("%w: projects need at least one member", ErrInvalidConfig)
	case c.Evaluators < 1:
		return fmt.Errorf("%w: at least one evaluator is required", ErrInvalidConfig)
	case c.Criteria < 1 || c.Criteria > maxCriteria:
		return fmt.Errorf("%w: criteria must be between 1 and %d", ErrInvalidConfig, maxCriteria)
	case c.Workers < 1:
		return fmt.Errorf("%w: at least one worker is required", ErrInvalidConfig)
	}
	return nil
}

// Run executes a complete seed and verification pass.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting seed run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("participants", cfg.Participants),
		logger.Int("projects", cfg.Projects),
		logger.Int("evaluators", cfg.Evaluators),
		logger.Int("workers", cfg.Workers))

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Register everything the ratings need
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	p, err := build(ctx, client, cfg, rng)
	if err != nil {
		return stats, fmt.Errorf("registration failed: %w", err)
	}
	p.batches = planBatches(rng, p.evaluators, p.subjects(), p.criteria)
	stats.BatchesPlanned = len(p.batches)
	expected := expectedScores(p.batches, p.criteria)

	// Step 3: Submit ratings concurrently
	res := submitBatches(ctx, client, cfg, p.batches)
	stats.BatchesSubmitted = int(res.successful + res.duplicate + res.failed)
	stats.BatchesSuccessful = int(res.successful)
	stats.BatchesFailed = int(res.failed)
	if res.failed > 0 || res.duplicate > 0 {
		return stats, fmt.Errorf("%w: %d failed, %d unexpectedly duplicate", ErrSubmission, res.failed, res.duplicate)
	}

	// Step 4: Replay every batch; each one must be recognized as a duplicate
	replay := submitBatches(ctx, client, cfg, p.batches)
	stats.BatchesDuplicate = int(replay.duplicate)
	if int(replay.duplicate) != len(p.batches) {
		return stats, fmt.Errorf("%w: %d of %d replays recognized", ErrSubmission, replay.duplicate, len(p.batches))
	}

	// Step 5: Verify the ranking against an independent recomputation
	ranking, err := client.ranking(ctx, p.eventID)
	if err != nil {
		return stats, fmt.Errorf("ranking retrieval failed: %w", err)
	}
	stats.RankedIndividuals = len(ranking.Individuals)
	stats.RankedProjects = len(ranking.Projects)
	if err := verifyRanking(ranking, p, expected); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	if err := verifyMembers(ctx, client, p, expected); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrVerification, err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	displayTop(ctx, ranking)

	log.Info(ctx, "seed run verified", logger.Int64("event_id", p.eventID))
	return stats, nil
}

// build creates the event, evaluators, criteria, participants and projects,
// approving everything except one deliberately rejected participation.
func build(ctx context.Context, client *Client, cfg *Config, rng *rand.Rand) (*plan, error) {
	p := &plan{}
	var err error

	p.eventID, err = client.createEvent(ctx, "Seeded event "+uuid.NewString()[:8])
	if err != nil {
		return nil, err
	}

	for i := 1; i <= cfg.Evaluators; i++ {
		id := int64(i)
		if err := client.enroll(ctx, p.eventID, id); err != nil {
			return nil, err
		}
		if err := client.approveEnrollment(ctx, p.eventID, id); err != nil {
			return nil, err
		}
		p.evaluators = append(p.evaluators, id)
	}

	for i, w := range splitWeights(rng, cfg.Criteria) {
		c, err := client.addCriterion(ctx, p.eventID, p.evaluators[0], fmt.Sprintf("Criterion %d", i+1), w)
		if err != nil {
			return nil, err
		}
		p.criteria = append(p.criteria, c)
	}

	var nextParticipant int64
	register := func(status string) (int64, error) {
		nextParticipant++
		id, err := client.register(ctx, p.eventID, nextParticipant)
		if err != nil {
			return 0, err
		}
		return id, client.setStatus(ctx, subject{Kind: kindParticipant, ID: id}, status)
	}

	for i := 0; i < cfg.Participants; i++ {
		id, err := register("Approved")
		if err != nil {
			return nil, err
		}
		p.individuals = append(p.individuals, id)
	}
	if p.rejected, err = register("Rejected"); err != nil {
		return nil, err
	}

	for i := 0; i < cfg.Projects; i++ {
		id, err := client.createProject(ctx, p.eventID, fmt.Sprintf("Project %d", i+1))
		if err != nil {
			return nil, err
		}
		if err := client.setStatus(ctx, subject{Kind: kindProject, ID: id}, "Approved"); err != nil {
			return nil, err
		}
		pr := project{ID: id}
		for m := 0; m < cfg.ProjectSize; m++ {
			member, err := register("Approved")
			if err != nil {
				return nil, err
			}
			if err := client.assign(ctx, id, member, m == 0); err != nil {
				return nil, err
			}
			pr.Members = append(pr.Members, member)
		}
		p.projects = append(p.projects, pr)
	}

	logger.Get().Info(ctx, "registrations created",
		logger.Int64("event_id", p.eventID),
		logger.Int("criteria", len(p.criteria)),
		logger.Int("individuals", len(p.individuals)),
		logger.Int("projects", len(p.projects)))
	return p, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, batchesPerSecond float64
	if stats.BatchesSubmitted > 0 {
		successRate = float64(stats.BatchesSuccessful) / float64(stats.BatchesSubmitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		batchesPerSecond = float64(stats.BatchesSubmitted+stats.BatchesDuplicate) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("batchesPlanned", stats.BatchesPlanned),
		logger.Int("batchesSuccessful", stats.BatchesSuccessful),
		logger.Int("batchesDuplicate", stats.BatchesDuplicate),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("rankedIndividuals", stats.RankedIndividuals),
		logger.Int("rankedProjects", stats.RankedProjects),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("batchesPerSecond", batchesPerSecond))
}

// displayTop logs the head of both ranking lists.
func displayTop(ctx context.Context, r rankingResponse) {
	const topN = 5
	for _, list := range []struct {
		name    string
		entries []rankEntry
	}{{"individuals", r.Individuals}, {"projects", r.Projects}} {
		for i, e := range list.entries {
			if i == topN {
				break
			}
			logger.Get().Info(ctx, "top "+list.name,
				logger.Int("position", e.Position),
				logger.Int64("subject_id", e.SubjectID),
				logger.Float64("score", e.Score))
		}
	}
}
