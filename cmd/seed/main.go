package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/eventsoft/internal/seed"
)

// Default configuration constants.
const (
	defaultParticipants = 50
	defaultProjects     = 5
	defaultProjectSize  = 3
	defaultEvaluators   = 4
	defaultCriteria     = 4
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		participants = flag.Int("participants", defaultParticipants, "Individual participants")
		projects     = flag.Int("projects", defaultProjects, "Group projects")
		projectSize  = flag.Int("project-size", defaultProjectSize, "Members per project")
		evaluators   = flag.Int("evaluators", defaultEvaluators, "Approved evaluators")
		criteria     = flag.Int("criteria", defaultCriteria, "Criteria (1-10)")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seedValue    = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
		logFile      = flag.String("log", "", "Also log to this file")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	closeLog, err := seed.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)

	_, err = seed.Run(ctx, &seed.Config{
		BaseURL:      *baseURL,
		Participants: *participants,
		Projects:     *projects,
		ProjectSize:  *projectSize,
		Evaluators:   *evaluators,
		Criteria:     *criteria,
		Workers:      *workers,
		Timeout:      *timeout,
		Seed:         *seedValue,
		Verbose:      *verbose,
	})
	cancel()
	closeLog()
	if err != nil {
		os.Stderr.WriteString("Seed failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
