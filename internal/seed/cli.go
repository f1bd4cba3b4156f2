package seed

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/eventsoft/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging logs to stdout and, when logFile is not empty, to that file.
// The returned function closes the file.
func SetupLogging(logFile string, verbose bool) (func(), error) {
	var w io.Writer = os.Stdout
	closeFn := func() {}
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closeFn = func() { _ = file.Close() }
	}
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closeFn, nil
}

// DefaultLogFile returns a timestamped log file name.
func DefaultLogFile() string {
	return "seed_" + time.Now().Format("20060102_150405") + ".log"
}

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	os.Stdout.WriteString(`eventsoft seed tool
===================

Registers an event with weighted criteria, evaluators, individual
participants and group projects on a running server, submits random
ratings concurrently, replays them to check idempotency and verifies the
ranking against an independent recomputation of every score.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string            Base URL of the service (default "http://localhost:9080")
  -participants int      Individual participants (default 50)
  -projects int          Group projects (default 5)
  -project-size int      Members per project, the first is the leader (default 3)
  -evaluators int        Approved evaluators (default 4)
  -criteria int          Criteria, 1 to 10 (default 4)
  -workers int           Concurrent rating submitters (default CPU cores * 2)
  -timeout duration      HTTP request timeout (default 30s)
  -seed uint             Random seed (default: current time)
  -log string            Also log to this file
  -verbose               Log every failed request
  -help                  Show this help message

Examples:
  go run ./cmd/seed
  go run ./cmd/seed -participants 500 -projects 40 -workers 16 -url http://localhost:8080
`)
}
