package seed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/eventsoft/pkg/logger"
)

type submitResult struct {
	successful int64
	duplicate  int64
	failed     int64
}

// submitBatches posts batches through a pool of cfg.Workers goroutines.
func submitBatches(ctx context.Context, client *Client, cfg *Config, batches []batch) submitResult {
	var (
		successful int64
		duplicate  int64
		failed     int64
	)

	batchChan := make(chan batch, cfg.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batchChan {
				if ctx.Err() != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				resp, err := client.rate(ctx, b)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						logger.Get().Warn(ctx, "rating batch failed",
							logger.Int64("evaluator", b.Evaluator),
							logger.String("subject", b.Subject.Kind),
							logger.Int64("subject_id", b.Subject.ID),
							logger.Error(err))
					}
				case resp.Duplicate:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&successful, 1)
				}
			}
		}()
	}

	// Send batches to workers
	go func() {
		defer close(batchChan)
		for _, b := range batches {
			select {
			case <-ctx.Done():
				return
			case batchChan <- b:
			}
		}
	}()

	wg.Wait()

	return submitResult{
		successful: atomic.LoadInt64(&successful),
		duplicate:  atomic.LoadInt64(&duplicate),
		failed:     atomic.LoadInt64(&failed),
	}
}
