package simulate

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
)

// Run drives every evaluator of sc against the service at cfg.BaseURL.
// Conversations run cfg.Concurrency at a time; one failing does not stop
// the others. The error is ErrRunsFailed when any conversation failed.
func Run(ctx context.Context, cfg Config, sc *Scenario) (*Stats, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}
	log := logger.Named("simulate")
	client := NewClient(cfg)

	if err := client.Health(ctx); err != nil {
		return nil, err
	}

	stats := &Stats{Evaluators: len(sc.Evaluators), StartTime: time.Now()}
	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("evaluators", stats.Evaluators),
		logger.Int("concurrency", cfg.Concurrency),
		logger.Bool("redeliver", cfg.Redeliver))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(cfg.Concurrency)
	for _, ev := range sc.Evaluators {
		g.Go(func() error {
			c := newChat(client, ev, cfg, log)
			err := c.run(ctx)

			mu.Lock()
			defer mu.Unlock()
			stats.Updates += c.updates
			stats.Duplicates += c.duplicates
			if err != nil {
				stats.Failed++
				stats.Failures = append(stats.Failures, Failure{Login: ev.Login, Err: err})
				log.Warn(ctx, "conversation failed", logger.String("login", ev.Login), logger.Error(err))
				return nil
			}
			stats.Completed++
			if cfg.Verbose {
				log.Info(ctx, "conversation completed", logger.String("login", ev.Login))
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrRunsFailed, stats.Failed, stats.Evaluators)
	}
	return stats, nil
}

// Report writes a human-readable summary of stats.
func Report(w io.Writer, stats *Stats) {
	fmt.Fprintf(w, "Evaluators: %d\n", stats.Evaluators)
	fmt.Fprintf(w, "Completed:  %d\n", stats.Completed)
	fmt.Fprintf(w, "Failed:     %d\n", stats.Failed)
	fmt.Fprintf(w, "Updates:    %d\n", stats.Updates)
	if stats.Duplicates > 0 {
		fmt.Fprintf(w, "Duplicates: %d\n", stats.Duplicates)
	}
	fmt.Fprintf(w, "Duration:   %s\n", stats.Duration.Round(time.Millisecond))
	for _, f := range stats.Failures {
		fmt.Fprintf(w, "  %s: %v\n", f.Login, f.Err)
	}
}
