package worker

import (
	"context"
	"time"

	"sjsage522/promoradar/logger"
)

// CycleRunner runs one scan cycle and reports how many brands it covered
type CycleRunner interface {
	RunCycle(ctx context.Context) (int, error)
}

// Worker runs cycles on an interval and on demand
type Worker struct {
	runner   CycleRunner
	interval time.Duration
	trigger  chan struct{}
	verbose  bool
}

// NewWorker creates a new worker. verbose logs every cycle's duration.
func NewWorker(runner CycleRunner, interval time.Duration, verbose bool) *Worker {
	return &Worker{
		runner:   runner,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		verbose:  verbose,
	}
}

// Trigger requests an extra cycle. It returns false when one is already pending.
func (w *Worker) Trigger() bool {
	select {
	case w.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Start runs a cycle immediately and then on every tick or trigger until ctx is done
func (w *Worker) Start(ctx context.Context) {
	log := logger.ForWorker()
	log.Info().Dur("interval", w.interval).Msg("Worker started")

	w.runCycle(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.runCycle(ctx)
		case <-w.trigger:
			log.Info().Msg("Manual refresh requested")
			w.runCycle(ctx)
		}
	}
}

// runCycle runs one cycle and logs its outcome
func (w *Worker) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	brands, err := w.runner.RunCycle(ctx)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			logger.ForWorker().Info().Msg("Cycle interrupted by shutdown")
			return
		}
		logger.LogError("worker", err, "Cycle failed after %s", elapsed)
		return
	}

	if w.verbose {
		logger.LogInfo("worker", "Scanned %d brands in %s", brands, elapsed)
	}
}
