package reconcile

import (
	"context"
	"log/slog"
	"time"
)

// Worker runs SyncRecent on a fixed interval as a catch-up for missed status polls.
type Worker struct {
	rec      *Reconciler
	interval time.Duration
	log      *slog.Logger
}

func NewWorker(rec *Reconciler, interval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{rec: rec, interval: interval, log: logger}
}

// Run blocks until ctx is done. A non-positive interval disables the worker.
func (w *Worker) Run(ctx context.Context) {
	if w.rec == nil || w.interval <= 0 {
		w.log.Info("reconcile worker: disabled")
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.log.Info("reconcile worker: started", slog.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("reconcile worker: stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()
	if _, err := w.rec.SyncRecent(runCtx); err != nil {
		w.log.Error("reconcile worker: sync failed", slog.String("error", err.Error()))
	}
}
