// Package activity reports learning progress in the background. Reports are
// fire and forget: a failed report is logged and dropped, and never blocks
// or fails the game flow that produced it.
package activity

import (
	"context"
	"sync"
	"time"

	"maqamlab/internal/telemetry"
)

// Completer posts one completed activity to the archive.
type Completer interface {
	CompleteActivity(ctx context.Context, maqamID int64, activity string) error
}

// Journal mirrors reports into local state so the dashboard works offline.
type Journal interface {
	AppendActivity(ctx context.Context, maqamID int64, activity string) error
}

type Reporter struct {
	completer Completer
	journal   Journal
	log       *telemetry.JSONLogger
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewReporter(completer Completer, journal Journal, log *telemetry.JSONLogger, timeout time.Duration) *Reporter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Reporter{completer: completer, journal: journal, log: log, timeout: timeout}
}

// Report dispatches one activity in a detached goroutine and returns
// immediately.
func (r *Reporter) Report(maqamID int64, activity string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.completer.CompleteActivity(ctx, maqamID, activity); err != nil {
			r.log.Warn("activity report dropped", map[string]any{
				"maqam_id": maqamID,
				"activity": activity,
				"error":    err.Error(),
			})
		}
		if r.journal != nil {
			if err := r.journal.AppendActivity(ctx, maqamID, activity); err != nil {
				r.log.Warn("activity journal write failed", map[string]any{
					"maqam_id": maqamID,
					"error":    err.Error(),
				})
			}
		}
	}()
}

// Wait blocks until in-flight reports finish. Used on shutdown and in tests.
func (r *Reporter) Wait() {
	r.wg.Wait()
}
