package sendjob

import (
	"context"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"homebase/internal/domain"
	"homebase/internal/phone"
)

// minItemDelay is the pacing floor. Sends issued faster than the composer
// can settle lose input focus, so even a zero or negative configured delay
// never goes below this.
const minItemDelay = 600 * time.Millisecond

// Sender performs one dispatch attempt. Implemented by dispatch.Dispatcher;
// tests substitute fakes.
type Sender interface {
	Send(ctx context.Context, number phone.Number, message string) domain.Outcome
}

// Worker executes one Job on its own goroutine and reports exclusively
// through the progress queue. It is built fresh per job; state never leaks
// across runs.
type Worker struct {
	sender Sender
	queue  *Queue
	logger *slog.Logger

	stop atomic.Bool

	// injected for deterministic tests
	sleep  func(time.Duration)
	jitter func() time.Duration
}

type WorkerConfig struct {
	Sender Sender
	Queue  *Queue
	Logger *slog.Logger
}

func NewWorker(cfg WorkerConfig) *Worker {
	return &Worker{
		sender: cfg.Sender,
		queue:  cfg.Queue,
		logger: cfg.Logger,
		sleep:  time.Sleep,
		jitter: defaultJitter,
	}
}

// defaultJitter breaks the otherwise suspiciously uniform cadence:
// uniform in [-150ms, +250ms].
func defaultJitter() time.Duration {
	return time.Duration((rand.Float64()*0.4 - 0.15) * float64(time.Second))
}

// Stop requests cooperative termination. The flag is checked before each
// send, never mid-send; worst-case latency is one send-plus-delay cycle.
func (w *Worker) Stop() {
	w.stop.Store(true)
}

// Run walks the job's numbers in order, dispatching one at a time. Per-number
// failures are recorded and the loop continues; nothing raises out of here.
func (w *Worker) Run(ctx context.Context, job Job) {
	sent, failed := 0, 0
	w.queue.Publish(Event{Kind: EventStarted, Total: len(job.Numbers)})
	w.logger.Info("send job started", "job", job.ID, "total", len(job.Numbers))

	batchCount := 0
	for idx, number := range job.Numbers {
		if w.stopRequested(ctx) {
			w.queue.Publish(Event{Kind: EventStopped, Sent: sent, Failed: failed})
			w.logger.Info("send job stopped", "job", job.ID, "sent", sent, "failed", failed)
			return
		}

		out := w.sender.Send(ctx, number, job.Message)
		if out.OK {
			sent++
			w.queue.Publish(Event{Kind: EventSent, Number: number, Sent: sent, Failed: failed, Index: idx + 1})
		} else {
			failed++
			w.queue.Publish(Event{Kind: EventFailed, Number: number, Sent: sent, Failed: failed, Index: idx + 1})
			w.logger.Warn("send failed", "job", job.ID, "number", number, "reason", out.Reason)
		}

		w.sleep(w.itemDelay(job.Pacing.Delay))

		batchCount++
		if batchCount >= job.Pacing.BatchSize {
			w.logger.Debug("batch cooldown", "job", job.ID, "after", batchCount, "pause", job.Pacing.BatchPause)
			w.sleep(job.Pacing.BatchPause)
			batchCount = 0
		}
	}

	w.queue.Publish(Event{Kind: EventDone, Sent: sent, Failed: failed})
	w.logger.Info("send job done", "job", job.ID, "sent", sent, "failed", failed)
}

func (w *Worker) stopRequested(ctx context.Context) bool {
	if w.stop.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (w *Worker) itemDelay(base time.Duration) time.Duration {
	d := base + w.jitter()
	if d < minItemDelay {
		d = minItemDelay
	}
	return d
}
