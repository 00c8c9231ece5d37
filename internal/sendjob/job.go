// Package sendjob runs WhatsApp batch send jobs: it owns the pacing state
// machine and the progress queue the caller polls.
package sendjob

import (
	"time"

	"github.com/google/uuid"

	"homebase/internal/blacklist"
	"homebase/internal/phone"
)

// Pacing controls the cadence of a job. The caller validates and defaults
// these; the worker only enforces the per-item floor.
type Pacing struct {
	Delay      time.Duration // base delay between sends
	BatchSize  int           // sends per batch before the extra cooldown
	BatchPause time.Duration // inter-batch cooldown, distinct from Delay
}

// Job is one batch send run: an ordered number list plus the message body.
// It is owned exclusively by the worker for the duration of the run.
type Job struct {
	ID      string
	Numbers []phone.Number
	Message string
	Pacing  Pacing
}

// NewJob normalizes raw number lines, drops what cannot be classified,
// filters the blacklist snapshot and deduplicates while preserving order.
// Rejected lines are excluded silently; they only show up as a smaller total.
func NewJob(rawNumbers []string, message string, black blacklist.Set, pacing Pacing) Job {
	seen := make(map[phone.Number]struct{}, len(rawNumbers))
	numbers := make([]phone.Number, 0, len(rawNumbers))
	for _, raw := range rawNumbers {
		n, ok := phone.Normalize(raw)
		if !ok {
			continue
		}
		if black.Contains(n) {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		numbers = append(numbers, n)
	}
	return Job{
		ID:      uuid.NewString(),
		Numbers: numbers,
		Message: message,
		Pacing:  pacing,
	}
}
