package sendjob

import (
	"sync"

	"homebase/internal/phone"
)

// EventKind tags a progress event variant.
type EventKind string

const (
	EventStarted EventKind = "started"
	EventSent    EventKind = "sent"
	EventFailed  EventKind = "failed"
	EventStopped EventKind = "stopped"
	EventDone    EventKind = "done"
)

// Event is one state change of a running batch job. Exactly one sent/failed
// event is published per attempted number, plus one started and one terminal
// (done or stopped) event per run.
type Event struct {
	Kind   EventKind
	Number phone.Number // sent/failed only
	Total  int          // started only
	Sent   int
	Failed int
	Index  int // 1-based position in the job, sent/failed only
}

// Queue is an unbounded FIFO of progress events bridging the worker
// goroutine and the polling side. Publish never blocks; Drain returns every
// queued event in arrival order without waiting for more.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Publish(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	return out
}
