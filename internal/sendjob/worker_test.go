package sendjob

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"homebase/internal/blacklist"
	"homebase/internal/domain"
	"homebase/internal/phone"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSender records dispatch calls and fails numbers listed in failFor.
type fakeSender struct {
	calls   []phone.Number
	failFor map[phone.Number]bool
	onSend  func(call int)
}

func (f *fakeSender) Send(_ context.Context, n phone.Number, _ string) domain.Outcome {
	f.calls = append(f.calls, n)
	if f.onSend != nil {
		f.onSend(len(f.calls))
	}
	if f.failFor[n] {
		return domain.Outcome{Number: n, Reason: "boom"}
	}
	return domain.Outcome{Number: n, OK: true, Reason: "sent"}
}

// testWorker wires a worker with recorded sleeps and zero jitter.
func testWorker(s Sender, q *Queue) (*Worker, *[]time.Duration) {
	w := NewWorker(WorkerConfig{Sender: s, Queue: q, Logger: testLogger()})
	var sleeps []time.Duration
	w.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	w.jitter = func() time.Duration { return 0 }
	return w, &sleeps
}

func numbers(raw ...string) []phone.Number {
	out := make([]phone.Number, len(raw))
	for i, r := range raw {
		out[i] = phone.Number(r)
	}
	return out
}

func job(nums []phone.Number, p Pacing) Job {
	return Job{ID: "test", Numbers: nums, Message: "hello", Pacing: p}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestRun_EventCountInvariant(t *testing.T) {
	nums := numbers("994501111111", "994502222222", "994503333333")
	sender := &fakeSender{failFor: map[phone.Number]bool{"994502222222": true}}
	q := NewQueue()
	w, _ := testWorker(sender, q)

	w.Run(context.Background(), job(nums, Pacing{Delay: time.Second, BatchSize: 10, BatchPause: time.Second}))

	events := q.Drain()
	if len(events) != 5 { // started + 3 outcomes + done
		t.Fatalf("expected 5 events, got %d: %v", len(events), kinds(events))
	}
	if events[0].Kind != EventStarted || events[0].Total != 3 {
		t.Fatalf("first event = %+v, want started{total:3}", events[0])
	}
	last := events[len(events)-1]
	if last.Kind != EventDone {
		t.Fatalf("terminal event = %v, want done", last.Kind)
	}
	if last.Sent+last.Failed != 3 {
		t.Fatalf("done counters %d+%d != 3", last.Sent, last.Failed)
	}
	if last.Sent != 2 || last.Failed != 1 {
		t.Fatalf("done = sent %d failed %d, want 2/1", last.Sent, last.Failed)
	}

	// Per-number events carry a 1-based index in job order.
	for i, e := range events[1:4] {
		if e.Index != i+1 {
			t.Errorf("event %d index = %d, want %d", i, e.Index, i+1)
		}
		if e.Number != nums[i] {
			t.Errorf("event %d number = %s, want %s", i, e.Number, nums[i])
		}
	}
}

func TestRun_StopAfterK(t *testing.T) {
	nums := numbers("994501111111", "994502222222", "994503333333", "994504444444")
	q := NewQueue()
	sender := &fakeSender{}
	w, _ := testWorker(sender, q)
	sender.onSend = func(call int) {
		if call == 2 {
			w.Stop()
		}
	}

	w.Run(context.Background(), job(nums, Pacing{Delay: 0, BatchSize: 10}))

	if len(sender.calls) != 2 {
		t.Fatalf("dispatched %d numbers, want 2", len(sender.calls))
	}
	events := q.Drain()
	got := kinds(events)
	want := []EventKind{EventStarted, EventSent, EventSent, EventStopped}
	if len(got) != len(want) {
		t.Fatalf("events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events %v, want %v", got, want)
		}
	}
	last := events[len(events)-1]
	if last.Sent != 2 || last.Failed != 0 {
		t.Fatalf("stopped = sent %d failed %d, want 2/0", last.Sent, last.Failed)
	}
}

func TestRun_ContextCancelBehavesLikeStop(t *testing.T) {
	nums := numbers("994501111111", "994502222222")
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	sender := &fakeSender{onSend: func(int) { cancel() }}
	w, _ := testWorker(sender, q)

	w.Run(ctx, job(nums, Pacing{Delay: 0, BatchSize: 10}))

	if len(sender.calls) != 1 {
		t.Fatalf("dispatched %d numbers, want 1", len(sender.calls))
	}
	events := q.Drain()
	if events[len(events)-1].Kind != EventStopped {
		t.Fatalf("terminal event = %v, want stopped", events[len(events)-1].Kind)
	}
}

func TestRun_PacingFloor(t *testing.T) {
	nums := numbers("994501111111", "994502222222")
	for _, delay := range []time.Duration{0, -5 * time.Second, 100 * time.Millisecond} {
		q := NewQueue()
		w, sleeps := testWorker(&fakeSender{}, q)
		// worst-case jitter
		w.jitter = func() time.Duration { return -150 * time.Millisecond }

		w.Run(context.Background(), job(nums, Pacing{Delay: delay, BatchSize: 10}))

		for _, d := range *sleeps {
			if d < minItemDelay {
				t.Errorf("delay=%v: slept %v, below floor %v", delay, d, minItemDelay)
			}
		}
	}
}

func TestRun_BatchPauseTrigger(t *testing.T) {
	nums := numbers("994501111111", "994502222222", "994503333333", "994504444444", "994505555555")
	q := NewQueue()
	w, sleeps := testWorker(&fakeSender{}, q)

	pause := 42 * time.Second
	w.Run(context.Background(), job(nums, Pacing{Delay: time.Second, BatchSize: 2, BatchPause: pause}))

	// Sleep pattern: item, item+pause, item, item+pause, item.
	var pauseAfter []int
	item := 0
	for _, d := range *sleeps {
		if d == pause {
			pauseAfter = append(pauseAfter, item)
		} else {
			item++
		}
	}
	if len(pauseAfter) != 2 || pauseAfter[0] != 2 || pauseAfter[1] != 4 {
		t.Fatalf("batch pauses after items %v, want [2 4] (sleeps: %v)", pauseAfter, *sleeps)
	}
}

func TestNewJob_FiltersAndDeduplicates(t *testing.T) {
	black := blacklist.Set{"994502222222": {}}
	raw := []string{
		"0501111111",     // ok
		"+994502222222",  // blacklisted
		"garbage",        // rejected
		"0501111111",     // duplicate of first
		"551234567",      // ok
		"",               // empty
	}
	j := NewJob(raw, "msg", black, Pacing{Delay: time.Second, BatchSize: 10})

	want := numbers("994501111111", "994551234567")
	if len(j.Numbers) != len(want) {
		t.Fatalf("numbers = %v, want %v", j.Numbers, want)
	}
	for i := range want {
		if j.Numbers[i] != want[i] {
			t.Fatalf("numbers = %v, want %v", j.Numbers, want)
		}
	}
	if j.ID == "" {
		t.Error("job should get an ID")
	}
}

func TestNewJob_BlacklistedNumberNeverDispatched(t *testing.T) {
	black := blacklist.Set{"994502222222": {}}
	j := NewJob([]string{"0501111111", "0502222222"}, "msg", black, Pacing{BatchSize: 10})

	q := NewQueue()
	sender := &fakeSender{}
	w, _ := testWorker(sender, q)
	w.Run(context.Background(), j)

	for _, n := range sender.calls {
		if n == "994502222222" {
			t.Fatal("blacklisted number was dispatched")
		}
	}
	for _, e := range q.Drain() {
		if e.Number == "994502222222" {
			t.Fatal("blacklisted number appeared in a progress event")
		}
	}
}
