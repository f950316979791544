package speech

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/screenvoice/platform/internal/diag"
	"github.com/screenvoice/platform/internal/settings"
)

// fakeEngine records utterances and blocks each one until released or
// its context is cancelled.
type fakeEngine struct {
	mu       sync.Mutex
	spoken   []string
	started  chan string
	release  chan struct{}
	blocking bool
}

func newFakeEngine(blocking bool) *fakeEngine {
	return &fakeEngine{
		started:  make(chan string, 16),
		release:  make(chan struct{}),
		blocking: blocking,
	}
}

func (f *fakeEngine) Speak(ctx context.Context, text string, _ settings.Voice) error {
	f.started <- text
	if f.blocking {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) spokenTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func waitStart(t *testing.T, f *fakeEngine) string {
	t.Helper()
	select {
	case text := <-f.started:
		return text
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for utterance to start")
		return ""
	}
}

func TestSpeaksOneAtATime(t *testing.T) {
	eng := newFakeEngine(true)
	d := NewDispatcher(eng, diag.NewSink(16))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(Request{Text: "first", Priority: PriorityAuto})
	d.Enqueue(Request{Text: "second", Priority: PriorityAuto})

	if got := waitStart(t, eng); got != "first" {
		t.Fatalf("expected first, got %q", got)
	}
	select {
	case got := <-eng.started:
		t.Fatalf("second utterance %q started while first still playing", got)
	case <-time.After(50 * time.Millisecond):
	}

	close(eng.release)
	if got := waitStart(t, eng); got != "second" {
		t.Fatalf("expected second, got %q", got)
	}
}

func TestManualJumpsQueue(t *testing.T) {
	eng := newFakeEngine(false)
	d := NewDispatcher(eng, diag.NewSink(16))

	// Fill the queue before the loop runs so ordering is deterministic.
	d.Enqueue(Request{Text: "auto-1", Priority: PriorityAuto})
	d.Enqueue(Request{Text: "auto-2", Priority: PriorityAuto})
	d.Enqueue(Request{Text: "manual", Priority: PriorityManual})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	want := []string{"manual", "auto-1", "auto-2"}
	for _, w := range want {
		if got := waitStart(t, eng); got != w {
			t.Fatalf("expected %q, got %q", w, got)
		}
	}
}

func TestManualInterruptsCurrentUtterance(t *testing.T) {
	eng := newFakeEngine(true)
	d := NewDispatcher(eng, diag.NewSink(16))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(Request{Text: "long auto read", Priority: PriorityAuto})
	waitStart(t, eng)

	d.Enqueue(Request{Text: "urgent", Priority: PriorityManual})
	// The auto utterance's context is cancelled, so the engine returns
	// without the release channel ever firing.
	if got := waitStart(t, eng); got != "urgent" {
		t.Fatalf("expected urgent, got %q", got)
	}

	for _, s := range eng.spokenTexts() {
		if s == "long auto read" {
			t.Error("interrupted utterance should not have completed")
		}
	}
}

func TestManualDoesNotInterruptManual(t *testing.T) {
	eng := newFakeEngine(true)
	d := NewDispatcher(eng, diag.NewSink(16))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(Request{Text: "manual-1", Priority: PriorityManual})
	waitStart(t, eng)
	d.Enqueue(Request{Text: "manual-2", Priority: PriorityManual})

	select {
	case got := <-eng.started:
		t.Fatalf("%q started while a same-priority utterance was playing", got)
	case <-time.After(50 * time.Millisecond):
	}

	close(eng.release)
	if got := waitStart(t, eng); got != "manual-2" {
		t.Fatalf("expected manual-2, got %q", got)
	}
}

func TestCancelAll(t *testing.T) {
	eng := newFakeEngine(true)
	d := NewDispatcher(eng, diag.NewSink(16))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(Request{Text: "playing", Priority: PriorityAuto})
	waitStart(t, eng)
	d.Enqueue(Request{Text: "queued", Priority: PriorityAuto})

	d.CancelAll()

	if n := d.Pending(); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
	select {
	case got := <-eng.started:
		t.Fatalf("%q started after CancelAll", got)
	case <-time.After(50 * time.Millisecond):
	}
}

// ctxBoundEngine blocks every utterance until its context is cancelled.
type ctxBoundEngine struct{}

func (ctxBoundEngine) Speak(ctx context.Context, _ string, _ settings.Voice) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCancelAllCatchesDequeuedRequest(t *testing.T) {
	// A request the dispatcher has already taken off the queue can only
	// finish through CancelAll cancelling it as current. If one slips
	// between the queue and current, it blocks forever and the
	// dispatcher never goes idle.
	d := NewDispatcher(ctxBoundEngine{}, diag.NewSink(16))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	for i := 0; i < 100; i++ {
		d.Enqueue(Request{Text: "x", Priority: PriorityAuto})
		d.CancelAll()
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		idle := d.current == nil && len(d.queue) == 0
		d.mu.Unlock()
		if idle {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("an utterance escaped CancelAll and is still playing")
}
