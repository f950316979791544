package speech

import (
	"context"
	"sync"
	"time"

	"github.com/screenvoice/platform/internal/diag"
	"github.com/screenvoice/platform/internal/trace"
)

// Dispatcher serializes utterances through a single engine. Manual
// requests jump the queue and interrupt whatever is currently playing.
type Dispatcher struct {
	engine Engine
	sink   *diag.Sink

	mu      sync.Mutex
	queue   []Request
	current *playing
	wake    chan struct{}
}

type playing struct {
	priority Priority
	cancel   context.CancelFunc
}

// NewDispatcher creates a dispatcher over the given engine.
func NewDispatcher(engine Engine, sink *diag.Sink) *Dispatcher {
	return &Dispatcher{
		engine: engine,
		sink:   sink,
		wake:   make(chan struct{}, 1),
	}
}

// Enqueue queues an utterance. A manual request cancels a lower-priority
// utterance that is currently playing so it starts without delay.
func (d *Dispatcher) Enqueue(req Request) {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	d.mu.Lock()
	d.queue = append(d.queue, req)
	if req.Priority == PriorityManual && d.current != nil && d.current.priority < PriorityManual {
		d.current.cancel()
	}
	d.mu.Unlock()

	d.kick()
}

// CancelAll drops every queued utterance and stops the current one.
func (d *Dispatcher) CancelAll() {
	d.mu.Lock()
	d.queue = nil
	if d.current != nil {
		d.current.cancel()
	}
	d.mu.Unlock()
}

// Pending returns the number of queued utterances, not counting the one
// currently playing.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Run consumes the queue until ctx is cancelled. One utterance plays at
// a time; higher priority first, FIFO within a priority.
func (d *Dispatcher) Run(ctx context.Context) {
	log := trace.Logger(ctx)
	for {
		req, utterCtx, cancel, ok := d.next(ctx)
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-d.wake:
				continue
			}
		}

		spanCtx, span := trace.StartSpan(utterCtx, "speak")
		span.SetAttr("area_id", req.AreaID)
		err := d.engine.Speak(spanCtx, req.Text, req.Voice)
		span.End()
		interrupted := utterCtx.Err() != nil
		cancel()

		d.mu.Lock()
		d.current = nil
		d.mu.Unlock()

		switch {
		case err == nil:
			d.sink.Emit(diag.Event{Kind: diag.KindSpeech, AreaID: req.AreaID, Message: "spoken", Fields: map[string]any{"chars": len(req.Text)}})
		case interrupted:
			d.sink.Emit(diag.Event{Kind: diag.KindSpeech, AreaID: req.AreaID, Message: "interrupted"})
		default:
			log.Error("speech failed", "area_id", req.AreaID, "error", err)
			d.sink.Emit(diag.Event{Kind: diag.KindError, AreaID: req.AreaID, Message: err.Error()})
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// next removes the best queued request (highest priority, oldest first)
// and publishes it as current in the same critical section, so a
// concurrent CancelAll either clears it from the queue or cancels its
// utterance context; there is no window where it is in neither place.
func (d *Dispatcher) next(parent context.Context) (Request, context.Context, context.CancelFunc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return Request{}, nil, nil, false
	}
	best := 0
	for i, r := range d.queue[1:] {
		if r.Priority > d.queue[best].Priority {
			best = i + 1
		}
	}
	req := d.queue[best]
	d.queue = append(d.queue[:best], d.queue[best+1:]...)

	utterCtx, cancel := context.WithCancel(parent)
	d.current = &playing{priority: req.Priority, cancel: cancel}
	return req, utterCtx, cancel, true
}

func (d *Dispatcher) kick() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}
