// Package diag fans pipeline events out to observers such as the
// websocket feed. Emission never blocks the pipeline.
package diag

import (
	"sync"
	"time"
)

// Kind classifies an event.
type Kind string

const (
	KindScan   Kind = "scan"
	KindSpeech Kind = "speech"
	KindError  Kind = "error"
	KindState  Kind = "state" // freeze toggles, layout swaps
)

// Event is one pipeline occurrence, shaped for JSON transport.
type Event struct {
	Kind      Kind           `json:"kind"`
	AreaID    string         `json:"area_id,omitempty"`
	Message   string         `json:"message,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sink distributes events to subscribers. Slow subscribers drop events
// rather than stalling publishers.
type Sink struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	bufSize int
}

// NewSink creates a sink whose subscriber channels buffer bufSize events.
func NewSink(bufSize int) *Sink {
	return &Sink{
		subs:    make(map[chan Event]struct{}),
		bufSize: bufSize,
	}
}

// Emit publishes an event to every subscriber, stamping the time.
func (s *Sink) Emit(e Event) {
	e.Timestamp = time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new observer. Call the returned cancel func to
// detach; the channel is closed on cancel.
func (s *Sink) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, s.bufSize)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
