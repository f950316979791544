// Package speech renders recognized text as audio, one utterance at a
// time, with manual reads taking priority over automatic ones.
package speech

import (
	"context"
	"time"

	"github.com/screenvoice/platform/internal/settings"
)

// Priority orders queued utterances. Higher speaks first.
type Priority int

const (
	PriorityAuto   Priority = 0 // timer-driven reads
	PriorityManual Priority = 1 // user-triggered reads
)

// Request is one utterance waiting to be spoken.
type Request struct {
	Text      string
	AreaID    string
	Priority  Priority
	Voice     settings.Voice
	CreatedAt time.Time
}

// Engine renders a single utterance. Speak blocks until the utterance
// finishes or ctx is cancelled.
type Engine interface {
	Speak(ctx context.Context, text string, v settings.Voice) error
}

// Availability probes whether an engine can run on this host.
type Availability interface {
	Available() error
}
