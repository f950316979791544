package trigger

import (
	"context"
	"strings"

	hook "github.com/robotn/gohook"
)

// Hotkey listens for global key-down events and emits the pressed key's
// name, lowercased, as the trigger identifier.
type Hotkey struct {
	events chan string
}

// NewHotkey creates an idle hotkey source.
func NewHotkey(buffer int) *Hotkey {
	return &Hotkey{events: make(chan string, buffer)}
}

// Events returns the trigger stream.
func (h *Hotkey) Events() <-chan string {
	return h.events
}

// Run installs the global keyboard hook and forwards key-down events
// until ctx is cancelled. A full events buffer drops presses rather than
// blocking the hook thread.
func (h *Hotkey) Run(ctx context.Context) error {
	raw := hook.Start()
	defer hook.End()
	defer close(h.events)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-raw:
			if !ok {
				return nil
			}
			if ev.Kind != hook.KeyDown {
				continue
			}
			key := strings.ToLower(hook.RawcodetoKeychar(ev.Rawcode))
			if key == "" {
				continue
			}
			select {
			case h.events <- key:
			default:
			}
		}
	}
}
