// Package trigger turns global hotkey presses into scan trigger signals.
package trigger

import "context"

// Source emits trigger identifiers, one per key press. The scheduler
// matches them against manual areas' trigger bindings.
type Source interface {
	// Events returns the trigger stream. The channel closes when the
	// source stops.
	Events() <-chan string
	// Run blocks until ctx is cancelled.
	Run(ctx context.Context) error
}
