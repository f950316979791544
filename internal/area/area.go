// Package area owns capture-area definitions and the active layout set.
package area

import (
	"github.com/screenvoice/platform/internal/errdefs"
	"github.com/screenvoice/platform/internal/ocr"
)

// Mode selects how an area is scanned.
type Mode string

const (
	// AutoRead areas are polled on a timer.
	AutoRead Mode = "auto_read"
	// Manual areas are scanned only on an explicit trigger signal.
	Manual Mode = "manual"
)

// Rect is a screen rectangle in virtual-screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area is a user-defined capture region plus its scan configuration.
type Area struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Rect           Rect   `json:"rect"`
	Mode           Mode   `json:"mode"`
	PollIntervalMs int    `json:"poll_interval_ms,omitempty"` // AutoRead only
	TriggerBinding string `json:"trigger_binding,omitempty"`  // Manual only
	Enabled        bool   `json:"enabled"`

	// Per-area overrides; zero values fall back to the global settings.
	PageSegMode int             `json:"psm,omitempty"`
	Preprocess  *ocr.Preprocess `json:"preprocess,omitempty"`
	Voice       string          `json:"voice,omitempty"`
	Rate        int             `json:"rate,omitempty"`
}

// Validate checks the rectangle and mode-specific fields.
func (a Area) Validate() error {
	if a.Rect.Width <= 0 || a.Rect.Height <= 0 {
		return errdefs.Newf(errdefs.CodeInvalidAreaConfig, "area %q: width and height must be positive", a.Name)
	}
	if a.Rect.X < 0 || a.Rect.Y < 0 {
		return errdefs.Newf(errdefs.CodeInvalidAreaConfig, "area %q: origin must be non-negative", a.Name)
	}
	switch a.Mode {
	case AutoRead:
		if a.PollIntervalMs <= 0 {
			return errdefs.Newf(errdefs.CodeInvalidAreaConfig, "area %q: auto-read areas need a positive poll interval", a.Name)
		}
	case Manual:
		if a.TriggerBinding == "" {
			return errdefs.Newf(errdefs.CodeInvalidAreaConfig, "area %q: manual areas need a trigger binding", a.Name)
		}
	default:
		return errdefs.Newf(errdefs.CodeInvalidAreaConfig, "area %q: unknown mode %q", a.Name, a.Mode)
	}
	return nil
}

// Layout is a named, ordered collection of areas. Exactly one layout is
// active at a time.
type Layout struct {
	Name  string `json:"name"`
	Areas []Area `json:"areas"`
}

// Validate checks every area in the layout.
func (l Layout) Validate() error {
	if l.Name == "" {
		return errdefs.New(errdefs.CodeCorruptLayout, "layout has no name")
	}
	seen := make(map[string]struct{}, len(l.Areas))
	for _, a := range l.Areas {
		if a.ID == "" {
			return errdefs.Newf(errdefs.CodeCorruptLayout, "layout %q: area %q has no id", l.Name, a.Name)
		}
		if _, dup := seen[a.ID]; dup {
			return errdefs.Newf(errdefs.CodeCorruptLayout, "layout %q: duplicate area id %s", l.Name, a.ID)
		}
		seen[a.ID] = struct{}{}
		if err := a.Validate(); err != nil {
			return errdefs.Wrap(err, errdefs.CodeCorruptLayout, "layout "+l.Name)
		}
	}
	return nil
}
