// Package settings holds the process-wide configuration snapshot.
//
// A single immutable Settings value is shared by every component. Updates
// publish a whole new value atomically, so an in-flight scan that read the
// snapshot at its start never observes a half-applied change.
package settings

import (
	"github.com/screenvoice/platform/internal/config"
	"github.com/screenvoice/platform/internal/ocr"
	"github.com/screenvoice/platform/internal/syncx"
)

// Voice describes how speech should be rendered.
type Voice struct {
	Name string `json:"name"` // empty means engine default
	Rate int    `json:"rate"` // words per minute
}

// Settings is the full configuration snapshot read by the pipeline.
type Settings struct {
	OCR                ocr.Params `json:"ocr"`
	Voice              Voice      `json:"voice"`
	DedupWindow        int        `json:"dedup_window"`
	DefaultPollMs      int        `json:"default_poll_ms"`
	Frozen             bool       `json:"frozen"`
	SkipUnchangedFrame bool       `json:"skip_unchanged_frames"`
	HashMaxDistance    int        `json:"hash_max_distance"`
}

// FromConfig builds the startup snapshot from environment configuration.
func FromConfig(cfg *config.Config) Settings {
	return Settings{
		OCR: ocr.Params{
			Language:    cfg.OCRLanguage,
			PageSegMode: cfg.OCRPageSegMode,
		},
		Voice:              Voice{Name: cfg.Voice, Rate: cfg.SpeechRate},
		DedupWindow:        cfg.DedupWindow,
		DefaultPollMs:      cfg.DefaultPollMs,
		SkipUnchangedFrame: cfg.SkipUnchangedFrame,
		HashMaxDistance:    cfg.HashMaxDistance,
	}
}

// Store publishes Settings snapshots.
type Store struct {
	guard *syncx.Guard[Settings]
}

// NewStore creates a store seeded with initial.
func NewStore(initial Settings) *Store {
	return &Store{guard: syncx.NewGuard(initial)}
}

// Get returns the current snapshot by value.
func (s *Store) Get() Settings {
	return s.guard.Get()
}

// Update applies fn to a copy of the current snapshot and publishes the
// result atomically, returning the new snapshot.
func (s *Store) Update(fn func(Settings) Settings) Settings {
	return s.guard.Update(fn)
}

// SetFrozen flips the global freeze flag and returns the new snapshot.
func (s *Store) SetFrozen(frozen bool) Settings {
	return s.Update(func(v Settings) Settings {
		v.Frozen = frozen
		return v
	})
}
