// Package ocr provides text recognition over captured screen regions.
package ocr

import (
	"context"
	"image"
)

// Preprocess holds image adjustments applied before recognition. The zero
// value of each field means "leave unchanged".
type Preprocess struct {
	Enabled          bool    `json:"enabled"`
	Brightness       float64 `json:"brightness"` // percentage delta, -100..100
	Contrast         float64 `json:"contrast"`   // percentage delta, -100..100
	Saturation       float64 `json:"saturation"` // percentage delta, -100..100
	Sharpness        float64 `json:"sharpness"`  // sigma for unsharp mask
	Blur             float64 `json:"blur"`       // gaussian sigma
	Threshold        uint8   `json:"threshold"`  // binarization cutoff
	ThresholdEnabled bool    `json:"threshold_enabled"`
}

// Params carries per-recognition settings.
type Params struct {
	Language    string     `json:"language"`
	PageSegMode int        `json:"psm"`
	Preprocess  Preprocess `json:"preprocess"`
}

// Engine recognizes text in a bitmap. Implementations must be safe for
// concurrent use; scans for different areas overlap.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, params Params) (string, error)
}

// Availability is the startup probe for engines whose backend may be
// missing entirely. Checked once so a missing backend degrades to a
// frozen pipeline instead of failing every scan.
type Availability interface {
	Available() error
}
