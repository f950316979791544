package ocr

import (
	"image"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// Apply runs the configured adjustments over img. Filters run in a fixed
// order: tone adjustments, sharpen, blur, then threshold binarization last
// so it sees the adjusted tones.
func (p Preprocess) Apply(img image.Image) image.Image {
	if !p.Enabled {
		return img
	}

	out := img
	if p.Brightness != 0 {
		out = imaging.AdjustBrightness(out, p.Brightness)
	}
	if p.Contrast != 0 {
		out = imaging.AdjustContrast(out, p.Contrast)
	}
	if p.Saturation != 0 {
		out = imaging.AdjustSaturation(out, p.Saturation)
	}
	if p.Sharpness > 0 {
		out = imaging.Sharpen(out, p.Sharpness)
	}
	if p.Blur > 0 {
		out = imaging.Blur(out, p.Blur)
	}
	if p.ThresholdEnabled {
		out = segment.Threshold(imaging.Grayscale(out), p.Threshold)
	}
	return out
}
