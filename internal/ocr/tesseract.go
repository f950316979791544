package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/screenvoice/platform/internal/errdefs"
)

// Tesseract recognizes text via the native Tesseract engine. A fresh
// gosseract client is created per call so concurrent scans never share
// engine state.
type Tesseract struct{}

// NewTesseract creates the Tesseract-backed engine.
func NewTesseract() *Tesseract {
	return &Tesseract{}
}

// Available verifies the native library is usable.
func (t *Tesseract) Available() error {
	client := gosseract.NewClient()
	defer client.Close()
	if client.Version() == "" {
		return errdefs.New(errdefs.CodeOcrFailed, "tesseract not available")
	}
	return nil
}

// Recognize runs OCR over img with the given params. Preprocessing is
// applied first; the raw recognized text is returned untrimmed.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, params Params) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img = params.Preprocess.Apply(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errdefs.Wrap(err, errdefs.CodeOcrFailed, "encode region image")
	}

	client := gosseract.NewClient()
	defer client.Close()

	if params.Language != "" {
		if err := client.SetLanguage(params.Language); err != nil {
			return "", errdefs.Wrap(err, errdefs.CodeOcrFailed, "set language")
		}
	}
	if params.PageSegMode > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(params.PageSegMode)); err != nil {
			return "", errdefs.Wrap(err, errdefs.CodeOcrFailed, "set page segmentation mode")
		}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", errdefs.Wrap(err, errdefs.CodeOcrFailed, "set image")
	}

	text, err := client.Text()
	if err != nil {
		return "", errdefs.Wrap(err, errdefs.CodeOcrFailed, "recognize")
	}
	return text, nil
}
