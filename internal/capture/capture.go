// Package capture grabs screen rectangles via the platform's native
// screenshot tool.
package capture

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"os/exec"

	"github.com/screenvoice/platform/internal/area"
	"github.com/screenvoice/platform/internal/errdefs"
)

// Provider captures a screen rectangle as a decoded image.
type Provider interface {
	Capture(ctx context.Context, r area.Rect) (image.Image, error)
	Close()
}

// backend implements platform-specific raw capture to a PNG file.
type backend interface {
	captureRaw(ctx context.Context, r area.Rect, outFile string) error
}

// baseProvider runs the backend into a temp file and decodes the result.
type baseProvider struct {
	backend
	tempDir string
}

func newBase(b backend) *baseProvider {
	tmpDir, err := os.MkdirTemp("", "screenvoice-capture-*")
	if err != nil {
		tmpDir = os.TempDir()
	}
	return &baseProvider{backend: b, tempDir: tmpDir}
}

func (p *baseProvider) Capture(ctx context.Context, r area.Rect) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// One file per call: captures of different areas run concurrently.
	f, err := os.CreateTemp(p.tempDir, "region-*.png")
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.CodeCaptureFailed, "create capture file")
	}
	outFile := f.Name()
	f.Close()
	defer os.Remove(outFile)
	if err := p.captureRaw(ctx, r, outFile); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.CodeCaptureFailed, "read capture output")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.CodeCaptureFailed, "decode capture output")
	}
	return img, nil
}

func (p *baseProvider) Close() {
	if p.tempDir != "" {
		os.RemoveAll(p.tempDir)
	}
}

// runTool executes a capture command and wraps failures with stderr.
func runTool(cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errdefs.Wrapf(err, errdefs.CodeCaptureFailed, "%s: %s", cmd.Path, stderr.String())
	}
	return nil
}
