//go:build linux

package capture

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/screenvoice/platform/internal/area"
	"github.com/screenvoice/platform/internal/errdefs"
)

type linuxBackend struct{}

func (linuxBackend) captureRaw(ctx context.Context, r area.Rect, outFile string) error {
	// Prefer maim for region capture, fall back to ImageMagick import.
	if _, err := exec.LookPath("maim"); err == nil {
		geometry := fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
		return runTool(exec.CommandContext(ctx, "maim", "-g", geometry, outFile))
	}
	if _, err := exec.LookPath("import"); err == nil {
		crop := fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
		return runTool(exec.CommandContext(ctx, "import", "-window", "root", "-crop", crop, outFile))
	}
	return errdefs.New(errdefs.CodeCaptureFailed, "no capture tool found (install maim or imagemagick)")
}

// New creates a platform-specific capture provider.
func New() Provider {
	return newBase(linuxBackend{})
}
