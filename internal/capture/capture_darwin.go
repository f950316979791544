//go:build darwin

package capture

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/screenvoice/platform/internal/area"
)

type darwinBackend struct{}

func (darwinBackend) captureRaw(ctx context.Context, r area.Rect, outFile string) error {
	// -x: no sound, -R: capture rectangle in screen points
	region := fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-t", "png", "-R", region, outFile)
	return runTool(cmd)
}

// New creates a platform-specific capture provider.
func New() Provider {
	return newBase(darwinBackend{})
}
