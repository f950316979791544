//go:build windows

package capture

import (
	"context"

	"github.com/screenvoice/platform/internal/area"
	"github.com/screenvoice/platform/internal/errdefs"
)

type windowsBackend struct{}

func (windowsBackend) captureRaw(ctx context.Context, r area.Rect, outFile string) error {
	return errdefs.New(errdefs.CodeCaptureFailed, "windows capture not implemented")
}

// New creates a platform-specific capture provider.
func New() Provider {
	return newBase(windowsBackend{})
}
