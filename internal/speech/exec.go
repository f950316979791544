package speech

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/screenvoice/platform/internal/errdefs"
	"github.com/screenvoice/platform/internal/settings"
)

// ExecEngine shells out to the host's text-to-speech command: say on
// macOS, espeak-ng (or espeak) elsewhere. Cancelling the context kills
// the process mid-utterance.
type ExecEngine struct {
	tool string
}

// NewExecEngine locates a speech tool on PATH.
func NewExecEngine() *ExecEngine {
	e := &ExecEngine{}
	if runtime.GOOS == "darwin" {
		if _, err := exec.LookPath("say"); err == nil {
			e.tool = "say"
			return e
		}
	}
	for _, tool := range []string{"espeak-ng", "espeak"} {
		if _, err := exec.LookPath(tool); err == nil {
			e.tool = tool
			return e
		}
	}
	return e
}

// Available reports whether a speech tool was found.
func (e *ExecEngine) Available() error {
	if e.tool == "" {
		return errdefs.New(errdefs.CodeSpeechFailed, "no speech tool found (install espeak-ng, or use macOS say)")
	}
	return nil
}

// Speak runs the tool and blocks until the utterance completes.
func (e *ExecEngine) Speak(ctx context.Context, text string, v settings.Voice) error {
	if err := e.Available(); err != nil {
		return err
	}

	var args []string
	switch e.tool {
	case "say":
		if v.Name != "" {
			args = append(args, "-v", v.Name)
		}
		if v.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(v.Rate))
		}
	default: // espeak flavors
		if v.Name != "" {
			args = append(args, "-v", v.Name)
		}
		if v.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(v.Rate))
		}
	}
	args = append(args, text)

	cmd := exec.CommandContext(ctx, e.tool, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errdefs.Wrap(err, errdefs.CodeSpeechFailed, e.tool)
	}
	return nil
}
