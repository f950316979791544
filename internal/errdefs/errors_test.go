package errdefs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := New(CodeNotFound, "area missing")
	want := "[not_found] area missing"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("exec: command not found")
	err := Wrap(cause, CodeCaptureFailed, "screenshot")

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if CodeOf(err) != CodeCaptureFailed {
		t.Errorf("expected capture_failed, got %s", CodeOf(err))
	}
}

func TestCodeOfNestedChain(t *testing.T) {
	inner := New(CodeOcrFailed, "engine error")
	outer := fmt.Errorf("scan area a1: %w", inner)

	if CodeOf(outer) != CodeOcrFailed {
		t.Errorf("expected ocr_failed through fmt wrap, got %s", CodeOf(outer))
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if CodeOf(errors.New("plain")) != CodeUnknown {
		t.Error("plain errors should map to unknown")
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		code Code
		want bool
	}{
		{CodeCaptureFailed, true},
		{CodeOcrFailed, true},
		{CodeSpeechFailed, true},
		{CodeInvalidAreaConfig, false},
		{CodeNotFound, false},
		{CodeCorruptLayout, false},
	}
	for _, c := range cases {
		if got := IsTransient(New(c.code, "x")); got != c.want {
			t.Errorf("IsTransient(%s) = %v, want %v", c.code, got, c.want)
		}
	}
}
