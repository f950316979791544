package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failingBreaker(t *testing.T, s Settings) *Breaker {
	t.Helper()
	return NewBreaker("test", s)
}

func TestOpensAfterFailureLimit(t *testing.T) {
	b := failingBreaker(t, Settings{FailureLimit: 3, CoolDown: time.Minute})

	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: expected errBoom, got %v", i, err)
		}
	}
	if b.State() != Open {
		t.Fatalf("expected open, got %s", b.State())
	}
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen while open, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := failingBreaker(t, Settings{FailureLimit: 2, CoolDown: time.Minute})

	_ = b.Do(func() error { return errBoom })
	_ = b.Do(func() error { return nil })
	_ = b.Do(func() error { return errBoom })

	if b.State() != Closed {
		t.Errorf("interleaved success should keep the breaker closed, got %s", b.State())
	}
}

func TestHalfOpenRecovery(t *testing.T) {
	b := failingBreaker(t, Settings{FailureLimit: 1, CoolDown: time.Millisecond, ProbeQuota: 2})

	_ = b.Do(func() error { return errBoom })
	if b.State() != Open {
		t.Fatalf("expected open, got %s", b.State())
	}

	time.Sleep(5 * time.Millisecond)
	for i := 0; i < 2; i++ {
		if err := b.Do(func() error { return nil }); err != nil {
			t.Fatalf("probe %d rejected: %v", i, err)
		}
	}
	if b.State() != Closed {
		t.Errorf("expected closed after probe quota, got %s", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := failingBreaker(t, Settings{FailureLimit: 1, CoolDown: time.Millisecond})

	_ = b.Do(func() error { return errBoom })
	time.Sleep(5 * time.Millisecond)
	_ = b.Do(func() error { return errBoom })

	if b.State() != Open {
		t.Errorf("expected reopen after failed probe, got %s", b.State())
	}
}

func TestCallReturnsValue(t *testing.T) {
	b := failingBreaker(t, Settings{})

	v, err := Call(b, func() (string, error) { return "text", nil })
	if err != nil || v != "text" {
		t.Errorf("unexpected result: %q, %v", v, err)
	}

	_, err = Call(b, func() (string, error) { return "", errBoom })
	if !errors.Is(err, errBoom) {
		t.Errorf("expected errBoom, got %v", err)
	}
}
