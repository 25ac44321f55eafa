package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient_Nil(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_TransientError(t *testing.T) {
	err := NewTransientError(errors.New("overloaded"), 503)
	if !IsTransient(err) {
		t.Error("TransientError should be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("overloaded"), 503)
	err := fmt.Errorf("call failed: %w", inner)
	if !IsTransient(err) {
		t.Error("wrapped TransientError should be transient")
	}
}

func TestIsTransient_PlainError(t *testing.T) {
	if IsTransient(errors.New("invalid request")) {
		t.Error("plain error should not be transient")
	}
}

func TestIsTransient_NetworkPatterns(t *testing.T) {
	cases := []string{
		"read tcp: connection reset by peer",
		"dial tcp: i/o timeout",
		"lookup api.anthropic.com: no such host",
	}
	for _, msg := range cases {
		if !IsTransient(errors.New(msg)) {
			t.Errorf("%q should be transient", msg)
		}
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	transient := []int{408, 500, 502, 503, 504}
	for _, code := range transient {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("status %d should be transient", code)
		}
	}

	// 429 is rotation territory, not same-credential retry.
	notTransient := []int{200, 400, 401, 403, 404, 429}
	for _, code := range notTransient {
		if IsTransientHTTPStatus(code) {
			t.Errorf("status %d should not be transient", code)
		}
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := NewTransientError(inner, 500)
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find inner error")
	}
}
