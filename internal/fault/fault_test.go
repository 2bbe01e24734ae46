package fault

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "with cause",
			err:      Wrap(KindDecode, "read", "read image", errors.New("permission denied")),
			contains: []string{"[decode:read]", "read image", "permission denied"},
		},
		{
			name:     "without cause",
			err:      New(KindTimeout, "poll", "no artifact after 10 attempts"),
			contains: []string{"[timeout:poll]", "no artifact"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.contains {
				if !strings.Contains(tt.err.Error(), want) {
					t.Errorf("error %q does not contain %q", tt.err.Error(), want)
				}
			}
		})
	}
}

func TestWrap_NilAndAlreadyClassified(t *testing.T) {
	if err := Wrap(KindDecode, "op", "msg", nil); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}

	inner := New(KindDelivery, "send", "rejected")
	outer := Wrap(KindCheck, "poll", "check", fmt.Errorf("context: %w", inner))
	if got := KindOf(outer); got != KindDelivery {
		t.Fatalf("KindOf = %q, want %q", got, KindDelivery)
	}
}

func TestIsKind(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindCheck, "poll", "status check", cause)
	if !IsKind(err, KindCheck) {
		t.Fatalf("IsKind(check) = false, want true")
	}
	if IsKind(err, KindTimeout) {
		t.Fatalf("IsKind(timeout) = true, want false")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is should reach the cause")
	}
	if IsKind(nil, KindUnknown) {
		t.Fatalf("IsKind(nil) = true, want false")
	}
	if got := KindOf(cause); got != KindUnknown {
		t.Fatalf("KindOf(plain) = %q, want unknown", got)
	}
}
