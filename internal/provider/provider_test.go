package provider

import (
	"context"
	"fmt"
	"testing"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", ErrUnavailable, false},
		{"timeout", ErrTimeout, false},
		{"wrapped timeout", fmt.Errorf("gemini: %w after 45s", ErrTimeout), false},
		{"canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"empty response", ErrEmptyResponse, true},
		{"invalid output", ErrInvalidOutput, true},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Errorf("Retryable(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
