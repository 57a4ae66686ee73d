package provider

import (
	"context"
	"encoding/json"
)

// Disabled is an adapter that refuses every call. It stands in for the
// real provider when generation is switched off or no credentials exist,
// exercising the same degraded path a live outage would.
type Disabled struct{}

// Available always reports false.
func (Disabled) Available() bool { return false }

// Generate always fails with ErrUnavailable.
func (Disabled) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	return nil, ErrUnavailable
}
