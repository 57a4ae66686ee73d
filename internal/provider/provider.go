// Package provider abstracts the external structured-generation service.
// Subagents hand it a prompt and an output schema and get back raw JSON
// that is supposed to conform; no caller may assume the call succeeds.
package provider

import (
	"context"
	"encoding/json"
	"errors"
)

// Schema is a minimal JSON-schema description of the expected output.
// Kept provider-neutral so subagent definitions do not import an SDK.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Request is one structured-generation call.
type Request struct {
	System string
	Prompt string
	Schema *Schema
}

// Adapter is the boundary every subagent calls through.
type Adapter interface {
	// Generate returns raw JSON intended to conform to req.Schema.
	// Callers validate the payload themselves; a nil error only means the
	// provider returned syntactically valid JSON.
	Generate(ctx context.Context, req Request) (json.RawMessage, error)

	// Available reports whether the adapter can serve calls at all.
	// Used to skip the network path entirely when generation is disabled.
	Available() bool
}

// Failure taxonomy. Spawn infrastructure uses these to decide between
// retry, fallback, and no-update.
var (
	ErrUnavailable   = errors.New("generation provider unavailable")
	ErrTimeout       = errors.New("generation provider timed out")
	ErrEmptyResponse = errors.New("generation provider returned no content")
	ErrInvalidOutput = errors.New("generation provider returned non-JSON output")
)

// Retryable reports whether a second attempt with the same request could
// plausibly succeed. Unavailability is permanent for the turn, and a
// timeout already spent the caller's latency budget once; only malformed
// output earns the retry.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
