// Package tools defines the callable operation surface of the core and the
// intent classifier that decides which operations a turn may invoke.
//
// Operations are split into two disjoint latency classes. Fast-turn
// operations are always offered and stay cheap. Deep-context operations
// (full content generation, full layout composition) cost a provider round
// trip with large context, so they are only invoked when the user's message
// explicitly matches their intent.
package tools

import (
	"context"
	"errors"
)

// LatencyClass classifies an operation's cost profile.
type LatencyClass string

const (
	// FastTurn operations are always offered in the default loop.
	FastTurn LatencyClass = "fast-turn"

	// DeepContext operations require an explicit intent match.
	DeepContext LatencyClass = "deep-context"
)

// Operation names. The set is closed: dispatch goes through a lookup
// table keyed by these names, never through reflection.
const (
	OpUpdateField        = "update-field"
	OpRequestClarify     = "request-clarification"
	OpReorderImages      = "reorder-images"
	OpSuggestActions     = "suggest-actions"
	OpCheckReadiness     = "check-readiness"
	OpGenerateContent    = "generate-content"
	OpComposeLayout      = "compose-layout"
	OpChatTurn           = "chat-turn"
)

// HandlerFunc executes one operation. Input and output are JSON-shaped
// maps; each operation documents its contract in its Definition.
type HandlerFunc func(ctx context.Context, input map[string]any) (map[string]any, error)

// Property describes one input field for an operation's contract.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
}

// Operation is one callable entry on the surface.
type Operation struct {
	// Name is the unique operation identifier.
	Name string

	// Description explains what the operation does, for the front-end
	// and for tool listings.
	Description string

	// Latency is the operation's cost classification.
	Latency LatencyClass

	// Input documents the typed input contract.
	Input map[string]Property

	// Handler executes the operation.
	Handler HandlerFunc
}

// Validate checks an operation definition before registration.
func (o *Operation) Validate() error {
	if o.Name == "" {
		return ErrOperationNameEmpty
	}
	if o.Handler == nil {
		return ErrOperationHandlerNil
	}
	switch o.Latency {
	case FastTurn, DeepContext:
	default:
		return ErrOperationLatencyInvalid
	}
	return nil
}

// Registration and lookup errors.
var (
	ErrOperationNameEmpty      = errors.New("operation name is empty")
	ErrOperationHandlerNil     = errors.New("operation handler is nil")
	ErrOperationLatencyInvalid = errors.New("operation latency class is invalid")
	ErrOperationExists         = errors.New("operation already registered")
	ErrOperationUnknown        = errors.New("unknown operation")
	ErrExplicitMatchRequired   = errors.New("deep-context operation requires an explicit intent match")
)
