package tools

import (
	"context"
	"errors"
	"testing"
)

func echoOp(name string, latency LatencyClass) *Operation {
	return &Operation{
		Name:        name,
		Description: "test operation",
		Latency:     latency,
		Handler: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			return map[string]any{"echo": input["value"]}, nil
		},
	}
}

func TestRegistry_RegisterAndInvoke(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoOp(OpSuggestActions, FastTurn)); err != nil {
		t.Fatalf("register: %v", err)
	}

	out, err := r.Invoke(context.Background(), OpSuggestActions, map[string]any{"value": "x"}, false)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out["echo"] != "x" {
		t.Errorf("handler output = %v", out)
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoOp(OpChatTurn, FastTurn)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(echoOp(OpChatTurn, FastTurn)); !errors.Is(err, ErrOperationExists) {
		t.Errorf("duplicate registration error = %v", err)
	}
}

func TestRegistry_InvalidOperationRejected(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Operation{Name: "", Latency: FastTurn}); !errors.Is(err, ErrOperationNameEmpty) {
		t.Errorf("empty name error = %v", err)
	}
	if err := r.Register(&Operation{Name: "x", Latency: FastTurn}); !errors.Is(err, ErrOperationHandlerNil) {
		t.Errorf("nil handler error = %v", err)
	}
	if err := r.Register(&Operation{Name: "x", Latency: "warp", Handler: echoOp("x", FastTurn).Handler}); !errors.Is(err, ErrOperationLatencyInvalid) {
		t.Errorf("bad latency error = %v", err)
	}
}

func TestRegistry_DeepContextNeedsExplicitMatch(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoOp(OpGenerateContent, DeepContext))

	_, err := r.Invoke(context.Background(), OpGenerateContent, nil, false)
	if !errors.Is(err, ErrExplicitMatchRequired) {
		t.Fatalf("deep-context op ran without explicit match: %v", err)
	}

	if _, err := r.Invoke(context.Background(), OpGenerateContent, nil, true); err != nil {
		t.Errorf("explicit invoke failed: %v", err)
	}
}

func TestRegistry_UnknownOperation(t *testing.T) {
	r := NewRegistry()
	_, err := r.Invoke(context.Background(), "nope", nil, true)
	if !errors.Is(err, ErrOperationUnknown) {
		t.Errorf("unknown op error = %v", err)
	}
}

func TestRegistry_ByLatency(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoOp(OpChatTurn, FastTurn))
	r.MustRegister(echoOp(OpUpdateField, FastTurn))
	r.MustRegister(echoOp(OpComposeLayout, DeepContext))

	fast := r.ByLatency(FastTurn)
	if len(fast) != 2 {
		t.Fatalf("fast-turn count = %d", len(fast))
	}
	// Sorted by name.
	if fast[0].Name != OpChatTurn || fast[1].Name != OpUpdateField {
		t.Errorf("unexpected order: %s, %s", fast[0].Name, fast[1].Name)
	}
	if len(r.All()) != 3 {
		t.Errorf("all count = %d", len(r.All()))
	}
}
