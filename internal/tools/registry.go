package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"craftfolio/internal/logging"
)

// Registry holds the operation surface. Thread-safe; operations register
// once at wiring time.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*Operation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Operation)}
}

// Register adds an operation.
func (r *Registry) Register(op *Operation) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("invalid operation: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[op.Name]; exists {
		return fmt.Errorf("%w: %s", ErrOperationExists, op.Name)
	}
	r.ops[op.Name] = op
	logging.ToolsDebug("registered operation %s (%s)", op.Name, op.Latency)
	return nil
}

// MustRegister registers an operation and panics on error. For static
// wiring at composition time.
func (r *Registry) MustRegister(op *Operation) {
	if err := r.Register(op); err != nil {
		panic(fmt.Sprintf("register operation %s: %v", op.Name, err))
	}
}

// Get returns an operation by name.
func (r *Registry) Get(name string) (*Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// ByLatency returns all operations in a latency class, sorted by name.
func (r *Registry) ByLatency(class LatencyClass) []*Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Operation
	for _, op := range r.ops {
		if op.Latency == class {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// All returns every registered operation, sorted by name.
func (r *Registry) All() []*Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Operation, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke looks up and executes an operation. Deep-context operations
// refuse to run unless the caller proves an explicit intent match by
// setting explicitMatch; this keeps the default conversational loop cheap.
func (r *Registry) Invoke(ctx context.Context, name string, input map[string]any, explicitMatch bool) (map[string]any, error) {
	op, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperationUnknown, name)
	}
	if op.Latency == DeepContext && !explicitMatch {
		return nil, fmt.Errorf("%w: %s", ErrExplicitMatchRequired, name)
	}
	logging.Tools("invoking %s (%s)", op.Name, op.Latency)
	return op.Handler(ctx, input)
}
