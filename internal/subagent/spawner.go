package subagent

import (
	"context"
	"fmt"
	"time"

	"craftfolio/internal/logging"
	"craftfolio/internal/provider"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Invocation pairs a subagent definition with the context it will run on.
type Invocation struct {
	Def Definition
	Ctx Context
}

// Outcome is the normalized result of one invocation. Exactly one of
// Result/Err is meaningful; a failed Design or Quality call yields an
// Outcome with Err set, which the orchestrator treats as "no update".
type Outcome struct {
	ID       string
	Subagent string
	Result   *Result
	Err      error
	Duration time.Duration
}

// SpawnerConfig tunes invocation execution.
type SpawnerConfig struct {
	// Timeout bounds each individual provider call.
	Timeout time.Duration

	// MaxParallel caps concurrent invocations in a parallel batch.
	MaxParallel int
}

// DefaultSpawnerConfig returns sensible defaults.
func DefaultSpawnerConfig() SpawnerConfig {
	return SpawnerConfig{
		Timeout:     45 * time.Second,
		MaxParallel: 2,
	}
}

// Spawner executes subagent invocations against the generation provider,
// normalizing timeouts, the single schema-invalid retry, and the fallback
// hand-off.
type Spawner struct {
	provider provider.Adapter
	cfg      SpawnerConfig
}

// NewSpawner creates a spawner over the given provider adapter.
func NewSpawner(p provider.Adapter, cfg SpawnerConfig) *Spawner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSpawnerConfig().Timeout
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultSpawnerConfig().MaxParallel
	}
	return &Spawner{provider: p, cfg: cfg}
}

// RunOne executes a single invocation: provider call with timeout, one
// retry on schema-invalid output, then the definition's fallback.
func (s *Spawner) RunOne(ctx context.Context, inv Invocation) Outcome {
	id := fmt.Sprintf("%s-%s", inv.Def.Name(), uuid.NewString()[:8])
	start := time.Now()
	logging.Subagent("invocation %s starting", id)

	result, err := s.execute(ctx, inv)
	if err != nil {
		if fb, ok := inv.Def.Fallback(inv.Ctx); ok {
			logging.Subagent("invocation %s using deterministic fallback after: %v", id, err)
			return Outcome{ID: id, Subagent: inv.Def.Name(), Result: fb, Duration: time.Since(start)}
		}
		logging.Get(logging.CategorySubagent).Warnf("invocation %s failed with no fallback: %v", id, err)
		return Outcome{ID: id, Subagent: inv.Def.Name(), Err: err, Duration: time.Since(start)}
	}

	logging.Subagent("invocation %s completed in %v (confidence=%.1f)", id, time.Since(start), result.Confidence)
	return Outcome{ID: id, Subagent: inv.Def.Name(), Result: result, Duration: time.Since(start)}
}

// execute runs the provider path: one call, plus a single retry when the
// response was malformed. Timeouts and unavailability go straight to the
// fallback path; retrying them would double the turn's latency for nothing.
func (s *Spawner) execute(ctx context.Context, inv Invocation) (*Result, error) {
	if !s.provider.Available() {
		return nil, provider.ErrUnavailable
	}

	system, prompt := inv.Def.BuildPrompt(inv.Ctx)
	req := provider.Request{System: system, Prompt: prompt, Schema: inv.Def.Schema()}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		raw, err := s.provider.Generate(callCtx, req)
		cancel()
		if err != nil {
			lastErr = err
			if !provider.Retryable(err) {
				break
			}
			continue
		}

		result, err := inv.Def.Parse(raw, inv.Ctx)
		if err != nil {
			// Malformed structured output gets exactly one more attempt.
			lastErr = err
			continue
		}
		return result, nil
	}
	return nil, lastErr
}

// RunSequential executes invocations in order, each completing before the
// next starts. Used when a later subagent would read what an earlier one
// writes (story before anything else).
func (s *Spawner) RunSequential(ctx context.Context, invs []Invocation) []Outcome {
	outcomes := make([]Outcome, 0, len(invs))
	for _, inv := range invs {
		outcomes = append(outcomes, s.RunOne(ctx, inv))
	}
	return outcomes
}

// RunParallel executes invocations concurrently, bounded by MaxParallel,
// and returns only after every member has finished. Callers guarantee the
// batch is write-disjoint; the spawner guarantees no outcome is surfaced
// until the whole batch has settled, so merges never interleave with
// in-flight calls.
func (s *Spawner) RunParallel(ctx context.Context, invs []Invocation) []Outcome {
	if len(invs) == 1 {
		return []Outcome{s.RunOne(ctx, invs[0])}
	}

	outcomes := make([]Outcome, len(invs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallel)
	for i, inv := range invs {
		g.Go(func() error {
			outcomes[i] = s.RunOne(gctx, inv)
			return nil // failures are carried in the outcome, never abort the batch
		})
	}
	_ = g.Wait()
	return outcomes
}
