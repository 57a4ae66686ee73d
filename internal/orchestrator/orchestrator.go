// Package orchestrator routes each conversational turn to the subagents it
// needs, merges their results into the shared project record, and advances
// the workflow checkpoint. It owns no storage and no transport: state comes
// in by value and goes out updated.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"craftfolio/internal/checkpoint"
	"craftfolio/internal/logging"
	"craftfolio/internal/state"
	"craftfolio/internal/subagent"
	"craftfolio/internal/tools"
	"craftfolio/internal/vocab"
)

// TurnContext carries the optional hints a front-end can attach to a turn.
type TurnContext struct {
	// Feedback marks the message as iterative refinement of existing work.
	Feedback string

	// FocusAreas narrows a subagent's attention to specific fields.
	FocusAreas []string

	// PreserveElements names design blocks that must survive
	// re-composition untouched.
	PreserveElements []string

	// Profile is the business context injected into prompts.
	Profile vocab.BusinessProfile
}

// TurnEventType classifies orchestration events.
type TurnEventType string

const (
	EventSubagentStarted   TurnEventType = "subagent_started"
	EventSubagentCompleted TurnEventType = "subagent_completed"
	EventSubagentFailed    TurnEventType = "subagent_failed"
	EventMerged            TurnEventType = "merged"
	EventCheckpointMoved   TurnEventType = "checkpoint_moved"
)

// TurnEvent is one observability event emitted during a turn.
type TurnEvent struct {
	Type      TurnEventType `json:"type"`
	Subagent  string        `json:"subagent,omitempty"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
}

// TurnOutput is everything a turn produces besides the updated state.
type TurnOutput struct {
	// Actions are suggested next steps, at most MaxSuggestedActions.
	Actions []Action `json:"actions"`

	// NeedsClarification lists fields the turn could not resolve.
	NeedsClarification []string `json:"needs_clarification,omitempty"`

	// Notices are soft, user-visible degradation messages ("layout
	// unavailable this turn"). Never errors.
	Notices []string `json:"notices,omitempty"`

	// Checkpoint is the phase after this turn.
	Checkpoint checkpoint.Phase `json:"checkpoint"`

	// Subagents lists what ran, in dispatch order.
	Subagents []string `json:"subagents"`

	// UsedFallback reports whether any result came from the
	// deterministic path.
	UsedFallback bool `json:"used_fallback,omitempty"`
}

// MaxSuggestedActions bounds the suggestion list per turn.
const MaxSuggestedActions = 5

// Orchestrator dispatches turns. Safe for concurrent use across distinct
// projects; a single project's turns are assumed serialized by the caller
// (one logical turn per user message).
type Orchestrator struct {
	spawner *subagent.Spawner
	story   *subagent.Story
	design  *subagent.Design
	quality *subagent.Quality

	events chan TurnEvent
}

// New creates an orchestrator over the given spawner and subagent
// definitions. The event channel is optional.
func New(spawner *subagent.Spawner, story *subagent.Story, design *subagent.Design, quality *subagent.Quality, events chan TurnEvent) *Orchestrator {
	return &Orchestrator{
		spawner: spawner,
		story:   story,
		design:  design,
		quality: quality,
		events:  events,
	}
}

// Dispatch runs one conversational turn. The returned state is always
// usable: a turn in which every subagent failed returns the input state
// unchanged except for an appended clarification request. The error return
// is reserved for malformed upstream state, which is refused at the
// boundary without dispatching anything.
func (o *Orchestrator) Dispatch(ctx context.Context, s *state.ProjectState, userMessage string, tc TurnContext) (*state.ProjectState, *TurnOutput, error) {
	return o.DispatchIntent(ctx, s, userMessage, tc, tools.ClassifyIntent(userMessage))
}

// DispatchIntent is Dispatch with the intent decided by the caller. Used by
// operations that already know what they want (compose-layout, check-
// readiness, generate-content) and must not depend on message phrasing.
func (o *Orchestrator) DispatchIntent(ctx context.Context, s *state.ProjectState, userMessage string, tc TurnContext, intent tools.Intent) (*state.ProjectState, *TurnOutput, error) {
	if err := s.Validate(); err != nil {
		return s, nil, fmt.Errorf("refusing to dispatch on malformed state: %w", err)
	}

	invs := o.plan(intent, s, userMessage, tc)
	logging.Orchestrator("turn for project %s: %d subagent(s), layout=%t readiness=%t generate=%t",
		s.ProjectID, len(invs), intent.Layout, intent.Readiness, intent.Generate)

	for _, inv := range invs {
		o.emit(EventSubagentStarted, inv.Def.Name(), "dispatching")
	}

	// Story runs alone: anything else dispatched the same turn would read
	// narrative fields that are not final yet. Design and Quality are
	// write-disjoint (design vs assessment) and both only read, so they
	// may share a parallel batch.
	var outcomes []subagent.Outcome
	if len(invs) > 1 {
		outcomes = o.spawner.RunParallel(ctx, invs)
	} else {
		outcomes = o.spawner.RunSequential(ctx, invs)
	}

	merged, out, succeeded := o.commit(s, outcomes)

	// Checkpoint only advances on the back of successful work; a turn of
	// failures leaves the phase exactly where it was.
	out.Checkpoint = checkpoint.Phase(merged.Checkpoint)
	if succeeded > 0 {
		before := checkpoint.Phase(merged.Checkpoint)
		after := checkpoint.Advance(merged)
		if after != before {
			merged.Checkpoint = string(after)
			o.emit(EventCheckpointMoved, "", fmt.Sprintf("%s -> %s", before, after))
		}
		out.Checkpoint = after
	}

	out.Actions = SuggestActions(merged, MaxSuggestedActions)
	return merged, out, nil
}

// plan maps a classified intent to the subagent batch for this turn.
func (o *Orchestrator) plan(intent tools.Intent, s *state.ProjectState, msg string, tc TurnContext) []subagent.Invocation {
	base := subagent.Context{
		State:            s.Clone(),
		Message:          msg,
		Feedback:         tc.Feedback,
		FocusAreas:       tc.FocusAreas,
		PreserveElements: tc.PreserveElements,
		Profile:          tc.Profile,
	}

	switch {
	case intent.Layout && intent.Readiness:
		designCtx := base
		if designCtx.Feedback == "" && len(s.Design.Blocks) > 0 {
			designCtx.Feedback = msg
		}
		return []subagent.Invocation{
			{Def: o.design, Ctx: designCtx},
			{Def: o.quality, Ctx: base},
		}
	case intent.Layout:
		designCtx := base
		if designCtx.Feedback == "" && len(s.Design.Blocks) > 0 {
			// A layout request against an existing design is an iteration.
			designCtx.Feedback = msg
		}
		return []subagent.Invocation{{Def: o.design, Ctx: designCtx}}
	case intent.Readiness:
		return []subagent.Invocation{{Def: o.quality, Ctx: base}}
	case intent.Generate:
		genCtx := base
		if len(genCtx.FocusAreas) == 0 {
			genCtx.FocusAreas = []string{state.FieldTitle, state.FieldDescription}
		}
		return []subagent.Invocation{{Def: o.story, Ctx: genCtx}}
	default:
		return []subagent.Invocation{{Def: o.story, Ctx: base}}
	}
}

// commit merges a settled batch into the state. Merges across sections are
// commutative, so outcome order does not matter.
func (o *Orchestrator) commit(s *state.ProjectState, outcomes []subagent.Outcome) (*state.ProjectState, *TurnOutput, int) {
	out := &TurnOutput{}
	merged := s
	succeeded := 0

	for _, oc := range outcomes {
		out.Subagents = append(out.Subagents, oc.Subagent)
		if oc.Err != nil || oc.Result == nil {
			o.emit(EventSubagentFailed, oc.Subagent, fmt.Sprintf("%v", oc.Err))
			switch oc.Subagent {
			case subagent.NameDesign:
				out.Notices = append(out.Notices, "Layout composition is unavailable right now; your current design is unchanged.")
			case subagent.NameQuality:
				out.Notices = append(out.Notices, "Readiness check is unavailable right now. You can still publish whenever you like.")
			}
			continue
		}

		succeeded++
		r := oc.Result
		out.UsedFallback = out.UsedFallback || r.FromFallback
		o.emit(EventSubagentCompleted, oc.Subagent, fmt.Sprintf("confidence %.1f fallback=%t", r.Confidence, r.FromFallback))

		switch {
		case r.Narrative != nil:
			merged = state.MergeNarrative(merged, *r.Narrative)
		case r.Design != nil:
			merged = state.MergeDesign(merged, state.DesignSection{
				Tokens:    r.Design.Tokens,
				Blocks:    r.Design.Blocks,
				Rationale: r.Design.Rationale,
			}, r.Design.HeroImageID, r.Confidence)
		case r.Assessment != nil:
			merged = state.MergeAssessment(merged, *r.Assessment)
		}
		out.NeedsClarification = append(out.NeedsClarification, r.NeedsClarification...)
	}

	if succeeded == 0 && len(outcomes) > 0 {
		// Total failure: state goes back unchanged, with a clarification
		// request appended so the front-end still has something to say.
		out.NeedsClarification = append(out.NeedsClarification,
			"Could you say that again with a bit more detail about the project?")
		return s, out, 0
	}

	o.emit(EventMerged, "", fmt.Sprintf("%d result(s) merged", succeeded))
	return merged, out, succeeded
}

// emit sends an event without ever blocking a turn on a slow listener.
func (o *Orchestrator) emit(t TurnEventType, sub, msg string) {
	if o.events == nil {
		return
	}
	select {
	case o.events <- TurnEvent{Type: t, Subagent: sub, Message: msg, Timestamp: time.Now().UTC()}:
	default:
	}
}
