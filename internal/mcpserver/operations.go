package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"craftfolio/internal/checkpoint"
	"craftfolio/internal/orchestrator"
	"craftfolio/internal/state"
	"craftfolio/internal/store"
	"craftfolio/internal/tools"
)

// registerOperations wires every operation on the surface. Handlers are
// closures over the app so the registry itself stays dependency-free.
func (a *App) registerOperations() {
	projectInput := map[string]tools.Property{
		"project_id": {Type: "string", Description: "Project identifier", Required: true},
	}

	a.Registry.MustRegister(&tools.Operation{
		Name:        tools.OpChatTurn,
		Description: "Process one conversational message against a project: extract facts, refine the layout, or assess readiness depending on what the message asks for.",
		Latency:     tools.FastTurn,
		Input: map[string]tools.Property{
			"project_id": {Type: "string", Description: "Project identifier", Required: true},
			"message":    {Type: "string", Description: "The user's message", Required: true},
			"feedback":   {Type: "string", Description: "Marks the message as refinement of existing work"},
		},
		Handler: a.opChatTurn,
	})

	a.Registry.MustRegister(&tools.Operation{
		Name:        tools.OpUpdateField,
		Description: "Set one narrative field directly. User-entered values carry full confidence and always win over extracted ones.",
		Latency:     tools.FastTurn,
		Input: map[string]tools.Property{
			"project_id": {Type: "string", Description: "Project identifier", Required: true},
			"field":      {Type: "string", Description: "Narrative field name (project_type, problem, solution, materials, techniques, city, state, duration, proud_of, title, description, tags)", Required: true},
			"value":      {Type: "string", Description: "New value; comma-separated for list fields", Required: true},
		},
		Handler: a.opUpdateField,
	})

	a.Registry.MustRegister(&tools.Operation{
		Name:        tools.OpRequestClarify,
		Description: "List the clarifying questions that would most improve the project record.",
		Latency:     tools.FastTurn,
		Input:       projectInput,
		Handler:     a.opRequestClarify,
	})

	a.Registry.MustRegister(&tools.Operation{
		Name:        tools.OpReorderImages,
		Description: "Reorder the image inventory and optionally relabel one image's type or alt text.",
		Latency:     tools.FastTurn,
		Input: map[string]tools.Property{
			"project_id": {Type: "string", Description: "Project identifier", Required: true},
			"order":      {Type: "array", Description: "Image ids in the desired order"},
			"image_id":   {Type: "string", Description: "Image to relabel"},
			"image_type": {Type: "string", Description: "New image type: before, after, progress, detail"},
			"alt":        {Type: "string", Description: "New alt text for the relabeled image"},
		},
		Handler: a.opReorderImages,
	})

	a.Registry.MustRegister(&tools.Operation{
		Name:        tools.OpSuggestActions,
		Description: "Suggest the next steps that would most advance the project toward publishable.",
		Latency:     tools.FastTurn,
		Input:       projectInput,
		Handler:     a.opSuggestActions,
	})

	a.Registry.MustRegister(&tools.Operation{
		Name:        tools.OpCheckReadiness,
		Description: "Run an advisory readiness assessment of the project. Never blocks publishing.",
		Latency:     tools.FastTurn,
		Input:       projectInput,
		Handler:     a.opCheckReadiness,
	})

	a.Registry.MustRegister(&tools.Operation{
		Name:        tools.OpGenerateContent,
		Description: "Generate polished title, description, and tags from everything known about the project. Full-context provider call.",
		Latency:     tools.DeepContext,
		Input: map[string]tools.Property{
			"project_id":  {Type: "string", Description: "Project identifier", Required: true},
			"focus_areas": {Type: "array", Description: "Fields to generate; defaults to title and description"},
		},
		Handler: a.opGenerateContent,
	})

	a.Registry.MustRegister(&tools.Operation{
		Name:        tools.OpComposeLayout,
		Description: "Compose or re-compose the page layout from the current narrative and images. Full-context provider call.",
		Latency:     tools.DeepContext,
		Input: map[string]tools.Property{
			"project_id": {Type: "string", Description: "Project identifier", Required: true},
			"feedback":   {Type: "string", Description: "Direction for the re-composition"},
			"preserve":   {Type: "array", Description: "Block types that must survive re-composition unchanged"},
		},
		Handler: a.opComposeLayout,
	})
}

func (a *App) loadOrCreate(ctx context.Context, projectID string) (*state.ProjectState, error) {
	if projectID == "" {
		return nil, errors.New("project_id is required")
	}
	s, err := a.Store.LoadState(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return state.New(projectID), nil
	}
	return s, err
}

// dispatch runs a turn, persists the result, and journals it.
func (a *App) dispatch(ctx context.Context, s *state.ProjectState, message string, tc orchestrator.TurnContext, intent *tools.Intent) (map[string]any, error) {
	var (
		merged *state.ProjectState
		out    *orchestrator.TurnOutput
		err    error
	)
	if intent != nil {
		merged, out, err = a.Orch.DispatchIntent(ctx, s, message, tc, *intent)
	} else {
		merged, out, err = a.Orch.Dispatch(ctx, s, message, tc)
	}
	if err != nil {
		return nil, err
	}

	if err := a.Store.SaveState(ctx, merged); err != nil {
		return nil, err
	}
	if err := a.Store.AppendTurn(ctx, store.TurnRecord{
		ProjectID:   merged.ProjectID,
		UserMessage: message,
		Subagents:   out.Subagents,
		Checkpoint:  string(out.Checkpoint),
	}); err != nil {
		return nil, err
	}

	return map[string]any{
		"state":  merged,
		"output": out,
	}, nil
}

func (a *App) opChatTurn(ctx context.Context, input map[string]any) (map[string]any, error) {
	s, err := a.loadOrCreate(ctx, strArg(input, "project_id"))
	if err != nil {
		return nil, err
	}
	message := strArg(input, "message")
	if message == "" {
		return nil, errors.New("message is required")
	}
	tc := orchestrator.TurnContext{
		Feedback: strArg(input, "feedback"),
		Profile:  a.Profile,
	}
	return a.dispatch(ctx, s, message, tc, nil)
}

func (a *App) opUpdateField(ctx context.Context, input map[string]any) (map[string]any, error) {
	s, err := a.loadOrCreate(ctx, strArg(input, "project_id"))
	if err != nil {
		return nil, err
	}
	field := strArg(input, "field")
	value := strings.TrimSpace(strArg(input, "value"))
	if field == "" || value == "" {
		return nil, errors.New("field and value are required")
	}

	// A direct edit is the user speaking for themselves: confidence 1.0.
	e := state.NarrativeExtraction{Confidence: 1.0}
	switch field {
	case state.FieldProjectType:
		e.ProjectType = value
	case state.FieldProblem:
		e.Problem = value
	case state.FieldSolution:
		e.Solution = value
	case state.FieldCity:
		e.City = value
	case state.FieldState:
		e.State = value
	case state.FieldDuration:
		e.Duration = value
	case state.FieldProudOf:
		e.ProudOf = value
	case state.FieldTitle:
		e.Title = value
	case state.FieldDescription:
		e.Description = value
	case state.FieldMaterials:
		e.Materials = splitList(value)
	case state.FieldTechniques:
		e.Techniques = splitList(value)
	case state.FieldTags:
		e.Tags = splitList(value)
	default:
		return nil, fmt.Errorf("unknown narrative field %q", field)
	}

	merged := state.MergeNarrative(s, e)
	merged.Checkpoint = string(checkpoint.Advance(merged))
	if err := a.Store.SaveState(ctx, merged); err != nil {
		return nil, err
	}
	return map[string]any{"state": merged}, nil
}

func (a *App) opRequestClarify(ctx context.Context, input map[string]any) (map[string]any, error) {
	s, err := a.loadOrCreate(ctx, strArg(input, "project_id"))
	if err != nil {
		return nil, err
	}

	var questions []string
	if s.Narrative.ProjectType == "" {
		questions = append(questions, "What kind of project was this?")
	}
	if s.Narrative.Problem == "" {
		questions = append(questions, "What did the customer need fixed or built?")
	}
	if s.Narrative.Solution == "" {
		questions = append(questions, "How did you approach the work?")
	}
	if len(s.Narrative.Materials) == 0 {
		questions = append(questions, "What materials did you use?")
	}
	if s.Narrative.City == "" {
		questions = append(questions, "Where was the job?")
	}
	if s.Narrative.Duration == "" {
		questions = append(questions, "How long did it take?")
	}
	if s.Narrative.ProudOf == "" {
		questions = append(questions, "What part of the result are you proudest of?")
	}
	if len(questions) > orchestrator.MaxSuggestedActions {
		questions = questions[:orchestrator.MaxSuggestedActions]
	}
	return map[string]any{"questions": questions}, nil
}

func (a *App) opReorderImages(ctx context.Context, input map[string]any) (map[string]any, error) {
	s, err := a.loadOrCreate(ctx, strArg(input, "project_id"))
	if err != nil {
		return nil, err
	}

	if order := strSliceArg(input, "order"); len(order) > 0 {
		s = state.ReorderImages(s, order)
	}
	if id := strArg(input, "image_id"); id != "" {
		s = state.RelabelImage(s, id, state.ImageType(strArg(input, "image_type")), strArg(input, "alt"))
	}
	if err := a.Store.SaveState(ctx, s); err != nil {
		return nil, err
	}
	return map[string]any{"state": s}, nil
}

func (a *App) opSuggestActions(ctx context.Context, input map[string]any) (map[string]any, error) {
	s, err := a.loadOrCreate(ctx, strArg(input, "project_id"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"actions":    orchestrator.SuggestActions(s, orchestrator.MaxSuggestedActions),
		"checkpoint": s.Checkpoint,
	}, nil
}

func (a *App) opCheckReadiness(ctx context.Context, input map[string]any) (map[string]any, error) {
	s, err := a.loadOrCreate(ctx, strArg(input, "project_id"))
	if err != nil {
		return nil, err
	}
	intent := tools.Intent{Readiness: true}
	return a.dispatch(ctx, s, "Is this project ready to publish?",
		orchestrator.TurnContext{Profile: a.Profile}, &intent)
}

func (a *App) opGenerateContent(ctx context.Context, input map[string]any) (map[string]any, error) {
	s, err := a.loadOrCreate(ctx, strArg(input, "project_id"))
	if err != nil {
		return nil, err
	}
	intent := tools.Intent{Generate: true}
	tc := orchestrator.TurnContext{
		Profile:    a.Profile,
		FocusAreas: strSliceArg(input, "focus_areas"),
	}
	return a.dispatch(ctx, s, "Write the final title and description for this project.", tc, &intent)
}

func (a *App) opComposeLayout(ctx context.Context, input map[string]any) (map[string]any, error) {
	s, err := a.loadOrCreate(ctx, strArg(input, "project_id"))
	if err != nil {
		return nil, err
	}
	intent := tools.Intent{Layout: true}
	tc := orchestrator.TurnContext{
		Profile:          a.Profile,
		Feedback:         strArg(input, "feedback"),
		PreserveElements: strSliceArg(input, "preserve"),
	}
	message := tc.Feedback
	if message == "" {
		message = "Compose the page layout for this project."
	}
	return a.dispatch(ctx, s, message, tc, &intent)
}

func strArg(input map[string]any, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

func strSliceArg(input map[string]any, key string) []string {
	switch v := input[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return splitList(v)
	default:
		return nil
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
