package orchestrator

import (
	"craftfolio/internal/checkpoint"
	"craftfolio/internal/state"
	"craftfolio/internal/tools"
)

// Action is one suggested next step the front-end can surface as a button
// or chip. Operation names line up with the tool registry so a tap can be
// dispatched directly.
type Action struct {
	Operation string `json:"operation"`
	Label     string `json:"label"`
	Field     string `json:"field,omitempty"`
}

// SuggestActions derives up to max next-step suggestions from what the
// record is still missing, ordered by how much each unblocks. A finished
// record gets a single publish nudge.
func SuggestActions(s *state.ProjectState, max int) []Action {
	var actions []Action

	if s.Narrative.ProjectType == "" {
		actions = append(actions, Action{
			Operation: tools.OpUpdateField,
			Label:     "Tell me what kind of project this was",
			Field:     state.FieldProjectType,
		})
	}
	if len(s.Media.Images) == 0 {
		actions = append(actions, Action{
			Operation: tools.OpReorderImages,
			Label:     "Upload some photos of the work",
		})
	}
	if s.Narrative.Problem == "" {
		actions = append(actions, Action{
			Operation: tools.OpUpdateField,
			Label:     "Describe what the customer needed",
			Field:     state.FieldProblem,
		})
	}
	if s.Narrative.Solution == "" {
		actions = append(actions, Action{
			Operation: tools.OpUpdateField,
			Label:     "Explain how you solved it",
			Field:     state.FieldSolution,
		})
	}
	if s.Narrative.Title == "" || s.Narrative.Description == "" {
		actions = append(actions, Action{
			Operation: tools.OpGenerateContent,
			Label:     "Generate a title and description",
			Field:     state.FieldTitle,
		})
	}
	if len(s.Design.Blocks) == 0 {
		actions = append(actions, Action{
			Operation: tools.OpComposeLayout,
			Label:     "Compose a page layout",
		})
	}
	if s.Narrative.City == "" {
		actions = append(actions, Action{
			Operation: tools.OpUpdateField,
			Label:     "Mention where the job was",
			Field:     state.FieldCity,
		})
	}
	if len(s.Narrative.Materials) == 0 {
		actions = append(actions, Action{
			Operation: tools.OpUpdateField,
			Label:     "List the materials you used",
			Field:     state.FieldMaterials,
		})
	}
	if checkpoint.Phase(s.Checkpoint) == checkpoint.PhaseDesignComplete {
		actions = append(actions, Action{
			Operation: tools.OpCheckReadiness,
			Label:     "Check if this is ready to publish",
		})
	}

	if len(actions) == 0 {
		actions = append(actions, Action{
			Operation: tools.OpCheckReadiness,
			Label:     "Looks complete. Run a final readiness check",
		})
	}
	if max > 0 && len(actions) > max {
		actions = actions[:max]
	}
	return actions
}
