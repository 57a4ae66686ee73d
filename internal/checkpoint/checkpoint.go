// Package checkpoint tracks which phase of the authoring workflow a project
// is in. Phases form a straight line and only ever advance; a failed
// extraction or a critical quality assessment never demotes a project.
package checkpoint

import (
	"craftfolio/internal/logging"
	"craftfolio/internal/state"
)

// Phase is one workflow phase.
type Phase string

const (
	PhaseImagesUploaded Phase = "images-uploaded"
	PhaseBasicInfo      Phase = "basic-info"
	PhaseStoryComplete  Phase = "story-complete"
	PhaseDesignComplete Phase = "design-complete"
	PhaseReadyToPublish Phase = "ready-to-publish"
)

// order lists the phases in workflow order.
var order = []Phase{
	PhaseImagesUploaded,
	PhaseBasicInfo,
	PhaseStoryComplete,
	PhaseDesignComplete,
	PhaseReadyToPublish,
}

// Index returns a phase's position in the workflow, or -1 for unknown
// phases (treated as the initial phase by Advance).
func Index(p Phase) int {
	for i, candidate := range order {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Terminal reports whether the phase is the end of the normal flow. The
// record stays mutable afterward; edits just no longer move the phase.
func Terminal(p Phase) bool {
	return p == PhaseReadyToPublish
}

// satisfied reports whether a project meets the completion predicate for
// entering the given phase.
func satisfied(p Phase, s *state.ProjectState) bool {
	switch p {
	case PhaseImagesUploaded:
		return true // entered the moment the record is created
	case PhaseBasicInfo:
		return s.Narrative.ProjectType != ""
	case PhaseStoryComplete:
		return s.Narrative.ProjectType != "" &&
			(s.Narrative.Problem != "" || s.Narrative.Solution != "") &&
			len(s.Media.Images) > 0
	case PhaseDesignComplete:
		return len(s.Design.Blocks) > 0
	case PhaseReadyToPublish:
		return len(s.Design.Blocks) > 0 &&
			s.Narrative.Title != "" &&
			s.Narrative.Description != ""
	default:
		return false
	}
}

// Advance re-evaluates the project's phase after a merge and returns the
// (possibly) advanced phase. It walks forward through consecutive phases
// whose predicates are satisfied and never moves backward: a state whose
// sections no longer satisfy an earlier predicate keeps its current phase.
func Advance(s *state.ProjectState) Phase {
	current := Phase(s.Checkpoint)
	idx := Index(current)
	if idx < 0 {
		idx = 0
		current = order[0]
	}

	for idx+1 < len(order) && satisfied(order[idx+1], s) {
		idx++
	}

	next := order[idx]
	if next != current {
		logging.Checkpoint("project %s advanced %s -> %s", s.ProjectID, current, next)
	}
	return next
}
