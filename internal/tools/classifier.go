package tools

import (
	"strings"
)

// Intent is the classifier's verdict on a user message. When nothing
// matches, the turn takes the default narrative-extraction path.
type Intent struct {
	// Layout: the message asks for layout/structure work (design subagent).
	Layout bool

	// Readiness: the message asks whether the project is ready to publish
	// (quality subagent).
	Readiness bool

	// Generate: the message asks for drafted content (deep-context story
	// generation of title/description copy).
	Generate bool
}

// Default reports whether no explicit operation matched.
func (i Intent) Default() bool { return !i.Layout && !i.Readiness && !i.Generate }

var layoutWords = []string{
	"layout", "blocks", "structure", "arrange", "rearrange",
	"redesign", "design", "hero image", "template", "compose the page",
}

var readinessPhrases = []string{
	"ready to publish", "publish ready", "publish-ready", "readiness",
	"is this ready", "is it ready", "good to go", "good enough to publish",
	"can i publish", "should i publish",
}

var generateVerbs = []string{"generate", "draft", "write", "compose", "create"}
var generateTargets = []string{"content", "description", "title", "copy", "text", "story", "writeup", "write-up"}

// ClassifyIntent maps a free-text message to the explicit operations it
// requests. Plain keyword/phrase matching, deliberately cheap: it runs on
// every turn, before any provider call.
func ClassifyIntent(message string) Intent {
	lower := strings.ToLower(message)
	var intent Intent

	for _, w := range layoutWords {
		if strings.Contains(lower, w) {
			intent.Layout = true
			break
		}
	}

	for _, p := range readinessPhrases {
		if strings.Contains(lower, p) {
			intent.Readiness = true
			break
		}
	}

	// Generation needs a verb and a content-like target so "we used
	// composite decking" does not read as a drafting request.
	hasVerb := false
	for _, v := range generateVerbs {
		if strings.Contains(lower, v) {
			hasVerb = true
			break
		}
	}
	if hasVerb {
		for _, t := range generateTargets {
			if strings.Contains(lower, t) {
				intent.Generate = true
				break
			}
		}
	}

	// "compose" and "create" also appear in layout phrasing; a message
	// that matched layout keeps its layout reading rather than both.
	if intent.Layout && intent.Generate &&
		!strings.Contains(lower, "content") && !strings.Contains(lower, "description") {
		intent.Generate = false
	}

	return intent
}
