// Package fallback implements the deterministic, non-AI extraction path.
// It is pure pattern matching over the trade vocabulary: same message and
// vocabulary in, same fields and confidences out. It never blocks and never
// calls the network, so a total provider outage still yields a usable turn.
package fallback

import (
	"regexp"
	"strings"

	"craftfolio/internal/logging"
	"craftfolio/internal/state"
	"craftfolio/internal/vocab"
)

// Confidence levels assigned by the rule-based extractor. These are fixed
// by the matching rule, not estimated.
const (
	ConfExactType   = 0.7
	ConfPartialType = 0.5
	ConfKeyword     = 0.6
	ConfLocation    = 0.5
	ConfDuration    = 0.7
)

var (
	// "in Denver", "at Fort Collins, CO", "near St. Paul"
	locationRe = regexp.MustCompile(`\b(?:in|at|near)\s+([A-Z][A-Za-z.'-]*(?:\s+[A-Z][A-Za-z.'-]*)*)(?:,\s*([A-Z]{2})\b)?`)
	// "3 days", "2 week", "1 month", "6 hours"
	durationRe = regexp.MustCompile(`(?i)\b(\d+)\s*(day|week|month|hour)s?\b`)
)

// Extractor performs rule-based narrative extraction.
type Extractor struct {
	vocab *vocab.Provider
}

// New creates an extractor over the given vocabulary provider.
func New(v *vocab.Provider) *Extractor {
	return &Extractor{vocab: v}
}

// Extract runs every rule against the message and returns the combined
// extraction. Rules only look at the message; deciding what survives
// against prior state is the merge layer's job.
func (e *Extractor) Extract(message string) state.NarrativeExtraction {
	v := e.vocab.Current()
	ext := state.NarrativeExtraction{
		Confidence:      ConfPartialType,
		FieldConfidence: make(map[string]float64),
	}

	if slug, conf := matchProjectType(message, v); slug != "" {
		ext.ProjectType = slug
		ext.FieldConfidence[state.FieldProjectType] = conf
	}

	materials := matchKeywords(message, v.Materials)
	techniques := matchKeywords(message, v.Techniques)
	// Keep the two lists mutually exclusive: a term that also appears in
	// the other vocabulary list belongs to that list, not this one.
	materials = excludeTerms(materials, v.Techniques)
	techniques = excludeTerms(techniques, v.Materials)
	if len(materials) > 0 {
		ext.Materials = materials
		ext.FieldConfidence[state.FieldMaterials] = ConfKeyword
	}
	if len(techniques) > 0 {
		ext.Techniques = techniques
		ext.FieldConfidence[state.FieldTechniques] = ConfKeyword
	}

	if m := locationRe.FindStringSubmatch(message); m != nil {
		ext.City = strings.TrimSpace(m[1])
		ext.FieldConfidence[state.FieldCity] = ConfLocation
		if m[2] != "" {
			ext.State = m[2]
			ext.FieldConfidence[state.FieldState] = ConfLocation
		}
	}

	if m := durationRe.FindStringSubmatch(message); m != nil {
		unit := strings.ToLower(m[2])
		ext.Duration = m[1] + " " + unit
		if m[1] != "1" {
			ext.Duration += "s"
		}
		ext.FieldConfidence[state.FieldDuration] = ConfDuration
	}

	logging.FallbackDebug("rule extraction: type=%q materials=%d techniques=%d city=%q duration=%q",
		ext.ProjectType, len(ext.Materials), len(ext.Techniques), ext.City, ext.Duration)
	return ext
}

// ReadyForImages reports whether the project can accept image uploads.
// Always true: gating upload behind field completeness was removed as a
// product decision, and reintroducing it here would bring the friction back.
func (e *Extractor) ReadyForImages(*state.ProjectState) bool { return true }

// matchProjectType matches the message against known project types.
// An exact match (every slug token found in the message) scores 0.7; a
// partial match (any display-name word longer than 4 characters found)
// scores 0.5. Among exact matches the one covering the most tokens wins,
// ties going to vocabulary order.
func matchProjectType(message string, v *vocab.Vocabulary) (string, float64) {
	words := tokenize(message)

	bestSlug, bestTokens := "", 0
	for _, pt := range v.ProjectTypes {
		tokens := strings.Split(pt.Slug, "-")
		matched := 0
		for _, tok := range tokens {
			if containsToken(words, tok) {
				matched++
			}
		}
		if matched == len(tokens) && matched > bestTokens {
			bestSlug, bestTokens = pt.Slug, matched
		}
	}
	if bestSlug != "" {
		return bestSlug, ConfExactType
	}

	for _, pt := range v.ProjectTypes {
		for _, w := range strings.Fields(strings.ToLower(pt.Display)) {
			if len(w) > 4 && containsToken(words, w) {
				return pt.Slug, ConfPartialType
			}
		}
	}
	return "", 0
}

// containsToken reports whether any message word matches the token, either
// exactly or by sharing a prefix of at least five characters. The prefix
// rule absorbs inflection ("rebuilt" matches "rebuild") without a stemmer.
func containsToken(words []string, token string) bool {
	token = strings.ToLower(token)
	for _, w := range words {
		if w == token {
			return true
		}
		if n := commonPrefixLen(w, token); n >= 5 && len(w)-n <= 2 && len(token)-n <= 2 {
			return true
		}
	}
	return false
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// matchKeywords finds vocabulary keywords present in the message. When two
// matches overlap ("brick" inside "red brick"), only the longest survives.
func matchKeywords(message string, keywords []string) []string {
	lower := strings.ToLower(message)
	var matched []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}

	var out []string
	for i, kw := range matched {
		contained := false
		for j, other := range matched {
			if i != j && len(other) > len(kw) &&
				strings.Contains(strings.ToLower(other), strings.ToLower(kw)) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, kw)
		}
	}
	return out
}

// excludeTerms drops entries that appear verbatim in the other vocabulary
// list.
func excludeTerms(terms, other []string) []string {
	if len(terms) == 0 {
		return terms
	}
	otherSet := make(map[string]bool, len(other))
	for _, t := range other {
		otherSet[strings.ToLower(t)] = true
	}
	out := terms[:0]
	for _, t := range terms {
		if !otherSet[strings.ToLower(t)] {
			out = append(out, t)
		}
	}
	return out
}

func tokenize(message string) []string {
	fields := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	return fields
}
