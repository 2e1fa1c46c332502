// ABOUTME: Pluggable prompt-to-tool scoring with a keyword-overlap default.
// ABOUTME: Scores are deterministic so routing stays reproducible.

package router

import (
	"regexp"
	"strings"

	"github.com/askbridge/askbridge/internal/registry"
)

// Scorer rates how well a tool matches a free-text prompt. Implementations
// must be deterministic and return values in [0,1]; the router composes a
// scorer with its selection policy, so strategies (keyword overlap, embedding
// similarity, delegated classification) can be swapped independently.
type Scorer interface {
	Score(prompt string, tool registry.ToolDescriptor) float64
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(prompt string, tool registry.ToolDescriptor) float64

// Score implements Scorer.
func (f ScorerFunc) Score(prompt string, tool registry.ToolDescriptor) float64 {
	return f(prompt, tool)
}

// tokenRe extracts alphanumeric runs, lowercased, from prompts and
// descriptions alike.
var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// stopwords are ignored when weighing description text.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "by": true,
	"for": true, "from": true, "in": true, "is": true, "it": true, "of": true,
	"on": true, "or": true, "that": true, "the": true, "this": true,
	"to": true, "with": true,
}

// tokenize lowercases text and splits it into alphanumeric tokens.
func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// stem strips a handful of common English suffixes so that "alphas" matches
// "alpha" and "owned" matches "owner". Deliberately crude: it only needs to
// be deterministic and symmetric, not linguistically correct.
func stem(token string) string {
	for _, suffix := range []string{"ing", "ers", "ies", "ed", "er", "es", "s"} {
		if trimmed := strings.TrimSuffix(token, suffix); trimmed != token && len(trimmed) >= 3 {
			return trimmed
		}
	}
	return token
}

// Keyword weights: a hit on the tool's name is worth more than one on a
// parameter name, which is worth more than one in the description.
const (
	nameWeight  = 3.0
	paramWeight = 2.0
	descWeight  = 1.0
)

// KeywordScorer scores tools by weighted token overlap between the prompt
// and the tool's name, parameter names, and description. The score is the
// matched weight divided by the tool's total weight, so it lands in [0,1].
type KeywordScorer struct{}

// NewKeywordScorer returns the default scorer.
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{}
}

// Score implements Scorer.
func (s *KeywordScorer) Score(prompt string, tool registry.ToolDescriptor) float64 {
	promptStems := make(map[string]bool)
	for _, tok := range tokenize(prompt) {
		promptStems[stem(tok)] = true
	}
	if len(promptStems) == 0 {
		return 0
	}

	// Collect stem -> weight for the tool, keeping the highest weight when a
	// stem appears in several places.
	weights := make(map[string]float64)
	record := func(token string, weight float64) {
		st := stem(token)
		if weights[st] < weight {
			weights[st] = weight
		}
	}

	for _, tok := range tokenize(tool.Name) {
		record(tok, nameWeight)
	}
	for _, p := range tool.Params {
		for _, tok := range tokenize(p.Name) {
			record(tok, paramWeight)
		}
	}
	for _, tok := range tokenize(tool.Description) {
		if stopwords[tok] {
			continue
		}
		record(tok, descWeight)
	}

	var total, matched float64
	for st, weight := range weights {
		total += weight
		if promptStems[st] {
			matched += weight
		}
	}
	if total == 0 {
		return 0
	}

	return matched / total
}
