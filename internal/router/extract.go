// ABOUTME: Slot extraction: pulls concrete argument values out of a prompt.
// ABOUTME: Missing required parameters fail loudly, never a silent partial call.

package router

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/askbridge/askbridge/internal/registry"
)

// pairRe matches explicit key:value and key=value slots, with optional
// double quotes around the value.
var pairRe = regexp.MustCompile(`(?i)\b([a-z][a-z0-9_]*)\s*[:=]\s*("([^"]*)"|\S+)`)

// prepositions skipped when reading a value that follows a parameter
// mention, as in "owned by me" or "assigned to alice".
var prepositions = map[string]bool{
	"by": true, "to": true, "of": true, "for": true, "with": true,
	"from": true, "as": true, "in": true, "on": true, "at": true,
	"is": true, "are": true, "was": true, "be": true,
}

// possessives mark a first-person prompt, used as a last resort to resolve
// an owner-like required parameter to the caller placeholder.
var possessives = map[string]bool{
	"my": true, "me": true, "mine": true, "our": true, "i": true,
}

// callerPlaceholder stands in for the caller's identity when a prompt says
// "my"/"me" without naming anyone. The downstream server resolves it.
const callerPlaceholder = "me"

// extractArguments builds the argument map for a chosen tool from the
// prompt. Resolution order per parameter: explicit key:value pair, value
// following a mention of the parameter name, then the caller placeholder for
// first-person prompts. Remaining missing required parameters yield
// ErrIncompleteArguments.
func extractArguments(prompt string, tool registry.ToolDescriptor) (map[string]any, error) {
	args := make(map[string]any)

	pairs := explicitPairs(prompt)
	tokens := tokenize(prompt)

	for _, param := range tool.Params {
		raw, found := pairs[strings.ToLower(param.Name)]
		if !found {
			raw, found = valueAfterMention(tokens, param.Name)
		}
		if !found && param.Required && param.Type != "integer" && param.Type != "number" && firstPerson(tokens) {
			raw, found = callerPlaceholder, true
		}
		if !found {
			continue
		}

		value, err := convertValue(raw, param.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %q: %v", ErrIncompleteArguments, param.Name, err)
		}
		args[param.Name] = value
	}

	var missing []string
	for _, name := range tool.RequiredParams() {
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required parameters: %s",
			ErrIncompleteArguments, strings.Join(missing, ", "))
	}

	return args, nil
}

// explicitPairs collects key:value and key=value slots from the prompt,
// keyed by lowercased key. Later pairs win over earlier ones.
func explicitPairs(prompt string) map[string]string {
	pairs := make(map[string]string)
	for _, m := range pairRe.FindAllStringSubmatch(prompt, -1) {
		key := strings.ToLower(m[1])
		value := m[2]
		if m[3] != "" || strings.HasPrefix(m[2], `"`) {
			value = m[3]
		}
		pairs[key] = strings.TrimRight(value, ".,;:!?")
	}
	return pairs
}

// valueAfterMention finds the token following a mention of the parameter
// name (stem-matched), skipping prepositions: "owned by me" resolves
// parameter "owner" to "me".
func valueAfterMention(tokens []string, paramName string) (string, bool) {
	paramStem := stem(strings.ToLower(paramName))

	for i, tok := range tokens {
		if stem(tok) != paramStem {
			continue
		}
		for j := i + 1; j < len(tokens); j++ {
			if prepositions[tokens[j]] {
				continue
			}
			return tokens[j], true
		}
	}
	return "", false
}

// firstPerson reports whether the prompt speaks in the first person.
func firstPerson(tokens []string) bool {
	for _, tok := range tokens {
		if possessives[tok] {
			return true
		}
	}
	return false
}

// convertValue coerces a raw string slot into the parameter's declared type.
func convertValue(raw, paramType string) (any, error) {
	switch paramType {
	case "integer":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %q", raw)
		}
		return n, nil
	case "number":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %q", raw)
		}
		return f, nil
	case "boolean":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %q", raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}
