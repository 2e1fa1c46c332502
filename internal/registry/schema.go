// ABOUTME: Parses MCP tool inputSchema (JSON Schema objects) into ordered Params.
// ABOUTME: Walks decoder tokens so property declaration order survives parsing.

package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// paramsFromSchema converts a JSON Schema object into an ordered Param list.
// Go's map unmarshaling loses object key order, so properties are walked with
// a token decoder instead.
func paramsFromSchema(schema json.RawMessage) ([]Param, error) {
	if len(schema) == 0 {
		return nil, nil
	}

	var envelope struct {
		Properties json.RawMessage `json:"properties"`
		Required   []string        `json:"required"`
	}
	if err := json.Unmarshal(schema, &envelope); err != nil {
		return nil, fmt.Errorf("parsing input schema: %w", err)
	}
	if len(envelope.Properties) == 0 {
		return nil, nil
	}

	required := make(map[string]bool, len(envelope.Required))
	for _, name := range envelope.Required {
		required[name] = true
	}

	dec := json.NewDecoder(bytes.NewReader(envelope.Properties))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing schema properties: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("schema properties must be an object, got %v", tok)
	}

	var params []Param
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing schema property name: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected schema token %v", keyTok)
		}

		var prop struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		}
		if err := dec.Decode(&prop); err != nil {
			return nil, fmt.Errorf("parsing schema property %q: %w", name, err)
		}

		params = append(params, Param{
			Name:        name,
			Type:        prop.Type,
			Description: prop.Description,
			Required:    required[name],
		})
	}

	return params, nil
}
