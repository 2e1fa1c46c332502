// ABOUTME: Tests for result formatting: bare values, arrays, MCP blocks.
// ABOUTME: The contract is readable text out of any well-formed tool result.

package ask

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		toolErr bool
	}{
		{
			name: "array of strings joins with comma",
			raw:  `["alpha1","alpha2"]`,
			want: "alpha1, alpha2",
		},
		{
			name: "bare string",
			raw:  `"pong"`,
			want: "pong",
		},
		{
			name: "integer-valued number",
			raw:  `42`,
			want: "42",
		},
		{
			name: "fractional number",
			raw:  `0.5`,
			want: "0.5",
		},
		{
			name: "boolean",
			raw:  `true`,
			want: "true",
		},
		{
			name: "null",
			raw:  `null`,
			want: "",
		},
		{
			name: "object renders as compact JSON",
			raw:  `{"status":"ok","count":2}`,
			want: `{"count":2,"status":"ok"}`,
		},
		{
			name: "mixed array",
			raw:  `["alpha1",2,true]`,
			want: "alpha1, 2, true",
		},
		{
			name: "mcp text blocks join with newline",
			raw:  `{"content":[{"type":"text","text":"line one"},{"type":"text","text":"line two"}]}`,
			want: "line one\nline two",
		},
		{
			name: "mcp structured content wins over text",
			raw:  `{"content":[{"type":"text","text":"ignored"}],"structuredContent":["alpha1","alpha2"]}`,
			want: "alpha1, alpha2",
		},
		{
			name: "non-text blocks are skipped",
			raw:  `{"content":[{"type":"image"},{"type":"text","text":"caption"}]}`,
			want: "caption",
		},
		{
			name:    "tool-flagged error",
			raw:     `{"content":[{"type":"text","text":"bad input"}],"isError":true}`,
			want:    "bad input",
			toolErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, toolErr := formatResult(json.RawMessage(tt.raw))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.toolErr, toolErr)
		})
	}
}
