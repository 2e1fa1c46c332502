// ABOUTME: Formats raw tool results into the human-readable answer string.
// ABOUTME: Handles MCP content blocks as well as bare JSON-RPC result values.

package ask

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/askbridge/askbridge/internal/rpc"
)

// formatResult renders a tools/call result as answer text. The second return
// reports whether the tool itself flagged the result as an error. Servers
// that speak full MCP return content blocks; bare JSON-RPC tool servers
// return plain values, which are formatted directly.
func formatResult(raw json.RawMessage) (string, bool) {
	var mcp rpc.CallToolResult
	if err := json.Unmarshal(raw, &mcp); err == nil {
		if len(mcp.Content) > 0 || mcp.StructuredContent != nil || mcp.IsError {
			return formatCallToolResult(mcp), mcp.IsError
		}
	}
	return formatValue(raw), false
}

// formatCallToolResult flattens an MCP result: structured content wins when
// present, otherwise text blocks join with newlines.
func formatCallToolResult(result rpc.CallToolResult) string {
	if result.StructuredContent != nil {
		return formatValue(result.StructuredContent)
	}

	var parts []string
	for _, block := range result.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// formatValue renders an arbitrary JSON value as readable text: strings
// verbatim, arrays joined with ", ", scalars printed plainly, and objects
// as compact JSON.
func formatValue(raw json.RawMessage) string {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw)
	}
	return formatAny(value)
}

func formatAny(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, formatAny(item))
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
