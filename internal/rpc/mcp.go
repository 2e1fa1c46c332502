// ABOUTME: MCP method wrappers over the JSON-RPC client: initialize, tools/list, tools/call.
// ABOUTME: Wire types follow the MCP 2025-06-18 protocol revision.

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// protocolVersion is the MCP protocol revision advertised during initialize.
const protocolVersion = "2025-06-18"

// clientName identifies this process in the MCP initialize handshake.
const clientName = "askbridge"

// ToolInfo is a tool definition as returned by tools/list.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// listToolsResult is the result payload of tools/list.
type listToolsResult struct {
	Tools      []ToolInfo `json:"tools"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// callToolParams are the params for tools/call.
type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Content is one content block in a tools/call result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolResult is the result payload of tools/call.
type CallToolResult struct {
	Content           []Content       `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	IsError           bool            `json:"isError,omitempty"`
}

// Initialize performs the MCP initialize handshake. The result is discarded;
// servers that do not implement initialize are tolerated so that plain
// JSON-RPC tool servers keep working.
func (c *Client) Initialize(ctx context.Context, version string) error {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    clientName,
			"version": version,
		},
	}

	_, err := c.Call(ctx, "initialize", params)
	if err != nil {
		var appErr *ApplicationError
		if errors.As(err, &appErr) {
			// Method-not-found from a bare tool server is fine.
			c.logger.Debug("initialize not supported",
				"server", c.server,
				"code", appErr.Code,
			)
			return nil
		}
		return err
	}
	return nil
}

// maxToolPages bounds tools/list pagination so a server that keeps handing
// out cursors cannot spin discovery forever.
const maxToolPages = 100

// ListTools fetches the server's tool catalog via tools/list, following
// pagination cursors until exhausted.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	var tools []ToolInfo
	cursor := ""

	for page := 0; ; page++ {
		if page >= maxToolPages {
			return nil, &ProtocolError{
				Server: c.server,
				Reason: fmt.Sprintf("tools/list exceeded %d pages", maxToolPages),
			}
		}
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		raw, err := c.Call(ctx, "tools/list", params)
		if err != nil {
			return nil, err
		}

		var result listToolsResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, &ProtocolError{
				Server: c.server,
				Reason: fmt.Sprintf("malformed tools/list result: %v", err),
			}
		}

		tools = append(tools, result.Tools...)
		if result.NextCursor == "" {
			return tools, nil
		}
		if result.NextCursor == cursor {
			return nil, &ProtocolError{
				Server: c.server,
				Reason: fmt.Sprintf("tools/list cursor %q did not advance", cursor),
			}
		}
		cursor = result.NextCursor
	}
}

// CallTool invokes a named tool via tools/call and returns the raw result.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (json.RawMessage, error) {
	return c.Call(ctx, "tools/call", callToolParams{
		Name:      name,
		Arguments: arguments,
	})
}
