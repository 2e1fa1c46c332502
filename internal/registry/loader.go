// ABOUTME: One-time registry population from static config and MCP introspection.
// ABOUTME: Runs at startup only; the resulting snapshot is immutable.

package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/askbridge/askbridge/internal/config"
	"github.com/askbridge/askbridge/internal/rpc"
)

// ErrNoTools indicates loading finished with an empty catalog.
var ErrNoTools = errors.New("no tools registered from any mcp server")

// ToolLister is the introspection surface the loader needs from an RPC
// client. Satisfied by *rpc.Client.
type ToolLister interface {
	Name() string
	Initialize(ctx context.Context, version string) error
	ListTools(ctx context.Context) ([]rpc.ToolInfo, error)
}

// ServerSource pairs one configured MCP server with its introspection client.
// Lister is nil when the server declares a static catalog only.
type ServerSource struct {
	Config config.MCPServerConfig
	Lister ToolLister
}

// Load builds the tool snapshot from all configured servers. Static tool
// declarations come first, then discovered tools, preserving config and
// wire order so routing tie-breaks stay reproducible. A server whose
// introspection fails contributes its static tools only; the load fails
// outright only when the final catalog is empty.
func Load(ctx context.Context, sources []ServerSource, version string, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var tools []ToolDescriptor

	for _, src := range sources {
		srvName := src.Config.Name
		declared := make(map[string]bool, len(src.Config.Tools))

		for _, tc := range src.Config.Tools {
			declared[tc.Name] = true
			tools = append(tools, descriptorFromConfig(srvName, tc))
		}

		if src.Lister == nil {
			logger.Info("registered static tools",
				"server", srvName,
				"tool_count", len(src.Config.Tools),
			)
			continue
		}

		discovered, err := introspect(ctx, src.Lister, version)
		if err != nil {
			logger.Warn("tool discovery failed, continuing with static tools",
				"server", srvName,
				"static_count", len(src.Config.Tools),
				"error", err,
			)
			continue
		}

		added := 0
		for _, info := range discovered {
			if declared[info.Name] {
				// Static declaration wins over the discovered copy.
				continue
			}
			desc, err := descriptorFromInfo(srvName, info)
			if err != nil {
				logger.Warn("skipping tool with malformed schema",
					"server", srvName,
					"tool", info.Name,
					"error", err,
				)
				continue
			}
			tools = append(tools, desc)
			added++
		}

		logger.Info("registered tools",
			"server", srvName,
			"static_count", len(src.Config.Tools),
			"discovered_count", added,
		)
	}

	if len(tools) == 0 {
		return nil, ErrNoTools
	}

	return NewSnapshot(tools)
}

// introspect performs the MCP handshake then fetches the tool catalog.
func introspect(ctx context.Context, lister ToolLister, version string) ([]rpc.ToolInfo, error) {
	if err := lister.Initialize(ctx, version); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	infos, err := lister.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("tools/list: %w", err)
	}
	return infos, nil
}

// descriptorFromConfig converts a static tool declaration.
func descriptorFromConfig(server string, tc config.ToolConfig) ToolDescriptor {
	params := make([]Param, len(tc.Params))
	for i, pc := range tc.Params {
		params[i] = Param{
			Name:        pc.Name,
			Type:        pc.Type,
			Description: pc.Description,
			Required:    pc.Required,
		}
	}
	return ToolDescriptor{
		Name:        tc.Name,
		Server:      server,
		Description: tc.Description,
		Params:      params,
	}
}

// descriptorFromInfo converts a discovered tools/list entry.
func descriptorFromInfo(server string, info rpc.ToolInfo) (ToolDescriptor, error) {
	params, err := paramsFromSchema(info.InputSchema)
	if err != nil {
		return ToolDescriptor{}, err
	}
	return ToolDescriptor{
		Name:        info.Name,
		Server:      server,
		Description: info.Description,
		Params:      params,
	}, nil
}
