// ABOUTME: Immutable tool registry built once at startup and shared read-only.
// ABOUTME: Preserves declaration order, which the router's tie-break depends on.

package registry

import (
	"errors"
	"fmt"
)

// ErrToolNotFound indicates the named tool is not in the snapshot.
var ErrToolNotFound = errors.New("tool not found")

// ErrDuplicateTool indicates two tools share a name within one server.
var ErrDuplicateTool = errors.New("duplicate tool name")

// Param describes one tool parameter.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// ToolDescriptor describes one remote tool: its name, the server that owns
// it, a human-readable description, and its parameters in declaration order.
type ToolDescriptor struct {
	Name        string
	Server      string
	Description string
	Params      []Param
}

// RequiredParams returns the names of required parameters in order.
func (t ToolDescriptor) RequiredParams() []string {
	var required []string
	for _, p := range t.Params {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return required
}

// Param looks up a parameter by name.
func (t ToolDescriptor) Param(name string) (Param, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Snapshot is the read-only tool catalog. Constructed once at startup and
// shared by reference across concurrent request handlers; it is never
// mutated, so reads need no locking.
type Snapshot struct {
	tools  []ToolDescriptor
	byName map[string]int
}

// NewSnapshot builds a snapshot from descriptors in declaration order.
// Tool names must be unique per server; when two servers expose the same
// name the first declared wins and the later one is skipped.
func NewSnapshot(tools []ToolDescriptor) (*Snapshot, error) {
	s := &Snapshot{
		tools:  make([]ToolDescriptor, 0, len(tools)),
		byName: make(map[string]int, len(tools)),
	}

	for _, tool := range tools {
		if tool.Name == "" {
			return nil, fmt.Errorf("tool with empty name on server %q", tool.Server)
		}
		if prev, exists := s.byName[tool.Name]; exists {
			if s.tools[prev].Server == tool.Server {
				return nil, fmt.Errorf("%w: %q on server %q", ErrDuplicateTool, tool.Name, tool.Server)
			}
			// Cross-server shadowing: first declared wins.
			continue
		}
		s.byName[tool.Name] = len(s.tools)
		s.tools = append(s.tools, tool)
	}

	return s, nil
}

// List returns all tools in declaration order. The returned slice is a copy;
// mutating it does not affect the snapshot.
func (s *Snapshot) List() []ToolDescriptor {
	out := make([]ToolDescriptor, len(s.tools))
	copy(out, s.tools)
	return out
}

// Get retrieves a tool by name, or ErrToolNotFound.
func (s *Snapshot) Get(name string) (ToolDescriptor, error) {
	idx, ok := s.byName[name]
	if !ok {
		return ToolDescriptor{}, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return s.tools[idx], nil
}

// Has reports whether a tool with the given name exists.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Len returns the number of tools in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.tools)
}
