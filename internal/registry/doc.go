// Package registry holds the catalog of tools exposed by configured MCP
// servers.
//
// The catalog is built exactly once at startup, from static declarations in
// the config file and a one-time tools/list introspection call per server,
// and is immutable afterwards. Concurrent ask requests share the snapshot by
// reference and read it without locks.
//
// Declaration order is significant: the prompt router breaks scoring ties by
// first-declared-wins, so List always returns tools in the order they were
// registered (config order, then wire order within a server).
package registry
