// Package gateway assembles and runs the askbridge server: it connects to
// the configured MCP servers, discovers their tools, and serves the GraphQL
// ask endpoint until shut down.
package gateway
