// Package config loads and validates askbridge configuration from YAML files.
//
// Configuration supports environment variable expansion using ${VAR_NAME}
// syntax and human-readable duration strings ("10s", "2m") for timing fields.
//
// A minimal configuration declares one downstream MCP server:
//
//	server:
//	  http_addr: "127.0.0.1:8080"
//
//	mcp_servers:
//	  - name: alphas
//	    base_url: "http://localhost:9090"
//	    description: "Alpha portfolio tools"
//	    auth_token: "${MCP_API_TOKEN}"
//
//	ask:
//	  timeout: "15s"
//	  retries: 1
//
// Tools are discovered at startup via the MCP tools/list handshake unless a
// server declares a static catalog under tools:, in which case introspection
// is skipped (set introspect: true to merge both).
package config
