// Package rpc implements a JSON-RPC 2.0 client over HTTP POST for talking to
// Model Context Protocol servers.
//
// # Wire format
//
// Each call sends one envelope and receives one response:
//
//	{"jsonrpc":"2.0","id":42,"method":"tools/call","params":{...}}
//	{"jsonrpc":"2.0","id":42,"result":{...}}
//	{"jsonrpc":"2.0","id":42,"error":{"code":-32601,"message":"method not found"}}
//
// Correlation ids come from a process-wide atomic counter and are never
// reused. A response whose id does not match the request is rejected as a
// ProtocolError rather than silently accepted.
//
// # Error classification
//
// Failures map onto three classes, which drive the ask service's retry
// policy:
//
//   - TransportError: the HTTP layer failed (refused, timed out, non-2xx
//     without a JSON-RPC body). Retryable once.
//   - ProtocolError: the peer violated JSON-RPC framing. Not retryable.
//   - ApplicationError: the peer returned a JSON-RPC error object. Not
//     retryable, since it is deterministic for the same arguments.
//
// # MCP methods
//
// On top of Call, the client exposes the MCP handshake and tool surface:
// Initialize, ListTools (with cursor pagination), and CallTool. Servers that
// do not implement initialize are tolerated so plain JSON-RPC tool servers
// keep working.
//
// The client performs no retries itself; retry policy lives in the ask
// service.
package rpc
