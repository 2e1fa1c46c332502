// Package ask orchestrates a single question end to end: route the prompt
// to a tool, call it over JSON-RPC, and format the outcome as text. The
// package's contract is that Ask always returns a string; failures become
// descriptive messages, never errors, because the GraphQL field above it is
// non-nullable.
package ask
