// Package graphql exposes the ask service over a minimal GraphQL surface:
// one schema with the ask and askDetailed queries, served at POST /graphql.
package graphql
