// ABOUTME: HTTP handler serving the GraphQL schema at POST /graphql.
// ABOUTME: Accepts the standard query/variables/operationName request body.

package graphql

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/graphql-go/graphql"
)

// graphqlRequest is the standard GraphQL-over-HTTP request body.
type graphqlRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// Handler serves GraphQL queries over HTTP POST.
type Handler struct {
	schema graphql.Schema
	logger *slog.Logger
}

// NewHandler builds the HTTP handler for an Asker.
func NewHandler(svc Asker, logger *slog.Logger) (*Handler, error) {
	schema, err := NewSchema(svc)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{schema: schema, logger: logger}, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []map[string]any{{"message": "malformed request body"}},
		})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []map[string]any{{"message": "query is required"}},
		})
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	if len(result.Errors) > 0 {
		h.logger.Debug("graphql query produced errors",
			"errors", len(result.Errors),
			"first", result.Errors[0].Message,
		)
	}

	// Execution errors still return 200 with an errors array, per the
	// GraphQL-over-HTTP convention.
	writeJSON(w, http.StatusOK, result)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
