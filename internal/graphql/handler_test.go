// ABOUTME: Tests for the GraphQL HTTP handler and schema wiring.
// ABOUTME: Uses a stub Asker so only the query surface is under test.

package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askbridge/askbridge/internal/ask"
)

// stubAsker echoes a canned answer and records the last prompt.
type stubAsker struct {
	answer     string
	lastPrompt string
}

func (s *stubAsker) Ask(_ context.Context, prompt string) string {
	s.lastPrompt = prompt
	return s.answer
}

func (s *stubAsker) AskDetailed(_ context.Context, prompt string) ask.Result {
	s.lastPrompt = prompt
	return ask.Result{
		Content:  s.answer,
		Metadata: ask.Metadata{RequestID: "req-1", Intent: ask.IntentResolved, Tool: "list_alphas"},
	}
}

// post sends a GraphQL request body to the handler and decodes the response.
func post(t *testing.T, h http.Handler, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec.Code, decoded
}

func TestHandler(t *testing.T) {
	asker := &stubAsker{answer: "alpha1, alpha2"}
	h, err := NewHandler(asker, nil)
	require.NoError(t, err)

	t.Run("ask query", func(t *testing.T) {
		code, resp := post(t, h, `{"query":"{ ask(prompt: \"list my alphas\") }"}`)
		require.Equal(t, http.StatusOK, code)

		data := resp["data"].(map[string]any)
		assert.Equal(t, "alpha1, alpha2", data["ask"])
		assert.Equal(t, "list my alphas", asker.lastPrompt)
		assert.Nil(t, resp["errors"])
	})

	t.Run("ask with variables", func(t *testing.T) {
		code, resp := post(t, h,
			`{"query":"query Ask($p: String!) { ask(prompt: $p) }","variables":{"p":"ping please"}}`)
		require.Equal(t, http.StatusOK, code)

		data := resp["data"].(map[string]any)
		assert.Equal(t, "alpha1, alpha2", data["ask"])
		assert.Equal(t, "ping please", asker.lastPrompt)
	})

	t.Run("askDetailed query", func(t *testing.T) {
		code, resp := post(t, h,
			`{"query":"{ askDetailed(prompt: \"list my alphas\") { content metadata } }"}`)
		require.Equal(t, http.StatusOK, code)

		payload := resp["data"].(map[string]any)["askDetailed"].(map[string]any)
		assert.Equal(t, "alpha1, alpha2", payload["content"])

		var meta map[string]any
		require.NoError(t, json.Unmarshal([]byte(payload["metadata"].(string)), &meta))
		assert.Equal(t, "resolved", meta["intent"])
		assert.Equal(t, "list_alphas", meta["tool"])
	})

	t.Run("missing prompt argument is a query error", func(t *testing.T) {
		code, resp := post(t, h, `{"query":"{ ask }"}`)
		require.Equal(t, http.StatusOK, code)
		assert.NotEmpty(t, resp["errors"])
	})

	t.Run("unknown field is a query error", func(t *testing.T) {
		code, resp := post(t, h, `{"query":"{ nope }"}`)
		require.Equal(t, http.StatusOK, code)
		assert.NotEmpty(t, resp["errors"])
	})

	t.Run("empty query is rejected", func(t *testing.T) {
		code, resp := post(t, h, `{}`)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.NotEmpty(t, resp["errors"])
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		code, resp := post(t, h, `not json`)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.NotEmpty(t, resp["errors"])
	})

	t.Run("GET is not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	})
}
