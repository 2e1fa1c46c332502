// ABOUTME: End-to-end tests for the ask service against mock MCP servers.
// ABOUTME: Covers routing failures, retry policy, timeouts, and caching.

package ask

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askbridge/askbridge/internal/cache"
	"github.com/askbridge/askbridge/internal/registry"
	"github.com/askbridge/askbridge/internal/router"
	"github.com/askbridge/askbridge/internal/rpc"
)

// rpcRequest mirrors the JSON-RPC request envelope for mock servers.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// newToolServer starts a mock MCP server whose tools/call responses come
// from respond. respond receives the tools/call params and returns the raw
// JSON for the result field.
func newToolServer(t *testing.T, respond func(params json.RawMessage) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "tools/call", req.Method)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, respond(req.Params))
	}))
}

// newCaller builds an rpc client against a mock server under the name "alphas".
func newCaller(t *testing.T, baseURL string) Caller {
	t.Helper()
	client, err := rpc.NewClient(rpc.ClientConfig{Name: "alphas", BaseURL: baseURL})
	require.NoError(t, err)
	return client
}

// newAlphaService wires a service with the single tool list_alphas(owner).
func newAlphaService(t *testing.T, caller Caller, cfg Config, answers *cache.Cache) *Service {
	t.Helper()
	snap, err := registry.NewSnapshot([]registry.ToolDescriptor{
		{
			Name:        "list_alphas",
			Server:      "alphas",
			Description: "List alphas in the portfolio",
			Params: []registry.Param{
				{Name: "owner", Type: "string", Required: true},
			},
		},
	})
	require.NoError(t, err)

	r := router.New(snap, nil, router.Config{MinConfidence: 0.25}, nil)
	return New(r, map[string]Caller{"alphas": caller}, cfg, answers, nil)
}

func TestAsk_ListAlphas(t *testing.T) {
	var gotParams json.RawMessage
	srv := newToolServer(t, func(params json.RawMessage) string {
		gotParams = params
		return `["alpha1","alpha2"]`
	})
	defer srv.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 2 * time.Second, Retries: 1}, nil)

	answer := svc.Ask(context.Background(), "Give me all my alphas owned by me")
	assert.Equal(t, "alpha1, alpha2", answer)

	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	require.NoError(t, json.Unmarshal(gotParams, &params))
	assert.Equal(t, "list_alphas", params.Name)
	assert.Equal(t, "me", params.Arguments["owner"])
}

func TestAsk_Idempotent(t *testing.T) {
	srv := newToolServer(t, func(json.RawMessage) string {
		return `["alpha1","alpha2"]`
	})
	defer srv.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 2 * time.Second, Retries: 1}, nil)

	first := svc.Ask(context.Background(), "Give me all my alphas owned by me")
	second := svc.Ask(context.Background(), "Give me all my alphas owned by me")
	assert.Equal(t, first, second)
}

func TestAsk_ResolvedMetadata(t *testing.T) {
	srv := newToolServer(t, func(json.RawMessage) string {
		return `["alpha1"]`
	})
	defer srv.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 2 * time.Second, Retries: 1}, nil)

	result := svc.AskDetailed(context.Background(), "list my alphas")
	assert.Equal(t, IntentResolved, result.Metadata.Intent)
	assert.Equal(t, "list_alphas", result.Metadata.Tool)
	assert.Equal(t, "alphas", result.Metadata.Server)
	assert.Equal(t, 1, result.Metadata.Attempts)
	assert.Greater(t, result.Metadata.Confidence, 0.0)
	assert.NotEmpty(t, result.Metadata.RequestID)

	// Metadata renders as JSON for the GraphQL layer.
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Metadata.JSON()), &decoded))
	assert.Equal(t, "resolved", decoded["intent"])
}

func TestAsk_NoMatchingTool(t *testing.T) {
	srv := newToolServer(t, func(json.RawMessage) string { return `[]` })
	defer srv.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 2 * time.Second, Retries: 1}, nil)

	result := svc.AskDetailed(context.Background(), "what is the weather like tomorrow")
	assert.Equal(t, msgNoMatchingTool, result.Content)
	assert.Equal(t, IntentNoMatchingTool, result.Metadata.Intent)
}

func TestAsk_IncompleteArguments(t *testing.T) {
	srv := newToolServer(t, func(json.RawMessage) string { return `[]` })
	defer srv.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 2 * time.Second, Retries: 1}, nil)

	// Mentions alphas so the tool matches, but gives no owner and no
	// first-person wording to fall back on.
	result := svc.AskDetailed(context.Background(), "list alphas")
	assert.Equal(t, msgIncomplete, result.Content)
	assert.Equal(t, IntentIncompleteArguments, result.Metadata.Intent)
}

func TestAsk_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if calls.Add(1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":["alpha1"]}`, req.ID)
	}))
	defer srv.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 2 * time.Second, Retries: 1}, nil)

	result := svc.AskDetailed(context.Background(), "list my alphas")
	assert.Equal(t, "alpha1", result.Content)
	assert.Equal(t, IntentResolved, result.Metadata.Intent)
	assert.Equal(t, 2, result.Metadata.Attempts)
	assert.Equal(t, int64(2), calls.Load())
}

func TestAsk_TransportFailureAfterRetry(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 2 * time.Second, Retries: 1}, nil)

	result := svc.AskDetailed(context.Background(), "list my alphas")
	assert.Equal(t, msgTransport, result.Content)
	assert.Equal(t, IntentTransportFailed, result.Metadata.Intent)
	assert.Equal(t, 2, result.Metadata.Attempts)
	assert.Equal(t, int64(2), calls.Load())
}

func TestAsk_NoRetryOnApplicationError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		calls.Add(1)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32000,"message":"boom"}}`, req.ID)
	}))
	defer srv.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 2 * time.Second, Retries: 1}, nil)

	result := svc.AskDetailed(context.Background(), "list my alphas")
	assert.Equal(t, "The tool reported an error: boom", result.Content)
	assert.Equal(t, IntentToolFailed, result.Metadata.Intent)
	assert.Equal(t, int64(1), calls.Load(), "application errors must not retry")
}

func TestAsk_TimeoutNeverHangs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect and
		// cancels the request context; otherwise srv.Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done() // never respond
	}))
	defer srv.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 300 * time.Millisecond, Retries: 1}, nil)

	start := time.Now()
	result := svc.AskDetailed(context.Background(), "list my alphas")
	elapsed := time.Since(start)

	assert.Equal(t, msgTimeout, result.Content)
	assert.Equal(t, IntentTimeout, result.Metadata.Intent)
	assert.Less(t, elapsed, 2*time.Second, "ask must return shortly after its timeout")
}

func TestAsk_MCPContentBlocks(t *testing.T) {
	srv := newToolServer(t, func(json.RawMessage) string {
		return `{"content":[{"type":"text","text":"alpha1, alpha2"}]}`
	})
	defer srv.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 2 * time.Second, Retries: 1}, nil)

	answer := svc.Ask(context.Background(), "list my alphas")
	assert.Equal(t, "alpha1, alpha2", answer)
}

func TestAsk_ToolFlaggedError(t *testing.T) {
	srv := newToolServer(t, func(json.RawMessage) string {
		return `{"content":[{"type":"text","text":"owner not found"}],"isError":true}`
	})
	defer srv.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 2 * time.Second, Retries: 1}, nil)

	result := svc.AskDetailed(context.Background(), "list my alphas")
	assert.Equal(t, "owner not found", result.Content)
	assert.Equal(t, IntentToolFailed, result.Metadata.Intent)
}

func TestAsk_CachesAnswers(t *testing.T) {
	var calls atomic.Int64
	srv := newToolServer(t, func(json.RawMessage) string {
		calls.Add(1)
		return `["alpha1"]`
	})
	defer srv.Close()

	answers := cache.New(time.Minute, 100)
	defer answers.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 2 * time.Second, Retries: 1}, answers)

	first := svc.AskDetailed(context.Background(), "list my alphas")
	second := svc.AskDetailed(context.Background(), "list my alphas")

	assert.Equal(t, first.Content, second.Content)
	assert.False(t, first.Metadata.Cached)
	assert.True(t, second.Metadata.Cached)
	assert.Equal(t, int64(1), calls.Load(), "second ask should hit the cache")

	// A cache hit keeps reporting how the answer was produced.
	assert.Equal(t, IntentResolved, second.Metadata.Intent)
	assert.Equal(t, first.Metadata.Tool, second.Metadata.Tool)
	assert.Equal(t, first.Metadata.Server, second.Metadata.Server)
	assert.Equal(t, first.Metadata.Confidence, second.Metadata.Confidence)
	assert.Equal(t, "list_alphas", second.Metadata.Tool)
}

func TestAsk_DoesNotCacheToolErrors(t *testing.T) {
	var calls atomic.Int64
	srv := newToolServer(t, func(json.RawMessage) string {
		calls.Add(1)
		return `{"content":[{"type":"text","text":"owner not found"}],"isError":true}`
	})
	defer srv.Close()

	answers := cache.New(time.Minute, 100)
	defer answers.Close()

	svc := newAlphaService(t, newCaller(t, srv.URL), Config{Timeout: 2 * time.Second, Retries: 1}, answers)

	svc.Ask(context.Background(), "list my alphas")
	svc.Ask(context.Background(), "list my alphas")
	assert.Equal(t, int64(2), calls.Load())
}
