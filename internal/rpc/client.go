// ABOUTME: JSON-RPC 2.0 client over HTTP POST with correlation-id checking.
// ABOUTME: One outbound call per invocation; retry policy belongs to the caller.

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// MaxResponseBodySize is the maximum allowed size for response bodies (1MB).
const MaxResponseBodySize = 1 << 20

// requestID is the process-wide correlation counter. Monotonic, never reused,
// so responses correlate unambiguously even with concurrent in-flight calls.
var requestID atomic.Int64

// nextRequestID returns a fresh correlation id.
func nextRequestID() int64 {
	return requestID.Add(1)
}

// request is the JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// response is the JSON-RPC 2.0 response envelope.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *errorObject    `json:"error,omitempty"`
}

// errorObject is the JSON-RPC 2.0 error object.
type errorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Client issues JSON-RPC 2.0 calls to a single MCP server endpoint.
// Safe for concurrent use; the underlying http.Client pools connections.
type Client struct {
	server     string
	endpoint   string
	authToken  string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientConfig contains configuration options for a Client.
type ClientConfig struct {
	// Name identifies the downstream server in logs and errors.
	Name string
	// BaseURL is the server's base URL, e.g. "http://localhost:9090".
	BaseURL string
	// RPCPath is the JSON-RPC endpoint path, e.g. "/mcp".
	RPCPath string
	// AuthToken, when set, is sent as a Bearer token on every request.
	AuthToken string
	// HTTPClient overrides the default HTTP client (mainly for tests).
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a Client for one downstream MCP server.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Name == "" {
		return nil, errors.New("client name is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url for %s: %w", cfg.Name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url for %s must be http or https, got %q", cfg.Name, cfg.BaseURL)
	}

	endpoint := strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RPCPath != "" {
		endpoint += "/" + strings.TrimLeft(cfg.RPCPath, "/")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		server:     cfg.Name,
		endpoint:   endpoint,
		authToken:  cfg.AuthToken,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Name returns the configured server name.
func (c *Client) Name() string { return c.server }

// Endpoint returns the resolved JSON-RPC endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Call issues a single JSON-RPC 2.0 call and returns the raw result value.
// The context bounds the whole round trip; cancellation abandons the outbound
// request. Errors are classified as TransportError, ProtocolError, or
// ApplicationError.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if method == "" {
		return nil, ErrEmptyMethod
	}

	id := nextRequestID()
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request for %s: %w", method, err)
	}

	c.logger.Debug("rpc request",
		"server", c.server,
		"method", method,
		"id", id,
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Server: c.server, Op: method, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Server: c.server, Op: method, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, MaxResponseBodySize+1))
	if err != nil {
		return nil, &TransportError{Server: c.server, Op: method, Err: err}
	}
	if int64(len(respBody)) > MaxResponseBodySize {
		return nil, &TransportError{Server: c.server, Op: method, Err: errors.New("response body too large")}
	}

	var resp response
	if jsonErr := json.Unmarshal(respBody, &resp); jsonErr != nil {
		// A non-2xx status without a parseable JSON-RPC body is a transport
		// failure; with a body it is handled below as an application error.
		return nil, &TransportError{
			Server: c.server,
			Op:     method,
			Err:    fmt.Errorf("status %d with malformed body: %w", httpResp.StatusCode, jsonErr),
		}
	}

	if resp.Error != nil {
		c.logger.Warn("rpc application error",
			"server", c.server,
			"method", method,
			"id", id,
			"code", resp.Error.Code,
			"message", resp.Error.Message,
		)
		return nil, &ApplicationError{
			Server:  c.server,
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
			Data:    resp.Error.Data,
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &TransportError{
			Server: c.server,
			Op:     method,
			Err:    fmt.Errorf("unexpected status %d", httpResp.StatusCode),
		}
	}

	if resp.JSONRPC != "2.0" {
		return nil, &ProtocolError{
			Server: c.server,
			Reason: fmt.Sprintf("unexpected jsonrpc version %q", resp.JSONRPC),
		}
	}

	if !idMatches(resp.ID, id) {
		return nil, &ProtocolError{
			Server: c.server,
			Reason: fmt.Sprintf("mismatched correlation id: sent %d, got %s", id, string(resp.ID)),
		}
	}

	c.logger.Debug("rpc response",
		"server", c.server,
		"method", method,
		"id", id,
		"status", httpResp.StatusCode,
	)

	return resp.Result, nil
}

// idMatches reports whether the response id correlates with the request id.
// Accepts both numeric and string encodings of the same value.
func idMatches(got json.RawMessage, sent int64) bool {
	if len(got) == 0 {
		return false
	}

	var asNumber int64
	if err := json.Unmarshal(got, &asNumber); err == nil {
		return asNumber == sent
	}

	var asString string
	if err := json.Unmarshal(got, &asString); err == nil {
		return asString == fmt.Sprintf("%d", sent)
	}

	return false
}
