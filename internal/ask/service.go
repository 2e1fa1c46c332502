// ABOUTME: Ask service: routes a prompt, calls the chosen tool, formats the answer.
// ABOUTME: Never lets an error escape; every outcome becomes a string result.

package ask

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/askbridge/askbridge/internal/cache"
	"github.com/askbridge/askbridge/internal/router"
	"github.com/askbridge/askbridge/internal/rpc"
)

// Intent classifies how an ask was resolved. Carried in Result metadata so
// callers can distinguish a tool answer from a formatted failure.
const (
	IntentResolved            = "resolved"
	IntentNoMatchingTool      = "no_matching_tool"
	IntentAmbiguous           = "ambiguous"
	IntentIncompleteArguments = "incomplete_arguments"
	IntentTransportFailed     = "transport_failed"
	IntentProtocolFailed      = "protocol_failed"
	IntentToolFailed          = "tool_failed"
	IntentTimeout             = "timeout"
)

// User-visible failure strings. These are answers, not errors: the outward
// contract is a non-nullable string, so every failure renders as text.
const (
	msgNoMatchingTool = "Could not determine which tool to use for this request."
	msgAmbiguous      = "The request matches more than one tool. Please rephrase it more specifically."
	msgIncomplete     = "The request is missing required information for the selected tool."
	msgTransport      = "The tool server could not be reached. Please try again."
	msgProtocol       = "The tool server returned an invalid response."
	msgTimeout        = "The request timed out before the tool call completed."
)

// Caller invokes tools on a single MCP server. *rpc.Client satisfies it.
type Caller interface {
	Name() string
	CallTool(ctx context.Context, name string, arguments map[string]any) (json.RawMessage, error)
}

// Metadata describes how a Result was produced.
type Metadata struct {
	RequestID  string  `json:"request_id"`
	Intent     string  `json:"intent"`
	Tool       string  `json:"tool,omitempty"`
	Server     string  `json:"server,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Attempts   int     `json:"attempts,omitempty"`
	Cached     bool    `json:"cached,omitempty"`
}

// JSON renders the metadata as a compact JSON string for the GraphQL layer.
func (m Metadata) JSON() string {
	b, err := json.Marshal(m)
	if err != nil {
		return `{"intent":"` + m.Intent + `"}`
	}
	return string(b)
}

// Result is a completed ask: the answer text plus resolution metadata.
type Result struct {
	Content  string
	Metadata Metadata
}

// cachedAnswer is the payload stored in the answer cache, so a cache hit
// still reports which tool produced the answer.
type cachedAnswer struct {
	Content    string  `json:"content"`
	Tool       string  `json:"tool"`
	Server     string  `json:"server"`
	Confidence float64 `json:"confidence"`
}

// Config contains the service's dispatch policy.
type Config struct {
	// Timeout bounds one ask end to end: routing, the tool call, and any
	// retry all share it.
	Timeout time.Duration
	// Retries is the number of additional attempts after a transient
	// transport failure. Routing and application failures never retry.
	Retries int
}

// Service orchestrates ask requests: route the prompt, dispatch the tool
// call to the owning server, format the result. Stateless per request and
// safe for concurrent use.
type Service struct {
	router  *router.Router
	callers map[string]Caller
	cfg     Config
	answers *cache.Cache
	logger  *slog.Logger
}

// New creates a Service. answers may be nil to disable response caching.
func New(r *router.Router, callers map[string]Caller, cfg Config, answers *cache.Cache, logger *slog.Logger) *Service {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		router:  r,
		callers: callers,
		cfg:     cfg,
		answers: answers,
		logger:  logger,
	}
}

// Ask answers a prompt. It always returns a string: tool output on success,
// a descriptive failure message otherwise.
func (s *Service) Ask(ctx context.Context, prompt string) string {
	return s.AskDetailed(ctx, prompt).Content
}

// AskDetailed answers a prompt and reports how the answer was produced.
func (s *Service) AskDetailed(ctx context.Context, prompt string) Result {
	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID)

	if s.answers != nil {
		if stored, ok := s.answers.Get(prompt); ok {
			var cached cachedAnswer
			if err := json.Unmarshal([]byte(stored), &cached); err == nil {
				logger.Debug("answer served from cache", "tool", cached.Tool)
				return Result{
					Content: cached.Content,
					Metadata: Metadata{
						RequestID:  requestID,
						Intent:     IntentResolved,
						Tool:       cached.Tool,
						Server:     cached.Server,
						Confidence: cached.Confidence,
						Cached:     true,
					},
				}
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	decision, err := s.router.Route(prompt)
	if err != nil {
		return s.routingFailure(requestID, err, logger)
	}

	caller, ok := s.callers[decision.Server]
	if !ok {
		// A decision always names a server from the snapshot, so this means
		// the snapshot and the caller set drifted apart at assembly time.
		logger.Error("no caller for server named by routing decision",
			"server", decision.Server,
			"tool", decision.Tool,
		)
		return Result{
			Content: msgNoMatchingTool,
			Metadata: Metadata{
				RequestID: requestID,
				Intent:    IntentNoMatchingTool,
				Tool:      decision.Tool,
				Server:    decision.Server,
			},
		}
	}

	raw, attempts, err := s.callWithRetry(ctx, caller, decision, logger)
	meta := Metadata{
		RequestID:  requestID,
		Tool:       decision.Tool,
		Server:     decision.Server,
		Confidence: decision.Confidence,
		Attempts:   attempts,
	}
	if err != nil {
		intent, content := classifyCallError(ctx, err)
		meta.Intent = intent
		logger.Warn("ask failed",
			"intent", meta.Intent,
			"tool", decision.Tool,
			"server", decision.Server,
			"attempts", attempts,
			"error", err,
		)
		return Result{Content: content, Metadata: meta}
	}

	content, toolErr := formatResult(raw)
	meta.Intent = IntentResolved
	if toolErr {
		meta.Intent = IntentToolFailed
	}

	if s.answers != nil && !toolErr {
		if stored, err := json.Marshal(cachedAnswer{
			Content:    content,
			Tool:       decision.Tool,
			Server:     decision.Server,
			Confidence: decision.Confidence,
		}); err == nil {
			s.answers.Put(prompt, string(stored))
		}
	}

	logger.Info("ask resolved",
		"tool", decision.Tool,
		"server", decision.Server,
		"confidence", decision.Confidence,
		"attempts", attempts,
		"tool_error", toolErr,
	)

	return Result{Content: content, Metadata: meta}
}

// callWithRetry dispatches the tool call, retrying once per configured
// retry on transient transport failures only.
func (s *Service) callWithRetry(ctx context.Context, caller Caller, decision router.Decision, logger *slog.Logger) (json.RawMessage, int, error) {
	attempts := 0
	for {
		attempts++
		raw, err := caller.CallTool(ctx, decision.Tool, decision.Arguments)
		if err == nil {
			return raw, attempts, nil
		}
		if attempts > s.cfg.Retries || !rpc.IsTransient(err) || ctx.Err() != nil {
			return nil, attempts, err
		}
		logger.Warn("retrying after transient transport failure",
			"tool", decision.Tool,
			"server", caller.Name(),
			"attempt", attempts,
			"error", err,
		)
	}
}

// routingFailure maps a router error onto a failure Result.
func (s *Service) routingFailure(requestID string, err error, logger *slog.Logger) Result {
	intent := IntentNoMatchingTool
	content := msgNoMatchingTool

	switch {
	case errors.Is(err, router.ErrAmbiguousMatch):
		intent, content = IntentAmbiguous, msgAmbiguous
	case errors.Is(err, router.ErrIncompleteArguments):
		intent, content = IntentIncompleteArguments, msgIncomplete
	}

	logger.Info("routing failed", "intent", intent, "error", err)
	return Result{
		Content:  content,
		Metadata: Metadata{RequestID: requestID, Intent: intent},
	}
}

// classifyCallError maps a failed tool call onto an intent and failure text.
func classifyCallError(ctx context.Context, err error) (string, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return IntentTimeout, msgTimeout
	case rpc.IsTransient(err):
		return IntentTransportFailed, msgTransport
	default:
		var appErr *rpc.ApplicationError
		if errors.As(err, &appErr) {
			return IntentToolFailed, "The tool reported an error: " + appErr.Message
		}
		return IntentProtocolFailed, msgProtocol
	}
}
