// ABOUTME: Gateway orchestrator that assembles the ask pipeline and HTTP server.
// ABOUTME: Manages tool discovery, routing, and server lifecycle.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/askbridge/askbridge/internal/ask"
	"github.com/askbridge/askbridge/internal/cache"
	"github.com/askbridge/askbridge/internal/config"
	"github.com/askbridge/askbridge/internal/graphql"
	"github.com/askbridge/askbridge/internal/registry"
	"github.com/askbridge/askbridge/internal/router"
	"github.com/askbridge/askbridge/internal/rpc"
)

// startupTimeout bounds the MCP handshake and tool discovery at boot.
const startupTimeout = 30 * time.Second

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// Gateway assembles the askbridge server: JSON-RPC clients for each
// configured MCP server, the tool registry, the prompt router, the ask
// service, and the inbound HTTP server.
type Gateway struct {
	config     *config.Config
	version    string
	logger     *slog.Logger
	serverID   string
	httpServer *http.Server
	answers    *cache.Cache
	snapshot   *registry.Snapshot

	// toolCount is set once discovery finishes; readiness keys off it.
	toolCount atomic.Int64
}

// New creates a Gateway from configuration. Tool discovery happens in Run,
// not here, so construction never blocks on the network.
func New(cfg *config.Config, version string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		config:   cfg,
		version:  version,
		logger:   logger,
		serverID: "askbridge-" + uuid.NewString()[:8],
	}
}

// ServerID identifies this gateway instance in logs.
func (g *Gateway) ServerID() string { return g.serverID }

// buildClients creates one JSON-RPC client per configured MCP server.
func (g *Gateway) buildClients() (map[string]*rpc.Client, error) {
	clients := make(map[string]*rpc.Client, len(g.config.Servers))
	for _, srv := range g.config.Servers {
		client, err := rpc.NewClient(rpc.ClientConfig{
			Name:      srv.Name,
			BaseURL:   srv.BaseURL,
			RPCPath:   srv.RPCPath,
			AuthToken: srv.AuthToken,
			Logger:    g.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("building client for %s: %w", srv.Name, err)
		}
		clients[srv.Name] = client
	}
	return clients, nil
}

// discoverTools runs the MCP handshake against every introspectable server
// and builds the immutable tool snapshot.
func (g *Gateway) discoverTools(ctx context.Context, clients map[string]*rpc.Client) (*registry.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	sources := make([]registry.ServerSource, 0, len(g.config.Servers))
	for _, srv := range g.config.Servers {
		src := registry.ServerSource{Config: srv}
		if srv.Introspects() {
			src.Lister = clients[srv.Name]
		}
		sources = append(sources, src)
	}

	snapshot, err := registry.Load(ctx, sources, g.version, g.logger)
	if err != nil {
		return nil, fmt.Errorf("loading tool registry: %w", err)
	}

	g.toolCount.Store(int64(snapshot.Len()))
	return snapshot, nil
}

// buildService wires the router and ask service over the snapshot.
func (g *Gateway) buildService(snapshot *registry.Snapshot, clients map[string]*rpc.Client) *ask.Service {
	tieBreak := router.TieBreakFirst
	if g.config.Router.TieBreak == "error" {
		tieBreak = router.TieBreakError
	}

	r := router.New(snapshot, nil, router.Config{
		MinConfidence: g.config.Router.MinConfidence,
		TieBreak:      tieBreak,
	}, g.logger)

	callers := make(map[string]ask.Caller, len(clients))
	for name, client := range clients {
		callers[name] = client
	}

	if g.config.Ask.Cache {
		g.answers = cache.New(g.config.Ask.CacheTTL, 10_000)
	}

	return ask.New(r, callers, ask.Config{
		Timeout: g.config.Ask.Timeout,
		Retries: g.config.Ask.Retries,
	}, g.answers, g.logger)
}

// buildMux registers the HTTP routes: /graphql, /health, /ready.
func (g *Gateway) buildMux(service *ask.Service) (*http.ServeMux, error) {
	handler, err := graphql.NewHandler(service, g.logger)
	if err != nil {
		return nil, fmt.Errorf("building graphql handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", handler)
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/ready", g.handleReady)
	mux.HandleFunc("/tools", g.handleTools)
	return mux, nil
}

// initialize builds the full pipeline: clients, snapshot, service, server.
func (g *Gateway) initialize(ctx context.Context) error {
	clients, err := g.buildClients()
	if err != nil {
		return err
	}

	snapshot, err := g.discoverTools(ctx, clients)
	if err != nil {
		return err
	}
	g.snapshot = snapshot
	g.logger.Info("tool registry loaded",
		"server_id", g.serverID,
		"tools", snapshot.Len(),
		"servers", len(g.config.Servers),
	)

	service := g.buildService(snapshot, clients)
	mux, err := g.buildMux(service)
	if err != nil {
		return err
	}

	g.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run starts the gateway and blocks until the context is canceled or the
// server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.initialize(ctx); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.config.Server.HTTPAddr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown stops the HTTP server with a fresh context.
// Uses context.Background() intentionally since the run context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server and releases resources. Safe to call once
// after Run returns its listener error too.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var errs []error
	if g.httpServer != nil {
		if err := g.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
		}
	}
	if g.answers != nil {
		g.answers.Close()
	}
	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the tool registry has loaded.
func (g *Gateway) handleReady(w http.ResponseWriter, _ *http.Request) {
	tools := g.toolCount.Load()
	if tools == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no tools registered"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d tools)", tools)
}

// toolSummary is the /tools response shape for one registered tool.
type toolSummary struct {
	Name        string   `json:"name"`
	Server      string   `json:"server"`
	Description string   `json:"description,omitempty"`
	Params      []string `json:"params,omitempty"`
}

// handleTools lists the registered tools as JSON.
func (g *Gateway) handleTools(w http.ResponseWriter, _ *http.Request) {
	if g.snapshot == nil {
		http.Error(w, "registry not loaded", http.StatusServiceUnavailable)
		return
	}

	summaries := make([]toolSummary, 0, g.snapshot.Len())
	for _, tool := range g.snapshot.List() {
		s := toolSummary{
			Name:        tool.Name,
			Server:      tool.Server,
			Description: tool.Description,
		}
		for _, p := range tool.Params {
			name := p.Name
			if p.Required {
				name += "*"
			}
			s.Params = append(s.Params, name)
		}
		summaries = append(summaries, s)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summaries)
}
