// ABOUTME: Entry point for the askbridge server.
// ABOUTME: Serves GraphQL ask queries routed to MCP tools over JSON-RPC.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/askbridge/askbridge/internal/config"
	"github.com/askbridge/askbridge/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
           _    _          _     _
  __ _ ___| | _| |__  _ __(_) __| | __ _  ___
 / _' / __| |/ / '_ \| '__| |/ _' |/ _' |/ _ \
| (_| \__ \   <| |_) | |  | | (_| | (_| |  __/
 \__,_|___/_|\_\_.__/|_|  |_|\__,_|\__, |\___|
                                   |___/
`

// getConfigPath returns the path to the askbridge config file.
// Priority: ASKBRIDGE_CONFIG env var > XDG_CONFIG_HOME/askbridge/askbridge.yaml > ~/.config/askbridge/askbridge.yaml
func getConfigPath() string {
	if envPath := os.Getenv("ASKBRIDGE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "askbridge.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "askbridge", "askbridge.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: askbridge <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve   Start the askbridge server")
		fmt.Println("  init    Create a new config file interactively")
		fmt.Println("  health  Check server health")
		fmt.Println("  tools   List registered tools")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "tools":
		err = runTools(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("GraphQL: http://%s/graphql\n", cfg.Server.HTTPAddr)
	for _, srv := range cfg.Servers {
		green.Print("    ▶ ")
		fmt.Printf("MCP:     %s ", srv.Name)
		cyan.Print(srv.BaseURL)
		fmt.Println()
	}
	fmt.Println()

	logger.Info("starting askbridge",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"mcp_servers", len(cfg.Servers),
	)

	return gateway.New(cfg, version, logger).Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Handler-level attrs first (from WithAttrs), then record attrs.
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runTools(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/tools", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("tools request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("tools request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tools []struct {
		Name        string   `json:"name"`
		Server      string   `json:"server"`
		Description string   `json:"description"`
		Params      []string `json:"params"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tools); err != nil {
		return fmt.Errorf("decoding tools: %w", err)
	}

	if len(tools) == 0 {
		fmt.Println("no tools registered")
		return nil
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	for _, tool := range tools {
		cyan.Print(tool.Name)
		if len(tool.Params) > 0 {
			gray.Printf("(%s)", strings.Join(tool.Params, ", "))
		}
		gray.Printf("  [%s]", tool.Server)
		fmt.Println()
		if tool.Description != "" {
			fmt.Printf("    %s\n", tool.Description)
		}
	}
	return nil
}

// prompt reads a line from the reader, returning the default on empty input.
func prompt(reader *bufio.Reader, question, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", question, defaultValue)
	} else {
		fmt.Printf("%s: ", question)
	}

	answer, err := reader.ReadString('\n')
	if err != nil {
		return defaultValue
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return defaultValue
	}
	return answer
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("askbridge configuration setup")
	fmt.Println("=============================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", config.DefaultHTTPAddr)

	fmt.Println("\n--- MCP Server ---")
	mcpName := prompt(reader, "Server name", "tools")
	mcpURL := prompt(reader, "Base URL", "http://localhost:9090")
	mcpPath := prompt(reader, "RPC path", config.DefaultRPCPath)

	fmt.Println("\n--- Routing ---")
	minConfidence := prompt(reader, "Minimum routing confidence", "0.25")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# askbridge configuration\n")
	cfg.WriteString("# Generated by askbridge init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("mcp_servers:\n")
	cfg.WriteString(fmt.Sprintf("  - name: \"%s\"\n", mcpName))
	cfg.WriteString(fmt.Sprintf("    base_url: \"%s\"\n", mcpURL))
	cfg.WriteString(fmt.Sprintf("    rpc_path: \"%s\"\n", mcpPath))
	cfg.WriteString("\n")

	cfg.WriteString("router:\n")
	cfg.WriteString(fmt.Sprintf("  min_confidence: %s\n", minConfidence))
	cfg.WriteString("\n")

	cfg.WriteString("ask:\n")
	cfg.WriteString("  timeout: \"15s\"\n")
	cfg.WriteString("  retries: 1\n")
	cfg.WriteString("  cache: false\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Println()
	color.New(color.FgGreen).Printf("Config written to %s\n", outputFile)
	fmt.Println("Start the server with: askbridge serve")
	return nil
}
