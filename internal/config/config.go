// ABOUTME: Configuration loading and parsing for askbridge
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete askbridge configuration.
type Config struct {
	Server  ServerConfig      `yaml:"server"`
	Servers []MCPServerConfig `yaml:"mcp_servers"`
	Router  RouterConfig      `yaml:"router"`
	Ask     AskConfig         `yaml:"ask"`
	Logging LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds the inbound HTTP server configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// MCPServerConfig describes one downstream MCP server reachable over
// JSON-RPC 2.0. Tools may be declared statically, discovered via the
// tools/list handshake at startup, or both.
type MCPServerConfig struct {
	Name        string       `yaml:"name"`
	BaseURL     string       `yaml:"base_url"`
	Description string       `yaml:"description"`
	RPCPath     string       `yaml:"rpc_path"`
	AuthToken   string       `yaml:"auth_token"`
	Introspect  *bool        `yaml:"introspect"`
	Tools       []ToolConfig `yaml:"tools"`
}

// ToolConfig declares a tool statically instead of relying on introspection.
type ToolConfig struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Params      []ParamConfig `yaml:"params"`
}

// ParamConfig describes one tool parameter.
type ParamConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// RouterConfig holds prompt routing configuration.
type RouterConfig struct {
	// MinConfidence is the score a tool must clear to be selected.
	MinConfidence float64 `yaml:"-"`
	// TieBreak is "first" (declaration order wins) or "error" (ambiguous ties fail).
	TieBreak string `yaml:"tie_break"`

	// Raw pointer value so an explicit 0 survives defaulting.
	MinConfidenceRaw *float64 `yaml:"min_confidence"`
}

// AskConfig holds the ask pipeline timing and caching configuration.
type AskConfig struct {
	Timeout  time.Duration `yaml:"-"`
	CacheTTL time.Duration `yaml:"-"`
	// Retries is the number of additional attempts after a transport failure.
	Retries int  `yaml:"-"`
	Cache   bool `yaml:"cache"`

	// Raw values for YAML unmarshaling; Retries is a pointer so an
	// explicit 0 (retries disabled) survives defaulting.
	TimeoutRaw  string `yaml:"timeout"`
	CacheTTLRaw string `yaml:"cache_ttl"`
	RetriesRaw  *int   `yaml:"retries"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied after parsing.
const (
	DefaultHTTPAddr      = "127.0.0.1:8080"
	DefaultRPCPath       = "/mcp"
	DefaultMinConfidence = 0.25
	DefaultTimeout       = 15 * time.Second
	DefaultRetries       = 1
	DefaultCacheTTL      = 30 * time.Second
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills zero-valued fields with defaults.
func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	c.Router.MinConfidence = DefaultMinConfidence
	if c.Router.MinConfidenceRaw != nil {
		c.Router.MinConfidence = *c.Router.MinConfidenceRaw
	}
	if c.Router.TieBreak == "" {
		c.Router.TieBreak = "first"
	}
	c.Ask.Retries = DefaultRetries
	if c.Ask.RetriesRaw != nil {
		c.Ask.Retries = *c.Ask.RetriesRaw
	}
	for i := range c.Servers {
		if c.Servers[i].RPCPath == "" {
			c.Servers[i].RPCPath = DefaultRPCPath
		}
	}
}

// Introspects reports whether tool discovery should run for this server.
// Defaults to true unless the server declares static tools only.
func (s *MCPServerConfig) Introspects() bool {
	if s.Introspect != nil {
		return *s.Introspect
	}
	return len(s.Tools) == 0
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("at least one entry in mcp_servers is required")
	}

	seen := make(map[string]bool, len(c.Servers))
	for i, srv := range c.Servers {
		if srv.Name == "" {
			return fmt.Errorf("mcp_servers[%d].name is required", i)
		}
		if seen[srv.Name] {
			return fmt.Errorf("duplicate mcp server name %q", srv.Name)
		}
		seen[srv.Name] = true
		if srv.BaseURL == "" {
			return fmt.Errorf("mcp_servers[%d].base_url is required", i)
		}
		for j, tool := range srv.Tools {
			if tool.Name == "" {
				return fmt.Errorf("mcp server %q tools[%d].name is required", srv.Name, j)
			}
		}
		if !srv.Introspects() && len(srv.Tools) == 0 {
			return fmt.Errorf("mcp server %q disables introspection but declares no tools", srv.Name)
		}
	}

	if c.Router.MinConfidence < 0 || c.Router.MinConfidence > 1 {
		return fmt.Errorf("router.min_confidence must be in [0,1], got %v", c.Router.MinConfidence)
	}
	if c.Router.TieBreak != "first" && c.Router.TieBreak != "error" {
		return fmt.Errorf("router.tie_break must be \"first\" or \"error\", got %q", c.Router.TieBreak)
	}

	if c.Ask.Retries < 0 {
		return fmt.Errorf("ask.retries must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	cfg.Ask.Timeout = DefaultTimeout
	if cfg.Ask.TimeoutRaw != "" {
		cfg.Ask.Timeout, err = time.ParseDuration(cfg.Ask.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing ask.timeout %q: %w", cfg.Ask.TimeoutRaw, err)
		}
		if cfg.Ask.Timeout <= 0 {
			return fmt.Errorf("ask.timeout must be positive, got %q", cfg.Ask.TimeoutRaw)
		}
	}

	cfg.Ask.CacheTTL = DefaultCacheTTL
	if cfg.Ask.CacheTTLRaw != "" {
		cfg.Ask.CacheTTL, err = time.ParseDuration(cfg.Ask.CacheTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing ask.cache_ttl %q: %w", cfg.Ask.CacheTTLRaw, err)
		}
	}

	return nil
}
