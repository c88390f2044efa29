package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/daifugo/game/selection"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Environment variables read by Load
const (
	EnvBackend         = "DAIFUGO_BACKEND"
	EnvPathPrefix      = "DAIFUGO_PATH_PREFIX"
	EnvSelectionPolicy = "DAIFUGO_SELECTION_POLICY"
	EnvSessionsDir     = "DAIFUGO_SESSIONS_DIR"
	EnvHTTPTimeout     = "DAIFUGO_HTTP_TIMEOUT"
	EnvListen          = "DAIFUGO_LISTEN"
)

// Config holds everything needed to reach a room server and run the local
// view.
type Config struct {
	// Backend is either host[:port] (plain ws/http) or a URL whose scheme
	// picks plain or secure transport.
	Backend string `json:"backend" yaml:"backend"`

	PathPrefix      string `json:"path_prefix" yaml:"path_prefix"`
	SelectionPolicy string `json:"selection_policy" yaml:"selection_policy"`
	SessionsDir     string `json:"sessions_dir" yaml:"sessions_dir"`
	HTTPTimeout     string `json:"http_timeout" yaml:"http_timeout"`
	Listen          string `json:"listen" yaml:"listen"`
}

// Defaults returns a Config for a server running on localhost
func Defaults() *Config {
	return &Config{
		Backend:         "localhost:8080",
		PathPrefix:      "/daifugo",
		SelectionPolicy: string(selection.PolicyClear),
		SessionsDir:     "sessions",
		HTTPTimeout:     "10s",
		Listen:          ":8090",
	}
}

// Load starts from Defaults, applies the optional file at path (.json,
// .yaml or .yml) and then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	overrideString(&cfg.Backend, EnvBackend)
	overrideString(&cfg.PathPrefix, EnvPathPrefix)
	overrideString(&cfg.SelectionPolicy, EnvSelectionPolicy)
	overrideString(&cfg.SessionsDir, EnvSessionsDir)
	overrideString(&cfg.HTTPTimeout, EnvHTTPTimeout)
	overrideString(&cfg.Listen, EnvListen)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile applies only the file at path to Defaults, ignoring the
// environment, and validates the result
func ReadFile(path string) (*Config, error) {
	cfg := Defaults()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Secure reports whether the backend uses wss/https
func (c *Config) Secure() bool {
	_, secure, err := c.endpoint()
	return err == nil && secure
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".json":
		err = json.Unmarshal(data, c)
	default:
		return fmt.Errorf("%w: unsupported config file %s", ErrInvalidConfig, path)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

// Validate checks the backend, policy and timeout
func (c *Config) Validate() error {
	if _, _, err := c.endpoint(); err != nil {
		return err
	}
	if _, err := selection.ParsePolicy(c.SelectionPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if c.PathPrefix != "" && !strings.HasPrefix(c.PathPrefix, "/") {
		return fmt.Errorf("%w: path prefix %q must start with /", ErrInvalidConfig, c.PathPrefix)
	}
	return nil
}

// Policy returns the parsed selection policy, falling back to clear
func (c *Config) Policy() selection.Policy {
	p, err := selection.ParsePolicy(c.SelectionPolicy)
	if err != nil {
		return selection.PolicyClear
	}
	return p
}

// Timeout parses HTTPTimeout. A bare number is taken as seconds.
func (c *Config) Timeout() (time.Duration, error) {
	if c.HTTPTimeout == "" {
		return 10 * time.Second, nil
	}
	if secs, err := cast.ToIntE(c.HTTPTimeout); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("%w: http timeout %q", ErrInvalidConfig, c.HTTPTimeout)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := cast.ToDurationE(c.HTTPTimeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: http timeout %q", ErrInvalidConfig, c.HTTPTimeout)
	}
	return d, nil
}

// WebSocketURL is the per-player connection endpoint for a room
func (c *Config) WebSocketURL(room, player string) (string, error) {
	host, secure, err := c.endpoint()
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s%s/ws/rooms/%s/%s", scheme, host, c.prefix(), url.PathEscape(room), url.PathEscape(player)), nil
}

// RoomsURL is the room listing endpoint
func (c *Config) RoomsURL() (string, error) {
	host, secure, err := c.endpoint()
	if err != nil {
		return "", err
	}
	return httpScheme(secure) + "://" + host + c.prefix() + "/rooms", nil
}

// RoomURL is the creation endpoint for one room
func (c *Config) RoomURL(room string) (string, error) {
	base, err := c.RoomsURL()
	if err != nil {
		return "", err
	}
	return base + "/" + url.PathEscape(room), nil
}

func (c *Config) prefix() string {
	return strings.TrimSuffix(c.PathPrefix, "/")
}

// endpoint splits Backend into a host and whether to use TLS
func (c *Config) endpoint() (string, bool, error) {
	backend := strings.TrimSpace(c.Backend)
	if backend == "" {
		return "", false, fmt.Errorf("%w: backend is empty", ErrInvalidConfig)
	}

	if !strings.Contains(backend, "://") {
		if strings.ContainsAny(backend, "/?#") {
			return "", false, fmt.Errorf("%w: backend %q is not a host", ErrInvalidConfig, backend)
		}
		return backend, false, nil
	}

	u, err := url.Parse(backend)
	if err != nil {
		return "", false, fmt.Errorf("%w: backend %q: %v", ErrInvalidConfig, backend, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("%w: backend %q has no host", ErrInvalidConfig, backend)
	}
	if u.Path != "" && u.Path != "/" {
		return "", false, fmt.Errorf("%w: backend %q must not carry a path, use path_prefix", ErrInvalidConfig, backend)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		return u.Host, false, nil
	case "https", "wss":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidConfig, u.Scheme)
	}
}

func httpScheme(secure bool) string {
	if secure {
		return "https"
	}
	return "http"
}
