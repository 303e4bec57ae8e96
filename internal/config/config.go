// internal/config/config.go
//
// This package handles configuration and the .council directory structure.
// Every project that runs the council terminal gets a .council/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// CouncilDir is the name of the directory we create in each project
	CouncilDir = ".council"

	// DefaultAPIBaseURL is where the council backend listens by default.
	DefaultAPIBaseURL = "http://localhost:8001"
	// DefaultRequestTimeout bounds the non-streaming REST calls.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultLogLines is how many logbook lines the TUI shows.
	DefaultLogLines = 6
)

const defaultProjectConfigYAML = `# council terminal configuration
version: 1

api:
  base_url: http://localhost:8001
  # Applies to list/create/get/delete. Streaming requests are never cut short.
  request_timeout: 30s

# Push bridge: lets the backend POST stream events instead of the client polling.
bridge:
  enabled: false
  host: 127.0.0.1
  port: 8765
  # Only these conversation ids accept pushed events. Empty accepts any.
  conversations: []
  # Largest data payload a single stage result may carry.
  max_stage_bytes: 1048576
  # Events held per conversation until it is opened.
  backlog: 50

ui:
  alt_screen: true
  log_lines: 6

# Shown in the welcome panel. The backend decides who actually sits on the council.
council:
  models:
    - openai/gpt-5.1
    - google/gemini-3-pro-preview
    - anthropic/claude-sonnet-4.5
    - x-ai/grok-4
  chairman: google/gemini-3-pro-preview
`

// APIConfig points the client at the council backend.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	RequestTimeout string `yaml:"request_timeout,omitempty"`

	timeout time.Duration
}

// BridgeConfig mirrors the bridge block; nil fields fall back to defaults.
type BridgeConfig struct {
	Enabled       *bool    `yaml:"enabled,omitempty"`
	Host          string   `yaml:"host,omitempty"`
	Port          int      `yaml:"port,omitempty"`
	Conversations []string `yaml:"conversations,omitempty"`
	MaxStageBytes int64    `yaml:"max_stage_bytes,omitempty"`
	Backlog       int      `yaml:"backlog,omitempty"`
}

// UIConfig holds terminal preferences.
type UIConfig struct {
	AltScreen *bool `yaml:"alt_screen,omitempty"`
	LogLines  int   `yaml:"log_lines,omitempty"`
}

// CouncilRoster lists the models presented in the welcome panel.
type CouncilRoster struct {
	Models   []string `yaml:"models,omitempty"`
	Chairman string   `yaml:"chairman,omitempty"`
}

// ProjectConfig models .council/config.yaml.
type ProjectConfig struct {
	Version int           `yaml:"version"`
	API     APIConfig     `yaml:"api"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	UI      UIConfig      `yaml:"ui"`
	Council CouncilRoster `yaml:"council"`
}

// Config holds the runtime configuration for the council terminal.
type Config struct {
	// ProjectDir is the directory the terminal was started from
	ProjectDir string

	// CouncilProjectDir is ProjectDir/.council
	CouncilProjectDir string

	Project ProjectConfig
}

// InitCouncilDir creates the .council directory structure in the given project directory.
// This is called when the TUI starts up.
//
// Structure created:
// .council/
// ├── config.yaml
// └── logs/         <- council.log lives here
func InitCouncilDir(projectDir string) error {
	councilDir := filepath.Join(projectDir, CouncilDir)
	if err := os.MkdirAll(filepath.Join(councilDir, "logs"), 0755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(councilDir, "config.yaml"))
}

// NewConfig creates a new Config instance populated with project settings.
// A .env file in the project directory is loaded first; variables already set
// in the environment win over it.
func NewConfig(projectDir string) (*Config, error) {
	if err := loadDotEnv(projectDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		ProjectDir:        projectDir,
		CouncilProjectDir: filepath.Join(projectDir, CouncilDir),
		Project:           defaultProjectConfig(),
	}

	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.CouncilProjectDir, "logs")
}

// LogPath returns the logbook file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "council.log")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.CouncilProjectDir, "config.yaml")
}

// APIBaseURL returns the backend root without a trailing slash.
func (c *Config) APIBaseURL() string {
	return c.Project.API.BaseURL
}

// RequestTimeout is the deadline for non-streaming API calls.
func (c *Config) RequestTimeout() time.Duration {
	if c.Project.API.timeout <= 0 {
		return DefaultRequestTimeout
	}
	return c.Project.API.timeout
}

// AltScreen reports whether the TUI should take over the whole terminal.
func (c *Config) AltScreen() bool {
	if c.Project.UI.AltScreen == nil {
		return true
	}
	return *c.Project.UI.AltScreen
}

// LogLines returns how many logbook lines to show.
func (c *Config) LogLines() int {
	return c.Project.UI.LogLines
}

// CouncilModels returns the configured council roster.
func (c *Config) CouncilModels() []string {
	return c.Project.Council.Models
}

// Chairman returns the configured chairman model.
func (c *Config) Chairman() string {
	return c.Project.Council.Chairman
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (c *Config) applyEnvOverrides() error {
	changed := false
	if value := strings.TrimSpace(os.Getenv("COUNCIL_API_URL")); value != "" {
		c.Project.API.BaseURL = value
		changed = true
	}
	if value := strings.TrimSpace(os.Getenv("COUNCIL_REQUEST_TIMEOUT")); value != "" {
		c.Project.API.RequestTimeout = value
		changed = true
	}
	if !changed {
		return nil
	}
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		API: APIConfig{
			BaseURL:        DefaultAPIBaseURL,
			RequestTimeout: DefaultRequestTimeout.String(),
			timeout:        DefaultRequestTimeout,
		},
		UI: UIConfig{LogLines: DefaultLogLines},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.API.BaseURL) == "" {
		pc.API.BaseURL = DefaultAPIBaseURL
	}
	if strings.TrimSpace(pc.API.RequestTimeout) == "" {
		pc.API.RequestTimeout = DefaultRequestTimeout.String()
	}
	if pc.UI.LogLines == 0 {
		pc.UI.LogLines = DefaultLogLines
	}
}

func (pc *ProjectConfig) normalize() {
	pc.API.BaseURL = strings.TrimRight(strings.TrimSpace(pc.API.BaseURL), "/")
	pc.API.RequestTimeout = strings.TrimSpace(pc.API.RequestTimeout)
	if d, err := time.ParseDuration(pc.API.RequestTimeout); err == nil {
		pc.API.timeout = d
	} else {
		pc.API.timeout = 0
	}
	pc.Bridge.Host = strings.TrimSpace(pc.Bridge.Host)
	ids := pc.Bridge.Conversations[:0]
	for _, id := range pc.Bridge.Conversations {
		if id = strings.TrimSpace(id); id != "" && !contains(ids, id) {
			ids = append(ids, id)
		}
	}
	pc.Bridge.Conversations = ids
	pc.Council.Chairman = strings.TrimSpace(pc.Council.Chairman)
	models := pc.Council.Models[:0]
	for _, m := range pc.Council.Models {
		if m = strings.TrimSpace(m); m != "" && !contains(models, m) {
			models = append(models, m)
		}
	}
	pc.Council.Models = models
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	parsed, err := url.Parse(pc.API.BaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", pc.API.BaseURL)
	}
	if pc.API.timeout <= 0 {
		return fmt.Errorf("api.request_timeout must be a positive duration, got %q", pc.API.RequestTimeout)
	}
	if pc.Bridge.Port < 0 || pc.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port must be between 1 and 65535")
	}
	if pc.Bridge.MaxStageBytes < 0 || pc.Bridge.Backlog < 0 {
		return fmt.Errorf("bridge.max_stage_bytes and bridge.backlog must not be negative")
	}
	if pc.UI.LogLines < 0 {
		return fmt.Errorf("ui.log_lines must not be negative")
	}
	return nil
}

func loadDotEnv(projectDir string) error {
	path := filepath.Join(projectDir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
