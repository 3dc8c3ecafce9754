// internal/config/config.go
//
// This package handles configuration and the .apiprobe directory structure.
// Every project that uses apiprobe gets a .apiprobe/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// ProbeDir is the name of the directory we create in each project
	ProbeDir = ".apiprobe"

	// DefaultBridgeHost and DefaultBridgePort describe where `apiprobe serve`
	// listens and where commands are sent when no target is configured.
	DefaultBridgeHost = "127.0.0.1"
	DefaultBridgePort = 8765
)

const defaultProjectConfigYAML = `# apiprobe project configuration
version: 1

# Catalog definition. Leave path empty to use the built-in catalog, or point it
# at a YAML/JSON file or a directory of definition files.
catalog:
  path: ""

# Where resolved commands are delivered and where ` + "`apiprobe serve`" + ` listens.
bridge:
  host: 127.0.0.1
  port: 8765
  # target: http://127.0.0.1:8765

# Commands fired on a cron schedule by ` + "`apiprobe schedule`" + `.
schedules: []
#  - name: heartbeat
#    spec: "@every 30s"
#    category: common
#    api: ping
`

// CatalogConfig selects the catalog source.
type CatalogConfig struct {
	Path string `yaml:"path,omitempty"`
}

// BridgeConfig captures transport preferences.
type BridgeConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
	Target  string `yaml:"target,omitempty"`
}

// ScheduleConfig declares one recurring command.
type ScheduleConfig struct {
	Name     string `yaml:"name"`
	Spec     string `yaml:"spec"`
	Category string `yaml:"category"`
	API      string `yaml:"api"`
}

// ProjectConfig models .apiprobe/config.yaml.
type ProjectConfig struct {
	Version   int              `yaml:"version"`
	Catalog   CatalogConfig    `yaml:"catalog"`
	Bridge    BridgeConfig     `yaml:"bridge"`
	Schedules []ScheduleConfig `yaml:"schedules"`
}

// envOverrides lists the environment variables that take precedence over
// config.yaml.
type envOverrides struct {
	CatalogPath   string `env:"APIPROBE_CATALOG"`
	BridgeEnabled *bool  `env:"APIPROBE_BRIDGE_ENABLED"`
	BridgeHost    string `env:"APIPROBE_BRIDGE_HOST"`
	BridgePort    int    `env:"APIPROBE_BRIDGE_PORT"`
	BridgeTarget  string `env:"APIPROBE_TARGET"`
}

// Config holds the runtime configuration for apiprobe.
type Config struct {
	// ProjectDir is the directory where the user ran `apiprobe` from
	ProjectDir string

	// ProbeProjectDir is ProjectDir/.apiprobe
	ProbeProjectDir string

	Project ProjectConfig
}

// InitProjectDir creates the .apiprobe directory structure in the given project directory.
//
// Structure created:
// .apiprobe/
// ├── config.yaml
// ├── logs/        <- apiprobe.log and the dispatch journal
// ├── catalog/     <- optional YAML/JSON catalog definitions
// └── producers/   <- optional Go scripts declaring dynamic producers
func InitProjectDir(projectDir string) error {
	probeDir := filepath.Join(projectDir, ProbeDir)
	dirs := []string{
		filepath.Join(probeDir, "logs"),
		filepath.Join(probeDir, "catalog"),
		filepath.Join(probeDir, "producers"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(probeDir, "config.yaml"))
}

// NewConfig creates a new Config populated from config.yaml and the environment.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:      projectDir,
		ProbeProjectDir: filepath.Join(projectDir, ProbeDir),
		Project:         defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.ProbeProjectDir, "logs")
}

// LogPath returns the diagnostic log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "apiprobe.log")
}

// JournalPath returns the dispatch journal file.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "journal.log")
}

// ProducersDir returns the directory scanned for producer scripts.
func (c *Config) ProducersDir() string {
	return filepath.Join(c.ProbeProjectDir, "producers")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ProbeProjectDir, "config.yaml")
}

// CatalogPath returns the configured catalog definition path, or "" when the
// built-in catalog should be used.
func (c *Config) CatalogPath() string {
	return c.Project.Catalog.Path
}

// SetCatalogPath overrides the catalog source for this run without persisting it.
func (c *Config) SetCatalogPath(path string) {
	c.Project.Catalog.Path = resolvePath(c.ProjectDir, path)
}

// BridgeEnabled reports whether the bridge server may be started.
func (c *Config) BridgeEnabled() bool {
	if c.Project.Bridge.Enabled == nil {
		return true
	}
	return *c.Project.Bridge.Enabled
}

// BridgeTarget returns the base URL commands are delivered to.
func (c *Config) BridgeTarget() string {
	if c.Project.Bridge.Target != "" {
		return c.Project.Bridge.Target
	}
	return fmt.Sprintf("http://%s:%d", c.Project.Bridge.Host, c.Project.Bridge.Port)
}

// Schedules returns the configured recurring commands.
func (c *Config) Schedules() []ScheduleConfig {
	return c.Project.Schedules
}

// AddSchedule appends a recurring command and persists it to .apiprobe/config.yaml.
func (c *Config) AddSchedule(s ScheduleConfig) error {
	s.normalize()
	if err := s.validate(); err != nil {
		return fmt.Errorf("config: schedule: %w", err)
	}
	for _, existing := range c.Project.Schedules {
		if existing.Name == s.Name {
			return fmt.Errorf("config: schedule %s already exists", s.Name)
		}
	}
	c.Project.Schedules = append(c.Project.Schedules, s)
	return c.saveProjectConfig()
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
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	if overrides.CatalogPath != "" {
		c.SetCatalogPath(overrides.CatalogPath)
	}
	if overrides.BridgeEnabled != nil {
		enabled := *overrides.BridgeEnabled
		c.Project.Bridge.Enabled = &enabled
	}
	if host := strings.TrimSpace(overrides.BridgeHost); host != "" {
		c.Project.Bridge.Host = host
	}
	if overrides.BridgePort != 0 {
		if !isValidPort(overrides.BridgePort) {
			return fmt.Errorf("config: APIPROBE_BRIDGE_PORT %d out of range", overrides.BridgePort)
		}
		c.Project.Bridge.Port = overrides.BridgePort
	}
	if target := strings.TrimSpace(overrides.BridgeTarget); target != "" {
		c.Project.Bridge.Target = strings.TrimRight(target, "/")
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Bridge: BridgeConfig{
			Host: DefaultBridgeHost,
			Port: DefaultBridgePort,
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Bridge.Host) == "" {
		pc.Bridge.Host = DefaultBridgeHost
	}
	if pc.Bridge.Port == 0 {
		pc.Bridge.Port = DefaultBridgePort
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Catalog.Path = resolvePath(base, pc.Catalog.Path)
	pc.Bridge.Host = strings.TrimSpace(pc.Bridge.Host)
	pc.Bridge.Target = strings.TrimRight(strings.TrimSpace(pc.Bridge.Target), "/")
	for i := range pc.Schedules {
		pc.Schedules[i].normalize()
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if !isValidPort(pc.Bridge.Port) {
		return fmt.Errorf("bridge.port %d out of range", pc.Bridge.Port)
	}
	if pc.Bridge.Target != "" && !strings.HasPrefix(pc.Bridge.Target, "http://") && !strings.HasPrefix(pc.Bridge.Target, "https://") {
		return fmt.Errorf("bridge.target must be an http(s) URL")
	}
	seen := make(map[string]struct{}, len(pc.Schedules))
	for i := range pc.Schedules {
		if err := pc.Schedules[i].validate(); err != nil {
			return fmt.Errorf("schedules[%d]: %w", i, err)
		}
		if _, exists := seen[pc.Schedules[i].Name]; exists {
			return fmt.Errorf("schedules[%d]: duplicate name %s", i, pc.Schedules[i].Name)
		}
		seen[pc.Schedules[i].Name] = struct{}{}
	}
	return nil
}

func (s *ScheduleConfig) normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Spec = strings.TrimSpace(s.Spec)
	s.Category = strings.TrimSpace(s.Category)
	s.API = strings.TrimSpace(s.API)
}

func (s ScheduleConfig) validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("name is required")
	case s.Spec == "":
		return fmt.Errorf("spec is required for %s", s.Name)
	case s.Category == "" || s.API == "":
		return fmt.Errorf("category and api are required for %s", s.Name)
	}
	return nil
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.ProbeProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure probe dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
