// internal/config/config.go
//
// This package handles configuration and the .narrate directory structure.
// A project that uses narrate gets a .narrate/ folder next to its notebooks.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// NarrateDir is the name of the directory we create in each project
	NarrateDir = ".narrate"

	defaultNotebook = "notebooks/analysis.ipynb"
	defaultPlan     = "narrative.yaml"
	defaultIndent   = 1
	maxIndent       = 8
)

const defaultProjectConfigYAML = `# narrate project configuration
version: 1

# Notebook to narrate and the plan describing the passages to insert.
# Relative paths resolve against the project directory.
notebook: notebooks/analysis.ipynb
plan: narrative.yaml

output:
  # Spaces per indentation level when the notebook is written back.
  indent: 1
`

// OutputConfig controls how notebooks are written.
type OutputConfig struct {
	Indent int `yaml:"indent"`
}

// ProjectConfig models .narrate/config.yaml.
type ProjectConfig struct {
	Version  int          `yaml:"version"`
	Notebook string       `yaml:"notebook"`
	Plan     string       `yaml:"plan"`
	Output   OutputConfig `yaml:"output"`
}

// Config holds the runtime configuration for narrate.
type Config struct {
	// ProjectDir is the directory narrate was started from
	ProjectDir string

	// NarrateProjectDir is ProjectDir/.narrate
	NarrateProjectDir string

	Project ProjectConfig
}

// InitDir creates the .narrate directory structure in the given project directory.
//
// Structure created:
// .narrate/
// ├── config.yaml
// ├── logs/         <- Run journal
// └── state/        <- Ledger of applied runs
func InitDir(projectDir string) error {
	narrateDir := filepath.Join(projectDir, NarrateDir)
	dirs := []string{
		filepath.Join(narrateDir, "logs"),
		filepath.Join(narrateDir, "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return ensureProjectConfig(filepath.Join(narrateDir, "config.yaml"))
}

// NewConfig creates a Config populated with project settings. A missing
// config file leaves the defaults in place.
func NewConfig(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve project dir: %w", err)
	}
	cfg := &Config{
		ProjectDir:        abs,
		NarrateProjectDir: filepath.Join(abs, NarrateDir),
		Project:           defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.NarrateProjectDir, "logs")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.NarrateProjectDir, "state")
}

// LogPath returns the run journal location.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "narrate.log")
}

// LedgerPath returns the ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.StateDir(), "ledger.json")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.NarrateProjectDir, "config.yaml")
}

// NotebookPath returns the configured notebook, resolved against the project.
func (c *Config) NotebookPath() string {
	return c.Resolve(c.Project.Notebook)
}

// PlanPath returns the configured plan file, resolved against the project.
func (c *Config) PlanPath() string {
	return c.Resolve(c.Project.Plan)
}

// Indent returns the indentation string used when writing notebooks.
func (c *Config) Indent() string {
	return strings.Repeat(" ", c.Project.Output.Indent)
}

// Resolve makes a path absolute relative to the project directory.
func (c *Config) Resolve(path string) string {
	return resolvePath(c.ProjectDir, path)
}

// SetPaths updates the notebook and plan locations and persists them to
// .narrate/config.yaml. Empty values leave the current setting alone.
func (c *Config) SetPaths(notebook, plan string) error {
	if v := strings.TrimSpace(notebook); v != "" {
		c.Project.Notebook = v
	}
	if v := strings.TrimSpace(plan); v != "" {
		c.Project.Plan = v
	}
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
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:  1,
		Notebook: defaultNotebook,
		Plan:     defaultPlan,
		Output:   OutputConfig{Indent: defaultIndent},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Notebook) == "" {
		pc.Notebook = defaultNotebook
	}
	if strings.TrimSpace(pc.Plan) == "" {
		pc.Plan = defaultPlan
	}
	if pc.Output.Indent == 0 {
		pc.Output.Indent = defaultIndent
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Notebook = strings.TrimSpace(pc.Notebook)
	pc.Plan = strings.TrimSpace(pc.Plan)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Output.Indent < 0 || pc.Output.Indent > maxIndent {
		return fmt.Errorf("output.indent must be between 0 and %d", maxIndent)
	}
	if !strings.HasSuffix(strings.ToLower(pc.Notebook), ".ipynb") {
		return fmt.Errorf("notebook must be an .ipynb file")
	}
	return nil
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
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.NarrateProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure narrate dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
