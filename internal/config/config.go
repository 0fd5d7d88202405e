// Package config provides configuration loading and validation for the
// service. Values come from an optional JSON file, environment variables, and
// defaults, in that order of increasing precedence for the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Defaults applied when neither the file nor the environment provides a
// value.
const (
	DefaultPort              = 3001
	DefaultDataDir           = "data"
	DefaultGeneratedDir      = "generated_modules"
	DefaultCompiledDir       = "compiled_modules"
	DefaultWidgetDir         = "generated_widgets"
	DefaultToolchainEnv      = "uad_main"
	DefaultToolchainTimeout  = 600 // seconds
	DefaultSimulateDelayMs   = 2000
	DefaultCurrentModulePath = "src/current_module.h"
)

// Toolchain configures the compile stage.
type Toolchain struct {
	// Simulate selects the placeholder compiler instead of PlatformIO. Nil
	// means true: deployments must opt in to real builds.
	Simulate *bool `json:"simulate,omitempty"`
	// ProjectRoot is the PlatformIO project directory.
	ProjectRoot string `json:"project_root,omitempty"`
	// Environment is the PlatformIO environment name.
	Environment string `json:"environment,omitempty"`
	// CurrentModulePath is the build slot, relative to ProjectRoot.
	CurrentModulePath string `json:"current_module_path,omitempty"`
	// Command overrides the toolchain invocation. Empty means
	// ["platformio", "run", "-e", Environment].
	Command []string `json:"command,omitempty"`
	// TimeoutSeconds bounds one compile run.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
	// SimulateDelayMs is the fake compile duration in simulate mode.
	SimulateDelayMs int `json:"simulate_delay_ms,omitempty"`
}

// Config is the full service configuration.
type Config struct {
	Port   int    `json:"port,omitempty"`
	APIKey string `json:"api_key,omitempty"`

	// DataDir holds modes.json and my_modes.json.
	DataDir string `json:"data_dir,omitempty"`
	// GeneratedModulesDir receives generated C++ modules.
	GeneratedModulesDir string `json:"generated_modules_dir,omitempty"`
	// CompiledModulesDir receives build artifacts.
	CompiledModulesDir string `json:"compiled_modules_dir,omitempty"`
	// GeneratedWidgetsDir receives generated dashboard widgets.
	GeneratedWidgetsDir string `json:"generated_widgets_dir,omitempty"`
	// TailwindConfig optionally points at the dashboard tailwind config,
	// embedded into widget prompts when present.
	TailwindConfig string `json:"tailwind_config,omitempty"`

	// DefaultBundle is the firmware header flashed on a reset/default
	// activation.
	DefaultBundle string `json:"default_bundle,omitempty"`

	Toolchain Toolchain `json:"toolchain"`

	Verbose bool `json:"verbose,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Port:                DefaultPort,
		DataDir:             DefaultDataDir,
		GeneratedModulesDir: DefaultGeneratedDir,
		CompiledModulesDir:  DefaultCompiledDir,
		GeneratedWidgetsDir: DefaultWidgetDir,
		Toolchain: Toolchain{
			Environment:       DefaultToolchainEnv,
			CurrentModulePath: DefaultCurrentModulePath,
			TimeoutSeconds:    DefaultToolchainTimeout,
			SimulateDelayMs:   DefaultSimulateDelayMs,
		},
	}
}

// LoadConfig loads a JSON config file and fills unset fields with defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// ApplyEnv overlays environment variables onto the config. GEMINI_API_KEY and
// PORT take precedence over file values.
func (c *Config) ApplyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.APIKey = key
	}
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			c.Port = n
		}
	}
}

// Validate checks value ranges and path coherence. The API key is not
// required here: simulate-mode smoke runs and registry-only commands work
// without one, and commands that need it check on their own.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be in 1..65535")
	}
	if c.Toolchain.TimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'toolchain.timeout_seconds' must be non-negative")
	}
	if !c.Toolchain.SimulateEnabled() && c.Toolchain.ProjectRoot == "" {
		return fmt.Errorf("config error: 'toolchain.project_root' is required when simulate is disabled")
	}
	return nil
}

// EnsureDirs creates the working directories the service writes into.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.GeneratedModulesDir, c.CompiledModulesDir, c.GeneratedWidgetsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath is the on-disk location of the mode catalog.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataDir, "modes.json")
}

// LibraryPath is the on-disk location of the user mode library.
func (c *Config) LibraryPath() string {
	return filepath.Join(c.DataDir, "my_modes.json")
}

// SimulateEnabled reports whether the placeholder compiler is selected.
// Defaults to true when unset.
func (t Toolchain) SimulateEnabled() bool {
	return t.Simulate == nil || *t.Simulate
}

// BuildCommand returns the toolchain invocation, defaulting to a PlatformIO
// run for the configured environment.
func (t Toolchain) BuildCommand() []string {
	if len(t.Command) > 0 {
		return t.Command
	}
	return []string{"platformio", "run", "-e", t.Environment}
}

// OutputBinary is the toolchain's produced binary, relative to ProjectRoot.
func (t Toolchain) OutputBinary() string {
	return filepath.Join(".pio", "build", t.Environment, "firmware.bin")
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.GeneratedModulesDir == "" {
		c.GeneratedModulesDir = def.GeneratedModulesDir
	}
	if c.CompiledModulesDir == "" {
		c.CompiledModulesDir = def.CompiledModulesDir
	}
	if c.GeneratedWidgetsDir == "" {
		c.GeneratedWidgetsDir = def.GeneratedWidgetsDir
	}
	if c.Toolchain.Environment == "" {
		c.Toolchain.Environment = def.Toolchain.Environment
	}
	if c.Toolchain.CurrentModulePath == "" {
		c.Toolchain.CurrentModulePath = def.Toolchain.CurrentModulePath
	}
	if c.Toolchain.TimeoutSeconds == 0 {
		c.Toolchain.TimeoutSeconds = def.Toolchain.TimeoutSeconds
	}
	if c.Toolchain.SimulateDelayMs == 0 {
		c.Toolchain.SimulateDelayMs = def.Toolchain.SimulateDelayMs
	}
}
