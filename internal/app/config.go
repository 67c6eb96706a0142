// Package app wires the picture processor into a runnable session and
// manages its configuration.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"nesppu/internal/graphics"
	"nesppu/internal/ppu"
	"nesppu/internal/statsview"
)

// Config holds all application configuration
type Config struct {
	Window WindowConfig `json:"window"`
	Video  VideoConfig  `json:"video"`
	Script ScriptConfig `json:"script"`
	Debug  DebugConfig  `json:"debug"`

	// Internal state
	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Title      string `json:"title"`
	Scale      int    `json:"scale"` // multiple of 256x240
	Fullscreen bool   `json:"fullscreen"`
	VSync      bool   `json:"vsync"`
}

// VideoConfig selects the renderer sink and the timing standard
type VideoConfig struct {
	Backend    string  `json:"backend"`  // "ebitengine", "headless", "terminal"
	Standard   string  `json:"standard"` // "NTSC", "PAL"
	Filter     string  `json:"filter"`   // "nearest", "linear"
	Brightness float32 `json:"brightness"`
	Contrast   float32 `json:"contrast"`
	Saturation float32 `json:"saturation"`

	// Frame dumps, headless backend only
	DumpDir   string `json:"dump_dir"`
	DumpEvery int    `json:"dump_every"`
	DumpScale int    `json:"dump_scale"`
	MaxDumps  int    `json:"max_dumps"`
}

// ScriptConfig names the Lua register program driving the chip
type ScriptConfig struct {
	Path string `json:"path"`
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	StateGraph    string `json:"state_graph"` // Graphviz file written on exit
	StateDump     string `json:"state_dump"`  // JSON state record written on exit
	Statsview     bool   `json:"statsview"`
	StatsviewAddr string `json:"statsview_addr"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Title: "nesppu",
			Scale: 2,
			VSync: true,
		},
		Video: VideoConfig{
			Backend:    string(graphics.BackendEbitengine),
			Standard:   ppu.NTSC.String(),
			Filter:     "nearest",
			Brightness: 1.0,
			Contrast:   1.0,
			Saturation: 1.0,
			DumpEvery:  1,
			DumpScale:  1,
		},
		Debug: DebugConfig{
			StatsviewAddr: statsview.DefaultAddress,
		},
	}
}

// LoadConfig returns the defaults overlaid with the file at path. A
// missing file is created with the defaults.
func LoadConfig(path string) (*Config, error) {
	c := NewConfig()
	if err := c.LoadFromFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFromFile loads configuration from a JSON file
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the current config file
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config file path set")
	}
	return c.SaveToFile(c.configPath)
}

// Validate rejects unknown backends and standards and resets out of range
// presentation values to their defaults.
func (c *Config) Validate() error {
	switch graphics.BackendType(c.Video.Backend) {
	case graphics.BackendEbitengine, graphics.BackendHeadless, graphics.BackendTerminal:
	default:
		return &ConfigError{Field: "video.backend", Value: c.Video.Backend, Err: fmt.Errorf("unknown backend")}
	}
	if _, err := ppu.ParseStandard(c.Video.Standard); err != nil {
		return &ConfigError{Field: "video.standard", Value: c.Video.Standard, Err: err}
	}

	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}
	if c.Video.Brightness < 0.1 || c.Video.Brightness > 3.0 {
		c.Video.Brightness = 1.0
	}
	if c.Video.Contrast < 0.1 || c.Video.Contrast > 3.0 {
		c.Video.Contrast = 1.0
	}
	if c.Video.Saturation < 0.0 || c.Video.Saturation > 3.0 {
		c.Video.Saturation = 1.0
	}
	if c.Video.DumpEvery <= 0 {
		c.Video.DumpEvery = 1
	}
	if c.Video.DumpScale <= 0 {
		c.Video.DumpScale = 1
	}
	if c.Video.MaxDumps < 0 {
		c.Video.MaxDumps = 0
	}
	if c.Debug.StatsviewAddr == "" {
		c.Debug.StatsviewAddr = statsview.DefaultAddress
	}
	return nil
}

// TimingStandard returns the configured standard
func (c *Config) TimingStandard() (ppu.Standard, error) {
	return ppu.ParseStandard(c.Video.Standard)
}

// GetWindowResolution returns the window resolution based on scale
func (c *Config) GetWindowResolution() (int, int) {
	return ppu.ScreenWidth * c.Window.Scale, ppu.ScreenHeight * c.Window.Scale
}

// GraphicsConfig converts the configuration for the graphics backends
func (c *Config) GraphicsConfig() graphics.Config {
	width, height := c.GetWindowResolution()
	return graphics.Config{
		WindowTitle:  c.Window.Title,
		WindowWidth:  width,
		WindowHeight: height,
		Fullscreen:   c.Window.Fullscreen,
		VSync:        c.Window.VSync,
		Filter:       c.Video.Filter,
		Headless:     graphics.BackendType(c.Video.Backend) != graphics.BackendEbitengine,
		Brightness:   c.Video.Brightness,
		Contrast:     c.Video.Contrast,
		Saturation:   c.Video.Saturation,
		DumpDir:      c.Video.DumpDir,
		DumpInterval: c.Video.DumpEvery,
		DumpScale:    c.Video.DumpScale,
		MaxDumps:     c.Video.MaxDumps,
	}
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return filepath.Join(GetDefaultConfigDir(), "nesppu.json")
}

// GetDefaultConfigDir returns the default configuration directory
func GetDefaultConfigDir() string {
	return "./config"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
