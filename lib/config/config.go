// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Duration is a time.Duration written in YAML as a duration string.
type Duration time.Duration

// UnmarshalYAML parses "250ms"-style strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", value.Line, err)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the master configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Transport TransportConfig `yaml:"transport"`
	Inspector InspectorConfig `yaml:"inspector"`
	Probe     ProbeConfig     `yaml:"probe"`

	// Per-environment overrides, decoded over the base sections.
	Development *yaml.Node `yaml:"development,omitempty"`
	Staging     *yaml.Node `yaml:"staging,omitempty"`
	Production  *yaml.Node `yaml:"production,omitempty"`
}

// TransportConfig configures the debugger listener and frame limits.
type TransportConfig struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// PortRetries is how many consecutive ports Listen tries,
	// starting at Port.
	PortRetries int `yaml:"port_retries"`

	// InboxLimitBytes caps decoded-but-unprocessed input per
	// connection. Exceeding it drops the connection.
	InboxLimitBytes int `yaml:"inbox_limit_bytes"`

	MaxFrameBytes int `yaml:"max_frame_bytes"`

	// CompressThresholdBytes is the payload size above which frames
	// are LZ4-compressed. Zero disables compression.
	CompressThresholdBytes int `yaml:"compress_threshold_bytes"`
}

// InspectorConfig configures the editor-side session.
type InspectorConfig struct {
	TickBudget             Duration `yaml:"tick_budget"`
	TreeRefreshInterval    Duration `yaml:"tree_refresh_interval"`
	InspectRefreshInterval Duration `yaml:"inspect_refresh_interval"`
	EditGrace              Duration `yaml:"edit_grace"`

	PerformanceHistory   int `yaml:"performance_history"`
	ProfilerMaxFunctions int `yaml:"profiler_max_functions"`
	ProfilerFrameHistory int `yaml:"profiler_frame_history"`

	// WatchScripts lists directories whose script changes trigger
	// reload_scripts on the running game.
	WatchScripts []string `yaml:"watch_scripts"`

	GraphWidth  int `yaml:"graph_width"`
	GraphHeight int `yaml:"graph_height"`
}

// ProbeConfig configures the game-side agent.
type ProbeConfig struct {
	InspectorAddress string `yaml:"inspector_address"`
	FrameRate        int    `yaml:"frame_rate"`

	PerformanceInterval    Duration `yaml:"performance_interval"`
	NetworkProfileInterval Duration `yaml:"network_profile_interval"`

	ResourceCacheBytes int64  `yaml:"resource_cache_bytes"`
	SceneDir           string `yaml:"scene_dir"`
}

// Default returns the configuration used before a file is applied.
func Default() *Config {
	return &Config{
		Environment: Development,
		Transport: TransportConfig{
			BindAddress:            "127.0.0.1",
			Port:                   6007,
			PortRetries:            6,
			InboxLimitBytes:        8 << 20,
			MaxFrameBytes:          8 << 20,
			CompressThresholdBytes: 4096,
		},
		Inspector: InspectorConfig{
			TickBudget:             Duration(20 * time.Millisecond),
			TreeRefreshInterval:    Duration(time.Second),
			InspectRefreshInterval: Duration(200 * time.Millisecond),
			EditGrace:              Duration(700 * time.Millisecond),
			PerformanceHistory:     2048,
			ProfilerMaxFunctions:   64,
			ProfilerFrameHistory:   600,
			GraphWidth:             960,
			GraphHeight:            640,
		},
		Probe: ProbeConfig{
			InspectorAddress:       "127.0.0.1:6007",
			FrameRate:              60,
			PerformanceInterval:    Duration(time.Second),
			NetworkProfileInterval: Duration(time.Second),
			ResourceCacheBytes:     64 << 20,
			SceneDir:               "scenes",
		},
	}
}

// Load loads configuration from the file named by LIVEINSPECT_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("LIVEINSPECT_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("LIVEINSPECT_CONFIG environment variable not set; " +
			"set it to the path of a liveinspect.yaml file, or use --config")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over the defaults, applies the
// matching environment section, and expands variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

// sections is the decode target for an environment override. Decoding
// a yaml.Node into pre-populated structs only touches keys present in
// the node.
type sections struct {
	Transport *TransportConfig `yaml:"transport"`
	Inspector *InspectorConfig `yaml:"inspector"`
	Probe     *ProbeConfig     `yaml:"probe"`
}

func (c *Config) applyEnvironmentOverrides() error {
	var node *yaml.Node
	switch c.Environment {
	case Development:
		node = c.Development
	case Staging:
		node = c.Staging
	case Production:
		node = c.Production
	}
	if node == nil {
		return nil
	}
	target := sections{Transport: &c.Transport, Inspector: &c.Inspector, Probe: &c.Probe}
	if err := node.Decode(&target); err != nil {
		return fmt.Errorf("%s overrides: %w", c.Environment, err)
	}
	return nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Transport.BindAddress = expandVars(c.Transport.BindAddress, vars)
	c.Probe.InspectorAddress = expandVars(c.Probe.InspectorAddress, vars)
	c.Probe.SceneDir = expandVars(c.Probe.SceneDir, vars)
	for i, dir := range c.Inspector.WatchScripts {
		c.Inspector.WatchScripts[i] = expandVars(dir, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, consulting vars
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Transport.Port <= 0 || c.Transport.Port > 65535 {
		errs = append(errs, fmt.Errorf("transport.port must be in 1..65535, got %d", c.Transport.Port))
	}
	if c.Transport.PortRetries < 1 {
		errs = append(errs, fmt.Errorf("transport.port_retries must be at least 1"))
	}
	if c.Transport.MaxFrameBytes <= 0 {
		errs = append(errs, fmt.Errorf("transport.max_frame_bytes must be positive"))
	}
	if c.Transport.InboxLimitBytes < c.Transport.MaxFrameBytes {
		errs = append(errs, fmt.Errorf("transport.inbox_limit_bytes (%d) must be at least max_frame_bytes (%d)",
			c.Transport.InboxLimitBytes, c.Transport.MaxFrameBytes))
	}
	if c.Inspector.TickBudget <= 0 {
		errs = append(errs, fmt.Errorf("inspector.tick_budget must be positive"))
	}
	if c.Inspector.PerformanceHistory <= 0 {
		errs = append(errs, fmt.Errorf("inspector.performance_history must be positive"))
	}
	if c.Inspector.ProfilerMaxFunctions < 16 || c.Inspector.ProfilerMaxFunctions > 512 {
		errs = append(errs, fmt.Errorf("inspector.profiler_max_functions must be in 16..512, got %d",
			c.Inspector.ProfilerMaxFunctions))
	}
	if c.Probe.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("probe.frame_rate must be positive"))
	}

	return errors.Join(errs...)
}
