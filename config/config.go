// Package config provides configuration loading for the physics system.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// MaxIterations is the upper bound of PhysicsConfig.MaxIterations, the size of a collision result
const MaxIterations = 10

var ErrInvalid = errors.New("config: invalid value")

// Config holds all configuration parameters.
type Config struct {
	Physics PhysicsConfig `yaml:"physics"`
	Logging LoggingConfig `yaml:"logging"`
}

// PhysicsConfig holds the tuning of the broad phase, the narrow phase and movement resolution.
type PhysicsConfig struct {
	FatMargin          float64 `yaml:"fat_margin"`          // Broad phase leaf margin
	MaxIterations      int     `yaml:"max_iterations"`      // Resolution passes per move
	EPAIterations      int     `yaml:"epa_iterations"`      // Polytope expansion cap
	EPATravelBias      float64 `yaml:"epa_travel_bias"`     // Face discount along the direction of travel
	GroundedThreshold  float64 `yaml:"grounded_threshold"`  // Minimum normal.y to stand on a contact
	PenetrationEpsilon float64 `yaml:"penetration_epsilon"` // Added to every penetration depth
	TOISteps           int     `yaml:"toi_steps"`           // Time of impact bisection steps
	Slide              bool    `yaml:"slide"`               // Continue the movement left after a contact along the contact surface
	DefaultLayer       uint16  `yaml:"default_layer"`
	DefaultMask        uint16  `yaml:"default_mask"`
	Workers            int     `yaml:"workers"` // Goroutines refitting moved colliders in Update, 0 uses GOMAXPROCS
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: invalid embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every value is usable by the physics system.
func (c *Config) Validate() error {
	p := c.Physics

	switch {
	case p.FatMargin <= 0:
		return fmt.Errorf("%w: physics.fat_margin must be positive, got %v", ErrInvalid, p.FatMargin)
	case p.MaxIterations < 1 || p.MaxIterations > MaxIterations:
		return fmt.Errorf("%w: physics.max_iterations must be within [1, %d], got %d", ErrInvalid, MaxIterations, p.MaxIterations)
	case p.EPAIterations < 1:
		return fmt.Errorf("%w: physics.epa_iterations must be at least 1, got %d", ErrInvalid, p.EPAIterations)
	case p.EPATravelBias < 0 || p.EPATravelBias >= 1:
		return fmt.Errorf("%w: physics.epa_travel_bias must be within [0, 1), got %v", ErrInvalid, p.EPATravelBias)
	case p.GroundedThreshold < 0 || p.GroundedThreshold > 1:
		return fmt.Errorf("%w: physics.grounded_threshold must be within [0, 1], got %v", ErrInvalid, p.GroundedThreshold)
	case p.PenetrationEpsilon < 0:
		return fmt.Errorf("%w: physics.penetration_epsilon must not be negative, got %v", ErrInvalid, p.PenetrationEpsilon)
	case p.TOISteps < 0:
		return fmt.Errorf("%w: physics.toi_steps must not be negative, got %d", ErrInvalid, p.TOISteps)
	case p.Workers < 0:
		return fmt.Errorf("%w: physics.workers must not be negative, got %d", ErrInvalid, p.Workers)
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be text or json, got %q", ErrInvalid, c.Logging.Format)
	}

	return nil
}

// NewLogger builds the configured slog handler writing to w.
func NewLogger(w io.Writer, cfg LoggingConfig) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(level string) (slog.Level, error) {
	if level == "" {
		return slog.LevelInfo, nil
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("%w: logging.level: %v", ErrInvalid, err)
	}
	return l, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
