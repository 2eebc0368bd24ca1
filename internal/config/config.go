// Package config loads view options and server settings from a JSON or
// YAML file, with environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	cluster "github.com/MadAppGang/animcluster"
)

// Environment variables read by ApplyEnv
const (
	EnvMinDistance  = "ANIMCLUSTER_MIN_DISTANCE"
	EnvMoveDuration = "ANIMCLUSTER_MOVE_DURATION"
	EnvShowClusters = "ANIMCLUSTER_SHOW_CLUSTERS"
	EnvPressRadius  = "ANIMCLUSTER_PRESS_RADIUS"
	EnvAddr         = "ANIMCLUSTER_ADDR"
)

// DefaultAddr is where the server listens when nothing is configured
const DefaultAddr = ":8080"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root configuration. Every field is optional, the Get*
// methods fall back to defaults for missing ones, so partial files are fine.
type Config struct {
	MinDistance  *float64 `json:"min_distance,omitempty" yaml:"min_distance,omitempty"`
	MoveDuration *string  `json:"move_duration,omitempty" yaml:"move_duration,omitempty"` // duration string like "300ms"
	ShowClusters *bool    `json:"show_clusters,omitempty" yaml:"show_clusters,omitempty"`
	PressRadius  *float64 `json:"press_radius,omitempty" yaml:"press_radius,omitempty"`

	Addr     *string `json:"addr,omitempty" yaml:"addr,omitempty"`
	MaxViews *int    `json:"max_views,omitempty" yaml:"max_views,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// Load reads a config file. The extension picks the format: .json, .yaml
// or .yml. The result is validated.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDotenv loads .env style files into the process environment.
// Variables already set win, missing files are skipped.
func LoadDotenv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from the environment, lookup is usually
// os.LookupEnv. The result is validated.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvMinDistance); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMinDistance, err)
		}
		c.MinDistance = ptrFloat64(f)
	}
	if v, ok := lookup(EnvMoveDuration); ok && v != "" {
		c.MoveDuration = ptrString(v)
	}
	if v, ok := lookup(EnvShowClusters); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvShowClusters, err)
		}
		c.ShowClusters = ptrBool(b)
	}
	if v, ok := lookup(EnvPressRadius); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPressRadius, err)
		}
		c.PressRadius = ptrFloat64(f)
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Addr = ptrString(v)
	}
	return c.Validate()
}

// Validate checks the values that are set
func (c *Config) Validate() error {
	if c.MinDistance != nil && *c.MinDistance < 0 {
		return fmt.Errorf("min_distance must be non-negative, got %f", *c.MinDistance)
	}
	if c.MoveDuration != nil && *c.MoveDuration != "" {
		d, err := time.ParseDuration(*c.MoveDuration)
		if err != nil {
			return fmt.Errorf("invalid move_duration '%s': %w", *c.MoveDuration, err)
		}
		if d < 0 {
			return fmt.Errorf("move_duration must be non-negative, got %s", d)
		}
	}
	if c.PressRadius != nil && *c.PressRadius < 0 {
		return fmt.Errorf("press_radius must be non-negative, got %f", *c.PressRadius)
	}
	if c.MaxViews != nil && *c.MaxViews < 0 {
		return fmt.Errorf("max_views must be non-negative, got %d", *c.MaxViews)
	}
	return nil
}

// GetMinDistance returns min_distance or the default
func (c *Config) GetMinDistance() float64 {
	if c.MinDistance == nil {
		return cluster.DefaultMinDistance
	}
	return *c.MinDistance
}

// GetMoveDuration parses move_duration, the default on a missing or bad value
func (c *Config) GetMoveDuration() time.Duration {
	if c.MoveDuration == nil || *c.MoveDuration == "" {
		return cluster.DefaultMoveDuration
	}
	d, err := time.ParseDuration(*c.MoveDuration)
	if err != nil {
		return cluster.DefaultMoveDuration
	}
	return d
}

// GetShowClusters returns show_clusters or the default
func (c *Config) GetShowClusters() bool {
	if c.ShowClusters == nil {
		return true
	}
	return *c.ShowClusters
}

// GetPressRadius returns press_radius or the default
func (c *Config) GetPressRadius() float64 {
	if c.PressRadius == nil {
		return 0
	}
	return *c.PressRadius
}

// GetAddr returns addr or DefaultAddr
func (c *Config) GetAddr() string {
	if c.Addr == nil || *c.Addr == "" {
		return DefaultAddr
	}
	return *c.Addr
}

// GetMaxViews returns max_views, 0 means unlimited
func (c *Config) GetMaxViews() int {
	if c.MaxViews == nil {
		return 0
	}
	return *c.MaxViews
}

// Options converts the config into view options
func (c *Config) Options() cluster.Options {
	return cluster.Options{
		MinDistance:  c.GetMinDistance(),
		MoveDuration: c.GetMoveDuration(),
		ShowClusters: c.GetShowClusters(),
		PressRadius:  c.GetPressRadius(),
	}
}
