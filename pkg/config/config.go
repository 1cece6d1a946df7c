// Package config provides configuration loading and management for
// resample3d. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Resampling parameters
	Resample struct {
		// Target is the resampling target: a number, a "x,y,z" triple,
		// a sibling image name, or the path of a reference volume
		Target string `yaml:"target"`

		// Interpolation is the kernel used for continuous volumes:
		// nearest, linear or bspline
		Interpolation string `yaml:"interpolation"`

		// PreAffineName names a per-image matrix applied to the affine
		// before resampling
		PreAffineName string `yaml:"preAffineName"`

		// ScalarsOnly skips label volumes instead of resampling them
		// with the nearest kernel
		ScalarsOnly bool `yaml:"scalarsOnly"`

		// AntiAlias enables a Gaussian pre-filter on downsampled axes
		AntiAlias bool `yaml:"antiAlias"`
	} `yaml:"resample"`

	// Intensity rescale parameters
	Rescale struct {
		// Enabled turns on intensity rescaling after resampling
		Enabled bool `yaml:"enabled"`

		// OutMin and OutMax bound the output intensity range
		OutMin float64 `yaml:"outMin"`
		OutMax float64 `yaml:"outMax"`

		// LowerPercentile and UpperPercentile select the input cutoffs
		LowerPercentile float64 `yaml:"lowerPercentile"`
		UpperPercentile float64 `yaml:"upperPercentile"`

		// MaskName names a sibling image whose nonzero voxels select
		// the values used for the percentile cutoffs
		MaskName string `yaml:"maskName"`
	} `yaml:"rescale"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default resampling parameters
	cfg.Resample.Target = "1"
	cfg.Resample.Interpolation = "linear"

	// Set default rescale parameters
	cfg.Rescale.OutMin = 0
	cfg.Rescale.OutMax = 1
	cfg.Rescale.LowerPercentile = 0
	cfg.Rescale.UpperPercentile = 100

	// Set default output parameters
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
