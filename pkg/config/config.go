// Package config provides configuration loading and management for kneescan.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// SkinThreshold is the marching cubes iso-value of the skin surface
	SkinThreshold float64 `yaml:"skinThreshold"`

	// BoneThreshold is the marching cubes iso-value of the bone surface
	BoneThreshold float64 `yaml:"boneThreshold"`

	// Clipping sphere applied to the skin near the joint
	ClipSphere struct {
		Center [3]float64 `yaml:"center"`
		Radius float64    `yaml:"radius"`

		// Value is the implicit function level kept by the clip
		Value float64 `yaml:"value"`
	} `yaml:"clipSphere"`

	// Reference rendering of the clipping sphere boundary
	ReferenceSphere struct {
		// Bounds is the sampling box as [xmin, xmax, ymin, ymax, zmin, zmax]
		Bounds [6]float64 `yaml:"bounds"`

		// Samples is the number of cells along the longest side of Bounds
		Samples int `yaml:"samples"`

		Opacity float64 `yaml:"opacity"`
	} `yaml:"referenceSphere"`

	// Banded-ring parameters
	Bands struct {
		// Spacing is the world distance between two cutting planes
		Spacing float64 `yaml:"spacing"`

		TubeRadius float64 `yaml:"tubeRadius"`
		TubeSides  int     `yaml:"tubeSides"`
	} `yaml:"bands"`

	// Transparency of the front skin faces in the semi-transparent view
	FrontOpacity float64 `yaml:"frontOpacity"`

	Window struct {
		Width  int    `yaml:"width"`
		Height int    `yaml:"height"`
		Title  string `yaml:"title"`
	} `yaml:"window"`

	// ViewportLayout controls how the four views are tiled in the window
	ViewportLayout struct {
		Rows int `yaml:"rows"`
		Cols int `yaml:"cols"`

		// Backgrounds holds one RGB tint per viewport in row-major order
		Backgrounds [][3]float64 `yaml:"backgrounds"`
	} `yaml:"viewportLayout"`

	// Camera shared by all viewports before each one is reset to its content
	Camera struct {
		Position   [3]float64 `yaml:"position"`
		FocalPoint [3]float64 `yaml:"focalPoint"`
		Elevation  float64    `yaml:"elevation"`
		Azimuth    float64    `yaml:"azimuth"`
		Roll       float64    `yaml:"roll"`
	} `yaml:"camera"`

	// Distance field between bone and skin
	Distance struct {
		// CachePath is where the computed field is stored between runs
		CachePath string `yaml:"cachePath"`

		// Neighbors is the number of nearest skin vertices whose triangles
		// are tested for every bone point
		Neighbors int `yaml:"neighbors"`

		// Signed makes points inside the skin negative
		Signed bool `yaml:"signed"`

		// NumCores specifies how many CPU cores to use for the computation
		NumCores int `yaml:"numCores"`
	} `yaml:"distance"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.SkinThreshold = 50
	cfg.BoneThreshold = 75

	cfg.ClipSphere.Center = [3]float64{80, 20, 120}
	cfg.ClipSphere.Radius = 60
	cfg.ClipSphere.Value = 1

	cfg.ReferenceSphere.Bounds = [6]float64{-1000, 1000, -1000, 1000, -1000, 1000}
	cfg.ReferenceSphere.Samples = 120
	cfg.ReferenceSphere.Opacity = 0.1

	cfg.Bands.Spacing = 10
	cfg.Bands.TubeRadius = 0.5
	cfg.Bands.TubeSides = 50

	cfg.FrontOpacity = 0.5

	cfg.Window.Width = 1200
	cfg.Window.Height = 780
	cfg.Window.Title = "kneescan"

	cfg.ViewportLayout.Rows = 2
	cfg.ViewportLayout.Cols = 2
	cfg.ViewportLayout.Backgrounds = [][3]float64{
		{1, 0.83, 0.83},
		{0.83, 1, 0.83},
		{0.83, 0.83, 1},
		{0.83, 0.83, 0.83},
	}

	cfg.Camera.Position = [3]float64{0, 0, 30}
	cfg.Camera.FocalPoint = [3]float64{0, 0, 0}
	cfg.Camera.Elevation = -100
	cfg.Camera.Azimuth = 0
	cfg.Camera.Roll = 180

	cfg.Distance.CachePath = "./distanceFilter.vtk"
	cfg.Distance.Neighbors = 8
	cfg.Distance.Signed = true
	cfg.Distance.NumCores = runtime.NumCPU() // Use all available cores by default

	cfg.Output.Verbose = true

	return cfg
}

// Validate checks that the configuration can drive a full run
func (c *Config) Validate() error {
	if c.ClipSphere.Radius <= 0 {
		return fmt.Errorf("clipSphere.radius must be positive, got %g", c.ClipSphere.Radius)
	}
	if c.Bands.Spacing <= 0 {
		return fmt.Errorf("bands.spacing must be positive, got %g", c.Bands.Spacing)
	}
	if c.Bands.TubeRadius <= 0 || c.Bands.TubeSides < 3 {
		return fmt.Errorf("bands.tubeRadius must be positive and bands.tubeSides at least 3")
	}
	if c.ReferenceSphere.Samples < 2 {
		return fmt.Errorf("referenceSphere.samples must be at least 2, got %d", c.ReferenceSphere.Samples)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	n := c.ViewportLayout.Rows * c.ViewportLayout.Cols
	if n != 4 {
		return fmt.Errorf("viewportLayout must hold exactly 4 viewports, got %dx%d", c.ViewportLayout.Rows, c.ViewportLayout.Cols)
	}
	if len(c.ViewportLayout.Backgrounds) != n {
		return fmt.Errorf("viewportLayout.backgrounds needs %d entries, got %d", n, len(c.ViewportLayout.Backgrounds))
	}
	if c.Distance.CachePath == "" {
		return fmt.Errorf("distance.cachePath must not be empty")
	}
	if c.Distance.Neighbors < 1 {
		return fmt.Errorf("distance.neighbors must be at least 1, got %d", c.Distance.Neighbors)
	}
	return nil
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

	if cfg.Distance.NumCores < 1 {
		cfg.Distance.NumCores = 1
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
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
