// Package config loads the YAML settings of the coping command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chazu/coping/pkg/classify"
	"github.com/chazu/coping/pkg/discovery"
	"github.com/chazu/coping/pkg/engine"
	"github.com/chazu/coping/pkg/scene"
	"github.com/chazu/coping/pkg/selector"
	"github.com/chazu/coping/pkg/tessellate"
)

// ErrInvalid wraps every Validate failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds all coping configuration.
type Config struct {
	Classification ClassificationConfig `yaml:"classification"`
	Candidates     CandidatesConfig     `yaml:"candidates"`
	PressPull      PressPullConfig      `yaml:"press_pull"`
	Discovery      DiscoveryConfig      `yaml:"discovery"`
	Logging        LoggingConfig        `yaml:"logging"`
	Scene          SceneConfig          `yaml:"scene"`
	Mesh           MeshConfig           `yaml:"mesh"`
}

// ClassificationConfig configures the face classifier.
type ClassificationConfig struct {
	InteriorEpsilon     float64 `yaml:"interior_epsilon"`      // radians
	CenterPlaneFraction float64 `yaml:"center_plane_fraction"` // of the body extent
	ProximityTolerance  float64 `yaml:"proximity_tolerance"`   // length units
	Workers             int     `yaml:"workers"`               // 0 or 1 classifies serially
}

// CandidatesConfig bounds the press-pull candidates.
type CandidatesConfig struct {
	MaxArea float64 `yaml:"max_area"`
	Count   int     `yaml:"count"`
}

// PressPullConfig configures the press-pull request.
type PressPullConfig struct {
	Distance float64 `yaml:"distance"` // negative is inward
}

// DiscoveryConfig configures split-tool discovery.
type DiscoveryConfig struct {
	SpatialIndex bool   `yaml:"spatial_index"`
	Policy       string `yaml:"policy"` // bbox, proximity
}

// SceneConfig configures scene loading.
type SceneConfig struct {
	Timeout string `yaml:"timeout"`
}

// MeshConfig configures mesh export.
type MeshConfig struct {
	Divisions int `yaml:"divisions"` // per face, each direction
	Cells     int `yaml:"cells"`     // marching-cubes cells for body meshes
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Classification: ClassificationConfig{
			InteriorEpsilon:     classify.DefaultInteriorEpsilon,
			CenterPlaneFraction: classify.DefaultCenterPlaneFraction,
			ProximityTolerance:  classify.DefaultProximityTolerance,
			Workers:             1,
		},
		Candidates: CandidatesConfig{
			MaxArea: selector.DefaultMaxArea,
			Count:   selector.DefaultCount,
		},
		PressPull: PressPullConfig{
			Distance: engine.DefaultDistance,
		},
		Discovery: DiscoveryConfig{
			Policy: discovery.BoundingBox.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Scene: SceneConfig{
			Timeout: scene.DefaultTimeout.String(),
		},
		Mesh: MeshConfig{
			Divisions: tessellate.DefaultDivisions,
			Cells:     64,
		},
	}
}

// Load reads path over the defaults. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks every value for range and syntax.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	cl := c.Classification
	check(cl.InteriorEpsilon > 0, "classification.interior_epsilon must be positive, got %g", cl.InteriorEpsilon)
	check(cl.CenterPlaneFraction > 0, "classification.center_plane_fraction must be positive, got %g", cl.CenterPlaneFraction)
	check(cl.ProximityTolerance > 0, "classification.proximity_tolerance must be positive, got %g", cl.ProximityTolerance)
	check(cl.Workers >= 0, "classification.workers must not be negative, got %d", cl.Workers)
	check(c.Candidates.MaxArea > 0, "candidates.max_area must be positive, got %g", c.Candidates.MaxArea)
	check(c.Candidates.Count > 0, "candidates.count must be positive, got %d", c.Candidates.Count)
	check(c.Mesh.Divisions >= 0, "mesh.divisions must not be negative, got %d", c.Mesh.Divisions)
	check(c.Mesh.Cells >= 0, "mesh.cells must not be negative, got %d", c.Mesh.Cells)

	if _, err := discovery.ParsePolicy(c.Discovery.Policy); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if _, err := c.SceneTimeout(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if err := c.Logging.validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	return errors.Join(errs...)
}

// SceneTimeout parses scene.timeout. An empty value is the loader default.
func (c *Config) SceneTimeout() (time.Duration, error) {
	if c.Scene.Timeout == "" {
		return scene.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Scene.Timeout)
	if err != nil {
		return 0, fmt.Errorf("scene.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("scene.timeout must be positive, got %s", d)
	}
	return d, nil
}

// EngineOptions converts the configuration to engine settings.
func (c *Config) EngineOptions() (engine.Options, error) {
	policy, err := discovery.ParsePolicy(c.Discovery.Policy)
	if err != nil {
		return engine.Options{}, err
	}
	opts := engine.DefaultOptions()
	opts.Classifier = classify.New(classify.Options{
		InteriorEpsilon:     c.Classification.InteriorEpsilon,
		CenterPlaneFraction: c.Classification.CenterPlaneFraction,
		ProximityTolerance:  c.Classification.ProximityTolerance,
	})
	opts.Policy = policy
	opts.SpatialIndex = c.Discovery.SpatialIndex
	opts.MaxArea = c.Candidates.MaxArea
	opts.Count = c.Candidates.Count
	opts.Distance = c.PressPull.Distance
	opts.Workers = c.Classification.Workers
	return opts, nil
}
