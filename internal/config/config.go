// Package config loads the map configuration: which datasets are shown,
// how the session starts and how the spatial query is answered.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/nycmap/internal/feature"
	"github.com/joeblew999/nycmap/internal/session"
)

// Spatial query backends.
const (
	BackendIndex  = "index"
	BackendDuckDB = "duckdb"
	BackendRemote = "remote"
)

// Config is the YAML map configuration.
type Config struct {
	StartupMode string        `yaml:"startup_mode"`
	DrawLayer   string        `yaml:"draw_layer"`
	SessionIdle time.Duration `yaml:"session_idle"`
	Search      Search        `yaml:"search"`
	Spatial     Spatial       `yaml:"spatial"`
	Datasets    []Dataset     `yaml:"datasets"`
}

type Search struct {
	Property      string  `yaml:"property"`
	MaxResults    int     `yaml:"max_results"`
	Overlay       bool    `yaml:"overlay"`
	OverlayOffset float64 `yaml:"overlay_offset"`
}

type Spatial struct {
	Backend        string  `yaml:"backend"`
	URL            string  `yaml:"url"`
	HomicideRadius float64 `yaml:"homicide_radius"`
}

// Dataset is one feature collection shown as a map layer. Model names the
// source file <model>.geojson and the database table.
type Dataset struct {
	Model           string `yaml:"model"`
	Title           string `yaml:"title"`
	GeomType        string `yaml:"geom_type"`
	ClusterDistance int    `yaml:"cluster_distance"`
	DefaultVisible  bool   `yaml:"default_visible"`
	Fill            string `yaml:"fill"`
	Stroke          string `yaml:"stroke"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		StartupMode: "none",
		DrawLayer:   string(session.RemoveOnDismiss),
		SessionIdle: 30 * time.Minute,
		Search: Search{
			Property:      string(session.PropertyName),
			MaxResults:    session.DefaultMaxResults,
			Overlay:       true,
			OverlayOffset: 30,
		},
		Spatial: Spatial{
			Backend:        BackendIndex,
			HomicideRadius: 500,
		},
		Datasets: []Dataset{
			{Model: "nyc_neighborhoods", Title: feature.LayerNeighborhoods, GeomType: "polygon", DefaultVisible: false},
			{Model: "nyc_streets", Title: feature.LayerStreets, GeomType: "line", DefaultVisible: true},
			{Model: "nyc_homicides", Title: feature.LayerHomicides, GeomType: "point", ClusterDistance: 40, DefaultVisible: true},
			{Model: "nyc_subway_stations", Title: feature.LayerSubway, GeomType: "point", ClusterDistance: 40, DefaultVisible: true},
		},
	}
}

// Load reads a YAML file over the defaults and validates the result. An
// empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

var modelName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks every enumerated value and the dataset list.
func (c *Config) Validate() error {
	var errs []error
	if _, err := session.ParseMode(c.StartupMode); err != nil {
		errs = append(errs, fmt.Errorf("startup_mode: %w", err))
	}
	if _, err := session.ParseDrawLayerPolicy(c.DrawLayer); err != nil {
		errs = append(errs, fmt.Errorf("draw_layer: %w", err))
	}
	if _, err := session.ParseProperty(c.Search.Property); err != nil {
		errs = append(errs, fmt.Errorf("search.property: %w", err))
	}
	switch c.Spatial.Backend {
	case BackendIndex, BackendDuckDB:
	case BackendRemote:
		if c.Spatial.URL == "" {
			errs = append(errs, errors.New("spatial.url is required for the remote backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("spatial.backend: unknown backend %q", c.Spatial.Backend))
	}

	models := map[string]bool{}
	titles := map[string]bool{}
	for i, d := range c.Datasets {
		if !modelName.MatchString(d.Model) {
			errs = append(errs, fmt.Errorf("datasets[%d]: invalid model name %q", i, d.Model))
		}
		if d.Title == "" {
			errs = append(errs, fmt.Errorf("datasets[%d]: title is required", i))
		}
		if models[d.Model] || titles[d.Title] {
			errs = append(errs, fmt.Errorf("datasets[%d]: duplicate model or title", i))
		}
		models[d.Model], titles[d.Title] = true, true
		switch d.GeomType {
		case "point", "line", "polygon":
		default:
			errs = append(errs, fmt.Errorf("datasets[%d]: geom_type must be point, line or polygon", i))
		}
	}
	return errors.Join(errs...)
}

// Dataset returns the dataset with the given model name.
func (c *Config) Dataset(model string) (Dataset, bool) {
	for _, d := range c.Datasets {
		if d.Model == model {
			return d, true
		}
	}
	return Dataset{}, false
}

// SessionOptions converts the configuration for new map sessions. The
// configuration must have been validated.
func (c *Config) SessionOptions() session.Options {
	mode, _ := session.ParseMode(c.StartupMode)
	policy, _ := session.ParseDrawLayerPolicy(c.DrawLayer)
	prop, _ := session.ParseProperty(c.Search.Property)
	return session.Options{
		StartupMode: mode,
		DrawLayer:   policy,
		Search: session.SearchOptions{
			Property:      prop,
			MaxResults:    c.Search.MaxResults,
			ShowOverlay:   c.Search.Overlay,
			OverlayOffset: c.Search.OverlayOffset,
		},
	}
}
