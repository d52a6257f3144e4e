// Package config loads the run configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"vegcensus/internal/gapfill"
)

// DefaultPath is consulted when no config file is named explicitly.
const DefaultPath = "vegcensus.yaml"

// StorageConfig selects the result store backend.
type StorageConfig struct {
	// Driver: memory|sqlite|postgres (default sqlite).
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// BlobConfig selects the artifact store backend.
type BlobConfig struct {
	// Driver: fs|s3|memory (default fs).
	Driver string `yaml:"driver"`
	FSRoot string `yaml:"fs_root"`
}

// Config is the full runtime configuration.
type Config struct {
	// Sites lists the site codes to process. Overridable per invocation.
	Sites []string `yaml:"sites"`

	// DataDir holds one subdirectory per site with the survey CSV files.
	DataDir string `yaml:"data_dir"`
	// MassDir holds the partitioned per-individual mass estimate files.
	MassDir string `yaml:"mass_dir"`
	// PlotPolygons is the path of the plot polygon GeoJSON file. Optional;
	// without it plot areas fall back to the sampled tree area.
	PlotPolygons string `yaml:"plot_polygons"`

	OutputDir    string `yaml:"output_dir"`
	OutputFormat string `yaml:"output_format"`

	Workers int `yaml:"workers"`

	GrowthThreshold float64 `yaml:"growth_threshold"`
	ShrinkThreshold float64 `yaml:"shrink_threshold"`

	SkipGapFilling      bool `yaml:"skip_gap_filling"`
	SkipDeadCorrections bool `yaml:"skip_dead_corrections"`

	Storage StorageConfig `yaml:"storage"`
	Blob    BlobConfig    `yaml:"blob"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		DataDir:         "data",
		MassDir:         "data/mass",
		OutputDir:       "output",
		OutputFormat:    "csv",
		Workers:         4,
		GrowthThreshold: gapfill.DefaultGrowthThreshold,
		ShrinkThreshold: gapfill.DefaultShrinkThreshold,
		Storage:         StorageConfig{Driver: "sqlite", SQLitePath: "vegcensus.db"},
		Blob:            BlobConfig{Driver: "fs", FSRoot: "artifacts"},
		LogLevel:        "info",
	}
}

// Load reads the configuration file at path, falling back to DefaultPath and
// then to built-in defaults when no file exists, and applies VEGCENSUS_*
// environment overrides on top. A named file that does not exist is an error;
// a missing default file is not.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file is fine, defaults apply.
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("VEGCENSUS_SITES"); v != "" {
		c.Sites = splitSites(v)
	}
	setString(&c.DataDir, "VEGCENSUS_DATA_DIR")
	setString(&c.MassDir, "VEGCENSUS_MASS_DIR")
	setString(&c.PlotPolygons, "VEGCENSUS_PLOT_POLYGONS")
	setString(&c.OutputDir, "VEGCENSUS_OUTPUT_DIR")
	setString(&c.OutputFormat, "VEGCENSUS_OUTPUT_FORMAT")
	setString(&c.Storage.Driver, "VEGCENSUS_STORAGE_DRIVER")
	setString(&c.Storage.SQLitePath, "VEGCENSUS_SQLITE_PATH")
	setString(&c.Storage.PostgresDSN, "VEGCENSUS_POSTGRES_DSN")
	setString(&c.Blob.Driver, "VEGCENSUS_BLOB_DRIVER")
	setString(&c.Blob.FSRoot, "VEGCENSUS_BLOB_FS_ROOT")
	setString(&c.LogLevel, "VEGCENSUS_LOG_LEVEL")
	if v := os.Getenv("VEGCENSUS_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VEGCENSUS_WORKERS: %w", err)
		}
		c.Workers = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitSites(v string) []string {
	var sites []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			sites = append(sites, s)
		}
	}
	return sites
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config: data_dir is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	switch c.OutputFormat {
	case "csv", "json":
	default:
		return fmt.Errorf("config: unknown output_format %q", c.OutputFormat)
	}
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "fs", "s3", "memory":
	default:
		return fmt.Errorf("config: unknown blob driver %q", c.Blob.Driver)
	}
	if c.GrowthThreshold <= 0 || c.ShrinkThreshold <= 0 {
		return errors.New("config: spike thresholds must be positive")
	}
	return nil
}
