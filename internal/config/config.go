// Package config provides configuration management for snapkeep using Viper.
package config

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/thoreinstein/snapkeep/internal/engine"
	"github.com/thoreinstein/snapkeep/internal/paths"
	"github.com/thoreinstein/snapkeep/internal/traverse"
	"github.com/thoreinstein/snapkeep/pkg/fileutil"
)

// EnvPrefix is the environment variable prefix, e.g. SNAPKEEP_MAX_VERSIONS.
const EnvPrefix = "SNAPKEEP"

// CurrentVersion is the config file format version.
const CurrentVersion = 1

// Default values.
const (
	DefaultMaxVersions = 5
	DefaultWorkers     = 1
	DefaultIgnoreFile  = ".snapkeepignore"
)

// Config represents the configuration file.
type Config struct {
	Version         int      `mapstructure:"version" yaml:"version" toml:"version"`
	DestinationRoot string   `mapstructure:"destination_root" yaml:"destination_root" toml:"destination_root"`
	MaxVersions     int      `mapstructure:"max_versions" yaml:"max_versions" toml:"max_versions"`
	Incremental     bool     `mapstructure:"incremental" yaml:"incremental" toml:"incremental"`
	Recurse         bool     `mapstructure:"recurse" yaml:"recurse" toml:"recurse"`
	IncludeHidden   bool     `mapstructure:"include_hidden" yaml:"include_hidden" toml:"include_hidden"`
	IgnoreFile      string   `mapstructure:"ignore_file" yaml:"ignore_file" toml:"ignore_file"`
	Workers         int      `mapstructure:"workers" yaml:"workers" toml:"workers"`
	Sources         []string `mapstructure:"sources" yaml:"sources" toml:"sources"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version:         CurrentVersion,
		DestinationRoot: paths.DefaultDestinationRoot(),
		MaxVersions:     DefaultMaxVersions,
		Recurse:         true,
		IgnoreFile:      DefaultIgnoreFile,
		Workers:         DefaultWorkers,
		Sources:         []string{},
	}
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath(".")
	viper.AddConfigPath(paths.ConfigDir())

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	d := Default()
	viper.SetDefault("version", d.Version)
	viper.SetDefault("destination_root", d.DestinationRoot)
	viper.SetDefault("max_versions", d.MaxVersions)
	viper.SetDefault("incremental", d.Incremental)
	viper.SetDefault("recurse", d.Recurse)
	viper.SetDefault("include_hidden", d.IncludeHidden)
	viper.SetDefault("ignore_file", d.IgnoreFile)
	viper.SetDefault("workers", d.Workers)
	viper.SetDefault("sources", d.Sources)
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations and falls back to
// defaults when no file is found.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
		case path != "" && isNotExist(err):
			return nil, errors.Wrapf(err, "config file not found at %s", path)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.Wrap(errors.Join(errs...), "validating config")
	}
	return &cfg, nil
}

// Used returns the config file Viper read, or "" when running on defaults.
func Used() string {
	return viper.ConfigFileUsed()
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if errs := Validate(cfg); len(errs) > 0 {
		return errors.Wrap(errors.Join(errs...), "validating config")
	}
	if err := paths.EnsureDir(filepath.Dir(path), paths.DefaultDirPerm); err != nil {
		return err
	}
	return fileutil.AtomicWriteYAML(path, cfg, 0o644)
}

// Settings returns the engine settings snapshot. The destination root is
// expanded and made absolute.
func (c *Config) Settings() (engine.Settings, error) {
	root, err := paths.Resolve(c.DestinationRoot)
	if err != nil {
		return engine.Settings{}, errors.Wrap(err, "destination_root")
	}
	return engine.Settings{
		DestinationRoot: root,
		MaxVersions:     c.MaxVersions,
		Incremental:     c.Incremental,
		Workers:         c.Workers,
	}, nil
}

// Traversal returns the traversal options.
func (c *Config) Traversal() traverse.Config {
	return traverse.Config{
		Recurse:       c.Recurse,
		IncludeHidden: c.IncludeHidden,
		IgnoreFile:    c.IgnoreFile,
	}
}
