// Package flags provides shared state for CLI commands.
// This package exists to avoid import cycles between the root command
// and noun subpackages (versions).
package flags

import (
	"github.com/thoreinstein/snapkeep/internal/config"
	"github.com/thoreinstein/snapkeep/internal/logging"
	"github.com/thoreinstein/snapkeep/internal/paths"
)

// loaded holds the configuration read at startup.
var loaded *config.Config

// quiet mirrors the root --quiet flag.
var quiet bool

var colorMode = logging.ColorAuto

// SetConfig records the configuration loaded by the root command.
func SetConfig(cfg *config.Config) {
	loaded = cfg
}

// Config returns the loaded configuration, or defaults when none was loaded.
func Config() *config.Config {
	if loaded == nil {
		return config.Default()
	}
	return loaded
}

// SetQuiet records the --quiet flag.
func SetQuiet(q bool) {
	quiet = q
}

// Quiet reports whether non-error output is suppressed.
func Quiet() bool {
	return quiet
}

// SetColorMode records the --color flag.
func SetColorMode(m logging.ColorMode) {
	colorMode = m
}

// ColorMode returns the --color setting.
func ColorMode() logging.ColorMode {
	return colorMode
}

// DestinationRoot returns override, or the configured destination root,
// expanded and made absolute.
func DestinationRoot(override string) (string, error) {
	root := override
	if root == "" {
		root = Config().DestinationRoot
	}
	return paths.Resolve(root)
}
