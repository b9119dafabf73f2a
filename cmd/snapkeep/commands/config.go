package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands/flags"
	"github.com/thoreinstein/snapkeep/internal/config"
	"github.com/thoreinstein/snapkeep/internal/editor"
	"github.com/thoreinstein/snapkeep/internal/errors"
	"github.com/thoreinstein/snapkeep/internal/paths"
)

var (
	configFormat    string
	configInitForce bool
)

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "output format: yaml, toml")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage snapkeep configuration",
	Long: `Manage snapkeep configuration stored in ~/.config/snapkeep/config.yaml.

Without a subcommand, shows the effective configuration.`,
	Example: `  # Show effective configuration
  snapkeep config

  # Show it as TOML
  snapkeep config show --format toml

  # Write a default config file
  snapkeep config init

  # Open the config file in $EDITOR
  snapkeep config edit

See Also: snapkeep run`,
	RunE: func(c *cobra.Command, _ []string) error {
		return runConfigShowWithWriter(c.OutOrStdout(), flags.Config(), "yaml")
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after applying defaults, the config file and
SNAPKEEP_* environment variables.`,
	RunE: func(c *cobra.Command, _ []string) error {
		return runConfigShowWithWriter(c.OutOrStdout(), flags.Config(), configFormat)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long:  `Write a config file with default values to ~/.config/snapkeep/config.yaml.`,
	RunE: func(c *cobra.Command, _ []string) error {
		path := configFile
		if path == "" {
			path = paths.ConfigFile()
		}
		return runConfigInitWithWriter(c.OutOrStdout(), path, configInitForce)
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open configuration in $EDITOR",
	Long: `Open the configuration file in your default editor.

Uses $EDITOR, then $VISUAL, falling back to nano or vi. A default config file
is written first when none exists.`,
	Example: `  # Open config in default editor
  snapkeep config edit

  # Open with a specific editor
  EDITOR=nano snapkeep config edit

See Also: snapkeep config show, snapkeep doctor`,
	RunE: func(c *cobra.Command, _ []string) error {
		path := configFile
		if path == "" {
			path = config.Used()
		}
		if path == "" {
			path = paths.ConfigFile()
		}
		return runConfigEditWithWriter(c.Context(), c.OutOrStdout(), path, editor.Open)
	},
}

// openFunc launches an editor on a path.
type openFunc func(ctx context.Context, w io.Writer, path string) error

func runConfigEditWithWriter(ctx context.Context, w io.Writer, path string, open openFunc) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(path, config.Default()); err != nil {
			return errors.NewSystemError(err, "")
		}
		fmt.Fprintf(w, "Wrote %s\n", path)
	}
	if err := open(ctx, w, path); err != nil {
		return errors.NewSystemError(err, "Set $EDITOR to an installed editor")
	}
	return nil
}

func runConfigShowWithWriter(w io.Writer, cfg *config.Config, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "yaml", "":
		data, err = yaml.Marshal(cfg)
	case "toml":
		data, err = toml.Marshal(cfg)
	default:
		return errors.NewUserError(errors.Newf("unknown format %q", format), "Use --format yaml or --format toml")
	}
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	if used := config.Used(); used != "" {
		fmt.Fprintf(w, "# %s\n", used)
	}
	_, err = w.Write(data)
	return err
}

func runConfigInitWithWriter(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.NewUserError(
			errors.Newf("config file already exists: %s", path),
			"Pass --force to overwrite it",
		)
	}

	if err := config.Save(path, config.Default()); err != nil {
		return errors.NewSystemError(err, "")
	}
	fmt.Fprintf(w, "Wrote %s\n", path)
	return nil
}
