// Package commands implements the CLI commands for snapkeep.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/snapkeep/cmd"
	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands/flags"
	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands/versions"
	"github.com/thoreinstein/snapkeep/internal/config"
	"github.com/thoreinstein/snapkeep/internal/errors"
	"github.com/thoreinstein/snapkeep/internal/logging"
)

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// colorFlag holds the value of the --color flag.
var colorFlag string

// configFile holds the value of the --config flag.
var configFile string

// configLoadErr holds any error that occurred during config loading.
var configLoadErr error

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto",
		"colorize output: auto, always, never")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: ~/.config/snapkeep/config.yaml)")

	rootCmd.Version = cmd.Version
	rootCmd.SetVersionTemplate("snapkeep version {{.Version}}\n")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(versions.Cmd)
}

func initConfig() {
	config.Init()
	var cfg *config.Config
	cfg, configLoadErr = config.Load(configFile)
	flags.SetConfig(cfg)
}

var rootCmd = &cobra.Command{
	Use:   "snapkeep",
	Short: "Point-in-time backups into timestamped versions",
	Long: `snapkeep copies files and directories into a new timestamped version
directory on every run, keeps a configurable number of versions, and can skip
files that have not changed since the previous version.

Each version holds a manifest and a session log under .snapkeep/ describing
what was copied, skipped or failed.`,
	Example: `  # Back up the configured sources
  snapkeep run

  # Back up specific paths, keeping 3 versions
  snapkeep run ~/Documents ~/notes.txt --max-versions 3

  # List versions
  snapkeep versions list

  # Check the setup before the first run
  snapkeep doctor

  See Also: snapkeep config, snapkeep versions, snapkeep doctor`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		flags.SetQuiet(quiet)
		return checkConfig(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(errors.New("conflicting flags"), "cannot use --quiet and --verbose together")
	}

	colorMode, err := logging.ParseColorMode(colorFlag)
	if err != nil {
		return errors.NewUserError(err, "")
	}
	flags.SetColorMode(colorMode)
	switch colorMode {
	case logging.ColorAlways:
		color.NoColor = false
	case logging.ColorNever:
		color.NoColor = true
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity
		if v == 0 {
			if val, ok := os.LookupEnv("SNAPKEEP_DEBUG"); ok {
				switch val {
				case "1", "true":
					v = 2
				case "2":
					v = 3
				}
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var primaryHandler slog.Handler
	switch logging.Format(logFormat) {
	case logging.FormatJSON:
		primaryHandler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		primaryHandler = logging.NewColorHandler(cmd.ErrOrStderr(), opts, colorMode)
	}

	var auditHandler slog.Handler
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.NewUserError(err, "failed to open log file")
		}
		auditHandler = slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: logging.AuditLevel(level),
		})
	}

	handler := logging.Tee(primaryHandler, auditHandler)

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))

	return nil
}

// checkConfig surfaces config load errors for commands that depend on it.
func checkConfig(cmd *cobra.Command) error {
	switch cmd.Name() {
	case "help", "version", "init", "edit", "doctor":
		return nil
	}
	if configLoadErr != nil {
		return errors.NewConfigError(configLoadErr)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// PrintError writes err and any suggestion attached to it.
func PrintError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	fmt.Fprintf(w, "%s %v\n", red.Sprint("Error:"), err)

	var exitErr *errors.ExitError
	if errors.As(err, &exitErr) && exitErr.Suggestion != "" {
		fmt.Fprintf(w, "  %s\n", exitErr.Suggestion)
	}
}
