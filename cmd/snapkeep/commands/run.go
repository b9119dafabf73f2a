package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/snapkeep/cmd"
	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands/flags"
	"github.com/thoreinstein/snapkeep/internal/engine"
	"github.com/thoreinstein/snapkeep/internal/errors"
	"github.com/thoreinstein/snapkeep/internal/traverse"
)

var (
	runDest        string
	runMaxVersions int
	runIncremental bool
	runRecurse     bool
	runHidden      bool
	runWorkers     int
	runJSON        bool
)

func init() {
	runCmd.Flags().StringVar(&runDest, "dest", "", "destination root (default from config)")
	runCmd.Flags().IntVar(&runMaxVersions, "max-versions", 0, "number of versions to keep")
	runCmd.Flags().BoolVar(&runIncremental, "incremental", false, "link files unchanged since the previous version")
	runCmd.Flags().BoolVar(&runRecurse, "recurse", true, "descend into subdirectories")
	runCmd.Flags().BoolVar(&runHidden, "hidden", false, "include hidden files and directories")
	runCmd.Flags().IntVar(&runWorkers, "workers", 1, "number of files copied in parallel")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [paths...]",
	Short: "Back up files into a new version",
	Long: `Back up the given files and directories, or the configured sources when
no paths are given, into a new timestamped version under the destination root.

Per-file failures are reported but do not fail the command; check the
summary or the session log. The command fails only when no version could be
created.`,
	Example: `  # Back up configured sources
  snapkeep run

  # Back up two paths incrementally with 4 workers
  snapkeep run ~/Documents ~/Pictures --incremental --workers 4

  # Machine-readable result
  snapkeep run --json

  See Also: snapkeep versions list, snapkeep config show`,
	RunE: runRun,
}

// runOptions is everything a backup run needs, resolved from config and flags.
type runOptions struct {
	Selection engine.Selection
	Traversal traverse.Config
	Settings  engine.Settings
	JSON      bool
	Progress  bool
}

func runRun(c *cobra.Command, args []string) error {
	opts, err := buildRunOptions(c, args)
	if err != nil {
		return err
	}
	return runBackupWithWriter(c.Context(), opts, c.OutOrStdout(), c.ErrOrStderr())
}

// buildRunOptions overlays explicitly set flags on the loaded config.
func buildRunOptions(c *cobra.Command, args []string) (runOptions, error) {
	cfg := *flags.Config()
	f := c.Flags()

	if f.Changed("max-versions") {
		cfg.MaxVersions = runMaxVersions
	}
	if f.Changed("incremental") {
		cfg.Incremental = runIncremental
	}
	if f.Changed("recurse") {
		cfg.Recurse = runRecurse
	}
	if f.Changed("hidden") {
		cfg.IncludeHidden = runHidden
	}
	if f.Changed("workers") {
		cfg.Workers = runWorkers
	}

	root, err := flags.DestinationRoot(runDest)
	if err != nil {
		return runOptions{}, errors.NewUserError(err, "Pass a valid --dest or set destination_root")
	}
	settings, err := cfg.Settings()
	if err != nil {
		return runOptions{}, errors.NewConfigError(err)
	}
	settings.DestinationRoot = root

	sources := args
	if len(sources) == 0 {
		sources = cfg.Sources
	}
	selection, err := engine.Selection(sources).Resolve()
	if err != nil {
		return runOptions{}, errors.NewUserError(err, "Check the paths passed to snapkeep run")
	}

	return runOptions{
		Selection: selection,
		Traversal: cfg.Traversal(),
		Settings:  settings,
		JSON:      runJSON,
		Progress:  !runJSON && !flags.Quiet(),
	}, nil
}

// runBackupWithWriter runs the engine and prints the result to w. Progress
// lines go to errW.
func runBackupWithWriter(ctx context.Context, opts runOptions, w, errW io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var reporter engine.ProgressReporter = engine.NopReporter{}
	if opts.Progress {
		reporter = newProgressPrinter(errW)
	}

	eng := engine.New(
		engine.WithReporter(reporter),
		engine.WithToolVersion(cmd.ToolVersion()),
	)

	res, err := eng.Run(ctx, opts.Selection, opts.Traversal, opts.Settings)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrInvalidSettings):
		return errors.NewUserError(err, "Check --max-versions, --workers and --dest")
	case errors.Is(err, engine.ErrRunInProgress):
		return errors.NewSystemError(err, "Another snapkeep run is using this destination; try again when it finishes")
	default:
		return errors.NewSystemError(err, "")
	}

	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(res), "encoding output")
	}
	if flags.Quiet() && res.FilesFailed == 0 {
		return nil
	}
	printResult(w, res)
	return nil
}

func printResult(w io.Writer, res *engine.Result) {
	if res.VersionID == "" {
		fmt.Fprintln(w, res.Message)
		return
	}

	mark := color.GreenString("✓")
	if res.FilesFailed > 0 {
		mark = color.YellowString("!")
	}
	fmt.Fprintf(w, "%s Backup completed: %s\n", mark, res.Message)
	fmt.Fprintf(w, "  Version:   %s\n", res.VersionID)
	fmt.Fprintf(w, "  Location:  %s\n", res.OutputDirectory)
	fmt.Fprintf(w, "  Files:     %d total, %d succeeded, %d failed, %d unchanged\n",
		res.FilesTotal, res.FilesSucceeded, res.FilesFailed, res.FilesSkipped)
	fmt.Fprintf(w, "  Copied:    %s\n", humanize.IBytes(uint64(max(res.BytesCopied, 0))))
	if len(res.Removed) > 0 {
		fmt.Fprintf(w, "  Rotated:   removed %d old version(s)\n", len(res.Removed))
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintf(w, "  %s\n", color.YellowString("Warnings:"))
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "    %s\n", warn)
		}
	}
}
