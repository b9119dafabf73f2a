package versions

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/juju/clock"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands/flags"
	"github.com/thoreinstein/snapkeep/internal/errors"
	"github.com/thoreinstein/snapkeep/internal/lock"
	"github.com/thoreinstein/snapkeep/internal/version"
)

var pruneKeep int

func init() {
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", -1,
		"Number of versions to retain (default: max_versions from config)")
	Cmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old versions",
	Long: `Remove the oldest versions beyond the retention count.

By default keeps max_versions from the configuration. Directories under the
destination root that are not versions are never touched.`,
	Example: `  # Keep the configured number of versions
  snapkeep versions prune

  # Keep only the 3 most recent versions
  snapkeep versions prune --keep 3

  # Remove all versions (keep 0)
  snapkeep versions prune --keep 0`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := flags.DestinationRoot(destFlag)
		if err != nil {
			return errors.NewUserError(err, "")
		}
		keep := pruneKeep
		if !cmd.Flags().Changed("keep") {
			keep = flags.Config().MaxVersions
		}
		return runPruneWithWriter(cmd.Context(), cmd.OutOrStdout(), root, keep, lock.DefaultTimeout)
	},
}

// runPruneWithWriter rotates root while holding the destination lock, so a
// version a running backup is still writing is never removed.
func runPruneWithWriter(ctx context.Context, w io.Writer, root string, keep int, timeout time.Duration) error {
	if keep < 0 {
		return errors.NewUserError(errors.New("--keep must be non-negative"), "")
	}

	l, err := lock.Acquire(ctx, root, clock.WallClock, timeout)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return errors.NewSystemError(err, "A snapkeep run is using this destination; retry when it finishes")
		}
		return errors.NewSystemError(err, "")
	}
	defer l.Release()

	removed, warnings := version.NewManager().Rotate(root, keep)
	for _, v := range removed {
		fmt.Fprintf(w, "%s removed %s\n", color.GreenString("✓"), v.ID)
	}
	for _, warn := range warnings {
		fmt.Fprintf(w, "%s %v\n", color.YellowString("!"), warn)
	}

	if len(removed) == 0 && len(warnings) == 0 {
		fmt.Fprintln(w, "No versions to prune")
		return nil
	}
	fmt.Fprintf(w, "\nTotal: removed %d version(s)\n", len(removed))
	if len(warnings) > 0 {
		return errors.NewSystemError(
			errors.Newf("%d version(s) could not be removed", len(warnings)),
			"Check permissions under "+root,
		)
	}
	return nil
}
