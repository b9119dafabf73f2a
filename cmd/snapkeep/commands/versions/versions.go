// Package versions provides CLI commands for inspecting and pruning backup
// versions.
package versions

import (
	"github.com/spf13/cobra"
)

// destFlag holds the --dest flag shared by the versions subcommands.
var destFlag string

func init() {
	Cmd.PersistentFlags().StringVar(&destFlag, "dest", "", "destination root holding the versions (default from config)")
}

// Cmd is the root versions command.
var Cmd = &cobra.Command{
	Use:   "versions",
	Short: "Inspect and prune backup versions",
	Long: `Inspect and prune the timestamped versions under the destination root.

Every snapkeep run creates one version named YYYYMMDD_HHMMSS. Runs started
within the same second get a _01, _02, ... suffix.`,
	Example: `  # List versions
  snapkeep versions list

  # Show the session log of a version
  snapkeep versions show 20260123_100712

  # Keep only the 3 most recent versions
  snapkeep versions prune --keep 3

  See Also:
    snapkeep versions list  - List versions
    snapkeep versions show  - Show what a run did
    snapkeep versions prune - Remove old versions
    snapkeep restore        - Restore a version`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}
