package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands/flags"
	"github.com/thoreinstein/snapkeep/internal/copier"
	"github.com/thoreinstein/snapkeep/internal/errors"
	"github.com/thoreinstein/snapkeep/internal/logging"
	"github.com/thoreinstein/snapkeep/internal/paths"
	"github.com/thoreinstein/snapkeep/internal/traverse"
	"github.com/thoreinstein/snapkeep/internal/version"
)

var (
	restoreTo    string
	restoreDest  string
	restoreForce bool
)

func init() {
	restoreCmd.Flags().StringVar(&restoreTo, "to", "", "directory to restore into (required)")
	restoreCmd.Flags().StringVar(&restoreDest, "dest", "", "destination root holding the versions (default from config)")
	restoreCmd.Flags().BoolVar(&restoreForce, "force", false, "restore into a non-empty directory, overwriting files")
	_ = restoreCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore <version-id>",
	Short: "Copy a version's files into a directory",
	Long: `Copy every file of a version into a directory, recreating the backed up
tree. Version metadata (.snapkeep/) is not restored.

The target directory must be empty or missing unless --force is given.`,
	Example: `  snapkeep restore 20260123_100712 --to /tmp/restored

  See Also: snapkeep versions list`,
	Args: cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		root, err := flags.DestinationRoot(restoreDest)
		if err != nil {
			return errors.NewUserError(err, "")
		}
		return runRestoreWithWriter(c.Context(), c.OutOrStdout(), root, args[0], restoreTo, restoreForce)
	},
}

func runRestoreWithWriter(ctx context.Context, w io.Writer, root, id, to string, force bool) error {
	mgr := version.NewManager()
	v, err := mgr.Get(root, id)
	if err != nil {
		return errors.NewUserError(err, "Run: snapkeep versions list")
	}

	target, err := paths.Resolve(to)
	if err != nil {
		return errors.NewUserError(err, "")
	}
	if !force {
		if entries, err := os.ReadDir(target); err == nil && len(entries) > 0 {
			return errors.NewUserError(
				errors.Newf("%s is not empty", target),
				"Choose an empty directory or pass --force",
			)
		}
	}

	logger := logging.FromContext(ctx)
	var restored, failed int
	cfg := traverse.Config{
		Recurse:       true,
		IncludeHidden: true,
		Exclude:       []string{v.MetaPath()},
	}
	warn := func(wr traverse.Warning) {
		logger.Warn("restore warning", "path", wr.Path, "error", wr.Err)
		failed++
	}

	prefix := v.ID + string(filepath.Separator)
	for en := range traverse.Walk([]string{v.Path}, cfg, warn) {
		rel := strings.TrimPrefix(en.RelPath, prefix)
		if _, err := copier.Copy(en.SourcePath, filepath.Join(target, rel)); err != nil {
			logger.Warn("restore failed", "path", rel, "error", err)
			failed++
			continue
		}
		restored++
	}

	fmt.Fprintf(w, "Restored %d file(s) from %s to %s\n", restored, v.ID, target)
	if failed > 0 {
		return errors.NewSystemError(
			errors.Newf("%d file(s) could not be restored", failed),
			"Run with -v for details",
		)
	}
	return nil
}
