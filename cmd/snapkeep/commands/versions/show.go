package versions

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands/flags"
	"github.com/thoreinstein/snapkeep/internal/errors"
	"github.com/thoreinstein/snapkeep/internal/logging"
	"github.com/thoreinstein/snapkeep/internal/session"
	"github.com/thoreinstein/snapkeep/internal/version"
)

var showFailedOnly bool

func init() {
	showCmd.Flags().BoolVar(&showFailedOnly, "failed", false, "only show files that failed")
	Cmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show [version-id]",
	Short: "Show what a backup run did",
	Long: `Show the session log of a version: every file with its outcome, warnings
and the summary.

Without an id, an interactive picker opens when running in a terminal;
otherwise the most recent version is shown.`,
	Example: `  snapkeep versions show 20260123_100712
  snapkeep versions show --failed`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := flags.DestinationRoot(destFlag)
		if err != nil {
			return errors.NewUserError(err, "")
		}

		var id string
		if len(args) == 1 {
			id = args[0]
		} else {
			id, err = pickVersion(root, logging.IsTTY(os.Stdin))
			if err != nil || id == "" {
				return err
			}
		}
		return runShowWithWriter(cmd.OutOrStdout(), root, id, showFailedOnly)
	},
}

// pickVersion selects a version interactively, or the latest one when not
// on a terminal.
func pickVersion(root string, interactive bool) (string, error) {
	mgr := version.NewManager()
	if !interactive {
		v, err := mgr.Latest(root, "")
		if err != nil {
			return "", errors.NewUserError(err, "Create one with: snapkeep run")
		}
		return v.ID, nil
	}

	infos, err := collectInfo(root)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", errors.NewUserError(version.ErrNotFound, "Create one with: snapkeep run")
	}

	idx, err := fuzzyfinder.Find(
		infos,
		func(i int) string {
			return infos[i].ID
		},
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			info := infos[i]
			if info.Incomplete {
				return fmt.Sprintf("Version: %s\nPath: %s\n\n(no manifest)", info.ID, info.Path)
			}
			return fmt.Sprintf("Version: %s\nPath: %s\n\nFiles: %d\nFailed: %d\nTool: %s",
				info.ID, info.Path, info.Files, info.Failed, info.ToolVersion)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return "", nil
		}
		return "", errors.Wrap(err, "interactive selection failed")
	}
	return infos[idx].ID, nil
}

func runShowWithWriter(w io.Writer, root, id string, failedOnly bool) error {
	v, err := version.NewManager().Get(root, id)
	if err != nil {
		return errors.NewUserError(err, "Run: snapkeep versions list")
	}

	logPath := filepath.Join(v.MetaPath(), session.FileName)
	lines, err := session.ReadFile(logPath)
	if err != nil && len(lines) == 0 {
		return errors.NewSystemError(err, "")
	}

	fmt.Fprintf(w, "%s %s\n", color.New(color.Bold).Sprint("Version:"), v.ID)
	for _, l := range lines {
		switch l.Kind {
		case session.KindHeader:
			fmt.Fprintf(w, "Run:     %s\nStarted: %s\n\n", l.RunID, l.Started.Local().Format("2006-01-02 15:04:05"))
		case session.KindResult:
			if failedOnly && l.Outcome != "failed" {
				continue
			}
			switch l.Outcome {
			case "failed":
				fmt.Fprintf(w, "  %s %s (%s)\n", color.RedString("✗"), l.Source, l.Reason)
			case "skipped":
				fmt.Fprintf(w, "  %s %s\n", color.HiBlackString("="), l.Source)
			default:
				fmt.Fprintf(w, "  %s %s\n", color.GreenString("✓"), l.Source)
			}
		case session.KindWarning:
			fmt.Fprintf(w, "  %s %s: %s\n", color.YellowString("!"), l.Path, l.Message)
		case session.KindSummary:
			s := l.Summary
			fmt.Fprintf(w, "\nTotal: %d, succeeded: %d, failed: %d, unchanged: %d\n",
				s.Total, s.Succeeded, s.Failed, s.Skipped)
		}
	}

	if err != nil {
		fmt.Fprintf(w, "\n%s %v\n", color.YellowString("Log partially unreadable:"), err)
	}
	return nil
}
