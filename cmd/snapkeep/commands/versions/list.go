package versions

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands/flags"
	"github.com/thoreinstein/snapkeep/internal/errors"
	"github.com/thoreinstein/snapkeep/internal/version"
)

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List versions",
	Long: `List the versions under the destination root, most recent first, with
the number of files and total size recorded in each manifest.`,
	Example: `  # List versions
  snapkeep versions list

  # Output as JSON
  snapkeep versions list --json

  See Also:
    snapkeep versions show - Show what a run did
    snapkeep restore       - Restore a version`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := flags.DestinationRoot(destFlag)
		if err != nil {
			return errors.NewUserError(err, "")
		}
		return runListWithWriter(cmd.OutOrStdout(), root, listJSON)
	},
}

// infoOutput represents a single version in list output.
type infoOutput struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Path        string    `json:"path"`
	Files       int       `json:"files"`
	Failed      int       `json:"failed"`
	Bytes       int64     `json:"bytes"`
	ToolVersion string    `json:"tool_version,omitempty"`
	Incomplete  bool      `json:"incomplete,omitempty"`
}

func collectInfo(root string) ([]infoOutput, error) {
	mgr := version.NewManager()
	vs, err := mgr.List(root)
	if err != nil {
		return nil, errors.Wrap(err, "listing versions")
	}

	out := make([]infoOutput, 0, len(vs))
	for i := len(vs) - 1; i >= 0; i-- {
		v := vs[i]
		info := infoOutput{ID: v.ID, CreatedAt: v.CreatedAt, Path: v.Path}

		m, err := version.ReadManifest(&v)
		if err != nil {
			// interrupted run or foreign directory
			info.Incomplete = true
			out = append(out, info)
			continue
		}
		info.ToolVersion = m.ToolVersion
		for _, f := range m.Files {
			if f.Outcome == version.OutcomeFailed {
				info.Failed++
				continue
			}
			info.Files++
			info.Bytes += f.Size
		}
		out = append(out, info)
	}
	return out, nil
}

func runListWithWriter(w io.Writer, root string, asJSON bool) error {
	infos, err := collectInfo(root)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(infos), "encoding output")
	}

	if len(infos) == 0 {
		fmt.Fprintf(w, "No versions in %s\n", root)
		fmt.Fprintln(w, "Create one with: snapkeep run")
		return nil
	}

	bold := color.New(color.Bold)
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("Destination:"), root)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tCREATED\tFILES\tFAILED\tSIZE")
	for _, info := range infos {
		if info.Incomplete {
			fmt.Fprintf(tw, "  %s\t%s\t-\t-\t%s\n",
				color.YellowString(info.ID),
				info.CreatedAt.Format("2006-01-02 15:04:05"),
				"(no manifest)")
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%d\t%s\n",
			color.GreenString(info.ID),
			info.CreatedAt.Format("2006-01-02 15:04:05"),
			info.Files,
			info.Failed,
			humanize.IBytes(uint64(info.Bytes)))
	}
	return tw.Flush()
}
