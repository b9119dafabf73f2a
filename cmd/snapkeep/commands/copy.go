package commands

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands/flags"
	"github.com/thoreinstein/snapkeep/internal/copier"
	"github.com/thoreinstein/snapkeep/internal/errors"
	"github.com/thoreinstein/snapkeep/internal/paths"
)

func init() {
	rootCmd.AddCommand(copyCmd)
}

var copyCmd = &cobra.Command{
	Use:   "copy <source_file> <destination_file>",
	Short: "Copy a single file byte for byte",
	Long: `Copy one file to a destination path without creating a version.

Missing parent directories of the destination are created and the source's
permission bits and modification time are preserved.`,
	Example: `  snapkeep copy notes.txt /mnt/usb/notes.txt`,
	Args: func(c *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.NewUserError(
				errors.Newf("accepts 2 args, received %d", len(args)),
				"Usage: snapkeep copy <source_file> <destination_file>",
			)
		}
		return nil
	},
	RunE: func(c *cobra.Command, args []string) error {
		return runCopyWithWriter(c.OutOrStdout(), args[0], args[1])
	},
}

func runCopyWithWriter(w io.Writer, src, dst string) error {
	srcAbs, err := paths.Resolve(src)
	if err != nil {
		return errors.NewUserError(err, "")
	}
	dstAbs, err := paths.Resolve(dst)
	if err != nil {
		return errors.NewUserError(err, "")
	}

	n, err := copier.Copy(srcAbs, dstAbs)
	if err != nil {
		return errors.NewSystemError(errors.Wrapf(err, "copying %s to %s", src, dst), "")
	}

	fmt.Fprintf(w, "Backup successful from %s to %s\n", src, dst)
	if !flags.Quiet() {
		fmt.Fprintf(w, "  %s copied\n", humanize.IBytes(uint64(n)))
	}
	return nil
}
