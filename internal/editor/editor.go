// Package editor launches the user's preferred text editor.
package editor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/thoreinstein/snapkeep/internal/errors"
)

// ErrNoEditor is returned when no editor command could be determined.
var ErrNoEditor = errors.New("no editor found")

// Open runs the user's editor on path with the terminal attached and waits
// for it to exit. The location is printed to w first.
func Open(ctx context.Context, w io.Writer, path string) error {
	cmd, err := Command(ctx, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Location: %s\n", path)

	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "running editor")
	}
	return nil
}

// Command builds the editor invocation for path. Editor values may carry
// arguments, as in EDITOR="code --wait".
func Command(ctx context.Context, path string) (*exec.Cmd, error) {
	fields := strings.Fields(detectEditor())
	if len(fields) == 0 {
		return nil, ErrNoEditor
	}
	args := append(fields[1:], path)
	return exec.CommandContext(ctx, fields[0], args...), nil
}

// detectEditor returns the editor command to use.
// Fallback chain: $EDITOR, $VISUAL, nano, vi.
func detectEditor() string {
	if editor := strings.TrimSpace(os.Getenv("EDITOR")); editor != "" {
		return editor
	}
	if visual := strings.TrimSpace(os.Getenv("VISUAL")); visual != "" {
		return visual
	}
	if _, err := exec.LookPath("nano"); err == nil {
		return "nano"
	}
	return "vi"
}
