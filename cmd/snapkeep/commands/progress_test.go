package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands/flags"
	"github.com/thoreinstein/snapkeep/internal/logging"
)

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)

	p.Notify("a.txt", 1, 12)
	p.Notify("b.txt", 12, 12)

	want := "[ 1/12] a.txt\n[12/12] b.txt\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestProgressPrinter_ColorAlways(t *testing.T) {
	flags.SetColorMode(logging.ColorAlways)
	t.Cleanup(func() { flags.SetColorMode(logging.ColorAuto) })

	var buf bytes.Buffer
	newProgressPrinter(&buf).Notify("a.txt", 1, 1)

	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected a colored counter, got %q", buf.String())
	}
}
