package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thoreinstein/snapkeep/internal/errors"
)

func TestCopy_Success(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.bin")
	dst := filepath.Join(dir, "out", "copy.bin")
	writeTestFile(t, src, "payload")

	var out bytes.Buffer
	if err := runCopyWithWriter(&out, src, dst); err != nil {
		t.Fatalf("runCopyWithWriter() error: %v", err)
	}

	want := "Backup successful from " + src + " to " + dst
	if !strings.HasPrefix(out.String(), want) {
		t.Errorf("output = %q, want prefix %q", out.String(), want)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "payload" {
		t.Errorf("copied content = %q, %v", data, err)
	}
}

func TestCopy_MissingSource(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	err := runCopyWithWriter(&out, filepath.Join(dir, "nope"), filepath.Join(dir, "dst"))
	if errors.ExitCode(err) != errors.ExitSystem {
		t.Errorf("ExitCode() = %d, want %d", errors.ExitCode(err), errors.ExitSystem)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be printed on failure, got %q", out.String())
	}
}

func TestCopy_ArgCount(t *testing.T) {
	err := copyCmd.Args(copyCmd, []string{"only-one"})
	if errors.ExitCode(err) != errors.ExitUser {
		t.Errorf("ExitCode() = %d, want %d", errors.ExitCode(err), errors.ExitUser)
	}
}
