package commands

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/thoreinstein/snapkeep/cmd"
)

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	output := buf.String()

	tests := []struct {
		name     string
		contains string
	}{
		{"version header", "snapkeep version " + cmd.Version},
		{"commit field", "commit:    " + cmd.Commit},
		{"built field", "built:     " + cmd.Date},
		{"go field", "go:        " + runtime.Version()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(output, tt.contains) {
				t.Errorf("version output missing %q\nGot:\n%s", tt.contains, output)
			}
		})
	}
}

func TestVersionCommand_Execute(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version command error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "snapkeep version") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestVersionCommand_CommandMetadata(t *testing.T) {
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q, want %q", versionCmd.Use, "version")
	}
	if versionCmd.Short == "" {
		t.Error("versionCmd.Short should not be empty")
	}
}
