package commands

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/snapkeep/internal/errors"
	"github.com/thoreinstein/snapkeep/internal/logging"
)

func TestPrintError_WithSuggestion(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, errors.NewUserError(errors.New("bad path"), "Check the path"))

	out := buf.String()
	if !strings.Contains(out, "Error: bad path") {
		t.Errorf("output missing error: %q", out)
	}
	if !strings.Contains(out, "  Check the path") {
		t.Errorf("output missing suggestion: %q", out)
	}
}

func TestSetupLogging_QuietAndVerbose(t *testing.T) {
	origQuiet, origVerbosity := quiet, verbosity
	t.Cleanup(func() { quiet, verbosity = origQuiet, origVerbosity })

	quiet, verbosity = true, 1
	err := setupLogging(&cobra.Command{})
	if errors.ExitCode(err) != errors.ExitUser {
		t.Errorf("ExitCode() = %d, want %d", errors.ExitCode(err), errors.ExitUser)
	}
}

func TestCheckConfig_SkipsInit(t *testing.T) {
	orig := configLoadErr
	t.Cleanup(func() { configLoadErr = orig })
	configLoadErr = errors.New("broken config")

	if err := checkConfig(configInitCmd); err != nil {
		t.Errorf("config init should run with a broken config: %v", err)
	}
	if err := checkConfig(runCmd); errors.ExitCode(err) != errors.ExitUser {
		t.Errorf("run should report the config error, got %v", err)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"run", "copy", "restore", "versions", "config", "doctor", "version"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestCheckConfig_SkipsDoctor(t *testing.T) {
	orig := configLoadErr
	t.Cleanup(func() { configLoadErr = orig })
	configLoadErr = errors.New("broken config")

	if err := checkConfig(doctorCmd); err != nil {
		t.Errorf("doctor should run with a broken config to report it: %v", err)
	}
}

func TestSetupLogging_InvalidColor(t *testing.T) {
	orig := colorFlag
	t.Cleanup(func() { colorFlag = orig })

	colorFlag = "sometimes"
	err := setupLogging(&cobra.Command{})
	if errors.ExitCode(err) != errors.ExitUser {
		t.Errorf("ExitCode() = %d, want %d", errors.ExitCode(err), errors.ExitUser)
	}
}

func TestSetupLogging_LogFileRecordsQuietRuns(t *testing.T) {
	origQuiet, origVerbosity, origFile := quiet, verbosity, logFile
	origDefault := slog.Default()
	t.Cleanup(func() {
		quiet, verbosity, logFile = origQuiet, origVerbosity, origFile
		slog.SetDefault(origDefault)
	})

	path := filepath.Join(t.TempDir(), "snapkeep.log")
	quiet, verbosity, logFile = true, 0, path

	c := &cobra.Command{}
	c.SetErr(&bytes.Buffer{})
	if err := setupLogging(c); err != nil {
		t.Fatalf("setupLogging() error: %v", err)
	}
	logging.FromContext(c.Context()).Info("backup completed", "total", 3)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"backup completed"`) {
		t.Errorf("log file should record info records under --quiet, got %q", data)
	}
}
