package commands

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/snapkeep/internal/config"
	"github.com/thoreinstein/snapkeep/internal/errors"
)

func TestConfigShow_Formats(t *testing.T) {
	cfg := config.Default()
	cfg.DestinationRoot = "/srv/backups"

	tests := []struct {
		format    string
		unmarshal func([]byte, any) error
	}{
		{"yaml", yaml.Unmarshal},
		{"toml", toml.Unmarshal},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer
			if err := runConfigShowWithWriter(&out, cfg, tt.format); err != nil {
				t.Fatalf("runConfigShowWithWriter() error: %v", err)
			}

			// Drop the "# <file>" line printed when a config file was read.
			body := out.String()
			if strings.HasPrefix(body, "#") {
				_, body, _ = strings.Cut(body, "\n")
			}

			var got config.Config
			if err := tt.unmarshal([]byte(body), &got); err != nil {
				t.Fatalf("output does not parse as %s: %v\n%s", tt.format, err, body)
			}
			if got.DestinationRoot != "/srv/backups" || got.MaxVersions != config.DefaultMaxVersions {
				t.Errorf("round trip mismatch: %+v", got)
			}
		})
	}
}

func TestConfigShow_UnknownFormat(t *testing.T) {
	err := runConfigShowWithWriter(&bytes.Buffer{}, config.Default(), "xml")
	if errors.ExitCode(err) != errors.ExitUser {
		t.Errorf("ExitCode() = %d, want %d", errors.ExitCode(err), errors.ExitUser)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapkeep", "config.yaml")

	var out bytes.Buffer
	if err := runConfigInitWithWriter(&out, path, false); err != nil {
		t.Fatalf("first init error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	err := runConfigInitWithWriter(&out, path, false)
	if errors.ExitCode(err) != errors.ExitUser {
		t.Errorf("second init ExitCode() = %d, want %d", errors.ExitCode(err), errors.ExitUser)
	}

	if err := runConfigInitWithWriter(&out, path, true); err != nil {
		t.Errorf("forced init error: %v", err)
	}
}

func TestConfigEdit_WritesDefaultsFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapkeep", "config.yaml")

	var opened string
	open := func(_ context.Context, _ io.Writer, p string) error {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("config should exist before the editor opens: %v", err)
		}
		opened = p
		return nil
	}

	var out bytes.Buffer
	if err := runConfigEditWithWriter(context.Background(), &out, path, open); err != nil {
		t.Fatalf("runConfigEditWithWriter() error: %v", err)
	}
	if opened != path {
		t.Errorf("opened %q, want %q", opened, path)
	}
	if !strings.Contains(out.String(), "Wrote "+path) {
		t.Errorf("output = %q", out.String())
	}
}

func TestConfigEdit_EditorFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.Save(path, config.Default()); err != nil {
		t.Fatal(err)
	}

	open := func(context.Context, io.Writer, string) error {
		return errors.New("exit status 1")
	}

	var out bytes.Buffer
	err := runConfigEditWithWriter(context.Background(), &out, path, open)
	if errors.ExitCode(err) != errors.ExitSystem {
		t.Errorf("ExitCode() = %d, want %d", errors.ExitCode(err), errors.ExitSystem)
	}
	if out.Len() != 0 {
		t.Errorf("existing config should not be rewritten, output %q", out.String())
	}
}
