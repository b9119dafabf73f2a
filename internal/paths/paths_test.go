package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestResolveHome(t *testing.T) {
	got, err := ResolveHome()
	if err != nil {
		t.Skipf("home directory unavailable: %v", err)
	}
	want, _ := os.UserHomeDir()
	if got != want {
		t.Errorf("ResolveHome() = %q, want %q", got, want)
	}
}

func TestConfigFile(t *testing.T) {
	got := ConfigFile()
	if filepath.Base(got) != "config.yaml" {
		t.Errorf("ConfigFile() = %q, want config.yaml basename", got)
	}
	if filepath.Base(filepath.Dir(got)) != AppName {
		t.Errorf("ConfigFile() = %q, want parent %q", got, AppName)
	}
}

func TestDefaultDestinationRoot(t *testing.T) {
	got := DefaultDestinationRoot()
	if !strings.HasSuffix(got, filepath.Join(AppName, "versions")) {
		t.Errorf("DefaultDestinationRoot() = %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/docs", filepath.Join(home, "docs")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~other/docs", "~other/docs"},
	}
	for _, tt := range tests {
		got, err := ExpandHome(tt.in)
		if err != nil {
			t.Fatalf("ExpandHome(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	got, err := Resolve("sub/../file.txt")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want, _ := filepath.Abs("file.txt")
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("Resolve() = %q is not absolute", got)
	}
}

func TestResolve_Invalid(t *testing.T) {
	for _, in := range []string{"", "bad\x00path"} {
		if _, err := Resolve(in); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Resolve(%q) error = %v, want ErrInvalidPath", in, err)
		}
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir, 0); err != nil {
		t.Fatalf("EnsureDir() error: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", dir)
	}
	if err := EnsureDir(dir, 0); err != nil {
		t.Errorf("EnsureDir() should be idempotent: %v", err)
	}
}
