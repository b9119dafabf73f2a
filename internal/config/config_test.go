package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/snapkeep/internal/traverse"
)

func TestInit(t *testing.T) {
	viper.Reset()

	Init()

	if viper.GetInt("version") != 1 {
		t.Errorf("expected version default 1, got %d", viper.GetInt("version"))
	}
	if viper.GetInt("max_versions") != DefaultMaxVersions {
		t.Errorf("expected max_versions default %d, got %d", DefaultMaxVersions, viper.GetInt("max_versions"))
	}
	if !viper.GetBool("recurse") {
		t.Error("expected recurse to default to true")
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())

	Init()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() with no config file should not error: %v", err)
	}
	if cfg.MaxVersions != DefaultMaxVersions {
		t.Errorf("MaxVersions = %d, want %d", cfg.MaxVersions, DefaultMaxVersions)
	}
	if cfg.IgnoreFile != DefaultIgnoreFile {
		t.Errorf("IgnoreFile = %q, want %q", cfg.IgnoreFile, DefaultIgnoreFile)
	}
}

func TestLoad_WithConfigFile(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := []byte("destination_root: /srv/backups\nmax_versions: 2\nincremental: true\nworkers: 4\nsources:\n  - /home/u/docs\n  - /home/u/notes.txt\n")
	if err := os.WriteFile(configPath, content, 0o600); err != nil {
		t.Fatal(err)
	}

	Init()

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DestinationRoot != "/srv/backups" {
		t.Errorf("DestinationRoot = %q", cfg.DestinationRoot)
	}
	if cfg.MaxVersions != 2 || !cfg.Incremental || cfg.Workers != 4 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if len(cfg.Sources) != 2 {
		t.Errorf("expected 2 sources, got %d", len(cfg.Sources))
	}
	if !cfg.Recurse {
		t.Error("recurse default should survive a partial file")
	}
	if Used() != configPath {
		t.Errorf("Used() = %q, want %q", Used(), configPath)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Setenv("SNAPKEEP_MAX_VERSIONS", "9")

	Init()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MaxVersions != 9 {
		t.Errorf("MaxVersions = %d, want 9", cfg.MaxVersions)
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	viper.Reset()
	Init()

	_, err := Load("/non/existent/path/config.yaml")
	if err == nil {
		t.Error("Load() with non-existent explicit path should error")
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "future version",
			content: "version: 2\n",
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "zero versions",
			content: "max_versions: 0\n",
			wantErr: ErrOutOfRange,
		},
		{
			name:    "too many workers",
			content: "workers: 1000\n",
			wantErr: ErrOutOfRange,
		},
		{
			name:    "ignore file with separator",
			content: "ignore_file: a/b\n",
			wantErr: ErrInvalidPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			Init()

			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}

			_, err := Load(configPath)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.HasPrefix(err.Error(), "validating config: ") {
				t.Errorf("Load() error = %q, want validating prefix", err)
			}
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	viper.Reset()
	Init()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("max_versions: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.DestinationRoot = "/srv/backups"
	cfg.Sources = []string{"/a", "/b"}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Config
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("saved file is not YAML: %v", err)
	}
	if got.DestinationRoot != "/srv/backups" || len(got.Sources) != 2 || got.MaxVersions != DefaultMaxVersions {
		t.Errorf("unexpected saved config %+v", got)
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.MaxVersions = 0
	if err := Save(filepath.Join(t.TempDir(), "config.yaml"), cfg); err == nil {
		t.Error("expected validation error")
	}
}

func TestConfig_Settings(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	cfg := Default()
	cfg.DestinationRoot = "~/backups"
	cfg.MaxVersions = 3
	cfg.Incremental = true
	cfg.Workers = 2

	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings() error: %v", err)
	}
	if s.DestinationRoot != filepath.Join("/home/tester", "backups") {
		t.Errorf("DestinationRoot = %q", s.DestinationRoot)
	}
	if s.MaxVersions != 3 || !s.Incremental || s.Workers != 2 {
		t.Errorf("unexpected settings %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("settings should validate: %v", err)
	}
}

func TestConfig_Traversal(t *testing.T) {
	cfg := Default()
	cfg.IncludeHidden = true

	want := traverse.Config{Recurse: true, IncludeHidden: true, IgnoreFile: DefaultIgnoreFile}
	got := cfg.Traversal()
	if got.Recurse != want.Recurse || got.IncludeHidden != want.IncludeHidden || got.IgnoreFile != want.IgnoreFile {
		t.Errorf("Traversal() = %+v, want %+v", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantLen int
	}{
		{"defaults", func(*Config) {}, 0},
		{"version zero", func(c *Config) { c.Version = 0 }, 1},
		{"empty destination", func(c *Config) { c.DestinationRoot = "" }, 1},
		{"null byte source", func(c *Config) { c.Sources = []string{"a\x00b"} }, 1},
		{"several", func(c *Config) { c.MaxVersions = -1; c.Workers = 0; c.Sources = []string{""} }, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if errs := Validate(cfg); len(errs) != tt.wantLen {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.wantLen)
			}
		})
	}

	if errs := Validate(nil); len(errs) != 1 {
		t.Errorf("Validate(nil) = %v", errs)
	}
}

func TestFieldError(t *testing.T) {
	err := &FieldError{Field: "workers", Value: "0", Err: ErrOutOfRange}
	if err.Error() != "workers: value out of range: 0" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrOutOfRange) {
		t.Error("FieldError should unwrap to ErrOutOfRange")
	}
}
