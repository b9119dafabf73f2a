package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(h)

	now := time.Now()
	logger.Info("version created", "id", "20260101_120000")

	output := buf.String()
	if !strings.Contains(output, "INFO") {
		t.Errorf("expected level INFO in output, got: %q", output)
	}
	if !strings.Contains(output, "version created") {
		t.Errorf("expected message in output, got: %q", output)
	}
	if !strings.Contains(output, "id=20260101_120000") {
		t.Errorf("expected attribute in output, got: %q", output)
	}
	if !strings.Contains(output, now.Format(time.Kitchen)) {
		t.Errorf("expected kitchen time in output, got: %q", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Errorf("expected trailing newline, got: %q", output)
	}
}

func TestHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, nil)).With("run", "abc")

	logger.Info("message", "local", "val")

	output := buf.String()
	if !strings.Contains(output, "run=abc") {
		t.Errorf("expected common attribute in output, got: %q", output)
	}
	if !strings.Contains(output, "local=val") {
		t.Errorf("expected local attribute in output, got: %q", output)
	}
}

func TestHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, nil)).WithGroup("copy")

	logger.Info("done", "bytes", 3, slog.Group("src", "size", 3))

	output := buf.String()
	if !strings.Contains(output, "copy.bytes=3") {
		t.Errorf("expected group prefix, got: %q", output)
	}
	if !strings.Contains(output, "copy.src.size=3") {
		t.Errorf("expected nested group prefix, got: %q", output)
	}
}

func TestHandler_Enabled(t *testing.T) {
	h := NewHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	ctx := t.Context()
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("expected Info level to be disabled when min level is Warn")
	}
	if !h.Enabled(ctx, slog.LevelWarn) {
		t.Error("expected Warn level to be enabled")
	}
}

func TestHandler_NoTime(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, nil)

	r := slog.NewRecord(time.Time{}, slog.LevelInfo, "no time", 0)
	if err := h.Handle(t.Context(), r); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "INFO") {
		t.Errorf("expected output to start with level, got: %q", buf.String())
	}
}

func TestHandler_ShortensHomePaths(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, nil)
	h.home = filepath.Join(string(filepath.Separator), "home", "sam")
	logger := slog.New(h)

	logger.Info("copied",
		"src", filepath.Join(h.home, "docs", "a.txt"),
		"other", "/home/samuel/b.txt",
	)

	output := buf.String()
	if !strings.Contains(output, "src="+filepath.Join("~", "docs", "a.txt")) {
		t.Errorf("expected shortened home path, got: %q", output)
	}
	if !strings.Contains(output, "other=/home/samuel/b.txt") {
		t.Errorf("sibling directory should not be shortened, got: %q", output)
	}
}

func TestHandler_ErrorValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, nil))

	logger.Warn("copy failed", "error", errors.New("disk full"))

	if !strings.Contains(buf.String(), "error=disk full") {
		t.Errorf("expected error text, got: %q", buf.String())
	}
}

func TestHandler_TraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: LevelTrace}))

	logger.Log(t.Context(), LevelTrace, "walking")

	if !strings.Contains(buf.String(), "TRACE") {
		t.Errorf("expected TRACE level name, got: %q", buf.String())
	}
}
