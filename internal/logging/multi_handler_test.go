package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestMultiHandler_DispatchesByLevel(t *testing.T) {
	var text, js bytes.Buffer
	h := NewMultiHandler(
		NewHandler(&text, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&js, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h).With("run", "r1")

	logger.Info("copied", "src", "a.txt")

	if text.Len() != 0 {
		t.Errorf("warn-level text handler should skip info, got: %q", text.String())
	}
	var parsed map[string]any
	if err := json.Unmarshal(js.Bytes(), &parsed); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
	if parsed["run"] != "r1" {
		t.Errorf("run = %v, want r1", parsed["run"])
	}

	logger.Warn("rotation warning")
	if !strings.Contains(text.String(), "rotation warning") {
		t.Errorf("text handler should receive warn, got: %q", text.String())
	}
}

func TestMultiHandler_Enabled(t *testing.T) {
	h := NewMultiHandler(
		NewHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
		NewHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	if !h.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("expected Info enabled when any handler accepts it")
	}
	if h.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("expected Debug disabled when no handler accepts it")
	}
}

type failingHandler struct {
	slog.Handler
	err error
}

func (f failingHandler) Handle(context.Context, slog.Record) error {
	return f.err
}

func TestMultiHandler_FailingHandlerDoesNotStopOthers(t *testing.T) {
	var js bytes.Buffer
	diskFull := errors.New("no space left on device")
	h := NewMultiHandler(
		failingHandler{Handler: slog.NewJSONHandler(io.Discard, nil), err: diskFull},
		slog.NewJSONHandler(&js, nil),
	)

	err := h.Handle(t.Context(), slog.NewRecord(time.Now(), slog.LevelInfo, "copied", 0))

	if !errors.Is(err, diskFull) {
		t.Errorf("Handle() error = %v, want %v", err, diskFull)
	}
	if !strings.Contains(js.String(), "copied") {
		t.Errorf("second handler should still receive the record, got %q", js.String())
	}
}

func TestMultiHandler_FlattensAndDropsNil(t *testing.T) {
	a := NewHandler(&bytes.Buffer{}, nil)
	b := slog.NewJSONHandler(&bytes.Buffer{}, nil)

	h := NewMultiHandler(nil, NewMultiHandler(a, nil), b)

	if len(h.handlers) != 2 {
		t.Fatalf("handlers = %d, want 2", len(h.handlers))
	}
}

func TestTee(t *testing.T) {
	a := NewHandler(&bytes.Buffer{}, nil)
	b := slog.NewJSONHandler(&bytes.Buffer{}, nil)

	if got := Tee(nil); got != slog.DiscardHandler {
		t.Errorf("Tee(nil) = %T, want DiscardHandler", got)
	}
	if got := Tee(a, nil); got != slog.Handler(a) {
		t.Errorf("Tee(a, nil) = %T, want the handler itself", got)
	}
	if _, ok := Tee(a, b).(*MultiHandler); !ok {
		t.Errorf("Tee(a, b) should be a MultiHandler")
	}
}

func TestAuditLevel(t *testing.T) {
	tests := []struct {
		terminal slog.Level
		want     slog.Level
	}{
		{slog.LevelError, slog.LevelInfo},
		{slog.LevelWarn, slog.LevelInfo},
		{slog.LevelInfo, slog.LevelInfo},
		{slog.LevelDebug, slog.LevelDebug},
		{LevelTrace, LevelTrace},
	}
	for _, tt := range tests {
		if got := AuditLevel(tt.terminal); got != tt.want {
			t.Errorf("AuditLevel(%v) = %v, want %v", tt.terminal, got, tt.want)
		}
	}
}
