package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "import submitted",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\timport submitted\n",
		},
		{
			name:    "warn level",
			opID:    "op-456",
			level:   slog.LevelWarn,
			message: "rollback failed",
			want:    "2024-06-15T14:30:45Z\tWARN\top-456\trollback failed\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "batch committed",
			attrs:   []slog.Attr{slog.Int("batch", 2), slog.Int("observations", 500)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tbatch committed\tbatch=2\tobservations=500\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &logHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestLogHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &logHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("owner", "owner-1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "queue")}).(*logHandler)
	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "dequeued", 0)
	r.AddAttrs(slog.String("record", "abc"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"owner=owner-1", "component=queue", "record=abc"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
}

func TestLogHandler_Enabled(t *testing.T) {
	h := &logHandler{level: slog.LevelInfo}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(DEBUG) = true below threshold INFO")
	}
	for _, level := range []slog.Level{slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !h.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false, want true", level)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	var console bytes.Buffer
	logger, f, err := newLogger(dir, "test-op", slog.LevelInfo, &console)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	t.Cleanup(func() { f.Close() })

	logger.Debug("hidden")
	logger.Info("visible", "n", 1)

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if got := string(data); got != console.String() {
		t.Errorf("file and console differ:\nfile:    %q\nconsole: %q", got, console.String())
	}
	if !strings.Contains(console.String(), "\ttest-op\tvisible\tn=1\n") || strings.Contains(console.String(), "hidden") {
		t.Errorf("unexpected log output: %q", console.String())
	}
}

func TestNewLogger_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := newLogger(filepath.Join(file, "log"), "op", slog.LevelInfo, io.Discard); err == nil {
		t.Error("newLogger() under a regular file expected error")
	}
}
