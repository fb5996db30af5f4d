package guirender

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/guirender/internal/gputest"
)

func TestDefaultLoggerIsSilent(t *testing.T) {
	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger should be disabled at every level")
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	b, err := New(Config{Device: gputest.NewDevice(), FrameCount: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b.Shutdown()

	if !strings.Contains(buf.String(), "guirender: backend initialized") {
		t.Errorf("expected init message in log output, got %q", buf.String())
	}
}

func TestConfigLoggerOverridesPackageLogger(t *testing.T) {
	SetLogger(nil)
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	b, err := New(Config{Device: gputest.NewDevice(), FrameCount: 1, Logger: l})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Shutdown()

	if b.logger() != l {
		t.Error("backend should use Config.Logger")
	}
	if buf.Len() == 0 {
		t.Error("expected output on the configured logger")
	}
}
