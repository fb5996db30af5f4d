package main

import (
	"testing"

	"github.com/gogpu/guirender/backend/wgpu"
)

func TestRunNoop(t *testing.T) {
	dev, cleanup, err := wgpu.OpenNoop()
	if err != nil {
		t.Fatalf("OpenNoop: %v", err)
	}
	defer cleanup()

	// 70 frames cross both render target formats twice.
	if err := run(dev, 640, 480, 70, 2, 13); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := dev.Pending(); got != 0 {
		t.Errorf("Pending = %d after run, want 0", got)
	}
}

func TestOpenDeviceUnknown(t *testing.T) {
	if _, _, err := openDevice("metal2"); err == nil {
		t.Error("expected error for unknown backend")
	}
}
