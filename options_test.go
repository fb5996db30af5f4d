package guirender

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/gogpu/guirender/internal/gputest"
)

func TestNewConfigOptions(t *testing.T) {
	dev := gputest.NewDevice()
	l := slog.Default()
	var seen error

	cfg := NewConfig(dev, 2,
		WithSampleCount(4),
		WithMaxTextures(16),
		WithCheckResult(func(err error) { seen = err }),
		WithLogger(l),
	)

	if cfg.Device != dev || cfg.FrameCount != 2 {
		t.Errorf("device/frames not stored: %+v", cfg)
	}
	if cfg.SampleCount != 4 {
		t.Errorf("SampleCount = %d, want 4", cfg.SampleCount)
	}
	if cfg.MaxTextures != 16 {
		t.Errorf("MaxTextures = %d, want 16", cfg.MaxTextures)
	}
	if cfg.Logger != l {
		t.Error("Logger not stored")
	}
	cfg.CheckResult(errors.New("x"))
	if seen == nil {
		t.Error("CheckResult not stored")
	}
}

func TestConfigNormalize(t *testing.T) {
	dev := gputest.NewDevice()

	tests := []struct {
		name        string
		cfg         Config
		wantErr     error
		wantSamples uint32
		wantMax     int
	}{
		{"defaults", Config{Device: dev, FrameCount: 1}, nil, 1, DefaultMaxTextures},
		{"max frames", Config{Device: dev, FrameCount: MaxFramesInFlight, SampleCount: 4, MaxTextures: 8}, nil, 4, 8},
		{"nil device", Config{FrameCount: 1}, ErrNilDevice, 0, 0},
		{"zero frames", Config{Device: dev}, ErrInvalidFrameCount, 0, 0},
		{"too many frames", Config{Device: dev, FrameCount: MaxFramesInFlight + 1}, ErrInvalidFrameCount, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.normalize()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("normalize() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.SampleCount != tt.wantSamples {
				t.Errorf("SampleCount = %d, want %d", got.SampleCount, tt.wantSamples)
			}
			if got.MaxTextures != tt.wantMax {
				t.Errorf("MaxTextures = %d, want %d", got.MaxTextures, tt.wantMax)
			}
		})
	}
}
