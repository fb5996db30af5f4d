package guirender

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/guirender/gpucore"
)

// MaxFramesInFlight is the largest supported Config.FrameCount.
const MaxFramesInFlight = 3

// DefaultMaxTextures is the texture handle capacity used when
// Config.MaxTextures is zero.
const DefaultMaxTextures = 1024

// Config is the backend configuration.
type Config struct {
	// Device is the graphics device. Required.
	Device gpucore.Device

	// FrameCount is the number of frames in flight, in [1, MaxFramesInFlight].
	FrameCount int

	// SampleCount is the multisample count of the render target.
	// Zero is treated as 1.
	SampleCount uint32

	// MaxTextures is the texture handle capacity. Zero means
	// DefaultMaxTextures.
	MaxTextures int

	// CheckResult, if set, observes every failed device call before the
	// error is returned. It is never called with a nil error.
	CheckResult func(error)

	// Logger overrides the package logger for this backend.
	Logger *slog.Logger
}

// Option configures a Config.
//
// Example:
//
//	b, err := guirender.New(guirender.NewConfig(dev, 2,
//	    guirender.WithSampleCount(4),
//	    guirender.WithLogger(slog.Default()),
//	))
type Option func(*Config)

// NewConfig returns a Config for device with frames in flight.
func NewConfig(device gpucore.Device, frames int, opts ...Option) Config {
	cfg := Config{Device: device, FrameCount: frames}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithSampleCount sets the multisample count of the render target.
func WithSampleCount(n uint32) Option {
	return func(c *Config) {
		c.SampleCount = n
	}
}

// WithMaxTextures sets the texture handle capacity.
func WithMaxTextures(n int) Option {
	return func(c *Config) {
		c.MaxTextures = n
	}
}

// WithCheckResult sets the device failure observer.
func WithCheckResult(fn func(error)) Option {
	return func(c *Config) {
		c.CheckResult = fn
	}
}

// WithLogger sets the backend logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// normalize validates the configuration and fills in defaults.
func (c Config) normalize() (Config, error) {
	if c.Device == nil {
		return c, ErrNilDevice
	}
	if c.FrameCount < 1 || c.FrameCount > MaxFramesInFlight {
		return c, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidFrameCount, c.FrameCount, MaxFramesInFlight)
	}
	if c.SampleCount == 0 {
		c.SampleCount = 1
	}
	if c.MaxTextures <= 0 {
		c.MaxTextures = DefaultMaxTextures
	}
	return c, nil
}
