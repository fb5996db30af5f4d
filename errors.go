package guirender

import "errors"

// Configuration errors. These indicate a programming error in the host
// application; Init and Shutdown panic with an error wrapping one of them.
var (
	// ErrNilDevice is raised when Config.Device is nil.
	ErrNilDevice = errors.New("guirender: device is nil")

	// ErrInvalidFrameCount is raised when Config.FrameCount is outside
	// [1, MaxFramesInFlight].
	ErrInvalidFrameCount = errors.New("guirender: invalid frame count")

	// ErrAlreadyInitialized is raised when Init is called twice.
	ErrAlreadyInitialized = errors.New("guirender: backend already initialized")

	// ErrNotInitialized is raised when the backend is used before Init or
	// after Shutdown.
	ErrNotInitialized = errors.New("guirender: backend not initialized")
)

// Runtime errors.
var (
	// ErrPipelineUnavailable is returned when the graphics pipeline for the
	// requested format could not be compiled. The frame is skipped.
	ErrPipelineUnavailable = errors.New("guirender: pipeline unavailable")

	// ErrHandlesExhausted is returned when every texture handle is in use.
	ErrHandlesExhausted = errors.New("guirender: texture handles exhausted")

	// ErrInvalidAtlas is returned for a font atlas with no pixels or a
	// pixel buffer that does not match its dimensions.
	ErrInvalidAtlas = errors.New("guirender: invalid font atlas")
)
