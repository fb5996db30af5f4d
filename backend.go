package guirender

import (
	"fmt"

	"github.com/gogpu/guirender/gpucore"
	"github.com/gogpu/guirender/internal/geometry"
	"github.com/gogpu/guirender/internal/handles"
	"github.com/gogpu/guirender/internal/pipecache"
)

// Backend renders GUI draw data into a caller-provided render pass.
//
// A Backend owns the texture handle pool, the per-frame geometry buffers,
// the pipeline cache and the device objects shared by every frame. It is
// not safe for concurrent use; all methods must be called from the thread
// that renders.
type Backend struct {
	cfg         Config
	initialized bool

	handles   *handles.Allocator
	frames    *geometry.Store
	pipelines *pipecache.Cache

	vertexShader   gpucore.ShaderModuleID
	fragmentShader gpucore.ShaderModuleID
	layout         gpucore.DescriptorLayoutID
	table          gpucore.DescriptorTableID
	sampler        gpucore.SamplerID

	fontImage gpucore.TextureID
	fontID    TextureID
	staging   gpucore.BufferID
}

// New creates and initializes a backend. See Init.
func New(cfg Config) (*Backend, error) {
	b := &Backend{}
	if err := b.Init(cfg); err != nil {
		return nil, err
	}
	return b, nil
}

// Init initializes the backend: it validates cfg, creates the shared
// device objects and fills the texture handle pool.
//
// Init panics if cfg is invalid (nil device, frame count outside
// [1, MaxFramesInFlight]) or the backend is already initialized.
// Device failures are returned.
func (b *Backend) Init(cfg Config) error {
	if b.initialized {
		panic(fmt.Errorf("init: %w", ErrAlreadyInitialized))
	}
	cfg, err := cfg.normalize()
	if err != nil {
		panic(fmt.Errorf("init: %w", err))
	}

	b.cfg = cfg
	b.handles = handles.New(cfg.MaxTextures, cfg.FrameCount)
	b.frames = geometry.New(cfg.Device, cfg.FrameCount)
	b.pipelines = pipecache.New(cfg.Device)
	b.fontID = NoTexture

	if err := b.createDeviceObjects(); err != nil {
		b.destroyDeviceObjects()
		return fmt.Errorf("init: %w", err)
	}
	b.initialized = true

	b.logger().Info("guirender: backend initialized",
		"frames", cfg.FrameCount,
		"samples", cfg.SampleCount,
		"max_textures", cfg.MaxTextures)
	return nil
}

// Shutdown destroys every device object owned by the backend. The caller
// must make sure the device finished all work that references them.
// Shutdown panics if the backend is not initialized.
func (b *Backend) Shutdown() {
	b.mustInit("shutdown")
	b.destroyDeviceObjects()
	b.initialized = false
	b.logger().Info("guirender: backend shut down")
}

// NewFrame marks the start of a GUI frame. It panics if the backend is not
// initialized.
func (b *Backend) NewFrame() {
	b.mustInit("new frame")
}

// Initialized reports whether Init succeeded and Shutdown was not called.
func (b *Backend) Initialized() bool { return b.initialized }

// FrameIndex returns the current frame slot.
func (b *Backend) FrameIndex() int {
	if b.frames == nil {
		return 0
	}
	return b.frames.Current()
}

// FreeTextures returns the number of texture handles available.
func (b *Backend) FreeTextures() int {
	if b.handles == nil {
		return 0
	}
	return b.handles.Free()
}

func (b *Backend) mustInit(op string) {
	if !b.initialized {
		panic(fmt.Errorf("%s: %w", op, ErrNotInitialized))
	}
}

// check reports a failed device call to Config.CheckResult and returns err.
func (b *Backend) check(err error) error {
	if err != nil {
		b.logger().Warn("guirender: device call failed", "err", err)
		if b.cfg.CheckResult != nil {
			b.cfg.CheckResult(err)
		}
	}
	return err
}

// CreateTexture binds image into a free descriptor table slot and returns
// the slot as a texture handle. It returns NoTexture when every handle is
// in use or the binding fails.
func (b *Backend) CreateTexture(image gpucore.TextureID) TextureID {
	b.mustInit("create texture")

	h, ok := b.handles.Acquire()
	if !ok {
		b.logger().Warn("guirender: texture handles exhausted", "capacity", b.handles.Capacity())
		return NoTexture
	}
	err := b.cfg.Device.WriteDescriptor(b.table, gpucore.SpaceTextures, h, gpucore.DescriptorWrite{Texture: image})
	if b.check(err) != nil {
		_ = b.handles.Release(b.frames.Current(), h)
		return NoTexture
	}
	return TextureID(h)
}

// DestroyTexture releases a texture handle. The handle becomes reusable
// only once the current frame slot comes around again, so frames still on
// the GPU keep a valid binding. NoTexture is ignored.
func (b *Backend) DestroyTexture(id TextureID) {
	b.mustInit("destroy texture")
	if id == NoTexture {
		return
	}
	if uint64(id) >= uint64(b.handles.Capacity()) {
		b.logger().Warn("guirender: invalid texture release", "texture", uint64(id), "err", handles.ErrOutOfRange)
		return
	}
	if err := b.handles.Release(b.frames.Current(), handles.Handle(id)); err != nil {
		b.logger().Warn("guirender: invalid texture release", "texture", uint64(id), "err", err)
	}
}
