package guirender

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/gogpu/guirender/gpucore"
	"github.com/gogpu/guirender/internal/gputest"
)

// newTestBackend creates an initialized backend on a recording device.
func newTestBackend(t *testing.T, frames int, opts ...Option) (*Backend, *gputest.Device) {
	t.Helper()
	dev := gputest.NewDevice()
	b, err := New(NewConfig(dev, frames, opts...))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b, dev
}

// expectPanic runs fn and checks it panics with an error wrapping want.
func expectPanic(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v", want)
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, want) {
			t.Fatalf("panic = %v, want error wrapping %v", r, want)
		}
	}()
	fn()
}

func TestInitCreatesDeviceObjects(t *testing.T) {
	b, dev := newTestBackend(t, 2)
	defer b.Shutdown()

	if !b.Initialized() {
		t.Fatal("backend should be initialized")
	}
	if len(dev.Shaders) != 2 {
		t.Errorf("shader modules = %d, want 2", len(dev.Shaders))
	}
	if len(dev.Layouts) != 1 {
		t.Errorf("descriptor layouts = %d, want 1", len(dev.Layouts))
	}
	if len(dev.Samplers) != 1 {
		t.Errorf("samplers = %d, want 1", len(dev.Samplers))
	}
	if len(dev.Tables) != 1 {
		t.Fatalf("descriptor tables = %d, want 1", len(dev.Tables))
	}

	table := dev.Tables[b.table]
	if got := table.Desc.MaxSets; !slices.Equal(got, []uint32{1, DefaultMaxTextures}) {
		t.Errorf("MaxSets = %v, want [1 %d]", got, DefaultMaxTextures)
	}
	w, ok := table.Writes[[2]uint32{gpucore.SpaceShared, 0}]
	if !ok || w.Sampler != b.sampler {
		t.Errorf("sampler not bound at space 0 slot 0: %+v", w)
	}
	if b.FreeTextures() != DefaultMaxTextures {
		t.Errorf("FreeTextures() = %d, want %d", b.FreeTextures(), DefaultMaxTextures)
	}
	if dev.LivePipelines() != 0 {
		t.Error("pipelines must be created lazily")
	}
}

func TestSamplerDescriptor(t *testing.T) {
	b, dev := newTestBackend(t, 1)
	defer b.Shutdown()

	s := dev.Samplers[b.sampler]
	if s.LodMinClamp != -1000 || s.LodMaxClamp != 1000 {
		t.Errorf("lod clamp = [%v, %v], want [-1000, 1000]", s.LodMinClamp, s.LodMaxClamp)
	}
}

func TestInitConfigPanics(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"nil device", Config{FrameCount: 2}, ErrNilDevice},
		{"zero frames", Config{Device: gputest.NewDevice()}, ErrInvalidFrameCount},
		{"too many frames", Config{Device: gputest.NewDevice(), FrameCount: MaxFramesInFlight + 1}, ErrInvalidFrameCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectPanic(t, tt.want, func() { _, _ = New(tt.cfg) })
		})
	}
}

func TestDoubleInitPanics(t *testing.T) {
	b, dev := newTestBackend(t, 2)
	defer b.Shutdown()
	expectPanic(t, ErrAlreadyInitialized, func() { _ = b.Init(NewConfig(dev, 2)) })
}

func TestUseBeforeInitPanics(t *testing.T) {
	var b Backend
	expectPanic(t, ErrNotInitialized, b.Shutdown)
	expectPanic(t, ErrNotInitialized, b.NewFrame)
	expectPanic(t, ErrNotInitialized, func() { b.CreateTexture(1) })
}

func TestShutdownTwicePanics(t *testing.T) {
	b, _ := newTestBackend(t, 2)
	b.Shutdown()
	expectPanic(t, ErrNotInitialized, b.Shutdown)
}

func TestInitDeviceFailure(t *testing.T) {
	dev := gputest.NewDevice()
	dev.Fail["CreateDescriptorTable"] = nil
	var observed []error

	b, err := New(NewConfig(dev, 2, WithCheckResult(func(err error) { observed = append(observed, err) })))
	if !errors.Is(err, gputest.ErrInjected) {
		t.Fatalf("New() error = %v, want injected failure", err)
	}
	if b != nil {
		t.Error("backend should be nil on failure")
	}
	if len(observed) != 1 {
		t.Errorf("CheckResult calls = %d, want 1", len(observed))
	}
	if len(dev.Shaders) != 0 || len(dev.Layouts) != 0 {
		t.Error("partially created objects must be destroyed")
	}
}

func TestShutdownTeardownOrder(t *testing.T) {
	b, dev := newTestBackend(t, 2)
	if _, err := b.CreateFontTexture(testAtlas(4, 4)); err != nil {
		t.Fatal(err)
	}
	if err := b.RenderDrawData(testDrawData(simpleList(3, 3, 0)), formatA, &gputest.Pass{}); err != nil {
		t.Fatal(err)
	}

	dev.Calls = nil
	b.Shutdown()

	want := []string{
		"DestroyBuffer", "DestroyBuffer", // frame slot 1 geometry
		"DestroyBuffer",         // staging
		"DestroyRenderPipeline", // current
		"DestroyDescriptorTable",
		"DestroyDescriptorLayout",
		"DestroyShaderModule", "DestroyShaderModule",
		"DestroyTexture", // font
		"DestroySampler",
	}
	if !slices.Equal(dev.Calls, want) {
		t.Errorf("teardown calls =\n%v\nwant\n%v", dev.Calls, want)
	}
	if dev.LiveBuffers() != 0 || dev.LiveTextures() != 0 || dev.LivePipelines() != 0 {
		t.Error("resources leaked after shutdown")
	}
}

func TestCreateTexture(t *testing.T) {
	b, dev := newTestBackend(t, 2)
	defer b.Shutdown()

	id := b.CreateTexture(42)
	if id != DefaultMaxTextures-1 {
		t.Errorf("first handle = %d, want %d", id, DefaultMaxTextures-1)
	}
	w := dev.Tables[b.table].Writes[[2]uint32{gpucore.SpaceTextures, uint32(id)}]
	if w.Texture != 42 {
		t.Errorf("slot %d bound to %d, want 42", id, w.Texture)
	}
}

func TestCreateTextureExhaustion(t *testing.T) {
	b, _ := newTestBackend(t, 2, WithMaxTextures(3))
	defer b.Shutdown()

	for i := 0; i < 3; i++ {
		if id := b.CreateTexture(gpucore.TextureID(i + 1)); id == NoTexture {
			t.Fatalf("acquire %d returned NoTexture below capacity", i)
		}
	}
	if id := b.CreateTexture(99); id != NoTexture {
		t.Errorf("acquire past capacity = %d, want NoTexture", id)
	}
}

func TestCreateTextureBindFailure(t *testing.T) {
	b, dev := newTestBackend(t, 2, WithMaxTextures(4))
	defer b.Shutdown()

	dev.Fail["WriteDescriptor"] = nil
	if id := b.CreateTexture(1); id != NoTexture {
		t.Errorf("CreateTexture() = %d, want NoTexture on bind failure", id)
	}
	if b.FreeTextures() != 3 {
		t.Errorf("FreeTextures() = %d, want 3 (handle pending release)", b.FreeTextures())
	}
}

func TestDestroyTextureDeferredUntilRotation(t *testing.T) {
	const frames = 3
	b, _ := newTestBackend(t, frames, WithMaxTextures(4))
	defer b.Shutdown()

	data := testDrawData(simpleList(3, 3, 0))
	pass := &gputest.Pass{}

	id := b.CreateTexture(7)
	b.DestroyTexture(id)
	released := b.FrameIndex()

	// The handle stays out of the pool until the releasing slot is current
	// again, one full rotation later.
	for i := 1; i < frames; i++ {
		if err := b.RenderDrawData(data, formatA, pass); err != nil {
			t.Fatal(err)
		}
		if b.FreeTextures() != 3 {
			t.Fatalf("render %d: handle reused before rotation completed", i)
		}
	}
	if err := b.RenderDrawData(data, formatA, pass); err != nil {
		t.Fatal(err)
	}
	if b.FrameIndex() != released {
		t.Fatalf("FrameIndex() = %d, want %d", b.FrameIndex(), released)
	}
	if b.FreeTextures() != 4 {
		t.Errorf("FreeTextures() = %d, want 4 after rotation", b.FreeTextures())
	}
	if got := b.CreateTexture(8); got != id {
		t.Errorf("reacquired handle = %d, want %d", got, id)
	}
}

func TestDestroyTextureIgnoresSentinelAndDoubleRelease(t *testing.T) {
	b, _ := newTestBackend(t, 2, WithMaxTextures(4))
	defer b.Shutdown()

	b.DestroyTexture(NoTexture)
	id := b.CreateTexture(1)
	b.DestroyTexture(id)
	b.DestroyTexture(id)

	for i := 0; i < 2; i++ {
		if err := b.RenderDrawData(testDrawData(), formatA, &gputest.Pass{}); err != nil {
			t.Fatal(err)
		}
	}
	if b.FreeTextures() != 4 {
		t.Errorf("FreeTextures() = %d, want 4", b.FreeTextures())
	}
}

func TestDestroyTextureRejectsOutOfRange(t *testing.T) {
	b, _ := newTestBackend(t, 2, WithMaxTextures(4))
	defer b.Shutdown()

	live := b.CreateTexture(1)
	ids := []TextureID{4, 1000}
	if ^uintptr(0) > math.MaxUint32 {
		// Same low 32 bits as a live handle.
		ids = append(ids, TextureID(uint64(1)<<32|uint64(live)))
	}
	for _, id := range ids {
		b.DestroyTexture(id)
		if n := b.handles.Pending(b.frames.Current()); n != 0 {
			t.Fatalf("DestroyTexture(%#x) queued %d releases, want 0", uint64(id), n)
		}
	}
	if b.FreeTextures() != 3 {
		t.Errorf("FreeTextures() = %d, want 3", b.FreeTextures())
	}

	// The live handle is still owned and releasable.
	b.DestroyTexture(live)
	if n := b.handles.Pending(b.frames.Current()); n != 1 {
		t.Errorf("Pending() = %d after releasing live handle, want 1", n)
	}
}
