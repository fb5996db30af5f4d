//go:build !nogpu

package wgpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/guirender"
	"github.com/gogpu/guirender/gpucore"
)

// openTestDevice opens a noop-backed device for testing.
func openTestDevice(t *testing.T) *Device {
	t.Helper()
	d, cleanup, err := OpenNoop()
	if err != nil {
		t.Fatalf("OpenNoop failed: %v", err)
	}
	t.Cleanup(cleanup)
	return d
}

func TestBufferMapUnmap(t *testing.T) {
	d := openTestDevice(t)

	id, err := d.CreateBuffer(&gpucore.BufferDesc{
		Label:       "test_vertex",
		Size:        256,
		Usage:       gputypes.BufferUsageVertex,
		HostVisible: true,
	})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if got := d.BufferSize(id); got != 256 {
		t.Errorf("BufferSize = %d, want 256", got)
	}

	data, err := d.MapBuffer(id)
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	if len(data) != 256 {
		t.Fatalf("mapped length = %d, want 256", len(data))
	}
	data[0] = 0xAB
	d.UnmapBuffer(id)

	again, err := d.MapBuffer(id)
	if err != nil {
		t.Fatalf("second MapBuffer: %v", err)
	}
	if again[0] != 0xAB {
		t.Errorf("shadow lost write: got %#x", again[0])
	}
	d.UnmapBuffer(id)

	d.DestroyBuffer(id)
	if got := d.BufferSize(id); got != 0 {
		t.Errorf("BufferSize after destroy = %d, want 0", got)
	}
	d.DestroyBuffer(id) // no-op
}

func TestBufferErrors(t *testing.T) {
	d := openTestDevice(t)

	if _, err := d.CreateBuffer(&gpucore.BufferDesc{Label: "empty"}); err == nil {
		t.Error("zero-size buffer should fail")
	}

	id, err := d.CreateBuffer(&gpucore.BufferDesc{Label: "device_local", Size: 64, Usage: gputypes.BufferUsageVertex})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if _, err := d.MapBuffer(id); !errors.Is(err, ErrNotHostVisible) {
		t.Errorf("MapBuffer(device local) = %v, want ErrNotHostVisible", err)
	}
	if _, err := d.MapBuffer(9999); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("MapBuffer(unknown) = %v, want ErrUnknownResource", err)
	}
}

func testLayout(t *testing.T, d *Device) gpucore.DescriptorLayoutID {
	t.Helper()
	id, err := d.CreateDescriptorLayout(&gpucore.DescriptorLayoutDesc{
		Label: "test_layout",
		Spaces: [][]gputypes.BindGroupLayoutEntry{
			{{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			}},
			{{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			}},
		},
	})
	if err != nil {
		t.Fatalf("CreateDescriptorLayout: %v", err)
	}
	return id
}

func TestDescriptorTableWrites(t *testing.T) {
	d := openTestDevice(t)
	layout := testLayout(t, d)

	if _, err := d.CreateDescriptorTable(&gpucore.DescriptorTableDesc{Layout: layout, MaxSets: []uint32{1}}); err == nil {
		t.Error("table with wrong set count should fail")
	}

	table, err := d.CreateDescriptorTable(&gpucore.DescriptorTableDesc{
		Label:   "test_table",
		Layout:  layout,
		MaxSets: []uint32{1, 4},
	})
	if err != nil {
		t.Fatalf("CreateDescriptorTable: %v", err)
	}

	tex, err := d.CreateTexture(&gpucore.TextureDesc{
		Label:  "test_image",
		Width:  4,
		Height: 4,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}

	// An empty write leaves the slot unbound.
	if err := d.WriteDescriptor(table, 1, 2, gpucore.DescriptorWrite{}); err != nil {
		t.Fatalf("empty write: %v", err)
	}
	if g := d.bindGroup(table, 1, 2); g != nil {
		t.Error("slot bound before its texture was written")
	}

	if err := d.WriteDescriptor(table, 1, 2, gpucore.DescriptorWrite{Texture: tex}); err != nil {
		t.Fatalf("texture write: %v", err)
	}
	if g := d.bindGroup(table, 1, 2); g == nil {
		t.Error("slot not bound after texture write")
	}

	// Rewriting retires the old group until WaitIdle.
	if err := d.WriteDescriptor(table, 1, 2, gpucore.DescriptorWrite{Texture: tex}); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if n := len(d.tables[table].retired); n != 1 {
		t.Errorf("retired groups = %d, want 1", n)
	}
	if err := d.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if n := len(d.tables[table].retired); n != 0 {
		t.Errorf("retired groups after WaitIdle = %d, want 0", n)
	}

	tests := []struct {
		name        string
		space, slot uint32
		w           gpucore.DescriptorWrite
		wantErr     error
	}{
		{"space out of range", 2, 0, gpucore.DescriptorWrite{}, nil},
		{"slot out of range", 1, 4, gpucore.DescriptorWrite{Texture: tex}, nil},
		{"unknown texture", 1, 0, gpucore.DescriptorWrite{Texture: 9999}, ErrUnknownResource},
		{"unknown sampler", 0, 0, gpucore.DescriptorWrite{Sampler: 9999}, ErrUnknownResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.WriteDescriptor(table, tt.space, tt.slot, tt.w)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if err := d.WriteDescriptor(9999, 0, 0, gpucore.DescriptorWrite{}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("unknown table: err = %v", err)
	}
}

func TestSubmitAndWaitIdle(t *testing.T) {
	d := openTestDevice(t)

	enc, err := d.CreateCommandEncoder("test_upload")
	if err != nil {
		t.Fatalf("CreateCommandEncoder: %v", err)
	}
	cmd, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := enc.Finish(); err == nil {
		t.Error("second Finish should fail")
	}

	if err := d.Submit(cmd); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := d.Submit(cmd); err == nil {
		t.Error("resubmitting a command buffer should fail")
	}
	cmd.Release() // deferred to WaitIdle
	if got := d.Pending(); got != 1 {
		t.Errorf("Pending = %d, want 1", got)
	}
	if err := d.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if got := d.Pending(); got != 0 {
		t.Errorf("Pending after WaitIdle = %d, want 0", got)
	}
}

type foreignCmd struct{}

func (foreignCmd) Release() {}

func TestSubmitForeign(t *testing.T) {
	d := openTestDevice(t)
	if err := d.Submit(foreignCmd{}); !errors.Is(err, ErrForeignCommandBuffer) {
		t.Errorf("Submit(foreign) = %v, want ErrForeignCommandBuffer", err)
	}
	if err := d.Submit(); err != nil {
		t.Errorf("empty Submit = %v", err)
	}
}

type solidAtlas struct {
	w, h int
	id   guirender.TextureID
}

func (a *solidAtlas) RGBA32() ([]byte, int, int) {
	px := make([]byte, a.w*a.h*4)
	for i := range px {
		px[i] = 0xFF
	}
	return px, a.w, a.h
}

func (a *solidAtlas) SetTextureID(id guirender.TextureID) { a.id = id }

func TestBackendOnNoopDevice(t *testing.T) {
	d := openTestDevice(t)

	b, err := guirender.New(guirender.NewConfig(d, 2))
	if err != nil {
		t.Fatalf("guirender.New: %v", err)
	}

	atlas := &solidAtlas{w: 37, h: 9}
	fontID, err := b.CreateFontTexture(atlas)
	if err != nil {
		t.Fatalf("CreateFontTexture: %v", err)
	}
	if atlas.id != fontID {
		t.Errorf("atlas id = %v, want %v", atlas.id, fontID)
	}

	target, err := d.CreateRenderTarget(320, 200, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("CreateRenderTarget: %v", err)
	}

	list := &guirender.DrawList{
		VtxBuffer: []guirender.DrawVert{
			{Pos: [2]float32{10, 10}, Col: 0xFFFFFFFF},
			{Pos: [2]float32{100, 10}, Col: 0xFFFFFFFF},
			{Pos: [2]float32{100, 100}, Col: 0xFFFFFFFF},
		},
		IdxBuffer: []guirender.DrawIdx{0, 1, 2},
		CmdBuffer: []guirender.DrawCmd{
			{ClipRect: [4]float32{0, 0, 320, 200}, TextureID: fontID, ElemCount: 3},
		},
	}
	data := &guirender.DrawData{
		CmdLists:         []*guirender.DrawList{list},
		DisplaySize:      [2]float32{320, 200},
		FramebufferScale: [2]float32{1, 1},
	}

	for range 3 {
		b.NewFrame()
		frame, err := d.BeginFrame(target, gputypes.Color{A: 1})
		if err != nil {
			t.Fatalf("BeginFrame: %v", err)
		}
		if err := b.RenderDrawData(data, gputypes.TextureFormatBGRA8Unorm, frame.Pass()); err != nil {
			t.Fatalf("RenderDrawData: %v", err)
		}
		if err := frame.End(); err != nil {
			t.Fatalf("Frame.End: %v", err)
		}
	}
	if err := d.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}

	b.Shutdown()
	d.DestroyTexture(target)

	if n := len(d.buffers) + len(d.textures) + len(d.pipelines) + len(d.tables) + len(d.layouts) + len(d.shaders) + len(d.samplers); n != 0 {
		t.Errorf("%d resources leaked after Shutdown", n)
	}
}

func TestBeginFrameUnknownTarget(t *testing.T) {
	d := openTestDevice(t)
	if _, err := d.BeginFrame(9999, gputypes.Color{}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("BeginFrame(unknown) = %v, want ErrUnknownResource", err)
	}
	if _, err := d.CreateRenderTarget(0, 10, gputypes.TextureFormatBGRA8Unorm); err == nil {
		t.Error("zero-width render target should fail")
	}
}

type fakeDevice struct{}

func (fakeDevice) Poll(bool) {}
func (fakeDevice) Destroy()  {}

// fakeProvider implements gpucontext.DeviceProvider without HAL access.
type fakeProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (p *fakeProvider) Device() gpucontext.Device   { return fakeDevice{} }
func (p *fakeProvider) Queue() gpucontext.Queue     { return nil }
func (p *fakeProvider) Adapter() gpucontext.Adapter { return nil }
func (p *fakeProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}

type fakeHALProvider struct{ fakeProvider }

func (p *fakeHALProvider) HalDevice() any { return p.device }
func (p *fakeHALProvider) HalQueue() any  { return p.queue }

func TestNewFromProvider(t *testing.T) {
	if _, err := NewFromProvider(&fakeProvider{}); !errors.Is(err, ErrNotHAL) {
		t.Errorf("plain provider: err = %v, want ErrNotHAL", err)
	}
	if _, err := NewFromProvider(&fakeHALProvider{}); !errors.Is(err, ErrNotHAL) {
		t.Errorf("nil HAL device: err = %v, want ErrNotHAL", err)
	}

	host := openTestDevice(t)
	d, err := NewFromProvider(&fakeHALProvider{fakeProvider{device: host.device, queue: host.queue}})
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	defer d.Close()
	if d.device != host.device {
		t.Error("provider device not shared")
	}
}
