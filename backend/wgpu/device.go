package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/guirender"
	"github.com/gogpu/guirender/gpucore"
)

// Adapter errors.
var (
	// ErrNoAdapter is returned when a HAL instance exposes no adapters.
	ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

	// ErrBackendUnavailable is returned when the requested HAL backend is
	// not registered.
	ErrBackendUnavailable = errors.New("wgpu: backend not available")

	// ErrNotHAL is returned by NewFromProvider when the provider does not
	// expose HAL types.
	ErrNotHAL = errors.New("wgpu: provider does not expose HAL device and queue")

	// ErrUnknownResource is returned for an ID this device did not create
	// or already destroyed.
	ErrUnknownResource = errors.New("wgpu: unknown resource")

	// ErrNotHostVisible is returned when mapping a buffer created without
	// HostVisible.
	ErrNotHostVisible = errors.New("wgpu: buffer is not host visible")
)

// pushConstantSize is the size of the emulated push constant block.
const pushConstantSize = 256

type buffer struct {
	raw    hal.Buffer
	size   uint64
	shadow []byte // non-nil for host-visible buffers
	mapped bool
}

type texture struct {
	raw  hal.Texture
	view hal.TextureView
	desc gpucore.TextureDesc
}

type shader struct {
	module hal.ShaderModule
	desc   gpucore.ShaderDesc
}

// Device implements gpucore.Device on a hal.Device and its queue.
//
// Thread Safety: resource maps are guarded by a mutex so IDs can be
// created and destroyed from any goroutine. Recording and submission
// follow the single-threaded model of the backend.
type Device struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue

	nextID atomic.Uint64

	buffers   map[gpucore.BufferID]*buffer
	textures  map[gpucore.TextureID]*texture
	samplers  map[gpucore.SamplerID]hal.Sampler
	shaders   map[gpucore.ShaderModuleID]*shader
	layouts   map[gpucore.DescriptorLayoutID]*layout
	tables    map[gpucore.DescriptorTableID]*table
	pipelines map[gpucore.RenderPipelineID]hal.RenderPipeline

	// push is the uniform buffer behind SetPushConstants.
	push hal.Buffer

	inflight []submission
}

var _ gpucore.Device = (*Device)(nil)

// New wraps a HAL device and queue owned by the caller.
func New(device hal.Device, queue hal.Queue) (*Device, error) {
	d := &Device{
		device:    device,
		queue:     queue,
		buffers:   make(map[gpucore.BufferID]*buffer),
		textures:  make(map[gpucore.TextureID]*texture),
		samplers:  make(map[gpucore.SamplerID]hal.Sampler),
		shaders:   make(map[gpucore.ShaderModuleID]*shader),
		layouts:   make(map[gpucore.DescriptorLayoutID]*layout),
		tables:    make(map[gpucore.DescriptorTableID]*table),
		pipelines: make(map[gpucore.RenderPipelineID]hal.RenderPipeline),
	}
	// Start ID generation at 1 (0 is invalid).
	d.nextID.Store(1)

	push, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gui_push_constants",
		Size:  pushConstantSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create push constant buffer: %w", err)
	}
	d.push = push
	return d, nil
}

// NewFromProvider wraps the device shared by a host application. The
// provider, or its Device(), must expose HalDevice() and HalQueue().
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	var hp halProvider
	if p, ok := provider.(halProvider); ok {
		hp = p
	} else if p, ok := provider.Device().(halProvider); ok {
		hp = p
	} else {
		return nil, ErrNotHAL
	}

	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNotHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNotHAL, hp.HalQueue())
	}
	return New(device, queue)
}

// OpenNoop opens a device on the noop HAL backend. The returned cleanup
// closes the adapter and destroys the device and instance.
func OpenNoop() (*Device, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create noop instance: %w", err)
	}
	return open(instance, nil)
}

// OpenBackend opens the first discrete or integrated GPU of a registered
// HAL backend, falling back to the first adapter. The backend package must
// be imported for its side effects, for example
//
//	import _ "github.com/gogpu/wgpu/hal/vulkan"
func OpenBackend(kind gputypes.Backend) (*Device, func(), error) {
	backend, ok := hal.GetBackend(kind)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, kind)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, nil, fmt.Errorf("create instance: %w", err)
	}
	return open(instance, func(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
		for i := range adapters {
			if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
				adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
				return &adapters[i]
			}
		}
		return &adapters[0]
	})
}

func open(instance hal.Instance, pick func([]hal.ExposedAdapter) *hal.ExposedAdapter) (*Device, func(), error) {
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, ErrNoAdapter
	}
	selected := &adapters[0]
	if pick != nil {
		selected = pick(adapters)
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("open device: %w", err)
	}

	d, err := New(openDev.Device, openDev.Queue)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, nil, err
	}
	guirender.Logger().Info("wgpu: device opened", "adapter", selected.Info.Name, "type", selected.Info.DeviceType)

	cleanup := func() {
		d.Close()
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return d, cleanup, nil
}

// Close waits for in-flight work and destroys every resource still owned
// by the adapter. The HAL device itself is not destroyed.
func (d *Device) Close() {
	_ = d.WaitIdle()

	d.mu.Lock()
	defer d.mu.Unlock()

	for id, p := range d.pipelines {
		d.device.DestroyRenderPipeline(p)
		delete(d.pipelines, id)
	}
	for id, t := range d.tables {
		d.destroyTable(t)
		delete(d.tables, id)
	}
	for id, l := range d.layouts {
		d.destroyLayout(l)
		delete(d.layouts, id)
	}
	for id, s := range d.shaders {
		d.device.DestroyShaderModule(s.module)
		delete(d.shaders, id)
	}
	for id, s := range d.samplers {
		d.device.DestroySampler(s)
		delete(d.samplers, id)
	}
	for id, t := range d.textures {
		d.device.DestroyTextureView(t.view)
		d.device.DestroyTexture(t.raw)
		delete(d.textures, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.raw)
		delete(d.buffers, id)
	}
	if d.push != nil {
		d.device.DestroyBuffer(d.push)
		d.push = nil
	}
}

// newID generates a unique resource ID.
func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// === Buffers ===

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if desc.Size == 0 {
		return gpucore.InvalidID, fmt.Errorf("create buffer %q: size must be positive", desc.Label)
	}
	usage := desc.Usage
	if desc.HostVisible {
		// Unmap uploads the shadow with a queue write.
		usage |= gputypes.BufferUsageCopyDst
	}
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}

	b := &buffer{raw: raw, size: desc.Size}
	if desc.HostVisible {
		b.shadow = make([]byte, desc.Size)
	}
	id := gpucore.BufferID(d.newID())

	d.mu.Lock()
	d.buffers[id] = b
	d.mu.Unlock()
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	b, ok := d.buffers[id]
	if ok {
		delete(d.buffers, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyBuffer(b.raw)
	}
}

// BufferSize implements gpucore.Device.
func (d *Device) BufferSize(id gpucore.BufferID) uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if b, ok := d.buffers[id]; ok {
		return b.size
	}
	return 0
}

// MapBuffer implements gpucore.Device. The returned slice is the buffer's
// host shadow.
func (d *Device) MapBuffer(id gpucore.BufferID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("map buffer %d: %w", id, ErrUnknownResource)
	}
	if b.shadow == nil {
		return nil, fmt.Errorf("map buffer %d: %w", id, ErrNotHostVisible)
	}
	b.mapped = true
	return b.shadow, nil
}

// UnmapBuffer implements gpucore.Device. The shadow is written to the GPU
// ahead of the next submission.
func (d *Device) UnmapBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	b, ok := d.buffers[id]
	if ok && b.mapped {
		b.mapped = false
	} else {
		ok = false
	}
	d.mu.Unlock()

	if ok {
		d.queue.WriteBuffer(b.raw, 0, b.shadow)
	}
}

// === Images and samplers ===

// CreateTexture implements gpucore.Device. A default 2D view is created
// alongside the image for binding.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	samples := desc.SampleCount
	if samples == 0 {
		samples = 1
	}
	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:         desc.Label + "_view",
		Format:        desc.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(raw)
		return gpucore.InvalidID, fmt.Errorf("create texture view %q: %w", desc.Label, err)
	}

	id := gpucore.TextureID(d.newID())
	d.mu.Lock()
	d.textures[id] = &texture{raw: raw, view: view, desc: *desc}
	d.mu.Unlock()
	return id, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	t, ok := d.textures[id]
	if ok {
		delete(d.textures, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyTextureView(t.view)
		d.device.DestroyTexture(t.raw)
	}
}

// CreateSampler implements gpucore.Device.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	raw, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: desc.AddressModeU,
		AddressModeV: desc.AddressModeV,
		AddressModeW: desc.AddressModeW,
		MagFilter:    desc.MagFilter,
		MinFilter:    desc.MinFilter,
		MipmapFilter: desc.MipmapFilter,
		LodMinClamp:  max(desc.LodMinClamp, 0),
		LodMaxClamp:  desc.LodMaxClamp,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create sampler %q: %w", desc.Label, err)
	}
	id := gpucore.SamplerID(d.newID())
	d.mu.Lock()
	d.samplers[id] = raw
	d.mu.Unlock()
	return id, nil
}

// DestroySampler implements gpucore.Device.
func (d *Device) DestroySampler(id gpucore.SamplerID) {
	d.mu.Lock()
	s, ok := d.samplers[id]
	if ok {
		delete(d.samplers, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroySampler(s)
	}
}

// === Shaders ===

// CreateShaderModule implements gpucore.Device.
func (d *Device) CreateShaderModule(desc *gpucore.ShaderDesc) (gpucore.ShaderModuleID, error) {
	if desc.WGSL == "" {
		return gpucore.InvalidID, fmt.Errorf("create shader %q: empty WGSL source", desc.Label)
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{WGSL: desc.WGSL},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create shader %q: %w", desc.Label, err)
	}
	id := gpucore.ShaderModuleID(d.newID())
	d.mu.Lock()
	d.shaders[id] = &shader{module: module, desc: *desc}
	d.mu.Unlock()
	return id, nil
}

// DestroyShaderModule implements gpucore.Device.
func (d *Device) DestroyShaderModule(id gpucore.ShaderModuleID) {
	d.mu.Lock()
	s, ok := d.shaders[id]
	if ok {
		delete(d.shaders, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyShaderModule(s.module)
	}
}
