// Package gputest provides recording fakes of the gpucore interfaces for
// tests. The fakes keep every resource in host memory and log each call so
// tests can assert on ordering.
package gputest

import (
	"errors"
	"fmt"

	"github.com/gogpu/guirender/gpucore"
)

// ErrInjected is the default error returned by a failing operation.
var ErrInjected = errors.New("gputest: injected failure")

// Buffer is a fake buffer.
type Buffer struct {
	Desc      gpucore.BufferDesc
	Data      []byte
	Mapped    bool
	Destroyed bool
}

// Texture is a fake image with its recorded contents.
type Texture struct {
	Desc      gpucore.TextureDesc
	Data      []byte
	Destroyed bool
}

// Table is a fake descriptor table.
type Table struct {
	Desc      gpucore.DescriptorTableDesc
	Writes    map[[2]uint32]gpucore.DescriptorWrite
	Destroyed bool
}

// Pipeline is a fake graphics pipeline.
type Pipeline struct {
	Desc      gpucore.RenderPipelineDesc
	Destroyed bool
}

// Device is a recording gpucore.Device.
type Device struct {
	// Fail makes the named operation (for example "CreateRenderPipeline")
	// return the mapped error.
	Fail map[string]error

	// Calls logs every operation by name, in order.
	Calls []string

	Buffers   map[gpucore.BufferID]*Buffer
	Textures  map[gpucore.TextureID]*Texture
	Tables    map[gpucore.DescriptorTableID]*Table
	Pipelines map[gpucore.RenderPipelineID]*Pipeline
	Samplers  map[gpucore.SamplerID]gpucore.SamplerDesc
	Shaders   map[gpucore.ShaderModuleID]gpucore.ShaderDesc
	Layouts   map[gpucore.DescriptorLayoutID]gpucore.DescriptorLayoutDesc

	Submitted []*CommandBuffer
	WaitIdles int

	nextID uint64
}

var _ gpucore.Device = (*Device)(nil)

// NewDevice returns an empty recording device.
func NewDevice() *Device {
	return &Device{
		Fail:      make(map[string]error),
		Buffers:   make(map[gpucore.BufferID]*Buffer),
		Textures:  make(map[gpucore.TextureID]*Texture),
		Tables:    make(map[gpucore.DescriptorTableID]*Table),
		Pipelines: make(map[gpucore.RenderPipelineID]*Pipeline),
		Samplers:  make(map[gpucore.SamplerID]gpucore.SamplerDesc),
		Shaders:   make(map[gpucore.ShaderModuleID]gpucore.ShaderDesc),
		Layouts:   make(map[gpucore.DescriptorLayoutID]gpucore.DescriptorLayoutDesc),
	}
}

func (d *Device) call(op string) error {
	d.Calls = append(d.Calls, op)
	if err, ok := d.Fail[op]; ok {
		if err == nil {
			err = ErrInjected
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if err := d.call("CreateBuffer"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.BufferID(d.id())
	d.Buffers[id] = &Buffer{Desc: *desc, Data: make([]byte, desc.Size)}
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.Calls = append(d.Calls, "DestroyBuffer")
	if b, ok := d.Buffers[id]; ok {
		b.Destroyed = true
	}
}

// BufferSize implements gpucore.Device.
func (d *Device) BufferSize(id gpucore.BufferID) uint64 {
	if b, ok := d.Buffers[id]; ok {
		return b.Desc.Size
	}
	return 0
}

// MapBuffer implements gpucore.Device.
func (d *Device) MapBuffer(id gpucore.BufferID) ([]byte, error) {
	if err := d.call("MapBuffer"); err != nil {
		return nil, err
	}
	b, ok := d.Buffers[id]
	if !ok || b.Destroyed {
		return nil, fmt.Errorf("MapBuffer: unknown buffer %d", id)
	}
	if b.Mapped {
		return nil, fmt.Errorf("MapBuffer: buffer %d already mapped", id)
	}
	b.Mapped = true
	return b.Data, nil
}

// UnmapBuffer implements gpucore.Device.
func (d *Device) UnmapBuffer(id gpucore.BufferID) {
	d.Calls = append(d.Calls, "UnmapBuffer")
	if b, ok := d.Buffers[id]; ok {
		b.Mapped = false
	}
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if err := d.call("CreateTexture"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.TextureID(d.id())
	d.Textures[id] = &Texture{Desc: *desc}
	return id, nil
}

// DestroyTexture implements gpucore.Device.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.Calls = append(d.Calls, "DestroyTexture")
	if t, ok := d.Textures[id]; ok {
		t.Destroyed = true
	}
}

// CreateSampler implements gpucore.Device.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	if err := d.call("CreateSampler"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.SamplerID(d.id())
	d.Samplers[id] = *desc
	return id, nil
}

// DestroySampler implements gpucore.Device.
func (d *Device) DestroySampler(id gpucore.SamplerID) {
	d.Calls = append(d.Calls, "DestroySampler")
	delete(d.Samplers, id)
}

// CreateShaderModule implements gpucore.Device.
func (d *Device) CreateShaderModule(desc *gpucore.ShaderDesc) (gpucore.ShaderModuleID, error) {
	if err := d.call("CreateShaderModule"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ShaderModuleID(d.id())
	d.Shaders[id] = *desc
	return id, nil
}

// DestroyShaderModule implements gpucore.Device.
func (d *Device) DestroyShaderModule(id gpucore.ShaderModuleID) {
	d.Calls = append(d.Calls, "DestroyShaderModule")
	delete(d.Shaders, id)
}

// CreateDescriptorLayout implements gpucore.Device.
func (d *Device) CreateDescriptorLayout(desc *gpucore.DescriptorLayoutDesc) (gpucore.DescriptorLayoutID, error) {
	if err := d.call("CreateDescriptorLayout"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.DescriptorLayoutID(d.id())
	d.Layouts[id] = *desc
	return id, nil
}

// DestroyDescriptorLayout implements gpucore.Device.
func (d *Device) DestroyDescriptorLayout(id gpucore.DescriptorLayoutID) {
	d.Calls = append(d.Calls, "DestroyDescriptorLayout")
	delete(d.Layouts, id)
}

// CreateRenderPipeline implements gpucore.Device.
func (d *Device) CreateRenderPipeline(desc *gpucore.RenderPipelineDesc) (gpucore.RenderPipelineID, error) {
	if err := d.call("CreateRenderPipeline"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.RenderPipelineID(d.id())
	d.Pipelines[id] = &Pipeline{Desc: *desc}
	return id, nil
}

// DestroyRenderPipeline implements gpucore.Device.
func (d *Device) DestroyRenderPipeline(id gpucore.RenderPipelineID) {
	d.Calls = append(d.Calls, "DestroyRenderPipeline")
	if p, ok := d.Pipelines[id]; ok {
		p.Destroyed = true
	}
}

// CreateDescriptorTable implements gpucore.Device.
func (d *Device) CreateDescriptorTable(desc *gpucore.DescriptorTableDesc) (gpucore.DescriptorTableID, error) {
	if err := d.call("CreateDescriptorTable"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.DescriptorTableID(d.id())
	d.Tables[id] = &Table{Desc: *desc, Writes: make(map[[2]uint32]gpucore.DescriptorWrite)}
	return id, nil
}

// DestroyDescriptorTable implements gpucore.Device.
func (d *Device) DestroyDescriptorTable(id gpucore.DescriptorTableID) {
	d.Calls = append(d.Calls, "DestroyDescriptorTable")
	if t, ok := d.Tables[id]; ok {
		t.Destroyed = true
	}
}

// WriteDescriptor implements gpucore.Device.
func (d *Device) WriteDescriptor(table gpucore.DescriptorTableID, space, slot uint32, w gpucore.DescriptorWrite) error {
	if err := d.call("WriteDescriptor"); err != nil {
		return err
	}
	t, ok := d.Tables[table]
	if !ok || t.Destroyed {
		return fmt.Errorf("WriteDescriptor: unknown table %d", table)
	}
	if int(space) >= len(t.Desc.MaxSets) || slot >= t.Desc.MaxSets[space] {
		return fmt.Errorf("WriteDescriptor: space %d slot %d out of range", space, slot)
	}
	t.Writes[[2]uint32{space, slot}] = w
	return nil
}

// CreateCommandEncoder implements gpucore.Device.
func (d *Device) CreateCommandEncoder(label string) (gpucore.CommandEncoder, error) {
	if err := d.call("CreateCommandEncoder"); err != nil {
		return nil, err
	}
	return &Encoder{device: d, Label: label}, nil
}

// Submit implements gpucore.Device. Submitted copies are applied to the
// destination textures immediately.
func (d *Device) Submit(cmds ...gpucore.CommandBuffer) error {
	if err := d.call("Submit"); err != nil {
		return err
	}
	for _, c := range cmds {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("Submit: foreign command buffer %T", c)
		}
		for _, op := range cb.Ops {
			if op.Name != "CopyBufferToTexture" {
				continue
			}
			src, dst := d.Buffers[op.Buffer], d.Textures[op.Texture]
			if src == nil || dst == nil {
				return fmt.Errorf("Submit: copy references unknown resources")
			}
			n := uint64(op.Region.BytesPerRow) * uint64(op.Region.Height)
			dst.Data = append([]byte(nil), src.Data[op.Region.BufferOffset:op.Region.BufferOffset+n]...)
		}
		d.Submitted = append(d.Submitted, cb)
	}
	return nil
}

// WaitIdle implements gpucore.Device.
func (d *Device) WaitIdle() error {
	if err := d.call("WaitIdle"); err != nil {
		return err
	}
	d.WaitIdles++
	return nil
}

// LiveBuffers returns the number of buffers not yet destroyed.
func (d *Device) LiveBuffers() int {
	n := 0
	for _, b := range d.Buffers {
		if !b.Destroyed {
			n++
		}
	}
	return n
}

// LiveTextures returns the number of images not yet destroyed.
func (d *Device) LiveTextures() int {
	n := 0
	for _, t := range d.Textures {
		if !t.Destroyed {
			n++
		}
	}
	return n
}

// LivePipelines returns the number of pipelines not yet destroyed.
func (d *Device) LivePipelines() int {
	n := 0
	for _, p := range d.Pipelines {
		if !p.Destroyed {
			n++
		}
	}
	return n
}

// Count returns how many times op was called.
func (d *Device) Count(op string) int {
	n := 0
	for _, c := range d.Calls {
		if c == op {
			n++
		}
	}
	return n
}
