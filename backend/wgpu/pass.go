package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/guirender/gpucore"
)

// renderPass implements gpucore.RenderPass on a hal.RenderPassEncoder.
type renderPass struct {
	device *Device
	raw    hal.RenderPassEncoder
}

// WrapRenderPass adapts a pass recorded by the host. The pass must belong
// to an encoder created on this device's HAL device.
func (d *Device) WrapRenderPass(rp hal.RenderPassEncoder) gpucore.RenderPass {
	return &renderPass{device: d, raw: rp}
}

func (p *renderPass) SetPipeline(id gpucore.RenderPipelineID) {
	p.device.mu.RLock()
	pipeline, ok := p.device.pipelines[id]
	p.device.mu.RUnlock()
	if ok {
		p.raw.SetPipeline(pipeline)
	}
}

func (p *renderPass) SetVertexBuffer(slot uint32, id gpucore.BufferID, offset uint64) {
	if b, ok := p.device.lookupBuffer(id); ok {
		p.raw.SetVertexBuffer(slot, b.raw, offset)
	}
}

func (p *renderPass) SetIndexBuffer(id gpucore.BufferID, format gputypes.IndexFormat, offset uint64) {
	if b, ok := p.device.lookupBuffer(id); ok {
		p.raw.SetIndexBuffer(b.raw, format, offset)
	}
}

func (p *renderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.raw.SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (p *renderPass) SetScissorRect(x, y, width, height uint32) {
	p.raw.SetScissorRect(x, y, width, height)
}

// SetPushConstants writes data into the device's push constant buffer.
// Data beyond the block size is dropped.
func (p *renderPass) SetPushConstants(data []byte) {
	if len(data) > pushConstantSize {
		data = data[:pushConstantSize]
	}
	p.device.queue.WriteBuffer(p.device.push, 0, data)
}

func (p *renderPass) SetDescriptorTable(table gpucore.DescriptorTableID, space, slot uint32) {
	if g := p.device.bindGroup(table, space, slot); g != nil {
		p.raw.SetBindGroup(space, g, nil)
	}
}

func (p *renderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.raw.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

// === Frames ===

// CreateRenderTarget creates an image usable as a color attachment. The
// image can be copied from and sampled.
func (d *Device) CreateRenderTarget(width, height uint32, format gputypes.TextureFormat) (gpucore.TextureID, error) {
	if width == 0 || height == 0 {
		return gpucore.InvalidID, fmt.Errorf("create render target: dimensions must be positive, got %dx%d", width, height)
	}
	return d.CreateTexture(&gpucore.TextureDesc{
		Label:  "gui_render_target",
		Width:  width,
		Height: height,
		Format: format,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageTextureBinding,
	})
}

// Frame is a render pass on an adapter-owned target, opened by BeginFrame.
type Frame struct {
	device  *Device
	encoder hal.CommandEncoder
	raw     hal.RenderPassEncoder
	pass    *renderPass
	ended   bool
}

// BeginFrame records a render pass that clears target to clear.
func (d *Device) BeginFrame(target gpucore.TextureID, clear gputypes.Color) (*Frame, error) {
	tex, ok := d.lookupTexture(target)
	if !ok {
		return nil, fmt.Errorf("begin frame: target %d: %w", target, ErrUnknownResource)
	}

	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "gui_frame"})
	if err != nil {
		return nil, fmt.Errorf("begin frame: create encoder: %w", err)
	}
	if err := enc.BeginEncoding("gui_frame"); err != nil {
		return nil, fmt.Errorf("begin frame: begin encoding: %w", err)
	}

	rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "gui_frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       tex.view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: clear,
			},
		},
	})
	return &Frame{
		device:  d,
		encoder: enc,
		raw:     rp,
		pass:    &renderPass{device: d, raw: rp},
	}, nil
}

// Pass returns the frame's render pass.
func (f *Frame) Pass() gpucore.RenderPass {
	return f.pass
}

// End closes the pass and submits the frame. The submission is waited on
// by the next WaitIdle.
func (f *Frame) End() error {
	if f.ended {
		return nil
	}
	f.ended = true
	f.raw.End()

	raw, err := f.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	return f.device.Submit(&commandBuffer{device: f.device, raw: raw})
}
