package wgpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/guirender/gpucore"
)

// fenceTimeout bounds a single wait for submitted work.
const fenceTimeout = 5 * time.Second

// ErrForeignCommandBuffer is returned when Submit receives a command
// buffer that was not recorded by this device.
var ErrForeignCommandBuffer = errors.New("wgpu: command buffer from another device")

// ErrFenceTimeout is returned when submitted work does not complete in time.
var ErrFenceTimeout = errors.New("wgpu: timed out waiting for GPU")

// submission tracks one queue submission until its fence signals.
type submission struct {
	fence hal.Fence
	cmds  []*commandBuffer
}

// encoder implements gpucore.CommandEncoder.
type encoder struct {
	device *Device
	raw    hal.CommandEncoder
	label  string
	done   bool
}

// commandBuffer implements gpucore.CommandBuffer.
type commandBuffer struct {
	device    *Device
	raw       hal.CommandBuffer
	submitted bool
	freed     bool
}

// CreateCommandEncoder implements gpucore.Device.
func (d *Device) CreateCommandEncoder(label string) (gpucore.CommandEncoder, error) {
	raw, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("create command encoder %q: %w", label, err)
	}
	if err := raw.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("begin encoding %q: %w", label, err)
	}
	return &encoder{device: d, raw: raw, label: label}, nil
}

// TransitionTexture implements gpucore.CommandEncoder.
func (e *encoder) TransitionTexture(id gpucore.TextureID, from, to gputypes.TextureUsage) {
	tex, ok := e.device.lookupTexture(id)
	if !ok || e.done {
		return
	}
	e.raw.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex.raw,
		Usage: hal.TextureUsageTransition{
			OldUsage: from,
			NewUsage: to,
		},
	}})
}

// CopyBufferToTexture implements gpucore.CommandEncoder.
func (e *encoder) CopyBufferToTexture(src gpucore.BufferID, dst gpucore.TextureID, region gpucore.BufferImageCopy) {
	buf, okBuf := e.device.lookupBuffer(src)
	tex, okTex := e.device.lookupTexture(dst)
	if !okBuf || !okTex || e.done {
		return
	}
	e.raw.CopyBufferToTexture(buf.raw, tex.raw, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       region.BufferOffset,
			BytesPerRow:  region.BytesPerRow,
			RowsPerImage: region.Height,
		},
		TextureBase: hal.ImageCopyTexture{
			Texture:  tex.raw,
			MipLevel: 0,
		},
		Size: hal.Extent3D{
			Width:              region.Width,
			Height:             region.Height,
			DepthOrArrayLayers: 1,
		},
	}})
}

// Finish implements gpucore.CommandEncoder.
func (e *encoder) Finish() (gpucore.CommandBuffer, error) {
	if e.done {
		return nil, fmt.Errorf("finish %q: encoder already finished", e.label)
	}
	e.done = true
	raw, err := e.raw.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding %q: %w", e.label, err)
	}
	return &commandBuffer{device: e.device, raw: raw}, nil
}

// Discard implements gpucore.CommandEncoder.
func (e *encoder) Discard() {
	if e.done {
		return
	}
	e.done = true
	e.raw.DiscardEncoding()
}

// Release implements gpucore.CommandBuffer. A submitted buffer is freed
// once its fence signals.
func (c *commandBuffer) Release() {
	if c.submitted || c.freed {
		return
	}
	c.freed = true
	c.device.device.FreeCommandBuffer(c.raw)
}

// Submit implements gpucore.Device. Each call signals its own fence.
func (d *Device) Submit(cmds ...gpucore.CommandBuffer) error {
	if len(cmds) == 0 {
		return nil
	}
	raws := make([]hal.CommandBuffer, 0, len(cmds))
	owned := make([]*commandBuffer, 0, len(cmds))
	for _, c := range cmds {
		cb, ok := c.(*commandBuffer)
		if !ok || cb.device != d {
			return ErrForeignCommandBuffer
		}
		if cb.submitted || cb.freed {
			return fmt.Errorf("submit: command buffer already submitted or released")
		}
		raws = append(raws, cb.raw)
		owned = append(owned, cb)
	}

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("submit: create fence: %w", err)
	}
	if err := d.queue.Submit(raws, fence, 1); err != nil {
		d.device.DestroyFence(fence)
		return fmt.Errorf("submit: %w", err)
	}
	for _, cb := range owned {
		cb.submitted = true
	}

	d.mu.Lock()
	d.inflight = append(d.inflight, submission{fence: fence, cmds: owned})
	d.mu.Unlock()
	return nil
}

// WaitIdle implements gpucore.Device. It waits for every pending
// submission, frees its command buffers and then destroys bind groups
// retired by descriptor rewrites.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	pending := d.inflight
	d.inflight = nil
	d.mu.Unlock()

	var errs []error
	for _, s := range pending {
		ok, err := d.device.Wait(s.fence, 1, fenceTimeout)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("wait fence: %w", err))
		case !ok:
			errs = append(errs, ErrFenceTimeout)
		}
		for _, cb := range s.cmds {
			cb.freed = true
			d.device.FreeCommandBuffer(cb.raw)
		}
		d.device.DestroyFence(s.fence)
	}

	d.mu.Lock()
	for _, t := range d.tables {
		d.releaseRetired(t)
	}
	d.mu.Unlock()

	return errors.Join(errs...)
}

// Pending reports the number of submissions not yet waited on.
func (d *Device) Pending() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.inflight)
}

func (d *Device) lookupBuffer(id gpucore.BufferID) (*buffer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.buffers[id]
	return b, ok
}

func (d *Device) lookupTexture(id gpucore.TextureID) (*texture, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.textures[id]
	return t, ok
}
