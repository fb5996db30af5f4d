// Package wgpu implements the gpucore device contract on gogpu/wgpu's HAL.
//
// The adapter runs on any HAL backend: Vulkan, Metal, DX12, GLES, the
// software rasterizer, or noop for tests. A device can be opened by the
// adapter ([OpenNoop], [OpenBackend]) or shared with a host application
// ([New], [NewFromProvider]).
//
// # Mapping
//
//   - Buffers: host-visible buffers keep a host shadow. MapBuffer returns the
//     shadow and UnmapBuffer writes it to the GPU with Queue.WriteBuffer.
//   - Descriptor tables: each (space, slot) pair is a bind group created
//     when its resources are written. Space 0 uniform bindings are bound to
//     the device's push constant buffer.
//   - Push constants: written with Queue.WriteBuffer into one uniform
//     buffer. Queue writes land before the command buffer that follows
//     them, so the last value pushed in a pass is the one every draw of the
//     pass sees.
//
// # Render Passes
//
// The backend records into a caller-owned pass. [Device.WrapRenderPass]
// adapts a hal.RenderPassEncoder; [Device.BeginFrame] opens a pass on an
// adapter-owned target and submits it on [Frame.End].
package wgpu
