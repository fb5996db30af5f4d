package gpucore

import "github.com/gogpu/gputypes"

// Device abstracts the graphics device used by the backend.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource the GPU may still read is undefined behavior;
//     callers are responsible for deferring destruction
//   - Destroy* on InvalidID is a no-op
//
// A Device is used from a single goroutine.
type Device interface {
	// === Buffers ===

	// CreateBuffer creates a GPU buffer.
	CreateBuffer(desc *BufferDesc) (BufferID, error)

	// DestroyBuffer releases a GPU buffer.
	DestroyBuffer(id BufferID)

	// BufferSize returns the allocated size of a buffer, or 0 if unknown.
	BufferSize(id BufferID) uint64

	// MapBuffer maps a host-visible buffer and returns its whole contents.
	// The slice is valid until UnmapBuffer.
	MapBuffer(id BufferID) ([]byte, error)

	// UnmapBuffer unmaps a buffer, making written data visible to the GPU.
	UnmapBuffer(id BufferID)

	// === Images and samplers ===

	CreateTexture(desc *TextureDesc) (TextureID, error)
	DestroyTexture(id TextureID)

	CreateSampler(desc *SamplerDesc) (SamplerID, error)
	DestroySampler(id SamplerID)

	// === Shaders and pipelines ===

	CreateShaderModule(desc *ShaderDesc) (ShaderModuleID, error)
	DestroyShaderModule(id ShaderModuleID)

	CreateDescriptorLayout(desc *DescriptorLayoutDesc) (DescriptorLayoutID, error)
	DestroyDescriptorLayout(id DescriptorLayoutID)

	CreateRenderPipeline(desc *RenderPipelineDesc) (RenderPipelineID, error)
	DestroyRenderPipeline(id RenderPipelineID)

	// === Descriptor tables ===

	CreateDescriptorTable(desc *DescriptorTableDesc) (DescriptorTableID, error)
	DestroyDescriptorTable(id DescriptorTableID)

	// WriteDescriptor binds a resource into a slot of a table space,
	// replacing whatever was bound there.
	WriteDescriptor(table DescriptorTableID, space, slot uint32, w DescriptorWrite) error

	// === Submission ===

	// CreateCommandEncoder begins recording a one-off command buffer.
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Submit submits finished command buffers to the graphics queue.
	Submit(cmds ...CommandBuffer) error

	// WaitIdle blocks until the graphics queue has finished all work.
	WaitIdle() error
}

// CommandEncoder records transfer commands outside a render pass.
type CommandEncoder interface {
	// TransitionTexture inserts a barrier moving an image between usages.
	TransitionTexture(tex TextureID, from, to gputypes.TextureUsage)

	// CopyBufferToTexture copies pixel data from a buffer into an image.
	CopyBufferToTexture(src BufferID, dst TextureID, region BufferImageCopy)

	// Finish ends recording and returns the command buffer.
	Finish() (CommandBuffer, error)

	// Discard abandons recording.
	Discard()
}

// CommandBuffer is a finished recording ready for submission.
type CommandBuffer interface {
	// Release frees the command buffer after its submission completed.
	Release()
}

// RenderPass records draw commands into the caller's render pass.
type RenderPass interface {
	SetPipeline(pipeline RenderPipelineID)
	SetVertexBuffer(slot uint32, buf BufferID, offset uint64)
	SetIndexBuffer(buf BufferID, format gputypes.IndexFormat, offset uint64)
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetScissorRect(x, y, width, height uint32)

	// SetPushConstants uploads a small uniform block visible to all stages.
	SetPushConstants(data []byte)

	// SetDescriptorTable binds slot of table space to the matching
	// pipeline space.
	SetDescriptorTable(table DescriptorTableID, space, slot uint32)

	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}
