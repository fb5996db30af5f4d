package gpucore

import "github.com/gogpu/gputypes"

// Resource IDs
//
// These opaque IDs represent GPU resources. Each adapter implementation
// maintains a mapping between IDs and actual backend resources.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU image.
type TextureID uint64

// SamplerID is an opaque handle to a sampler.
type SamplerID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// DescriptorLayoutID is an opaque handle to a descriptor layout.
type DescriptorLayoutID uint64

// DescriptorTableID is an opaque handle to a descriptor table.
type DescriptorTableID uint64

// RenderPipelineID is an opaque handle to a graphics pipeline.
type RenderPipelineID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Descriptor table spaces used by the GUI pipeline.
const (
	// SpaceShared holds the sampler and the transform uniform.
	SpaceShared uint32 = 0

	// SpaceTextures holds one sampled image per slot.
	SpaceTextures uint32 = 1
)

// UsageUndefined is the usage of an image whose contents are undefined,
// the source state of the first transition after creation.
const UsageUndefined gputypes.TextureUsage = 0

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	// Label is an optional debug label.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage gputypes.BufferUsage

	// HostVisible requests memory the CPU can map and write (cpu_to_gpu).
	HostVisible bool
}

// TextureDesc describes a 2D image to create.
type TextureDesc struct {
	Label       string
	Width       uint32
	Height      uint32
	Format      gputypes.TextureFormat
	Usage       gputypes.TextureUsage
	SampleCount uint32
}

// SamplerDesc describes a sampler.
type SamplerDesc struct {
	Label        string
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
	AddressModeW gputypes.AddressMode
	MagFilter    gputypes.FilterMode
	MinFilter    gputypes.FilterMode
	MipmapFilter gputypes.FilterMode
	LodMinClamp  float32
	LodMaxClamp  float32
}

// ShaderStage identifies the pipeline stage a shader module runs in.
type ShaderStage uint32

// Shader stages.
const (
	ShaderStageVertex ShaderStage = iota + 1
	ShaderStageFragment
)

// String returns the stage name.
func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// ShaderDesc describes a shader module.
type ShaderDesc struct {
	Label      string
	Stage      ShaderStage
	EntryPoint string

	// WGSL is the shader source.
	WGSL string
}

// DescriptorLayoutDesc describes the binding layout of every space of a
// descriptor table. Spaces[i] lists the bindings of space i.
type DescriptorLayoutDesc struct {
	Label  string
	Spaces [][]gputypes.BindGroupLayoutEntry
}

// DescriptorTableDesc describes a descriptor table.
type DescriptorTableDesc struct {
	Label  string
	Layout DescriptorLayoutID

	// MaxSets is the number of slots in each space.
	MaxSets []uint32
}

// DescriptorWrite is the resource written into a descriptor table slot.
// Exactly one of Sampler or Texture is set.
type DescriptorWrite struct {
	Sampler SamplerID
	Texture TextureID
}

// RenderPipelineDesc describes a graphics pipeline.
type RenderPipelineDesc struct {
	Label          string
	Layout         DescriptorLayoutID
	VertexShader   ShaderModuleID
	FragmentShader ShaderModuleID
	VertexBuffers  []gputypes.VertexBufferLayout
	Topology       gputypes.PrimitiveTopology
	CullMode       gputypes.CullMode
	FrontFace      gputypes.FrontFace
	ColorFormat    gputypes.TextureFormat
	Blend          *gputypes.BlendState
	SampleCount    uint32
}

// BufferImageCopy describes a buffer-to-image copy region.
type BufferImageCopy struct {
	BufferOffset uint64
	BytesPerRow  uint32
	Width        uint32
	Height       uint32
}
