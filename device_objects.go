package guirender

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/guirender/gpucore"
	"github.com/gogpu/guirender/internal/geometry"
	"github.com/gogpu/guirender/internal/shaders"
)

// guiBlend is straight alpha blending for color with alpha accumulated
// as one + one-minus-src-alpha.
var guiBlend = gputypes.BlendState{
	Color: gputypes.BlendComponent{
		SrcFactor: gputypes.BlendFactorSrcAlpha,
		DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
		Operation: gputypes.BlendOperationAdd,
	},
	Alpha: gputypes.BlendComponent{
		SrcFactor: gputypes.BlendFactorOne,
		DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
		Operation: gputypes.BlendOperationAdd,
	},
}

// vertexLayout matches DrawVert: pos at 0, uv at 8, col at 16.
var vertexLayout = gputypes.VertexBufferLayout{
	ArrayStride: geometry.VertexSize,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
		{Format: gputypes.VertexFormatUnorm8x4, Offset: 16, ShaderLocation: 2},
	},
}

// descriptorSpaces is the binding layout of the descriptor table.
// Space 0: sampler and transform. Space 1: one sampled texture.
func descriptorSpaces() [][]gputypes.BindGroupLayoutEntry {
	return [][]gputypes.BindGroupLayoutEntry{
		{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageVertex,
				Buffer: &gputypes.BufferBindingLayout{
					Type:           gputypes.BufferBindingTypeUniform,
					MinBindingSize: shaders.TransformSize,
				},
			},
		},
		{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	}
}

// createDeviceObjects creates the shaders, descriptor layout, descriptor
// table and sampler. Already created objects are kept.
func (b *Backend) createDeviceObjects() error {
	dev := b.cfg.Device
	var err error

	if b.vertexShader == gpucore.InvalidID {
		if b.vertexShader, err = b.createShader(shaders.Vertex()); err != nil {
			return err
		}
	}
	if b.fragmentShader == gpucore.InvalidID {
		if b.fragmentShader, err = b.createShader(shaders.Fragment()); err != nil {
			return err
		}
	}

	if b.layout == gpucore.InvalidID {
		b.layout, err = dev.CreateDescriptorLayout(&gpucore.DescriptorLayoutDesc{
			Label:  "gui_layout",
			Spaces: descriptorSpaces(),
		})
		if b.check(err) != nil {
			return fmt.Errorf("create descriptor layout: %w", err)
		}
	}

	if b.table == gpucore.InvalidID {
		b.table, err = dev.CreateDescriptorTable(&gpucore.DescriptorTableDesc{
			Label:   "gui_descriptors",
			Layout:  b.layout,
			MaxSets: []uint32{1, uint32(b.cfg.MaxTextures)},
		})
		if b.check(err) != nil {
			return fmt.Errorf("create descriptor table: %w", err)
		}
	}

	if b.sampler == gpucore.InvalidID {
		b.sampler, err = dev.CreateSampler(&gpucore.SamplerDesc{
			Label:        "gui_sampler",
			AddressModeU: gputypes.AddressModeRepeat,
			AddressModeV: gputypes.AddressModeRepeat,
			AddressModeW: gputypes.AddressModeRepeat,
			MagFilter:    gputypes.FilterModeLinear,
			MinFilter:    gputypes.FilterModeLinear,
			MipmapFilter: gputypes.FilterModeLinear,
			LodMinClamp:  -1000,
			LodMaxClamp:  1000,
		})
		if b.check(err) != nil {
			return fmt.Errorf("create sampler: %w", err)
		}
		err = dev.WriteDescriptor(b.table, gpucore.SpaceShared, 0, gpucore.DescriptorWrite{Sampler: b.sampler})
		if b.check(err) != nil {
			return fmt.Errorf("bind sampler: %w", err)
		}
	}
	return nil
}

func (b *Backend) createShader(desc *gpucore.ShaderDesc) (gpucore.ShaderModuleID, error) {
	n, err := shaders.Validate(desc)
	if b.check(err) != nil {
		return gpucore.InvalidID, err
	}
	b.logger().Debug("guirender: shader validated", "shader", desc.Label, "spirv_bytes", n)

	id, err := b.cfg.Device.CreateShaderModule(desc)
	if b.check(err) != nil {
		return gpucore.InvalidID, fmt.Errorf("create shader %q: %w", desc.Label, err)
	}
	return id, nil
}

// compilePipeline builds the GUI pipeline for a color target format.
func (b *Backend) compilePipeline(format gputypes.TextureFormat) (gpucore.RenderPipelineID, error) {
	blend := guiBlend
	id, err := b.cfg.Device.CreateRenderPipeline(&gpucore.RenderPipelineDesc{
		Label:          "gui_pipeline",
		Layout:         b.layout,
		VertexShader:   b.vertexShader,
		FragmentShader: b.fragmentShader,
		VertexBuffers:  []gputypes.VertexBufferLayout{vertexLayout},
		Topology:       gputypes.PrimitiveTopologyTriangleList,
		CullMode:       gputypes.CullModeNone,
		FrontFace:      gputypes.FrontFaceCCW,
		ColorFormat:    format,
		Blend:          &blend,
		SampleCount:    b.cfg.SampleCount,
	})
	if b.check(err) != nil {
		return gpucore.InvalidID, err
	}
	b.logger().Debug("guirender: pipeline compiled", "format", format, "samples", b.cfg.SampleCount)
	return id, nil
}

// destroyDeviceObjects releases everything in teardown order: frame
// buffers, staging buffer, pipelines, descriptor table, descriptor layout,
// shaders, font image, sampler.
func (b *Backend) destroyDeviceObjects() {
	dev := b.cfg.Device

	b.frames.Destroy()
	b.DestroyFontUploadObjects()
	b.pipelines.Destroy()

	if b.table != gpucore.InvalidID {
		dev.DestroyDescriptorTable(b.table)
		b.table = gpucore.InvalidID
	}
	if b.layout != gpucore.InvalidID {
		dev.DestroyDescriptorLayout(b.layout)
		b.layout = gpucore.InvalidID
	}
	if b.vertexShader != gpucore.InvalidID {
		dev.DestroyShaderModule(b.vertexShader)
		b.vertexShader = gpucore.InvalidID
	}
	if b.fragmentShader != gpucore.InvalidID {
		dev.DestroyShaderModule(b.fragmentShader)
		b.fragmentShader = gpucore.InvalidID
	}
	if b.fontImage != gpucore.InvalidID {
		dev.DestroyTexture(b.fontImage)
		b.fontImage = gpucore.InvalidID
		b.fontID = NoTexture
	}
	if b.sampler != gpucore.InvalidID {
		dev.DestroySampler(b.sampler)
		b.sampler = gpucore.InvalidID
	}
}
