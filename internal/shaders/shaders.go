// Package shaders embeds the WGSL sources of the GUI pipeline.
package shaders

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/guirender/gpucore"
)

//go:embed gui_vertex.wgsl
var vertexSource string

//go:embed gui_fragment.wgsl
var fragmentSource string

// Entry points.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// TransformSize is the size in bytes of the transform block: scale and
// translate, two vec2<f32>.
const TransformSize = 16

// Vertex returns the descriptor of the GUI vertex shader.
func Vertex() *gpucore.ShaderDesc {
	return &gpucore.ShaderDesc{
		Label:      "gui_vertex",
		Stage:      gpucore.ShaderStageVertex,
		EntryPoint: VertexEntry,
		WGSL:       vertexSource,
	}
}

// Fragment returns the descriptor of the GUI fragment shader.
func Fragment() *gpucore.ShaderDesc {
	return &gpucore.ShaderDesc{
		Label:      "gui_fragment",
		Stage:      gpucore.ShaderStageFragment,
		EntryPoint: FragmentEntry,
		WGSL:       fragmentSource,
	}
}

// Validate compiles desc's WGSL with naga and returns the SPIR-V size.
func Validate(desc *gpucore.ShaderDesc) (int, error) {
	spirv, err := naga.Compile(desc.WGSL)
	if err != nil {
		return 0, fmt.Errorf("compile %s shader %q: %w", desc.Stage, desc.Label, err)
	}
	return len(spirv), nil
}
