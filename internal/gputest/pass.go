package gputest

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/guirender/gpucore"
)

// Draw holds DrawIndexed arguments.
type Draw struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// Command is one recorded render pass command. Only the fields relevant
// to Op are set.
type Command struct {
	Op       string
	Pipeline gpucore.RenderPipelineID
	Buffer   gpucore.BufferID
	Slot     uint32
	Offset   uint64
	Format   gputypes.IndexFormat
	Viewport [6]float32
	Scissor  [4]uint32
	Push     []byte
	Table    gpucore.DescriptorTableID
	Space    uint32
	Draw     Draw
}

// Pass is a recording gpucore.RenderPass.
type Pass struct {
	Commands []Command
}

var _ gpucore.RenderPass = (*Pass)(nil)

// SetPipeline implements gpucore.RenderPass.
func (p *Pass) SetPipeline(pipeline gpucore.RenderPipelineID) {
	p.Commands = append(p.Commands, Command{Op: "SetPipeline", Pipeline: pipeline})
}

// SetVertexBuffer implements gpucore.RenderPass.
func (p *Pass) SetVertexBuffer(slot uint32, buf gpucore.BufferID, offset uint64) {
	p.Commands = append(p.Commands, Command{Op: "SetVertexBuffer", Slot: slot, Buffer: buf, Offset: offset})
}

// SetIndexBuffer implements gpucore.RenderPass.
func (p *Pass) SetIndexBuffer(buf gpucore.BufferID, format gputypes.IndexFormat, offset uint64) {
	p.Commands = append(p.Commands, Command{Op: "SetIndexBuffer", Buffer: buf, Format: format, Offset: offset})
}

// SetViewport implements gpucore.RenderPass.
func (p *Pass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.Commands = append(p.Commands, Command{Op: "SetViewport", Viewport: [6]float32{x, y, width, height, minDepth, maxDepth}})
}

// SetScissorRect implements gpucore.RenderPass.
func (p *Pass) SetScissorRect(x, y, width, height uint32) {
	p.Commands = append(p.Commands, Command{Op: "SetScissorRect", Scissor: [4]uint32{x, y, width, height}})
}

// SetPushConstants implements gpucore.RenderPass.
func (p *Pass) SetPushConstants(data []byte) {
	p.Commands = append(p.Commands, Command{Op: "SetPushConstants", Push: append([]byte(nil), data...)})
}

// SetDescriptorTable implements gpucore.RenderPass.
func (p *Pass) SetDescriptorTable(table gpucore.DescriptorTableID, space, slot uint32) {
	p.Commands = append(p.Commands, Command{Op: "SetDescriptorTable", Table: table, Space: space, Slot: slot})
}

// DrawIndexed implements gpucore.RenderPass.
func (p *Pass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.Commands = append(p.Commands, Command{Op: "DrawIndexed", Draw: Draw{
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		BaseVertex:    baseVertex,
		FirstInstance: firstInstance,
	}})
}

// Ops returns the recorded command names in order.
func (p *Pass) Ops() []string {
	ops := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		ops[i] = c.Op
	}
	return ops
}

// Filter returns the recorded commands named op.
func (p *Pass) Filter(op string) []Command {
	var out []Command
	for _, c := range p.Commands {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Draws returns the recorded DrawIndexed arguments.
func (p *Pass) Draws() []Draw {
	var out []Draw
	for _, c := range p.Filter("DrawIndexed") {
		out = append(out, c.Draw)
	}
	return out
}

// Scissors returns the recorded scissor rectangles.
func (p *Pass) Scissors() [][4]uint32 {
	var out [][4]uint32
	for _, c := range p.Filter("SetScissorRect") {
		out = append(out, c.Scissor)
	}
	return out
}
