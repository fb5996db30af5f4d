package guirender

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/guirender/gpucore"
	"github.com/gogpu/guirender/internal/shaders"
)

// RenderDrawData records data into pass, which must target a color
// attachment of the given format.
//
// A minimized or degenerate display (framebuffer width or height ≤ 0)
// is a no-op. If the pipeline for format cannot be compiled, or the
// geometry cannot be uploaded, the frame is skipped: an error is returned
// and nothing has been recorded into pass.
//
// On return the scissor is reset to the full framebuffer. Other dynamic
// state set here (viewport, bindings) is left as is.
func (b *Backend) RenderDrawData(data *DrawData, format gputypes.TextureFormat, pass gpucore.RenderPass) error {
	b.mustInit("render")

	fbWidth := int(data.DisplaySize[0] * data.FramebufferScale[0])
	fbHeight := int(data.DisplaySize[1] * data.FramebufferScale[1])
	if fbWidth <= 0 || fbHeight <= 0 {
		return nil
	}

	pipeline, err := b.pipelines.Get(format, b.compilePipeline)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPipelineUnavailable, err)
	}

	slot := b.frames.Advance()
	if n := b.handles.Reclaim(slot); n > 0 {
		b.logger().Debug("guirender: texture handles reclaimed", "frame", slot, "count", n)
	}

	if data.TotalVtxCount() > 0 {
		grows := b.frames.Stats().Grows
		if err := b.frames.Upload(slot, data.sources()); b.check(err) != nil {
			return fmt.Errorf("upload geometry: %w", err)
		}
		if g := b.frames.Stats().Grows; g != grows {
			bufs := b.frames.Buffers(slot)
			b.logger().Debug("guirender: geometry buffers grown",
				"frame", slot,
				"vertex_bytes", bufs.VertexSize,
				"index_bytes", bufs.IndexSize)
		}
	}

	b.setupRenderState(data, pipeline, pass, slot, fbWidth, fbHeight)

	// Lists are concatenated in the geometry buffers, so every command is
	// offset by the totals of the lists before it.
	var globalVtx, globalIdx uint32
	capacity := uint32(b.handles.Capacity())
	for _, list := range data.CmdLists {
		for i := range list.CmdBuffer {
			cmd := &list.CmdBuffer[i]
			if cmd.UserCallback != nil {
				if isResetRenderState(cmd.UserCallback) {
					b.setupRenderState(data, pipeline, pass, slot, fbWidth, fbHeight)
				} else {
					cmd.UserCallback.Invoke(list, cmd)
				}
				continue
			}

			x, y, w, h, ok := projectClip(cmd.ClipRect, data.DisplayPos, data.FramebufferScale, fbWidth, fbHeight)
			if !ok {
				continue
			}
			if uint64(cmd.TextureID) >= uint64(capacity) {
				b.logger().Warn("guirender: draw with invalid texture skipped", "texture", uint64(cmd.TextureID))
				continue
			}

			pass.SetScissorRect(x, y, w, h)
			pass.SetDescriptorTable(b.table, gpucore.SpaceShared, 0)
			pass.SetDescriptorTable(b.table, gpucore.SpaceTextures, uint32(cmd.TextureID))
			pass.DrawIndexed(cmd.ElemCount, 1, cmd.IdxOffset+globalIdx, int32(cmd.VtxOffset+globalVtx), 0)
		}
		globalIdx += uint32(len(list.IdxBuffer))
		globalVtx += uint32(len(list.VtxBuffer))
	}

	pass.SetScissorRect(0, 0, uint32(fbWidth), uint32(fbHeight))
	return nil
}

// setupRenderState binds the pipeline and geometry, sets the viewport to
// the framebuffer and pushes the orthographic transform.
func (b *Backend) setupRenderState(data *DrawData, pipeline gpucore.RenderPipelineID, pass gpucore.RenderPass, slot, fbWidth, fbHeight int) {
	pass.SetPipeline(pipeline)

	if data.TotalVtxCount() > 0 {
		bufs := b.frames.Buffers(slot)
		pass.SetVertexBuffer(0, bufs.Vertex, 0)
		pass.SetIndexBuffer(bufs.Index, gputypes.IndexFormatUint16, 0)
	}

	pass.SetViewport(0, 0, float32(fbWidth), float32(fbHeight), 0, 1)

	push := orthoTransform(data.DisplayPos, data.DisplaySize)
	pass.SetPushConstants(push[:])
}

// orthoTransform maps the display rectangle to clip space, with y down.
// The result is scale then translate, each two little-endian float32.
func orthoTransform(pos, size [2]float32) [shaders.TransformSize]byte {
	l := pos[0]
	r := pos[0] + size[0]
	t := pos[1]
	bot := pos[1] + size[1]

	v := [4]float32{
		2 / (r - l),
		2 / (t - bot),
		(r + l) / (l - r),
		(t + bot) / (bot - t),
	}

	var out [shaders.TransformSize]byte
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// projectClip maps a logical clip rectangle to framebuffer pixels and
// clamps it to the framebuffer. ok is false when nothing is visible.
func projectClip(clip [4]float32, off, scale [2]float32, fbWidth, fbHeight int) (x, y, w, h uint32, ok bool) {
	minX := math32.Max((clip[0]-off[0])*scale[0], 0)
	minY := math32.Max((clip[1]-off[1])*scale[1], 0)
	maxX := math32.Min((clip[2]-off[0])*scale[0], float32(fbWidth))
	maxY := math32.Min((clip[3]-off[1])*scale[1], float32(fbHeight))

	// Negated so NaN coordinates are rejected too.
	if !(maxX > minX && maxY > minY) {
		return 0, 0, 0, 0, false
	}
	return uint32(minX), uint32(minY), uint32(maxX - minX), uint32(maxY - minY), true
}
