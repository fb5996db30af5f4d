package fontatlas

import (
	"math"

	"github.com/gogpu/guirender"
)

// maxListVertices is the vertex range addressable by 16-bit indices.
const maxListVertices = math.MaxUint16 + 1

// AppendText appends textured quads for s to list, starting at pos with
// the top of the line at pos[1]. Newlines move to the next line. It
// returns the pen position after the last glyph.
func (a *Atlas) AppendText(list *guirender.DrawList, pos [2]float32, clip [4]float32, col uint32, s string) [2]float32 {
	pen := [2]float32{pos[0], pos[1] + a.metrics.Ascent}
	for _, r := range s {
		if r == '\n' {
			pen[0] = pos[0]
			pen[1] += a.metrics.LineHeight
			continue
		}
		g := a.Glyph(r)
		if g == nil {
			continue
		}
		if g.X1 > g.X0 {
			a.appendQuad(list, clip, col,
				[2]float32{pen[0] + g.X0, pen[1] + g.Y0},
				[2]float32{pen[0] + g.X1, pen[1] + g.Y1},
				[2]float32{g.U0, g.V0},
				[2]float32{g.U1, g.V1})
		}
		pen[0] += g.Advance
	}
	return [2]float32{pen[0], pen[1] - a.metrics.Ascent}
}

// AppendRect appends a solid rectangle sampling the atlas' white texel.
func (a *Atlas) AppendRect(list *guirender.DrawList, clip [4]float32, col uint32, p0, p1 [2]float32) {
	a.appendQuad(list, clip, col, p0, p1, a.whiteUV, a.whiteUV)
}

func (a *Atlas) appendQuad(list *guirender.DrawList, clip [4]float32, col uint32, p0, p1, uv0, uv1 [2]float32) {
	cmd := a.currentCmd(list, clip)
	base := uint32(len(list.VtxBuffer)) - cmd.VtxOffset

	list.VtxBuffer = append(list.VtxBuffer,
		guirender.DrawVert{Pos: p0, UV: uv0, Col: col},
		guirender.DrawVert{Pos: [2]float32{p1[0], p0[1]}, UV: [2]float32{uv1[0], uv0[1]}, Col: col},
		guirender.DrawVert{Pos: p1, UV: uv1, Col: col},
		guirender.DrawVert{Pos: [2]float32{p0[0], p1[1]}, UV: [2]float32{uv0[0], uv1[1]}, Col: col},
	)
	i := guirender.DrawIdx(base)
	list.IdxBuffer = append(list.IdxBuffer, i, i+1, i+2, i, i+2, i+3)
	cmd.ElemCount += 6
}

// currentCmd returns the command the next quad extends. A new command is
// started when the clip or texture changes, after a callback, or when four
// more vertices would overflow 16-bit indices relative to VtxOffset.
func (a *Atlas) currentCmd(list *guirender.DrawList, clip [4]float32) *guirender.DrawCmd {
	vtx := uint32(len(list.VtxBuffer))
	if n := len(list.CmdBuffer); n > 0 {
		last := &list.CmdBuffer[n-1]
		if last.UserCallback == nil &&
			last.ClipRect == clip &&
			last.TextureID == a.texID &&
			vtx+4-last.VtxOffset <= maxListVertices {
			return last
		}
	}
	list.CmdBuffer = append(list.CmdBuffer, guirender.DrawCmd{
		ClipRect:  clip,
		TextureID: a.texID,
		VtxOffset: vtx,
		IdxOffset: uint32(len(list.IdxBuffer)),
	})
	return &list.CmdBuffer[len(list.CmdBuffer)-1]
}
