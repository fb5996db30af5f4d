package guirender

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/guirender/internal/geometry"
)

// TextureID identifies a texture bound into the backend's descriptor table.
// It is a slot index, not an address, and is reused after release.
type TextureID uintptr

// NoTexture is returned when no texture handle is available.
// Slot 0 is a valid handle, so the sentinel is the all-ones value.
const NoTexture = ^TextureID(0)

// DrawVert is one GUI vertex. It is uploaded as 20 little-endian bytes:
// position, texture coordinates, then packed RGBA8 color.
type DrawVert struct {
	Pos [2]float32
	UV  [2]float32
	Col uint32
}

// DrawIdx is a 16-bit index into a draw list's vertices.
type DrawIdx = uint16

// DrawCallback is a user callback recorded in a draw list.
type DrawCallback interface {
	Invoke(list *DrawList, cmd *DrawCmd)
}

// CallbackFunc adapts a function to DrawCallback.
type CallbackFunc func(list *DrawList, cmd *DrawCmd)

// Invoke calls f(list, cmd).
func (f CallbackFunc) Invoke(list *DrawList, cmd *DrawCmd) { f(list, cmd) }

type resetRenderState struct{}

func (resetRenderState) Invoke(*DrawList, *DrawCmd) {}

// ResetRenderState is a reserved callback. Instead of being invoked it
// makes the renderer re-emit its render state (pipeline, buffers,
// viewport, transform) before the next command.
var ResetRenderState DrawCallback = resetRenderState{}

// isResetRenderState reports whether cb is the ResetRenderState sentinel.
func isResetRenderState(cb DrawCallback) bool {
	_, ok := cb.(resetRenderState)
	return ok
}

// DrawCmd is one draw command. When UserCallback is set the other draw
// fields are ignored.
type DrawCmd struct {
	// ClipRect is (x1, y1, x2, y2) in GUI logical coordinates.
	ClipRect [4]float32

	TextureID TextureID

	// VtxOffset is added to every index of the command.
	VtxOffset uint32

	// IdxOffset is the first index of the command in the list.
	IdxOffset uint32

	// ElemCount is the number of indices to draw.
	ElemCount uint32

	UserCallback DrawCallback
	UserData     any
}

// DrawList holds one list's geometry and commands. Indices reference
// vertices of the same list.
type DrawList struct {
	VtxBuffer []DrawVert
	IdxBuffer []DrawIdx
	CmdBuffer []DrawCmd
}

// DrawData is one frame's batch of draw lists.
type DrawData struct {
	CmdLists []*DrawList

	// DisplayPos is the top-left of the display in logical coordinates.
	DisplayPos [2]float32

	// DisplaySize is the display size in logical coordinates.
	DisplaySize [2]float32

	// FramebufferScale maps logical to framebuffer pixels, (2, 2) on
	// high-DPI displays.
	FramebufferScale [2]float32
}

// TotalVtxCount returns the number of vertices across all lists.
func (d *DrawData) TotalVtxCount() int {
	n := 0
	for _, l := range d.CmdLists {
		n += len(l.VtxBuffer)
	}
	return n
}

// TotalIdxCount returns the number of indices across all lists.
func (d *DrawData) TotalIdxCount() int {
	n := 0
	for _, l := range d.CmdLists {
		n += len(l.IdxBuffer)
	}
	return n
}

// listGeometry exposes a DrawList to the geometry store.
type listGeometry struct{ l *DrawList }

func (g listGeometry) VertexCount() int { return len(g.l.VtxBuffer) }
func (g listGeometry) IndexCount() int  { return len(g.l.IdxBuffer) }

func (g listGeometry) PutVertices(dst []byte) {
	for i, v := range g.l.VtxBuffer {
		b := dst[i*geometry.VertexSize:]
		binary.LittleEndian.PutUint32(b[0:], math.Float32bits(v.Pos[0]))
		binary.LittleEndian.PutUint32(b[4:], math.Float32bits(v.Pos[1]))
		binary.LittleEndian.PutUint32(b[8:], math.Float32bits(v.UV[0]))
		binary.LittleEndian.PutUint32(b[12:], math.Float32bits(v.UV[1]))
		binary.LittleEndian.PutUint32(b[16:], v.Col)
	}
}

func (g listGeometry) PutIndices(dst []byte) {
	for i, idx := range g.l.IdxBuffer {
		binary.LittleEndian.PutUint16(dst[i*geometry.IndexSize:], idx)
	}
}

func (d *DrawData) sources() []geometry.Source {
	out := make([]geometry.Source, len(d.CmdLists))
	for i, l := range d.CmdLists {
		out[i] = listGeometry{l}
	}
	return out
}
