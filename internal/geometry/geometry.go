// Package geometry manages the per-frame vertex and index buffers the GUI
// draw data is uploaded into.
//
// Each frame slot owns one host-visible vertex buffer and one index buffer.
// Buffers only grow, to a 256-byte multiple, and a slot's buffers are only
// rewritten when the slot is current again, which is after the GPU finished
// the frame that last used it.
package geometry

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/guirender/gpucore"
)

// Element sizes in bytes.
const (
	// VertexSize is the size of one packed vertex: pos (2×f32), uv (2×f32),
	// col (u32).
	VertexSize = 20

	// IndexSize is the size of one 16-bit index.
	IndexSize = 2

	// Alignment is the granularity buffer sizes are rounded up to.
	Alignment = 256
)

// ErrInvalidSlot is returned for a frame slot outside the store.
var ErrInvalidSlot = errors.New("geometry: invalid frame slot")

// Source is one draw list's geometry.
type Source interface {
	VertexCount() int
	IndexCount() int

	// PutVertices writes VertexCount()*VertexSize bytes into dst.
	PutVertices(dst []byte)

	// PutIndices writes IndexCount()*IndexSize bytes into dst.
	PutIndices(dst []byte)
}

// Buffers are the geometry buffers of one frame slot.
type Buffers struct {
	Vertex     gpucore.BufferID
	Index      gpucore.BufferID
	VertexSize uint64
	IndexSize  uint64
}

// Stats counts store activity.
type Stats struct {
	Grows   int
	Uploads int
}

// Store owns the geometry buffers of every frame slot.
type Store struct {
	device gpucore.Device
	slots  []Buffers
	index  int
	stats  Stats
}

// New creates a store with frames slots. No buffers are allocated until
// the first upload.
func New(device gpucore.Device, frames int) *Store {
	if frames <= 0 {
		panic(fmt.Sprintf("geometry: invalid frame count %d", frames))
	}
	return &Store{
		device: device,
		slots:  make([]Buffers, frames),
	}
}

// AlignSize rounds n up to a multiple of Alignment. Zero stays zero.
func AlignSize(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return ((n-1)/Alignment + 1) * Alignment
}

// Advance makes the next frame slot current and returns it.
func (s *Store) Advance() int {
	s.index = (s.index + 1) % len(s.slots)
	return s.index
}

// Current returns the current frame slot.
func (s *Store) Current() int { return s.index }

// Frames returns the number of frame slots.
func (s *Store) Frames() int { return len(s.slots) }

// Buffers returns the buffers of slot.
func (s *Store) Buffers(slot int) Buffers {
	if slot < 0 || slot >= len(s.slots) {
		return Buffers{}
	}
	return s.slots[slot]
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() Stats { return s.stats }

// EnsureCapacity grows the buffers of slot so they hold at least vtxBytes
// and idxBytes. A buffer that is already large enough is kept.
func (s *Store) EnsureCapacity(slot int, vtxBytes, idxBytes uint64) error {
	if slot < 0 || slot >= len(s.slots) {
		return fmt.Errorf("ensure capacity: slot %d: %w", slot, ErrInvalidSlot)
	}
	b := &s.slots[slot]
	if b.Vertex == gpucore.InvalidID || b.VertexSize < vtxBytes {
		if err := s.grow(&b.Vertex, &b.VertexSize, vtxBytes, gputypes.BufferUsageVertex, "gui_vertex"); err != nil {
			return err
		}
	}
	if b.Index == gpucore.InvalidID || b.IndexSize < idxBytes {
		if err := s.grow(&b.Index, &b.IndexSize, idxBytes, gputypes.BufferUsageIndex, "gui_index"); err != nil {
			return err
		}
	}
	return nil
}

// grow replaces *id with a buffer of at least need bytes. The old buffer is
// destroyed first; if creation fails the slot is left empty so the next
// call recreates it.
func (s *Store) grow(id *gpucore.BufferID, cur *uint64, need uint64, usage gputypes.BufferUsage, label string) error {
	if *id != gpucore.InvalidID {
		s.device.DestroyBuffer(*id)
		*id, *cur = gpucore.InvalidID, 0
	}
	size := AlignSize(need)
	if size == 0 {
		size = Alignment
	}
	created, err := s.device.CreateBuffer(&gpucore.BufferDesc{
		Label:       label,
		Size:        size,
		Usage:       usage | gputypes.BufferUsageCopyDst,
		HostVisible: true,
	})
	if err != nil {
		return fmt.Errorf("create %s buffer (%d bytes): %w", label, size, err)
	}
	*id, *cur = created, size
	s.stats.Grows++
	return nil
}

// Upload packs every list's vertices and indices contiguously, in list
// order, into the buffers of slot. Nothing is written when there are no
// vertices.
func (s *Store) Upload(slot int, lists []Source) error {
	var vtxCount, idxCount int
	for _, l := range lists {
		vtxCount += l.VertexCount()
		idxCount += l.IndexCount()
	}
	if vtxCount == 0 {
		return nil
	}

	vtxBytes := uint64(vtxCount) * VertexSize
	idxBytes := uint64(idxCount) * IndexSize
	if err := s.EnsureCapacity(slot, vtxBytes, idxBytes); err != nil {
		return err
	}
	b := s.slots[slot]

	vdst, err := s.device.MapBuffer(b.Vertex)
	if err != nil {
		return fmt.Errorf("map vertex buffer: %w", err)
	}
	idst, err := s.device.MapBuffer(b.Index)
	if err != nil {
		s.device.UnmapBuffer(b.Vertex)
		return fmt.Errorf("map index buffer: %w", err)
	}

	var voff, ioff int
	for _, l := range lists {
		vn := l.VertexCount() * VertexSize
		in := l.IndexCount() * IndexSize
		l.PutVertices(vdst[voff : voff+vn])
		l.PutIndices(idst[ioff : ioff+in])
		voff += vn
		ioff += in
	}

	s.device.UnmapBuffer(b.Vertex)
	s.device.UnmapBuffer(b.Index)
	s.stats.Uploads++
	return nil
}

// Destroy releases every buffer of every slot.
func (s *Store) Destroy() {
	for i := range s.slots {
		b := &s.slots[i]
		if b.Vertex != gpucore.InvalidID {
			s.device.DestroyBuffer(b.Vertex)
		}
		if b.Index != gpucore.InvalidID {
			s.device.DestroyBuffer(b.Index)
		}
		*b = Buffers{}
	}
}
