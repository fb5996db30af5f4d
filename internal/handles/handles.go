// Package handles implements the texture handle allocator: a fixed pool of
// descriptor table slots handed out LIFO, with releases deferred until the
// frame slot that last referenced them comes around again.
package handles

import (
	"errors"
	"fmt"
)

// Errors returned by Release.
var (
	// ErrOutOfRange is returned for a handle or frame slot outside the pool.
	ErrOutOfRange = errors.New("handles: out of range")

	// ErrNotAcquired is returned when releasing a handle that is free or
	// already pending release.
	ErrNotAcquired = errors.New("handles: handle not acquired")
)

// Handle is a slot index in the texture space of the descriptor table.
type Handle = uint32

type state uint8

const (
	stateFree state = iota
	stateLive
	statePending
)

// Allocator hands out handles in [0, capacity).
//
// The free stack is initialized with capacity-1 on top, so the first
// Acquire returns capacity-1 and the allocation order is descending.
// Allocator is not safe for concurrent use.
type Allocator struct {
	free    []Handle
	pending [][]Handle
	state   []state
}

// New returns an allocator with capacity handles and frames deferred
// release queues. It panics on a non-positive argument.
func New(capacity, frames int) *Allocator {
	if capacity <= 0 || frames <= 0 {
		panic(fmt.Sprintf("handles: invalid allocator size (capacity=%d, frames=%d)", capacity, frames))
	}
	a := &Allocator{
		free:    make([]Handle, capacity),
		pending: make([][]Handle, frames),
		state:   make([]state, capacity),
	}
	for i := range a.free {
		a.free[i] = Handle(i)
	}
	return a
}

// Acquire pops a handle from the free stack. ok is false when exhausted.
func (a *Allocator) Acquire() (h Handle, ok bool) {
	n := len(a.free)
	if n == 0 {
		return 0, false
	}
	h = a.free[n-1]
	a.free = a.free[:n-1]
	a.state[h] = stateLive
	return h, true
}

// Release queues h for reuse once frame slot frame is reclaimed.
func (a *Allocator) Release(frame int, h Handle) error {
	if frame < 0 || frame >= len(a.pending) {
		return fmt.Errorf("release handle %d: frame %d: %w", h, frame, ErrOutOfRange)
	}
	if int(h) >= len(a.state) {
		return fmt.Errorf("release handle %d: %w", h, ErrOutOfRange)
	}
	if a.state[h] != stateLive {
		return fmt.Errorf("release handle %d: %w", h, ErrNotAcquired)
	}
	a.state[h] = statePending
	a.pending[frame] = append(a.pending[frame], h)
	return nil
}

// Reclaim moves every handle pending on frame back to the free stack and
// returns how many were moved. The queue is drained in release order.
func (a *Allocator) Reclaim(frame int) int {
	if frame < 0 || frame >= len(a.pending) {
		return 0
	}
	q := a.pending[frame]
	for _, h := range q {
		a.state[h] = stateFree
		a.free = append(a.free, h)
	}
	a.pending[frame] = q[:0]
	return len(q)
}

// Free returns the number of handles available to Acquire.
func (a *Allocator) Free() int { return len(a.free) }

// Pending returns the number of handles waiting on frame.
func (a *Allocator) Pending(frame int) int {
	if frame < 0 || frame >= len(a.pending) {
		return 0
	}
	return len(a.pending[frame])
}

// Capacity returns the total number of handles.
func (a *Allocator) Capacity() int { return len(a.state) }

// Frames returns the number of deferred release queues.
func (a *Allocator) Frames() int { return len(a.pending) }
