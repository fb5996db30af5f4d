package gputest

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/guirender/gpucore"
)

// EncoderOp is one recorded transfer command.
type EncoderOp struct {
	Name    string
	Texture gpucore.TextureID
	Buffer  gpucore.BufferID
	From    gputypes.TextureUsage
	To      gputypes.TextureUsage
	Region  gpucore.BufferImageCopy
}

// Encoder is a recording gpucore.CommandEncoder.
type Encoder struct {
	Label     string
	Ops       []EncoderOp
	Discarded bool

	device   *Device
	finished bool
}

// TransitionTexture implements gpucore.CommandEncoder.
func (e *Encoder) TransitionTexture(tex gpucore.TextureID, from, to gputypes.TextureUsage) {
	e.Ops = append(e.Ops, EncoderOp{Name: "TransitionTexture", Texture: tex, From: from, To: to})
}

// CopyBufferToTexture implements gpucore.CommandEncoder.
func (e *Encoder) CopyBufferToTexture(src gpucore.BufferID, dst gpucore.TextureID, region gpucore.BufferImageCopy) {
	e.Ops = append(e.Ops, EncoderOp{Name: "CopyBufferToTexture", Buffer: src, Texture: dst, Region: region})
}

// Finish implements gpucore.CommandEncoder.
func (e *Encoder) Finish() (gpucore.CommandBuffer, error) {
	if err := e.device.call("Finish"); err != nil {
		return nil, err
	}
	if e.finished || e.Discarded {
		return nil, fmt.Errorf("Finish: encoder %q not recording", e.Label)
	}
	e.finished = true
	return &CommandBuffer{Label: e.Label, Ops: e.Ops}, nil
}

// Discard implements gpucore.CommandEncoder.
func (e *Encoder) Discard() { e.Discarded = true }

// CommandBuffer is a finished fake recording.
type CommandBuffer struct {
	Label    string
	Ops      []EncoderOp
	Released bool
}

// Release implements gpucore.CommandBuffer.
func (c *CommandBuffer) Release() { c.Released = true }
