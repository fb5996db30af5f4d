package main

import (
	"fmt"
	"math"

	"github.com/gogpu/guirender"
	"github.com/gogpu/guirender/fontatlas"
)

const (
	colPanel  = 0xF0302820
	colTitle  = 0xFF804020
	colText   = 0xFFE0E0E0
	colAccent = 0xFF40C0FF
)

// scene draws a few animated windows, one draw list each.
type scene struct {
	atlas         *fontatlas.Atlas
	width, height float32
	lists         []*guirender.DrawList
	data          guirender.DrawData
}

func newScene(atlas *fontatlas.Atlas, width, height float32) *scene {
	s := &scene{atlas: atlas, width: width, height: height}
	for range 3 {
		s.lists = append(s.lists, &guirender.DrawList{})
	}
	s.data = guirender.DrawData{
		CmdLists:         s.lists,
		DisplaySize:      [2]float32{width, height},
		FramebufferScale: [2]float32{1, 1},
	}
	return s
}

func (s *scene) build(frame int) *guirender.DrawData {
	for _, l := range s.lists {
		l.VtxBuffer = l.VtxBuffer[:0]
		l.IdxBuffer = l.IdxBuffer[:0]
		l.CmdBuffer = l.CmdBuffer[:0]
	}

	t := float64(frame) / 60
	s.window(s.lists[0], "Stats", [2]float32{40, 40}, [2]float32{320, 180}, []string{
		fmt.Sprintf("frame %d", frame),
		fmt.Sprintf("vertices %d", s.data.TotalVtxCount()),
		fmt.Sprintf("indices %d", s.data.TotalIdxCount()),
	})

	x := 400 + float32(math.Sin(t)*120)
	s.window(s.lists[1], "Moving", [2]float32{x, 120}, [2]float32{260, 140}, []string{
		"This window slides back and forth.",
		"Its text is clipped to the frame.",
	})

	// A window that restores render state mid-list, as a custom renderer would.
	l := s.lists[2]
	s.window(l, "Callback", [2]float32{80, 300}, [2]float32{300, 120}, []string{"before reset"})
	l.CmdBuffer = append(l.CmdBuffer, guirender.DrawCmd{UserCallback: guirender.ResetRenderState})
	s.atlas.AppendText(l, [2]float32{90, 380}, s.clip([2]float32{80, 300}, [2]float32{300, 120}), colAccent, "after reset")

	return &s.data
}

func (s *scene) window(l *guirender.DrawList, title string, pos, size [2]float32, lines []string) {
	clip := s.clip(pos, size)
	lineHeight := s.atlas.Metrics().LineHeight

	s.atlas.AppendRect(l, clip, colPanel, pos, [2]float32{pos[0] + size[0], pos[1] + size[1]})
	s.atlas.AppendRect(l, clip, colTitle, pos, [2]float32{pos[0] + size[0], pos[1] + lineHeight + 4})
	s.atlas.AppendText(l, [2]float32{pos[0] + 6, pos[1] + 2}, clip, colText, title)

	y := pos[1] + lineHeight + 10
	for _, line := range lines {
		s.atlas.AppendText(l, [2]float32{pos[0] + 8, y}, clip, colText, line)
		y += lineHeight
	}
}

func (s *scene) clip(pos, size [2]float32) [4]float32 {
	return [4]float32{
		max(pos[0], 0),
		max(pos[1], 0),
		min(pos[0]+size[0], s.width),
		min(pos[1]+size[1], s.height),
	}
}
