package fontatlas

import (
	"fmt"
	"image"
	"slices"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// whiteSize is the edge of the opaque block packed at the atlas origin.
const whiteSize = 2

type placement struct {
	r       rune
	bounds  fixed.Rectangle26_6
	advance fixed.Int26_6
	size    image.Point
	at      image.Point
}

// pack measures every rune and assigns it a position using shelf packing,
// tallest glyphs first. The returned height is a power of two.
func pack(face font.Face, runes []rune, width, padding int) ([]placement, int, error) {
	placements := make([]placement, 0, len(runes))
	for _, r := range runes {
		bounds, advance, ok := face.GlyphBounds(r)
		if !ok {
			continue
		}
		p := placement{r: r, bounds: bounds, advance: advance}
		p.size = image.Point{
			X: bounds.Max.X.Ceil() - bounds.Min.X.Floor(),
			Y: bounds.Max.Y.Ceil() - bounds.Min.Y.Floor(),
		}
		if p.size.X <= 0 || p.size.Y <= 0 {
			p.bounds = fixed.Rectangle26_6{}
			p.size = image.Point{}
		}
		if p.size.X+2*padding > width {
			return nil, 0, fmt.Errorf("fontatlas: glyph %q is %dpx wide, atlas is %dpx", r, p.size.X, width)
		}
		placements = append(placements, p)
	}

	order := make([]int, len(placements))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return placements[b].size.Y - placements[a].size.Y
	})

	// The white block opens the first shelf.
	x, y := whiteSize+2*padding, 0
	shelf := whiteSize + 2*padding
	for _, i := range order {
		p := &placements[i]
		if p.size.X == 0 {
			continue
		}
		w, h := p.size.X+2*padding, p.size.Y+2*padding
		if x+w > width {
			x = 0
			y += shelf
			shelf = 0
		}
		p.at = image.Point{X: x + padding, Y: y + padding}
		x += w
		shelf = max(shelf, h)
	}

	used := y + shelf
	height := 1
	for height < used {
		height <<= 1
	}
	if height > maxHeight {
		return nil, 0, fmt.Errorf("%w: need %dpx", ErrAtlasTooLarge, used)
	}
	return placements, height, nil
}
