package fontatlas

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"slices"
	"unicode"

	gotext "github.com/go-text/typesetting/font"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/rangetable"

	"github.com/gogpu/guirender"
)

// Defaults applied by New.
const (
	DefaultSize    = 13
	DefaultWidth   = 512
	DefaultPadding = 1
)

// ErrAtlasTooLarge is returned when the glyphs do not fit the maximum
// atlas height.
var ErrAtlasTooLarge = errors.New("fontatlas: glyphs exceed maximum atlas size")

// maxHeight bounds atlas growth.
const maxHeight = 8192

// BasicLatin covers printable ASCII and Latin-1 Supplement.
var BasicLatin = rangetable.Merge(
	&unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x20, Hi: 0x7E, Stride: 1}}},
	&unicode.RangeTable{R16: []unicode.Range16{{Lo: 0xA0, Hi: 0xFF, Stride: 1}}},
)

// Options configures atlas construction.
type Options struct {
	// TTF is the font file. Defaults to Go Regular.
	TTF []byte

	// Size is the pixel height of the em square.
	Size float64

	// Ranges lists the runes to bake. They are merged; runes the font has
	// no glyph for are skipped. Defaults to BasicLatin.
	Ranges []*unicode.RangeTable

	// Width is the atlas width in pixels.
	Width int

	// Padding is the empty border around each glyph. Defaults to 1.
	Padding int
}

// Glyph is one baked glyph. Offsets are relative to the pen position on
// the baseline; UVs are normalized atlas coordinates.
type Glyph struct {
	Rune    rune
	Advance float32

	X0, Y0, X1, Y1 float32
	U0, V0, U1, V1 float32
}

// Metrics are vertical font metrics in pixels.
type Metrics struct {
	Ascent     float32
	Descent    float32
	LineHeight float32
}

// Atlas is a baked font texture with glyph lookup. It implements
// guirender.FontAtlas.
type Atlas struct {
	width, height int
	alpha         *image.Alpha
	rgba          []byte

	glyphs   map[rune]*Glyph
	fallback *Glyph
	metrics  Metrics

	// whiteUV is the center of the solid block, for untextured fills.
	whiteUV [2]float32

	texID guirender.TextureID
}

var _ guirender.FontAtlas = (*Atlas)(nil)

// New rasterizes the requested glyphs into a single-channel atlas.
func New(opts Options) (*Atlas, error) {
	if opts.TTF == nil {
		opts.TTF = goregular.TTF
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Padding <= 0 {
		opts.Padding = DefaultPadding
	}
	if len(opts.Ranges) == 0 {
		opts.Ranges = []*unicode.RangeTable{BasicLatin}
	}

	runes, err := coveredRunes(opts.TTF, opts.Ranges)
	if err != nil {
		return nil, err
	}

	parsed, err := opentype.Parse(opts.TTF)
	if err != nil {
		return nil, fmt.Errorf("fontatlas: parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    opts.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("fontatlas: create face: %w", err)
	}
	defer func() {
		_ = face.Close()
	}()

	m := face.Metrics()
	a := &Atlas{
		width:  opts.Width,
		glyphs: make(map[rune]*Glyph, len(runes)),
		metrics: Metrics{
			Ascent:     fixedToFloat32(m.Ascent),
			Descent:    fixedToFloat32(m.Descent),
			LineHeight: fixedToFloat32(m.Height),
		},
		texID: guirender.NoTexture,
	}

	placements, height, err := pack(face, runes, opts.Width, opts.Padding)
	if err != nil {
		return nil, err
	}
	a.height = height
	a.alpha = image.NewAlpha(image.Rect(0, 0, a.width, a.height))

	// Solid block at the origin.
	draw.Draw(a.alpha, image.Rect(0, 0, whiteSize, whiteSize), image.Opaque, image.Point{}, draw.Src)
	a.whiteUV = [2]float32{
		(whiteSize / 2.0) / float32(a.width),
		(whiteSize / 2.0) / float32(a.height),
	}

	drawer := &font.Drawer{Dst: a.alpha, Src: image.Opaque, Face: face}
	for _, p := range placements {
		g := &Glyph{
			Rune:    p.r,
			Advance: fixedToFloat32(p.advance),
		}
		if !p.bounds.Empty() {
			drawer.Dot = fixed.Point26_6{
				X: fixed.I(p.at.X - p.bounds.Min.X.Floor()),
				Y: fixed.I(p.at.Y - p.bounds.Min.Y.Floor()),
			}
			drawer.DrawString(string(p.r))

			g.X0 = float32(p.bounds.Min.X.Floor())
			g.Y0 = float32(p.bounds.Min.Y.Floor())
			g.X1 = g.X0 + float32(p.size.X)
			g.Y1 = g.Y0 + float32(p.size.Y)
			g.U0 = float32(p.at.X) / float32(a.width)
			g.V0 = float32(p.at.Y) / float32(a.height)
			g.U1 = float32(p.at.X+p.size.X) / float32(a.width)
			g.V1 = float32(p.at.Y+p.size.Y) / float32(a.height)
		}
		a.glyphs[p.r] = g
	}
	a.fallback = a.glyphs['?']
	return a, nil
}

// coveredRunes returns the merged ranges, restricted to runes the font maps
// to a glyph, in ascending order.
func coveredRunes(ttf []byte, ranges []*unicode.RangeTable) ([]rune, error) {
	face, err := gotext.ParseTTF(bytes.NewReader(ttf))
	if err != nil {
		return nil, fmt.Errorf("fontatlas: parse font: %w", err)
	}

	var runes []rune
	rangetable.Visit(rangetable.Merge(ranges...), func(r rune) {
		if _, ok := face.NominalGlyph(r); ok {
			runes = append(runes, r)
		}
	})
	slices.Sort(runes)
	return runes, nil
}

// Size returns the atlas dimensions in pixels.
func (a *Atlas) Size() (width, height int) {
	return a.width, a.height
}

// Alpha returns the single-channel coverage image.
func (a *Atlas) Alpha() *image.Alpha {
	return a.alpha
}

// RGBA32 returns the atlas as white pixels with coverage in alpha. The
// slice is built on first use and cached.
func (a *Atlas) RGBA32() ([]byte, int, int) {
	if a.rgba == nil {
		a.rgba = make([]byte, a.width*a.height*4)
		for i, cov := range a.alpha.Pix {
			a.rgba[i*4+0] = 0xFF
			a.rgba[i*4+1] = 0xFF
			a.rgba[i*4+2] = 0xFF
			a.rgba[i*4+3] = cov
		}
	}
	return a.rgba, a.width, a.height
}

// SetTextureID records the texture the atlas was uploaded to.
func (a *Atlas) SetTextureID(id guirender.TextureID) {
	a.texID = id
}

// TextureID returns the texture set by SetTextureID, or NoTexture.
func (a *Atlas) TextureID() guirender.TextureID {
	return a.texID
}

// Glyph returns the glyph for r, falling back to '?' when r was not baked.
func (a *Atlas) Glyph(r rune) *Glyph {
	if g, ok := a.glyphs[r]; ok {
		return g
	}
	return a.fallback
}

// Len returns the number of baked glyphs.
func (a *Atlas) Len() int {
	return len(a.glyphs)
}

// Metrics returns the vertical font metrics.
func (a *Atlas) Metrics() Metrics {
	return a.metrics
}

// WhiteUV returns a UV sampling a fully opaque texel.
func (a *Atlas) WhiteUV() [2]float32 {
	return a.whiteUV
}

func fixedToFloat32(x fixed.Int26_6) float32 {
	return float32(x) / 64.0
}
