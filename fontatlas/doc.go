// Package fontatlas bakes a TrueType font into a texture atlas for
// guirender.
//
// Glyph coverage is resolved with go-text/typesetting, rune sets are
// unicode.RangeTables merged with golang.org/x/text/unicode/rangetable,
// and glyphs are rasterized with golang.org/x/image/font/opentype.
//
//	atlas, err := fontatlas.New(fontatlas.Options{Size: 13})
//	if err != nil {
//	    return err
//	}
//	if _, err := backend.CreateFontTexture(atlas); err != nil {
//	    return err
//	}
//	atlas.AppendText(list, [2]float32{10, 10}, clip, 0xFFFFFFFF, "Hello")
package fontatlas
