package graticule

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// styleFile is the TOML form of a Style. Colors are "#rrggbb" or
// "#rrggbbaa"; missing keys keep the base style's value.
type styleFile struct {
	Width   *int
	Margin  *int
	Fill    string
	Line    string
	Outline string
}

// ReadStyle decodes a TOML style from r on top of base, e.g.
//
//	width = 2048
//	fill = "#f4efe1"
//	line = "#9a8c73"
//	outline = "#3b3328"
func ReadStyle(r io.Reader, base Style) (Style, error) {
	var f styleFile
	md, err := toml.DecodeReader(r, &f)
	if err != nil {
		return base, fmt.Errorf("decoding style: %w", err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return base, fmt.Errorf("decoding style: unknown key %q", keys[0].String())
	}

	s := base
	if f.Width != nil {
		s.Width = *f.Width
	}
	if f.Margin != nil {
		if *f.Margin < 0 {
			return base, fmt.Errorf("style margin %d: must not be negative", *f.Margin)
		}
		s.Margin = *f.Margin
	}
	for _, c := range []struct {
		name string
		in   string
		out  *color.RGBA
	}{
		{"fill", f.Fill, &s.Fill},
		{"line", f.Line, &s.Line},
		{"outline", f.Outline, &s.Outline},
	} {
		if c.in == "" {
			continue
		}
		col, err := parseHexColor(c.in)
		if err != nil {
			return base, fmt.Errorf("style %s: %w", c.name, err)
		}
		*c.out = col
	}
	return s, nil
}

func parseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("color %q: want #rrggbb or #rrggbbaa", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
