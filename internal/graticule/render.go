package graticule

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/paulmach/orb"

	"github.com/pspoerri/robinson/internal/coord"
)

// Style holds the colors and canvas size of a rendered graticule.
type Style struct {
	Width   int // image width in pixels; height follows the map aspect ratio
	Margin  int // transparent border in pixels
	Fill    color.RGBA
	Line    color.RGBA
	Outline color.RGBA
}

// DefaultStyle draws grey lines on a pale blue globe.
var DefaultStyle = Style{
	Width:   1024,
	Margin:  4,
	Fill:    color.RGBA{R: 0xdd, G: 0xee, B: 0xff, A: 0xff},
	Line:    color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff},
	Outline: color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff},
}

// canvas maps projected coordinates to pixels.
type canvas struct {
	img    *image.RGBA
	bound  orb.Bound
	scale  float64
	margin int
}

func newCanvas(b orb.Bound, width, margin int) (*canvas, error) {
	if width <= 2*margin+1 {
		return nil, fmt.Errorf("image width %d too small for margin %d", width, margin)
	}
	dx, dy := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	if !(dx > 0 && dy > 0) {
		return nil, fmt.Errorf("degenerate projected extent %v", b)
	}
	scale := float64(width-1-2*margin) / dx
	height := int(math.Ceil(dy*scale)) + 1 + 2*margin
	return &canvas{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		bound:  b,
		scale:  scale,
		margin: margin,
	}, nil
}

func (c *canvas) toPixel(pt orb.Point) (int, int) {
	px := float64(c.margin) + (pt[0]-c.bound.Min[0])*c.scale
	py := float64(c.margin) + (c.bound.Max[1]-pt[1])*c.scale
	return int(math.Round(px)), int(math.Round(py))
}

func (c *canvas) toPlane(px, py int) (x, y float64) {
	x = c.bound.Min[0] + (float64(px-c.margin)+0.5)/c.scale
	y = c.bound.Max[1] - (float64(py-c.margin)+0.5)/c.scale
	return
}

// fill paints every pixel whose center maps back onto the globe.
func (c *canvas) fill(p coord.Projection, col color.RGBA) {
	b := c.img.Bounds()
	for py := b.Min.Y; py < b.Max.Y; py++ {
		for px := b.Min.X; px < b.Max.X; px++ {
			x, y := c.toPlane(px, py)
			ll, ok := p.Inverse(x, y)
			if ok && math.Abs(ll[0]) <= math.Pi {
				c.img.SetRGBA(px, py, col)
			}
		}
	}
}

func (c *canvas) path(ls []orb.Point, col color.RGBA) {
	for i := 1; i < len(ls); i++ {
		x0, y0 := c.toPixel(ls[i-1])
		x1, y1 := c.toPixel(ls[i])
		c.line(x0, y0, x1, y1, col)
	}
}

// line draws a segment with Bresenham's algorithm. Pixels outside the
// image are ignored by SetRGBA.
func (c *canvas) line(x0, y0, x1, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.img.SetRGBA(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Render rasterizes the globe, graticule and outline of p. The inverse
// projection decides which pixels lie on the globe, so p must have one.
func Render(p coord.Projection, cfg Config, style Style) (*image.RGBA, error) {
	if !p.HasInverse() {
		return nil, coord.ErrNoInverse
	}
	if style.Width == 0 {
		style.Width = DefaultStyle.Width
	}
	lines, err := Build(p, cfg)
	if err != nil {
		return nil, err
	}
	outline, err := Outline(p, cfg)
	if err != nil {
		return nil, err
	}

	c, err := newCanvas(outline.Bound(), style.Width, style.Margin)
	if err != nil {
		return nil, err
	}
	c.fill(p, style.Fill)
	for _, l := range lines {
		c.path(l.Path, style.Line)
	}
	c.path(outline, style.Outline)
	return c.img, nil
}
