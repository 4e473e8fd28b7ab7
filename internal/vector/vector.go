package vector

import (
	"errors"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/pspoerri/robinson/internal/coord"
)

// Direction selects forward (WGS84 degrees → plane) or inverse
// (plane → WGS84 degrees) reprojection.
type Direction int

const (
	Forward Direction = iota
	Inverse
)

func (d Direction) String() string {
	if d == Inverse {
		return "inverse"
	}
	return "forward"
}

// ErrUnsupportedFormat is returned for input that cannot be reprojected.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Stats summarizes a reprojection run.
type Stats struct {
	Features int // features or shapefile records written
	Points   int // vertices transformed
	Invalid  int // vertices outside the projection's range (inverse only)
}

// transformer applies p in direction d to single geometries and keeps
// running totals.
type transformer struct {
	p     coord.Projection
	dir   Direction
	stats Stats
}

func newTransformer(p coord.Projection, dir Direction) (*transformer, error) {
	if dir == Inverse && !p.HasInverse() {
		return nil, fmt.Errorf("%s: %w", p, coord.ErrNoInverse)
	}
	return &transformer{p: p, dir: dir}, nil
}

// geometry transforms g and returns the number of vertices that fell
// outside the projection's range.
func (t *transformer) geometry(g orb.Geometry) (orb.Geometry, int) {
	if g == nil {
		return nil, 0
	}
	t.stats.Points += countPoints(g)
	if t.dir == Inverse {
		out, invalid := coord.InverseGeometry(t.p, g)
		t.stats.Invalid += invalid
		return out, invalid
	}
	return coord.ForwardGeometry(t.p, g), 0
}

// point transforms a single vertex.
func (t *transformer) point(x, y float64) (float64, float64) {
	t.stats.Points++
	if t.dir == Inverse {
		ll, ok := coord.InverseDeg(t.p, x, y)
		if !ok {
			t.stats.Invalid++
		}
		return ll[0], ll[1]
	}
	xy := coord.ForwardDeg(t.p, x, y)
	return xy[0], xy[1]
}

// ReprojectGeoJSON reads a FeatureCollection from r, reprojects every
// feature geometry with p and writes the result to w. Properties and ids
// are kept; bounding boxes are dropped. A feature with any vertex outside
// the projection's range gets a null geometry, since GeoJSON cannot carry
// NaN coordinates.
func ReprojectGeoJSON(r io.Reader, w io.Writer, p coord.Projection, dir Direction) (Stats, error) {
	t, err := newTransformer(p, dir)
	if err != nil {
		return Stats{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Stats{}, fmt.Errorf("reading geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return Stats{}, fmt.Errorf("decoding geojson: %w", err)
	}

	fc.BBox = nil
	for _, f := range fc.Features {
		g, invalid := t.geometry(f.Geometry)
		if invalid > 0 {
			g = nil
		}
		f.Geometry = g
		f.BBox = nil
		t.stats.Features++
	}

	out, err := fc.MarshalJSON()
	if err != nil {
		return t.stats, fmt.Errorf("encoding geojson: %w", err)
	}
	if _, err := w.Write(out); err != nil {
		return t.stats, fmt.Errorf("writing geojson: %w", err)
	}
	return t.stats, nil
}

func countPoints(g orb.Geometry) int {
	switch g := g.(type) {
	case orb.Point:
		return 1
	case orb.MultiPoint:
		return len(g)
	case orb.LineString:
		return len(g)
	case orb.Ring:
		return len(g)
	case orb.MultiLineString:
		n := 0
		for _, ls := range g {
			n += len(ls)
		}
		return n
	case orb.Polygon:
		n := 0
		for _, r := range g {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range g {
			n += countPoints(p)
		}
		return n
	case orb.Collection:
		n := 0
		for _, c := range g {
			n += countPoints(c)
		}
		return n
	case orb.Bound:
		return 2
	}
	return 0
}
