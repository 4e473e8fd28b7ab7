// Package graticule builds the meridian/parallel network of a projection
// in projected plane coordinates and renders it to an image.
package graticule

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gonum.org/v1/gonum/floats"

	"github.com/pspoerri/robinson/internal/coord"
)

// Config controls graticule density. Angles are in degrees.
type Config struct {
	Step       float64 // spacing between meridians and between parallels
	Resolution float64 // spacing between vertices along each line
}

// DefaultConfig draws lines every 15° sampled every degree.
var DefaultConfig = Config{Step: 15, Resolution: 1}

func (c Config) withDefaults() Config {
	if c.Step == 0 {
		c.Step = DefaultConfig.Step
	}
	if c.Resolution == 0 {
		c.Resolution = DefaultConfig.Resolution
	}
	return c
}

func (c Config) validate() error {
	if !(c.Step > 0 && c.Step <= 180) {
		return fmt.Errorf("graticule step %v out of range (0, 180]", c.Step)
	}
	if !(c.Resolution > 0 && c.Resolution <= 90) {
		return fmt.Errorf("graticule resolution %v out of range (0, 90]", c.Resolution)
	}
	return nil
}

// Kind identifies what a Line represents.
type Kind string

const (
	Meridian Kind = "meridian"
	Parallel Kind = "parallel"
)

// Line is one projected graticule line.
type Line struct {
	Kind  Kind
	Value float64 // longitude of a meridian or latitude of a parallel, degrees
	Path  orb.LineString
}

// Build returns the projected meridians (−180°..180°) and parallels
// (strictly between the poles) for cfg. Zero fields in cfg take the
// DefaultConfig values.
func Build(p coord.Projection, cfg Config) ([]Line, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	lats := span(-90, 90, cfg.Resolution)
	lons := span(-180, 180, cfg.Resolution)

	var lines []Line
	for _, lon := range steps(-180, 180, cfg.Step) {
		path := make(orb.LineString, len(lats))
		for i, lat := range lats {
			path[i] = coord.ForwardDeg(p, lon, lat)
		}
		lines = append(lines, Line{Kind: Meridian, Value: lon, Path: path})
	}
	for _, lat := range steps(-90, 90, cfg.Step) {
		if lat <= -90 || lat >= 90 {
			continue // pole lines belong to the outline
		}
		path := make(orb.LineString, len(lons))
		for i, lon := range lons {
			path[i] = coord.ForwardDeg(p, lon, lat)
		}
		lines = append(lines, Line{Kind: Parallel, Value: lat, Path: path})
	}
	return lines, nil
}

// Lines returns the graticule as a single projected MultiLineString.
func Lines(p coord.Projection, cfg Config) (orb.MultiLineString, error) {
	lines, err := Build(p, cfg)
	if err != nil {
		return nil, err
	}
	mls := make(orb.MultiLineString, len(lines))
	for i, l := range lines {
		mls[i] = l.Path
	}
	return mls, nil
}

// Outline returns the closed boundary of the projected world: the ±180°
// meridians joined by the pole lines.
func Outline(p coord.Projection, cfg Config) (orb.Ring, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	lats := span(-90, 90, cfg.Resolution)
	ring := make(orb.Ring, 0, 2*len(lats)+1)
	for _, lat := range lats {
		ring = append(ring, coord.ForwardDeg(p, 180, lat))
	}
	for i := len(lats) - 1; i >= 0; i-- {
		ring = append(ring, coord.ForwardDeg(p, -180, lats[i]))
	}
	ring = append(ring, ring[0])
	return ring, nil
}

// Bound returns the projected extent of the whole world.
func Bound(p coord.Projection) orb.Bound {
	ring, _ := Outline(p, DefaultConfig)
	return ring.Bound()
}

// FeatureCollection returns the graticule and outline as GeoJSON features
// in projected coordinates. Each feature carries "kind" and, for lines,
// "value" in degrees.
func FeatureCollection(p coord.Projection, cfg Config) (*geojson.FeatureCollection, error) {
	lines, err := Build(p, cfg)
	if err != nil {
		return nil, err
	}
	outline, err := Outline(p, cfg)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	for _, l := range lines {
		f := geojson.NewFeature(l.Path)
		f.Properties["kind"] = string(l.Kind)
		f.Properties["value"] = l.Value
		fc.Append(f)
	}
	f := geojson.NewFeature(orb.Polygon{outline})
	f.Properties["kind"] = "outline"
	fc.Append(f)
	return fc, nil
}

// span returns evenly spaced values covering [lo, hi] with spacing no
// larger than res, both ends included.
func span(lo, hi, res float64) []float64 {
	n := int(math.Ceil((hi-lo)/res-1e-9)) + 1
	if n < 2 {
		n = 2
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// steps returns lo, lo+step, ... up to and including hi when it is hit
// exactly.
func steps(lo, hi, step float64) []float64 {
	n := int(math.Floor((hi-lo)/step+1e-9)) + 1
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = lo + float64(i)*step
	}
	return vals
}
