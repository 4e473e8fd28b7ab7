package coord

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"
)

// Projection defines the capability set shared by map projections.
// Geographic coordinates are longitude/latitude in radians.
type Projection interface {
	// Forward converts lon/lat (radians) to projected plane coordinates.
	Forward(lon, lat float64) orb.Point

	// Inverse converts plane coordinates to lon/lat (radians). ok is false
	// when the input lies outside the projection's range.
	Inverse(x, y float64) (lonLat orb.Point, ok bool)

	// HasInverse reports whether Inverse is implemented.
	HasInverse() bool

	// String returns the projection name.
	String() string
}

var (
	// ErrUnknownProjection is returned by ForName for unsupported names.
	ErrUnknownProjection = errors.New("unknown projection")
	// ErrNoInverse is returned when an inverse is requested from a
	// projection that has none.
	ErrNoInverse = errors.New("projection has no inverse")
)

// Names accepted by ForName, lower-cased.
var projectionNames = map[string]func() Projection{
	"robinson":   func() Projection { return Robinson{} },
	"robin":      func() Projection { return Robinson{} }, // PROJ short name
	"esri:54030": func() Projection { return Robinson{} },
	"54030":      func() Projection { return Robinson{} },
}

// ForName returns the Projection registered under name (case-insensitive).
func ForName(name string) (Projection, error) {
	ctor, ok := projectionNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownProjection, name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Names returns the accepted projection names in sorted order.
func Names() []string {
	names := make([]string, 0, len(projectionNames))
	for n := range projectionNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForwardDeg projects a longitude/latitude given in degrees.
func ForwardDeg(p Projection, lon, lat float64) orb.Point {
	return p.Forward(lon*deg2rad, lat*deg2rad)
}

// InverseDeg inverts plane coordinates and returns longitude/latitude in
// degrees.
func InverseDeg(p Projection, x, y float64) (orb.Point, bool) {
	ll, ok := p.Inverse(x, y)
	if !ok {
		return ll, false
	}
	return orb.Point{ll[0] * rad2deg, ll[1] * rad2deg}, true
}

// ForwardFunc adapts p to an orb.Projection taking WGS84 degrees.
func ForwardFunc(p Projection) orb.Projection {
	return func(pt orb.Point) orb.Point {
		return ForwardDeg(p, pt[0], pt[1])
	}
}

// InverseFunc adapts p's inverse to an orb.Projection returning WGS84
// degrees. Points outside the projection's range become NaN.
func InverseFunc(p Projection) orb.Projection {
	return func(pt orb.Point) orb.Point {
		ll, ok := InverseDeg(p, pt[0], pt[1])
		if !ok {
			return orb.Point{math.NaN(), math.NaN()}
		}
		return ll
	}
}
