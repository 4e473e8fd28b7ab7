package coord

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// ForwardGeometry returns a copy of g (WGS84 degrees) projected with p.
// g itself is not modified.
func ForwardGeometry(p Projection, g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return project.Geometry(orb.Clone(g), ForwardFunc(p))
}

// InverseGeometry returns a copy of g (plane coordinates) converted back to
// WGS84 degrees, along with the number of vertices that fell outside the
// projection's range. Those vertices are NaN in the result; the rest of
// the geometry is still converted.
func InverseGeometry(p Projection, g orb.Geometry) (orb.Geometry, int) {
	if g == nil {
		return nil, 0
	}
	invalid := 0
	inv := InverseFunc(p)
	out := project.Geometry(orb.Clone(g), func(pt orb.Point) orb.Point {
		ll := inv(pt)
		if math.IsNaN(ll[0]) || math.IsNaN(ll[1]) {
			invalid++
		}
		return ll
	})
	return out, invalid
}
