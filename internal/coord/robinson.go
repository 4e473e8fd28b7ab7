package coord

import (
	"math"

	"github.com/paulmach/orb"
)

// Spline coefficients for the Robinson projection. Each row holds the
// constant, linear, quadratic and cubic term of one 5° latitude node,
// fitted with the offset inside the segment expressed in degrees.
var robinsonX = [4 * (robinsonNodes + 1)]float64{
	1, -5.67239e-12, -7.15511e-05, 3.11028e-06,
	0.9986, -0.000482241, -2.4897e-05, -1.33094e-06,
	0.9954, -0.000831031, -4.4861e-05, -9.86588e-07,
	0.99, -0.00135363, -5.96598e-05, 3.67749e-06,
	0.9822, -0.00167442, -4.4975e-06, -5.72394e-06,
	0.973, -0.00214869, -9.03565e-05, 1.88767e-08,
	0.96, -0.00305084, -9.00732e-05, 1.64869e-06,
	0.9427, -0.00382792, -6.53428e-05, -2.61493e-06,
	0.9216, -0.00467747, -0.000104566, 4.8122e-06,
	0.8962, -0.00536222, -3.23834e-05, -5.43445e-06,
	0.8679, -0.00609364, -0.0001139, 3.32521e-06,
	0.835, -0.00698325, -6.40219e-05, 9.34582e-07,
	0.7986, -0.00755337, -5.00038e-05, 9.35532e-07,
	0.7597, -0.00798325, -3.59716e-05, -2.27604e-06,
	0.7186, -0.00851366, -7.0112e-05, -8.63072e-06,
	0.6732, -0.00986209, -0.000199572, 1.91978e-05,
	0.6213, -0.010418, 8.83948e-05, 6.24031e-06,
	0.5722, -0.00906601, 0.000181999, 6.24033e-06,
	0.5322, 0, 0, 0,
}

var robinsonY = [4 * (robinsonNodes + 1)]float64{
	0, 0.0124, 3.72529e-10, 1.15484e-09,
	0.062, 0.0124001, 1.76951e-08, -5.92321e-09,
	0.124, 0.0123998, -7.09668e-08, 2.25753e-08,
	0.186, 0.0124008, 2.66917e-07, -8.44523e-08,
	0.248, 0.0123971, -9.99682e-07, 3.15569e-07,
	0.31, 0.0124108, 3.73349e-06, -1.1779e-06,
	0.372, 0.0123598, -1.3935e-05, 4.39588e-06,
	0.434, 0.0125501, 5.20034e-05, -1.00051e-05,
	0.4968, 0.0123198, -9.80735e-05, 9.22397e-06,
	0.5571, 0.0120308, 4.02857e-05, -5.2901e-06,
	0.6176, 0.0120369, -3.90662e-05, 7.36117e-07,
	0.6769, 0.0117015, -2.80246e-05, -8.54283e-07,
	0.7346, 0.0113572, -4.08389e-05, -5.18524e-07,
	0.7903, 0.0109099, -4.86169e-05, -1.0718e-06,
	0.8435, 0.0103433, -6.46934e-05, 5.36384e-09,
	0.8936, 0.00969679, -6.46129e-05, -8.54894e-06,
	0.9394, 0.00840949, -0.000192847, -4.21023e-06,
	0.9761, 0.00616525, -0.000256001, -4.21021e-06,
	1, 0, 0, 0,
}

const (
	// robinsonNodes is the number of 5° spline segments between the
	// equator and the pole.
	robinsonNodes = 18

	// RobinsonFXC is the horizontal scale factor of the graticule.
	RobinsonFXC = 0.8487
	// robinsonHeightToWidth is the height-to-width ratio of the graticule.
	robinsonHeightToWidth = 0.5072
	// RobinsonFYC is the vertical scale factor; |y| never exceeds it.
	RobinsonFYC = RobinsonFXC * robinsonHeightToWidth * math.Pi

	// Latitude in radians to spline segment index, and back.
	robinsonC1  = robinsonNodes / math.Pi * 2
	robinsonRC1 = math.Pi / 2 / robinsonNodes

	robinsonEPS = 1e-8
	// Normalized |y| above this is off the map. Values between 1 and
	// the tolerance are snapped to the pole.
	robinsonPoleTolerance = 1.000001
	// Newton-Raphson converges in a handful of steps for any on-map
	// input; the cap only guards degenerate arithmetic.
	robinsonMaxIter = 100

	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// Robinson implements the Robinson pseudo-cylindrical projection on the
// unit sphere. Longitude and latitude are in radians. The zero value is
// ready to use and safe for concurrent use.
type Robinson struct{}

// poly evaluates the cubic stored at table[offset:offset+4] at z.
func poly(table *[4 * (robinsonNodes + 1)]float64, offset int, z float64) float64 {
	return table[offset] + z*(table[offset+1]+z*(table[offset+2]+z*table[offset+3]))
}

// Forward projects lon/lat (radians) to plane coordinates. Latitude must
// lie in [-π/2, π/2]; x is linear in lon.
func (Robinson) Forward(lon, lat float64) orb.Point {
	absLat := math.Abs(lat)

	// Spline segment index; the pole itself belongs to the last segment.
	// NaN and out-of-range input also land there and propagate as NaN
	// or extrapolate instead of indexing out of bounds.
	i := robinsonNodes - 1
	if s := absLat * robinsonC1; s < robinsonNodes {
		i = int(s)
	}

	// Offset into the segment in degrees, [0, 5].
	dphi := (absLat - robinsonRC1*float64(i)) * rad2deg
	i *= 4

	x := poly(&robinsonX, i, dphi) * RobinsonFXC * lon
	y := poly(&robinsonY, i, dphi) * RobinsonFYC
	if lat < 0 {
		y = -y
	}
	return orb.Point{x, y}
}

// Inverse maps plane coordinates back to lon/lat (radians). The boolean is
// false when (x, y) lies outside the projected map, in which case both
// coordinates are NaN.
func (Robinson) Inverse(x, y float64) (orb.Point, bool) {
	nx := x / RobinsonFXC
	ny := math.Abs(y / RobinsonFYC)

	if math.IsNaN(ny) || ny > robinsonPoleTolerance {
		return orb.Point{math.NaN(), math.NaN()}, false
	}

	if ny >= 1 {
		lat := math.Pi / 2
		if y < 0 {
			lat = -lat
		}
		return orb.Point{nx / robinsonX[4*robinsonNodes], lat}, true
	}

	// Nodes are spaced almost uniformly in y, so the first guess is at
	// most a segment or two away.
	i := 4 * int(math.Floor(ny*robinsonNodes))
	for {
		if robinsonY[i] > ny {
			i -= 4
		} else if robinsonY[i+4] <= ny {
			i += 4
		} else {
			break
		}
	}

	// Solve Y_i(t) = ny for t in degrees, starting from linear
	// interpolation between the bracketing nodes.
	a0 := robinsonY[i] - ny
	a1 := robinsonY[i+1]
	a2 := robinsonY[i+2]
	a3 := robinsonY[i+3]
	t := 5 * (ny - robinsonY[i]) / (robinsonY[i+4] - robinsonY[i])
	for iter := 0; iter < robinsonMaxIter; iter++ {
		step := (a0 + t*(a1+t*(a2+t*a3))) / (a1 + t*(a2+a2+t*3*a3))
		t -= step
		if math.Abs(step) < robinsonEPS {
			break
		}
	}

	// Just below the pole row the last cubic reaches ny only past t = 5.
	lat := math.Min((5*float64(i/4)+t)*deg2rad, math.Pi/2)
	if y < 0 {
		lat = -lat
	}
	return orb.Point{nx / poly(&robinsonX, i, t), lat}, true
}

// HasInverse reports that Robinson can be inverted.
func (Robinson) HasInverse() bool { return true }

func (Robinson) String() string { return "Robinson" }
