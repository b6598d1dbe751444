// Package orbital converts between Cartesian state vectors and Keplerian
// elements. The forward direction seeds simulation scenarios; the inverse
// direction turns snapshot pairs into the element-drift reports the analysis
// stage emits, so it favours forms that stay accurate for the small changes
// a drift report measures.
package orbital

import (
	"math"

	astromath "github.com/oxygene76/mercurana/pkg/astronomy/math"
)

// Elements is an osculating Keplerian element set. Angles are in radians;
// lengths follow whatever unit system mu is expressed in.
type Elements struct {
	SemiMajorAxis          float64 // a
	Eccentricity           float64 // e
	Inclination            float64 // i
	LongitudeAscendingNode float64 // Ω
	ArgumentPerihelion     float64 // ω
	MeanAnomaly            float64 // M
}

// Perihelion returns the closest approach distance a(1-e).
func (el Elements) Perihelion() float64 {
	return el.SemiMajorAxis * (1 - el.Eccentricity)
}

// Aphelion returns the farthest distance a(1+e).
func (el Elements) Aphelion() float64 {
	return el.SemiMajorAxis * (1 + el.Eccentricity)
}

// Period returns the orbital period for the gravitational parameter mu.
func (el Elements) Period(mu float64) float64 {
	a := el.SemiMajorAxis
	return 2 * math.Pi * math.Sqrt(a*a*a/mu)
}

// eccentricAnomaly solves M = E - e sin E by Newton iteration. The starter
// M + e sin M converges in a handful of steps for moderate eccentricity; a
// flat starter at pi is safer once the orbit is strongly elongated.
func (el Elements) eccentricAnomaly() float64 {
	e, M := el.Eccentricity, el.MeanAnomaly
	E := M + e*math.Sin(M)
	if e > 0.8 {
		E = math.Pi
	}
	for k := 0; k < 32; k++ {
		d := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= d
		if math.Abs(d) < 1e-14 {
			break
		}
	}
	return E
}

// perifocalBasis returns the unit vectors spanning the orbital plane: p
// points at perihelion, q is advanced 90 degrees in the direction of motion.
func (el Elements) perifocalBasis() (p, q astromath.Vector3) {
	sinO, cosO := math.Sincos(el.LongitudeAscendingNode)
	sinI, cosI := math.Sincos(el.Inclination)
	sinW, cosW := math.Sincos(el.ArgumentPerihelion)
	p = astromath.Vector3{
		X: cosO*cosW - sinO*sinW*cosI,
		Y: sinO*cosW + cosO*sinW*cosI,
		Z: sinW * sinI,
	}
	q = astromath.Vector3{
		X: -cosO*sinW - sinO*cosW*cosI,
		Y: -sinO*sinW + cosO*cosW*cosI,
		Z: cosW * sinI,
	}
	return p, q
}

// ToCartesian returns the position and velocity of the element set relative
// to the central body. mu is the gravitational parameter G*M of the central
// body; the returned units follow it.
func (el Elements) ToCartesian(mu float64) (pos, vel astromath.Vector3) {
	a, e := el.SemiMajorAxis, el.Eccentricity
	sinE, cosE := math.Sincos(el.eccentricAnomaly())
	b := a * math.Sqrt(1-e*e) // semi-minor axis

	// In-plane state straight from the eccentric anomaly; no true-anomaly
	// detour, which loses accuracy near e=0.
	xp := a * (cosE - e)
	yp := b * sinE
	r := a * (1 - e*cosE)
	vxp := -math.Sqrt(mu*a) / r * sinE
	vyp := math.Sqrt(mu*a) * b / a / r * cosE

	p, q := el.perifocalBasis()
	pos = p.Scale(xp).Add(q.Scale(yp))
	vel = p.Scale(vxp).Add(q.Scale(vyp))
	return pos, vel
}

// Degenerate-geometry cutoff for the node and perihelion directions.
const tiny = 1e-11

// FromCartesian recovers osculating elements from a state vector. Angles
// are resolved with atan2 rather than acos so that quadrants survive and
// small element changes between two snapshots don't jump by 2 pi; all
// angles come back wrapped to [0, 2pi). For near-circular or equatorial
// orbits the undefined angles collapse to zero and the drift lands in the
// well-defined elements.
func FromCartesian(pos, vel astromath.Vector3, mu float64) Elements {
	r := pos.Magnitude()
	h := pos.Cross(vel) // specific angular momentum
	hMag := h.Magnitude()

	// Vis-viva for the semi-major axis.
	a := 1 / (2/r - vel.Norm2()/mu)

	eVec := vel.Cross(h).Scale(1 / mu).Sub(pos.Scale(1 / r))
	e := eVec.Magnitude()

	inc := math.Acos(clamp(h.Z/hMag, -1, 1))

	// Node vector z-hat x h lies along the ascending node.
	node := astromath.Vector3{X: -h.Y, Y: h.X}
	nMag := node.Magnitude()

	var Omega, omega float64
	if nMag > tiny {
		Omega = wrapTwoPi(math.Atan2(node.Y, node.X))
		if e > tiny {
			// sin(omega) through the orbit normal keeps the quadrant.
			omega = wrapTwoPi(math.Atan2(node.Cross(eVec).Dot(h)/hMag, node.Dot(eVec)))
		}
	} else if e > tiny {
		// Equatorial orbit: measure perihelion from the x axis.
		omega = wrapTwoPi(math.Atan2(eVec.Y, eVec.X))
	}

	var M float64
	if e > tiny {
		sinE := pos.Dot(vel) / (e * math.Sqrt(mu*a))
		cosE := (1 - r/a) / e
		E := math.Atan2(sinE, cosE)
		M = wrapTwoPi(E - e*math.Sin(E))
	}

	return Elements{
		SemiMajorAxis:          a,
		Eccentricity:           e,
		Inclination:            inc,
		LongitudeAscendingNode: Omega,
		ArgumentPerihelion:     omega,
		MeanAnomaly:            M,
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func wrapTwoPi(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x
}
