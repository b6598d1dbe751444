package orbital

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartesianRoundTrip(t *testing.T) {
	mu := 4 * math.Pi * math.Pi
	cases := []Elements{
		{SemiMajorAxis: 5.2, Eccentricity: 0.05, Inclination: 0.02,
			LongitudeAscendingNode: 1.7, ArgumentPerihelion: 4.8, MeanAnomaly: 0.35},
		{SemiMajorAxis: 30.0, Eccentricity: 0.3, Inclination: 0.5,
			LongitudeAscendingNode: 2.3, ArgumentPerihelion: 1.1, MeanAnomaly: 2.9},
		{SemiMajorAxis: 600, Eccentricity: 0.6, Inclination: 0.4,
			LongitudeAscendingNode: 1.75, ArgumentPerihelion: 2.6, MeanAnomaly: 1.2},
	}
	for _, elem := range cases {
		pos, vel := elem.ToCartesian(mu)
		back := FromCartesian(pos, vel, mu)
		assert.InEpsilon(t, elem.SemiMajorAxis, back.SemiMajorAxis, 1e-8, "semi-major axis")
		assert.InDelta(t, elem.Eccentricity, back.Eccentricity, 1e-8, "eccentricity")
		assert.InDelta(t, elem.Inclination, back.Inclination, 1e-8, "inclination")
		assert.InDelta(t, elem.LongitudeAscendingNode, back.LongitudeAscendingNode, 1e-8, "node")
		assert.InDelta(t, elem.ArgumentPerihelion, back.ArgumentPerihelion, 1e-8, "perihelion argument")
		assert.InDelta(t, elem.MeanAnomaly, back.MeanAnomaly, 1e-7, "mean anomaly")
	}
}

func TestVisVivaOnCircularOrbit(t *testing.T) {
	mu := 4 * math.Pi * math.Pi
	elem := Elements{SemiMajorAxis: 1.0, Eccentricity: 0}
	pos, vel := elem.ToCartesian(mu)
	assert.InEpsilon(t, 1.0, pos.Magnitude(), 1e-12, "circular radius")
	assert.InEpsilon(t, 2*math.Pi, vel.Magnitude(), 1e-12, "circular speed sqrt(mu/a)")
}

func TestApsides(t *testing.T) {
	elem := Elements{SemiMajorAxis: 10, Eccentricity: 0.4}
	assert.Equal(t, 6.0, elem.Perihelion())
	assert.Equal(t, 14.0, elem.Aphelion())
}

func TestPeriod(t *testing.T) {
	mu := 4 * math.Pi * math.Pi
	elem := Elements{SemiMajorAxis: 1}
	assert.InEpsilon(t, 1.0, elem.Period(mu), 1e-12, "one AU orbit takes one year in year units")
}

func TestEccentricAnomalyResidual(t *testing.T) {
	for _, e := range []float64{0.05, 0.5, 0.95} {
		elem := Elements{SemiMajorAxis: 100, Eccentricity: e, MeanAnomaly: 0.3}
		E := elem.eccentricAnomaly()
		assert.InDelta(t, elem.MeanAnomaly, E-e*math.Sin(E), 1e-12, "Kepler residual at e=%v", e)
	}
}

func TestFromCartesianTracksSmallDrift(t *testing.T) {
	// Drift reports subtract element sets from two nearby snapshots; a tiny
	// state change must map to a tiny element change, with no 2 pi jumps in
	// the recovered angles.
	mu := 4 * math.Pi * math.Pi
	base := Elements{SemiMajorAxis: 40, Eccentricity: 0.2, Inclination: 0.3,
		LongitudeAscendingNode: 0.01, ArgumentPerihelion: 6.2, MeanAnomaly: 1.0}
	pos, vel := base.ToCartesian(mu)

	from := FromCartesian(pos, vel, mu)
	nudged := FromCartesian(pos.Scale(1+1e-9), vel, mu)

	assert.InDelta(t, from.LongitudeAscendingNode, nudged.LongitudeAscendingNode, 1e-6, "node stable")
	assert.InDelta(t, from.ArgumentPerihelion, nudged.ArgumentPerihelion, 1e-5, "perihelion argument stable")
	assert.InDelta(t, from.SemiMajorAxis, nudged.SemiMajorAxis, 1e-5, "semi-major axis stable")
}

func TestFromCartesianDegenerateOrbits(t *testing.T) {
	mu := 1.0
	// Circular equatorial orbit: node and perihelion directions are
	// undefined and must collapse to zero instead of NaN.
	circ := Elements{SemiMajorAxis: 2, Eccentricity: 0}
	pos, vel := circ.ToCartesian(mu)
	back := FromCartesian(pos, vel, mu)
	assert.False(t, math.IsNaN(back.ArgumentPerihelion), "omega defined")
	assert.Equal(t, 0.0, back.LongitudeAscendingNode, "node collapses to zero")
	assert.Equal(t, 0.0, back.MeanAnomaly, "anomaly collapses to zero")
	assert.InEpsilon(t, 2.0, back.SemiMajorAxis, 1e-10, "semi-major axis still exact")

	// Equatorial but eccentric: perihelion is measured from the x axis.
	ecc := Elements{SemiMajorAxis: 2, Eccentricity: 0.3, ArgumentPerihelion: 1.2}
	pos, vel = ecc.ToCartesian(mu)
	back = FromCartesian(pos, vel, mu)
	assert.InDelta(t, 1.2, back.ArgumentPerihelion, 1e-9, "equatorial perihelion angle")
}
