package mercurana

import (
	"testing"

	"github.com/stretchr/testify/assert"

	astromath "github.com/oxygene76/mercurana/pkg/astronomy/math"
	"github.com/oxygene76/mercurana/pkg/astronomy/nbody"
)

func particleAt(x, y, z, vx, vy, vz float64) nbody.Particle {
	return nbody.Particle{
		Position: astromath.Vector3{X: x, Y: y, Z: z},
		Velocity: astromath.Vector3{X: vx, Y: vy, Z: vz},
	}
}

func TestPredictRmin2Separating(t *testing.T) {
	p1 := particleAt(0, 0, 0, 0, 0, 0)
	p2 := particleAt(2, 0, 0, 1, 0, 0) // moving away
	rmin2 := predictRmin2(&p1, &p2, 1.0)
	assert.InDelta(t, 4.0, rmin2, 1e-14, "minimum at the start of the interval")
}

func TestPredictRmin2Approaching(t *testing.T) {
	p1 := particleAt(0, 0, 0, 0, 0, 0)
	p2 := particleAt(-5, 1, 0, 1, 0, 0) // passes with impact parameter 1
	rmin2 := predictRmin2(&p1, &p2, 10.0)
	assert.InDelta(t, 1.0, rmin2, 1e-12, "interior closest approach")
}

func TestPredictRmin2EndOfInterval(t *testing.T) {
	p1 := particleAt(0, 0, 0, 0, 0, 0)
	p2 := particleAt(-5, 1, 0, 1, 0, 0)
	// Drift too short to reach closest approach: minimum is at the end.
	rmin2 := predictRmin2(&p1, &p2, 2.0)
	assert.InDelta(t, 9.0+1.0, rmin2, 1e-12, "minimum at the end of the interval")
}

func TestPredictRmin2NegativeDt(t *testing.T) {
	// A backward drift reverses the relative velocity.
	p1 := particleAt(0, 0, 0, 0, 0, 0)
	p2 := particleAt(5, 1, 0, 1, 0, 0) // approached from the other side in the past
	fwd := predictRmin2(&p1, &p2, -10.0)
	p2r := particleAt(5, 1, 0, -1, 0, 0)
	bwd := predictRmin2(&p1, &p2r, 10.0)
	assert.InDelta(t, bwd, fwd, 1e-12, "backward drift equals forward drift with reversed velocity")
}

func TestPredictRmin2ZeroRelativeVelocity(t *testing.T) {
	p1 := particleAt(0, 0, 0, 0.5, 0, 0)
	p2 := particleAt(3, 4, 0, 0.5, 0, 0)
	rmin2 := predictRmin2(&p1, &p2, 1.0)
	assert.InDelta(t, 25.0, rmin2, 1e-14, "constant separation")
}

func TestPredictRmin2Drifted(t *testing.T) {
	p1 := particleAt(0, 0, 0, 0, 0, 0)
	p2 := particleAt(1, 0, 0, 1, 0, 0)
	// Pre-drifting p2 by 0.5 must equal evaluating the shifted particle.
	shifted := particleAt(1.5, 0, 0, 1, 0, 0)
	got := predictRmin2Drifted(&p1, &p2, 1.0, 0.5)
	want := predictRmin2(&p1, &shifted, 1.0)
	assert.Equal(t, want, got, "drifted variant matches manual shift")
	// The input particle is not mutated.
	assert.Equal(t, 1.0, p2.Position.X, "input particle untouched")
}
