package mercurana

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxygene76/mercurana/pkg/astronomy/nbody"
	"github.com/oxygene76/mercurana/pkg/integrator/eos"
)

func TestNewtonCbrt(t *testing.T) {
	for _, a := range []float64{1e-9, 1e-3, 0.5, 1, 2, 10, 1e3, 1e9} {
		got := newtonCbrt(a)
		want := math.Cbrt(a)
		assert.InEpsilon(t, want, got, 1e-12, "cbrt(%v)", a)
	}
}

func TestNewtonCbrtDeterministic(t *testing.T) {
	// Exactly repeatable: the iteration count is fixed, so two evaluations
	// must agree bit for bit.
	a := 3.7516238e2
	assert.Equal(t, newtonCbrt(a), newtonCbrt(a), "identical bits on repeat evaluation")
}

func newTwoBody(r float64) *nbody.System {
	sys := nbody.NewSystem()
	sys.G = 1
	m1, m2 := 1.0, 1e-3
	vrel := math.Sqrt(sys.G * (m1 + m2) / r)
	sys.Add(nbody.Particle{ID: "star", Mass: m1,
		Velocity: vec(0, -vrel*m2/(m1+m2), 0)})
	sys.Add(nbody.Particle{ID: "planet", Mass: m2,
		Position: vec(r, 0, 0),
		Velocity: vec(0, vrel*m1/(m1+m2), 0)})
	return sys
}

func TestDcritMonotoneAcrossShells(t *testing.T) {
	sys := newTwoBody(100)
	sys.Dt = 0.1
	im := New(sys)
	im.Nmaxshells = 6
	im.RecalculateDcrit = true
	require.NoError(t, im.Part1())

	for s := 0; s < im.Nmaxshells-1; s++ {
		outer := im.dcritRow(s)
		inner := im.dcritRow(s + 1)
		for i := 0; i < sys.N(); i++ {
			assert.LessOrEqual(t, inner[i], outer[i],
				"dcrit must not grow with depth (shell %d, particle %d)", s, i)
			assert.Greater(t, outer[i], 0.0, "dcrit positive for massive particle %d", i)
		}
	}
}

func TestDcritAlphaFastPath(t *testing.T) {
	// alpha=0.5 uses sqrt instead of pow; both paths must agree there.
	sys := newTwoBody(100)
	sys.Dt = 0.1
	im := New(sys)
	im.Nmaxshells = 4
	im.Alpha = 0.5
	im.RecalculateDcrit = true
	require.NoError(t, im.Part1())
	fast := append([]float64(nil), im.dcrit...)

	im.Alpha = 0.5000000001
	im.RecalculateDcrit = true
	require.NoError(t, im.Part1())
	for i := range fast {
		assert.InEpsilon(t, fast[i], im.dcrit[i], 1e-6, "pow path agrees with sqrt path at index %d", i)
	}
}

func TestDcritRelativisticTerm(t *testing.T) {
	sys := newTwoBody(100)
	sys.Dt = 0.1
	im := New(sys)
	im.Nmaxshells = 3
	im.RecalculateDcrit = true
	require.NoError(t, im.Part1())
	plain := im.dcritRow(0)[0]

	// A tiny Gm0r0 makes the relativistic estimate dominate.
	im.Gm0r0 = 1e-12
	im.RecalculateDcrit = true
	require.NoError(t, im.Part1())
	assert.Greater(t, im.dcritRow(0)[0], plain, "relativistic term raises dcrit")
}

func TestDcritScalesWithScheme(t *testing.T) {
	// A scheme with a larger longest drift coefficient shrinks deeper
	// shells more slowly.
	sys := newTwoBody(100)
	sys.Dt = 0.1

	imLF := New(sys)
	imLF.Nmaxshells = 3
	imLF.RecalculateDcrit = true
	require.NoError(t, imLF.Part1())

	imLF4 := New(sys)
	imLF4.Nmaxshells = 3
	imLF4.Phi0 = eos.LF4
	imLF4.Phi1 = eos.LF4
	imLF4.RecalculateDcrit = true
	require.NoError(t, imLF4.Part1())

	assert.Greater(t, imLF4.dcritRow(1)[0], imLF.dcritRow(1)[0],
		"LF4's longer drift substep leaves a larger shell-1 dcrit")
}
