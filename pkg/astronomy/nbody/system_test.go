package nbody

import (
	"bufio"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	astromath "github.com/oxygene76/mercurana/pkg/astronomy/math"
)

func circularPair(r float64) *System {
	sys := NewSystem()
	sys.G = 1
	m1, m2 := 1.0, 1e-3
	vrel := math.Sqrt(sys.G * (m1 + m2) / r)
	sys.Add(Particle{ID: "star", Mass: m1,
		Velocity: astromath.Vector3{Y: -vrel * m2 / (m1 + m2)}})
	sys.Add(Particle{ID: "planet", Mass: m2,
		Position: astromath.Vector3{X: r},
		Velocity: astromath.Vector3{Y: vrel * m1 / (m1 + m2)}})
	return sys
}

func TestTotalEnergyTwoBody(t *testing.T) {
	// For a circular two-body orbit E = -G m1 m2 / (2 r).
	r := 10.0
	sys := circularPair(r)
	want := -sys.G * 1.0 * 1e-3 / (2 * r)
	assert.InEpsilon(t, want, sys.TotalEnergy(), 1e-9, "circular orbit energy")
}

func TestLeapfrogConservesEnergy(t *testing.T) {
	sys := circularPair(10)
	e0 := sys.TotalEnergy()
	for i := 0; i < 1000; i++ {
		sys.LeapfrogStep(0.05)
	}
	rel := math.Abs((sys.TotalEnergy() - e0) / e0)
	assert.Less(t, rel, 1e-4, "leapfrog energy error bounded")
	assert.InDelta(t, 50.0, sys.Time, 1e-9, "clock advanced")
}

func TestAngularMomentumConserved(t *testing.T) {
	sys := circularPair(10)
	l0 := sys.AngularMomentum()
	for i := 0; i < 200; i++ {
		sys.LeapfrogStep(0.05)
	}
	l1 := sys.AngularMomentum()
	assert.InDelta(t, l0.Z, l1.Z, 1e-12, "Lz conserved by leapfrog")
}

func TestMasslessParticlesIgnoredInDiagnostics(t *testing.T) {
	sys := circularPair(10)
	e := sys.TotalEnergy()
	sys.Add(Particle{ID: "test", Position: astromath.Vector3{X: 3}, Velocity: astromath.Vector3{Y: 9}})
	assert.Equal(t, e, sys.TotalEnergy(), "test particles carry no energy")
}

func TestMergeConservesMassAndMomentum(t *testing.T) {
	sys := NewSystem()
	sys.Add(Particle{Mass: 2, Radius: 1,
		Position: astromath.Vector3{X: 1}, Velocity: astromath.Vector3{X: 3}})
	sys.Add(Particle{Mass: 1, Radius: 1,
		Position: astromath.Vector3{X: 4}, Velocity: astromath.Vector3{X: -3}})

	sys.Merge(1, 0) // order of arguments must not matter

	require.Equal(t, 1, sys.N())
	p := sys.Particles[0]
	assert.Equal(t, 3.0, p.Mass, "mass conserved")
	assert.InDelta(t, 2.0, p.Position.X, 1e-14, "center of mass")
	assert.InDelta(t, 1.0, p.Velocity.X, 1e-14, "momentum conserved")
	assert.InDelta(t, math.Cbrt(2), p.Radius, 1e-9, "volume conserving radius")
}

func TestCopyIsDeep(t *testing.T) {
	sys := circularPair(10)
	dup := sys.Copy()
	dup.Particles[0].Mass = 99
	assert.Equal(t, 1.0, sys.Particles[0].Mass, "copy does not alias the original")
}

func TestRecenterToBarycenter(t *testing.T) {
	sys := circularPair(10)
	sys.Particles[0].Position = astromath.Vector3{X: 5, Y: 5, Z: 5}
	sys.RecenterToBarycenter()

	var m float64
	var p astromath.Vector3
	for _, b := range sys.Particles {
		m += b.Mass
		p = p.Add(b.Velocity.Scale(b.Mass))
	}
	assert.InDelta(t, 0.0, p.Magnitude()/m, 1e-15, "net momentum zero")
}

func TestJSONLSnapshotWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.jsonl")
	w, err := NewJSONLSnapshotWriter(path)
	require.NoError(t, err)

	sys := circularPair(10)
	e := sys.TotalEnergy()
	require.NoError(t, w.OnStart(2, 1))
	require.NoError(t, w.OnSnapshot(
		Snapshot{Time: 0, Particles: sys.Particles},
		StepDiagnostics{Energy: e, ShellsUsed: 1}))
	require.NoError(t, w.OnSnapshot(
		Snapshot{Time: 1.5, Particles: sys.Particles},
		StepDiagnostics{Energy: e, ShellsUsed: 3}))
	require.NoError(t, w.OnEnd(1.5))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var recs []jsonlRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec jsonlRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		recs = append(recs, rec)
	}
	require.Len(t, recs, 2, "one record per sample")

	assert.Equal(t, 0.0, recs[0].Time)
	assert.Equal(t, 1.5, recs[1].Time)
	assert.Equal(t, e, recs[0].Energy, "diagnostics serialized alongside state")
	assert.Equal(t, 3, recs[1].ShellsUsed)
	require.Len(t, recs[0].Bodies, 2)
	assert.Equal(t, "star", recs[0].Bodies[0].ID)
	assert.Equal(t, 10.0, recs[0].Bodies[1].X, "planet position on the wire")
}
