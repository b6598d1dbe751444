package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	astromath "github.com/oxygene76/mercurana/pkg/astronomy/math"
	"github.com/oxygene76/mercurana/pkg/astronomy/nbody"
	"github.com/oxygene76/mercurana/pkg/astronomy/orbital"
)

func snapshotPair(r float64) []nbody.Snapshot {
	sys := nbody.NewSystem()
	sys.G = 1
	vrel := math.Sqrt(sys.G * 1.001 / r)
	sys.Add(nbody.Particle{ID: "star", Mass: 1,
		Velocity: astromath.Vector3{Y: -vrel * 1e-3 / 1.001}})
	sys.Add(nbody.Particle{ID: "planet", Mass: 1e-3,
		Position: astromath.Vector3{X: r},
		Velocity: astromath.Vector3{Y: vrel / 1.001}})

	first := nbody.Snapshot{Time: 0, Particles: append([]nbody.Particle(nil), sys.Particles...)}
	second := nbody.Snapshot{Time: 1, Particles: append([]nbody.Particle(nil), sys.Particles...)}
	return []nbody.Snapshot{first, second}
}

func TestEnergyReportIdenticalSnapshots(t *testing.T) {
	history := snapshotPair(10)
	report, err := EnergyReport(1, history)
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.MaxError, "identical snapshots have zero drift")
	assert.Equal(t, report.Initial, report.Final)
}

func TestEnergyReportDetectsDrift(t *testing.T) {
	history := snapshotPair(10)
	// Inflate the planet's speed in the second snapshot.
	history[1].Particles[1].Velocity = history[1].Particles[1].Velocity.Scale(2)
	report, err := EnergyReport(1, history)
	require.NoError(t, err)
	assert.Greater(t, report.MaxError, 0.0)
	assert.Greater(t, report.MeanError, 0.0)
}

func TestEnergyReportNeedsHistory(t *testing.T) {
	_, err := EnergyReport(1, nil)
	assert.Error(t, err)
}

func TestElementsReport(t *testing.T) {
	mu := 4 * math.Pi * math.Pi
	elem := orbital.Elements{SemiMajorAxis: 5.2, Eccentricity: 0.05}
	pos, vel := elem.ToCartesian(mu)

	mk := func() nbody.Snapshot {
		return nbody.Snapshot{Particles: []nbody.Particle{
			{ID: "star", Mass: 1},
			{ID: "planet", Mass: 1e-3, Position: pos, Velocity: vel},
		}}
	}
	drifts, err := ElementsReport(mu, []nbody.Snapshot{mk(), mk()})
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, "planet", drifts[0].ID)
	assert.InEpsilon(t, 5.2, drifts[0].SemiMajorAxisFrom, 1e-6)
	assert.InDelta(t, 0.0, drifts[0].PerihelionShift, 1e-9, "no shift between identical snapshots")
}

func TestElementsReportRejectsChangedN(t *testing.T) {
	history := snapshotPair(10)
	history[1].Particles = history[1].Particles[:1]
	_, err := ElementsReport(1, history)
	assert.Error(t, err)
}
