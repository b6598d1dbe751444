// Package analysis post-processes integration output: energy conservation
// statistics and per-body orbital element drift.
package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/oxygene76/mercurana/internal/types"
	"github.com/oxygene76/mercurana/pkg/astronomy/nbody"
	"github.com/oxygene76/mercurana/pkg/astronomy/orbital"
)

// EnergyReport computes energy conservation statistics over a snapshot
// history. The first snapshot's energy is the reference.
func EnergyReport(g float64, history []nbody.Snapshot) (types.EnergyReport, error) {
	if len(history) < 2 {
		return types.EnergyReport{}, fmt.Errorf("need at least two snapshots, got %d", len(history))
	}

	e0 := snapshotEnergy(g, history[0])
	if e0 == 0 {
		return types.EnergyReport{}, fmt.Errorf("reference energy is zero")
	}

	errs := make([]float64, 0, len(history)-1)
	maxErr := 0.0
	final := e0
	for _, snap := range history[1:] {
		e := snapshotEnergy(g, snap)
		final = e
		rel := math.Abs((e - e0) / e0)
		errs = append(errs, rel)
		if rel > maxErr {
			maxErr = rel
		}
	}

	return types.EnergyReport{
		Initial:   e0,
		Final:     final,
		MaxError:  maxErr,
		MeanError: stat.Mean(errs, nil),
		StdError:  stat.StdDev(errs, nil),
	}, nil
}

func snapshotEnergy(g float64, snap nbody.Snapshot) float64 {
	sys := nbody.System{Particles: snap.Particles, G: g}
	return sys.TotalEnergy()
}

// ElementsReport converts the first and last snapshot of each body after the
// central one (index 0), massless test particles included, into Keplerian
// elements and reports the drift.
// mu is the gravitational parameter of the central body.
func ElementsReport(mu float64, history []nbody.Snapshot) ([]types.ElementDrift, error) {
	if len(history) < 2 {
		return nil, fmt.Errorf("need at least two snapshots, got %d", len(history))
	}
	first := history[0]
	last := history[len(history)-1]
	if len(first.Particles) != len(last.Particles) {
		return nil, fmt.Errorf("particle count changed from %d to %d during the run",
			len(first.Particles), len(last.Particles))
	}

	var drifts []types.ElementDrift
	for i := 1; i < len(first.Particles); i++ {
		initial := orbital.FromCartesian(first.Particles[i].Position, first.Particles[i].Velocity, mu)
		final := orbital.FromCartesian(last.Particles[i].Position, last.Particles[i].Velocity, mu)

		if final.Eccentricity >= 1.0 || final.Eccentricity < 0 || final.SemiMajorAxis <= 0 {
			// Unbound or degenerate orbit, nothing meaningful to report.
			continue
		}

		drifts = append(drifts, types.ElementDrift{
			ID:                first.Particles[i].ID,
			SemiMajorAxisFrom: initial.SemiMajorAxis,
			SemiMajorAxisTo:   final.SemiMajorAxis,
			EccentricityFrom:  initial.Eccentricity,
			EccentricityTo:    final.Eccentricity,
			InclinationChange: (final.Inclination - initial.Inclination) * 180.0 / math.Pi,
			PerihelionShift:   final.Perihelion() - initial.Perihelion(),
		})
	}
	return drifts, nil
}
