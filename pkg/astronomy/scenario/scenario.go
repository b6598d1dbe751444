// Package scenario builds initial particle sets for the simulation CLI.
package scenario

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	astromath "github.com/oxygene76/mercurana/pkg/astronomy/math"
	"github.com/oxygene76/mercurana/pkg/astronomy/nbody"
	"github.com/oxygene76/mercurana/pkg/astronomy/orbital"
)

// Build returns a system for a named preset, or loads a particle file when
// name is empty.
func Build(name, particleFile string) (*nbody.System, error) {
	switch name {
	case "":
		return loadParticleFile(particleFile)
	case "two_body":
		return twoBody(), nil
	case "outer_solar_system":
		return outerSolarSystem(), nil
	default:
		return nil, fmt.Errorf("unknown scenario preset %q", name)
	}
}

// twoBody is a Sun plus a Jupiter-mass planet on a mildly eccentric orbit.
func twoBody() *nbody.System {
	sys := nbody.NewSystem()
	sys.Add(nbody.Particle{ID: "Sun", Mass: 1.0})

	muYear := 4 * math.Pi * math.Pi // AU³/(M☉·year²)
	elem := orbital.Elements{
		SemiMajorAxis: 5.2038,
		Eccentricity:  0.0489,
	}
	pos, velYr := elem.ToCartesian(muYear)
	sys.Add(nbody.Particle{
		ID:       "Jupiter",
		Mass:     0.0009545942,
		Position: pos,
		Velocity: velYr.Scale(1.0 / 365.25), // AU/day for the integrator
	})
	sys.RecenterToBarycenter()
	return sys
}

// outerSolarSystem is the Sun plus the four giant planets.
func outerSolarSystem() *nbody.System {
	sys := nbody.NewSystem()
	sys.Add(nbody.Particle{ID: "Sun", Mass: 1.0})

	muYear := 4 * math.Pi * math.Pi // AU^3 / yr^2

	planets := []struct {
		name string
		mass float64 // solar masses
		elem orbital.Elements
	}{
		{
			name: "Jupiter",
			mass: 0.0009545942,
			elem: orbital.Elements{
				SemiMajorAxis:          5.2038,
				Eccentricity:           0.0489,
				Inclination:            1.303 * math.Pi / 180,
				LongitudeAscendingNode: 100.464 * math.Pi / 180,
				ArgumentPerihelion:     273.867 * math.Pi / 180,
				MeanAnomaly:            20.020 * math.Pi / 180,
			},
		},
		{
			name: "Saturn",
			mass: 0.0002857214,
			elem: orbital.Elements{
				SemiMajorAxis:          9.5826,
				Eccentricity:           0.0565,
				Inclination:            2.485 * math.Pi / 180,
				LongitudeAscendingNode: 113.665 * math.Pi / 180,
				ArgumentPerihelion:     339.392 * math.Pi / 180,
				MeanAnomaly:            317.020 * math.Pi / 180,
			},
		},
		{
			name: "Uranus",
			mass: 0.00004365785,
			elem: orbital.Elements{
				SemiMajorAxis:          19.2012,
				Eccentricity:           0.0469,
				Inclination:            0.773 * math.Pi / 180,
				LongitudeAscendingNode: 74.006 * math.Pi / 180,
				ArgumentPerihelion:     96.998 * math.Pi / 180,
				MeanAnomaly:            142.238 * math.Pi / 180,
			},
		},
		{
			name: "Neptune",
			mass: 0.00005149497,
			elem: orbital.Elements{
				SemiMajorAxis:          30.0479,
				Eccentricity:           0.0087,
				Inclination:            1.767 * math.Pi / 180,
				LongitudeAscendingNode: 131.783 * math.Pi / 180,
				ArgumentPerihelion:     276.336 * math.Pi / 180,
				MeanAnomaly:            256.228 * math.Pi / 180,
			},
		},
	}

	for _, p := range planets {
		pos, velYr := p.elem.ToCartesian(muYear) // AU, AU/yr
		velDay := velYr.Scale(1.0 / 365.25)      // AU/day for the integrator
		sys.Add(nbody.Particle{
			ID:       p.name,
			Mass:     p.mass,
			Position: pos,
			Velocity: velDay,
		})
	}

	sys.RecenterToBarycenter()
	return sys
}

type particleRecord struct {
	ID       string            `json:"id"`
	Mass     float64           `json:"mass"`
	Radius   float64           `json:"radius"`
	Position astromath.Vector3 `json:"position"`
	Velocity astromath.Vector3 `json:"velocity"`
}

// loadParticleFile reads a JSON array of particle records.
func loadParticleFile(path string) (*nbody.System, error) {
	if path == "" {
		return nil, fmt.Errorf("no scenario preset and no particle file given")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read particle file: %w", err)
	}
	var records []particleRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse particle file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("particle file %s is empty", path)
	}
	sys := nbody.NewSystem()
	for _, r := range records {
		sys.Add(nbody.Particle{
			ID:       r.ID,
			Mass:     r.Mass,
			Radius:   r.Radius,
			Position: r.Position,
			Velocity: r.Velocity,
		})
	}
	return sys, nil
}
