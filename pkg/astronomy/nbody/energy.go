package nbody

import (
	astromath "github.com/oxygene76/mercurana/pkg/astronomy/math"
)

// KineticEnergy calculates total kinetic energy of the system
func (s *System) KineticEnergy() float64 {
	energy := 0.0
	for _, p := range s.Particles {
		if p.Mass > 0 {
			v2 := p.Velocity.Dot(p.Velocity)
			energy += 0.5 * p.Mass * v2
		}
	}
	return energy
}

// PotentialEnergy calculates total gravitational potential energy
func (s *System) PotentialEnergy() float64 {
	energy := 0.0
	n := len(s.Particles)

	for i := 0; i < n-1; i++ {
		if s.Particles[i].Mass == 0 {
			continue
		}
		for j := i + 1; j < n; j++ {
			if s.Particles[j].Mass == 0 {
				continue
			}
			r := s.Particles[i].Position.Distance(s.Particles[j].Position)
			if r > 1e-10 {
				energy -= s.G * s.Particles[i].Mass * s.Particles[j].Mass / r
			}
		}
	}

	return energy
}

// TotalEnergy returns the total energy (should be conserved)
func (s *System) TotalEnergy() float64 {
	return s.KineticEnergy() + s.PotentialEnergy()
}

// AngularMomentum calculates total angular momentum (should be conserved)
func (s *System) AngularMomentum() astromath.Vector3 {
	totalL := astromath.Vector3{}

	for _, p := range s.Particles {
		if p.Mass > 0 {
			L := p.Position.Cross(p.Velocity).Scale(p.Mass)
			totalL = totalL.Add(L)
		}
	}

	return totalL
}

// RecenterToBarycenter shifts positions and velocities so that the center of
// mass sits at the origin with zero net momentum.
func (s *System) RecenterToBarycenter() {
	var m float64
	var x, v astromath.Vector3
	for _, p := range s.Particles {
		m += p.Mass
		x = x.Add(p.Position.Scale(p.Mass))
		v = v.Add(p.Velocity.Scale(p.Mass))
	}
	if m == 0 {
		return
	}
	x = x.Scale(1 / m)
	v = v.Scale(1 / m)
	for i := range s.Particles {
		s.Particles[i].Position = s.Particles[i].Position.Sub(x)
		s.Particles[i].Velocity = s.Particles[i].Velocity.Sub(v)
	}
}
