package nbody

import (
	astromath "github.com/oxygene76/mercurana/pkg/astronomy/math"
)

// GravityMode identifies which acceleration routine is currently responsible
// for the particle array. Integrators publish the mode while a kick is in
// flight so downstream evaluators can tell who is asking.
type GravityMode int

const (
	GravityNone GravityMode = iota
	GravityBasic
	GravityMercurana
)

func (g GravityMode) String() string {
	switch g {
	case GravityNone:
		return "none"
	case GravityBasic:
		return "basic"
	case GravityMercurana:
		return "mercurana"
	}
	return "unknown"
}

// Particle represents a celestial body in the N-body system
type Particle struct {
	ID           string            // Identifier
	Mass         float64           // Mass in solar masses
	Radius       float64           // Physical radius in AU
	Position     astromath.Vector3 // Position in AU
	Velocity     astromath.Vector3 // Velocity in AU/day
	Acceleration astromath.Vector3 // Scratch space for the active gravity routine
}

// System represents the N-body system
type System struct {
	Particles  []Particle
	Time       float64     // Current time in Julian days
	Dt         float64     // Global timestep requested by the host
	DtLastDone float64     // Length of the last completed global timestep
	G          float64     // Gravitational constant in AU³/(M☉·day²)
	Gravity    GravityMode // Active gravity routine, GravityNone between kicks
}

// NewSystem creates a new N-body system
func NewSystem() *System {
	return &System{
		Particles: make([]Particle, 0),
		G:         2.959122e-4, // AU³/(M☉·day²) - correct for solar system units
		Time:      0,
	}
}

// N returns the number of particles in the system.
func (s *System) N() int {
	return len(s.Particles)
}

// Add appends a particle and returns its index.
func (s *System) Add(p Particle) int {
	s.Particles = append(s.Particles, p)
	return len(s.Particles) - 1
}

// Copy creates a deep copy of the system
func (s *System) Copy() *System {
	newSystem := &System{
		Time:       s.Time,
		Dt:         s.Dt,
		DtLastDone: s.DtLastDone,
		G:          s.G,
		Gravity:    s.Gravity,
		Particles:  make([]Particle, len(s.Particles)),
	}
	copy(newSystem.Particles, s.Particles)
	return newSystem
}

// Remove deletes the particle at index i, preserving the order of the
// remaining particles.
func (s *System) Remove(i int) {
	s.Particles = append(s.Particles[:i], s.Particles[i+1:]...)
}

// Merge replaces particles i and j by a single body conserving mass and
// momentum. The merged body keeps index min(i,j); the other slot is removed.
// This is the resolver most hosts install for direct collision detection.
func (s *System) Merge(i, j int) {
	if j < i {
		i, j = j, i
	}
	pi := &s.Particles[i]
	pj := s.Particles[j]
	m := pi.Mass + pj.Mass
	if m > 0 {
		pi.Position = pi.Position.Scale(pi.Mass / m).Add(pj.Position.Scale(pj.Mass / m))
		pi.Velocity = pi.Velocity.Scale(pi.Mass / m).Add(pj.Velocity.Scale(pj.Mass / m))
	}
	// Volume-conserving radius
	r3 := pi.Radius*pi.Radius*pi.Radius + pj.Radius*pj.Radius*pj.Radius
	pi.Radius = cbrt(r3)
	pi.Mass = m
	s.Remove(j)
}

func cbrt(a float64) float64 {
	if a == 0 {
		return 0
	}
	x := 1.0
	for k := 0; k < 200; k++ {
		x += (a/(x*x) - x) / 3.
	}
	return x
}

// BasicAccelerations computes direct-summation gravitational accelerations
// for all particles and stores them in place. Massless particles are treated
// as test masses: they feel gravity from massive bodies but exert none.
func (s *System) BasicAccelerations() {
	n := len(s.Particles)
	for i := 0; i < n; i++ {
		s.Particles[i].Acceleration = astromath.Vector3{}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || s.Particles[j].Mass == 0 {
				continue
			}
			s.Particles[i].Acceleration = s.Particles[i].Acceleration.Add(s.pairAcceleration(i, j))
		}
	}
}

// pairAcceleration calculates acceleration on particle i due to particle j
func (s *System) pairAcceleration(i, j int) astromath.Vector3 {
	r := s.Particles[j].Position.Sub(s.Particles[i].Position)
	rMag := r.Magnitude()

	// Avoid singularity
	if rMag < 1e-10 {
		return astromath.Vector3{}
	}

	// Newton's law: a = G * M_j * r / |r|³
	return r.Scale(s.G * s.Particles[j].Mass / (rMag * rMag * rMag))
}

// LeapfrogStep performs one step of plain kick-drift-kick leapfrog using the
// basic gravity routine. It serves as the reference integrator for tests and
// for hosts that do not need encounter handling.
func (s *System) LeapfrogStep(dt float64) {
	s.BasicAccelerations()
	for i := range s.Particles {
		s.Particles[i].Velocity = s.Particles[i].Velocity.AddScaled(dt*0.5, s.Particles[i].Acceleration)
	}
	for i := range s.Particles {
		s.Particles[i].Position = s.Particles[i].Position.AddScaled(dt, s.Particles[i].Velocity)
	}
	s.BasicAccelerations()
	for i := range s.Particles {
		s.Particles[i].Velocity = s.Particles[i].Velocity.AddScaled(dt*0.5, s.Particles[i].Acceleration)
	}
	s.Time += dt
}
