package mercurana

import (
	astromath "github.com/oxygene76/mercurana/pkg/astronomy/math"
	"github.com/oxygene76/mercurana/pkg/astronomy/nbody"
)

// lambda is the cumulative switching weight at the boundary of shell s: 1
// once the pair separation exceeds the outer critical radius (the force is
// owned by shells outside s), 0 well inside. Boundary 0 has nothing outside
// it; a boundary past the deepest shell owns everything that remains.
func (im *Integrator) lambda(s, i, j int, d float64) float64 {
	if s <= 0 {
		return 0
	}
	if s >= im.Nmaxshells {
		return 1
	}
	ri := im.dcritRow(s)[i] + im.dcritRow(s)[j]
	ro := im.dcritRow(s-1)[i] + im.dcritRow(s-1)[j]
	return im.L(d, ri, ro)
}

// dLambda is the derivative of lambda with respect to the separation.
func (im *Integrator) dLambda(s, i, j int, d float64) float64 {
	if s <= 0 || s >= im.Nmaxshells {
		return 0
	}
	ri := im.dcritRow(s)[i] + im.dcritRow(s)[j]
	ro := im.dcritRow(s-1)[i] + im.dcritRow(s-1)[j]
	return im.DLDr(d, ri, ro)
}

// pairWeight is the fraction of the pair force owned by this shell. The
// weights of the shells a pair visits telescope to exactly one.
func (im *Integrator) pairWeight(shell, i, j int, d float64) float64 {
	return im.lambda(shell+1, i, j, d) - im.lambda(shell, i, j, d)
}

func (im *Integrator) dPairWeight(shell, i, j int, d float64) float64 {
	return im.dLambda(shell+1, i, j, d) - im.dLambda(shell, i, j, d)
}

// updateAccelerations evaluates the shell-weighted gravitational
// accelerations for the particles of the given shell, in place.
func (im *Integrator) updateAccelerations(shell int) {
	sys := im.sys
	particles := sys.Particles
	stride := im.stride
	mapDom := rowOf(im.mapDominant, stride, shell)
	mapSub := rowOf(im.mapSubdominant, stride, shell)
	mapEnc := rowOf(im.mapEncounter, stride, shell)

	for i := 0; i < im.shellNDominant[shell]; i++ {
		particles[mapDom[i]].Acceleration = astromath.Vector3{}
	}
	for i := 0; i < im.shellNSubdominant[shell]; i++ {
		particles[mapSub[i]].Acceleration = astromath.Vector3{}
	}
	for i := 0; i < im.shellNEncounter[shell]; i++ {
		particles[mapEnc[i]].Acceleration = astromath.Vector3{}
	}

	// Dominant and dominant, mutual.
	for i := 0; i < im.shellNDominant[shell]; i++ {
		mi := mapDom[i]
		for j := i + 1; j < im.shellNDominant[shell]; j++ {
			mj := mapDom[j]
			im.accumulatePair(shell, mi, mj, true)
		}
	}
	// Dominant and subdominant: subdominants are test masses to dominants.
	for i := 0; i < im.shellNDominant[shell]; i++ {
		mi := mapDom[i]
		for j := 0; j < im.shellNSubdominant[shell]; j++ {
			im.accumulatePair(shell, mapSub[j], mi, false)
		}
	}
	// Encounter and encounter, mutual. No subdominant-subdominant forces.
	for i := 0; i < im.shellNEncounter[shell]; i++ {
		mi := mapEnc[i]
		for j := i + 1; j < im.shellNEncounter[shell]; j++ {
			mj := mapEnc[j]
			im.accumulatePair(shell, mi, mj, true)
		}
	}
}

// accumulatePair adds the shell-weighted acceleration of particle mj onto
// particle mi, and the reaction onto mj when mutual.
func (im *Integrator) accumulatePair(shell, mi, mj int, mutual bool) {
	particles := im.sys.Particles
	r := particles[mj].Position.Sub(particles[mi].Position)
	d := r.Magnitude()
	if d < 1e-10 {
		return
	}
	w := im.pairWeight(shell, mi, mj, d)
	if w == 0 {
		return
	}
	particles[mi].Acceleration = particles[mi].Acceleration.
		AddScaled(w*im.sys.G*particles[mj].Mass/(d*d*d), r)
	if mutual {
		particles[mj].Acceleration = particles[mj].Acceleration.
			AddScaled(-w*im.sys.G*particles[mi].Mass/(d*d*d), r)
	}
}

// applyJerk adds v times the time derivative of the shell-weighted
// acceleration directly onto the velocities. Used by the modified-potential
// schemes.
func (im *Integrator) applyJerk(v float64, shell int) {
	stride := im.stride
	mapDom := rowOf(im.mapDominant, stride, shell)
	mapSub := rowOf(im.mapSubdominant, stride, shell)
	mapEnc := rowOf(im.mapEncounter, stride, shell)

	for i := 0; i < im.shellNDominant[shell]; i++ {
		mi := mapDom[i]
		for j := i + 1; j < im.shellNDominant[shell]; j++ {
			im.accumulateJerkPair(shell, mi, mapDom[j], v, true)
		}
	}
	for i := 0; i < im.shellNDominant[shell]; i++ {
		mi := mapDom[i]
		for j := 0; j < im.shellNSubdominant[shell]; j++ {
			im.accumulateJerkPair(shell, mapSub[j], mi, v, false)
		}
	}
	for i := 0; i < im.shellNEncounter[shell]; i++ {
		mi := mapEnc[i]
		for j := i + 1; j < im.shellNEncounter[shell]; j++ {
			im.accumulateJerkPair(shell, mi, mapEnc[j], v, true)
		}
	}
}

func (im *Integrator) accumulateJerkPair(shell, mi, mj int, v float64, mutual bool) {
	particles := im.sys.Particles
	r := particles[mj].Position.Sub(particles[mi].Position)
	dv := particles[mj].Velocity.Sub(particles[mi].Velocity)
	d := r.Magnitude()
	if d < 1e-10 {
		return
	}
	rdv := r.Dot(dv)
	w := im.pairWeight(shell, mi, mj, d)
	dw := im.dPairWeight(shell, mi, mj, d)
	g := im.sys.G / (d * d * d)
	// d/dt [ w(d) G m r / d^3 ] with d'(t) = (r.dv)/d
	jerk := dv.Scale(w * g).
		Add(r.Scale(-3 * w * g * rdv / (d * d))).
		Add(r.Scale(dw * g * rdv / d))
	particles[mi].Velocity = particles[mi].Velocity.AddScaled(v*particles[mj].Mass, jerk)
	if mutual {
		particles[mj].Velocity = particles[mj].Velocity.AddScaled(-v*particles[mi].Mass, jerk)
	}
}

// kickStep evaluates accelerations at the given shell and advances the
// velocities of its resident particles. y scales the acceleration, v the
// jerk term of modified-potential schemes.
func (im *Integrator) kickStep(y, v float64, shell int) {
	sys := im.sys
	sys.Gravity = nbody.GravityMercurana
	im.currentShell = shell

	im.updateAccelerations(shell)
	if v != 0 {
		im.applyJerk(v, shell)
	}

	particles := sys.Particles
	stride := im.stride
	mapDom := rowOf(im.mapDominant, stride, shell)
	mapSub := rowOf(im.mapSubdominant, stride, shell)
	mapEnc := rowOf(im.mapEncounter, stride, shell)

	for i := 0; i < im.shellNDominant[shell]; i++ {
		mi := mapDom[i]
		particles[mi].Velocity = particles[mi].Velocity.AddScaled(y, particles[mi].Acceleration)
	}
	for i := 0; i < im.shellNEncounter[shell]; i++ {
		mi := mapEnc[i]
		particles[mi].Velocity = particles[mi].Velocity.AddScaled(y, particles[mi].Acceleration)
	}
	if shell > 0 { // all particles are encounter particles in shell 0
		for i := 0; i < im.shellNSubdominant[shell]; i++ {
			mi := mapSub[i]
			if im.inshellEncounter[mi] < shell { // do not apply acceleration twice
				particles[mi].Velocity = particles[mi].Velocity.AddScaled(y, particles[mi].Acceleration)
			}
		}
	}

	sys.Gravity = nbody.GravityNone
}
