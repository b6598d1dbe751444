package mercurana

import (
	"math"

	"go.uber.org/zap"

	"github.com/oxygene76/mercurana/pkg/astronomy/nbody"
)

// predictRmin2 returns the minimum squared separation between p1 and p2 over
// a drift of signed length dt, assuming linear motion. The minimum over the
// interval is attained either at an endpoint or at the analytic time of
// closest approach when that time lies inside the interval.
func predictRmin2(p1, p2 *nbody.Particle, dt float64) float64 {
	dts := math.Copysign(1., dt)
	dt = math.Abs(dt)
	dr := p1.Position.Sub(p2.Position)
	dv := p1.Velocity.Sub(p2.Velocity).Scale(dts)

	r1 := dr.Norm2()
	r2 := dr.AddScaled(dt, dv).Norm2()

	rmin2 := math.Min(r1, r2)
	dv2 := dv.Norm2()
	if dv2 > 0 {
		tClosest := -dr.Dot(dv) / dv2
		if tClosest >= 0. && tClosest <= dt {
			r3 := dr.AddScaled(tClosest, dv).Norm2()
			rmin2 = math.Min(rmin2, r3)
		}
	}
	return rmin2
}

// predictRmin2Drifted first advances p2 linearly by p2drift before running
// the closest-approach estimate. This reconciles pairs whose accumulated
// drift times differ.
func predictRmin2Drifted(p1, p2 *nbody.Particle, dt, p2drift float64) float64 {
	drifted := *p2
	drifted.Position = drifted.Position.AddScaled(p2drift, drifted.Velocity)
	return predictRmin2(p1, &drifted, dt)
}

// recordCollision buffers a physical overlap between particles i and j, to
// be resolved after the sweeps complete.
func (im *Integrator) recordCollision(i, j int) {
	im.collisions = append(im.collisions, Collision{P1: i, P2: j})
}

// encounterPredict checks for close encounters and physical collisions among
// particles of the given shell during an upcoming drift of length dt. Pairs
// approaching within their summed critical radii are promoted into the next
// shell before the drift runs.
func (im *Integrator) encounterPredict(dt float64, shell int) {
	if shell+1 >= im.Nmaxshells { // does sub-shell exist?
		return
	}
	sys := im.sys
	particles := sys.Particles
	dcrit := im.dcritRow(shell)
	stride := im.stride

	im.collisions = im.collisions[:0]

	im.shellNEncounter[shell+1] = 0
	im.shellNDominant[shell+1] = 0
	im.shellNSubdominant[shell+1] = 0

	if shell > 0 {
		// A shell is drifted several times per sub-step sequence and each
		// drift re-runs this predictor. Particles that earlier passes sent
		// below shell+1 must stay members of the freshly cleared sub-shell,
		// otherwise they would silently stop drifting there.
		mapDom := rowOf(im.mapDominant, stride, shell)
		for i := 0; i < im.shellNDominant[shell]; i++ {
			if mi := mapDom[i]; im.inshellDominant[mi] > shell {
				pushShell(im.mapDominant, im.shellNDominant, stride, shell+1, mi)
			}
		}
		mapSub := rowOf(im.mapSubdominant, stride, shell)
		for i := 0; i < im.shellNSubdominant[shell]; i++ {
			if mi := mapSub[i]; im.inshellSubdominant[mi] > shell {
				pushShell(im.mapSubdominant, im.shellNSubdominant, stride, shell+1, mi)
			}
		}
		mapEnc := rowOf(im.mapEncounter, stride, shell)
		for i := 0; i < im.shellNEncounter[shell]; i++ {
			if mi := mapEnc[i]; im.inshellEncounter[mi] > shell {
				pushShell(im.mapEncounter, im.shellNEncounter, stride, shell+1, mi)
			}
		}
	}

	if shell == 0 {
		// Seed the maps of the outermost shell.
		N := sys.N()
		im.shellNDominant[0] = im.NDominant
		im.shellNSubdominant[0] = N - im.NDominant
		im.shellNEncounter[0] = N - im.NDominant
		mapDom := rowOf(im.mapDominant, stride, 0)
		mapSub := rowOf(im.mapSubdominant, stride, 0)
		mapEnc := rowOf(im.mapEncounter, stride, 0)
		for i := 0; i < im.NDominant; i++ {
			mapDom[i] = i
		}
		for i := 0; i < N-im.NDominant; i++ {
			mapSub[i] = im.NDominant + i
			mapEnc[i] = im.NDominant + i
		}
		for i := 0; i < N; i++ {
			im.maxdriftDominant[i] = math.Inf(1)
			im.maxdriftEncounter[i] = math.Inf(1)
			im.inshellEncounter[i] = 0
			im.inshellDominant[i] = 0
			im.inshellSubdominant[i] = 0
		}
	} else {
		// Check for maxdrift violations: a particle resident here may have
		// drifted so far that its cached neighbour relationships with
		// particles left in outer shells are no longer trustworthy.
		mapEnc := rowOf(im.mapEncounter, stride, shell)
		mapEnc0 := rowOf(im.mapEncounter, stride, 0)
		nEnc := im.shellNEncounter[shell] // promotions below grow this row
		for i := 0; i < nEnc; i++ {
			mi := mapEnc[i]
			drift := particles[mi].Position.Distance(im.p0[mi].Position)
			if drift <= im.maxdriftEncounter[mi] {
				continue
			}
			for j := 0; j < im.shellNEncounter[0]; j++ {
				mj := mapEnc0[j]
				if im.inshellEncounter[mj] >= shell {
					continue
				}
				pending := im.tDrifted[mi] - im.tDrifted[mj]
				rmin2 := predictRmin2Drifted(&particles[mi], &particles[mj], dt, pending)
				dcritsum := dcrit[mi] + dcrit[mj]
				if rmin2 < dcritsum*dcritsum {
					// Promote mj into every shell below its current depth down
					// to this one, apply its pending drift so it catches up,
					// and void its budget.
					depth := im.inshellEncounter[mj]
					im.inshellEncounter[mj] = shell
					for s := depth + 1; s <= shell; s++ {
						pushShell(im.mapEncounter, im.shellNEncounter, stride, s, mj)
					}
					particles[mj].Position = particles[mj].Position.AddScaled(pending, particles[mj].Velocity)
					im.tDrifted[mj] += pending
					im.maxdriftEncounter[mj] = 0
				} else {
					maxdrift := (math.Sqrt(rmin2) - dcritsum) / 2.
					if maxdrift < im.maxdriftEncounter[mi] {
						im.maxdriftEncounter[mi] = maxdrift
					}
				}
			}
		}
	}

	// (1) Dominant and dominant
	mapDom := rowOf(im.mapDominant, stride, shell)
	for i := 0; i < im.shellNDominant[shell]; i++ {
		mi := mapDom[i]
		for j := i + 1; j < im.shellNDominant[shell]; j++ {
			mj := mapDom[j]
			rmin2 := predictRmin2(&particles[mi], &particles[mj], dt)
			rsum := particles[mi].Radius + particles[mj].Radius
			if rmin2 < rsum*rsum && im.Collision == CollisionDirect {
				im.recordCollision(mi, mj)
			}
			dcritsum := dcrit[mi] + dcrit[mj]
			if rmin2 < dcritsum*dcritsum {
				if im.inshellDominant[mi] == shell {
					im.inshellDominant[mi] = shell + 1
					pushShell(im.mapDominant, im.shellNDominant, stride, shell+1, mi)
				}
				if im.inshellDominant[mj] == shell {
					im.inshellDominant[mj] = shell + 1
					pushShell(im.mapDominant, im.shellNDominant, stride, shell+1, mj)
				}
			} else {
				maxdrift := (math.Sqrt(rmin2) - dcritsum) / 2.
				if maxdrift < im.maxdriftDominant[mi] {
					im.maxdriftDominant[mi] = maxdrift
				}
				if maxdrift < im.maxdriftDominant[mj] {
					im.maxdriftDominant[mj] = maxdrift
				}
			}
		}
	}

	// (2) Dominant and subdominant
	mapSub := rowOf(im.mapSubdominant, stride, shell)
	for i := 0; i < im.shellNDominant[shell]; i++ {
		mi := mapDom[i]
		for j := 0; j < im.shellNSubdominant[shell]; j++ {
			mj := mapSub[j]
			rmin2 := predictRmin2(&particles[mi], &particles[mj], dt)
			rsum := particles[mi].Radius + particles[mj].Radius
			if rmin2 < rsum*rsum && im.Collision == CollisionDirect {
				im.recordCollision(mi, mj)
			}
			dcritsum := dcrit[mi] + dcrit[mj]
			if rmin2 < dcritsum*dcritsum {
				if im.inshellDominant[mi] == shell {
					im.inshellDominant[mi] = shell + 1
					pushShell(im.mapDominant, im.shellNDominant, stride, shell+1, mi)
				}
				if im.inshellSubdominant[mj] == shell {
					im.inshellSubdominant[mj] = shell + 1
					pushShell(im.mapSubdominant, im.shellNSubdominant, stride, shell+1, mj)
				}
			} else {
				maxdrift := (math.Sqrt(rmin2) - dcritsum) / 2.
				if maxdrift < im.maxdriftDominant[mi] {
					im.maxdriftDominant[mi] = maxdrift
				}
				if maxdrift < im.maxdriftDominant[mj] {
					im.maxdriftDominant[mj] = maxdrift
				}
			}
		}
	}

	// (3) Encounter and encounter. There is no subdominant-subdominant
	// sweep: subdominant pairs are assumed never to demand promotion on
	// their own.
	mapEnc := rowOf(im.mapEncounter, stride, shell)
	for i := 0; i < im.shellNEncounter[shell]; i++ {
		mi := mapEnc[i]
		for j := i + 1; j < im.shellNEncounter[shell]; j++ {
			mj := mapEnc[j]
			rmin2 := predictRmin2(&particles[mi], &particles[mj], dt)
			rsum := particles[mi].Radius + particles[mj].Radius
			if rmin2 < rsum*rsum && im.Collision == CollisionDirect {
				im.recordCollision(mi, mj)
			}
			dcritsum := dcrit[mi] + dcrit[mj]
			if rmin2 < dcritsum*dcritsum {
				if im.inshellEncounter[mi] == shell {
					im.inshellEncounter[mi] = shell + 1
					pushShell(im.mapEncounter, im.shellNEncounter, stride, shell+1, mi)
				}
				if im.inshellEncounter[mj] == shell {
					im.inshellEncounter[mj] = shell + 1
					pushShell(im.mapEncounter, im.shellNEncounter, stride, shell+1, mj)
				}
			} else {
				maxdrift := (math.Sqrt(rmin2) - dcritsum) / 2.
				if maxdrift < im.maxdriftEncounter[mi] {
					im.maxdriftEncounter[mi] = maxdrift
				}
				if maxdrift < im.maxdriftEncounter[mj] {
					im.maxdriftEncounter[mj] = maxdrift
				}
			}
		}
	}

	if len(im.collisions) > 0 {
		nBefore := sys.N()
		if im.ResolveCollisions != nil {
			if err := im.ResolveCollisions(sys, im.collisions); err != nil {
				im.log.Warn("collision resolver failed", zap.Error(err))
			}
		}
		im.collisions = im.collisions[:0]
		if nBefore != sys.N() {
			// Particles changed, redo the predict step.
			im.encounterPredict(dt, shell)
		}
	}
}
