// Package mercurana implements an adaptive symplectic multi-step integrator
// for gravitational N-body dynamics. Close encounters are handled by
// recursively subdividing the timestep among the particles that demand it:
// particles whose predicted approach falls below a critical radius are
// promoted into nested shells, each shell running a finer sub-stepping of the
// same operator splitting.
package mercurana

import (
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/oxygene76/mercurana/pkg/astronomy/nbody"
	"github.com/oxygene76/mercurana/pkg/integrator/eos"
)

// CollisionMode selects how physical collisions are searched for.
type CollisionMode int

const (
	CollisionNone CollisionMode = iota
	CollisionDirect
	CollisionTree // not supported, kept for host compatibility
)

// Collision is a detected pair overlap, reported to the host's resolver.
type Collision struct {
	P1 int
	P2 int
}

// ResolverFunc consumes the collision pairs detected during a predictor
// pass. A resolver that removes or merges particles changes the particle
// count; the predictor treats that as a structural invalidation and re-runs.
type ResolverFunc func(sys *nbody.System, pairs []Collision) error

// Integrator holds the per-simulation state of the shell integrator. The
// particle array itself is owned by the attached System; the integrator owns
// the shell bookkeeping.
type Integrator struct {
	sys *nbody.System
	log *zap.Logger

	// Configuration. Hosts set these before Part1.
	Nmaxshells int
	N0         int // sub-steps of the outermost recursion
	N1         int // sub-steps of deeper recursions, 0 reuses N0
	Kappa      float64
	Alpha      float64
	Gm0r0      float64
	Phi0       eos.Scheme
	Phi1       eos.Scheme
	SafeMode   bool
	NDominant  int
	Collision  CollisionMode

	ResolveCollisions ResolverFunc
	L                 SwitchingFunc
	DLDr              SwitchingFunc

	// RecalculateDcrit forces the critical-radius table to be rebuilt at the
	// next Part1. It is also raised whenever the particle count grows.
	RecalculateDcrit bool

	// NmaxshellsUsed counts the shells the recursion has used so far: 1 when
	// only the outermost shell ran, s+1 once shell s was reached.
	NmaxshellsUsed int

	isSynchronized bool
	configErr      error
	halted         atomic.Bool
	currentShell   int
	maxdepthWarned bool

	// Per-particle, per-shell state. The jagged [shell][particle] tables are
	// stored flat with stride allocatedN, addressed by (s*stride + i).
	allocatedN      int
	allocatedShells int
	stride          int

	dcrit []float64

	mapDominant    []int
	mapSubdominant []int
	mapEncounter   []int

	shellNDominant    []int
	shellNSubdominant []int
	shellNEncounter   []int

	inshellDominant    []int
	inshellSubdominant []int
	inshellEncounter   []int

	tDrifted          []float64
	maxdriftDominant  []float64
	maxdriftEncounter []float64

	p0 []nbody.Particle

	collisions []Collision
}

// New attaches a shell integrator with default configuration to sys.
func New(sys *nbody.System) *Integrator {
	im := &Integrator{sys: sys, log: zap.NewNop()}
	im.Reset()
	return im
}

// SetLogger installs the logger used for warnings. nil restores the no-op
// logger.
func (im *Integrator) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	im.log = l
}

// System returns the attached particle system.
func (im *Integrator) System() *nbody.System {
	return im.sys
}

// Err returns the configuration error recorded by the last Part1, if any.
func (im *Integrator) Err() error {
	return im.configErr
}

// IsSynchronized reports whether positions and velocities are real (the
// outermost post-processor has been applied).
func (im *Integrator) IsSynchronized() bool {
	return im.isSynchronized
}

// CurrentShell returns the shell whose kick is in flight. Only meaningful
// while the system's gravity mode is GravityMercurana.
func (im *Integrator) CurrentShell() int {
	return im.currentShell
}

// Halt requests that in-flight drifts return without mutating state. The
// flag is typically raised from a signal handler.
func (im *Integrator) Halt() {
	im.halted.Store(true)
}

// Resume clears a previous Halt.
func (im *Integrator) Resume() {
	im.halted.Store(false)
}

// rowOf returns the shell-s slice of a flat [shell][particle] table.
func rowOf[T any](buf []T, stride, s int) []T {
	return buf[s*stride : (s+1)*stride]
}

func (im *Integrator) dcritRow(s int) []float64 {
	return rowOf(im.dcrit, im.stride, s)
}

// pushShell appends particle mi to the class map at shell s.
func pushShell(maps []int, shellN []int, stride, s, mi int) {
	maps[s*stride+shellN[s]] = mi
	shellN[s]++
}

// Part1 allocates and validates. The actual integration is done in Part2.
func (im *Integrator) Part1() error {
	im.configErr = nil
	switch {
	case im.Nmaxshells <= 0:
		im.configErr = ErrNmaxshells
	case im.Nmaxshells == 1 && im.N0 > 0:
		im.configErr = ErrNmaxshellsForN0
	case im.Nmaxshells < 3 && im.N1 > 0:
		im.configErr = ErrNmaxshellsForN1
	case im.Nmaxshells > 1 && im.Kappa <= 0:
		im.configErr = ErrKappa
	}
	if im.configErr != nil {
		return im.configErr
	}

	N := im.sys.N()
	if im.allocatedN < N || im.allocatedShells != im.Nmaxshells {
		im.allocate(N)
	}

	if im.RecalculateDcrit {
		im.RecalculateDcrit = false
		if !im.isSynchronized {
			im.Synchronize()
			im.log.Warn("recalculating dcrit but pos/vel were not synchronized before")
		}
		im.recomputeDcrit()
	}

	if im.Collision != CollisionNone && im.Collision != CollisionDirect {
		im.log.Warn("only a direct collision search is supported",
			zap.Int("collision_mode", int(im.Collision)))
	}
	if im.sys.Gravity != nbody.GravityNone && im.sys.Gravity != nbody.GravityMercurana {
		im.log.Warn("integrator installs its own gravity routine; host setting ignored",
			zap.Stringer("gravity", im.sys.Gravity))
	}
	im.sys.Gravity = nbody.GravityNone // only temporary, kicks publish GravityMercurana

	if im.L == nil {
		im.L = LInfinity
		im.DLDr = DLDrInfinity
	}
	return nil
}

func (im *Integrator) allocate(N int) {
	S := im.Nmaxshells
	im.stride = N
	im.allocatedN = N
	im.allocatedShells = S

	im.dcrit = make([]float64, S*N)

	im.mapDominant = make([]int, S*N)
	im.mapSubdominant = make([]int, S*N)
	im.mapEncounter = make([]int, S*N)

	im.shellNDominant = make([]int, S)
	im.shellNSubdominant = make([]int, S)
	im.shellNEncounter = make([]int, S)

	im.inshellDominant = make([]int, N)
	im.inshellSubdominant = make([]int, N)
	im.inshellEncounter = make([]int, N)

	im.tDrifted = make([]float64, N)
	im.maxdriftDominant = make([]float64, N)
	im.maxdriftEncounter = make([]float64, N)

	im.p0 = make([]nbody.Particle, N)

	// Particle count grew or shell layout changed: critical radii are stale.
	im.RecalculateDcrit = true
}

// Part2 performs one global timestep of length sys.Dt.
func (im *Integrator) Part2() {
	if im.configErr != nil {
		return
	}
	if im.allocatedN < im.sys.N() { // error occurred earlier
		return
	}

	for i := 0; i < im.sys.N(); i++ {
		im.tDrifted[i] = 0
		im.p0[i] = im.sys.Particles[i]
	}

	dt := im.sys.Dt
	if im.isSynchronized {
		eos.Preprocessor(dt, 0, im.Phi0, im.driftStep, im.kickStep)
	}
	eos.Step(dt, 1, 1, 0, im.Phi0, im.driftStep, im.kickStep)

	im.isSynchronized = false
	if im.SafeMode {
		im.Synchronize()
	}
	im.sys.DtLastDone = dt
}

// Synchronize applies the post-processor of the outermost splitting. It is
// idempotent; positions and velocities are real afterwards.
func (im *Integrator) Synchronize() {
	if im.isSynchronized {
		return
	}
	if im.L == nil {
		im.L = LInfinity
		im.DLDr = DLDrInfinity
	}
	eos.Postprocessor(im.sys.Dt, 0, im.Phi0, im.driftStep, im.kickStep)
	im.isSynchronized = true
}

// Reset frees all buffers and restores the default configuration.
func (im *Integrator) Reset() {
	im.allocatedN = 0
	im.allocatedShells = 0
	im.stride = 0
	im.dcrit = nil
	im.mapDominant = nil
	im.mapSubdominant = nil
	im.mapEncounter = nil
	im.shellNDominant = nil
	im.shellNSubdominant = nil
	im.shellNEncounter = nil
	im.inshellDominant = nil
	im.inshellSubdominant = nil
	im.inshellEncounter = nil
	im.tDrifted = nil
	im.maxdriftDominant = nil
	im.maxdriftEncounter = nil
	im.p0 = nil
	im.collisions = nil

	im.Phi0 = eos.LF
	im.Phi1 = eos.LF
	im.N0 = 2
	im.N1 = 0
	im.Kappa = 1e-3
	im.Gm0r0 = 0
	im.Alpha = 0.5
	im.SafeMode = true
	im.Nmaxshells = 10
	im.NmaxshellsUsed = 1
	im.RecalculateDcrit = false
	im.isSynchronized = true
	im.NDominant = 0
	im.Collision = CollisionNone
	im.L = nil
	im.DLDr = nil
	im.configErr = nil
	im.maxdepthWarned = false
	im.halted.Store(false)
}

// driftStep advances positions of particles resident at exactly this shell
// and recurses into the next shell if the predictor promoted anyone.
func (im *Integrator) driftStep(a float64, shell int) {
	if im.halted.Load() {
		return
	}
	im.encounterPredict(a, shell)

	particles := im.sys.Particles
	mapDom := rowOf(im.mapDominant, im.stride, shell)
	mapSub := rowOf(im.mapSubdominant, im.stride, shell)
	mapEnc := rowOf(im.mapEncounter, im.stride, shell)

	for i := 0; i < im.shellNDominant[shell]; i++ {
		mi := mapDom[i]
		if im.inshellDominant[mi] == shell {
			particles[mi].Position = particles[mi].Position.AddScaled(a, particles[mi].Velocity)
			im.tDrifted[mi] += a
		}
	}
	for i := 0; i < im.shellNSubdominant[shell]; i++ {
		mi := mapSub[i]
		if im.inshellSubdominant[mi] == shell && im.inshellEncounter[mi] <= shell {
			particles[mi].Position = particles[mi].Position.AddScaled(a, particles[mi].Velocity)
			im.tDrifted[mi] += a
		}
	}
	for i := 0; i < im.shellNEncounter[shell]; i++ {
		mi := mapEnc[i]
		if im.inshellSubdominant[mi] < shell && im.inshellEncounter[mi] == shell {
			particles[mi].Position = particles[mi].Position.AddScaled(a, particles[mi].Velocity)
			im.tDrifted[mi] += a
		}
	}

	if shell+1 < im.Nmaxshells &&
		(im.shellNEncounter[shell+1] > 0 || im.shellNDominant[shell+1] > 0) {
		if shell+2 > im.NmaxshellsUsed {
			im.NmaxshellsUsed = shell + 2
		}
		if im.NmaxshellsUsed == im.Nmaxshells && !im.maxdepthWarned {
			im.maxdepthWarned = true
			im.log.Warn("recursion reached the deepest shell; encounters below its resolution are truncated",
				zap.Int("nmaxshells", im.Nmaxshells))
		}
		n := im.N0
		if shell > 0 && im.N1 > 0 {
			n = im.N1
		}
		as := a / float64(n)
		eos.Preprocessor(as, shell+1, im.Phi1, im.driftStep, im.kickStep)
		for i := 0; i < n; i++ {
			eos.Step(as, 1, 1, shell+1, im.Phi1, im.driftStep, im.kickStep)
		}
		eos.Postprocessor(as, shell+1, im.Phi1, im.driftStep, im.kickStep)
	} else {
		im.sys.Time += a
	}
}

// newtonCbrt is a machine independent cube root. Speed is not an issue, it
// is only used to calculate dcrit; the fixed iteration keeps steps
// bit-for-bit reproducible across platforms regardless of pow semantics.
func newtonCbrt(a float64) float64 {
	x := 1.
	for k := 0; k < 200; k++ {
		x += (a/(x*x) - x) / 3.
	}
	return x
}

// recomputeDcrit rebuilds the per-shell, per-particle critical encounter
// radii. The sub-step length of shell s+1 follows from shell s via the
// longest drift coefficient of the shell's scheme and its sub-step count.
func (im *Integrator) recomputeDcrit() {
	sys := im.sys
	N := sys.N()
	dt0 := sys.Dt
	if dt0 == 0 {
		// No timestep chosen yet; without promotion thresholds every pair
		// stays in the outermost shell. The flag stays raised so the table
		// is rebuilt once a timestep exists.
		im.RecalculateDcrit = true
		return
	}
	dtShell := sys.Dt
	for s := 0; s < im.Nmaxshells; s++ {
		row := im.dcritRow(s)
		for i := 0; i < N; i++ {
			mi := sys.Particles[i].Mass
			dgrav := newtonCbrt(sys.G * dt0 * dt0 * mi / im.Kappa)
			if im.Gm0r0 > 0 {
				dgravRel := math.Sqrt(math.Sqrt(sys.G * sys.G * dt0 * dt0 * mi * mi / im.Gm0r0 / im.Kappa))
				if dgravRel > dgrav {
					dgrav = dgravRel
				}
			}
			if im.Alpha != 0.5 {
				row[i] = math.Pow(dtShell/dt0, im.Alpha) * dgrav
			} else {
				// numerically stable fast path
				row[i] = math.Sqrt(dtShell/dt0) * dgrav
			}
		}
		phi := im.Phi0
		if s > 0 {
			phi = im.Phi1
		}
		dtShell *= eos.LongestDrift(phi)
		n := im.N0
		if s > 0 && im.N1 > 0 {
			n = im.N1
		}
		dtShell /= float64(n)
	}
}
