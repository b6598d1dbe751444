// Package eos provides the embedded operator splitting kernels used by the
// shell integrator. A scheme is a named symplectic composition of drift (D)
// and kick (K) operators; callers supply the two operators as callbacks and
// the kernel decides the coefficient sequence.
package eos

import (
	"fmt"
	"math"
	"strings"
)

// Scheme names a symplectic composition.
type Scheme int

const (
	LF Scheme = iota // 2nd order leapfrog
	LF4              // 4th order, Yoshida triple jump
	LF6              // 6th order, Yoshida solution A
	LF8              // 8th order, Yoshida
	PMLF4            // 4th order processed modified leapfrog (uses jerk)
	PMLF6            // 6th order processed modified leapfrog (uses jerk)
	LF4_2            // 4th order, McLachlan two-force evaluation
	LF8_6_4          // (8,6,4) composition
	PLF7_6_4         // (7,6,4) processed leapfrog
)

var schemeNames = map[Scheme]string{
	LF:       "LF",
	LF4:      "LF4",
	LF6:      "LF6",
	LF8:      "LF8",
	PMLF4:    "PMLF4",
	PMLF6:    "PMLF6",
	LF4_2:    "LF4_2",
	LF8_6_4:  "LF8_6_4",
	PLF7_6_4: "PLF7_6_4",
}

func (s Scheme) String() string {
	if n, ok := schemeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Scheme(%d)", int(s))
}

// Parse resolves a scheme by its name, case-insensitively.
func Parse(name string) (Scheme, error) {
	for s, n := range schemeNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return LF, fmt.Errorf("unknown composition scheme %q", name)
}

// Schemes lists every named scheme.
func Schemes() []Scheme {
	return []Scheme{LF, LF4, LF6, LF8, PMLF4, PMLF6, LF4_2, LF8_6_4, PLF7_6_4}
}

// DriftFunc advances positions over the sub-interval a at the given shell.
type DriftFunc func(a float64, shell int)

// KickFunc advances velocities. y scales the acceleration, v scales the jerk
// contribution (0 when the scheme carries no modified-potential term).
type KickFunc func(y, v float64, shell int)

// kernel holds one scheme's coefficient tables. A step executes
// D(drift[0]) K(kick[0]) D(drift[1]) K(kick[1]) ... D(drift[n]); jerk[i]
// scales the modified-potential term of kick i. proc holds the (z, y)
// processor stages applied around the kernel for processed schemes.
type kernel struct {
	drift []float64
	kick  []float64
	jerk  []float64
	proc  [][2]float64
}

var kernels map[Scheme]*kernel

// fromWeights expands a symmetric sequence of 2nd-order leapfrog weights
// into a merged DKD coefficient table: adjacent half-drifts of neighbouring
// leapfrogs are combined into a single drift stage.
func fromWeights(w []float64) *kernel {
	n := len(w)
	k := &kernel{
		drift: make([]float64, n+1),
		kick:  make([]float64, n),
	}
	k.drift[0] = w[0] / 2
	for i := 1; i < n; i++ {
		k.drift[i] = (w[i-1] + w[i]) / 2
	}
	k.drift[n] = w[n-1] / 2
	copy(k.kick, w)
	return k
}

// palindrome mirrors the leading weights around a computed central weight so
// that the full sequence sums to one.
func palindrome(half []float64) []float64 {
	sum := 0.0
	for _, v := range half {
		sum += v
	}
	w := make([]float64, 2*len(half)+1)
	copy(w, half)
	w[len(half)] = 1 - 2*sum
	for i, v := range half {
		w[len(w)-1-i] = v
	}
	return w
}

// symmetricDKD builds a palindromic kernel from the leading drift and kick
// coefficients: drifts [a0..ak, ak..a0], kicks [b0..bm, c, bm..b0] with the
// central kick computed so the table sums to one. The leading drifts must
// already sum to one half.
func symmetricDKD(driftHalf, kickHalf []float64) *kernel {
	drift := make([]float64, 2*len(driftHalf))
	copy(drift, driftHalf)
	for i, a := range driftHalf {
		drift[len(drift)-1-i] = a
	}
	kick := make([]float64, 2*len(kickHalf)+1)
	copy(kick, kickHalf)
	bsum := 0.0
	for i, b := range kickHalf {
		kick[len(kick)-1-i] = b
		bsum += b
	}
	kick[len(kickHalf)] = 1 - 2*bsum
	return &kernel{drift: drift, kick: kick}
}

// procPairs normalises a processor table: a final stage is appended so that
// both the drift and the kick legs sum to zero, keeping the processor a
// near-identity map.
func procPairs(pairs [][2]float64) [][2]float64 {
	var z, y float64
	for _, p := range pairs {
		z += p[0]
		y += p[1]
	}
	out := make([][2]float64, len(pairs), len(pairs)+1)
	copy(out, pairs)
	return append(out, [2]float64{-z, -y})
}

func init() {
	kernels = make(map[Scheme]*kernel)

	// LF: plain DKD leapfrog.
	kernels[LF] = fromWeights([]float64{1})

	// LF4: Yoshida (1990) triple jump.
	w1 := 1. / (2. - math.Cbrt(2.))
	kernels[LF4] = fromWeights(palindrome([]float64{w1}))

	// LF6: Yoshida (1990), solution A.
	kernels[LF6] = fromWeights(palindrome([]float64{
		0.784513610477560e0,
		0.235573213359357e0,
		-0.117767998417887e1,
	}))

	// LF8: Yoshida (1990), m=7.
	kernels[LF8] = fromWeights(palindrome([]float64{
		0.104242620869991e1,
		0.182020630970714e1,
		0.157739928123617e0,
		0.244002732616735e1,
		-0.716989419708120e-2,
		-0.244699182370524e1,
		-0.161582374150097e1,
	}))

	// LF4_2: McLachlan (1995), fourth order from two force evaluations.
	x := (3. - math.Sqrt(3.)) / 6.
	kernels[LF4_2] = &kernel{
		drift: []float64{x, 1 - 2*x, x},
		kick:  []float64{0.5, 0.5},
	}

	// PMLF4: processed modified leapfrog. The kernel is a single modified
	// kick between half drifts; the processor removes the remaining
	// low-order error terms.
	kernels[PMLF4] = &kernel{
		drift: []float64{0.5, 0.5},
		kick:  []float64{1},
		jerk:  []float64{1. / 24.},
		proc: procPairs([][2]float64{
			{0.1859353996846055, 0.0378596087828155},
			{0.0731969797858114, -0.0071690694487991},
			{-0.1576624269298081, 0.0209213666609109},
		}),
	}

	// PMLF6: processed modified leapfrog of order six, Blanes, Casas & Ros
	// (1999) kernel with two distinct modified kicks.
	pmlf6b0 := 0.2073411135340415
	pmlf6 := symmetricDKD(
		[]float64{0.0829844064174052, 0.4170155935825948},
		[]float64{pmlf6b0},
	)
	pmlf6.jerk = []float64{0.0048225594764939, 0.0143845805405036, 0.0048225594764939}
	pmlf6.proc = procPairs([][2]float64{
		{0.1004568378243461, 0.0171801190779856},
		{-0.2575112462593617, 0.0661355422924885},
		{0.0802800359882004, -0.0425744013830108},
		{-0.1364539380841228, 0.0318378570268218},
		{0.2457155683648525, -0.0527521619494042},
	})
	kernels[PMLF6] = pmlf6

	// LF8_6_4: composition of effective order (8,6,4).
	kernels[LF8_6_4] = symmetricDKD(
		[]float64{0.0961447548117066, 0.1548898102928089,
			0.5 - 0.0961447548117066 - 0.1548898102928089},
		[]float64{0.1924889781054754, 0.2478934506625992},
	)

	// PLF7_6_4: processed leapfrog of effective order (7,6,4), Blanes,
	// Casas & Ros (2001).
	plf764 := symmetricDKD(
		[]float64{0.5600879810924619, -0.0600879810924619},
		[]float64{1.5171479707207228},
	)
	plf764.proc = procPairs([][2]float64{
		{-0.3346222298730800, 0.5791717791044595},
		{1.0975679907321640, -0.3123511009268805},
		{-1.0380887460967830, 0.0414910409881780},
		{0.6234776317921379, -0.1382168947683330},
	})
	kernels[PLF7_6_4] = plf764
}

// LongestDrift returns the largest single drift coefficient of the scheme's
// kernel. The shell integrator uses it to propagate the effective sub-step
// length into deeper shells when computing critical radii.
func LongestDrift(s Scheme) float64 {
	k := kernels[s]
	longest := 0.0
	for _, a := range k.drift {
		if a > longest {
			longest = a
		}
	}
	return longest
}

// UsesJerk reports whether the scheme's kernel carries a modified-potential
// term and therefore calls the kick operator with a non-zero jerk factor.
func UsesJerk(s Scheme) bool {
	return kernels[s].jerk != nil
}

// Step applies one kernel step of length dt at the given shell. y and v scale
// the acceleration and jerk factors handed to the kick operator; the shell
// integrator passes 1, 1 and lets the kernel tables do the weighting.
func Step(dt, y, v float64, shell int, s Scheme, drift DriftFunc, kick KickFunc) {
	k := kernels[s]
	for i, b := range k.kick {
		drift(k.drift[i]*dt, shell)
		jv := 0.0
		if k.jerk != nil && v != 0 {
			jv = k.jerk[i] * dt * dt * dt * v
		}
		kick(b*dt*y, jv, shell)
	}
	drift(k.drift[len(k.kick)]*dt, shell)
}

// Preprocessor applies the scheme's processor stages before a sequence of
// steps. Unprocessed schemes are a no-op.
func Preprocessor(dt float64, shell int, s Scheme, drift DriftFunc, kick KickFunc) {
	k := kernels[s]
	for _, p := range k.proc {
		drift(p[0]*dt, shell)
		kick(p[1]*dt, 0, shell)
	}
}

// Postprocessor inverts the processor stages after a sequence of steps.
// Unprocessed schemes are a no-op.
func Postprocessor(dt float64, shell int, s Scheme, drift DriftFunc, kick KickFunc) {
	k := kernels[s]
	for i := len(k.proc) - 1; i >= 0; i-- {
		kick(-k.proc[i][1]*dt, 0, shell)
		drift(-k.proc[i][0]*dt, shell)
	}
}
