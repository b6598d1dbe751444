package mercurana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLInfinityBoundaries(t *testing.T) {
	ri, ro := 1.0, 3.0
	assert.Equal(t, 0.0, LInfinity(0.5, ri, ro), "inside inner radius")
	assert.Equal(t, 0.0, LInfinity(ri, ri, ro), "at inner radius")
	assert.Equal(t, 1.0, LInfinity(ro+0.5, ri, ro), "outside outer radius")
	mid := LInfinity(2.0, ri, ro)
	assert.Greater(t, mid, 0.0, "transition region above zero")
	assert.Less(t, mid, 1.0, "transition region below one")
}

func TestLInfinityPartitionOfUnity(t *testing.T) {
	ri, ro := 0.7, 2.9
	for _, d := range []float64{0.8, 1.0, 1.5, 1.8, 2.2, 2.8} {
		sum := LInfinity(d, ri, ro) + LInfinity(ri+ro-d, ri, ro)
		assert.InDelta(t, 1.0, sum, 1e-14, "L(d)+L(ri+ro-d) at d=%v", d)
	}
}

func TestLInfinityMonotone(t *testing.T) {
	ri, ro := 1.0, 2.0
	prev := -1.0
	for d := 0.9; d < 2.1; d += 0.01 {
		cur := LInfinity(d, ri, ro)
		assert.GreaterOrEqual(t, cur, prev, "L must not decrease at d=%v", d)
		prev = cur
	}
}

func TestDLDrInfinity(t *testing.T) {
	ri, ro := 1.0, 3.0
	assert.Equal(t, 0.0, DLDrInfinity(0.5, ri, ro), "derivative below inner radius")
	assert.Equal(t, 0.0, DLDrInfinity(3.5, ri, ro), "derivative above outer radius")

	// Compare against a central difference in the transition region.
	h := 1e-6
	for _, d := range []float64{1.5, 2.0, 2.5} {
		numeric := (LInfinity(d+h, ri, ro) - LInfinity(d-h, ri, ro)) / (2 * h)
		assert.InDelta(t, numeric, DLDrInfinity(d, ri, ro), 1e-6, "dL/dr at d=%v", d)
	}
}
