package keyalloc

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCurve() []WeightPoint {
	return []WeightPoint{
		{Time: 0, Weight: 1},
		{Time: 0.4, Weight: 10},
		{Time: 0.8, Weight: 200},
		{Time: 1.4, Weight: 300},
	}
}

func TestInactiveTimeToWeight(t *testing.T) {
	a := New(testCurve(), 4)

	assert.InDelta(t, 1.0, a.InactiveTimeToWeight(0), 1e-9)
	assert.InDelta(t, 10.0, a.InactiveTimeToWeight(0.4), 1e-9)
	assert.InDelta(t, 5.5, a.InactiveTimeToWeight(0.2), 1e-9)
	assert.InDelta(t, 105.0, a.InactiveTimeToWeight(0.6), 1e-9)
	assert.InDelta(t, 300.0, a.InactiveTimeToWeight(1.4), 1e-9)
	// Past the last sample the weight stays flat.
	assert.InDelta(t, 300.0, a.InactiveTimeToWeight(100), 1e-9)
}

func TestWeightExtrapolatesBelowFirstSample(t *testing.T) {
	a := New([]WeightPoint{{Time: 1, Weight: 10}, {Time: 2, Weight: 20}}, 2)
	// The first segment's line continues below its left edge.
	assert.InDelta(t, 5.0, a.InactiveTimeToWeight(0.5), 1e-9)
}

func TestPickEmptyAndZeroWeight(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))

	a := New(testCurve(), 4)
	_, ok := a.Pick(nil, 0, rng)
	assert.False(t, ok)

	flat := New([]WeightPoint{{Time: 0, Weight: 0}, {Time: 1, Weight: 0}}, 4)
	flat.Touch(0, 0)
	flat.Touch(1, 0)
	_, ok = flat.Pick([]int{0, 1}, 0.5, rng)
	assert.False(t, ok)
}

func TestPickRecordsActivity(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	a := New(testCurve(), 3)

	key, ok := a.Pick([]int{0, 1, 2}, 10, rng)
	require.True(t, ok)
	// The picked key was just active, so its weight drops to the curve's
	// left edge.
	assert.InDelta(t, 1.0, a.InactiveTimeToWeight(10-a.lastActive[key]), 1e-9)
}

func TestPickDeterministic(t *testing.T) {
	keys := []int{0, 1, 2, 3, 4}
	var first []int
	for run := 0; run < 2; run++ {
		rng := rand.New(rand.NewPCG(42, 42))
		a := New(testCurve(), 5)
		var picks []int
		for i := 0; i < 50; i++ {
			key, ok := a.Pick(keys, float64(i)*0.3, rng)
			require.True(t, ok)
			picks = append(picks, key)
		}
		if run == 0 {
			first = picks
		} else {
			assert.Equal(t, first, picks)
		}
	}
}

func TestPickPrefersIdleKeys(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	a := New(testCurve(), 2)
	// Key 0 was just hit; key 1 has been idle for ages.
	a.Touch(0, 9.99)

	counts := [2]int{}
	for i := 0; i < 200; i++ {
		probe := New(testCurve(), 2)
		probe.Touch(0, 9.99)
		probe.Touch(1, 0)
		key, ok := probe.Pick([]int{0, 1}, 10, rng)
		require.True(t, ok)
		counts[key]++
	}
	assert.Greater(t, counts[1], counts[0]*5, "idle key should dominate: %v", counts)
}
