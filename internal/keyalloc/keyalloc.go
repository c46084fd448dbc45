// Package keyalloc picks output keys for remapped notes.
//
// Keys that have been idle longer get a higher random weight, which spreads
// notes across the layout instead of spamming whichever key happens to be
// free (the "jack" problem).
package keyalloc

import (
	"math"
	"math/rand/v2"
)

// WeightPoint is one (inactive time, weight) sample of the weight curve.
// Times between samples are interpolated linearly.
type WeightPoint struct {
	Time   float64 `yaml:"time" validate:"gte=0"`
	Weight float64 `yaml:"weight" validate:"gte=0"`
}

// DefaultWeightCurve keeps jacks rare without forbidding them outright.
var DefaultWeightCurve = []WeightPoint{
	{Time: 0, Weight: 1},
	{Time: 0.4, Weight: 10},
	{Time: 0.8, Weight: 200},
	{Time: 1.4, Weight: 300},
}

type segment struct {
	upTo      float64
	slope     float64
	intercept float64
}

// Alloc tracks per-key idle times and performs weighted random key picks.
type Alloc struct {
	segments      []segment
	defaultWeight float64
	lastActive    []float64
	cumulative    []float64
}

// New builds an allocator for keyCount keys with the given weight curve.
// Curve times must be strictly increasing.
func New(curve []WeightPoint, keyCount int) *Alloc {
	segments := make([]segment, 0, max(len(curve)-1, 0))
	for i := 0; i+1 < len(curve); i++ {
		this, next := curve[i], curve[i+1]
		m := (next.Weight - this.Weight) / (next.Time - this.Time)
		segments = append(segments, segment{
			upTo:      next.Time,
			slope:     m,
			intercept: -this.Time*m + this.Weight,
		})
	}
	defaultWeight := 1.0
	if len(curve) > 0 {
		defaultWeight = curve[len(curve)-1].Weight
	}
	lastActive := make([]float64, keyCount)
	for i := range lastActive {
		lastActive[i] = math.Inf(-1)
	}
	return &Alloc{
		segments:      segments,
		defaultWeight: defaultWeight,
		lastActive:    lastActive,
		cumulative:    make([]float64, 0, keyCount),
	}
}

// InactiveTimeToWeight maps the time since a key was last active to its
// random-choice weight. Times below the first sample extrapolate along the
// first segment; times past the last sample use the last sample's weight.
func (a *Alloc) InactiveTimeToWeight(time float64) float64 {
	for _, seg := range a.segments {
		if time <= seg.upTo {
			return seg.slope*time + seg.intercept
		}
	}
	return a.defaultWeight
}

// Touch records key activity without a random choice (used for tails).
func (a *Alloc) Touch(key int, time float64) {
	a.lastActive[key] = time
}

// Pick chooses one of keys with probability proportional to each key's
// weight, marking the chosen key active at the given time.
//
// The sampling rule is fixed for determinism: cumulative weights are
// accumulated in the iteration order of keys and the pick is the first key
// whose cumulative weight exceeds a uniform draw in [0, total). Returns
// false when keys is empty or the total weight is not positive.
func (a *Alloc) Pick(keys []int, time float64, rng *rand.Rand) (int, bool) {
	a.cumulative = a.cumulative[:0]
	total := 0.0
	for _, key := range keys {
		total += a.InactiveTimeToWeight(time - a.lastActive[key])
		a.cumulative = append(a.cumulative, total)
	}
	if len(keys) == 0 || total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, false
	}
	r := rng.Float64() * total
	for i, cum := range a.cumulative {
		if r < cum {
			a.Touch(keys[i], time)
			return keys[i], true
		}
	}
	// Float roundoff can push r to the very top of the range.
	key := keys[len(keys)-1]
	a.Touch(key, time)
	return key, true
}
