// Package beat provides fixed-point beat positions and beat-to-time mapping.
//
// Positions are stored as an integer count of 1/48ths of a beat. 48 = 2^4*3
// covers every row denominator the stepped-chart format can express (4ths,
// 8ths, 12ths, 16ths, 24ths, 48ths), so beat arithmetic is exact.
package beat

import "strconv"

// FixedPoint is the grid resolution: the number of fractions in one beat.
const FixedPoint = 48

// Epsilon is the smallest representable beat step.
var Epsilon = Pos{frac: 1}

// Pos is an absolute position in beats, where 0 is the first beat of the song.
type Pos struct {
	frac int32
}

// FromNum converts real beats to the nearest grid position.
func FromNum(beats float64) Pos {
	return Pos{frac: int32(roundHalfAway(beats * FixedPoint))}
}

// FromNumFloor converts real beats, rounding toward negative infinity.
func FromNumFloor(beats float64) Pos {
	return Pos{frac: int32(floorf(beats * FixedPoint))}
}

// FromNumCeil converts real beats, rounding toward positive infinity.
func FromNumCeil(beats float64) Pos {
	return Pos{frac: int32(ceilf(beats * FixedPoint))}
}

// FromFrac builds a position directly from a fraction count.
func FromFrac(frac int) Pos {
	return Pos{frac: int32(frac)}
}

// Num returns the beat number as a float.
func (p Pos) Num() float64 {
	return float64(p.frac) / FixedPoint
}

// Frac returns the raw fraction count (beats * 48).
func (p Pos) Frac() int {
	return int(p.frac)
}

func (p Pos) Add(q Pos) Pos { return Pos{frac: p.frac + q.frac} }
func (p Pos) Sub(q Pos) Pos { return Pos{frac: p.frac - q.frac} }

// Cmp returns -1, 0 or 1 depending on the order of p and q.
func (p Pos) Cmp(q Pos) int {
	switch {
	case p.frac < q.frac:
		return -1
	case p.frac > q.frac:
		return 1
	default:
		return 0
	}
}

// Round rounds to the nearest multiple of roundTo; halves round up (toward
// positive infinity).
func (p Pos) Round(roundTo Pos) Pos {
	roundTo = clampStep(roundTo)
	p.frac += roundTo.frac / 2
	p.frac -= remEuclid(p.frac, roundTo.frac)
	return p
}

// Floor rounds down to a multiple of roundTo.
func (p Pos) Floor(roundTo Pos) Pos {
	roundTo = clampStep(roundTo)
	p.frac -= remEuclid(p.frac, roundTo.frac)
	return p
}

// Ceil rounds up to a multiple of roundTo.
func (p Pos) Ceil(roundTo Pos) Pos {
	roundTo = clampStep(roundTo)
	p.frac += roundTo.frac - 1
	p.frac -= remEuclid(p.frac, roundTo.frac)
	return p
}

// IsAligned reports whether p is a multiple of alignTo.
func (p Pos) IsAligned(alignTo Pos) bool {
	return p.frac%alignTo.frac == 0
}

// Denominator returns the denominator of the most-simplified form of the
// fractional beat (eg. 1/2, 3/4, 0/1, 19/16). Since FixedPoint = 2^4*3,
// dividing out factors of 2 and 3 is exhaustive.
func (p Pos) Denominator() int {
	num := p.frac
	den := int32(FixedPoint)
	for _, factor := range []int32{2, 3} {
		for num%factor == 0 && den%factor == 0 {
			num /= factor
			den /= factor
		}
	}
	return int(den)
}

func (p Pos) String() string {
	return strconv.FormatFloat(p.Num(), 'f', -1, 64)
}

func clampStep(step Pos) Pos {
	if step.frac < Epsilon.frac {
		return Epsilon
	}
	return step
}

// remEuclid is the always-nonnegative remainder, matching mathematical
// modulo for negative positions.
func remEuclid(a, b int32) int32 {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}

func roundHalfAway(f float64) int64 {
	if f < 0 {
		return -int64(-f + 0.5)
	}
	return int64(f + 0.5)
}

func floorf(f float64) int64 {
	i := int64(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}

func ceilf(f float64) int64 {
	i := int64(f)
	if f > 0 && float64(i) != f {
		i++
	}
	return i
}
