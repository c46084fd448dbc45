package beat

// ControlPoint marks a BPM change. Beats before the first control point use
// the first control point's tempo.
type ControlPoint struct {
	// Beat is the first beat of the control point.
	Beat Pos
	// BeatLen is the length of one beat in seconds.
	BeatLen float64
}

// BPM returns the tempo of this control point in beats per minute.
func (cp ControlPoint) BPM() float64 {
	return 60 / cp.BeatLen
}

// ToTime incrementally converts beat positions to song time in seconds.
//
// Calls must pass monotonically non-decreasing beats; the mapper only walks
// control points forward. To seek back in time, create a new ToTime.
type ToTime struct {
	bpms    []ControlPoint
	curIdx  int
	curTime float64
}

// NewToTime builds a mapper over the given control points. offset is the
// song offset in seconds; beat 0 occurs at time -offset.
func NewToTime(bpms []ControlPoint, offset float64) *ToTime {
	return &ToTime{bpms: bpms, curTime: -offset}
}

// BeatToTime returns the time in seconds at which the given beat occurs.
func (t *ToTime) BeatToTime(b Pos) float64 {
	// Advance over any control points the beat has passed.
	for t.curIdx+1 < len(t.bpms) {
		cur := t.bpms[t.curIdx]
		next := t.bpms[t.curIdx+1]
		if b.Cmp(next.Beat) < 0 {
			break
		}
		t.curTime += next.Beat.Sub(cur.Beat).Num() * cur.BeatLen
		t.curIdx++
	}
	cur := t.bpms[t.curIdx]
	return t.curTime + b.Sub(cur.Beat).Num()*cur.BeatLen
}
