// Package chart holds the in-memory model of a stepped chart: metadata,
// timing and notes, plus the repair and sanity-check passes that keep the
// model's invariants.
package chart

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	clone "github.com/huandu/go-clone/generic"
	"github.com/stepmix/varadero/internal/beat"
)

// Note kinds, stored as the raw character the output format uses.
const (
	KindHit  = '1'
	KindHead = '2'
	KindTail = '3'
)

// Note is a single chart event: an instantaneous hit, or the head or tail
// of a hold.
type Note struct {
	Kind byte
	Beat beat.Pos
	Key  int
}

func (n Note) IsHit() bool  { return n.Kind == KindHit }
func (n Note) IsHead() bool { return n.Kind == KindHead }
func (n Note) IsTail() bool { return n.Kind == KindTail }

// Difficulty is a named chart slot.
type Difficulty uint8

const (
	Beginner Difficulty = iota
	Easy
	Medium
	Hard
	Challenge
	Edit
)

var difficultyNames = [...]string{"Beginner", "Easy", "Medium", "Hard", "Challenge", "Edit"}

func (d Difficulty) Name() string {
	return difficultyNames[d]
}

// DisplayBPM is what the song wheel shows: a single value, a range, or a
// random flicker.
type DisplayBPM struct {
	Kind   DisplayBPMKind
	Lo, Hi float64
}

type DisplayBPMKind uint8

const (
	DisplayRandom DisplayBPMKind = iota
	DisplaySingle
	DisplayRange
)

func SingleBPM(bpm float64) DisplayBPM   { return DisplayBPM{Kind: DisplaySingle, Lo: bpm} }
func RangeBPM(lo, hi float64) DisplayBPM { return DisplayBPM{Kind: DisplayRange, Lo: lo, Hi: hi} }

func (d DisplayBPM) String() string {
	switch d.Kind {
	case DisplaySingle:
		return formatNum(d.Lo)
	case DisplayRange:
		return formatNum(d.Lo) + ":" + formatNum(d.Hi)
	default:
		return "*"
	}
}

func formatNum(f float64) string {
	return fmt.Sprintf("%v", f)
}

// Stop pauses the chart at a beat for a number of seconds.
type Stop struct {
	Beat beat.Pos
	Len  float64
}

// Chart is one difficulty of one song.
type Chart struct {
	Title         string
	Subtitle      string
	Artist        string
	TitleTrans    string
	SubtitleTrans string
	ArtistTrans   string
	Genre         string
	Credit        string

	// Referenced asset paths, relative to the simfile. Empty when absent.
	Banner     string
	Background string
	Lyrics     string
	CDTitle    string
	Music      string

	// Offset is the song offset in seconds; beat 0 occurs at time -Offset.
	Offset float64
	BPMs   []beat.ControlPoint
	Stops  []Stop

	// Sample window for the song wheel preview; NaN when unset.
	SampleStart float64
	SampleLen   float64

	DisplayBPM DisplayBPM

	Gamemode      Gamemode
	Desc          string
	Difficulty    Difficulty
	DifficultyNum float64
	Radar         [5]float64

	Notes []Note
}

// Clone deep-copies the chart, including its note and timing slices.
func (c *Chart) Clone() *Chart {
	return clone.Clone(c)
}

// ToTime returns a beat-to-seconds mapper over this chart's timing.
func (c *Chart) ToTime() *beat.ToTime {
	return beat.NewToTime(c.BPMs, c.Offset)
}

// Fingerprint hashes the chart's identity together with a salt naming the
// consumer. Every randomized transform seeds its RNG from this, which keeps
// the whole pipeline deterministic per input chart.
func (c *Chart) Fingerprint(salt string) uint64 {
	h := xxhash.New()
	h.WriteString(c.Music)
	h.Write([]byte{0})
	h.WriteString(c.TitleTrans)
	h.Write([]byte{0})
	h.WriteString(c.Desc)
	h.Write([]byte{0})
	h.WriteString(salt)
	return h.Sum64()
}

// NaiveDifficulty estimates a difficulty number from the note count alone.
func (c *Chart) NaiveDifficulty() float64 {
	diff := 1 + (math.Log2(float64(len(c.Notes)))-6)/(14-6)*11
	return math.Max(diff, 1)
}

// FixTails repairs tail/next-note collisions.
//
// Some source formats allow a hold to end exactly where another note starts
// on the same key; the output format does not. Any tail sharing a (beat,
// key) cell with a later note in the same beat is moved back by one grid
// epsilon, rotating it before the other notes of its beat so the note list
// stays sorted. Idempotent once no conflict remains.
func (c *Chart) FixTails() {
	curBeat := beat.Pos{}
	curBeatFirstNote := 0
	for i := range c.Notes {
		note := c.Notes[i]
		if note.Beat.Cmp(curBeat) > 0 {
			curBeatFirstNote = i
			curBeat = note.Beat
		}
		if !note.IsTail() {
			continue
		}
		conflict := false
		for j := i + 1; j < len(c.Notes) && c.Notes[j].Beat.Cmp(curBeat) == 0; j++ {
			if c.Notes[j].Key == note.Key {
				conflict = true
				break
			}
		}
		if conflict {
			c.Notes[i].Beat = c.Notes[i].Beat.Sub(beat.Epsilon)
			rotateRight(c.Notes[curBeatFirstNote : i+1])
		}
	}
}

func rotateRight(notes []Note) {
	if len(notes) < 2 {
		return
	}
	last := notes[len(notes)-1]
	copy(notes[1:], notes[:len(notes)-1])
	notes[0] = last
}

// Check runs a full sanity pass over the chart's invariants: control-point
// monotonicity, note ordering, per-beat uniqueness, hold pairing and key
// range. It favors correctness over speed and is meant as a debugging and
// test hook, not part of the hot path.
func (c *Chart) Check() error {
	keyCount := c.Gamemode.KeyCount()

	lastBeat := beat.Pos{}.Sub(beat.Epsilon)
	if len(c.BPMs) == 0 {
		return fmt.Errorf("no control points")
	}
	for _, cp := range c.BPMs {
		if cp.Beat.Cmp(lastBeat) == 0 {
			return fmt.Errorf("two control points at beat %v", lastBeat)
		}
		if cp.Beat.Cmp(lastBeat) < 0 {
			return fmt.Errorf("control point beats do not increase monotonically (%v < %v)", cp.Beat, lastBeat)
		}
		if math.IsNaN(cp.BeatLen) || math.IsInf(cp.BeatLen, 0) || cp.BeatLen <= 0 {
			return fmt.Errorf("control point beatlength (%v) is not a positive real", cp.BeatLen)
		}
		lastBeat = cp.Beat
	}

	beatNotes := make([]bool, keyCount)
	beatTails := make([]bool, keyCount)
	checkBeat := func(b beat.Pos, start, end int) error {
		for i := range beatNotes {
			beatNotes[i] = false
			beatTails[i] = false
		}
		for _, n := range c.Notes[start:end] {
			if n.IsTail() {
				if beatTails[n.Key] {
					return fmt.Errorf("two tails on beat %v, key %d", b, n.Key)
				}
				beatTails[n.Key] = true
			} else {
				if beatNotes[n.Key] {
					return fmt.Errorf("two hit/head notes on beat %v, key %d", b, n.Key)
				}
				beatNotes[n.Key] = true
			}
		}
		return nil
	}

	lastBeat = beat.Pos{}
	lastBeatStart := 0
	for idx, note := range c.Notes {
		if note.Beat.Cmp(lastBeat) < 0 {
			return fmt.Errorf("note beats do not increase monotonically (%v < %v)", note.Beat, lastBeat)
		}
		if !note.IsHit() && !note.IsHead() && !note.IsTail() {
			return fmt.Errorf("unknown note kind %q", note.Kind)
		}
		if note.Key < 0 {
			return fmt.Errorf("note key (%d) is negative", note.Key)
		}
		if note.Key >= keyCount {
			return fmt.Errorf("note key out of range for %s: %d >= %d", c.Gamemode, note.Key, keyCount)
		}
		if note.Beat.Cmp(lastBeat) != 0 {
			if err := checkBeat(lastBeat, lastBeatStart, idx); err != nil {
				return err
			}
			lastBeat = note.Beat
			lastBeatStart = idx
		}
		switch {
		case note.IsHead():
			found := false
			for j := idx + 1; j < len(c.Notes); j++ {
				next := c.Notes[j]
				if next.Key != note.Key {
					continue
				}
				if !next.IsTail() {
					return fmt.Errorf("hold head at beat %v, key %d is followed by non-tail (kind %q) at beat %v", note.Beat, note.Key, next.Kind, next.Beat)
				}
				if next.Beat.Cmp(note.Beat) == 0 {
					return fmt.Errorf("zero-length hold note at beat %v, key %d", note.Beat, note.Key)
				}
				found = true
				break
			}
			if !found {
				return fmt.Errorf("head at beat %v, key %d, index %d has no matching tail", note.Beat, note.Key, idx)
			}
		case note.IsTail():
			found := false
			for j := idx - 1; j >= 0; j-- {
				prev := c.Notes[j]
				if prev.Key != note.Key {
					continue
				}
				if !prev.IsHead() {
					return fmt.Errorf("hold tail at beat %v, key %d is preceded by non-head (kind %q) at beat %v", note.Beat, note.Key, prev.Kind, prev.Beat)
				}
				found = true
				break
			}
			if !found {
				return fmt.Errorf("tail at beat %v, key %d, index %d has no matching head", note.Beat, note.Key, idx)
			}
		}
	}
	return checkBeat(lastBeat, lastBeatStart, len(c.Notes))
}
