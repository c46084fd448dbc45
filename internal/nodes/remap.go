// Package nodes implements the pipeline's transform nodes and the YAML
// pipeline description they are parsed from.
package nodes

import (
	"fmt"
	"math/rand/v2"

	"github.com/stepmix/varadero/internal/beat"
	"github.com/stepmix/varadero/internal/chart"
	"github.com/stepmix/varadero/internal/keyalloc"
	"github.com/stepmix/varadero/internal/pipeline"
)

// chartRNG seeds a PRNG from the chart's fingerprint, so that every
// randomized transform is reproducible per input chart.
func chartRNG(c *chart.Chart, salt string) *rand.Rand {
	seed := c.Fingerprint(salt)
	return rand.New(rand.NewPCG(seed, seed))
}

// Remap converts charts into a different-keycount gamemode.
type Remap struct {
	From BucketRef `yaml:"from"`
	Into BucketRef `yaml:"into"`
	// Gamemode to convert into.
	Gamemode chart.Gamemode `yaml:"gamemode"`
	// AvoidShuffle keeps keys untouched when the keycounts already match.
	AvoidShuffle bool `yaml:"avoid_shuffle"`
	// WeightCurve maps key idle time to random-choice weight; see keyalloc.
	WeightCurve []keyalloc.WeightPoint `yaml:"weight_curve" validate:"omitempty,min=2"`
}

// NewRemap returns a remap node with the default weight curve.
func NewRemap(gm chart.Gamemode) *Remap {
	return &Remap{
		Gamemode:     gm,
		AvoidShuffle: true,
		WeightCurve:  keyalloc.DefaultWeightCurve,
	}
}

func (r *Remap) Buckets() []pipeline.Slot {
	return []pipeline.Slot{
		{Kind: pipeline.Input, ID: r.From.id()},
		{Kind: pipeline.Output, ID: r.Into.id()},
	}
}

func (r *Remap) Prepare() error {
	if len(r.WeightCurve) == 0 {
		r.WeightCurve = keyalloc.DefaultWeightCurve
	}
	return nil
}

func (r *Remap) Apply(store *pipeline.Store) error {
	return store.Get(r.From.id(), func(store *pipeline.Store, list []*chart.Chart) error {
		for _, c := range list {
			if err := convert(c, r.Gamemode, r.AvoidShuffle, r.WeightCurve); err != nil {
				return err
			}
		}
		return store.Put(r.Into.id(), list)
	})
}

// lock states of an output key during conversion.
type keyLock struct {
	kind  lockKind
	until beat.Pos
}

type lockKind uint8

const (
	lockFree lockKind = iota
	// lockOpen: a hold is in progress; only its tail releases the key.
	lockOpen
	// lockUntil: a hit occupies the key through the stored beat.
	lockUntil
)

// convert remaps a chart onto the target gamemode's keys.
//
// A key is locked from a hold head until its tail; a hit locks its key only
// through the current beat, which prevents two hits landing on the same
// output key within one beat. When every output key is locked the note is
// marked with a sentinel key and discarded at the end. The tail of a dropped
// head is not dropped: it reads whatever its unlock entry still holds (key 0,
// or the output key of an earlier hold on the same input key) and is emitted
// on that key.
func convert(c *chart.Chart, gm chart.Gamemode, avoidShuffle bool, curve []keyalloc.WeightPoint) error {
	inKeycount := c.Gamemode.KeyCount()
	outKeycount := gm.KeyCount()
	if inKeycount <= 0 {
		return fmt.Errorf("cannot convert 0-key chart")
	}
	if outKeycount <= 0 {
		return fmt.Errorf("cannot convert to 0-key chart")
	}

	if avoidShuffle && inKeycount == outKeycount {
		c.Gamemode = gm
		return nil
	}

	rng := chartRNG(c, "convert")
	toTime := c.ToTime()
	alloc := keyalloc.New(curve, outKeycount)

	locked := make([]keyLock, outKeycount)
	// unlockByTail[inKey] holds the output key that the tail on inKey
	// should release.
	unlockByTail := make([]int, inKeycount)
	candidates := make([]int, 0, outKeycount)

	for i := range c.Notes {
		note := &c.Notes[i]
		noteTime := toTime.BeatToTime(note.Beat)
		// Release keys whose lock beat has passed.
		for k := range locked {
			if locked[k].kind == lockUntil && note.Beat.Cmp(locked[k].until) > 0 {
				locked[k] = keyLock{}
			}
		}
		if note.IsTail() {
			out := unlockByTail[note.Key]
			locked[out] = keyLock{}
			alloc.Touch(out, noteTime)
			note.Key = out
			continue
		}
		candidates = candidates[:0]
		for k := range locked {
			if locked[k].kind == lockFree {
				candidates = append(candidates, k)
			}
		}
		out, ok := alloc.Pick(candidates, noteTime, rng)
		if !ok {
			// Every output key is locked.
			note.Key = -1
			continue
		}
		if note.IsHead() {
			locked[out] = keyLock{kind: lockOpen}
			unlockByTail[note.Key] = out
		} else {
			locked[out] = keyLock{kind: lockUntil, until: note.Beat}
		}
		note.Key = out
	}

	c.Notes = retainMapped(c.Notes)
	c.Gamemode = gm
	return nil
}

// retainMapped drops sentinel-keyed notes in place.
func retainMapped(notes []chart.Note) []chart.Note {
	kept := notes[:0]
	for _, n := range notes {
		if n.Key >= 0 {
			kept = append(kept, n)
		}
	}
	return kept
}

// batchConvert converts a chart into several gamemodes at once, cloning for
// all targets but the last and mutating the original in place for the last.
func batchConvert(c *chart.Chart, into []chart.Gamemode, avoidShuffle bool, curve []keyalloc.WeightPoint) ([]*chart.Chart, error) {
	extra := make([]*chart.Chart, 0, len(into))
	for idx, gm := range into {
		if idx+1 == len(into) {
			if err := convert(c, gm, avoidShuffle, curve); err != nil {
				return nil, err
			}
		} else {
			tmp := c.Clone()
			if err := convert(tmp, gm, avoidShuffle, curve); err != nil {
				return nil, err
			}
			extra = append(extra, tmp)
		}
	}
	return extra, nil
}
