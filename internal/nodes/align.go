package nodes

import (
	"github.com/stepmix/varadero/internal/beat"
	"github.com/stepmix/varadero/internal/chart"
	"github.com/stepmix/varadero/internal/pipeline"
)

// Align quantizes note beats to a snap grid (in beats, eg. 0.25 for 16ths).
//
// Rounding can make notes collide; collisions are resolved by dropping the
// later note, heads atomically with their tails. A hold whose head and tail
// round to the same beat collapses into a single hit.
type Align struct {
	From BucketRef `yaml:"from"`
	Into BucketRef `yaml:"into"`

	Snap float64 `yaml:"snap" validate:"gt=0"`
}

func (a *Align) Buckets() []pipeline.Slot {
	return []pipeline.Slot{
		{Kind: pipeline.Input, ID: a.From.id()},
		{Kind: pipeline.Output, ID: a.Into.id()},
	}
}

func (a *Align) Apply(store *pipeline.Store) error {
	snap := beat.FromNum(a.Snap)
	return store.Get(a.From.id(), func(store *pipeline.Store, list []*chart.Chart) error {
		for _, c := range list {
			alignChart(c, snap)
		}
		return store.Put(a.Into.id(), list)
	})
}

func alignChart(c *chart.Chart, snap beat.Pos) {
	// Rounding is monotone, so the note order survives snapping.
	for i := range c.Notes {
		c.Notes[i].Beat = c.Notes[i].Beat.Round(snap)
	}

	keyCount := c.Gamemode.KeyCount()
	// Per-key repair state: beat of the last kept non-tail note, index of
	// the key's open head, and whether the open head was dropped.
	lastNonTail := make([]beat.Pos, keyCount)
	hasNonTail := make([]bool, keyCount)
	openHead := make([]int, keyCount)
	headDropped := make([]bool, keyCount)
	for i := range openHead {
		openHead[i] = -1
	}

	for i := range c.Notes {
		note := &c.Notes[i]
		k := note.Key
		if note.IsTail() {
			switch {
			case headDropped[k]:
				headDropped[k] = false
				note.Key = -1
			case openHead[k] >= 0 && c.Notes[openHead[k]].Beat.Cmp(note.Beat) == 0:
				// Zero-length hold: collapse to a single hit.
				c.Notes[openHead[k]].Kind = chart.KindHit
				openHead[k] = -1
				note.Key = -1
			default:
				openHead[k] = -1
			}
			continue
		}
		if hasNonTail[k] && lastNonTail[k].Cmp(note.Beat) == 0 {
			// Collision with an earlier note in the same cell.
			if note.IsHead() {
				headDropped[k] = true
			}
			note.Key = -1
			continue
		}
		lastNonTail[k] = note.Beat
		hasNonTail[k] = true
		if note.IsHead() {
			openHead[k] = i
		}
	}
	c.Notes = retainMapped(c.Notes)
	// Snapping can land a tail on the next note of its key; shift those
	// tails back onto the previous grid slot.
	c.FixTails()
}
