package nodes

import (
	"math/rand/v2"
	"slices"

	"github.com/stepmix/varadero/internal/chart"
	"github.com/stepmix/varadero/internal/pipeline"
)

// Simultaneous caps the number of concurrently-active keys per beat: held
// notes plus the beat's new non-tail notes. Excess notes are dropped by
// uniform sampling seeded from the chart fingerprint; tails of surviving
// holds always execute their key release.
type Simultaneous struct {
	From BucketRef `yaml:"from"`
	Into BucketRef `yaml:"into"`

	Max int `yaml:"max" validate:"gt=0"`
}

func (s *Simultaneous) Buckets() []pipeline.Slot {
	return []pipeline.Slot{
		{Kind: pipeline.Input, ID: s.From.id()},
		{Kind: pipeline.Output, ID: s.Into.id()},
	}
}

func (s *Simultaneous) Apply(store *pipeline.Store) error {
	return store.Get(s.From.id(), func(store *pipeline.Store, list []*chart.Chart) error {
		for _, c := range list {
			limitSimultaneous(c, s.Max)
		}
		return store.Put(s.Into.id(), list)
	})
}

func limitSimultaneous(c *chart.Chart, maxKeys int) {
	keyCount := c.Gamemode.KeyCount()
	rng := chartRNG(c, "simultaneous")
	// active tracks keys currently held by an in-progress hold.
	active := make([]bool, keyCount)
	beatNotes := make([]int, 0, keyCount)

	idx := 0
	for idx < len(c.Notes) {
		curBeat := c.Notes[idx].Beat
		hitCount := 0
		beatNotes = beatNotes[:0]
		for idx < len(c.Notes) && c.Notes[idx].Beat.Cmp(curBeat) == 0 {
			note := &c.Notes[idx]
			if note.IsTail() {
				active[note.Key] = false
			} else {
				beatNotes = append(beatNotes, idx)
				if note.IsHead() {
					active[note.Key] = true
				} else {
					hitCount++
				}
			}
			idx++
		}
		totalActive := hitCount
		for _, held := range active {
			if held {
				totalActive++
			}
		}
		toRemove := totalActive - maxKeys
		if toRemove <= 0 {
			continue
		}
		for _, rem := range sampleWithout(rng, beatNotes, toRemove) {
			note := &c.Notes[rem]
			if note.IsHead() {
				// Stop counting the dropped hold as held.
				active[note.Key] = false
			}
			note.Key = -1
		}
	}
	c.Notes = retainMapped(c.Notes)
}

// sampleWithout picks n distinct elements uniformly without replacement.
// The rule is a partial Fisher-Yates over a copy of items, fixed for
// determinism.
func sampleWithout(rng *rand.Rand, items []int, n int) []int {
	pool := slices.Clone(items)
	if n >= len(pool) {
		return pool
	}
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
