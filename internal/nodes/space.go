package nodes

import (
	"math"

	"github.com/stepmix/varadero/internal/chart"
	"github.com/stepmix/varadero/internal/pipeline"
)

// Space is a density filter: beats that land closer than MinDist seconds
// to the last kept beat lose all of their new non-tail notes. Dropped
// heads take their tails with them; tails of surviving holds are kept so
// the release still happens.
type Space struct {
	From BucketRef `yaml:"from"`
	Into BucketRef `yaml:"into"`

	// MinDist is the minimum time between kept beats, in seconds.
	MinDist float64 `yaml:"min_dist" validate:"gt=0"`
}

func (s *Space) Buckets() []pipeline.Slot {
	return []pipeline.Slot{
		{Kind: pipeline.Input, ID: s.From.id()},
		{Kind: pipeline.Output, ID: s.Into.id()},
	}
}

func (s *Space) Apply(store *pipeline.Store) error {
	return store.Get(s.From.id(), func(store *pipeline.Store, list []*chart.Chart) error {
		for _, c := range list {
			spaceChart(c, s.MinDist)
		}
		return store.Put(s.Into.id(), list)
	})
}

func spaceChart(c *chart.Chart, minDist float64) {
	toTime := c.ToTime()
	headDropped := make([]bool, c.Gamemode.KeyCount())
	lastKept := math.Inf(-1)

	idx := 0
	for idx < len(c.Notes) {
		curBeat := c.Notes[idx].Beat
		beatTime := toTime.BeatToTime(curBeat)
		keep := beatTime-lastKept >= minDist
		for idx < len(c.Notes) && c.Notes[idx].Beat.Cmp(curBeat) == 0 {
			note := &c.Notes[idx]
			idx++
			if note.IsTail() {
				if headDropped[note.Key] {
					headDropped[note.Key] = false
					note.Key = -1
				}
				continue
			}
			if !keep {
				if note.IsHead() {
					headDropped[note.Key] = true
				}
				note.Key = -1
			}
		}
		if keep {
			lastKept = beatTime
		}
	}
	c.Notes = retainMapped(c.Notes)
}
