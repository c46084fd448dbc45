package nodes

import (
	"fmt"

	"github.com/stepmix/varadero/internal/chart"
	"github.com/stepmix/varadero/internal/pipeline"
)

// Rekey applies a fixed per-key mapping table: output key = Map[input key].
// Entries of -1 drop the key's notes entirely (tails follow their heads,
// since the mapping is the same for both). Useful for mirrors, column
// swaps and manual downsizing.
type Rekey struct {
	From BucketRef `yaml:"from"`
	Into BucketRef `yaml:"into"`

	Map []int `yaml:"map" validate:"min=1"`
	// Gamemode optionally retargets the chart; when unset the gamemode is
	// kept and the mapping must stay within its keycount.
	Gamemode *chart.Gamemode `yaml:"gamemode"`
}

func (r *Rekey) Buckets() []pipeline.Slot {
	return []pipeline.Slot{
		{Kind: pipeline.Input, ID: r.From.id()},
		{Kind: pipeline.Output, ID: r.Into.id()},
	}
}

func (r *Rekey) Prepare() error {
	seen := make(map[int]bool)
	for _, out := range r.Map {
		if out < -1 {
			return fmt.Errorf("rekey: invalid map entry %d", out)
		}
		if out >= 0 && seen[out] {
			return fmt.Errorf("rekey: output key %d mapped twice", out)
		}
		seen[out] = true
	}
	return nil
}

func (r *Rekey) Apply(store *pipeline.Store) error {
	return store.Get(r.From.id(), func(store *pipeline.Store, list []*chart.Chart) error {
		for _, c := range list {
			if err := r.rekeyChart(c); err != nil {
				return err
			}
		}
		return store.Put(r.Into.id(), list)
	})
}

func (r *Rekey) rekeyChart(c *chart.Chart) error {
	gm := c.Gamemode
	if r.Gamemode != nil {
		gm = *r.Gamemode
	}
	keyCount := gm.KeyCount()
	for i := range c.Notes {
		note := &c.Notes[i]
		if note.Key >= len(r.Map) {
			return fmt.Errorf("rekey: chart has key %d but map covers only %d keys", note.Key, len(r.Map))
		}
		out := r.Map[note.Key]
		if out >= keyCount {
			return fmt.Errorf("rekey: map sends key %d to %d, outside %s", note.Key, out, gm)
		}
		note.Key = out
	}
	c.Notes = retainMapped(c.Notes)
	c.Gamemode = gm
	return nil
}
