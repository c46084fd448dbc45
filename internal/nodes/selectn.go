package nodes

import (
	"sort"

	"github.com/stepmix/varadero/internal/chart"
	"github.com/stepmix/varadero/internal/pipeline"
)

// SelectN keeps the charts of each list whose naive difficulty falls within
// [MinDiff, MaxDiff], at most Count of them (easiest first). Zero bounds
// disable the corresponding limit.
type SelectN struct {
	From BucketRef `yaml:"from"`
	Into BucketRef `yaml:"into"`

	MinDiff float64 `yaml:"min_diff" validate:"gte=0"`
	MaxDiff float64 `yaml:"max_diff" validate:"gte=0"`
	Count   int     `yaml:"count" validate:"gte=0"`
}

func (s *SelectN) Buckets() []pipeline.Slot {
	return []pipeline.Slot{
		{Kind: pipeline.Input, ID: s.From.id()},
		{Kind: pipeline.Output, ID: s.Into.id()},
	}
}

func (s *SelectN) Apply(store *pipeline.Store) error {
	return store.Get(s.From.id(), func(store *pipeline.Store, list []*chart.Chart) error {
		kept := make([]*chart.Chart, 0, len(list))
		for _, c := range list {
			diff := c.NaiveDifficulty()
			if diff < s.MinDiff {
				continue
			}
			if s.MaxDiff > 0 && diff > s.MaxDiff {
				continue
			}
			kept = append(kept, c)
		}
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].NaiveDifficulty() < kept[j].NaiveDifficulty()
		})
		if s.Count > 0 && len(kept) > s.Count {
			kept = kept[:s.Count]
		}
		return store.Put(s.Into.id(), kept)
	})
}
