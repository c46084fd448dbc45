package nodes

import (
	"slices"

	"github.com/stepmix/varadero/internal/chart"
	"github.com/stepmix/varadero/internal/keyalloc"
	"github.com/stepmix/varadero/internal/pipeline"
)

// BatchConvert converts each chart into every listed gamemode at once.
type BatchConvert struct {
	// Into lists the target gamemodes. A single chart fans out into one
	// output chart per entry.
	Into []chart.Gamemode `yaml:"into" validate:"min=1"`
	// AvoidShuffle keeps keys untouched when the keycounts already match.
	AvoidShuffle bool `yaml:"avoid_shuffle"`
	// WeightCurve maps key idle time to random-choice weight.
	WeightCurve []keyalloc.WeightPoint `yaml:"weight_curve" validate:"omitempty,min=2"`
}

// Filter gates charts on gamemode membership and optionally batch-converts
// the survivors. Whitelist and blacklist apply first; charts that fail
// either gate are dropped.
type Filter struct {
	From BucketRef `yaml:"from"`
	Into BucketRef `yaml:"into"`

	Whitelist []chart.Gamemode `yaml:"whitelist"`
	Blacklist []chart.Gamemode `yaml:"blacklist"`
	Convert   *BatchConvert    `yaml:"convert"`
}

func (f *Filter) Buckets() []pipeline.Slot {
	return []pipeline.Slot{
		{Kind: pipeline.Input, ID: f.From.id()},
		{Kind: pipeline.Output, ID: f.Into.id()},
	}
}

func (f *Filter) Prepare() error {
	if f.Convert != nil && len(f.Convert.WeightCurve) == 0 {
		f.Convert.WeightCurve = keyalloc.DefaultWeightCurve
	}
	return nil
}

func (f *Filter) Apply(store *pipeline.Store) error {
	return store.Get(f.From.id(), func(store *pipeline.Store, list []*chart.Chart) error {
		out := make([]*chart.Chart, 0, len(list))
		for _, c := range list {
			if len(f.Whitelist) > 0 && !slices.Contains(f.Whitelist, c.Gamemode) {
				continue
			}
			if len(f.Blacklist) > 0 && slices.Contains(f.Blacklist, c.Gamemode) {
				continue
			}
			if f.Convert != nil {
				extra, err := batchConvert(c, f.Convert.Into, f.Convert.AvoidShuffle, f.Convert.WeightCurve)
				if err != nil {
					return err
				}
				out = append(out, extra...)
			}
			out = append(out, c)
		}
		return store.Put(f.Into.id(), out)
	})
}
