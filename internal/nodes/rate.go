package nodes

import (
	"fmt"
	"math"

	"github.com/stepmix/varadero/internal/chart"
	"github.com/stepmix/varadero/internal/pipeline"
)

// Rate scales the chart's time axis by 1/Factor: beat lengths, offset,
// stops and the sample window all shrink (or grow), while beat positions
// are untouched. This matches a rate mod whose audio is resampled
// externally by the same factor.
type Rate struct {
	From BucketRef `yaml:"from"`
	Into BucketRef `yaml:"into"`

	Factor float64 `yaml:"factor" validate:"gt=0"`
}

func (r *Rate) Buckets() []pipeline.Slot {
	return []pipeline.Slot{
		{Kind: pipeline.Input, ID: r.From.id()},
		{Kind: pipeline.Output, ID: r.Into.id()},
	}
}

func (r *Rate) Apply(store *pipeline.Store) error {
	return store.Get(r.From.id(), func(store *pipeline.Store, list []*chart.Chart) error {
		for _, c := range list {
			rateChart(c, r.Factor)
		}
		return store.Put(r.Into.id(), list)
	})
}

func rateChart(c *chart.Chart, factor float64) {
	c.Offset /= factor
	for i := range c.BPMs {
		c.BPMs[i].BeatLen /= factor
	}
	for i := range c.Stops {
		c.Stops[i].Len /= factor
	}
	if !math.IsNaN(c.SampleStart) {
		c.SampleStart /= factor
	}
	if !math.IsNaN(c.SampleLen) {
		c.SampleLen /= factor
	}
	switch c.DisplayBPM.Kind {
	case chart.DisplaySingle:
		c.DisplayBPM.Lo *= factor
	case chart.DisplayRange:
		c.DisplayBPM.Lo *= factor
		c.DisplayBPM.Hi *= factor
	}
	c.Desc = fmt.Sprintf("%s (x%v)", c.Desc, factor)
}
