package nodes

import (
	"github.com/stepmix/varadero/internal/chart"
	"github.com/stepmix/varadero/internal/pipeline"
)

// Pipe routes chart lists unchanged from one bucket to another. Useful to
// fan a magnetic chain out into a named bucket or to merge named buckets
// back into a chain.
type Pipe struct {
	From BucketRef `yaml:"from"`
	Into BucketRef `yaml:"into"`
}

func (p *Pipe) Buckets() []pipeline.Slot {
	return []pipeline.Slot{
		{Kind: pipeline.Input, ID: p.From.id()},
		{Kind: pipeline.Output, ID: p.Into.id()},
	}
}

func (p *Pipe) Apply(store *pipeline.Store) error {
	return store.Get(p.From.id(), func(store *pipeline.Store, list []*chart.Chart) error {
		return store.Put(p.Into.id(), list)
	})
}
