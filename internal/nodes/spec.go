package nodes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/stepmix/varadero/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// BucketRef is a bucket slot as it appears in the pipeline YAML. A scalar
// is `auto`, `null` or a plain bucket name; a `{nest: [...]}` or
// `{chain: [...]}` mapping inlines a sub-graph. The zero value is auto.
type BucketRef struct {
	ID *pipeline.BucketID
}

// id returns the underlying bucket, allocating the auto default on first
// use so that zero-value nodes are usable programmatically.
func (r *BucketRef) id() *pipeline.BucketID {
	if r.ID == nil {
		r.ID = pipeline.Auto()
	}
	return r.ID
}

// Named is shorthand for a by-name bucket reference.
func Named(name string) BucketRef {
	return BucketRef{ID: pipeline.Name(name)}
}

// NullRef is shorthand for the discarding bucket reference.
func NullRef() BucketRef {
	return BucketRef{ID: pipeline.Null()}
}

func (r *BucketRef) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			r.ID = pipeline.Null()
			return nil
		}
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		switch s {
		case "", "auto":
			r.ID = pipeline.Auto()
		case "null":
			r.ID = pipeline.Null()
		default:
			r.ID = pipeline.Name(s)
		}
		return nil
	case yaml.MappingNode:
		var m map[string][]nodeSpec
		if err := value.Decode(&m); err != nil {
			return err
		}
		if len(m) != 1 {
			return fmt.Errorf("bucket reference must be a scalar or a single nest/chain mapping")
		}
		for key, specs := range m {
			inner := make([]pipeline.Node, len(specs))
			for i, spec := range specs {
				inner[i] = spec.node
			}
			switch key {
			case "nest":
				r.ID = pipeline.Nest(inner...)
			case "chain":
				r.ID = pipeline.Chain(inner...)
			default:
				return fmt.Errorf("unknown bucket reference %q (want nest or chain)", key)
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid bucket reference")
	}
}

// registry maps the YAML discriminator of each node type to a factory.
var registry = map[string]func() pipeline.Node{
	"load":         func() pipeline.Node { return &ChartLoad{} },
	"pipe":         func() pipeline.Node { return &Pipe{} },
	"filter":       func() pipeline.Node { return &Filter{} },
	"remap":        func() pipeline.Node { return &Remap{AvoidShuffle: true} },
	"rekey":        func() pipeline.Node { return &Rekey{} },
	"simultaneous": func() pipeline.Node { return &Simultaneous{} },
	"align":        func() pipeline.Node { return &Align{} },
	"space":        func() pipeline.Node { return &Space{} },
	"rate":         func() pipeline.Node { return &Rate{} },
	"select":       func() pipeline.Node { return &SelectN{} },
	"write":        func() pipeline.Node { return &SimfileWrite{} },
}

var validate = validator.New()

// nodeSpec decodes one `- type: {params}` pipeline entry.
type nodeSpec struct {
	node pipeline.Node
}

func (s *nodeSpec) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]yaml.Node
	if err := value.Decode(&m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("each pipeline entry must be a single `type: params` mapping")
	}
	for typ, params := range m {
		factory, ok := registry[typ]
		if !ok {
			return fmt.Errorf("unknown node type %q", typ)
		}
		node := factory()
		if params.Kind == yaml.MappingNode {
			// yaml.v3 does not call a field's UnmarshalYAML for an explicit
			// YAML null, so a bare `null` bucket slot is handed to BucketRef
			// as the string "null".
			for i := 0; i+1 < len(params.Content); i += 2 {
				key, val := params.Content[i].Value, params.Content[i+1]
				if (key == "from" || key == "into") && val.Kind == yaml.ScalarNode && val.Tag == "!!null" && val.Value == "null" {
					val.Tag = "!!str"
				}
			}
		}
		if params.Kind != 0 && params.Tag != "!!null" {
			if err := params.Decode(node); err != nil {
				return fmt.Errorf("node %q: %w", typ, err)
			}
		}
		if err := validate.Struct(node); err != nil {
			return fmt.Errorf("node %q: %w", typ, err)
		}
		s.node = node
	}
	return nil
}

// pipelineFile is the top-level YAML document.
type pipelineFile struct {
	Pipeline []nodeSpec `yaml:"pipeline"`
}

// ParsePipeline decodes and validates a YAML pipeline description into the
// declared (unresolved) node list.
func ParsePipeline(data []byte) ([]pipeline.Node, error) {
	var file pipelineFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pipeline: %w", err)
	}
	if len(file.Pipeline) == 0 {
		return nil, fmt.Errorf("pipeline has no nodes")
	}
	out := make([]pipeline.Node, len(file.Pipeline))
	for i, spec := range file.Pipeline {
		out[i] = spec.node
	}
	return out, nil
}
