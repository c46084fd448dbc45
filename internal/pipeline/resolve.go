package pipeline

import (
	"fmt"
	"strings"
)

// DefaultInput is the bucket a leading auto input reads from when no node
// precedes it. Code outside the schedule may deposit source charts there;
// the engine driver does not, its pipelines start with a load node.
const DefaultInput = "~in"

// Resolve linearizes a declared node list into an executable schedule.
//
// Every bucket slot is rewritten in place to resolved form. Auto outputs
// get fresh generated names and bind "magnetically" to the next node's
// auto input; nested sub-graphs are resolved recursively and scheduled so
// that producers run before consumers. After binding, the last reader of
// each bucket is flagged to take the bucket instead of cloning it, and
// each node's Prepare hook runs in schedule order.
func Resolve(nodes []Node) ([]Node, error) {
	st := &resolveState{out: make([]Node, 0, len(nodes))}
	if err := st.resolveLayer(nil, nil, nodes, true, true); err != nil {
		return nil, err
	}

	// Optimize the last read of each bucket into a move instead of a clone.
	lastReads := make(map[string]*BucketID)
	for _, node := range st.out {
		for _, slot := range node.Buckets() {
			if slot.Kind != Input {
				continue
			}
			name, _, err := slot.ID.Resolved()
			if err != nil {
				return nil, err
			}
			lastReads[name] = slot.ID
		}
	}
	for _, id := range lastReads {
		id.take = true
	}

	for _, node := range st.out {
		if p, ok := node.(Preparer); ok {
			if err := p.Prepare(); err != nil {
				return nil, fmt.Errorf("prepare %T: %w", node, err)
			}
		}
	}
	return st.out, nil
}

type resolveState struct {
	out    []Node
	nextID int
}

func (st *resolveState) genUniqueName() string {
	st.nextID++
	return fmt.Sprintf("~%d", st.nextID)
}

func (st *resolveState) resolveLayer(input, output *string, nodes []Node, chained, topLevel bool) error {
	// Track the last auto output so the next auto input can consume it.
	lastMagneticOut := copyName(input)
	for i, node := range nodes {
		// The last node's output binds to the layer output; in non-chained
		// mode every child binds straight to the layer input and output.
		var magneticOut *string
		if !chained || i+1 == len(nodes) {
			magneticOut = copyName(output)
		}
		if !chained {
			lastMagneticOut = copyName(input)
		}
		insertIdx := len(st.out)
		for _, slot := range node.Buckets() {
			b := slot.ID
			nestChained := b.kind == idChain
			var name string
			switch b.kind {
			case idAuto:
				switch slot.Kind {
				case Input:
					switch {
					case lastMagneticOut != nil:
						name = *lastMagneticOut
						lastMagneticOut = nil
					case topLevel && i == 0 && input == nil:
						name = DefaultInput
					default:
						return fmt.Errorf("node %d (%T) uses an input, but the previous node does not output", i+1, node)
					}
				case Output:
					if magneticOut == nil {
						generated := st.genUniqueName()
						magneticOut = &generated
					}
					name = *magneticOut
				default:
					return fmt.Errorf("cannot auto-bind generic bucket (in node %d)", i+1)
				}
			case idName:
				if strings.HasPrefix(b.name, "~") {
					return fmt.Errorf("bucket names starting with '~' are reserved and cannot be used")
				}
				name = b.name
			case idNest, idChain:
				switch slot.Kind {
				case Input:
					if lastMagneticOut == nil {
						return fmt.Errorf("node %d (%T) uses an input, but the previous node does not output", i+1, node)
					}
					intoNested := *lastMagneticOut
					lastMagneticOut = nil
					fromNested := st.genUniqueName()
					if err := st.resolveLayer(&intoNested, &fromNested, b.nodes, nestChained, false); err != nil {
						return err
					}
					// The nested producers must run before this node.
					insertIdx = len(st.out)
					name = fromNested
				case Output:
					intoNested := st.genUniqueName()
					if magneticOut == nil {
						generated := st.genUniqueName()
						magneticOut = &generated
					}
					if err := st.resolveLayer(&intoNested, magneticOut, b.nodes, nestChained, false); err != nil {
						return err
					}
					name = intoNested
				default:
					return fmt.Errorf("cannot use generic buckets with nested graphs")
				}
			case idNull:
				name = ""
			default:
				return fmt.Errorf("resolved buckets cannot be used directly")
			}
			*b = BucketID{kind: idResolved, name: name}
		}
		if lastMagneticOut != nil && i != 0 {
			return fmt.Errorf("output from node %d is not used as input by node %d (%T)", i, i+1, node)
		}
		lastMagneticOut = magneticOut
		st.out = append(st.out, nil)
		copy(st.out[insertIdx+1:], st.out[insertIdx:])
		st.out[insertIdx] = node
	}
	return nil
}

func copyName(name *string) *string {
	if name == nil {
		return nil
	}
	c := *name
	return &c
}
