package pipeline

// SlotKind tags a node's bucket slot.
type SlotKind uint8

const (
	Generic SlotKind = iota
	Input
	Output
)

// Slot is one bucket binding of a node. The pointer is shared with the
// node so that Resolve can rewrite the binding in place.
type Slot struct {
	Kind SlotKind
	ID   *BucketID
}

// Node is a single transform in the pipeline.
type Node interface {
	// Buckets enumerates the node's bucket slots in a fixed order, all
	// Input slots before any Output slot.
	Buckets() []Slot
	// Apply performs the node's work against the store: read the input
	// buckets, transform, deposit into the output buckets.
	Apply(store *Store) error
}

// Preparer is implemented by nodes that need a one-shot setup pass after
// the graph is resolved and before the schedule runs.
type Preparer interface {
	Prepare() error
}
