// Package pipeline plumbs transform nodes together through named buckets.
//
// A pipeline is declared as an ordered list of nodes whose input/output
// slots reference buckets declaratively (auto, null, named, or nested
// sub-graphs). Resolve turns that declaration into a linear schedule with
// every slot bound to a concrete bucket name; Store holds the charts in
// flight while the schedule runs.
package pipeline

import "fmt"

// BucketID is a declarative reference to a bucket. Before resolution it is
// one of Auto, Null, Name, Nest or Chain; Resolve rewrites every slot to
// resolved form in place.
type BucketID struct {
	kind  idKind
	name  string
	take  bool
	nodes []Node
}

type idKind uint8

const (
	idAuto idKind = iota
	idNull
	idName
	idNest
	idChain
	idResolved
)

// Auto binds magnetically: an input consumes the previous node's output,
// an output gets a fresh generated name.
func Auto() *BucketID { return &BucketID{kind: idAuto} }

// Null routes to a sink that silently discards.
func Null() *BucketID { return &BucketID{kind: idNull} }

// Name references a bucket by explicit name.
func Name(name string) *BucketID { return &BucketID{kind: idName, name: name} }

// Nest inlines a sub-graph; all children share this slot's binding as their
// external input or output.
func Nest(nodes ...Node) *BucketID { return &BucketID{kind: idNest, nodes: nodes} }

// Chain inlines a sub-graph whose children connect head-to-tail.
func Chain(nodes ...Node) *BucketID { return &BucketID{kind: idChain, nodes: nodes} }

// ResolvedID builds an already-resolved reference. It is meant for code
// outside the schedule (the driver seeding an input bucket, tests) that
// needs to address a bucket by its final name.
func ResolvedID(name string) *BucketID {
	return &BucketID{kind: idResolved, name: name}
}

// TakeID is ResolvedID with the take flag set: reading through it removes
// the bucket from the store.
func TakeID(name string) *BucketID {
	return &BucketID{kind: idResolved, name: name, take: true}
}

// Resolved returns the bound bucket name and take flag, or an error if the
// graph was never resolved.
func (b *BucketID) Resolved() (name string, take bool, err error) {
	if b.kind != idResolved {
		return "", false, fmt.Errorf("bucket not resolved: %v", b)
	}
	return b.name, b.take, nil
}

func (b *BucketID) String() string {
	switch b.kind {
	case idAuto:
		return "auto"
	case idNull:
		return "null"
	case idName:
		return fmt.Sprintf("name(%q)", b.name)
	case idNest:
		return fmt.Sprintf("nest(%d nodes)", len(b.nodes))
	case idChain:
		return fmt.Sprintf("chain(%d nodes)", len(b.nodes))
	default:
		return fmt.Sprintf("resolved(%q, take=%v)", b.name, b.take)
	}
}
