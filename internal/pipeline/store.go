package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/stepmix/varadero/internal/chart"
)

// ErrGlobalMissing is returned by GlobalGetExpect for unset keys.
var ErrGlobalMissing = errors.New("global not set")

// bucket keeps the charts deposited by each Put as a separate list,
// preserving both within-list order and list order.
type bucket struct {
	lists [][]*chart.Chart
}

// Store holds charts while they are in transit between nodes, plus a small
// string global map for out-of-band coordination between nodes.
//
// The store is single-threaded: the driver owns it and threads it through
// each node's Apply in schedule order.
type Store struct {
	byName  map[string]*bucket
	globals map[string]string
	logger  *slog.Logger
}

// NewStore creates an empty store. A nil logger disables store logging.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		byName:  make(map[string]*bucket),
		globals: make(map[string]string),
		logger:  logger,
	}
}

// Reset drops all buckets and globals.
func (s *Store) Reset() {
	clear(s.byName)
	clear(s.globals)
}

// GlobalSet sets a global key.
func (s *Store) GlobalSet(name, value string) {
	s.globals[name] = value
}

// GlobalGet looks up a global key.
func (s *Store) GlobalGet(name string) (string, bool) {
	v, ok := s.globals[name]
	return v, ok
}

// GlobalGetExpect looks up a global key that must be set.
func (s *Store) GlobalGetExpect(name string) (string, error) {
	v, ok := s.globals[name]
	if !ok {
		return "", fmt.Errorf("global %q: %w", name, ErrGlobalMissing)
	}
	return v, nil
}

// Put appends list as a new list-entry of the bucket. Null buckets discard.
func (s *Store) Put(id *BucketID, list []*chart.Chart) error {
	name, _, err := id.Resolved()
	if err != nil {
		return err
	}
	if name == "" {
		s.logger.Debug("put to null bucket", "charts", len(list))
		return nil
	}
	s.logger.Debug("put", "bucket", name, "charts", len(list))
	b := s.byName[name]
	if b == nil {
		b = &bucket{}
		s.byName[name] = b
	}
	b.lists = append(b.lists, list)
	return nil
}

// Get invokes visit once per stored list, in insertion order. When the
// resolved take flag is set (last reader), the bucket is removed from the
// store and the visitor owns the lists; otherwise the visitor receives
// deep clones. The visitor may recursively Put/Get on other buckets, but
// not on the currently-open one.
func (s *Store) Get(id *BucketID, visit func(*Store, []*chart.Chart) error) error {
	name, take, err := id.Resolved()
	if err != nil {
		return err
	}
	if name == "" {
		s.logger.Debug("get null bucket")
		return nil
	}
	b, ok := s.byName[name]
	if !ok {
		return nil
	}
	var lists [][]*chart.Chart
	if take {
		s.logger.Debug("take", "bucket", name, "lists", len(b.lists))
		delete(s.byName, name)
		lists = b.lists
	} else {
		s.logger.Debug("get", "bucket", name, "lists", len(b.lists))
		lists = make([][]*chart.Chart, len(b.lists))
		for i, list := range b.lists {
			cloned := make([]*chart.Chart, len(list))
			for j, c := range list {
				cloned[j] = c.Clone()
			}
			lists[i] = cloned
		}
	}
	for _, list := range lists {
		if err := visit(s, list); err != nil {
			return err
		}
	}
	return nil
}

// GetEach flattens the bucket and visits one chart at a time.
func (s *Store) GetEach(id *BucketID, visit func(*Store, *chart.Chart) error) error {
	return s.Get(id, func(store *Store, list []*chart.Chart) error {
		for _, c := range list {
			if err := visit(store, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// Check runs the chart sanity pass over everything currently stored.
func (s *Store) Check() error {
	for name, b := range s.byName {
		for _, list := range b.lists {
			for idx, c := range list {
				if err := c.Check(); err != nil {
					return fmt.Errorf("chart %d in bucket %q failed the sanity check: %w", idx, name, err)
				}
			}
		}
	}
	return nil
}
