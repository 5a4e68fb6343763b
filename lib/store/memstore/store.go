package memstore

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// entry is a single stored value
type entry struct {
	value    string
	index    uint64    // write index of the last modification
	deadline time.Time // zero = never expires
}

// expired reports whether the entry is past its deadline at time now
func (e entry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && !now.Before(e.deadline)
}

// Store is an in-memory implementation of store.IStore.
type Store struct {
	data   *xsync.MapOf[string, entry]
	index  atomic.Uint64
	closed atomic.Bool
	now    func() time.Time
}

// Option configures the in-memory store
type Option func(*Store)

// WithClock replaces the time source used for TTL handling (used in tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new in-memory store instance.
// This store implementation is not distributed and only works in a single process.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: xsync.NewMapOf[string, entry](),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// incAndGetIndex increments the index and returns the new value.
// It is used to ensure that each write operation has a unique index.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (s *Store) incAndGetIndex() uint64 {
	return s.index.Add(1)
}

// WriteIdx returns the index of the last write operation.
func (s *Store) WriteIdx() uint64 {
	return s.index.Load()
}

// checkOpen returns an error if the store was closed
func (s *Store) checkOpen(ctx context.Context) error {
	if s.closed.Load() {
		return store.NewError(store.RetCUnavailable, "store is closed")
	}
	if err := ctx.Err(); err != nil {
		return store.NewError(store.RetCUnavailable, err.Error())
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.checkOpen(ctx); err != nil {
		return "", false, err
	}
	e, ok := s.data.Load(key)
	if !ok {
		return "", false, nil
	}
	if e.expired(s.now()) {
		s.evict(key, e.index)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if key == "" {
		return store.NewError(store.RetCInvalidOperation, "key must not be empty")
	}
	if ttl < 0 {
		return store.Errorf(store.RetCInvalidOperation, "negative ttl %s", ttl)
	}
	e := entry{value: value, index: s.incAndGetIndex()}
	if ttl > 0 {
		e.deadline = s.now().Add(ttl)
	}
	s.data.Store(key, e)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	s.incAndGetIndex()
	s.data.Delete(key)
	return nil
}

func (s *Store) ListChildren(ctx context.Context, prefix string) ([]store.Node, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	base := store.ChildPrefix(prefix)
	now := s.now()

	var entries []store.Node
	s.data.Range(func(key string, e entry) bool {
		if strings.HasPrefix(key, base) && !e.expired(now) {
			entries = append(entries, store.Node{Key: key, Value: e.value})
		}
		return true
	})
	return store.Children(prefix, entries), nil
}

var _ store.IStore = (*Store)(nil)

func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// evict removes an expired entry, unless it was overwritten in the meantime
func (s *Store) evict(key string, index uint64) {
	s.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
		// delete only if the entry is still the expired one
		return old, !loaded || old.index == index
	})
}
