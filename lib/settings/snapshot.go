package settings

import (
	"sort"
)

// Snapshot is an immutable point-in-time copy of all settings of a namespace.
// Keys are relative to the namespace. A Snapshot is never modified once created.
type Snapshot struct {
	pairs map[string]string
}

// NewSnapshot creates a snapshot holding a copy of pairs.
func NewSnapshot(pairs map[string]string) *Snapshot {
	cp := make(map[string]string, len(pairs))
	for k, v := range pairs {
		cp[k] = v
	}
	return &Snapshot{pairs: cp}
}

var emptySnapshot = &Snapshot{pairs: map[string]string{}}

// Get returns the raw value of key.
func (s *Snapshot) Get(key string) (string, bool) {
	v, ok := s.pairs[key]
	return v, ok
}

// Len returns the number of settings.
func (s *Snapshot) Len() int { return len(s.pairs) }

// Keys returns all keys in sorted order.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.pairs))
	for k := range s.pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Export returns a copy of all settings.
func (s *Snapshot) Export() map[string]string {
	cp := make(map[string]string, len(s.pairs))
	for k, v := range s.pairs {
		cp[k] = v
	}
	return cp
}
