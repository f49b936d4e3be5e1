package cache

import (
	"sync/atomic"
	"time"

	"github.com/featureflagshq/featureflagshq-go/internal/domain"
)

// Snapshot is an immutable view of all flags fetched in one refresh. Readers
// get a consistent view for the duration of an evaluation; a concurrent
// refresh never mutates a snapshot in place.
type Snapshot struct {
	flags     map[string]*domain.Flag
	fetchedAt time.Time
	version   uint64
}

// NewSnapshot builds a snapshot from parsed flags. The map is owned by the
// snapshot after the call.
func NewSnapshot(flags map[string]*domain.Flag, fetchedAt time.Time, version uint64) *Snapshot {
	if flags == nil {
		flags = map[string]*domain.Flag{}
	}
	return &Snapshot{flags: flags, fetchedAt: fetchedAt, version: version}
}

// Lookup returns the flag for a key.
func (s *Snapshot) Lookup(key string) (*domain.Flag, bool) {
	f, ok := s.flags[key]
	return f, ok
}

// Len returns the number of flags in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.flags)
}

// Keys returns all flag keys.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.flags))
	for k := range s.flags {
		keys = append(keys, k)
	}
	return keys
}

// Range calls fn for every flag until fn returns false.
func (s *Snapshot) Range(fn func(*domain.Flag) bool) {
	for _, f := range s.flags {
		if !fn(f) {
			return
		}
	}
}

// FetchedAt returns when the snapshot's data was fetched.
func (s *Snapshot) FetchedAt() time.Time {
	return s.fetchedAt
}

// Version returns the install counter assigned by the store.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Store holds the current snapshot behind an atomic pointer. Reads never
// block: evaluation loads the pointer once and works against that snapshot.
// The refresh loop is the single writer.
type Store struct {
	current  atomic.Pointer[Snapshot]
	installs atomic.Uint64
}

// NewStore creates a store primed with an empty snapshot, so lookups work
// before the first refresh completes.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(NewSnapshot(nil, time.Time{}, 0))
	return s
}

// Current returns the active snapshot. Never nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Install atomically replaces the active snapshot with freshly fetched
// flags and returns the previous snapshot.
func (s *Store) Install(flags map[string]*domain.Flag, fetchedAt time.Time) (old, installed *Snapshot) {
	installed = NewSnapshot(flags, fetchedAt, s.installs.Add(1))
	old = s.current.Swap(installed)
	return old, installed
}

// Change describes one flag whose value or active state differs between two
// snapshots.
type Change struct {
	Key string
	Old any
	New any
}

// Diff reports flags that were added, removed, or changed between snapshots.
// A missing side is represented by a nil value.
func Diff(old, new *Snapshot) []Change {
	var changes []Change

	for key, nf := range new.flags {
		of, existed := old.flags[key]
		switch {
		case !existed:
			changes = append(changes, Change{Key: key, Old: nil, New: nf.Value.Any()})
		case !of.Value.Equal(nf.Value) || of.Active != nf.Active:
			changes = append(changes, Change{Key: key, Old: of.Value.Any(), New: nf.Value.Any()})
		}
	}

	for key, of := range old.flags {
		if _, still := new.flags[key]; !still {
			changes = append(changes, Change{Key: key, Old: of.Value.Any(), New: nil})
		}
	}

	return changes
}
