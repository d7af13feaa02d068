package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/openeurope/energyaudit/pkg/types"
)

// Entry is a finished run together with the time it was stored.
type Entry struct {
	Run      *types.Run
	StoredAt time.Time
}

// Store is a thread-safe in-memory run store, keyed by run ID.
// A TTL of zero keeps runs until the process exits.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// TTL returns the retention configured for the store.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores run under run.ID.
// Callers must not modify run after calling Put.
func (s *Store) Put(run *types.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[run.ID] = &Entry{Run: run, StoredAt: s.now()}
}

// PutAt stores run as if it had been stored at storedAt, so a run reloaded
// from the archive expires on its original schedule.
func (s *Store) PutAt(run *types.Run, storedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[run.ID] = &Entry{Run: run, StoredAt: storedAt}
}

// Get returns the entry for id. The entry may be stale if the TTL has
// elapsed and it has not been evicted yet.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	return e, ok
}

// List returns the entries stored within the TTL, newest first.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if s.live(e, s.now()) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StoredAt.Equal(out[j].StoredAt) {
			return out[i].Run.ID < out[j].Run.ID
		}
		return out[i].StoredAt.After(out[j].StoredAt)
	})
	return out
}

// Count returns the number of entries held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries stored before now minus the TTL and returns how many
// were removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.data {
		if !s.live(e, now) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

func (s *Store) live(e *Entry, now time.Time) bool {
	if s.ttl <= 0 {
		return true
	}
	return e.StoredAt.After(now.Add(-s.ttl))
}

// Run starts the background eviction loop. It ticks at half the TTL (minimum
// one second) and blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		<-ctx.Done()
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale runs", "count", n)
			}
		}
	}
}
