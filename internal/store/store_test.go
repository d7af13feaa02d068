package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/openeurope/energyaudit/pkg/types"
)

func run(id string) *types.Run {
	return &types.Run{ID: id, Input: id + ".csv"}
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestPutAndGet(t *testing.T) {
	st := New(5 * time.Minute)
	st.Put(run("r-1"))

	e, ok := st.Get("r-1")
	if !ok {
		t.Fatal("Get: expected entry, got none")
	}
	if e.Run.Input != "r-1.csv" {
		t.Errorf("Input: got %q, want r-1.csv", e.Run.Input)
	}
}

func TestGet_Missing(t *testing.T) {
	st := New(5 * time.Minute)
	if _, ok := st.Get("unknown"); ok {
		t.Fatal("Get on empty store: expected false, got true")
	}
}

func TestList_ExcludesStaleNewestFirst(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute)) // stale
	st.Put(run("old"))
	st.now = fixedClock(base.Add(-2 * time.Minute))
	st.Put(run("mid"))
	st.now = fixedClock(base)
	st.Put(run("new"))

	entries := st.List()
	if len(entries) != 2 {
		t.Fatalf("List: got %d entries, want 2", len(entries))
	}
	if entries[0].Run.ID != "new" || entries[1].Run.ID != "mid" {
		t.Errorf("List order: got %s, %s; want new, mid", entries[0].Run.ID, entries[1].Run.ID)
	}
}

func TestCount_IncludesStale(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(run("old"))
	st.now = fixedClock(base)
	st.Put(run("new"))

	if n := st.Count(); n != 2 {
		t.Errorf("Count: got %d, want 2", n)
	}
}

func TestEvict_RemovesStale(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)

	st.now = fixedClock(base.Add(-10 * time.Minute))
	st.Put(run("old1"))
	st.Put(run("old2"))
	st.now = fixedClock(base)
	st.Put(run("live"))

	if removed := st.Evict(base); removed != 2 {
		t.Errorf("Evict: removed %d, want 2", removed)
	}
	if st.Count() != 1 {
		t.Errorf("Count after evict: got %d, want 1", st.Count())
	}
}

func TestPutAt_KeepsOriginalAge(t *testing.T) {
	base := time.Now()
	st := New(5 * time.Minute)
	st.now = fixedClock(base)

	st.PutAt(run("expired"), base.Add(-10*time.Minute))
	st.PutAt(run("recent"), base.Add(-time.Minute))

	list := st.List()
	if len(list) != 1 || list[0].Run.ID != "recent" {
		t.Fatalf("List: got %d entries, want only recent", len(list))
	}
	if !list[0].StoredAt.Equal(base.Add(-time.Minute)) {
		t.Errorf("StoredAt: got %v, want %v", list[0].StoredAt, base.Add(-time.Minute))
	}
	if removed := st.Evict(base); removed != 1 {
		t.Errorf("Evict: removed %d, want 1", removed)
	}
}

func TestZeroTTL_KeepsEverything(t *testing.T) {
	base := time.Now()
	st := New(0)
	st.now = fixedClock(base.Add(-1000 * time.Hour))
	st.Put(run("ancient"))
	st.now = fixedClock(base)

	if removed := st.Evict(base); removed != 0 {
		t.Errorf("Evict with zero TTL removed %d", removed)
	}
	if len(st.List()) != 1 {
		t.Error("List with zero TTL dropped an entry")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	for _, ttl := range []time.Duration{0, time.Minute} {
		st := New(ttl)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			st.Run(ctx)
			close(done)
		}()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("Run(ttl=%s) did not return after cancel", ttl)
		}
	}
}

func TestConcurrentMixedOps(t *testing.T) {
	st := New(5 * time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			st.Put(run(fmt.Sprintf("r-%d", n)))
		}(i)
		go func() {
			defer wg.Done()
			st.List()
		}()
	}
	wg.Wait()

	if st.Count() != 50 {
		t.Errorf("Count: got %d, want 50", st.Count())
	}
}
