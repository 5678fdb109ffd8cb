package presence

import (
	"math/rand"
	"testing"
	"time"
)

func countBySource(entries []Entry) map[EntrySource]int {
	out := make(map[EntrySource]int)
	for _, entry := range entries {
		out[entry.Source]++
	}
	return out
}

func TestNewPoolSeedsLocalEntries(t *testing.T) {
	pool := NewPool([]string{"late-night test streams"})
	entries := pool.Entries()

	counts := countBySource(entries)
	if counts[SourceLocalChannel] != len(defaultChannels) {
		t.Errorf("channel entries = %d, want %d", counts[SourceLocalChannel], len(defaultChannels))
	}
	if counts[SourceLocalPhrase] != len(defaultPhrases)+1 {
		t.Errorf("phrase entries = %d, want %d", counts[SourceLocalPhrase], len(defaultPhrases)+1)
	}
	if counts[SourceTrending] != 0 {
		t.Errorf("trending entries = %d, want 0 before any refresh", counts[SourceTrending])
	}
}

func TestReplaceTrendingKeepsLocalEntries(t *testing.T) {
	pool := NewPool(nil)
	localCount := len(pool.Entries())

	fetchedAt := time.Now()
	pool.ReplaceTrending([]string{"Dune", "Severance", ""}, fetchedAt)

	entries := pool.Entries()
	counts := countBySource(entries)
	if counts[SourceTrending] != 2 {
		t.Errorf("trending entries = %d, want 2 (empty titles skipped)", counts[SourceTrending])
	}
	if counts[SourceLocalChannel]+counts[SourceLocalPhrase] != localCount {
		t.Errorf("local entries changed: %d, want %d", counts[SourceLocalChannel]+counts[SourceLocalPhrase], localCount)
	}
	if got := pool.TrendingFetchedAt(); !got.Equal(fetchedAt) {
		t.Errorf("TrendingFetchedAt() = %v, want %v", got, fetchedAt)
	}
}

func TestReplaceTrendingDropsPreviousBatch(t *testing.T) {
	pool := NewPool(nil)
	pool.ReplaceTrending([]string{"Old Show"}, time.Now().Add(-6*time.Hour))
	pool.ReplaceTrending([]string{"New Show", "Another Show"}, time.Now())

	for _, entry := range pool.Entries() {
		if entry.Text == "Old Show" {
			t.Fatal("stale trending entry survived a refresh")
		}
	}
	if counts := countBySource(pool.Entries()); counts[SourceTrending] != 2 {
		t.Errorf("trending entries = %d, want 2", counts[SourceTrending])
	}
}

func TestNextNeverRepeatsImmediately(t *testing.T) {
	pool := NewPool(nil)
	last := pool.Next().Text
	for i := 0; i < 200; i++ {
		next := pool.Next().Text
		if next == last {
			t.Fatalf("presence repeated %q on consecutive picks", next)
		}
		last = next
	}
}

func TestNextSingleEntryPool(t *testing.T) {
	pool := &Pool{}
	pool.local = []Entry{{Text: "only", Source: SourceLocalPhrase}}
	pool.current.Store(&snapshot{entries: pool.local})
	pool.rng = rand.New(rand.NewSource(1))

	for i := 0; i < 5; i++ {
		if got := pool.Next().Text; got != "only" {
			t.Fatalf("Next() = %q, want %q", got, "only")
		}
	}
}
