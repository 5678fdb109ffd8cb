package presence

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// EntrySource tags where a presence entry came from.
type EntrySource string

const (
	SourceLocalChannel EntrySource = "LOCAL_CHANNEL"
	SourceLocalPhrase  EntrySource = "LOCAL_PHRASE"
	SourceTrending     EntrySource = "TRENDING"
)

// Entry is one candidate presence string. FetchedAt is only meaningful for
// trending entries.
type Entry struct {
	Text      string
	Source    EntrySource
	FetchedAt time.Time
}

// Edit these lists whenever you want. Keep entries short so they fit nicely
// in the presence display.
var defaultChannels = []string{
	"Sky Sports News",
	"BBC One",
	"CNN",
	"ESPN",
	"HBO",
	"Discovery Channel",
	"National Geographic",
	"Cartoon Network",
	"Nickelodeon",
}

var defaultPhrases = []string{
	"IPTV playlists",
	"live channel guides (EPG)",
	"buffering complaints",
	"sports blackouts (again)",
	"the stream health dashboard",
	"channel logos load",
	"VOD playback retries",
	"4K HDR test clips",
	"audio sync checks",
	"subtitle reports",
}

type snapshot struct {
	entries []Entry
}

// Pool holds the combined set of local and trending presence entries. The
// refresh loop is the only writer; rotation reads a consistent snapshot via
// an atomic pointer swap, so readers never see a half-built pool. Local
// entries are fixed at construction and never evicted.
type Pool struct {
	local   []Entry
	current atomic.Pointer[snapshot]

	mu       sync.Mutex
	lastText string
	rng      *rand.Rand
}

// NewPool builds a pool seeded with the built-in local entries plus any
// extra phrases from configuration. The pool is never empty.
func NewPool(extraPhrases []string) *Pool {
	local := make([]Entry, 0, len(defaultChannels)+len(defaultPhrases)+len(extraPhrases))
	for _, text := range defaultChannels {
		local = append(local, Entry{Text: text, Source: SourceLocalChannel})
	}
	for _, text := range defaultPhrases {
		local = append(local, Entry{Text: text, Source: SourceLocalPhrase})
	}
	for _, text := range extraPhrases {
		local = append(local, Entry{Text: text, Source: SourceLocalPhrase})
	}

	p := &Pool{
		local: local,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	p.current.Store(&snapshot{entries: local})
	return p
}

// ReplaceTrending swaps in a fresh trending batch, leaving local entries
// untouched. Previous trending entries are dropped wholesale; stale data is
// never kept past a successful refresh.
func (p *Pool) ReplaceTrending(titles []string, fetchedAt time.Time) {
	entries := make([]Entry, 0, len(p.local)+len(titles))
	entries = append(entries, p.local...)
	for _, title := range titles {
		if title == "" {
			continue
		}
		entries = append(entries, Entry{Text: title, Source: SourceTrending, FetchedAt: fetchedAt})
	}
	p.current.Store(&snapshot{entries: entries})
}

// Entries returns the current pool contents.
func (p *Pool) Entries() []Entry {
	snap := p.current.Load()
	out := make([]Entry, len(snap.entries))
	copy(out, snap.entries)
	return out
}

// TrendingFetchedAt returns the fetch time of the current trending batch,
// or zero when the pool is local-only.
func (p *Pool) TrendingFetchedAt() time.Time {
	for _, entry := range p.current.Load().entries {
		if entry.Source == SourceTrending {
			return entry.FetchedAt
		}
	}
	return time.Time{}
}

// Next picks the next presence entry: uniform over the pool, but never the
// same text twice in a row when the pool holds two or more distinct texts.
func (p *Pool) Next() Entry {
	snap := p.current.Load()
	entries := snap.entries

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(entries) == 1 {
		p.lastText = entries[0].Text
		return entries[0]
	}

	distinct := false
	for _, entry := range entries {
		if entry.Text != p.lastText {
			distinct = true
			break
		}
	}

	pick := entries[p.rng.Intn(len(entries))]
	if distinct {
		for pick.Text == p.lastText {
			pick = entries[p.rng.Intn(len(entries))]
		}
	}
	p.lastText = pick.Text
	return pick
}
