package sessionlog

import (
	"slices"
	"sync"
)

// DefaultJournalSize bounds the journal when NewJournal is given 0.
const DefaultJournalSize = 100

// Journal is a fixed-size ring of the most recent entries.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	total   uint64
}

// NewJournal creates a journal holding at most size entries.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &Journal{entries: make([]Entry, size)}
}

// Add records e, evicting the oldest entry when full. It matches
// EntryCallback so it can be passed to NewTeeHandler directly.
func (j *Journal) Add(e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[j.next] = e
	j.next = (j.next + 1) % len(j.entries)
	if j.next == 0 {
		j.full = true
	}
	j.total++
}

// Entries returns the retained entries, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.full {
		return slices.Clone(j.entries[:j.next])
	}
	out := make([]Entry, 0, len(j.entries))
	out = append(out, j.entries[j.next:]...)
	return append(out, j.entries[:j.next]...)
}

// Last returns the newest entry.
func (j *Journal) Last() (Entry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.full && j.next == 0 {
		return Entry{}, false
	}
	i := j.next - 1
	if i < 0 {
		i = len(j.entries) - 1
	}
	return j.entries[i], true
}

// Total returns how many entries were ever added, including evicted ones.
func (j *Journal) Total() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.total
}

// Reset drops every entry.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	clear(j.entries)
	j.next = 0
	j.full = false
	j.total = 0
}
