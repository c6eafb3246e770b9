// Package store holds the rolling buffer of captured context shared
// between the capture producers and the query dispatcher.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/glance/internal/core"
)

// Store is a bounded, time-ordered buffer of context entries. Appends
// keep the sequence sorted by timestamp, breaking ties by source
// priority (screen before audio) so snapshots are deterministic. Every
// append prunes entries older than the retention window and, if the
// buffer still exceeds its cap, evicts the oldest entries first.
//
// The mutex guards only the in-memory slice; it is never held across
// capture, transcription or network I/O.
type Store struct {
	mu         sync.Mutex
	entries    []core.ContextEntry
	maxEntries int
	retention  time.Duration

	now func() time.Time
}

func New(maxEntries int, retention time.Duration) *Store {
	return &Store{
		entries:    make([]core.ContextEntry, 0, maxEntries),
		maxEntries: maxEntries,
		retention:  retention,
		now:        time.Now,
	}
}

// Append inserts e at its timestamp position and prunes. Producers
// append in their own timestamp order, so the insert scan from the
// tail is O(1) in the common case.
func (s *Store) Append(e core.ContextEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.entries)
	for i > 0 && after(s.entries[i-1], e) {
		i--
	}
	s.entries = append(s.entries, core.ContextEntry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e

	s.prune()
}

// after reports whether a sorts strictly after b: later timestamp, or
// equal timestamp with lower source priority.
func after(a, b core.ContextEntry) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.Source > b.Source
}

// prune drops expired entries, then the oldest ones beyond the cap.
// Caller must hold mu.
func (s *Store) prune() {
	cutoff := s.now().Add(-s.retention)

	drop := 0
	for drop < len(s.entries) && s.entries[drop].Timestamp.Before(cutoff) {
		drop++
	}
	if over := len(s.entries) - drop - s.maxEntries; over > 0 {
		drop += over
	}
	if drop > 0 {
		s.entries = append(s.entries[:0], s.entries[drop:]...)
	}
}

// Snapshot returns a merged textual view of the buffer, one tagged
// line per entry in timestamp order. Expired entries are pruned
// before the view is built. The result is a disconnected copy; later
// store mutations never show through. An empty store yields an empty
// string.
func (s *Store) Snapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()
	if len(s.entries) == 0 {
		return ""
	}

	var b strings.Builder
	for i, e := range s.entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('[')
		b.WriteString(e.Source.String())
		b.WriteByte(' ')
		b.WriteString(e.Timestamp.Format("15:04:05"))
		b.WriteString("] ")
		b.WriteString(e.Text)
	}
	return b.String()
}

// Len reports the current number of buffered entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
