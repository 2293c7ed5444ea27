package engine

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one completed node visit, as recorded in
// EngineState.History.
type HistoryEntry struct {
	Timestamp time.Time
	NodeID    string
	TokenID   uuid.UUID
}

// History is a fixed-capacity, newest-first ring buffer of HistoryEntry,
// resolving the unbounded-growth open question in §9: the source's
// executionHistory grows without bound; this implementation caps it.
type History struct {
	cap     int
	entries []HistoryEntry // entries[0] is newest
}

// NewHistory creates a History capped at capacity entries. A non-positive
// capacity defaults to 1000.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1000
	}
	return &History{cap: capacity}
}

// Push prepends e, evicting the oldest entry once the buffer is full.
func (h *History) Push(e HistoryEntry) {
	h.entries = append([]HistoryEntry{e}, h.entries...)
	if len(h.entries) > h.cap {
		h.entries = h.entries[:h.cap]
	}
}

// Entries returns the buffer contents, newest first. The returned slice
// must not be mutated by callers.
func (h *History) Entries() []HistoryEntry {
	return h.entries
}

// Len reports how many entries are currently buffered.
func (h *History) Len() int {
	return len(h.entries)
}
