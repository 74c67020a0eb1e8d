package network

import (
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
)

// DefaultHistorySize bounds the reconcilable round trip in ticks.
const DefaultHistorySize = 64

// HistoryEntry is one predicted tick: the input applied and the state it produced.
type HistoryEntry struct {
	Tick  tick.Tick
	Input sim.Input
	State sim.State
	valid bool
}

// HistoryBuffer is a ring buffer of recent predictions indexed by tick mod N.
// Recording tick T overwrites whatever tick previously occupied that slot, so
// lookups check the slot owner before trusting it.
type HistoryBuffer struct {
	entries []HistoryEntry
	newest  tick.Tick
	hasAny  bool
}

// NewHistoryBuffer returns a buffer holding size ticks.
func NewHistoryBuffer(size int) *HistoryBuffer {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &HistoryBuffer{entries: make([]HistoryEntry, size)}
}

func (h *HistoryBuffer) Cap() int { return len(h.entries) }

// Record stores the prediction for t, evicting the entry N ticks older.
func (h *HistoryBuffer) Record(t tick.Tick, in sim.Input, s sim.State) {
	h.entries[h.slot(t)] = HistoryEntry{Tick: t, Input: in, State: s, valid: true}
	if !h.hasAny || t > h.newest {
		h.newest = t
		h.hasAny = true
	}
}

// Get retrieves the entry for t. Returns false if t was never recorded or if
// the slot has since been overwritten.
func (h *HistoryBuffer) Get(t tick.Tick) (HistoryEntry, bool) {
	e := h.entries[h.slot(t)]
	if !e.valid || e.Tick != t {
		return HistoryEntry{}, false
	}
	return e, true
}

// Newest returns the highest recorded tick.
func (h *HistoryBuffer) Newest() (tick.Tick, bool) {
	return h.newest, h.hasAny
}

// EntriesFrom returns every retained entry with tick >= from, in increasing
// tick order. Evicted ticks are simply absent; callers detect gaps.
func (h *HistoryBuffer) EntriesFrom(from tick.Tick) []HistoryEntry {
	if !h.hasAny || from > h.newest {
		return nil
	}
	oldest := from
	if n := tick.Tick(len(h.entries)); h.newest >= n && h.newest-n+1 > oldest {
		oldest = h.newest - n + 1
	}

	out := make([]HistoryEntry, 0, h.newest-oldest+1)
	for t := oldest; t <= h.newest; t++ {
		if e, ok := h.Get(t); ok {
			out = append(out, e)
		}
	}
	return out
}

// Contiguous reports whether every tick in [from, to] is still retained.
func (h *HistoryBuffer) Contiguous(from, to tick.Tick) bool {
	if to < from {
		return true
	}
	if to-from >= tick.Tick(len(h.entries)) {
		return false
	}
	for t := from; t <= to; t++ {
		if _, ok := h.Get(t); !ok {
			return false
		}
	}
	return true
}

// overwrite replaces the state of an existing entry.
func (h *HistoryBuffer) overwrite(t tick.Tick, s sim.State) {
	i := h.slot(t)
	if h.entries[i].valid && h.entries[i].Tick == t {
		h.entries[i].State = s
	}
}

// Reset drops every entry.
func (h *HistoryBuffer) Reset() {
	clear(h.entries)
	h.newest = 0
	h.hasAny = false
}

func (h *HistoryBuffer) slot(t tick.Tick) int {
	return int(t % tick.Tick(len(h.entries)))
}
