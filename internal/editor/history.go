package editor

import (
	"time"

	"prefabforge/internal/prefab"
)

const (
	DefaultHistoryDepth   = 50
	DefaultDebounceWindow = 500 * time.Millisecond
)

// History is a bounded undo stack of whole prefab snapshots. Edits are
// recorded as pending and only committed once no further edit arrived for
// the debounce window, so a continuous drag becomes one undo step.
type History struct {
	entries  []*prefab.Prefab
	index    int
	depth    int
	debounce time.Duration

	pending  *prefab.Prefab
	lastEdit time.Time
}

func NewHistory(initial *prefab.Prefab, depth int, debounce time.Duration) *History {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	if debounce < 0 {
		debounce = 0
	}
	return &History{entries: []*prefab.Prefab{initial}, depth: depth, debounce: debounce}
}

// Record marks p as the latest uncommitted state.
func (h *History) Record(p *prefab.Prefab, now time.Time) {
	h.pending = p
	h.lastEdit = now
}

// Tick commits the pending state once the debounce window has passed.
func (h *History) Tick(now time.Time) bool {
	if h.pending == nil || now.Sub(h.lastEdit) < h.debounce {
		return false
	}
	h.commit()
	return true
}

// Flush commits the pending state immediately.
func (h *History) Flush() bool {
	if h.pending == nil {
		return false
	}
	h.commit()
	return true
}

func (h *History) commit() {
	p := h.pending
	h.pending = nil
	if p == h.entries[h.index] {
		return
	}
	h.entries = append(h.entries[:h.index+1], p)
	if len(h.entries) > h.depth {
		drop := len(h.entries) - h.depth
		h.entries = append([]*prefab.Prefab(nil), h.entries[drop:]...)
	}
	h.index = len(h.entries) - 1
}

// Undo steps back one snapshot, committing a pending edit first.
func (h *History) Undo() (*prefab.Prefab, bool) {
	h.Flush()
	if h.index == 0 {
		return nil, false
	}
	h.index--
	return h.entries[h.index], true
}

func (h *History) Redo() (*prefab.Prefab, bool) {
	h.Flush()
	if h.index >= len(h.entries)-1 {
		return nil, false
	}
	h.index++
	return h.entries[h.index], true
}

// Reset starts a new history at p.
func (h *History) Reset(p *prefab.Prefab) {
	h.entries = []*prefab.Prefab{p}
	h.index = 0
	h.pending = nil
}

func (h *History) Len() int      { return len(h.entries) }
func (h *History) Index() int    { return h.index }
func (h *History) Pending() bool { return h.pending != nil }
func (h *History) CanUndo() bool { return h.index > 0 || h.pending != nil }
func (h *History) CanRedo() bool { return h.pending == nil && h.index < len(h.entries)-1 }
