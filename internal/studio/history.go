package studio

import (
	"sort"

	"studio/internal/domain"
)

// DefaultHistoryLimit caps each context's snapshot stack.
const DefaultHistoryLimit = 40

// HistoryManager keeps one snapshot stack with a cursor per (color, view)
// context key. It is not safe for concurrent use; the session serializes
// access.
type HistoryManager struct {
	limit  int
	states map[string]*domain.HistoryState
}

func NewHistoryManager(limit int) *HistoryManager {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryManager{limit: limit, states: make(map[string]*domain.HistoryState)}
}

// Init seeds a key with a single-entry stack on first visit. It reports
// whether the key was new.
func (h *HistoryManager) Init(key, snapshot string) bool {
	if _, ok := h.states[key]; ok {
		return false
	}
	h.states[key] = &domain.HistoryState{Stack: []string{snapshot}, Index: 0}
	return true
}

// Push records snapshot after the cursor, dropping any redo tail. Pushing
// the snapshot already at the cursor is a no-op. It reports whether the
// stack changed.
func (h *HistoryManager) Push(key, snapshot string) bool {
	st, ok := h.states[key]
	if !ok {
		h.Init(key, snapshot)
		return true
	}
	if st.Index >= 0 && st.Index < len(st.Stack) && st.Stack[st.Index] == snapshot {
		return false
	}
	st.Stack = append(st.Stack[:st.Index+1], snapshot)
	st.Index = len(st.Stack) - 1
	if over := len(st.Stack) - h.limit; over > 0 {
		st.Stack = append([]string(nil), st.Stack[over:]...)
		st.Index -= over
	}
	return true
}

// Undo moves the cursor back and returns the snapshot there.
func (h *HistoryManager) Undo(key string) (string, bool) {
	if !h.CanUndo(key) {
		return "", false
	}
	st := h.states[key]
	st.Index--
	return st.Stack[st.Index], true
}

// Redo moves the cursor forward and returns the snapshot there.
func (h *HistoryManager) Redo(key string) (string, bool) {
	if !h.CanRedo(key) {
		return "", false
	}
	st := h.states[key]
	st.Index++
	return st.Stack[st.Index], true
}

func (h *HistoryManager) CanUndo(key string) bool {
	st, ok := h.states[key]
	return ok && st.Index > 0
}

func (h *HistoryManager) CanRedo(key string) bool {
	st, ok := h.states[key]
	return ok && st.Index < len(st.Stack)-1
}

// Current returns the snapshot at the cursor.
func (h *HistoryManager) Current(key string) (string, bool) {
	st, ok := h.states[key]
	if !ok || len(st.Stack) == 0 {
		return "", false
	}
	return st.Stack[st.Index], true
}

// State returns a copy of the stack for key.
func (h *HistoryManager) State(key string) (domain.HistoryState, bool) {
	st, ok := h.states[key]
	if !ok {
		return domain.HistoryState{}, false
	}
	return domain.HistoryState{Stack: append([]string(nil), st.Stack...), Index: st.Index}, true
}

// States copies every stack, keyed by context key.
func (h *HistoryManager) States() map[string]domain.HistoryState {
	out := make(map[string]domain.HistoryState, len(h.states))
	for k := range h.states {
		out[k], _ = h.State(k)
	}
	return out
}

// Restore installs a persisted stack, trimming it to the limit and clamping
// the cursor. Empty stacks are ignored.
func (h *HistoryManager) Restore(key string, st domain.HistoryState) {
	if len(st.Stack) == 0 {
		return
	}
	stack := append([]string(nil), st.Stack...)
	idx := st.Index
	if over := len(stack) - h.limit; over > 0 {
		stack = stack[over:]
		idx -= over
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(stack) {
		idx = len(stack) - 1
	}
	h.states[key] = &domain.HistoryState{Stack: stack, Index: idx}
}

func (h *HistoryManager) Keys() []string {
	keys := make([]string, 0, len(h.states))
	for k := range h.states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset forgets every stack.
func (h *HistoryManager) Reset() {
	h.states = make(map[string]*domain.HistoryState)
}
