package patient

import "mercator-hq/carepath/pkg/logic/snapshot"

// History is the append-only log of states a patient has entered.
type History struct {
	states []string
	seen   map[string]struct{}
}

var _ snapshot.History = (*History)(nil)

// NewHistory creates a history holding states in order.
func NewHistory(states ...string) *History {
	h := &History{seen: make(map[string]struct{}, len(states))}
	for _, s := range states {
		h.Append(s)
	}
	return h
}

// Append records that the patient entered state.
func (h *History) Append(state string) {
	if h.seen == nil {
		h.seen = make(map[string]struct{})
	}
	h.states = append(h.states, state)
	h.seen[state] = struct{}{}
}

// Contains reports whether state has ever been entered. A nil history
// contains nothing.
func (h *History) Contains(state string) bool {
	if h == nil {
		return false
	}
	_, ok := h.seen[state]
	return ok
}

// Len returns the number of entries.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.states)
}

// States returns a copy of the entries, oldest first.
func (h *History) States() []string {
	if h == nil {
		return nil
	}
	out := make([]string, len(h.states))
	copy(out, h.states)
	return out
}
