package hmm

import (
	"fmt"
	"strings"
)

// Transition is a weighted edge to another big state.
type Transition struct {
	To     int
	Weight float64
}

// HMM is a directed graph of big states with one initial and one final state.
type HMM struct {
	states  []BigState
	trans   [][]Transition
	initial int
	final   int
}

// New creates an empty HMM.
func New() *HMM {
	return &HMM{}
}

// AddState appends a big state with its outgoing transitions and returns its index.
// Transition targets may refer to states that are added later.
func (h *HMM) AddState(bs BigState, next ...Transition) int {
	h.states = append(h.states, bs)
	t := make([]Transition, len(next))
	copy(t, next)
	h.trans = append(h.trans, t)
	return len(h.states) - 1
}

// SetInitial sets the big state occupied at the first frame.
func (h *HMM) SetInitial(i int) error {
	if i < 0 || i >= len(h.states) {
		return fmt.Errorf("initial state %d out of range [0,%d)", i, len(h.states))
	}
	h.initial = i
	return nil
}

// SetFinal sets the big state occupied at the last frame.
func (h *HMM) SetFinal(i int) error {
	if i < 0 || i >= len(h.states) {
		return fmt.Errorf("final state %d out of range [0,%d)", i, len(h.states))
	}
	h.final = i
	return nil
}

// NumStates returns the number of big states.
func (h *HMM) NumStates() int { return len(h.states) }

// Initial returns the initial big state index.
func (h *HMM) Initial() int { return h.initial }

// Final returns the final big state index.
func (h *HMM) Final() int { return h.final }

// State returns the i-th big state.
func (h *HMM) State(i int) BigState { return h.states[i] }

// Transitions returns the outgoing transitions of the i-th big state.
// The returned slice must not be modified.
func (h *HMM) Transitions(i int) []Transition { return h.trans[i] }

// CountByType counts big states of the given type.
func (h *HMM) CountByType(t StateType) int {
	n := 0
	for _, s := range h.states {
		if s.typ == t {
			n++
		}
	}
	return n
}

// IndicesByType returns the indices of big states of the given type in ascending order.
func (h *HMM) IndicesByType(t StateType) []int {
	var idx []int
	for i, s := range h.states {
		if s.typ == t {
			idx = append(idx, i)
		}
	}
	return idx
}

// String renders the topology for debugging.
func (h *HMM) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Big states: %d\nInitial: %d\nFinal: %d\n", len(h.states), h.initial, h.final)
	for i, s := range h.states {
		fmt.Fprintf(&b, "%d<", i)
		for _, t := range h.trans[i] {
			fmt.Fprintf(&b, " %d:%g", t.To, t.Weight)
		}
		fmt.Fprintf(&b, " > %s\n", s)
	}
	return b.String()
}
