// Package lattice unrolls a big-state HMM into frame-granular small states
// and tracks which (frame, small state) cells lie on an admissible path.
package lattice

import (
	"fmt"
	"math"

	"github.com/ieee0824/fujisakiest-go/hmm"
)

// SmallState is one frame of a big state's unrolled duration chain.
// NextLog and PrevLog are parallel to Next and Prev and hold the log
// transition weight of each edge.
type SmallState struct {
	Type     hmm.StateType
	BigState int
	Next     []int
	NextLog  []float64
	Prev     []int
	PrevLog  []float64
	Start    bool
	End      bool
}

// Lattice is the flat arena of small states. Big state b owns the ids
// [Head(b), Head(b)+Len(b)).
type Lattice struct {
	States []SmallState
	heads  []int
	lens   []int
}

// Expand unrolls every big state of h into Len() chained small states.
// The last small state of a big state fans out to each successor's small
// state at depth k, weighted by the transition weight times the probability
// of the remaining len-k frames of sojourn.
func Expand(h *hmm.HMM) (*Lattice, error) {
	nb := h.NumStates()
	if nb == 0 {
		return nil, fmt.Errorf("expand: hmm has no states")
	}
	lat := &Lattice{
		heads: make([]int, nb),
		lens:  make([]int, nb),
	}
	total := 0
	for b := 0; b < nb; b++ {
		n := h.State(b).Len()
		if n == 0 {
			return nil, fmt.Errorf("expand: big state %d has an empty duration distribution", b)
		}
		lat.heads[b] = total
		lat.lens[b] = n
		total += n
	}
	lat.States = make([]SmallState, total)

	for b := 0; b < nb; b++ {
		bs := h.State(b)
		head, n := lat.heads[b], lat.lens[b]
		for k := 0; k < n; k++ {
			ss := &lat.States[head+k]
			ss.Type = bs.Type()
			ss.BigState = b
			if k < n-1 {
				ss.Next = []int{head + k + 1}
				ss.NextLog = []float64{0}
				continue
			}
			pos := make(map[int]int)
			for _, tr := range h.Transitions(b) {
				if tr.Weight <= 0 {
					continue
				}
				if tr.To < 0 || tr.To >= nb {
					return nil, fmt.Errorf("expand: big state %d transitions to unknown state %d", b, tr.To)
				}
				dst := h.State(tr.To)
				dn := lat.lens[tr.To]
				for d := 0; d < dn; d++ {
					p := dst.DurationProb(dn - d)
					if p <= 0 {
						continue
					}
					to := lat.heads[tr.To] + d
					lw := math.Log(tr.Weight * p)
					if i, ok := pos[to]; ok {
						ss.NextLog[i] = lw
						continue
					}
					pos[to] = len(ss.Next)
					ss.Next = append(ss.Next, to)
					ss.NextLog = append(ss.NextLog, lw)
				}
			}
		}
	}

	lat.States[lat.heads[h.Initial()]].Start = true
	lat.States[lat.Last(h.Final())].End = true

	for from := range lat.States {
		ss := &lat.States[from]
		for i, to := range ss.Next {
			dst := &lat.States[to]
			dst.Prev = append(dst.Prev, from)
			dst.PrevLog = append(dst.PrevLog, ss.NextLog[i])
		}
	}
	return lat, nil
}

// NumStates returns the number of small states.
func (l *Lattice) NumStates() int { return len(l.States) }

// NumBigStates returns the number of big states the lattice was expanded from.
func (l *Lattice) NumBigStates() int { return len(l.heads) }

// Head returns the first small state of big state b.
func (l *Lattice) Head(b int) int { return l.heads[b] }

// Len returns the number of small states of big state b.
func (l *Lattice) Len(b int) int { return l.lens[b] }

// Last returns the last small state of big state b.
func (l *Lattice) Last(b int) int { return l.heads[b] + l.lens[b] - 1 }

// TransitionLog returns the log weight of the edge from -> to.
func (l *Lattice) TransitionLog(from, to int) (float64, bool) {
	ss := l.States[from]
	for i, n := range ss.Next {
		if n == to {
			return ss.NextLog[i], true
		}
	}
	return 0, false
}
