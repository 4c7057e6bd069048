// Package hmm describes the coarse ("big state") topology of the Fujisaki
// command HMM: states with explicit duration distributions connected by
// weighted transitions.
package hmm

import "fmt"

// StateType tags the role of a big state.
type StateType int

const (
	Begin      StateType = 0
	End        StateType = 1
	Reset0     StateType = 10
	Reset1     StateType = 11
	ResetOther StateType = 12
	Phrase     StateType = 20
	Accent     StateType = 30
)

func (t StateType) String() string {
	switch t {
	case Begin:
		return "begin"
	case End:
		return "end"
	case Reset0:
		return "reset0"
	case Reset1:
		return "reset1"
	case ResetOther:
		return "reset-other"
	case Phrase:
		return "phrase"
	case Accent:
		return "accent"
	default:
		return fmt.Sprintf("StateType(%d)", int(t))
	}
}

// IsCommand reports whether states of this type emit a command.
func (t StateType) IsCommand() bool {
	return t == Phrase || t == Accent
}

// BigState is an HMM state with a discrete duration distribution.
// duration[i] is the weight of a sojourn lasting i+1 frames.
type BigState struct {
	duration []float64
	typ      StateType
}

// NewBigState creates a big state. The duration slice is copied.
func NewBigState(duration []float64, typ StateType) BigState {
	d := make([]float64, len(duration))
	copy(d, duration)
	return BigState{duration: d, typ: typ}
}

// Type returns the role tag.
func (b BigState) Type() StateType { return b.typ }

// Len returns the maximum sojourn in frames, which is also the number of
// small states the big state expands into.
func (b BigState) Len() int { return len(b.duration) }

// DurationProb returns the weight of a sojourn of d frames (1-based).
func (b BigState) DurationProb(d int) float64 {
	if d < 1 || d > len(b.duration) {
		return 0
	}
	return b.duration[d-1]
}

// Duration returns a copy of the duration distribution.
func (b BigState) Duration() []float64 {
	d := make([]float64, len(b.duration))
	copy(d, b.duration)
	return d
}

func (b BigState) String() string {
	return fmt.Sprintf("type=%s len=%d", b.typ, len(b.duration))
}
