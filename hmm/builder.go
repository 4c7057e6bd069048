package hmm

import (
	"errors"
	"fmt"
)

// ErrInvalidBranchCount is returned when a builder is asked for a
// non-positive number of phrase or accent branches.
var ErrInvalidBranchCount = errors.New("hmm: branch count must be positive")

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func checkBranches(phraseBranches, accentBranches, margin int) error {
	if phraseBranches < 1 {
		return fmt.Errorf("phrase branches %d: %w", phraseBranches, ErrInvalidBranchCount)
	}
	if accentBranches < 1 {
		return fmt.Errorf("accent branches %d: %w", accentBranches, ErrInvalidBranchCount)
	}
	if margin < 1 {
		return fmt.Errorf("margin length must be positive, got %d", margin)
	}
	return nil
}

// NewLoop builds the looping phrase/accent topology used when the number of
// accent commands is unknown.
//
//	0 begin -> 1 reset-other -> phrases
//	2 reset0 -> phrases -> 3 reset1 -> accents -> {2, 3, 4}
//	4 reset-other -> 5 end
//
// Phrase branches start at index 6 and accent branches follow them.
func NewLoop(phraseBranches, accentBranches int, tp TransParams, margin int) (*HMM, error) {
	if err := checkBranches(phraseBranches, accentBranches, margin); err != nil {
		return nil, err
	}

	rinf := NewBigState(ones(margin), ResetOther)
	r0 := NewBigState(tp.Reset0Duration, Reset0)
	r1 := NewBigState(tp.Reset1Duration, Reset1)
	ph := NewBigState(tp.PhraseDuration, Phrase)
	ac := NewBigState(tp.AccentDuration, Accent)
	begin := NewBigState([]float64{1}, Begin)
	end := NewBigState([]float64{1}, End)

	toPhrase := make([]Transition, phraseBranches)
	for i := range toPhrase {
		toPhrase[i] = Transition{To: 6 + i, Weight: 1 / float64(phraseBranches)}
	}
	toAccent := make([]Transition, accentBranches)
	for i := range toAccent {
		toAccent[i] = Transition{To: 6 + phraseBranches + i, Weight: 1 / float64(accentBranches)}
	}

	h := New()
	h.AddState(begin, Transition{To: 1, Weight: 1})
	h.AddState(rinf, toPhrase...)
	h.AddState(r0, toPhrase...)
	h.AddState(r1, toAccent...)
	h.AddState(rinf, Transition{To: 5, Weight: 1})
	h.AddState(end)
	for i := 0; i < phraseBranches; i++ {
		h.AddState(ph, Transition{To: 3, Weight: 1})
	}
	a0, a1 := tp.accentToReset()
	for i := 0; i < accentBranches; i++ {
		h.AddState(ac,
			Transition{To: 2, Weight: a0},
			Transition{To: 3, Weight: a1},
			Transition{To: 4, Weight: 1},
		)
	}

	h.initial = 0
	h.final = 5
	return h, nil
}

// NewSerialized builds a chain of exactly accentNum accent clusters, each
// followed by an optional phrase cluster. Accent states use a flat duration
// of longestAccent frames.
func NewSerialized(accentNum int, tp TransParams, margin, longestAccent, phraseBranches, accentBranches int) (*HMM, error) {
	if err := checkBranches(phraseBranches, accentBranches, margin); err != nil {
		return nil, err
	}
	if accentNum < 1 {
		return nil, fmt.Errorf("accent count %d: %w", accentNum, ErrInvalidBranchCount)
	}
	if longestAccent < 1 {
		return nil, fmt.Errorf("longest accent must be positive, got %d", longestAccent)
	}

	rinf := NewBigState(ones(margin), ResetOther)
	r0 := NewBigState(tp.Reset0Duration, Reset0)
	r1 := NewBigState(tp.Reset1Duration, Reset1)
	ac := NewBigState(ones(longestAccent), Accent)
	ph := NewBigState(tp.PhraseDuration, Phrase)
	begin := NewBigState([]float64{1}, Begin)
	end := NewBigState([]float64{1}, End)

	h := New()
	h.AddState(begin, Transition{To: 1, Weight: 1})

	toPhrase := make([]Transition, phraseBranches)
	for i := range toPhrase {
		toPhrase[i] = Transition{To: 2 + i, Weight: 1}
	}
	h.AddState(rinf, toPhrase...)
	for i := 0; i < phraseBranches; i++ {
		h.AddState(ph, Transition{To: 2 + phraseBranches, Weight: 1})
	}

	a0, a1 := tp.accentToReset()
	for iAcc := 0; iAcc < accentNum-1; iAcc++ {
		r1Id := h.NumStates()
		toAccent := make([]Transition, accentBranches)
		for i := range toAccent {
			toAccent[i] = Transition{To: r1Id + 1 + i, Weight: 1 / float64(accentBranches)}
		}
		h.AddState(r1, toAccent...)

		r0Id := h.NumStates() + accentBranches
		nextR1 := r0Id + 1 + phraseBranches
		for i := 0; i < accentBranches; i++ {
			h.AddState(ac, Transition{To: r0Id, Weight: a0}, Transition{To: nextR1, Weight: a1})
		}

		toPhrase := make([]Transition, phraseBranches)
		for i := range toPhrase {
			toPhrase[i] = Transition{To: r0Id + 1 + i, Weight: 1}
		}
		h.AddState(r0, toPhrase...)
		for i := 0; i < phraseBranches; i++ {
			h.AddState(ph, Transition{To: nextR1, Weight: 1})
		}
	}

	r1Id := h.NumStates()
	rinfId := r1Id + 1 + accentBranches
	toAccent := make([]Transition, accentBranches)
	for i := range toAccent {
		toAccent[i] = Transition{To: r1Id + 1 + i, Weight: 1 / float64(accentBranches)}
	}
	h.AddState(r1, toAccent...)
	for i := 0; i < accentBranches; i++ {
		h.AddState(ac, Transition{To: rinfId, Weight: 1})
	}
	h.AddState(rinf, Transition{To: rinfId + 1, Weight: 1})
	h.AddState(end)

	h.initial = 0
	h.final = h.NumStates() - 1
	return h, nil
}
