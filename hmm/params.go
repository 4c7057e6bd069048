package hmm

// TransParams holds the duration distributions of the reset, phrase and
// accent big states and the accent-to-reset transition weights.
type TransParams struct {
	Reset0Duration []float64 `json:"Duration_r0" yaml:"Duration_r0"`
	Reset1Duration []float64 `json:"Duration_r1" yaml:"Duration_r1"`
	PhraseDuration []float64 `json:"Duration_phrase" yaml:"Duration_phrase"`
	AccentDuration []float64 `json:"Duration_accent" yaml:"Duration_accent"`
	AccentToReset0 float64   `json:"Prob_accentTor0" yaml:"Prob_accentTor0"`
	AccentToReset1 float64   `json:"Prob_accentTor1" yaml:"Prob_accentTor1"`
}

// Clone returns a deep copy.
func (tp TransParams) Clone() TransParams {
	c := tp
	c.Reset0Duration = append([]float64(nil), tp.Reset0Duration...)
	c.Reset1Duration = append([]float64(nil), tp.Reset1Duration...)
	c.PhraseDuration = append([]float64(nil), tp.PhraseDuration...)
	c.AccentDuration = append([]float64(nil), tp.AccentDuration...)
	return c
}

// accentToReset returns the accent-to-reset0/reset1 weights normalized to sum to one.
func (tp TransParams) accentToReset() (float64, float64) {
	sum := tp.AccentToReset0 + tp.AccentToReset1
	return tp.AccentToReset0 / sum, tp.AccentToReset1 / sum
}

// Regularized returns a copy whose accent duration distribution moves a
// fraction factor of its mass onto zero entries and onto an appended tail of
// the same length, so that longer accents become admissible.
// Entries before the first non-zero one are left untouched.
func (tp TransParams) Regularized(factor float64) TransParams {
	out := tp.Clone()
	ac := out.AccentDuration
	n := len(ac)

	first := n
	for i, v := range ac {
		if v > 0 {
			first = i
			break
		}
	}
	if first == n {
		return out
	}

	// the appended tail counts as n additional zero entries
	zeros := n
	sum := 0.0
	for _, v := range ac[first:] {
		sum += v
		if v == 0 {
			zeros++
		}
	}
	r := sum * factor / float64(zeros)

	for i := first; i < n; i++ {
		if ac[i] == 0 {
			ac[i] = r
		} else {
			ac[i] *= 1 - factor
		}
	}
	for i := 0; i < n; i++ {
		ac = append(ac, r)
	}
	out.AccentDuration = ac
	return out
}
