package estimation

import (
	"math"

	"github.com/ieee0824/fujisakiest-go/internal/mathutil"
)

// emission returns the log-likelihood of small state i at frame f: a
// Gaussian pull of the fitted amplitudes toward the big state's targets
// plus the constraint bias.
func (e *Estimator) emission(f, i int) float64 {
	b := e.lat.States[i].BigState
	dp := e.up[f] - e.cp[b]
	da := e.ua[f] - e.ca[b]
	v := -0.5*dp*dp*e.invP - 0.5*da*da*e.invA
	if e.bias != nil {
		v += e.bias[f][i]
	}
	return v
}

// viterbi decodes the best path over reachable cells into e.path.
// A candidate predecessor replaces the incumbent only when it is better by
// more than |incumbent| * ZeroThreshold, so the earliest maximal predecessor
// in Prev order wins ties.
func (e *Estimator) viterbi() error {
	n := e.frames
	ns := e.lat.NumStates()
	zt := e.cfg.ZeroThreshold

	// Viterbi with double-buffered score vectors
	prev := mathutil.NewVecFill(ns, -e.cfg.Inf)
	curr := mathutil.NewVecFill(ns, -e.cfg.Inf)
	bp := make([]int32, n*ns)

	for i := 0; i < ns; i++ {
		if e.reach.At(0, i) {
			prev[i] = e.emission(0, i)
		}
	}

	for f := 1; f < n; f++ {
		mathutil.FillVec(curr, -e.cfg.Inf)
		for i := 0; i < ns; i++ {
			if !e.reach.At(f, i) {
				continue
			}
			ss := &e.lat.States[i]
			from := -1
			best := 0.0
			for k, j := range ss.Prev {
				if !e.reach.At(f-1, j) {
					continue
				}
				edge := prev[j] + ss.PrevLog[k]
				if from < 0 || edge-best > math.Abs(best)*zt {
					best = edge
					from = j
				}
			}
			if from >= 0 {
				bp[f*ns+i] = int32(from)
				curr[i] = best + e.emission(f, i)
			}
		}
		prev, curr = curr, prev
	}

	last := -1
	best := 0.0
	for i := 0; i < ns; i++ {
		if !e.lat.States[i].End || !e.reach.At(n-1, i) {
			continue
		}
		if last < 0 || prev[i] > best {
			last = i
			best = prev[i]
		}
	}
	if last < 0 {
		return ErrNoPath
	}

	e.path[n-1] = last
	for f := n - 2; f >= 0; f-- {
		e.path[f] = int(bp[(f+1)*ns+e.path[f+1]])
	}
	return nil
}
