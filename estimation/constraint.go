package estimation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ieee0824/fujisakiest-go/internal/mathutil"
)

// pruneMargin is the log-density drop below the mixture peak at which a
// cell is pruned (about 1% relative likelihood).
const pruneMargin = 4.6

// ErrNotSerialized is returned when constraints are imposed on the loop topology.
var ErrNotSerialized = errors.New("estimation: stochastic constraints need the serialized topology")

func (c StochasticConstraint) validate() error {
	check := func(name string, w, m, s []float64) error {
		if len(w) == 0 || len(w) != len(m) || len(w) != len(s) {
			return fmt.Errorf("%s mixture: %d weights, %d means, %d sigmas", name, len(w), len(m), len(s))
		}
		for _, v := range s {
			if !(v > 0) {
				return fmt.Errorf("%s mixture: sigma %g must be positive", name, v)
			}
		}
		return nil
	}
	if err := check("onset", c.OnWeights, c.OnMeans, c.OnSigmas); err != nil {
		return err
	}
	return check("offset", c.OffWeights, c.OffMeans, c.OffSigmas)
}

// ImposeStochasticConstraints adds the onset and offset log-densities of each
// accent constraint as an emission bias around the accent cluster it
// belongs to, prunes cells more than pruneMargin below the mixture peak and
// recomputes reachability. Constraint i applies to the i-th accent cluster
// of the serialized topology. Each call replaces the bias and pruning of
// the previous one.
func (e *Estimator) ImposeStochasticConstraints(cs []StochasticConstraint) error {
	if !e.prepared {
		return ErrNotPrepared
	}
	if !e.cfg.Serialized {
		return ErrNotSerialized
	}
	ab := e.accentBranches
	if len(cs)*ab > len(e.accentStates) {
		return fmt.Errorf("%d constraints need %d accent states, have %d", len(cs), len(cs)*ab, len(e.accentStates))
	}
	for i, c := range cs {
		if err := c.validate(); err != nil {
			return fmt.Errorf("constraint %d: %w", i, err)
		}
	}

	n := e.frames
	fs := e.in.Fs
	e.reach = e.baseReach.Clone()
	e.bias = mathutil.NewMat(n, e.lat.NumStates())
	for iAcc, c := range cs {
		on, onPeak := mixtureLogDensity(c.OnBasetime, c.OnWeights, c.OnMeans, c.OnSigmas, n, fs)
		off, offPeak := mixtureLogDensity(c.OffBasetime, c.OffWeights, c.OffMeans, c.OffSigmas, n, fs)

		for br := 0; br < ab; br++ {
			b := e.accentStates[iAcc*ab+br]
			first, last := e.lat.Head(b), e.lat.Last(b)

			// the onset density at f applies to the predecessor at f-1
			for _, p := range e.lat.States[first].Prev {
				for f := 1; f < n; f++ {
					e.bias[f-1][p] = on[f]
					if on[f] < onPeak-pruneMargin {
						e.reach.Block(f-1, p)
					}
				}
			}
			// the offset density at f applies to the last state at f+1
			for f := 0; f < n-1; f++ {
				e.bias[f+1][last] = off[f]
				if off[f] < offPeak-pruneMargin {
					e.reach.Block(f+1, last)
				}
			}
		}
	}
	e.reach.Propagate()

	e.log.Debug().
		Int("constraints", len(cs)).
		Int("starts", len(e.reach.Starts())).
		Int("ends", len(e.reach.Ends())).
		Msg("stochastic constraints imposed")
	return nil
}

// mixtureLogDensity evaluates the log-density of a 1-D Gaussian mixture at
// t = f/fs - base for every frame f. The returned peak is the larger of the
// per-frame maximum and the density at each component mean.
func mixtureLogDensity(base float64, weights, means, sigmas []float64, n int, fs float64) ([]float64, float64) {
	logNorm := make([]float64, len(weights))
	for i := range weights {
		logNorm[i] = math.Log(weights[i] / (math.Sqrt(2*math.Pi) * sigmas[i]))
	}
	terms := make([]float64, len(weights))
	density := func(t float64) float64 {
		for i := range terms {
			d := (t - means[i]) / sigmas[i]
			terms[i] = logNorm[i] - 0.5*d*d
		}
		return floats.LogSumExp(terms)
	}

	out := make([]float64, n)
	for f := range out {
		out[f] = density(float64(f)/fs - base)
	}
	peak := math.Inf(-1)
	if n > 0 {
		peak = floats.Max(out)
	}
	for _, m := range means {
		if d := density(m); d > peak {
			peak = d
		}
	}
	return out, peak
}
