package estimation

import (
	"gonum.org/v1/gonum/floats"

	"github.com/ieee0824/fujisakiest-go/hmm"
	"github.com/ieee0824/fujisakiest-go/internal/mathutil"
)

// mstep runs MStepUpdateNumPerIteration rounds of the hard M-step against
// the current path.
func (e *Estimator) mstep() {
	for i := 0; i < e.cfg.MStepUpdateNumPerIteration; i++ {
		e.updateLambda()
		e.updateU(e.up, e.gp, e.cp, e.lambdaP, e.invP)
		e.updateU(e.ua, e.ga, e.ca, e.lambdaA, e.invA)
		e.updateC(e.cp, e.up, e.invP, hmm.Phrase)
		e.updateC(e.ca, e.ua, e.invA, hmm.Accent)
	}
}

// updateLambda sets lambda[k][l], the share of source frame l in the
// regenerated value at frame k. The denominator includes the baseline.
func (e *Estimator) updateLambda() {
	for k := 0; k < e.frames; k++ {
		den := 0.0
		for l := 0; l <= k; l++ {
			den += e.gp[k-l]*e.up[l] + e.ga[k-l]*e.ua[l]
		}
		den += e.mub

		lp, la := e.lambdaP[k], e.lambdaA[k]
		for l := 0; l <= k; l++ {
			lp[l] = e.gp[k-l] * e.up[l] / den
			la[l] = e.ga[k-l] * e.ua[l] / den
		}
	}
}

// updateU solves the per-frame weighted least squares for one amplitude
// sequence. Terms whose responsibility falls below ZeroThreshold are left
// out of the denominator; the prior term keeps it positive.
func (e *Estimator) updateU(u, g, c []float64, lambda mathutil.Mat, invSig float64) {
	n := e.frames
	zt := e.cfg.ZeroThreshold
	for l := 0; l < n; l++ {
		den := invSig
		num := c[e.lat.States[e.path[l]].BigState] * invSig
		for k := l; k < n; k++ {
			gk := g[k-l]
			if lam := lambda[k][l]; lam >= zt {
				den += gk * gk * e.invN[k] / lam
			}
			num += e.in.LogF0[k] * gk * e.invN[k]
		}
		u[l] = num / den
	}
}

// updateC sets each big state of type typ to the mean amplitude of the frames
// decoded into it. States whose sums fall below ZeroThreshold keep their value.
func (e *Estimator) updateC(c, u []float64, invSig float64, typ hmm.StateType) {
	zt := e.cfg.ZeroThreshold
	num := make([]float64, len(c))
	den := make([]float64, len(c))
	for f, s := range e.path {
		ss := &e.lat.States[s]
		if ss.Type != typ {
			continue
		}
		num[ss.BigState] += u[f] * invSig
		den[ss.BigState] += invSig
	}
	for b := range c {
		if den[b] > 0 && den[b] >= zt && num[b] >= zt {
			c[b] = num[b] / den[b]
		}
	}
}

// distance is the inverse-noise-weighted squared error between the
// observation and the contour regenerated from up and ua.
func (e *Estimator) distance(up, ua []float64) float64 {
	regen := mathutil.NewVecFill(e.frames, e.mub)
	mathutil.CausalConvAdd(regen, up, e.gp)
	mathutil.CausalConvAdd(regen, ua, e.ga)
	floats.Sub(regen, e.in.LogF0)
	floats.Mul(regen, regen)
	return floats.Dot(regen, e.invN)
}
