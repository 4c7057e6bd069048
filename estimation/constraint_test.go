package estimation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/fujisakiest-go/hmm"
)

func serializedConfig() Config {
	cfg := testConfig()
	cfg.Serialized = true
	cfg.AccentBigStateNum = 1
	cfg.SerializedBranchNum = 1
	cfg.SerializedMargin = 3
	cfg.LongestAccentFrames = 5
	return cfg
}

func serializedParams() hmm.TransParams {
	return hmm.TransParams{
		Reset0Duration: []float64{0.5, 0.5},
		Reset1Duration: []float64{0.5, 0.5},
		PhraseDuration: []float64{0, 0, 1},
		AccentDuration: []float64{1},
		AccentToReset0: 0.5,
		AccentToReset1: 0.5,
	}
}

func gaussian(mean, sigma float64) ([]float64, []float64, []float64) {
	return []float64{1}, []float64{mean}, []float64{sigma}
}

func TestConstraintFarOutsidePrunesCluster(t *testing.T) {
	e := prepared(t, serializedConfig(), serializedParams(), constantInput(14, 5))

	c := StochasticConstraint{}
	c.OnWeights, c.OnMeans, c.OnSigmas = gaussian(100, 0.01)
	c.OffWeights, c.OffMeans, c.OffSigmas = gaussian(0.1, 1)
	require.NoError(t, e.ImposeStochasticConstraints([]StochasticConstraint{c}))

	require.Len(t, e.accentStates, 1)
	b := e.accentStates[0]
	entry := e.lat.States[e.lat.Head(b)].Prev
	require.NotEmpty(t, entry)
	for f := 0; f < 14; f++ {
		for s := e.lat.Head(b); s <= e.lat.Last(b); s++ {
			assert.False(t, e.reach.At(f, s), "accent state %d at frame %d", s, f)
		}
		for _, p := range entry {
			assert.False(t, e.reach.At(f, p), "entry state %d at frame %d", p, f)
		}
	}

	st, ok := StatusOf(e.Validate())
	require.True(t, ok)
	assert.Equal(t, StatusNoSolution, st)
}

func TestConstraintBiasesAndRuns(t *testing.T) {
	e := prepared(t, serializedConfig(), serializedParams(), constantInput(14, 5))
	before := e.reach.Clone()

	c := StochasticConstraint{OffBasetime: 0.02}
	c.OnWeights, c.OnMeans, c.OnSigmas = gaussian(0.06, 0.5)
	c.OffWeights, c.OffMeans, c.OffSigmas = gaussian(0.06, 0.5)
	require.NoError(t, e.ImposeStochasticConstraints([]StochasticConstraint{c}))

	require.NotNil(t, e.bias)
	assert.True(t, before.Equal(e.reach), "wide mixtures prune nothing")
	require.NoError(t, e.Validate())

	b := e.accentStates[0]
	last := e.lat.Last(b)
	want := -math.Log(math.Sqrt(2*math.Pi)*0.5) - 0.5*math.Pow((0.0-0.02-0.06)/0.5, 2)
	assert.InDelta(t, want, e.bias[1][last], 1e-12)

	require.NoError(t, e.Run())
	_, err := e.Result()
	require.NoError(t, err)

	// a new preparation drops the bias
	require.NoError(t, e.Prepare())
	assert.Nil(t, e.bias)
}

func TestConstraintErrors(t *testing.T) {
	loop := prepared(t, testConfig(), testParams(), constantInput(50, 5))
	assert.ErrorIs(t, loop.ImposeStochasticConstraints(nil), ErrNotSerialized)

	e := prepared(t, serializedConfig(), serializedParams(), constantInput(14, 5))
	c := StochasticConstraint{}
	c.OnWeights, c.OnMeans, c.OnSigmas = gaussian(0.1, 0.1)
	c.OffWeights, c.OffMeans, c.OffSigmas = gaussian(0.1, 0.1)
	assert.Error(t, e.ImposeStochasticConstraints([]StochasticConstraint{c, c}))

	bad := c
	bad.OffSigmas = []float64{0}
	assert.Error(t, e.ImposeStochasticConstraints([]StochasticConstraint{bad}))
	bad = c
	bad.OnMeans = nil
	assert.Error(t, e.ImposeStochasticConstraints([]StochasticConstraint{bad}))
}

func TestMixtureLogDensity(t *testing.T) {
	w := []float64{0.25, 0.75}
	mu := []float64{0.05, 0.2}
	sigma := []float64{0.02, 0.1}
	out, peak := mixtureLogDensity(0.01, w, mu, sigma, 30, 100)

	direct := func(x float64) float64 {
		p := 0.0
		for i := range w {
			d := (x - mu[i]) / sigma[i]
			p += w[i] / (math.Sqrt(2*math.Pi) * sigma[i]) * math.Exp(-0.5*d*d)
		}
		return math.Log(p)
	}
	for f, v := range out {
		assert.InDelta(t, direct(float64(f)/100-0.01), v, 1e-9, "frame %d", f)
	}
	assert.GreaterOrEqual(t, peak, direct(0.05)-1e-12)
	for _, v := range out {
		assert.LessOrEqual(t, v, peak)
	}
}

func TestConstraintsReplacePreviousPruning(t *testing.T) {
	e := prepared(t, serializedConfig(), serializedParams(), constantInput(14, 5))
	before := e.reach.Clone()

	far := StochasticConstraint{}
	far.OnWeights, far.OnMeans, far.OnSigmas = gaussian(100, 0.01)
	far.OffWeights, far.OffMeans, far.OffSigmas = gaussian(0.1, 1)
	require.NoError(t, e.ImposeStochasticConstraints([]StochasticConstraint{far}))
	st, ok := StatusOf(e.Validate())
	require.True(t, ok)
	require.Equal(t, StatusNoSolution, st)

	wide := StochasticConstraint{}
	wide.OnWeights, wide.OnMeans, wide.OnSigmas = gaussian(0.06, 0.5)
	wide.OffWeights, wide.OffMeans, wide.OffSigmas = gaussian(0.06, 0.5)
	require.NoError(t, e.ImposeStochasticConstraints([]StochasticConstraint{wide}))
	assert.NoError(t, e.Validate())
	assert.True(t, before.Equal(e.reach))
}
