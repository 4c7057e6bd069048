package estimation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/fujisakiest-go/fujisaki"
	"github.com/ieee0824/fujisakiest-go/hmm"
)

const testFs = 100.0

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PhraseBigStateNum = 1
	cfg.AccentBigStateNum = 1
	cfg.PhraseOnDuration = 3
	cfg.IterationNum = 1
	cfg.MStepUpdateNumPerIteration = 1
	cfg.PerturbSearchWidth = 2
	cfg.SigmaP2 = 1
	cfg.SigmaA2 = 1
	cfg.SigmaN2Voiced = 0.01
	cfg.SigmaN2Unvoiced = 100
	cfg.RegularizerOffset = 1e-7
	cfg.ZeroThreshold = 1e-30
	return cfg
}

func testParams() hmm.TransParams {
	return hmm.TransParams{
		Reset0Duration: []float64{0.2, 0.2, 0.2, 0.2, 0.2},
		Reset1Duration: []float64{0.2, 0.2, 0.2, 0.2, 0.2},
		PhraseDuration: []float64{0, 0, 1},
		AccentDuration: []float64{0, 0.5, 0.5},
		AccentToReset0: 0.3,
		AccentToReset1: 0.7,
	}
}

func constantInput(frames int, mub float64) Input {
	in := Input{
		Fs:         testFs,
		LogF0:      make([]float64, frames),
		VUV:        make([]float64, frames),
		InitialUp:  make([]float64, frames),
		InitialUa:  make([]float64, frames),
		InitialMub: mub,
	}
	for i := range in.LogF0 {
		in.LogF0[i] = mub
		in.VUV[i] = 1
	}
	return in
}

func accentInput(t *testing.T, frames int) Input {
	t.Helper()
	in := constantInput(frames, 5)
	cmd := fujisaki.Command{Type: fujisaki.Accent, Onset: 0.2, Offset: 0.35, IntegratedAmplitude: 0.075, Omega: 20}
	lf0, err := fujisaki.Regenerate([]fujisaki.Command{cmd}, 5, testFs, frames)
	require.NoError(t, err)
	in.LogF0 = lf0
	return in
}

func prepared(t *testing.T, cfg Config, tp hmm.TransParams, in Input) *Estimator {
	t.Helper()
	e := New(cfg)
	e.LoadInput(in)
	e.LoadTransParams(tp, false)
	require.NoError(t, e.Prepare())
	require.NoError(t, e.Validate())
	return e
}

func TestBaselineOnlyConvergence(t *testing.T) {
	e := prepared(t, testConfig(), testParams(), constantInput(50, 5))
	require.NoError(t, e.Run())
	r, err := e.Result()
	require.NoError(t, err)

	require.Len(t, r.BigStates, 50)
	for _, b := range r.BigStates {
		assert.InDelta(t, 0, r.Cp[b], 1e-3, "Cp[%d]", b)
		assert.InDelta(t, 0, r.Ca[b], 1e-3, "Ca[%d]", b)
	}
	assert.Less(t, r.RMSE, 1e-3)
	assert.Equal(t, 50, r.VoicedFrameNum)
	assert.Equal(t, 5.0, r.Mub)
	assert.NotEmpty(t, r.Commands)
	assert.Len(t, r.RegeneratedLogF0, 50)
}

func TestRunIsDeterministic(t *testing.T) {
	in := accentInput(t, 60)
	cfg := testConfig()
	cfg.IterationNum = 2

	run := func() Result {
		e := prepared(t, cfg, testParams(), in)
		require.NoError(t, e.Run())
		r, err := e.Result()
		require.NoError(t, err)
		return r
	}
	assert.Equal(t, run(), run())
}

func TestViterbiPathIsAdmissible(t *testing.T) {
	e := prepared(t, testConfig(), testParams(), accentInput(t, 60))
	require.NoError(t, e.viterbi())
	first := append([]int(nil), e.path...)

	assert.True(t, e.lat.States[first[0]].Start)
	assert.True(t, e.lat.States[first[len(first)-1]].End)
	for f := 1; f < len(first); f++ {
		_, ok := e.lat.TransitionLog(first[f-1], first[f])
		assert.True(t, ok, "frame %d: %d -> %d", f, first[f-1], first[f])
		assert.True(t, e.reach.At(f, first[f]))
	}

	require.NoError(t, e.viterbi())
	assert.Equal(t, first, e.path)
}

func TestResultTraceMatchesCommands(t *testing.T) {
	in := accentInput(t, 60)
	e := prepared(t, testConfig(), testParams(), in)
	require.NoError(t, e.Run())
	r, err := e.Result()
	require.NoError(t, err)

	mup := fujisaki.Trajectory(r.Commands, fujisaki.Phrase, testFs, 60)
	mua := fujisaki.Trajectory(r.Commands, fujisaki.Accent, testFs, 60)
	for f := 0; f < 60; f++ {
		assert.InDelta(t, r.Mup[f], mup[f], 1e-9, "mup frame %d", f)
		assert.InDelta(t, r.Mua[f], mua[f], 1e-9, "mua frame %d", f)
	}

	regen, err := fujisaki.Regenerate(r.Commands, r.Mub, testFs, 60)
	require.NoError(t, err)
	assert.InDeltaSlice(t, regen, r.RegeneratedLogF0, 1e-12)
}

func TestValidateStatus(t *testing.T) {
	tests := []struct {
		name   string
		frames int
		cfg    func(*Config)
		tp     func(*hmm.TransParams)
		in     func(*Input)
		want   Status
	}{
		{name: "vuv length", in: func(in *Input) { in.VUV = in.VUV[:10] }, want: StatusInputVectorSizeMismatch},
		{name: "empty input", frames: -1, want: StatusInputVectorSizeMismatch},
		{name: "zero fs", in: func(in *Input) { in.Fs = 0 }, want: StatusValueInvalid},
		{name: "soft em", cfg: func(c *Config) { c.HardEM = false }, want: StatusConfigValueInvalid},
		{name: "negative variance", cfg: func(c *Config) { c.SigmaA2 = -1 }, want: StatusConfigValueInvalid},
		{name: "no phrase branches", cfg: func(c *Config) { c.PhraseBigStateNum = 0 }, want: StatusConfigValueInvalid},
		{name: "empty reset", tp: func(tp *hmm.TransParams) { tp.Reset1Duration = nil }, want: StatusTransParamVectorSizeInvalid},
		{name: "negative weight", tp: func(tp *hmm.TransParams) { tp.AccentToReset0 = -0.1 }, want: StatusTransParamProbInvalid},
		{name: "zero accent exit weights", tp: func(tp *hmm.TransParams) { tp.AccentToReset0, tp.AccentToReset1 = 0, 0 }, want: StatusTransParamProbInvalid},
		{name: "negative duration", tp: func(tp *hmm.TransParams) { tp.AccentDuration[0] = -1 }, want: StatusTransParamProbInvalid},
		{name: "phrase on duration", cfg: func(c *Config) { c.PhraseOnDuration = 2 }, want: StatusPhraseDurationMismatch},
		{name: "too few frames", frames: 5, want: StatusNoSolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tp := testParams()
			frames := 50
			if tt.frames != 0 {
				frames = max(tt.frames, 0)
			}
			in := constantInput(frames, 5)
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			if tt.tp != nil {
				tt.tp(&tp)
			}
			if tt.in != nil {
				tt.in(&in)
			}

			e := New(cfg)
			e.LoadInput(in)
			e.LoadTransParams(tp, false)
			_ = e.Prepare()

			err := e.Validate()
			st, ok := StatusOf(err)
			require.True(t, ok, "error %v carries no status", err)
			assert.Equal(t, tt.want, st)
			// validation is pure
			assert.Equal(t, err, e.Validate())
		})
	}
}

func TestPrepareStatus(t *testing.T) {
	e := New(testConfig())
	e.LoadInput(constantInput(0, 5))
	e.LoadTransParams(testParams(), false)
	err := e.Prepare()
	assert.True(t, errors.Is(err, StatusInputVectorSizeMismatch))
}

func TestNotPrepared(t *testing.T) {
	e := New(testConfig())
	assert.ErrorIs(t, e.Run(), ErrNotPrepared)
	_, err := e.Result()
	assert.ErrorIs(t, err, ErrNotPrepared)
	assert.ErrorIs(t, e.ImposeStochasticConstraints(nil), ErrNotPrepared)
}

func TestLoadTransParamsRegularize(t *testing.T) {
	cfg := testConfig()
	cfg.DurationExtensionFactor = 0.2
	e := New(cfg)
	e.LoadTransParams(testParams(), true)
	assert.Len(t, e.TransParams().AccentDuration, 6)

	e.LoadTransParams(testParams(), false)
	assert.Len(t, e.TransParams().AccentDuration, 3)

	cfg.DurationExtensionFactor = 0
	e = New(cfg)
	e.LoadTransParams(testParams(), true)
	assert.Len(t, e.TransParams().AccentDuration, 3)
}

func TestInitialPhraseSpread(t *testing.T) {
	in := constantInput(50, 5)
	in.InitialUp[10] = 0.9
	in.InitialUp[1] = 0.6
	e := prepared(t, testConfig(), testParams(), in)

	for f := 8; f <= 10; f++ {
		assert.InDelta(t, 0.3, e.up[f], 1e-12, "frame %d", f)
	}
	assert.InDelta(t, 0.2, e.up[0], 1e-12)
	assert.InDelta(t, 0.2, e.up[1], 1e-12)
	assert.Equal(t, 1e-7, e.up[11])
	assert.Equal(t, 1e-7, e.ua[0])
}

func TestStatusError(t *testing.T) {
	assert.Equal(t, "estimation status 500: no solution", StatusNoSolution.Error())
	assert.Equal(t, "Status(7)", Status(7).String())

	st, ok := StatusOf(errors.Join(errors.New("ctx"), StatusNoSolution))
	assert.True(t, ok)
	assert.Equal(t, StatusNoSolution, st)

	_, ok = StatusOf(errors.New("plain"))
	assert.False(t, ok)
	st, ok = StatusOf(nil)
	assert.True(t, ok)
	assert.Equal(t, StatusOK, st)
}
