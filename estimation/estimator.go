// Package estimation estimates Fujisaki phrase/accent commands from a log-F0
// contour by hard-decision EM over a hierarchical HMM: Viterbi decoding over
// the small-state lattice alternates with closed-form amplitude updates.
package estimation

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/ieee0824/fujisakiest-go/fujisaki"
	"github.com/ieee0824/fujisakiest-go/hmm"
	"github.com/ieee0824/fujisakiest-go/internal/mathutil"
	"github.com/ieee0824/fujisakiest-go/lattice"
)

// Estimator holds the EM state of one signal. The lifecycle is
// LoadInput, LoadTransParams, Prepare, optionally
// ImposeStochasticConstraints, Validate, Run, Result.
// An Estimator is not safe for concurrent use.
type Estimator struct {
	cfg Config
	log zerolog.Logger

	in     Input
	frames int
	tp     hmm.TransParams

	hmm            *hmm.HMM
	lat            *lattice.Lattice
	reach          *lattice.Reachability
	baseReach      *lattice.Reachability // grid as left by Prepare
	phraseStates   []int // big state ids of phrase states, ascending
	accentStates   []int
	phraseBranches int
	accentBranches int

	gp, ga     []float64 // filter kernels divided by fs
	invN       []float64 // per-frame inverse noise variance
	invP, invA float64

	up, ua           []float64
	mub              float64
	cp, ca           []float64 // target amplitude per big state
	lambdaP, lambdaA mathutil.Mat
	path             []int // decoded small state per frame

	bias     mathutil.Mat // emission bias, nil without constraints
	prepared bool
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Estimator) {
		e.log = l
	}
}

// New creates an Estimator with the given configuration.
func New(cfg Config, opts ...Option) *Estimator {
	e := &Estimator{
		cfg: cfg,
		log: zerolog.Nop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Config returns the configuration in use.
func (e *Estimator) Config() Config { return e.cfg }

// LoadInput sets the signal to estimate. It invalidates any preparation.
func (e *Estimator) LoadInput(in Input) {
	e.in = Input{
		Fs:         in.Fs,
		LogF0:      mathutil.CloneVec(in.LogF0),
		VUV:        mathutil.CloneVec(in.VUV),
		InitialUp:  mathutil.CloneVec(in.InitialUp),
		InitialUa:  mathutil.CloneVec(in.InitialUa),
		InitialMub: in.InitialMub,
	}
	e.frames = len(in.LogF0)
	e.prepared = false
}

// LoadTransParams sets the transition parameters, regularizing the accent
// duration when regularize is set and DurationExtensionFactor is positive.
// It invalidates any preparation.
func (e *Estimator) LoadTransParams(tp hmm.TransParams, regularize bool) {
	if regularize && e.cfg.DurationExtensionFactor > 0 {
		e.tp = tp.Regularized(e.cfg.DurationExtensionFactor)
	} else {
		e.tp = tp.Clone()
	}
	e.prepared = false
}

// TransParams returns a copy of the transition parameters in use.
func (e *Estimator) TransParams() hmm.TransParams { return e.tp.Clone() }

// HMM returns the big-state topology built by Prepare.
func (e *Estimator) HMM() *hmm.HMM { return e.hmm }

// Lattice returns the small-state lattice built by Prepare.
func (e *Estimator) Lattice() *lattice.Lattice { return e.lat }

// Reachability returns the reachability grid built by Prepare.
func (e *Estimator) Reachability() *lattice.Reachability { return e.reach }

// Prepare builds the HMM and its lattice, computes reachability and
// initializes the EM parameters. It discards previously imposed constraints.
func (e *Estimator) Prepare() error {
	e.prepared = false
	e.bias = nil

	if st := e.checkInput(); st != StatusOK {
		return st
	}
	if st := e.checkTransParamSizes(); st != StatusOK {
		return st
	}

	h, err := e.buildHMM()
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	lat, err := lattice.Expand(h)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	e.hmm = h
	e.lat = lat
	e.phraseStates = h.IndicesByType(hmm.Phrase)
	e.accentStates = h.IndicesByType(hmm.Accent)

	e.reach = lattice.NewReachability(lat, e.frames)
	e.reach.Propagate()
	e.baseReach = e.reach.Clone()

	e.initParameters()
	e.initVariables()
	e.prepared = true

	e.log.Info().
		Int("big_states", h.NumStates()).
		Int("small_states", lat.NumStates()).
		Int("frames", e.frames).
		Bool("serialized", e.cfg.Serialized).
		Msg("estimation prepared")
	return nil
}

func (e *Estimator) buildHMM() (*hmm.HMM, error) {
	e.phraseBranches = e.cfg.phraseBranches()
	e.accentBranches = e.cfg.accentBranches()
	if e.cfg.Serialized {
		return hmm.NewSerialized(e.cfg.AccentBigStateNum, e.tp, e.cfg.SerializedMargin,
			e.cfg.LongestAccentFrames, e.phraseBranches, e.accentBranches)
	}
	return hmm.NewLoop(e.phraseBranches, e.accentBranches, e.tp, len(e.tp.Reset0Duration))
}

func (e *Estimator) initParameters() {
	n := e.frames
	fs := e.in.Fs
	e.gp = make([]float64, n)
	e.ga = make([]float64, n)
	e.invN = make([]float64, n)
	e.invP = 1 / e.cfg.SigmaP2
	e.invA = 1 / e.cfg.SigmaA2
	for f := 0; f < n; f++ {
		t := float64(f) / fs
		e.gp[f] = fujisaki.ImpulseResponse(e.cfg.Alpha, t) / fs
		e.ga[f] = fujisaki.ImpulseResponse(e.cfg.Beta, t) / fs
		if e.in.VUV[f] > e.cfg.ZeroThreshold {
			e.invN[f] = 1 / e.cfg.SigmaN2Voiced
		} else {
			e.invN[f] = 1 / e.cfg.SigmaN2Unvoiced
		}
	}
}

func (e *Estimator) initVariables() {
	n := e.frames
	off := e.cfg.RegularizerOffset
	zt := e.cfg.ZeroThreshold

	e.lambdaP = mathutil.NewMat(n, n)
	e.lambdaA = mathutil.NewMat(n, n)
	e.path = make([]int, n)
	e.mub = e.in.InitialMub

	e.ua = make([]float64, n)
	mathutil.FloorVec(e.ua, e.in.InitialUa, off)

	// phrase impulses are spread over the PhraseOnDuration frames ending at the impulse
	e.up = mathutil.NewVecFill(n, off)
	on := e.cfg.PhraseOnDuration
	phrases := 0
	for f := 0; f < n; f++ {
		if e.in.InitialUp[f] <= zt {
			continue
		}
		phrases++
		if on < 1 {
			continue
		}
		amp := e.in.InitialUp[f] / float64(on)
		for i := 0; i < min(f+1, on); i++ {
			e.up[f-i] = amp
		}
	}
	if phrases > len(e.phraseStates) {
		e.log.Warn().
			Int("initial_phrases", phrases).
			Int("phrase_states", len(e.phraseStates)).
			Msg("too many phrase commands in initial value")
	}

	nb := e.hmm.NumStates()
	e.cp = make([]float64, nb)
	for i, b := range e.phraseStates {
		if e.cfg.Serialized {
			e.cp[b] = float64(i%e.phraseBranches+1) * 1.25 * 20 / float64(e.phraseBranches)
		} else {
			e.cp[b] = float64(i+1) * 1.25
		}
	}
	e.ca = make([]float64, nb)
	for i, b := range e.accentStates {
		if e.cfg.Serialized {
			e.ca[b] = float64(i%e.accentBranches+1) / float64(e.accentBranches)
		} else {
			e.ca[b] = float64(i+1) / float64(len(e.accentStates))
		}
	}
}

// Validate checks the prepared estimator and returns nil or the Status of
// the first failing category. It does not modify the estimator.
func (e *Estimator) Validate() error {
	if st := e.validate(); st != StatusOK {
		return st
	}
	return nil
}

func (e *Estimator) validate() Status {
	if st := e.checkInput(); st != StatusOK {
		return st
	}
	if !(e.in.Fs > 0) || math.IsInf(e.in.Fs, 0) {
		return StatusValueInvalid
	}
	if !e.prepared {
		// Prepare rejects empty durations and non-positive branch counts
		if st := e.checkTransParamSizes(); st != StatusOK {
			return st
		}
		if !e.cfg.valid() {
			return StatusConfigValueInvalid
		}
		return StatusHMMSetupError
	}
	if len(e.phraseStates) < 1 || len(e.accentStates) < 1 {
		return StatusHMMSetupError
	}
	if !e.cfg.valid() {
		return StatusConfigValueInvalid
	}
	if st := e.checkTransParamSizes(); st != StatusOK {
		return st
	}
	if e.tp.AccentToReset0 < 0 || e.tp.AccentToReset1 < 0 || !(e.tp.AccentToReset0+e.tp.AccentToReset1 > 0) {
		return StatusTransParamProbInvalid
	}
	for _, d := range [][]float64{e.tp.PhraseDuration, e.tp.AccentDuration, e.tp.Reset0Duration, e.tp.Reset1Duration} {
		for _, v := range d {
			if v < 0 {
				return StatusTransParamProbInvalid
			}
		}
	}
	if len(e.tp.PhraseDuration) != e.cfg.PhraseOnDuration {
		return StatusPhraseDurationMismatch
	}
	if e.reach.Frames() != e.frames || len(e.gp) != e.frames || len(e.ga) != e.frames ||
		len(e.invN) != e.frames || len(e.path) != e.frames || len(e.cp) != e.hmm.NumStates() {
		return StatusConsistencyError
	}
	if len(e.reach.Starts()) < 1 || len(e.reach.Ends()) < 1 {
		return StatusNoSolution
	}
	return StatusOK
}

func (e *Estimator) checkInput() Status {
	n := e.frames
	if n < 1 || len(e.in.VUV) != n || len(e.in.InitialUp) != n || len(e.in.InitialUa) != n {
		return StatusInputVectorSizeMismatch
	}
	return StatusOK
}

func (e *Estimator) checkTransParamSizes() Status {
	if len(e.tp.PhraseDuration) < 1 || len(e.tp.AccentDuration) < 1 ||
		len(e.tp.Reset0Duration) < 1 || len(e.tp.Reset1Duration) < 1 {
		return StatusTransParamVectorSizeInvalid
	}
	return StatusOK
}

// Run performs IterationNum rounds of decoding, M-step and boundary perturbation.
func (e *Estimator) Run() error {
	if !e.prepared {
		return ErrNotPrepared
	}
	for it := 0; it < e.cfg.IterationNum; it++ {
		if err := e.viterbi(); err != nil {
			return fmt.Errorf("iteration %d: %w", it, err)
		}
		e.mstep()
		if err := e.perturb(); err != nil {
			return fmt.Errorf("iteration %d: %w", it, err)
		}
		if ev := e.log.Debug(); ev.Enabled() {
			ev.Int("iteration", it).
				Float64("distance", e.distance(e.up, e.ua)).
				Msg("em iteration")
		}
	}
	return nil
}

// Result decodes the final path and derives the commands, the regenerated
// contour and its RMSE against the observation.
func (e *Estimator) Result() (Result, error) {
	if !e.prepared {
		return Result{}, ErrNotPrepared
	}
	if err := e.viterbi(); err != nil {
		return Result{}, err
	}

	n := e.frames
	r := Result{
		Up:        mathutil.CloneVec(e.up),
		Ua:        mathutil.CloneVec(e.ua),
		Mup:       make([]float64, n),
		Mua:       make([]float64, n),
		Mub:       e.mub,
		Cp:        mathutil.CloneVec(e.cp),
		Ca:        mathutil.CloneVec(e.ca),
		BigStates: make([]int, n),
	}
	for f, s := range e.path {
		b := e.lat.States[s].BigState
		r.BigStates[f] = b
		r.Mup[f] = e.cp[b]
		r.Mua[f] = e.ca[b]
	}

	cmds, err := e.commands()
	if err != nil {
		return Result{}, err
	}
	r.Commands = cmds

	regen, err := fujisaki.Regenerate(cmds, e.mub, e.in.Fs, n)
	if err != nil {
		return Result{}, fmt.Errorf("regenerate: %w", err)
	}
	r.RegeneratedLogF0 = regen

	r.RMSE, err = fujisaki.RMSE(e.in.LogF0, regen, e.in.VUV, e.cfg.ZeroThreshold)
	if err != nil {
		return Result{}, fmt.Errorf("rmse: %w", err)
	}
	for _, v := range e.in.VUV {
		if v > e.cfg.ZeroThreshold {
			r.VoicedFrameNum++
		}
	}
	return r, nil
}
