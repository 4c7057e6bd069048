// Package fujisakiest drives command estimation over batches of signals.
package fujisakiest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ieee0824/fujisakiest-go/estimation"
	"github.com/ieee0824/fujisakiest-go/hmm"
	"github.com/ieee0824/fujisakiest-go/internal/metrics"
	"github.com/ieee0824/fujisakiest-go/internal/store"
)

// Runner estimates commands for one signal or a batch of signals with a
// shared configuration and transition parameters.
type Runner struct {
	Config  estimation.Config
	Params  hmm.TransParams
	Workers int // concurrent signals in EstimateAll; 1 = sequential

	log     zerolog.Logger
	store   *store.Store
	metrics *metrics.Metrics
	batchID string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger passed down to every estimator.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// WithWorkers sets how many signals EstimateAll processes concurrently.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		r.Workers = n
	}
}

// WithStore persists every successful result of EstimateAll.
func WithStore(s *store.Store) Option {
	return func(r *Runner) {
		r.store = s
	}
}

// WithMetrics records run counts, durations and RMSE.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner creates a Runner.
func NewRunner(cfg estimation.Config, params hmm.TransParams, opts ...Option) *Runner {
	r := &Runner{
		Config:  cfg,
		Params:  params.Clone(),
		Workers: 1,
		log:     zerolog.Nop(),
		batchID: store.NewBatchID(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Workers < 1 {
		r.Workers = 1
	}
	return r
}

// BatchID returns the id under which EstimateAll stores its runs.
func (r *Runner) BatchID() string { return r.batchID }

// Estimate runs the full estimation for one signal. A non-nil constraints
// slice switches to the serialized topology with one accent cluster per
// constraint.
func (r *Runner) Estimate(in estimation.Input, constraints []estimation.StochasticConstraint) (res estimation.Result, err error) {
	if r.metrics != nil {
		done := r.metrics.Start()
		defer func() { done(res, err) }()
	}

	cfg := r.Config
	if constraints != nil {
		cfg.Serialized = true
		cfg.AccentBigStateNum = len(constraints)
	}

	var e *estimation.Estimator
	if cfg.LimitedDurationExtension {
		e, err = r.prepare(cfg, in, constraints, false)
		if err != nil {
			r.log.Info().Err(err).Msg("retrying with extended accent durations")
			e, err = r.prepare(cfg, in, constraints, true)
		}
	} else {
		e, err = r.prepare(cfg, in, constraints, true)
	}
	if err != nil {
		return estimation.Result{}, fmt.Errorf("prepare estimation: %w", err)
	}

	start := time.Now()
	if err := e.Run(); err != nil {
		return estimation.Result{}, fmt.Errorf("run estimation: %w", err)
	}
	res, err = e.Result()
	if err != nil {
		return estimation.Result{}, fmt.Errorf("estimation result: %w", err)
	}
	r.log.Info().
		Float64("rmse", res.RMSE).
		Int("commands", len(res.Commands)).
		Dur("elapsed", time.Since(start)).
		Msg("estimation finished")
	return res, nil
}

func (r *Runner) prepare(cfg estimation.Config, in estimation.Input, constraints []estimation.StochasticConstraint, regularize bool) (*estimation.Estimator, error) {
	e := estimation.New(cfg, estimation.WithLogger(r.log))
	e.LoadInput(in)
	e.LoadTransParams(r.Params, regularize)
	if err := e.Prepare(); err != nil {
		return nil, err
	}
	if constraints != nil {
		if err := e.ImposeStochasticConstraints(constraints); err != nil {
			return nil, err
		}
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// EstimateAll estimates every input, up to Workers at a time, and returns
// the results in input order. constraints is either nil or holds at least
// one entry per input. The first failure cancels the signals not yet started.
func (r *Runner) EstimateAll(ctx context.Context, inputs []estimation.Input, constraints [][]estimation.StochasticConstraint) ([]estimation.Result, error) {
	if constraints != nil && len(constraints) < len(inputs) {
		return nil, fmt.Errorf("%d constraint sets for %d inputs", len(constraints), len(inputs))
	}

	results := make([]estimation.Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)
	for i := range inputs {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var cs []estimation.StochasticConstraint
			if constraints != nil {
				cs = constraints[i]
				if cs == nil {
					cs = []estimation.StochasticConstraint{}
				}
			}
			log := r.log.With().Int("input", i).Logger()
			log.Debug().Int("frames", len(inputs[i].LogF0)).Msg("estimation started")

			sub := *r
			sub.log = log
			res, err := sub.Estimate(inputs[i], cs)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			results[i] = res

			if r.store != nil {
				id, err := r.store.SaveRun(gctx, r.batchID, i, res)
				if err != nil {
					return fmt.Errorf("input %d: %w", i, err)
				}
				log.Debug().Str("run_id", id).Msg("result stored")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
