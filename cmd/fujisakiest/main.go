package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	fujisakiest "github.com/ieee0824/fujisakiest-go"
	"github.com/ieee0824/fujisakiest-go/dataio"
	"github.com/ieee0824/fujisakiest-go/estimation"
	"github.com/ieee0824/fujisakiest-go/evaluation"
	"github.com/ieee0824/fujisakiest-go/fujisaki"
	"github.com/ieee0824/fujisakiest-go/internal/config"
	"github.com/ieee0824/fujisakiest-go/internal/logging"
	"github.com/ieee0824/fujisakiest-go/internal/metrics"
	"github.com/ieee0824/fujisakiest-go/internal/store"
)

var (
	cfgFile     string
	probFile    string
	inFile      string
	outFile     string
	truthFile   string
	evalFile    string
	constFile   string
	dbFile      string
	metricsFile string
	logLevel    string
	workers     int
	timeLag     float64
)

var rootCmd = &cobra.Command{
	Use:   "fujisakiest",
	Short: "Estimate Fujisaki phrase and accent commands from log F0 contours",
	Long: `fujisakiest decodes phrase and accent commands from one or more log F0
contours with a hierarchical HMM and hard EM.

Files are read and written as JSON or YAML depending on the extension.
Configuration keys can be overridden with FUJISAKI_<KEY> environment
variables, e.g. FUJISAKI_ITERATIONNUM=20.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&cfgFile, "config", "c", "config.json", "estimation config file")
	f.StringVarP(&probFile, "prob", "p", "hmmprob.json", "HMM transition parameter file")
	f.StringVarP(&inFile, "in", "i", "input.json", "input signal file (object or array)")
	f.StringVarP(&outFile, "out", "o", "output.json", "result file")
	f.StringVarP(&truthFile, "truth", "t", "", "reference command file (optional)")
	f.StringVarP(&evalFile, "eval", "e", "evaluation.json", "evaluation result file")
	f.StringVarP(&constFile, "const", "x", "", "accent constraint file (optional)")
	f.StringVar(&dbFile, "db", "", "SQLite database to record runs in (optional)")
	f.StringVar(&metricsFile, "metrics", "", "write Prometheus metrics in textfile format (optional)")
	f.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.IntVarP(&workers, "workers", "w", 1, "signals estimated concurrently")
	f.Float64Var(&timeLag, "lag", evaluation.DefaultTimeLag, "allowed time lag for evaluation in seconds")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log, err := logging.New(logLevel, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	params, err := dataio.LoadTransParams(probFile)
	if err != nil {
		return fmt.Errorf("load HMM parameters: %w", err)
	}
	inputs, err := dataio.LoadInputs(inFile)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}
	log.Info().Int("signals", len(inputs)).Msg("input loaded")

	var truth [][]fujisaki.Command
	if truthFile != "" {
		truth, err = dataio.LoadCommands(truthFile)
		if err != nil {
			return fmt.Errorf("load reference commands: %w", err)
		}
		if len(truth) < len(inputs) {
			return fmt.Errorf("%d reference command sets for %d inputs", len(truth), len(inputs))
		}
	}

	var constraints [][]estimation.StochasticConstraint
	if constFile != "" {
		constraints, err = dataio.LoadConstraints(constFile)
		if err != nil {
			return fmt.Errorf("load constraints: %w", err)
		}
		log.Info().Int("constraint_sets", len(constraints)).Msg("constraints loaded")
	}

	opts := []fujisakiest.Option{
		fujisakiest.WithLogger(logging.Component(log, "runner")),
		fujisakiest.WithWorkers(workers),
	}
	if dbFile != "" {
		s, err := store.Open(dbFile)
		if err != nil {
			return err
		}
		defer s.Close()
		opts = append(opts, fujisakiest.WithStore(s))
	}
	reg := prometheus.NewRegistry()
	if metricsFile != "" {
		opts = append(opts, fujisakiest.WithMetrics(metrics.New(reg)))
	}
	runner := fujisakiest.NewRunner(cfg, params, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	results, err := runner.EstimateAll(ctx, inputs, constraints)
	if err != nil {
		return err
	}
	log.Info().
		Dur("elapsed", time.Since(start)).
		Str("batch_id", runner.BatchID()).
		Msg("estimation complete")

	if err := dataio.WriteFile(outFile, results); err != nil {
		return err
	}

	if truth != nil {
		perSignal := make([][]evaluation.TypeResult, 0, len(results)+1)
		for i, res := range results {
			perSignal = append(perSignal, evaluation.Evaluate(truth[i], res.Commands, timeLag, cfg.ZeroThreshold))
		}
		total := evaluation.Aggregate(perSignal)
		for _, t := range total {
			log.Info().
				Stringer("type", t.Type).
				Float64("recall", t.Recall()).
				Float64("precision", t.Precision()).
				Msg("evaluation")
		}
		perSignal = append(perSignal, total)
		if err := dataio.WriteFile(evalFile, perSignal); err != nil {
			return err
		}
	}

	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
