// Lenbatch-plan simulates the workers of a data-parallel job: every part
// independently builds the configured sampler over a key file, takes its
// shard of one epoch, and the combined plan is checked for coverage.
//
// Usage:
//
//	lenbatch-plan --keys train.lbkf --config plan.yaml --parts 8 --epoch 3
//
// Matching fingerprints across runs (or machines) show that every worker
// derives the same batches from the same seed.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tamirms/lenbatch"
	"github.com/tamirms/lenbatch/internal/planconfig"
	"github.com/tamirms/lenbatch/keyfile"
)

type options struct {
	keysPath   string
	configPath string
	parts      int
	epoch      uint64
	workers    int
	verbosity  int
	verify     bool
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.keysPath, "keys", o.keysPath, "Key file written by keyfile.Write or cmd/bench --out.")
	fs.StringVar(&o.configPath, "config", o.configPath, "YAML sampler configuration.")
	fs.IntVar(&o.parts, "parts", o.parts, "Number of simulated workers.")
	fs.Uint64Var(&o.epoch, "epoch", o.epoch, "Epoch to materialize.")
	fs.IntVar(&o.workers, "workers", o.workers, "Parts planned concurrently; 0 means all.")
	fs.IntVarP(&o.verbosity, "verbose", "v", o.verbosity, "Log verbosity; 1 logs sampler construction.")
	fs.BoolVar(&o.verify, "verify-checksum", o.verify, "Verify the key file checksum before planning.")
}

func (o *options) validate() error {
	if o.keysPath == "" {
		return errors.New("--keys is required")
	}
	if o.configPath == "" {
		return errors.New("--config is required")
	}
	if o.parts <= 0 {
		return fmt.Errorf("invalid value %d for flag --parts: must be positive", o.parts)
	}
	return nil
}

func newLogger(verbosity int) (logr.Logger, func(), error) {
	zc := zap.NewDevelopmentConfig()
	// logr V(n) maps to zap level -n
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	zl, err := zc.Build()
	if err != nil {
		return logr.Discard(), func() {}, err
	}
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }, nil
}

func main() {
	opts := &options{parts: 1, verify: true}
	fs := pflag.NewFlagSet("lenbatch-plan", pflag.ExitOnError)
	opts.addFlags(fs)
	_ = fs.Parse(os.Args[1:])

	if err := opts.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		os.Exit(2)
	}

	logger, flush, err := newLogger(opts.verbosity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error(err, "planning failed")
		flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options, logger logr.Logger) error {
	cfg, err := planconfig.Load(opts.configPath)
	if err != nil {
		return err
	}

	f, err := keyfile.Open(opts.keysPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if opts.verify {
		if err := f.Verify(); err != nil {
			return fmt.Errorf("%s: %w", opts.keysPath, err)
		}
	}
	keys, err := f.Keys()
	if err != nil {
		return err
	}
	logger.Info("keys loaded", "path", opts.keysPath, "items", keys.Len(), "arity", keys.Arity())

	plan, err := lenbatch.PlanParts(ctx, opts.parts,
		func(part int) (lenbatch.BatchSampler, error) {
			return cfg.NewSampler(keys, logger.WithValues("part", part))
		},
		lenbatch.WithEpoch(opts.epoch),
		lenbatch.WithEvenSize(cfg.EvenSize),
		lenbatch.WithWorkers(opts.workers),
		lenbatch.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if err := plan.Verify(keys.Len()); err != nil {
		return err
	}
	logger.Info("plan verified", "sampler", cfg.Sampler, "parts", opts.parts,
		"epoch", opts.epoch, "batches", plan.NumBatches())

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "PART\tBATCHES\tINDICES\tFINGERPRINT")
	for _, p := range plan.Parts {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%016x\n", p.Part, len(p.Batches), len(lenbatch.Flatten(p.Batches)), p.Fingerprint)
	}
	return tw.Flush()
}
