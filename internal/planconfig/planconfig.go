// Package planconfig reads sampler settings for the command line tools from
// YAML.
//
// Example:
//
//	sampler: bounded_budget
//	seed: 42
//	shuffle: true
//	max_tokens: 4096
//	batch_size_multiple: 8
//	sort_type: max
package planconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/tamirms/lenbatch"
	lberrors "github.com/tamirms/lenbatch/errors"
)

// Sampler kinds.
const (
	KindFixedBucket   = "fixed_bucket"
	KindSortedBucket  = "sorted_bucket"
	KindBoundedBudget = "bounded_budget"
)

// Config mirrors the sampler options. Pointer fields distinguish "unset" from
// the zero value so library defaults apply.
type Config struct {
	Sampler string  `yaml:"sampler"`
	Seed    *uint64 `yaml:"seed"`
	Shuffle bool    `yaml:"shuffle"`

	// fixed_bucket, sorted_bucket
	BatchSize int `yaml:"batch_size"`

	// fixed_bucket
	NumBuckets    *int     `yaml:"num_buckets"`
	BucketKeys    [][]int  `yaml:"bucket_keys"`
	Scheme        string   `yaml:"scheme"`
	ExpStep       float64  `yaml:"exp_step"`
	Ratio         *float64 `yaml:"ratio"`
	AverageLength bool     `yaml:"average_length"`

	// sorted_bucket
	Mult *int `yaml:"mult"`

	// bounded_budget
	MaxTokens         *int   `yaml:"max_tokens"`
	MaxSentences      *int   `yaml:"max_sentences"`
	BatchSizeMultiple *int   `yaml:"batch_size_multiple"`
	SortType          string `yaml:"sort_type"`
	Reduction         string `yaml:"reduction"`
	PaddedBudget      bool   `yaml:"padded_budget"`
	StrictBudget      bool   `yaml:"strict_budget"`

	// sharding
	EvenSize bool `yaml:"even_size"`
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	switch cfg.Sampler {
	case KindFixedBucket, KindSortedBucket, KindBoundedBudget:
	case "":
		return nil, fmt.Errorf("%w: sampler is required", lberrors.ErrUnknownSampler)
	default:
		return nil, fmt.Errorf("%w: %q", lberrors.ErrUnknownSampler, cfg.Sampler)
	}
	return &cfg, nil
}

// Options converts the config to sampler options.
func (c *Config) Options() ([]lenbatch.Option, error) {
	opts := []lenbatch.Option{
		lenbatch.WithShuffle(c.Shuffle),
		lenbatch.WithAverageLength(c.AverageLength),
		lenbatch.WithPaddedBudget(c.PaddedBudget),
		lenbatch.WithStrictBudget(c.StrictBudget),
		lenbatch.WithEvenSize(c.EvenSize),
	}
	if c.Seed != nil {
		opts = append(opts, lenbatch.WithSeed(*c.Seed))
	}

	if c.NumBuckets != nil {
		opts = append(opts, lenbatch.WithNumBuckets(*c.NumBuckets))
	}
	if c.BucketKeys != nil {
		bk, err := lenbatch.TupleKeys(c.BucketKeys)
		if err != nil {
			return nil, fmt.Errorf("bucket_keys: %w", err)
		}
		opts = append(opts, lenbatch.WithBucketKeys(bk))
	}
	scheme, err := lenbatch.SchemeByName(c.Scheme)
	if err != nil {
		return nil, err
	}
	if _, ok := scheme.(lenbatch.ExponentialWidthScheme); ok && c.ExpStep != 0 {
		scheme = lenbatch.ExponentialWidth(c.ExpStep)
	}
	opts = append(opts, lenbatch.WithBucketScheme(scheme))
	if c.Ratio != nil {
		opts = append(opts, lenbatch.WithRatio(*c.Ratio))
	}

	if c.Mult != nil {
		opts = append(opts, lenbatch.WithMult(*c.Mult))
	}

	if c.MaxTokens != nil {
		opts = append(opts, lenbatch.WithMaxTokens(*c.MaxTokens))
	}
	if c.MaxSentences != nil {
		opts = append(opts, lenbatch.WithMaxSentences(*c.MaxSentences))
	}
	if c.BatchSizeMultiple != nil {
		opts = append(opts, lenbatch.WithBatchSizeMultiple(*c.BatchSizeMultiple))
	}
	sortType, err := lenbatch.SortTypeByName(c.SortType)
	if err != nil {
		return nil, err
	}
	reduction, err := lenbatch.ReductionByName(c.Reduction)
	if err != nil {
		return nil, err
	}
	opts = append(opts, lenbatch.WithSortType(sortType), lenbatch.WithReduction(reduction))
	return opts, nil
}

// NewSampler builds the configured sampler over keys. logger receives the
// construction summary.
func (c *Config) NewSampler(keys lenbatch.Keys, logger logr.Logger) (lenbatch.BatchSampler, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, lenbatch.WithLogger(logger))

	var s lenbatch.BatchSampler
	switch c.Sampler {
	case KindFixedBucket:
		s, err = lenbatch.NewFixedBucketSampler(keys, c.BatchSize, opts...)
	case KindSortedBucket:
		s, err = lenbatch.NewSortedBucketSampler(keys, c.BatchSize, opts...)
	case KindBoundedBudget:
		s, err = lenbatch.NewBoundedBudgetSampler(keys, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", lberrors.ErrUnknownSampler, c.Sampler)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
