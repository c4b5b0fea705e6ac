// Package errors defines all exported error sentinels for the lenbatch library.
//
// This is the single source of truth for error values. Both the top-level
// lenbatch package and the keyfile package import from here, ensuring
// errors.Is checks work across package boundaries.
//
// Construction failures fall into two categories. Every specific sentinel
// below wraps exactly one of them, so callers can test either the precise
// cause or the category:
//
//	errors.Is(err, lberrors.ErrInvalidRatio)   // precise
//	errors.Is(err, lberrors.ErrConfiguration)  // category
package errors

import (
	"errors"
	"fmt"
)

// Categories
var (
	// ErrConfiguration reports missing, conflicting or out-of-range options.
	ErrConfiguration = errors.New("lenbatch: invalid configuration")

	// ErrDomain reports a key that cannot be placed under the configured policy.
	ErrDomain = errors.New("lenbatch: key outside sampler domain")
)

// Configuration errors
var (
	ErrEmptyKeys                = fmt.Errorf("%w: no keys supplied", ErrConfiguration)
	ErrInvalidArity             = fmt.Errorf("%w: key tuples must have at least one dimension", ErrConfiguration)
	ErrArityMismatch            = fmt.Errorf("%w: key arity mismatch", ErrConfiguration)
	ErrInvalidBatchSize         = fmt.Errorf("%w: batch size must be positive", ErrConfiguration)
	ErrBucketsUnspecified       = fmt.Errorf("%w: one of num buckets or bucket keys is required", ErrConfiguration)
	ErrBucketsConflict          = fmt.Errorf("%w: num buckets and bucket keys are mutually exclusive", ErrConfiguration)
	ErrInvalidNumBuckets        = fmt.Errorf("%w: num buckets must be positive", ErrConfiguration)
	ErrInvalidRatio             = fmt.Errorf("%w: ratio must be within [0, 1]", ErrConfiguration)
	ErrInvalidMult              = fmt.Errorf("%w: window multiplier must be positive", ErrConfiguration)
	ErrInvalidNumSamples        = fmt.Errorf("%w: num samples must be positive", ErrConfiguration)
	ErrInvalidNumParts          = fmt.Errorf("%w: num parts must be positive", ErrConfiguration)
	ErrPartIndexOutOfRange      = fmt.Errorf("%w: part index must be within [0, num parts)", ErrConfiguration)
	ErrInvalidRepeat            = fmt.Errorf("%w: repeat must be positive", ErrConfiguration)
	ErrInvalidBudget            = fmt.Errorf("%w: budget must be positive or negative for unlimited", ErrConfiguration)
	ErrUnboundedBudget          = fmt.Errorf("%w: at least one of max tokens or max sentences must be bounded", ErrConfiguration)
	ErrInvalidBatchSizeMultiple = fmt.Errorf("%w: batch size multiple must be at least 1", ErrConfiguration)
	ErrUnknownScheme            = fmt.Errorf("%w: unknown bucket scheme", ErrConfiguration)
	ErrUnknownSortType          = fmt.Errorf("%w: unknown sort type", ErrConfiguration)
	ErrUnknownReduction         = fmt.Errorf("%w: unknown key reduction", ErrConfiguration)
	ErrUnknownSampler           = fmt.Errorf("%w: unknown sampler kind", ErrConfiguration)
	ErrNilSampler               = fmt.Errorf("%w: sampler is nil", ErrConfiguration)
)

// Domain errors
var (
	ErrNegativeKey       = fmt.Errorf("%w: keys must be non-negative", ErrDomain)
	ErrKeyExceedsBuckets = fmt.Errorf("%w: key exceeds every bucket", ErrDomain)
	ErrItemExceedsBudget = fmt.Errorf("%w: item length exceeds max tokens", ErrDomain)
)

// Plan errors
var (
	ErrCoverage = errors.New("lenbatch: partition does not cover the index set")
)

// Key file errors
var (
	ErrInvalidMagic     = errors.New("lenbatch: invalid key file magic number")
	ErrInvalidVersion   = errors.New("lenbatch: unsupported key file version")
	ErrTruncatedFile    = errors.New("lenbatch: key file is truncated")
	ErrCorruptedFile    = errors.New("lenbatch: key file is corrupted")
	ErrChecksumFailed   = errors.New("lenbatch: key file checksum verification failed")
	ErrKeyCountMismatch = errors.New("lenbatch: key count mismatch")
	ErrKeyTooLarge      = errors.New("lenbatch: key component exceeds 32 bits")
	ErrWriterClosed     = errors.New("lenbatch: key file writer is closed")
	ErrFileClosed       = errors.New("lenbatch: key file is closed")
)
