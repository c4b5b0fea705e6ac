package lenbatch

import (
	"fmt"
	"math"

	lberrors "github.com/tamirms/lenbatch/errors"
	intbits "github.com/tamirms/lenbatch/internal/bits"
)

// defaultExpStep is the default growth factor of ExponentialWidth.
const defaultExpStep = 1.1

// BucketScheme computes bucket boundaries for a key range.
//
// Implementations must:
//   - return exactly numBuckets values
//   - return non-decreasing values within [minKey, maxKey]
//   - return maxKey as the last value, so every key is bounded
//   - be deterministic
//
// Each value is the inclusive upper bound of one bucket. When numBuckets
// exceeds the number of distinct keys, neighbouring values may coincide; the
// sampler merges them.
type BucketScheme interface {
	Boundaries(minKey, maxKey, numBuckets int) []int
}

// ConstantWidth spaces boundaries equally:
// boundary[i] = minKey + (i+1)*(maxKey-minKey)/numBuckets.
type ConstantWidth struct{}

// Boundaries implements BucketScheme for ConstantWidth.
func (ConstantWidth) Boundaries(minKey, maxKey, numBuckets int) []int {
	if numBuckets <= 0 {
		return nil
	}
	span := uint64(maxKey - minKey)
	out := make([]int, numBuckets)
	for i := range out {
		out[i] = minKey + int(intbits.MulDiv(span, uint64(i+1), uint64(numBuckets)))
	}
	return out
}

// String returns the scheme name.
func (ConstantWidth) String() string { return "constant" }

// LinearWidth makes bucket widths grow linearly with the bucket index, so the
// later buckets holding fewer, longer items are wider. Width i is
// proportional to i+1 and all widths sum to maxKey-minKey.
type LinearWidth struct{}

// Boundaries implements BucketScheme for LinearWidth.
func (LinearWidth) Boundaries(minKey, maxKey, numBuckets int) []int {
	if numBuckets <= 0 {
		return nil
	}
	span := uint64(maxKey - minKey)
	n := uint64(numBuckets)
	total := n * (n + 1)
	out := make([]int, numBuckets)
	for i := range out {
		k := uint64(i + 1)
		out[i] = minKey + int(intbits.MulDiv(span, k*(k+1), total))
	}
	return out
}

// String returns the scheme name.
func (LinearWidth) String() string { return "linear" }

// ExponentialWidthScheme makes bucket widths grow geometrically by Step. The
// initial width is solved so that the last boundary reaches maxKey.
type ExponentialWidthScheme struct {
	Step float64
}

// ExponentialWidth returns a geometric width scheme with the given growth
// factor. Common values are 1.1 to 1.5. Steps <= 1 (or NaN) fall back to 1.1.
func ExponentialWidth(step float64) ExponentialWidthScheme {
	if !(step > 1) || math.IsInf(step, 1) {
		step = defaultExpStep
	}
	return ExponentialWidthScheme{Step: step}
}

// Boundaries implements BucketScheme for ExponentialWidthScheme.
//
// Boundary i sits at the fraction (step^(i+1) - 1) / (step^n - 1) of the range.
// The fraction is evaluated as step^(i+1-n) * (1 - step^-(i+1)) / (1 - step^-n),
// which stays finite for any bucket count.
func (s ExponentialWidthScheme) Boundaries(minKey, maxKey, numBuckets int) []int {
	if numBuckets <= 0 {
		return nil
	}
	step := s.Step
	if !(step > 1) || math.IsInf(step, 1) {
		step = defaultExpStep
	}
	span := float64(maxKey - minKey)
	n := float64(numBuckets)
	denom := -math.Expm1(-n * math.Log(step)) // 1 - step^-n
	out := make([]int, numBuckets)
	prev := minKey
	for i := range out {
		a := float64(i + 1)
		frac := math.Pow(step, a-n) * -math.Expm1(-a*math.Log(step)) / denom
		v := minKey + int(math.Round(span*frac))
		v = min(max(v, prev), maxKey)
		out[i] = v
		prev = v
	}
	out[numBuckets-1] = maxKey
	return out
}

// String returns the scheme name.
func (s ExponentialWidthScheme) String() string {
	return fmt.Sprintf("exponential(%g)", s.Step)
}

// SchemeByName returns the scheme for "constant", "linear" or "exponential".
// The exponential scheme uses the default step.
func SchemeByName(name string) (BucketScheme, error) {
	switch name {
	case "constant", "":
		return ConstantWidth{}, nil
	case "linear":
		return LinearWidth{}, nil
	case "exponential":
		return ExponentialWidth(defaultExpStep), nil
	}
	return nil, fmt.Errorf("%w: %q", lberrors.ErrUnknownScheme, name)
}
