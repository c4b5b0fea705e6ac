// Bench measures sampler construction and per-epoch cost on synthetic length
// keys.
//
// Usage:
//
//	go run ./cmd/bench --items 5000000 --arity 2 --batch 64
//
// Flags:
//
//	--items       Number of items (default: 5,000,000)
//	--arity       Dimensions per key, 1 or more (default: 1)
//	--min-len     Smallest generated length (default: 1)
//	--max-len     Largest generated length (default: 512)
//	--batch       Batch size for bucket samplers (default: 64)
//	--buckets     Number of fixed buckets (default: 32)
//	--max-tokens  Token budget for the bounded budget sampler (default: 16384)
//	--parts       Parts for the sharded iterator (default: 8)
//	--seed        Key generation seed (default: 0x1234)
//	--out         Also write the keys to this key file
package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/spaolacci/murmur3"
	"github.com/spf13/pflag"

	"github.com/tamirms/lenbatch"
	intbits "github.com/tamirms/lenbatch/internal/bits"
	"github.com/tamirms/lenbatch/keyfile"
)

// getMaxRSS returns the maximum resident set size in bytes.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// syntheticKeys derives key d of item i from a seeded murmur3 hash of (i, d),
// so the same flags always produce the same keys.
func syntheticKeys(n, arity, minLen, maxLen int, seed uint32) ([][]int, error) {
	if minLen < 0 || maxLen < minLen {
		return nil, fmt.Errorf("invalid length range [%d, %d]", minLen, maxLen)
	}
	span := uint32(maxLen - minLen + 1)
	keys := make([][]int, n)
	var buf [8]byte
	for i := range keys {
		key := make([]int, arity)
		for d := range key {
			binary.LittleEndian.PutUint32(buf[0:4], uint32(i))
			binary.LittleEndian.PutUint32(buf[4:8], uint32(d))
			h := murmur3.Sum64WithSeed(buf[:], seed)
			key[d] = minLen + int(intbits.FastRange32(h, span))
		}
		keys[i] = key
	}
	return keys, nil
}

type result struct {
	name      string
	build     time.Duration
	epoch     time.Duration
	batches   int
	maxRSSInc uint64
}

func measure(name string, build func() (lenbatch.BatchSampler, error)) (result, error) {
	rssBefore := getMaxRSS()
	start := time.Now()
	s, err := build()
	if err != nil {
		return result{}, fmt.Errorf("%s: %w", name, err)
	}
	built := time.Since(start)

	start = time.Now()
	batches := s.Epoch(1)
	epoch := time.Since(start)

	return result{
		name:      name,
		build:     built,
		epoch:     epoch,
		batches:   len(batches),
		maxRSSInc: getMaxRSS() - rssBefore,
	}, nil
}

func main() {
	items := pflag.Int("items", 5_000_000, "number of items")
	arity := pflag.Int("arity", 1, "dimensions per key")
	minLen := pflag.Int("min-len", 1, "smallest generated length")
	maxLen := pflag.Int("max-len", 512, "largest generated length")
	batchSize := pflag.Int("batch", 64, "batch size for bucket samplers")
	numBuckets := pflag.Int("buckets", 32, "number of fixed buckets")
	maxTokens := pflag.Int("max-tokens", 16384, "token budget for the bounded budget sampler")
	parts := pflag.Int("parts", 8, "parts for the sharded iterator")
	seed := pflag.Uint32("seed", 0x1234, "key generation seed")
	out := pflag.String("out", "", "also write the keys to this key file")
	cpuprofile := pflag.String("cpuprofile", "", "write cpu profile to file")
	pflag.Parse()

	if *arity < 1 {
		fmt.Fprintf(os.Stderr, "arity must be at least 1, got %d\n", *arity)
		os.Exit(2)
	}

	fmt.Println("Generating keys...")
	genStart := time.Now()
	raw, err := syntheticKeys(*items, *arity, *minLen, *maxLen, *seed)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	keys, err := lenbatch.TupleKeys(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	genDuration := time.Since(genStart)

	if *out != "" {
		fmt.Printf("Writing %s...\n", *out)
		if err := keyfile.Write(*out, keys); err != nil {
			fmt.Fprintf(os.Stderr, "write key file: %v\n", err)
			os.Exit(1)
		}
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	shuffled := []lenbatch.Option{lenbatch.WithShuffle(true)}
	runs := []struct {
		name  string
		build func() (lenbatch.BatchSampler, error)
	}{
		{"fixed bucket", func() (lenbatch.BatchSampler, error) {
			return lenbatch.NewFixedBucketSampler(keys, *batchSize,
				append(shuffled, lenbatch.WithNumBuckets(*numBuckets), lenbatch.WithRatio(0.5))...)
		}},
		{"fixed bucket exp", func() (lenbatch.BatchSampler, error) {
			return lenbatch.NewFixedBucketSampler(keys, *batchSize,
				append(shuffled, lenbatch.WithNumBuckets(*numBuckets), lenbatch.WithBucketScheme(lenbatch.ExponentialWidth(1.2)))...)
		}},
		{"sorted bucket", func() (lenbatch.BatchSampler, error) {
			return lenbatch.NewSortedBucketSampler(keys, *batchSize, shuffled...)
		}},
		{"bounded budget", func() (lenbatch.BatchSampler, error) {
			return lenbatch.NewBoundedBudgetSampler(keys,
				append(shuffled, lenbatch.WithMaxTokens(*maxTokens), lenbatch.WithBatchSizeMultiple(8))...)
		}},
		{"sharded budget", func() (lenbatch.BatchSampler, error) {
			s, err := lenbatch.NewBoundedBudgetSampler(keys, append(shuffled, lenbatch.WithMaxTokens(*maxTokens))...)
			if err != nil {
				return nil, err
			}
			return lenbatch.NewShardedIterator(s, *parts, 0, lenbatch.WithEvenSize(true))
		}},
	}

	var results []result
	for _, r := range runs {
		fmt.Printf("Running %s...\n", r.name)
		res, err := measure(r.name, r.build)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		results = append(results, res)
	}

	fmt.Printf("\n")
	fmt.Printf("Items: %d, arity: %d, lengths: [%d, %d], generated in %.2f sec\n",
		keys.Len(), keys.Arity(), *minLen, *maxLen, genDuration.Seconds())
	fmt.Printf("╔════════════════════╦════════════╦════════════╦════════════╦════════════╗\n")
	fmt.Printf("║ Sampler            ║ Build sec  ║ Epoch sec  ║ Batches    ║ +RSS MB    ║\n")
	fmt.Printf("╠════════════════════╬════════════╬════════════╬════════════╬════════════╣\n")
	for _, r := range results {
		fmt.Printf("║ %-18s ║ %10.3f ║ %10.3f ║ %10d ║ %10.1f ║\n",
			r.name, r.build.Seconds(), r.epoch.Seconds(), r.batches, float64(r.maxRSSInc)/1_000_000)
	}
	fmt.Printf("╚════════════════════╩════════════╩════════════╩════════════╩════════════╝\n")
}
