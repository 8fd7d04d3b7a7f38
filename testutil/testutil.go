package testutil

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/hupe1980/histogo/core"
)

// RNG is a seeded random source for tests and benchmarks. A given seed
// always yields the same stream, and the lock makes it safe to share
// across the worker goroutines of a stress test.
type RNG struct {
	mu   sync.Mutex
	seed int64
	rand *rand.Rand
}

func pcg(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s*0x9e3779b97f4a7c15+1))
}

// NewRNG creates an RNG with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{seed: seed, rand: pcg(seed)}
}

// Reset rewinds the stream to its start.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = pcg(r.seed)
}

// Intn returns a value in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Uint32n returns a value in [0, n).
func (r *RNG) Uint32n(n uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint32N(n)
}

// Samples returns n uniform values in [0, maxVal).
func (r *RNG) Samples(n int, maxVal uint32) []uint32 {
	return r.SamplesInRange(n, 0, maxVal)
}

// SamplesInRange returns n uniform values in [minVal, maxVal). It locks
// once for the whole batch.
func (r *RNG) SamplesInRange(n int, minVal, maxVal uint32) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint32, n)
	for i := range out {
		out[i] = minVal + r.rand.Uint32N(maxVal-minVal)
	}
	return out
}

// GaussianSamples returns n values from a normal distribution centered in
// [minVal, maxVal] and clamped to it, so the interior buckets of a linear
// layout get exercised rather than the underflow and overflow edges.
func (r *RNG) GaussianSamples(n int, minVal, maxVal uint32) []uint32 {
	lo, hi := float64(minVal), float64(maxVal)
	mean := (lo + hi) / 2
	dev := (hi - lo) / 6

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uint32, n)
	for i := range out {
		v := math.Round(mean + r.rand.NormFloat64()*dev)
		out[i] = uint32(min(max(v, lo), hi))
	}
	return out
}

// Keys returns n key names with the given prefix, e.g. Keys("asset", 3)
// gives ["asset-0" "asset-1" "asset-2"].
func Keys(prefix string, n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return keys
}

// zipfCDF builds the cumulative weights for ranks 1..n with skew s.
func zipfCDF(n int, s float64) []float64 {
	cdf := make([]float64, n)
	var sum float64
	for k := 1; k <= n; k++ {
		sum += 1 / math.Pow(float64(k), s)
		cdf[k-1] = sum
	}
	return cdf
}

// ZipfKeys draws n picks from keys with Zipfian skew, so a handful of keys
// take most of the traffic the way real telemetry keys do. Larger s skews
// harder toward the head. The cumulative table is built once per call and
// each draw is an inverse-transform lookup.
func (r *RNG) ZipfKeys(keys []string, n int, s float64) []string {
	cdf := zipfCDF(len(keys), s)
	total := cdf[len(cdf)-1]

	r.mu.Lock()
	defer r.mu.Unlock()

	picks := make([]string, n)
	for i := range picks {
		u := r.rand.Float64() * total
		picks[i] = keys[sort.SearchFloat64s(cdf, u)]
	}
	return picks
}

// LinearCounts computes the exact per-bucket counts the layout produces for
// the samples. Ground truth for verifying rendered output.
func LinearCounts(layout core.LinearBuckets, samples []uint32) []uint32 {
	counts := make([]uint32, layout.Buckets())
	for _, v := range samples {
		counts[layout.Bucket(v)]++
	}
	return counts
}

// EnumCounts computes the exact per-variant counts for the samples, folding
// out-of-range values into the last variant the way enum histograms do.
func EnumCounts(variants int, samples []uint32) []uint32 {
	counts := make([]uint32, variants)
	for _, v := range samples {
		i := int(v)
		if i >= variants {
			i = variants - 1
		}
		counts[i]++
	}
	return counts
}
