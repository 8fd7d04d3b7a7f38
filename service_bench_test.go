package histogo

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/histogo/core"
	"github.com/hupe1980/histogo/testutil"
)

func BenchmarkRecordPlain(b *testing.B) {
	svc := New(WithBufferSize(1 << 16))
	defer svc.Close()

	count, err := svc.NewCount("bench.count")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		count.Inc()
	}
}

func BenchmarkRecordPlainParallel(b *testing.B) {
	svc := New(WithBufferSize(1 << 16))
	defer svc.Close()

	count, err := svc.NewCount("bench.count")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			count.Inc()
		}
	})
}

func BenchmarkRecordKeyed(b *testing.B) {
	svc := New(WithBufferSize(1 << 16))
	defer svc.Close()

	count, err := svc.NewKeyedCount("bench.keyed")
	if err != nil {
		b.Fatal(err)
	}

	rng := testutil.NewRNG(42)
	keys := rng.ZipfKeys(testutil.Keys("key", 64), 1<<12, 1.5)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		count.Inc(keys[i%len(keys)])
	}
}

func BenchmarkRecordLinear(b *testing.B) {
	svc := New(WithBufferSize(1 << 16))
	defer svc.Close()

	latency, err := svc.NewLinear("bench.latency", 0, 10000, 100)
	if err != nil {
		b.Fatal(err)
	}

	rng := testutil.NewRNG(42)
	samples := rng.GaussianSamples(1<<12, 0, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		latency.Record(samples[i%len(samples)])
	}
}

func BenchmarkPayload(b *testing.B) {
	ctx := context.Background()

	for _, histograms := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("histograms=%d", histograms), func(b *testing.B) {
			svc := New()
			defer svc.Close()

			for i := 0; i < histograms; i++ {
				l, err := svc.NewLinear(fmt.Sprintf("bench.h%d", i), 0, 1000, 50)
				if err != nil {
					b.Fatal(err)
				}
				l.Record(uint32(i))
			}
			if err := svc.Flush(ctx); err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := svc.Payload(ctx, core.AllPlain, core.SimpleJSON); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkPayloadDelta(b *testing.B) {
	ctx := context.Background()

	svc := New()
	defer svc.Close()

	count, err := svc.NewCount("bench.count")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		count.Inc()
		if _, err := svc.PayloadDelta(ctx, core.AllPlain, core.SimpleJSON); err != nil {
			b.Fatal(err)
		}
	}
}
