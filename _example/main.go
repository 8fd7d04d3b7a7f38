package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hupe1980/histogo"
	"github.com/hupe1980/histogo/blobstore"
	"github.com/hupe1980/histogo/core"
	"github.com/hupe1980/histogo/testutil"
	"github.com/hupe1980/histogo/uploader"
)

func main() {
	ctx := context.Background()

	seed := int64(4711)
	workers := 4
	samplesPerWorker := 25000

	dir, err := os.MkdirTemp("", "histogo-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	svc := histogo.New(
		histogo.WithBufferSize(1 << 14),
	)
	defer svc.Close()

	starts, err := svc.NewCount("app.starts")
	if err != nil {
		log.Fatal(err)
	}

	recovered, err := svc.NewFlag("crash.recovered")
	if err != nil {
		log.Fatal(err)
	}

	latency, err := svc.NewLinear("request.latency_ms", 0, 600, 12)
	if err != nil {
		log.Fatal(err)
	}

	loads, err := svc.NewKeyedCount("asset.loads")
	if err != nil {
		log.Fatal(err)
	}

	features, err := svc.NewKeyedFlag("feature.used")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("--- Record ---")
	fmt.Println("Session:", svc.SessionID())
	fmt.Println("Workers:", workers)
	fmt.Println("Samples:", workers*samplesPerWorker)

	rng := testutil.NewRNG(seed)
	assets := testutil.Keys("asset", 16)

	starts.Inc()
	recovered.Record()

	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		samples := rng.GaussianSamples(samplesPerWorker, 0, 600)
		picks := rng.ZipfKeys(assets, samplesPerWorker, 1.5)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range samples {
				latency.Record(samples[i])
				loads.Inc(picks[i])
			}
		}()
	}
	wg.Wait()

	features.Record("dark-mode")
	features.Record("offline")

	if err := svc.Flush(ctx); err != nil {
		log.Fatal(err)
	}

	end := time.Since(start)

	fmt.Printf("Seconds: %.2f\n", end.Seconds())
	fmt.Println("Dropped:", svc.Dropped())
	fmt.Println()

	fmt.Println("--- Payload ---")

	plain, err := svc.Payload(ctx, core.AllPlain, core.SimpleJSON)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("plain:", string(plain))

	keyed, err := svc.Payload(ctx, core.AllKeyed, core.SimpleJSON)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("keyed:", string(keyed))
	fmt.Println()

	fmt.Println("--- Snapshot ---")

	path := filepath.Join(dir, "state.hgo")
	if err := svc.SaveState(ctx, path); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Saved:", path)

	// A fresh service with the same registrations picks up where the
	// first one left off.
	restored := histogo.New()
	defer restored.Close()

	if _, err := restored.NewCount("app.starts"); err != nil {
		log.Fatal(err)
	}
	if _, err := restored.NewLinear("request.latency_ms", 0, 600, 12); err != nil {
		log.Fatal(err)
	}

	if err := restored.RestoreState(ctx, path); err != nil {
		log.Fatal(err)
	}

	plain, err = restored.Payload(ctx, core.AllPlain, core.SimpleJSON)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Restored:", string(plain))
	fmt.Println()

	fmt.Println("--- Upload ---")

	store, err := blobstore.NewLocalStore(filepath.Join(dir, "payloads"))
	if err != nil {
		log.Fatal(err)
	}

	up := uploader.New(svc, store,
		uploader.WithSubsets(core.AllPlain, core.AllKeyed),
		uploader.WithRateLimit(1<<20),
	)

	names, err := up.UploadOnce(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, name := range names {
		fmt.Println("Uploaded:", name)
	}

	current, err := blobstore.ReadAll(ctx, store, uploader.CurrentName)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Current:", string(current))
}
