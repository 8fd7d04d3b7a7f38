// Package testutil holds helpers shared by histogram and service tests.
//
// Nothing here is part of the public API. The helpers fall into three
// groups: deterministic random data (NewRNG, Samples, GaussianSamples,
// ZipfKeys), key-name fixtures (Keys), and exact bucket counting
// (LinearCounts) used as ground truth when checking rendered payloads.
//
//	rng := testutil.NewRNG(42)
//	keys := testutil.Keys("asset", 16)
//	for _, k := range rng.ZipfKeys(keys, 1000, 1.5) {
//	    h.Record(k)
//	}
package testutil
