// Package batch fans a list of phone lookups out over a bounded
// worker pool while preserving the caller-supplied ordering. The
// engine itself never spawns goroutines; all concurrency for bulk
// lookups lives here.
package batch

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"phone-lookup/internal/phonedb"
)

// Result pairs one input phone number with its outcome. Exactly one
// of Record and Err is set. Index is the phone's position in the
// input slice.
type Result struct {
	Phone  string
	Index  int
	Record *phonedb.Record
	Err    error
}

// job carries a phone together with its original position so results
// can be reassembled by input order, not completion order.
type job struct {
	index int
	phone string
}

// Lookup resolves all phones concurrently using at most workers
// goroutines (runtime.NumCPU() when workers <= 0) and returns one
// Result per input, in input order. Per-phone failures are recorded
// in the Result, never aborting the rest of the batch.
func Lookup(eng *phonedb.Engine, phones []string, workers int) []Result {
	results := make([]Result, len(phones))
	if len(phones) == 0 {
		return results
	}

	poolSize := workers
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}
	if poolSize > len(phones) {
		poolSize = len(phones)
	}

	jobs := make(chan job, len(phones))
	for i, phone := range phones {
		jobs <- job{index: i, phone: phone}
	}
	close(jobs)

	// Each worker writes only to its job's slot, so the results slice
	// needs no lock.
	var eg errgroup.Group
	for w := 0; w < poolSize; w++ {
		eg.Go(func() error {
			for j := range jobs {
				rec, err := eng.Resolve(j.phone)
				results[j.index] = Result{
					Phone:  j.phone,
					Index:  j.index,
					Record: rec,
					Err:    err,
				}
			}
			return nil
		})
	}

	// Workers never return errors; Wait is only a join point.
	_ = eg.Wait()

	return results
}

// Succeeded counts the results that resolved without error.
func Succeeded(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}
