package container

import "sync"

// RunOrdered runs fn(0..n-1) across up to workers goroutines, applying
// backpressure through a queue of size qsize (dispatch blocks once qsize
// jobs are in flight), and returns results/errors indexed by job number
// regardless of completion order — the file-order guarantee spec.md
// §4.6/§5 requires of a pooled slice decoder: "the pipeline dispatches
// slice-decode jobs asynchronously, but the iterator returned to the
// caller preserves the file order of slices."
//
// workers <= 1 runs every job on the calling goroutine, sequentially.
func RunOrdered(n, qsize, workers int, fn func(i int) (interface{}, error)) ([]interface{}, []error) {
	results := make([]interface{}, n)
	errs := make([]error, n)

	if workers <= 1 {
		for i := 0; i < n; i++ {
			results[i], errs[i] = fn(i)
		}
		return results, errs
	}
	if qsize <= 0 {
		qsize = workers
	}

	type job struct{ i int }
	jobs := make(chan job, qsize)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.i], errs[j.i] = fn(j.i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- job{i: i}
	}
	close(jobs)
	wg.Wait()

	return results, errs
}
