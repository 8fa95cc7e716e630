// Package parallel splits index ranges of CPU kernels across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how work is split.
type Config struct {
	Workers  int // Goroutines per call; <= 1 runs inline.
	MinChunk int // Smallest range handed to one goroutine.
}

// DefaultConfig uses one worker per CPU.
func DefaultConfig() Config {
	return Config{
		Workers:  runtime.NumCPU(),
		MinChunk: 16,
	}
}

// Sequential returns a Config that never starts goroutines.
func Sequential() Config {
	return Config{Workers: 1}
}

// chunk returns the range size per goroutine, or n when the work runs inline.
func (c Config) chunk(n int) int {
	if c.Workers <= 1 || n < 2*max(c.MinChunk, 1) {
		return n
	}
	return max((n+c.Workers-1)/c.Workers, c.MinChunk)
}

// Range calls fn on disjoint [start, end) ranges covering [0, n) and waits
// for all of them. fn must only write state owned by its range.
func Range(n int, cfg Config, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	size := cfg.chunk(n)
	if size >= n {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// For calls fn(i) for every i in [0, n).
func For(n int, cfg Config, fn func(i int)) {
	Range(n, cfg, func(start, end int) {
		for i := start; i < end; i++ {
			fn(i)
		}
	})
}
