// Package workerpool runs indexed tasks on a bounded number of goroutines
// and returns their results in task order.
package workerpool

import (
	"context"
	"sync"
)

// Chunk is a half-open index range [Start, End).
type Chunk struct {
	Index int
	Start int
	End   int
}

// Split cuts [from, to) into consecutive chunks of at most size indices.
func Split(from, to, size int) []Chunk {
	if size <= 0 {
		size = 1
	}
	if to <= from {
		return nil
	}
	chunks := make([]Chunk, 0, (to-from+size-1)/size)
	for start := from; start < to; start += size {
		end := start + size
		if end > to {
			end = to
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Start: start, End: end})
	}
	return chunks
}

// Map runs fn for every chunk on at most workers goroutines. results[i]
// belongs to chunks[i] regardless of completion order. Once ctx is done no
// further chunks are dispatched; chunks already running finish and the
// context error is returned alongside the partial results.
func Map[T any](ctx context.Context, workers int, chunks []Chunk, fn func(context.Context, Chunk) T) ([]T, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}
	results := make([]T, len(chunks))
	if len(chunks) == 0 {
		return results, ctx.Err()
	}

	jobs := make(chan Chunk)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				results[c.Index] = fn(ctx, c)
			}
		}()
	}

	var err error
dispatch:
	for _, c := range chunks {
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break dispatch
		case jobs <- c:
		}
	}
	close(jobs)
	wg.Wait()
	return results, err
}
