package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestSplit(t *testing.T) {
	chunks := Split(50, 175, 50)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Start != 50 || chunks[2].End != 175 || chunks[2].Start != 150 {
		t.Fatalf("unexpected chunks %+v", chunks)
	}
	if Split(10, 10, 5) != nil {
		t.Fatalf("empty range should produce no chunks")
	}
}

func TestMapKeepsChunkOrder(t *testing.T) {
	chunks := Split(0, 1000, 7)
	res, err := Map(context.Background(), 8, chunks, func(_ context.Context, c Chunk) int {
		sum := 0
		for i := c.Start; i < c.End; i++ {
			sum += i
		}
		return sum
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		want := 0
		for j := c.Start; j < c.End; j++ {
			want += j
		}
		if res[i] != want {
			t.Fatalf("chunk %d: got %d want %d", i, res[i], want)
		}
	}
}

func TestMapStopsDispatchOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	chunks := Split(0, 100, 1)
	var ran int32
	_, err := Map(ctx, 1, chunks, func(_ context.Context, c Chunk) int {
		if atomic.AddInt32(&ran, 1) == 3 {
			cancel()
		}
		return c.Index
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := atomic.LoadInt32(&ran); n >= int32(len(chunks)) {
		t.Fatalf("expected dispatch to stop early, ran %d", n)
	}
}
