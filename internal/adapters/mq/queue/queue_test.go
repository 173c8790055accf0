package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue[string](WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, "update-1"); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}
	if got := <-q.Dequeue(); got != "update-1" {
		t.Errorf("expected update-1, got %v", got)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(2))
	ctx := context.Background()

	for i := range 2 {
		if err := q.Enqueue(ctx, i); err != nil {
			t.Fatalf("expected enqueue %d to succeed, got %v", i, err)
		}
	}
	if err := q.Enqueue(ctx, 3); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if q.Cap() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Cap())
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(4))
	ctx := context.Background()

	_ = q.Enqueue(ctx, 1)
	_ = q.Enqueue(ctx, 2)
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Enqueue(ctx, 3); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var drained []int
	for v := range q.Dequeue() {
		drained = append(drained, v)
	}
	if len(drained) != 2 || drained[0] != 1 || drained[1] != 2 {
		t.Errorf("expected queued items to drain in order, got %v", drained)
	}
}

func TestInMemoryQueue_ConcurrentClose(t *testing.T) {
	q := NewInMemoryQueue[int](WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				_ = q.Enqueue(ctx, g*100+i)
			}
		}()
	}
	_ = q.Close()
	wg.Wait()

	for range q.Dequeue() {
	}
}

func TestPartitioned_SameKeySameQueue(t *testing.T) {
	p := NewPartitioned[int](4, WithCapacity(10))
	ctx := context.Background()

	if p.Count() != 4 || p.Cap() != 40 {
		t.Fatalf("expected 4 partitions of 10, got %d/%d", p.Count(), p.Cap())
	}

	const key = int64(42)
	for i := range 5 {
		if err := p.Enqueue(ctx, key, i); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	q := p.Queue(p.Partition(key))
	if q.Len() != 5 || p.Len() != 5 {
		t.Fatalf("expected all items in partition %d, got %d of %d", p.Partition(key), q.Len(), p.Len())
	}
	for want := range 5 {
		if got := <-q.Dequeue(); got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}
}

func TestPartitioned_NegativeKeys(t *testing.T) {
	p := NewPartitioned[int](3)
	for _, key := range []int64{-1, -7, 0, 1 << 62} {
		if i := p.Partition(key); i < 0 || i >= 3 {
			t.Errorf("key %d mapped to partition %d", key, i)
		}
	}
}

func TestPartitioned_Close(t *testing.T) {
	p := NewPartitioned[int](2)
	_ = p.Close()
	if err := p.Enqueue(context.Background(), 1, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
