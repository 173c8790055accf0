package queue

import (
	"context"

	"github.com/varvaraparamon/final-eval-bot/pkg/metrics"
)

// Partitioned is a fixed set of queues. Items with the same key always land
// in the same partition, so a single consumer per partition sees them in
// enqueue order.
type Partitioned[T any] struct {
	parts []*InMemoryQueue[T]
}

// NewPartitioned creates n queues, each configured with opts.
func NewPartitioned[T any](n int, opts ...Option) *Partitioned[T] {
	if n < 1 {
		n = 1
	}
	p := &Partitioned[T]{parts: make([]*InMemoryQueue[T], n)}
	for i := range p.parts {
		p.parts[i] = NewInMemoryQueue[T](opts...)
	}
	metrics.UpdateQueueCapacity(p.Cap())
	metrics.UpdateQueueSize(0)
	return p
}

// Partition returns the index of the queue serving key.
func (p *Partitioned[T]) Partition(key int64) int {
	return int(uint64(key) % uint64(len(p.parts)))
}

// Enqueue adds item to the partition of key.
func (p *Partitioned[T]) Enqueue(ctx context.Context, key int64, item T) error {
	err := p.parts[p.Partition(key)].Enqueue(ctx, item)
	if err == nil {
		metrics.UpdateQueueSize(p.Len())
	}
	return err
}

// Queue returns partition i.
func (p *Partitioned[T]) Queue(i int) *InMemoryQueue[T] {
	return p.parts[i]
}

// Count is the number of partitions.
func (p *Partitioned[T]) Count() int {
	return len(p.parts)
}

// Len is the number of items queued across partitions.
func (p *Partitioned[T]) Len() int {
	n := 0
	for _, q := range p.parts {
		n += q.Len()
	}
	return n
}

// Cap is the total capacity across partitions.
func (p *Partitioned[T]) Cap() int {
	n := 0
	for _, q := range p.parts {
		n += q.Cap()
	}
	return n
}

// Close closes every partition.
func (p *Partitioned[T]) Close() error {
	for _, q := range p.parts {
		_ = q.Close()
	}
	return nil
}
