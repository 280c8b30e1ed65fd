package batcher

import (
	"sync"
	"time"

	"kit-marketplace/logger"
)

// CountBatcher collects ViewEvents and flushes whenever count ≥ threshold.
type CountBatcher struct {
	mu        sync.Mutex
	events    []ViewEvent
	threshold int
	flush     FlushFunc
}

// NewCountBatcher returns a CountBatcher that flushes when
// len(events) >= threshold.  Pass threshold=0 to disable.
func NewCountBatcher(threshold int, flush FlushFunc) *CountBatcher {
	return &CountBatcher{
		events:    make([]ViewEvent, 0, max(threshold, 0)),
		threshold: threshold,
		flush:     flush,
	}
}

// Enqueue adds an event and triggers flush if the threshold is reached.
func (b *CountBatcher) Enqueue(evt ViewEvent) {
	b.mu.Lock()
	b.events = append(b.events, evt)
	var batch []ViewEvent
	if b.threshold > 0 && len(b.events) >= b.threshold {
		batch = b.takeLocked()
	}
	b.mu.Unlock()

	b.deliver(batch)
}

func (b *CountBatcher) setThreshold(n int) {
	b.mu.Lock()
	b.threshold = n
	b.mu.Unlock()
}

// Flush delivers whatever is pending regardless of the threshold.
func (b *CountBatcher) Flush() {
	b.mu.Lock()
	batch := b.takeLocked()
	b.mu.Unlock()
	b.deliver(batch)
}

// takeLocked assumes b.mu is held.
func (b *CountBatcher) takeLocked() []ViewEvent {
	if len(b.events) == 0 {
		return nil
	}
	batch := b.events
	b.events = make([]ViewEvent, 0, max(b.threshold, 0))
	return batch
}

func (b *CountBatcher) deliver(batch []ViewEvent) {
	if len(batch) == 0 {
		return
	}
	agg := aggregate(batch)
	logger.Debug.Printf("[%s] view batch flush: %d events → %v",
		time.Now().Format(time.RFC3339), len(batch), agg,
	)
	if b.flush != nil {
		b.flush(agg)
	}
}
