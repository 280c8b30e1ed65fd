package batcher

import (
	"sync"
	"time"
)

// TimeBatcher flushes pending ViewEvents every flushInterval. Events are
// buffered in a CountBatcher, so a threshold set with WithThreshold flushes
// early between ticks.
type TimeBatcher struct {
	buf           *CountBatcher
	flushInterval time.Duration
	stopCh        chan struct{}
	doneCh        chan struct{}
	stopOnce      sync.Once

	mu      sync.Mutex
	started bool
}

// NewTimeBatcher returns a TimeBatcher that flushes on the given interval.
// Pass flushInterval=0 to disable time‑based flushing.
func NewTimeBatcher(flushInterval time.Duration, flush FlushFunc) *TimeBatcher {
	return &TimeBatcher{
		buf:           NewCountBatcher(0, flush),
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// WithThreshold makes Enqueue flush early once n events are pending.
func (b *TimeBatcher) WithThreshold(n int) *TimeBatcher {
	b.buf.setThreshold(n)
	return b
}

// Start begins the background ticker.  Call Stop() to end it.
func (b *TimeBatcher) Start() {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	if b.flushInterval <= 0 {
		close(b.doneCh)
		return
	}
	ticker := time.NewTicker(b.flushInterval)
	go func() {
		defer close(b.doneCh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.Flush()
			case <-b.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the background ticker and flushes what is left.
func (b *TimeBatcher) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		b.mu.Lock()
		started := b.started
		b.mu.Unlock()
		if started {
			<-b.doneCh
		}
		b.Flush()
	})
}

// Enqueue adds an event; it will be included in the next flush.
func (b *TimeBatcher) Enqueue(evt ViewEvent) {
	b.buf.Enqueue(evt)
}

// Flush delivers the pending events now.
func (b *TimeBatcher) Flush() {
	b.buf.Flush()
}
