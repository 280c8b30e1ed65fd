package batcher

import "time"

// ViewEvent represents a “view” event on a catalog item.
type ViewEvent struct {
	ItemID    string
	Timestamp time.Time
}

// AggregatedCount maps item IDs to total view counts.
type AggregatedCount map[string]int

// FlushFunc receives one aggregated batch. It is never called with an empty
// batch.
type FlushFunc func(AggregatedCount)

// Batcher accepts view events for later aggregation.
type Batcher interface {
	Enqueue(evt ViewEvent)
}

func aggregate(events []ViewEvent) AggregatedCount {
	agg := make(AggregatedCount)
	for _, e := range events {
		agg[e.ItemID]++
	}
	return agg
}
