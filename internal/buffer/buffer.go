// Package buffer holds entries between capture and the retention
// worker's flush. Enqueue never blocks the caller: when the buffer is
// full the oldest entry is discarded to make room.
package buffer

import (
	"sync/atomic"

	"github.com/emberlog/emberlog/internal/domain"
)

type Buffer struct {
	entries  chan domain.LogEntry
	enqueued atomic.Int64
	dropped  atomic.Int64
}

func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{entries: make(chan domain.LogEntry, capacity)}
}

// Enqueue adds an entry, evicting the oldest buffered entries if the
// buffer is full. Under heavy producer contention the new entry itself
// may be the one discarded; either way every lost entry is counted.
func (b *Buffer) Enqueue(entry domain.LogEntry) bool {
	for attempt := 0; attempt < 2; attempt++ {
		select {
		case b.entries <- entry:
			b.enqueued.Add(1)
			return true
		default:
		}
		select {
		case <-b.entries:
			b.dropped.Add(1)
		default:
		}
	}
	b.dropped.Add(1)
	return false
}

// DrainBatch removes up to max entries in FIFO order without blocking.
func (b *Buffer) DrainBatch(max int) []domain.LogEntry {
	if max <= 0 {
		return nil
	}
	batch := make([]domain.LogEntry, 0, max)
	for len(batch) < max {
		select {
		case entry := <-b.entries:
			batch = append(batch, entry)
		default:
			return batch
		}
	}
	return batch
}

func (b *Buffer) Len() int {
	return len(b.entries)
}

func (b *Buffer) Enqueued() int64 {
	return b.enqueued.Load()
}

func (b *Buffer) Dropped() int64 {
	return b.dropped.Load()
}
