// Package ringtrack keeps a bounded in-memory trail of recent HTTP
// requests alongside the capture pipeline. The ring is independent of
// the storage backend and is lost on restart.
package ringtrack

import (
	"sync"

	"github.com/emberlog/emberlog/internal/domain"
)

type Options struct {
	// TrackAll records successful (2xx) requests too. Off by default:
	// only failures are worth the slot.
	TrackAll bool

	// CaptureHeaders keeps request headers on recorded events.
	CaptureHeaders bool
}

type Ring struct {
	mu   sync.Mutex
	buf  []domain.RequestEvent
	next int
	full bool
	opts Options
}

func New(capacity int, opts Options) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]domain.RequestEvent, capacity), opts: opts}
}

// Record stores the event, overwriting the oldest slot once the ring
// is full. Requests with 2xx statuses are skipped unless TrackAll is
// set.
func (r *Ring) Record(event domain.RequestEvent) {
	if !r.opts.TrackAll && event.Status >= 200 && event.Status < 300 {
		return
	}
	if !r.opts.CaptureHeaders {
		event.Headers = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = event
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// Snapshot returns the recorded events newest-first. The result is a
// copy; later Records never mutate it.
func (r *Ring) Snapshot() []domain.RequestEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.buf)
	}

	out := make([]domain.RequestEvent, 0, size)
	for i := 1; i <= size; i++ {
		idx := r.next - i
		if idx < 0 {
			idx += len(r.buf)
		}
		out = append(out, r.buf[idx])
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.buf)
	}
	return r.next
}
