package dispatch

import "sync/atomic"

// Batch tracks one Run.
type Batch struct {
	id        string
	total     int
	events    chan Event
	completed atomic.Int64
	failed    atomic.Int64
	done      chan struct{}
}

func newBatch(id string, total int) *Batch {
	// Two events per job; emitters never block on a slow consumer.
	return &Batch{
		id:     id,
		total:  total,
		events: make(chan Event, 2*total),
		done:   make(chan struct{}),
	}
}

// ID returns the batch correlation identifier.
func (b *Batch) ID() string { return b.id }

// Total returns the number of jobs in the batch.
func (b *Batch) Total() int { return b.total }

// Events returns the notification stream. It is closed after the last
// terminal event.
func (b *Batch) Events() <-chan Event { return b.events }

// Completed returns how many jobs have reached a terminal state.
func (b *Batch) Completed() int { return int(b.completed.Load()) }

// Failed returns how many jobs ended in EventFailed.
func (b *Batch) Failed() int { return int(b.failed.Load()) }

// Done is closed when every job is terminal.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Wait blocks until every job is terminal.
func (b *Batch) Wait() { <-b.done }

func (b *Batch) emit(ev Event) {
	b.events <- ev
}

func (b *Batch) finish() {
	close(b.events)
	close(b.done)
}
