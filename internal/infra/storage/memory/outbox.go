package memory

import (
	"context"
	"sync"

	"stayledger/internal/app/outbox"
)

// Outbox buffers event records in memory. Flush hands them to an
// optional sink; without one the records just accumulate, which is
// what tests want for asserting emitted events.
type Outbox struct {
	mu      sync.Mutex
	pending []outbox.EventRecord
	flushed []outbox.EventRecord

	// Sink, when set, receives records on Flush.
	Sink func(ctx context.Context, records []outbox.EventRecord) error
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record outbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	batch := o.pending
	o.pending = nil
	o.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	if o.Sink != nil {
		if err := o.Sink(ctx, batch); err != nil {
			o.mu.Lock()
			o.pending = append(batch, o.pending...)
			o.mu.Unlock()
			return err
		}
	}
	o.mu.Lock()
	o.flushed = append(o.flushed, batch...)
	o.mu.Unlock()
	return nil
}

// Flushed returns a snapshot of delivered records.
func (o *Outbox) Flushed() []outbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]outbox.EventRecord, len(o.flushed))
	copy(out, o.flushed)
	return out
}

// Pending returns a snapshot of records waiting for Flush.
func (o *Outbox) Pending() []outbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]outbox.EventRecord, len(o.pending))
	copy(out, o.pending)
	return out
}
