package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/ipa-mpc/pkg/recordid"
)

// ReceiveBuffer reassembles out-of-order arrivals into in-order,
// per-record delivery (spec.md section 4.2, "receive side mirrors
// this"). Receive suspends (spec.md section 5) until the requested
// record id arrives or the context is canceled.
type ReceiveBuffer struct {
	mu      sync.Mutex
	arrived map[recordid.ID][]byte
	waiters map[recordid.ID]chan []byte
}

// NewReceiveBuffer allocates an empty reassembly window.
func NewReceiveBuffer() *ReceiveBuffer {
	return &ReceiveBuffer{
		arrived: make(map[recordid.ID][]byte),
		waiters: make(map[recordid.ID]chan []byte),
	}
}

// Insert stores a payload that arrived off the wire for recordID,
// waking any goroutine blocked in Receive for that id.
func (b *ReceiveBuffer) Insert(recordID recordid.ID, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.arrived[recordID]; ok {
		return
	}
	b.arrived[recordID] = payload
	if w, ok := b.waiters[recordID]; ok {
		w <- payload
		delete(b.waiters, recordID)
	}
}

// Receive blocks until recordID's payload has arrived (the only
// suspension point on the receive side, spec.md section 5) or ctx is
// done, in which case it returns a Timeout-flavored error.
func (b *ReceiveBuffer) Receive(ctx context.Context, recordID recordid.ID) ([]byte, error) {
	b.mu.Lock()
	if payload, ok := b.arrived[recordID]; ok {
		b.mu.Unlock()
		return payload, nil
	}
	w, ok := b.waiters[recordID]
	if !ok {
		w = make(chan []byte, 1)
		b.waiters[recordID] = w
	}
	b.mu.Unlock()

	select {
	case payload := <-w:
		return payload, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("gateway: receive record %s: %w", recordID, ctx.Err())
	}
}
