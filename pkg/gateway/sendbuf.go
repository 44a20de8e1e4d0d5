package gateway

import (
	"fmt"

	"github.com/luxfi/ipa-mpc/pkg/recordid"
)

// SendConfig mirrors the original Rust send buffer's two knobs (see
// _examples/original_source/src/helpers/buffers/send.rs): items_in_batch
// is how many elements one flushed block holds, batch_count bounds how
// many in-flight batches may be buffered before the caller must drain.
type SendConfig struct {
	ItemsInBatch uint32
	BatchCount   uint32
}

// DefaultSendConfig matches the original's Default impl: no buffering,
// useful to drive unit tests to completion as fast as possible.
func DefaultSendConfig() SendConfig {
	return SendConfig{ItemsInBatch: 1, BatchCount: 1}
}

// PushError reports a send-buffer invariant violation (spec.md section 7:
// OutOfRange / Duplicate are fatal protocol bugs).
type PushError struct {
	Kind          string // "OutOfRange" or "Duplicate"
	ChannelID     ChannelID
	RecordID      recordid.ID
	AcceptedRange recordid.Range
}

func (e *PushError) Error() string {
	switch e.Kind {
	case "OutOfRange":
		return fmt.Sprintf("record %s is out of accepted range [%d,%d) on channel %s",
			e.RecordID, e.AcceptedRange.Start, e.AcceptedRange.End, e.ChannelID)
	case "Duplicate":
		return fmt.Sprintf("record %s already sent with a different payload on channel %s",
			e.RecordID, e.ChannelID)
	default:
		return "gateway: send buffer error"
	}
}

// SendBuffer accepts out-of-order pushes within a bounded window and
// flushes a full contiguous batch as a single serialized block once the
// oldest items_in_batch slots are all filled (spec.md section 4.2).
type SendBuffer struct {
	elementSize int
	cfg         SendConfig
	// base is the record id of slot 0 -- "elements_drained" in the
	// original.
	base recordid.ID
	// slots holds up to ItemsInBatch*BatchCount elements; nil means
	// empty.
	slots [][]byte
}

// NewSendBuffer allocates a buffer for a channel whose wire elements are
// elementSize bytes (the serialized size of the field element or boolean
// array being exchanged; shorter payloads are zero-padded).
func NewSendBuffer(elementSize int, cfg SendConfig) *SendBuffer {
	capacity := int(cfg.ItemsInBatch) * int(cfg.BatchCount)
	if capacity <= 0 {
		capacity = 1
	}
	return &SendBuffer{
		elementSize: elementSize,
		cfg:         cfg,
		slots:       make([][]byte, capacity),
	}
}

func (b *SendBuffer) capacity() int { return len(b.slots) }

// Push inserts payload at recordID. If doing so completes a contiguous
// batch of ItemsInBatch elements at the head of the window, that batch is
// returned as a single concatenated block and the window slides forward;
// otherwise the second return value is nil. Pushing the same record id
// twice with an identical payload is idempotent; with a different
// payload it is a Duplicate error.
func (b *SendBuffer) Push(id ChannelID, recordID recordid.ID, payload []byte) ([]byte, error) {
	if len(payload) > b.elementSize {
		panic("gateway: payload exceeds the channel's element size")
	}
	accepted := recordid.Range{Start: b.base, End: b.base + recordid.ID(b.capacity())}
	if !accepted.Contains(recordID) {
		return nil, &PushError{Kind: "OutOfRange", ChannelID: id, RecordID: recordID, AcceptedRange: accepted}
	}

	padded := make([]byte, b.elementSize)
	copy(padded, payload)

	offset := int(recordID - b.base)
	if existing := b.slots[offset]; existing != nil {
		if bytesEqual(existing, padded) {
			return b.tryFlush(), nil
		}
		return nil, &PushError{Kind: "Duplicate", ChannelID: id, RecordID: recordID, AcceptedRange: accepted}
	}
	b.slots[offset] = padded
	return b.tryFlush(), nil
}

func (b *SendBuffer) tryFlush() []byte {
	itemsInBatch := int(b.cfg.ItemsInBatch)
	for itemsInBatch > 0 {
		for i := 0; i < itemsInBatch; i++ {
			if b.slots[i] == nil {
				return nil
			}
		}
		out := make([]byte, 0, itemsInBatch*b.elementSize)
		for i := 0; i < itemsInBatch; i++ {
			out = append(out, b.slots[i]...)
		}
		b.slots = append(b.slots[itemsInBatch:], make([][]byte, itemsInBatch)...)
		b.base += recordid.ID(itemsInBatch)
		return out
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
