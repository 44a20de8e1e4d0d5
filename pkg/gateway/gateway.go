package gateway

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/recordid"
	"github.com/luxfi/ipa-mpc/pkg/step"
)

// Config bounds the per-channel send buffer shape; element size is
// derived per channel from what's being exchanged (spec.md section 4.2).
type Config struct {
	Send SendConfig
}

// DefaultConfig gives each channel an unbuffered (items_in_batch=1) send
// buffer, the fastest-converging shape for tests.
func DefaultConfig() Config { return Config{Send: DefaultSendConfig()} }

// Gateway multiplexes one Transport per peer into a dynamic collection
// of channels keyed by ChannelID (spec.md section 4.2).
type Gateway struct {
	self      party.Role
	cfg       Config
	transport map[party.Role]Transport

	mu    sync.Mutex
	sends map[ChannelID]*SendBuffer
	recvs map[ChannelID]*ReceiveBuffer
	// elementSizes records the fixed payload width negotiated for each
	// channel the first time it is used, and panics on a mismatched
	// reuse (a protocol bug, never a legal runtime state).
	elementSizes map[ChannelID]int
}

// New constructs a Gateway for self, routing outgoing traffic for each
// peer role through the given Transport.
func New(self party.Role, transport map[party.Role]Transport, cfg Config) *Gateway {
	return &Gateway{
		self:         self,
		cfg:          cfg,
		transport:    transport,
		sends:        make(map[ChannelID]*SendBuffer),
		recvs:        make(map[ChannelID]*ReceiveBuffer),
		elementSizes: make(map[ChannelID]int),
	}
}

func (g *Gateway) sendBuffer(id ChannelID, elementSize int) *SendBuffer {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sz, ok := g.elementSizes[id]; ok && sz != elementSize {
		panic(fmt.Sprintf("gateway: channel %s reused with a different element size", id))
	}
	g.elementSizes[id] = elementSize
	if b, ok := g.sends[id]; ok {
		return b
	}
	b := NewSendBuffer(elementSize, g.cfg.Send)
	g.sends[id] = b
	return b
}

func (g *Gateway) receiveBuffer(id ChannelID) *ReceiveBuffer {
	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.recvs[id]; ok {
		return b
	}
	b := NewReceiveBuffer()
	g.recvs[id] = b
	return b
}

// Send pushes payload at recordID on the channel to peer under stepPath,
// flushing a full batch to the transport if one completes.
func (g *Gateway) Send(ctx context.Context, peer party.Role, stepPath step.Path, recordID recordid.ID, payload []byte) error {
	id := ChannelID{Peer: peer, Step: stepPath}
	buf := g.sendBuffer(id, len(payload))
	block, err := buf.Push(id, recordID, payload)
	if err != nil {
		return err
	}
	if block == nil {
		return nil
	}
	// The flushed block starts items_in_batch elements before the new
	// base; recompute the offset it was flushed from.
	itemsInBatch := recordid.ID(g.cfg.Send.ItemsInBatch)
	offset := buf.base - itemsInBatch
	return g.transport[peer].SendBlock(ctx, peer, stepPath, offset, block)
}

// SendAll sends the same payload to every other party, used by
// broadcast-shaped gadgets (reveal, shuffle commitments). It fans out
// concurrently via errgroup so one slow peer connection does not
// serialize behind another, matching spec.md section 5's "parallelism
// across independent sub-protocols is expressed by awaiting them
// together".
func (g *Gateway) SendAll(ctx context.Context, peers []party.Role, stepPath step.Path, recordID recordid.ID, payload []byte) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, p := range peers {
		p := p
		eg.Go(func() error { return g.Send(ctx, p, stepPath, recordID, payload) })
	}
	return eg.Wait()
}

// Receive blocks for the payload peer sent at recordID on stepPath.
func (g *Gateway) Receive(ctx context.Context, peer party.Role, stepPath step.Path, recordID recordid.ID) ([]byte, error) {
	id := ChannelID{Peer: peer, Step: stepPath}
	return g.receiveBuffer(id).Receive(ctx, recordID)
}

// Deliver is called by a Transport when a block arrives from peer on
// stepPath starting at record offset. The block length must be a
// multiple of the channel's negotiated element size (spec.md section 7,
// LengthMismatch) -- the element size is learned the first time this
// gateway itself sends or receives on the channel; a block arriving
// before that negotiation happens is rejected with an error.
func (g *Gateway) Deliver(peer party.Role, stepPath step.Path, offset recordid.ID, data []byte) error {
	id := ChannelID{Peer: peer, Step: stepPath}
	g.mu.Lock()
	elementSize, ok := g.elementSizes[id]
	g.mu.Unlock()
	if !ok || elementSize == 0 {
		return fmt.Errorf("gateway: received block on channel %s before its element size is known", id)
	}
	if len(data)%elementSize != 0 {
		return fmt.Errorf("gateway: channel %s: %w", id, errLengthMismatch(len(data), elementSize))
	}
	buf := g.receiveBuffer(id)
	count := len(data) / elementSize
	for i := 0; i < count; i++ {
		buf.Insert(offset+recordid.ID(i), data[i*elementSize:(i+1)*elementSize])
	}
	return nil
}

// NegotiateElementSize records the element size a channel will use
// before any message flows, so that a receiver that gets a block before
// it has sent or received anything on the channel can still validate
// block length. Gadgets call this once per narrowed step before issuing
// sends.
func (g *Gateway) NegotiateElementSize(peer party.Role, stepPath step.Path, elementSize int) {
	id := ChannelID{Peer: peer, Step: stepPath}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.elementSizes[id] = elementSize
}

func errLengthMismatch(got, elementSize int) error {
	return fmt.Errorf("LengthMismatch: block of %d bytes is not a multiple of element size %d", got, elementSize)
}
