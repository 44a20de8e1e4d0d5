// Package gateway implements the per-step, per-peer message channels
// described in spec.md section 4.2: fixed-size-element send/receive
// buffers multiplexed by a Gateway over one transport connection per
// peer, preserving strict per-channel record-id ordering.
package gateway

import (
	"fmt"

	"github.com/luxfi/ipa-mpc/pkg/party"
	"github.com/luxfi/ipa-mpc/pkg/step"
)

// ChannelID identifies one ordered byte stream: a peer and a step path
// (spec.md section 3, "ChannelId").
type ChannelID struct {
	Peer party.Role
	Step step.Path
}

func (c ChannelID) String() string {
	return fmt.Sprintf("%s@%s", c.Peer, c.Step)
}
