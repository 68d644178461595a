package tipping

import (
	"math/big"
	"strconv"

	"tipchain/core/events"
	"tipchain/core/types"
	"tipchain/crypto"
)

const (
	// EventTypeCreatorRegistered is emitted when a creator claims a handle.
	EventTypeCreatorRegistered = "tipping.creator_registered"
	// EventTypeAgentRegistered is emitted when an owner registers an agent.
	EventTypeAgentRegistered = "tipping.agent_registered"
	// EventTypeTipSent is emitted once per successful tip.
	EventTypeTipSent = "tipping.tip_sent"
	// EventTypeNewTopTipper is emitted when a tip becomes the all-time largest.
	EventTypeNewTopTipper = "tipping.new_top_tipper"
	// EventTypeStreakMilestone is emitted when a streak reaches a multiple of five.
	EventTypeStreakMilestone = "tipping.streak_milestone"
)

// Attribute keys shared by the event log indexes.
const (
	AttrTipper    = "tipper"
	AttrRecipient = "recipient"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func addrString(addr [20]byte) string { return crypto.FromRaw(addr).String() }

func unix(ts int64) string { return strconv.FormatInt(ts, 10) }

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// CreatorRegisteredEvent announces a new creator profile.
func CreatorRegisteredEvent(c *Creator) *types.Event {
	return &types.Event{
		Type: EventTypeCreatorRegistered,
		Attributes: map[string]string{
			"creator":     addrString(c.Owner),
			"handle":      c.Handle,
			"displayName": c.DisplayName,
			"timestamp":   unix(c.CreatedAt),
		},
	}
}

// AgentRegisteredEvent announces a new agent profile.
func AgentRegisteredEvent(a *Agent) *types.Event {
	return &types.Event{
		Type: EventTypeAgentRegistered,
		Attributes: map[string]string{
			"agent":     addrString(a.Owner),
			"name":      a.Name,
			"agentType": a.Type,
			"timestamp": unix(a.CreatedAt),
		},
	}
}

// TipSentEvent renders a receipt as the per-tip transaction record.
func TipSentEvent(r *TipReceipt) *types.Event {
	attrs := map[string]string{
		AttrTipper:     addrString(r.Tipper),
		AttrRecipient:  addrString(r.Recipient),
		"handle":       r.Handle,
		"gross":        amountString(r.Gross),
		"fee":          amountString(r.Fee),
		"net":          amountString(r.Net),
		"message":      r.Message,
		"paymentProof": r.PaymentProof,
		"timestamp":    unix(r.Timestamp),
	}
	if r.ViaAgent {
		attrs["agent"] = addrString(r.Agent)
	}
	return &types.Event{Type: EventTypeTipSent, Attributes: attrs}
}

// NewTopTipperEvent announces a new all-time largest tip.
func NewTopTipperEvent(tipper [20]byte, amount *big.Int, ts int64) *types.Event {
	return &types.Event{
		Type: EventTypeNewTopTipper,
		Attributes: map[string]string{
			AttrTipper:  addrString(tipper),
			"amount":    amountString(amount),
			"timestamp": unix(ts),
		},
	}
}

// StreakMilestoneEvent announces a creator streak reaching a multiple of five.
func StreakMilestoneEvent(creator [20]byte, handle string, streak uint32, ts int64) *types.Event {
	return &types.Event{
		Type: EventTypeStreakMilestone,
		Attributes: map[string]string{
			AttrRecipient: addrString(creator),
			"handle":      handle,
			"streak":      strconv.FormatUint(uint64(streak), 10),
			"timestamp":   unix(ts),
		},
	}
}
