package tipping

import "math/big"

const (
	// FeeDenominator is the fixed basis-point denominator for the platform fee.
	FeeDenominator uint16 = 10000
	// MaxPlatformFeeBps caps the platform fee at 10%.
	MaxPlatformFeeBps uint16 = 1000

	MaxHandleLength      = 20
	MaxDisplayNameLength = 50
	MaxAvatarLength      = 200
	MaxAgentNameLength   = 30
	MaxAgentTypeLength   = 20
	MaxMessageLength     = 280

	// InitialReputation is assigned to every new creator and agent.
	InitialReputation uint64 = 100

	DefaultCreatorsLimit = 50
	MaxCreatorsLimit     = 500
)

// PlatformConfig is the singleton holding fee parameters and platform totals.
type PlatformConfig struct {
	Authority      [20]byte `json:"authority"`
	FeeCollector   [20]byte `json:"feeCollector"`
	PlatformFeeBps uint16   `json:"platformFeeBps"`
	FeeDenominator uint16   `json:"feeDenominator"`
	MinTipAmount   *big.Int `json:"minTipAmount"`
	Paused         bool     `json:"paused"`
	TotalCreators  uint64   `json:"totalCreators"`
	TotalTips      uint64   `json:"totalTips"`
	TotalVolume    *big.Int `json:"totalVolume"`
	TopTipper      [20]byte `json:"topTipper"`
	TopTipAmount   *big.Int `json:"topTipAmount"`
	Initialized    bool     `json:"initialized"`
}

// Clone returns a deep copy of the configuration.
func (p *PlatformConfig) Clone() *PlatformConfig {
	if p == nil {
		return nil
	}
	clone := *p
	clone.MinTipAmount = copyBig(p.MinTipAmount)
	clone.TotalVolume = copyBig(p.TotalVolume)
	clone.TopTipAmount = copyBig(p.TopTipAmount)
	return &clone
}

// Creator is a registered tip recipient keyed by its handle.
type Creator struct {
	Owner             [20]byte `json:"owner"`
	Handle            string   `json:"handle"`
	DisplayName       string   `json:"displayName"`
	AvatarURI         string   `json:"avatarUri"`
	TotalTipsReceived *big.Int `json:"totalTipsReceived"`
	TipCount          uint64   `json:"tipCount"`
	LastTipTime       int64    `json:"lastTipTime"`
	Streak            uint32   `json:"streak"`
	ReputationScore   uint64   `json:"reputationScore"`
	AgentCount        uint32   `json:"agentCount"`
	CreatedAt         int64    `json:"createdAt"`
}

func (c *Creator) Clone() *Creator {
	if c == nil {
		return nil
	}
	clone := *c
	clone.TotalTipsReceived = copyBig(c.TotalTipsReceived)
	return &clone
}

// Agent is an automated tipper keyed by its owning identity.
type Agent struct {
	Owner           [20]byte `json:"owner"`
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	TotalTipsSent   *big.Int `json:"totalTipsSent"`
	TipCount        uint64   `json:"tipCount"`
	ReputationScore uint64   `json:"reputationScore"`
	Active          bool     `json:"active"`
	CreatedAt       int64    `json:"createdAt"`
}

func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	clone := *a
	clone.TotalTipsSent = copyBig(a.TotalTipsSent)
	return &clone
}

// TipOrigin identifies who pays for a tip. It is either Direct or ViaAgent.
type TipOrigin interface {
	tipper() [20]byte
	isTipOrigin()
}

// Direct is a tip paid by the tipper without agent attribution.
type Direct struct {
	Tipper [20]byte
}

// ViaAgent is a tip paid by the tipper and attributed to the agent it owns.
type ViaAgent struct {
	Tipper [20]byte
	Agent  [20]byte
}

func (d Direct) tipper() [20]byte { return d.Tipper }
func (Direct) isTipOrigin()       {}

func (v ViaAgent) tipper() [20]byte { return v.Tipper }
func (ViaAgent) isTipOrigin()       {}

// TipperOf returns the paying identity for an origin.
func TipperOf(origin TipOrigin) [20]byte {
	if origin == nil {
		return [20]byte{}
	}
	return origin.tipper()
}

// TipRequest is the input to TipCreator.
type TipRequest struct {
	Origin       TipOrigin
	Handle       string
	Amount       *big.Int
	Message      string
	PaymentProof string
}

// TipReceipt describes a processed tip. It is never stored; history is derived
// from the emitted TipSent events.
type TipReceipt struct {
	TxID         string   `json:"txId,omitempty"`
	Tipper       [20]byte `json:"tipper"`
	Agent        [20]byte `json:"agent,omitempty"`
	ViaAgent     bool     `json:"viaAgent"`
	Recipient    [20]byte `json:"recipient"`
	Handle       string   `json:"handle"`
	Gross        *big.Int `json:"gross"`
	Fee          *big.Int `json:"fee"`
	Net          *big.Int `json:"net"`
	Message      string   `json:"message"`
	PaymentProof string   `json:"paymentProof"`
	Timestamp    int64    `json:"timestamp"`
	Streak       uint32   `json:"streak"`
	Milestone    bool     `json:"milestone"`
	NewTopTipper bool     `json:"newTopTipper"`
}

// PlatformStats summarises platform-wide activity.
type PlatformStats struct {
	TotalCreators uint64   `json:"totalCreators"`
	TotalTips     uint64   `json:"totalTips"`
	TotalVolume   *big.Int `json:"totalVolume"`
	TopTipper     [20]byte `json:"topTipper"`
	TopTipAmount  *big.Int `json:"topTipAmount"`
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
