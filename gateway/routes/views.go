package routes

import (
	"math/big"

	"tipchain/crypto"
	"tipchain/native/tipping"
)

type platformView struct {
	Authority      string `json:"authority"`
	FeeCollector   string `json:"feeCollector"`
	PlatformFeeBps uint16 `json:"platformFeeBps"`
	FeeDenominator uint16 `json:"feeDenominator"`
	MinTipAmount   string `json:"minTipAmount"`
	Paused         bool   `json:"paused"`
	TotalCreators  uint64 `json:"totalCreators"`
	TotalTips      uint64 `json:"totalTips"`
	TotalVolume    string `json:"totalVolume"`
	TopTipper      string `json:"topTipper,omitempty"`
	TopTipAmount   string `json:"topTipAmount"`
}

type statsView struct {
	TotalCreators uint64 `json:"totalCreators"`
	TotalTips     uint64 `json:"totalTips"`
	TotalVolume   string `json:"totalVolume"`
	TopTipper     string `json:"topTipper,omitempty"`
	TopTipAmount  string `json:"topTipAmount"`
}

type creatorView struct {
	Owner             string `json:"owner"`
	Handle            string `json:"handle"`
	DisplayName       string `json:"displayName"`
	AvatarURI         string `json:"avatarUri"`
	TotalTipsReceived string `json:"totalTipsReceived"`
	TipCount          uint64 `json:"tipCount"`
	LastTipTime       int64  `json:"lastTipTime"`
	Streak            uint32 `json:"streak"`
	ReputationScore   uint64 `json:"reputationScore"`
	AgentCount        uint32 `json:"agentCount"`
	CreatedAt         int64  `json:"createdAt"`
}

type agentView struct {
	Owner           string `json:"owner"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	TotalTipsSent   string `json:"totalTipsSent"`
	TipCount        uint64 `json:"tipCount"`
	ReputationScore uint64 `json:"reputationScore"`
	Active          bool   `json:"active"`
	CreatedAt       int64  `json:"createdAt"`
}

type receiptView struct {
	TxID         string `json:"txId"`
	Tipper       string `json:"tipper"`
	Agent        string `json:"agent,omitempty"`
	Recipient    string `json:"recipient"`
	Handle       string `json:"handle"`
	Gross        string `json:"gross"`
	Fee          string `json:"fee"`
	Net          string `json:"net"`
	Message      string `json:"message,omitempty"`
	PaymentProof string `json:"paymentProof,omitempty"`
	Timestamp    int64  `json:"timestamp"`
	Streak       uint32 `json:"streak"`
	Milestone    bool   `json:"milestone"`
	NewTopTipper bool   `json:"newTopTipper"`
}

func addr(raw [20]byte) string { return crypto.FromRaw(raw).String() }

func optionalAddr(raw [20]byte) string {
	if raw == ([20]byte{}) {
		return ""
	}
	return addr(raw)
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newPlatformView(cfg *tipping.PlatformConfig) platformView {
	return platformView{
		Authority:      addr(cfg.Authority),
		FeeCollector:   addr(cfg.FeeCollector),
		PlatformFeeBps: cfg.PlatformFeeBps,
		FeeDenominator: cfg.FeeDenominator,
		MinTipAmount:   amount(cfg.MinTipAmount),
		Paused:         cfg.Paused,
		TotalCreators:  cfg.TotalCreators,
		TotalTips:      cfg.TotalTips,
		TotalVolume:    amount(cfg.TotalVolume),
		TopTipper:      optionalAddr(cfg.TopTipper),
		TopTipAmount:   amount(cfg.TopTipAmount),
	}
}

func newStatsView(s *tipping.PlatformStats) statsView {
	return statsView{
		TotalCreators: s.TotalCreators,
		TotalTips:     s.TotalTips,
		TotalVolume:   amount(s.TotalVolume),
		TopTipper:     optionalAddr(s.TopTipper),
		TopTipAmount:  amount(s.TopTipAmount),
	}
}

func newCreatorView(c *tipping.Creator) creatorView {
	return creatorView{
		Owner:             addr(c.Owner),
		Handle:            c.Handle,
		DisplayName:       c.DisplayName,
		AvatarURI:         c.AvatarURI,
		TotalTipsReceived: amount(c.TotalTipsReceived),
		TipCount:          c.TipCount,
		LastTipTime:       c.LastTipTime,
		Streak:            c.Streak,
		ReputationScore:   c.ReputationScore,
		AgentCount:        c.AgentCount,
		CreatedAt:         c.CreatedAt,
	}
}

func newAgentView(a *tipping.Agent) agentView {
	return agentView{
		Owner:           addr(a.Owner),
		Name:            a.Name,
		Type:            a.Type,
		TotalTipsSent:   amount(a.TotalTipsSent),
		TipCount:        a.TipCount,
		ReputationScore: a.ReputationScore,
		Active:          a.Active,
		CreatedAt:       a.CreatedAt,
	}
}

func newReceiptView(r *tipping.TipReceipt) receiptView {
	view := receiptView{
		TxID:         r.TxID,
		Tipper:       addr(r.Tipper),
		Recipient:    addr(r.Recipient),
		Handle:       r.Handle,
		Gross:        amount(r.Gross),
		Fee:          amount(r.Fee),
		Net:          amount(r.Net),
		Message:      r.Message,
		PaymentProof: r.PaymentProof,
		Timestamp:    r.Timestamp,
		Streak:       r.Streak,
		Milestone:    r.Milestone,
		NewTopTipper: r.NewTopTipper,
	}
	if r.ViaAgent {
		view.Agent = addr(r.Agent)
	}
	return view
}
