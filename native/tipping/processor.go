package tipping

import (
	"fmt"
	"math/big"
)

// TipPhase names the stages a tip moves through. The engine drives the first
// four; PhaseCommitted is reached when the host makes the call durable.
type TipPhase string

const (
	PhaseValidating   TipPhase = "validating"
	PhaseTransferring TipPhase = "transferring"
	PhaseAccounting   TipPhase = "accounting"
	PhaseEmitting     TipPhase = "emitting"
	PhaseCommitted    TipPhase = "committed"
)

func (e *Engine) enter(phase TipPhase, handle string) {
	e.log().Debug("tip phase", "phase", string(phase), "handle", handle)
}

// TipCreator validates and settles a tip. Validation runs before any write or
// transfer. The fee is split before either transfer is requested, and the
// streak and leaderboard read the records as they were before this tip.
//
// When an error is returned after validation, earlier writes in this call are
// not undone; the host discards the whole call.
func (e *Engine) TipCreator(req TipRequest) (*TipReceipt, error) {
	e.enter(PhaseValidating, req.Handle)
	if req.Origin == nil {
		return nil, ErrInvalidOrigin
	}
	if req.Amount == nil || req.Amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	cfg, err := e.platform()
	if err != nil {
		return nil, err
	}
	if e.transfer == nil {
		return nil, ErrNilTransferer
	}
	if cfg.Paused {
		return nil, ErrContractPaused
	}
	if req.Amount.Cmp(cfg.MinTipAmount) < 0 {
		return nil, ErrAmountTooSmall
	}
	if len(req.Message) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	creator, ok, err := e.state.TippingCreatorGet(req.Handle)
	if err != nil {
		return nil, err
	}
	if !ok || creator == nil {
		return nil, ErrCreatorNotFound
	}
	if creator.TotalTipsReceived == nil {
		creator.TotalTipsReceived = big.NewInt(0)
	}
	tipper := TipperOf(req.Origin)
	var agent *Agent
	if via, isAgent := req.Origin.(ViaAgent); isAgent {
		if agent, err = e.loadOriginAgent(via); err != nil {
			return nil, err
		}
	}

	e.enter(PhaseTransferring, req.Handle)
	fee, net, err := SplitFee(req.Amount, cfg.PlatformFeeBps)
	if err != nil {
		return nil, err
	}
	if err := e.transfer.Transfer(tipper, creator.Owner, net); err != nil {
		return nil, fmt.Errorf("tipping: transfer net amount: %w", err)
	}
	if fee.Sign() > 0 {
		if err := e.transfer.Transfer(tipper, cfg.FeeCollector, fee); err != nil {
			return nil, fmt.Errorf("tipping: transfer platform fee: %w", err)
		}
	}

	e.enter(PhaseAccounting, req.Handle)
	now := e.now()
	streak := EvaluateStreak(creator.LastTipTime, now, creator.Streak)
	newTop := EvaluateTopTip(req.Amount, cfg.TopTipAmount)

	creator.LastTipTime = now
	creator.TotalTipsReceived = new(big.Int).Add(creator.TotalTipsReceived, req.Amount)
	creator.TipCount++
	creator.Streak = streak.Streak
	if err := e.state.TippingCreatorPut(creator); err != nil {
		return nil, err
	}

	cfg.TotalTips++
	cfg.TotalVolume = new(big.Int).Add(cfg.TotalVolume, req.Amount)
	if newTop {
		cfg.TopTipper = tipper
		cfg.TopTipAmount = new(big.Int).Set(req.Amount)
	}
	if err := e.state.TippingPlatformPut(cfg); err != nil {
		return nil, err
	}

	receipt := &TipReceipt{
		Tipper:       tipper,
		Recipient:    creator.Owner,
		Handle:       creator.Handle,
		Gross:        new(big.Int).Set(req.Amount),
		Fee:          fee,
		Net:          net,
		Message:      req.Message,
		PaymentProof: req.PaymentProof,
		Timestamp:    now,
		Streak:       streak.Streak,
		Milestone:    streak.Milestone,
		NewTopTipper: newTop,
	}

	switch origin := req.Origin.(type) {
	case Direct:
	case ViaAgent:
		if agent.TotalTipsSent == nil {
			agent.TotalTipsSent = big.NewInt(0)
		}
		agent.TotalTipsSent = new(big.Int).Add(agent.TotalTipsSent, req.Amount)
		agent.TipCount++
		if err := e.state.TippingAgentPut(agent); err != nil {
			return nil, err
		}
		receipt.ViaAgent = true
		receipt.Agent = origin.Agent
	}

	e.enter(PhaseEmitting, req.Handle)
	e.emit(TipSentEvent(receipt))
	if newTop {
		e.emit(NewTopTipperEvent(tipper, req.Amount, now))
	}
	if streak.Milestone {
		e.emit(StreakMilestoneEvent(creator.Owner, creator.Handle, streak.Streak, now))
	}
	return receipt, nil
}

func (e *Engine) loadOriginAgent(via ViaAgent) (*Agent, error) {
	agent, ok, err := e.state.TippingAgentGet(via.Agent)
	if err != nil {
		return nil, err
	}
	if !ok || agent == nil {
		return nil, ErrAgentNotFound
	}
	if agent.Owner != via.Tipper {
		return nil, ErrAgentOwnerMismatch
	}
	if !agent.Active {
		return nil, ErrAgentInactive
	}
	return agent, nil
}
