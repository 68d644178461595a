package core

import (
	"context"
	"math/big"

	"tipchain/core/state"
	"tipchain/native/tipping"
	"tipchain/observability/logging"
)

// RegisterCreator registers handle for caller.
func (l *Ledger) RegisterCreator(ctx context.Context, caller [20]byte, handle, displayName, avatarURI string) (*tipping.Creator, error) {
	var creator *tipping.Creator
	_, err := l.transact(ctx, "register_creator", func(engine *tipping.Engine, _ *state.Manager) error {
		var err error
		creator, err = engine.RegisterCreator(caller, handle, displayName, avatarURI)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.metrics.RecordRegistration("creator")
	return creator, nil
}

// RegisterAgent registers the agent owned by caller.
func (l *Ledger) RegisterAgent(ctx context.Context, caller [20]byte, name, agentType string) (*tipping.Agent, error) {
	var agent *tipping.Agent
	_, err := l.transact(ctx, "register_agent", func(engine *tipping.Engine, _ *state.Manager) error {
		var err error
		agent, err = engine.RegisterAgent(caller, name, agentType)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.metrics.RecordRegistration("agent")
	return agent, nil
}

// UpdateCreator edits a creator profile. Only the creator's owner may call it.
func (l *Ledger) UpdateCreator(ctx context.Context, caller [20]byte, handle string, displayName, avatarURI *string) (*tipping.Creator, error) {
	var creator *tipping.Creator
	_, err := l.transact(ctx, "update_creator", func(engine *tipping.Engine, _ *state.Manager) error {
		existing, err := engine.Creator(handle)
		if err != nil {
			return err
		}
		if existing.Owner != caller {
			return tipping.ErrUnauthorized
		}
		creator, err = engine.UpdateCreator(handle, displayName, avatarURI)
		return err
	})
	if err != nil {
		return nil, err
	}
	return creator, nil
}

// Tip settles req. The caller must already be authenticated as the tipper
// named by req.Origin.
func (l *Ledger) Tip(ctx context.Context, req tipping.TipRequest) (*tipping.TipReceipt, error) {
	var receipt *tipping.TipReceipt
	txID, err := l.transact(ctx, "tip", func(engine *tipping.Engine, _ *state.Manager) error {
		var err error
		receipt, err = engine.TipCreator(req)
		return err
	})
	if err != nil {
		return nil, err
	}
	receipt.TxID = txID
	l.metrics.RecordTip(receipt.Gross, receipt.Fee)
	l.logger.Debug("tip phase",
		"phase", string(tipping.PhaseCommitted),
		"handle", receipt.Handle,
		"txId", txID,
		logging.MaskField("paymentProof", receipt.PaymentProof))
	return receipt, nil
}

// SetPaused toggles the platform circuit breaker. Authority only.
func (l *Ledger) SetPaused(ctx context.Context, caller [20]byte, paused bool) (*tipping.PlatformConfig, error) {
	return l.admin(ctx, "set_paused", caller, func(engine *tipping.Engine) (*tipping.PlatformConfig, error) {
		return engine.SetPaused(paused)
	})
}

// UpdatePlatformFee sets the platform fee. Authority only.
func (l *Ledger) UpdatePlatformFee(ctx context.Context, caller [20]byte, feeBps uint16) (*tipping.PlatformConfig, error) {
	return l.admin(ctx, "update_platform_fee", caller, func(engine *tipping.Engine) (*tipping.PlatformConfig, error) {
		return engine.UpdatePlatformFee(feeBps)
	})
}

// UpdateMinTip sets the minimum tip. Authority only.
func (l *Ledger) UpdateMinTip(ctx context.Context, caller [20]byte, minTip *big.Int) (*tipping.PlatformConfig, error) {
	return l.admin(ctx, "update_min_tip", caller, func(engine *tipping.Engine) (*tipping.PlatformConfig, error) {
		return engine.UpdateMinTip(minTip)
	})
}

func (l *Ledger) admin(ctx context.Context, op string, caller [20]byte, fn func(*tipping.Engine) (*tipping.PlatformConfig, error)) (*tipping.PlatformConfig, error) {
	var cfg *tipping.PlatformConfig
	_, err := l.transact(ctx, op, func(engine *tipping.Engine, _ *state.Manager) error {
		if err := requireAuthority(engine, caller); err != nil {
			return err
		}
		var err error
		cfg, err = fn(engine)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Platform returns the committed platform configuration.
func (l *Ledger) Platform(ctx context.Context) (*tipping.PlatformConfig, error) {
	var cfg *tipping.PlatformConfig
	err := l.view(ctx, func(engine *tipping.Engine, _ *state.Manager) error {
		var err error
		cfg, err = engine.Platform()
		return err
	})
	return cfg, err
}

// Stats returns platform-wide totals.
func (l *Ledger) Stats(ctx context.Context) (*tipping.PlatformStats, error) {
	var stats *tipping.PlatformStats
	err := l.view(ctx, func(engine *tipping.Engine, _ *state.Manager) error {
		var err error
		stats, err = engine.Stats()
		return err
	})
	return stats, err
}

func (l *Ledger) Creator(ctx context.Context, handle string) (*tipping.Creator, error) {
	var creator *tipping.Creator
	err := l.view(ctx, func(engine *tipping.Engine, _ *state.Manager) error {
		var err error
		creator, err = engine.Creator(handle)
		return err
	})
	return creator, err
}

func (l *Ledger) Creators(ctx context.Context, limit int) ([]*tipping.Creator, error) {
	var creators []*tipping.Creator
	err := l.view(ctx, func(engine *tipping.Engine, _ *state.Manager) error {
		var err error
		creators, err = engine.Creators(limit)
		return err
	})
	return creators, err
}

func (l *Ledger) Agent(ctx context.Context, owner [20]byte) (*tipping.Agent, error) {
	var agent *tipping.Agent
	err := l.view(ctx, func(engine *tipping.Engine, _ *state.Manager) error {
		var err error
		agent, err = engine.Agent(owner)
		return err
	})
	return agent, err
}

// Balance returns the committed native token balance of addr.
func (l *Ledger) Balance(ctx context.Context, addr [20]byte) (*big.Int, error) {
	var bal *big.Int
	err := l.view(ctx, func(_ *tipping.Engine, manager *state.Manager) error {
		var err error
		bal, err = manager.Balance(addr)
		return err
	})
	return bal, err
}
