package tipping

import "math/big"

// SetPaused toggles the platform circuit breaker.
func (e *Engine) SetPaused(paused bool) (*PlatformConfig, error) {
	cfg, err := e.platform()
	if err != nil {
		return nil, err
	}
	cfg.Paused = paused
	return e.putPlatform(cfg)
}

// UpdatePlatformFee overwrites the platform fee in basis points.
func (e *Engine) UpdatePlatformFee(feeBps uint16) (*PlatformConfig, error) {
	if feeBps > MaxPlatformFeeBps {
		return nil, ErrFeeTooHigh
	}
	cfg, err := e.platform()
	if err != nil {
		return nil, err
	}
	cfg.PlatformFeeBps = feeBps
	return e.putPlatform(cfg)
}

// UpdateMinTip overwrites the minimum accepted tip.
func (e *Engine) UpdateMinTip(minTip *big.Int) (*PlatformConfig, error) {
	if minTip == nil || minTip.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	cfg, err := e.platform()
	if err != nil {
		return nil, err
	}
	cfg.MinTipAmount = new(big.Int).Set(minTip)
	return e.putPlatform(cfg)
}

func (e *Engine) putPlatform(cfg *PlatformConfig) (*PlatformConfig, error) {
	if err := e.state.TippingPlatformPut(cfg); err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}
