package tipping

// Platform returns the current platform configuration.
func (e *Engine) Platform() (*PlatformConfig, error) {
	cfg, err := e.platform()
	if err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

// Stats summarises platform totals and the top tip.
func (e *Engine) Stats() (*PlatformStats, error) {
	cfg, err := e.platform()
	if err != nil {
		return nil, err
	}
	return &PlatformStats{
		TotalCreators: cfg.TotalCreators,
		TotalTips:     cfg.TotalTips,
		TotalVolume:   copyBig(cfg.TotalVolume),
		TopTipper:     cfg.TopTipper,
		TopTipAmount:  copyBig(cfg.TopTipAmount),
	}, nil
}

// Creator looks up a creator by handle.
func (e *Engine) Creator(handle string) (*Creator, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	creator, ok, err := e.state.TippingCreatorGet(handle)
	if err != nil {
		return nil, err
	}
	if !ok || creator == nil {
		return nil, ErrCreatorNotFound
	}
	return creator.Clone(), nil
}

// Agent looks up the agent registered by owner.
func (e *Engine) Agent(owner [20]byte) (*Agent, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	agent, ok, err := e.state.TippingAgentGet(owner)
	if err != nil {
		return nil, err
	}
	if !ok || agent == nil {
		return nil, ErrAgentNotFound
	}
	return agent.Clone(), nil
}

// Creators lists creators in registration order. A non-positive limit selects
// DefaultCreatorsLimit; limits above MaxCreatorsLimit are clamped.
func (e *Engine) Creators(limit int) ([]*Creator, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if limit <= 0 {
		limit = DefaultCreatorsLimit
	}
	if limit > MaxCreatorsLimit {
		limit = MaxCreatorsLimit
	}
	count, err := e.state.TippingCreatorCount()
	if err != nil {
		return nil, err
	}
	out := make([]*Creator, 0, min(uint64(limit), count))
	for pos := uint64(0); pos < count && len(out) < limit; pos++ {
		handle, ok, err := e.state.TippingCreatorAt(pos)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		creator, ok, err := e.state.TippingCreatorGet(handle)
		if err != nil {
			return nil, err
		}
		if !ok || creator == nil {
			continue
		}
		out = append(out, creator.Clone())
	}
	return out, nil
}
