package tipping

import (
	"math/big"

	"golang.org/x/text/unicode/norm"
)

// Initialize creates the platform configuration. It can only run once.
func (e *Engine) Initialize(authority, feeCollector [20]byte, feeBps uint16, minTip *big.Int) (*PlatformConfig, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if feeBps > MaxPlatformFeeBps {
		return nil, ErrFeeTooHigh
	}
	if minTip == nil || minTip.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	existing, ok, err := e.state.TippingPlatformGet()
	if err != nil {
		return nil, err
	}
	if ok && existing != nil && existing.Initialized {
		return nil, ErrAlreadyInitialized
	}
	cfg := &PlatformConfig{
		Authority:      authority,
		FeeCollector:   feeCollector,
		PlatformFeeBps: feeBps,
		FeeDenominator: FeeDenominator,
		MinTipAmount:   new(big.Int).Set(minTip),
		TotalVolume:    big.NewInt(0),
		TopTipAmount:   big.NewInt(0),
		Initialized:    true,
	}
	if err := e.state.TippingPlatformPut(cfg); err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

// Handles are stored byte for byte, so only NFKC-normal text is accepted.
// Otherwise "ａｌｉｃｅ" and "alice" would be two creators.
func validateHandle(handle string) error {
	if len(handle) == 0 || len(handle) > MaxHandleLength {
		return ErrInvalidHandle
	}
	if !norm.NFKC.IsNormalString(handle) {
		return ErrInvalidHandle
	}
	return nil
}

func validateDisplayName(name string) error {
	if len(name) == 0 || len(name) > MaxDisplayNameLength {
		return ErrInvalidDisplayName
	}
	return nil
}

func validateAvatar(uri string) error {
	if len(uri) > MaxAvatarLength {
		return ErrInvalidAvatar
	}
	return nil
}

// RegisterCreator claims handle for owner and bumps the platform creator count.
func (e *Engine) RegisterCreator(owner [20]byte, handle, displayName, avatarURI string) (*Creator, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}
	if err := validateDisplayName(displayName); err != nil {
		return nil, err
	}
	if err := validateAvatar(avatarURI); err != nil {
		return nil, err
	}
	cfg, err := e.platform()
	if err != nil {
		return nil, err
	}
	if _, exists, err := e.state.TippingCreatorGet(handle); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrHandleTaken
	}
	creator := &Creator{
		Owner:             owner,
		Handle:            handle,
		DisplayName:       displayName,
		AvatarURI:         avatarURI,
		TotalTipsReceived: big.NewInt(0),
		Streak:            1,
		ReputationScore:   InitialReputation,
		CreatedAt:         e.now(),
	}
	if err := e.state.TippingCreatorPut(creator); err != nil {
		return nil, err
	}
	if err := e.state.TippingCreatorIndexAppend(handle); err != nil {
		return nil, err
	}
	cfg.TotalCreators++
	if err := e.state.TippingPlatformPut(cfg); err != nil {
		return nil, err
	}
	e.emit(CreatorRegisteredEvent(creator))
	return creator.Clone(), nil
}

// RegisterAgent creates the agent owned by owner. Each owner has at most one.
func (e *Engine) RegisterAgent(owner [20]byte, name, agentType string) (*Agent, error) {
	if len(name) == 0 || len(name) > MaxAgentNameLength {
		return nil, ErrInvalidAgentName
	}
	if len(agentType) > MaxAgentTypeLength {
		return nil, ErrInvalidAgentType
	}
	if _, err := e.platform(); err != nil {
		return nil, err
	}
	if _, exists, err := e.state.TippingAgentGet(owner); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrAgentExists
	}
	agent := &Agent{
		Owner:           owner,
		Name:            name,
		Type:            agentType,
		TotalTipsSent:   big.NewInt(0),
		ReputationScore: InitialReputation,
		Active:          true,
		CreatedAt:       e.now(),
	}
	if err := e.state.TippingAgentPut(agent); err != nil {
		return nil, err
	}
	e.emit(AgentRegisteredEvent(agent))
	return agent.Clone(), nil
}

// UpdateCreator replaces the display name and/or avatar of a creator. Nil
// fields are left untouched. Callers must have verified ownership.
func (e *Engine) UpdateCreator(handle string, displayName, avatarURI *string) (*Creator, error) {
	if displayName != nil {
		if err := validateDisplayName(*displayName); err != nil {
			return nil, err
		}
	}
	if avatarURI != nil {
		if err := validateAvatar(*avatarURI); err != nil {
			return nil, err
		}
	}
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
	if displayName != nil {
		creator.DisplayName = *displayName
	}
	if avatarURI != nil {
		creator.AvatarURI = *avatarURI
	}
	if err := e.state.TippingCreatorPut(creator); err != nil {
		return nil, err
	}
	return creator.Clone(), nil
}
