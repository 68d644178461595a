package state

import (
	"math/big"

	"tipchain/native/tipping"
)

// RLP has no signed integers, so timestamps are stored as uint64 seconds.

type storedPlatform struct {
	Authority      [20]byte
	FeeCollector   [20]byte
	PlatformFeeBps uint16
	MinTipAmount   *big.Int
	Paused         bool
	TotalCreators  uint64
	TotalTips      uint64
	TotalVolume    *big.Int
	TopTipper      [20]byte
	TopTipAmount   *big.Int
	Initialized    bool
}

type storedCreator struct {
	Owner             [20]byte
	Handle            string
	DisplayName       string
	AvatarURI         string
	TotalTipsReceived *big.Int
	TipCount          uint64
	LastTipTime       uint64
	Streak            uint32
	ReputationScore   uint64
	AgentCount        uint32
	CreatedAt         uint64
}

type storedAgent struct {
	Owner           [20]byte
	Name            string
	Type            string
	TotalTipsSent   *big.Int
	TipCount        uint64
	ReputationScore uint64
	Active          bool
	CreatedAt       uint64
}

func toUnix(v uint64) int64 { return int64(v) }

func fromUnix(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// TippingPlatformGet loads the platform configuration singleton.
func (m *Manager) TippingPlatformGet() (*tipping.PlatformConfig, bool, error) {
	var stored storedPlatform
	ok, err := m.KVGet(tippingPlatformKey, &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &tipping.PlatformConfig{
		Authority:      stored.Authority,
		FeeCollector:   stored.FeeCollector,
		PlatformFeeBps: stored.PlatformFeeBps,
		FeeDenominator: tipping.FeeDenominator,
		MinTipAmount:   nonNil(stored.MinTipAmount),
		Paused:         stored.Paused,
		TotalCreators:  stored.TotalCreators,
		TotalTips:      stored.TotalTips,
		TotalVolume:    nonNil(stored.TotalVolume),
		TopTipper:      stored.TopTipper,
		TopTipAmount:   nonNil(stored.TopTipAmount),
		Initialized:    stored.Initialized,
	}, true, nil
}

// TippingPlatformPut persists the platform configuration singleton.
func (m *Manager) TippingPlatformPut(cfg *tipping.PlatformConfig) error {
	if cfg == nil {
		return nil
	}
	return m.KVPut(tippingPlatformKey, &storedPlatform{
		Authority:      cfg.Authority,
		FeeCollector:   cfg.FeeCollector,
		PlatformFeeBps: cfg.PlatformFeeBps,
		MinTipAmount:   nonNil(cfg.MinTipAmount),
		Paused:         cfg.Paused,
		TotalCreators:  cfg.TotalCreators,
		TotalTips:      cfg.TotalTips,
		TotalVolume:    nonNil(cfg.TotalVolume),
		TopTipper:      cfg.TopTipper,
		TopTipAmount:   nonNil(cfg.TopTipAmount),
		Initialized:    cfg.Initialized,
	})
}

// TippingCreatorGet loads the creator registered under handle.
func (m *Manager) TippingCreatorGet(handle string) (*tipping.Creator, bool, error) {
	if handle == "" {
		return nil, false, nil
	}
	var stored storedCreator
	ok, err := m.KVGet(tippingCreatorKey(handle), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &tipping.Creator{
		Owner:             stored.Owner,
		Handle:            stored.Handle,
		DisplayName:       stored.DisplayName,
		AvatarURI:         stored.AvatarURI,
		TotalTipsReceived: nonNil(stored.TotalTipsReceived),
		TipCount:          stored.TipCount,
		LastTipTime:       toUnix(stored.LastTipTime),
		Streak:            stored.Streak,
		ReputationScore:   stored.ReputationScore,
		AgentCount:        stored.AgentCount,
		CreatedAt:         toUnix(stored.CreatedAt),
	}, true, nil
}

// TippingCreatorPut persists a creator keyed by its handle.
func (m *Manager) TippingCreatorPut(c *tipping.Creator) error {
	if c == nil {
		return nil
	}
	return m.KVPut(tippingCreatorKey(c.Handle), &storedCreator{
		Owner:             c.Owner,
		Handle:            c.Handle,
		DisplayName:       c.DisplayName,
		AvatarURI:         c.AvatarURI,
		TotalTipsReceived: nonNil(c.TotalTipsReceived),
		TipCount:          c.TipCount,
		LastTipTime:       fromUnix(c.LastTipTime),
		Streak:            c.Streak,
		ReputationScore:   c.ReputationScore,
		AgentCount:        c.AgentCount,
		CreatedAt:         fromUnix(c.CreatedAt),
	})
}

// TippingCreatorCount returns how many handles have been indexed.
func (m *Manager) TippingCreatorCount() (uint64, error) {
	var count uint64
	if _, err := m.KVGet(tippingCreatorCount, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// TippingCreatorAt returns the handle registered at pos, counting from zero.
func (m *Manager) TippingCreatorAt(pos uint64) (string, bool, error) {
	var handle []byte
	ok, err := m.KVGet(tippingCreatorAtKey(pos), &handle)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(handle), true, nil
}

// TippingCreatorIndexAppend records handle at the next position. Each append
// writes the count and two small keys, so registration cost does not grow
// with the number of creators. Handles already indexed are ignored.
func (m *Manager) TippingCreatorIndexAppend(handle string) error {
	seen, err := m.KVGet(tippingCreatorPosKey(handle), nil)
	if err != nil || seen {
		return err
	}
	count, err := m.TippingCreatorCount()
	if err != nil {
		return err
	}
	if err := m.KVPut(tippingCreatorAtKey(count), []byte(handle)); err != nil {
		return err
	}
	if err := m.KVPut(tippingCreatorPosKey(handle), count); err != nil {
		return err
	}
	return m.KVPut(tippingCreatorCount, count+1)
}

// TippingAgentGet loads the agent registered by owner.
func (m *Manager) TippingAgentGet(owner [20]byte) (*tipping.Agent, bool, error) {
	var stored storedAgent
	ok, err := m.KVGet(tippingAgentKey(owner), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &tipping.Agent{
		Owner:           stored.Owner,
		Name:            stored.Name,
		Type:            stored.Type,
		TotalTipsSent:   nonNil(stored.TotalTipsSent),
		TipCount:        stored.TipCount,
		ReputationScore: stored.ReputationScore,
		Active:          stored.Active,
		CreatedAt:       toUnix(stored.CreatedAt),
	}, true, nil
}

func (m *Manager) TippingAgentPut(a *tipping.Agent) error {
	if a == nil {
		return nil
	}
	return m.KVPut(tippingAgentKey(a.Owner), &storedAgent{
		Owner:           a.Owner,
		Name:            a.Name,
		Type:            a.Type,
		TotalTipsSent:   nonNil(a.TotalTipsSent),
		TipCount:        a.TipCount,
		ReputationScore: a.ReputationScore,
		Active:          a.Active,
		CreatedAt:       fromUnix(a.CreatedAt),
	})
}

var _ tipping.State = (*Manager)(nil)
