package tipping

import (
	"log/slog"
	"math/big"
	"time"

	"tipchain/core/events"
	"tipchain/core/types"
)

// State is the record store the engine reads and writes. Lookups report
// whether the record exists; handles and owners map to unique keys.
type State interface {
	TippingPlatformGet() (*PlatformConfig, bool, error)
	TippingPlatformPut(cfg *PlatformConfig) error
	TippingCreatorGet(handle string) (*Creator, bool, error)
	TippingCreatorPut(creator *Creator) error
	TippingCreatorCount() (uint64, error)
	TippingCreatorAt(pos uint64) (string, bool, error)
	TippingCreatorIndexAppend(handle string) error
	TippingAgentGet(owner [20]byte) (*Agent, bool, error)
	TippingAgentPut(agent *Agent) error
}

// Transferer moves funds between accounts. A failed transfer must leave
// balances untouched.
type Transferer interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Engine implements creator and agent registration, tip processing and
// platform administration on top of an injected State.
//
// The engine performs a sequential read-modify-write per call and does no
// locking of its own. The host must serialise calls that touch the same
// records and must run each call against state it can discard, since a failed
// call may already have written some records.
type Engine struct {
	state    State
	transfer Transferer
	emitter  events.Emitter
	nowFn    func() int64
	logger   *slog.Logger
}

// NewEngine constructs a tipping engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
		logger: slog.Default(),
	}
}

func (e *Engine) SetState(state State) { e.state = state }

func (e *Engine) SetTransferer(t Transferer) { e.transfer = t }

// SetEmitter configures the event emitter. Nil restores the no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock used to stamp records and events.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) log() *slog.Logger {
	if e == nil || e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

// platform loads the configuration and fails when the platform has not been
// initialised.
func (e *Engine) platform() (*PlatformConfig, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	cfg, ok, err := e.state.TippingPlatformGet()
	if err != nil {
		return nil, err
	}
	if !ok || cfg == nil || !cfg.Initialized {
		return nil, ErrNotInitialized
	}
	normalizePlatform(cfg)
	return cfg, nil
}

func normalizePlatform(cfg *PlatformConfig) {
	if cfg.MinTipAmount == nil {
		cfg.MinTipAmount = big.NewInt(0)
	}
	if cfg.TotalVolume == nil {
		cfg.TotalVolume = big.NewInt(0)
	}
	if cfg.TopTipAmount == nil {
		cfg.TopTipAmount = big.NewInt(0)
	}
	cfg.FeeDenominator = FeeDenominator
}
