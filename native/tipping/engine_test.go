package tipping

import (
	"errors"
	"math/big"
	"testing"

	"tipchain/core/events"
)

type mockState struct {
	platform *PlatformConfig
	creators map[string]*Creator
	index    []string
	agents   map[[20]byte]*Agent
	writes   int
}

func newMockState() *mockState {
	return &mockState{
		creators: make(map[string]*Creator),
		agents:   make(map[[20]byte]*Agent),
	}
}

func (m *mockState) TippingPlatformGet() (*PlatformConfig, bool, error) {
	if m.platform == nil {
		return nil, false, nil
	}
	return m.platform.Clone(), true, nil
}

func (m *mockState) TippingPlatformPut(cfg *PlatformConfig) error {
	m.writes++
	m.platform = cfg.Clone()
	return nil
}

func (m *mockState) TippingCreatorGet(handle string) (*Creator, bool, error) {
	creator, ok := m.creators[handle]
	if !ok {
		return nil, false, nil
	}
	return creator.Clone(), true, nil
}

func (m *mockState) TippingCreatorPut(creator *Creator) error {
	m.writes++
	m.creators[creator.Handle] = creator.Clone()
	return nil
}

func (m *mockState) TippingCreatorCount() (uint64, error) {
	return uint64(len(m.index)), nil
}

func (m *mockState) TippingCreatorAt(pos uint64) (string, bool, error) {
	if pos >= uint64(len(m.index)) {
		return "", false, nil
	}
	return m.index[pos], true, nil
}

func (m *mockState) TippingCreatorIndexAppend(handle string) error {
	m.writes++
	m.index = append(m.index, handle)
	return nil
}

func (m *mockState) TippingAgentGet(owner [20]byte) (*Agent, bool, error) {
	agent, ok := m.agents[owner]
	if !ok {
		return nil, false, nil
	}
	return agent.Clone(), true, nil
}

func (m *mockState) TippingAgentPut(agent *Agent) error {
	m.writes++
	m.agents[agent.Owner] = agent.Clone()
	return nil
}

var errNoFunds = errors.New("mock: insufficient balance")

type transferCall struct {
	from, to [20]byte
	amount   *big.Int
}

type mockBank struct {
	balances map[[20]byte]*big.Int
	calls    []transferCall
}

func newMockBank() *mockBank {
	return &mockBank{balances: make(map[[20]byte]*big.Int)}
}

func (b *mockBank) balance(addr [20]byte) *big.Int {
	if v, ok := b.balances[addr]; ok {
		return new(big.Int).Set(v)
	}
	return big.NewInt(0)
}

func (b *mockBank) Transfer(from, to [20]byte, amount *big.Int) error {
	b.calls = append(b.calls, transferCall{from: from, to: to, amount: new(big.Int).Set(amount)})
	have := b.balance(from)
	if have.Cmp(amount) < 0 {
		return errNoFunds
	}
	b.balances[from] = have.Sub(have, amount)
	b.balances[to] = new(big.Int).Add(b.balance(to), amount)
	return nil
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

func (r *recordingEmitter) types() []string {
	out := make([]string, len(r.events))
	for i, evt := range r.events {
		out[i] = evt.EventType()
	}
	return out
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

var (
	authority = addr(0xA0)
	collector = addr(0xFE)
	owner     = addr(0x01)
	fan       = addr(0x02)
)

type fixture struct {
	engine  *Engine
	state   *mockState
	bank    *mockBank
	emitter *recordingEmitter
	now     int64
}

func newFixture(t *testing.T, feeBps uint16, minTip int64) *fixture {
	t.Helper()
	f := &fixture{
		engine:  NewEngine(),
		state:   newMockState(),
		bank:    newMockBank(),
		emitter: &recordingEmitter{},
		now:     1_700_000_000,
	}
	f.engine.SetState(f.state)
	f.engine.SetTransferer(f.bank)
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() int64 { return f.now })
	if _, err := f.engine.Initialize(authority, collector, feeBps, big.NewInt(minTip)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := f.engine.RegisterCreator(owner, "alice", "Alice", "ipfs://alice"); err != nil {
		t.Fatalf("register creator: %v", err)
	}
	f.bank.balances[fan] = big.NewInt(1_000_000)
	f.emitter.events = nil
	f.bank.calls = nil
	return f
}

func (f *fixture) tip(amount int64) (*TipReceipt, error) {
	return f.engine.TipCreator(TipRequest{
		Origin:       Direct{Tipper: fan},
		Handle:       "alice",
		Amount:       big.NewInt(amount),
		Message:      "thanks",
		PaymentProof: "sig-1",
	})
}

func TestTipFeeSplitScenario(t *testing.T) {
	f := newFixture(t, 250, 1)
	receipt, err := f.tip(1000)
	if err != nil {
		t.Fatalf("tip: %v", err)
	}
	if receipt.Fee.Cmp(big.NewInt(25)) != 0 || receipt.Net.Cmp(big.NewInt(975)) != 0 {
		t.Fatalf("unexpected split fee=%s net=%s", receipt.Fee, receipt.Net)
	}
	if len(f.bank.calls) != 2 {
		t.Fatalf("expected two transfers, got %d", len(f.bank.calls))
	}
	if f.bank.calls[0].to != owner || f.bank.calls[0].amount.Int64() != 975 {
		t.Fatalf("first transfer must move net to creator: %+v", f.bank.calls[0])
	}
	if f.bank.calls[1].to != collector || f.bank.calls[1].amount.Int64() != 25 {
		t.Fatalf("second transfer must move fee to collector: %+v", f.bank.calls[1])
	}
	if f.bank.balance(fan).Int64() != 999_000 {
		t.Fatalf("unexpected tipper balance %s", f.bank.balance(fan))
	}
	creator, _ := f.engine.Creator("alice")
	if creator.TipCount != 1 || creator.TotalTipsReceived.Int64() != 1000 || creator.LastTipTime != f.now {
		t.Fatalf("unexpected creator accounting: %+v", creator)
	}
	stats, _ := f.engine.Stats()
	if stats.TotalTips != 1 || stats.TotalVolume.Int64() != 1000 {
		t.Fatalf("unexpected platform totals: %+v", stats)
	}
	if stats.TopTipper != fan || stats.TopTipAmount.Int64() != 1000 {
		t.Fatalf("first tip must take the leaderboard: %+v", stats)
	}
	got := f.emitter.types()
	if len(got) != 2 || got[0] != EventTypeTipSent || got[1] != EventTypeNewTopTipper {
		t.Fatalf("unexpected events: %v", got)
	}
	sent := events.Render(f.emitter.events[0])
	if sent.Attr("gross") != "1000" || sent.Attr("fee") != "25" || sent.Attr("net") != "975" || sent.Attr("paymentProof") != "sig-1" {
		t.Fatalf("unexpected tip event: %+v", sent.Attributes)
	}
}

func TestTipZeroFeeSkipsFeeTransfer(t *testing.T) {
	f := newFixture(t, 0, 1)
	receipt, err := f.tip(1000)
	if err != nil {
		t.Fatalf("tip: %v", err)
	}
	if receipt.Fee.Sign() != 0 || len(f.bank.calls) != 1 {
		t.Fatalf("expected single transfer with zero fee, got fee=%s calls=%d", receipt.Fee, len(f.bank.calls))
	}
}

func TestTipStreakMilestoneScenario(t *testing.T) {
	f := newFixture(t, 250, 1)
	f.state.creators["alice"].LastTipTime = f.now - 10*3600
	f.state.creators["alice"].Streak = 4
	receipt, err := f.tip(10)
	if err != nil {
		t.Fatalf("tip: %v", err)
	}
	if receipt.Streak != 5 || !receipt.Milestone {
		t.Fatalf("expected milestone at streak 5, got %+v", receipt)
	}
	got := f.emitter.types()
	if got[len(got)-1] != EventTypeStreakMilestone {
		t.Fatalf("milestone must be emitted last: %v", got)
	}
	milestone := events.Render(f.emitter.events[len(got)-1])
	if milestone.Attr("streak") != "5" {
		t.Fatalf("unexpected milestone attributes: %+v", milestone.Attributes)
	}
}

func TestTipStreakResetScenario(t *testing.T) {
	f := newFixture(t, 250, 1)
	f.state.creators["alice"].LastTipTime = f.now - 50*3600
	f.state.creators["alice"].Streak = 7
	receipt, err := f.tip(10)
	if err != nil {
		t.Fatalf("tip: %v", err)
	}
	if receipt.Streak != 1 || receipt.Milestone {
		t.Fatalf("expected reset without milestone, got %+v", receipt)
	}
	for _, typ := range f.emitter.types() {
		if typ == EventTypeStreakMilestone {
			t.Fatalf("reset must not emit a milestone")
		}
	}
}

func TestTipStreakUnchangedStillStampsTime(t *testing.T) {
	f := newFixture(t, 250, 1)
	f.state.creators["alice"].LastTipTime = f.now - 30*3600
	f.state.creators["alice"].Streak = 3
	if _, err := f.tip(10); err != nil {
		t.Fatalf("tip: %v", err)
	}
	creator := f.state.creators["alice"]
	if creator.Streak != 3 || creator.LastTipTime != f.now {
		t.Fatalf("expected unchanged streak with updated time, got %+v", creator)
	}
}

func TestTipPausedScenario(t *testing.T) {
	f := newFixture(t, 250, 1)
	if _, err := f.engine.SetPaused(true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	before := f.state.creators["alice"].Clone()
	beforePlatform := f.state.platform.Clone()
	writes := f.state.writes
	if _, err := f.tip(1000); !errors.Is(err, ErrContractPaused) {
		t.Fatalf("expected ErrContractPaused, got %v", err)
	}
	if f.state.writes != writes || len(f.bank.calls) != 0 || len(f.emitter.events) != 0 {
		t.Fatalf("paused tip must not write, transfer or emit")
	}
	if f.bank.balance(fan).Int64() != 1_000_000 {
		t.Fatalf("balance changed")
	}
	if f.state.creators["alice"].TipCount != before.TipCount || f.state.platform.TotalTips != beforePlatform.TotalTips {
		t.Fatalf("records changed while paused")
	}
}

func TestTipBelowMinimumScenario(t *testing.T) {
	f := newFixture(t, 250, 100)
	writes := f.state.writes
	if _, err := f.tip(99); !errors.Is(err, ErrAmountTooSmall) {
		t.Fatalf("expected ErrAmountTooSmall, got %v", err)
	}
	if f.state.writes != writes || len(f.bank.calls) != 0 || len(f.emitter.events) != 0 {
		t.Fatalf("rejected tip must not write, transfer or emit")
	}
	if _, err := f.tip(100); err != nil {
		t.Fatalf("tip at minimum must succeed: %v", err)
	}
}

func TestTipValidationErrors(t *testing.T) {
	f := newFixture(t, 250, 1)
	long := make([]byte, MaxMessageLength+1)
	for i := range long {
		long[i] = 'x'
	}
	cases := []struct {
		name string
		req  TipRequest
		want error
	}{
		{"message", TipRequest{Origin: Direct{Tipper: fan}, Handle: "alice", Amount: big.NewInt(10), Message: string(long)}, ErrMessageTooLong},
		{"creator", TipRequest{Origin: Direct{Tipper: fan}, Handle: "bob", Amount: big.NewInt(10)}, ErrCreatorNotFound},
		{"origin", TipRequest{Handle: "alice", Amount: big.NewInt(10)}, ErrInvalidOrigin},
		{"amount", TipRequest{Origin: Direct{Tipper: fan}, Handle: "alice", Amount: big.NewInt(-1)}, ErrInvalidAmount},
		{"agent", TipRequest{Origin: ViaAgent{Tipper: fan, Agent: fan}, Handle: "alice", Amount: big.NewInt(10)}, ErrAgentNotFound},
	}
	for _, tc := range cases {
		if _, err := f.engine.TipCreator(tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if len(f.bank.calls) != 0 {
		t.Fatalf("validation failures must not transfer")
	}
}

func TestTipTransferFailureLeavesRecords(t *testing.T) {
	f := newFixture(t, 250, 1)
	f.bank.balances[fan] = big.NewInt(5)
	writes := f.state.writes
	_, err := f.tip(1000)
	if !errors.Is(err, errNoFunds) {
		t.Fatalf("expected transfer error to be wrapped, got %v", err)
	}
	if f.state.writes != writes || len(f.emitter.events) != 0 {
		t.Fatalf("failed transfer must not touch records or emit")
	}
}

func TestTipViaAgent(t *testing.T) {
	f := newFixture(t, 250, 1)
	if _, err := f.engine.RegisterAgent(fan, "tipbot", "llm"); err != nil {
		t.Fatalf("register agent: %v", err)
	}
	receipt, err := f.engine.TipCreator(TipRequest{
		Origin: ViaAgent{Tipper: fan, Agent: fan},
		Handle: "alice",
		Amount: big.NewInt(400),
	})
	if err != nil {
		t.Fatalf("tip via agent: %v", err)
	}
	if !receipt.ViaAgent || receipt.Agent != fan {
		t.Fatalf("receipt must carry agent attribution: %+v", receipt)
	}
	agent, _ := f.engine.Agent(fan)
	if agent.TipCount != 1 || agent.TotalTipsSent.Int64() != 400 {
		t.Fatalf("unexpected agent totals: %+v", agent)
	}
	stats, _ := f.engine.Stats()
	if stats.TopTipper != fan {
		t.Fatalf("top tipper must be the paying identity")
	}

	other := addr(0x03)
	f.bank.balances[other] = big.NewInt(1000)
	if _, err := f.engine.TipCreator(TipRequest{Origin: ViaAgent{Tipper: other, Agent: fan}, Handle: "alice", Amount: big.NewInt(10)}); !errors.Is(err, ErrAgentOwnerMismatch) {
		t.Fatalf("expected ErrAgentOwnerMismatch, got %v", err)
	}

	f.state.agents[fan].Active = false
	if _, err := f.engine.TipCreator(TipRequest{Origin: ViaAgent{Tipper: fan, Agent: fan}, Handle: "alice", Amount: big.NewInt(10)}); !errors.Is(err, ErrAgentInactive) {
		t.Fatalf("expected ErrAgentInactive, got %v", err)
	}
}

func TestLeaderboardTieDoesNotUpdate(t *testing.T) {
	f := newFixture(t, 250, 1)
	if _, err := f.tip(500); err != nil {
		t.Fatalf("first tip: %v", err)
	}
	second := addr(0x04)
	f.bank.balances[second] = big.NewInt(10_000)
	receipt, err := f.engine.TipCreator(TipRequest{Origin: Direct{Tipper: second}, Handle: "alice", Amount: big.NewInt(500)})
	if err != nil {
		t.Fatalf("tie tip: %v", err)
	}
	if receipt.NewTopTipper {
		t.Fatalf("tie must not update leaderboard")
	}
	stats, _ := f.engine.Stats()
	if stats.TopTipper != fan {
		t.Fatalf("first tipper must keep the record")
	}
	receipt, err = f.engine.TipCreator(TipRequest{Origin: Direct{Tipper: second}, Handle: "alice", Amount: big.NewInt(501)})
	if err != nil || !receipt.NewTopTipper {
		t.Fatalf("strictly larger tip must update leaderboard: %v", err)
	}
}

func TestMilestoneOncePerCrossing(t *testing.T) {
	f := newFixture(t, 0, 1)
	f.state.creators["alice"].LastTipTime = f.now
	milestones := 0
	for i := 0; i < 15; i++ {
		f.now += 3600
		receipt, err := f.tip(1)
		if err != nil {
			t.Fatalf("tip %d: %v", i, err)
		}
		if receipt.Milestone {
			milestones++
		}
	}
	// streak goes 2..16 so it crosses 5, 10 and 15
	if milestones != 3 {
		t.Fatalf("expected 3 milestones, got %d", milestones)
	}
}

func TestEngineRequiresInitialization(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMockState())
	if _, err := engine.RegisterCreator(owner, "alice", "Alice", ""); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := engine.Initialize(authority, collector, 1001, big.NewInt(1)); !errors.Is(err, ErrFeeTooHigh) {
		t.Fatalf("expected ErrFeeTooHigh, got %v", err)
	}
	if _, err := engine.Initialize(authority, collector, 1000, big.NewInt(1)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := engine.Initialize(authority, collector, 10, big.NewInt(1)); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}
