package state

import (
	"errors"
	"math/big"
	"testing"
)

func TestBalanceDefaultsToZero(t *testing.T) {
	mgr := newTestManager(t)
	addr := [20]byte{0x42}

	bal, err := mgr.Balance(addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", bal)
	}
	if err := mgr.SetBalance(addr, big.NewInt(500)); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	bal, err = mgr.Balance(addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected 500, got %s", bal)
	}
	if err := mgr.SetBalance(addr, big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative balance to be rejected")
	}
}

func TestKVGetReportsMissingKeys(t *testing.T) {
	mgr := newTestManager(t)
	key := []byte("test/value")

	var got uint64
	ok, err := mgr.KVGet(key, &got)
	if err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := mgr.KVPut(key, uint64(42)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ok, err := mgr.KVGet(key, nil); err != nil || !ok {
		t.Fatalf("expected existence check to succeed, ok=%v err=%v", ok, err)
	}
	if ok, err := mgr.KVGet(key, &got); err != nil || !ok || got != 42 {
		t.Fatalf("expected 42, got %d ok=%v err=%v", got, ok, err)
	}
	if err := mgr.KVPut(nil, uint64(1)); err == nil {
		t.Fatalf("expected empty key to be rejected")
	}
}

func TestEnsureStateVersion(t *testing.T) {
	mgr := newTestManager(t)

	err := EnsureStateVersion(mgr.Trie(), false)
	if !errors.Is(err, ErrStateVersionMismatch) {
		t.Fatalf("expected mismatch on empty state, got %v", err)
	}
	if err := EnsureStateVersion(mgr.Trie(), true); err != nil {
		t.Fatalf("migration mode should tolerate mismatch: %v", err)
	}
	if err := mgr.SetStateVersion(StateVersion); err != nil {
		t.Fatalf("set version: %v", err)
	}
	if err := EnsureStateVersion(mgr.Trie(), false); err != nil {
		t.Fatalf("expected matching version, got %v", err)
	}
}
