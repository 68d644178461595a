package genesis

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"tipchain/core/state"
	"tipchain/native/bank"
	"tipchain/native/tipping"
	"tipchain/storage"
	"tipchain/storage/trie"
)

// Build writes the genesis state described by spec into db, persists it as
// the head root and returns that root. Registration events from seeded
// creators are not recorded.
func Build(spec *Spec, db storage.Database) (common.Hash, error) {
	if spec == nil {
		return common.Hash{}, fmt.Errorf("genesis spec must not be nil")
	}
	if db == nil {
		return common.Hash{}, fmt.Errorf("database must not be nil")
	}
	if spec.minTip == nil {
		if err := spec.validate(); err != nil {
			return common.Hash{}, err
		}
	}
	if _, ok, err := storage.ReadHeadRoot(db); err != nil {
		return common.Hash{}, err
	} else if ok {
		return common.Hash{}, fmt.Errorf("genesis: database already initialised")
	}

	stateTrie, err := trie.NewTrie(db, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("init state trie: %w", err)
	}
	manager := state.NewManager(stateTrie)
	if err := manager.SetStateVersion(state.StateVersion); err != nil {
		return common.Hash{}, err
	}

	ts := spec.GenesisTimestamp().Unix()
	engine := tipping.NewEngine()
	engine.SetState(manager)
	engine.SetNowFunc(func() int64 { return ts })
	if _, err := engine.Initialize(spec.authority, spec.feeCollector, spec.Platform.PlatformFeeBps, spec.minTip); err != nil {
		return common.Hash{}, fmt.Errorf("initialize platform: %w", err)
	}

	// allocations in address order so the root is deterministic
	addrs := make([][20]byte, 0, len(spec.alloc))
	for addr := range spec.alloc {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })
	transferer := bank.NewTransferer(manager)
	for _, addr := range addrs {
		if err := transferer.Mint(addr, spec.alloc[addr]); err != nil {
			return common.Hash{}, fmt.Errorf("alloc: %w", err)
		}
	}

	for _, c := range spec.Creators {
		if _, err := engine.RegisterCreator(c.owner, c.Handle, c.DisplayName, c.AvatarURI); err != nil {
			return common.Hash{}, fmt.Errorf("creator %q: %w", c.Handle, err)
		}
	}
	if spec.Platform.Paused {
		if _, err := engine.SetPaused(true); err != nil {
			return common.Hash{}, err
		}
	}

	root, err := stateTrie.Commit(0)
	if err != nil {
		return common.Hash{}, fmt.Errorf("commit genesis: %w", err)
	}
	if err := storage.WriteHeadRoot(db, root.Bytes()); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}
