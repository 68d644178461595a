package state

import (
	"errors"
	"fmt"

	"tipchain/storage/trie"
)

// StateVersion is the layout of the stored tipping records. Bump it whenever
// a stored struct in tipping.go changes shape.
const StateVersion uint32 = 2

var versionKey = []byte("state/version")

// ErrStateVersionMismatch is returned when the trie was written by a binary
// with a different record layout.
var ErrStateVersionMismatch = errors.New("state: schema version mismatch")

// SetStateVersion stamps the trie with version. Genesis writes it once.
func (m *Manager) SetStateVersion(version uint32) error {
	return m.KVPut(versionKey, version)
}

// StateVersion returns the stamped version, or false for an unstamped trie.
func (m *Manager) StateVersion() (uint32, bool, error) {
	var version uint32
	ok, err := m.KVGet(versionKey, &version)
	if err != nil {
		return 0, false, fmt.Errorf("state: read version: %w", err)
	}
	return version, ok, nil
}

// EnsureStateVersion refuses to open a trie stamped with another layout unless
// allowMigrate is set, in which case the operator takes responsibility.
func EnsureStateVersion(tr *trie.Trie, allowMigrate bool) error {
	if tr == nil {
		return errors.New("state: nil trie")
	}
	stored, _, err := NewManager(tr).StateVersion()
	if err != nil {
		return err
	}
	if stored == StateVersion || allowMigrate {
		return nil
	}
	return fmt.Errorf("%w: stored=%d supported=%d", ErrStateVersionMismatch, stored, StateVersion)
}
