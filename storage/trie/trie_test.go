package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"tipchain/storage"
)

func TestTrieCommitFlushPersistsData(t *testing.T) {
	dir := t.TempDir()

	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	tr, err := NewTrie(db1, nil)
	require.NoError(t, err)

	key := crypto.Keccak256Hash([]byte("creator:alice"))
	value := []byte("record")

	require.NoError(t, tr.Update(key.Bytes(), value))
	root, err := tr.Commit(1)
	require.NoError(t, err)

	db1.Close()

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	restored, err := NewTrie(db2, root.Bytes())
	require.NoError(t, err)

	got, err := restored.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestTrieCopyIsolatesMutations(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	base, err := NewTrie(db, nil)
	require.NoError(t, err)
	key := crypto.Keccak256([]byte("balance"))
	require.NoError(t, base.Update(key, []byte{1}))
	_, err = base.Commit(1)
	require.NoError(t, err)

	speculative := base.Copy()
	require.NoError(t, speculative.Update(key, []byte{2}))

	got, err := base.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, got)
	require.NotEqual(t, base.Hash(), speculative.Hash())
}

func TestTrieReset(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)
	key := crypto.Keccak256([]byte("k"))
	require.NoError(t, tr.Update(key, []byte("v")))
	root, err := tr.Commit(1)
	require.NoError(t, err)

	require.NoError(t, tr.Update(key, []byte("changed")))
	require.NoError(t, tr.Reset(root))
	got, err := tr.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
}
