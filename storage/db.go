package storage

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	gethleveldb "github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/triedb"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Database is the key-value store backing the ledger. Besides plain metadata
// keys it exposes the trie database that holds the state trie nodes, so the
// in-memory and persistent variants behave identically for callers.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	// NewBatch returns a write batch applied atomically by Write.
	NewBatch() Batch
	// Iterate calls fn for every key with prefix in ascending key order.
	Iterate(prefix []byte, fn func(key, value []byte) error) error
	TrieDB() *triedb.Database
	Close()
}

// Batch collects writes that land together or not at all.
type Batch interface {
	Put(key []byte, value []byte) error
	Delete(key []byte) error
	Write() error
}

type kvDatabase struct {
	kv       ethdb.KeyValueStore
	disk     ethdb.Database
	once     sync.Once
	trieDB   *triedb.Database
	closeMu  sync.Mutex
	isClosed bool
}

func newKVDatabase(kv ethdb.KeyValueStore) *kvDatabase {
	return &kvDatabase{kv: kv, disk: rawdb.NewDatabase(kv)}
}

func (db *kvDatabase) Put(key []byte, value []byte) error {
	return db.kv.Put(key, value)
}

func (db *kvDatabase) Get(key []byte) ([]byte, error) {
	ok, err := db.kv.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return db.kv.Get(key)
}

func (db *kvDatabase) Delete(key []byte) error {
	return db.kv.Delete(key)
}

func (db *kvDatabase) NewBatch() Batch {
	return db.kv.NewBatch()
}

func (db *kvDatabase) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	it := db.kv.NewIterator(prefix, nil)
	defer it.Release()
	for it.Next() {
		key := append([]byte(nil), it.Key()...)
		value := append([]byte(nil), it.Value()...)
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return it.Error()
}

func (db *kvDatabase) TrieDB() *triedb.Database {
	db.once.Do(func() {
		db.trieDB = triedb.NewDatabase(db.disk, triedb.HashDefaults)
	})
	return db.trieDB
}

func (db *kvDatabase) Close() {
	db.closeMu.Lock()
	defer db.closeMu.Unlock()
	if db.isClosed {
		return
	}
	db.isClosed = true
	if db.trieDB != nil {
		_ = db.trieDB.Close()
	}
	_ = db.kv.Close()
}

// --- In-Memory DB (for testing) ---

// MemDB keeps everything in process memory.
type MemDB struct {
	*kvDatabase
}

func NewMemDB() *MemDB {
	return &MemDB{kvDatabase: newKVDatabase(memorydb.New())}
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	*kvDatabase
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	kv, err := gethleveldb.New(path, 16, 16, "tipchain/state/", false)
	if err != nil {
		return nil, err
	}
	return &LevelDB{kvDatabase: newKVDatabase(kv)}, nil
}

// HeadRootKey stores the state root of the last committed transaction.
var HeadRootKey = []byte("tipchain/head-root")

// ReadHeadRoot returns the persisted head root and whether one exists.
func ReadHeadRoot(db Database) ([]byte, bool, error) {
	root, err := db.Get(HeadRootKey)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return root, true, nil
}

// WriteHeadRoot persists root as the current head.
func WriteHeadRoot(db Database, root []byte) error {
	return db.Put(HeadRootKey, append([]byte(nil), root...))
}

// PutHeadRoot stages root as the current head in batch.
func PutHeadRoot(batch Batch, root []byte) error {
	return batch.Put(HeadRootKey, append([]byte(nil), root...))
}
