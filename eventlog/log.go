package eventlog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"tipchain/core/types"
)

const (
	eventKeyPrefix     = "evt:"
	tipperIndexPrefix  = "idx:tipper:"
	recipientIdxPrefix = "idx:recipient:"
	txKeyPrefix        = "tx:"

	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

// Attribute keys that feed the secondary indexes.
const (
	AttrTipper    = "tipper"
	AttrRecipient = "recipient"
)

// Record is a persisted ledger event.
type Record = types.Record

// Filter narrows a Query. Empty fields match everything; After excludes
// records with Seq <= After.
type Filter struct {
	Type      string
	Tipper    string
	Recipient string
	After     uint64
	Limit     int
}

// Log is an append-only event log with tipper and recipient indexes.
type Log struct {
	mu   sync.Mutex
	db   *leveldb.DB
	last uint64
}

// Open opens (or creates) the log at path.
func Open(path string) (*Log, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("eventlog: path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("eventlog: resolve path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open: %w", err)
	}
	return newLog(db)
}

// OpenMemory returns a log held in memory, for tests and ephemeral nodes.
func OpenMemory() (*Log, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return newLog(db)
}

func newLog(db *leveldb.DB) (*Log, error) {
	l := &Log{db: db}
	iter := db.NewIterator(util.BytesPrefix([]byte(eventKeyPrefix)), nil)
	if iter.Last() {
		seq, ok := parseSeq(iter.Key()[len(eventKeyPrefix):])
		if ok {
			l.last = seq
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// Close releases the underlying LevelDB resources.
func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Name identifies the log in sink metrics.
func (l *Log) Name() string { return "eventlog" }

// LastSeq returns the sequence of the newest record, zero when empty.
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Append assigns sequences to records and writes them with their index
// entries in one batch. Records of a transaction that an earlier Append
// already stored are skipped, so redelivered batches are harmless.
func (l *Log) Append(ctx context.Context, records []Record) error {
	if l == nil || l.db == nil {
		return errors.New("eventlog: not open")
	}
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := new(leveldb.Batch)
	seq := l.last
	stored := make(map[string]bool)
	for _, rec := range records {
		if rec.TxID != "" {
			seen, checked := stored[rec.TxID]
			if !checked {
				has, err := l.db.Has(txKey(rec.TxID), nil)
				if err != nil {
					return fmt.Errorf("eventlog: check transaction: %w", err)
				}
				seen = has
				stored[rec.TxID] = has
				if !has {
					batch.Put(txKey(rec.TxID), nil)
				}
			}
			if seen {
				continue
			}
		}
		seq++
		rec.Seq = seq
		encoded, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("eventlog: encode record: %w", err)
		}
		batch.Put(eventKey(seq), encoded)
		if tipper := rec.Attr(AttrTipper); tipper != "" {
			batch.Put(indexKey(tipperIndexPrefix, tipper, seq), nil)
		}
		if recipient := rec.Attr(AttrRecipient); recipient != "" {
			batch.Put(indexKey(recipientIdxPrefix, recipient, seq), nil)
		}
	}
	if seq == l.last {
		return nil
	}
	if err := l.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("eventlog: write batch: %w", err)
	}
	l.last = seq
	return nil
}

// Get loads a single record by sequence.
func (l *Log) Get(seq uint64) (Record, bool, error) {
	data, err := l.db.Get(eventKey(seq), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("eventlog: decode record %d: %w", seq, err)
	}
	return rec, true, nil
}

// Query returns records in sequence order that match filter.
func (l *Log) Query(ctx context.Context, filter Filter) ([]Record, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("eventlog: not open")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	switch {
	case filter.Tipper != "":
		return l.queryIndex(ctx, tipperIndexPrefix, filter.Tipper, filter, limit)
	case filter.Recipient != "":
		return l.queryIndex(ctx, recipientIdxPrefix, filter.Recipient, filter, limit)
	}

	iter := l.db.NewIterator(util.BytesPrefix([]byte(eventKeyPrefix)), nil)
	defer iter.Release()
	out := make([]Record, 0)
	for ok := iter.Seek(eventKey(filter.After + 1)); ok && len(out) < limit; ok = iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("eventlog: decode record: %w", err)
		}
		if matches(rec, filter) {
			out = append(out, rec)
		}
	}
	return out, iter.Error()
}

func (l *Log) queryIndex(ctx context.Context, prefix, value string, filter Filter, limit int) ([]Record, error) {
	scope := []byte(prefix + value + ":")
	iter := l.db.NewIterator(util.BytesPrefix(scope), nil)
	defer iter.Release()
	out := make([]Record, 0)
	for ok := iter.Seek(indexKey(prefix, value, filter.After+1)); ok && len(out) < limit; ok = iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seq, valid := parseSeq(iter.Key()[len(scope):])
		if !valid {
			continue
		}
		rec, found, err := l.Get(seq)
		if err != nil {
			return nil, err
		}
		if found && matches(rec, filter) {
			out = append(out, rec)
		}
	}
	return out, iter.Error()
}

func matches(rec Record, filter Filter) bool {
	if filter.Type != "" && rec.Type != filter.Type {
		return false
	}
	if filter.Tipper != "" && rec.Attr(AttrTipper) != filter.Tipper {
		return false
	}
	if filter.Recipient != "" && rec.Attr(AttrRecipient) != filter.Recipient {
		return false
	}
	return rec.Seq > filter.After
}

func encodeSeq(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

func parseSeq(raw []byte) (uint64, bool) {
	if len(raw) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(raw), true
}

func eventKey(seq uint64) []byte {
	return append([]byte(eventKeyPrefix), encodeSeq(seq)...)
}

func txKey(txID string) []byte {
	return []byte(txKeyPrefix + txID)
}

func indexKey(prefix, value string, seq uint64) []byte {
	return append([]byte(prefix+value+":"), encodeSeq(seq)...)
}
