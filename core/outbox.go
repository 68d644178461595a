package core

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"tipchain/core/events"
	"tipchain/core/types"
	"tipchain/storage"
)

// Committed event batches wait under outbox/<sink>/<seq> until the sink has
// accepted them. They are written in the same batch as the head root, so a
// batch is queued if and only if its transaction committed.
var outboxPrefix = []byte("tipchain/outbox/")

func outboxSinkPrefix(sink string) []byte {
	prefix := append([]byte(nil), outboxPrefix...)
	return append(prefix, sink+"/"...)
}

func outboxKey(sink string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(outboxSinkPrefix(sink), seq)
}

type queuedBatch struct {
	key     []byte
	seq     uint64
	records []types.Record
}

func validateSinks(sinks []EventSink) error {
	seen := make(map[string]bool, len(sinks))
	for _, sink := range sinks {
		if sink == nil {
			return fmt.Errorf("core: nil event sink")
		}
		name := sink.Name()
		if name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("core: invalid event sink name %q", name)
		}
		if seen[name] {
			return fmt.Errorf("core: duplicate event sink %q", name)
		}
		seen[name] = true
	}
	return nil
}

// lastOutboxSeq returns the highest queued sequence across all sinks.
func lastOutboxSeq(db storage.Database) (uint64, error) {
	var last uint64
	err := db.Iterate(outboxPrefix, func(key, _ []byte) error {
		if len(key) < len(outboxPrefix)+8 {
			return fmt.Errorf("core: malformed outbox key %q", key)
		}
		if seq := binary.BigEndian.Uint64(key[len(key)-8:]); seq > last {
			last = seq
		}
		return nil
	})
	return last, err
}

func render(txID string, ts int64, staged []events.Event) []types.Record {
	records := make([]types.Record, 0, len(staged))
	for _, evt := range staged {
		rendered := events.Render(evt)
		if rendered == nil {
			continue
		}
		records = append(records, types.Record{
			TxID:       txID,
			Type:       rendered.Type,
			Attributes: rendered.Clone().Attributes,
			Timestamp:  ts,
		})
	}
	return records
}

// enqueue stages records for every sink in batch and returns the sequence it
// used. Callers hold stateMu.
func (l *Ledger) enqueue(batch storage.Batch, records []types.Record) (uint64, error) {
	if len(records) == 0 || len(l.sinks) == 0 {
		return l.outboxSeq, nil
	}
	encoded, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("core: encode event batch: %w", err)
	}
	seq := l.outboxSeq + 1
	for _, sink := range l.sinks {
		if err := batch.Put(outboxKey(sink.Name(), seq), encoded); err != nil {
			return 0, fmt.Errorf("core: queue events for %s: %w", sink.Name(), err)
		}
	}
	return seq, nil
}

func (l *Ledger) queued(sink string) ([]queuedBatch, error) {
	prefix := outboxSinkPrefix(sink)
	var out []queuedBatch
	err := l.db.Iterate(prefix, func(key, value []byte) error {
		if len(key) != len(prefix)+8 {
			return fmt.Errorf("core: malformed outbox key %q", key)
		}
		var records []types.Record
		if err := json.Unmarshal(value, &records); err != nil {
			return fmt.Errorf("core: decode queued events: %w", err)
		}
		out = append(out, queuedBatch{key: key, seq: binary.BigEndian.Uint64(key[len(prefix):]), records: records})
		return nil
	})
	return out, err
}

// deliver hands the queued batches of every sink over in commit order. A sink
// that fails keeps its remaining batches and is retried on the next commit or
// the next Open. Callers hold stateMu.
func (l *Ledger) deliver(ctx context.Context) {
	for _, sink := range l.sinks {
		l.deliverTo(ctx, sink)
	}
}

func (l *Ledger) deliverTo(ctx context.Context, sink EventSink) {
	batches, err := l.queued(sink.Name())
	if err != nil {
		l.metrics.RecordSinkFailure(sink.Name())
		l.logger.Error("read event outbox", "sink", sink.Name(), "error", err)
		return
	}
	for i, batch := range batches {
		if err := sink.Append(ctx, batch.records); err != nil {
			l.metrics.RecordSinkFailure(sink.Name())
			l.logger.Error("event sink append failed",
				"sink", sink.Name(), "seq", batch.seq, "queued", len(batches)-i, "error", err)
			return
		}
		if err := l.db.Delete(batch.key); err != nil {
			l.logger.Error("drop delivered event batch", "sink", sink.Name(), "seq", batch.seq, "error", err)
			return
		}
	}
}
