package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tipchain/core/events"
	"tipchain/core/state"
	"tipchain/core/types"
	"tipchain/native/bank"
	"tipchain/native/tipping"
	"tipchain/observability"
	"tipchain/storage"
	"tipchain/storage/trie"
)

// ErrNoGenesis is returned by Open when the database holds no committed state.
var ErrNoGenesis = errors.New("core: database has no genesis state")

// EventSink receives the events of every committed transaction, in commit
// order. A sink error never undoes the commit: the batch stays queued in the
// state database and is offered again until the sink accepts it, so Append
// must tolerate seeing a transaction twice.
type EventSink interface {
	Name() string
	Append(ctx context.Context, records []types.Record) error
}

// Options configures a Ledger.
type Options struct {
	Logger  *slog.Logger
	Clock   func() time.Time
	Sinks   []EventSink
	Metrics *observability.TippingMetrics
	// AllowStateMigration tolerates a state version mismatch on open.
	AllowStateMigration bool
}

// Ledger is the execution environment for the tipping engine.
//
// Every mutating call holds stateMu for its whole duration and runs against a
// copy of the committed trie, so each transaction has exclusive access to all
// records and sees no intermediate state of another. A call either commits all
// of its writes and then publishes its events, or leaves state and sinks
// untouched.
type Ledger struct {
	stateMu sync.Mutex
	db      storage.Database
	state   *trie.Trie
	version uint64
	lastNow int64
	// highest outbox sequence handed out
	outboxSeq uint64

	clock   func() time.Time
	sinks   []EventSink
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.TippingMetrics
}

// Open loads the head state from db.
func Open(db storage.Database, opts Options) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	root, ok, err := storage.ReadHeadRoot(db)
	if err != nil {
		return nil, fmt.Errorf("core: read head root: %w", err)
	}
	if !ok {
		return nil, ErrNoGenesis
	}
	stateTrie, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, fmt.Errorf("core: open state trie: %w", err)
	}
	if err := state.EnsureStateVersion(stateTrie, opts.AllowStateMigration); err != nil {
		return nil, err
	}
	if err := validateSinks(opts.Sinks); err != nil {
		return nil, err
	}
	outboxSeq, err := lastOutboxSeq(db)
	if err != nil {
		return nil, fmt.Errorf("core: scan event outbox: %w", err)
	}
	l := &Ledger{
		db:        db,
		state:     stateTrie,
		clock:     opts.Clock,
		sinks:     append([]EventSink(nil), opts.Sinks...),
		logger:    opts.Logger,
		tracer:    otel.Tracer("tipchain/core"),
		metrics:   opts.Metrics,
		outboxSeq: outboxSeq,
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if outboxSeq > 0 {
		l.logger.Info("replaying queued events", "last_seq", outboxSeq)
		l.deliver(context.Background())
	}
	return l, nil
}

// Root returns the committed state root.
func (l *Ledger) Root() common.Hash {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.state.Root()
}

// now returns the transaction timestamp. It never goes backwards even if the
// wall clock does. Callers hold stateMu.
func (l *Ledger) now() int64 {
	ts := l.clock().Unix()
	if ts < l.lastNow {
		ts = l.lastNow
	}
	l.lastNow = ts
	return ts
}

func (l *Ledger) newTippingEngine(manager *state.Manager, emitter events.Emitter, now int64) *tipping.Engine {
	engine := tipping.NewEngine()
	engine.SetState(manager)
	engine.SetTransferer(bank.NewTransferer(manager))
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() int64 { return now })
	engine.SetLogger(l.logger)
	return engine
}

type txFunc func(engine *tipping.Engine, manager *state.Manager) error

// transact runs fn as one all-or-nothing transaction.
func (l *Ledger) transact(ctx context.Context, op string, fn txFunc) (txID string, err error) {
	start := time.Now()
	ctx, span := l.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(attribute.String("ledger.operation", op)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		l.metrics.ObserveTransaction(op, err, time.Since(start))
	}()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	txID = uuid.NewString()
	now := l.now()
	working := l.state.Copy()
	manager := state.NewManager(working)
	buffer := events.NewBuffer()
	engine := l.newTippingEngine(manager, buffer, now)

	if err := fn(engine, manager); err != nil {
		buffer.Discard()
		l.logger.Debug("ledger transaction rejected", "op", op, "txId", txID, "error", err)
		return "", err
	}

	root, err := working.Commit(l.version + 1)
	if err != nil {
		buffer.Discard()
		return "", fmt.Errorf("core: commit state: %w", err)
	}
	// head root and queued events land together
	batch := l.db.NewBatch()
	seq, err := l.enqueue(batch, render(txID, now, buffer.Drain()))
	if err != nil {
		return "", err
	}
	if err := storage.PutHeadRoot(batch, root.Bytes()); err != nil {
		return "", fmt.Errorf("core: stage head root: %w", err)
	}
	if err := batch.Write(); err != nil {
		return "", fmt.Errorf("core: persist head root: %w", err)
	}
	l.state = working
	l.version++
	l.outboxSeq = seq
	span.SetAttributes(attribute.String("ledger.tx_id", txID), attribute.String("ledger.root", root.Hex()))
	l.logger.Info("ledger transaction committed", "op", op, "txId", txID, "root", root.Hex())

	l.deliver(context.WithoutCancel(ctx))
	return txID, nil
}

// view runs fn against the committed state.
func (l *Ledger) view(ctx context.Context, fn txFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	manager := state.NewManager(l.state)
	engine := l.newTippingEngine(manager, events.NoopEmitter{}, l.lastNow)
	engine.SetTransferer(nil)
	return fn(engine, manager)
}

func requireAuthority(engine *tipping.Engine, caller [20]byte) error {
	cfg, err := engine.Platform()
	if err != nil {
		return err
	}
	if cfg.Authority != caller {
		return tipping.ErrUnauthorized
	}
	return nil
}

// Mint credits amount to addr. Only genesis tooling and dev faucets call it.
func (l *Ledger) Mint(ctx context.Context, addr [20]byte, amount *big.Int) error {
	_, err := l.transact(ctx, "mint", func(_ *tipping.Engine, manager *state.Manager) error {
		return bank.NewTransferer(manager).Mint(addr, amount)
	})
	return err
}
