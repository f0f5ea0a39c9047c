package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ruteri/canary-registry/interfaces"
)

// Snapshot is the complete committed state of a ledger.
type Snapshot struct {
	Objects       []Object           `json:"objects"`
	Sequences     map[Address]uint64 `json:"sequences"`
	Checkpoint    uint64             `json:"checkpoint"`
	LastTimestamp uint64             `json:"last_timestamp"`
}

// Store persists ledger snapshots. Load returns a nil snapshot when nothing
// has been saved yet.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

// Metrics observes executed transactions.
type Metrics interface {
	ObserveTransaction(status, reason string, d time.Duration)
}

// Options configures a Ledger. Zero values select an in-memory ledger on the
// system clock.
type Options struct {
	Clock   Clock
	Store   Store
	Metrics Metrics
	Log     *slog.Logger
}

// Event is emitted by entry operations and returned in transaction effects.
type Event struct {
	Type    string          `json:"type"`
	Sender  Address         `json:"sender"`
	Payload json.RawMessage `json:"payload"`
}

// Transaction statuses reported in Effects.
const (
	StatusSuccess = "success"
	StatusAborted = "aborted"
)

// Effects summarises an executed transaction.
type Effects struct {
	Digest      Address   `json:"digest"`
	Sender      Address   `json:"sender"`
	Sequence    uint64    `json:"sequence"`
	Checkpoint  uint64    `json:"checkpoint"`
	Timestamp   uint64    `json:"timestamp"`
	Status      string    `json:"status"`
	AbortReason string    `json:"abort_reason,omitempty"`
	Created     []Address `json:"created"`
	Mutated     []Address `json:"mutated"`
	Deleted     []Address `json:"deleted"`
	Events      []Event   `json:"events"`
}

// Ledger is a single-writer transactional object store. Every transaction
// runs to completion under the write lock and either commits all of its
// writes or none of them.
type Ledger struct {
	mu            sync.RWMutex
	objects       map[Address]Object
	sequences     map[Address]uint64
	checkpoint    uint64
	lastTimestamp uint64

	clock   Clock
	store   Store
	metrics Metrics
	log     *slog.Logger
}

// New creates a ledger and hydrates it from the configured store.
func New(ctx context.Context, opts Options) (*Ledger, error) {
	l := &Ledger{
		objects:   make(map[Address]Object),
		sequences: make(map[Address]uint64),
		clock:     opts.Clock,
		store:     opts.Store,
		metrics:   opts.Metrics,
		log:       opts.Log,
	}
	if l.clock == nil {
		l.clock = SystemClock{}
	}
	if l.log == nil {
		l.log = slog.Default()
	}

	if l.store != nil {
		snapshot, err := l.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		if snapshot != nil {
			l.importSnapshot(snapshot)
			l.log.Info("Ledger state restored",
				slog.Int("objects", len(l.objects)),
				slog.Uint64("checkpoint", l.checkpoint))
		}
	}

	return l, nil
}

// Execute runs fn as a transaction sent by sender. When fn returns an error
// no object write is committed; the sender sequence and the checkpoint still
// advance. The returned effects are non-nil whenever fn was invoked, unless
// the resulting state could not be persisted: then nothing changes and only
// the error is returned.
func (l *Ledger) Execute(ctx context.Context, sender Address, fn func(tx *Tx) error) (*Effects, error) {
	return l.execute(ctx, sender, nil, fn)
}

// ExecuteSequenced is Execute with replay protection: seq must equal the
// sender's current sequence number.
func (l *Ledger) ExecuteSequenced(ctx context.Context, sender Address, seq uint64, fn func(tx *Tx) error) (*Effects, error) {
	return l.execute(ctx, sender, &seq, fn)
}

func (l *Ledger) execute(ctx context.Context, sender Address, seq *uint64, fn func(tx *Tx) error) (*Effects, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.sequences[sender]
	if seq != nil && *seq != current {
		return nil, fmt.Errorf("%w: expected %d, got %d", interfaces.ErrBadSequence, current, *seq)
	}

	timestamp := l.clock.NowMillis()
	if timestamp < l.lastTimestamp {
		timestamp = l.lastTimestamp
	}

	tx := newTx(l, sender, current, l.checkpoint+1, timestamp)
	txErr := fn(tx)

	// The next state is saved before it becomes visible, so a failed save
	// leaves memory and the store in agreement.
	if err := l.persist(ctx, l.stage(tx, txErr == nil)); err != nil {
		l.log.Error("Failed to persist ledger snapshot",
			slog.String("digest", tx.digest.String()),
			"err", err)
		if txErr != nil {
			return nil, fmt.Errorf("%w (persist snapshot: %v)", txErr, err)
		}
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}

	l.sequences[sender] = current + 1
	l.checkpoint = tx.checkpoint
	l.lastTimestamp = timestamp

	effects := &Effects{
		Digest:     tx.digest,
		Sender:     sender,
		Sequence:   current,
		Checkpoint: tx.checkpoint,
		Timestamp:  timestamp,
		Created:    []Address{},
		Mutated:    []Address{},
		Deleted:    []Address{},
		Events:     []Event{},
	}

	if txErr != nil {
		effects.Status = StatusAborted
		effects.AbortReason = interfaces.AbortReason(txErr)
		l.observe(effects, start)
		l.log.Debug("Transaction aborted",
			slog.String("digest", tx.digest.String()),
			slog.String("sender", sender.String()),
			slog.String("reason", effects.AbortReason),
			"err", txErr)
		return effects, txErr
	}

	tx.commit(effects)
	effects.Status = StatusSuccess
	l.observe(effects, start)
	return effects, nil
}

// stage returns the snapshot the ledger holds once tx is executed: counters
// advanced, and the write-set applied when commit is set.
func (l *Ledger) stage(tx *Tx, commit bool) *Snapshot {
	if l.store == nil {
		return nil
	}

	snapshot := l.exportSnapshot()
	snapshot.Sequences[tx.sender] = tx.sequence + 1
	snapshot.Checkpoint = tx.checkpoint
	snapshot.LastTimestamp = tx.timestamp
	if !commit || len(tx.writes) == 0 {
		return snapshot
	}

	objects := snapshot.Objects[:0]
	for _, obj := range snapshot.Objects {
		if _, written := tx.writes[obj.ID]; !written {
			objects = append(objects, obj)
		}
	}
	for _, id := range tx.order {
		if w := tx.writes[id]; w != nil {
			objects = append(objects, w.clone())
		}
	}
	sortObjects(objects)
	snapshot.Objects = objects
	return snapshot
}

func (l *Ledger) observe(effects *Effects, start time.Time) {
	if l.metrics != nil {
		l.metrics.ObserveTransaction(effects.Status, effects.AbortReason, time.Since(start))
	}
}

// View runs fn against committed state. Views never mutate the ledger.
func (l *Ledger) View(ctx context.Context, fn func(v *View) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(&View{l: l})
}

// Sequence returns the next expected sequence number of sender.
func (l *Ledger) Sequence(sender Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sequences[sender]
}

// Checkpoint returns the number of executed transactions.
func (l *Ledger) Checkpoint() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.checkpoint
}

// Mint pays a fresh coin of value to owner. It is the operator's faucet and
// genesis path and is never reachable from entry operations.
func (l *Ledger) Mint(ctx context.Context, owner Address, value uint64) (Address, error) {
	var coinID Address
	_, err := l.Execute(ctx, interfaces.ZeroAddress, func(tx *Tx) error {
		var err error
		coinID, err = tx.PayCoin(owner, value)
		return err
	})
	return coinID, err
}

// ExportState returns a deep copy of the committed state.
func (l *Ledger) ExportState() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.exportSnapshot()
}

func (l *Ledger) exportSnapshot() *Snapshot {
	snapshot := &Snapshot{
		Objects:       make([]Object, 0, len(l.objects)),
		Sequences:     make(map[Address]uint64, len(l.sequences)),
		Checkpoint:    l.checkpoint,
		LastTimestamp: l.lastTimestamp,
	}
	for _, obj := range l.objects {
		snapshot.Objects = append(snapshot.Objects, obj.clone())
	}
	sortObjects(snapshot.Objects)
	for addr, seq := range l.sequences {
		snapshot.Sequences[addr] = seq
	}
	return snapshot
}

func (l *Ledger) importSnapshot(snapshot *Snapshot) {
	l.objects = make(map[Address]Object, len(snapshot.Objects))
	for _, obj := range snapshot.Objects {
		l.objects[obj.ID] = obj.clone()
	}
	l.sequences = make(map[Address]uint64, len(snapshot.Sequences))
	for addr, seq := range snapshot.Sequences {
		l.sequences[addr] = seq
	}
	l.checkpoint = snapshot.Checkpoint
	l.lastTimestamp = snapshot.LastTimestamp
}

func sortObjects(objects []Object) {
	sort.Slice(objects, func(i, j int) bool {
		return bytes.Compare(objects[i].ID[:], objects[j].ID[:]) < 0
	})
}

func (l *Ledger) persist(ctx context.Context, snapshot *Snapshot) error {
	if l.store == nil {
		return nil
	}
	return l.store.Save(ctx, snapshot)
}

// Reader is the read surface shared by transactions and views.
type Reader interface {
	Get(id Address) (Object, error)
	Load(id Address, typ string, out any) (Object, error)
}

// View is a read-only window on committed ledger state.
type View struct {
	l *Ledger
}

// Get returns a copy of the object with the given id.
func (v *View) Get(id Address) (Object, error) {
	obj, ok := v.l.objects[id]
	if !ok {
		return Object{}, fmt.Errorf("%w: %s", interfaces.ErrObjectNotFound, id)
	}
	return obj.clone(), nil
}

// Load decodes the contents of an object of type typ into out. Reads are not
// subject to ownership checks.
func (v *View) Load(id Address, typ string, out any) (Object, error) {
	obj, err := v.Get(id)
	if err != nil {
		return Object{}, err
	}
	return obj, decodeObject(obj, typ, out)
}

// Exists reports whether a live object is stored at id.
func (v *View) Exists(id Address) bool {
	_, ok := v.l.objects[id]
	return ok
}

// OwnedBy lists the objects owned by owner, ordered by id.
func (v *View) OwnedBy(owner Address) []Object {
	var owned []Object
	for _, obj := range v.l.objects {
		if obj.Owner.IsOwnedBy(owner) {
			owned = append(owned, obj.clone())
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return bytes.Compare(owned[i].ID[:], owned[j].ID[:]) < 0
	})
	return owned
}

func decodeObject(obj Object, typ string, out any) error {
	if obj.Type != typ {
		return fmt.Errorf("%w: %s is %s, want %s", interfaces.ErrTypeMismatch, obj.ID, obj.Type, typ)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(obj.Contents, out); err != nil {
		return fmt.Errorf("decode %s: %w", obj.ID, err)
	}
	return nil
}
