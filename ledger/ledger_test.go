package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/ruteri/canary-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testModule = NewModule("ledgertest")

type note struct {
	Text string `json:"text"`
}

var (
	alice = interfaces.MustAddress("0xa11ce")
	bob   = interfaces.MustAddress("0xb0b")
)

type memoryStore struct {
	mu      sync.Mutex
	saved   *Snapshot
	saves   int
	saveErr error
}

func (s *memoryStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved, nil
}

func (s *memoryStore) Save(ctx context.Context, snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = snapshot
	s.saves++
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *ManualClock) {
	clock := NewManualClock(1_000)
	l, err := New(context.Background(), Options{Clock: clock})
	require.NoError(t, err)
	return l, clock
}

func TestExecute_CommitsWrites(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	var id Address
	effects, err := l.Execute(ctx, alice, func(tx *Tx) error {
		id = tx.FreshID()
		if err := tx.Create(testModule, id, "Note", Shared(), note{Text: "hello"}); err != nil {
			return err
		}
		return tx.Emit(testModule, "NoteCreated", note{Text: "hello"})
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, effects.Status)
	assert.Equal(t, []Address{id}, effects.Created)
	require.Len(t, effects.Events, 1)
	assert.Equal(t, "ledgertest::NoteCreated", effects.Events[0].Type)

	err = l.View(ctx, func(v *View) error {
		var n note
		obj, err := v.Load(id, testModule.Type("Note"), &n)
		require.NoError(t, err)
		assert.Equal(t, "hello", n.Text)
		assert.Equal(t, effects.Checkpoint, obj.Version)
		return nil
	})
	require.NoError(t, err)
}

func TestExecute_AbortDiscardsWrites(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	boom := errors.New("boom")

	var id Address
	effects, err := l.Execute(ctx, alice, func(tx *Tx) error {
		id = tx.FreshID()
		require.NoError(t, tx.Create(testModule, id, "Note", Shared(), note{Text: "lost"}))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NotNil(t, effects)
	assert.Equal(t, StatusAborted, effects.Status)
	assert.Empty(t, effects.Created)

	err = l.View(ctx, func(v *View) error {
		assert.False(t, v.Exists(id))
		return nil
	})
	require.NoError(t, err)

	// aborted transactions still consume the sender sequence
	assert.Equal(t, uint64(1), l.Sequence(alice))
	assert.Equal(t, uint64(1), l.Checkpoint())
}

func TestExecuteSequenced_RejectsReplay(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	noop := func(tx *Tx) error { return nil }

	_, err := l.ExecuteSequenced(ctx, alice, 0, noop)
	require.NoError(t, err)

	_, err = l.ExecuteSequenced(ctx, alice, 0, noop)
	assert.ErrorIs(t, err, interfaces.ErrBadSequence)

	_, err = l.ExecuteSequenced(ctx, alice, 1, noop)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), l.Sequence(bob))
}

func TestTimestamps_NeverDecrease(t *testing.T) {
	l, clock := newTestLedger(t)
	ctx := context.Background()

	var first, second uint64
	_, err := l.Execute(ctx, alice, func(tx *Tx) error { first = tx.Timestamp(); return nil })
	require.NoError(t, err)

	clock.Set(10)
	_, err = l.Execute(ctx, alice, func(tx *Tx) error { second = tx.Timestamp(); return nil })
	require.NoError(t, err)

	assert.Equal(t, uint64(1_000), first)
	assert.Equal(t, first, second)
}

func TestOwnership_Enforced(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	coinID, err := l.Mint(ctx, alice, 50)
	require.NoError(t, err)

	_, err = l.Execute(ctx, bob, func(tx *Tx) error {
		_, err := tx.TakeCoin(coinID)
		return err
	})
	assert.ErrorIs(t, err, interfaces.ErrNotOwner)

	_, err = l.Execute(ctx, bob, func(tx *Tx) error {
		return tx.Transfer(coinID, bob)
	})
	assert.ErrorIs(t, err, interfaces.ErrNotOwner)

	_, err = l.Execute(ctx, alice, func(tx *Tx) error {
		return TransferObject(tx, coinID, bob)
	})
	require.NoError(t, err)

	err = l.View(ctx, func(v *View) error {
		obj, err := v.Get(coinID)
		require.NoError(t, err)
		assert.True(t, obj.Owner.IsOwnedBy(bob))
		return nil
	})
	require.NoError(t, err)
}

func TestSealedTypes(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	coinID, err := l.Mint(ctx, alice, 50)
	require.NoError(t, err)

	_, err = l.Execute(ctx, alice, func(tx *Tx) error {
		return tx.Update(testModule, coinID, Coin{Value: 1_000_000})
	})
	assert.ErrorIs(t, err, interfaces.ErrSealedType)

	_, err = l.Execute(ctx, alice, func(tx *Tx) error {
		return tx.Delete(testModule, coinID)
	})
	assert.ErrorIs(t, err, interfaces.ErrSealedType)
}

func TestLoad_TypeMismatch(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	coinID, err := l.Mint(ctx, alice, 50)
	require.NoError(t, err)

	_, err = l.Execute(ctx, alice, func(tx *Tx) error {
		_, err := tx.Load(coinID, testModule.Type("Note"), &note{})
		return err
	})
	assert.ErrorIs(t, err, interfaces.ErrTypeMismatch)
}

func TestClaimDerived(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	var parent Address
	_, err := l.Execute(ctx, alice, func(tx *Tx) error {
		parent = tx.FreshID()
		return tx.Create(testModule, parent, "Note", Shared(), note{Text: "parent"})
	})
	require.NoError(t, err)

	key := []byte("child")
	expected := DeriveID(parent, key)
	assert.Equal(t, expected, DeriveID(parent, key))
	assert.NotEqual(t, expected, DeriveID(parent, []byte("other")))

	create := func(tx *Tx) error {
		id, err := tx.ClaimDerived(parent, key)
		if err != nil {
			return err
		}
		assert.Equal(t, expected, id)
		return tx.Create(testModule, id, "Note", Shared(), note{Text: "child"})
	}

	_, err = l.Execute(ctx, alice, create)
	require.NoError(t, err)

	_, err = l.Execute(ctx, alice, create)
	assert.ErrorIs(t, err, interfaces.ErrDerivedObjectAlreadyExists)

	_, err = l.Execute(ctx, alice, func(tx *Tx) error { return tx.Delete(testModule, expected) })
	require.NoError(t, err)

	effects, err := l.Execute(ctx, alice, create)
	require.NoError(t, err)
	assert.Equal(t, []Address{expected}, effects.Created)

	_, err = l.Execute(ctx, alice, func(tx *Tx) error {
		_, err := tx.ClaimDerived(interfaces.MustAddress("0x1234"), key)
		return err
	})
	assert.ErrorIs(t, err, interfaces.ErrObjectNotFound)
}

func TestCoins_SplitMergeBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	coinID, err := l.Mint(ctx, alice, 100)
	require.NoError(t, err)

	var split Address
	_, err = l.Execute(ctx, alice, func(tx *Tx) error {
		var err error
		split, err = SplitCoin(tx, coinID, 30)
		return err
	})
	require.NoError(t, err)

	_, err = l.Execute(ctx, alice, func(tx *Tx) error {
		_, err := SplitCoin(tx, coinID, 71)
		return err
	})
	assert.ErrorIs(t, err, interfaces.ErrInsufficientBalance)

	err = l.View(ctx, func(v *View) error {
		total, ids, err := CoinBalance(v, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), total)
		assert.Len(t, ids, 2)
		return nil
	})
	require.NoError(t, err)

	effects, err := l.Execute(ctx, alice, func(tx *Tx) error {
		return MergeCoins(tx, coinID, []Address{split})
	})
	require.NoError(t, err)
	assert.Equal(t, []Address{split}, effects.Deleted)
	assert.Equal(t, []Address{coinID}, effects.Mutated)

	err = l.View(ctx, func(v *View) error {
		var coin Coin
		_, err := v.Load(coinID, CoinType, &coin)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), coin.Value)
		return nil
	})
	require.NoError(t, err)
}

func TestCoins_MergeOverflowAborts(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	big, err := l.Mint(ctx, alice, math.MaxUint64)
	require.NoError(t, err)
	small, err := l.Mint(ctx, alice, 2)
	require.NoError(t, err)

	err = l.View(ctx, func(v *View) error {
		_, _, err := CoinBalance(v, alice)
		assert.ErrorIs(t, err, interfaces.ErrValueOverflow)
		return nil
	})
	require.NoError(t, err)

	effects, err := l.Execute(ctx, alice, func(tx *Tx) error {
		return MergeCoins(tx, big, []Address{small})
	})
	require.ErrorIs(t, err, interfaces.ErrValueOverflow)
	assert.Equal(t, "ValueOverflow", effects.AbortReason)

	err = l.View(ctx, func(v *View) error {
		for id, want := range map[Address]uint64{big: math.MaxUint64, small: 2} {
			var coin Coin
			_, err := v.Load(id, CoinType, &coin)
			require.NoError(t, err)
			assert.Equal(t, want, coin.Value)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestStore_PersistAndRestore(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()

	l, err := New(ctx, Options{Clock: NewManualClock(5), Store: store})
	require.NoError(t, err)

	coinID, err := l.Mint(ctx, alice, 7)
	require.NoError(t, err)
	_, _ = l.Execute(ctx, alice, func(tx *Tx) error { return errors.New("abort") })
	assert.Equal(t, 2, store.saves)

	restored, err := New(ctx, Options{Store: store})
	require.NoError(t, err)
	assert.Equal(t, l.Checkpoint(), restored.Checkpoint())
	assert.Equal(t, uint64(1), restored.Sequence(alice))

	err = restored.View(ctx, func(v *View) error {
		var coin Coin
		_, err := v.Load(coinID, CoinType, &coin)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), coin.Value)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_SavedSnapshotMatchesState(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	l, err := New(ctx, Options{Clock: NewManualClock(5), Store: store})
	require.NoError(t, err)

	var keep, drop Address
	_, err = l.Execute(ctx, alice, func(tx *Tx) error {
		keep, drop = tx.FreshID(), tx.FreshID()
		require.NoError(t, tx.Create(testModule, keep, "Note", AddressOwner(alice), note{Text: "v1"}))
		return tx.Create(testModule, drop, "Note", AddressOwner(alice), note{Text: "gone soon"})
	})
	require.NoError(t, err)
	assert.Equal(t, l.ExportState(), store.saved)

	_, err = l.Execute(ctx, alice, func(tx *Tx) error {
		require.NoError(t, tx.Update(testModule, keep, note{Text: "v2"}))
		return tx.Delete(testModule, drop)
	})
	require.NoError(t, err)
	assert.Equal(t, l.ExportState(), store.saved)

	_, err = l.Execute(ctx, bob, func(tx *Tx) error { return errors.New("abort") })
	require.Error(t, err)
	assert.Equal(t, l.ExportState(), store.saved)
	assert.Len(t, store.saved.Objects, 1)
}

func TestStore_FailedSaveChangesNothing(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	l, err := New(ctx, Options{Clock: NewManualClock(5), Store: store})
	require.NoError(t, err)

	_, err = l.Mint(ctx, alice, 7)
	require.NoError(t, err)
	before := l.ExportState()

	diskFull := errors.New("disk full")
	store.saveErr = diskFull

	var id Address
	effects, err := l.Execute(ctx, alice, func(tx *Tx) error {
		id = tx.FreshID()
		return tx.Create(testModule, id, "Note", Shared(), note{Text: "unsaved"})
	})
	require.ErrorIs(t, err, diskFull)
	assert.Nil(t, effects)
	assert.Equal(t, before, l.ExportState())
	assert.Equal(t, uint64(0), l.Sequence(alice))
	require.NoError(t, l.View(ctx, func(v *View) error {
		assert.False(t, v.Exists(id))
		return nil
	}))

	boom := errors.New("boom")
	_, err = l.Execute(ctx, alice, func(tx *Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, before, l.ExportState())

	store.saveErr = nil
	restored, err := New(ctx, Options{Store: store})
	require.NoError(t, err)
	assert.Equal(t, before, restored.ExportState())
}

func TestExecute_CancelledContext(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := l.Execute(ctx, alice, func(tx *Tx) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
