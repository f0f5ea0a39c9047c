package artifacts

import (
	"context"
	"sync"
	"testing"

	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/ledger"
	"github.com/ruteri/canary-registry/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin = interfaces.MustAddress("0xad")
	alice = interfaces.MustAddress("0xa11ce")
	scope = interfaces.MustAddress("0xdead")
)

type fixture struct {
	ctx        context.Context
	l          *ledger.Ledger
	clock      *ledger.ManualClock
	registryID Address
	adminCapID Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := ledger.NewManualClock(1)
	l, err := ledger.New(ctx, ledger.Options{Clock: clock})
	require.NoError(t, err)

	f := &fixture{ctx: ctx, l: l, clock: clock}
	f.registryID, f.adminCapID = f.initialize(t)
	return f
}

func (f *fixture) initialize(t *testing.T) (registryID, adminCapID Address) {
	t.Helper()
	_, err := f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
		var err error
		registryID, adminCapID, err = registry.Initialize(tx, 0, registry.CapPersists)
		return err
	})
	require.NoError(t, err)
	return registryID, adminCapID
}

func (f *fixture) store(namespace string, scopeID Address, recordLoc, explanationLoc interfaces.Locator) (*Record, error) {
	var rec *Record
	_, err := f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
		var err error
		rec, err = StoreBlob(tx, f.registryID, f.adminCapID, namespace, recordLoc, explanationLoc, scopeID)
		return err
	})
	return rec, err
}

func TestDeriveAddress_Deterministic(t *testing.T) {
	registryA := interfaces.MustAddress("0x0a")
	registryB := interfaces.MustAddress("0x0b")

	first := DeriveAddress(registryA, "acme.example", scope)
	DeriveAddress(registryA, "other.example", scope)
	DeriveAddress(registryB, "acme.example", scope)
	assert.Equal(t, first, DeriveAddress(registryA, "acme.example", scope))

	assert.NotEqual(t, first, DeriveAddress(registryB, "acme.example", scope))
	assert.NotEqual(t, first, DeriveAddress(registryA, "acme.example", interfaces.MustAddress("0xbeef")))
	assert.NotEqual(t, first, DeriveAddress(registryA, "acme.exampl", scope))
	assert.Equal(t, ledger.DeriveID(registryA, NewDerivationKey("acme.example", scope).Bytes()), first)
}

func TestStoreBlob_AtMostOnce(t *testing.T) {
	f := newFixture(t)

	rec, err := f.store("acme.example", scope, "locA", "locB")
	require.NoError(t, err)

	_, err = f.store("acme.example", scope, "locC", "locD")
	require.ErrorIs(t, err, interfaces.ErrDerivedObjectAlreadyExists)

	require.NoError(t, f.l.View(f.ctx, func(v *ledger.View) error {
		got, err := Lookup(v, f.registryID, "acme.example", scope)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
		assert.Equal(t, interfaces.Locator("locA"), got.RecordLocator)
		return nil
	}))
}

func TestStoreBlob_ConcurrentSameKey(t *testing.T) {
	f := newFixture(t)

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.store("race.example", scope, "loc", "expl")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, interfaces.ErrDerivedObjectAlreadyExists)
	}
	assert.Equal(t, 1, succeeded)
}

func TestStoreBlob_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	otherRegistry, otherCap := f.initialize(t)

	_, err := f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
		_, err := StoreBlob(tx, f.registryID, otherCap, "acme.example", "a", "b", scope)
		return err
	})
	require.ErrorIs(t, err, interfaces.ErrNotAdmin)

	_, err = f.l.Execute(f.ctx, alice, func(tx *ledger.Tx) error {
		_, err := StoreBlob(tx, f.registryID, f.adminCapID, "acme.example", "a", "b", scope)
		return err
	})
	require.ErrorIs(t, err, interfaces.ErrNotOwner)

	require.NoError(t, f.l.View(f.ctx, func(v *ledger.View) error {
		assert.False(t, Exists(v, f.registryID, "acme.example", scope))
		assert.False(t, Exists(v, otherRegistry, "acme.example", scope))
		return nil
	}))
}

func TestUpdateBlob(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(10)
	rec, err := f.store("acme.example", scope, "v1", "e1")
	require.NoError(t, err)

	f.clock.Set(20)
	var updated *Record
	effects, err := f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
		var err error
		updated, err = UpdateBlob(tx, f.registryID, f.adminCapID, rec.ID, "v2", "e2")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []Address{rec.ID}, effects.Mutated)
	assert.Equal(t, rec.ID, updated.ID)
	assert.Equal(t, uint64(20), updated.CreatedAt)

	require.NoError(t, f.l.View(f.ctx, func(v *ledger.View) error {
		got, err := Get(v, DeriveAddress(f.registryID, "acme.example", scope))
		require.NoError(t, err)
		assert.Equal(t, interfaces.Locator("v2"), got.RecordLocator)
		assert.Equal(t, interfaces.Locator("e2"), got.ExplanationLocator)
		return nil
	}))
}

func TestRecord_FromAnotherRegistry(t *testing.T) {
	f := newFixture(t)
	rec, err := f.store("acme.example", scope, "a", "b")
	require.NoError(t, err)

	otherRegistry, otherCap := f.initialize(t)
	_, err = f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
		_, err := UpdateBlob(tx, otherRegistry, otherCap, rec.ID, "x", "y")
		return err
	})
	require.ErrorIs(t, err, interfaces.ErrInvalidCapability)

	_, err = f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
		return DeleteArtifact(tx, otherRegistry, otherCap, rec.ID)
	})
	require.ErrorIs(t, err, interfaces.ErrInvalidCapability)
}

func TestRecreateAfterDelete(t *testing.T) {
	f := newFixture(t)
	rec, err := f.store("acme.example", scope, "old", "old-expl")
	require.NoError(t, err)

	effects, err := f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
		return DeleteArtifact(tx, f.registryID, f.adminCapID, rec.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, []Address{rec.ID}, effects.Deleted)

	require.NoError(t, f.l.View(f.ctx, func(v *ledger.View) error {
		assert.False(t, Exists(v, f.registryID, "acme.example", scope))
		_, err := Lookup(v, f.registryID, "acme.example", scope)
		assert.ErrorIs(t, err, interfaces.ErrObjectNotFound)
		return nil
	}))

	recreated, err := f.store("acme.example", scope, "new", "new-expl")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, recreated.ID)

	require.NoError(t, f.l.View(f.ctx, func(v *ledger.View) error {
		got, err := Lookup(v, f.registryID, "acme.example", scope)
		require.NoError(t, err)
		assert.Equal(t, interfaces.Locator("new"), got.RecordLocator)
		assert.Equal(t, interfaces.Locator("new-expl"), got.ExplanationLocator)
		return nil
	}))
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	clock := ledger.NewManualClock(0)
	l, err := ledger.New(ctx, ledger.Options{Clock: clock})
	require.NoError(t, err)

	var registryID, adminCapID Address
	_, err = l.Execute(ctx, admin, func(tx *ledger.Tx) error {
		var err error
		registryID, adminCapID, err = registry.Initialize(tx, 1_000_000_000, registry.CapPersists)
		return err
	})
	require.NoError(t, err)

	clock.Set(100)
	payment, err := l.Mint(ctx, alice, 1_000_000_000)
	require.NoError(t, err)
	_, err = l.Execute(ctx, alice, func(tx *ledger.Tx) error {
		_, err := registry.Join(tx, registryID, payment, "acme.example")
		return err
	})
	require.NoError(t, err)

	require.NoError(t, l.View(ctx, func(v *ledger.View) error {
		isMember, err := registry.IsMember(v, registryID, alice)
		require.NoError(t, err)
		assert.True(t, isMember)
		info, err := registry.GetMemberInfo(v, registryID, alice)
		require.NoError(t, err)
		assert.Equal(t, registry.MemberInfo{Domain: "acme.example", JoinedAt: 100}, info)
		balance, err := registry.GetBalance(v, registryID)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000_000_000), balance)
		return nil
	}))

	clock.Set(200)
	var rec *Record
	_, err = l.Execute(ctx, admin, func(tx *ledger.Tx) error {
		var err error
		rec, err = StoreBlob(tx, registryID, adminCapID, "acme.example", "locA", "locB", scope)
		return err
	})
	require.NoError(t, err)

	require.NoError(t, l.View(ctx, func(v *ledger.View) error {
		assert.True(t, Exists(v, registryID, "acme.example", scope))
		assert.Equal(t, rec.ID, DeriveAddress(registryID, "acme.example", scope))

		got, err := Get(v, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), got.CreatedAt)
		assert.Equal(t, admin, got.CreatedBy)
		return nil
	}))
}
