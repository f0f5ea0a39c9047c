package registry

import (
	"context"
	"testing"

	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin  = interfaces.MustAddress("0xad")
	alice  = interfaces.MustAddress("0xa11ce")
	mallet = interfaces.MustAddress("0x3a11e7")
)

type fixture struct {
	ctx        context.Context
	l          *ledger.Ledger
	clock      *ledger.ManualClock
	registryID Address
	adminCapID Address
}

func newFixture(t *testing.T, fee uint64, policy CapPolicy) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := ledger.NewManualClock(1)
	l, err := ledger.New(ctx, ledger.Options{Clock: clock})
	require.NoError(t, err)

	f := &fixture{ctx: ctx, l: l, clock: clock}
	_, err = l.Execute(ctx, admin, func(tx *ledger.Tx) error {
		var err error
		f.registryID, f.adminCapID, err = Initialize(tx, fee, policy)
		return err
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) mint(t *testing.T, owner Address, value uint64) Address {
	t.Helper()
	id, err := f.l.Mint(f.ctx, owner, value)
	require.NoError(t, err)
	return id
}

func (f *fixture) join(t *testing.T, who Address, payment uint64, domain string) (Address, *ledger.Effects, error) {
	t.Helper()
	coinID := f.mint(t, who, payment)
	var capID Address
	effects, err := f.l.Execute(f.ctx, who, func(tx *ledger.Tx) error {
		var err error
		capID, err = Join(tx, f.registryID, coinID, domain)
		return err
	})
	return capID, effects, err
}

func (f *fixture) view(t *testing.T, fn func(v *ledger.View)) {
	t.Helper()
	require.NoError(t, f.l.View(f.ctx, func(v *ledger.View) error {
		fn(v)
		return nil
	}))
}

func TestJoin_FeeGate(t *testing.T) {
	f := newFixture(t, 1_000, CapPersists)

	coinID := f.mint(t, alice, 999)
	effects, err := f.l.Execute(f.ctx, alice, func(tx *ledger.Tx) error {
		_, err := Join(tx, f.registryID, coinID, "acme.example")
		return err
	})
	require.ErrorIs(t, err, interfaces.ErrInsufficientPayment)
	assert.Equal(t, ledger.StatusAborted, effects.Status)
	assert.Equal(t, "InsufficientPayment", effects.AbortReason)

	f.view(t, func(v *ledger.View) {
		isMember, err := IsMember(v, f.registryID, alice)
		require.NoError(t, err)
		assert.False(t, isMember)

		// the rejected payment is still alice's
		total, _, err := ledger.CoinBalance(v, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(999), total)
	})

	_, _, err = f.join(t, alice, 1_500, "acme.example")
	require.NoError(t, err)
	f.view(t, func(v *ledger.View) {
		balance, err := GetBalance(v, f.registryID)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_500), balance)
	})
}

func TestJoin_AlreadyMember(t *testing.T) {
	f := newFixture(t, 10, CapPersists)
	_, _, err := f.join(t, alice, 10, "a.example")
	require.NoError(t, err)

	_, _, err = f.join(t, alice, 10, "b.example")
	require.ErrorIs(t, err, interfaces.ErrAlreadyMember)

	f.view(t, func(v *ledger.View) {
		info, err := GetMemberInfo(v, f.registryID, alice)
		require.NoError(t, err)
		assert.Equal(t, "a.example", info.Domain)
		balance, err := GetBalance(v, f.registryID)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), balance)
	})
}

func TestJoin_IssuesMembershipCapAndEvent(t *testing.T) {
	f := newFixture(t, 10, CapPersists)
	f.clock.Set(55)

	capID, effects, err := f.join(t, alice, 10, "acme.example")
	require.NoError(t, err)
	assert.Contains(t, effects.Created, capID)
	require.Len(t, effects.Events, 1)
	assert.Equal(t, "registry::MemberJoined", effects.Events[0].Type)

	f.view(t, func(v *ledger.View) {
		obj, err := v.Get(capID)
		require.NoError(t, err)
		assert.True(t, obj.Owner.IsOwnedBy(alice))

		member, err := VerifyMembership(v, f.registryID, capID)
		require.NoError(t, err)
		assert.Equal(t, alice, member)

		info, err := GetMemberInfo(v, f.registryID, alice)
		require.NoError(t, err)
		assert.Equal(t, MemberInfo{Domain: "acme.example", JoinedAt: 55}, info)
	})
}

func TestAdminOperations(t *testing.T) {
	f := newFixture(t, 10, CapPersists)
	_, _, err := f.join(t, alice, 25, "acme.example")
	require.NoError(t, err)

	t.Run("update fee", func(t *testing.T) {
		_, err := f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
			return UpdateFee(tx, f.registryID, f.adminCapID, 40)
		})
		require.NoError(t, err)
		f.view(t, func(v *ledger.View) {
			fee, err := GetFee(v, f.registryID)
			require.NoError(t, err)
			assert.Equal(t, uint64(40), fee)
		})
	})

	t.Run("withdraw more than balance", func(t *testing.T) {
		_, err := f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
			_, err := Withdraw(tx, f.registryID, f.adminCapID, 26)
			return err
		})
		require.ErrorIs(t, err, interfaces.ErrInsufficientBalance)
	})

	t.Run("withdraw pays the admin", func(t *testing.T) {
		_, err := f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
			_, err := Withdraw(tx, f.registryID, f.adminCapID, 20)
			return err
		})
		require.NoError(t, err)
		f.view(t, func(v *ledger.View) {
			total, _, err := ledger.CoinBalance(v, admin)
			require.NoError(t, err)
			assert.Equal(t, uint64(20), total)
			balance, err := GetBalance(v, f.registryID)
			require.NoError(t, err)
			assert.Equal(t, uint64(5), balance)
		})
	})

	t.Run("remove member", func(t *testing.T) {
		_, err := f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
			return RemoveMember(tx, f.registryID, f.adminCapID, alice)
		})
		require.NoError(t, err)

		_, err = f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
			return RemoveMember(tx, f.registryID, f.adminCapID, alice)
		})
		require.ErrorIs(t, err, interfaces.ErrNotMember)

		f.view(t, func(v *ledger.View) {
			_, err := GetMemberInfo(v, f.registryID, alice)
			require.ErrorIs(t, err, interfaces.ErrNotMember)
			count, err := GetMemberCount(v, f.registryID)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	})
}

func TestAdminCap_HeldByAnotherPrincipal(t *testing.T) {
	f := newFixture(t, 10, CapPersists)

	_, err := f.l.Execute(f.ctx, mallet, func(tx *ledger.Tx) error {
		return UpdateFee(tx, f.registryID, f.adminCapID, 0)
	})
	require.ErrorIs(t, err, interfaces.ErrNotOwner)

	// transferring the capability transfers admin rights
	_, err = f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
		return ledger.TransferObject(tx, f.adminCapID, mallet)
	})
	require.NoError(t, err)
	_, err = f.l.Execute(f.ctx, mallet, func(tx *ledger.Tx) error {
		return UpdateFee(tx, f.registryID, f.adminCapID, 0)
	})
	require.NoError(t, err)
}

func TestAdminCap_BoundToOneRegistry(t *testing.T) {
	a := newFixture(t, 10, CapPersists)

	var registryB, capB Address
	_, err := a.l.Execute(a.ctx, admin, func(tx *ledger.Tx) error {
		var err error
		registryB, capB, err = Initialize(tx, 10, CapPersists)
		return err
	})
	require.NoError(t, err)

	_, err = a.l.Execute(a.ctx, admin, func(tx *ledger.Tx) error {
		return UpdateFee(tx, registryB, a.adminCapID, 1)
	})
	require.ErrorIs(t, err, interfaces.ErrNotAdmin)

	a.view(t, func(v *ledger.View) {
		require.NoError(t, VerifyAdmin(v, a.registryID, a.adminCapID))
		require.NoError(t, VerifyAdmin(v, registryB, capB))
		require.ErrorIs(t, VerifyAdmin(v, registryB, a.adminCapID), interfaces.ErrNotAdmin)
		require.ErrorIs(t, VerifyAdmin(v, a.registryID, capB), interfaces.ErrNotAdmin)

		boundTo, err := GetRegistryID(v, capB)
		require.NoError(t, err)
		assert.Equal(t, registryB, boundTo)
	})
}

func TestMembershipCap_AfterRemoval(t *testing.T) {
	for _, policy := range []CapPolicy{CapPersists, CapRevokedOnRemoval} {
		t.Run(string(policy), func(t *testing.T) {
			f := newFixture(t, 1, policy)
			capID, _, err := f.join(t, alice, 1, "acme.example")
			require.NoError(t, err)

			_, err = f.l.Execute(f.ctx, admin, func(tx *ledger.Tx) error {
				return RemoveMember(tx, f.registryID, f.adminCapID, alice)
			})
			require.NoError(t, err)

			f.view(t, func(v *ledger.View) {
				_, err := v.Get(capID)
				require.NoError(t, err, "removal leaves the capability with its holder")

				member, err := VerifyMembership(v, f.registryID, capID)
				if policy == CapRevokedOnRemoval {
					require.ErrorIs(t, err, interfaces.ErrNotMember)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, alice, member)
			})
		})
	}
}

func TestRegistry_EndToEndJoin(t *testing.T) {
	f := newFixture(t, 1_000_000_000, CapPersists)
	f.clock.Set(100)

	_, _, err := f.join(t, alice, 1_000_000_000, "acme.example")
	require.NoError(t, err)

	f.view(t, func(v *ledger.View) {
		isMember, err := IsMember(v, f.registryID, alice)
		require.NoError(t, err)
		assert.True(t, isMember)

		info, err := GetMemberInfo(v, f.registryID, alice)
		require.NoError(t, err)
		assert.Equal(t, MemberInfo{Domain: "acme.example", JoinedAt: 100}, info)

		got, err := GetInfo(v, f.registryID)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000_000_000), got.Balance)
		assert.Equal(t, admin, got.Admin)

		members, err := GetAllMembers(v, f.registryID)
		require.NoError(t, err)
		assert.Equal(t, []Member{{Address: alice, Domain: "acme.example", JoinedAt: 100}}, members)
	})
}
