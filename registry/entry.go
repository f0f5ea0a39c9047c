package registry

import (
	"fmt"

	"github.com/ruteri/canary-registry/ledger"
)

// Initialize creates a shared registry administered by the sender and hands
// the sender its AdminCap.
func Initialize(tx *ledger.Tx, fee uint64, policy CapPolicy) (registryID, adminCapID Address, err error) {
	if policy == "" {
		policy = CapPersists
	}
	if _, err := ParseCapPolicy(string(policy)); err != nil {
		return Address{}, Address{}, err
	}

	registryID = tx.FreshID()
	adminCapID = tx.FreshID()

	reg := newRegistry(registryID, tx.Sender(), fee, policy)
	if err := tx.Create(module, registryID, "Registry", ledger.Shared(), reg); err != nil {
		return Address{}, Address{}, err
	}

	c := AdminCap{id: adminCapID, registryID: registryID}
	if err := tx.Create(module, adminCapID, "AdminCap", ledger.AddressOwner(tx.Sender()), c.stored()); err != nil {
		return Address{}, Address{}, err
	}
	return registryID, adminCapID, nil
}

// Join pays the coin paymentID into the registry and adds the sender to the
// roster. The whole coin is consumed. The sender receives a MembershipCap.
func Join(tx *ledger.Tx, registryID, paymentID Address, domain string) (Address, error) {
	reg, err := Load(tx, registryID)
	if err != nil {
		return Address{}, err
	}

	paid, err := tx.TakeCoin(paymentID)
	if err != nil {
		return Address{}, err
	}

	member := tx.Sender()
	if err := reg.join(member, domain, paid, tx.Timestamp()); err != nil {
		return Address{}, err
	}
	if err := tx.Update(module, registryID, reg); err != nil {
		return Address{}, err
	}

	capID := tx.FreshID()
	c := MembershipCap{id: capID, registryID: registryID, member: member}
	if err := tx.Create(module, capID, "MembershipCap", ledger.AddressOwner(member), c.stored()); err != nil {
		return Address{}, err
	}

	return capID, tx.Emit(module, EventMemberJoined, MemberJoined{
		RegistryID: registryID,
		Member:     member,
		Domain:     domain,
		Paid:       paid,
		JoinedAt:   tx.Timestamp(),
	})
}

// RemoveMember drops member from the roster. Previously issued membership
// capabilities are left with their holder; see CapPolicy.
func RemoveMember(tx *ledger.Tx, registryID, adminCapID, member Address) error {
	reg, err := loadAsAdmin(tx, registryID, adminCapID)
	if err != nil {
		return err
	}
	if err := reg.removeMember(member); err != nil {
		return err
	}
	if err := tx.Update(module, registryID, reg); err != nil {
		return err
	}
	return tx.Emit(module, EventMemberRemoved, MemberRemoved{RegistryID: registryID, Member: member})
}

// Withdraw moves amount out of the registry balance into a new coin owned by
// the sender.
func Withdraw(tx *ledger.Tx, registryID, adminCapID Address, amount uint64) (Address, error) {
	reg, err := loadAsAdmin(tx, registryID, adminCapID)
	if err != nil {
		return Address{}, err
	}
	if err := reg.withdraw(amount); err != nil {
		return Address{}, err
	}
	if err := tx.Update(module, registryID, reg); err != nil {
		return Address{}, err
	}

	coinID, err := tx.PayCoin(tx.Sender(), amount)
	if err != nil {
		return Address{}, err
	}
	return coinID, tx.Emit(module, EventWithdrawn, Withdrawn{
		RegistryID: registryID,
		Amount:     amount,
		Recipient:  tx.Sender(),
		CoinID:     coinID,
	})
}

// UpdateFee sets the payment required by future joins.
func UpdateFee(tx *ledger.Tx, registryID, adminCapID Address, fee uint64) error {
	reg, err := loadAsAdmin(tx, registryID, adminCapID)
	if err != nil {
		return err
	}

	old := reg.Fee
	reg.Fee = fee
	if err := tx.Update(module, registryID, reg); err != nil {
		return err
	}
	return tx.Emit(module, EventFeeUpdated, FeeUpdated{RegistryID: registryID, OldFee: old, NewFee: fee})
}

// Load reads the registry object id.
func Load(r ledger.Reader, id Address) (*Registry, error) {
	var reg Registry
	if _, err := r.Load(id, RegistryType, &reg); err != nil {
		return nil, err
	}
	if reg.Members == nil {
		reg.Members = make(map[Address]MemberInfo)
	}
	return &reg, nil
}

// LoadAdminCap reads an AdminCap. Inside a transaction the capability must be
// owned by the sender.
func LoadAdminCap(r ledger.Reader, id Address) (AdminCap, error) {
	var stored adminCapJSON
	if _, err := r.Load(id, AdminCapType, &stored); err != nil {
		return AdminCap{}, err
	}
	return stored.capability(), nil
}

// LoadMembershipCap reads a MembershipCap.
func LoadMembershipCap(r ledger.Reader, id Address) (MembershipCap, error) {
	var stored membershipCapJSON
	if _, err := r.Load(id, MembershipCapType, &stored); err != nil {
		return MembershipCap{}, err
	}
	return stored.capability(), nil
}

// Authorize loads the registry and checks that the sender holds an AdminCap
// bound to it. It is the admin gate shared with packages that store data
// under a registry.
func Authorize(tx *ledger.Tx, registryID, adminCapID Address) (*Registry, AdminCap, error) {
	reg, err := Load(tx, registryID)
	if err != nil {
		return nil, AdminCap{}, err
	}
	c, err := LoadAdminCap(tx, adminCapID)
	if err != nil {
		return nil, AdminCap{}, fmt.Errorf("admin capability: %w", err)
	}
	if err := reg.VerifyAdmin(c); err != nil {
		return nil, AdminCap{}, err
	}
	return reg, c, nil
}

func loadAsAdmin(tx *ledger.Tx, registryID, adminCapID Address) (*Registry, error) {
	reg, _, err := Authorize(tx, registryID, adminCapID)
	return reg, err
}
