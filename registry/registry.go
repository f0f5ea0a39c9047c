package registry

import (
	"fmt"

	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/ledger"
)

type Address = interfaces.Address

var module = ledger.NewModule("registry")

// Ledger type tags of the objects defined by this package.
var (
	RegistryType      = module.Type("Registry")
	AdminCapType      = module.Type("AdminCap")
	MembershipCapType = module.Type("MembershipCap")
)

// CapPolicy decides whether a MembershipCap outlives its holder's removal
// from the roster.
type CapPolicy string

const (
	// CapPersists keeps issued membership capabilities valid after removal.
	// Only the registry binding is checked.
	CapPersists CapPolicy = "persists"

	// CapRevokedOnRemoval additionally requires the attested principal to be
	// on the roster when the capability is verified.
	CapRevokedOnRemoval CapPolicy = "revoked_on_removal"
)

// ParseCapPolicy validates a policy name. The empty string selects CapPersists.
func ParseCapPolicy(s string) (CapPolicy, error) {
	switch CapPolicy(s) {
	case "", CapPersists:
		return CapPersists, nil
	case CapRevokedOnRemoval:
		return CapRevokedOnRemoval, nil
	}
	return "", fmt.Errorf("unknown capability policy %q", s)
}

// MemberInfo is the roster entry of a member.
type MemberInfo struct {
	Domain   string `json:"domain"`
	JoinedAt uint64 `json:"joined_at"`
}

// Member is a roster entry together with its principal.
type Member struct {
	Address  Address `json:"address"`
	Domain   string  `json:"domain"`
	JoinedAt uint64  `json:"joined_at"`
}

// Registry is the shared roster object.
type Registry struct {
	ID          Address                `json:"id"`
	Members     map[Address]MemberInfo `json:"members"`
	MemberIndex []Address              `json:"member_index"`
	MemberCount uint64                 `json:"member_count"`
	Fee         uint64                 `json:"fee"`
	Balance     uint64                 `json:"balance"`
	Admin       Address                `json:"admin"`
	Policy      CapPolicy              `json:"policy"`
}

func newRegistry(id, admin Address, fee uint64, policy CapPolicy) *Registry {
	return &Registry{
		ID:          id,
		Members:     make(map[Address]MemberInfo),
		MemberIndex: []Address{},
		Fee:         fee,
		Admin:       admin,
		Policy:      policy,
	}
}

// AdminCap proves admin authority over the registry it is bound to. Its
// fields are unexported: only this package issues admin capabilities.
type AdminCap struct {
	id         Address
	registryID Address
}

// ID returns the ledger id of the capability object.
func (c AdminCap) ID() Address { return c.id }

// RegistryID returns the registry the capability is bound to.
func (c AdminCap) RegistryID() Address { return c.registryID }

// adminCapJSON is the stored form of an AdminCap. Only this package converts
// between the two.
type adminCapJSON struct {
	ID         Address `json:"id"`
	RegistryID Address `json:"registry_id"`
}

func (c AdminCap) stored() adminCapJSON {
	return adminCapJSON{ID: c.id, RegistryID: c.registryID}
}

func (s adminCapJSON) capability() AdminCap {
	return AdminCap{id: s.ID, registryID: s.RegistryID}
}

// MembershipCap attests that member paid to join the registry it is bound to.
type MembershipCap struct {
	id         Address
	registryID Address
	member     Address
}

// ID returns the ledger id of the capability object.
func (c MembershipCap) ID() Address { return c.id }

// RegistryID returns the registry the capability is bound to.
func (c MembershipCap) RegistryID() Address { return c.registryID }

// Member returns the principal the capability attests for.
func (c MembershipCap) Member() Address { return c.member }

type membershipCapJSON struct {
	ID         Address `json:"id"`
	RegistryID Address `json:"registry_id"`
	Member     Address `json:"member"`
}

func (c MembershipCap) stored() membershipCapJSON {
	return membershipCapJSON{ID: c.id, RegistryID: c.registryID, Member: c.member}
}

func (s membershipCapJSON) capability() MembershipCap {
	return MembershipCap{id: s.ID, registryID: s.RegistryID, member: s.Member}
}

// VerifyAdmin fails with ErrNotAdmin unless c is bound to r.
func (r *Registry) VerifyAdmin(c AdminCap) error {
	if c.registryID != r.ID {
		return fmt.Errorf("%w: capability bound to %s, registry is %s", interfaces.ErrNotAdmin, c.registryID, r.ID)
	}
	return nil
}

// VerifyMembership returns the principal c attests for. A capability bound
// to another registry fails with ErrInvalidCapability. Under
// CapRevokedOnRemoval a principal no longer on the roster fails with
// ErrNotMember.
func (r *Registry) VerifyMembership(c MembershipCap) (Address, error) {
	if c.registryID != r.ID {
		return Address{}, fmt.Errorf("%w: membership bound to %s, registry is %s", interfaces.ErrInvalidCapability, c.registryID, r.ID)
	}
	if r.Policy == CapRevokedOnRemoval && !r.IsMember(c.member) {
		return Address{}, fmt.Errorf("%w: %s was removed", interfaces.ErrNotMember, c.member)
	}
	return c.member, nil
}

// IsMember reports whether addr is on the roster.
func (r *Registry) IsMember(addr Address) bool {
	_, ok := r.Members[addr]
	return ok
}

// MemberInfo returns the roster entry of addr.
func (r *Registry) MemberInfo(addr Address) (MemberInfo, error) {
	info, ok := r.Members[addr]
	if !ok {
		return MemberInfo{}, fmt.Errorf("%w: %s", interfaces.ErrNotMember, addr)
	}
	return info, nil
}

// AllMembers lists the roster in index order.
func (r *Registry) AllMembers() []Member {
	members := make([]Member, 0, r.MemberCount)
	for i := uint64(0); i < r.MemberCount; i++ {
		addr := r.MemberIndex[i]
		info := r.Members[addr]
		members = append(members, Member{Address: addr, Domain: info.Domain, JoinedAt: info.JoinedAt})
	}
	return members
}

// join adds member to the roster and credits payment to the balance. Excess
// payment is kept.
func (r *Registry) join(member Address, domain string, payment, now uint64) error {
	if payment < r.Fee {
		return fmt.Errorf("%w: paid %d, fee is %d", interfaces.ErrInsufficientPayment, payment, r.Fee)
	}
	if r.IsMember(member) {
		return fmt.Errorf("%w: %s", interfaces.ErrAlreadyMember, member)
	}
	if r.Balance+payment < r.Balance {
		return fmt.Errorf("%w: balance %d plus payment %d", interfaces.ErrValueOverflow, r.Balance, payment)
	}

	r.Members[member] = MemberInfo{Domain: domain, JoinedAt: now}
	r.MemberIndex = append(r.MemberIndex[:r.MemberCount], member)
	r.MemberCount++
	r.Balance += payment
	return nil
}

// removeMember drops member from the roster. The slot it held is filled by
// the last member.
func (r *Registry) removeMember(member Address) error {
	if !r.IsMember(member) {
		return fmt.Errorf("%w: %s", interfaces.ErrNotMember, member)
	}

	last := r.MemberCount - 1
	for i := uint64(0); i < r.MemberCount; i++ {
		if r.MemberIndex[i] != member {
			continue
		}
		if i != last {
			r.MemberIndex[i] = r.MemberIndex[last]
		}
		r.MemberIndex = r.MemberIndex[:last]
		break
	}

	delete(r.Members, member)
	r.MemberCount--
	return nil
}

func (r *Registry) withdraw(amount uint64) error {
	if amount > r.Balance {
		return fmt.Errorf("%w: requested %d, balance is %d", interfaces.ErrInsufficientBalance, amount, r.Balance)
	}
	r.Balance -= amount
	return nil
}
