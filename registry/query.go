package registry

import (
	"github.com/ruteri/canary-registry/ledger"
)

// Info summarises a registry.
type Info struct {
	ID          Address   `json:"id"`
	Admin       Address   `json:"admin"`
	Fee         uint64    `json:"fee"`
	Balance     uint64    `json:"balance"`
	MemberCount uint64    `json:"member_count"`
	Policy      CapPolicy `json:"policy"`
}

func IsMember(v *ledger.View, registryID, addr Address) (bool, error) {
	reg, err := Load(v, registryID)
	if err != nil {
		return false, err
	}
	return reg.IsMember(addr), nil
}

// GetMemberInfo fails with ErrNotMember when addr is not on the roster.
func GetMemberInfo(v *ledger.View, registryID, addr Address) (MemberInfo, error) {
	reg, err := Load(v, registryID)
	if err != nil {
		return MemberInfo{}, err
	}
	return reg.MemberInfo(addr)
}

// GetAllMembers lists the roster in index order.
func GetAllMembers(v *ledger.View, registryID Address) ([]Member, error) {
	reg, err := Load(v, registryID)
	if err != nil {
		return nil, err
	}
	return reg.AllMembers(), nil
}

func GetInfo(v *ledger.View, registryID Address) (Info, error) {
	reg, err := Load(v, registryID)
	if err != nil {
		return Info{}, err
	}
	return Info{
		ID:          reg.ID,
		Admin:       reg.Admin,
		Fee:         reg.Fee,
		Balance:     reg.Balance,
		MemberCount: reg.MemberCount,
		Policy:      reg.Policy,
	}, nil
}

func GetAdmin(v *ledger.View, registryID Address) (Address, error) {
	info, err := GetInfo(v, registryID)
	return info.Admin, err
}

func GetFee(v *ledger.View, registryID Address) (uint64, error) {
	info, err := GetInfo(v, registryID)
	return info.Fee, err
}

func GetBalance(v *ledger.View, registryID Address) (uint64, error) {
	info, err := GetInfo(v, registryID)
	return info.Balance, err
}

func GetMemberCount(v *ledger.View, registryID Address) (uint64, error) {
	info, err := GetInfo(v, registryID)
	return info.MemberCount, err
}

// GetRegistryID returns the registry an AdminCap is bound to.
func GetRegistryID(v *ledger.View, adminCapID Address) (Address, error) {
	c, err := LoadAdminCap(v, adminCapID)
	if err != nil {
		return Address{}, err
	}
	return c.RegistryID(), nil
}

// VerifyAdmin checks that the AdminCap adminCapID is bound to registryID.
func VerifyAdmin(v *ledger.View, registryID, adminCapID Address) error {
	reg, err := Load(v, registryID)
	if err != nil {
		return err
	}
	c, err := LoadAdminCap(v, adminCapID)
	if err != nil {
		return err
	}
	return reg.VerifyAdmin(c)
}

// VerifyMembership returns the principal attested by the MembershipCap capID
// when presented to registryID.
func VerifyMembership(v *ledger.View, registryID, capID Address) (Address, error) {
	reg, err := Load(v, registryID)
	if err != nil {
		return Address{}, err
	}
	c, err := LoadMembershipCap(v, capID)
	if err != nil {
		return Address{}, err
	}
	return reg.VerifyMembership(c)
}
