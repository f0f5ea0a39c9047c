package ledger

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ruteri/canary-registry/interfaces"
)

// Address is re-exported for brevity inside ledger call sites.
type Address = interfaces.Address

// OwnerKind tells how an object may be accessed by transactions.
type OwnerKind string

const (
	// OwnerKindAddress objects are exclusively owned by a single principal.
	OwnerKindAddress OwnerKind = "address"
	// OwnerKindShared objects are globally shared and mutable by any transaction.
	OwnerKindShared OwnerKind = "shared"
	// OwnerKindImmutable objects are frozen and readable by anyone.
	OwnerKindImmutable OwnerKind = "immutable"
)

// Owner describes the ownership of a ledger object.
type Owner struct {
	Kind    OwnerKind `json:"kind"`
	Address Address   `json:"address"`
}

// AddressOwner returns an owner for an object held by addr.
func AddressOwner(addr Address) Owner {
	return Owner{Kind: OwnerKindAddress, Address: addr}
}

// Shared returns the owner of a globally shared object.
func Shared() Owner {
	return Owner{Kind: OwnerKindShared}
}

// Immutable returns the owner of a frozen object.
func Immutable() Owner {
	return Owner{Kind: OwnerKindImmutable}
}

// IsOwnedBy reports whether the owner is the single principal addr.
func (o Owner) IsOwnedBy(addr Address) bool {
	return o.Kind == OwnerKindAddress && o.Address == addr
}

func (o Owner) String() string {
	if o.Kind == OwnerKindAddress {
		return o.Address.String()
	}
	return string(o.Kind)
}

// Object is a versioned, typed value stored on the ledger. Contents are kept
// serialized so that every read hands out an independent copy.
type Object struct {
	ID       Address `json:"id"`
	Type     string  `json:"type"`
	Owner    Owner   `json:"owner"`
	Version  uint64  `json:"version"`
	Contents []byte  `json:"contents"`
}

func (o Object) clone() Object {
	o.Contents = append([]byte(nil), o.Contents...)
	return o
}

// Module is the sealed handle of a package that defines ledger types. Only
// the holder of a Module can create, mutate or delete objects whose type is
// "<module>::<Name>", which is what keeps capability objects unforgeable.
type Module struct {
	name string
}

var (
	modulesMu   sync.Mutex
	moduleNames = map[string]struct{}{}
	moduleName  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// NewModule registers a module name. It is meant to be called once from a
// package-level variable and panics on duplicates.
func NewModule(name string) *Module {
	if !moduleName.MatchString(name) {
		panic(fmt.Sprintf("ledger: invalid module name %q", name))
	}

	modulesMu.Lock()
	defer modulesMu.Unlock()
	if _, exists := moduleNames[name]; exists {
		panic(fmt.Sprintf("ledger: module %q registered twice", name))
	}
	moduleNames[name] = struct{}{}

	return &Module{name: name}
}

// Name returns the module name.
func (m *Module) Name() string {
	return m.name
}

// Type returns the fully qualified type tag of a struct defined by m.
func (m *Module) Type(name string) string {
	return m.name + "::" + name
}

func (m *Module) owns(typ string) bool {
	return strings.HasPrefix(typ, m.name+"::")
}
