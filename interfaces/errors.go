package interfaces

import "errors"

// Abort reasons. Every entry operation that fails returns one of these
// (possibly wrapped) and the enclosing transaction commits nothing.
var (
	// ErrInsufficientPayment is returned when a join payment is below the current fee.
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrAlreadyMember is returned when the caller is already on the roster.
	ErrAlreadyMember = errors.New("already a member")

	// ErrNotMember is returned when a principal is not on the roster.
	ErrNotMember = errors.New("not a member")

	// ErrNotAdmin is returned when an admin capability is not bound to the target registry.
	ErrNotAdmin = errors.New("not admin")

	// ErrInvalidCapability is returned when a capability or record argument
	// belongs to a different registry instance.
	ErrInvalidCapability = errors.New("invalid capability")

	// ErrDerivedObjectAlreadyExists is returned when claiming a derived address
	// that already hosts a live object.
	ErrDerivedObjectAlreadyExists = errors.New("derived object already exists")

	// ErrInsufficientBalance is returned when a withdrawal exceeds the registry balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Ledger-level failures raised by the execution engine before or while an
// entry operation runs.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectExists   = errors.New("object already exists")
	ErrNotOwner       = errors.New("object not owned by sender")
	ErrTypeMismatch   = errors.New("object type mismatch")
	ErrImmutable      = errors.New("object is immutable")
	ErrBadSequence    = errors.New("unexpected sender sequence number")
	ErrSealedType     = errors.New("type belongs to another module")

	// ErrValueOverflow is returned when adding coin or balance values would
	// exceed the uint64 range.
	ErrValueOverflow = errors.New("value overflow")
)

// ReasonInternal is reported for errors outside the abort taxonomy.
const ReasonInternal = "Internal"

var reasons = []struct {
	name string
	err  error
}{
	{"InsufficientPayment", ErrInsufficientPayment},
	{"AlreadyMember", ErrAlreadyMember},
	{"NotMember", ErrNotMember},
	{"NotAdmin", ErrNotAdmin},
	{"InvalidCapability", ErrInvalidCapability},
	{"DerivedObjectAlreadyExists", ErrDerivedObjectAlreadyExists},
	{"InsufficientBalance", ErrInsufficientBalance},
	{"ObjectNotFound", ErrObjectNotFound},
	{"ObjectExists", ErrObjectExists},
	{"NotOwner", ErrNotOwner},
	{"TypeMismatch", ErrTypeMismatch},
	{"Immutable", ErrImmutable},
	{"BadSequence", ErrBadSequence},
	{"SealedType", ErrSealedType},
	{"ValueOverflow", ErrValueOverflow},
}

// AbortReason returns the wire name of the abort reason carried by err, or
// ReasonInternal when err is not part of the taxonomy.
func AbortReason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return ReasonInternal
}

// ErrorFromReason maps a wire reason back to its sentinel error. Unknown
// reasons yield nil.
func ErrorFromReason(reason string) error {
	for _, r := range reasons {
		if r.name == reason {
			return r.err
		}
	}
	return nil
}
