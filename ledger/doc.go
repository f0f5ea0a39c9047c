// Package ledger implements the transactional object ledger that hosts the
// canary registry state machine.
//
// The ledger stores typed, versioned objects addressed by 32-byte ids. Objects
// are owned by a single principal, shared, or immutable. Transactions run one
// at a time under a write lock: reads see committed state plus the
// transaction's own writes, and writes are buffered in an overlay that is
// applied only when the transaction function returns nil. A failing
// transaction commits nothing, which gives every entry operation
// all-or-nothing semantics.
//
// Types are sealed per Module. Only the package holding a Module can create,
// mutate or delete objects of its types, so capability objects cannot be
// minted outside their issuing package.
//
// Derived addresses are computed with DeriveID from a parent object id and a
// serialized key. Tx.ClaimDerived checks that the address is free within the
// same transaction that creates the object, making the ledger's total order
// the linearization point for uniqueness.
//
// Committed state can be persisted after every transaction through a Store;
// see the sqlite and postgres subpackages.
package ledger
