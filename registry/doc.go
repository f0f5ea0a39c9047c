// Package registry implements the membership registry: a shared ledger object
// holding a paid roster, the join fee and the accumulated balance, together
// with the two capability types it issues.
//
// Admin authority is proven by holding an AdminCap whose registry binding
// matches the target registry. Members receive a MembershipCap on join that
// downstream consumers can check without reading the roster.
//
// Every entry operation runs inside a ledger transaction. A failed operation
// returns one of the interfaces sentinel errors and the transaction commits
// nothing:
//
//	effects, err := l.Execute(ctx, member, func(tx *ledger.Tx) error {
//	    _, err := registry.Join(tx, registryID, coinID, "acme.example")
//	    return err
//	})
//
// Queries run against a ledger.View and never need a capability.
//
// The roster is a map keyed by principal plus a dense index kept in sync with
// it. Removal finds the member's slot by linear scan, moves the last member
// into it and shrinks the index, so enumeration order after a removal is not
// insertion order.
package registry
