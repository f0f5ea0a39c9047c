// Package artifacts stores admin-authored artifact records at addresses
// derived from the owning registry and a (namespace, scope) key.
//
// The address of a record is a pure function of its key, so any reader can
// compute it with DeriveAddress and check Exists before a record is written.
// At most one live record occupies an address. Deleting a record frees the
// address for a later StoreBlob with the same key.
package artifacts
