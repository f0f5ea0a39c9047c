// Package interfaces defines the core types shared by the canary registry
// components, separating contracts from implementations.
//
// # Identity Types
//
// Address: 32-byte identifier shared by principals and ledger objects.
// Capability objects, the registry and artifact records are all addressed by it.
//
// Locator: opaque content identifier of an artifact payload. Locators are handed
// to an external content-addressed retrieval service and are never interpreted
// by the registry.
//
// # Abort Reasons
//
// Every failing entry operation aborts its transaction with one of the sentinel
// errors declared in errors.go. AbortReason and ErrorFromReason translate them
// to and from the names used on the wire.
//
// # Storage Interfaces
//
// StorageBackend: content-addressed storage for artifact and explanation payloads
// (file, S3, IPFS). StorageBackendFactory creates backends from URI strings and
// aggregates them into a multi-backend.
package interfaces
