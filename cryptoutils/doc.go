// Package cryptoutils manages the secp256k1 keys that identify principals.
//
// A principal address is blake2b-256(0x01 || compressed public key). Requests
// to the ledger API are signed with a recoverable signature over
// keccak256(method || "\n" || path || "\n" || body), so the server learns the
// sender from the signature alone.
package cryptoutils
