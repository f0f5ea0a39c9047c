package ledger

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Hash scopes keep fresh, derived and digest hashes in disjoint domains.
const (
	scopeFreshID   byte = 0xf0
	scopeDerivedID byte = 0xf1
	scopeDigest    byte = 0xf2
)

// DeriveID computes the address of an object derived from parent under key.
// The result depends only on its inputs, so any caller can precompute it
// before the object exists.
func DeriveID(parent Address, key []byte) Address {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{scopeDerivedID})
	h.Write(parent[:])

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(key)))
	h.Write(n[:])
	h.Write(key)

	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

func freshID(digest Address, counter uint64) Address {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{scopeFreshID})
	h.Write(digest[:])

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], counter)
	h.Write(n[:])

	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

func transactionDigest(sender Address, sequence, checkpoint, timestamp uint64) Address {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{scopeDigest})
	h.Write(sender[:])

	var n [24]byte
	binary.BigEndian.PutUint64(n[0:8], sequence)
	binary.BigEndian.PutUint64(n[8:16], checkpoint)
	binary.BigEndian.PutUint64(n[16:24], timestamp)
	h.Write(n[:])

	var out Address
	copy(out[:], h.Sum(nil))
	return out
}
