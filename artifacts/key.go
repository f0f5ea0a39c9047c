package artifacts

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/ledger"
)

type Address = interfaces.Address

// DerivationTag discriminates artifact keys from any other key derived under
// a registry.
const DerivationTag = "canary_blob"

// DerivationKey identifies a record under its registry.
type DerivationKey struct {
	Tag       []byte
	Namespace string
	ScopeID   Address
}

// NewDerivationKey returns the key of the record for (namespace, scopeID).
func NewDerivationKey(namespace string, scopeID Address) DerivationKey {
	return DerivationKey{
		Tag:       []byte(DerivationTag),
		Namespace: namespace,
		ScopeID:   scopeID,
	}
}

// Bytes returns the RLP serialization of the key.
func (k DerivationKey) Bytes() []byte {
	enc, err := rlp.EncodeToBytes(&k)
	if err != nil {
		// byte slices, strings and byte arrays always encode
		panic(fmt.Sprintf("artifacts: encode derivation key: %v", err))
	}
	return enc
}

// DeriveAddress returns the address at which the record for
// (namespace, scopeID) under registryID lives, whether or not it exists.
func DeriveAddress(registryID Address, namespace string, scopeID Address) Address {
	return ledger.DeriveID(registryID, NewDerivationKey(namespace, scopeID).Bytes())
}
