package cryptoutils

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/vault/shamir"
)

// SplitKey splits a signing key into parts hex shares, any threshold of which
// reconstruct it. Used to hold the registry admin key among several operators.
func SplitKey(key *ecdsa.PrivateKey, parts, threshold int) ([]string, error) {
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if parts < threshold {
		return nil, errors.New("total shares must be at least equal to threshold")
	}

	secret := crypto.FromECDSA(key)
	defer wipeBytes(secret)

	shares, err := shamir.Split(secret, parts, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split key: %w", err)
	}

	encoded := make([]string, len(shares))
	for i, share := range shares {
		encoded[i] = hex.EncodeToString(share)
		wipeBytes(share)
	}
	return encoded, nil
}

// CombineKey reconstructs a key from hex shares produced by SplitKey. Too few
// or mismatched shares yield a different key or an error; callers compare the
// principal against the expected one.
func CombineKey(shares []string) (*ecdsa.PrivateKey, error) {
	raw := make([][]byte, 0, len(shares))
	defer func() {
		for _, share := range raw {
			wipeBytes(share)
		}
	}()

	for i, s := range shares {
		share, err := hex.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("share %d: %w", i, err)
		}
		raw = append(raw, share)
	}

	secret, err := shamir.Combine(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct key: %w", err)
	}
	defer wipeBytes(secret)

	key, err := crypto.ToECDSA(secret)
	if err != nil {
		return nil, fmt.Errorf("reconstructed key is invalid: %w", err)
	}
	return key, nil
}

func wipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
