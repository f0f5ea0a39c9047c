package cryptoutils

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/canary-registry/interfaces"
	"golang.org/x/crypto/blake2b"
)

// principalScheme prefixes the public key in the principal hash.
const principalScheme byte = 0x01

var ErrInvalidSignature = errors.New("invalid request signature")

// GenerateKey creates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// ParseKey decodes a hex private key, with or without 0x prefix.
func ParseKey(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// LoadKeyFile reads a hex private key written by SaveKeyFile.
func LoadKeyFile(path string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", path, err)
	}
	return key, nil
}

// SaveKeyFile writes key as hex with owner-only permissions.
func SaveKeyFile(path string, key *ecdsa.PrivateKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return crypto.SaveECDSA(path, key)
}

// EncodeKey returns the hex form of key without prefix.
func EncodeKey(key *ecdsa.PrivateKey) string {
	return hex.EncodeToString(crypto.FromECDSA(key))
}

// Principal returns the ledger address controlled by pub.
func Principal(pub *ecdsa.PublicKey) interfaces.Address {
	buf := make([]byte, 0, 1+33)
	buf = append(buf, principalScheme)
	buf = append(buf, crypto.CompressPubkey(pub)...)
	return interfaces.Address(blake2b.Sum256(buf))
}

// RequestDigest is the hash signed by API clients.
func RequestDigest(method, path string, body []byte) []byte {
	return crypto.Keccak256([]byte(method), []byte("\n"), []byte(path), []byte("\n"), body)
}

// SignRequest returns a 65-byte recoverable signature of the request.
func SignRequest(key *ecdsa.PrivateKey, method, path string, body []byte) ([]byte, error) {
	return crypto.Sign(RequestDigest(method, path, body), key)
}

// RecoverSigner returns the principal that produced sig over the request.
func RecoverSigner(method, path string, body, sig []byte) (interfaces.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return interfaces.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}
	pub, err := crypto.SigToPub(RequestDigest(method, path, body), sig)
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return Principal(pub), nil
}
