package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
)

var (
	// ErrRandomGeneration is returned when the system CSPRNG fails.
	ErrRandomGeneration = errors.New("failed to generate random bytes")

	// ErrInvalidPrivateKey is returned for keys that are not 32 bytes or not on the curve order.
	ErrInvalidPrivateKey = errors.New("invalid private key")
)

// RandomBytes returns n bytes from crypto/rand. n <= 0 yields nil.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, ErrRandomGeneration
	}
	return b, nil
}

// RandomSecretKey generates a secp256k1 private key.
func RandomSecretKey() (*SecretKey, error) {
	key, err := RandomBytes(SecretKeySize)
	if err != nil {
		return nil, err
	}
	defer SecureErase(key)
	priv, _ := btcec.PrivKeyFromBytes(key)
	if priv.Key.IsZero() {
		return RandomSecretKey()
	}
	return NewSecretKey(priv.Serialize()), nil
}

// ParseSecretKey decodes a hex private key, with or without 0x prefix.
func ParseSecretKey(s string) (*SecretKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != 2*SecretKeySize {
		return nil, fmt.Errorf("%w: want %d hex chars, got %d", ErrInvalidPrivateKey, 2*SecretKeySize, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	if priv.Key.IsZero() {
		SecureErase(b)
		return nil, ErrInvalidPrivateKey
	}
	return NewSecretKey(b), nil
}

// PublicKey returns the compressed public key of sk.
func PublicKey(sk *SecretKey) ([]byte, error) {
	if sk.IsClosed() {
		return nil, ErrInvalidPrivateKey
	}
	_, pub := btcec.PrivKeyFromBytes(sk.Data())
	return pub.SerializeCompressed(), nil
}
