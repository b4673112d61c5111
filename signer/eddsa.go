package signer

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
)

// EddsaSigner signs with an eddsa key on the bn254 twisted edwards curve; messages
// are hashed with sha256
type EddsaSigner struct {
	privateKey *eddsa.PrivateKey
}

// InitEddsaSigner initializes an eddsa signer from the given hex-encoded private key,
// or generates a new key if none is given
func InitEddsaSigner(privateKey *string) (*EddsaSigner, error) {
	if privateKey == nil {
		sk, err := eddsa.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate eddsa key; %s", err.Error())
		}
		return &EddsaSigner{privateKey: sk}, nil
	}

	raw, err := decodeHex(*privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode eddsa private key; %s", err.Error())
	}

	sk := &eddsa.PrivateKey{}
	if _, err := sk.SetBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse eddsa private key; %s", err.Error())
	}

	return &EddsaSigner{privateKey: sk}, nil
}

// Scheme returns the signature scheme
func (s *EddsaSigner) Scheme() string {
	return SignatureSchemeEddsaBN254
}

// PublicKey returns the hex-encoded compressed public key
func (s *EddsaSigner) PublicKey() string {
	return hex.EncodeToString(s.privateKey.PublicKey.Bytes())
}

// PrivateKey returns the hex-encoded private key
func (s *EddsaSigner) PrivateKey() string {
	return hex.EncodeToString(s.privateKey.Bytes())
}

// Sign signs the given data and returns the hex-encoded signature
func (s *EddsaSigner) Sign(data []byte) (string, error) {
	sig, err := s.privateKey.Sign(data, sha256.New())
	if err != nil {
		return "", fmt.Errorf("failed to sign %d-byte message; %s", len(data), err.Error())
	}
	return hex.EncodeToString(sig), nil
}

// Verify verifies the hex-encoded signature of data against the hex-encoded public key
func (s *EddsaSigner) Verify(publicKey string, data []byte, sig string) (bool, error) {
	rawPub, err := decodeHex(publicKey)
	if err != nil {
		return false, fmt.Errorf("failed to decode eddsa public key; %s", err.Error())
	}

	rawSig, err := decodeHex(sig)
	if err != nil {
		return false, fmt.Errorf("failed to decode eddsa signature; %s", err.Error())
	}

	pub := &eddsa.PublicKey{}
	if _, err := pub.SetBytes(rawPub); err != nil {
		return false, fmt.Errorf("failed to parse eddsa public key; %s", err.Error())
	}

	return pub.Verify(rawSig, data, sha256.New())
}
