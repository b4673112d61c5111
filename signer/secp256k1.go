package signer

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Secp256k1Signer signs the keccak256 digest of a message with a secp256k1 key
type Secp256k1Signer struct {
	privateKey *ecdsa.PrivateKey
}

// InitSecp256k1Signer initializes a secp256k1 signer from the given hex-encoded private key,
// or generates a new key if none is given
func InitSecp256k1Signer(privateKey *string) (*Secp256k1Signer, error) {
	if privateKey == nil {
		sk, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate secp256k1 key; %s", err.Error())
		}
		return &Secp256k1Signer{privateKey: sk}, nil
	}

	raw, err := decodeHex(*privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode secp256k1 private key; %s", err.Error())
	}

	sk, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse secp256k1 private key; %s", err.Error())
	}

	return &Secp256k1Signer{privateKey: sk}, nil
}

// Scheme returns the signature scheme
func (s *Secp256k1Signer) Scheme() string {
	return SignatureSchemeSecp256k1
}

// PublicKey returns the hex-encoded uncompressed public key
func (s *Secp256k1Signer) PublicKey() string {
	return hex.EncodeToString(crypto.FromECDSAPub(&s.privateKey.PublicKey))
}

// PrivateKey returns the hex-encoded private key
func (s *Secp256k1Signer) PrivateKey() string {
	return hex.EncodeToString(crypto.FromECDSA(s.privateKey))
}

// Address returns the ethereum address of the signing key
func (s *Secp256k1Signer) Address() string {
	return crypto.PubkeyToAddress(s.privateKey.PublicKey).Hex()
}

// Sign signs the keccak256 digest of data and returns the hex-encoded [R || S || V] signature
func (s *Secp256k1Signer) Sign(data []byte) (string, error) {
	sig, err := crypto.Sign(crypto.Keccak256(data), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign %d-byte message; %s", len(data), err.Error())
	}
	return hex.EncodeToString(sig), nil
}

// Verify verifies the hex-encoded signature of data against the hex-encoded public key
func (s *Secp256k1Signer) Verify(publicKey string, data []byte, sig string) (bool, error) {
	rawPub, err := decodeHex(publicKey)
	if err != nil {
		return false, fmt.Errorf("failed to decode secp256k1 public key; %s", err.Error())
	}

	rawSig, err := decodeHex(sig)
	if err != nil {
		return false, fmt.Errorf("failed to decode secp256k1 signature; %s", err.Error())
	}
	if len(rawSig) < 64 {
		return false, fmt.Errorf("failed to verify secp256k1 signature; invalid signature length %d", len(rawSig))
	}

	return crypto.VerifySignature(rawPub, crypto.Keccak256(data), rawSig[:64]), nil
}
