package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SignatureSchemeEddsaBN254 eddsa over the bn254 twisted edwards curve
const SignatureSchemeEddsaBN254 = "eddsa_bn254"

// SignatureSchemeSecp256k1 ecdsa over secp256k1
const SignatureSchemeSecp256k1 = "secp256k1"

// Signer signs and verifies view and integrated view serializations
type Signer interface {
	Scheme() string
	PublicKey() string
	PrivateKey() string
	Sign(data []byte) (string, error)
	Verify(publicKey string, data []byte, signature string) (bool, error)
}

// InitSigner initializes a signer for the given scheme; a fresh key is generated
// when privateKey is nil
func InitSigner(scheme string, privateKey *string) (Signer, error) {
	switch strings.ToLower(scheme) {
	case SignatureSchemeEddsaBN254, "":
		return InitEddsaSigner(privateKey)
	case SignatureSchemeSecp256k1:
		return InitSecp256k1Signer(privateKey)
	default:
		return nil, fmt.Errorf("failed to initialize signer; unknown signature scheme: %s", scheme)
	}
}

// Hash returns the hex-encoded sha256 digest of the given data
func Hash(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

func decodeHex(val string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(val, "0x"))
}
