package types

import (
	"fmt"
	"strings"
)

type PrivateKey []byte

type PublicKey []byte

type Signature []byte

type CryptType byte

const (
	CryptType_Unknown CryptType = iota
	CryptType_Ed25519
	CryptType_Secp256
)

var cryptTypeNames = map[CryptType]string{
	CryptType_Ed25519: "ed25519",
	CryptType_Secp256: "secp256k1",
}

func (t CryptType) String() string {
	if name, ok := cryptTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

func ParseCryptType(s string) (CryptType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range cryptTypeNames {
		if name == s {
			return t, nil
		}
	}
	return CryptType_Unknown, fmt.Errorf("unknown crypt type %q", s)
}

// SignatureKeyPair is derived on demand from (seed, nonce) and never persisted.
type SignatureKeyPair struct {
	CryptType  CryptType
	PrivateKey PrivateKey
	PublicKey  PublicKey
}
