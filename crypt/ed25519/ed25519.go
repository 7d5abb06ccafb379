package ed25519

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	tpcrtypes "github.com/TopiaNetwork/topia-wallet/crypt/types"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
)

const (
	PublicKeyBytes  = ed25519.PublicKeySize
	PrivateKeyBytes = ed25519.PrivateKeySize
	SignatureBytes  = ed25519.SignatureSize
	KeyGenSeedBytes = ed25519.SeedSize
)

var (
	ErrSeedLength       = errors.New("ed25519 seed must be 32 bytes")
	ErrPrivateKeyLength = errors.New("ed25519 private key must be 64 bytes")
	ErrPublicKeyLength  = errors.New("ed25519 public key must be 32 bytes")
	ErrEmptyMessage     = errors.New("message is empty")
)

type CryptServiceEd25519 struct {
	log tplog.Logger
}

func New(log tplog.Logger) *CryptServiceEd25519 {
	return &CryptServiceEd25519{log: log}
}

func (c *CryptServiceEd25519) CryptType() tpcrtypes.CryptType {
	return tpcrtypes.CryptType_Ed25519
}

func (c *CryptServiceEd25519) GeneratePriPubKey() (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error) {
	pub, sec, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, nil, err
	}
	return tpcrtypes.PrivateKey(sec), tpcrtypes.PublicKey(pub), nil
}

// GeneratePriPubKeyBySeed expands a 32-byte seed the RFC 8032 way.
func (c *CryptServiceEd25519) GeneratePriPubKeyBySeed(seed []byte) (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error) {
	if len(seed) != KeyGenSeedBytes {
		return nil, nil, fmt.Errorf("%w: got %d", ErrSeedLength, len(seed))
	}
	sec := ed25519.NewKeyFromSeed(seed)
	return tpcrtypes.PrivateKey(sec), tpcrtypes.PublicKey(sec.Public().(ed25519.PublicKey)), nil
}

func (c *CryptServiceEd25519) ConvertToPublic(priKey tpcrtypes.PrivateKey) (tpcrtypes.PublicKey, error) {
	if len(priKey) != PrivateKeyBytes {
		return nil, ErrPrivateKeyLength
	}
	pub := ed25519.PrivateKey(priKey).Public().(ed25519.PublicKey)
	return append(tpcrtypes.PublicKey(nil), pub...), nil
}

func (c *CryptServiceEd25519) Sign(priKey tpcrtypes.PrivateKey, msg []byte) (tpcrtypes.Signature, error) {
	if len(priKey) != PrivateKeyBytes {
		return nil, ErrPrivateKeyLength
	}
	if len(msg) == 0 {
		return nil, ErrEmptyMessage
	}
	return ed25519.Sign(ed25519.PrivateKey(priKey), msg), nil
}

// Verify reports a malformed signature as a failed check, not an error.
func (c *CryptServiceEd25519) Verify(pubKey tpcrtypes.PublicKey, msg []byte, signData tpcrtypes.Signature) (bool, error) {
	if len(pubKey) != PublicKeyBytes {
		return false, ErrPublicKeyLength
	}
	if len(msg) == 0 {
		return false, ErrEmptyMessage
	}
	if len(signData) != SignatureBytes {
		c.log.Debugf("Ed25519 signature of %d bytes rejected", len(signData))
		return false, nil
	}
	return ed25519.Verify(ed25519.PublicKey(pubKey), msg, signData), nil
}
