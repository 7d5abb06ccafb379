package crypt

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	tpcmm "github.com/TopiaNetwork/topia-wallet/common"
	"github.com/TopiaNetwork/topia-wallet/crypt/symmetric"
	tpcrtypes "github.com/TopiaNetwork/topia-wallet/crypt/types"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
)

const (
	accountKeySeedLen = 32
	accountKeyInfo    = "topia-wallet/account"
)

var ErrSeedEmpty = errors.New("seed is empty")

// SymmetricKey encrypts the serialized wallet at rest.
type SymmetricKey interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)

	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// Provider is the cryptographic capability the wallet consumes.
type Provider interface {
	CryptType() tpcrtypes.CryptType

	// NewKDFParams returns the configured scrypt cost with a fresh salt, for a new ciphertext.
	NewKDFParams() symmetric.ScryptParams

	// DeriveSecretKeyFromPassword derives with the params stored next to the ciphertext.
	DeriveSecretKeyFromPassword(ctx context.Context, password string, params symmetric.ScryptParams) (SymmetricKey, error)

	// DeriveSignatureKeyPair is a pure function of (seed, nonce).
	DeriveSignatureKeyPair(ctx context.Context, seed []byte, nonce uint64) (tpcrtypes.SignatureKeyPair, error)

	Sign(ctx context.Context, priKey tpcrtypes.PrivateKey, msg []byte) (tpcrtypes.Signature, error)

	Verify(ctx context.Context, pubKey tpcrtypes.PublicKey, msg []byte, sig tpcrtypes.Signature) (bool, error)
}

type provider struct {
	log     tplog.Logger
	service CryptService
	kdf     symmetric.ScryptParams
}

type symmetricKey struct {
	key *symmetric.Key
}

func NewProvider(log tplog.Logger, cryptType tpcrtypes.CryptType, kdf symmetric.ScryptParams) (Provider, error) {
	service, err := CreateCryptService(log, cryptType)
	if err != nil {
		return nil, err
	}

	if err = kdf.WithNewSalt().Validate(); err != nil {
		return nil, err
	}

	return &provider{
		log:     log,
		service: service,
		kdf:     kdf,
	}, nil
}

func (p *provider) CryptType() tpcrtypes.CryptType {
	return p.service.CryptType()
}

func (p *provider) NewKDFParams() symmetric.ScryptParams {
	return p.kdf.WithNewSalt()
}

func (p *provider) DeriveSecretKeyFromPassword(ctx context.Context, password string, params symmetric.ScryptParams) (SymmetricKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := symmetric.DeriveKey([]byte(password), params)
	if err != nil {
		return nil, err
	}
	return &symmetricKey{key: key}, nil
}

func (p *provider) DeriveSignatureKeyPair(ctx context.Context, seed []byte, nonce uint64) (tpcrtypes.SignatureKeyPair, error) {
	if err := ctx.Err(); err != nil {
		return tpcrtypes.SignatureKeyPair{}, err
	}
	if len(seed) == 0 {
		return tpcrtypes.SignatureKeyPair{}, ErrSeedEmpty
	}

	info := append([]byte(accountKeyInfo), tpcmm.Uint64ToBytes(nonce)...)

	keySeed := make([]byte, accountKeySeedLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, info), keySeed); err != nil {
		return tpcrtypes.SignatureKeyPair{}, fmt.Errorf("expand account seed: %w", err)
	}
	defer clear(keySeed)

	priKey, pubKey, err := p.service.GeneratePriPubKeyBySeed(keySeed)
	if err != nil {
		return tpcrtypes.SignatureKeyPair{}, fmt.Errorf("derive key pair for nonce %d: %w", nonce, err)
	}

	return tpcrtypes.SignatureKeyPair{
		CryptType:  p.service.CryptType(),
		PrivateKey: priKey,
		PublicKey:  pubKey,
	}, nil
}

func (p *provider) Sign(ctx context.Context, priKey tpcrtypes.PrivateKey, msg []byte) (tpcrtypes.Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.service.Sign(priKey, msg)
}

func (p *provider) Verify(ctx context.Context, pubKey tpcrtypes.PublicKey, msg []byte, sig tpcrtypes.Signature) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.service.Verify(pubKey, msg, sig)
}

func (k *symmetricKey) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return k.key.Encrypt(plaintext)
}

func (k *symmetricKey) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return k.key.Decrypt(ciphertext)
}
