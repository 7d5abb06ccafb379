package symmetric

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
	"lukechampine.com/frand"
)

const (
	KeyLen   = 32
	SaltLen  = 32
	nonceLen = 12

	maxScryptN = 1 << 22
)

var (
	ErrPasswordEmpty = errors.New("password is empty")
	ErrDecrypt       = errors.New("can't decrypt: wrong key or corrupted data")
	ErrInvalidParams = errors.New("invalid scrypt parameters")
)

// ScryptParams fixes the password KDF for one ciphertext. It is stored next to the
// ciphertext it protects.
type ScryptParams struct {
	N    int
	R    int
	P    int
	Salt []byte
}

// DefaultScryptParams carries the default cost and no salt. WithNewSalt completes it.
func DefaultScryptParams() ScryptParams {
	return ScryptParams{
		N: 1 << 18,
		R: 8,
		P: 1,
	}
}

// WithNewSalt returns a copy of the params with a fresh random salt.
func (p ScryptParams) WithNewSalt() ScryptParams {
	p.Salt = frand.Bytes(SaltLen)
	return p
}

func (p ScryptParams) Validate() error {
	switch {
	case p.N < 2 || p.N > maxScryptN || p.N&(p.N-1) != 0:
		return fmt.Errorf("%w: N=%d", ErrInvalidParams, p.N)
	case p.R < 1 || p.P < 1:
		return fmt.Errorf("%w: r=%d p=%d", ErrInvalidParams, p.R, p.P)
	case len(p.Salt) == 0:
		return fmt.Errorf("%w: empty salt", ErrInvalidParams)
	}
	return nil
}

// Key is an AES-256-GCM key. Ciphertexts are laid out as nonce||sealed.
type Key struct {
	aead cipher.AEAD
}

func DeriveKey(password []byte, params ScryptParams) (*Key, error) {
	if len(password) == 0 {
		return nil, ErrPasswordEmpty
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	raw, err := scrypt.Key(password, params.Salt, params.N, params.R, params.P, KeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(raw)

	return NewKey(raw)
}

func NewKey(raw []byte) (*Key, error) {
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Key{aead: aead}, nil
}

func (k *Key) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := frand.Bytes(nonceLen)
	return k.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (k *Key) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceLen+k.aead.Overhead() {
		return nil, ErrDecrypt
	}

	plaintext, err := k.aead.Open(nil, ciphertext[:nonceLen], ciphertext[nonceLen:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
