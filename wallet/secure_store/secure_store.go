package secure_store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/TopiaNetwork/topia-wallet/codec"
	"github.com/TopiaNetwork/topia-wallet/crypt"
	"github.com/TopiaNetwork/topia-wallet/crypt/symmetric"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
	tpbkcmm "github.com/TopiaNetwork/topia-wallet/storage/backend/common"
	tpwtypes "github.com/TopiaNetwork/topia-wallet/wallet/types"
)

const (
	MOD_NAME = "SecureStore"

	WalletID = "topia-wallet"
)

var walletKeyPrefix = []byte("wallet/")

var (
	// ErrStorageIntegrity means the durable store doesn't hold exactly one wallet record.
	ErrStorageIntegrity = errors.New("storage integrity violated")

	// ErrDecryptionFailure means a wrong password or a corrupted ciphertext.
	ErrDecryptionFailure = errors.New("wallet decryption failed")

	// ErrSchemaValidation means the plaintext is not a well formed wallet.
	ErrSchemaValidation = errors.New("wallet schema validation failed")

	ErrInvalidPassword = errors.New("invalid password")
)

func walletKey() []byte {
	return append(append([]byte(nil), walletKeyPrefix...), WalletID...)
}

// SecureStore persists the single wallet encrypted under a key derived from the password.
// The scrypt params travel with the record, so the live config only shapes new records.
type SecureStore struct {
	log       tplog.Logger
	backend   tpbkcmm.Backend
	provider  crypt.Provider
	password  string
	kdf       symmetric.ScryptParams
	key       crypt.SymmetricKey
	marshaler codec.Marshaler
}

func kdfHeader(params symmetric.ScryptParams) tpwtypes.KDFHeader {
	return tpwtypes.KDFHeader{N: params.N, R: params.R, P: params.P, Salt: params.Salt}
}

func headerParams(header tpwtypes.KDFHeader) symmetric.ScryptParams {
	return symmetric.ScryptParams{N: header.N, R: header.R, P: header.P, Salt: header.Salt}
}

func sameParams(a, b symmetric.ScryptParams) bool {
	return a.N == b.N && a.R == b.R && a.P == b.P && bytes.Equal(a.Salt, b.Salt)
}

// IsEmpty reports whether no wallet record exists yet.
func IsEmpty(ctx context.Context, backend tpbkcmm.Backend) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	n, err := tpbkcmm.CountPrefix(backend, walletKeyPrefix)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Open derives the record key from the stored KDF header, or from fresh params when there is
// no usable record yet.
func Open(ctx context.Context, log tplog.Logger, backend tpbkcmm.Backend, provider crypt.Provider, password string) (*SecureStore, error) {
	if password == "" || !utf8.ValidString(password) {
		return nil, ErrInvalidPassword
	}

	s := &SecureStore{
		log:       tplog.CreateModuleLogger(tplogcmm.InfoLevel, MOD_NAME, log),
		backend:   backend,
		provider:  provider,
		password:  password,
		marshaler: codec.CreateMarshaler(codec.CodecType_JSON),
	}

	params := provider.NewKDFParams()
	record, err := s.loadRecord()
	switch {
	case err == nil:
		params = headerParams(record.KDF)
	case !errors.Is(err, ErrStorageIntegrity):
		return nil, err
	}

	if err = s.deriveKey(ctx, params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return s, nil
}

func (s *SecureStore) deriveKey(ctx context.Context, params symmetric.ScryptParams) error {
	key, err := s.provider.DeriveSecretKeyFromPassword(ctx, s.password, params)
	if err != nil {
		return err
	}
	s.kdf, s.key = params, key
	return nil
}

func (s *SecureStore) readRecords() ([]tpbkcmm.KV, error) {
	it, err := s.backend.Iterator(walletKeyPrefix)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var records []tpbkcmm.KV
	for ; it.Valid(); it.Next() {
		records = append(records, tpbkcmm.KV{Key: it.Key(), Value: it.Value()})
	}
	return records, it.Error()
}

// loadRecord returns the single record with a usable KDF header.
func (s *SecureStore) loadRecord() (*tpwtypes.EncryptedWalletRecord, error) {
	records, err := s.readRecords()
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, fmt.Errorf("%w: %d wallet records", ErrStorageIntegrity, len(records))
	}

	var record tpwtypes.EncryptedWalletRecord
	if err = s.marshaler.Unmarshal(records[0].Value, &record); err != nil {
		return nil, fmt.Errorf("%w: malformed record: %v", ErrStorageIntegrity, err)
	}
	if err = headerParams(record.KDF).Validate(); err != nil {
		return nil, fmt.Errorf("%w: kdf header: %v", ErrStorageIntegrity, err)
	}
	return &record, nil
}

func (s *SecureStore) Read(ctx context.Context) (*tpwtypes.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record, err := s.loadRecord()
	if err != nil {
		if errors.Is(err, ErrStorageIntegrity) {
			s.log.Errorf("Load wallet record err: %v", err)
		}
		return nil, err
	}

	if params := headerParams(record.KDF); !sameParams(params, s.kdf) {
		if err = s.deriveKey(ctx, params); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptionFailure, err)
		}
	}

	plaintext, err := s.key.Decrypt(ctx, record.EncryptedWallet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailure, err)
	}
	defer clear(plaintext)

	var w tpwtypes.Wallet
	if err = s.marshaler.Unmarshal(plaintext, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	if err = w.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}

	return &w, nil
}

// Write validates, encrypts and upserts the wallet under the singleton key.
func (s *SecureStore) Write(ctx context.Context, w *tpwtypes.Wallet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}

	plaintext, err := s.marshaler.Marshal(w)
	if err != nil {
		return err
	}
	defer clear(plaintext)

	ciphertext, err := s.key.Encrypt(ctx, plaintext)
	if err != nil {
		return err
	}

	recordBytes, err := s.marshaler.Marshal(&tpwtypes.EncryptedWalletRecord{
		WalletID:        WalletID,
		KDF:             kdfHeader(s.kdf),
		EncryptedWallet: ciphertext,
	})
	if err != nil {
		return err
	}

	if err = s.backend.Set(walletKey(), recordBytes); err != nil {
		s.log.Errorf("Write wallet record err: %v", err)
		return err
	}
	return nil
}

// Wipe deletes every wallet record.
func Wipe(ctx context.Context, backend tpbkcmm.Backend) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	it, err := backend.Iterator(walletKeyPrefix)
	if err != nil {
		return err
	}
	var keys [][]byte
	for ; it.Valid(); it.Next() {
		keys = append(keys, it.Key())
	}
	err = tpbkcmm.CombineErrors(it.Error(), it.Close())
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err = backend.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
