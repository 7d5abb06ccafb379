package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/TopiaNetwork/topia-wallet/crypt"
	tpcrtypes "github.com/TopiaNetwork/topia-wallet/crypt/types"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
	tpbkcmm "github.com/TopiaNetwork/topia-wallet/storage/backend/common"
	"github.com/TopiaNetwork/topia-wallet/wallet/cache"
	"github.com/TopiaNetwork/topia-wallet/wallet/secure_store"
	tpwtypes "github.com/TopiaNetwork/topia-wallet/wallet/types"
)

var (
	ErrAlreadyOnboarded = errors.New("a wallet already exists")
	ErrLocked           = errors.New("wallet is locked")
)

// Manager is what one surface uses to drive the wallet lifecycle. Mutations read the session
// wallet, compute the next one and write it back to both stores without any lock.
type Manager struct {
	log      tplog.Logger
	durable  tpbkcmm.Backend
	provider crypt.Provider
	session  *cache.SessionCache
}

func NewManager(log tplog.Logger, durable tpbkcmm.Backend, provider crypt.Provider, session *cache.SessionCache) *Manager {
	return &Manager{
		log:      tplog.CreateModuleLogger(tplogcmm.InfoLevel, MOD_NAME, log),
		durable:  durable,
		provider: provider,
		session:  session,
	}
}

func (m *Manager) IsOnboarded(ctx context.Context) (bool, error) {
	empty, err := secure_store.IsEmpty(ctx, m.durable)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Onboard creates the wallet with its first account, encrypts it and opens the session.
func (m *Manager) Onboard(ctx context.Context, seed []byte, password string, pseudo string, endpoints Endpoints) (*tpwtypes.Wallet, error) {
	onboarded, err := m.IsOnboarded(ctx)
	if err != nil {
		return nil, err
	}
	if onboarded {
		return nil, ErrAlreadyOnboarded
	}

	w, _, err := NewWallet(seed, password, pseudo, endpoints)
	if err != nil {
		return nil, err
	}
	if err = m.persist(ctx, w); err != nil {
		return nil, err
	}

	m.log.Infof("Wallet onboarded with %d account", len(w.Accounts))
	return w, nil
}

// Login decrypts the stored wallet into the session. Every failure reads as a wrong password.
func (m *Manager) Login(ctx context.Context, password string) (*tpwtypes.Wallet, error) {
	store, err := secure_store.Open(ctx, m.log, m.durable, m.provider, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", secure_store.ErrInvalidPassword, err)
	}

	w, err := store.Read(ctx)
	if err != nil {
		m.log.Debugf("Login failed: %v", err)
		return nil, fmt.Errorf("%w: %v", secure_store.ErrInvalidPassword, err)
	}

	if err = m.session.Set(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (m *Manager) Current() (*tpwtypes.Wallet, error) {
	w := m.session.Get()
	if w == nil {
		return nil, ErrLocked
	}
	return w, nil
}

// Disconnect drops the session copy. The encrypted record stays.
func (m *Manager) Disconnect(ctx context.Context) error {
	return m.session.Set(ctx, nil)
}

// Wipe removes the encrypted record and ends the session.
func (m *Manager) Wipe(ctx context.Context) error {
	if err := secure_store.Wipe(ctx, m.durable); err != nil {
		return err
	}
	return m.session.Set(ctx, nil)
}

func (m *Manager) persist(ctx context.Context, w *tpwtypes.Wallet) error {
	store, err := secure_store.Open(ctx, m.log, m.durable, m.provider, w.Password)
	if err != nil {
		return err
	}
	if err = store.Write(ctx, w); err != nil {
		return err
	}
	return m.session.Set(ctx, w)
}

func (m *Manager) mutate(ctx context.Context, fn func(w *tpwtypes.Wallet) (*tpwtypes.Wallet, error)) (*tpwtypes.Wallet, error) {
	w, err := m.Current()
	if err != nil {
		return nil, err
	}

	next, err := fn(w)
	if err != nil {
		return nil, err
	}
	if err = m.persist(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (m *Manager) CreateAccount(ctx context.Context, pseudo string) (tpwtypes.Account, error) {
	var created tpwtypes.Account
	_, err := m.mutate(ctx, func(w *tpwtypes.Wallet) (*tpwtypes.Wallet, error) {
		next, acc, err := CreateAccount(w, pseudo)
		created = acc
		return next, err
	})
	return created, err
}

func (m *Manager) SelectActiveAccount(ctx context.Context, id string) (*tpwtypes.Wallet, error) {
	return m.mutate(ctx, func(w *tpwtypes.Wallet) (*tpwtypes.Wallet, error) {
		return SelectActiveAccount(w, id)
	})
}

func (m *Manager) DeleteAccount(ctx context.Context, id string) (*tpwtypes.Wallet, error) {
	return m.mutate(ctx, func(w *tpwtypes.Wallet) (*tpwtypes.Wallet, error) {
		return DeleteAccount(w, id)
	})
}

func (m *Manager) UpdateAccount(ctx context.Context, id string, update AccountUpdate) (*tpwtypes.Wallet, error) {
	return m.mutate(ctx, func(w *tpwtypes.Wallet) (*tpwtypes.Wallet, error) {
		return UpdateAccount(w, id, update)
	})
}

func (m *Manager) SetEndpoints(ctx context.Context, endpoints Endpoints) (*tpwtypes.Wallet, error) {
	return m.mutate(ctx, func(w *tpwtypes.Wallet) (*tpwtypes.Wallet, error) {
		return SetEndpoints(w, endpoints), nil
	})
}

// KeyPair derives the key pair of the given account, or of the active one when id is empty.
func (m *Manager) KeyPair(ctx context.Context, id string) (tpcrtypes.SignatureKeyPair, error) {
	w, err := m.Current()
	if err != nil {
		return tpcrtypes.SignatureKeyPair{}, err
	}

	var acc tpwtypes.Account
	if id == "" {
		var ok bool
		if acc, ok = ActiveAccount(w); !ok {
			return tpcrtypes.SignatureKeyPair{}, fmt.Errorf("%w: no active account", ErrIllegalState)
		}
	} else {
		idx, ok := w.FindAccount(id)
		if !ok {
			return tpcrtypes.SignatureKeyPair{}, fmt.Errorf("%w: account %s not found", ErrIllegalState, id)
		}
		acc = w.Accounts[idx]
	}
	return DeriveKeyPair(ctx, m.provider, w, acc)
}
