package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"

	tpwtypes "github.com/TopiaNetwork/topia-wallet/wallet/types"
)

const (
	MOD_NAME = "wallet"
)

var (
	// ErrIllegalState is returned when an operation references an account the wallet doesn't hold.
	ErrIllegalState = errors.New("illegal wallet state")

	ErrPasswordEmpty = errors.New("password is empty")
	ErrSeedEmpty     = errors.New("seed is empty")
)

type Endpoints struct {
	Node     string
	Explorer string
}

// NewWallet builds a wallet around seed holding one first account, which is active.
func NewWallet(seed []byte, password string, pseudo string, endpoints Endpoints) (*tpwtypes.Wallet, tpwtypes.Account, error) {
	if len(seed) == 0 {
		return nil, tpwtypes.Account{}, ErrSeedEmpty
	}
	if password == "" {
		return nil, tpwtypes.Account{}, ErrPasswordEmpty
	}

	w := &tpwtypes.Wallet{
		Seed:             append([]byte(nil), seed...),
		Password:         password,
		Accounts:         []tpwtypes.Account{},
		NodeEndpoint:     endpoints.Node,
		ExplorerEndpoint: endpoints.Explorer,
	}
	return CreateAccount(w, pseudo)
}

// GenerateRecoveryPhrase returns a fresh BIP-39 mnemonic of 12 or 24 words.
func GenerateRecoveryPhrase(words int) (string, error) {
	if words != 12 && words != 24 {
		return "", errors.New("don't support input mnemonic amounts other than 12 and 24")
	}

	entropy, err := bip39.NewEntropy(words / 12 * 128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

func SeedFromRecoveryPhrase(phrase string, passphrase string) ([]byte, error) {
	phrase = strings.Join(strings.Fields(phrase), " ")
	seed, err := bip39.NewSeedWithErrorChecking(phrase, passphrase)
	if err != nil {
		return nil, fmt.Errorf("invalid recovery phrase: %w", err)
	}
	return seed, nil
}

// ActiveAccount returns the account ActiveAccountID points at.
func ActiveAccount(w *tpwtypes.Wallet) (tpwtypes.Account, bool) {
	if w == nil || w.ActiveAccountID == nil {
		return tpwtypes.Account{}, false
	}
	idx, ok := w.FindAccount(*w.ActiveAccountID)
	if !ok {
		return tpwtypes.Account{}, false
	}
	return w.Accounts[idx].Clone(), true
}

func SetEndpoints(w *tpwtypes.Wallet, endpoints Endpoints) *tpwtypes.Wallet {
	next := w.Clone()
	next.NodeEndpoint = endpoints.Node
	next.ExplorerEndpoint = endpoints.Explorer
	return next
}
