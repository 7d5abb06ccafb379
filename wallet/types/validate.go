package types

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set"
	"github.com/hashicorp/go-multierror"
)

var (
	errSeedEmpty     = errors.New("seed is empty")
	errPasswordEmpty = errors.New("password is empty")
	errNoAccount     = errors.New("wallet has no account")
)

// Validate checks the wallet invariants and reports every violation found.
func (w *Wallet) Validate() error {
	if w == nil {
		return errors.New("wallet is nil")
	}

	var result *multierror.Error
	if len(w.Seed) == 0 {
		result = multierror.Append(result, errSeedEmpty)
	}
	if w.Password == "" {
		result = multierror.Append(result, errPasswordEmpty)
	}
	if len(w.Accounts) == 0 {
		result = multierror.Append(result, errNoAccount)
	}

	ids := mapset.NewSet()
	nonces := mapset.NewSet()
	for i, acc := range w.Accounts {
		if acc.ID == "" {
			result = multierror.Append(result, fmt.Errorf("account %d: empty id", i))
		} else if !ids.Add(acc.ID) {
			result = multierror.Append(result, fmt.Errorf("account %d: duplicate id %s", i, acc.ID))
		}
		if !nonces.Add(acc.Nonce) {
			result = multierror.Append(result, fmt.Errorf("account %s: duplicate nonce %d", acc.ID, acc.Nonce))
		}
		if acc.Nonce >= w.Counter {
			result = multierror.Append(result, fmt.Errorf("account %s: nonce %d not below counter %d", acc.ID, acc.Nonce, w.Counter))
		}
	}

	if w.ActiveAccountID != nil && !ids.Contains(*w.ActiveAccountID) {
		result = multierror.Append(result, fmt.Errorf("active account %s does not exist", *w.ActiveAccountID))
	}

	return result.ErrorOrNil()
}
