package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/TopiaNetwork/topia-wallet/crypt"
	tpcrtypes "github.com/TopiaNetwork/topia-wallet/crypt/types"
	tpwtypes "github.com/TopiaNetwork/topia-wallet/wallet/types"
)

// AccountUpdate carries the editable account parameters. Nil fields are left as they are.
type AccountUpdate struct {
	Pseudo               *string
	Firstname            *string
	Lastname             *string
	Email                *string
	EmailValidationProof *string
}

// CreateAccount appends an account using the wallet counter as its nonce and makes it active.
func CreateAccount(w *tpwtypes.Wallet, pseudo string) (*tpwtypes.Wallet, tpwtypes.Account, error) {
	next := w.Clone()

	acc := tpwtypes.Account{
		ID:     uuid.NewString(),
		Pseudo: pseudo,
		Nonce:  next.Counter,
	}
	next.Accounts = append(next.Accounts, acc)
	next.ActiveAccountID = &acc.ID
	next.Counter++

	return next, acc, nil
}

func SelectActiveAccount(w *tpwtypes.Wallet, id string) (*tpwtypes.Wallet, error) {
	if _, ok := w.FindAccount(id); !ok {
		return nil, fmt.Errorf("%w: account %s not found", ErrIllegalState, id)
	}

	next := w.Clone()
	next.ActiveAccountID = &id
	return next, nil
}

// DeleteAccount removes the account. The last remaining account is never removed; the call is a
// no-op then. Deleting the active account activates the first remaining one.
func DeleteAccount(w *tpwtypes.Wallet, id string) (*tpwtypes.Wallet, error) {
	if len(w.Accounts) <= 1 {
		return w.Clone(), nil
	}

	idx, ok := w.FindAccount(id)
	if !ok {
		return nil, fmt.Errorf("%w: account %s not found", ErrIllegalState, id)
	}

	next := w.Clone()
	next.Accounts = append(next.Accounts[:idx], next.Accounts[idx+1:]...)
	if next.ActiveAccountID != nil && *next.ActiveAccountID == id {
		first := next.Accounts[0].ID
		next.ActiveAccountID = &first
	}
	return next, nil
}

func UpdateAccount(w *tpwtypes.Wallet, id string, update AccountUpdate) (*tpwtypes.Wallet, error) {
	idx, ok := w.FindAccount(id)
	if !ok {
		return nil, fmt.Errorf("%w: account %s not found", ErrIllegalState, id)
	}

	next := w.Clone()
	acc := &next.Accounts[idx]
	if update.Pseudo != nil {
		acc.Pseudo = *update.Pseudo
	}
	if update.Firstname != nil {
		acc.Firstname = *update.Firstname
	}
	if update.Lastname != nil {
		acc.Lastname = *update.Lastname
	}
	if update.Email != nil {
		acc.Email = *update.Email
	}
	if update.EmailValidationProof != nil {
		proof := *update.EmailValidationProof
		acc.EmailValidationProof = &proof
	}
	return next, nil
}

// DeriveKeyPair recomputes the account key pair from (seed, nonce). Callers drop it after use.
func DeriveKeyPair(ctx context.Context, provider crypt.Provider, w *tpwtypes.Wallet, account tpwtypes.Account) (tpcrtypes.SignatureKeyPair, error) {
	idx, ok := w.FindAccount(account.ID)
	if !ok {
		return tpcrtypes.SignatureKeyPair{}, fmt.Errorf("%w: account %s not found", ErrIllegalState, account.ID)
	}
	return provider.DeriveSignatureKeyPair(ctx, w.Seed, w.Accounts[idx].Nonce)
}
