package types

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validWallet() *Wallet {
	active := "a1"
	return &Wallet{
		Seed:     []byte{1, 2, 3},
		Password: "pw",
		Counter:  2,
		Accounts: []Account{
			{ID: "a1", Pseudo: "alice", Nonce: 0},
			{ID: "a2", Pseudo: "bob", Nonce: 1},
		},
		ActiveAccountID: &active,
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validWallet().Validate())
}

func TestValidateAggregatesViolations(t *testing.T) {
	w := validWallet()
	w.Seed = nil
	w.Accounts[1].ID = "a1"
	w.Accounts[1].Nonce = 5
	missing := "zz"
	w.ActiveAccountID = &missing

	err := w.Validate()
	require.Error(t, err)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	assert.Len(t, merr.Errors, 4)
}

func TestValidateEmptyAccounts(t *testing.T) {
	w := validWallet()
	w.Accounts = nil
	w.ActiveAccountID = nil
	assert.Error(t, w.Validate())
}

func TestClone(t *testing.T) {
	proof := "proof"
	w := validWallet()
	w.Accounts[0].EmailValidationProof = &proof

	c := w.Clone()
	c.Seed[0] = 9
	c.Accounts[0].Pseudo = "changed"
	*c.ActiveAccountID = "a2"
	*c.Accounts[0].EmailValidationProof = "other"

	assert.Equal(t, byte(1), w.Seed[0])
	assert.Equal(t, "alice", w.Accounts[0].Pseudo)
	assert.Equal(t, "a1", *w.ActiveAccountID)
	assert.Equal(t, "proof", *w.Accounts[0].EmailValidationProof)

	idx, ok := w.FindAccount("a2")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = w.FindAccount("nope")
	assert.False(t, ok)
}
