package types

// Account is one derived identity of the wallet. Nonce is the key-derivation index and never
// changes once assigned.
type Account struct {
	ID                   string  `json:"id"`
	Pseudo               string  `json:"pseudo"`
	Firstname            string  `json:"firstname"`
	Lastname             string  `json:"lastname"`
	Nonce                uint64  `json:"nonce"`
	Email                string  `json:"email"`
	EmailValidationProof *string `json:"emailValidationProof,omitempty"`
}

// Wallet holds the seed every account key is derived from. Counter is strictly greater than every
// nonce ever handed out.
type Wallet struct {
	Seed             []byte    `json:"seed"`
	Password         string    `json:"password"`
	Counter          uint64    `json:"counter"`
	Accounts         []Account `json:"accounts"`
	ActiveAccountID  *string   `json:"activeAccountId,omitempty"`
	NodeEndpoint     string    `json:"nodeEndpoint"`
	ExplorerEndpoint string    `json:"explorerEndpoint"`
}

// KDFHeader records how the record key was derived from the password.
type KDFHeader struct {
	N    int    `json:"n"`
	R    int    `json:"r"`
	P    int    `json:"p"`
	Salt []byte `json:"salt"`
}

// EncryptedWalletRecord is the only row of the durable store.
type EncryptedWalletRecord struct {
	WalletID        string    `json:"walletId"`
	KDF             KDFHeader `json:"kdf"`
	EncryptedWallet []byte    `json:"encryptedWallet"`
}

func (a Account) Clone() Account {
	c := a
	if a.EmailValidationProof != nil {
		proof := *a.EmailValidationProof
		c.EmailValidationProof = &proof
	}
	return c
}

// Clone returns a deep copy. Domain operations never mutate their input wallet.
func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}

	c := *w
	if w.Seed != nil {
		c.Seed = make([]byte, len(w.Seed))
		copy(c.Seed, w.Seed)
	}
	if w.Accounts != nil {
		c.Accounts = make([]Account, len(w.Accounts))
		for i, acc := range w.Accounts {
			c.Accounts[i] = acc.Clone()
		}
	}
	if w.ActiveAccountID != nil {
		id := *w.ActiveAccountID
		c.ActiveAccountID = &id
	}
	return &c
}

func (w *Wallet) FindAccount(id string) (int, bool) {
	for i, acc := range w.Accounts {
		if acc.ID == id {
			return i, true
		}
	}
	return -1, false
}
