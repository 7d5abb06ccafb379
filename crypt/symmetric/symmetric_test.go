package symmetric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lightParams() ScryptParams {
	params := DefaultScryptParams()
	params.N = 1 << 4
	params.Salt = []byte("fixed test salt")
	return params
}

func TestEncryptDecrypt(t *testing.T) {
	key, err := DeriveKey([]byte("pw"), lightParams())
	require.NoError(t, err)

	blob, err := key.Encrypt([]byte("secret wallet"))
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "secret wallet")

	plain, err := key.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret wallet"), plain)

	blob2, _ := key.Encrypt([]byte("secret wallet"))
	assert.NotEqual(t, blob, blob2, "nonce must differ per encryption")
}

func TestDeriveKeyDeterministic(t *testing.T) {
	k1, err := DeriveKey([]byte("pw"), lightParams())
	require.NoError(t, err)
	k2, err := DeriveKey([]byte("pw"), lightParams())
	require.NoError(t, err)

	blob, _ := k1.Encrypt([]byte("data"))
	plain, err := k2.Decrypt(blob)
	assert.NoError(t, err)
	assert.Equal(t, []byte("data"), plain)
}

func TestDecryptWrongKey(t *testing.T) {
	k1, _ := DeriveKey([]byte("pw"), lightParams())
	k2, _ := DeriveKey([]byte("other"), lightParams())

	blob, _ := k1.Encrypt([]byte("data"))
	_, err := k2.Decrypt(blob)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = k1.Decrypt([]byte("short"))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDeriveKeyEmptyPassword(t *testing.T) {
	_, err := DeriveKey(nil, lightParams())
	assert.ErrorIs(t, err, ErrPasswordEmpty)
}

func TestWithNewSalt(t *testing.T) {
	a := lightParams().WithNewSalt()
	b := lightParams().WithNewSalt()
	assert.Len(t, a.Salt, SaltLen)
	assert.NotEqual(t, a.Salt, b.Salt)

	k1, err := DeriveKey([]byte("pw"), a)
	require.NoError(t, err)
	k2, err := DeriveKey([]byte("pw"), b)
	require.NoError(t, err)

	blob, _ := k1.Encrypt([]byte("data"))
	_, err = k2.Decrypt(blob)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDeriveKeyInvalidParams(t *testing.T) {
	for name, params := range map[string]ScryptParams{
		"no salt": DefaultScryptParams(),
		"odd N":   {N: 1000, R: 8, P: 1, Salt: []byte("s")},
		"huge N":  {N: 1 << 30, R: 8, P: 1, Salt: []byte("s")},
		"zero r":  {N: 16, R: 0, P: 1, Salt: []byte("s")},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DeriveKey([]byte("pw"), params)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}
