package configuration

import (
	"github.com/TopiaNetwork/topia-wallet/crypt/symmetric"
)

type CryptConfiguration struct {
	CryptType string `toml:"crypt_type" envconfig:"CRYPT_TYPE"`
	ScryptN   int    `toml:"scrypt_n" envconfig:"SCRYPT_N"`
	ScryptR   int    `toml:"scrypt_r" envconfig:"SCRYPT_R"`
	ScryptP   int    `toml:"scrypt_p" envconfig:"SCRYPT_P"`
}

func DefCryptConfiguration() *CryptConfiguration {
	def := symmetric.DefaultScryptParams()
	return &CryptConfiguration{
		CryptType: "ed25519",
		ScryptN:   def.N,
		ScryptR:   def.R,
		ScryptP:   def.P,
	}
}

// ScryptParams is the cost applied to newly written records. Existing records keep the
// params stored with them.
func (c *CryptConfiguration) ScryptParams() symmetric.ScryptParams {
	return symmetric.ScryptParams{
		N: c.ScryptN,
		R: c.ScryptR,
		P: c.ScryptP,
	}
}
