package configuration

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"

	tpcrtypes "github.com/TopiaNetwork/topia-wallet/crypt/types"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
	"github.com/TopiaNetwork/topia-wallet/storage/backend"
)

// EnvPrefix prefixes every environment override, e.g. TOPIA_WALLET_RELAY_MAX_DELIVERY_ATTEMPTS.
const EnvPrefix = "TOPIA_WALLET"

type Configuration struct {
	Log     *LogConfiguration     `toml:"log" envconfig:"LOG"`
	Storage *StorageConfiguration `toml:"storage" envconfig:"STORAGE"`
	Crypt   *CryptConfiguration   `toml:"crypt" envconfig:"CRYPT"`
	Relay   *RelayConfiguration   `toml:"relay" envconfig:"RELAY"`
	Host    *HostConfiguration    `toml:"host" envconfig:"HOST"`
	Wallet  *WalletConfiguration  `toml:"wallet" envconfig:"WALLET"`
}

func DefConfiguration() *Configuration {
	return &Configuration{
		Log:     DefLogConfiguration(),
		Storage: DefStorageConfiguration(),
		Crypt:   DefCryptConfiguration(),
		Relay:   DefRelayConfiguration(),
		Host:    DefHostConfiguration(),
		Wallet:  DefWalletConfiguration(),
	}
}

// Load layers the defaults, the optional TOML file at path and the environment, in that order.
func Load(path string) (*Configuration, error) {
	cfg := DefConfiguration()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Configuration) Validate() error {
	var result *multierror.Error

	if c.Log == nil || c.Storage == nil || c.Crypt == nil || c.Relay == nil || c.Host == nil || c.Wallet == nil {
		return errors.New("incomplete configuration")
	}

	if _, err := tplogcmm.ParseLogLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := tplog.ParseLogFormat(c.Log.Format); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := tplog.ParseLogOutput(c.Log.Output); err != nil {
		result = multierror.Append(result, err)
	}

	if _, err := backend.ParseBackendType(c.Storage.DurableBackend); err != nil {
		result = multierror.Append(result, fmt.Errorf("durable backend: %w", err))
	}
	// The session mirror holds the plaintext seed and password, so it never touches disk.
	if sessionType, err := backend.ParseBackendType(c.Storage.SessionBackend); err != nil {
		result = multierror.Append(result, fmt.Errorf("session backend: %w", err))
	} else if sessionType != backend.BackendType_Memdb {
		result = multierror.Append(result, fmt.Errorf("session backend must be memdb, got %s", c.Storage.SessionBackend))
	}

	if _, err := tpcrtypes.ParseCryptType(c.Crypt.CryptType); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Crypt.ScryptN < 2 || c.Crypt.ScryptN&(c.Crypt.ScryptN-1) != 0 {
		result = multierror.Append(result, fmt.Errorf("scrypt N must be a power of two above 1, got %d", c.Crypt.ScryptN))
	}
	if c.Crypt.ScryptR < 1 || c.Crypt.ScryptP < 1 {
		result = multierror.Append(result, errors.New("scrypt r and p must be positive"))
	}

	if c.Relay.MaxDeliveryAttempts < 1 {
		result = multierror.Append(result, fmt.Errorf("max delivery attempts must be positive, got %d", c.Relay.MaxDeliveryAttempts))
	}
	if c.Relay.DeliveryDelay < 0 {
		result = multierror.Append(result, errors.New("delivery delay is negative"))
	}
	if c.Relay.DispatchTimeout <= 0 {
		result = multierror.Append(result, errors.New("dispatch timeout must be positive"))
	}

	if c.Host.Addr == "" {
		result = multierror.Append(result, errors.New("host address is empty"))
	}

	if c.Wallet.RecoveryPhraseWords != 12 && c.Wallet.RecoveryPhraseWords != 24 {
		result = multierror.Append(result, fmt.Errorf("recovery phrase words must be 12 or 24, got %d", c.Wallet.RecoveryPhraseWords))
	}

	return result.ErrorOrNil()
}
