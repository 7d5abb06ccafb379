package configuration

import (
	"os"
	"path/filepath"
)

type StorageConfiguration struct {
	RootPath       string `toml:"root_path" envconfig:"ROOT_PATH"`
	DurableBackend string `toml:"durable_backend" envconfig:"DURABLE_BACKEND"`
	SessionBackend string `toml:"session_backend" envconfig:"SESSION_BACKEND"`
}

func DefStorageConfiguration() *StorageConfiguration {
	homeDir, _ := os.UserHomeDir()
	return &StorageConfiguration{
		RootPath:       filepath.Join(homeDir, ".topia-wallet"),
		DurableBackend: "badger",
		SessionBackend: "memdb",
	}
}
