package configuration

type WalletConfiguration struct {
	NodeEndpoint        string `toml:"node_endpoint" envconfig:"NODE_ENDPOINT"`
	ExplorerEndpoint    string `toml:"explorer_endpoint" envconfig:"EXPLORER_ENDPOINT"`
	RecoveryPhraseWords int    `toml:"recovery_phrase_words" envconfig:"RECOVERY_PHRASE_WORDS"`
}

func DefWalletConfiguration() *WalletConfiguration {
	return &WalletConfiguration{
		NodeEndpoint:        "http://127.0.0.1:8899",
		ExplorerEndpoint:    "http://127.0.0.1:8898",
		RecoveryPhraseWords: 12,
	}
}
