package cmd

import (
	"github.com/spf13/cobra"
)

// RootCmd carries the flags shared by every subcommand.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "walletd",
		Short: "Topia wallet daemon and tools.",
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path of a TOML configuration file")
	flags.StringVarP(&logLevel, "log-level", "", "", "overrides the configured log level")

	root.AddCommand(WalletCmd(), AccountCmd(), RelayCmd())
	return root
}
