package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TopiaNetwork/topia-wallet/wallet"
)

const (
	walletFuncName = "wallet"
	walletCmdDes   = "Operate the wallet: init, show, endpoints, wipe."
)

var (
	importPhrase bool
	firstPseudo  string
	nodeEndpoint string
	explorerEnd  string
	wipeConfirm  bool
)

var walletInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates the wallet.",
	Long:  `Creates the wallet from a new or imported recovery phrase and encrypts it with a password.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkNoArgs(args); err != nil {
			return err
		}
		// Parsing of the command line is done so silence cmd usage
		cmd.SilenceUsage = true

		config, err := loadConfiguration()
		if err != nil {
			return err
		}

		var phrase string
		if importPhrase {
			if phrase, err = readLine("Recovery phrase: "); err != nil {
				return err
			}
		} else {
			if phrase, err = wallet.GenerateRecoveryPhrase(config.Wallet.RecoveryPhraseWords); err != nil {
				return err
			}
		}
		seed, err := wallet.SeedFromRecoveryPhrase(phrase, "")
		if err != nil {
			return err
		}

		password, err := readNewPassword()
		if err != nil {
			return err
		}

		n, err := openNode()
		if err != nil {
			return err
		}
		defer n.Close()

		w, err := n.Manager().Onboard(context.Background(), seed, password, firstPseudo, n.Endpoints())
		if err != nil {
			return err
		}

		if !importPhrase {
			fmt.Println("Write down your recovery phrase:")
			fmt.Println(phrase)
		}
		printAccounts(w)
		return nil
	},
}

var walletShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Shows the wallet settings and accounts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkNoArgs(args); err != nil {
			return err
		}
		cmd.SilenceUsage = true

		n, err := openNode()
		if err != nil {
			return err
		}
		defer n.Close()

		w, err := unlock(context.Background(), n)
		if err != nil {
			return err
		}
		fmt.Printf("node endpoint:     %s\n", w.NodeEndpoint)
		fmt.Printf("explorer endpoint: %s\n", w.ExplorerEndpoint)
		printAccounts(w)
		return nil
	},
}

var walletEndpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "Changes the node and explorer endpoints.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkNoArgs(args); err != nil {
			return err
		}
		cmd.SilenceUsage = true

		n, err := openNode()
		if err != nil {
			return err
		}
		defer n.Close()

		ctx := context.Background()
		w, err := unlock(ctx, n)
		if err != nil {
			return err
		}

		endpoints := wallet.Endpoints{Node: w.NodeEndpoint, Explorer: w.ExplorerEndpoint}
		if cmd.Flags().Changed("node") {
			endpoints.Node = nodeEndpoint
		}
		if cmd.Flags().Changed("explorer") {
			endpoints.Explorer = explorerEnd
		}
		_, err = n.Manager().SetEndpoints(ctx, endpoints)
		return err
	},
}

var walletWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Deletes the encrypted wallet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkNoArgs(args); err != nil {
			return err
		}
		if !wipeConfirm {
			return errors.New("wipe deletes the wallet for good, pass --yes to confirm")
		}
		cmd.SilenceUsage = true

		n, err := openNode()
		if err != nil {
			return err
		}
		defer n.Close()

		return n.Manager().Wipe(context.Background())
	},
}

var walletCmd = &cobra.Command{
	Use:   walletFuncName,
	Short: fmt.Sprint(walletCmdDes),
	Long:  fmt.Sprint(walletCmdDes),
}

func WalletCmd() *cobra.Command {
	initFlags := walletInitCmd.Flags()
	initFlags.BoolVarP(&importPhrase, "import", "", false, "import an existing recovery phrase read from stdin")
	initFlags.StringVarP(&firstPseudo, "pseudo", "", "Account 1", "pseudo of the first account")

	endpointFlags := walletEndpointsCmd.Flags()
	endpointFlags.StringVarP(&nodeEndpoint, "node", "", "", "the node endpoint")
	endpointFlags.StringVarP(&explorerEnd, "explorer", "", "", "the explorer endpoint")

	walletWipeCmd.Flags().BoolVarP(&wipeConfirm, "yes", "y", false, "confirm the wipe")

	walletCmd.AddCommand(walletInitCmd, walletShowCmd, walletEndpointsCmd, walletWipeCmd)
	return walletCmd
}
