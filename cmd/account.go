package cmd

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TopiaNetwork/topia-wallet/wallet"
)

const (
	accountFuncName = "account"
	accountCmdDes   = "Operate accounts: list, create, select, delete, update, pubkey."
)

var (
	accountPseudo    string
	accountFirstname string
	accountLastname  string
	accountEmail     string
)

// withUnlockedWallet opens the stores, logs in and runs fn against the manager.
func withUnlockedWallet(fn func(ctx context.Context, m *wallet.Manager) error) error {
	n, err := openNode()
	if err != nil {
		return err
	}
	defer n.Close()

	ctx := context.Background()
	if _, err = unlock(ctx, n); err != nil {
		return err
	}
	return fn(ctx, n.Manager())
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the accounts, the active one starred.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkNoArgs(args); err != nil {
			return err
		}
		cmd.SilenceUsage = true

		return withUnlockedWallet(func(ctx context.Context, m *wallet.Manager) error {
			w, err := m.Current()
			if err != nil {
				return err
			}
			printAccounts(w)
			return nil
		})
	},
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates an account and makes it active.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkNoArgs(args); err != nil {
			return err
		}
		cmd.SilenceUsage = true

		return withUnlockedWallet(func(ctx context.Context, m *wallet.Manager) error {
			acc, err := m.CreateAccount(ctx, accountPseudo)
			if err != nil {
				return err
			}
			fmt.Println(acc.ID)
			return nil
		})
	},
}

var accountSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Makes an account active.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		return withUnlockedWallet(func(ctx context.Context, m *wallet.Manager) error {
			_, err := m.SelectActiveAccount(ctx, args[0])
			return err
		})
	},
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Deletes an account. The last account is kept.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		return withUnlockedWallet(func(ctx context.Context, m *wallet.Manager) error {
			w, err := m.DeleteAccount(ctx, args[0])
			if err != nil {
				return err
			}
			printAccounts(w)
			return nil
		})
	},
}

var accountUpdateCmd = &cobra.Command{
	Use:     "update <id>",
	Aliases: []string{"rename"},
	Short:   "Updates the parameters of an account.",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		var update wallet.AccountUpdate
		flags := cmd.Flags()
		if flags.Changed("pseudo") {
			update.Pseudo = &accountPseudo
		}
		if flags.Changed("firstname") {
			update.Firstname = &accountFirstname
		}
		if flags.Changed("lastname") {
			update.Lastname = &accountLastname
		}
		if flags.Changed("email") {
			update.Email = &accountEmail
		}

		return withUnlockedWallet(func(ctx context.Context, m *wallet.Manager) error {
			_, err := m.UpdateAccount(ctx, args[0], update)
			return err
		})
	},
}

var accountPubKeyCmd = &cobra.Command{
	Use:   "pubkey [id]",
	Short: "Prints the public key of an account, the active one by default.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		return withUnlockedWallet(func(ctx context.Context, m *wallet.Manager) error {
			keyPair, err := m.KeyPair(ctx, id)
			if err != nil {
				return err
			}
			clear(keyPair.PrivateKey)
			fmt.Printf("%s %s\n", keyPair.CryptType, hex.EncodeToString(keyPair.PublicKey))
			return nil
		})
	},
}

var accountCmd = &cobra.Command{
	Use:   accountFuncName,
	Short: fmt.Sprint(accountCmdDes),
	Long:  fmt.Sprint(accountCmdDes),
}

func AccountCmd() *cobra.Command {
	accountCreateCmd.Flags().StringVarP(&accountPseudo, "pseudo", "", "", "pseudo of the new account")

	updateFlags := accountUpdateCmd.Flags()
	updateFlags.StringVarP(&accountPseudo, "pseudo", "", "", "new pseudo")
	updateFlags.StringVarP(&accountFirstname, "firstname", "", "", "new first name")
	updateFlags.StringVarP(&accountLastname, "lastname", "", "", "new last name")
	updateFlags.StringVarP(&accountEmail, "email", "", "", "new email")

	accountCmd.AddCommand(accountListCmd, accountCreateCmd, accountSelectCmd, accountDeleteCmd, accountUpdateCmd, accountPubKeyCmd)
	return accountCmd
}
