package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const (
	relayFuncName = "relay"
	relayCmdDes   = "Operate the background relay: start."
)

var unlockOnStart bool

var relayStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the relay.",
	Long:  `Starts the relay serving wallet surfaces, dApp pages and the approval API until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkNoArgs(args); err != nil {
			return err
		}
		// Parsing of the command line is done so silence cmd usage
		cmd.SilenceUsage = true

		n, err := openNode()
		if err != nil {
			return err
		}

		if unlockOnStart {
			if _, err = unlock(context.Background(), n); err != nil {
				n.Close()
				return err
			}
		}
		return n.Run()
	},
}

func startCmd() *cobra.Command {
	flags := relayStartCmd.PersistentFlags()
	flags.BoolVarP(&unlockOnStart, "unlock", "", false, "log in before serving so client requests reach the approval surface")
	return relayStartCmd
}

var relayCmd = &cobra.Command{
	Use:   relayFuncName,
	Short: fmt.Sprint(relayCmdDes),
	Long:  fmt.Sprint(relayCmdDes),
}

func RelayCmd() *cobra.Command {
	relayCmd.AddCommand(startCmd())

	return relayCmd
}
