package main

import (
	"os"

	"github.com/TopiaNetwork/topia-wallet/cmd"
)

func main() {
	if cmd.RootCmd().Execute() != nil {
		os.Exit(1)
	}
}
