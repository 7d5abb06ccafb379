package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/TopiaNetwork/topia-wallet/configuration"
	tpnode "github.com/TopiaNetwork/topia-wallet/node"
	tpwtypes "github.com/TopiaNetwork/topia-wallet/wallet/types"
)

var (
	configPath string
	logLevel   string
)

var stdinReader = bufio.NewReader(os.Stdin)

func loadConfiguration() (*configuration.Configuration, error) {
	config, err := configuration.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		config.Log.Level = logLevel
		if err = config.Validate(); err != nil {
			return nil, err
		}
	}
	return config, nil
}

func openNode() (*tpnode.Node, error) {
	config, err := loadConfiguration()
	if err != nil {
		return nil, err
	}
	return tpnode.NewNode(config)
}

// readSecret reads one line without echo when stdin is a terminal.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	return readLine("")
}

func readLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(os.Stderr, prompt)
	}
	line, err := stdinReader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readNewPassword() (string, error) {
	password, err := readSecret("New password: ")
	if err != nil {
		return "", err
	}
	confirm, err := readSecret("Repeat password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

// unlock logs the node's manager in with a password read from stdin.
func unlock(ctx context.Context, n *tpnode.Node) (*tpwtypes.Wallet, error) {
	password, err := readSecret("Password: ")
	if err != nil {
		return nil, err
	}
	return n.Manager().Login(ctx, password)
}

func checkNoArgs(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("trailing args detected")
	}
	return nil
}

func printAccounts(w *tpwtypes.Wallet) {
	for _, acc := range w.Accounts {
		marker := " "
		if w.ActiveAccountID != nil && *w.ActiveAccountID == acc.ID {
			marker = "*"
		}
		fmt.Printf("%s %s\t%s\tnonce=%d\n", marker, acc.ID, acc.Pseudo, acc.Nonce)
	}
}
