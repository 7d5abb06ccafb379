package eventhub

import (
	tpwtypes "github.com/TopiaNetwork/topia-wallet/wallet/types"
)

// WalletChangedEvent is published by a session cache after each Set. A nil Wallet means the
// session entry was removed.
type WalletChangedEvent struct {
	Source string
	Wallet *tpwtypes.Wallet
}

type ClientRequestEvent struct {
	RequestID         string
	ClientRequestType string
	Origin            string
}
