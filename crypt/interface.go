package crypt

import (
	"fmt"

	"github.com/TopiaNetwork/topia-wallet/crypt/ed25519"
	"github.com/TopiaNetwork/topia-wallet/crypt/secp256"
	tpcrtypes "github.com/TopiaNetwork/topia-wallet/crypt/types"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
)

type CryptService interface {
	CryptType() tpcrtypes.CryptType

	GeneratePriPubKey() (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error)

	// GeneratePriPubKeyBySeed is deterministic in seed.
	GeneratePriPubKeyBySeed(seed []byte) (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error)

	ConvertToPublic(priKey tpcrtypes.PrivateKey) (tpcrtypes.PublicKey, error)

	Sign(priKey tpcrtypes.PrivateKey, msg []byte) (tpcrtypes.Signature, error)

	Verify(pubKey tpcrtypes.PublicKey, msg []byte, signData tpcrtypes.Signature) (bool, error)
}

func CreateCryptService(log tplog.Logger, cryptType tpcrtypes.CryptType) (CryptService, error) {
	cryptLog := tplog.CreateModuleLogger(tplogcmm.InfoLevel, "crypt", log)
	switch cryptType {
	case tpcrtypes.CryptType_Ed25519:
		return ed25519.New(cryptLog), nil
	case tpcrtypes.CryptType_Secp256:
		return secp256.New(cryptLog), nil
	default:
		cryptLog.Errorf("invalid crypt type %d", cryptType)
		return nil, fmt.Errorf("invalid crypt type %d", cryptType)
	}
}
