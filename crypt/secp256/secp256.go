package secp256

import (
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
	"lukechampine.com/frand"

	tpcrtypes "github.com/TopiaNetwork/topia-wallet/crypt/types"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
)

const (
	PublicKeyBytes      = 33 // compressed
	PrivateKeyBytes     = 32
	SeedBytes           = 32
	maxLoopCreateSeckey = 3
)

type CryptServiceSecp256 struct {
	log tplog.Logger
}

func New(log tplog.Logger) *CryptServiceSecp256 {
	return &CryptServiceSecp256{log}
}

func (c *CryptServiceSecp256) CryptType() tpcrtypes.CryptType {
	return tpcrtypes.CryptType_Secp256
}

func validSeckey(seckey []byte) bool {
	d := new(big.Int).SetBytes(seckey)
	return d.Sign() > 0 && d.Cmp(btcec.S256().N) < 0
}

func (c *CryptServiceSecp256) GeneratePriPubKey() (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error) {
	for i := 0; i < maxLoopCreateSeckey; i++ {
		seckey := frand.Bytes(PrivateKeyBytes)
		if validSeckey(seckey) {
			return c.GeneratePriPubKeyBySeed(seckey)
		}
	}
	return nil, nil, errors.New("can't create valid seckey")
}

// GeneratePriPubKeyBySeed uses the seed as the scalar directly.
func (c *CryptServiceSecp256) GeneratePriPubKeyBySeed(seed []byte) (tpcrtypes.PrivateKey, tpcrtypes.PublicKey, error) {
	if len(seed) != SeedBytes {
		return nil, nil, errors.New("input seed length err")
	}
	if !validSeckey(seed) {
		return nil, nil, errors.New("seed out of curve order")
	}

	priv, pub := btcec.PrivKeyFromBytes(btcec.S256(), seed)
	return priv.Serialize(), pub.SerializeCompressed(), nil
}

func (c *CryptServiceSecp256) ConvertToPublic(priKey tpcrtypes.PrivateKey) (tpcrtypes.PublicKey, error) {
	if len(priKey) != PrivateKeyBytes || !validSeckey(priKey) {
		return nil, errors.New("input invalid PrivateKey")
	}
	_, pub := btcec.PrivKeyFromBytes(btcec.S256(), priKey)
	return pub.SerializeCompressed(), nil
}

// Sign signs sha256(msg) and returns a DER encoded signature.
func (c *CryptServiceSecp256) Sign(priKey tpcrtypes.PrivateKey, msg []byte) (tpcrtypes.Signature, error) {
	if len(priKey) != PrivateKeyBytes || len(msg) == 0 {
		return nil, errors.New("input invalid argument")
	}

	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), priKey)
	hash := sha256.Sum256(msg)
	sig, err := priv.Sign(hash[:])
	if err != nil {
		c.log.Errorf("secp256 sign err: %v", err)
		return nil, err
	}
	return sig.Serialize(), nil
}

func (c *CryptServiceSecp256) Verify(pubKey tpcrtypes.PublicKey, msg []byte, signData tpcrtypes.Signature) (bool, error) {
	if len(pubKey) == 0 || len(msg) == 0 || len(signData) == 0 {
		return false, errors.New("input invalid argument")
	}

	pub, err := btcec.ParsePubKey(pubKey, btcec.S256())
	if err != nil {
		return false, err
	}
	sig, err := btcec.ParseDERSignature(signData, btcec.S256())
	if err != nil {
		return false, err
	}

	hash := sha256.Sum256(msg)
	return sig.Verify(hash[:], pub), nil
}
