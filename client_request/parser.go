package client_request

import (
	"encoding/json"
	"errors"
	"fmt"

	tprltypes "github.com/TopiaNetwork/topia-wallet/relay/types"
)

const (
	ClientRequestType_AuthByPublicKey = "AUTH_BY_PUBLIC_KEY"
	ClientRequestType_SignMessage     = "SIGN_MESSAGE"
)

var ErrUnsupportedRequest = errors.New("unsupported client request")

// DecodedRequest is what the approval surface shows and, once approved, signs.
type DecodedRequest struct {
	Kind    string
	Origin  string
	Summary string
	ToSign  []byte
}

type Parser interface {
	Parse(payload *tprltypes.ClientRequestPayload) (DecodedRequest, error)
}

type authByPublicKeyData struct {
	Challenge string `json:"challenge"`
}

type signMessageData struct {
	Message string `json:"message"`
}

// JSONParser understands the request kinds the wallet ships with.
type JSONParser struct{}

func (p JSONParser) Parse(payload *tprltypes.ClientRequestPayload) (DecodedRequest, error) {
	switch payload.ClientRequestType {
	case ClientRequestType_AuthByPublicKey:
		var data authByPublicKeyData
		if err := json.Unmarshal(payload.Data, &data); err != nil {
			return DecodedRequest{}, fmt.Errorf("%w: %v", ErrUnsupportedRequest, err)
		}
		if data.Challenge == "" {
			return DecodedRequest{}, fmt.Errorf("%w: empty challenge", ErrUnsupportedRequest)
		}
		return DecodedRequest{
			Kind:    payload.ClientRequestType,
			Origin:  payload.Origin,
			Summary: fmt.Sprintf("%s asks to authenticate with your public key", payload.Origin),
			ToSign:  []byte(data.Challenge),
		}, nil
	case ClientRequestType_SignMessage:
		var data signMessageData
		if err := json.Unmarshal(payload.Data, &data); err != nil {
			return DecodedRequest{}, fmt.Errorf("%w: %v", ErrUnsupportedRequest, err)
		}
		if data.Message == "" {
			return DecodedRequest{}, fmt.Errorf("%w: empty message", ErrUnsupportedRequest)
		}
		return DecodedRequest{
			Kind:    payload.ClientRequestType,
			Origin:  payload.Origin,
			Summary: fmt.Sprintf("%s asks to sign: %s", payload.Origin, data.Message),
			ToSign:  []byte(data.Message),
		}, nil
	default:
		return DecodedRequest{}, fmt.Errorf("%w: %s", ErrUnsupportedRequest, payload.ClientRequestType)
	}
}
