package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

type BackgroundRequestType string

const (
	BackgroundRequestType_BrowserOpenAction BackgroundRequestType = "BROWSER_OPEN_ACTION"
	BackgroundRequestType_ClientRequest     BackgroundRequestType = "CLIENT_REQUEST"
	BackgroundRequestType_ClientResponse    BackgroundRequestType = "CLIENT_RESPONSE"
)

// Surface locations the relay can open.
const (
	Location_Approval   = "approval"
	Location_Login      = "login"
	Location_Onboarding = "onboarding"
)

var ErrInvalidPayload = errors.New("invalid background request payload")

// BackgroundRequest is the envelope exchanged between pages, surfaces and the relay.
type BackgroundRequest struct {
	BackgroundRequestType BackgroundRequestType `json:"backgroundRequestType"`
	Source                string                `json:"source,omitempty"`
	Payload               json.RawMessage       `json:"payload"`
}

type BrowserOpenActionPayload struct {
	Location string `json:"location"`
}

type ClientRequestPayload struct {
	ClientRequestType string          `json:"clientRequestType"`
	Timestamp         int64           `json:"timestamp"`
	Origin            string          `json:"origin"`
	Data              json.RawMessage `json:"data"`
}

type ClientResponsePayload struct {
	ClientRequestType string          `json:"clientRequestType"`
	Data              json.RawMessage `json:"data"`
}

func NewBackgroundRequest(reqType BackgroundRequestType, source string, payload interface{}) (*BackgroundRequest, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &BackgroundRequest{
		BackgroundRequestType: reqType,
		Source:                source,
		Payload:               data,
	}, nil
}

func (r *BackgroundRequest) decode(v interface{}) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%w: empty %s payload", ErrInvalidPayload, r.BackgroundRequestType)
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func (r *BackgroundRequest) BrowserOpenAction() (*BrowserOpenActionPayload, error) {
	var p BrowserOpenActionPayload
	if err := r.decode(&p); err != nil {
		return nil, err
	}
	if p.Location == "" {
		return nil, fmt.Errorf("%w: empty location", ErrInvalidPayload)
	}
	return &p, nil
}

func (r *BackgroundRequest) ClientRequest() (*ClientRequestPayload, error) {
	var p ClientRequestPayload
	if err := r.decode(&p); err != nil {
		return nil, err
	}
	if p.ClientRequestType == "" {
		return nil, fmt.Errorf("%w: empty clientRequestType", ErrInvalidPayload)
	}
	return &p, nil
}

func (r *BackgroundRequest) ClientResponse() (*ClientResponsePayload, error) {
	var p ClientResponsePayload
	if err := r.decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
