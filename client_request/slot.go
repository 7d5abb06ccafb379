package client_request

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"lukechampine.com/frand"

	"github.com/TopiaNetwork/topia-wallet/crypt"
	tpcrtypes "github.com/TopiaNetwork/topia-wallet/crypt/types"
	"github.com/TopiaNetwork/topia-wallet/eventhub"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
	tprltypes "github.com/TopiaNetwork/topia-wallet/relay/types"
)

const MOD_NAME = "ClientRequest"

type State int

const (
	State_Empty State = iota
	State_Received
	State_Decoded
	State_Resolved
)

func (s State) String() string {
	switch s {
	case State_Empty:
		return "empty"
	case State_Received:
		return "received"
	case State_Decoded:
		return "decoded"
	case State_Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

var ErrIllegalTransition = errors.New("illegal client request transition")

// ClientRequestSession is the parked request. Timestamp is the page's own clock, ReceivedAt the
// wallet's.
type ClientRequestSession struct {
	ID         string
	ReceivedAt time.Time
	Timestamp  int64
	Action     string
	Data       json.RawMessage
	Origin     string
	Type       string
}

// KeySource derives the key pair of an account; an empty id means the active account.
type KeySource interface {
	KeyPair(ctx context.Context, accountID string) (tpcrtypes.SignatureKeyPair, error)
}

// Responder carries the response back to the page, normally the relay.
type Responder interface {
	Respond(ctx context.Context, resp *tprltypes.ClientResponsePayload) error
}

type Decision struct {
	Approved  bool
	AccountID string
}

type ResponseData struct {
	Approved  bool   `json:"approved"`
	CryptType string `json:"cryptType,omitempty"`
	PublicKey string `json:"publicKey,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// Slot holds at most one pending client request. A newer request replaces the pending one.
type Slot struct {
	log       tplog.Logger
	hub       eventhub.EventHub
	keys      KeySource
	provider  crypt.Provider
	responder Responder

	mtx     sync.Mutex
	state   State
	session *ClientRequestSession
	decoded *DecodedRequest
}

func NewSlot(log tplog.Logger, hub eventhub.EventHub, keys KeySource, provider crypt.Provider, responder Responder) *Slot {
	return &Slot{
		log:       tplog.CreateModuleLogger(tplogcmm.InfoLevel, MOD_NAME, log),
		hub:       hub,
		keys:      keys,
		provider:  provider,
		responder: responder,
	}
}

func (s *Slot) publish(ctx context.Context, name string, session *ClientRequestSession) {
	if s.hub == nil {
		return
	}
	ev := &eventhub.ClientRequestEvent{
		RequestID:         session.ID,
		ClientRequestType: session.Action,
		Origin:            session.Origin,
	}
	if err := s.hub.Trig(ctx, name, ev); err != nil {
		s.log.Warnf("Publish %s err: %v", name, err)
	}
}

func (s *Slot) Receive(ctx context.Context, payload *tprltypes.ClientRequestPayload) *ClientRequestSession {
	session := &ClientRequestSession{
		ID:         hex.EncodeToString(frand.Bytes(16)),
		ReceivedAt: time.Now(),
		Timestamp:  payload.Timestamp,
		Action:     payload.ClientRequestType,
		Data:       append(json.RawMessage(nil), payload.Data...),
		Origin:     payload.Origin,
	}

	s.mtx.Lock()
	if s.state != State_Empty && s.session != nil {
		s.log.Warnf("Pending client request %s replaced by %s", s.session.ID, session.ID)
	}
	s.state = State_Received
	s.session = session
	s.decoded = nil
	s.mtx.Unlock()

	s.publish(ctx, eventhub.EventName_ClientRequestReceived, session)

	c := *session
	return &c
}

func (s *Slot) Current() (*ClientRequestSession, State) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.session == nil {
		return nil, s.state
	}
	c := *s.session
	return &c, s.state
}

func (s *Slot) Decode(parser Parser) (DecodedRequest, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.state != State_Received {
		return DecodedRequest{}, fmt.Errorf("%w: decode in state %s", ErrIllegalTransition, s.state)
	}

	decoded, err := parser.Parse(&tprltypes.ClientRequestPayload{
		ClientRequestType: s.session.Action,
		Timestamp:         s.session.Timestamp,
		Origin:            s.session.Origin,
		Data:              s.session.Data,
	})
	if err != nil {
		return DecodedRequest{}, err
	}

	s.session.Type = decoded.Kind
	s.decoded = &decoded
	s.state = State_Decoded
	return decoded, nil
}

// Resolve answers the decoded request, hands the response to the responder and empties the slot.
func (s *Slot) Resolve(ctx context.Context, decision Decision) (*tprltypes.ClientResponsePayload, error) {
	s.mtx.Lock()
	if s.state != State_Decoded {
		state := s.state
		s.mtx.Unlock()
		return nil, fmt.Errorf("%w: resolve in state %s", ErrIllegalTransition, state)
	}
	session := *s.session
	decoded := *s.decoded
	s.state = State_Resolved
	s.mtx.Unlock()

	data := ResponseData{Approved: decision.Approved}
	if decision.Approved {
		keyPair, err := s.keys.KeyPair(ctx, decision.AccountID)
		if err != nil {
			s.rollback(session.ID)
			return nil, err
		}
		sig, err := s.provider.Sign(ctx, keyPair.PrivateKey, decoded.ToSign)
		clear(keyPair.PrivateKey)
		if err != nil {
			s.rollback(session.ID)
			return nil, err
		}
		data.CryptType = keyPair.CryptType.String()
		data.PublicKey = hex.EncodeToString(keyPair.PublicKey)
		data.Signature = hex.EncodeToString(sig)
	}

	raw, err := json.Marshal(&data)
	if err != nil {
		s.rollback(session.ID)
		return nil, err
	}
	resp := &tprltypes.ClientResponsePayload{
		ClientRequestType: session.Action,
		Data:              raw,
	}

	if err = s.responder.Respond(ctx, resp); err != nil {
		s.log.Errorf("Respond to client request %s err: %v", session.ID, err)
	}
	s.finish(session.ID)
	s.publish(ctx, eventhub.EventName_ClientRequestResolved, &session)

	return resp, err
}

// rollback returns a failed resolution to Decoded unless a newer request took the slot.
func (s *Slot) rollback(id string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.session != nil && s.session.ID == id && s.state == State_Resolved {
		s.state = State_Decoded
	}
}

func (s *Slot) finish(id string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.session != nil && s.session.ID == id {
		s.state = State_Empty
		s.session = nil
		s.decoded = nil
	}
}

func (s *Slot) Reset() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.state = State_Empty
	s.session = nil
	s.decoded = nil
}
