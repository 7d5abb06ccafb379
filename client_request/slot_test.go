package client_request

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopiaNetwork/topia-wallet/crypt"
	"github.com/TopiaNetwork/topia-wallet/crypt/symmetric"
	tpcrtypes "github.com/TopiaNetwork/topia-wallet/crypt/types"
	"github.com/TopiaNetwork/topia-wallet/eventhub"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
	tprltypes "github.com/TopiaNetwork/topia-wallet/relay/types"
)

type seedKeys struct {
	provider crypt.Provider
	seed     []byte
	fail     bool
}

func (k *seedKeys) KeyPair(ctx context.Context, accountID string) (tpcrtypes.SignatureKeyPair, error) {
	if k.fail {
		return tpcrtypes.SignatureKeyPair{}, errors.New("wallet is locked")
	}
	return k.provider.DeriveSignatureKeyPair(ctx, k.seed, 0)
}

type recordingResponder struct {
	responses []*tprltypes.ClientResponsePayload
}

func (r *recordingResponder) Respond(ctx context.Context, resp *tprltypes.ClientResponsePayload) error {
	r.responses = append(r.responses, resp)
	return nil
}

type slotFixture struct {
	provider  crypt.Provider
	keys      *seedKeys
	responder *recordingResponder
	slot      *Slot
}

func newSlotFixture(t *testing.T, hub eventhub.EventHub) *slotFixture {
	kdf := symmetric.DefaultScryptParams()
	kdf.N = 1 << 4
	provider, err := crypt.NewProvider(tplog.CreateNopLogger(), tpcrtypes.CryptType_Ed25519, kdf)
	require.NoError(t, err)

	f := &slotFixture{
		provider:  provider,
		keys:      &seedKeys{provider: provider, seed: bytes.Repeat([]byte{0x01}, 32)},
		responder: &recordingResponder{},
	}
	f.slot = NewSlot(tplog.CreateNopLogger(), hub, f.keys, provider, f.responder)
	return f
}

func authRequest(challenge string) *tprltypes.ClientRequestPayload {
	return &tprltypes.ClientRequestPayload{
		ClientRequestType: ClientRequestType_AuthByPublicKey,
		Timestamp:         time.Now().Unix(),
		Origin:            "https://dapp.example.org",
		Data:              json.RawMessage(`{"challenge":"` + challenge + `"}`),
	}
}

func TestSlotLifecycleApproved(t *testing.T) {
	ctx := context.Background()
	f := newSlotFixture(t, nil)

	_, state := f.slot.Current()
	assert.Equal(t, State_Empty, state)

	session := f.slot.Receive(ctx, authRequest("abc"))
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, ClientRequestType_AuthByPublicKey, session.Action)

	_, state = f.slot.Current()
	assert.Equal(t, State_Received, state)

	decoded, err := f.slot.Decode(JSONParser{})
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), decoded.ToSign)

	current, state := f.slot.Current()
	assert.Equal(t, State_Decoded, state)
	assert.Equal(t, ClientRequestType_AuthByPublicKey, current.Type)

	resp, err := f.slot.Resolve(ctx, Decision{Approved: true})
	require.NoError(t, err)
	require.Len(t, f.responder.responses, 1)
	assert.Equal(t, resp, f.responder.responses[0])

	var data ResponseData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.True(t, data.Approved)

	pub, err := hex.DecodeString(data.PublicKey)
	require.NoError(t, err)
	sig, err := hex.DecodeString(data.Signature)
	require.NoError(t, err)
	ok, err := f.provider.Verify(ctx, pub, []byte("abc"), sig)
	require.NoError(t, err)
	assert.True(t, ok)

	current, state = f.slot.Current()
	assert.Nil(t, current)
	assert.Equal(t, State_Empty, state)
}

type capturingParser struct {
	seen *tprltypes.ClientRequestPayload
}

func (p *capturingParser) Parse(payload *tprltypes.ClientRequestPayload) (DecodedRequest, error) {
	c := *payload
	p.seen = &c
	return JSONParser{}.Parse(payload)
}

func TestSlotKeepsPageTimestamp(t *testing.T) {
	ctx := context.Background()
	f := newSlotFixture(t, nil)

	req := authRequest("abc")
	req.Timestamp = 1_600_000_000
	session := f.slot.Receive(ctx, req)
	assert.Equal(t, int64(1_600_000_000), session.Timestamp)
	assert.NotEqual(t, session.ReceivedAt.Unix(), session.Timestamp)

	parser := &capturingParser{}
	_, err := f.slot.Decode(parser)
	require.NoError(t, err)
	require.NotNil(t, parser.seen)
	assert.Equal(t, int64(1_600_000_000), parser.seen.Timestamp)
	assert.Equal(t, req.Origin, parser.seen.Origin)
}

func TestSlotRejected(t *testing.T) {
	ctx := context.Background()
	f := newSlotFixture(t, nil)

	f.slot.Receive(ctx, authRequest("abc"))
	_, err := f.slot.Decode(JSONParser{})
	require.NoError(t, err)

	resp, err := f.slot.Resolve(ctx, Decision{Approved: false})
	require.NoError(t, err)
	assert.JSONEq(t, `{"approved":false}`, string(resp.Data))
}

func TestSlotLastRequestWins(t *testing.T) {
	ctx := context.Background()
	f := newSlotFixture(t, nil)

	first := f.slot.Receive(ctx, authRequest("first"))
	second := f.slot.Receive(ctx, authRequest("second"))
	assert.NotEqual(t, first.ID, second.ID)

	current, _ := f.slot.Current()
	assert.Equal(t, second.ID, current.ID)

	decoded, err := f.slot.Decode(JSONParser{})
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), decoded.ToSign)
}

func TestSlotIllegalTransitions(t *testing.T) {
	ctx := context.Background()
	f := newSlotFixture(t, nil)

	_, err := f.slot.Decode(JSONParser{})
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, err = f.slot.Resolve(ctx, Decision{Approved: true})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	f.slot.Receive(ctx, authRequest("abc"))
	_, err = f.slot.Resolve(ctx, Decision{Approved: true})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	f.slot.Reset()
	_, state := f.slot.Current()
	assert.Equal(t, State_Empty, state)
}

func TestSlotResolveFailureKeepsRequest(t *testing.T) {
	ctx := context.Background()
	f := newSlotFixture(t, nil)
	f.keys.fail = true

	f.slot.Receive(ctx, authRequest("abc"))
	_, err := f.slot.Decode(JSONParser{})
	require.NoError(t, err)

	_, err = f.slot.Resolve(ctx, Decision{Approved: true})
	assert.Error(t, err)
	_, state := f.slot.Current()
	assert.Equal(t, State_Decoded, state)
	assert.Empty(t, f.responder.responses)
}

func TestSlotPublishesEvents(t *testing.T) {
	ctx := context.Background()
	hub := eventhub.NewEventHub(tplogcmm.InfoLevel, tplog.CreateNopLogger())
	require.NoError(t, hub.Start(actor.NewActorSystem()))
	defer hub.Stop()

	received := make(chan string, 1)
	_, err := hub.Observe(ctx, eventhub.EventName_ClientRequestReceived, func(ctx context.Context, data interface{}) error {
		received <- data.(*eventhub.ClientRequestEvent).RequestID
		return nil
	})
	require.NoError(t, err)

	f := newSlotFixture(t, hub)
	session := f.slot.Receive(ctx, authRequest("abc"))

	select {
	case id := <-received:
		assert.Equal(t, session.ID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("received event not published")
	}
}

func TestJSONParser(t *testing.T) {
	p := JSONParser{}

	decoded, err := p.Parse(&tprltypes.ClientRequestPayload{
		ClientRequestType: ClientRequestType_SignMessage,
		Origin:            "o",
		Data:              json.RawMessage(`{"message":"hello"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), decoded.ToSign)

	_, err = p.Parse(&tprltypes.ClientRequestPayload{ClientRequestType: "UNKNOWN"})
	assert.ErrorIs(t, err, ErrUnsupportedRequest)

	_, err = p.Parse(&tprltypes.ClientRequestPayload{ClientRequestType: ClientRequestType_AuthByPublicKey, Data: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrUnsupportedRequest)
}
