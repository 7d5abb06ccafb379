package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tprltypes "github.com/TopiaNetwork/topia-wallet/relay/types"
	"github.com/TopiaNetwork/topia-wallet/storage/backend/memdb"
	tpbkcmm "github.com/TopiaNetwork/topia-wallet/storage/backend/common"
	"github.com/TopiaNetwork/topia-wallet/wallet/cache"
	tpwtypes "github.com/TopiaNetwork/topia-wallet/wallet/types"
)

var errNotListening = errors.New("surface not listening")

type fakeHost struct {
	mtx         sync.Mutex
	opened      []string
	failSends   int // sends failing before one succeeds, negative fails forever
	sends       int
	surfaceMsgs []*tprltypes.BackgroundRequest
	activeTab   string
	tabMsgs     map[string][]*tprltypes.BackgroundRequest
}

func (h *fakeHost) OpenSurface(ctx context.Context, location string) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.opened = append(h.opened, location)
	return nil
}

func (h *fakeHost) SendToSurface(ctx context.Context, location string, msg *tprltypes.BackgroundRequest) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.sends++
	if h.failSends < 0 || h.sends <= h.failSends {
		return errNotListening
	}
	h.surfaceMsgs = append(h.surfaceMsgs, msg)
	return nil
}

func (h *fakeHost) ActiveTab(ctx context.Context) (string, bool, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.activeTab, h.activeTab != "", nil
}

func (h *fakeHost) SendToTab(ctx context.Context, tabID string, msg *tprltypes.BackgroundRequest) error {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.tabMsgs == nil {
		h.tabMsgs = make(map[string][]*tprltypes.BackgroundRequest)
	}
	h.tabMsgs[tabID] = append(h.tabMsgs[tabID], msg)
	return nil
}

func (h *fakeHost) sendCount() int {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.sends
}

type relayFixture struct {
	host    *fakeHost
	durable tpbkcmm.Backend
	session tpbkcmm.Backend
	metrics *Metrics
	relay   *Relay
}

func newRelayFixture(t *testing.T, host *fakeHost, config Config) *relayFixture {
	log := tplog.CreateNopLogger()
	f := &relayFixture{
		host:    host,
		durable: memdb.NewMemDBBackend(log, "durable"),
		session: memdb.NewMemDBBackend(log, "session"),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	f.relay = NewRelay(log, config, host, f.durable, f.session, f.metrics)
	t.Cleanup(f.relay.Stop)
	return f
}

func (f *relayFixture) unlock(t *testing.T) {
	c, err := cache.NewSessionCache(tplog.CreateNopLogger(), f.session, nil)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), &tpwtypes.Wallet{
		Seed:     []byte("seed"),
		Password: "pw",
		Counter:  1,
		Accounts: []tpwtypes.Account{{ID: "a1"}},
	}))
}

func clientRequest(t *testing.T) *tprltypes.BackgroundRequest {
	req, err := tprltypes.NewBackgroundRequest(tprltypes.BackgroundRequestType_ClientRequest, "page-1", &tprltypes.ClientRequestPayload{
		ClientRequestType: "AUTH_BY_PUBLIC_KEY",
		Timestamp:         time.Now().Unix(),
		Origin:            "https://dapp.example.org",
		Data:              json.RawMessage(`{"challenge":"abc"}`),
	})
	require.NoError(t, err)
	return req
}

func TestRelayRetryBound(t *testing.T) {
	f := newRelayFixture(t, &fakeHost{failSends: -1}, Config{MaxDeliveryAttempts: 4, DeliveryDelay: 5 * time.Millisecond})
	f.unlock(t)

	d, err := f.relay.Handle(context.Background(), clientRequest(t))
	require.NoError(t, err)

	err = d.Wait(context.Background())
	assert.ErrorIs(t, err, ErrRelayDeliveryFailure)
	assert.Equal(t, 4, d.Attempts())
	assert.Equal(t, 4, f.host.sendCount())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 4, f.host.sendCount(), "no attempt after the bound")
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.deliveryFailures))
	assert.Equal(t, float64(4), testutil.ToFloat64(f.metrics.deliveryAttempts))
}

func TestRelayDeliverySucceedsAfterFailures(t *testing.T) {
	f := newRelayFixture(t, &fakeHost{failSends: 2}, Config{MaxDeliveryAttempts: 10, DeliveryDelay: time.Millisecond})
	f.unlock(t)

	req := clientRequest(t)
	d, err := f.relay.Handle(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, d.Wait(context.Background()))

	assert.Equal(t, 3, d.Attempts())
	assert.Equal(t, tprltypes.Location_Approval, d.Location)
	require.Len(t, f.host.surfaceMsgs, 1)
	assert.Equal(t, req, f.host.surfaceMsgs[0])
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.deliveryFailures))
}

func TestRelaySurfaceClosedCancelsDelivery(t *testing.T) {
	f := newRelayFixture(t, &fakeHost{failSends: -1}, Config{MaxDeliveryAttempts: 10, DeliveryDelay: time.Second})
	f.unlock(t)

	d, err := f.relay.Handle(context.Background(), clientRequest(t))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.host.sendCount() >= 1 }, time.Second, time.Millisecond)

	f.relay.SurfaceClosed(tprltypes.Location_Approval)

	waitCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(waitCtx), context.Canceled)
	assert.Less(t, d.Attempts(), 10)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.deliveryCancelled))
}

func TestRelayStopCancelsDeliveries(t *testing.T) {
	f := newRelayFixture(t, &fakeHost{failSends: -1}, Config{MaxDeliveryAttempts: 10, DeliveryDelay: time.Second})
	f.unlock(t)

	d, err := f.relay.Handle(context.Background(), clientRequest(t))
	require.NoError(t, err)

	f.relay.Stop()
	assert.ErrorIs(t, d.Wait(context.Background()), context.Canceled)

	_, err = f.relay.Handle(context.Background(), clientRequest(t))
	assert.ErrorIs(t, err, ErrRelayStopped)
}

func TestRelayRehydratesSurfaceLocation(t *testing.T) {
	ctx := context.Background()
	f := newRelayFixture(t, &fakeHost{}, Config{MaxDeliveryAttempts: 1})

	d, err := f.relay.Handle(ctx, clientRequest(t))
	require.NoError(t, err)
	require.NoError(t, d.Wait(ctx))
	assert.Equal(t, tprltypes.Location_Onboarding, d.Location)

	require.NoError(t, f.durable.Set([]byte("wallet/topia-wallet"), []byte("sealed")))
	d, err = f.relay.Handle(ctx, clientRequest(t))
	require.NoError(t, err)
	require.NoError(t, d.Wait(ctx))
	assert.Equal(t, tprltypes.Location_Login, d.Location)

	f.unlock(t)
	d, err = f.relay.Handle(ctx, clientRequest(t))
	require.NoError(t, err)
	require.NoError(t, d.Wait(ctx))
	assert.Equal(t, tprltypes.Location_Approval, d.Location)

	assert.Equal(t, []string{tprltypes.Location_Onboarding, tprltypes.Location_Login, tprltypes.Location_Approval}, f.host.opened)
}

func TestRelayClientResponse(t *testing.T) {
	ctx := context.Background()
	host := &fakeHost{}
	f := newRelayFixture(t, host, Config{MaxDeliveryAttempts: 1})

	resp := &tprltypes.ClientResponsePayload{ClientRequestType: "AUTH_BY_PUBLIC_KEY", Data: json.RawMessage(`{"ok":true}`)}
	require.NoError(t, f.relay.Respond(ctx, resp))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.responsesDropped))
	assert.Empty(t, host.tabMsgs)

	host.activeTab = "tab-7"
	require.NoError(t, f.relay.Respond(ctx, resp))
	require.Len(t, host.tabMsgs["tab-7"], 1)

	got, err := host.tabMsgs["tab-7"][0].ClientResponse()
	require.NoError(t, err)
	assert.Equal(t, resp.ClientRequestType, got.ClientRequestType)
	assert.JSONEq(t, `{"ok":true}`, string(got.Data))
}

func TestRelayBrowserOpenAction(t *testing.T) {
	ctx := context.Background()
	host := &fakeHost{}
	f := newRelayFixture(t, host, Config{MaxDeliveryAttempts: 1})

	req, err := tprltypes.NewBackgroundRequest(tprltypes.BackgroundRequestType_BrowserOpenAction, "", &tprltypes.BrowserOpenActionPayload{Location: "settings"})
	require.NoError(t, err)
	d, err := f.relay.Handle(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.Equal(t, []string{"settings"}, host.opened)

	req, err = tprltypes.NewBackgroundRequest(tprltypes.BackgroundRequestType_BrowserOpenAction, "", &tprltypes.BrowserOpenActionPayload{})
	require.NoError(t, err)
	_, err = f.relay.Handle(ctx, req)
	assert.ErrorIs(t, err, tprltypes.ErrInvalidPayload)

	_, err = f.relay.Handle(ctx, &tprltypes.BackgroundRequest{BackgroundRequestType: "NOPE"})
	assert.ErrorIs(t, err, ErrUnknownRequestType)
}

func TestRelayActorDispatch(t *testing.T) {
	sysActor := actor.NewActorSystem()
	host := &fakeHost{}
	f := newRelayFixture(t, host, Config{MaxDeliveryAttempts: 1})
	f.unlock(t)

	pid, err := SpawnRelayActor(tplog.CreateNopLogger(), sysActor, f.relay)
	require.NoError(t, err)
	defer sysActor.Root.Poison(pid)

	d, err := Dispatch(sysActor, pid, clientRequest(t), time.Second)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.NoError(t, d.Wait(context.Background()))

	_, err = Dispatch(sysActor, pid, &tprltypes.BackgroundRequest{BackgroundRequestType: "NOPE"}, time.Second)
	assert.ErrorIs(t, err, ErrUnknownRequestType)
}

func TestActorRouter(t *testing.T) {
	sysActor := actor.NewActorSystem()
	host := &fakeHost{failSends: -1}
	f := newRelayFixture(t, host, Config{MaxDeliveryAttempts: 10, DeliveryDelay: time.Second})
	f.unlock(t)

	pid, err := SpawnRelayActor(tplog.CreateNopLogger(), sysActor, f.relay)
	require.NoError(t, err)
	defer sysActor.Root.Poison(pid)

	router := NewActorRouter(sysActor, pid, f.relay, time.Second)
	require.NoError(t, router.Route(context.Background(), clientRequest(t)))
	require.Eventually(t, func() bool { return host.sendCount() >= 1 }, time.Second, time.Millisecond)

	router.SurfaceClosed(tprltypes.Location_Approval)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.deliveryCancelled) == 1
	}, time.Second, time.Millisecond)
}
