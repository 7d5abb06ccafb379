package wshost

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tprltypes "github.com/TopiaNetwork/topia-wallet/relay/types"
)

type chanRouter struct {
	routed chan *tprltypes.BackgroundRequest
	closed chan string
}

func newChanRouter() *chanRouter {
	return &chanRouter{
		routed: make(chan *tprltypes.BackgroundRequest, 4),
		closed: make(chan string, 4),
	}
}

func (r *chanRouter) Route(ctx context.Context, req *tprltypes.BackgroundRequest) error {
	r.routed <- req
	return nil
}

func (r *chanRouter) SurfaceClosed(location string) {
	r.closed <- location
}

const (
	testSurfaceURL    = "http://wallet.localhost:7465/"
	testSurfaceOrigin = "http://wallet.localhost:7465"
)

func startHost(t *testing.T) (*WSHost, *chanRouter, string) {
	host := NewWSHost(tplog.CreateNopLogger(), Config{SurfaceURL: testSurfaceURL}, prometheus.NewRegistry())
	router := newChanRouter()
	host.SetRouter(router)

	srv := httptest.NewServer(host.Handler())
	t.Cleanup(srv.Close)
	return host, router, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialFrom(t *testing.T, url string, origin string) (*websocket.Conn, *http.Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if origin != "" {
		opts.HTTPHeader.Set("Origin", origin)
	}
	conn, resp, err := websocket.Dial(ctx, url, opts)
	if err == nil {
		t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	}
	return conn, resp, err
}

func dial(t *testing.T, url string) *websocket.Conn {
	conn, _, err := dialFrom(t, url, "")
	require.NoError(t, err)
	return conn
}

func TestSurfaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	host, router, base := startHost(t)

	err := host.SendToSurface(ctx, tprltypes.Location_Approval, &tprltypes.BackgroundRequest{})
	assert.ErrorIs(t, err, ErrSurfaceNotConnected)

	conn, _, err := dialFrom(t, base+"/ws/surface?location="+tprltypes.Location_Approval+"&token="+host.Token(), testSurfaceOrigin)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return host.SendToSurface(ctx, tprltypes.Location_Approval, &tprltypes.BackgroundRequest{
			BackgroundRequestType: tprltypes.BackgroundRequestType_ClientRequest,
		}) == nil
	}, 5*time.Second, 10*time.Millisecond)

	readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var got tprltypes.BackgroundRequest
	require.NoError(t, wsjson.Read(readCtx, conn, &got))
	assert.Equal(t, tprltypes.BackgroundRequestType_ClientRequest, got.BackgroundRequestType)

	// Already connected, so opening is a no-op.
	assert.NoError(t, host.OpenSurface(ctx, tprltypes.Location_Approval))

	require.NoError(t, wsjson.Write(readCtx, conn, &tprltypes.BackgroundRequest{BackgroundRequestType: tprltypes.BackgroundRequestType_ClientResponse}))
	select {
	case req := <-router.routed:
		assert.Equal(t, tprltypes.Location_Approval, req.Source)
	case <-time.After(5 * time.Second):
		t.Fatal("surface message not routed")
	}

	conn.Close(websocket.StatusNormalClosure, "bye")
	select {
	case location := <-router.closed:
		assert.Equal(t, tprltypes.Location_Approval, location)
	case <-time.After(5 * time.Second):
		t.Fatal("surface close not reported")
	}
}

func TestActiveTabIsMostRecentPage(t *testing.T) {
	ctx := context.Background()
	host, router, base := startHost(t)

	_, ok, err := host.ActiveTab(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	first := dial(t, base+"/ws/page")
	require.Eventually(t, func() bool {
		_, ok, _ := host.ActiveTab(ctx)
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	firstID, _, _ := host.ActiveTab(ctx)

	dial(t, base+"/ws/page")
	require.Eventually(t, func() bool {
		id, _, _ := host.ActiveTab(ctx)
		return id != firstID
	}, 5*time.Second, 10*time.Millisecond)

	// Speaking makes the first page active again.
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(writeCtx, first, &tprltypes.BackgroundRequest{BackgroundRequestType: tprltypes.BackgroundRequestType_ClientRequest}))
	select {
	case req := <-router.routed:
		assert.Equal(t, firstID, req.Source)
	case <-time.After(5 * time.Second):
		t.Fatal("page message not routed")
	}
	active, ok, err := host.ActiveTab(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, firstID, active)

	require.NoError(t, host.SendToTab(ctx, active, &tprltypes.BackgroundRequest{BackgroundRequestType: tprltypes.BackgroundRequestType_ClientResponse}))
	var got tprltypes.BackgroundRequest
	require.NoError(t, wsjson.Read(writeCtx, first, &got))
	assert.Equal(t, tprltypes.BackgroundRequestType_ClientResponse, got.BackgroundRequestType)

	assert.Error(t, host.SendToTab(ctx, "unknown", &tprltypes.BackgroundRequest{}))
}

func TestMetricsAndMountedRoutes(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "wshost_test_total"})
	registry.MustRegister(counter)
	counter.Inc()

	host := NewWSHost(tplog.CreateNopLogger(), Config{SurfaceURL: testSurfaceURL}, registry)
	host.Mount("/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	srv := httptest.NewServer(host.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "wshost_test_total 1")

	resp, err = http.Get(srv.URL + "/api/anything")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/anything", nil)
	require.NoError(t, err)
	req.Header.Set(TokenHeader, host.Token())
	req.Header.Set("Origin", testSurfaceOrigin)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, ok, err := host.ActiveTab(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, host.SendToSurface(context.Background(), "approval", &tprltypes.BackgroundRequest{}), ErrSurfaceNotConnected)
}

func TestSurfaceRequiresTokenAndOrigin(t *testing.T) {
	host, _, base := startHost(t)
	surface := base + "/ws/surface?location=" + tprltypes.Location_Approval

	_, resp, err := dialFrom(t, surface, testSurfaceOrigin)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dialFrom(t, surface+"&token=wrong", testSurfaceOrigin)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dialFrom(t, surface+"&token="+host.Token(), "https://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	err = host.SendToSurface(context.Background(), tprltypes.Location_Approval, &tprltypes.BackgroundRequest{})
	assert.ErrorIs(t, err, ErrSurfaceNotConnected)

	_, _, err = dialFrom(t, surface+"&token="+host.Token(), testSurfaceOrigin)
	assert.NoError(t, err)
}

func TestPagesAcceptAnyOrigin(t *testing.T) {
	ctx := context.Background()
	host, _, base := startHost(t)

	_, _, err := dialFrom(t, base+"/ws/page", "https://dapp.example.org")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok, _ := host.ActiveTab(ctx)
		return ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSurfaceLinkCarriesToken(t *testing.T) {
	a := NewWSHost(tplog.CreateNopLogger(), Config{SurfaceURL: testSurfaceURL}, nil)
	b := NewWSHost(tplog.CreateNopLogger(), Config{SurfaceURL: testSurfaceURL}, nil)

	assert.Len(t, a.Token(), 2*surfaceTokenLen)
	assert.NotEqual(t, a.Token(), b.Token())
	assert.Equal(t, testSurfaceURL+"#/approval?token="+a.Token(), a.SurfaceLink("approval"))

	fixed := NewWSHost(tplog.CreateNopLogger(), Config{SurfaceURL: testSurfaceURL, SurfaceToken: "abc"}, nil)
	assert.Equal(t, "abc", fixed.Token())
}

func TestOpenSurfaceRunsOpener(t *testing.T) {
	ctx := context.Background()

	missing := NewWSHost(tplog.CreateNopLogger(), Config{SurfaceURL: testSurfaceURL, OpenCommand: "/nonexistent/opener"}, nil)
	assert.Error(t, missing.OpenSurface(ctx, "approval"))

	falsePath, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}
	// A failing opener is only logged.
	failing := NewWSHost(tplog.CreateNopLogger(), Config{SurfaceURL: testSurfaceURL, OpenCommand: falsePath}, nil)
	assert.NoError(t, failing.OpenSurface(ctx, "approval"))
	require.NoError(t, failing.Stop(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, failing.OpenSurface(cancelled, "approval"), context.Canceled)
}
