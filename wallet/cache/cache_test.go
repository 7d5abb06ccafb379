package cache

import (
	"context"
	"testing"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopiaNetwork/topia-wallet/eventhub"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
	"github.com/TopiaNetwork/topia-wallet/storage/backend/memdb"
	tpbkcmm "github.com/TopiaNetwork/topia-wallet/storage/backend/common"
	tpwtypes "github.com/TopiaNetwork/topia-wallet/wallet/types"
)

func testWallet(pseudo string) *tpwtypes.Wallet {
	return &tpwtypes.Wallet{
		Seed:     []byte("seed"),
		Password: "pw",
		Counter:  1,
		Accounts: []tpwtypes.Account{{ID: "acc-1", Pseudo: pseudo}},
	}
}

func startHub(t *testing.T) eventhub.EventHub {
	hub := eventhub.NewEventHub(tplogcmm.InfoLevel, tplog.CreateNopLogger())
	require.NoError(t, hub.Start(actor.NewActorSystem()))
	t.Cleanup(hub.Stop)
	return hub
}

func newSessionBackend() tpbkcmm.Backend {
	return memdb.NewMemDBBackend(tplog.CreateNopLogger(), "session")
}

func TestSetGetAndHydrate(t *testing.T) {
	ctx := context.Background()
	backend := newSessionBackend()

	c, err := NewSessionCache(tplog.CreateNopLogger(), backend, nil)
	require.NoError(t, err)
	assert.Nil(t, c.Get())

	require.NoError(t, c.Set(ctx, testWallet("alice")))
	assert.Equal(t, "alice", c.Get().Accounts[0].Pseudo)

	// A surface reopened in the same session finds the wallet without a password.
	reopened, err := NewSessionCache(tplog.CreateNopLogger(), backend, nil)
	require.NoError(t, err)
	assert.Equal(t, c.Get(), reopened.Get())

	loaded, err := Load(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, "alice", loaded.Accounts[0].Pseudo)
}

func TestSetNilRemoves(t *testing.T) {
	ctx := context.Background()
	backend := newSessionBackend()

	c, err := NewSessionCache(tplog.CreateNopLogger(), backend, nil)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, testWallet("alice")))
	require.NoError(t, c.Set(ctx, nil))
	assert.Nil(t, c.Get())

	loaded, err := Load(ctx, backend)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestGetReturnsCopy(t *testing.T) {
	c, err := NewSessionCache(tplog.CreateNopLogger(), newSessionBackend(), nil)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), testWallet("alice")))

	w := c.Get()
	w.Accounts[0].Pseudo = "mallory"
	assert.Equal(t, "alice", c.Get().Accounts[0].Pseudo)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	hub := startHub(t)

	c, err := NewSessionCache(tplog.CreateNopLogger(), newSessionBackend(), hub)
	require.NoError(t, err)

	changes := make(chan *tpwtypes.Wallet, 2)
	subID, err := c.Subscribe(ctx, func(ctx context.Context, w *tpwtypes.Wallet) {
		changes <- w
	})
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, testWallet("alice")))
	select {
	case w := <-changes:
		require.NotNil(t, w)
		assert.Equal(t, "alice", w.Accounts[0].Pseudo)
	case <-time.After(5 * time.Second):
		t.Fatal("change not delivered")
	}

	require.NoError(t, c.Set(ctx, nil))
	select {
	case w := <-changes:
		assert.Nil(t, w)
	case <-time.After(5 * time.Second):
		t.Fatal("removal not delivered")
	}

	require.NoError(t, c.Unsubscribe(ctx, subID))
}

func TestLastWriteWinsAcrossSurfaces(t *testing.T) {
	ctx := context.Background()
	hub := startHub(t)
	backend := newSessionBackend()

	first, err := NewSessionCache(tplog.CreateNopLogger(), backend, hub)
	require.NoError(t, err)
	second, err := NewSessionCache(tplog.CreateNopLogger(), backend, hub)
	require.NoError(t, err)

	notified := make(chan struct{}, 1)
	_, err = first.Subscribe(ctx, func(ctx context.Context, w *tpwtypes.Wallet) {
		notified <- struct{}{}
	})
	require.NoError(t, err)

	require.NoError(t, first.Set(ctx, testWallet("from-first")))
	<-notified
	require.NoError(t, second.Set(ctx, testWallet("from-second")))

	loaded, err := Load(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, "from-second", loaded.Accounts[0].Pseudo)

	// The overridden surface keeps its stale view and hears nothing.
	assert.Equal(t, "from-first", first.Get().Accounts[0].Pseudo)
	select {
	case <-notified:
		t.Fatal("first surface must not be notified of the second surface write")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscribeWithoutHub(t *testing.T) {
	c, err := NewSessionCache(tplog.CreateNopLogger(), newSessionBackend(), nil)
	require.NoError(t, err)

	_, err = c.Subscribe(context.Background(), func(ctx context.Context, w *tpwtypes.Wallet) {})
	assert.ErrorIs(t, err, ErrNoEventHub)
}
