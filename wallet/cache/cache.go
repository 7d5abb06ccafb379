package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"lukechampine.com/frand"

	"github.com/TopiaNetwork/topia-wallet/codec"
	"github.com/TopiaNetwork/topia-wallet/eventhub"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
	tpbkcmm "github.com/TopiaNetwork/topia-wallet/storage/backend/common"
	tpwtypes "github.com/TopiaNetwork/topia-wallet/wallet/types"
)

const MOD_NAME = "SessionCache"

var sessionWalletKey = []byte("session/wallet")

var ErrNoEventHub = errors.New("session cache has no event hub")

// WalletHandler receives the wallet after each Set on the cache it subscribed to. A nil wallet
// means the session ended.
type WalletHandler func(ctx context.Context, w *tpwtypes.Wallet)

// SessionCache mirrors the unlocked wallet in the session backend. Several caches may share a
// backend; the last Set wins and the other caches are not told.
type SessionCache struct {
	log       tplog.Logger
	id        string
	backend   tpbkcmm.Backend
	hub       eventhub.EventHub
	marshaler codec.Marshaler

	mtx    sync.RWMutex
	wallet *tpwtypes.Wallet
}

// Load reads the session entry without building a cache. It returns nil when no wallet is
// unlocked.
func Load(ctx context.Context, backend tpbkcmm.Backend) (*tpwtypes.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := backend.Get(sessionWalletKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var w tpwtypes.Wallet
	if err = codec.CreateMarshaler(codec.CodecType_JSON).Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("corrupted session entry: %w", err)
	}
	return &w, nil
}

// NewSessionCache hydrates from the session backend. hub may be nil, in which case Subscribe is
// unavailable.
func NewSessionCache(log tplog.Logger, backend tpbkcmm.Backend, hub eventhub.EventHub) (*SessionCache, error) {
	cLog := tplog.CreateModuleLogger(tplogcmm.InfoLevel, MOD_NAME, log)

	w, err := Load(context.Background(), backend)
	if err != nil {
		cLog.Errorf("Hydrate session cache err: %v", err)
		return nil, err
	}

	return &SessionCache{
		log:       cLog,
		id:        hex.EncodeToString(frand.Bytes(8)),
		backend:   backend,
		hub:       hub,
		marshaler: codec.CreateMarshaler(codec.CodecType_JSON),
		wallet:    w,
	}, nil
}

func (c *SessionCache) Get() *tpwtypes.Wallet {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	return c.wallet.Clone()
}

// Set replaces the session entry; nil removes it.
func (c *SessionCache) Set(ctx context.Context, w *tpwtypes.Wallet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if w == nil {
		if err := c.backend.Delete(sessionWalletKey); err != nil {
			return err
		}
	} else {
		data, err := c.marshaler.Marshal(w)
		if err != nil {
			return err
		}
		if err = c.backend.Set(sessionWalletKey, data); err != nil {
			return err
		}
	}

	c.mtx.Lock()
	c.wallet = w.Clone()
	c.mtx.Unlock()

	if c.hub != nil {
		if err := c.hub.Trig(ctx, eventhub.EventName_WalletChanged, &eventhub.WalletChangedEvent{Source: c.id, Wallet: w.Clone()}); err != nil {
			c.log.Warnf("Publish wallet change err: %v", err)
		}
	}
	return nil
}

func (c *SessionCache) Subscribe(ctx context.Context, handler WalletHandler) (string, error) {
	if c.hub == nil {
		return "", ErrNoEventHub
	}

	return c.hub.Observe(ctx, eventhub.EventName_WalletChanged, func(ctx context.Context, data interface{}) error {
		ev, ok := data.(*eventhub.WalletChangedEvent)
		if !ok {
			return fmt.Errorf("unexpected event data %T", data)
		}
		if ev.Source != c.id {
			return nil
		}
		handler(ctx, ev.Wallet.Clone())
		return nil
	})
}

func (c *SessionCache) Unsubscribe(ctx context.Context, subID string) error {
	if c.hub == nil {
		return ErrNoEventHub
	}
	return c.hub.UnObserve(ctx, subID, eventhub.EventName_WalletChanged)
}
