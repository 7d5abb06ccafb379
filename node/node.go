package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"

	clientrequest "github.com/TopiaNetwork/topia-wallet/client_request"
	"github.com/TopiaNetwork/topia-wallet/configuration"
	"github.com/TopiaNetwork/topia-wallet/crypt"
	tpcrtypes "github.com/TopiaNetwork/topia-wallet/crypt/types"
	"github.com/TopiaNetwork/topia-wallet/eventhub"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
	"github.com/TopiaNetwork/topia-wallet/relay"
	tprltypes "github.com/TopiaNetwork/topia-wallet/relay/types"
	"github.com/TopiaNetwork/topia-wallet/relay/wshost"
	"github.com/TopiaNetwork/topia-wallet/storage/backend"
	tpbkcmm "github.com/TopiaNetwork/topia-wallet/storage/backend/common"
	"github.com/TopiaNetwork/topia-wallet/wallet"
	"github.com/TopiaNetwork/topia-wallet/wallet/cache"
	tpwtypes "github.com/TopiaNetwork/topia-wallet/wallet/types"
)

const MOD_NAME = "Node"

// Node owns every wallet component of one process. NewNode opens the stores; Start brings up the
// relay and the websocket host.
type Node struct {
	log      tplog.Logger
	level    tplogcmm.LogLevel
	config   *configuration.Configuration
	sysActor *actor.ActorSystem
	hub      eventhub.EventHub
	durable  tpbkcmm.Backend
	session  tpbkcmm.Backend
	cache    *cache.SessionCache
	provider crypt.Provider
	manager  *wallet.Manager
	registry *prometheus.Registry
	relay    *relay.Relay
	relayPID *actor.PID
	host     *wshost.WSHost
	slot     *clientrequest.Slot
	subID    string
}

func CreateLogger(config *configuration.LogConfiguration) (tplog.Logger, tplogcmm.LogLevel, error) {
	level, err := tplogcmm.ParseLogLevel(config.Level)
	if err != nil {
		return nil, level, err
	}
	format, err := tplog.ParseLogFormat(config.Format)
	if err != nil {
		return nil, level, err
	}
	output, err := tplog.ParseLogOutput(config.Output)
	if err != nil {
		return nil, level, err
	}

	mainLog, err := tplog.CreateMainLogger(level, format, output, config.Param)
	return mainLog, level, err
}

func NewNode(config *configuration.Configuration) (*Node, error) {
	mainLog, level, err := CreateLogger(config.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return newNode(mainLog, level, config)
}

func newNode(mainLog tplog.Logger, level tplogcmm.LogLevel, config *configuration.Configuration) (n *Node, err error) {
	n = &Node{
		log:      tplog.CreateModuleLogger(level, MOD_NAME, mainLog),
		level:    level,
		config:   config,
		sysActor: actor.NewActorSystem(),
		registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			n.Close()
		}
	}()

	durableType, _ := backend.ParseBackendType(config.Storage.DurableBackend)
	sessionType, _ := backend.ParseBackendType(config.Storage.SessionBackend)
	n.durable, err = backend.NewBackend(durableType, mainLog, config.Storage.RootPath, "durable")
	if err != nil {
		return n, fmt.Errorf("open durable store: %w", err)
	}
	n.session, err = backend.NewBackend(sessionType, mainLog, config.Storage.RootPath, "session")
	if err != nil {
		return n, fmt.Errorf("open session store: %w", err)
	}

	n.hub = eventhub.NewEventHub(level, mainLog)
	if err = n.hub.Start(n.sysActor); err != nil {
		return n, err
	}

	n.cache, err = cache.NewSessionCache(mainLog, n.session, n.hub)
	if err != nil {
		return n, err
	}

	cryptType, _ := tpcrtypes.ParseCryptType(config.Crypt.CryptType)
	n.provider, err = crypt.NewProvider(mainLog, cryptType, config.Crypt.ScryptParams())
	if err != nil {
		return n, err
	}

	n.manager = wallet.NewManager(mainLog, n.durable, n.provider, n.cache)

	n.host = wshost.NewWSHost(mainLog, wshost.Config{
		Addr:         config.Host.Addr,
		SurfaceURL:   config.Host.SurfaceURL,
		OpenCommand:  config.Host.OpenCommand,
		WriteTimeout: config.Host.WriteTimeout,
	}, n.registry)

	n.relay = relay.NewRelay(mainLog, relay.Config{
		MaxDeliveryAttempts: config.Relay.MaxDeliveryAttempts,
		DeliveryDelay:       config.Relay.DeliveryDelay,
	}, n.host, n.durable, n.session, relay.NewMetrics(n.registry))

	n.slot = clientrequest.NewSlot(mainLog, n.hub, n.manager, n.provider, n.relay)

	return n, nil
}

func (n *Node) Manager() *wallet.Manager {
	return n.manager
}

func (n *Node) Slot() *clientrequest.Slot {
	return n.slot
}

func (n *Node) Endpoints() wallet.Endpoints {
	return wallet.Endpoints{
		Node:     n.config.Wallet.NodeEndpoint,
		Explorer: n.config.Wallet.ExplorerEndpoint,
	}
}

// Start spawns the relay actor and serves surfaces, pages and the approval API.
func (n *Node) Start(ctx context.Context) error {
	if err := n.wire(ctx); err != nil {
		return err
	}
	return n.host.Start()
}

// wire binds the relay actor, the session subscription and the host routes.
func (n *Node) wire(ctx context.Context) error {
	pid, err := relay.SpawnRelayActor(n.log, n.sysActor, n.relay)
	if err != nil {
		n.log.Errorf("SpawnRelayActor error: %v", err)
		return err
	}
	n.relayPID = pid

	n.subID, err = n.cache.Subscribe(ctx, n.onWalletChanged)
	if err != nil {
		return err
	}

	router := relay.NewActorRouter(n.sysActor, pid, n.relay, n.config.Relay.DispatchTimeout)
	n.host.SetRouter(newSlotRouter(n.log, router, n.slot))
	n.host.Mount("/api", newAPI(n.log, n.slot))
	return nil
}

// onWalletChanged drops the pending client request once the session ends.
func (n *Node) onWalletChanged(ctx context.Context, w *tpwtypes.Wallet) {
	if w != nil {
		n.log.Debugf("Session wallet updated, %d accounts", len(w.Accounts))
		return
	}
	if _, state := n.slot.Current(); state != clientrequest.State_Empty {
		n.log.Info("Session ended, pending client request dropped")
	}
	n.slot.Reset()
}

// Run starts the node and blocks until SIGINT or SIGTERM.
func (n *Node) Run() error {
	var gracefulStop = make(chan os.Signal, 1)
	signal.Notify(gracefulStop, syscall.SIGTERM)
	signal.Notify(gracefulStop, syscall.SIGINT)
	defer signal.Stop(gracefulStop)

	if err := n.Start(context.Background()); err != nil {
		return multierror.Append(err, n.Stop())
	}
	n.log.Info("All services were started")
	n.log.Infof("Approval surface at %s", n.host.SurfaceLink(tprltypes.Location_Approval))

	sig := <-gracefulStop
	n.log.Warnf("Caught signal %v, graceful stop", sig)
	return n.Stop()
}

// Stop halts the host and the relay, then closes the stores.
func (n *Node) Stop() error {
	var result *multierror.Error

	if n.host != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := n.host.Stop(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			result = multierror.Append(result, err)
		}
		cancel()
	}
	if n.relay != nil {
		n.relay.Stop()
	}
	if n.relayPID != nil {
		n.sysActor.Root.Poison(n.relayPID)
		n.relayPID = nil
	}
	if n.subID != "" {
		if err := n.cache.Unsubscribe(context.Background(), n.subID); err != nil {
			result = multierror.Append(result, err)
		}
		n.subID = ""
	}

	if err := n.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Close releases the stores and the event hub without touching the network side.
func (n *Node) Close() error {
	var result *multierror.Error

	if n.hub != nil {
		n.hub.Stop()
		n.hub = nil
	}
	if n.session != nil {
		if err := n.session.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		n.session = nil
	}
	if n.durable != nil {
		if err := n.durable.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		n.durable = nil
	}
	return result.ErrorOrNil()
}
