package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
	tprltypes "github.com/TopiaNetwork/topia-wallet/relay/types"
	tpbkcmm "github.com/TopiaNetwork/topia-wallet/storage/backend/common"
	"github.com/TopiaNetwork/topia-wallet/wallet/cache"
	"github.com/TopiaNetwork/topia-wallet/wallet/secure_store"
)

const MOD_NAME = "Relay"

var (
	// ErrRelayDeliveryFailure is logged, never returned to the page, when a client request could
	// not reach a surface within the retry budget.
	ErrRelayDeliveryFailure = errors.New("relay delivery failure")

	ErrUnknownRequestType = errors.New("unknown background request type")
	ErrRelayStopped       = errors.New("relay stopped")
)

type Config struct {
	MaxDeliveryAttempts int
	DeliveryDelay       time.Duration
}

// Delivery tracks one client request being pushed to a surface.
type Delivery struct {
	Location string
	done     chan struct{}
	attempts int32
	err      error
}

// Wait blocks until the delivery succeeded, gave up or was cancelled.
func (d *Delivery) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Delivery) Attempts() int {
	return int(atomic.LoadInt32(&d.attempts))
}

// Relay routes background requests between pages, wallet surfaces and the stores. It keeps no
// wallet state: each handler rehydrates from the stores it was given.
type Relay struct {
	log     tplog.Logger
	config  Config
	host    Host
	durable tpbkcmm.Backend
	session tpbkcmm.Backend
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mtx        sync.Mutex
	nextID     uint64
	deliveries map[string]map[uint64]context.CancelFunc // location -> delivery id -> cancel
}

func NewRelay(log tplog.Logger, config Config, host Host, durable tpbkcmm.Backend, session tpbkcmm.Backend, metrics *Metrics) *Relay {
	if config.MaxDeliveryAttempts < 1 {
		config.MaxDeliveryAttempts = 1
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Relay{
		log:        tplog.CreateModuleLogger(tplogcmm.InfoLevel, MOD_NAME, log),
		config:     config,
		host:       host,
		durable:    durable,
		session:    session,
		metrics:    metrics,
		ctx:        ctx,
		cancel:     cancel,
		deliveries: make(map[string]map[uint64]context.CancelFunc),
	}
}

// Handle processes one request. A CLIENT_REQUEST returns the Delivery running in the background;
// the other kinds complete before Handle returns and give a nil Delivery.
func (r *Relay) Handle(ctx context.Context, req *tprltypes.BackgroundRequest) (*Delivery, error) {
	if req == nil {
		return nil, tprltypes.ErrInvalidPayload
	}
	r.metrics.requests.WithLabelValues(string(req.BackgroundRequestType)).Inc()

	switch req.BackgroundRequestType {
	case tprltypes.BackgroundRequestType_BrowserOpenAction:
		return nil, r.handleBrowserOpenAction(ctx, req)
	case tprltypes.BackgroundRequestType_ClientRequest:
		return r.handleClientRequest(ctx, req)
	case tprltypes.BackgroundRequestType_ClientResponse:
		return nil, r.handleClientResponse(ctx, req)
	default:
		r.log.Warnf("Unknown background request type %s from %s", req.BackgroundRequestType, req.Source)
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequestType, req.BackgroundRequestType)
	}
}

// Respond sends a client response back through the relay.
func (r *Relay) Respond(ctx context.Context, resp *tprltypes.ClientResponsePayload) error {
	req, err := tprltypes.NewBackgroundRequest(tprltypes.BackgroundRequestType_ClientResponse, tprltypes.Location_Approval, resp)
	if err != nil {
		return err
	}
	_, err = r.Handle(ctx, req)
	return err
}

func (r *Relay) handleBrowserOpenAction(ctx context.Context, req *tprltypes.BackgroundRequest) error {
	payload, err := req.BrowserOpenAction()
	if err != nil {
		return err
	}
	return r.host.OpenSurface(ctx, payload.Location)
}

// surfaceLocation picks the surface able to serve a client request in the current wallet state.
func (r *Relay) surfaceLocation(ctx context.Context) (string, error) {
	w, err := cache.Load(ctx, r.session)
	if err != nil {
		r.log.Warnf("Session entry unreadable, falling back to login: %v", err)
	}
	if w != nil {
		return tprltypes.Location_Approval, nil
	}

	empty, err := secure_store.IsEmpty(ctx, r.durable)
	if err != nil {
		return "", err
	}
	if empty {
		return tprltypes.Location_Onboarding, nil
	}
	return tprltypes.Location_Login, nil
}

func (r *Relay) handleClientRequest(ctx context.Context, req *tprltypes.BackgroundRequest) (*Delivery, error) {
	payload, err := req.ClientRequest()
	if err != nil {
		return nil, err
	}

	location, err := r.surfaceLocation(ctx)
	if err != nil {
		return nil, err
	}
	if err = r.host.OpenSurface(ctx, location); err != nil {
		r.log.Errorf("Open surface %s err: %v", location, err)
		return nil, err
	}

	r.log.Debugf("Client request %s from %s routed to %s", payload.ClientRequestType, payload.Origin, location)
	return r.startDelivery(location, req)
}

func (r *Relay) startDelivery(location string, req *tprltypes.BackgroundRequest) (*Delivery, error) {
	r.mtx.Lock()
	if r.ctx.Err() != nil {
		r.mtx.Unlock()
		return nil, ErrRelayStopped
	}
	dctx, cancel := context.WithCancel(r.ctx)
	id := r.nextID
	r.nextID++
	if r.deliveries[location] == nil {
		r.deliveries[location] = make(map[uint64]context.CancelFunc)
	}
	r.deliveries[location][id] = cancel
	r.wg.Add(1)
	r.mtx.Unlock()

	d := &Delivery{
		Location: location,
		done:     make(chan struct{}),
	}

	go func() {
		defer r.wg.Done()
		defer r.forget(location, id)
		defer close(d.done)
		defer cancel()

		d.err = r.deliver(dctx, d, req)
	}()

	return d, nil
}

func (r *Relay) forget(location string, id uint64) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	delete(r.deliveries[location], id)
	if len(r.deliveries[location]) == 0 {
		delete(r.deliveries, location)
	}
}

// deliver makes at most MaxDeliveryAttempts sends spaced by DeliveryDelay.
func (r *Relay) deliver(ctx context.Context, d *Delivery, req *tprltypes.BackgroundRequest) error {
	op := func() error {
		atomic.AddInt32(&d.attempts, 1)
		r.metrics.deliveryAttempts.Inc()
		return r.host.SendToSurface(ctx, d.Location, req)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.config.DeliveryDelay), uint64(r.config.MaxDeliveryAttempts-1)),
		ctx,
	)

	err := backoff.Retry(op, policy)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		r.metrics.deliveryCancelled.Inc()
		r.log.Infof("Delivery to %s cancelled after %d attempts", d.Location, d.Attempts())
		return ctx.Err()
	default:
		r.metrics.deliveryFailures.Inc()
		err = fmt.Errorf("%w: %d attempts to %s: %v", ErrRelayDeliveryFailure, d.Attempts(), d.Location, err)
		r.log.Errorf("%v", err)
		return err
	}
}

func (r *Relay) handleClientResponse(ctx context.Context, req *tprltypes.BackgroundRequest) error {
	if _, err := req.ClientResponse(); err != nil {
		return err
	}

	tabID, ok, err := r.host.ActiveTab(ctx)
	if err != nil {
		return err
	}
	if !ok {
		r.metrics.responsesDropped.Inc()
		r.log.Debug("No active tab, client response dropped")
		return nil
	}
	return r.host.SendToTab(ctx, tabID, req)
}

// SurfaceClosed cancels the deliveries still aimed at location.
func (r *Relay) SurfaceClosed(location string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, cancel := range r.deliveries[location] {
		cancel()
	}
}

// Stop cancels every delivery in flight and waits for them to end.
func (r *Relay) Stop() {
	r.mtx.Lock()
	r.cancel()
	r.mtx.Unlock()

	r.wg.Wait()
}
