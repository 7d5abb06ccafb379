package eventhub

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/AsynkronIT/protoactor-go/actor"
	"lukechampine.com/frand"

	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tplogcmm "github.com/TopiaNetwork/topia-wallet/log/common"
)

var (
	ErrHubNotStarted     = errors.New("event hub not started")
	ErrHubAlreadyStarted = errors.New("event hub already started")
)

type EventHub interface {
	EventTrigger

	EventObserver

	Start(sysActor *actor.ActorSystem) error

	Stop()
}

type eventHub struct {
	log      tplog.Logger
	registry *registry

	mtx      sync.RWMutex
	sysActor *actor.ActorSystem
	evPID    *actor.PID
}

// NewEventHub creates a hub owned by the caller. Observers may register at once; triggering needs
// Start.
func NewEventHub(level tplogcmm.LogLevel, log tplog.Logger) EventHub {
	return &eventHub{
		log: tplog.CreateModuleLogger(level, "EventHub", log),
		registry: newRegistry(map[string]interface{}{
			EventName_WalletChanged:         &WalletChangedEvent{},
			EventName_ClientRequestReceived: &ClientRequestEvent{},
			EventName_ClientRequestResolved: &ClientRequestEvent{},
		}),
	}
}

func (hub *eventHub) Start(sysActor *actor.ActorSystem) error {
	hub.mtx.Lock()
	defer hub.mtx.Unlock()

	if hub.evPID != nil {
		return ErrHubAlreadyStarted
	}

	evPID, err := spawnEventActor(hub.log, sysActor, hub.registry)
	if err != nil {
		hub.log.Errorf("Spawn event actor err: %v", err)
		return err
	}

	hub.sysActor = sysActor
	hub.evPID = evPID
	return nil
}

// Trig checks name and data type before handing the event to the actor.
func (hub *eventHub) Trig(ctx context.Context, name string, data interface{}) error {
	t, err := hub.registry.topic(name)
	if err != nil {
		return err
	}
	if data == nil || reflect.TypeOf(data) != t.dataType {
		return fmt.Errorf("%w: %s expects %s, got %T", ErrEventDataMismatch, name, t.dataType, data)
	}

	hub.mtx.RLock()
	defer hub.mtx.RUnlock()

	if hub.evPID == nil {
		return ErrHubNotStarted
	}
	hub.sysActor.Root.Send(hub.evPID, &EventMsg{Name: name, Data: data})
	return nil
}

func (hub *eventHub) Observe(ctx context.Context, evName string, evHandler EventHandler) (string, error) {
	obsID := hex.EncodeToString(frand.Bytes(10))
	if err := hub.registry.observe(obsID, evName, evHandler); err != nil {
		return "", err
	}
	return obsID, nil
}

func (hub *eventHub) UnObserve(ctx context.Context, obsID string, evName string) error {
	return hub.registry.unobserve(obsID, evName)
}

func (hub *eventHub) Stop() {
	hub.mtx.Lock()
	defer hub.mtx.Unlock()

	if hub.evPID != nil {
		hub.sysActor.Root.Poison(hub.evPID)
		hub.evPID = nil
	}
}
