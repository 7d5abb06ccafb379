package eventhub

import (
	"context"

	"github.com/AsynkronIT/protoactor-go/actor"

	tplog "github.com/TopiaNetwork/topia-wallet/log"
)

// EventActor serializes dispatch so observers see events in trigger order.
type EventActor struct {
	log      tplog.Logger
	registry *registry
}

func spawnEventActor(log tplog.Logger, sysActor *actor.ActorSystem, registry *registry) (*actor.PID, error) {
	props := actor.PropsFromProducer(func() actor.Actor {
		return &EventActor{
			log:      log,
			registry: registry,
		}
	})
	return sysActor.Root.SpawnNamed(props, "event-actor")
}

func (ea *EventActor) Receive(actorCtx actor.Context) {
	switch msg := actorCtx.Message().(type) {
	case *actor.Started:
		ea.log.Debug("Event actor started")
	case *actor.Stopped:
		ea.log.Debug("Event actor stopped")
	case *actor.Restarting:
		ea.log.Info("Event actor restarting")
	case *EventMsg:
		if err := ea.registry.dispatch(context.Background(), ea.log, msg); err != nil {
			ea.log.Errorf("Dispatch event %s err: %v", msg.Name, err)
		}
	}
}
