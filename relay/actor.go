package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"

	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tprltypes "github.com/TopiaNetwork/topia-wallet/relay/types"
)

type RelayMsg struct {
	Request *tprltypes.BackgroundRequest
}

type RelayResult struct {
	Delivery *Delivery
	Err      error
}

// RelayActor carries no state of its own; a restarted instance picks up where the last one left
// off because every request rehydrates from the stores.
type RelayActor struct {
	log   tplog.Logger
	relay *Relay
}

func SpawnRelayActor(log tplog.Logger, sysActor *actor.ActorSystem, relay *Relay) (*actor.PID, error) {
	props := actor.PropsFromProducer(func() actor.Actor {
		return &RelayActor{
			log:   log,
			relay: relay,
		}
	})
	return sysActor.Root.SpawnNamed(props, "relay-actor")
}

func (ra *RelayActor) Receive(actorCtx actor.Context) {
	switch msg := actorCtx.Message().(type) {
	case *actor.Started:
		ra.log.Debug("Relay actor started")
	case *actor.Restarting:
		ra.log.Warn("Relay actor restarting")
	case *actor.Stopped:
		ra.log.Debug("Relay actor stopped")
	case *RelayMsg:
		delivery, err := ra.relay.Handle(context.Background(), msg.Request)
		if actorCtx.Sender() != nil {
			actorCtx.Respond(&RelayResult{Delivery: delivery, Err: err})
		}
	}
}

// Dispatch hands req to the relay actor and waits for the handler to return.
func Dispatch(sysActor *actor.ActorSystem, pid *actor.PID, req *tprltypes.BackgroundRequest, timeout time.Duration) (*Delivery, error) {
	res, err := sysActor.Root.RequestFuture(pid, &RelayMsg{Request: req}, timeout).Result()
	if err != nil {
		return nil, err
	}

	result, ok := res.(*RelayResult)
	if !ok {
		return nil, fmt.Errorf("unexpected relay actor response %T", res)
	}
	return result.Delivery, result.Err
}
