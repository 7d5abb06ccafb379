package relay

import (
	"context"
	"time"

	"github.com/AsynkronIT/protoactor-go/actor"

	tprltypes "github.com/TopiaNetwork/topia-wallet/relay/types"
)

// ActorRouter feeds requests coming from the websocket host into the relay actor.
type ActorRouter struct {
	sysActor *actor.ActorSystem
	pid      *actor.PID
	relay    *Relay
	timeout  time.Duration
}

func NewActorRouter(sysActor *actor.ActorSystem, pid *actor.PID, relay *Relay, timeout time.Duration) *ActorRouter {
	return &ActorRouter{
		sysActor: sysActor,
		pid:      pid,
		relay:    relay,
		timeout:  timeout,
	}
}

// Route does not wait for a client request to reach its surface; delivery keeps running in the relay.
func (ar *ActorRouter) Route(ctx context.Context, req *tprltypes.BackgroundRequest) error {
	_, err := Dispatch(ar.sysActor, ar.pid, req, ar.timeout)
	return err
}

func (ar *ActorRouter) SurfaceClosed(location string) {
	ar.relay.SurfaceClosed(location)
}
