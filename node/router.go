package node

import (
	"context"

	clientrequest "github.com/TopiaNetwork/topia-wallet/client_request"
	tplog "github.com/TopiaNetwork/topia-wallet/log"
	tprltypes "github.com/TopiaNetwork/topia-wallet/relay/types"
	"github.com/TopiaNetwork/topia-wallet/relay/wshost"
)

// slotRouter parks every incoming client request in the slot before the relay delivers it.
type slotRouter struct {
	log  tplog.Logger
	next wshost.Router
	slot *clientrequest.Slot
}

func newSlotRouter(log tplog.Logger, next wshost.Router, slot *clientrequest.Slot) *slotRouter {
	return &slotRouter{
		log:  log,
		next: next,
		slot: slot,
	}
}

func (sr *slotRouter) Route(ctx context.Context, req *tprltypes.BackgroundRequest) error {
	if req.BackgroundRequestType == tprltypes.BackgroundRequestType_ClientRequest {
		payload, err := req.ClientRequest()
		if err != nil {
			return err
		}
		session := sr.slot.Receive(ctx, payload)
		sr.log.Debugf("Client request %s from %s parked as %s", payload.ClientRequestType, payload.Origin, session.ID)
	}
	return sr.next.Route(ctx, req)
}

func (sr *slotRouter) SurfaceClosed(location string) {
	sr.next.SurfaceClosed(location)
}
