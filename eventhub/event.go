package eventhub

import (
	"context"
	"errors"
)

const (
	EventName_WalletChanged         = "WalletChanged"
	EventName_ClientRequestReceived = "ClientRequestReceived"
	EventName_ClientRequestResolved = "ClientRequestResolved"
)

var (
	ErrUnknownEvent      = errors.New("unknown event")
	ErrEventDataMismatch = errors.New("event data type mismatch")
)

type EventTrigger interface {
	Trig(ctx context.Context, name string, data interface{}) error
}

type EventHandler func(ctx context.Context, data interface{}) error

type EventObserver interface {
	Observe(ctx context.Context, evName string, evHandler EventHandler) (string, error) //return observation id
	UnObserve(ctx context.Context, obsID string, evName string) error
}

type EventMsg struct {
	Name string
	Data interface{}
}
