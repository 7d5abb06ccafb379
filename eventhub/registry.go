package eventhub

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	tplog "github.com/TopiaNetwork/topia-wallet/log"
)

// topic is one event name bound to the only data type it carries.
type topic struct {
	name      string
	dataType  reflect.Type
	mtx       sync.RWMutex
	observers map[string]EventHandler // observation id -> handler
}

// notify runs every observer on its own goroutine. Observer errors are logged only.
func (t *topic) notify(ctx context.Context, log tplog.Logger, data interface{}) error {
	if data == nil || reflect.TypeOf(data) != t.dataType {
		return fmt.Errorf("%w: %s expects %s, got %T", ErrEventDataMismatch, t.name, t.dataType, data)
	}

	t.mtx.RLock()
	defer t.mtx.RUnlock()

	for obsID, handler := range t.observers {
		go func(obsID string, handler EventHandler) {
			if err := handler(ctx, data); err != nil {
				log.Warnf("Observer %s of %s err: %v", obsID, t.name, err)
			}
		}(obsID, handler)
	}
	return nil
}

type registry struct {
	topics map[string]*topic
}

// newRegistry fixes the set of topics up front; observers come and go afterwards.
func newRegistry(samples map[string]interface{}) *registry {
	r := &registry{topics: make(map[string]*topic, len(samples))}
	for name, sample := range samples {
		r.topics[name] = &topic{
			name:      name,
			dataType:  reflect.TypeOf(sample),
			observers: make(map[string]EventHandler),
		}
	}
	return r
}

func (r *registry) topic(name string) (*topic, error) {
	t, ok := r.topics[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	return t, nil
}

func (r *registry) observe(obsID string, name string, handler EventHandler) error {
	t, err := r.topic(name)
	if err != nil {
		return err
	}

	t.mtx.Lock()
	defer t.mtx.Unlock()

	if _, ok := t.observers[obsID]; ok {
		return fmt.Errorf("duplicated observation id %s on %s", obsID, name)
	}
	t.observers[obsID] = handler
	return nil
}

func (r *registry) unobserve(obsID string, name string) error {
	t, err := r.topic(name)
	if err != nil {
		return err
	}

	t.mtx.Lock()
	defer t.mtx.Unlock()

	delete(t.observers, obsID)
	return nil
}

func (r *registry) dispatch(ctx context.Context, log tplog.Logger, msg *EventMsg) error {
	t, err := r.topic(msg.Name)
	if err != nil {
		return err
	}
	return t.notify(ctx, log, msg.Data)
}
