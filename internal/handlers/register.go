package handlers

import "github.com/hoangvu1420/YummyZoom-sub001/pkg/outbox"

// Subscriber is an outbox handler that knows which event types it wants.
type Subscriber interface {
	outbox.Handler
	EventTypes() []string
}

func Register(d *outbox.Dispatcher, subs ...Subscriber) {
	for _, s := range subs {
		d.Register(s, s.EventTypes()...)
	}
}
