package events

// EventRouter is the publishing facade handed to the protocol components.
// A nil router silently drops events, which keeps pure-library callers and
// tests free of wiring.
type EventRouter struct {
	eventBus *EventBus
}

// NewEventRouter creates a new EventRouter instance
func NewEventRouter(eventBus *EventBus) *EventRouter {
	return &EventRouter{eventBus: eventBus}
}

// Publish publishes a protocol event to every subscriber
func (er *EventRouter) Publish(event ProtocolEvent) {
	if er == nil || er.eventBus == nil {
		return
	}
	er.eventBus.Publish(event)
}

// Subscribe subscribes to all protocol events
func (er *EventRouter) Subscribe() (SubscriberID, chan ProtocolEvent) {
	return er.eventBus.Subscribe()
}

// Unsubscribe removes a subscription
func (er *EventRouter) Unsubscribe(id SubscriberID) bool {
	return er.eventBus.Unsubscribe(id)
}
