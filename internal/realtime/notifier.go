package realtime

import (
	"context"

	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

// Publisher is the bus side of the notifier; satisfied by bus.Bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Notifier bridges the service layer to the hub. With a bus attached, every
// message goes through it and comes back via the forwarder, so all instances
// (this one included) deliver exactly once; without a bus the hub is fed
// directly.
type Notifier struct {
	log *logger.Logger
	hub *Hub
	bus Publisher
}

func NewNotifier(log *logger.Logger, hub *Hub, bus Publisher) *Notifier {
	return &Notifier{
		log: log.With("component", "RealtimeNotifier"),
		hub: hub,
		bus: bus,
	}
}

func (n *Notifier) Publish(ctx context.Context, channel, event string, data any) {
	msg := Message{Channel: channel, Event: event, Data: data}
	if n.bus != nil {
		if err := n.bus.Publish(ctx, msg); err == nil {
			return
		} else {
			n.log.Warn("bus publish failed; delivering locally", "channel", channel, "event", event, "error", err)
		}
	}
	if n.hub != nil {
		n.hub.Broadcast(msg)
	}
}
