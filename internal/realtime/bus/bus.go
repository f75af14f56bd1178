package bus

import (
	"context"

	"github.com/nlp-tlp/quickgraph-sub000/internal/realtime"
)

// Bus links multiple server instances: messages published on one reach the
// SSE hubs of all.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
