package publish

import "context"

// EventGraphBuilt is emitted once per built calculation configuration.
const EventGraphBuilt = "graph_built"

// Publisher sends build documents to a listener.
type Publisher interface {
	// Publish emits payload under event. payload must be JSON-encodable.
	Publish(ctx context.Context, event string, payload any) error
	Close() error
}
