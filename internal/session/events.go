package session

// Event represents a session lifecycle event.
type Event struct {
	Name    string
	AssetID string
	Token   uint64
	Fields  map[string]any
}

// EventPublisher receives events from the session. Implementations should be
// lightweight and non-blocking; Publish is called with the session lock held.
type EventPublisher interface {
	Publish(Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// Event names.
const (
	EventSegmentStart     = "segment_start"
	EventSegmentReady     = "segment_ready"
	EventSegmentFailed    = "segment_failed"
	EventSegmentStale     = "segment_stale"
	EventGenerateStart    = "generate_start"
	EventGenerateDone     = "generate_done"
	EventGenerateFailed   = "generate_failed"
	EventGenerateStale    = "generate_stale"
	EventGenerateRejected = "generate_rejected"
	EventReset            = "reset"
)
