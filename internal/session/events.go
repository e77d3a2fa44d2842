package session

// EventKind identifies what happened to the current questline.
type EventKind string

const (
	// EventMutated follows any change made through a mutation method.
	EventMutated EventKind = "mutated"
	// EventLoaded follows replacing the current questline.
	EventLoaded EventKind = "loaded"
	// EventSaved follows a successful save.
	EventSaved EventKind = "saved"
	// EventDeleted follows deleting the current questline from the backend.
	EventDeleted EventKind = "deleted"
)

// LoadSource says where a loaded questline came from.
type LoadSource string

const (
	SourceSaved    LoadSource = "saved"
	SourceBlank    LoadSource = "blank"
	SourceImported LoadSource = "imported"
)

// Event is delivered to observers after the session lock is released.
type Event struct {
	Kind        EventKind
	QuestlineID string
	// Source is set for EventLoaded.
	Source LoadSource
	// Cascaded lists quests the completion engine forced incomplete.
	Cascaded []string
	// Pending is set on EventSaved when the graph changed while the save
	// was in flight, so it still differs from what was stored.
	Pending bool
}

// Observer receives session events in order. Delivery is serialized and
// observers must not call back into the session.
type Observer func(Event)
