package interfaces

import "context"

// Lifecycle event names emitted by the document service. Listeners receive
// the fully populated entry except for delete and unpublish events, which
// carry the pre-deletion shape.
const (
	EventEntryCreate       = "entry.create"
	EventEntryUpdate       = "entry.update"
	EventEntryDelete       = "entry.delete"
	EventEntryPublish      = "entry.publish"
	EventEntryUnpublish    = "entry.unpublish"
	EventEntryDraftDiscard = "entry.draft-discard"
	EventEntryClone        = "entry.clone"
)

// Event is one lifecycle notification for a single entry.
type Event struct {
	Name  string         `json:"name"`
	UID   string         `json:"uid"`
	Entry map[string]any `json:"entry"`
}

// EventEmitter consumes lifecycle events after the owning transaction has
// committed. Emission failures are the emitter's concern; the engine never
// rolls back a committed change because a listener failed.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}
