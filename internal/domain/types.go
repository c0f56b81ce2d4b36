package domain

// Status represents the publication state of one physical entry.
type Status string

const (
	// StatusDraft marks a row whose published_at is null.
	StatusDraft Status = "draft"
	// StatusPublished marks a row carrying a published_at timestamp. Models
	// without draft-and-publish collapse every entry into this state.
	StatusPublished Status = "published"
)

// Valid reports whether s is one of the persisted statuses.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// ParseStatus maps user input to a status, defaulting unrecognized values to
// draft.
func ParseStatus(raw string) Status {
	if Status(raw) == StatusPublished {
		return StatusPublished
	}
	return StatusDraft
}

// Reserved entry fields maintained by the engine itself. Schema attributes
// never shadow these.
const (
	FieldID          = "id"
	FieldDocumentID  = "document_id"
	FieldLocale      = "locale"
	FieldPublishedAt = "published_at"
	FieldCreatedAt   = "created_at"
	FieldUpdatedAt   = "updated_at"
	FieldCreatedBy   = "created_by"
	FieldUpdatedBy   = "updated_by"
)

// IsReservedField reports whether name is engine-maintained.
func IsReservedField(name string) bool {
	switch name {
	case FieldID, FieldDocumentID, FieldLocale, FieldPublishedAt,
		FieldCreatedAt, FieldUpdatedAt, FieldCreatedBy, FieldUpdatedBy:
		return true
	}
	return false
}
