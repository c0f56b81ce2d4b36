package documents

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound is the sentinel wrapped by NotFoundError.
	ErrDocumentNotFound = errors.New("documents: document not found")

	// ErrDocumentExists signals a documentId+locale+status collision on create.
	ErrDocumentExists = errors.New("documents: document already exists")

	// ErrNotContentType rejects lifecycle operations addressed at a component
	// schema. Component instances are only reachable through their owner.
	ErrNotContentType = errors.New("documents: uid is not a content type")

	// ErrDraftPublishDisabled rejects publish/unpublish/discard on schemas
	// without draft and publish.
	ErrDraftPublishDisabled = errors.New("documents: schema has draft and publish disabled")
)

// NotFoundError reports which document a lifecycle operation failed to find.
type NotFoundError struct {
	UID        string
	DocumentID string
	Locale     string
}

func (e *NotFoundError) Error() string {
	if e.Locale != "" {
		return fmt.Sprintf("documents: document %q (%s, locale %s) not found", e.DocumentID, e.UID, e.Locale)
	}
	return fmt.Sprintf("documents: document %q (%s) not found", e.DocumentID, e.UID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrDocumentNotFound
}

// ExistsError reports a create colliding with a stored row.
type ExistsError struct {
	UID        string
	DocumentID string
	Locale     string
	Status     string
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("documents: document %q (%s, locale %s, status %s) already exists", e.DocumentID, e.UID, e.Locale, e.Status)
}

func (e *ExistsError) Unwrap() error {
	return ErrDocumentExists
}
