package documents

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/storage"
)

// CreateParams captures a create request for one document entry.
type CreateParams struct {
	UID    string
	Data   map[string]any
	Locale string
	// Status requests the initial publication state. Published chains an
	// internal publish after the draft is created.
	Status domain.Status
	// DocumentID pins the logical identifier; a fresh one is minted when empty.
	DocumentID string
	CreatedBy  any
	UpdatedBy  any
	Fields     []string
	Populate   storage.Populate
	// Strict turns unresolvable connect references into errors.
	Strict bool
}

// Validate ensures the request carries the required fields.
func (p CreateParams) Validate() error {
	errs := validation.Errors{}
	if p.UID == "" {
		errs["uid"] = validation.NewError("documents.create.uid_required", "uid is required")
	}
	if p.Data == nil {
		errs["data"] = validation.NewError("documents.create.data_required", "data is required")
	}
	if p.Status != "" && !p.Status.Valid() {
		errs["status"] = validation.NewError("documents.create.status_invalid", "status must be draft or published")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// UpdateParams captures an update of a document's draft in one locale.
type UpdateParams struct {
	UID        string
	DocumentID string
	Data       map[string]any
	Locale     string
	// Status set to published chains an internal publish after the update.
	Status    domain.Status
	UpdatedBy any
	Fields    []string
	Populate  storage.Populate
	Strict    bool
}

func (p UpdateParams) Validate() error {
	errs := validation.Errors{}
	if p.UID == "" {
		errs["uid"] = validation.NewError("documents.update.uid_required", "uid is required")
	}
	if p.DocumentID == "" {
		errs["document_id"] = validation.NewError("documents.update.document_id_required", "documentId is required")
	}
	if p.Data == nil {
		errs["data"] = validation.NewError("documents.update.data_required", "data is required")
	}
	if p.Status != "" && !p.Status.Valid() {
		errs["status"] = validation.NewError("documents.update.status_invalid", "status must be draft or published")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DeleteParams captures a document delete. An empty locale removes every
// locale; an explicit status restricts deletion to rows in that state.
type DeleteParams struct {
	UID        string
	DocumentID string
	Locale     string
	Status     domain.Status
}

func (p DeleteParams) Validate() error {
	errs := validation.Errors{}
	if p.UID == "" {
		errs["uid"] = validation.NewError("documents.delete.uid_required", "uid is required")
	}
	if p.DocumentID == "" {
		errs["document_id"] = validation.NewError("documents.delete.document_id_required", "documentId is required")
	}
	if p.Status != "" && !p.Status.Valid() {
		errs["status"] = validation.NewError("documents.delete.status_invalid", "status must be draft or published")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// FindOneParams addresses a single document version.
type FindOneParams struct {
	UID        string
	DocumentID string
	Locale     string
	Status     domain.Status
	Fields     []string
	Populate   storage.Populate
}

func (p FindOneParams) Validate() error {
	errs := validation.Errors{}
	if p.UID == "" {
		errs["uid"] = validation.NewError("documents.find_one.uid_required", "uid is required")
	}
	if p.DocumentID == "" {
		errs["document_id"] = validation.NewError("documents.find_one.document_id_required", "documentId is required")
	}
	if p.Status != "" && !p.Status.Valid() {
		errs["status"] = validation.NewError("documents.find_one.status_invalid", "status must be draft or published")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// FindManyParams shapes list queries. Filters hold attribute predicates
// merged with the locale/status scoping the service adds.
type FindManyParams struct {
	UID      string
	Locale   string
	Status   domain.Status
	Filters  map[string]any
	Fields   []string
	Populate storage.Populate
	Sort     []string
	Limit    int
	Offset   int
}

func (p FindManyParams) Validate() error {
	errs := validation.Errors{}
	if p.UID == "" {
		errs["uid"] = validation.NewError("documents.find_many.uid_required", "uid is required")
	}
	if p.Status != "" && !p.Status.Valid() {
		errs["status"] = validation.NewError("documents.find_many.status_invalid", "status must be draft or published")
	}
	if p.Limit < 0 {
		errs["limit"] = validation.NewError("documents.find_many.limit_invalid", "limit must not be negative")
	}
	if p.Offset < 0 {
		errs["offset"] = validation.NewError("documents.find_many.offset_invalid", "offset must not be negative")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// PublishParams addresses publish, unpublish, and discard operations. An
// empty locale targets every locale of the document.
type PublishParams struct {
	UID        string
	DocumentID string
	Locale     string
}

func (p PublishParams) Validate() error {
	errs := validation.Errors{}
	if p.UID == "" {
		errs["uid"] = validation.NewError("documents.publish.uid_required", "uid is required")
	}
	if p.DocumentID == "" {
		errs["document_id"] = validation.NewError("documents.publish.document_id_required", "documentId is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CloneParams duplicates a document's drafts under a fresh documentId. Data
// overrides are merged over every cloned locale entry.
type CloneParams struct {
	UID        string
	DocumentID string
	Locale     string
	Data       map[string]any
}

func (p CloneParams) Validate() error {
	errs := validation.Errors{}
	if p.UID == "" {
		errs["uid"] = validation.NewError("documents.clone.uid_required", "uid is required")
	}
	if p.DocumentID == "" {
		errs["document_id"] = validation.NewError("documents.clone.document_id_required", "documentId is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
