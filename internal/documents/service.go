package documents

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-documents/internal/components"
	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/internal/identity"
	"github.com/goliatone/go-documents/internal/logging"
	"github.com/goliatone/go-documents/internal/populate"
	"github.com/goliatone/go-documents/internal/relations"
	"github.com/goliatone/go-documents/pkg/interfaces"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// Service exposes the document lifecycle. One logical document spans physical
// rows per locale and publication status; every mutating operation runs
// inside a single storage transaction so relation transforms, component
// cascades, and version swaps commit or roll back together.
type Service interface {
	Create(ctx context.Context, p CreateParams) (*Result, error)
	Update(ctx context.Context, p UpdateParams) (*Result, error)
	Delete(ctx context.Context, p DeleteParams) (*Result, error)
	FindOne(ctx context.Context, p FindOneParams) (storage.Entry, error)
	FindFirst(ctx context.Context, p FindManyParams) (storage.Entry, error)
	FindMany(ctx context.Context, p FindManyParams) ([]storage.Entry, error)
	Count(ctx context.Context, p FindManyParams) (int64, error)
	Clone(ctx context.Context, p CloneParams) (*Result, error)
	Publish(ctx context.Context, p PublishParams) (*Result, error)
	Unpublish(ctx context.Context, p PublishParams) (*Result, error)
	DiscardDraft(ctx context.Context, p PublishParams) (*Result, error)
}

// Result summarizes the rows a lifecycle operation produced or removed.
type Result struct {
	DocumentID string
	Entries    []storage.Entry
}

// ServiceOption configures the service at construction time.
type ServiceOption func(*service)

// WithClock overrides the clock used to stamp publication times.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// DocumentIDGenerator mints logical document identifiers.
type DocumentIDGenerator func() string

// WithDocumentIDGenerator overrides how fresh documentIds are minted.
func WithDocumentIDGenerator(generator DocumentIDGenerator) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.newDocumentID = generator
		}
	}
}

// WithEventEmitter wires the post-commit lifecycle event consumer.
func WithEventEmitter(emitter interfaces.EventEmitter) ServiceOption {
	return func(s *service) {
		s.emitter = emitter
	}
}

// WithLogger attaches a logger provider to the service.
func WithLogger(provider interfaces.LoggerProvider) ServiceOption {
	return func(s *service) {
		s.logger = logging.LifecycleLogger(provider)
	}
}

type service struct {
	store         storage.Store
	registry      *schema.Registry
	locales       relations.LocaleService
	pipeline      *relations.Pipeline
	cascade       *components.Manager
	planner       *populate.Planner
	syncer        *relations.Syncer
	emitter       interfaces.EventEmitter
	logger        interfaces.Logger
	now           func() time.Time
	newDocumentID DocumentIDGenerator
}

// NewService constructs the lifecycle service over a schema-aware store.
func NewService(store storage.Store, registry *schema.Registry, locales relations.LocaleService, opts ...ServiceOption) Service {
	s := &service{
		store:         store,
		registry:      registry,
		locales:       locales,
		pipeline:      relations.NewPipeline(registry, locales),
		cascade:       components.NewManager(registry),
		planner:       populate.NewPlanner(registry),
		syncer:        relations.NewSyncer(registry),
		logger:        logging.NoOp(),
		now:           time.Now,
		newDocumentID: identity.NewDocumentID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, p CreateParams) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	model, err := s.contentType(p.UID)
	if err != nil {
		return nil, err
	}
	locale, err := s.resolveLocale(ctx, model, p.Locale)
	if err != nil {
		return nil, err
	}

	status := p.Status
	if status == "" || !model.HasDraftAndPublish() {
		status = domain.StatusDraft
	}
	docID := p.DocumentID
	if docID == "" {
		docID = s.newDocumentID()
	}

	var result *Result
	err = s.store.Transaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		repo := tx.Query(p.UID)

		collision, err := repo.FindOne(ctx, storage.Query{
			Select: []string{domain.FieldID},
			Where:  s.scopeWhere(model, docID, locale, domain.StatusDraft, true),
		})
		if err != nil {
			return err
		}
		if collision != nil {
			return &ExistsError{UID: p.UID, DocumentID: docID, Locale: locale, Status: string(domain.StatusDraft)}
		}

		data, err := s.pipeline.Resolve(ctx, tx, p.UID, p.Data, s.writeOptions(model, locale, p.Strict, false))
		if err != nil {
			return err
		}
		data, err = s.cascade.Create(ctx, tx, p.UID, data)
		if err != nil {
			return err
		}

		entry := storage.Entry{}
		for key, value := range data {
			entry[key] = value
		}
		entry[domain.FieldDocumentID] = docID
		if model.IsLocalized() {
			entry[domain.FieldLocale] = locale
		}
		if !model.HasDraftAndPublish() {
			// Draft and published collapse into a single always-live row.
			entry[domain.FieldPublishedAt] = s.now()
		}
		if p.CreatedBy != nil {
			entry[domain.FieldCreatedBy] = p.CreatedBy
		}
		if p.UpdatedBy != nil {
			entry[domain.FieldUpdatedBy] = p.UpdatedBy
		}

		created, err := repo.Create(ctx, entry)
		if err != nil {
			return err
		}

		rows := []storage.Entry{created}
		if status == domain.StatusPublished {
			rows, err = s.swapVersions(ctx, tx, model, docID, locale, domain.StatusPublished)
			if err != nil {
				return err
			}
		}

		populated, err := s.reload(ctx, tx, p.UID, rows, p.Fields, p.Populate)
		if err != nil {
			return err
		}
		result = &Result{DocumentID: docID, Entries: populated}
		s.emitOnCommit(tx, interfaces.EventEntryCreate, p.UID, populated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("document created", "uid", p.UID, "document_id", docID, "locale", locale, "status", string(status))
	return result, nil
}

func (s *service) Update(ctx context.Context, p UpdateParams) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	model, err := s.contentType(p.UID)
	if err != nil {
		return nil, err
	}
	locale, err := s.resolveLocale(ctx, model, p.Locale)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = s.store.Transaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		repo := tx.Query(p.UID)

		draft, err := repo.FindOne(ctx, storage.Query{
			Where: s.scopeWhere(model, p.DocumentID, locale, domain.StatusDraft, true),
		})
		if err != nil {
			return err
		}
		if draft == nil {
			draft, err = s.synthesizeDraft(ctx, tx, model, p.DocumentID, locale)
			if err != nil {
				return err
			}
		}
		id, _ := storage.AsID(draft[domain.FieldID])

		data, err := s.pipeline.Resolve(ctx, tx, p.UID, p.Data, s.writeOptions(model, locale, p.Strict, false))
		if err != nil {
			return err
		}
		data, err = s.cascade.Update(ctx, tx, p.UID, id, data)
		if err != nil {
			return err
		}
		if p.UpdatedBy != nil {
			data[domain.FieldUpdatedBy] = p.UpdatedBy
		}

		updated, err := repo.Update(ctx, id, data)
		if err != nil {
			return err
		}

		rows := []storage.Entry{updated}
		if model.HasDraftAndPublish() && p.Status == domain.StatusPublished {
			rows, err = s.swapVersions(ctx, tx, model, p.DocumentID, locale, domain.StatusPublished)
			if err != nil {
				return err
			}
		}

		populated, err := s.reload(ctx, tx, p.UID, rows, p.Fields, p.Populate)
		if err != nil {
			return err
		}
		result = &Result{DocumentID: p.DocumentID, Entries: populated}
		s.emitOnCommit(tx, interfaces.EventEntryUpdate, p.UID, populated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("document updated", "uid", p.UID, "document_id", p.DocumentID, "locale", locale)
	return result, nil
}

// synthesizeDraft re-creates a missing draft from the stored version so an
// update always has a row to land on. The new row carries the same documentId.
func (s *service) synthesizeDraft(ctx context.Context, tx storage.Tx, model *schema.Model, docID, locale string) (storage.Entry, error) {
	repo := tx.Query(model.UID)

	plan, err := s.planner.Plan(model.UID)
	if err != nil {
		return nil, err
	}
	source, err := repo.FindOne(ctx, storage.Query{
		Where:    s.scopeWhere(model, docID, locale, domain.StatusDraft, false),
		Populate: plan,
	})
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, &NotFoundError{UID: model.UID, DocumentID: docID, Locale: locale}
	}

	payload, err := payloadFromEntry(s.registry, model, source)
	if err != nil {
		return nil, err
	}
	data, err := s.pipeline.Resolve(ctx, tx, model.UID, payload, relations.Options{
		Locale:       locale,
		Status:       domain.StatusDraft,
		StatusKnown:  model.HasDraftAndPublish(),
		AllowMissing: true,
	})
	if err != nil {
		return nil, err
	}
	data, err = s.cascade.Create(ctx, tx, model.UID, data)
	if err != nil {
		return nil, err
	}

	entry := storage.Entry{}
	for key, value := range data {
		entry[key] = value
	}
	entry[domain.FieldDocumentID] = docID
	if model.IsLocalized() {
		entry[domain.FieldLocale] = locale
	}
	return repo.Create(ctx, entry)
}

func (s *service) Delete(ctx context.Context, p DeleteParams) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	model, err := s.contentType(p.UID)
	if err != nil {
		return nil, err
	}
	locale := strings.ToLower(strings.TrimSpace(p.Locale))

	var result *Result
	err = s.store.Transaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		repo := tx.Query(p.UID)

		rows, err := repo.FindMany(ctx, storage.Query{
			Where: s.scopeWhere(model, p.DocumentID, locale, p.Status, p.Status != ""),
		})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &NotFoundError{UID: p.UID, DocumentID: p.DocumentID, Locale: locale}
		}

		for _, row := range rows {
			id, _ := storage.AsID(row[domain.FieldID])
			if err := s.cascade.Delete(ctx, tx, p.UID, id); err != nil {
				return err
			}
			if _, err := repo.Delete(ctx, storage.Query{Where: map[string]any{domain.FieldID: id}}); err != nil {
				return err
			}
		}

		// Delete events carry the pre-deletion shape, never a populated one.
		result = &Result{DocumentID: p.DocumentID, Entries: rows}
		s.emitOnCommit(tx, interfaces.EventEntryDelete, p.UID, rows)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("document deleted", "uid", p.UID, "document_id", p.DocumentID, "rows", len(result.Entries))
	return result, nil
}

func (s *service) Publish(ctx context.Context, p PublishParams) (*Result, error) {
	return s.transition(ctx, p, domain.StatusPublished)
}

func (s *service) DiscardDraft(ctx context.Context, p PublishParams) (*Result, error) {
	return s.transition(ctx, p, domain.StatusDraft)
}

func (s *service) transition(ctx context.Context, p PublishParams, target domain.Status) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	model, err := s.contentType(p.UID)
	if err != nil {
		return nil, err
	}
	if !model.HasDraftAndPublish() {
		return nil, ErrDraftPublishDisabled
	}
	locale := strings.ToLower(strings.TrimSpace(p.Locale))

	var result *Result
	err = s.store.Transaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		rows, err := s.swapVersions(ctx, tx, model, p.DocumentID, locale, target)
		if err != nil {
			return err
		}
		populated, err := s.reload(ctx, tx, p.UID, rows, nil, nil)
		if err != nil {
			return err
		}
		result = &Result{DocumentID: p.DocumentID, Entries: populated}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document transitioned", "uid", p.UID, "document_id", p.DocumentID, "target", string(target))
	return result, nil
}

// swapVersions replaces every row of the target status with transform-copies
// of the opposite status, per locale. Unidirectional join rows pointing at
// the superseded rows are loaded before the delete and re-inserted against
// the replacement ids after the create; that ordering is what keeps one-way
// pointers alive across the swap.
func (s *service) swapVersions(ctx context.Context, tx storage.Tx, model *schema.Model, docID, locale string, target domain.Status) ([]storage.Entry, error) {
	repo := tx.Query(model.UID)
	source := domain.StatusDraft
	if target == domain.StatusDraft {
		source = domain.StatusPublished
	}

	plan, err := s.planner.Plan(model.UID)
	if err != nil {
		return nil, err
	}
	sources, err := repo.FindMany(ctx, storage.Query{
		Where:    s.scopeWhere(model, docID, locale, source, true),
		Populate: plan,
	})
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, &NotFoundError{UID: model.UID, DocumentID: docID, Locale: locale}
	}

	superseded, err := repo.FindMany(ctx, storage.Query{
		Where: s.scopeWhere(model, docID, locale, target, true),
	})
	if err != nil {
		return nil, err
	}

	versions := relations.VersionSet{}
	if target == domain.StatusPublished {
		versions.Published = superseded
	} else {
		versions.Drafts = superseded
	}
	loaded, err := s.syncer.Load(ctx, tx, model.UID, versions)
	if err != nil {
		return nil, err
	}

	for _, old := range superseded {
		id, _ := storage.AsID(old[domain.FieldID])
		if err := s.cascade.Delete(ctx, tx, model.UID, id); err != nil {
			return nil, err
		}
		if _, err := repo.Delete(ctx, storage.Query{Where: map[string]any{domain.FieldID: id}}); err != nil {
			return nil, err
		}
	}

	now := s.now()
	created := make([]storage.Entry, 0, len(sources))
	for _, src := range sources {
		payload, err := payloadFromEntry(s.registry, model, src)
		if err != nil {
			return nil, err
		}
		srcLocale, _ := src[domain.FieldLocale].(string)
		data, err := s.pipeline.Resolve(ctx, tx, model.UID, payload, relations.Options{
			Locale:       srcLocale,
			Status:       target,
			StatusKnown:  true,
			AllowMissing: true,
		})
		if err != nil {
			return nil, err
		}
		data, err = s.cascade.Create(ctx, tx, model.UID, data)
		if err != nil {
			return nil, err
		}

		entry := storage.Entry{}
		for key, value := range data {
			entry[key] = value
		}
		entry[domain.FieldDocumentID] = docID
		if model.IsLocalized() {
			entry[domain.FieldLocale] = srcLocale
		}
		if target == domain.StatusPublished {
			entry[domain.FieldPublishedAt] = now
		}
		if value, ok := src[domain.FieldCreatedAt]; ok {
			entry[domain.FieldCreatedAt] = value
		}

		row, err := repo.Create(ctx, entry)
		if err != nil {
			return nil, err
		}
		created = append(created, row)
	}

	if err := s.syncer.Sync(ctx, tx, superseded, created, loaded); err != nil {
		return nil, err
	}

	event := interfaces.EventEntryPublish
	if target == domain.StatusDraft {
		event = interfaces.EventEntryDraftDiscard
	}
	populated, err := s.reload(ctx, tx, model.UID, created, nil, nil)
	if err != nil {
		return nil, err
	}
	s.emitOnCommit(tx, event, model.UID, populated)
	return created, nil
}

func (s *service) Unpublish(ctx context.Context, p PublishParams) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	model, err := s.contentType(p.UID)
	if err != nil {
		return nil, err
	}
	if !model.HasDraftAndPublish() {
		return nil, ErrDraftPublishDisabled
	}
	locale := strings.ToLower(strings.TrimSpace(p.Locale))

	var result *Result
	err = s.store.Transaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		repo := tx.Query(p.UID)

		rows, err := repo.FindMany(ctx, storage.Query{
			Where: s.scopeWhere(model, p.DocumentID, locale, domain.StatusPublished, true),
		})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &NotFoundError{UID: p.UID, DocumentID: p.DocumentID, Locale: locale}
		}

		for _, row := range rows {
			id, _ := storage.AsID(row[domain.FieldID])
			if err := s.cascade.Delete(ctx, tx, p.UID, id); err != nil {
				return err
			}
			if _, err := repo.Delete(ctx, storage.Query{Where: map[string]any{domain.FieldID: id}}); err != nil {
				return err
			}
		}

		result = &Result{DocumentID: p.DocumentID, Entries: rows}
		s.emitOnCommit(tx, interfaces.EventEntryUnpublish, p.UID, rows)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document unpublished", "uid", p.UID, "document_id", p.DocumentID)
	return result, nil
}

func (s *service) Clone(ctx context.Context, p CloneParams) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	model, err := s.contentType(p.UID)
	if err != nil {
		return nil, err
	}
	locale := strings.ToLower(strings.TrimSpace(p.Locale))

	var result *Result
	err = s.store.Transaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		repo := tx.Query(p.UID)

		plan, err := s.planner.Plan(p.UID)
		if err != nil {
			return err
		}
		sources, err := repo.FindMany(ctx, storage.Query{
			Where:    s.scopeWhere(model, p.DocumentID, locale, domain.StatusDraft, true),
			Populate: plan,
		})
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			return &NotFoundError{UID: p.UID, DocumentID: p.DocumentID, Locale: locale}
		}

		newDocID := s.newDocumentID()
		created := make([]storage.Entry, 0, len(sources))
		for _, src := range sources {
			payload, err := payloadFromEntry(s.registry, model, src)
			if err != nil {
				return err
			}
			for key, value := range p.Data {
				payload[key] = value
			}
			srcLocale, _ := src[domain.FieldLocale].(string)
			data, err := s.pipeline.Resolve(ctx, tx, p.UID, payload, relations.Options{
				Locale:       srcLocale,
				Status:       domain.StatusDraft,
				StatusKnown:  model.HasDraftAndPublish(),
				AllowMissing: true,
			})
			if err != nil {
				return err
			}
			data, err = s.cascade.Create(ctx, tx, p.UID, data)
			if err != nil {
				return err
			}

			entry := storage.Entry{}
			for key, value := range data {
				entry[key] = value
			}
			entry[domain.FieldDocumentID] = newDocID
			if model.IsLocalized() {
				entry[domain.FieldLocale] = srcLocale
			}
			if !model.HasDraftAndPublish() {
				entry[domain.FieldPublishedAt] = s.now()
			}

			row, err := repo.Create(ctx, entry)
			if err != nil {
				return err
			}
			created = append(created, row)
		}

		populated, err := s.reload(ctx, tx, p.UID, created, nil, nil)
		if err != nil {
			return err
		}
		result = &Result{DocumentID: newDocID, Entries: populated}
		s.emitOnCommit(tx, interfaces.EventEntryClone, p.UID, populated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("document cloned", "uid", p.UID, "source", p.DocumentID, "document_id", result.DocumentID)
	return result, nil
}
