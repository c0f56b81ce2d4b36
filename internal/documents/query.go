package documents

import (
	"context"
	"strings"

	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/internal/relations"
	"github.com/goliatone/go-documents/pkg/interfaces"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

func (s *service) FindOne(ctx context.Context, p FindOneParams) (storage.Entry, error) {
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
	if status == "" {
		status = domain.StatusDraft
	}
	plan, err := s.plan(p.UID, p.Populate)
	if err != nil {
		return nil, err
	}

	entry, err := s.store.Query(p.UID).FindOne(ctx, storage.Query{
		Select:   p.Fields,
		Where:    s.scopeWhere(model, p.DocumentID, locale, status, true),
		Populate: plan,
	})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, &NotFoundError{UID: p.UID, DocumentID: p.DocumentID, Locale: locale}
	}
	return entry, nil
}

func (s *service) FindFirst(ctx context.Context, p FindManyParams) (storage.Entry, error) {
	p.Limit = 1
	entries, err := s.FindMany(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

func (s *service) FindMany(ctx context.Context, p FindManyParams) ([]storage.Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	model, err := s.contentType(p.UID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plan(p.UID, p.Populate)
	if err != nil {
		return nil, err
	}

	return s.store.Query(p.UID).FindMany(ctx, storage.Query{
		Select:   p.Fields,
		Where:    s.listWhere(model, p),
		Populate: plan,
		OrderBy:  p.Sort,
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
}

func (s *service) Count(ctx context.Context, p FindManyParams) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	model, err := s.contentType(p.UID)
	if err != nil {
		return 0, err
	}
	return s.store.Query(p.UID).Count(ctx, storage.Query{Where: s.listWhere(model, p)})
}

// listWhere merges caller filters with the locale/status scope. A missing
// status scopes list reads to drafts, matching the write-side default.
func (s *service) listWhere(model *schema.Model, p FindManyParams) map[string]any {
	status := p.Status
	if status == "" {
		status = domain.StatusDraft
	}
	where := s.scopeWhere(model, "", strings.ToLower(strings.TrimSpace(p.Locale)), status, true)
	for key, value := range p.Filters {
		where[key] = value
	}
	return where
}

func (s *service) contentType(uid string) (*schema.Model, error) {
	model, err := s.registry.GetModel(uid)
	if err != nil {
		return nil, err
	}
	if model.Kind != schema.ModelContentType {
		return nil, ErrNotContentType
	}
	return model, nil
}

// resolveLocale normalizes the requested locale, falling back to the system
// default. Non-localized models always resolve to the empty locale.
func (s *service) resolveLocale(ctx context.Context, model *schema.Model, requested string) (string, error) {
	if !model.IsLocalized() {
		return "", nil
	}
	if trimmed := strings.ToLower(strings.TrimSpace(requested)); trimmed != "" {
		return trimmed, nil
	}
	return s.locales.GetDefaultLocale(ctx)
}

// scopeWhere builds the document addressing predicate. The status predicate
// only applies to draft-and-publish models; other models keep a single row
// per locale.
func (s *service) scopeWhere(model *schema.Model, docID, locale string, status domain.Status, statusKnown bool) map[string]any {
	where := map[string]any{}
	if docID != "" {
		where[domain.FieldDocumentID] = docID
	}
	if model.IsLocalized() && locale != "" {
		where[domain.FieldLocale] = locale
	}
	if statusKnown && model.HasDraftAndPublish() {
		if status == domain.StatusPublished {
			where[domain.FieldPublishedAt] = storage.IsNotNull()
		} else {
			where[domain.FieldPublishedAt] = storage.IsNull()
		}
	}
	return where
}

func (s *service) writeOptions(model *schema.Model, locale string, strict, allowMissing bool) relations.Options {
	return relations.Options{
		Locale:       locale,
		Status:       domain.StatusDraft,
		StatusKnown:  model.HasDraftAndPublish(),
		Strict:       strict,
		AllowMissing: allowMissing,
	}
}

func (s *service) plan(uid string, override storage.Populate) (storage.Populate, error) {
	if override != nil {
		return override, nil
	}
	return s.planner.Plan(uid)
}

// reload fetches rows back deep-populated for results and events.
func (s *service) reload(ctx context.Context, tx storage.Tx, uid string, rows []storage.Entry, fields []string, override storage.Populate) ([]storage.Entry, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if id, ok := storage.AsID(row[domain.FieldID]); ok {
			ids = append(ids, id)
		}
	}
	plan, err := s.plan(uid, override)
	if err != nil {
		return nil, err
	}
	return tx.Query(uid).FindMany(ctx, storage.Query{
		Select:   fields,
		Where:    map[string]any{domain.FieldID: storage.InIDs(ids)},
		Populate: plan,
	})
}

func (s *service) emitOnCommit(tx storage.Tx, name, uid string, entries []storage.Entry) {
	if s.emitter == nil || len(entries) == 0 {
		return
	}
	emitter := s.emitter
	tx.OnCommit(func(ctx context.Context) {
		for _, entry := range entries {
			emitter.Emit(ctx, interfaces.Event{Name: name, UID: uid, Entry: entry})
		}
	})
}
