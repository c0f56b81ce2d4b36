package bunstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

type repository struct {
	store *Store
	uid   string
}

func (r *repository) model() (*schema.Model, error) {
	return r.store.registry.GetModel(r.uid)
}

func (r *repository) FindMany(ctx context.Context, q storage.Query) ([]storage.Entry, error) {
	model, err := r.model()
	if err != nil {
		return nil, err
	}

	sel := r.store.db.NewSelect().Table(model.Collection())
	applyWhere(sel, q.Where)
	applyColumns(sel, q.Select)
	if len(q.OrderBy) == 0 {
		sel.OrderExpr("? ASC", bun.Ident(domain.FieldID))
	} else {
		for _, field := range q.OrderBy {
			if name := strings.TrimPrefix(field, "-"); name != field {
				sel.OrderExpr("? DESC", bun.Ident(name))
			} else {
				sel.OrderExpr("? ASC", bun.Ident(name))
			}
		}
	}
	if q.Limit > 0 {
		sel.Limit(q.Limit)
	}
	if q.Offset > 0 {
		sel.Offset(q.Offset)
	}

	var rows []map[string]any
	if err := sel.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("bunstore: select %s: %w", model.Collection(), err)
	}

	entries := make([]storage.Entry, 0, len(rows))
	for _, row := range rows {
		entry := storage.Entry(row)
		if err := r.populateEntry(ctx, model, entry, q.Populate); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *repository) FindOne(ctx context.Context, q storage.Query) (storage.Entry, error) {
	q.Limit = 1
	entries, err := r.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

func (r *repository) Create(ctx context.Context, data map[string]any) (storage.Entry, error) {
	model, err := r.model()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	row := map[string]any{
		domain.FieldCreatedAt: now,
		domain.FieldUpdatedAt: now,
	}
	var deferred []func(id int64) error
	for key, value := range data {
		attr, ok := model.Attribute(key)
		if !ok || attr.Kind.IsScalar() {
			if key != domain.FieldID {
				row[key] = value
			}
			continue
		}
		key, value, attr := key, value, attr
		switch {
		case attr.IsNested():
			deferred = append(deferred, func(id int64) error {
				return r.writePivots(ctx, model, attr, id, value)
			})
		case attr.IsMorph():
			row[key] = value
		default:
			deferred = append(deferred, func(id int64) error {
				return r.writeRelation(ctx, model, attr, id, value)
			})
		}
	}

	if err := r.checkUniqueness(ctx, model, row, 0); err != nil {
		return nil, err
	}

	if _, err := r.store.db.NewInsert().
		Model(&row).
		TableExpr("?", bun.Ident(model.Collection())).
		Returning("?", bun.Ident(domain.FieldID)).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("bunstore: insert %s: %w", model.Collection(), err)
	}
	id, ok := storage.AsID(row[domain.FieldID])
	if !ok {
		return nil, fmt.Errorf("bunstore: insert %s returned no id", model.Collection())
	}

	for _, apply := range deferred {
		if err := apply(id); err != nil {
			return nil, err
		}
	}
	return r.reload(ctx, model, id)
}

func (r *repository) Update(ctx context.Context, id int64, data map[string]any) (storage.Entry, error) {
	model, err := r.model()
	if err != nil {
		return nil, err
	}

	existing, err := r.FindOne(ctx, storage.Query{Where: map[string]any{domain.FieldID: id}})
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &storage.EntryNotFoundError{UID: r.uid, ID: id}
	}

	upd := r.store.db.NewUpdate().
		Table(model.Collection()).
		Where("? = ?", bun.Ident(domain.FieldID), id).
		Set("? = ?", bun.Ident(domain.FieldUpdatedAt), time.Now())

	for key, value := range data {
		attr, ok := model.Attribute(key)
		if !ok || attr.Kind.IsScalar() {
			if key == domain.FieldID {
				continue
			}
			upd.Set("? = ?", bun.Ident(key), value)
			continue
		}
		switch {
		case attr.IsNested():
			if err := r.writePivots(ctx, model, attr, id, value); err != nil {
				return nil, err
			}
		case attr.IsMorph():
			upd.Set("? = ?", bun.Ident(key), value)
		default:
			if err := r.writeRelation(ctx, model, attr, id, value); err != nil {
				return nil, err
			}
		}
	}

	merged := storage.Entry{}
	for key, value := range existing {
		merged[key] = value
	}
	for key, value := range data {
		merged[key] = value
	}
	if err := r.checkUniqueness(ctx, model, merged, id); err != nil {
		return nil, err
	}

	if _, err := upd.Exec(ctx); err != nil {
		return nil, fmt.Errorf("bunstore: update %s: %w", model.Collection(), err)
	}
	return r.reload(ctx, model, id)
}

func (r *repository) Delete(ctx context.Context, q storage.Query) (int64, error) {
	model, err := r.model()
	if err != nil {
		return 0, err
	}

	rows, err := r.FindMany(ctx, storage.Query{
		Select: []string{domain.FieldID},
		Where:  q.Where,
	})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if id, ok := storage.AsID(row[domain.FieldID]); ok {
			ids = append(ids, id)
		}
	}

	if _, err := r.store.db.NewDelete().
		Table(model.Collection()).
		Where("? IN (?)", bun.Ident(domain.FieldID), bun.In(ids)).
		Exec(ctx); err != nil {
		return 0, fmt.Errorf("bunstore: delete %s: %w", model.Collection(), err)
	}

	for _, id := range ids {
		if err := r.store.detachJoinRows(ctx, r.uid, id); err != nil {
			return 0, err
		}
	}
	return int64(len(ids)), nil
}

func (r *repository) Count(ctx context.Context, q storage.Query) (int64, error) {
	model, err := r.model()
	if err != nil {
		return 0, err
	}
	sel := r.store.db.NewSelect().Table(model.Collection())
	applyWhere(sel, q.Where)
	count, err := sel.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bunstore: count %s: %w", model.Collection(), err)
	}
	return int64(count), nil
}

func (r *repository) reload(ctx context.Context, model *schema.Model, id int64) (storage.Entry, error) {
	entry, err := r.FindOne(ctx, storage.Query{Where: map[string]any{domain.FieldID: id}})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, &storage.EntryNotFoundError{UID: r.uid, ID: id}
	}
	return entry, nil
}

// checkUniqueness enforces the documentId+locale+status constraint for
// draft-and-publish models before the database unique index would, so races
// and programming errors surface as the same sentinel either way.
func (r *repository) checkUniqueness(ctx context.Context, model *schema.Model, row storage.Entry, selfID int64) error {
	if !model.HasDraftAndPublish() {
		return nil
	}
	docID, _ := row[domain.FieldDocumentID].(string)
	if docID == "" {
		return nil
	}

	sel := r.store.db.NewSelect().Table(model.Collection()).
		Where("? = ?", bun.Ident(domain.FieldDocumentID), docID)
	if locale, ok := row[domain.FieldLocale].(string); ok && locale != "" {
		sel.Where("? = ?", bun.Ident(domain.FieldLocale), locale)
	} else {
		sel.Where("? IS NULL", bun.Ident(domain.FieldLocale))
	}
	if row[domain.FieldPublishedAt] != nil {
		sel.Where("? IS NOT NULL", bun.Ident(domain.FieldPublishedAt))
	} else {
		sel.Where("? IS NULL", bun.Ident(domain.FieldPublishedAt))
	}
	if selfID != 0 {
		sel.Where("? != ?", bun.Ident(domain.FieldID), selfID)
	}

	count, err := sel.Count(ctx)
	if err != nil {
		return fmt.Errorf("bunstore: uniqueness check %s: %w", model.Collection(), err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s document_id=%s", storage.ErrUniqueViolation, r.uid, docID)
	}
	return nil
}

// detachJoinRows removes every pivot row referencing the deleted entry from
// either side, across relation tables and component ownership tables.
func (s *Store) detachJoinRows(ctx context.Context, uid string, id int64) error {
	for _, model := range s.registry.Models() {
		for _, attr := range model.Attributes {
			if attr.MappedBy != "" {
				continue // owning side already covers the shared table
			}
			jt, ok := s.registry.RelationJoinTable(model, attr)
			if !ok {
				continue
			}
			if model.UID == uid {
				if err := s.deleteJoinRows(ctx, jt.Name, jt.SourceColumn, id); err != nil {
					return err
				}
			}
			if attr.Target == uid {
				if err := s.deleteJoinRows(ctx, jt.Name, jt.TargetColumn, id); err != nil {
					return err
				}
			}
		}

		cjt := schema.ComponentsJoinTable(model)
		if model.UID == uid {
			if err := s.deleteJoinRows(ctx, cjt.Name, cjt.EntityColumn, id); err != nil {
				return err
			}
		}
		if _, err := s.db.NewDelete().
			Table(cjt.Name).
			Where("? = ?", bun.Ident(cjt.ComponentColumn), id).
			Where("? = ?", bun.Ident(cjt.TypeColumn), uid).
			Exec(ctx); err != nil {
			return fmt.Errorf("bunstore: detach %s: %w", cjt.Name, err)
		}
	}
	return nil
}

func (s *Store) deleteJoinRows(ctx context.Context, table, column string, id int64) error {
	if _, err := s.db.NewDelete().
		Table(table).
		Where("? = ?", bun.Ident(column), id).
		Exec(ctx); err != nil {
		return fmt.Errorf("bunstore: detach %s: %w", table, err)
	}
	return nil
}

func applyWhere(sel *bun.SelectQuery, where map[string]any) {
	for key, value := range where {
		switch cond := value.(type) {
		case storage.Cond:
			switch cond.Op {
			case storage.OpIn:
				sel.Where("? IN (?)", bun.Ident(key), bun.In(cond.Values))
			case storage.OpNull:
				sel.Where("? IS NULL", bun.Ident(key))
			case storage.OpNotNull:
				sel.Where("? IS NOT NULL", bun.Ident(key))
			}
		case nil:
			sel.Where("? IS NULL", bun.Ident(key))
		default:
			sel.Where("? = ?", bun.Ident(key), value)
		}
	}
}

func applyColumns(sel *bun.SelectQuery, fields []string) {
	if len(fields) == 0 {
		return
	}
	seen := map[string]struct{}{domain.FieldID: {}}
	sel.Column(domain.FieldID)
	for _, field := range fields {
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		sel.Column(field)
	}
}
