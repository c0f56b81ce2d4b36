package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

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
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.findMany(q)
}

func (r *repository) findMany(q storage.Query) ([]storage.Entry, error) {
	model, err := r.model()
	if err != nil {
		return nil, err
	}

	var matched []storage.Entry
	table := r.store.tables[r.uid]
	for _, id := range r.store.sortedIDs(r.uid) {
		row := table[id]
		if matchWhere(row, q.Where) {
			matched = append(matched, row)
		}
	}

	sortEntries(matched, q.OrderBy)

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	out := make([]storage.Entry, 0, len(matched))
	for _, row := range matched {
		shaped := projectEntry(row, q.Select)
		if err := r.populateEntry(model, row, shaped, q.Populate); err != nil {
			return nil, err
		}
		out = append(out, shaped)
	}
	return out, nil
}

func (r *repository) FindOne(ctx context.Context, q storage.Query) (storage.Entry, error) {
	limited := q
	limited.Limit = 1
	rows, err := r.FindMany(ctx, limited)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *repository) Count(ctx context.Context, q storage.Query) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.model(); err != nil {
		return 0, err
	}
	var count int64
	for _, row := range r.store.tables[r.uid] {
		if matchWhere(row, q.Where) {
			count++
		}
	}
	return count, nil
}

func (r *repository) Create(ctx context.Context, data map[string]any) (storage.Entry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	model, err := r.model()
	if err != nil {
		return nil, err
	}

	row := storage.Entry{}
	now := r.store.now()
	row[domain.FieldCreatedAt] = now
	row[domain.FieldUpdatedAt] = now

	var deferred []func(id int64) error
	for key, value := range data {
		attr, ok := model.Attribute(key)
		if !ok || attr.Kind.IsScalar() {
			if key != domain.FieldID {
				row[key] = cloneValue(value)
			}
			continue
		}
		key, value, attr := key, value, attr
		switch {
		case attr.IsNested():
			deferred = append(deferred, func(id int64) error {
				return r.writePivots(model, attr, id, value)
			})
		case attr.IsMorph():
			// Morph edges are maintained by generic code outside this engine.
			row[key] = cloneValue(value)
		default:
			deferred = append(deferred, func(id int64) error {
				return r.writeRelation(model, attr, id, value)
			})
		}
	}

	if err := r.checkUniqueness(model, row, 0); err != nil {
		return nil, err
	}

	id := r.store.allocID()
	row[domain.FieldID] = id
	r.store.table(r.uid)[id] = row

	for _, apply := range deferred {
		if err := apply(id); err != nil {
			return nil, err
		}
	}
	return cloneEntry(row), nil
}

func (r *repository) Update(ctx context.Context, id int64, data map[string]any) (storage.Entry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	model, err := r.model()
	if err != nil {
		return nil, err
	}
	row, ok := r.store.tables[r.uid][id]
	if !ok {
		return nil, &storage.EntryNotFoundError{UID: r.uid, ID: id}
	}

	for key, value := range data {
		if key == domain.FieldID {
			continue
		}
		attr, found := model.Attribute(key)
		if !found || attr.Kind.IsScalar() {
			row[key] = cloneValue(value)
			continue
		}
		switch {
		case attr.IsNested():
			if err := r.writePivots(model, attr, id, value); err != nil {
				return nil, err
			}
		case attr.IsMorph():
			row[key] = cloneValue(value)
		default:
			if err := r.writeRelation(model, attr, id, value); err != nil {
				return nil, err
			}
		}
	}
	row[domain.FieldUpdatedAt] = r.store.now()
	return cloneEntry(row), nil
}

func (r *repository) Delete(ctx context.Context, q storage.Query) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.model(); err != nil {
		return 0, err
	}

	var doomed []int64
	for _, id := range r.store.sortedIDs(r.uid) {
		if matchWhere(r.store.tables[r.uid][id], q.Where) {
			doomed = append(doomed, id)
		}
	}
	for _, id := range doomed {
		delete(r.store.tables[r.uid], id)
		r.store.detachJoinRows(r.uid, id)
	}
	return int64(len(doomed)), nil
}

// checkUniqueness enforces the storage-level documentId+locale+status
// constraint for draft-and-publish models. Races between concurrent
// lifecycle operations surface here instead of duplicating rows.
func (r *repository) checkUniqueness(model *schema.Model, row storage.Entry, selfID int64) error {
	if !model.HasDraftAndPublish() {
		return nil
	}
	docID, _ := row[domain.FieldDocumentID].(string)
	if docID == "" {
		return nil
	}
	locale := row[domain.FieldLocale]
	published := row[domain.FieldPublishedAt] != nil
	for id, existing := range r.store.tables[r.uid] {
		if id == selfID {
			continue
		}
		if existing[domain.FieldDocumentID] != docID {
			continue
		}
		if !equalValue(existing[domain.FieldLocale], locale) {
			continue
		}
		if (existing[domain.FieldPublishedAt] != nil) == published {
			return fmt.Errorf("%w: %s document_id=%s", storage.ErrUniqueViolation, r.uid, docID)
		}
	}
	return nil
}

// detachJoinRows removes every pivot row that references the deleted entry
// from either side, across relation tables and component ownership tables.
func (s *Store) detachJoinRows(uid string, id int64) {
	for _, model := range s.registry.Models() {
		for _, attr := range model.Attributes {
			if attr.MappedBy != "" {
				continue // owning side already covers the shared table
			}
			if jt, ok := s.registry.RelationJoinTable(model, attr); ok {
				if model.UID == uid {
					s.joins[jt.Name] = rejectRows(s.joins[jt.Name], jt.SourceColumn, id)
				}
				if attr.Target == uid {
					s.joins[jt.Name] = rejectRows(s.joins[jt.Name], jt.TargetColumn, id)
				}
			}
		}
		cjt := schema.ComponentsJoinTable(model)
		if model.UID == uid {
			s.joins[cjt.Name] = rejectRows(s.joins[cjt.Name], cjt.EntityColumn, id)
		}
		s.joins[cjt.Name] = rejectTypedRows(s.joins[cjt.Name], cjt, uid, id)
	}
}

func rejectRows(rows []storage.JoinRow, column string, id int64) []storage.JoinRow {
	out := rows[:0]
	for _, row := range rows {
		if rowID, ok := storage.AsID(row[column]); ok && rowID == id {
			continue
		}
		out = append(out, row)
	}
	return out
}

func rejectTypedRows(rows []storage.JoinRow, cjt schema.ComponentJoinTable, uid string, id int64) []storage.JoinRow {
	out := rows[:0]
	for _, row := range rows {
		rowID, ok := storage.AsID(row[cjt.ComponentColumn])
		if ok && rowID == id && row[cjt.TypeColumn] == uid {
			continue
		}
		out = append(out, row)
	}
	return out
}

func projectEntry(row storage.Entry, fields []string) storage.Entry {
	if len(fields) == 0 {
		return cloneEntry(row)
	}
	out := storage.Entry{domain.FieldID: row[domain.FieldID]}
	for _, field := range fields {
		if value, ok := row[field]; ok {
			out[field] = cloneValue(value)
		}
	}
	return out
}

func sortEntries(rows []storage.Entry, orderBy []string) {
	if len(orderBy) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, field := range orderBy {
			desc := strings.HasPrefix(field, "-")
			name := strings.TrimPrefix(field, "-")
			cmp := compareValues(rows[i][name], rows[j][name])
			if cmp == 0 {
				continue
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
