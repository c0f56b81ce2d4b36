package relations

import (
	"context"

	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// Syncer preserves unidirectional relations across version swaps. Relations
// with no inverse attribute cannot be rebuilt from the owning document when
// their target row is deleted and replaced, so the lifecycle loads them
// before deleting the superseded rows and re-inserts them rewritten against
// the replacement ids after the new rows exist.
type Syncer struct {
	registry *schema.Registry
}

// NewSyncer constructs a syncer over the registry.
func NewSyncer(registry *schema.Registry) *Syncer {
	return &Syncer{registry: registry}
}

// VersionSet carries the rows about to be superseded.
type VersionSet struct {
	Published []storage.Entry
	Drafts    []storage.Entry
}

type loadedTable struct {
	table schema.JoinTable
	rows  []storage.JoinRow
}

// LoadedRelations holds raw join rows grouped by the table they came from.
type LoadedRelations struct {
	tables []loadedTable
}

// Empty reports whether nothing was loaded.
func (l *LoadedRelations) Empty() bool {
	return l == nil || len(l.tables) == 0
}

// Load collects, for every schema in the system, the join rows of
// unidirectional relation attributes targeting uid that point at the ids
// about to be superseded. Draft-pointing rows whose source already points at
// a published version are skipped; the published match wins.
func (s *Syncer) Load(ctx context.Context, store storage.Store, uid string, versions VersionSet) (*LoadedRelations, error) {
	publishedIDs := entryIDs(versions.Published)
	draftIDs := entryIDs(versions.Drafts)
	if len(publishedIDs) == 0 && len(draftIDs) == 0 {
		return &LoadedRelations{}, nil
	}

	loaded := &LoadedRelations{}
	joins := store.JoinTables()

	for _, model := range s.registry.Models() {
		for _, attr := range model.Attributes {
			if !attr.IsUnidirectional() || attr.Target != uid {
				continue
			}
			jt, ok := s.registry.RelationJoinTable(model, attr)
			if !ok {
				continue
			}

			var rows []storage.JoinRow
			coveredSources := make(map[int64]struct{})

			if len(publishedIDs) > 0 {
				matched, err := joins.Select(ctx, jt.Name, map[string]any{
					jt.TargetColumn: storage.InIDs(publishedIDs),
				})
				if err != nil {
					return nil, err
				}
				for _, row := range matched {
					if source, ok := storage.AsID(row[jt.SourceColumn]); ok {
						coveredSources[source] = struct{}{}
					}
					rows = append(rows, row)
				}
			}

			if len(draftIDs) > 0 {
				matched, err := joins.Select(ctx, jt.Name, map[string]any{
					jt.TargetColumn: storage.InIDs(draftIDs),
				})
				if err != nil {
					return nil, err
				}
				for _, row := range matched {
					if source, ok := storage.AsID(row[jt.SourceColumn]); ok {
						if _, covered := coveredSources[source]; covered {
							continue
						}
					}
					rows = append(rows, row)
				}
			}

			if len(rows) > 0 {
				loaded.tables = append(loaded.tables, loadedTable{table: jt, rows: rows})
			}
		}
	}
	return loaded, nil
}

// Sync rewrites the previously loaded join rows against the replacement
// entries and bulk-inserts them. Old and new entry lists are locale-aligned;
// a row whose old target has no replacement for its locale is dropped, the
// accepted lossy case when a locale is removed during the swap.
func (s *Syncer) Sync(ctx context.Context, store storage.Store, oldEntries, newEntries []storage.Entry, loaded *LoadedRelations) error {
	if loaded.Empty() {
		return nil
	}

	remap := buildIDRemap(oldEntries, newEntries)
	joins := store.JoinTables()

	for _, lt := range loaded.tables {
		rewritten := make([]storage.JoinRow, 0, len(lt.rows))
		for _, row := range lt.rows {
			oldTarget, ok := storage.AsID(row[lt.table.TargetColumn])
			if !ok {
				continue
			}
			newTarget, ok := remap[oldTarget]
			if !ok {
				continue
			}
			next := make(storage.JoinRow, len(row))
			for column, value := range row {
				next[column] = value
			}
			next[lt.table.TargetColumn] = newTarget
			rewritten = append(rewritten, next)
		}
		if len(rewritten) == 0 {
			continue
		}
		if err := joins.Insert(ctx, lt.table.Name, rewritten); err != nil {
			return err
		}
	}
	return nil
}

func buildIDRemap(oldEntries, newEntries []storage.Entry) map[int64]int64 {
	newByLocale := make(map[string]int64, len(newEntries))
	for _, entry := range newEntries {
		if id, ok := storage.AsID(entry[domain.FieldID]); ok {
			newByLocale[entryLocale(entry)] = id
		}
	}
	remap := make(map[int64]int64, len(oldEntries))
	for _, entry := range oldEntries {
		id, ok := storage.AsID(entry[domain.FieldID])
		if !ok {
			continue
		}
		if newID, ok := newByLocale[entryLocale(entry)]; ok {
			remap[id] = newID
		}
	}
	return remap
}

func entryIDs(entries []storage.Entry) []int64 {
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		if id, ok := storage.AsID(entry[domain.FieldID]); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func entryLocale(entry storage.Entry) string {
	if locale, ok := entry[domain.FieldLocale].(string); ok {
		return locale
	}
	return ""
}
