// Package storage defines the query/persistence contract the document engine
// is written against. Implementations are schema-aware: constructed with a
// schema.Registry, they persist relation attributes into join tables and
// component attributes into ownership pivot tables, and materialize both back
// through populate specs.
package storage

import "context"

// Entry is one stored row as a dynamic attribute map. Engine-maintained
// fields ("id", "document_id", "locale", "published_at", timestamps) coexist
// with schema attributes.
type Entry = map[string]any

// JoinRow is one raw pivot-table record.
type JoinRow = map[string]any

// Repository exposes row operations for a single model UID.
//
// Relation attribute values supplied in data must already carry physical ids:
// a bare id, a list of ids, or a map with "set", "connect", and "disconnect"
// keys where connect items may specify positional {"before"|"after": id}.
// Component and dynamic-zone attribute values must be pivot descriptors
// ({"id": .., "__pivot": {...}} and, for zones, "__component").
type Repository interface {
	FindMany(ctx context.Context, q Query) ([]Entry, error)
	// FindOne returns the first match, or nil when nothing matches.
	FindOne(ctx context.Context, q Query) (Entry, error)
	Create(ctx context.Context, data map[string]any) (Entry, error)
	Update(ctx context.Context, id int64, data map[string]any) (Entry, error)
	// Delete removes every matching row together with the join rows
	// referencing it from either side, and returns the removed row count.
	Delete(ctx context.Context, q Query) (int64, error)
	Count(ctx context.Context, q Query) (int64, error)
}

// JoinTableStore is the raw escape hatch for join-table maintenance used by
// the unidirectional relation syncer and the orphan repair sweep.
type JoinTableStore interface {
	Select(ctx context.Context, table string, where map[string]any) ([]JoinRow, error)
	Insert(ctx context.Context, table string, rows []JoinRow) error
	Delete(ctx context.Context, table string, where map[string]any) (int64, error)
}

// Store is the top-level storage collaborator.
type Store interface {
	Query(uid string) Repository
	JoinTables() JoinTableStore
	// Transaction runs fn inside one storage transaction. Any error rolls the
	// whole unit back; OnCommit hooks registered on the Tx run only after the
	// outermost transaction commits.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is a transaction-scoped store.
type Tx interface {
	Store
	OnCommit(hook func(ctx context.Context))
}
