// Package memory provides a schema-aware in-memory implementation of the
// storage contract for scaffolding and tests. Rows are cloned on read, ids
// are sequential, and transactions snapshot the full state so failures roll
// back exactly like a relational backend would.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// Store keeps every model table and join table in process memory.
type Store struct {
	mu       sync.Mutex
	registry *schema.Registry
	nextID   int64
	tables   map[string]map[int64]storage.Entry
	joins    map[string][]storage.JoinRow
	now      func() time.Time
}

// Option configures the store at construction time.
type Option func(*Store)

// WithClock overrides the clock used to stamp rows.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// New constructs an empty store bound to the supplied registry.
func New(registry *schema.Registry, opts ...Option) *Store {
	s := &Store{
		registry: registry,
		tables:   make(map[string]map[int64]storage.Entry),
		joins:    make(map[string][]storage.JoinRow),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query returns the repository for one model UID.
func (s *Store) Query(uid string) storage.Repository {
	return &repository{store: s, uid: uid}
}

// JoinTables exposes raw join-table maintenance.
func (s *Store) JoinTables() storage.JoinTableStore {
	return &joinTables{store: s}
}

// Transaction snapshots the store, runs fn, and restores the snapshot when fn
// fails. OnCommit hooks run after the outermost transaction succeeds.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	snapshot := s.snapshot()
	tx := &memTx{store: s}
	if err := fn(ctx, tx); err != nil {
		s.restore(snapshot)
		return err
	}
	for _, hook := range tx.hooks {
		hook(ctx)
	}
	return nil
}

func (s *Store) table(uid string) map[int64]storage.Entry {
	table, ok := s.tables[uid]
	if !ok {
		table = make(map[int64]storage.Entry)
		s.tables[uid] = table
	}
	return table
}

func (s *Store) allocID() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) sortedIDs(uid string) []int64 {
	table := s.tables[uid]
	ids := make([]int64, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type stateSnapshot struct {
	nextID int64
	tables map[string]map[int64]storage.Entry
	joins  map[string][]storage.JoinRow
}

func (s *Store) snapshot() stateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := stateSnapshot{
		nextID: s.nextID,
		tables: make(map[string]map[int64]storage.Entry, len(s.tables)),
		joins:  make(map[string][]storage.JoinRow, len(s.joins)),
	}
	for uid, table := range s.tables {
		copied := make(map[int64]storage.Entry, len(table))
		for id, row := range table {
			copied[id] = cloneEntry(row)
		}
		snap.tables[uid] = copied
	}
	for name, rows := range s.joins {
		copied := make([]storage.JoinRow, len(rows))
		for i, row := range rows {
			copied[i] = cloneEntry(row)
		}
		snap.joins[name] = copied
	}
	return snap
}

func (s *Store) restore(snap stateSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.tables = snap.tables
	s.joins = snap.joins
}

// memTx scopes OnCommit hooks to one Transaction call. The memory store holds
// no connection state, so the transaction view delegates straight back.
type memTx struct {
	store *Store
	hooks []func(ctx context.Context)
}

func (t *memTx) Query(uid string) storage.Repository {
	return t.store.Query(uid)
}

func (t *memTx) JoinTables() storage.JoinTableStore {
	return t.store.JoinTables()
}

func (t *memTx) Transaction(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	// Nested transactions join the outer unit: hooks accumulate and any
	// error rolls back the whole outer transaction.
	return fn(ctx, t)
}

func (t *memTx) OnCommit(hook func(ctx context.Context)) {
	if hook != nil {
		t.hooks = append(t.hooks, hook)
	}
}

func cloneEntry(src storage.Entry) storage.Entry {
	if src == nil {
		return nil
	}
	out := make(storage.Entry, len(src))
	for k, v := range src {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return cloneEntry(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	case []storage.Entry:
		out := make([]storage.Entry, len(value))
		for i, item := range value {
			out[i] = cloneEntry(item)
		}
		return out
	case *time.Time:
		if value == nil {
			return (*time.Time)(nil)
		}
		cloned := *value
		return &cloned
	default:
		return v
	}
}
