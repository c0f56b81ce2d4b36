// Package bunstore implements the storage contract over a bun database. Row
// tables and join tables are addressed by the collection names the schema
// registry derives, so the same registry drives both this store and the
// in-memory one.
package bunstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// Open opens a bun database for one of the supported drivers.
func Open(driver, dsn string) (*bun.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("bunstore: open sqlite: %w", err)
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	case "postgres":
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("bunstore: open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrDriverUnsupported, driver)
}

// Store is a schema-aware bun-backed storage.Store.
type Store struct {
	db       bun.IDB
	registry *schema.Registry
}

// New constructs a store over db. The db may be a *bun.DB or a bun.Tx.
func New(db bun.IDB, registry *schema.Registry) *Store {
	return &Store{db: db, registry: registry}
}

// Query returns the repository for one model UID.
func (s *Store) Query(uid string) storage.Repository {
	return &repository{store: s, uid: uid}
}

// JoinTables exposes raw join-table maintenance.
func (s *Store) JoinTables() storage.JoinTableStore {
	return &joinTables{db: s.db}
}

// Transaction runs fn inside one database transaction. OnCommit hooks run
// after the outermost commit succeeds.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	db, ok := s.db.(*bun.DB)
	if !ok {
		// Already transaction scoped; join the enclosing unit.
		return fn(ctx, &tx{store: s})
	}

	var hooks []func(context.Context)
	err := db.RunInTx(ctx, nil, func(ctx context.Context, btx bun.Tx) error {
		scoped := &tx{store: &Store{db: btx, registry: s.registry}}
		if err := fn(ctx, scoped); err != nil {
			return err
		}
		hooks = scoped.hooks
		return nil
	})
	if err != nil {
		return err
	}
	for _, hook := range hooks {
		hook(ctx)
	}
	return nil
}

type tx struct {
	store *Store
	hooks []func(context.Context)
}

func (t *tx) Query(uid string) storage.Repository {
	return t.store.Query(uid)
}

func (t *tx) JoinTables() storage.JoinTableStore {
	return t.store.JoinTables()
}

// Transaction joins the enclosing transaction; hooks registered by the inner
// unit fire with the outer commit.
func (t *tx) Transaction(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return fn(ctx, t)
}

func (t *tx) OnCommit(hook func(ctx context.Context)) {
	if hook != nil {
		t.hooks = append(t.hooks, hook)
	}
}
