package bunstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-documents/pkg/storage"
)

// joinTables implements the raw escape hatch over the SQL pivot tables.
type joinTables struct {
	db bun.IDB
}

func (j *joinTables) Select(ctx context.Context, table string, where map[string]any) ([]storage.JoinRow, error) {
	sel := j.db.NewSelect().Table(table)
	for key, value := range where {
		sel.Where("? = ?", bun.Ident(key), value)
	}

	var rows []map[string]any
	if err := sel.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("bunstore: select %s: %w", table, err)
	}
	out := make([]storage.JoinRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, storage.JoinRow(row))
	}
	return out, nil
}

func (j *joinTables) Insert(ctx context.Context, table string, rows []storage.JoinRow) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, map[string]any(row))
	}
	if _, err := j.db.NewInsert().
		Model(&values).
		TableExpr("?", bun.Ident(table)).
		Exec(ctx); err != nil {
		return fmt.Errorf("bunstore: insert %s: %w", table, err)
	}
	return nil
}

func (j *joinTables) Delete(ctx context.Context, table string, where map[string]any) (int64, error) {
	del := j.db.NewDelete().Table(table)
	for key, value := range where {
		del.Where("? = ?", bun.Ident(key), value)
	}
	res, err := del.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bunstore: delete %s: %w", table, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return removed, nil
}
