package memory

import (
	"context"
	"sort"

	"github.com/goliatone/go-documents/pkg/storage"
)

// joinTables implements the raw escape hatch over the in-memory pivot state.
type joinTables struct {
	store *Store
}

func (j *joinTables) Select(ctx context.Context, table string, where map[string]any) ([]storage.JoinRow, error) {
	j.store.mu.Lock()
	defer j.store.mu.Unlock()

	var out []storage.JoinRow
	for _, row := range j.store.joins[table] {
		if matchWhere(row, where) {
			out = append(out, cloneEntry(row))
		}
	}
	return out, nil
}

func (j *joinTables) Insert(ctx context.Context, table string, rows []storage.JoinRow) error {
	j.store.mu.Lock()
	defer j.store.mu.Unlock()

	for _, row := range rows {
		j.store.joins[table] = append(j.store.joins[table], cloneEntry(row))
	}
	return nil
}

func (j *joinTables) Delete(ctx context.Context, table string, where map[string]any) (int64, error) {
	j.store.mu.Lock()
	defer j.store.mu.Unlock()

	rows := j.store.joins[table]
	kept := rows[:0]
	var removed int64
	for _, row := range rows {
		if matchWhere(row, where) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	j.store.joins[table] = kept
	return removed, nil
}

func sortJoinRows(rows []storage.JoinRow, orderColumn string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i][orderColumn].(float64)
		b, _ := rows[j][orderColumn].(float64)
		return a < b
	})
}
