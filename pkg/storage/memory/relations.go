package memory

import (
	"sort"

	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

func (r *repository) writeRelation(model *schema.Model, attr schema.Attribute, entryID int64, value any) error {
	jt, ok := r.store.registry.RelationJoinTable(model, attr)
	if !ok {
		return nil
	}

	ops, err := storage.DecodeRelationValue(value)
	if err != nil {
		return err
	}

	rows := r.store.joins[jt.Name]

	if ops.Replace {
		rows = rejectRows(rows, jt.SourceColumn, entryID)
		for _, target := range ops.Set {
			rows = append(rows, storage.JoinRow{
				jt.SourceColumn: entryID,
				jt.TargetColumn: target,
			})
		}
	}

	for _, target := range ops.Disconnect {
		rows = rejectPair(rows, jt, entryID, target)
	}

	for _, target := range ops.Connect {
		rows = rejectPair(rows, jt, entryID, target.ID)
		ordered := sourceRows(rows, jt, entryID)
		index := len(ordered)
		if target.Before != 0 {
			if at := indexOfTarget(ordered, jt, target.Before); at >= 0 {
				index = at
			}
		} else if target.After != 0 {
			if at := indexOfTarget(ordered, jt, target.After); at >= 0 {
				index = at + 1
			}
		}
		inserted := storage.JoinRow{
			jt.SourceColumn: entryID,
			jt.TargetColumn: target.ID,
		}
		ordered = append(ordered[:index], append([]storage.JoinRow{inserted}, ordered[index:]...)...)
		rows = append(rejectRows(rows, jt.SourceColumn, entryID), ordered...)
	}

	renumberSource(rows, jt, entryID)
	r.store.joins[jt.Name] = rows
	return nil
}

func rejectPair(rows []storage.JoinRow, jt schema.JoinTable, source, target int64) []storage.JoinRow {
	out := rows[:0]
	for _, row := range rows {
		src, _ := storage.AsID(row[jt.SourceColumn])
		tgt, _ := storage.AsID(row[jt.TargetColumn])
		if src == source && tgt == target {
			continue
		}
		out = append(out, row)
	}
	return out
}

func sourceRows(rows []storage.JoinRow, jt schema.JoinTable, source int64) []storage.JoinRow {
	var out []storage.JoinRow
	for _, row := range rows {
		if src, ok := storage.AsID(row[jt.SourceColumn]); ok && src == source {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i][jt.OrderColumn].(float64)
		b, _ := out[j][jt.OrderColumn].(float64)
		return a < b
	})
	return out
}

func indexOfTarget(rows []storage.JoinRow, jt schema.JoinTable, target int64) int {
	for i, row := range rows {
		if tgt, ok := storage.AsID(row[jt.TargetColumn]); ok && tgt == target {
			return i
		}
	}
	return -1
}

func renumberSource(rows []storage.JoinRow, jt schema.JoinTable, source int64) {
	ordered := sourceRows(rows, jt, source)
	for i, row := range ordered {
		row[jt.OrderColumn] = float64(i + 1)
	}
}
