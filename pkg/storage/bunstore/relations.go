package bunstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// writeRelation applies a relation value to the join table for one source
// row. The current link set is loaded, the splice is applied in memory and
// the source's rows are rewritten with a dense 1..n order, mirroring the
// memory store so the two drivers stay behaviorally identical.
func (r *repository) writeRelation(ctx context.Context, model *schema.Model, attr schema.Attribute, entryID int64, value any) error {
	jt, ok := r.store.registry.RelationJoinTable(model, attr)
	if !ok {
		return nil
	}

	ops, err := storage.DecodeRelationValue(value)
	if err != nil {
		return err
	}

	var targets []int64
	if err := r.store.db.NewSelect().
		Table(jt.Name).
		Column(jt.TargetColumn).
		Where("? = ?", bun.Ident(jt.SourceColumn), entryID).
		OrderExpr("? ASC", bun.Ident(jt.OrderColumn)).
		Scan(ctx, &targets); err != nil {
		return fmt.Errorf("bunstore: select %s: %w", jt.Name, err)
	}

	if ops.Replace {
		targets = append(targets[:0], ops.Set...)
	}

	for _, target := range ops.Disconnect {
		targets = removeTarget(targets, target)
	}

	for _, connect := range ops.Connect {
		targets = removeTarget(targets, connect.ID)
		index := len(targets)
		if connect.Before != 0 {
			if at := indexOf(targets, connect.Before); at >= 0 {
				index = at
			}
		} else if connect.After != 0 {
			if at := indexOf(targets, connect.After); at >= 0 {
				index = at + 1
			}
		}
		targets = append(targets[:index], append([]int64{connect.ID}, targets[index:]...)...)
	}

	if _, err := r.store.db.NewDelete().
		Table(jt.Name).
		Where("? = ?", bun.Ident(jt.SourceColumn), entryID).
		Exec(ctx); err != nil {
		return fmt.Errorf("bunstore: clear %s: %w", jt.Name, err)
	}

	if len(targets) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(targets))
	for i, target := range targets {
		rows = append(rows, map[string]any{
			jt.SourceColumn: entryID,
			jt.TargetColumn: target,
			jt.OrderColumn:  float64(i + 1),
		})
	}
	if _, err := r.store.db.NewInsert().
		Model(&rows).
		TableExpr("?", bun.Ident(jt.Name)).
		Exec(ctx); err != nil {
		return fmt.Errorf("bunstore: insert %s: %w", jt.Name, err)
	}
	return nil
}

func removeTarget(targets []int64, target int64) []int64 {
	out := targets[:0]
	for _, t := range targets {
		if t != target {
			out = append(out, t)
		}
	}
	return out
}

func indexOf(targets []int64, target int64) int {
	for i, t := range targets {
		if t == target {
			return i
		}
	}
	return -1
}
