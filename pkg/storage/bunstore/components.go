package bunstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// writePivots replaces the ownership pivot rows for one component or
// dynamic-zone attribute. Component instances are created and destroyed by
// the cascade manager; the store only records ownership and order.
func (r *repository) writePivots(ctx context.Context, model *schema.Model, attr schema.Attribute, entryID int64, value any) error {
	cjt := schema.ComponentsJoinTable(model)

	if _, err := r.store.db.NewDelete().
		Table(cjt.Name).
		Where("? = ?", bun.Ident(cjt.EntityColumn), entryID).
		Where("? = ?", bun.Ident(cjt.FieldColumn), attr.Name).
		Exec(ctx); err != nil {
		return fmt.Errorf("bunstore: clear %s: %w", cjt.Name, err)
	}

	items, err := storage.DecodePivots(attr, value)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(items))
	for i, item := range items {
		component, err := r.store.registry.GetModel(item.ComponentUID)
		if err != nil {
			return fmt.Errorf("%w: %s references missing %s", storage.ErrPivotValue, attr.Name, item.ComponentUID)
		}
		exists, err := r.store.db.NewSelect().
			Table(component.Collection()).
			Where("? = ?", bun.Ident(domain.FieldID), item.ID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("bunstore: check %s: %w", component.Collection(), err)
		}
		if !exists {
			return fmt.Errorf("%w: %s instance %d does not exist", storage.ErrPivotValue, item.ComponentUID, item.ID)
		}
		rows = append(rows, map[string]any{
			cjt.EntityColumn:    entryID,
			cjt.ComponentColumn: item.ID,
			cjt.FieldColumn:     attr.Name,
			cjt.TypeColumn:      item.ComponentUID,
			cjt.OrderColumn:     float64(i + 1),
		})
	}
	if _, err := r.store.db.NewInsert().
		Model(&rows).
		TableExpr("?", bun.Ident(cjt.Name)).
		Exec(ctx); err != nil {
		return fmt.Errorf("bunstore: insert %s: %w", cjt.Name, err)
	}
	return nil
}
