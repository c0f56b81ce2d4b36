package memory

import (
	"fmt"

	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// writePivots replaces the ownership pivot rows for one component or
// dynamic-zone attribute. Instances themselves are created and destroyed by
// the cascade manager; the store only records ownership and order.
func (r *repository) writePivots(model *schema.Model, attr schema.Attribute, entryID int64, value any) error {
	cjt := schema.ComponentsJoinTable(model)
	rows := r.store.joins[cjt.Name]

	out := rows[:0]
	for _, row := range rows {
		owner, _ := storage.AsID(row[cjt.EntityColumn])
		if owner == entryID && row[cjt.FieldColumn] == attr.Name {
			continue
		}
		out = append(out, row)
	}
	rows = out

	items, err := storage.DecodePivots(attr, value)
	if err != nil {
		return err
	}

	for i, item := range items {
		componentTable, ok := r.store.tables[item.ComponentUID]
		if !ok {
			return fmt.Errorf("%w: %s references missing %s", storage.ErrPivotValue, attr.Name, item.ComponentUID)
		}
		if _, ok := componentTable[item.ID]; !ok {
			return fmt.Errorf("%w: %s instance %d does not exist", storage.ErrPivotValue, item.ComponentUID, item.ID)
		}
		rows = append(rows, storage.JoinRow{
			cjt.EntityColumn:    entryID,
			cjt.ComponentColumn: item.ID,
			cjt.FieldColumn:     attr.Name,
			cjt.TypeColumn:      item.ComponentUID,
			cjt.OrderColumn:     float64(i + 1),
		})
	}

	r.store.joins[cjt.Name] = rows
	return nil
}
