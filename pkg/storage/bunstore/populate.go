package bunstore

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// populateEntry materializes the requested linked structures onto entry.
// Each level issues its own queries; the planner bounds depth so the
// per-entry fanout stays small.
func (r *repository) populateEntry(ctx context.Context, model *schema.Model, entry storage.Entry, populate storage.Populate) error {
	if len(populate) == 0 {
		return nil
	}
	id, ok := storage.AsID(entry[domain.FieldID])
	if !ok {
		return nil
	}

	for field, node := range populate {
		attr, found := model.Attribute(field)
		if !found {
			continue
		}
		switch {
		case attr.IsMorph():
			// Polymorphic relations are consumed by generic code elsewhere.
		case attr.Kind == schema.KindRelation, attr.Kind == schema.KindMedia:
			value, err := r.populateRelation(ctx, model, attr, id, node)
			if err != nil {
				return err
			}
			entry[field] = value
		case attr.IsNested():
			value, err := r.populateComponents(ctx, model, attr, id, node)
			if err != nil {
				return err
			}
			entry[field] = value
		}
	}
	return nil
}

func (r *repository) populateRelation(ctx context.Context, model *schema.Model, attr schema.Attribute, id int64, node *storage.PopulateNode) (any, error) {
	jt, ok := r.store.registry.RelationJoinTable(model, attr)
	if !ok {
		return nil, nil
	}
	targetModel, err := r.store.registry.GetModel(attr.Target)
	if err != nil {
		return nil, err
	}
	targetRepo := &repository{store: r.store, uid: attr.Target}

	var targetIDs []int64
	if err := r.store.db.NewSelect().
		Table(jt.Name).
		Column(jt.TargetColumn).
		Where("? = ?", bun.Ident(jt.SourceColumn), id).
		OrderExpr("? ASC", bun.Ident(jt.OrderColumn)).
		Scan(ctx, &targetIDs); err != nil {
		return nil, err
	}

	var entries []storage.Entry
	for _, targetID := range targetIDs {
		sel := r.store.db.NewSelect().
			Table(targetModel.Collection()).
			Where("? = ?", bun.Ident(domain.FieldID), targetID)
		applyColumns(sel, nodeSelect(node))
		var row map[string]any
		if err := sel.Scan(ctx, &row); err != nil {
			continue // dangling link, skip like the memory store does
		}
		shaped := storage.Entry(row)
		if node != nil {
			if err := targetRepo.populateEntry(ctx, targetModel, shaped, node.Populate); err != nil {
				return nil, err
			}
		}
		entries = append(entries, shaped)
	}

	if attr.IsToMany() || (attr.Kind == schema.KindMedia && attr.Repeatable) {
		return entries, nil
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

func (r *repository) populateComponents(ctx context.Context, model *schema.Model, attr schema.Attribute, id int64, node *storage.PopulateNode) (any, error) {
	cjt := schema.ComponentsJoinTable(model)

	var pivots []map[string]any
	if err := r.store.db.NewSelect().
		Table(cjt.Name).
		Where("? = ?", bun.Ident(cjt.EntityColumn), id).
		Where("? = ?", bun.Ident(cjt.FieldColumn), attr.Name).
		OrderExpr("? ASC", bun.Ident(cjt.OrderColumn)).
		Scan(ctx, &pivots); err != nil {
		return nil, err
	}

	var entries []storage.Entry
	for _, pivot := range pivots {
		componentUID, _ := pivot[cjt.TypeColumn].(string)
		componentID, ok := storage.AsID(pivot[cjt.ComponentColumn])
		if !ok {
			continue
		}
		componentModel, err := r.store.registry.GetModel(componentUID)
		if err != nil {
			return nil, err
		}

		sub := node
		if attr.Kind == schema.KindDynamicZone && node != nil && node.On != nil {
			sub = node.On[componentUID]
			if sub == nil && len(node.On) > 0 {
				continue // zone narrowed to specific component types
			}
		}

		sel := r.store.db.NewSelect().
			Table(componentModel.Collection()).
			Where("? = ?", bun.Ident(domain.FieldID), componentID)
		applyColumns(sel, nodeSelect(sub))
		var row map[string]any
		if err := sel.Scan(ctx, &row); err != nil {
			continue
		}
		shaped := storage.Entry(row)
		if attr.Kind == schema.KindDynamicZone {
			shaped["__component"] = componentUID
		}
		componentRepo := &repository{store: r.store, uid: componentUID}
		if sub != nil {
			if err := componentRepo.populateEntry(ctx, componentModel, shaped, sub.Populate); err != nil {
				return nil, err
			}
		}
		entries = append(entries, shaped)
	}

	if attr.Kind == schema.KindComponent && !attr.Repeatable {
		if len(entries) == 0 {
			return nil, nil
		}
		return entries[0], nil
	}
	return entries, nil
}

func nodeSelect(node *storage.PopulateNode) []string {
	if node == nil {
		return nil
	}
	return node.Select
}
