package memory

import (
	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// populateEntry materializes the requested linked structures onto shaped.
// Callers hold the store lock.
func (r *repository) populateEntry(model *schema.Model, row, shaped storage.Entry, populate storage.Populate) error {
	if len(populate) == 0 {
		return nil
	}
	id, ok := storage.AsID(row[domain.FieldID])
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
			value, err := r.populateRelation(model, attr, id, node)
			if err != nil {
				return err
			}
			shaped[field] = value
		case attr.IsNested():
			value, err := r.populateComponents(model, attr, id, node)
			if err != nil {
				return err
			}
			shaped[field] = value
		}
	}
	return nil
}

func (r *repository) populateRelation(model *schema.Model, attr schema.Attribute, id int64, node *storage.PopulateNode) (any, error) {
	jt, ok := r.store.registry.RelationJoinTable(model, attr)
	if !ok {
		return nil, nil
	}
	targetModel, err := r.store.registry.GetModel(attr.Target)
	if err != nil {
		return nil, err
	}
	targetRepo := &repository{store: r.store, uid: attr.Target}
	targetTable := r.store.tables[attr.Target]

	var entries []storage.Entry
	for _, joinRow := range sourceRows(r.store.joins[jt.Name], jt, id) {
		targetID, ok := storage.AsID(joinRow[jt.TargetColumn])
		if !ok {
			continue
		}
		target, ok := targetTable[targetID]
		if !ok {
			continue
		}
		shaped := projectEntry(target, nodeSelect(node))
		if node != nil {
			if err := targetRepo.populateEntry(targetModel, target, shaped, node.Populate); err != nil {
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

func (r *repository) populateComponents(model *schema.Model, attr schema.Attribute, id int64, node *storage.PopulateNode) (any, error) {
	cjt := schema.ComponentsJoinTable(model)

	var pivots []storage.JoinRow
	for _, row := range r.store.joins[cjt.Name] {
		owner, _ := storage.AsID(row[cjt.EntityColumn])
		if owner == id && row[cjt.FieldColumn] == attr.Name {
			pivots = append(pivots, row)
		}
	}
	sortJoinRows(pivots, cjt.OrderColumn)

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
		instance, ok := r.store.tables[componentUID][componentID]
		if !ok {
			continue
		}

		sub := node
		if attr.Kind == schema.KindDynamicZone && node != nil && node.On != nil {
			sub = node.On[componentUID]
			if sub == nil && len(node.On) > 0 {
				continue // zone narrowed to specific component types
			}
		}

		shaped := projectEntry(instance, nodeSelect(sub))
		if attr.Kind == schema.KindDynamicZone {
			shaped["__component"] = componentUID
		}
		componentRepo := &repository{store: r.store, uid: componentUID}
		if sub != nil {
			if err := componentRepo.populateEntry(componentModel, instance, shaped, sub.Populate); err != nil {
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
