// Package components manages the lifecycle of nested structure instances:
// single components, repeatable components, and dynamic zones. Instances are
// owned exclusively by one parent attribute and never outlive it; every
// cascade runs inside the parent operation's transaction so partial cascades
// roll back together.
package components

import (
	"context"
	"fmt"

	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// Manager creates, updates, and deletes component instances together with
// their ownership pivot rows.
type Manager struct {
	registry *schema.Registry
}

// NewManager constructs a cascade manager over the registry.
func NewManager(registry *schema.Registry) *Manager {
	return &Manager{registry: registry}
}

// Create recursively creates the nested instances present in data, innermost
// first, and returns a copy of data whose component attributes hold pivot
// descriptors ready for the parent's own create call.
func (m *Manager) Create(ctx context.Context, store storage.Store, uid string, data map[string]any) (map[string]any, error) {
	model, err := m.registry.GetModel(uid)
	if err != nil {
		return nil, err
	}
	return m.createNested(ctx, store, model, data, schema.NewPath())
}

func (m *Manager) createNested(ctx context.Context, store storage.Store, model *schema.Model, data map[string]any, path *schema.Path) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = value
	}

	for _, attr := range model.Attributes {
		if !attr.IsNested() {
			continue
		}
		raw, present := data[attr.Name]
		if !present {
			continue
		}
		if raw == nil {
			out[attr.Name] = nil
			continue
		}

		items, scalar := toItems(raw)
		pivots := make([]any, 0, len(items))
		for _, item := range items {
			instance, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrValueMalformed, model.UID, attr.Name)
			}
			componentUID, err := componentType(attr, instance)
			if err != nil {
				return nil, err
			}
			id, err := m.createInstance(ctx, store, componentUID, instance, path)
			if err != nil {
				return nil, err
			}
			pivots = append(pivots, pivotDescriptor(attr, componentUID, id))
		}

		if scalar && attr.Kind == schema.KindComponent && !attr.Repeatable {
			out[attr.Name] = pivots[0]
		} else {
			out[attr.Name] = pivots
		}
	}
	return out, nil
}

func (m *Manager) createInstance(ctx context.Context, store storage.Store, uid string, data map[string]any, path *schema.Path) (int64, error) {
	if err := path.Enter(uid); err != nil {
		return 0, err
	}
	defer path.Leave(uid)

	model, err := m.registry.GetModel(uid)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrComponentUnknown, uid)
	}

	body, err := m.createNested(ctx, store, model, data, path)
	if err != nil {
		return 0, err
	}
	delete(body, domain.FieldID)
	delete(body, "__component")

	created, err := store.Query(uid).Create(ctx, body)
	if err != nil {
		return 0, err
	}
	id, ok := storage.AsID(created[domain.FieldID])
	if !ok {
		return 0, fmt.Errorf("%w: %s create returned no id", ErrValueMalformed, uid)
	}
	return id, nil
}

// Update reconciles the nested attributes present in data against the
// instances currently linked to the entry: linked ids missing from the
// keep-set are deleted with their own cascades, items without an id are
// created, and items with an id are updated in place. Keeping an id that was
// never linked to this entry is an integrity failure.
func (m *Manager) Update(ctx context.Context, store storage.Store, uid string, entryID int64, data map[string]any) (map[string]any, error) {
	model, err := m.registry.GetModel(uid)
	if err != nil {
		return nil, err
	}
	return m.updateNested(ctx, store, model, entryID, data, schema.NewPath())
}

func (m *Manager) updateNested(ctx context.Context, store storage.Store, model *schema.Model, entryID int64, data map[string]any, path *schema.Path) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = value
	}

	for _, attr := range model.Attributes {
		if !attr.IsNested() {
			continue
		}
		raw, present := data[attr.Name]
		if !present {
			continue
		}

		previous, err := m.linkedInstances(ctx, store, model, entryID, attr.Name)
		if err != nil {
			return nil, err
		}

		var items []any
		scalar := false
		if raw != nil {
			items, scalar = toItems(raw)
		}

		kept := make(map[int64]struct{}, len(items))
		pivots := make([]any, 0, len(items))
		for _, item := range items {
			instance, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrValueMalformed, model.UID, attr.Name)
			}
			componentUID, err := componentType(attr, instance)
			if err != nil {
				return nil, err
			}

			if id, ok := storage.AsID(instance[domain.FieldID]); ok {
				prevUID, linked := previous[id]
				if !linked || prevUID != componentUID {
					return nil, &NotRelatedError{UID: componentUID, EntryID: entryID, ID: id, Field: attr.Name}
				}
				if err := m.updateInstance(ctx, store, componentUID, id, instance, path); err != nil {
					return nil, err
				}
				kept[id] = struct{}{}
				pivots = append(pivots, pivotDescriptor(attr, componentUID, id))
				continue
			}

			id, err := m.createInstance(ctx, store, componentUID, instance, path)
			if err != nil {
				return nil, err
			}
			pivots = append(pivots, pivotDescriptor(attr, componentUID, id))
		}

		for id, componentUID := range previous {
			if _, keep := kept[id]; keep {
				continue
			}
			if err := m.deleteInstance(ctx, store, componentUID, id); err != nil {
				return nil, err
			}
		}

		switch {
		case raw == nil:
			out[attr.Name] = nil
		case scalar && attr.Kind == schema.KindComponent && !attr.Repeatable:
			out[attr.Name] = pivots[0]
		default:
			out[attr.Name] = pivots
		}
	}
	return out, nil
}

func (m *Manager) updateInstance(ctx context.Context, store storage.Store, uid string, id int64, data map[string]any, path *schema.Path) error {
	if err := path.Enter(uid); err != nil {
		return err
	}
	defer path.Leave(uid)

	model, err := m.registry.GetModel(uid)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrComponentUnknown, uid)
	}

	body, err := m.updateNested(ctx, store, model, id, data, path)
	if err != nil {
		return err
	}
	delete(body, domain.FieldID)
	delete(body, "__component")

	if _, err := store.Query(uid).Update(ctx, id, body); err != nil {
		return err
	}
	return nil
}

// Delete removes every component instance owned by the entry, recursively.
// The entry row itself is the caller's to delete.
func (m *Manager) Delete(ctx context.Context, store storage.Store, uid string, entryID int64) error {
	model, err := m.registry.GetModel(uid)
	if err != nil {
		return err
	}
	for _, attr := range model.Attributes {
		if !attr.IsNested() {
			continue
		}
		linked, err := m.linkedInstances(ctx, store, model, entryID, attr.Name)
		if err != nil {
			return err
		}
		for id, componentUID := range linked {
			if err := m.deleteInstance(ctx, store, componentUID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Manager) deleteInstance(ctx context.Context, store storage.Store, uid string, id int64) error {
	model, err := m.registry.GetModel(uid)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrComponentUnknown, uid)
	}

	// Innermost first: the instance may own components of its own.
	for _, attr := range model.Attributes {
		if !attr.IsNested() {
			continue
		}
		linked, err := m.linkedInstances(ctx, store, model, id, attr.Name)
		if err != nil {
			return err
		}
		for nestedID, nestedUID := range linked {
			if err := m.deleteInstance(ctx, store, nestedUID, nestedID); err != nil {
				return err
			}
		}
	}

	removed, err := store.Query(uid).Delete(ctx, storage.Query{
		Where: map[string]any{domain.FieldID: id},
	})
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s id=%d", ErrInstanceNotFound, uid, id)
	}
	return nil
}

// linkedInstances returns the instance ids currently linked to the entry for
// one attribute, mapped to their component type.
func (m *Manager) linkedInstances(ctx context.Context, store storage.Store, model *schema.Model, entryID int64, field string) (map[int64]string, error) {
	cjt := schema.ComponentsJoinTable(model)
	rows, err := store.JoinTables().Select(ctx, cjt.Name, map[string]any{
		cjt.EntityColumn: entryID,
		cjt.FieldColumn:  field,
	})
	if err != nil {
		return nil, err
	}
	linked := make(map[int64]string, len(rows))
	for _, row := range rows {
		id, ok := storage.AsID(row[cjt.ComponentColumn])
		if !ok {
			continue
		}
		componentUID, _ := row[cjt.TypeColumn].(string)
		linked[id] = componentUID
	}
	return linked, nil
}

func componentType(attr schema.Attribute, instance map[string]any) (string, error) {
	if attr.Kind == schema.KindDynamicZone {
		uid, _ := instance["__component"].(string)
		if uid == "" {
			return "", fmt.Errorf("%w: dynamic zone item missing __component", ErrValueMalformed)
		}
		return uid, nil
	}
	return attr.Component, nil
}

func pivotDescriptor(attr schema.Attribute, componentUID string, id int64) map[string]any {
	if attr.Kind == schema.KindDynamicZone {
		return map[string]any{
			"id":          id,
			"__component": componentUID,
			"__pivot":     map[string]any{"field": attr.Name},
		}
	}
	return map[string]any{
		"id": id,
		"__pivot": map[string]any{
			"field":          attr.Name,
			"component_type": componentUID,
		},
	}
}

func toItems(raw any) ([]any, bool) {
	if list, ok := raw.([]any); ok {
		return list, false
	}
	return []any{raw}, true
}
