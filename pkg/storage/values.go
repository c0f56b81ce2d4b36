package storage

import (
	"fmt"

	"github.com/goliatone/go-documents/schema"
)

// RelationOps is the decoded write instruction for one relation attribute.
// Plain values decode as a full replace; op maps decode into their parts.
type RelationOps struct {
	Set        []int64
	Replace    bool
	Connect    []ConnectTarget
	Disconnect []int64
}

// ConnectTarget is one connect instruction, optionally anchored before or
// after an already-linked target id.
type ConnectTarget struct {
	ID     int64
	Before int64
	After  int64
}

// DecodeRelationValue interprets a relation attribute value. Values must
// already carry physical ids; nil clears the relation.
func DecodeRelationValue(value any) (RelationOps, error) {
	var ops RelationOps

	if value == nil {
		ops.Replace = true
		return ops, nil
	}

	if raw, ok := value.(map[string]any); ok {
		_, hasSet := raw["set"]
		_, hasConnect := raw["connect"]
		_, hasDisconnect := raw["disconnect"]
		if hasSet || hasConnect || hasDisconnect {
			if hasSet {
				ids, err := decodeTargets(raw["set"])
				if err != nil {
					return ops, err
				}
				ops.Set = ids
				ops.Replace = true
			}
			if hasConnect {
				targets, err := decodeConnects(raw["connect"])
				if err != nil {
					return ops, err
				}
				ops.Connect = targets
			}
			if hasDisconnect {
				ids, err := decodeTargets(raw["disconnect"])
				if err != nil {
					return ops, err
				}
				ops.Disconnect = ids
			}
			return ops, nil
		}
	}

	ids, err := decodeTargets(value)
	if err != nil {
		return ops, err
	}
	ops.Set = ids
	ops.Replace = true
	return ops, nil
}

func decodeTargets(value any) ([]int64, error) {
	if value == nil {
		return nil, nil
	}
	if list, ok := value.([]any); ok {
		var out []int64
		for _, item := range list {
			ids, err := decodeTargets(item)
			if err != nil {
				return nil, err
			}
			out = append(out, ids...)
		}
		return out, nil
	}
	if raw, ok := value.(map[string]any); ok {
		id, ok := AsID(raw["id"])
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrRelationValue, raw)
		}
		return []int64{id}, nil
	}
	if id, ok := AsID(value); ok {
		return []int64{id}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrRelationValue, value)
}

func decodeConnects(value any) ([]ConnectTarget, error) {
	if value == nil {
		return nil, nil
	}
	list, ok := value.([]any)
	if !ok {
		list = []any{value}
	}
	var out []ConnectTarget
	for _, item := range list {
		if raw, ok := item.(map[string]any); ok {
			id, ok := AsID(raw["id"])
			if !ok {
				return nil, fmt.Errorf("%w: connect item %v", ErrRelationValue, raw)
			}
			target := ConnectTarget{ID: id}
			if pos, ok := raw["position"].(map[string]any); ok {
				if before, ok := AsID(pos["before"]); ok {
					target.Before = before
				}
				if after, ok := AsID(pos["after"]); ok {
					target.After = after
				}
			}
			out = append(out, target)
			continue
		}
		id, ok := AsID(item)
		if !ok {
			return nil, fmt.Errorf("%w: connect item %T", ErrRelationValue, item)
		}
		out = append(out, ConnectTarget{ID: id})
	}
	return out, nil
}

// PivotItem is one decoded component ownership descriptor.
type PivotItem struct {
	ID           int64
	ComponentUID string
}

// DecodePivots interprets a component or dynamic-zone attribute value as a
// list of pivot descriptors. The component type comes from the zone item's
// "__component" marker, the descriptor's "__pivot" metadata, or the
// attribute's declared component, in that order.
func DecodePivots(attr schema.Attribute, value any) ([]PivotItem, error) {
	if value == nil {
		return nil, nil
	}
	list, ok := value.([]any)
	if !ok {
		list = []any{value}
	}

	var out []PivotItem
	for _, raw := range list {
		descriptor, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrPivotValue, raw)
		}
		id, ok := AsID(descriptor["id"])
		if !ok {
			return nil, fmt.Errorf("%w: missing id in %v", ErrPivotValue, descriptor)
		}

		componentUID := attr.Component
		if attr.Kind == schema.KindDynamicZone {
			componentUID, _ = descriptor["__component"].(string)
		} else if pivot, ok := descriptor["__pivot"].(map[string]any); ok {
			if uid, ok := pivot["component_type"].(string); ok && uid != "" {
				componentUID = uid
			}
		}
		if componentUID == "" {
			return nil, fmt.Errorf("%w: no component type for %v", ErrPivotValue, descriptor)
		}
		out = append(out, PivotItem{ID: id, ComponentUID: componentUID})
	}
	return out, nil
}
