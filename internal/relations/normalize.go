package relations

import (
	"fmt"

	"github.com/goliatone/go-documents/pkg/storage"
)

// Ref is the long-hand canonical form of one relation reference. Either ID is
// set (the input already carried a physical row id and passes through
// untouched) or DocumentID names a logical document to resolve.
type Ref struct {
	ID         int64
	DocumentID string
	Locale     string
	HasLocale  bool
	Status     string
	Position   *Position
}

// Position anchors a connect entry relative to another reference.
type Position struct {
	Before *Ref
	After  *Ref
}

// IsPhysical reports whether the reference is already resolved.
func (r *Ref) IsPhysical() bool {
	return r.ID != 0
}

// RefKind tells a resolver which syntactic slot a reference occupies, since
// unresolved references are fatal in some slots and no-ops in others.
type RefKind int

const (
	// RefSet covers bare values, arrays, and explicit set lists.
	RefSet RefKind = iota
	// RefConnect covers connect entries; unresolved targets are dropped.
	RefConnect
	// RefDisconnect covers disconnect entries; unresolved targets are no-ops.
	RefDisconnect
	// RefPosition covers before/after anchors; these must resolve.
	RefPosition
)

// Resolver maps one canonical reference to its physical id(s). An empty
// result means the reference resolved to nothing.
type Resolver func(ref *Ref, kind RefKind) ([]int64, error)

// Value is the canonical tree parsed from any of the surface syntaxes a
// relation value can take.
type Value struct {
	Null        bool
	Plain       []*Ref
	PlainScalar bool
	HasSet      bool
	Set         []*Ref
	Connect     []*Ref
	Disconnect  []*Ref
	isOps       bool
}

// ParseValue normalizes a raw relation payload value. Accepted forms: nil,
// bare id/documentId, {id}/{documentId, locale?, status?}, arrays of those,
// or {set, connect, disconnect} where connect entries may carry a position.
func ParseValue(raw any) (*Value, error) {
	if raw == nil {
		return &Value{Null: true}, nil
	}

	if ops, ok := raw.(map[string]any); ok {
		_, hasSet := ops["set"]
		_, hasConnect := ops["connect"]
		_, hasDisconnect := ops["disconnect"]
		if hasSet || hasConnect || hasDisconnect {
			value := &Value{isOps: true, HasSet: hasSet}
			var err error
			if hasSet {
				if value.Set, err = parseRefList(ops["set"], false); err != nil {
					return nil, err
				}
			}
			if hasConnect {
				if value.Connect, err = parseRefList(ops["connect"], true); err != nil {
					return nil, err
				}
			}
			if hasDisconnect {
				if value.Disconnect, err = parseRefList(ops["disconnect"], false); err != nil {
					return nil, err
				}
			}
			return value, nil
		}
	}

	if list, ok := raw.([]any); ok {
		refs, err := parseRefList(list, false)
		if err != nil {
			return nil, err
		}
		return &Value{Plain: refs}, nil
	}

	ref, err := parseRef(raw, false)
	if err != nil {
		return nil, err
	}
	return &Value{Plain: []*Ref{ref}, PlainScalar: true}, nil
}

func parseRefList(raw any, allowPosition bool) ([]*Ref, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		list = []any{raw}
	}
	refs := make([]*Ref, 0, len(list))
	for _, item := range list {
		ref, err := parseRef(item, allowPosition)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseRef(raw any, allowPosition bool) (*Ref, error) {
	switch value := raw.(type) {
	case string:
		if value == "" {
			return nil, fmt.Errorf("%w: empty document id", ErrReferenceMalformed)
		}
		return &Ref{DocumentID: value}, nil
	case map[string]any:
		ref := &Ref{}
		if id, ok := storage.AsID(value["id"]); ok {
			ref.ID = id
		} else if docID, ok := value["documentId"].(string); ok && docID != "" {
			ref.DocumentID = docID
		} else {
			return nil, fmt.Errorf("%w: %v", ErrReferenceMalformed, value)
		}
		if locale, ok := value["locale"].(string); ok {
			ref.Locale = locale
			ref.HasLocale = true
		}
		if status, ok := value["status"].(string); ok {
			ref.Status = status
		}
		if allowPosition {
			position, err := parsePosition(value["position"])
			if err != nil {
				return nil, err
			}
			ref.Position = position
		}
		return ref, nil
	default:
		if id, ok := storage.AsID(raw); ok {
			return &Ref{ID: id}, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrReferenceMalformed, raw)
}

func parsePosition(raw any) (*Position, error) {
	if raw == nil {
		return nil, nil
	}
	value, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: position %T", ErrReferenceMalformed, raw)
	}
	position := &Position{}
	if before, ok := value["before"]; ok && before != nil {
		ref, err := parseRef(before, false)
		if err != nil {
			return nil, err
		}
		if locale, ok := value["locale"].(string); ok && !ref.HasLocale {
			ref.Locale = locale
			ref.HasLocale = true
		}
		position.Before = ref
	}
	if after, ok := value["after"]; ok && after != nil {
		ref, err := parseRef(after, false)
		if err != nil {
			return nil, err
		}
		if locale, ok := value["locale"].(string); ok && !ref.HasLocale {
			ref.Locale = locale
			ref.HasLocale = true
		}
		position.After = ref
	}
	if position.Before == nil && position.After == nil {
		return nil, nil
	}
	return position, nil
}

// EachRef visits every reference in the value, including positional anchors.
func (v *Value) EachRef(fn func(ref *Ref, kind RefKind) error) error {
	visit := func(refs []*Ref, kind RefKind) error {
		for _, ref := range refs {
			if err := fn(ref, kind); err != nil {
				return err
			}
			if ref.Position != nil {
				if ref.Position.Before != nil {
					if err := fn(ref.Position.Before, RefPosition); err != nil {
						return err
					}
				}
				if ref.Position.After != nil {
					if err := fn(ref.Position.After, RefPosition); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	if err := visit(v.Plain, RefSet); err != nil {
		return err
	}
	if err := visit(v.Set, RefSet); err != nil {
		return err
	}
	if err := visit(v.Connect, RefConnect); err != nil {
		return err
	}
	return visit(v.Disconnect, RefDisconnect)
}

// Rebuild produces a value tree mirroring the input shape with physical ids
// substituted. A scalar stays scalar unless a logical reference fans out to
// several physical rows, in which case it becomes an array.
func (v *Value) Rebuild(resolve Resolver) (any, error) {
	if v.Null {
		return nil, nil
	}

	if !v.isOps {
		ids, err := resolveAll(v.Plain, RefSet, resolve)
		if err != nil {
			return nil, err
		}
		if v.PlainScalar && len(ids) <= 1 {
			if len(ids) == 0 {
				return nil, nil
			}
			return ids[0], nil
		}
		return idsToAny(ids), nil
	}

	out := map[string]any{}
	if v.HasSet {
		ids, err := resolveAll(v.Set, RefSet, resolve)
		if err != nil {
			return nil, err
		}
		out["set"] = idsToAny(ids)
	}
	if v.Connect != nil {
		entries, err := rebuildConnect(v.Connect, resolve)
		if err != nil {
			return nil, err
		}
		out["connect"] = entries
	}
	if v.Disconnect != nil {
		ids, err := resolveAll(v.Disconnect, RefDisconnect, resolve)
		if err != nil {
			return nil, err
		}
		out["disconnect"] = idsToAny(ids)
	}
	return out, nil
}

func rebuildConnect(refs []*Ref, resolve Resolver) ([]any, error) {
	entries := make([]any, 0, len(refs))
	for _, ref := range refs {
		ids, err := resolve(ref, RefConnect)
		if err != nil {
			return nil, err
		}
		var position map[string]any
		if ref.Position != nil {
			position = map[string]any{}
			if ref.Position.Before != nil {
				anchor, err := resolveAnchor(ref.Position.Before, resolve)
				if err != nil {
					return nil, err
				}
				position["before"] = anchor
			}
			if ref.Position.After != nil {
				anchor, err := resolveAnchor(ref.Position.After, resolve)
				if err != nil {
					return nil, err
				}
				position["after"] = anchor
			}
		}
		for _, id := range ids {
			entry := map[string]any{"id": id}
			if position != nil {
				entry["position"] = position
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func resolveAnchor(ref *Ref, resolve Resolver) (int64, error) {
	ids, err := resolve(ref, RefPosition)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, ErrPositionUnresolved
	}
	return ids[0], nil
}

func resolveAll(refs []*Ref, kind RefKind, resolve Resolver) ([]int64, error) {
	var out []int64
	for _, ref := range refs {
		ids, err := resolve(ref, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	return out, nil
}

func idsToAny(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
