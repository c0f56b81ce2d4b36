package documents

import (
	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// payloadFromEntry converts a deep-populated entry into the payload that
// re-creates the same logical content as another version. Relation and media
// values become documentId references so the transform pipeline re-resolves
// them against the destination status; component instances lose their ids so
// the cascade creates fresh rows owned by the new parent.
func payloadFromEntry(registry *schema.Registry, model *schema.Model, entry storage.Entry) (map[string]any, error) {
	out := make(map[string]any, len(entry))
	for key, value := range entry {
		if domain.IsReservedField(key) && key != domain.FieldCreatedBy && key != domain.FieldUpdatedBy {
			continue
		}

		attr, ok := model.Attribute(key)
		if !ok || attr.Kind.IsScalar() {
			out[key] = value
			continue
		}

		switch {
		case attr.IsMorph():
			out[key] = value
		case attr.Kind == schema.KindRelation, attr.Kind == schema.KindMedia:
			out[key] = relationRefs(value)
		case attr.IsNested():
			converted, err := componentPayload(registry, attr, value)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
	}
	return out, nil
}

// relationRefs rewrites a populated relation value into {"set": [refs]} where
// each ref addresses the target by documentId and locale. The destination
// status stays implicit: the pipeline resolves it from the new source context.
func relationRefs(value any) any {
	if value == nil {
		return nil
	}

	var targets []storage.Entry
	switch v := value.(type) {
	case []storage.Entry:
		targets = v
	case []any:
		for _, item := range v {
			if entry, ok := item.(map[string]any); ok {
				targets = append(targets, entry)
			}
		}
	case map[string]any:
		targets = []storage.Entry{v}
	default:
		return nil
	}

	refs := make([]any, 0, len(targets))
	for _, target := range targets {
		docID, _ := target[domain.FieldDocumentID].(string)
		if docID == "" {
			// Targets without a logical identity keep their physical id.
			if id, ok := storage.AsID(target[domain.FieldID]); ok {
				refs = append(refs, id)
			}
			continue
		}
		ref := map[string]any{"documentId": docID}
		if locale, ok := target[domain.FieldLocale].(string); ok && locale != "" {
			ref["locale"] = locale
		}
		refs = append(refs, ref)
	}
	return map[string]any{"set": refs}
}

func componentPayload(registry *schema.Registry, attr schema.Attribute, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	convert := func(instance map[string]any) (map[string]any, error) {
		uid := attr.Component
		if attr.Kind == schema.KindDynamicZone {
			uid, _ = instance["__component"].(string)
		}
		componentModel, err := registry.GetModel(uid)
		if err != nil {
			return nil, err
		}
		converted, err := payloadFromEntry(registry, componentModel, instance)
		if err != nil {
			return nil, err
		}
		if attr.Kind == schema.KindDynamicZone {
			converted["__component"] = uid
		}
		delete(converted, "__pivot")
		return converted, nil
	}

	switch v := value.(type) {
	case map[string]any:
		return convert(v)
	case []storage.Entry:
		items := make([]any, 0, len(v))
		for _, instance := range v {
			converted, err := convert(instance)
			if err != nil {
				return nil, err
			}
			items = append(items, converted)
		}
		return items, nil
	case []any:
		items := make([]any, 0, len(v))
		for _, raw := range v {
			instance, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			converted, err := convert(instance)
			if err != nil {
				return nil, err
			}
			items = append(items, converted)
		}
		return items, nil
	}
	return nil, nil
}
