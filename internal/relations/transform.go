package relations

import (
	"context"

	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// LocaleService is the locale collaborator the pipeline resolves default
// locales through.
type LocaleService interface {
	GetDefaultLocale(ctx context.Context) (string, error)
}

// Options configures one pipeline run.
type Options struct {
	// Locale is the source operation's locale ("" when not localized).
	Locale string
	// Status is the source operation's publication status when one is known.
	Status      domain.Status
	StatusKnown bool
	// Strict turns unresolved connect targets into validation errors instead
	// of dropping them.
	Strict bool
	// AllowMissing tolerates unresolved set references, used when
	// reconstructing a draft/published counterpart whose targets may not
	// exist yet in the destination status.
	AllowMissing bool
}

// Pipeline rewrites payload relation references between logical document ids
// and physical row ids. Resolution is two-pass so storage lookups batch: an
// extract pass registers every reference with an IDMap, then a transform pass
// substitutes the loaded ids. Running the pipeline on an already-transformed
// payload is a no-op because physical ids pass through unchanged.
type Pipeline struct {
	registry *schema.Registry
	locales  LocaleService
}

// NewPipeline constructs a pipeline over the supplied registry and locale
// collaborator.
func NewPipeline(registry *schema.Registry, locales LocaleService) *Pipeline {
	return &Pipeline{registry: registry, locales: locales}
}

// Resolve runs both passes with a fresh IDMap bound to store.
func (p *Pipeline) Resolve(ctx context.Context, store storage.Store, uid string, data map[string]any, opts Options) (map[string]any, error) {
	idMap := NewIDMap(store)
	if err := p.Extract(ctx, idMap, uid, data, opts); err != nil {
		return nil, err
	}
	if err := idMap.Load(ctx); err != nil {
		return nil, err
	}
	return p.Transform(ctx, idMap, uid, data, opts)
}

// Extract walks data and registers every logical relation reference with
// idMap, after computing the target locale and status set each must resolve
// against. Physical ids register nothing.
func (p *Pipeline) Extract(ctx context.Context, idMap *IDMap, uid string, data map[string]any, opts Options) error {
	model, err := p.registry.GetModel(uid)
	if err != nil {
		return err
	}
	defaultLocale, err := p.defaultLocale(ctx)
	if err != nil {
		return err
	}
	source := SourceContext{Model: model, Locale: opts.Locale, Status: opts.Status, StatusKnown: opts.StatusKnown}
	return p.walk(model, data, func(attr schema.Attribute, raw any) (any, bool, error) {
		value, err := ParseValue(raw)
		if err != nil {
			return nil, false, err
		}
		target, err := p.registry.GetModel(attr.Target)
		if err != nil {
			return nil, false, err
		}
		err = value.EachRef(func(ref *Ref, _ RefKind) error {
			if ref.IsPhysical() {
				return nil
			}
			locale, statuses, err := p.resolveRef(ref, source, target, defaultLocale)
			if err != nil {
				return err
			}
			for _, status := range statuses {
				idMap.Add(Key{UID: attr.Target, DocumentID: ref.DocumentID, Locale: locale, Status: status})
			}
			return nil
		})
		return nil, false, err
	})
}

// Transform re-walks data and returns a new tree whose relation references
// are rewritten to physical ids resolved through idMap. Get must follow a
// Load; a reference that was never registered fails with ErrMapNotLoaded.
func (p *Pipeline) Transform(ctx context.Context, idMap *IDMap, uid string, data map[string]any, opts Options) (map[string]any, error) {
	model, err := p.registry.GetModel(uid)
	if err != nil {
		return nil, err
	}
	defaultLocale, err := p.defaultLocale(ctx)
	if err != nil {
		return nil, err
	}
	source := SourceContext{Model: model, Locale: opts.Locale, Status: opts.Status, StatusKnown: opts.StatusKnown}

	out, err := p.rewrite(model, data, func(attr schema.Attribute, raw any) (any, bool, error) {
		value, err := ParseValue(raw)
		if err != nil {
			return nil, false, err
		}
		target, err := p.registry.GetModel(attr.Target)
		if err != nil {
			return nil, false, err
		}
		rebuilt, err := value.Rebuild(func(ref *Ref, kind RefKind) ([]int64, error) {
			return p.resolveIDs(idMap, ref, kind, source, target, defaultLocale, opts)
		})
		if err != nil {
			return nil, false, err
		}
		return rebuilt, true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) resolveIDs(idMap *IDMap, ref *Ref, kind RefKind, source SourceContext, target *schema.Model, defaultLocale string, opts Options) ([]int64, error) {
	if ref.IsPhysical() {
		return []int64{ref.ID}, nil
	}

	locale, statuses, err := p.resolveRef(ref, source, target, defaultLocale)
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, status := range statuses {
		loaded, ok := idMap.Get(Key{UID: target.UID, DocumentID: ref.DocumentID, Locale: locale, Status: status})
		if !ok {
			return nil, ErrMapNotLoaded
		}
		ids = append(ids, loaded...)
	}
	if len(ids) > 0 {
		return ids, nil
	}

	switch kind {
	case RefPosition, RefDisconnect:
		return nil, nil
	case RefConnect:
		if opts.Strict {
			return nil, &DocumentNotFoundError{UID: target.UID, DocumentID: ref.DocumentID, Locale: locale}
		}
		return nil, nil
	default:
		if opts.AllowMissing {
			return nil, nil
		}
		return nil, &DocumentNotFoundError{UID: target.UID, DocumentID: ref.DocumentID, Locale: locale}
	}
}

func (p *Pipeline) resolveRef(ref *Ref, source SourceContext, target *schema.Model, defaultLocale string) (string, []domain.Status, error) {
	refLocale := ""
	if ref.HasLocale {
		refLocale = ref.Locale
	}
	locale, err := ResolveTargetLocale(refLocale, source, target, defaultLocale)
	if err != nil {
		return "", nil, err
	}
	return locale, ResolveTargetStatuses(ref.Status, source, target), nil
}

func (p *Pipeline) defaultLocale(ctx context.Context) (string, error) {
	if p.locales == nil {
		return "", nil
	}
	return p.locales.GetDefaultLocale(ctx)
}

// visitFn handles one relation-kind attribute value. The boolean result
// reports whether the returned value should replace the original.
type visitFn func(attr schema.Attribute, raw any) (any, bool, error)

// walk visits every relation attribute in data, descending into component and
// dynamic-zone payloads. Morph relations are skipped.
func (p *Pipeline) walk(model *schema.Model, data map[string]any, visit visitFn) error {
	_, err := p.traverse(model, data, visit, false)
	return err
}

// rewrite is walk returning a new tree; input maps are never mutated.
func (p *Pipeline) rewrite(model *schema.Model, data map[string]any, visit visitFn) (map[string]any, error) {
	return p.traverse(model, data, visit, true)
}

func (p *Pipeline) traverse(model *schema.Model, data map[string]any, visit visitFn, copyTree bool) (map[string]any, error) {
	var out map[string]any
	if copyTree {
		out = make(map[string]any, len(data))
		for key, value := range data {
			out[key] = value
		}
	}

	for key, raw := range data {
		attr, ok := model.Attribute(key)
		if !ok {
			continue
		}
		switch {
		case attr.IsMorph():
			// consumed by generic code elsewhere
		case attr.Kind == schema.KindRelation, attr.Kind == schema.KindMedia:
			if attr.Target == "" {
				return nil, ErrTargetModelRequired
			}
			replacement, replace, err := visit(attr, raw)
			if err != nil {
				return nil, err
			}
			if copyTree && replace {
				out[key] = replacement
			}
		case attr.IsNested():
			rewritten, err := p.traverseNested(attr, raw, visit, copyTree)
			if err != nil {
				return nil, err
			}
			if copyTree {
				out[key] = rewritten
			}
		}
	}
	if copyTree {
		return out, nil
	}
	return data, nil
}

func (p *Pipeline) traverseNested(attr schema.Attribute, raw any, visit visitFn, copyTree bool) (any, error) {
	if raw == nil {
		return nil, nil
	}

	items, scalar := toItemList(raw)
	rewritten := make([]any, 0, len(items))
	for _, item := range items {
		nested, ok := item.(map[string]any)
		if !ok {
			rewritten = append(rewritten, item)
			continue
		}
		componentUID := attr.Component
		if attr.Kind == schema.KindDynamicZone {
			componentUID, _ = nested["__component"].(string)
		}
		componentModel, err := p.registry.GetModel(componentUID)
		if err != nil {
			return nil, err
		}
		next, err := p.traverse(componentModel, nested, visit, copyTree)
		if err != nil {
			return nil, err
		}
		if copyTree {
			rewritten = append(rewritten, next)
		} else {
			rewritten = append(rewritten, nested)
		}
	}

	if !copyTree {
		return raw, nil
	}
	if scalar {
		return rewritten[0], nil
	}
	return rewritten, nil
}

func toItemList(raw any) ([]any, bool) {
	if list, ok := raw.([]any); ok {
		return list, false
	}
	return []any{raw}, true
}
