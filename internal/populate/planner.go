// Package populate derives, from a schema, the traversal needed to fully
// materialize an entry: relations, media, components, and dynamic zones.
// Lifecycle operations use the plan to copy versions and to shape the entry
// handed to event listeners.
package populate

import (
	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// Planner builds populate trees with cycle protection over the component
// graph.
type Planner struct {
	registry *schema.Registry
}

// NewPlanner constructs a planner over the registry.
func NewPlanner(registry *schema.Registry) *Planner {
	return &Planner{registry: registry}
}

// relationSelect is the minimal projection loaded for related entries: just
// enough identity to re-resolve the reference in another status or locale.
var relationSelect = []string{domain.FieldID, domain.FieldDocumentID, domain.FieldLocale}

// Plan derives the full populate tree for uid. Cyclic component graphs are a
// configuration error, surfaced as schema.ErrComponentCycle.
func (p *Planner) Plan(uid string) (storage.Populate, error) {
	model, err := p.registry.GetModel(uid)
	if err != nil {
		return nil, err
	}
	return p.plan(model, schema.NewPath())
}

func (p *Planner) plan(model *schema.Model, path *schema.Path) (storage.Populate, error) {
	populate := storage.Populate{}

	for _, attr := range model.Attributes {
		switch {
		case attr.IsMorph():
			// Morph relations are consumed by generic code elsewhere and are
			// not materialized here.
		case attr.Hidden && !isAuditField(attr.Name):
			// Hidden attributes stay out of the plan except the owner/editor
			// audit relations, which events always carry.
		case attr.Kind == schema.KindRelation:
			populate[attr.Name] = &storage.PopulateNode{Select: relationSelect}
		case attr.Kind == schema.KindMedia:
			populate[attr.Name] = &storage.PopulateNode{Select: []string{domain.FieldID}}
		case attr.Kind == schema.KindComponent:
			node, err := p.componentNode(attr.Component, path)
			if err != nil {
				return nil, err
			}
			populate[attr.Name] = node
		case attr.Kind == schema.KindDynamicZone:
			on := make(map[string]*storage.PopulateNode, len(attr.Components))
			for _, componentUID := range attr.Components {
				node, err := p.componentNode(componentUID, path)
				if err != nil {
					return nil, err
				}
				on[componentUID] = node
			}
			populate[attr.Name] = &storage.PopulateNode{On: on}
		}
	}
	return populate, nil
}

func (p *Planner) componentNode(uid string, path *schema.Path) (*storage.PopulateNode, error) {
	if err := path.Enter(uid); err != nil {
		return nil, err
	}
	defer path.Leave(uid)

	model, err := p.registry.GetModel(uid)
	if err != nil {
		return nil, err
	}
	nested, err := p.plan(model, path)
	if err != nil {
		return nil, err
	}
	return &storage.PopulateNode{Populate: nested}, nil
}

func isAuditField(name string) bool {
	return name == domain.FieldCreatedBy || name == domain.FieldUpdatedBy
}
