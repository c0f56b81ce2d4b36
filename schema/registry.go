package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry resolves model definitions by UID. It is immutable after
// construction; lifecycle, cascade, and repair services share one instance.
type Registry struct {
	models map[string]*Model
	order  []string
}

// NewRegistry builds a registry from in-process model values. Relation and
// component targets are checked against the registered set so dangling UIDs
// fail at construction instead of mid-operation.
func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{models: make(map[string]*Model, len(models))}

	for _, model := range models {
		if model == nil {
			return nil, ErrModelRequired
		}
		if model.UID == "" {
			return nil, ErrModelUIDRequired
		}
		if _, exists := r.models[model.UID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrModelDuplicate, model.UID)
		}
		if model.Kind == "" {
			model.Kind = ModelContentType
		}
		r.models[model.UID] = model
		r.order = append(r.order, model.UID)
	}

	for _, model := range models {
		if err := r.checkTargets(model); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) checkTargets(model *Model) error {
	for _, attr := range model.Attributes {
		switch attr.Kind {
		case KindRelation:
			if attr.IsMorph() {
				continue
			}
			if attr.Target == "" {
				return fmt.Errorf("%w: %s.%s relation target missing", ErrAttributeInvalid, model.UID, attr.Name)
			}
			if _, ok := r.models[attr.Target]; !ok {
				return fmt.Errorf("%w: %s.%s targets unknown model %s", ErrAttributeInvalid, model.UID, attr.Name, attr.Target)
			}
		case KindComponent:
			if _, ok := r.models[attr.Component]; !ok {
				return fmt.Errorf("%w: %s.%s uses unknown component %s", ErrAttributeInvalid, model.UID, attr.Name, attr.Component)
			}
		case KindDynamicZone:
			if len(attr.Components) == 0 {
				return fmt.Errorf("%w: %s.%s dynamic zone lists no components", ErrAttributeInvalid, model.UID, attr.Name)
			}
			for _, uid := range attr.Components {
				if _, ok := r.models[uid]; !ok {
					return fmt.Errorf("%w: %s.%s lists unknown component %s", ErrAttributeInvalid, model.UID, attr.Name, uid)
				}
			}
		}
	}
	return nil
}

// GetModel returns the definition registered under uid.
func (r *Registry) GetModel(uid string) (*Model, error) {
	model, ok := r.models[uid]
	if !ok {
		return nil, &ModelNotFoundError{UID: uid}
	}
	return model, nil
}

// Models returns every registered model in registration order.
func (r *Registry) Models() []*Model {
	out := make([]*Model, 0, len(r.order))
	for _, uid := range r.order {
		out = append(out, r.models[uid])
	}
	return out
}

// ContentTypes returns the addressable models.
func (r *Registry) ContentTypes() []*Model {
	return r.byKind(ModelContentType)
}

// Components returns the nested component models.
func (r *Registry) Components() []*Model {
	return r.byKind(ModelComponent)
}

func (r *Registry) byKind(kind ModelKind) []*Model {
	var out []*Model
	for _, uid := range r.order {
		if model := r.models[uid]; model.Kind == kind {
			out = append(out, model)
		}
	}
	return out
}

// UIDs returns the registered UIDs sorted for stable iteration in sweeps.
func (r *Registry) UIDs() []string {
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}

// definitionSchema is the meta-schema every JSON model definition document
// must satisfy before it is decoded into Model values.
const definitionSchema = `
{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "ModelDefinitions",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["uid", "attributes"],
    "properties": {
      "uid": {"type": "string", "minLength": 1},
      "kind": {"enum": ["contentType", "component", ""]},
      "collectionName": {"type": "string"},
      "options": {
        "type": "object",
        "properties": {
          "draftAndPublish": {"type": "boolean"},
          "localized": {"type": "boolean"}
        },
        "additionalProperties": false
      },
      "attributes": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["name", "kind"],
          "properties": {
            "name": {"type": "string", "minLength": 1},
            "kind": {"type": "string", "minLength": 1},
            "relation": {"type": "string"},
            "target": {"type": "string"},
            "inversedBy": {"type": "string"},
            "mappedBy": {"type": "string"},
            "component": {"type": "string"},
            "components": {"type": "array", "items": {"type": "string"}},
            "repeatable": {"type": "boolean"},
            "required": {"type": "boolean"},
            "hidden": {"type": "boolean"}
          },
          "additionalProperties": false
        }
      }
    },
    "additionalProperties": false
  }
}
`

var compiledDefinitionSchema = jsonschema.MustCompileString("model-definitions.json", definitionSchema)

// NewRegistryFromJSON validates a JSON definition document against the
// meta-schema and builds a registry from it. Host applications use this to
// load schema files authored outside the Go process.
func NewRegistryFromJSON(data []byte) (*Registry, error) {
	var doc any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDefinitionInvalid, err)
	}
	if err := compiledDefinitionSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDefinitionInvalid, err)
	}

	var models []*Model
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDefinitionInvalid, err)
	}
	return NewRegistry(models...)
}
