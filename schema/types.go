package schema

import "strings"

// Kind enumerates the attribute kinds understood by the engine. Relation,
// media, component, and dynamic zone attributes drive resolution and cascade
// behaviour; the remaining kinds are scalars persisted verbatim.
type Kind string

const (
	KindString      Kind = "string"
	KindText        Kind = "text"
	KindRichText    Kind = "richtext"
	KindInteger     Kind = "integer"
	KindBigInteger  Kind = "biginteger"
	KindFloat       Kind = "float"
	KindBoolean     Kind = "boolean"
	KindDate        Kind = "date"
	KindDatetime    Kind = "datetime"
	KindJSON        Kind = "json"
	KindEnumeration Kind = "enumeration"
	KindUID         Kind = "uid"
	KindRelation    Kind = "relation"
	KindMedia       Kind = "media"
	KindComponent   Kind = "component"
	KindDynamicZone Kind = "dynamiczone"
)

// IsScalar reports whether the kind stores a plain value with no linked rows.
func (k Kind) IsScalar() bool {
	switch k {
	case KindRelation, KindMedia, KindComponent, KindDynamicZone:
		return false
	}
	return true
}

// ModelKind distinguishes addressable content types from nested components.
type ModelKind string

const (
	ModelContentType ModelKind = "contentType"
	ModelComponent   ModelKind = "component"
)

// Options captures per-model capabilities.
type Options struct {
	DraftAndPublish bool `json:"draftAndPublish"`
	Localized       bool `json:"localized"`
}

// Attribute describes a single schema attribute. The Kind discriminates which
// of the remaining fields are meaningful.
type Attribute struct {
	Name       string   `json:"name"`
	Kind       Kind     `json:"kind"`
	Relation   string   `json:"relation,omitempty"`   // oneToOne, oneToMany, manyToOne, manyToMany, morph*
	Target     string   `json:"target,omitempty"`     // relation/media target model UID
	InversedBy string   `json:"inversedBy,omitempty"` // owning side of a bidirectional relation
	MappedBy   string   `json:"mappedBy,omitempty"`   // inverse side of a bidirectional relation
	Component  string   `json:"component,omitempty"`  // component UID for component attributes
	Components []string `json:"components,omitempty"` // allowed component UIDs for dynamic zones
	Repeatable bool     `json:"repeatable,omitempty"`
	Required   bool     `json:"required,omitempty"`
	Hidden     bool     `json:"hidden,omitempty"`
}

// IsRelation reports whether the attribute links entries of another model.
func (a Attribute) IsRelation() bool {
	return a.Kind == KindRelation
}

// IsMorph reports whether the relation is polymorphic. Morph relations are
// skipped by population and resolution; generic code consumes them elsewhere.
func (a Attribute) IsMorph() bool {
	return a.Kind == KindRelation && strings.HasPrefix(a.Relation, "morph")
}

// IsNested reports whether the attribute owns component instances.
func (a Attribute) IsNested() bool {
	return a.Kind == KindComponent || a.Kind == KindDynamicZone
}

// IsUnidirectional reports whether the relation has no inverse attribute on
// the target schema. These are the edges that go stale when their target row
// is deleted and replaced.
func (a Attribute) IsUnidirectional() bool {
	if !a.IsRelation() || a.IsMorph() {
		return false
	}
	return a.InversedBy == "" && a.MappedBy == ""
}

// IsToMany reports whether the relation carries multiple targets.
func (a Attribute) IsToMany() bool {
	switch a.Relation {
	case "oneToMany", "manyToMany", "morphToMany":
		return true
	}
	return false
}

// Model is a registered schema: an addressable content type or a nested
// component definition.
type Model struct {
	UID            string      `json:"uid"`
	Kind           ModelKind   `json:"kind"`
	CollectionName string      `json:"collectionName"`
	Attributes     []Attribute `json:"attributes"`
	Options        Options     `json:"options"`
}

// Attribute returns the named attribute definition.
func (m *Model) Attribute(name string) (Attribute, bool) {
	for _, attr := range m.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// HasDraftAndPublish reports whether entries of this model carry distinct
// draft and published rows. Components never do; their lifecycle follows the
// owning entry.
func (m *Model) HasDraftAndPublish() bool {
	return m.Kind == ModelContentType && m.Options.DraftAndPublish
}

// IsLocalized reports whether entries of this model are locale variants.
func (m *Model) IsLocalized() bool {
	return m.Options.Localized
}

// Collection returns the storage collection name, deriving one from the UID
// when the definition omits it.
func (m *Model) Collection() string {
	if m.CollectionName != "" {
		return m.CollectionName
	}
	name := m.UID
	if idx := strings.LastIndexAny(name, "./:"); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}
