package schema

import "strings"

// JoinTable describes the pivot table backing a relation attribute. Source
// and target columns are named from the perspective of the attribute's owner.
type JoinTable struct {
	Name         string
	SourceColumn string
	TargetColumn string
	OrderColumn  string
}

// Inverse returns the same table viewed from the target side.
func (jt JoinTable) Inverse() JoinTable {
	return JoinTable{
		Name:         jt.Name,
		SourceColumn: jt.TargetColumn,
		TargetColumn: jt.SourceColumn,
		OrderColumn:  jt.OrderColumn,
	}
}

// ComponentJoinTable describes the pivot table recording component ownership
// for one parent model. Every component/dynamic-zone attribute of the model
// shares the table, discriminated by field and component type.
type ComponentJoinTable struct {
	Name            string
	EntityColumn    string
	ComponentColumn string
	FieldColumn     string
	TypeColumn      string
	OrderColumn     string
}

// RelationJoinTable resolves the pivot table for a relation or media
// attribute. The owning side (no mappedBy) defines the table; the inverse
// side maps to the owner's table with swapped columns. Returns false for
// morph relations and attributes that carry no linked rows.
func (r *Registry) RelationJoinTable(model *Model, attr Attribute) (JoinTable, bool) {
	if attr.Kind != KindMedia && (!attr.IsRelation() || attr.IsMorph()) {
		return JoinTable{}, false
	}

	if attr.MappedBy != "" {
		target, err := r.GetModel(attr.Target)
		if err != nil {
			return JoinTable{}, false
		}
		owner, ok := target.Attribute(attr.MappedBy)
		if !ok {
			return JoinTable{}, false
		}
		jt, ok := r.RelationJoinTable(target, owner)
		if !ok {
			return JoinTable{}, false
		}
		return jt.Inverse(), true
	}

	return JoinTable{
		Name:         model.Collection() + "_" + snakeCase(attr.Name) + "_lnk",
		SourceColumn: "source_id",
		TargetColumn: "target_id",
		OrderColumn:  "order",
	}, true
}

// ComponentsJoinTable returns the component ownership table of a model.
func ComponentsJoinTable(model *Model) ComponentJoinTable {
	return ComponentJoinTable{
		Name:            model.Collection() + "_cmps",
		EntityColumn:    "entity_id",
		ComponentColumn: "cmp_id",
		FieldColumn:     "field",
		TypeColumn:      "component_type",
		OrderColumn:     "order",
	}
}

func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
