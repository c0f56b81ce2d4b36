package schema

import (
	"errors"
	"testing"
)

func TestNewRegistryValidatesTargets(t *testing.T) {
	article := &Model{
		UID:  "api::article.article",
		Kind: ModelContentType,
		Attributes: []Attribute{
			{Name: "title", Kind: KindString},
			{Name: "category", Kind: KindRelation, Relation: "manyToOne", Target: "api::category.category"},
		},
	}
	category := &Model{
		UID:        "api::category.category",
		Kind:       ModelContentType,
		Attributes: []Attribute{{Name: "name", Kind: KindString}},
	}

	t.Run("accepts resolvable targets", func(t *testing.T) {
		registry, err := NewRegistry(article, category)
		if err != nil {
			t.Fatalf("new registry: %v", err)
		}
		model, err := registry.GetModel("api::article.article")
		if err != nil {
			t.Fatalf("get model: %v", err)
		}
		if model.Collection() != "article" {
			t.Fatalf("expected derived collection name, got %q", model.Collection())
		}
	})

	t.Run("rejects dangling relation target", func(t *testing.T) {
		_, err := NewRegistry(article)
		if !errors.Is(err, ErrAttributeInvalid) {
			t.Fatalf("expected ErrAttributeInvalid, got %v", err)
		}
	})

	t.Run("rejects duplicate uid", func(t *testing.T) {
		_, err := NewRegistry(category, category)
		if !errors.Is(err, ErrModelDuplicate) {
			t.Fatalf("expected ErrModelDuplicate, got %v", err)
		}
	})

	t.Run("rejects dynamic zone with unknown component", func(t *testing.T) {
		page := &Model{
			UID:  "api::page.page",
			Kind: ModelContentType,
			Attributes: []Attribute{
				{Name: "zone", Kind: KindDynamicZone, Components: []string{"shared.missing"}},
			},
		}
		_, err := NewRegistry(page)
		if !errors.Is(err, ErrAttributeInvalid) {
			t.Fatalf("expected ErrAttributeInvalid, got %v", err)
		}
	})
}

func TestNewRegistryFromJSON(t *testing.T) {
	t.Run("valid definitions", func(t *testing.T) {
		payload := []byte(`[
			{
				"uid": "api::tag.tag",
				"kind": "contentType",
				"attributes": [{"name": "name", "kind": "string"}]
			},
			{
				"uid": "api::post.post",
				"options": {"draftAndPublish": true, "localized": true},
				"attributes": [
					{"name": "title", "kind": "string"},
					{"name": "tags", "kind": "relation", "relation": "manyToMany", "target": "api::tag.tag"}
				]
			}
		]`)
		registry, err := NewRegistryFromJSON(payload)
		if err != nil {
			t.Fatalf("from json: %v", err)
		}
		post, err := registry.GetModel("api::post.post")
		if err != nil {
			t.Fatalf("get model: %v", err)
		}
		if !post.HasDraftAndPublish() || !post.IsLocalized() {
			t.Fatalf("expected options decoded, got %+v", post.Options)
		}
		if len(registry.ContentTypes()) != 2 {
			t.Fatalf("expected 2 content types, got %d", len(registry.ContentTypes()))
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		payload := []byte(`[{"uid": "api::x.x", "attributes": [], "bogus": true}]`)
		if _, err := NewRegistryFromJSON(payload); !errors.Is(err, ErrDefinitionInvalid) {
			t.Fatalf("expected ErrDefinitionInvalid, got %v", err)
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		if _, err := NewRegistryFromJSON([]byte(`{`)); !errors.Is(err, ErrDefinitionInvalid) {
			t.Fatalf("expected ErrDefinitionInvalid, got %v", err)
		}
	})
}

func TestAttributeClassification(t *testing.T) {
	cases := []struct {
		name           string
		attr           Attribute
		unidirectional bool
		toMany         bool
		morph          bool
	}{
		{
			name:           "one way many to one",
			attr:           Attribute{Name: "category", Kind: KindRelation, Relation: "manyToOne", Target: "c"},
			unidirectional: true,
		},
		{
			name:   "bidirectional many to many",
			attr:   Attribute{Name: "tags", Kind: KindRelation, Relation: "manyToMany", Target: "t", InversedBy: "posts"},
			toMany: true,
		},
		{
			name:  "morph to many",
			attr:  Attribute{Name: "related", Kind: KindRelation, Relation: "morphToMany"},
			morph: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.attr.IsUnidirectional(); got != tc.unidirectional {
				t.Errorf("IsUnidirectional = %v, want %v", got, tc.unidirectional)
			}
			if got := tc.attr.IsToMany(); got != tc.toMany && !tc.morph {
				t.Errorf("IsToMany = %v, want %v", got, tc.toMany)
			}
			if got := tc.attr.IsMorph(); got != tc.morph {
				t.Errorf("IsMorph = %v, want %v", got, tc.morph)
			}
		})
	}
}

func TestRelationJoinTableNaming(t *testing.T) {
	author := &Model{
		UID:  "api::author.author",
		Kind: ModelContentType,
		Attributes: []Attribute{
			{Name: "profilePicture", Kind: KindMedia, Target: "plugin::upload.file"},
		},
	}
	file := &Model{UID: "plugin::upload.file", Kind: ModelContentType}
	registry, err := NewRegistry(author, file)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	attr, _ := author.Attribute("profilePicture")
	jt, ok := registry.RelationJoinTable(author, attr)
	if !ok {
		t.Fatal("expected a join table for media attribute")
	}
	if jt.Name != "author_profile_picture_lnk" {
		t.Fatalf("unexpected join table name %q", jt.Name)
	}
	if jt.SourceColumn != "source_id" || jt.TargetColumn != "target_id" {
		t.Fatalf("unexpected columns %+v", jt)
	}
}

func TestRelationJoinTableInverseSide(t *testing.T) {
	article := &Model{
		UID:  "api::article.article",
		Kind: ModelContentType,
		Attributes: []Attribute{
			{Name: "tags", Kind: KindRelation, Relation: "manyToMany", Target: "api::tag.tag", InversedBy: "articles"},
		},
	}
	tag := &Model{
		UID:  "api::tag.tag",
		Kind: ModelContentType,
		Attributes: []Attribute{
			{Name: "articles", Kind: KindRelation, Relation: "manyToMany", Target: "api::article.article", MappedBy: "tags"},
		},
	}
	registry, err := NewRegistry(article, tag)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	owning, _ := article.Attribute("tags")
	ownerTable, ok := registry.RelationJoinTable(article, owning)
	if !ok {
		t.Fatal("expected owner join table")
	}

	inverse, _ := tag.Attribute("articles")
	inverseTable, ok := registry.RelationJoinTable(tag, inverse)
	if !ok {
		t.Fatal("expected inverse join table")
	}

	if inverseTable.Name != ownerTable.Name {
		t.Fatalf("inverse must share the owner table: %q vs %q", inverseTable.Name, ownerTable.Name)
	}
	if inverseTable.SourceColumn != ownerTable.TargetColumn {
		t.Fatalf("inverse columns must swap: %+v vs %+v", inverseTable, ownerTable)
	}
}

func TestPathDetectsCycles(t *testing.T) {
	path := NewPath()
	if err := path.Enter("shared.a"); err != nil {
		t.Fatalf("enter a: %v", err)
	}
	if err := path.Enter("shared.b"); err != nil {
		t.Fatalf("enter b: %v", err)
	}
	if err := path.Enter("shared.a"); !errors.Is(err, ErrComponentCycle) {
		t.Fatalf("expected ErrComponentCycle, got %v", err)
	}
	path.Leave("shared.b")
	if err := path.Enter("shared.b"); err != nil {
		t.Fatalf("re-enter b after leave: %v", err)
	}
}
