package relations

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/pkg/storage/memory"
	"github.com/goliatone/go-documents/schema"
)

type staticLocales struct{ code string }

func (s staticLocales) GetDefaultLocale(context.Context) (string, error) {
	return s.code, nil
}

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	registry, err := schema.NewRegistry(
		&schema.Model{
			UID:     "api::article.article",
			Kind:    schema.ModelContentType,
			Options: schema.Options{DraftAndPublish: true, Localized: true},
			Attributes: []schema.Attribute{
				{Name: "title", Kind: schema.KindString},
				{Name: "category", Kind: schema.KindRelation, Relation: "manyToOne", Target: "api::category.category"},
				{Name: "tags", Kind: schema.KindRelation, Relation: "manyToMany", Target: "api::tag.tag"},
			},
		},
		&schema.Model{
			UID:        "api::category.category",
			Kind:       schema.ModelContentType,
			Attributes: []schema.Attribute{{Name: "name", Kind: schema.KindString}},
		},
		&schema.Model{
			UID:        "api::tag.tag",
			Kind:       schema.ModelContentType,
			Attributes: []schema.Attribute{{Name: "name", Kind: schema.KindString}},
		},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return registry
}

func seedRow(t *testing.T, store storage.Store, uid string, row map[string]any) int64 {
	t.Helper()
	created, err := store.Query(uid).Create(context.Background(), row)
	if err != nil {
		t.Fatalf("seed %s: %v", uid, err)
	}
	id, _ := storage.AsID(created[domain.FieldID])
	return id
}

func seedCategory(t *testing.T, store storage.Store, docID, name string) int64 {
	t.Helper()
	return seedRow(t, store, "api::category.category", map[string]any{
		domain.FieldDocumentID:  docID,
		domain.FieldPublishedAt: time.Now(),
		"name":                  name,
	})
}

func TestPipelineResolveRewritesDocumentIDs(t *testing.T) {
	ctx := context.Background()
	registry := testRegistry(t)
	store := memory.New(registry)
	pipeline := NewPipeline(registry, staticLocales{code: "en"})

	catID := seedCategory(t, store, "cat-1", "news")
	tagA := seedRow(t, store, "api::tag.tag", map[string]any{
		domain.FieldDocumentID: "tag-a", domain.FieldPublishedAt: time.Now(), "name": "a",
	})
	tagB := seedRow(t, store, "api::tag.tag", map[string]any{
		domain.FieldDocumentID: "tag-b", domain.FieldPublishedAt: time.Now(), "name": "b",
	})

	data := map[string]any{
		"title":    "hello",
		"category": "cat-1",
		"tags":     []any{"tag-a", map[string]any{"documentId": "tag-b"}},
	}
	opts := Options{Locale: "en", Status: domain.StatusDraft, StatusKnown: true}

	out, err := pipeline.Resolve(ctx, store, "api::article.article", data, opts)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out["category"] != catID {
		t.Fatalf("expected category %d, got %#v", catID, out["category"])
	}
	if want := []any{tagA, tagB}; !reflect.DeepEqual(out["tags"], want) {
		t.Fatalf("expected tags %v, got %#v", want, out["tags"])
	}
	if data["category"] != "cat-1" {
		t.Fatal("input payload must not be mutated")
	}
}

func TestPipelineResolveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	registry := testRegistry(t)
	store := memory.New(registry)
	pipeline := NewPipeline(registry, staticLocales{code: "en"})

	seedCategory(t, store, "cat-1", "news")
	opts := Options{Locale: "en", Status: domain.StatusDraft, StatusKnown: true}

	first, err := pipeline.Resolve(ctx, store, "api::article.article", map[string]any{"category": "cat-1"}, opts)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := pipeline.Resolve(ctx, store, "api::article.article", first, opts)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !reflect.DeepEqual(first["category"], second["category"]) {
		t.Fatalf("physical ids must pass through unchanged: %#v vs %#v", first["category"], second["category"])
	}
}

func TestPipelineResolveMissingReference(t *testing.T) {
	ctx := context.Background()
	registry := testRegistry(t)
	store := memory.New(registry)
	pipeline := NewPipeline(registry, staticLocales{code: "en"})

	data := map[string]any{"category": "cat-missing"}

	t.Run("set reference fails by default", func(t *testing.T) {
		_, err := pipeline.Resolve(ctx, store, "api::article.article", data, Options{Locale: "en"})
		var notFound *DocumentNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected DocumentNotFoundError, got %v", err)
		}
		if notFound.UID != "api::category.category" || notFound.DocumentID != "cat-missing" {
			t.Fatalf("unexpected error details %+v", notFound)
		}
	})

	t.Run("allow missing drops the reference", func(t *testing.T) {
		out, err := pipeline.Resolve(ctx, store, "api::article.article", data, Options{Locale: "en", AllowMissing: true})
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if out["category"] != nil {
			t.Fatalf("expected nil category, got %#v", out["category"])
		}
	})

	t.Run("unresolved connect drops silently", func(t *testing.T) {
		out, err := pipeline.Resolve(ctx, store, "api::article.article", map[string]any{
			"tags": map[string]any{"connect": []any{"tag-missing"}},
		}, Options{Locale: "en"})
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		ops := out["tags"].(map[string]any)
		if entries := ops["connect"].([]any); len(entries) != 0 {
			t.Fatalf("expected empty connect, got %#v", entries)
		}
	})

	t.Run("strict turns unresolved connect into an error", func(t *testing.T) {
		_, err := pipeline.Resolve(ctx, store, "api::article.article", map[string]any{
			"tags": map[string]any{"connect": []any{"tag-missing"}},
		}, Options{Locale: "en", Strict: true})
		if !errors.Is(err, ErrDocumentNotFound) {
			t.Fatalf("expected ErrDocumentNotFound, got %v", err)
		}
	})
}

// countingStore wraps a store and counts FindMany calls per model UID.
type countingStore struct {
	storage.Store
	findMany map[string]int
}

func (c *countingStore) Query(uid string) storage.Repository {
	return &countingRepo{Repository: c.Store.Query(uid), store: c, uid: uid}
}

type countingRepo struct {
	storage.Repository
	store *countingStore
	uid   string
}

func (r *countingRepo) FindMany(ctx context.Context, q storage.Query) ([]storage.Entry, error) {
	r.store.findMany[r.uid]++
	return r.Repository.FindMany(ctx, q)
}

func TestIDMapBatchesLookups(t *testing.T) {
	ctx := context.Background()
	registry := testRegistry(t)
	store := memory.New(registry)

	for _, doc := range []string{"tag-a", "tag-b", "tag-c"} {
		seedRow(t, store, "api::tag.tag", map[string]any{
			domain.FieldDocumentID: doc, domain.FieldPublishedAt: time.Now(), "name": doc,
		})
	}
	seedCategory(t, store, "cat-1", "news")

	counted := &countingStore{Store: store, findMany: map[string]int{}}
	idMap := NewIDMap(counted)
	for _, doc := range []string{"tag-a", "tag-b", "tag-c"} {
		idMap.Add(Key{UID: "api::tag.tag", DocumentID: doc, Status: domain.StatusPublished})
	}
	idMap.Add(Key{UID: "api::category.category", DocumentID: "cat-1", Status: domain.StatusPublished})

	if err := idMap.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := counted.findMany["api::tag.tag"]; got != 1 {
		t.Fatalf("expected one batched tag lookup, got %d", got)
	}
	if got := counted.findMany["api::category.category"]; got != 1 {
		t.Fatalf("expected one category lookup, got %d", got)
	}

	ids, ok := idMap.Get(Key{UID: "api::tag.tag", DocumentID: "tag-b", Status: domain.StatusPublished})
	if !ok || len(ids) != 1 {
		t.Fatalf("expected loaded ids for tag-b, got %v ok=%v", ids, ok)
	}
}

func TestIDMapGetBeforeLoad(t *testing.T) {
	idMap := NewIDMap(memory.New(testRegistry(t)))
	idMap.Add(Key{UID: "api::tag.tag", DocumentID: "tag-a", Status: domain.StatusPublished})
	if _, ok := idMap.Get(Key{UID: "api::tag.tag", DocumentID: "tag-a", Status: domain.StatusPublished}); ok {
		t.Fatal("keys must not resolve before Load")
	}
}
