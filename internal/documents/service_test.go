package documents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/interfaces"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/pkg/storage/memory"
	"github.com/goliatone/go-documents/schema"
)

type fixedLocales struct{}

func (fixedLocales) GetDefaultLocale(context.Context) (string, error) {
	return "en", nil
}

type captureEmitter struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (c *captureEmitter) Emit(_ context.Context, event interfaces.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureEmitter) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, event := range c.events {
		out[i] = event.Name
	}
	return out
}

func lifecycleRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	registry, err := schema.NewRegistry(
		&schema.Model{
			UID:     "api::article.article",
			Kind:    schema.ModelContentType,
			Options: schema.Options{DraftAndPublish: true, Localized: true},
			Attributes: []schema.Attribute{
				{Name: "title", Kind: schema.KindString},
				{Name: "tags", Kind: schema.KindRelation, Relation: "manyToMany", Target: "api::tag.tag"},
				{Name: "hero", Kind: schema.KindComponent, Component: "shared.hero"},
			},
		},
		&schema.Model{
			UID:  "api::category.category",
			Kind: schema.ModelContentType,
			Attributes: []schema.Attribute{
				{Name: "name", Kind: schema.KindString},
				{Name: "featured", Kind: schema.KindRelation, Relation: "oneToOne", Target: "api::article.article"},
				{Name: "picks", Kind: schema.KindRelation, Relation: "manyToMany", Target: "api::article.article"},
				{Name: "hero", Kind: schema.KindComponent, Component: "shared.hero"},
			},
		},
		&schema.Model{
			UID:        "api::tag.tag",
			Kind:       schema.ModelContentType,
			Attributes: []schema.Attribute{{Name: "name", Kind: schema.KindString}},
		},
		&schema.Model{
			UID:  "shared.hero",
			Kind: schema.ModelComponent,
			Attributes: []schema.Attribute{
				{Name: "heading", Kind: schema.KindString},
				{Name: "cta", Kind: schema.KindRelation, Relation: "oneToOne", Target: "api::article.article"},
			},
		},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return registry
}

type fixture struct {
	registry *schema.Registry
	store    *memory.Store
	svc      Service
	emitter  *captureEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	registry := lifecycleRegistry(t)
	store := memory.New(registry)
	emitter := &captureEmitter{}
	svc := NewService(store, registry, fixedLocales{},
		WithEventEmitter(emitter),
		WithClock(func() time.Time { return time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC) }),
	)
	return &fixture{registry: registry, store: store, svc: svc, emitter: emitter}
}

func (f *fixture) articleRow(t *testing.T, docID string, status domain.Status) storage.Entry {
	t.Helper()
	where := map[string]any{
		domain.FieldDocumentID: docID,
		domain.FieldLocale:     "en",
	}
	if status == domain.StatusPublished {
		where[domain.FieldPublishedAt] = storage.IsNotNull()
	} else {
		where[domain.FieldPublishedAt] = storage.IsNull()
	}
	entry, err := f.store.Query("api::article.article").FindOne(context.Background(), storage.Query{Where: where})
	if err != nil {
		t.Fatalf("lookup %s %s: %v", docID, status, err)
	}
	return entry
}

func TestCreateDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.svc.Create(ctx, CreateParams{
		UID: "api::article.article",
		Data: map[string]any{
			"title": "first",
			"hero":  map[string]any{"heading": "welcome"},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.DocumentID == "" {
		t.Fatal("documentId not minted")
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(result.Entries))
	}

	entry := result.Entries[0]
	if entry[domain.FieldPublishedAt] != nil {
		t.Fatalf("create must default to draft, got published_at %v", entry[domain.FieldPublishedAt])
	}
	if entry[domain.FieldLocale] != "en" {
		t.Fatalf("locale should default to en, got %v", entry[domain.FieldLocale])
	}
	hero, ok := entry["hero"].(storage.Entry)
	if !ok || hero["heading"] != "welcome" {
		t.Fatalf("result not populated with the component: %#v", entry["hero"])
	}
}

func TestCreateWithPublishedStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.svc.Create(ctx, CreateParams{
		UID:    "api::article.article",
		Data:   map[string]any{"title": "live at once"},
		Status: domain.StatusPublished,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0][domain.FieldPublishedAt] == nil {
		t.Fatalf("expected the published row back, got %#v", result.Entries)
	}

	if draft := f.articleRow(t, result.DocumentID, domain.StatusDraft); draft == nil {
		t.Fatal("draft row missing after publish-on-create")
	}
	if published := f.articleRow(t, result.DocumentID, domain.StatusPublished); published == nil {
		t.Fatal("published row missing after publish-on-create")
	}
}

func TestCreateDraftCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	params := CreateParams{
		UID:        "api::article.article",
		DocumentID: "a1",
		Data:       map[string]any{"title": "one"},
	}
	if _, err := f.svc.Create(ctx, params); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := f.svc.Create(ctx, params)
	var exists *ExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("expected ExistsError, got %v", err)
	}
	if !errors.Is(err, ErrDocumentExists) {
		t.Fatal("ExistsError must unwrap to the sentinel")
	}
}

func TestCreateWithoutVersioningIsAlwaysLive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.svc.Create(ctx, CreateParams{
		UID:  "api::category.category",
		Data: map[string]any{"name": "news"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Entries[0][domain.FieldPublishedAt] == nil {
		t.Fatal("rows without draft and publish must carry published_at")
	}
}

func TestReadsDefaultToDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, CreateParams{
		UID:    "api::article.article",
		Data:   map[string]any{"title": "visible"},
		Status: domain.StatusPublished,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Update(ctx, UpdateParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
		Data:       map[string]any{"title": "draft only"},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	entry, err := f.svc.FindOne(ctx, FindOneParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
	})
	if err != nil {
		t.Fatalf("find one: %v", err)
	}
	if entry["title"] != "draft only" {
		t.Fatalf("FindOne should default to the draft, got %v", entry["title"])
	}

	list, err := f.svc.FindMany(ctx, FindManyParams{UID: "api::article.article"})
	if err != nil {
		t.Fatalf("find many: %v", err)
	}
	if len(list) != 1 || list[0]["title"] != "draft only" {
		t.Fatalf("FindMany should scope to drafts, got %#v", list)
	}

	published, err := f.svc.FindOne(ctx, FindOneParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
		Status:     domain.StatusPublished,
	})
	if err != nil {
		t.Fatalf("find published: %v", err)
	}
	if published["title"] != "visible" {
		t.Fatalf("published variant should be untouched, got %v", published["title"])
	}

	count, err := f.svc.Count(ctx, FindManyParams{UID: "api::article.article", Status: domain.StatusPublished})
	if err != nil || count != 1 {
		t.Fatalf("count published = %d (%v)", count, err)
	}
}

func TestUpdateSynthesizesMissingDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, CreateParams{
		UID:    "api::article.article",
		Data:   map[string]any{"title": "published body"},
		Status: domain.StatusPublished,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Delete(ctx, DeleteParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
		Status:     domain.StatusDraft,
	}); err != nil {
		t.Fatalf("delete draft: %v", err)
	}

	result, err := f.svc.Update(ctx, UpdateParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
		Data:       map[string]any{"title": "revived"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if result.Entries[0][domain.FieldPublishedAt] != nil {
		t.Fatal("update must land on a draft row")
	}
	if result.Entries[0]["title"] != "revived" {
		t.Fatalf("draft title = %v", result.Entries[0]["title"])
	}
	if published := f.articleRow(t, created.DocumentID, domain.StatusPublished); published["title"] != "published body" {
		t.Fatalf("published variant must stay untouched, got %v", published["title"])
	}
}

// featuredTargets returns the article ids the category currently points at
// through its one-way relation join table.
func relationTargets(t *testing.T, f *fixture, uid, attrName string, sourceID int64) map[int64]bool {
	t.Helper()
	model, err := f.registry.GetModel(uid)
	if err != nil {
		t.Fatalf("model %s: %v", uid, err)
	}
	attr, ok := model.Attribute(attrName)
	if !ok {
		t.Fatalf("%s has no attribute %s", uid, attrName)
	}
	jt, ok := f.registry.RelationJoinTable(model, attr)
	if !ok {
		t.Fatalf("%s.%s has no join table", uid, attrName)
	}
	rows, err := f.store.JoinTables().Select(context.Background(), jt.Name, map[string]any{
		jt.SourceColumn: sourceID,
	})
	if err != nil {
		t.Fatalf("join select: %v", err)
	}
	out := make(map[int64]bool, len(rows))
	for _, row := range rows {
		id, _ := storage.AsID(row[jt.TargetColumn])
		out[id] = true
	}
	return out
}

func featuredTargets(t *testing.T, f *fixture, categoryID int64) map[int64]bool {
	t.Helper()
	return relationTargets(t, f, "api::category.category", "featured", categoryID)
}

func TestRepublishResyncsOneWayLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	article, err := f.svc.Create(ctx, CreateParams{
		UID:    "api::article.article",
		Data:   map[string]any{"title": "v1"},
		Status: domain.StatusPublished,
	})
	if err != nil {
		t.Fatalf("create article: %v", err)
	}
	draftID, _ := storage.AsID(f.articleRow(t, article.DocumentID, domain.StatusDraft)[domain.FieldID])
	firstPublishedID, _ := storage.AsID(f.articleRow(t, article.DocumentID, domain.StatusPublished)[domain.FieldID])

	category, err := f.svc.Create(ctx, CreateParams{
		UID:  "api::category.category",
		Data: map[string]any{"name": "news", "featured": article.DocumentID},
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	categoryID, _ := storage.AsID(category.Entries[0][domain.FieldID])

	// A source without versioning binds to both variants of the target.
	targets := featuredTargets(t, f, categoryID)
	if !targets[draftID] || !targets[firstPublishedID] || len(targets) != 2 {
		t.Fatalf("expected links to draft %d and published %d, got %v", draftID, firstPublishedID, targets)
	}

	if _, err := f.svc.Update(ctx, UpdateParams{
		UID:        "api::article.article",
		DocumentID: article.DocumentID,
		Data:       map[string]any{"title": "v2"},
	}); err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if _, err := f.svc.Publish(ctx, PublishParams{
		UID:        "api::article.article",
		DocumentID: article.DocumentID,
	}); err != nil {
		t.Fatalf("republish: %v", err)
	}

	secondPublishedID, _ := storage.AsID(f.articleRow(t, article.DocumentID, domain.StatusPublished)[domain.FieldID])
	if secondPublishedID == firstPublishedID {
		t.Fatal("republish should replace the published row")
	}

	targets = featuredTargets(t, f, categoryID)
	if !targets[draftID] {
		t.Fatalf("draft link lost across republish: %v", targets)
	}
	if targets[firstPublishedID] {
		t.Fatalf("stale link to superseded row %d survived: %v", firstPublishedID, targets)
	}
	if !targets[secondPublishedID] {
		t.Fatalf("link not re-pointed at replacement row %d: %v", secondPublishedID, targets)
	}
}

func TestConnectResolvesPerLocaleVariants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	article, err := f.svc.Create(ctx, CreateParams{
		UID:    "api::article.article",
		Data:   map[string]any{"title": "hello"},
		Status: domain.StatusPublished,
	})
	if err != nil {
		t.Fatalf("create en article: %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateParams{
		UID:        "api::article.article",
		DocumentID: article.DocumentID,
		Locale:     "fr",
		Data:       map[string]any{"title": "bonjour"},
	}); err != nil {
		t.Fatalf("create fr article: %v", err)
	}

	enDraftID, _ := storage.AsID(f.articleRow(t, article.DocumentID, domain.StatusDraft)[domain.FieldID])
	enPublishedID, _ := storage.AsID(f.articleRow(t, article.DocumentID, domain.StatusPublished)[domain.FieldID])
	frDraft, err := f.store.Query("api::article.article").FindOne(ctx, storage.Query{
		Where: map[string]any{
			domain.FieldDocumentID: article.DocumentID,
			domain.FieldLocale:     "fr",
		},
	})
	if err != nil || frDraft == nil {
		t.Fatalf("fr draft lookup: %v %v", frDraft, err)
	}
	frDraftID, _ := storage.AsID(frDraft[domain.FieldID])

	category, err := f.svc.Create(ctx, CreateParams{
		UID: "api::category.category",
		Data: map[string]any{
			"name": "frontpage",
			"picks": map[string]any{
				"connect": []any{
					map[string]any{"documentId": article.DocumentID, "locale": "en"},
					map[string]any{"documentId": article.DocumentID, "locale": "fr"},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	categoryID, _ := storage.AsID(category.Entries[0][domain.FieldID])

	// Each connect entry resolves within its own locale; the versionless
	// source binds every variant that exists there.
	targets := relationTargets(t, f, "api::category.category", "picks", categoryID)
	if !targets[enDraftID] || !targets[enPublishedID] {
		t.Fatalf("expected links to both en variants %d/%d, got %v", enDraftID, enPublishedID, targets)
	}
	if !targets[frDraftID] {
		t.Fatalf("expected link to fr draft %d, got %v", frDraftID, targets)
	}
	if len(targets) != 3 {
		t.Fatalf("expected exactly three links, got %v", targets)
	}
}

func TestComponentRelationSurvivesRepublish(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	article, err := f.svc.Create(ctx, CreateParams{
		UID:    "api::article.article",
		Data:   map[string]any{"title": "v1"},
		Status: domain.StatusPublished,
	})
	if err != nil {
		t.Fatalf("create article: %v", err)
	}
	draftID, _ := storage.AsID(f.articleRow(t, article.DocumentID, domain.StatusDraft)[domain.FieldID])
	firstPublishedID, _ := storage.AsID(f.articleRow(t, article.DocumentID, domain.StatusPublished)[domain.FieldID])

	category, err := f.svc.Create(ctx, CreateParams{
		UID: "api::category.category",
		Data: map[string]any{
			"name": "news",
			"hero": map[string]any{"heading": "read this", "cta": article.DocumentID},
		},
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	hero, ok := category.Entries[0]["hero"].(storage.Entry)
	if !ok {
		t.Fatalf("hero not populated: %#v", category.Entries[0]["hero"])
	}
	heroID, _ := storage.AsID(hero[domain.FieldID])

	targets := relationTargets(t, f, "shared.hero", "cta", heroID)
	if !targets[draftID] || !targets[firstPublishedID] || len(targets) != 2 {
		t.Fatalf("expected component links to %d and %d, got %v", draftID, firstPublishedID, targets)
	}

	if _, err := f.svc.Update(ctx, UpdateParams{
		UID:        "api::article.article",
		DocumentID: article.DocumentID,
		Data:       map[string]any{"title": "v2"},
	}); err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if _, err := f.svc.Publish(ctx, PublishParams{
		UID:        "api::article.article",
		DocumentID: article.DocumentID,
	}); err != nil {
		t.Fatalf("republish: %v", err)
	}
	secondPublishedID, _ := storage.AsID(f.articleRow(t, article.DocumentID, domain.StatusPublished)[domain.FieldID])

	targets = relationTargets(t, f, "shared.hero", "cta", heroID)
	if !targets[draftID] {
		t.Fatalf("component draft link lost across republish: %v", targets)
	}
	if targets[firstPublishedID] {
		t.Fatalf("component link still points at superseded row %d: %v", firstPublishedID, targets)
	}
	if !targets[secondPublishedID] {
		t.Fatalf("component link not re-pointed at %d: %v", secondPublishedID, targets)
	}
}

type failingDeleteStore struct {
	storage.Store
	uid string
	err error
}

func (s *failingDeleteStore) Transaction(ctx context.Context, fn func(context.Context, storage.Tx) error) error {
	return s.Store.Transaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, &failingDeleteTx{Tx: tx, uid: s.uid, err: s.err})
	})
}

type failingDeleteTx struct {
	storage.Tx
	uid string
	err error
}

func (t *failingDeleteTx) Query(uid string) storage.Repository {
	repo := t.Tx.Query(uid)
	if uid == t.uid {
		return &failingDeleteRepo{Repository: repo, err: t.err}
	}
	return repo
}

type failingDeleteRepo struct {
	storage.Repository
	err error
}

func (r *failingDeleteRepo) Delete(context.Context, storage.Query) (int64, error) {
	return 0, r.err
}

func TestPublishRollsBackWhenSupersededDeleteFails(t *testing.T) {
	ctx := context.Background()
	registry := lifecycleRegistry(t)
	store := memory.New(registry)
	boom := errors.New("delete rejected")
	svc := NewService(&failingDeleteStore{Store: store, uid: "api::article.article", err: boom}, registry, fixedLocales{},
		WithClock(func() time.Time { return time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC) }),
	)

	article, err := svc.Create(ctx, CreateParams{
		UID:    "api::article.article",
		Data:   map[string]any{"title": "v1"},
		Status: domain.StatusPublished,
	})
	if err != nil {
		t.Fatalf("create article: %v", err)
	}

	_, err = svc.Publish(ctx, PublishParams{
		UID:        "api::article.article",
		DocumentID: article.DocumentID,
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the storage error to surface, got %v", err)
	}

	rows, err := store.Query("api::article.article").FindMany(ctx, storage.Query{
		Where: map[string]any{domain.FieldDocumentID: article.DocumentID},
	})
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected the draft and published rows to survive the rollback, got %d", len(rows))
	}
	for _, row := range rows {
		if row["title"] != "v1" {
			t.Fatalf("row content changed despite rollback: %#v", row)
		}
	}
}

func TestDiscardDraftRestoresPublishedContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, CreateParams{
		UID:    "api::article.article",
		Data:   map[string]any{"title": "stable"},
		Status: domain.StatusPublished,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Update(ctx, UpdateParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
		Data:       map[string]any{"title": "work in progress"},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	result, err := f.svc.DiscardDraft(ctx, PublishParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
	})
	if err != nil {
		t.Fatalf("discard: %v", err)
	}
	if len(result.Entries) != 1 || result.Entries[0][domain.FieldPublishedAt] != nil {
		t.Fatalf("discard should yield the fresh draft, got %#v", result.Entries)
	}
	if draft := f.articleRow(t, created.DocumentID, domain.StatusDraft); draft["title"] != "stable" {
		t.Fatalf("draft should mirror the published content, got %v", draft["title"])
	}
}

func TestUnpublishLeavesDraftAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, CreateParams{
		UID:    "api::article.article",
		Data:   map[string]any{"title": "temporary"},
		Status: domain.StatusPublished,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Unpublish(ctx, PublishParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
	}); err != nil {
		t.Fatalf("unpublish: %v", err)
	}

	if published := f.articleRow(t, created.DocumentID, domain.StatusPublished); published != nil {
		t.Fatalf("published row still present: %#v", published)
	}
	if draft := f.articleRow(t, created.DocumentID, domain.StatusDraft); draft == nil {
		t.Fatal("draft must survive an unpublish")
	}

	_, err = f.svc.Unpublish(ctx, PublishParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
	})
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("second unpublish should report not found, got %v", err)
	}
}

func TestLifecycleRejectsUnversionedSchemas(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Publish(ctx, PublishParams{UID: "api::category.category", DocumentID: "c1"})
	if !errors.Is(err, ErrDraftPublishDisabled) {
		t.Fatalf("expected ErrDraftPublishDisabled, got %v", err)
	}
}

func TestDeleteRemovesEveryLocale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, CreateParams{
		UID:  "api::article.article",
		Data: map[string]any{"title": "english"},
	})
	if err != nil {
		t.Fatalf("create en: %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
		Locale:     "de",
		Data:       map[string]any{"title": "deutsch"},
	}); err != nil {
		t.Fatalf("create de: %v", err)
	}

	result, err := f.svc.Delete(ctx, DeleteParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected both locale rows removed, got %d", len(result.Entries))
	}
	count, _ := f.store.Query("api::article.article").Count(ctx, storage.Query{})
	if count != 0 {
		t.Fatalf("rows left behind: %d", count)
	}
}

func TestCloneMintsFreshDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, CreateParams{
		UID:  "api::article.article",
		Data: map[string]any{"title": "original", "hero": map[string]any{"heading": "h"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clone, err := f.svc.Clone(ctx, CloneParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
		Data:       map[string]any{"title": "copy"},
	})
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if clone.DocumentID == created.DocumentID || clone.DocumentID == "" {
		t.Fatalf("clone must mint a fresh documentId, got %q", clone.DocumentID)
	}
	if clone.Entries[0]["title"] != "copy" {
		t.Fatalf("override not applied: %v", clone.Entries[0]["title"])
	}

	// Component instances are duplicated, not shared.
	count, _ := f.store.Query("shared.hero").Count(ctx, storage.Query{})
	if count != 2 {
		t.Fatalf("expected two hero instances after clone, got %d", count)
	}
	if source := f.articleRow(t, created.DocumentID, domain.StatusDraft); source["title"] != "original" {
		t.Fatalf("source mutated by clone: %v", source["title"])
	}
}

func TestEventsEmitOnlyAfterCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, CreateParams{
		UID:        "api::article.article",
		DocumentID: "a1",
		Data:       map[string]any{"title": "x"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if names := f.emitter.names(); len(names) != 1 || names[0] != interfaces.EventEntryCreate {
		t.Fatalf("expected one create event, got %v", names)
	}

	// A failed operation must not emit.
	if _, err := f.svc.Create(ctx, CreateParams{
		UID:        "api::article.article",
		DocumentID: "a1",
		Data:       map[string]any{"title": "dup"},
	}); err == nil {
		t.Fatal("expected collision")
	}
	if names := f.emitter.names(); len(names) != 1 {
		t.Fatalf("rolled back operation emitted events: %v", names)
	}

	if _, err := f.svc.Publish(ctx, PublishParams{
		UID:        "api::article.article",
		DocumentID: created.DocumentID,
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	names := f.emitter.names()
	if names[len(names)-1] != interfaces.EventEntryPublish {
		t.Fatalf("expected a publish event last, got %v", names)
	}
}
