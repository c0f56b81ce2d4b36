package relations

import (
	"context"

	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/pkg/storage"
)

// Key addresses one logical document variant: a schema, a stable documentId,
// a locale (empty means not localized), and a publication status.
type Key struct {
	UID        string
	DocumentID string
	Locale     string
	Status     domain.Status
}

// IDMap is a request-scoped, write-once-read-many cache translating logical
// document keys into physical row ids. Lookups are batched per (uid, locale)
// group; one FindMany per group regardless of how many references queued.
// The map is created fresh per operation and discarded with it.
type IDMap struct {
	store   storage.Store
	pending map[Key]struct{}
	loaded  map[Key][]int64
}

// NewIDMap constructs an empty map bound to the storage collaborator of the
// current operation (usually the transaction-scoped store).
func NewIDMap(store storage.Store) *IDMap {
	return &IDMap{
		store:   store,
		pending: make(map[Key]struct{}),
		loaded:  make(map[Key][]int64),
	}
}

// Add queues a key for the next Load unless it is already loaded or queued.
func (m *IDMap) Add(key Key) {
	if _, ok := m.loaded[key]; ok {
		return
	}
	m.pending[key] = struct{}{}
}

// Load resolves every queued key. Keys are grouped by (uid, locale); each
// group issues one FindMany filtered by documentId membership and the status
// predicate. Keys added after a Load call require another Load; the map never
// reloads on Get.
func (m *IDMap) Load(ctx context.Context) error {
	type group struct {
		uid    string
		locale string
	}
	groups := make(map[group][]Key)
	for key := range m.pending {
		g := group{uid: key.UID, locale: key.Locale}
		groups[g] = append(groups[g], key)
	}

	for g, keys := range groups {
		docIDs := make([]any, 0, len(keys))
		seen := make(map[string]struct{}, len(keys))
		wantDraft, wantPublished := false, false
		for _, key := range keys {
			if _, ok := seen[key.DocumentID]; !ok {
				seen[key.DocumentID] = struct{}{}
				docIDs = append(docIDs, key.DocumentID)
			}
			if key.Status == domain.StatusPublished {
				wantPublished = true
			} else {
				wantDraft = true
			}
		}

		where := map[string]any{
			domain.FieldDocumentID: storage.In(docIDs...),
		}
		if g.locale == "" {
			where[domain.FieldLocale] = storage.IsNull()
		} else {
			where[domain.FieldLocale] = g.locale
		}
		switch {
		case wantDraft && wantPublished:
			// Mixed statuses in one group: fetch both rows and bucket below.
		case wantPublished:
			where[domain.FieldPublishedAt] = storage.IsNotNull()
		default:
			where[domain.FieldPublishedAt] = storage.IsNull()
		}

		rows, err := m.store.Query(g.uid).FindMany(ctx, storage.Query{
			Select: []string{domain.FieldID, domain.FieldDocumentID, domain.FieldPublishedAt},
			Where:  where,
		})
		if err != nil {
			return err
		}

		for _, key := range keys {
			m.loaded[key] = nil
		}
		for _, row := range rows {
			id, ok := storage.AsID(row[domain.FieldID])
			if !ok {
				continue
			}
			docID, _ := row[domain.FieldDocumentID].(string)
			status := domain.StatusDraft
			if row[domain.FieldPublishedAt] != nil {
				status = domain.StatusPublished
			}
			key := Key{UID: g.uid, DocumentID: docID, Locale: g.locale, Status: status}
			if _, wanted := m.loaded[key]; wanted {
				m.loaded[key] = append(m.loaded[key], id)
			}
		}
	}

	m.pending = make(map[Key]struct{})
	return nil
}

// Get returns the physical ids loaded for key. The boolean is false when the
// key was never loaded; callers must Add and Load first.
func (m *IDMap) Get(key Key) ([]int64, bool) {
	ids, ok := m.loaded[key]
	return ids, ok
}
