// Package repair removes ghost join rows left behind by interrupted or buggy
// version swaps. A ghost is a pivot row that points at the published
// duplicate of a target its source already reaches through the draft row;
// legitimate draft+published fan-out from sources without draft and publish
// is left alone.
package repair

import (
	"context"

	"github.com/goliatone/go-documents/internal/domain"
	"github.com/goliatone/go-documents/internal/logging"
	"github.com/goliatone/go-documents/pkg/interfaces"
	"github.com/goliatone/go-documents/pkg/storage"
	"github.com/goliatone/go-documents/schema"
)

// maxAncestorDepth caps the component ownership walk so a corrupted pivot
// graph cannot loop the sweep forever.
const maxAncestorDepth = 16

// Sweeper scans every unidirectional relation join table for ghost rows.
type Sweeper struct {
	registry *schema.Registry
	store    storage.Store
	logger   interfaces.Logger
}

// Option configures the sweeper.
type Option func(*Sweeper)

// WithLogger attaches a logger provider to the sweeper.
func WithLogger(provider interfaces.LoggerProvider) Option {
	return func(s *Sweeper) {
		s.logger = logging.RepairLogger(provider)
	}
}

// NewSweeper constructs a sweeper over the registry and store.
func NewSweeper(registry *schema.Registry, store storage.Store, opts ...Option) *Sweeper {
	s := &Sweeper{
		registry: registry,
		store:    store,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep walks every model's unidirectional relation tables and deletes ghost
// rows. Failures are isolated per table: a broken table logs an error and
// contributes zero to the returned cleaned count without aborting the rest
// of the sweep. With dryRun set, ghosts are counted but not deleted.
func (s *Sweeper) Sweep(ctx context.Context, dryRun bool) (int64, error) {
	var cleaned int64
	for _, model := range s.registry.Models() {
		for _, attr := range model.Attributes {
			if !attr.IsUnidirectional() {
				continue
			}
			jt, ok := s.registry.RelationJoinTable(model, attr)
			if !ok {
				continue
			}
			removed, err := s.sweepTable(ctx, model, attr, jt, dryRun)
			if err != nil {
				s.logger.Error("sweep failed for table", "table", jt.Name, "error", err)
				continue
			}
			cleaned += removed
		}
	}
	s.logger.Info("sweep finished", "cleaned", cleaned, "dry_run", dryRun)
	return cleaned, nil
}

func (s *Sweeper) sweepTable(ctx context.Context, model *schema.Model, attr schema.Attribute, jt schema.JoinTable, dryRun bool) (int64, error) {
	joins := s.store.JoinTables()
	rows, err := joins.Select(ctx, jt.Name, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	targets, err := s.targetIndex(ctx, attr.Target, rows, jt)
	if err != nil {
		return 0, err
	}

	bySource := map[int64][]storage.JoinRow{}
	for _, row := range rows {
		sourceID, ok := storage.AsID(row[jt.SourceColumn])
		if !ok {
			continue
		}
		bySource[sourceID] = append(bySource[sourceID], row)
	}

	var removed int64
	ownerCache := map[int64]bool{}
	for sourceID, group := range bySource {
		ghosts := ghostTargets(group, targets, jt)
		if len(ghosts) == 0 {
			continue
		}

		versioned, cached := ownerCache[sourceID]
		if !cached {
			versioned, err = s.sourceVersioned(ctx, model, sourceID)
			if err != nil {
				return removed, err
			}
			ownerCache[sourceID] = versioned
		}
		if !versioned {
			// Sources without draft and publish intentionally point at both
			// versions of the target.
			continue
		}

		for _, ghostID := range ghosts {
			if dryRun {
				removed++
				continue
			}
			count, err := joins.Delete(ctx, jt.Name, map[string]any{
				jt.SourceColumn: sourceID,
				jt.TargetColumn: ghostID,
			})
			if err != nil {
				return removed, err
			}
			removed += count
		}
	}
	return removed, nil
}

// targetIndex loads the target rows the join rows point at, keyed by id.
func (s *Sweeper) targetIndex(ctx context.Context, uid string, rows []storage.JoinRow, jt schema.JoinTable) (map[int64]storage.Entry, error) {
	seen := map[int64]struct{}{}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		id, ok := storage.AsID(row[jt.TargetColumn])
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return map[int64]storage.Entry{}, nil
	}

	entries, err := s.store.Query(uid).FindMany(ctx, storage.Query{
		Select: []string{domain.FieldID, domain.FieldDocumentID, domain.FieldLocale, domain.FieldPublishedAt},
		Where:  map[string]any{domain.FieldID: storage.InIDs(ids)},
	})
	if err != nil {
		return nil, err
	}
	index := make(map[int64]storage.Entry, len(entries))
	for _, entry := range entries {
		if id, ok := storage.AsID(entry[domain.FieldID]); ok {
			index[id] = entry
		}
	}
	return index, nil
}

// ghostTargets finds, within one source's rows, published target ids whose
// draft duplicate of the same logical document is also pointed at.
func ghostTargets(group []storage.JoinRow, targets map[int64]storage.Entry, jt schema.JoinTable) []int64 {
	type variants struct {
		draft     bool
		published []int64
	}
	byDocument := map[string]*variants{}

	for _, row := range group {
		id, ok := storage.AsID(row[jt.TargetColumn])
		if !ok {
			continue
		}
		target, ok := targets[id]
		if !ok {
			continue
		}
		docID, _ := target[domain.FieldDocumentID].(string)
		if docID == "" {
			continue
		}
		locale, _ := target[domain.FieldLocale].(string)
		key := docID + "\x00" + locale

		v := byDocument[key]
		if v == nil {
			v = &variants{}
			byDocument[key] = v
		}
		if target[domain.FieldPublishedAt] == nil {
			v.draft = true
		} else {
			v.published = append(v.published, id)
		}
	}

	var ghosts []int64
	for _, v := range byDocument {
		if v.draft && len(v.published) > 0 {
			ghosts = append(ghosts, v.published...)
		}
	}
	return ghosts
}

// sourceVersioned reports whether the model owning the join row source lives
// under draft and publish. Component sources resolve through their ultimate
// content-type ancestor by walking ownership pivot tables upward.
func (s *Sweeper) sourceVersioned(ctx context.Context, model *schema.Model, sourceID int64) (bool, error) {
	if model.Kind == schema.ModelContentType {
		return model.HasDraftAndPublish(), nil
	}
	return s.ancestorVersioned(ctx, model.UID, sourceID)
}

func (s *Sweeper) ancestorVersioned(ctx context.Context, uid string, instanceID int64) (bool, error) {
	joins := s.store.JoinTables()

	type node struct {
		uid string
		id  int64
	}
	visited := map[node]struct{}{}
	current := node{uid: uid, id: instanceID}

	for depth := 0; depth < maxAncestorDepth; depth++ {
		if _, seen := visited[current]; seen {
			return false, nil
		}
		visited[current] = struct{}{}

		parent, found, err := s.findOwner(ctx, joins, current.uid, current.id)
		if err != nil {
			return false, err
		}
		if !found {
			return false, nil
		}

		owner, err := s.registry.GetModel(parent.uid)
		if err != nil {
			return false, err
		}
		if owner.Kind == schema.ModelContentType {
			return owner.HasDraftAndPublish(), nil
		}
		current = node{uid: parent.uid, id: parent.id}
	}
	return false, nil
}

type ownerRef struct {
	uid string
	id  int64
}

// findOwner scans every model's component ownership table for the pivot row
// linking the given instance to its parent.
func (s *Sweeper) findOwner(ctx context.Context, joins storage.JoinTableStore, uid string, instanceID int64) (ownerRef, bool, error) {
	for _, candidate := range s.registry.Models() {
		if !ownsComponents(candidate) {
			continue
		}
		cjt := schema.ComponentsJoinTable(candidate)
		rows, err := joins.Select(ctx, cjt.Name, map[string]any{
			cjt.ComponentColumn: instanceID,
			cjt.TypeColumn:      uid,
		})
		if err != nil {
			return ownerRef{}, false, err
		}
		if len(rows) == 0 {
			continue
		}
		entityID, ok := storage.AsID(rows[0][cjt.EntityColumn])
		if !ok {
			continue
		}
		return ownerRef{uid: candidate.UID, id: entityID}, true, nil
	}
	return ownerRef{}, false, nil
}

func ownsComponents(model *schema.Model) bool {
	for _, attr := range model.Attributes {
		if attr.IsNested() {
			return true
		}
	}
	return false
}
