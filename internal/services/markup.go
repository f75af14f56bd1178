package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nlp-tlp/quickgraph-sub000/internal/data/repos"
	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/dbctx"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

type ApplyMarkupInput struct {
	ProjectID     uuid.UUID
	DatasetItemID uuid.UUID
	Username      string

	AnnotationType string // entity | relation
	LabelID        string

	// Entity fields.
	StartIndex int
	EndIndex   int

	// Relation fields.
	SourceID uuid.UUID
	TargetID uuid.UUID

	Suggested bool
	ApplyAll  bool
}

// MarkupService is the propagation engine: every apply/accept/delete action
// resolves its scope, matches identity keys against existing markup and
// writes the full set of affected rows in one transaction. Idempotent
// duplicates come back as zero-count results, not errors.
type MarkupService interface {
	Apply(ctx context.Context, in ApplyMarkupInput) (*OutMarkupApply, error)
	Accept(ctx context.Context, username string, markupID uuid.UUID, applyAll bool) (*OutMarkupAccept, error)
	Delete(ctx context.Context, username string, markupID uuid.UUID, applyAll bool) (*OutMarkupDelete, error)
}

type markupService struct {
	db            *gorm.DB
	log           *logger.Logger
	scope         ScopeService
	projects      repos.ProjectRepo
	items         repos.DatasetItemRepo
	markups       repos.MarkupRepo
	notifications repos.NotificationRepo
	notifier      Notifier
}

func NewMarkupService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scope ScopeService,
	projects repos.ProjectRepo,
	items repos.DatasetItemRepo,
	markups repos.MarkupRepo,
	notifications repos.NotificationRepo,
	notifier Notifier,
) MarkupService {
	return &markupService{
		db:            db,
		log:           baseLog.With("service", "MarkupService"),
		scope:         scope,
		projects:      projects,
		items:         items,
		markups:       markups,
		notifications: notifications,
		notifier:      notifier,
	}
}

// inTx runs fn inside a transaction when a db handle is configured. With a
// nil handle (unit tests against fakes) fn runs directly.
func (s *markupService) inTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if s.db == nil {
		return fn(dbctx.Context{Ctx: ctx})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

func (s *markupService) Apply(ctx context.Context, in ApplyMarkupInput) (*OutMarkupApply, error) {
	switch in.AnnotationType {
	case types.ClassificationEntity:
		return s.applyEntity(ctx, in)
	case types.ClassificationRelation:
		return s.applyRelation(ctx, in)
	default:
		return nil, fmt.Errorf("unknown annotation type %q: %w", in.AnnotationType, types.ErrInvalidFilter)
	}
}

func (s *markupService) applyEntity(ctx context.Context, in ApplyMarkupInput) (*OutMarkupApply, error) {
	var out *OutMarkupApply
	err := s.inTx(ctx, func(dbc dbctx.Context) error {
		project, err := s.projects.GetByID(dbc, in.ProjectID)
		if err != nil {
			return err
		}
		if project == nil {
			return types.ErrProjectNotFound
		}
		entityMeta, err := ontologyLookup(project.EntityOntology)
		if err != nil {
			return err
		}
		meta, ok := entityMeta[in.LabelID]
		if !ok {
			return types.ErrMissingLabel
		}

		scope, err := s.scope.EligibleForPropagation(dbc, in.ProjectID, in.Username, in.DatasetItemID, in.ApplyAll)
		if err != nil {
			return err
		}
		itemsByID, err := s.loadItems(dbc, scope)
		if err != nil {
			return err
		}
		focus, ok := itemsByID[in.DatasetItemID]
		if !ok {
			return types.ErrDocumentNotFound
		}

		key := types.EntityKey{LabelID: in.LabelID, StartIndex: in.StartIndex, EndIndex: in.EndIndex}
		if !spanInRange(focus, key) {
			return types.ErrInvalidSpan
		}

		existing, err := s.markups.FindEntitiesByOwnerKey(dbc, in.ProjectID, scope, in.Username, key)
		if err != nil {
			return err
		}
		existingByItem := make(map[uuid.UUID]*types.Markup, len(existing))
		for _, m := range existing {
			existingByItem[m.DatasetItemID] = m
		}

		result := &OutMarkupApply{
			LabelName:      meta.Name,
			Entities:       []OutEntity{},
			Relations:      []OutRelation{},
			AnnotationType: types.ClassificationEntity,
			ApplyAll:       in.ApplyAll,
		}

		var toCreate []*types.Markup
		var toPromote []uuid.UUID
		affected := make(map[uuid.UUID]bool)

		// Focus document: duplicate accepted or duplicate suggested apply is
		// the idempotent no-op; a pending suggestion promotes in place when
		// the incoming apply is an accept.
		if ex := existingByItem[in.DatasetItemID]; ex != nil {
			if ex.Suggested && !in.Suggested {
				toPromote = append(toPromote, ex.ID)
				ex.Suggested = false
				affected[in.DatasetItemID] = true
				result.Entities = append(result.Entities, outEntityFrom(ex, meta))
			} else {
				out = result
				return nil
			}
		} else {
			row := s.newEntityRow(in.ProjectID, in.DatasetItemID, in.Username, key, focus, in.Suggested)
			toCreate = append(toCreate, row)
			affected[in.DatasetItemID] = true
			result.Entities = append(result.Entities, outEntityFrom(row, meta))
		}

		// Propagated instances are always suggested, never auto-accepted.
		for _, itemID := range scope {
			if itemID == in.DatasetItemID {
				continue
			}
			if existingByItem[itemID] != nil {
				continue
			}
			item := itemsByID[itemID]
			if item == nil || !spanInRange(item, key) {
				continue
			}
			row := s.newEntityRow(in.ProjectID, itemID, in.Username, key, item, true)
			toCreate = append(toCreate, row)
			affected[itemID] = true
			result.Entities = append(result.Entities, outEntityFrom(row, meta))
		}

		if _, err := s.markups.Create(dbc, toCreate); err != nil {
			return err
		}
		if err := s.markups.Promote(dbc, toPromote); err != nil {
			return err
		}

		result.Count = len(affected)
		out = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Count > 0 {
		s.emit(ctx, in.ProjectID, EventMarkupApplied, out)
	}
	return out, nil
}

func (s *markupService) applyRelation(ctx context.Context, in ApplyMarkupInput) (*OutMarkupApply, error) {
	if in.SourceID == in.TargetID {
		return nil, types.ErrSelfRelation
	}

	var out *OutMarkupApply
	err := s.inTx(ctx, func(dbc dbctx.Context) error {
		project, err := s.projects.GetByID(dbc, in.ProjectID)
		if err != nil {
			return err
		}
		if project == nil {
			return types.ErrProjectNotFound
		}
		relationMeta, err := ontologyLookup(project.RelationOntology)
		if err != nil {
			return err
		}
		meta, ok := relationMeta[in.LabelID]
		if !ok {
			return types.ErrMissingLabel
		}
		entityMeta, err := ontologyLookup(project.EntityOntology)
		if err != nil {
			return err
		}

		source, err := s.markups.GetByID(dbc, in.SourceID)
		if err != nil {
			return err
		}
		target, err := s.markups.GetByID(dbc, in.TargetID)
		if err != nil {
			return err
		}
		if !validEndpoint(source, in.ProjectID, in.DatasetItemID) || !validEndpoint(target, in.ProjectID, in.DatasetItemID) {
			return types.ErrEntityNotFound
		}
		srcKey := source.EntityKey()
		tgtKey := target.EntityKey()
		srcMeta := entityMeta[srcKey.LabelID]
		tgtMeta := entityMeta[tgtKey.LabelID]

		scope, err := s.scope.EligibleForPropagation(dbc, in.ProjectID, in.Username, in.DatasetItemID, in.ApplyAll)
		if err != nil {
			return err
		}
		itemsByID, err := s.loadItems(dbc, scope)
		if err != nil {
			return err
		}

		result := &OutMarkupApply{
			LabelName:      meta.Name,
			Entities:       []OutEntity{},
			Relations:      []OutRelation{},
			AnnotationType: types.ClassificationRelation,
			ApplyAll:       in.ApplyAll,
		}

		var newEntities []*types.Markup
		var newRelations []*types.Markup
		var toPromote []uuid.UUID
		affected := make(map[uuid.UUID]bool)

		// Focus document, same duplicate semantics as apply-entity.
		focusRel, err := s.markups.FindRelationByOwnerEndpoints(dbc, in.ProjectID, in.DatasetItemID, in.Username, in.LabelID, in.SourceID, in.TargetID)
		if err != nil {
			return err
		}
		if focusRel != nil {
			if focusRel.Suggested && !in.Suggested {
				toPromote = append(toPromote, focusRel.ID)
				focusRel.Suggested = false
				affected[in.DatasetItemID] = true
				result.Relations = append(result.Relations, outRelationFrom(focusRel, meta))
			} else {
				out = result
				return nil
			}
		} else {
			row := s.newRelationRow(in.ProjectID, in.DatasetItemID, in.Username, in.LabelID, in.SourceID, in.TargetID, in.Suggested)
			newRelations = append(newRelations, row)
			affected[in.DatasetItemID] = true
			result.Relations = append(result.Relations, outRelationFrom(row, meta))
		}

		// Endpoint matching across the rest of the scope prefers the scope
		// owner's own entity rows; when none exist, suggested entities are
		// auto-created using the focus pair's label/span and then connected
		// with a suggested relation.
		ownSources, err := s.markups.FindEntitiesByOwnerKey(dbc, in.ProjectID, scope, in.Username, srcKey)
		if err != nil {
			return err
		}
		ownTargets, err := s.markups.FindEntitiesByOwnerKey(dbc, in.ProjectID, scope, in.Username, tgtKey)
		if err != nil {
			return err
		}
		sourceByItem := entitiesByItem(ownSources)
		targetByItem := entitiesByItem(ownTargets)

		ownRelations, err := s.markups.FindRelationsByOwnerLabel(dbc, in.ProjectID, in.Username, in.LabelID, false)
		if err != nil {
			return err
		}
		relationExists := make(map[string]bool, len(ownRelations))
		for _, r := range ownRelations {
			if r.SourceID != nil && r.TargetID != nil {
				relationExists[relationSlot(r.DatasetItemID, *r.SourceID, *r.TargetID)] = true
			}
		}

		for _, itemID := range scope {
			if itemID == in.DatasetItemID {
				continue
			}
			item := itemsByID[itemID]
			if item == nil {
				continue
			}

			srcEnt := sourceByItem[itemID]
			tgtEnt := targetByItem[itemID]
			if srcEnt == nil || tgtEnt == nil {
				// Both spans must fit before auto-creating either endpoint.
				if !spanInRange(item, srcKey) || !spanInRange(item, tgtKey) {
					continue
				}
			}
			if srcEnt == nil {
				srcEnt = s.newEntityRow(in.ProjectID, itemID, in.Username, srcKey, item, true)
				newEntities = append(newEntities, srcEnt)
				affected[itemID] = true
				result.Entities = append(result.Entities, outEntityFrom(srcEnt, srcMeta))
			}
			if tgtEnt == nil {
				tgtEnt = s.newEntityRow(in.ProjectID, itemID, in.Username, tgtKey, item, true)
				newEntities = append(newEntities, tgtEnt)
				affected[itemID] = true
				result.Entities = append(result.Entities, outEntityFrom(tgtEnt, tgtMeta))
			}

			if relationExists[relationSlot(itemID, srcEnt.ID, tgtEnt.ID)] {
				continue
			}
			row := s.newRelationRow(in.ProjectID, itemID, in.Username, in.LabelID, srcEnt.ID, tgtEnt.ID, true)
			newRelations = append(newRelations, row)
			affected[itemID] = true
			result.Relations = append(result.Relations, outRelationFrom(row, meta))
		}

		if _, err := s.markups.Create(dbc, newEntities); err != nil {
			return err
		}
		if _, err := s.markups.Create(dbc, newRelations); err != nil {
			return err
		}
		if err := s.markups.Promote(dbc, toPromote); err != nil {
			return err
		}

		result.Count = len(affected)
		out = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Count > 0 {
		s.emit(ctx, in.ProjectID, EventMarkupApplied, out)
	}
	return out, nil
}

func (s *markupService) Accept(ctx context.Context, username string, markupID uuid.UUID, applyAll bool) (*OutMarkupAccept, error) {
	var out *OutMarkupAccept
	var projectID uuid.UUID
	err := s.inTx(ctx, func(dbc dbctx.Context) error {
		target, err := s.markups.GetByID(dbc, markupID)
		if err != nil {
			return err
		}
		if target == nil || target.Username != username {
			return types.ErrMarkupNotFound
		}
		projectID = target.ProjectID

		result := &OutMarkupAccept{Entities: []string{}, Relations: []string{}}

		// Double-accept is the idempotent no-op.
		if !target.Suggested {
			out = result
			return nil
		}

		promote := []*types.Markup{target}
		if applyAll {
			siblings, err := s.suggestedSiblings(dbc, target)
			if err != nil {
				return err
			}
			promote = append(promote, siblings...)
		}

		ids := make([]uuid.UUID, 0, len(promote))
		for _, m := range promote {
			ids = append(ids, m.ID)
			if m.IsRelation() {
				result.Relations = append(result.Relations, m.ID.String())
			} else {
				result.Entities = append(result.Entities, m.ID.String())
			}
		}
		if err := s.markups.Promote(dbc, ids); err != nil {
			return err
		}

		result.Count = len(ids)
		out = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Count > 0 {
		if err := s.notifyAccepted(ctx, projectID, username, out.Count); err != nil {
			s.log.Warn("accept notification failed", "project_id", projectID, "error", err)
		}
		s.emit(ctx, projectID, EventMarkupAccepted, out)
	}
	return out, nil
}

// notifyAccepted writes a feed record for the project managers so accepted
// suggestions show up without polling the markup table.
func (s *markupService) notifyAccepted(ctx context.Context, projectID uuid.UUID, username string, count int) error {
	if s.notifications == nil {
		return nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	annotators, err := s.projects.ListAnnotators(dbc, projectID)
	if err != nil {
		return err
	}
	pid := projectID
	var rows []*types.Notification
	for _, a := range annotators {
		if a.Role != types.RoleProjectManager || a.Username == username {
			continue
		}
		rows = append(rows, &types.Notification{
			Recipient: a.Username,
			Sender:    username,
			Kind:      types.NotificationKindMarkupAccepted,
			ProjectID: &pid,
			Content:   fmt.Sprintf("%d suggestion(s) accepted", count),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	_, err = s.notifications.Create(dbc, rows)
	return err
}

func (s *markupService) Delete(ctx context.Context, username string, markupID uuid.UUID, applyAll bool) (*OutMarkupDelete, error) {
	var out *OutMarkupDelete
	var projectID uuid.UUID
	err := s.inTx(ctx, func(dbc dbctx.Context) error {
		target, err := s.markups.GetByID(dbc, markupID)
		if err != nil {
			return err
		}
		if target == nil || target.Username != username {
			return types.ErrMarkupNotFound
		}
		projectID = target.ProjectID

		doomed := []*types.Markup{target}
		if applyAll {
			// Bulk delete only reaches suggested siblings; accepted markup
			// elsewhere is protected.
			siblings, err := s.suggestedSiblings(dbc, target)
			if err != nil {
				return err
			}
			doomed = append(doomed, siblings...)
		}

		result := &OutMarkupDelete{Entities: []string{}, Relations: []string{}}
		ids := make([]uuid.UUID, 0, len(doomed))
		var entityIDs []uuid.UUID
		seen := make(map[uuid.UUID]bool, len(doomed))
		for _, m := range doomed {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			ids = append(ids, m.ID)
			if m.IsRelation() {
				result.Relations = append(result.Relations, m.ID.String())
			} else {
				entityIDs = append(entityIDs, m.ID)
				result.Entities = append(result.Entities, m.ID.String())
			}
		}

		// Relations hold weak references; removing an entity removes every
		// relation that references it, in any document, any owner, any state.
		if len(entityIDs) > 0 {
			cascades, err := s.markups.FindRelationsReferencing(dbc, entityIDs)
			if err != nil {
				return err
			}
			for _, r := range cascades {
				if seen[r.ID] {
					continue
				}
				seen[r.ID] = true
				ids = append(ids, r.ID)
				result.Relations = append(result.Relations, r.ID.String())
			}
		}

		if err := s.markups.DeleteByIDs(dbc, ids); err != nil {
			return err
		}

		result.Count = len(ids)
		out = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Count > 0 {
		s.emit(ctx, projectID, EventMarkupDeleted, out)
	}
	return out, nil
}

// suggestedSiblings finds every other markup by the same owner with the same
// identity-key that is still in suggested state.
func (s *markupService) suggestedSiblings(dbc dbctx.Context, target *types.Markup) ([]*types.Markup, error) {
	if target.IsEntity() {
		candidates, err := s.markups.FindEntitiesByOwnerKey(dbc, target.ProjectID, nil, target.Username, target.EntityKey())
		if err != nil {
			return nil, err
		}
		var out []*types.Markup
		for _, m := range candidates {
			if m.ID != target.ID && m.Suggested {
				out = append(out, m)
			}
		}
		return out, nil
	}

	targetKey, ok, err := s.relationKey(dbc, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	candidates, err := s.markups.FindRelationsByOwnerLabel(dbc, target.ProjectID, target.Username, target.LabelID, true)
	if err != nil {
		return nil, err
	}
	keys, err := s.relationKeys(dbc, candidates)
	if err != nil {
		return nil, err
	}
	var out []*types.Markup
	for _, m := range candidates {
		if m.ID == target.ID {
			continue
		}
		key, ok := keys[m.ID]
		if ok && key == targetKey {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *markupService) relationKey(dbc dbctx.Context, rel *types.Markup) (types.RelationKey, bool, error) {
	keys, err := s.relationKeys(dbc, []*types.Markup{rel})
	if err != nil {
		return types.RelationKey{}, false, err
	}
	key, ok := keys[rel.ID]
	return key, ok, nil
}

// relationKeys resolves relation identity-keys by loading the endpoint
// entities. Relations with a missing endpoint get no key; the cascade rules
// should make that unreachable, but a race can leave one briefly.
func (s *markupService) relationKeys(dbc dbctx.Context, rels []*types.Markup) (map[uuid.UUID]types.RelationKey, error) {
	var endpointIDs []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, r := range rels {
		for _, ref := range []*uuid.UUID{r.SourceID, r.TargetID} {
			if ref != nil && !seen[*ref] {
				seen[*ref] = true
				endpointIDs = append(endpointIDs, *ref)
			}
		}
	}
	endpoints, err := s.markups.GetByIDs(dbc, endpointIDs)
	if err != nil {
		return nil, err
	}
	keyByID := make(map[uuid.UUID]types.EntityKey, len(endpoints))
	for _, e := range endpoints {
		keyByID[e.ID] = e.EntityKey()
	}

	out := make(map[uuid.UUID]types.RelationKey, len(rels))
	for _, r := range rels {
		if r.SourceID == nil || r.TargetID == nil {
			continue
		}
		srcKey, okSrc := keyByID[*r.SourceID]
		tgtKey, okTgt := keyByID[*r.TargetID]
		if !okSrc || !okTgt {
			continue
		}
		out[r.ID] = types.RelationKey{LabelID: r.LabelID, Source: srcKey, Target: tgtKey}
	}
	return out, nil
}

func (s *markupService) loadItems(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]*types.DatasetItem, error) {
	rows, err := s.items.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.DatasetItem, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	return byID, nil
}

func (s *markupService) newEntityRow(projectID, itemID uuid.UUID, username string, key types.EntityKey, item *types.DatasetItem, suggested bool) *types.Markup {
	tokens := item.TokenList()
	surface := strings.Join(tokens[key.StartIndex:key.EndIndex+1], " ")
	return &types.Markup{
		ID:             uuid.New(),
		ProjectID:      projectID,
		DatasetItemID:  itemID,
		Username:       username,
		Classification: types.ClassificationEntity,
		LabelID:        key.LabelID,
		StartIndex:     key.StartIndex,
		EndIndex:       key.EndIndex,
		SurfaceText:    surface,
		Suggested:      suggested,
	}
}

func (s *markupService) newRelationRow(projectID, itemID uuid.UUID, username, labelID string, sourceID, targetID uuid.UUID, suggested bool) *types.Markup {
	src := sourceID
	tgt := targetID
	return &types.Markup{
		ID:             uuid.New(),
		ProjectID:      projectID,
		DatasetItemID:  itemID,
		Username:       username,
		Classification: types.ClassificationRelation,
		LabelID:        labelID,
		SourceID:       &src,
		TargetID:       &tgt,
		Suggested:      suggested,
	}
}

func (s *markupService) emit(ctx context.Context, projectID uuid.UUID, event string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, projectChannel(projectID), event, payload)
}

func ontologyLookup(raw []byte) (map[string]types.OntologyMeta, error) {
	nodes, err := DecodeOntology(raw)
	if err != nil {
		return nil, err
	}
	return FlattenOntology(nodes), nil
}

func spanInRange(item *types.DatasetItem, key types.EntityKey) bool {
	if key.StartIndex < 0 || key.EndIndex < key.StartIndex {
		return false
	}
	return key.EndIndex < len(item.TokenList())
}

func validEndpoint(m *types.Markup, projectID, itemID uuid.UUID) bool {
	return m != nil && m.IsEntity() && m.ProjectID == projectID && m.DatasetItemID == itemID
}

func entitiesByItem(rows []*types.Markup) map[uuid.UUID]*types.Markup {
	byItem := make(map[uuid.UUID]*types.Markup, len(rows))
	for _, m := range rows {
		// Accepted rows win over suggested when an owner somehow holds both.
		if cur, ok := byItem[m.DatasetItemID]; ok && !cur.Suggested {
			continue
		}
		byItem[m.DatasetItemID] = m
	}
	return byItem
}

func relationSlot(itemID, sourceID, targetID uuid.UUID) string {
	return itemID.String() + "|" + sourceID.String() + "|" + targetID.String()
}
