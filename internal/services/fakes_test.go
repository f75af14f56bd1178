package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/dbctx"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

// fakeStore is a shared in-memory backend for the repo fakes. Markup rows
// are kept in insertion order so scope iteration stays deterministic.
type fakeStore struct {
	mu sync.Mutex

	projects   map[uuid.UUID]*types.Project
	annotators map[uuid.UUID][]*types.ProjectAnnotator
	items      map[uuid.UUID]*types.DatasetItem
	saveStates []*types.ItemSaveState
	flags      []*types.ItemFlag
	markups    []*types.Markup
	comments   []*types.SocialComment
	notes      []*types.Notification
	resources  map[uuid.UUID]*types.Resource
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:   make(map[uuid.UUID]*types.Project),
		annotators: make(map[uuid.UUID][]*types.ProjectAnnotator),
		items:      make(map[uuid.UUID]*types.DatasetItem),
		resources:  make(map[uuid.UUID]*types.Resource),
	}
}

func (st *fakeStore) markupByID(id uuid.UUID) *types.Markup {
	for _, m := range st.markups {
		if m.ID == id {
			return m
		}
	}
	return nil
}

type fakeProjectRepo struct{ st *fakeStore }

func (r *fakeProjectRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Project, error) {
	return r.st.projects[id], nil
}

func (r *fakeProjectRepo) Create(_ dbctx.Context, rows []*types.Project) ([]*types.Project, error) {
	for _, p := range rows {
		r.st.projects[p.ID] = p
	}
	return rows, nil
}

func (r *fakeProjectRepo) GetAnnotator(_ dbctx.Context, projectID uuid.UUID, username string) (*types.ProjectAnnotator, error) {
	for _, a := range r.st.annotators[projectID] {
		if a.Username == username {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeProjectRepo) ListAnnotators(_ dbctx.Context, projectID uuid.UUID) ([]*types.ProjectAnnotator, error) {
	return r.st.annotators[projectID], nil
}

type fakeItemRepo struct{ st *fakeStore }

func (r *fakeItemRepo) withAssociations(item *types.DatasetItem) *types.DatasetItem {
	cp := *item
	cp.SaveStates = nil
	cp.Flags = nil
	for _, s := range r.st.saveStates {
		if s.DatasetItemID == item.ID {
			cp.SaveStates = append(cp.SaveStates, *s)
		}
	}
	for _, f := range r.st.flags {
		if f.DatasetItemID == item.ID {
			cp.Flags = append(cp.Flags, *f)
		}
	}
	return &cp
}

func (r *fakeItemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DatasetItem, error) {
	item := r.st.items[id]
	if item == nil {
		return nil, nil
	}
	return r.withAssociations(item), nil
}

func (r *fakeItemRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.DatasetItem, error) {
	var out []*types.DatasetItem
	for _, id := range ids {
		if item := r.st.items[id]; item != nil {
			out = append(out, r.withAssociations(item))
		}
	}
	return out, nil
}

func (r *fakeItemRepo) SavedItemIDs(_ dbctx.Context, itemIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	for _, id := range itemIDs {
		for _, s := range r.st.saveStates {
			if s.DatasetItemID == id {
				out[id] = true
				break
			}
		}
	}
	return out, nil
}

func (r *fakeItemRepo) SaveStatesByItems(_ dbctx.Context, itemIDs []uuid.UUID) ([]*types.ItemSaveState, error) {
	var out []*types.ItemSaveState
	for _, s := range r.st.saveStates {
		for _, id := range itemIDs {
			if s.DatasetItemID == id {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeItemRepo) AddSaveState(_ dbctx.Context, itemID uuid.UUID, username string) (bool, error) {
	for _, s := range r.st.saveStates {
		if s.DatasetItemID == itemID && s.Username == username {
			return false, nil
		}
	}
	r.st.saveStates = append(r.st.saveStates, &types.ItemSaveState{
		ID:            uuid.New(),
		DatasetItemID: itemID,
		Username:      username,
	})
	return true, nil
}

func (r *fakeItemRepo) RemoveSaveState(_ dbctx.Context, itemID uuid.UUID, username string) error {
	kept := r.st.saveStates[:0]
	for _, s := range r.st.saveStates {
		if !(s.DatasetItemID == itemID && s.Username == username) {
			kept = append(kept, s)
		}
	}
	r.st.saveStates = kept
	return nil
}

func (r *fakeItemRepo) SetFlag(_ dbctx.Context, itemID uuid.UUID, username, state string) error {
	_ = r.ClearFlag(dbctx.Context{}, itemID, username, state)
	r.st.flags = append(r.st.flags, &types.ItemFlag{
		ID:            uuid.New(),
		DatasetItemID: itemID,
		Username:      username,
		State:         state,
	})
	return nil
}

func (r *fakeItemRepo) ClearFlag(_ dbctx.Context, itemID uuid.UUID, username, state string) error {
	kept := r.st.flags[:0]
	for _, f := range r.st.flags {
		if !(f.DatasetItemID == itemID && f.Username == username && f.State == state) {
			kept = append(kept, f)
		}
	}
	r.st.flags = kept
	return nil
}

type fakeMarkupRepo struct{ st *fakeStore }

func (r *fakeMarkupRepo) Create(_ dbctx.Context, rows []*types.Markup) ([]*types.Markup, error) {
	r.st.markups = append(r.st.markups, rows...)
	return rows, nil
}

func (r *fakeMarkupRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Markup, error) {
	return r.st.markupByID(id), nil
}

func (r *fakeMarkupRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Markup, error) {
	var out []*types.Markup
	for _, id := range ids {
		if m := r.st.markupByID(id); m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (r *fakeMarkupRepo) FindEntitiesByOwnerKey(_ dbctx.Context, projectID uuid.UUID, itemIDs []uuid.UUID, username string, key types.EntityKey) ([]*types.Markup, error) {
	var out []*types.Markup
	for _, m := range r.st.markups {
		if m.ProjectID != projectID || m.Username != username || m.IsRelation() {
			continue
		}
		if m.EntityKey() != key {
			continue
		}
		if itemIDs != nil && !containsID(itemIDs, m.DatasetItemID) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMarkupRepo) FindEntitiesByKey(_ dbctx.Context, projectID uuid.UUID, itemIDs []uuid.UUID, key types.EntityKey) ([]*types.Markup, error) {
	var out []*types.Markup
	for _, m := range r.st.markups {
		if m.ProjectID != projectID || m.IsRelation() || m.EntityKey() != key {
			continue
		}
		if itemIDs != nil && !containsID(itemIDs, m.DatasetItemID) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMarkupRepo) FindRelationByOwnerEndpoints(_ dbctx.Context, projectID, itemID uuid.UUID, username, labelID string, sourceID, targetID uuid.UUID) (*types.Markup, error) {
	for _, m := range r.st.markups {
		if m.ProjectID == projectID && m.DatasetItemID == itemID && m.Username == username &&
			m.IsRelation() && m.LabelID == labelID &&
			m.SourceID != nil && *m.SourceID == sourceID &&
			m.TargetID != nil && *m.TargetID == targetID {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMarkupRepo) FindRelationsByOwnerLabel(_ dbctx.Context, projectID uuid.UUID, username, labelID string, suggestedOnly bool) ([]*types.Markup, error) {
	var out []*types.Markup
	for _, m := range r.st.markups {
		if m.ProjectID != projectID || m.Username != username || !m.IsRelation() || m.LabelID != labelID {
			continue
		}
		if suggestedOnly && !m.Suggested {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMarkupRepo) FindRelationsReferencing(_ dbctx.Context, entityIDs []uuid.UUID) ([]*types.Markup, error) {
	var out []*types.Markup
	for _, m := range r.st.markups {
		if !m.IsRelation() {
			continue
		}
		if (m.SourceID != nil && containsID(entityIDs, *m.SourceID)) ||
			(m.TargetID != nil && containsID(entityIDs, *m.TargetID)) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMarkupRepo) FindByOwnerAndItems(_ dbctx.Context, projectID uuid.UUID, username string, itemIDs []uuid.UUID) ([]*types.Markup, error) {
	var out []*types.Markup
	for _, m := range r.st.markups {
		if m.ProjectID == projectID && m.Username == username && containsID(itemIDs, m.DatasetItemID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMarkupRepo) FindByOwnersAndItems(_ dbctx.Context, projectID uuid.UUID, usernames []string, itemIDs []uuid.UUID) ([]*types.Markup, error) {
	var out []*types.Markup
	for _, m := range r.st.markups {
		if m.ProjectID != projectID || !containsID(itemIDs, m.DatasetItemID) {
			continue
		}
		for _, u := range usernames {
			if m.Username == u {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeMarkupRepo) Promote(_ dbctx.Context, ids []uuid.UUID) error {
	for _, m := range r.st.markups {
		if containsID(ids, m.ID) {
			m.Suggested = false
		}
	}
	return nil
}

func (r *fakeMarkupRepo) DeleteByIDs(_ dbctx.Context, ids []uuid.UUID) error {
	kept := r.st.markups[:0]
	for _, m := range r.st.markups {
		if !containsID(ids, m.ID) {
			kept = append(kept, m)
		}
	}
	r.st.markups = kept
	return nil
}

type fakeSocialRepo struct{ st *fakeStore }

func (r *fakeSocialRepo) Create(_ dbctx.Context, rows []*types.SocialComment) ([]*types.SocialComment, error) {
	r.st.comments = append(r.st.comments, rows...)
	return rows, nil
}

func (r *fakeSocialRepo) ListByItems(_ dbctx.Context, itemIDs []uuid.UUID) ([]*types.SocialComment, error) {
	var out []*types.SocialComment
	for _, c := range r.st.comments {
		if containsID(itemIDs, c.DatasetItemID) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeNotificationRepo struct{ st *fakeStore }

func (r *fakeNotificationRepo) Create(_ dbctx.Context, rows []*types.Notification) ([]*types.Notification, error) {
	r.st.notes = append(r.st.notes, rows...)
	return rows, nil
}

func (r *fakeNotificationRepo) ListByRecipient(_ dbctx.Context, username string, unreadOnly bool) ([]*types.Notification, error) {
	var out []*types.Notification
	for _, n := range r.st.notes {
		if n.Recipient != username {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

type fakeResourceRepo struct{ st *fakeStore }

func (r *fakeResourceRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Resource, error) {
	return r.st.resources[id], nil
}

func (r *fakeResourceRepo) Create(_ dbctx.Context, rows []*types.Resource) ([]*types.Resource, error) {
	for _, res := range rows {
		r.st.resources[res.ID] = res
	}
	return rows, nil
}

type publishedEvent struct {
	Channel string
	Event   string
	Data    any
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *fakeNotifier) Publish(_ context.Context, channel, event string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{Channel: channel, Event: event, Data: data})
}

func (n *fakeNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Event == event {
			c++
		}
	}
	return c
}

// world wires a fake store with every service under test.
type world struct {
	t     *testing.T
	store *fakeStore
	log   *logger.Logger

	notifier *fakeNotifier
	scope    ScopeService
	markup   MarkupService

	projectID uuid.UUID
}

func newWorld(t *testing.T) *world {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	st := newFakeStore()
	n := &fakeNotifier{}
	scope := NewScopeService(log, &fakeProjectRepo{st}, &fakeItemRepo{st})
	w := &world{
		t:        t,
		store:    st,
		log:      log,
		notifier: n,
		scope:    scope,
	}
	w.markup = NewMarkupService(nil, log, scope, &fakeProjectRepo{st}, &fakeItemRepo{st}, &fakeMarkupRepo{st}, &fakeNotificationRepo{st}, n)
	return w
}

func (w *world) datasetService(agreement AgreementService) DatasetService {
	st := w.store
	return NewDatasetService(nil, w.log, w.scope,
		&fakeProjectRepo{st}, &fakeItemRepo{st}, &fakeMarkupRepo{st},
		&fakeSocialRepo{st}, &fakeNotificationRepo{st}, agreement, w.notifier)
}

func (w *world) agreementService() AgreementService {
	st := w.store
	return NewAgreementService(w.log, &fakeItemRepo{st}, &fakeMarkupRepo{st}, w.notifier)
}

func (w *world) pretagService() PretagService {
	st := w.store
	return NewPretagService(nil, w.log, w.scope,
		&fakeProjectRepo{st}, &fakeItemRepo{st}, &fakeMarkupRepo{st}, &fakeResourceRepo{st}, w.notifier)
}

func mustJSON(t *testing.T, v any) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return datatypes.JSON(raw)
}

// addProject seeds a project with flat single-level ontologies. Entity
// labels get ids "1", "2", ... and relation labels likewise.
func (w *world) addProject(entityLabels, relationLabels []string) uuid.UUID {
	w.t.Helper()
	entities := InitializeOntology(namedNodes(entityLabels))
	relations := InitializeOntology(namedNodes(relationLabels))
	p := &types.Project{
		ID:                uuid.New(),
		Name:              "test project",
		EntityOntology:    mustJSON(w.t, entities),
		RelationOntology:  mustJSON(w.t, relations),
		AnnotatorsPerItem: 1,
	}
	w.store.projects[p.ID] = p
	w.projectID = p.ID
	return p.ID
}

func namedNodes(names []string) []*types.OntologyNode {
	nodes := make([]*types.OntologyNode, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, &types.OntologyNode{Name: name})
	}
	return nodes
}

func (w *world) addItem(text string, tokens ...string) uuid.UUID {
	w.t.Helper()
	item := &types.DatasetItem{
		ID:     uuid.New(),
		Tokens: mustJSON(w.t, tokens),
		Text:   text,
	}
	w.store.items[item.ID] = item
	return item.ID
}

func (w *world) addAnnotator(username, role string, itemIDs ...uuid.UUID) {
	w.t.Helper()
	a := &types.ProjectAnnotator{
		ID:        uuid.New(),
		ProjectID: w.projectID,
		Username:  username,
		Role:      role,
		State:     types.AnnotatorStateAccepted,
	}
	for i, id := range itemIDs {
		a.Scope = append(a.Scope, types.AnnotatorScopeEntry{
			ID:            uuid.New(),
			AnnotatorID:   a.ID,
			DatasetItemID: id,
			Visible:       true,
			Position:      i,
		})
	}
	w.store.annotators[w.projectID] = append(w.store.annotators[w.projectID], a)
}

func (w *world) saveItem(username string, itemID uuid.UUID) {
	w.store.saveStates = append(w.store.saveStates, &types.ItemSaveState{
		ID:            uuid.New(),
		DatasetItemID: itemID,
		Username:      username,
	})
}

func (w *world) addEntity(username string, itemID uuid.UUID, labelID string, start, end int, suggested bool) *types.Markup {
	m := &types.Markup{
		ID:             uuid.New(),
		ProjectID:      w.projectID,
		DatasetItemID:  itemID,
		Username:       username,
		Classification: types.ClassificationEntity,
		LabelID:        labelID,
		StartIndex:     start,
		EndIndex:       end,
		Suggested:      suggested,
	}
	w.store.markups = append(w.store.markups, m)
	return m
}

func (w *world) addRelation(username string, itemID uuid.UUID, labelID string, source, target *types.Markup, suggested bool) *types.Markup {
	src := source.ID
	tgt := target.ID
	m := &types.Markup{
		ID:             uuid.New(),
		ProjectID:      w.projectID,
		DatasetItemID:  itemID,
		Username:       username,
		Classification: types.ClassificationRelation,
		LabelID:        labelID,
		SourceID:       &src,
		TargetID:       &tgt,
		Suggested:      suggested,
	}
	w.store.markups = append(w.store.markups, m)
	return m
}

func (w *world) entitiesOn(itemID uuid.UUID, username string) []*types.Markup {
	var out []*types.Markup
	for _, m := range w.store.markups {
		if m.DatasetItemID == itemID && m.Username == username && !m.IsRelation() {
			out = append(out, m)
		}
	}
	return out
}

func (w *world) relationsOn(itemID uuid.UUID, username string) []*types.Markup {
	var out []*types.Markup
	for _, m := range w.store.markups {
		if m.DatasetItemID == itemID && m.Username == username && m.IsRelation() {
			out = append(out, m)
		}
	}
	return out
}
