package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/nlp-tlp/quickgraph-sub000/internal/data/repos"
	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/dbctx"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

const (
	FilterEverything = "everything"

	SaveStateUnsaved = "unsaved"
	SaveStateSaved   = "saved"

	QualitySuggested = "suggested"
	QualityAccepted  = "accepted"

	RelationsNone = "none"
	RelationsHas  = "has"

	FlagsNone = "no_flags"
)

const (
	MinPageLimit = 1
	MaxPageLimit = 20
)

// DatasetFilters is the full filter configuration for one workspace page.
// Empty string values mean "everything".
type DatasetFilters struct {
	Search    string      `json:"search_term"`
	SaveState string      `json:"saved"`
	Quality   string      `json:"quality"`
	Relations string      `json:"relations"`
	Flags     string      `json:"flags"`
	ItemIDs   []uuid.UUID `json:"dataset_item_ids,omitempty"`
	ClusterID *int        `json:"cluster_id,omitempty"`
	Skip      int         `json:"skip"`
	Limit     int         `json:"limit"`
}

func (f *DatasetFilters) Validate() error {
	if f.Limit < MinPageLimit || f.Limit > MaxPageLimit {
		return fmt.Errorf("limit must be between %d and %d: %w", MinPageLimit, MaxPageLimit, types.ErrInvalidFilter)
	}
	if f.Skip < 0 {
		return fmt.Errorf("skip must not be negative: %w", types.ErrInvalidFilter)
	}
	if !validEnum(f.SaveState, SaveStateUnsaved, SaveStateSaved) {
		return fmt.Errorf("invalid save-state filter %q: %w", f.SaveState, types.ErrInvalidFilter)
	}
	if !validEnum(f.Quality, QualitySuggested, QualityAccepted) {
		return fmt.Errorf("invalid quality filter %q: %w", f.Quality, types.ErrInvalidFilter)
	}
	if !validEnum(f.Relations, RelationsNone, RelationsHas) {
		return fmt.Errorf("invalid relations filter %q: %w", f.Relations, types.ErrInvalidFilter)
	}
	if !validEnum(f.Flags, FlagsNone, types.FlagIssue, types.FlagQuality, types.FlagUncertain) {
		return fmt.Errorf("invalid flag filter %q: %w", f.Flags, types.ErrInvalidFilter)
	}
	return nil
}

func validEnum(val string, allowed ...string) bool {
	if val == "" || val == FilterEverything {
		return true
	}
	for _, a := range allowed {
		if val == a {
			return true
		}
	}
	return false
}

type TokenView struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

type CommentView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Context   string    `json:"context"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	ReadOnly  bool      `json:"read_only"`
}

type ItemView struct {
	ID              string        `json:"id"`
	ExternalID      string        `json:"external_id"`
	Tokens          []TokenView   `json:"tokens"`
	Saved           bool          `json:"saved"`
	Flags           []string      `json:"flags"`
	ClusterID       *int          `json:"cluster_id,omitempty"`
	ClusterKeywords []string      `json:"cluster_keywords,omitempty"`
	Entities        []OutEntity   `json:"entities"`
	Relations       []OutRelation `json:"relations"`
	Comments        []CommentView `json:"comments"`
}

type FilteredDataset struct {
	TotalItems int        `json:"total_dataset_items"`
	TotalPages int        `json:"total_pages"`
	Items      []ItemView `json:"dataset_items"`
}

// DatasetService is the read path for the annotation workspace, plus the
// save-state and flag mutations the filters depend on.
type DatasetService interface {
	Filter(ctx context.Context, projectID uuid.UUID, username string, filters DatasetFilters) (*FilteredDataset, error)
	SetSaveState(ctx context.Context, projectID uuid.UUID, username string, itemIDs []uuid.UUID, saved bool) (int, error)
	SetFlag(ctx context.Context, projectID uuid.UUID, username string, itemID uuid.UUID, state string, active bool) error
}

type datasetService struct {
	db            *gorm.DB
	log           *logger.Logger
	scope         ScopeService
	projects      repos.ProjectRepo
	items         repos.DatasetItemRepo
	markups       repos.MarkupRepo
	social        repos.SocialRepo
	notifications repos.NotificationRepo
	agreement     AgreementService
	notifier      Notifier
}

func NewDatasetService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scope ScopeService,
	projects repos.ProjectRepo,
	items repos.DatasetItemRepo,
	markups repos.MarkupRepo,
	social repos.SocialRepo,
	notifications repos.NotificationRepo,
	agreement AgreementService,
	notifier Notifier,
) DatasetService {
	return &datasetService{
		db:            db,
		log:           baseLog.With("service", "DatasetService"),
		scope:         scope,
		projects:      projects,
		items:         items,
		markups:       markups,
		social:        social,
		notifications: notifications,
		agreement:     agreement,
		notifier:      notifier,
	}
}

// itemContext is everything the filter predicates see for one document.
type itemContext struct {
	item      *types.DatasetItem
	username  string
	entities  []*types.Markup
	relations []*types.Markup
}

// predicate is one optional filter stage. Stages are collected into an
// explicit ordered list and folded conjunctively.
type predicate struct {
	name string
	keep func(*itemContext) bool
}

func buildPredicates(filters DatasetFilters, username string) []predicate {
	var preds []predicate

	if terms := searchTerms(filters.Search); len(terms) > 0 {
		patterns := make([]*regexp.Regexp, 0, len(terms))
		for _, t := range terms {
			patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(t)+`\b`))
		}
		preds = append(preds, predicate{
			name: "search",
			keep: func(c *itemContext) bool {
				for _, p := range patterns {
					if !p.MatchString(c.item.Text) {
						return false
					}
				}
				return true
			},
		})
	}

	if filters.ClusterID != nil {
		want := *filters.ClusterID
		preds = append(preds, predicate{
			name: "cluster",
			keep: func(c *itemContext) bool {
				return c.item.ClusterID != nil && *c.item.ClusterID == want
			},
		})
	}

	switch filters.SaveState {
	case SaveStateSaved:
		preds = append(preds, predicate{
			name: "save_state",
			keep: func(c *itemContext) bool { return c.item.SavedBy(c.username) },
		})
	case SaveStateUnsaved:
		preds = append(preds, predicate{
			name: "save_state",
			keep: func(c *itemContext) bool { return !c.item.SavedBy(c.username) },
		})
	}

	switch filters.Quality {
	case QualitySuggested:
		preds = append(preds, predicate{
			name: "quality",
			keep: func(c *itemContext) bool { return hasMarkupWithQuality(c, true) },
		})
	case QualityAccepted:
		preds = append(preds, predicate{
			name: "quality",
			keep: func(c *itemContext) bool { return hasMarkupWithQuality(c, false) },
		})
	}

	switch filters.Relations {
	case RelationsHas:
		preds = append(preds, predicate{
			name: "relations",
			keep: func(c *itemContext) bool { return len(c.relations) > 0 },
		})
	case RelationsNone:
		preds = append(preds, predicate{
			name: "relations",
			keep: func(c *itemContext) bool { return len(c.relations) == 0 },
		})
	}

	switch filters.Flags {
	case "", FilterEverything:
	case FlagsNone:
		preds = append(preds, predicate{
			name: "flags",
			keep: func(c *itemContext) bool { return len(ownFlags(c.item, c.username)) == 0 },
		})
	default:
		want := filters.Flags
		preds = append(preds, predicate{
			name: "flags",
			keep: func(c *itemContext) bool {
				for _, state := range ownFlags(c.item, c.username) {
					if state == want {
						return true
					}
				}
				return false
			},
		})
	}

	return preds
}

func searchTerms(raw string) []string {
	var terms []string
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func hasMarkupWithQuality(c *itemContext, suggested bool) bool {
	for _, m := range c.entities {
		if m.Suggested == suggested {
			return true
		}
	}
	for _, m := range c.relations {
		if m.Suggested == suggested {
			return true
		}
	}
	return false
}

func ownFlags(item *types.DatasetItem, username string) []string {
	var states []string
	for _, f := range item.Flags {
		if f.Username == username {
			states = append(states, f.State)
		}
	}
	return states
}

func (s *datasetService) Filter(ctx context.Context, projectID uuid.UUID, username string, filters DatasetFilters) (*FilteredDataset, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	dbc := dbctx.Context{Ctx: ctx}
	project, err := s.projects.GetByID(dbc, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, types.ErrProjectNotFound
	}

	scopeIDs, err := s.scope.VisibleItems(dbc, projectID, username)
	if err != nil {
		return nil, err
	}
	if len(filters.ItemIDs) > 0 {
		subset := make(map[uuid.UUID]bool, len(filters.ItemIDs))
		for _, id := range filters.ItemIDs {
			subset[id] = true
		}
		narrowed := scopeIDs[:0:0]
		for _, id := range scopeIDs {
			if subset[id] {
				narrowed = append(narrowed, id)
			}
		}
		scopeIDs = narrowed
	}

	var (
		scopeItems []*types.DatasetItem
		userMarkup []*types.Markup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		scopeItems, err = s.items.GetByIDs(dbctx.Context{Ctx: gctx}, scopeIDs)
		return err
	})
	g.Go(func() error {
		var err error
		userMarkup, err = s.markups.FindByOwnerAndItems(dbctx.Context{Ctx: gctx}, projectID, username, scopeIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	itemsByID := make(map[uuid.UUID]*types.DatasetItem, len(scopeItems))
	for _, it := range scopeItems {
		itemsByID[it.ID] = it
	}
	entitiesByItem := make(map[uuid.UUID][]*types.Markup)
	relationsByItem := make(map[uuid.UUID][]*types.Markup)
	for _, m := range userMarkup {
		if m.IsRelation() {
			relationsByItem[m.DatasetItemID] = append(relationsByItem[m.DatasetItemID], m)
		} else {
			entitiesByItem[m.DatasetItemID] = append(entitiesByItem[m.DatasetItemID], m)
		}
	}

	preds := buildPredicates(filters, username)
	var matched []*types.DatasetItem
	for _, id := range scopeIDs {
		item := itemsByID[id]
		if item == nil {
			continue
		}
		c := &itemContext{
			item:      item,
			username:  username,
			entities:  entitiesByItem[id],
			relations: relationsByItem[id],
		}
		keep := true
		for _, p := range preds {
			if !p.keep(c) {
				keep = false
				break
			}
		}
		if keep {
			matched = append(matched, item)
		}
	}

	total := len(matched)
	totalPages := (total + filters.Limit - 1) / filters.Limit

	start := filters.Skip * filters.Limit
	if start > total {
		start = total
	}
	end := start + filters.Limit
	if end > total {
		end = total
	}
	page := matched[start:end]

	views, err := s.assemble(ctx, project, username, page, entitiesByItem, relationsByItem)
	if err != nil {
		return nil, err
	}

	return &FilteredDataset{
		TotalItems: total,
		TotalPages: totalPages,
		Items:      views,
	}, nil
}

func (s *datasetService) assemble(
	ctx context.Context,
	project *types.Project,
	username string,
	page []*types.DatasetItem,
	entitiesByItem map[uuid.UUID][]*types.Markup,
	relationsByItem map[uuid.UUID][]*types.Markup,
) ([]ItemView, error) {
	pageIDs := make([]uuid.UUID, 0, len(page))
	for _, it := range page {
		pageIDs = append(pageIDs, it.ID)
	}

	comments, err := s.social.ListByItems(dbctx.Context{Ctx: ctx}, pageIDs)
	if err != nil {
		return nil, err
	}
	commentsByItem := make(map[uuid.UUID][]CommentView)
	for _, c := range comments {
		// With discussion disabled a user sees only their own comments.
		if project.DisableDiscussion && c.Username != username {
			continue
		}
		commentsByItem[c.DatasetItemID] = append(commentsByItem[c.DatasetItemID], CommentView{
			ID:        c.ID.String(),
			Username:  c.Username,
			Context:   c.Context,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
			ReadOnly:  c.Username != username,
		})
	}

	entityMeta, err := ontologyLookup(project.EntityOntology)
	if err != nil {
		return nil, err
	}
	relationMeta, err := ontologyLookup(project.RelationOntology)
	if err != nil {
		return nil, err
	}

	views := make([]ItemView, 0, len(page))
	for _, item := range page {
		tokens := item.TokenList()
		tokenViews := make([]TokenView, 0, len(tokens))
		for i, tok := range tokens {
			tokenViews = append(tokenViews, TokenView{Index: i, Value: tok})
		}

		// Every document gets explicit lists, empty or not.
		entities := []OutEntity{}
		for _, m := range entitiesByItem[item.ID] {
			entities = append(entities, outEntityFrom(m, entityMeta[m.LabelID]))
		}
		relations := []OutRelation{}
		for _, m := range relationsByItem[item.ID] {
			relations = append(relations, outRelationFrom(m, relationMeta[m.LabelID]))
		}

		flags := ownFlags(item, username)
		if flags == nil {
			flags = []string{}
		}
		itemComments := commentsByItem[item.ID]
		if itemComments == nil {
			itemComments = []CommentView{}
		}

		views = append(views, ItemView{
			ID:              item.ID.String(),
			ExternalID:      item.ExternalID,
			Tokens:          tokenViews,
			Saved:           item.SavedBy(username),
			Flags:           flags,
			ClusterID:       item.ClusterID,
			ClusterKeywords: decodeKeywords(item.ClusterKeywords),
			Entities:        entities,
			Relations:       relations,
			Comments:        itemComments,
		})
	}
	return views, nil
}

func decodeKeywords(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var keywords []string
	_ = json.Unmarshal(raw, &keywords)
	return keywords
}

func (s *datasetService) inTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if s.db == nil {
		return fn(dbctx.Context{Ctx: ctx})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

func (s *datasetService) SetSaveState(ctx context.Context, projectID uuid.UUID, username string, itemIDs []uuid.UUID, saved bool) (int, error) {
	scopeIDs, err := s.scope.VisibleItems(dbctx.Context{Ctx: ctx}, projectID, username)
	if err != nil {
		return 0, err
	}
	visible := make(map[uuid.UUID]bool, len(scopeIDs))
	for _, id := range scopeIDs {
		visible[id] = true
	}
	for _, id := range itemIDs {
		if !visible[id] {
			return 0, types.ErrDocumentNotFound
		}
	}

	changed := 0
	err = s.inTx(ctx, func(dbc dbctx.Context) error {
		for _, id := range itemIDs {
			if saved {
				added, err := s.items.AddSaveState(dbc, id, username)
				if err != nil {
					return err
				}
				if added {
					changed++
				}
			} else {
				if err := s.items.RemoveSaveState(dbc, id, username); err != nil {
					return err
				}
				changed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if saved && changed > 0 {
		s.afterSave(ctx, projectID, username, itemIDs)
	}
	return changed, nil
}

// afterSave runs the opportunistic post-save work: agreement recomputation
// per saved item, a quorum notification to project managers, and an SSE
// event. Failures are logged, never surfaced; the save itself already
// committed.
func (s *datasetService) afterSave(ctx context.Context, projectID uuid.UUID, username string, itemIDs []uuid.UUID) {
	for _, id := range itemIDs {
		if s.agreement != nil {
			if _, err := s.agreement.ComputeForItem(ctx, projectID, id); err != nil {
				s.log.Warn("post-save agreement computation failed", "item_id", id, "error", err)
			}
		}
		if err := s.notifyQuorum(ctx, projectID, username, id); err != nil {
			s.log.Warn("post-save quorum notification failed", "item_id", id, "error", err)
		}
	}
	if s.notifier != nil {
		s.notifier.Publish(ctx, projectChannel(projectID), EventItemSaved, map[string]any{
			"username": username,
			"item_ids": itemIDs,
		})
	}
}

func (s *datasetService) notifyQuorum(ctx context.Context, projectID uuid.UUID, username string, itemID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	project, err := s.projects.GetByID(dbc, projectID)
	if err != nil || project == nil {
		return err
	}
	if project.AnnotatorsPerItem <= 0 {
		return nil
	}
	states, err := s.items.SaveStatesByItems(dbc, []uuid.UUID{itemID})
	if err != nil {
		return err
	}
	if len(states) != project.AnnotatorsPerItem {
		return nil
	}

	annotators, err := s.projects.ListAnnotators(dbc, projectID)
	if err != nil {
		return err
	}
	var rows []*types.Notification
	pid := projectID
	for _, a := range annotators {
		if a.Role != types.RoleProjectManager {
			continue
		}
		rows = append(rows, &types.Notification{
			ID:        uuid.New(),
			Recipient: a.Username,
			Sender:    username,
			Kind:      types.NotificationKindQuorumReached,
			ProjectID: &pid,
			Content:   fmt.Sprintf("document %s reached its save quorum", itemID),
		})
	}
	_, err = s.notifications.Create(dbc, rows)
	return err
}

func (s *datasetService) SetFlag(ctx context.Context, projectID uuid.UUID, username string, itemID uuid.UUID, state string, active bool) error {
	if !annotationValidFlag(state) {
		return fmt.Errorf("invalid flag state %q: %w", state, types.ErrInvalidFilter)
	}
	scopeIDs, err := s.scope.VisibleItems(dbctx.Context{Ctx: ctx}, projectID, username)
	if err != nil {
		return err
	}
	visible := false
	for _, id := range scopeIDs {
		if id == itemID {
			visible = true
			break
		}
	}
	if !visible {
		return types.ErrDocumentNotFound
	}

	err = s.inTx(ctx, func(dbc dbctx.Context) error {
		if active {
			return s.items.SetFlag(dbc, itemID, username, state)
		}
		return s.items.ClearFlag(dbc, itemID, username, state)
	})
	if err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Publish(ctx, projectChannel(projectID), EventItemFlagged, map[string]any{
			"username": username,
			"item_id":  itemID,
			"state":    state,
			"active":   active,
		})
	}
	return nil
}

func annotationValidFlag(state string) bool {
	switch state {
	case types.FlagIssue, types.FlagQuality, types.FlagUncertain:
		return true
	}
	return false
}
