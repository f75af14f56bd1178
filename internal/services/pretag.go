package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nlp-tlp/quickgraph-sub000/internal/data/repos"
	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/dbctx"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

// SpanMatch is one gazetteer hit inside a token sequence. Indexes are
// inclusive token positions.
type SpanMatch struct {
	Label   string
	Start   int
	End     int
	Surface string
}

type gazetteerEntry struct {
	label  string
	phrase []string
}

// MatchGazetteer scans tokens for gazetteer phrases, longest phrase first.
// Tokens consumed by a match are masked so shorter or later phrases cannot
// overlap them. Matching is case-insensitive; iteration order is
// deterministic for a given gazetteer.
func MatchGazetteer(tokens []string, gazetteer map[string][]string) []SpanMatch {
	if len(tokens) == 0 || len(gazetteer) == 0 {
		return nil
	}

	labels := make([]string, 0, len(gazetteer))
	for label := range gazetteer {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var entries []gazetteerEntry
	for _, label := range labels {
		for _, phrase := range gazetteer[label] {
			fields := strings.Fields(strings.ToLower(phrase))
			if len(fields) == 0 {
				continue
			}
			entries = append(entries, gazetteerEntry{label: label, phrase: fields})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if len(entries[i].phrase) != len(entries[j].phrase) {
			return len(entries[i].phrase) > len(entries[j].phrase)
		}
		if entries[i].label != entries[j].label {
			return entries[i].label < entries[j].label
		}
		return strings.Join(entries[i].phrase, " ") < strings.Join(entries[j].phrase, " ")
	})

	lower := make([]string, len(tokens))
	for i, t := range tokens {
		lower[i] = strings.ToLower(t)
	}
	masked := make([]bool, len(tokens))

	var matches []SpanMatch
	for _, e := range entries {
		width := len(e.phrase)
		for start := 0; start+width <= len(tokens); start++ {
			if !windowMatches(lower, masked, start, e.phrase) {
				continue
			}
			end := start + width - 1
			matches = append(matches, SpanMatch{
				Label:   e.label,
				Start:   start,
				End:     end,
				Surface: strings.Join(tokens[start:end+1], " "),
			})
			for i := start; i <= end; i++ {
				masked[i] = true
			}
			start = end
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End < matches[j].End
	})
	return matches
}

func windowMatches(lower []string, masked []bool, start int, phrase []string) bool {
	for i, word := range phrase {
		pos := start + i
		if masked[pos] || lower[pos] != word {
			return false
		}
	}
	return true
}

type PretagResult struct {
	Count    int `json:"count"`
	Entities int `json:"entities"`
}

// PretagService seeds suggested entity markup from a gazetteer resource
// across an annotator's unsaved documents.
type PretagService interface {
	ApplyGazetteer(ctx context.Context, projectID uuid.UUID, username string, resourceID uuid.UUID) (*PretagResult, error)
}

type pretagService struct {
	db        *gorm.DB
	log       *logger.Logger
	scope     ScopeService
	projects  repos.ProjectRepo
	items     repos.DatasetItemRepo
	markups   repos.MarkupRepo
	resources repos.ResourceRepo
	notifier  Notifier
}

func NewPretagService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scope ScopeService,
	projects repos.ProjectRepo,
	items repos.DatasetItemRepo,
	markups repos.MarkupRepo,
	resources repos.ResourceRepo,
	notifier Notifier,
) PretagService {
	return &pretagService{
		db:        db,
		log:       baseLog.With("service", "PretagService"),
		scope:     scope,
		projects:  projects,
		items:     items,
		markups:   markups,
		resources: resources,
		notifier:  notifier,
	}
}

func (s *pretagService) inTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if s.db == nil {
		return fn(dbctx.Context{Ctx: ctx})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

func (s *pretagService) ApplyGazetteer(ctx context.Context, projectID uuid.UUID, username string, resourceID uuid.UUID) (*PretagResult, error) {
	dbc := dbctx.Context{Ctx: ctx}

	project, err := s.projects.GetByID(dbc, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, types.ErrProjectNotFound
	}

	resource, err := s.resources.GetByID(dbc, resourceID)
	if err != nil {
		return nil, err
	}
	if resource == nil || resource.Classification != types.ResourceClassificationGazetteer {
		return nil, types.ErrResourceNotFound
	}
	var gazetteer map[string][]string
	if err := json.Unmarshal(resource.Content, &gazetteer); err != nil {
		return nil, fmt.Errorf("decode gazetteer content: %w", err)
	}

	labelIDs, err := s.resolveLabels(project, gazetteer)
	if err != nil {
		return nil, err
	}

	// Pre-tagging only touches documents the annotator has not yet saved.
	visible, err := s.scope.VisibleItems(dbc, projectID, username)
	if err != nil {
		return nil, err
	}
	saved, err := s.items.SavedItemIDs(dbc, visible)
	if err != nil {
		return nil, err
	}
	targetIDs := make([]uuid.UUID, 0, len(visible))
	for _, id := range visible {
		if !saved[id] {
			targetIDs = append(targetIDs, id)
		}
	}
	docs, err := s.items.GetByIDs(dbc, targetIDs)
	if err != nil {
		return nil, err
	}
	existing, err := s.markups.FindByOwnerAndItems(dbc, projectID, username, targetIDs)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		if !m.IsRelation() {
			seen[entitySlot(m.DatasetItemID, m.EntityKey())] = true
		}
	}

	var rows []*types.Markup
	touched := make(map[uuid.UUID]bool)
	for _, doc := range docs {
		tokens := doc.TokenList()
		for _, match := range MatchGazetteer(tokens, gazetteer) {
			key := types.EntityKey{
				LabelID:    labelIDs[match.Label],
				StartIndex: match.Start,
				EndIndex:   match.End,
			}
			slot := entitySlot(doc.ID, key)
			if seen[slot] {
				continue
			}
			seen[slot] = true
			rows = append(rows, &types.Markup{
				ID:             uuid.New(),
				ProjectID:      projectID,
				DatasetItemID:  doc.ID,
				Username:       username,
				Classification: types.ClassificationEntity,
				LabelID:        key.LabelID,
				StartIndex:     key.StartIndex,
				EndIndex:       key.EndIndex,
				SurfaceText:    match.Surface,
				Suggested:      true,
			})
			touched[doc.ID] = true
		}
	}

	if len(rows) > 0 {
		err = s.inTx(ctx, func(txc dbctx.Context) error {
			_, err := s.markups.Create(txc, rows)
			return err
		})
		if err != nil {
			return nil, err
		}
		if s.notifier != nil {
			s.notifier.Publish(ctx, projectChannel(projectID), EventMarkupApplied, map[string]any{
				"username": username,
				"source":   "gazetteer",
				"count":    len(touched),
			})
		}
	}

	s.log.Info("gazetteer pre-tag applied",
		"project_id", projectID,
		"annotator", username,
		"documents", len(touched),
		"entities", len(rows),
	)
	return &PretagResult{Count: len(touched), Entities: len(rows)}, nil
}

// resolveLabels maps gazetteer label names to entity ontology label ids.
// Both plain names and slash-joined fullnames are accepted.
func (s *pretagService) resolveLabels(project *types.Project, gazetteer map[string][]string) (map[string]string, error) {
	meta, err := ontologyLookup(project.EntityOntology)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(meta))
	byFullName := make(map[string]string, len(meta))
	for id, m := range meta {
		byName[m.Name] = id
		byFullName[m.FullName] = id
	}

	labelIDs := make(map[string]string, len(gazetteer))
	for label := range gazetteer {
		if id, ok := byFullName[label]; ok {
			labelIDs[label] = id
			continue
		}
		if id, ok := byName[label]; ok {
			labelIDs[label] = id
			continue
		}
		return nil, fmt.Errorf("gazetteer label %q: %w", label, types.ErrMissingLabel)
	}
	return labelIDs, nil
}

func entitySlot(itemID uuid.UUID, key types.EntityKey) string {
	return fmt.Sprintf("%s|%s|%d|%d", itemID, key.LabelID, key.StartIndex, key.EndIndex)
}
