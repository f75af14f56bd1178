package services

import (
	"github.com/google/uuid"

	"github.com/nlp-tlp/quickgraph-sub000/internal/data/repos"
	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/dbctx"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

type ScopeService interface {
	// VisibleItems returns the annotator's visible document ids in
	// assignment order. ErrDocumentNotFound when the user is not on the
	// project roster.
	VisibleItems(dbc dbctx.Context, projectID uuid.UUID, username string) ([]uuid.UUID, error)

	// EligibleForPropagation resolves the apply-to-all scope: every visible
	// document without a save-state record, plus the focus document even if
	// saved. With applyAll false the scope is just the focus document. The
	// focus must be visible to the annotator.
	EligibleForPropagation(dbc dbctx.Context, projectID uuid.UUID, username string, focusID uuid.UUID, applyAll bool) ([]uuid.UUID, error)
}

type scopeService struct {
	log      *logger.Logger
	projects repos.ProjectRepo
	items    repos.DatasetItemRepo
}

func NewScopeService(baseLog *logger.Logger, projects repos.ProjectRepo, items repos.DatasetItemRepo) ScopeService {
	return &scopeService{
		log:      baseLog.With("service", "ScopeService"),
		projects: projects,
		items:    items,
	}
}

func (s *scopeService) VisibleItems(dbc dbctx.Context, projectID uuid.UUID, username string) ([]uuid.UUID, error) {
	annotator, err := s.projects.GetAnnotator(dbc, projectID, username)
	if err != nil {
		return nil, err
	}
	if annotator == nil || annotator.State == types.AnnotatorStateDisabled {
		return nil, types.ErrDocumentNotFound
	}
	ids := make([]uuid.UUID, 0, len(annotator.Scope))
	for _, entry := range annotator.Scope {
		if entry.Visible {
			ids = append(ids, entry.DatasetItemID)
		}
	}
	return ids, nil
}

func (s *scopeService) EligibleForPropagation(dbc dbctx.Context, projectID uuid.UUID, username string, focusID uuid.UUID, applyAll bool) ([]uuid.UUID, error) {
	visible, err := s.VisibleItems(dbc, projectID, username)
	if err != nil {
		return nil, err
	}
	focusVisible := false
	for _, id := range visible {
		if id == focusID {
			focusVisible = true
			break
		}
	}
	if !focusVisible {
		return nil, types.ErrDocumentNotFound
	}

	if !applyAll {
		return []uuid.UUID{focusID}, nil
	}

	saved, err := s.items.SavedItemIDs(dbc, visible)
	if err != nil {
		return nil, err
	}

	// Saved documents are immutable to bulk propagation; an explicit action
	// on the focus document still succeeds even when it is saved.
	scope := make([]uuid.UUID, 0, len(visible))
	for _, id := range visible {
		if id == focusID || !saved[id] {
			scope = append(scope, id)
		}
	}
	return scope, nil
}
