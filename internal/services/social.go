package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/nlp-tlp/quickgraph-sub000/internal/data/repos"
	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/dbctx"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

// SocialService covers the discussion write path and the notification feed.
type SocialService interface {
	AddComment(ctx context.Context, projectID uuid.UUID, username string, itemID uuid.UUID, commentContext, text string) (*types.SocialComment, error)
	ListNotifications(ctx context.Context, username string, unreadOnly bool) ([]*types.Notification, error)
}

type socialService struct {
	log           *logger.Logger
	scope         ScopeService
	projects      repos.ProjectRepo
	social        repos.SocialRepo
	notifications repos.NotificationRepo
}

func NewSocialService(
	baseLog *logger.Logger,
	scope ScopeService,
	projects repos.ProjectRepo,
	social repos.SocialRepo,
	notifications repos.NotificationRepo,
) SocialService {
	return &socialService{
		log:           baseLog.With("service", "SocialService"),
		scope:         scope,
		projects:      projects,
		social:        social,
		notifications: notifications,
	}
}

func (s *socialService) AddComment(ctx context.Context, projectID uuid.UUID, username string, itemID uuid.UUID, commentContext, text string) (*types.SocialComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, types.ErrInvalidFilter
	}
	dbc := dbctx.Context{Ctx: ctx}

	project, err := s.projects.GetByID(dbc, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, types.ErrProjectNotFound
	}

	visible, err := s.scope.VisibleItems(dbc, projectID, username)
	if err != nil {
		return nil, err
	}
	onScope := false
	for _, id := range visible {
		if id == itemID {
			onScope = true
			break
		}
	}
	if !onScope {
		return nil, types.ErrDocumentNotFound
	}

	row := &types.SocialComment{
		ID:            uuid.New(),
		DatasetItemID: itemID,
		Username:      username,
		Context:       commentContext,
		Text:          text,
	}
	created, err := s.social.Create(dbc, []*types.SocialComment{row})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

func (s *socialService) ListNotifications(ctx context.Context, username string, unreadOnly bool) ([]*types.Notification, error) {
	rows, err := s.notifications.ListByRecipient(dbctx.Context{Ctx: ctx}, username, unreadOnly)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*types.Notification{}
	}
	return rows, nil
}
