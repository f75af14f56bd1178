package annotation

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/dbctx"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

type SocialRepo interface {
	Create(dbc dbctx.Context, rows []*types.SocialComment) ([]*types.SocialComment, error)
	ListByItems(dbc dbctx.Context, itemIDs []uuid.UUID) ([]*types.SocialComment, error)
}

type NotificationRepo interface {
	Create(dbc dbctx.Context, rows []*types.Notification) ([]*types.Notification, error)
	ListByRecipient(dbc dbctx.Context, username string, unreadOnly bool) ([]*types.Notification, error)
}

type socialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSocialRepo(db *gorm.DB, baseLog *logger.Logger) SocialRepo {
	return &socialRepo{db: db, log: baseLog.With("repo", "SocialRepo")}
}

func (sr *socialRepo) handle(dbc dbctx.Context) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = sr.db
	}
	return tx.WithContext(dbc.Context())
}

func (sr *socialRepo) Create(dbc dbctx.Context, rows []*types.SocialComment) ([]*types.SocialComment, error) {
	if len(rows) == 0 {
		return []*types.SocialComment{}, nil
	}
	if err := sr.handle(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (sr *socialRepo) ListByItems(dbc dbctx.Context, itemIDs []uuid.UUID) ([]*types.SocialComment, error) {
	var results []*types.SocialComment
	if len(itemIDs) == 0 {
		return results, nil
	}
	if err := sr.handle(dbc).
		Where("dataset_item_id IN ?", itemIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{db: db, log: baseLog.With("repo", "NotificationRepo")}
}

func (nr *notificationRepo) handle(dbc dbctx.Context) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = nr.db
	}
	return tx.WithContext(dbc.Context())
}

func (nr *notificationRepo) Create(dbc dbctx.Context, rows []*types.Notification) ([]*types.Notification, error) {
	if len(rows) == 0 {
		return []*types.Notification{}, nil
	}
	if err := nr.handle(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (nr *notificationRepo) ListByRecipient(dbc dbctx.Context, username string, unreadOnly bool) ([]*types.Notification, error) {
	q := nr.handle(dbc).Where("recipient = ?", username)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var results []*types.Notification
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
