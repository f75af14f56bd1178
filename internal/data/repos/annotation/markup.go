package annotation

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/dbctx"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

type MarkupRepo interface {
	Create(dbc dbctx.Context, rows []*types.Markup) ([]*types.Markup, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Markup, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Markup, error)

	// FindEntitiesByOwnerKey returns the owner's entity rows matching the
	// identity key. A nil itemIDs slice means the whole project.
	FindEntitiesByOwnerKey(dbc dbctx.Context, projectID uuid.UUID, itemIDs []uuid.UUID, username string, key types.EntityKey) ([]*types.Markup, error)
	FindEntitiesByKey(dbc dbctx.Context, projectID uuid.UUID, itemIDs []uuid.UUID, key types.EntityKey) ([]*types.Markup, error)
	FindRelationByOwnerEndpoints(dbc dbctx.Context, projectID, itemID uuid.UUID, username, labelID string, sourceID, targetID uuid.UUID) (*types.Markup, error)
	FindRelationsByOwnerLabel(dbc dbctx.Context, projectID uuid.UUID, username, labelID string, suggestedOnly bool) ([]*types.Markup, error)
	FindRelationsReferencing(dbc dbctx.Context, entityIDs []uuid.UUID) ([]*types.Markup, error)
	FindByOwnerAndItems(dbc dbctx.Context, projectID uuid.UUID, username string, itemIDs []uuid.UUID) ([]*types.Markup, error)
	FindByOwnersAndItems(dbc dbctx.Context, projectID uuid.UUID, usernames []string, itemIDs []uuid.UUID) ([]*types.Markup, error)

	Promote(dbc dbctx.Context, ids []uuid.UUID) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type markupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMarkupRepo(db *gorm.DB, baseLog *logger.Logger) MarkupRepo {
	return &markupRepo{db: db, log: baseLog.With("repo", "MarkupRepo")}
}

func (mr *markupRepo) handle(dbc dbctx.Context) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = mr.db
	}
	return tx.WithContext(dbc.Context())
}

func (mr *markupRepo) Create(dbc dbctx.Context, rows []*types.Markup) ([]*types.Markup, error) {
	if len(rows) == 0 {
		return []*types.Markup{}, nil
	}
	if err := mr.handle(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (mr *markupRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Markup, error) {
	var row types.Markup
	err := mr.handle(dbc).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (mr *markupRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Markup, error) {
	var results []*types.Markup
	if len(ids) == 0 {
		return results, nil
	}
	if err := mr.handle(dbc).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *markupRepo) FindEntitiesByOwnerKey(dbc dbctx.Context, projectID uuid.UUID, itemIDs []uuid.UUID, username string, key types.EntityKey) ([]*types.Markup, error) {
	q := mr.handle(dbc).
		Where("project_id = ? AND username = ? AND classification = ?", projectID, username, types.ClassificationEntity).
		Where("label_id = ? AND start_index = ? AND end_index = ?", key.LabelID, key.StartIndex, key.EndIndex)
	if itemIDs != nil {
		q = q.Where("dataset_item_id IN ?", itemIDs)
	}
	var results []*types.Markup
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *markupRepo) FindEntitiesByKey(dbc dbctx.Context, projectID uuid.UUID, itemIDs []uuid.UUID, key types.EntityKey) ([]*types.Markup, error) {
	q := mr.handle(dbc).
		Where("project_id = ? AND classification = ?", projectID, types.ClassificationEntity).
		Where("label_id = ? AND start_index = ? AND end_index = ?", key.LabelID, key.StartIndex, key.EndIndex)
	if itemIDs != nil {
		q = q.Where("dataset_item_id IN ?", itemIDs)
	}
	var results []*types.Markup
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *markupRepo) FindRelationByOwnerEndpoints(dbc dbctx.Context, projectID, itemID uuid.UUID, username, labelID string, sourceID, targetID uuid.UUID) (*types.Markup, error) {
	var row types.Markup
	err := mr.handle(dbc).
		Where("project_id = ? AND dataset_item_id = ? AND username = ? AND classification = ?", projectID, itemID, username, types.ClassificationRelation).
		Where("label_id = ? AND source_id = ? AND target_id = ?", labelID, sourceID, targetID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (mr *markupRepo) FindRelationsByOwnerLabel(dbc dbctx.Context, projectID uuid.UUID, username, labelID string, suggestedOnly bool) ([]*types.Markup, error) {
	q := mr.handle(dbc).
		Where("project_id = ? AND username = ? AND classification = ? AND label_id = ?", projectID, username, types.ClassificationRelation, labelID)
	if suggestedOnly {
		q = q.Where("suggested = ?", true)
	}
	var results []*types.Markup
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *markupRepo) FindRelationsReferencing(dbc dbctx.Context, entityIDs []uuid.UUID) ([]*types.Markup, error) {
	var results []*types.Markup
	if len(entityIDs) == 0 {
		return results, nil
	}
	if err := mr.handle(dbc).
		Where("classification = ?", types.ClassificationRelation).
		Where("source_id IN ? OR target_id IN ?", entityIDs, entityIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *markupRepo) FindByOwnerAndItems(dbc dbctx.Context, projectID uuid.UUID, username string, itemIDs []uuid.UUID) ([]*types.Markup, error) {
	var results []*types.Markup
	if len(itemIDs) == 0 {
		return results, nil
	}
	if err := mr.handle(dbc).
		Where("project_id = ? AND username = ? AND dataset_item_id IN ?", projectID, username, itemIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *markupRepo) FindByOwnersAndItems(dbc dbctx.Context, projectID uuid.UUID, usernames []string, itemIDs []uuid.UUID) ([]*types.Markup, error) {
	var results []*types.Markup
	if len(usernames) == 0 || len(itemIDs) == 0 {
		return results, nil
	}
	if err := mr.handle(dbc).
		Where("project_id = ? AND username IN ? AND dataset_item_id IN ?", projectID, usernames, itemIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *markupRepo) Promote(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return mr.handle(dbc).
		Model(&types.Markup{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"suggested":  false,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (mr *markupRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return mr.handle(dbc).
		Where("id IN ?", ids).
		Delete(&types.Markup{}).Error
}
