package annotation

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/dbctx"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

type ResourceRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Resource, error)
	Create(dbc dbctx.Context, rows []*types.Resource) ([]*types.Resource, error)
}

type resourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
	return &resourceRepo{db: db, log: baseLog.With("repo", "ResourceRepo")}
}

func (rr *resourceRepo) handle(dbc dbctx.Context) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = rr.db
	}
	return tx.WithContext(dbc.Context())
}

func (rr *resourceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Resource, error) {
	var row types.Resource
	err := rr.handle(dbc).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (rr *resourceRepo) Create(dbc dbctx.Context, rows []*types.Resource) ([]*types.Resource, error) {
	if len(rows) == 0 {
		return []*types.Resource{}, nil
	}
	if err := rr.handle(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
