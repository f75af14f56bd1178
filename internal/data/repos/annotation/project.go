package annotation

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/dbctx"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

type ProjectRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error)
	Create(dbc dbctx.Context, rows []*types.Project) ([]*types.Project, error)

	// GetAnnotator returns the roster record for the username, with the
	// scope entries preloaded in assignment order. Nil when the user is not
	// on the project.
	GetAnnotator(dbc dbctx.Context, projectID uuid.UUID, username string) (*types.ProjectAnnotator, error)
	ListAnnotators(dbc dbctx.Context, projectID uuid.UUID) ([]*types.ProjectAnnotator, error)
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: baseLog.With("repo", "ProjectRepo")}
}

func (pr *projectRepo) handle(dbc dbctx.Context) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = pr.db
	}
	return tx.WithContext(dbc.Context())
}

func (pr *projectRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Project, error) {
	var row types.Project
	err := pr.handle(dbc).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (pr *projectRepo) Create(dbc dbctx.Context, rows []*types.Project) ([]*types.Project, error) {
	if len(rows) == 0 {
		return []*types.Project{}, nil
	}
	if err := pr.handle(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (pr *projectRepo) GetAnnotator(dbc dbctx.Context, projectID uuid.UUID, username string) (*types.ProjectAnnotator, error) {
	var row types.ProjectAnnotator
	err := pr.handle(dbc).
		Preload("Scope", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("project_id = ? AND username = ?", projectID, username).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (pr *projectRepo) ListAnnotators(dbc dbctx.Context, projectID uuid.UUID) ([]*types.ProjectAnnotator, error) {
	var results []*types.ProjectAnnotator
	if err := pr.handle(dbc).
		Where("project_id = ?", projectID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
