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

type DatasetRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Dataset, error)
	Create(dbc dbctx.Context, rows []*types.Dataset) ([]*types.Dataset, error)
	CreateItems(dbc dbctx.Context, rows []*types.DatasetItem) ([]*types.DatasetItem, error)
}

type DatasetItemRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DatasetItem, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.DatasetItem, error)

	// SavedItemIDs reports which of the given items carry at least one
	// save-state record, regardless of annotator.
	SavedItemIDs(dbc dbctx.Context, itemIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	SaveStatesByItems(dbc dbctx.Context, itemIDs []uuid.UUID) ([]*types.ItemSaveState, error)
	AddSaveState(dbc dbctx.Context, itemID uuid.UUID, username string) (bool, error)
	RemoveSaveState(dbc dbctx.Context, itemID uuid.UUID, username string) error

	SetFlag(dbc dbctx.Context, itemID uuid.UUID, username, state string) error
	ClearFlag(dbc dbctx.Context, itemID uuid.UUID, username, state string) error
}

type datasetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetRepo(db *gorm.DB, baseLog *logger.Logger) DatasetRepo {
	return &datasetRepo{db: db, log: baseLog.With("repo", "DatasetRepo")}
}

func (dr *datasetRepo) handle(dbc dbctx.Context) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = dr.db
	}
	return tx.WithContext(dbc.Context())
}

func (dr *datasetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Dataset, error) {
	var row types.Dataset
	err := dr.handle(dbc).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (dr *datasetRepo) Create(dbc dbctx.Context, rows []*types.Dataset) ([]*types.Dataset, error) {
	if len(rows) == 0 {
		return []*types.Dataset{}, nil
	}
	if err := dr.handle(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (dr *datasetRepo) CreateItems(dbc dbctx.Context, rows []*types.DatasetItem) ([]*types.DatasetItem, error) {
	if len(rows) == 0 {
		return []*types.DatasetItem{}, nil
	}
	if err := dr.handle(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type datasetItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetItemRepo(db *gorm.DB, baseLog *logger.Logger) DatasetItemRepo {
	return &datasetItemRepo{db: db, log: baseLog.With("repo", "DatasetItemRepo")}
}

func (ir *datasetItemRepo) handle(dbc dbctx.Context) *gorm.DB {
	tx := dbc.Tx
	if tx == nil {
		tx = ir.db
	}
	return tx.WithContext(dbc.Context())
}

func (ir *datasetItemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DatasetItem, error) {
	var row types.DatasetItem
	err := ir.handle(dbc).
		Preload("SaveStates").
		Preload("Flags").
		Where("id = ?", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (ir *datasetItemRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.DatasetItem, error) {
	var results []*types.DatasetItem
	if len(ids) == 0 {
		return results, nil
	}
	if err := ir.handle(dbc).
		Preload("SaveStates").
		Preload("Flags").
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *datasetItemRepo) SavedItemIDs(dbc dbctx.Context, itemIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	saved := make(map[uuid.UUID]bool, len(itemIDs))
	if len(itemIDs) == 0 {
		return saved, nil
	}
	var rows []*types.ItemSaveState
	if err := ir.handle(dbc).
		Where("dataset_item_id IN ?", itemIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		saved[r.DatasetItemID] = true
	}
	return saved, nil
}

func (ir *datasetItemRepo) SaveStatesByItems(dbc dbctx.Context, itemIDs []uuid.UUID) ([]*types.ItemSaveState, error) {
	var results []*types.ItemSaveState
	if len(itemIDs) == 0 {
		return results, nil
	}
	if err := ir.handle(dbc).
		Where("dataset_item_id IN ?", itemIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// AddSaveState is idempotent; it reports whether a new record was written.
func (ir *datasetItemRepo) AddSaveState(dbc dbctx.Context, itemID uuid.UUID, username string) (bool, error) {
	var count int64
	if err := ir.handle(dbc).
		Model(&types.ItemSaveState{}).
		Where("dataset_item_id = ? AND username = ?", itemID, username).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	row := &types.ItemSaveState{
		ID:            uuid.New(),
		DatasetItemID: itemID,
		Username:      username,
		CreatedAt:     time.Now().UTC(),
	}
	if err := ir.handle(dbc).Create(row).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (ir *datasetItemRepo) RemoveSaveState(dbc dbctx.Context, itemID uuid.UUID, username string) error {
	return ir.handle(dbc).
		Where("dataset_item_id = ? AND username = ?", itemID, username).
		Delete(&types.ItemSaveState{}).Error
}

// SetFlag replaces any existing flag by the same owner with the new state.
func (ir *datasetItemRepo) SetFlag(dbc dbctx.Context, itemID uuid.UUID, username, state string) error {
	if err := ir.handle(dbc).
		Where("dataset_item_id = ? AND username = ? AND state = ?", itemID, username, state).
		Delete(&types.ItemFlag{}).Error; err != nil {
		return err
	}
	row := &types.ItemFlag{
		ID:            uuid.New(),
		DatasetItemID: itemID,
		Username:      username,
		State:         state,
		CreatedAt:     time.Now().UTC(),
	}
	return ir.handle(dbc).Create(row).Error
}

func (ir *datasetItemRepo) ClearFlag(dbc dbctx.Context, itemID uuid.UUID, username, state string) error {
	return ir.handle(dbc).
		Where("dataset_item_id = ? AND username = ? AND state = ?", itemID, username, state).
		Delete(&types.ItemFlag{}).Error
}
