package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	types "github.com/nlp-tlp/quickgraph-sub000/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedDataset(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Dataset {
	tb.Helper()
	d := &types.Dataset{
		ID:   uuid.New(),
		Name: name,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed dataset: %v", err)
	}
	return d
}

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, datasetID uuid.UUID) *types.Project {
	tb.Helper()
	p := &types.Project{
		ID:                uuid.New(),
		Name:              "project",
		DatasetID:         datasetID,
		EntityOntology:    datatypes.JSON([]byte("[]")),
		RelationOntology:  datatypes.JSON([]byte("[]")),
		AnnotatorsPerItem: 1,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

func SeedItem(tb testing.TB, ctx context.Context, tx *gorm.DB, datasetID uuid.UUID, text string) *types.DatasetItem {
	tb.Helper()
	it := &types.DatasetItem{
		ID:        uuid.New(),
		DatasetID: datasetID,
		Tokens:    datatypes.JSON([]byte(`["a","b","c"]`)),
		Text:      text,
	}
	if err := tx.WithContext(ctx).Create(it).Error; err != nil {
		tb.Fatalf("seed dataset item: %v", err)
	}
	return it
}

func SeedEntity(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID, itemID uuid.UUID, username, labelID string, start, end int, suggested bool) *types.Markup {
	tb.Helper()
	m := &types.Markup{
		ID:             uuid.New(),
		ProjectID:      projectID,
		DatasetItemID:  itemID,
		Username:       username,
		Classification: types.ClassificationEntity,
		LabelID:        labelID,
		StartIndex:     start,
		EndIndex:       end,
		SurfaceText:    "x",
		Suggested:      suggested,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed entity markup: %v", err)
	}
	return m
}

func SeedRelation(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID, itemID uuid.UUID, username, labelID string, sourceID, targetID uuid.UUID, suggested bool) *types.Markup {
	tb.Helper()
	m := &types.Markup{
		ID:             uuid.New(),
		ProjectID:      projectID,
		DatasetItemID:  itemID,
		Username:       username,
		Classification: types.ClassificationRelation,
		LabelID:        labelID,
		SourceID:       &sourceID,
		TargetID:       &targetID,
		Suggested:      suggested,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed relation markup: %v", err)
	}
	return m
}
