package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nlp-tlp/quickgraph-sub000/internal/domain/annotation"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
	"github.com/nlp-tlp/quickgraph-sub000/internal/utils"
)

type StoreService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewStoreService opens the document store. DB_DRIVER=sqlite gives a local
// file-backed store for development; anything else connects to Postgres.
func NewStoreService(log *logger.Logger) (*StoreService, error) {
	serviceLog := log.With("service", "StoreService")

	driver := strings.ToLower(utils.GetEnv("DB_DRIVER", "postgres", log))

	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case "sqlite":
		path := utils.GetEnv("SQLITE_PATH", "quickgraph.db", log)
		log.Info("Connecting to sqlite...", "path", path)
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("Failed to open sqlite store: %w", err)
		}
	default:
		host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
		port := utils.GetEnv("POSTGRES_PORT", "5432", log)
		user := utils.GetEnv("POSTGRES_USER", "postgres", log)
		password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
		name := utils.GetEnv("POSTGRES_NAME", "quickgraph", log)

		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

		log.Info("Connecting to Postgres...")
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
		})
		if err != nil {
			log.Error("Failed to connect to Postgres", "error", err)
			return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
		}

		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			log.Error("Failed to enable uuid-ossp extension", "error", err)
			return nil, fmt.Errorf("Failed to enable uuid-ossp extension: %w", err)
		}
	}

	return &StoreService{db: db, log: serviceLog}, nil
}

func (s *StoreService) AutoMigrateAll() error {
	s.log.Info("Auto migrating store tables...")
	err := s.db.AutoMigrate(
		&annotation.Dataset{},
		&annotation.DatasetItem{},
		&annotation.ItemSaveState{},
		&annotation.ItemFlag{},
		&annotation.Project{},
		&annotation.ProjectAnnotator{},
		&annotation.AnnotatorScopeEntry{},
		&annotation.Markup{},
		&annotation.SocialComment{},
		&annotation.Notification{},
		&annotation.Resource{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for store tables", "error", err)
		return err
	}
	return nil
}

func (s *StoreService) DB() *gorm.DB {
	return s.db
}
