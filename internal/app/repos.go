package app

import (
	"gorm.io/gorm"

	"github.com/nlp-tlp/quickgraph-sub000/internal/data/repos"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

type Repos = repos.Set

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return repos.NewSet(db, log)
}
