package app

import (
	"gorm.io/gorm"

	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
	"github.com/nlp-tlp/quickgraph-sub000/internal/realtime"
	"github.com/nlp-tlp/quickgraph-sub000/internal/realtime/bus"
	"github.com/nlp-tlp/quickgraph-sub000/internal/services"
)

type Services struct {
	Scope     services.ScopeService
	Markup    services.MarkupService
	Agreement services.AgreementService
	Dataset   services.DatasetService
	Pretag    services.PretagService
	Social    services.SocialService
}

func wireServices(db *gorm.DB, log *logger.Logger, reposet Repos, notifier *realtime.Notifier) Services {
	log.Info("Wiring services...")

	scope := services.NewScopeService(log, reposet.Project, reposet.DatasetItem)
	agreement := services.NewAgreementService(log, reposet.DatasetItem, reposet.Markup, notifier)

	return Services{
		Scope:     scope,
		Markup:    services.NewMarkupService(db, log, scope, reposet.Project, reposet.DatasetItem, reposet.Markup, reposet.Notification, notifier),
		Agreement: agreement,
		Dataset:   services.NewDatasetService(db, log, scope, reposet.Project, reposet.DatasetItem, reposet.Markup, reposet.Social, reposet.Notification, agreement, notifier),
		Pretag:    services.NewPretagService(db, log, scope, reposet.Project, reposet.DatasetItem, reposet.Markup, reposet.Resource, notifier),
		Social:    services.NewSocialService(log, scope, reposet.Project, reposet.Social, reposet.Notification),
	}
}

// wireBus connects the hub to Redis pub-sub when enabled. A nil bus means
// single-instance delivery through the hub alone.
func wireBus(log *logger.Logger, cfg Config) bus.Bus {
	if !cfg.RedisEnabled {
		log.Info("Redis bus disabled; realtime events stay in-process")
		return nil
	}
	b, err := bus.NewRedisBus(log)
	if err != nil {
		log.Warn("Redis bus unavailable; falling back to in-process delivery", "error", err)
		return nil
	}
	return b
}
