package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nlp-tlp/quickgraph-sub000/internal/db"
	"github.com/nlp-tlp/quickgraph-sub000/internal/observability"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
	"github.com/nlp-tlp/quickgraph-sub000/internal/realtime"
	"github.com/nlp-tlp/quickgraph-sub000/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Hub      *realtime.Hub

	bus          bus.Bus
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "quickgraph",
		Environment: logMode,
	})

	store, err := db.NewStoreService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := store.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := store.DB()

	hub := realtime.NewHub(log)
	eventBus := wireBus(log, cfg)
	notifier := realtime.NewNotifier(log, hub, publisherOrNil(eventBus))

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, reposet, notifier)
	handlerset := wireHandlers(log, serviceset, hub)
	mw := wireMiddleware(log, cfg)
	router := wireRouter(handlerset, mw)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Hub:          hub,
		bus:          eventBus,
		otelShutdown: otelShutdown,
	}, nil
}

// publisherOrNil avoids the classic nil-interface-in-interface trap: a nil
// bus.Bus stored in realtime.Publisher would compare non-nil.
func publisherOrNil(b bus.Bus) realtime.Publisher {
	if b == nil {
		return nil
	}
	return b
}

// Start launches the bus forwarder so messages published on other instances
// reach this hub.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.bus != nil {
		if err := a.bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
			a.Log.Warn("bus forwarder failed to start", "error", err)
		}
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.Log.Warn("bus close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
