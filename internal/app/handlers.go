package app

import (
	"github.com/nlp-tlp/quickgraph-sub000/internal/handlers"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
	"github.com/nlp-tlp/quickgraph-sub000/internal/realtime"
)

type Handlers struct {
	Markup    *handlers.MarkupHandler
	Dataset   *handlers.DatasetHandler
	Agreement *handlers.AgreementHandler
	Social    *handlers.SocialHandler
	Realtime  *handlers.RealtimeHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Markup:    handlers.NewMarkupHandler(serviceset.Markup),
		Dataset:   handlers.NewDatasetHandler(serviceset.Dataset, serviceset.Pretag),
		Agreement: handlers.NewAgreementHandler(serviceset.Agreement),
		Social:    handlers.NewSocialHandler(serviceset.Social),
		Realtime:  handlers.NewRealtimeHandler(log, hub),
	}
}
