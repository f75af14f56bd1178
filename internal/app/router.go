package app

import (
	"github.com/gin-gonic/gin"

	"github.com/nlp-tlp/quickgraph-sub000/internal/server"
)

func wireRouter(handlerset Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthMiddleware:   mw.Auth,
		MarkupHandler:    handlerset.Markup,
		DatasetHandler:   handlerset.Dataset,
		AgreementHandler: handlerset.Agreement,
		SocialHandler:    handlerset.Social,
		RealtimeHandler:  handlerset.Realtime,
	})
}
