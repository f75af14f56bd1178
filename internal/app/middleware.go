package app

import (
	"github.com/nlp-tlp/quickgraph-sub000/internal/middleware"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}
