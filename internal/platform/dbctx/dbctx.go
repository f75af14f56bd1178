package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles the request context with an optional open transaction.
// Repos fall back to their base handle when Tx is nil.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func (c Context) Context() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}
