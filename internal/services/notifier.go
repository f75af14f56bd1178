package services

import (
	"context"

	"github.com/google/uuid"
)

const (
	EventMarkupApplied    = "MarkupApplied"
	EventMarkupAccepted   = "MarkupAccepted"
	EventMarkupDeleted    = "MarkupDeleted"
	EventItemSaved        = "ItemSaved"
	EventItemFlagged      = "ItemFlagged"
	EventAgreementUpdated = "AgreementUpdated"
)

// Notifier pushes project-scoped events to connected annotators. A nil
// notifier is valid and drops everything; delivery is best-effort and never
// blocks a write path.
type Notifier interface {
	Publish(ctx context.Context, channel, event string, data any)
}

func projectChannel(projectID uuid.UUID) string {
	return "project:" + projectID.String()
}
