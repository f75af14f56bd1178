package repos

import (
	"gorm.io/gorm"

	"github.com/nlp-tlp/quickgraph-sub000/internal/data/repos/annotation"
	"github.com/nlp-tlp/quickgraph-sub000/internal/platform/logger"
)

type ProjectRepo = annotation.ProjectRepo
type DatasetRepo = annotation.DatasetRepo
type DatasetItemRepo = annotation.DatasetItemRepo
type MarkupRepo = annotation.MarkupRepo
type SocialRepo = annotation.SocialRepo
type NotificationRepo = annotation.NotificationRepo
type ResourceRepo = annotation.ResourceRepo

var NewProjectRepo = annotation.NewProjectRepo
var NewDatasetRepo = annotation.NewDatasetRepo
var NewDatasetItemRepo = annotation.NewDatasetItemRepo
var NewMarkupRepo = annotation.NewMarkupRepo
var NewSocialRepo = annotation.NewSocialRepo
var NewNotificationRepo = annotation.NewNotificationRepo
var NewResourceRepo = annotation.NewResourceRepo

// Set bundles every repo for wiring.
type Set struct {
	Project      ProjectRepo
	Dataset      DatasetRepo
	DatasetItem  DatasetItemRepo
	Markup       MarkupRepo
	Social       SocialRepo
	Notification NotificationRepo
	Resource     ResourceRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Project:      NewProjectRepo(db, baseLog),
		Dataset:      NewDatasetRepo(db, baseLog),
		DatasetItem:  NewDatasetItemRepo(db, baseLog),
		Markup:       NewMarkupRepo(db, baseLog),
		Social:       NewSocialRepo(db, baseLog),
		Notification: NewNotificationRepo(db, baseLog),
		Resource:     NewResourceRepo(db, baseLog),
	}
}
