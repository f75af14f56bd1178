// Package domain re-exports the annotation domain types under one import
// path for services, repos and handlers.
package domain

import (
	"github.com/nlp-tlp/quickgraph-sub000/internal/domain/annotation"
)

type Project = annotation.Project
type ProjectAnnotator = annotation.ProjectAnnotator
type AnnotatorScopeEntry = annotation.AnnotatorScopeEntry

type Dataset = annotation.Dataset
type DatasetItem = annotation.DatasetItem
type ItemSaveState = annotation.ItemSaveState
type ItemFlag = annotation.ItemFlag

type Markup = annotation.Markup
type EntityKey = annotation.EntityKey
type RelationKey = annotation.RelationKey

type OntologyNode = annotation.OntologyNode
type OntologyMeta = annotation.OntologyMeta

type SocialComment = annotation.SocialComment
type Notification = annotation.Notification
type Resource = annotation.Resource

const (
	ClassificationEntity   = annotation.ClassificationEntity
	ClassificationRelation = annotation.ClassificationRelation

	RoleProjectManager = annotation.RoleProjectManager
	RoleAnnotator      = annotation.RoleAnnotator

	AnnotatorStateInvited  = annotation.AnnotatorStateInvited
	AnnotatorStateAccepted = annotation.AnnotatorStateAccepted
	AnnotatorStateDisabled = annotation.AnnotatorStateDisabled

	FlagIssue     = annotation.FlagIssue
	FlagQuality   = annotation.FlagQuality
	FlagUncertain = annotation.FlagUncertain

	NotificationKindInvite         = annotation.NotificationKindInvite
	NotificationKindMarkupAccepted = annotation.NotificationKindMarkupAccepted
	NotificationKindQuorumReached  = annotation.NotificationKindQuorumReached

	ResourceClassificationOntology  = annotation.ResourceClassificationOntology
	ResourceClassificationGazetteer = annotation.ResourceClassificationGazetteer
)

var (
	ErrProjectNotFound  = annotation.ErrProjectNotFound
	ErrDocumentNotFound = annotation.ErrDocumentNotFound
	ErrMarkupNotFound   = annotation.ErrMarkupNotFound
	ErrDatasetNotFound  = annotation.ErrDatasetNotFound
	ErrResourceNotFound = annotation.ErrResourceNotFound
	ErrSelfRelation     = annotation.ErrSelfRelation
	ErrInvalidSpan      = annotation.ErrInvalidSpan
	ErrEntityNotFound   = annotation.ErrEntityNotFound
	ErrInvalidFilter    = annotation.ErrInvalidFilter
	ErrMissingLabel     = annotation.ErrMissingLabel
)
