package annotation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleProjectManager = "project_manager"
	RoleAnnotator      = "annotator"

	AnnotatorStateInvited  = "invited"
	AnnotatorStateAccepted = "accepted"
	AnnotatorStateDisabled = "disabled"
)

// Project owns a project-scoped copy of a dataset, the entity/relation
// ontologies (jsonb trees of OntologyNode) and the annotator roster.
type Project struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name              string         `gorm:"column:name;not null" json:"name"`
	Description       string         `gorm:"column:description" json:"description"`
	DatasetID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"dataset_id"`
	EntityOntology    datatypes.JSON `gorm:"column:entity_ontology;type:jsonb" json:"entity_ontology"`
	RelationOntology  datatypes.JSON `gorm:"column:relation_ontology;type:jsonb" json:"relation_ontology"`
	AnnotatorsPerItem int            `gorm:"column:annotators_per_item;not null;default:1" json:"annotators_per_item"`
	DisableDiscussion bool           `gorm:"column:disable_discussion;not null;default:false" json:"disable_discussion"`

	Annotators []ProjectAnnotator `gorm:"foreignKey:ProjectID;references:ID" json:"annotators,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "project" }

type ProjectAnnotator struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Username  string    `gorm:"column:username;not null;index" json:"username"`
	Role      string    `gorm:"column:role;not null;default:'annotator'" json:"role"`
	State     string    `gorm:"column:state;not null;default:'invited'" json:"state"`

	Scope []AnnotatorScopeEntry `gorm:"foreignKey:AnnotatorID;references:ID" json:"scope,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ProjectAnnotator) TableName() string { return "project_annotator" }

// AnnotatorScopeEntry is one document the annotator may work on. Position
// preserves the assignment order; Visible toggles access without dropping
// the assignment.
type AnnotatorScopeEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AnnotatorID   uuid.UUID `gorm:"type:uuid;not null;index" json:"annotator_id"`
	DatasetItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"dataset_item_id"`
	Visible       bool      `gorm:"column:visible;not null;default:true" json:"visible"`
	Position      int       `gorm:"column:position;not null" json:"position"`
}

func (AnnotatorScopeEntry) TableName() string { return "annotator_scope" }
