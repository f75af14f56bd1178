package annotation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ClassificationEntity   = "entity"
	ClassificationRelation = "relation"
)

// Markup is one annotation instance. Entity rows use LabelID/Start/End/
// SurfaceText; relation rows use LabelID/SourceID/TargetID. Relations hold
// weak references to their endpoint entities: there is no store-level
// cascade, the propagation engine owns dangling-relation cleanup.
type Markup struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	DatasetItemID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"dataset_item_id"`
	Username       string     `gorm:"column:username;not null;index" json:"username"`
	Classification string     `gorm:"column:classification;not null;index" json:"classification"`
	LabelID        string     `gorm:"column:label_id;not null" json:"label_id"`
	StartIndex     int        `gorm:"column:start_index" json:"start_index"`
	EndIndex       int        `gorm:"column:end_index" json:"end_index"`
	SurfaceText    string     `gorm:"column:surface_text" json:"surface_text"`
	SourceID       *uuid.UUID `gorm:"type:uuid;column:source_id;index" json:"source_id,omitempty"`
	TargetID       *uuid.UUID `gorm:"type:uuid;column:target_id;index" json:"target_id,omitempty"`
	Suggested      bool       `gorm:"column:suggested;not null" json:"suggested"`
	FromBlueprint  bool       `gorm:"column:from_blueprint;not null;default:false" json:"from_blueprint"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Markup) TableName() string { return "markup" }

func (m *Markup) IsEntity() bool   { return m.Classification == ClassificationEntity }
func (m *Markup) IsRelation() bool { return m.Classification == ClassificationRelation }

// EntityKey identifies "the same entity annotation" across owners and
// documents: label plus token span, inclusive on both ends.
type EntityKey struct {
	LabelID    string
	StartIndex int
	EndIndex   int
}

// RelationKey identifies "the same relation annotation" within a document.
// Direction matters: source and target are never normalized.
type RelationKey struct {
	LabelID string
	Source  EntityKey
	Target  EntityKey
}

func (m *Markup) EntityKey() EntityKey {
	return EntityKey{LabelID: m.LabelID, StartIndex: m.StartIndex, EndIndex: m.EndIndex}
}
