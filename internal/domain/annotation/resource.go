package annotation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ResourceClassificationOntology  = "ontology"
	ResourceClassificationGazetteer = "gazetteer"

	ResourceSubEntity   = "entity"
	ResourceSubRelation = "relation"
)

// Resource is a blueprint artifact (ontology tree or gazetteer mapping)
// copyable into projects at creation time. Content is a jsonb payload whose
// shape depends on Classification: []*OntologyNode for ontologies,
// map[label][]phrase for gazetteers.
type Resource struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name           string         `gorm:"column:name;not null" json:"name"`
	Classification string         `gorm:"column:classification;not null;index" json:"classification"`
	Sub            string         `gorm:"column:sub" json:"sub"`
	Content        datatypes.JSON `gorm:"column:content;type:jsonb;not null" json:"content"`
	IsBlueprint    bool           `gorm:"column:is_blueprint;not null;default:true" json:"is_blueprint"`
	Username       string         `gorm:"column:username;not null" json:"username"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Resource) TableName() string { return "resource" }
