package annotation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Dataset struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	IsBlueprint bool      `gorm:"column:is_blueprint;not null;default:false" json:"is_blueprint"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Dataset) TableName() string { return "dataset" }

// DatasetItem is one immutable unit of annotatable text. Tokens is the
// ordered token sequence as a jsonb string array; Text is the concatenated
// form used by the search filter. Save states and flags are the only
// mutable parts.
type DatasetItem struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DatasetID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"dataset_id"`
	ExternalID      string         `gorm:"column:external_id" json:"external_id"`
	Tokens          datatypes.JSON `gorm:"column:tokens;type:jsonb;not null" json:"tokens"`
	Text            string         `gorm:"column:text;not null" json:"text"`
	ClusterID       *int           `gorm:"column:cluster_id" json:"cluster_id,omitempty"`
	ClusterKeywords datatypes.JSON `gorm:"column:cluster_keywords;type:jsonb" json:"cluster_keywords,omitempty"`
	BlueprintItemID *uuid.UUID     `gorm:"type:uuid;column:blueprint_item_id" json:"blueprint_item_id,omitempty"`

	SaveStates []ItemSaveState `gorm:"foreignKey:DatasetItemID;references:ID" json:"save_states,omitempty"`
	Flags      []ItemFlag      `gorm:"foreignKey:DatasetItemID;references:ID" json:"flags,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DatasetItem) TableName() string { return "dataset_item" }

// TokenList decodes the jsonb token column. A malformed column yields an
// empty list rather than an error; items are validated at ingestion time.
func (d *DatasetItem) TokenList() []string {
	var tokens []string
	if len(d.Tokens) == 0 {
		return tokens
	}
	_ = json.Unmarshal(d.Tokens, &tokens)
	return tokens
}

func (d *DatasetItem) SavedBy(username string) bool {
	for _, s := range d.SaveStates {
		if s.Username == username {
			return true
		}
	}
	return false
}

func (d *DatasetItem) Saved() bool { return len(d.SaveStates) > 0 }

type ItemSaveState struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DatasetItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"dataset_item_id"`
	Username      string    `gorm:"column:username;not null;index" json:"username"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ItemSaveState) TableName() string { return "item_save_state" }

const (
	FlagIssue     = "issue"
	FlagQuality   = "quality"
	FlagUncertain = "uncertain"
)

type ItemFlag struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DatasetItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"dataset_item_id"`
	Username      string    `gorm:"column:username;not null;index" json:"username"`
	State         string    `gorm:"column:state;not null" json:"state"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ItemFlag) TableName() string { return "item_flag" }

func ValidFlagState(state string) bool {
	switch state {
	case FlagIssue, FlagQuality, FlagUncertain:
		return true
	}
	return false
}
