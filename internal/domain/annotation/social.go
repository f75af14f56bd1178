package annotation

import (
	"time"

	"github.com/google/uuid"
)

type SocialComment struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DatasetItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"dataset_item_id"`
	Username      string    `gorm:"column:username;not null;index" json:"username"`
	Context       string    `gorm:"column:context" json:"context"`
	Text          string    `gorm:"column:text;not null" json:"text"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SocialComment) TableName() string { return "social_comment" }

const (
	NotificationKindInvite         = "invite"
	NotificationKindMarkupAccepted = "markup_accepted"
	NotificationKindQuorumReached  = "quorum_reached"
)

type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Recipient string     `gorm:"column:recipient;not null;index" json:"recipient"`
	Sender    string     `gorm:"column:sender;not null" json:"sender"`
	Kind      string     `gorm:"column:kind;not null" json:"kind"`
	ProjectID *uuid.UUID `gorm:"type:uuid;column:project_id" json:"project_id,omitempty"`
	Content   string     `gorm:"column:content" json:"content"`
	Read      bool       `gorm:"column:read;not null;default:false" json:"read"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }
