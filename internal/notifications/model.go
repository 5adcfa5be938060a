package notifications

import (
	"time"

	"github.com/ninikarlina/gallery-davinci/internal/content"
)

type Type string

const (
	TypeLike    Type = "like"
	TypeComment Type = "comment"
)

type Notification struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	UserID       uint         `gorm:"not null;index:idx_notifications_recipient" json:"user_id"`
	Type         Type         `gorm:"size:20;not null" json:"type"`
	ActorID      uint         `gorm:"not null" json:"actor_id"`
	ActorName    string       `gorm:"size:100" json:"actor_name"`
	TargetType   content.Kind `gorm:"size:10;not null;index:idx_notifications_target" json:"target_type"`
	TargetID     uint         `gorm:"not null;index:idx_notifications_target" json:"target_id"`
	ContentTitle string       `json:"content_title"`
	Message      string       `json:"message"`
	IsRead       bool         `gorm:"default:false;index:idx_notifications_recipient" json:"is_read"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (n *Notification) Target() content.Target {
	return content.Target{Kind: n.TargetType, ID: n.TargetID}
}
