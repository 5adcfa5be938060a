package engagement

import (
	"time"

	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/users"
)

type Comment struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	Content    string       `gorm:"type:text;not null" json:"content"`
	AuthorID   uint         `gorm:"not null;index" json:"author_id"`
	Author     users.Author `gorm:"foreignKey:AuthorID" json:"author"`
	TargetType content.Kind `gorm:"size:10;not null;index:idx_comments_target" json:"target_type"`
	TargetID   uint         `gorm:"not null;index:idx_comments_target" json:"target_id"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Like is unique per (user, target); toggling relies on that index.
type Like struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	UserID     uint         `gorm:"not null;uniqueIndex:idx_likes_user_target" json:"user_id"`
	TargetType content.Kind `gorm:"size:10;not null;uniqueIndex:idx_likes_user_target;index:idx_likes_target" json:"target_type"`
	TargetID   uint         `gorm:"not null;uniqueIndex:idx_likes_user_target;index:idx_likes_target" json:"target_id"`
	CreatedAt  time.Time    `json:"created_at"`
}

// LikedBy reports whether userID appears among preloaded likes.
func LikedBy(likes []Like, userID uint) bool {
	if userID == 0 {
		return false
	}
	for _, l := range likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// OnTarget scopes a query on a polymorphic table to one target.
func OnTarget(t content.Target) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("target_type = ? AND target_id = ?", t.Kind, t.ID)
	}
}
