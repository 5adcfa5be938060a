package posts

import (
	"time"

	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/engagement"
	"github.com/ninikarlina/gallery-davinci/internal/users"
)

// Post is a poem or short prose piece.
type Post struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	Title     string               `gorm:"size:200;not null" json:"title"`
	Content   string               `gorm:"type:text;not null" json:"content"`
	AuthorID  uint                 `gorm:"not null;index" json:"author_id"`
	Author    users.Author         `gorm:"foreignKey:AuthorID" json:"author"`
	Comments  []engagement.Comment `gorm:"polymorphic:Target;polymorphicValue:post" json:"comments"`
	Likes     []engagement.Like    `gorm:"polymorphic:Target;polymorphicValue:post" json:"likes"`
	LikedByMe bool                 `gorm:"-" json:"liked_by_me"`
	CreatedAt time.Time            `gorm:"index" json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func (p *Post) Target() content.Target {
	return content.Target{Kind: content.KindPost, ID: p.ID}
}

// WithRelations preloads everything a post is rendered with.
func WithRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments.Author").
		Preload("Likes")
}

// MarkLiked fills LikedByMe for the viewer.
func MarkLiked(list []Post, viewerID uint) {
	for i := range list {
		list[i].LikedByMe = engagement.LikedBy(list[i].Likes, viewerID)
	}
}
