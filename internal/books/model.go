package books

import (
	"time"

	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/engagement"
	"github.com/ninikarlina/gallery-davinci/internal/users"
)

// Book is an uploaded PDF.
type Book struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	Title       string               `gorm:"size:200;not null" json:"title"`
	Description string               `gorm:"type:text" json:"description"`
	FileName    string               `gorm:"size:255;not null" json:"file_name"`
	FileURL     string               `gorm:"not null" json:"file_url"`
	FileKey     string               `json:"-"`
	FileSize    int64                `json:"file_size"`
	Downloads   int64                `gorm:"default:0" json:"downloads"`
	AuthorID    uint                 `gorm:"not null;index" json:"author_id"`
	Author      users.Author         `gorm:"foreignKey:AuthorID" json:"author"`
	Comments    []engagement.Comment `gorm:"polymorphic:Target;polymorphicValue:book" json:"comments"`
	Likes       []engagement.Like    `gorm:"polymorphic:Target;polymorphicValue:book" json:"likes"`
	LikedByMe   bool                 `gorm:"-" json:"liked_by_me"`
	CreatedAt   time.Time            `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func (b *Book) Target() content.Target {
	return content.Target{Kind: content.KindBook, ID: b.ID}
}

func WithRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments.Author").
		Preload("Likes")
}

func MarkLiked(list []Book, viewerID uint) {
	for i := range list {
		list[i].LikedByMe = engagement.LikedBy(list[i].Likes, viewerID)
	}
}
