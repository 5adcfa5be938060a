package galleries

import (
	"time"

	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/engagement"
	"github.com/ninikarlina/gallery-davinci/internal/users"
)

// Image is a gallery of one or more pictures sharing a title and caption.
type Image struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	Title     string               `gorm:"size:200;not null" json:"title"`
	Caption   string               `gorm:"type:text" json:"caption"`
	AuthorID  uint                 `gorm:"not null;index" json:"author_id"`
	Author    users.Author         `gorm:"foreignKey:AuthorID" json:"author"`
	Items     []ImageItem          `gorm:"foreignKey:ImageID" json:"items"`
	Comments  []engagement.Comment `gorm:"polymorphic:Target;polymorphicValue:image" json:"comments"`
	Likes     []engagement.Like    `gorm:"polymorphic:Target;polymorphicValue:image" json:"likes"`
	LikedByMe bool                 `gorm:"-" json:"liked_by_me"`
	CreatedAt time.Time            `gorm:"index" json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type ImageItem struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	ImageID uint   `gorm:"not null;index" json:"image_id"`
	URL     string `gorm:"not null" json:"url"`
	Key     string `json:"-"`
	Order   int    `gorm:"column:order_index;not null" json:"order"`
}

func (g *Image) Target() content.Target {
	return content.Target{Kind: content.KindImage, ID: g.ID}
}

// Keys lists the storage keys of every item.
func (g *Image) Keys() []string {
	keys := make([]string, 0, len(g.Items))
	for _, it := range g.Items {
		keys = append(keys, it.Key)
	}
	return keys
}

func WithRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_index ASC") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments.Author").
		Preload("Likes")
}

func MarkLiked(list []Image, viewerID uint) {
	for i := range list {
		list[i].LikedByMe = engagement.LikedBy(list[i].Likes, viewerID)
	}
}
