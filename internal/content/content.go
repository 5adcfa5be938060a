// Package content names the three kinds of shareable items and the tagged
// reference likes, comments and notifications hang off.
package content

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/httperr"
)

type Kind string

const (
	KindPost  Kind = "post"
	KindBook  Kind = "book"
	KindImage Kind = "image"
)

// Kinds lists every kind in feed tie-break order.
var Kinds = []Kind{KindPost, KindBook, KindImage}

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPost, KindBook, KindImage:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown content kind %q", s)
}

// Table is the table holding items of this kind. Every content table has
// id, title, author_id and created_at columns.
func (k Kind) Table() string {
	switch k {
	case KindPost:
		return "posts"
	case KindBook:
		return "books"
	case KindImage:
		return "images"
	}
	return ""
}

// Rank orders kinds that share a timestamp.
func (k Kind) Rank() int {
	for i, kk := range Kinds {
		if kk == k {
			return i
		}
	}
	return len(Kinds)
}

// Label is the human name used in messages and errors.
func (k Kind) Label() string {
	switch k {
	case KindBook:
		return "book"
	case KindImage:
		return "image"
	}
	return "post"
}

// Target points at exactly one content item.
type Target struct {
	Kind Kind `json:"kind"`
	ID   uint `json:"id"`
}

func (t Target) String() string { return fmt.Sprintf("%s:%d", t.Kind, t.ID) }

// Owner is the part of a target needed for authorization and notifications.
type Owner struct {
	AuthorID uint
	Title    string
}

// OwnerOf looks the target up in its table.
func OwnerOf(db *gorm.DB, t Target) (Owner, error) {
	table := t.Kind.Table()
	if table == "" {
		return Owner{}, httperr.BadRequest("unknown content kind")
	}
	var o Owner
	err := db.Table(table).Select("author_id, title").Where("id = ?", t.ID).Take(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Owner{}, httperr.NotFound(t.Kind.Label() + " not found")
	}
	return o, err
}
