package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/auth"
	"github.com/ninikarlina/gallery-davinci/internal/books"
	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/database"
	"github.com/ninikarlina/gallery-davinci/internal/galleries"
	"github.com/ninikarlina/gallery-davinci/internal/httperr"
	"github.com/ninikarlina/gallery-davinci/internal/posts"
	"github.com/ninikarlina/gallery-davinci/internal/users"
)

const (
	searchUserLimit = 20
	searchPostLimit = 40
)

type SearchResult struct {
	Users []users.Author `json:"users"`
	Posts []posts.Post   `json:"posts"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches users by username or full name and posts by title,
// ignoring case. A blank query matches nothing.
func Search(db *gorm.DB, q string) (*SearchResult, error) {
	res := &SearchResult{Users: []users.Author{}, Posts: []posts.Post{}}
	q = strings.TrimSpace(q)
	if q == "" {
		return res, nil
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"

	if err := db.
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(full_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("username ASC").
		Limit(searchUserLimit).
		Find(&res.Users).Error; err != nil {
		return nil, err
	}

	if err := db.Scopes(posts.WithRelations, content.Newest).
		Where(`LOWER(title) LIKE ? ESCAPE '\'`, pattern).
		Limit(searchPostLimit).
		Find(&res.Posts).Error; err != nil {
		return nil, err
	}
	return res, nil
}

func SearchHandler(c *gin.Context) {
	res, err := Search(database.DB, c.Query("q"))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if viewer, ok := auth.CurrentUser(c); ok {
		posts.MarkLiked(res.Posts, viewer.UserID)
	}
	c.JSON(http.StatusOK, res)
}

type Profile struct {
	User   users.UserResponse `json:"user"`
	Posts  []posts.Post       `json:"posts"`
	Books  []books.Book       `json:"books"`
	Images []galleries.Image  `json:"images"`
}

// LoadProfile returns a user with everything they have published, newest
// first.
func LoadProfile(db *gorm.DB, userID uint) (*Profile, error) {
	var u users.User
	if err := db.First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("user not found")
		}
		return nil, err
	}

	p := &Profile{
		User:   users.ToResponse(&u),
		Posts:  []posts.Post{},
		Books:  []books.Book{},
		Images: []galleries.Image{},
	}
	byAuthor := func(db *gorm.DB) *gorm.DB { return db.Where("author_id = ?", userID) }

	if err := db.Scopes(posts.WithRelations, byAuthor, content.Newest).Find(&p.Posts).Error; err != nil {
		return nil, err
	}
	if err := db.Scopes(books.WithRelations, byAuthor, content.Newest).Find(&p.Books).Error; err != nil {
		return nil, err
	}
	if err := db.Scopes(galleries.WithRelations, byAuthor, content.Newest).Find(&p.Images).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func ProfileHandler(c *gin.Context) {
	id, err := content.ParamID(c, "userId")
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	p, err := LoadProfile(database.DB, id)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	viewer, _ := auth.CurrentUser(c)
	posts.MarkLiked(p.Posts, viewer.UserID)
	books.MarkLiked(p.Books, viewer.UserID)
	galleries.MarkLiked(p.Images, viewer.UserID)
	// Email stays private to its owner.
	if viewer.UserID != id {
		p.User.Email = ""
	}
	c.JSON(http.StatusOK, p)
}

// StatsHandler returns public totals
func StatsHandler(c *gin.Context) {
	var userCount, postCount, bookCount, imageCount int64

	db := database.DB
	for _, q := range []struct {
		model interface{}
		dst   *int64
	}{
		{&users.User{}, &userCount},
		{&posts.Post{}, &postCount},
		{&books.Book{}, &bookCount},
		{&galleries.Image{}, &imageCount},
	} {
		if err := db.Model(q.model).Count(q.dst).Error; err != nil {
			httperr.Respond(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_users":  userCount,
		"total_posts":  postCount,
		"total_books":  bookCount,
		"total_images": imageCount,
	})
}
