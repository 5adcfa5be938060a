package posts

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/auth"
	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/database"
	"github.com/ninikarlina/gallery-davinci/internal/engagement"
	"github.com/ninikarlina/gallery-davinci/internal/httperr"
)

const defaultLimit = 10

type CreateDTO struct {
	Title   string `json:"title" binding:"required,max=200"`
	Content string `json:"content" binding:"required"`
}

type UpdateDTO struct {
	Title   string `json:"title" binding:"max=200"`
	Content string `json:"content"`
}

func List(db *gorm.DB, page, limit int) ([]Post, int64, error) {
	var total int64
	if err := db.Model(&Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []Post
	err := db.Scopes(WithRelations, content.Newest, content.Paginate(page, limit)).Find(&list).Error
	return list, total, err
}

func Get(db *gorm.DB, id uint) (*Post, error) {
	var p Post
	if err := db.Scopes(WithRelations).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("post not found")
		}
		return nil, err
	}
	return &p, nil
}

func Create(db *gorm.DB, authorID uint, dto CreateDTO) (*Post, error) {
	title := strings.TrimSpace(dto.Title)
	body := strings.TrimSpace(dto.Content)
	if title == "" || body == "" {
		return nil, httperr.BadRequest("title and content are required")
	}
	p := Post{Title: title, Content: body, AuthorID: authorID}
	if err := db.Create(&p).Error; err != nil {
		return nil, err
	}
	return Get(db, p.ID)
}

// Update changes the post if actorID owns it. Blank fields keep their value.
func Update(db *gorm.DB, actorID, id uint, dto UpdateDTO) (*Post, error) {
	p, err := ownPost(db, actorID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if title := strings.TrimSpace(dto.Title); title != "" {
		updates["title"] = title
	}
	if body := strings.TrimSpace(dto.Content); body != "" {
		updates["content"] = body
	}
	if len(updates) > 0 {
		if err := db.Model(p).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return Get(db, id)
}

// Delete removes the post with its comments, likes and notifications.
func Delete(db *gorm.DB, actorID, id uint) error {
	p, err := ownPost(db, actorID, id)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := engagement.PurgeTarget(tx, p.Target()); err != nil {
			return err
		}
		return tx.Delete(p).Error
	})
}

func ownPost(db *gorm.DB, actorID, id uint) (*Post, error) {
	var p Post
	if err := db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("post not found")
		}
		return nil, err
	}
	if err := auth.CheckOwner(actorID, p.AuthorID); err != nil {
		return nil, err
	}
	return &p, nil
}

func viewer(c *gin.Context) uint {
	id, _ := auth.CurrentUser(c)
	return id.UserID
}

func ListPostsHandler(c *gin.Context) {
	page, limit := content.ParsePage(c, defaultLimit)
	list, total, err := List(database.DB, page, limit)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	MarkLiked(list, viewer(c))
	c.JSON(http.StatusOK, gin.H{
		"posts":      list,
		"pagination": content.NewPagination(page, limit, total),
	})
}

func GetPostHandler(c *gin.Context) {
	id, err := content.ParamID(c, "id")
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	p, err := Get(database.DB, id)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	p.LikedByMe = engagement.LikedBy(p.Likes, viewer(c))
	c.JSON(http.StatusOK, gin.H{"post": p})
}

func CreatePostHandler(c *gin.Context) {
	me, err := auth.MustUser(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	var body CreateDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := Create(database.DB, me.UserID, body)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "post created successfully",
		"post":    p,
	})
}

func UpdatePostHandler(c *gin.Context) {
	me, err := auth.MustUser(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	id, err := content.ParamID(c, "id")
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	var body UpdateDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := Update(database.DB, me.UserID, id, body)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "post updated successfully",
		"post":    p,
	})
}

func DeletePostHandler(c *gin.Context) {
	me, err := auth.MustUser(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	id, err := content.ParamID(c, "id")
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if err := Delete(database.DB, me.UserID, id); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post deleted successfully"})
}
