package galleries

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/auth"
	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/database"
	"github.com/ninikarlina/gallery-davinci/internal/engagement"
	"github.com/ninikarlina/gallery-davinci/internal/httperr"
	"github.com/ninikarlina/gallery-davinci/internal/storage"
)

const (
	defaultLimit = 12
	maxFiles     = 15
	maxFileSize  = 5 << 20
	folder       = "images"
)

type UpdateDTO struct {
	Title   string  `json:"title" binding:"required,max=200"`
	Caption *string `json:"caption"`
}

func List(db *gorm.DB, page, limit int) ([]Image, int64, error) {
	var total int64
	if err := db.Model(&Image{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []Image
	err := db.Scopes(WithRelations, content.Newest, content.Paginate(page, limit)).Find(&list).Error
	return list, total, err
}

func Get(db *gorm.DB, id uint) (*Image, error) {
	var g Image
	if err := db.Scopes(WithRelations).First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("image not found")
		}
		return nil, err
	}
	return &g, nil
}

// Create records a gallery over already stored objects, keeping their order.
func Create(db *gorm.DB, authorID uint, title, caption string, objs []storage.Object) (*Image, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, httperr.BadRequest("title is required")
	}
	if len(objs) == 0 {
		return nil, httperr.BadRequest("at least one image is required")
	}

	g := Image{
		Title:    title,
		Caption:  strings.TrimSpace(caption),
		AuthorID: authorID,
		Items:    make([]ImageItem, 0, len(objs)),
	}
	for i, obj := range objs {
		g.Items = append(g.Items, ImageItem{URL: obj.URL, Key: obj.Key, Order: i})
	}
	if err := db.Create(&g).Error; err != nil {
		return nil, err
	}
	return Get(db, g.ID)
}

func Update(db *gorm.DB, actorID, id uint, dto UpdateDTO) (*Image, error) {
	title := strings.TrimSpace(dto.Title)
	if title == "" {
		return nil, httperr.BadRequest("title is required")
	}

	g, err := ownImage(db, actorID, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"title": title}
	if dto.Caption != nil {
		updates["caption"] = strings.TrimSpace(*dto.Caption)
	}
	if err := db.Model(g).Updates(updates).Error; err != nil {
		return nil, err
	}
	return Get(db, id)
}

// Delete removes the gallery, its items and engagement, then the files.
func Delete(ctx context.Context, db *gorm.DB, actorID, id uint) error {
	g, err := ownImage(db, actorID, id)
	if err != nil {
		return err
	}
	if err := db.Where("image_id = ?", g.ID).Find(&g.Items).Error; err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := engagement.PurgeTarget(tx, g.Target()); err != nil {
			return err
		}
		if err := tx.Where("image_id = ?", g.ID).Delete(&ImageItem{}).Error; err != nil {
			return fmt.Errorf("delete image items: %w", err)
		}
		return tx.Delete(&Image{ID: g.ID}).Error
	})
	if err != nil {
		return err
	}
	storage.Remove(ctx, g.Keys()...)
	return nil
}

func ownImage(db *gorm.DB, actorID, id uint) (*Image, error) {
	var g Image
	if err := db.First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("image not found")
		}
		return nil, err
	}
	if err := auth.CheckOwner(actorID, g.AuthorID); err != nil {
		return nil, err
	}
	return &g, nil
}

func ListImagesHandler(c *gin.Context) {
	page, limit := content.ParsePage(c, defaultLimit)
	list, total, err := List(database.DB, page, limit)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	viewer, _ := auth.CurrentUser(c)
	MarkLiked(list, viewer.UserID)
	c.JSON(http.StatusOK, gin.H{
		"images":     list,
		"pagination": content.NewPagination(page, limit, total),
	})
}

func GetImageHandler(c *gin.Context) {
	id, err := content.ParamID(c, "id")
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	g, err := Get(database.DB, id)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	viewer, _ := auth.CurrentUser(c)
	g.LikedByMe = engagement.LikedBy(g.Likes, viewer.UserID)
	c.JSON(http.StatusOK, gin.H{"image": g})
}

func CreateImageHandler(c *gin.Context) {
	me, err := auth.MustUser(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}
	if len(files) > maxFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d images per upload", maxFiles)})
		return
	}
	for _, fh := range files {
		if _, err := storage.CheckFile(fh, maxFileSize, storage.ImageTypes); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx := c.Request.Context()
	objs := make([]storage.Object, 0, len(files))
	cleanup := func() {
		for _, o := range objs {
			storage.Remove(ctx, o.Key)
		}
	}
	for _, fh := range files {
		obj, err := storage.SaveUpload(ctx, folder, fh)
		if err != nil {
			cleanup()
			httperr.Respond(c, err)
			return
		}
		objs = append(objs, obj)
	}

	g, err := Create(database.DB, me.UserID, title, c.PostForm("description"), objs)
	if err != nil {
		cleanup()
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "images uploaded successfully",
		"image":   g,
	})
}

func UpdateImageHandler(c *gin.Context) {
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
	g, err := Update(database.DB, me.UserID, id, body)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "image updated successfully",
		"image":   g,
	})
}

func DeleteImageHandler(c *gin.Context) {
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
	if err := Delete(c.Request.Context(), database.DB, me.UserID, id); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "image deleted successfully"})
}
