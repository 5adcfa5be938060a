package books

import (
	"context"
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
	"github.com/ninikarlina/gallery-davinci/internal/storage"
)

const (
	defaultLimit = 10
	maxFileSize  = 50 << 20
	folder       = "books"
)

type UpdateDTO struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"required"`
}

func List(db *gorm.DB, page, limit int) ([]Book, int64, error) {
	var total int64
	if err := db.Model(&Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []Book
	err := db.Scopes(WithRelations, content.Newest, content.Paginate(page, limit)).Find(&list).Error
	return list, total, err
}

func Get(db *gorm.DB, id uint) (*Book, error) {
	var b Book
	if err := db.Scopes(WithRelations).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("book not found")
		}
		return nil, err
	}
	return &b, nil
}

// Create records a book whose PDF has already been stored as obj.
func Create(db *gorm.DB, authorID uint, title, description, fileName string, obj storage.Object) (*Book, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, httperr.BadRequest("title and description are required")
	}
	b := Book{
		Title:       title,
		Description: description,
		FileName:    fileName,
		FileURL:     obj.URL,
		FileKey:     obj.Key,
		FileSize:    obj.Size,
		AuthorID:    authorID,
	}
	if err := db.Create(&b).Error; err != nil {
		return nil, err
	}
	return Get(db, b.ID)
}

func Update(db *gorm.DB, actorID, id uint, dto UpdateDTO) (*Book, error) {
	title := strings.TrimSpace(dto.Title)
	description := strings.TrimSpace(dto.Description)
	if title == "" || description == "" {
		return nil, httperr.BadRequest("title and description are required")
	}

	b, err := ownBook(db, actorID, id)
	if err != nil {
		return nil, err
	}
	if err := db.Model(b).Updates(map[string]interface{}{
		"title":       title,
		"description": description,
	}).Error; err != nil {
		return nil, err
	}
	return Get(db, id)
}

// Delete removes the book and everything attached to it, then its PDF.
func Delete(ctx context.Context, db *gorm.DB, actorID, id uint) error {
	b, err := ownBook(db, actorID, id)
	if err != nil {
		return err
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := engagement.PurgeTarget(tx, b.Target()); err != nil {
			return err
		}
		return tx.Delete(b).Error
	})
	if err != nil {
		return err
	}
	storage.Remove(ctx, b.FileKey)
	return nil
}

// CountDownload bumps the counter in place and returns the file URL.
func CountDownload(db *gorm.DB, id uint) (string, error) {
	var b Book
	if err := db.Select("id", "file_url").First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", httperr.NotFound("book not found")
		}
		return "", err
	}
	if err := db.Model(&Book{}).Where("id = ?", id).
		UpdateColumn("downloads", gorm.Expr("downloads + ?", 1)).Error; err != nil {
		return "", err
	}
	return b.FileURL, nil
}

func ownBook(db *gorm.DB, actorID, id uint) (*Book, error) {
	var b Book
	if err := db.First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("book not found")
		}
		return nil, err
	}
	if err := auth.CheckOwner(actorID, b.AuthorID); err != nil {
		return nil, err
	}
	return &b, nil
}

func ListBooksHandler(c *gin.Context) {
	page, limit := content.ParsePage(c, defaultLimit)
	list, total, err := List(database.DB, page, limit)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	viewer, _ := auth.CurrentUser(c)
	MarkLiked(list, viewer.UserID)
	c.JSON(http.StatusOK, gin.H{
		"books":      list,
		"pagination": content.NewPagination(page, limit, total),
	})
}

func GetBookHandler(c *gin.Context) {
	id, err := content.ParamID(c, "id")
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	b, err := Get(database.DB, id)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	viewer, _ := auth.CurrentUser(c)
	b.LikedByMe = engagement.LikedBy(b.Likes, viewer.UserID)
	c.JSON(http.StatusOK, gin.H{"book": b})
}

func CreateBookHandler(c *gin.Context) {
	me, err := auth.MustUser(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	description := strings.TrimSpace(c.PostForm("description"))
	if title == "" || description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and description are required"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	if _, err := storage.CheckFile(fh, maxFileSize, storage.PDFTypes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	obj, err := storage.SaveUpload(ctx, folder, fh)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	b, err := Create(database.DB, me.UserID, title, description, fh.Filename, obj)
	if err != nil {
		storage.Remove(ctx, obj.Key)
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "book uploaded successfully",
		"book":    b,
	})
}

func UpdateBookHandler(c *gin.Context) {
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
	b, err := Update(database.DB, me.UserID, id, body)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "book updated successfully",
		"book":    b,
	})
}

func DeleteBookHandler(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{"message": "book deleted successfully"})
}

func DownloadBookHandler(c *gin.Context) {
	id, err := content.ParamID(c, "id")
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	url, err := CountDownload(database.DB, id)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}
