package notifications

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/auth"
	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/database"
	"github.com/ninikarlina/gallery-davinci/internal/httperr"
	"github.com/ninikarlina/gallery-davinci/internal/metrics"
)

const listLimit = 50

// Event describes a like or comment that may be worth telling the owner about.
type Event struct {
	Type      Type
	ActorID   uint
	ActorName string
	Target    content.Target
	Owner     content.Owner
}

// Emit records a notification for the target's owner. Acting on your own
// content records nothing; the returned bool reports whether a row was added.
func Emit(db *gorm.DB, ev Event) (bool, error) {
	if ev.Owner.AuthorID == ev.ActorID {
		return false, nil
	}
	n := Notification{
		UserID:       ev.Owner.AuthorID,
		Type:         ev.Type,
		ActorID:      ev.ActorID,
		ActorName:    ev.ActorName,
		TargetType:   ev.Target.Kind,
		TargetID:     ev.Target.ID,
		ContentTitle: ev.Owner.Title,
		Message:      message(ev),
	}
	if err := db.Create(&n).Error; err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	metrics.NotificationsEmitted.WithLabelValues(string(ev.Type)).Inc()
	return true, nil
}

func message(ev Event) string {
	verb := "liked"
	if ev.Type == TypeComment {
		verb = "commented on"
	}
	return fmt.Sprintf("%s %s your %s: \"%s\"", ev.ActorName, verb, ev.Target.Kind.Label(), ev.Owner.Title)
}

// PurgeTarget removes notifications about a deleted item.
func PurgeTarget(db *gorm.DB, t content.Target) error {
	return db.Where("target_type = ? AND target_id = ?", t.Kind, t.ID).Delete(&Notification{}).Error
}

func ListHandler(c *gin.Context) {
	id, err := auth.MustUser(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	var list []Notification
	if err := database.DB.Where("user_id = ?", id.UserID).
		Order("created_at DESC").Order("id DESC").
		Limit(listLimit).
		Find(&list).Error; err != nil {
		httperr.Respond(c, err)
		return
	}

	var unread int64
	if err := database.DB.Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", id.UserID, false).
		Count(&unread).Error; err != nil {
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": list,
		"unread_count":  unread,
	})
}

// loadOwn fetches :id and checks that the caller is the recipient.
func loadOwn(c *gin.Context) (*Notification, error) {
	nid, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, httperr.BadRequest("invalid id")
	}
	var n Notification
	if err := database.DB.First(&n, uint(nid)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("notification not found")
		}
		return nil, err
	}
	if err := auth.Authorize(c, n.UserID); err != nil {
		return nil, err
	}
	return &n, nil
}

func MarkReadHandler(c *gin.Context) {
	n, err := loadOwn(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if err := database.DB.Model(n).Update("is_read", true).Error; err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": n})
}

func MarkAllReadHandler(c *gin.Context) {
	id, err := auth.MustUser(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	res := database.DB.Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", id.UserID, false).
		Update("is_read", true)
	if res.Error != nil {
		httperr.Respond(c, res.Error)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": res.RowsAffected})
}

func DeleteHandler(c *gin.Context) {
	n, err := loadOwn(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if err := database.DB.Delete(n).Error; err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification deleted successfully"})
}
