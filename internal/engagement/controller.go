package engagement

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ninikarlina/gallery-davinci/internal/auth"
	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/database"
	"github.com/ninikarlina/gallery-davinci/internal/httperr"
	"github.com/ninikarlina/gallery-davinci/internal/metrics"
	"github.com/ninikarlina/gallery-davinci/internal/notifications"
	"github.com/ninikarlina/gallery-davinci/internal/users"
)

const maxCommentLength = 2000

type CommentDTO struct {
	Text string `json:"text" binding:"required"`
}

type UpdateCommentDTO struct {
	Content string `json:"content" binding:"required"`
}

type LikeState struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// ToggleLike removes the caller's like on t, or adds one if there was none.
// A concurrent duplicate insert hits the unique index and is reported as
// already liked.
func ToggleLike(db *gorm.DB, userID uint, t content.Target) (LikeState, error) {
	owner, err := content.OwnerOf(db, t)
	if err != nil {
		return LikeState{}, err
	}

	var state LikeState
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Scopes(OnTarget(t)).Where("user_id = ?", userID).Delete(&Like{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			like := Like{UserID: userID, TargetType: t.Kind, TargetID: t.ID}
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
			if ins.Error != nil && !database.IsUniqueViolation(ins.Error) {
				return ins.Error
			}
			state.Liked = true

			if ins.Error == nil && ins.RowsAffected > 0 {
				if err := notify(tx, notifications.TypeLike, userID, t, owner); err != nil {
					return err
				}
			}
		}

		return tx.Model(&Like{}).Scopes(OnTarget(t)).Count(&state.Likes).Error
	})
	if err != nil {
		return LikeState{}, err
	}
	metrics.LikesToggled.WithLabelValues(string(t.Kind), strconv.FormatBool(state.Liked)).Inc()
	return state, nil
}

func notify(tx *gorm.DB, typ notifications.Type, actorID uint, t content.Target, owner content.Owner) error {
	if owner.AuthorID == actorID {
		return nil
	}
	var actor users.User
	if err := tx.Select("id", "username", "full_name").First(&actor, actorID).Error; err != nil {
		return fmt.Errorf("load actor: %w", err)
	}
	_, err := notifications.Emit(tx, notifications.Event{
		Type:      typ,
		ActorID:   actorID,
		ActorName: actor.DisplayName(),
		Target:    t,
		Owner:     owner,
	})
	return err
}

// AddComment stores a comment on t and notifies the owner when the author
// is someone else.
func AddComment(db *gorm.DB, authorID uint, t content.Target, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, httperr.BadRequest("comment text is required")
	}
	if len(text) > maxCommentLength {
		return nil, httperr.BadRequest("comment is too long")
	}

	owner, err := content.OwnerOf(db, t)
	if err != nil {
		return nil, err
	}

	comment := Comment{
		Content:    text,
		AuthorID:   authorID,
		TargetType: t.Kind,
		TargetID:   t.ID,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if err := notify(tx, notifications.TypeComment, authorID, t, owner); err != nil {
			return err
		}
		return tx.Preload("Author").First(&comment, comment.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func loadComment(db *gorm.DB, authorID, commentID uint) (*Comment, error) {
	var comment Comment
	if err := db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("comment not found")
		}
		return nil, err
	}
	if err := auth.CheckOwner(authorID, comment.AuthorID); err != nil {
		return nil, err
	}
	return &comment, nil
}

func UpdateComment(db *gorm.DB, authorID, commentID uint, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, httperr.BadRequest("comment content is required")
	}
	if len(text) > maxCommentLength {
		return nil, httperr.BadRequest("comment is too long")
	}

	comment, err := loadComment(db, authorID, commentID)
	if err != nil {
		return nil, err
	}
	if err := db.Model(comment).Update("content", text).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("Author").First(comment, comment.ID).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func DeleteComment(db *gorm.DB, authorID, commentID uint) error {
	comment, err := loadComment(db, authorID, commentID)
	if err != nil {
		return err
	}
	return db.Delete(comment).Error
}

// PurgeTarget removes every comment, like and notification hanging off t.
// Callers run it in the transaction that deletes the item itself.
func PurgeTarget(tx *gorm.DB, t content.Target) error {
	if err := tx.Scopes(OnTarget(t)).Delete(&Comment{}).Error; err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	if err := tx.Scopes(OnTarget(t)).Delete(&Like{}).Error; err != nil {
		return fmt.Errorf("delete likes: %w", err)
	}
	if err := notifications.PurgeTarget(tx, t); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

// LikeHandler toggles the caller's like on /:id of the given kind.
func LikeHandler(kind content.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
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

		state, err := ToggleLike(database.DB, me.UserID, content.Target{Kind: kind, ID: id})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

// CommentHandler adds a comment to /:id of the given kind.
func CommentHandler(kind content.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
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

		var body CommentDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		comment, err := AddComment(database.DB, me.UserID, content.Target{Kind: kind, ID: id}, body.Text)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "comment added successfully",
			"comment": comment,
		})
	}
}

func UpdateCommentHandler(c *gin.Context) {
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

	var body UpdateCommentDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := UpdateComment(database.DB, me.UserID, id, body.Content)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "comment updated successfully",
		"comment": comment,
	})
}

func DeleteCommentHandler(c *gin.Context) {
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

	if err := DeleteComment(database.DB, me.UserID, id); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted successfully"})
}
