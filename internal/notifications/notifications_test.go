package notifications

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/auth"
	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/database/dbtest"
)

func init() {
	gin.SetMode(gin.TestMode)
	auth.Init("test-secret", time.Hour)
}

func newRouter() *gin.Engine {
	r := gin.New()
	g := r.Group("/notifications", auth.RequireAuth())
	g.GET("", ListHandler)
	g.PATCH("/read-all", MarkAllReadHandler)
	g.PATCH("/:id/read", MarkReadHandler)
	g.DELETE("/:id", DeleteHandler)
	return r
}

func call(t *testing.T, r http.Handler, method, path string, userID uint) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	tok, err := auth.GenerateToken(userID)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func emit(t *testing.T, db *gorm.DB, owner, actor uint, typ Type) {
	t.Helper()
	_, err := Emit(db, Event{
		Type:      typ,
		ActorID:   actor,
		ActorName: fmt.Sprintf("user%d", actor),
		Target:    content.Target{Kind: content.KindImage, ID: 9},
		Owner:     content.Owner{AuthorID: owner, Title: "Langit"},
	})
	require.NoError(t, err)
}

func TestEmitSkipsSelf(t *testing.T) {
	db := dbtest.New(t, &Notification{})

	added, err := Emit(db, Event{Type: TypeLike, ActorID: 1, Owner: content.Owner{AuthorID: 1}})
	require.NoError(t, err)
	assert.False(t, added)

	added, err = Emit(db, Event{
		Type:      TypeLike,
		ActorID:   2,
		ActorName: "Budi",
		Target:    content.Target{Kind: content.KindImage, ID: 4},
		Owner:     content.Owner{AuthorID: 1, Title: "Langit"},
	})
	require.NoError(t, err)
	assert.True(t, added)

	var n Notification
	require.NoError(t, db.First(&n).Error)
	assert.Equal(t, uint(1), n.UserID)
	assert.Equal(t, `Budi liked your image: "Langit"`, n.Message)
}

func TestMessageKeepsTitleVerbatim(t *testing.T) {
	db := dbtest.New(t, &Notification{})
	_, err := Emit(db, Event{
		Type:      TypeComment,
		ActorID:   2,
		ActorName: "Budi",
		Target:    content.Target{Kind: content.KindPost, ID: 1},
		Owner:     content.Owner{AuthorID: 1, Title: `Kata "Indah"`},
	})
	require.NoError(t, err)

	var n Notification
	require.NoError(t, db.First(&n).Error)
	assert.Equal(t, `Budi commented on your post: "Kata "Indah""`, n.Message)
}

func TestListAndMarkRead(t *testing.T) {
	db := dbtest.New(t, &Notification{})
	emit(t, db, 1, 2, TypeLike)
	emit(t, db, 1, 3, TypeComment)
	emit(t, db, 2, 1, TypeLike)
	r := newRouter()

	w := call(t, r, http.MethodGet, "/notifications", 1)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Notifications []Notification `json:"notifications"`
		UnreadCount   int64          `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Notifications, 2)
	assert.EqualValues(t, 2, body.UnreadCount)
	assert.Equal(t, TypeComment, body.Notifications[0].Type, "newest first")

	first := body.Notifications[0].ID
	assert.Equal(t, http.StatusOK, call(t, r, http.MethodPatch, fmt.Sprintf("/notifications/%d/read", first), 1).Code)

	var unread int64
	require.NoError(t, db.Model(&Notification{}).Where("user_id = ? AND is_read = ?", 1, false).Count(&unread).Error)
	assert.EqualValues(t, 1, unread)

	assert.Equal(t, http.StatusOK, call(t, r, http.MethodPatch, "/notifications/read-all", 1).Code)
	require.NoError(t, db.Model(&Notification{}).Where("user_id = ? AND is_read = ?", 1, false).Count(&unread).Error)
	assert.Zero(t, unread)

	// The other recipient is untouched.
	require.NoError(t, db.Model(&Notification{}).Where("user_id = ? AND is_read = ?", 2, false).Count(&unread).Error)
	assert.EqualValues(t, 1, unread)
}

func TestOnlyRecipientMayModify(t *testing.T) {
	db := dbtest.New(t, &Notification{})
	emit(t, db, 1, 2, TypeLike)
	var n Notification
	require.NoError(t, db.First(&n).Error)
	r := newRouter()

	path := fmt.Sprintf("/notifications/%d", n.ID)
	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodDelete, path, 2).Code)
	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodPatch, path+"/read", 2).Code)
	assert.Equal(t, http.StatusNotFound, call(t, r, http.MethodDelete, "/notifications/999", 1).Code)

	assert.Equal(t, http.StatusOK, call(t, r, http.MethodDelete, path, 1).Code)
	var count int64
	require.NoError(t, db.Model(&Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPurgeTarget(t *testing.T) {
	db := dbtest.New(t, &Notification{})
	emit(t, db, 1, 2, TypeLike)
	emit(t, db, 1, 3, TypeLike)

	require.NoError(t, PurgeTarget(db, content.Target{Kind: content.KindPost, ID: 9}))
	var count int64
	require.NoError(t, db.Model(&Notification{}).Count(&count).Error)
	assert.EqualValues(t, 2, count, "different kind, same id")

	require.NoError(t, PurgeTarget(db, content.Target{Kind: content.KindImage, ID: 9}))
	require.NoError(t, db.Model(&Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}
