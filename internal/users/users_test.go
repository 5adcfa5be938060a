package users

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninikarlina/gallery-davinci/internal/auth"
	"github.com/ninikarlina/gallery-davinci/internal/database/dbtest"
	"github.com/ninikarlina/gallery-davinci/internal/httperr"
	"github.com/ninikarlina/gallery-davinci/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
	auth.Init("test-secret", time.Hour)
}

func newRouter() *gin.Engine {
	r := gin.New()
	r.POST("/register", RegisterHandler)
	r.POST("/login", LoginHandler)
	r.GET("/me", auth.RequireAuth(), MeHandler)
	r.PUT("/users/:userId", auth.RequireAuth(), UpdateProfileHandler)
	r.POST("/users/:userId/avatar", auth.RequireAuth(), UploadAvatarHandler)
	r.DELETE("/users/:userId/avatar", auth.RequireAuth(), DeleteAvatarHandler)
	return r
}

func doJSON(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type authResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func register(t *testing.T, r http.Handler, username, email string) authResponse {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":%q,"password":"rahasia1","full_name":"%s Lengkap"}`, username, email, username)
	w := doJSON(r, http.MethodPost, "/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestRegisterLoginMe(t *testing.T) {
	dbtest.New(t, &User{})
	r := newRouter()

	reg := register(t, r, "ayu", "Ayu@Example.com")
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "ayu@example.com", reg.User.Email)

	w := doJSON(r, http.MethodPost, "/login", "", `{"email":"ayu@example.com","password":"rahasia1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var login authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, reg.User.ID, login.User.ID)

	w = doJSON(r, http.MethodGet, "/me", login.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var me UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "ayu", me.Username)
	assert.NotContains(t, w.Body.String(), "password")

	w = doJSON(r, http.MethodPost, "/login", "", `{"email":"ayu@example.com","password":"salah"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(r, http.MethodPost, "/login", "", `{"email":"nobody@example.com","password":"rahasia1"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	dbtest.New(t, &User{})
	r := newRouter()

	for _, body := range []string{
		`{"username":"ab","email":"ab@example.com","password":"rahasia1","full_name":"A"}`,
		`{"username":"abc","email":"not-an-email","password":"rahasia1","full_name":"A"}`,
		`{"username":"abc","email":"abc@example.com","password":"123","full_name":"A"}`,
		`{"username":"abc","email":"abc@example.com","password":"rahasia1"}`,
	} {
		assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/register", "", body).Code, body)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	db := dbtest.New(t, &User{})

	_, err := Register(db, RegisterDTO{Username: "ayu", Email: "ayu@example.com", Password: "rahasia1", FullName: "Ayu"})
	require.NoError(t, err)

	for _, dto := range []RegisterDTO{
		{Username: "ayu", Email: "other@example.com", Password: "rahasia1", FullName: "X"},
		{Username: "other", Email: "AYU@example.com", Password: "rahasia1", FullName: "X"},
	} {
		_, err := Register(db, dto)
		var he *httperr.Error
		require.True(t, errors.As(err, &he), "got %v", err)
		assert.Equal(t, http.StatusConflict, he.Status)
	}
}

func TestUpdateProfileOnlySelf(t *testing.T) {
	dbtest.New(t, &User{})
	r := newRouter()
	ayu := register(t, r, "ayu", "ayu@example.com")
	budi := register(t, r, "budi", "budi@example.com")

	path := fmt.Sprintf("/users/%d", ayu.User.ID)
	w := doJSON(r, http.MethodPut, path, budi.Token, `{"bio":"hacked"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(r, http.MethodPut, path, "", `{"bio":"anon"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPut, path, ayu.Token, `{"bio":"  penyair  ","full_name":"Ayu Lestari"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		User UserResponse `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "penyair", res.User.Bio)
	assert.Equal(t, "Ayu Lestari", res.User.FullName)
}

func TestAvatarLifecycle(t *testing.T) {
	dbtest.New(t, &User{})
	dir := t.TempDir()
	store, err := storage.NewLocal(dir, "/uploads")
	require.NoError(t, err)
	storage.Use(store)

	r := newRouter()
	ayu := register(t, r, "ayu", "ayu@example.com")
	path := fmt.Sprintf("/users/%d/avatar", ayu.User.ID)

	upload := func(data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("avatar", "me.png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, path, &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+ayu.Token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	avatars := func() []string {
		m, err := filepath.Glob(filepath.Join(dir, "avatars", "*"))
		require.NoError(t, err)
		return m
	}
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodDelete, path, ayu.Token, "").Code)
	assert.Equal(t, http.StatusBadRequest, upload([]byte("not an image")).Code)

	require.Equal(t, http.StatusOK, upload(png).Code)
	require.Len(t, avatars(), 1)
	first := avatars()[0]

	require.Equal(t, http.StatusOK, upload(png).Code)
	files := avatars()
	require.Len(t, files, 1, "old avatar is removed")
	assert.NotEqual(t, first, files[0])

	w := doJSON(r, http.MethodDelete, path, ayu.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, avatars())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ayu", (&User{Username: "ayu", FullName: "Ayu"}).DisplayName())
	assert.Equal(t, "ayu", (&User{Username: "ayu"}).DisplayName())
}
