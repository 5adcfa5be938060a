package users

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/auth"
	"github.com/ninikarlina/gallery-davinci/internal/database"
	"github.com/ninikarlina/gallery-davinci/internal/httperr"
	"github.com/ninikarlina/gallery-davinci/internal/storage"
)

const maxAvatarSize = 2 << 20

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required,max=100"`
}

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileDTO struct {
	FullName *string `json:"full_name" binding:"omitempty,min=1,max=100"`
	Bio      *string `json:"bio" binding:"omitempty,max=500"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Bio       string    `json:"bio"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

func ToResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// Register creates the account. Uniqueness is pre-checked for a friendly
// error and enforced by the unique indexes for concurrent sign-ups.
func Register(db *gorm.DB, dto RegisterDTO) (*User, error) {
	username := strings.TrimSpace(dto.Username)
	email := strings.ToLower(strings.TrimSpace(dto.Email))
	fullName := strings.TrimSpace(dto.FullName)
	if username == "" || fullName == "" {
		return nil, httperr.BadRequest("missing required fields")
	}

	var count int64
	if err := db.Model(&User{}).Where("username = ? OR email = ?", username, email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, httperr.Conflict("user already exists")
	}

	hashed, err := HashPassword(dto.Password)
	if err != nil {
		return nil, err
	}
	user := User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		FullName:     fullName,
	}
	if err := db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, httperr.Conflict("user already exists")
		}
		return nil, err
	}
	return &user, nil
}

func Authenticate(db *gorm.DB, email, password string) (*User, error) {
	var u User
	err := db.First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, httperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, httperr.Unauthorized("invalid credentials")
	}
	return &u, nil
}

func RegisterHandler(c *gin.Context) {
	var body RegisterDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := Register(database.DB, body)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	tok, err := auth.GenerateToken(user.ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "user created successfully",
		"token":   tok,
		"user":    ToResponse(user),
	})
}

func LoginHandler(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := Authenticate(database.DB, dto.Email, dto.Password)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	tok, err := auth.GenerateToken(u.ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": tok,
		"user":  ToResponse(u),
	})
}

func MeHandler(c *gin.Context) {
	id, err := auth.MustUser(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	var u User
	if err := database.DB.First(&u, id.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ToResponse(&u))
}

// loadSelf parses :userId, requires it to be the caller and loads the row.
func loadSelf(c *gin.Context) (*User, error) {
	id, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		return nil, httperr.BadRequest("invalid id")
	}
	if err := auth.Authorize(c, uint(id)); err != nil {
		return nil, err
	}

	var user User
	if err := database.DB.First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

func UpdateProfileHandler(c *gin.Context) {
	user, err := loadSelf(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	var body UpdateProfileDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if body.FullName != nil {
		if name := strings.TrimSpace(*body.FullName); name != "" {
			updates["full_name"] = name
		}
	}
	if body.Bio != nil {
		updates["bio"] = strings.TrimSpace(*body.Bio)
	}
	if len(updates) > 0 {
		if err := database.DB.Model(user).Updates(updates).Error; err != nil {
			httperr.Respond(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "profile updated",
		"user":    ToResponse(user),
	})
}

func UploadAvatarHandler(c *gin.Context) {
	user, err := loadSelf(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	fh, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	if _, err := storage.CheckFile(fh, maxAvatarSize, storage.ImageTypes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obj, err := storage.SaveUpload(c.Request.Context(), "avatars", fh)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	oldKey := user.AvatarKey
	if err := database.DB.Model(user).Updates(map[string]interface{}{
		"avatar_url": obj.URL,
		"avatar_key": obj.Key,
	}).Error; err != nil {
		storage.Remove(c.Request.Context(), obj.Key)
		httperr.Respond(c, err)
		return
	}
	storage.Remove(c.Request.Context(), oldKey)

	c.JSON(http.StatusOK, gin.H{
		"message": "avatar uploaded successfully",
		"user":    ToResponse(user),
	})
}

func DeleteAvatarHandler(c *gin.Context) {
	user, err := loadSelf(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if user.AvatarURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no avatar to delete"})
		return
	}

	oldKey := user.AvatarKey
	if err := database.DB.Model(user).Updates(map[string]interface{}{
		"avatar_url": "",
		"avatar_key": "",
	}).Error; err != nil {
		httperr.Respond(c, err)
		return
	}
	storage.Remove(c.Request.Context(), oldKey)

	c.JSON(http.StatusOK, gin.H{
		"message": "avatar deleted successfully",
		"user":    ToResponse(user),
	})
}
