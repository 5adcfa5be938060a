package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/ninikarlina/gallery-davinci/internal/httperr"
)

// CurrentUser returns the identity attached by RequireAuth or OptionalAuth.
func CurrentUser(c *gin.Context) (Identity, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return Identity{}, false
	}
	uid, ok := v.(uint)
	if !ok || uid == 0 {
		return Identity{}, false
	}
	return Identity{UserID: uid}, true
}

// MustUser is CurrentUser for routes behind RequireAuth.
func MustUser(c *gin.Context) (Identity, error) {
	id, ok := CurrentUser(c)
	if !ok {
		return Identity{}, httperr.Unauthorized("unauthenticated")
	}
	return id, nil
}

// Authorize fails with 403 unless the caller owns the resource.
func Authorize(c *gin.Context, ownerID uint) error {
	id, err := MustUser(c)
	if err != nil {
		return err
	}
	return CheckOwner(id.UserID, ownerID)
}

// CheckOwner is the ownership rule behind Authorize, for code that already
// holds the actor id.
func CheckOwner(actorID, ownerID uint) error {
	if actorID == 0 {
		return httperr.Unauthorized("unauthenticated")
	}
	if actorID != ownerID {
		return httperr.Forbidden("you do not have access to this resource")
	}
	return nil
}
