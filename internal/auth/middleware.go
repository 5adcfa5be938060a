package auth

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var (
	ErrMissingToken = errors.New("missing or invalid authorization header")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID uint
}

// Authenticate checks an Authorization header value and returns the caller,
// or ErrMissingToken / ErrInvalidToken.
func Authenticate(header string) (Identity, error) {
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return Identity{}, ErrMissingToken
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tokenStr == "" {
		return Identity{}, ErrMissingToken
	}
	claims, err := ParseToken(tokenStr)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID}, nil
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set("user_id", id.UserID)
		c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is sent and lets
// anonymous requests through.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := Authenticate(c.GetHeader("Authorization")); err == nil {
			c.Set("user_id", id.UserID)
		}
		c.Next()
	}
}

// Throttle limits requests per client IP.
func Throttle(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	type visitor struct {
		limiter *rate.Limiter
		seen    time.Time
	}
	var (
		mu       sync.Mutex
		visitors = map[string]*visitor{}
		swept    = time.Now()
		every    = rate.Every(time.Minute / time.Duration(perMinute))
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		v, ok := visitors[ip]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(every, burst)}
			visitors[ip] = v
		}
		v.seen = now
		if now.Sub(swept) > time.Minute {
			for k, other := range visitors {
				if now.Sub(other.seen) > 10*time.Minute {
					delete(visitors, k)
				}
			}
			swept = now
		}
		allowed := v.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
