package api

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ninikarlina/gallery-davinci/internal/auth"
	"github.com/ninikarlina/gallery-davinci/internal/books"
	"github.com/ninikarlina/gallery-davinci/internal/config"
	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/engagement"
	"github.com/ninikarlina/gallery-davinci/internal/feed"
	"github.com/ninikarlina/gallery-davinci/internal/galleries"
	"github.com/ninikarlina/gallery-davinci/internal/logging"
	"github.com/ninikarlina/gallery-davinci/internal/metrics"
	"github.com/ninikarlina/gallery-davinci/internal/notifications"
	"github.com/ninikarlina/gallery-davinci/internal/posts"
	"github.com/ninikarlina/gallery-davinci/internal/users"
)

// NewRouter wires every route. The database handle, token service and file
// store must already be initialised.
func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(), metrics.Middleware())
	r.MaxMultipartMemory = 16 << 20

	r.GET("/health", HealthHandler)
	r.GET("/metrics", metrics.Handler())
	r.Static(uploadsPath(cfg.Upload.BaseURL), cfg.Upload.Dir)

	api := r.Group("/api")
	optional := auth.OptionalAuth()
	required := auth.RequireAuth()

	authGroup := api.Group("/auth")
	{
		throttle := auth.Throttle(cfg.Auth.RatePerMinute, cfg.Auth.Burst)
		authGroup.POST("/register", throttle, users.RegisterHandler)
		authGroup.POST("/login", throttle, users.LoginHandler)
		authGroup.GET("/me", required, users.MeHandler)
	}

	p := api.Group("/posts")
	{
		p.GET("", optional, posts.ListPostsHandler)
		p.GET("/:id", optional, posts.GetPostHandler)
		p.POST("", required, posts.CreatePostHandler)
		p.PUT("/:id", required, posts.UpdatePostHandler)
		p.DELETE("/:id", required, posts.DeletePostHandler)
		p.POST("/:id/like", required, engagement.LikeHandler(content.KindPost))
		p.POST("/:id/comments", required, engagement.CommentHandler(content.KindPost))
	}

	b := api.Group("/books")
	{
		b.GET("", optional, books.ListBooksHandler)
		b.GET("/:id", optional, books.GetBookHandler)
		b.GET("/:id/download", books.DownloadBookHandler)
		b.POST("", required, books.CreateBookHandler)
		b.PUT("/:id", required, books.UpdateBookHandler)
		b.DELETE("/:id", required, books.DeleteBookHandler)
		b.POST("/:id/like", required, engagement.LikeHandler(content.KindBook))
		b.POST("/:id/comments", required, engagement.CommentHandler(content.KindBook))
	}

	img := api.Group("/images")
	{
		img.GET("", optional, galleries.ListImagesHandler)
		img.GET("/:id", optional, galleries.GetImageHandler)
		img.POST("", required, galleries.CreateImageHandler)
		img.PUT("/:id", required, galleries.UpdateImageHandler)
		img.DELETE("/:id", required, galleries.DeleteImageHandler)
		img.POST("/:id/like", required, engagement.LikeHandler(content.KindImage))
		img.POST("/:id/comments", required, engagement.CommentHandler(content.KindImage))
	}

	api.PUT("/comments/:id", required, engagement.UpdateCommentHandler)
	api.DELETE("/comments/:id", required, engagement.DeleteCommentHandler)

	agg := feed.New(cfg.Feed.PageCapacity, cfg.Feed.PerType)
	api.GET("/feed", optional, agg.Handler())

	n := api.Group("/notifications", required)
	{
		n.GET("", notifications.ListHandler)
		n.PATCH("/read-all", notifications.MarkAllReadHandler)
		n.PATCH("/:id/read", notifications.MarkReadHandler)
		n.DELETE("/:id", notifications.DeleteHandler)
	}

	u := api.Group("/users")
	{
		u.GET("/:userId", optional, ProfileHandler)
		u.PUT("/:userId", required, users.UpdateProfileHandler)
		u.POST("/:userId/avatar", required, users.UploadAvatarHandler)
		u.DELETE("/:userId/avatar", required, users.DeleteAvatarHandler)
	}

	api.GET("/search", optional, SearchHandler)
	api.GET("/stats", StatsHandler)

	return r
}

// uploadsPath is the route prefix for stored files. Only the path of an
// absolute base URL is served locally.
func uploadsPath(baseURL string) string {
	p := "/uploads"
	if u, err := url.Parse(baseURL); err == nil && strings.Trim(u.Path, "/") != "" {
		p = "/" + strings.Trim(u.Path, "/")
	}
	return p
}
