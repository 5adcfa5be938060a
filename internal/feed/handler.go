package feed

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ninikarlina/gallery-davinci/internal/auth"
	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/database"
	"github.com/ninikarlina/gallery-davinci/internal/httperr"
)

// Handler serves GET /api/feed?page=&per_type= or ?cursor=.
func (a *Aggregator) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q Query
		if raw := c.Query("cursor"); raw != "" {
			cur, err := DecodeCursor(raw)
			if err != nil {
				httperr.Respond(c, httperr.BadRequest(err.Error()))
				return
			}
			q.Cursor = &cur
		}
		q.Page, _ = strconv.Atoi(c.Query("page"))
		q.PerType, _ = strconv.Atoi(c.Query("per_type"))
		if q.PerType > content.MaxLimit {
			q.PerType = content.MaxLimit
		}
		if viewer, ok := auth.CurrentUser(c); ok {
			q.Viewer = viewer.UserID
		}

		page, err := a.Build(c.Request.Context(), database.DB, q)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}
