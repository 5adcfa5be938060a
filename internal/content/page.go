package content

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/httperr"
)

const MaxLimit = 50

// MaxPage keeps page*limit inside an int32 for every allowed limit.
const MaxPage = math.MaxInt32 / MaxLimit

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// ParsePage reads ?page= and ?limit=. Missing or non-positive values fall
// back to 1 and def; page is capped at MaxPage and limit at MaxLimit.
func ParsePage(c *gin.Context, def int) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit, _ = strconv.Atoi(c.Query("limit"))
	if limit < 1 {
		limit = def
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Paginate applies offset and limit for a 1-based page.
func Paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}

// Newest orders rows newest first with id as tie-break.
func Newest(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

// ParamID parses a positive numeric route parameter.
func ParamID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, httperr.BadRequest("invalid id")
	}
	return uint(id), nil
}
