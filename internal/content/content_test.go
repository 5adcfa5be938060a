package content

import (
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninikarlina/gallery-davinci/internal/database/dbtest"
	"github.com/ninikarlina/gallery-davinci/internal/httperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("video")
	assert.Error(t, err)
}

func TestRankFollowsKinds(t *testing.T) {
	assert.Less(t, KindPost.Rank(), KindBook.Rank())
	assert.Less(t, KindBook.Rank(), KindImage.Rank())
	assert.Equal(t, "image", KindImage.Label())
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, Limit: 10, Total: 0, Pages: 0}, NewPagination(1, 10, 0))
	assert.Equal(t, 1, NewPagination(1, 10, 10).Pages)
	assert.Equal(t, 2, NewPagination(2, 10, 11).Pages)
}

func TestMaxPageFitsInt32(t *testing.T) {
	assert.LessOrEqual(t, int64(MaxPage)*MaxLimit, int64(math.MaxInt32))
}

func TestParsePage(t *testing.T) {
	cases := []struct {
		query       string
		page, limit int
	}{
		{"", 1, 10},
		{"?page=3&limit=5", 3, 5},
		{"?page=-1&limit=0", 1, 10},
		{"?page=abc&limit=999", 1, MaxLimit},
		{"?page=922337203685477581&limit=50", MaxPage, MaxLimit},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
		page, limit := ParsePage(c, 10)
		assert.Equal(t, tc.page, page, tc.query)
		assert.Equal(t, tc.limit, limit, tc.query)
	}
}

func TestParamID(t *testing.T) {
	for raw, ok := range map[string]bool{"7": true, "0": false, "-1": false, "x": false} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Params = gin.Params{{Key: "id", Value: raw}}
		id, err := ParamID(c, "id")
		if ok {
			require.NoError(t, err)
			assert.EqualValues(t, 7, id)
			continue
		}
		var he *httperr.Error
		require.True(t, errors.As(err, &he), raw)
		assert.Equal(t, http.StatusBadRequest, he.Status)
	}
}

func TestOwnerOf(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, db.Exec(`CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT, author_id INTEGER)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO posts (id, title, author_id) VALUES (1, 'Senja', 9)`).Error)

	o, err := OwnerOf(db, Target{Kind: KindPost, ID: 1})
	require.NoError(t, err)
	assert.Equal(t, Owner{AuthorID: 9, Title: "Senja"}, o)

	_, err = OwnerOf(db, Target{Kind: KindPost, ID: 2})
	var he *httperr.Error
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.Status)

	require.NoError(t, db.Exec(`CREATE TABLE images (id INTEGER PRIMARY KEY, title TEXT, author_id INTEGER)`).Error)
	_, err = OwnerOf(db, Target{Kind: KindImage, ID: 3})
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "image not found", he.Message)

	_, err = OwnerOf(db, Target{Kind: "video", ID: 1})
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Status)
}
