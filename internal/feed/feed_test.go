package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/books"
	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/database/dbtest"
	"github.com/ninikarlina/gallery-davinci/internal/engagement"
	"github.com/ninikarlina/gallery-davinci/internal/galleries"
	"github.com/ninikarlina/gallery-davinci/internal/posts"
	"github.com/ninikarlina/gallery-davinci/internal/users"
)

var t0 = time.Date(2024, 8, 17, 8, 0, 0, 0, time.UTC)

func at(minutes int) time.Time { return t0.Add(time.Duration(minutes) * time.Minute) }

// seed stores 3 posts, 2 books and 1 gallery. Minute 2 is shared by one of
// each kind. Feed order is post3, book2, post2, book1, image1, post1.
func seed(t *testing.T) *gorm.DB {
	db := dbtest.New(t,
		&users.User{}, &posts.Post{}, &books.Book{}, &galleries.Image{}, &galleries.ImageItem{},
		&engagement.Comment{}, &engagement.Like{},
	)
	u := users.User{Username: "rina", Email: "rina@example.com", PasswordHash: "x", FullName: "Rina"}
	require.NoError(t, db.Create(&u).Error)

	for _, p := range []posts.Post{
		{Title: "post1", Content: "x", AuthorID: u.ID, CreatedAt: at(0)},
		{Title: "post2", Content: "x", AuthorID: u.ID, CreatedAt: at(2)},
		{Title: "post3", Content: "x", AuthorID: u.ID, CreatedAt: at(4)},
	} {
		require.NoError(t, db.Create(&p).Error)
	}
	for _, b := range []books.Book{
		{Title: "book1", FileName: "a.pdf", FileURL: "/a", AuthorID: u.ID, CreatedAt: at(2)},
		{Title: "book2", FileName: "b.pdf", FileURL: "/b", AuthorID: u.ID, CreatedAt: at(3)},
	} {
		require.NoError(t, db.Create(&b).Error)
	}
	img := galleries.Image{
		Title: "image1", AuthorID: u.ID, CreatedAt: at(2),
		Items: []galleries.ImageItem{{URL: "/i", Key: "images/i", Order: 0}},
	}
	require.NoError(t, db.Create(&img).Error)
	return db
}

func titles(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.Data.(type) {
		case *posts.Post:
			out = append(out, v.Title)
		case *books.Book:
			out = append(out, v.Title)
		case *galleries.Image:
			out = append(out, v.Title)
		}
	}
	return out
}

var fullOrder = []string{"post3", "book2", "post2", "book1", "image1", "post1"}

func TestPageMergesAllKindsNewestFirst(t *testing.T) {
	db := seed(t)

	page, err := New(20, 10).Build(context.Background(), db, Query{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, fullOrder, titles(page.Items))
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)

	for i := 1; i < len(page.Items); i++ {
		assert.True(t, before(page.Items[i-1].cursor(), page.Items[i].cursor()), "item %d out of order", i)
	}
}

func TestPageHasMoreIsExact(t *testing.T) {
	db := seed(t)
	agg := New(20, 2)

	page, err := agg.Build(context.Background(), db, Query{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"post3", "book2", "post2", "book1", "image1"}, titles(page.Items))
	assert.True(t, page.HasMore, "a third post remains")
	assert.NotEmpty(t, page.NextCursor)

	page, err = agg.Build(context.Background(), db, Query{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"post1"}, titles(page.Items))
	assert.False(t, page.HasMore)
}

func TestHugePageIsEmptyWithoutMore(t *testing.T) {
	db := seed(t)

	page, err := New(20, 10).Build(context.Background(), db, Query{Page: 922337203685477581})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
	assert.Equal(t, content.MaxPage, page.Page)
}

func TestPageTruncatesToCapacity(t *testing.T) {
	db := seed(t)

	page, err := New(4, 10).Build(context.Background(), db, Query{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, fullOrder[:4], titles(page.Items))
}

func TestCursorWalksWithoutGaps(t *testing.T) {
	db := seed(t)
	agg := New(2, 10)

	var seen []string
	var cur *Cursor
	for i := 0; i < 10; i++ {
		page, err := agg.Build(context.Background(), db, Query{Cursor: cur})
		require.NoError(t, err)
		seen = append(seen, titles(page.Items)...)
		if !page.HasMore {
			break
		}
		next, err := DecodeCursor(page.NextCursor)
		require.NoError(t, err)
		cur = &next
	}
	assert.Equal(t, fullOrder, seen)
}

func TestCursorFromPageMode(t *testing.T) {
	db := seed(t)
	agg := New(3, 10)

	first, err := agg.Build(context.Background(), db, Query{Page: 1})
	require.NoError(t, err)
	require.Equal(t, fullOrder[:3], titles(first.Items))

	cur, err := DecodeCursor(first.NextCursor)
	require.NoError(t, err)
	rest, err := agg.Build(context.Background(), db, Query{Cursor: &cur})
	require.NoError(t, err)
	assert.Equal(t, fullOrder[3:], titles(rest.Items))
	assert.False(t, rest.HasMore)
}

func TestItemJSONCarriesContentType(t *testing.T) {
	db := seed(t)
	page, err := New(20, 10).Build(context.Background(), db, Query{Page: 1})
	require.NoError(t, err)

	raw, err := json.Marshal(page)
	require.NoError(t, err)
	var decoded struct {
		Items   []map[string]interface{} `json:"items"`
		HasMore bool                     `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Items, 6)
	assert.Equal(t, "post", decoded.Items[0]["content_type"])
	assert.Equal(t, "post3", decoded.Items[0]["title"])
	assert.Equal(t, "book", decoded.Items[1]["content_type"])
	assert.Equal(t, "image", decoded.Items[4]["content_type"])
	assert.NotNil(t, decoded.Items[4]["items"])
}

func TestCursorEncoding(t *testing.T) {
	c := Cursor{CreatedAt: at(7).Add(123 * time.Nanosecond), Kind: content.KindBook, ID: 42}
	got, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, c.Kind, got.Kind)
	assert.Equal(t, c.ID, got.ID)

	for _, bad := range []string{"", "!!!", "bm90LWEtY3Vyc29y"} {
		_, err := DecodeCursor(bad)
		assert.Error(t, err, bad)
	}
}
