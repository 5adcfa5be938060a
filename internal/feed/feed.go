// Package feed merges posts, books and galleries into one timeline.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/ninikarlina/gallery-davinci/internal/books"
	"github.com/ninikarlina/gallery-davinci/internal/content"
	"github.com/ninikarlina/gallery-davinci/internal/galleries"
	"github.com/ninikarlina/gallery-davinci/internal/metrics"
	"github.com/ninikarlina/gallery-davinci/internal/posts"
)

// Item is one timeline entry. It renders as the underlying record with an
// extra content_type field.
type Item struct {
	Kind      content.Kind
	ID        uint
	CreatedAt time.Time
	Data      interface{}
}

func (it Item) cursor() Cursor {
	return Cursor{CreatedAt: it.CreatedAt, Kind: it.Kind, ID: it.ID}
}

func (it Item) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(it.Data)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("feed item %s:%d is not an object", it.Kind, it.ID)
	}
	head := []byte(fmt.Sprintf(`{"content_type":%q`, it.Kind))
	if len(body) == 2 {
		return append(head, '}'), nil
	}
	return append(append(head, ','), body[1:]...), nil
}

type Page struct {
	Items      []Item `json:"items"`
	Page       int    `json:"page,omitempty"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type Query struct {
	Page    int
	PerType int
	Cursor  *Cursor
	Viewer  uint
}

type Aggregator struct {
	Capacity int
	PerType  int
}

func New(capacity, perType int) *Aggregator {
	return &Aggregator{Capacity: capacity, PerType: perType}
}

// fetcher loads the rows selected by db as feed items.
type fetcher func(db *gorm.DB, viewer uint) ([]Item, error)

var sources = map[content.Kind]struct {
	model interface{}
	fetch fetcher
}{
	content.KindPost:  {&posts.Post{}, fetchPosts},
	content.KindBook:  {&books.Book{}, fetchBooks},
	content.KindImage: {&galleries.Image{}, fetchImages},
}

// Build assembles one feed page. Without a cursor it serves page q.Page,
// taking q.PerType rows of each kind; with one it continues after it.
func (a *Aggregator) Build(ctx context.Context, db *gorm.DB, q Query) (*Page, error) {
	start := time.Now()
	mode := "page"
	if q.Cursor != nil {
		mode = "cursor"
	}
	defer func() {
		metrics.FeedDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	if q.PerType <= 0 {
		q.PerType = a.PerType
	}
	if q.PerType > content.MaxLimit {
		q.PerType = content.MaxLimit
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Page > content.MaxPage {
		q.Page = content.MaxPage
	}
	if q.Cursor != nil {
		return a.afterCursor(ctx, db, q)
	}
	return a.byPage(ctx, db, q)
}

func (a *Aggregator) byPage(ctx context.Context, db *gorm.DB, q Query) (*Page, error) {
	results := make([][]Item, len(content.Kinds))
	totals := make([]int64, len(content.Kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range content.Kinds {
		i, kind, src := i, kind, sources[kind]
		g.Go(func() error {
			tx := db.WithContext(gctx)
			if err := tx.Model(src.model).Count(&totals[i]).Error; err != nil {
				return fmt.Errorf("count %ss: %w", kind, err)
			}
			items, err := src.fetch(tx.Scopes(content.Newest, content.Paginate(q.Page, q.PerType)), q.Viewer)
			if err != nil {
				return fmt.Errorf("fetch %ss: %w", kind, err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items, truncated := merge(results, a.Capacity)
	p := &Page{Page: q.Page, Items: items, HasMore: truncated}
	seen := int64(q.Page) * int64(q.PerType)
	for _, total := range totals {
		if total > seen {
			p.HasMore = true
		}
	}
	if p.HasMore && len(p.Items) > 0 {
		p.NextCursor = p.Items[len(p.Items)-1].cursor().Encode()
	}
	return p, nil
}

func (a *Aggregator) afterCursor(ctx context.Context, db *gorm.DB, q Query) (*Page, error) {
	results := make([][]Item, len(content.Kinds))
	cur := *q.Cursor

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range content.Kinds {
		i, kind, src := i, kind, sources[kind]
		g.Go(func() error {
			cond, args := cur.after(kind)
			tx := db.WithContext(gctx).Where(cond, args...).Scopes(content.Newest).Limit(a.Capacity + 1)
			items, err := src.fetch(tx, q.Viewer)
			if err != nil {
				return fmt.Errorf("fetch %ss: %w", kind, err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items, truncated := merge(results, a.Capacity)
	p := &Page{Items: items, HasMore: truncated}
	if truncated {
		p.NextCursor = items[len(items)-1].cursor().Encode()
	}
	return p, nil
}

// merge concatenates per-kind results, sorts them into feed order and keeps
// at most limit items, reporting whether any were cut.
func merge(results [][]Item, limit int) ([]Item, bool) {
	all := []Item{}
	for _, r := range results {
		all = append(all, r...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return before(all[i].cursor(), all[j].cursor())
	})
	if len(all) > limit {
		return all[:limit], true
	}
	return all, false
}

func fetchPosts(db *gorm.DB, viewer uint) ([]Item, error) {
	var list []posts.Post
	if err := db.Scopes(posts.WithRelations).Find(&list).Error; err != nil {
		return nil, err
	}
	posts.MarkLiked(list, viewer)
	items := make([]Item, len(list))
	for i := range list {
		items[i] = Item{Kind: content.KindPost, ID: list[i].ID, CreatedAt: list[i].CreatedAt, Data: &list[i]}
	}
	return items, nil
}

func fetchBooks(db *gorm.DB, viewer uint) ([]Item, error) {
	var list []books.Book
	if err := db.Scopes(books.WithRelations).Find(&list).Error; err != nil {
		return nil, err
	}
	books.MarkLiked(list, viewer)
	items := make([]Item, len(list))
	for i := range list {
		items[i] = Item{Kind: content.KindBook, ID: list[i].ID, CreatedAt: list[i].CreatedAt, Data: &list[i]}
	}
	return items, nil
}

func fetchImages(db *gorm.DB, viewer uint) ([]Item, error) {
	var list []galleries.Image
	if err := db.Scopes(galleries.WithRelations).Find(&list).Error; err != nil {
		return nil, err
	}
	galleries.MarkLiked(list, viewer)
	items := make([]Item, len(list))
	for i := range list {
		items[i] = Item{Kind: content.KindImage, ID: list[i].ID, CreatedAt: list[i].CreatedAt, Data: &list[i]}
	}
	return items, nil
}
