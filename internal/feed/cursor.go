package feed

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ninikarlina/gallery-davinci/internal/content"
)

// Cursor is the position of the last item a client has seen.
type Cursor struct {
	CreatedAt time.Time
	Kind      content.Kind
	ID        uint
}

func (c Cursor) Encode() string {
	raw := fmt.Sprintf("%d.%s.%d", c.CreatedAt.UnixNano(), c.Kind, c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor")
	}
	parts := strings.Split(string(raw), ".")
	if len(parts) != 3 {
		return Cursor{}, fmt.Errorf("malformed cursor")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor")
	}
	kind, err := content.ParseKind(parts[1])
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor")
	}
	id, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor")
	}
	return Cursor{CreatedAt: time.Unix(0, nanos).UTC(), Kind: kind, ID: uint(id)}, nil
}

// before reports whether a sorts ahead of b in feed order: newer first,
// then post, book, image, then higher id.
func before(a, b Cursor) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if a.Kind != b.Kind {
		return a.Kind.Rank() < b.Kind.Rank()
	}
	return a.ID > b.ID
}

// after selects the rows of kind that come strictly after c in feed order.
func (c Cursor) after(kind content.Kind) (string, []interface{}) {
	switch {
	case kind.Rank() > c.Kind.Rank():
		return "created_at <= ?", []interface{}{c.CreatedAt}
	case kind == c.Kind:
		return "created_at < ? OR (created_at = ? AND id < ?)", []interface{}{c.CreatedAt, c.CreatedAt, c.ID}
	default:
		return "created_at < ?", []interface{}{c.CreatedAt}
	}
}
