package storage

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidCursor indicates a pagination token that could not be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks the last row of a page. Listings ordered by id alone leave CreatedAt zero.
type Cursor struct {
	CreatedAt time.Time `json:"t,omitzero"`
	ID        int64     `json:"id"`
}

// PageRequest selects rows strictly after After, at most Limit of them.
type PageRequest struct {
	Limit int
	After *Cursor
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by Cursor.Encode. An empty token yields nil.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID <= 0 {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// Paginate trims a result fetched with limit+1 rows down to limit and returns the
// token for the next page, or "" when items was the last page.
func Paginate[T any](items []T, limit int, cursorOf func(T) Cursor) ([]T, string) {
	if limit <= 0 || len(items) <= limit {
		return items, ""
	}
	items = items[:limit]
	return items, cursorOf(items[limit-1]).Encode()
}
