// Package pagination implements keyset cursors over (created_at, id), the
// ordering every veldt listing endpoint uses.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// Cursor marks the position after the last item of the previous page.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// PageResult is one page of a cursor-paginated listing.
type PageResult[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// cursorToken is the wire form of a cursor. Timestamps travel as microseconds
// since epoch, matching Postgres timestamp precision.
type cursorToken struct {
	ID string `json:"id"`
	TS int64  `json:"ts"`
}

// EncodeCursor returns an opaque token for the position after the given item.
// The encoding is URL-safe so tokens can ride in query strings unescaped.
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw, _ := json.Marshal(cursorToken{ID: lastID, TS: timestamp.UTC().UnixMicro()})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token decodes
// to a nil cursor, meaning the first page.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var ct cursorToken
	if err := json.Unmarshal(decoded, &ct); err != nil || ct.ID == "" {
		return nil, ErrInvalidCursor
	}

	return &Cursor{
		LastID:    ct.ID,
		Timestamp: time.UnixMicro(ct.TS).UTC(),
	}, nil
}

// NewPage trims an over-fetched row set down to limit and encodes the cursor
// for the following page. Callers query limit+1 rows so one extra row signals
// that more pages exist; key extracts the keyset columns from an item.
func NewPage[T any](items []T, limit int, key func(T) (string, time.Time)) *PageResult[T] {
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var next string
	if hasMore && len(items) > 0 {
		id, ts := key(items[len(items)-1])
		next = EncodeCursor(id, ts)
	}

	return &PageResult[T]{
		Items:      items,
		NextCursor: next,
		HasMore:    hasMore,
	}
}
