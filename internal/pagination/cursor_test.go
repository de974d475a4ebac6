package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 30, 12, 0, 0, 123456000, time.UTC)

	token := EncodeCursor("doc-42", ts)
	require.NotEmpty(t, token)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "doc-42", cursor.LastID)
	assert.True(t, cursor.Timestamp.Equal(ts))
}

func TestCursorNormalizesZone(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2026, 8, 30, 14, 0, 0, 0, loc)

	cursor, err := DecodeCursor(EncodeCursor("doc-1", ts))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cursor.Timestamp.Location())
	assert.True(t, cursor.Timestamp.Equal(ts))
}

func TestEncodeCursorEmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursorEmptyToken(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeCursorInvalid(t *testing.T) {
	cases := map[string]string{
		"not base64":    "%%%",
		"not json":      base64.RawURLEncoding.EncodeToString([]byte("doc-1|2026")),
		"missing id":    base64.RawURLEncoding.EncodeToString([]byte(`{"ts":123}`)),
		"empty payload": base64.RawURLEncoding.EncodeToString([]byte(`{}`)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(token)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

type pageItem struct {
	id string
	at time.Time
}

func itemKey(it pageItem) (string, time.Time) {
	return it.id, it.at
}

func TestNewPageTrimsOverfetch(t *testing.T) {
	now := time.Now().UTC()
	items := []pageItem{
		{id: "a", at: now},
		{id: "b", at: now.Add(-time.Minute)},
		{id: "c", at: now.Add(-2 * time.Minute)},
	}

	page := NewPage(items, 2, itemKey)

	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)

	cursor, err := DecodeCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, "b", cursor.LastID)
}

func TestNewPageLastPage(t *testing.T) {
	page := NewPage([]pageItem{{id: "a", at: time.Now()}}, 2, itemKey)

	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
}

func TestNewPageEmpty(t *testing.T) {
	page := NewPage(nil, 2, itemKey)

	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
}
