package pagination

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default limit, got %d", got)
	}
	if got := NormalizeLimit(-3); got != DefaultLimit {
		t.Fatalf("expected default limit for negatives, got %d", got)
	}
	if got := NormalizeLimit(MaxLimit + 50); got != MaxLimit {
		t.Fatalf("expected max limit cap, got %d", got)
	}
	if got := NormalizeLimit(7); got != 7 {
		t.Fatalf("expected passthrough, got %d", got)
	}
	if got := LimitWithBuffer(7); got != 8 {
		t.Fatalf("expected buffered limit 8, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		ID:        uuid.New(),
	}

	parsed, err := ParseCursor(EncodeCursor(cursor))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected cursor back")
	}
	if !parsed.CreatedAt.Equal(cursor.CreatedAt) || parsed.ID != cursor.ID {
		t.Fatalf("cursor mismatch: %+v vs %+v", parsed, cursor)
	}
}

func TestParseCursorEdges(t *testing.T) {
	if got, err := ParseCursor("  "); err != nil || got != nil {
		t.Fatalf("blank cursor should be nil/nil, got %v/%v", got, err)
	}
	if _, err := ParseCursor("not-base64!!"); !errors.Is(err, ErrInvalidCursor) {
		t.Fatal("expected encoding error")
	}
	if _, err := ParseCursor("aGVsbG8="); !errors.Is(err, ErrInvalidCursor) {
		t.Fatal("expected payload error")
	}
}
