package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kaymio/productcast/storage/db"
	"github.com/oklog/ulid/v2"
)

const (
	StatusPublished = "published"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// DefaultHistoryLimit is how many events the home page shows.
const DefaultHistoryLimit = 10

// PublishEvent is one publish attempt for a product on a platform.
type PublishEvent struct {
	ProductID string
	Platform  string
	Status    string
	RemoteID  string
	RemoteURL string
	Err       error
}

// History appends and lists publish attempts.
type History struct {
	queries *db.Queries
	now     func() time.Time
}

func NewHistory(queries *db.Queries) *History {
	return &History{queries: queries, now: time.Now}
}

// Record stores ev. A non-nil Err forces the failed status.
func (h *History) Record(ctx context.Context, ev PublishEvent) (db.PublishEvent, error) {
	status := ev.Status
	var errText string
	if ev.Err != nil {
		status = StatusFailed
		errText = ev.Err.Error()
	}
	if status == "" {
		status = StatusPublished
	}

	row, err := h.queries.RecordPublishEvent(ctx, db.RecordPublishEventParams{
		ID:        ulid.Make().String(),
		ProductID: ev.ProductID,
		Platform:  ev.Platform,
		Status:    status,
		RemoteID:  nullString(ev.RemoteID),
		RemoteUrl: nullString(ev.RemoteURL),
		Error:     nullString(errText),
		CreatedAt: h.now().UTC(),
	})
	if err != nil {
		return db.PublishEvent{}, fmt.Errorf("record publish event: %w", err)
	}
	return row, nil
}

// Recent returns the newest events for productID, newest first.
func (h *History) Recent(ctx context.Context, productID string, limit int) ([]db.PublishEvent, error) {
	if productID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	events, err := h.queries.ListPublishEventsByProduct(ctx, db.ListPublishEventsByProductParams{
		ProductID: productID,
		Limit:     int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list publish events: %w", err)
	}
	return events, nil
}

// Latest returns the newest events across all products.
func (h *History) Latest(ctx context.Context, limit int) ([]db.PublishEvent, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	events, err := h.queries.ListRecentPublishEvents(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent publish events: %w", err)
	}
	return events, nil
}

// Summary counts events per platform and status for productID.
func (h *History) Summary(ctx context.Context, productID string) ([]db.CountPublishEventsByProductRow, error) {
	rows, err := h.queries.CountPublishEventsByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("count publish events: %w", err)
	}
	return rows, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
