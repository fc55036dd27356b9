package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()
	_, queries, cleanup, err := NewTestDB()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	h := NewHistory(queries)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var tick int
	h.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return h
}

func TestHistory_RecordAndRecent(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	_, err := h.Record(ctx, PublishEvent{ProductID: "B07XYZ1234", Platform: "pinterest", RemoteID: "pin-1", RemoteURL: "https://pin.it/1"})
	require.NoError(t, err)
	_, err = h.Record(ctx, PublishEvent{ProductID: "B07XYZ1234", Platform: "tiktok", Status: StatusPublished, Err: errors.New("401 unauthorized")})
	require.NoError(t, err)
	_, err = h.Record(ctx, PublishEvent{ProductID: "other", Platform: "youtube"})
	require.NoError(t, err)

	events, err := h.Recent(ctx, "B07XYZ1234", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "tiktok", events[0].Platform)
	assert.Equal(t, StatusFailed, events[0].Status)
	assert.Equal(t, "401 unauthorized", events[0].Error.String)
	assert.False(t, events[0].RemoteID.Valid)

	assert.Equal(t, "pinterest", events[1].Platform)
	assert.Equal(t, StatusPublished, events[1].Status)
	assert.Equal(t, "pin-1", events[1].RemoteID.String)
	assert.Equal(t, "https://pin.it/1", events[1].RemoteUrl.String)
	assert.False(t, events[1].Error.Valid)
	assert.True(t, events[0].CreatedAt.After(events[1].CreatedAt))
	assert.Len(t, events[1].ID, 26)
}

func TestHistory_RecentLimitAndEmptyProduct(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()
	product := gofakeit.LetterN(10)

	for range DefaultHistoryLimit + 3 {
		_, err := h.Record(ctx, PublishEvent{ProductID: product, Platform: "instagram_feed", Status: StatusSkipped})
		require.NoError(t, err)
	}

	events, err := h.Recent(ctx, product, 0)
	require.NoError(t, err)
	assert.Len(t, events, DefaultHistoryLimit)

	events, err = h.Recent(ctx, product, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = h.Recent(ctx, "", 5)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHistory_LatestAndSummary(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	for _, ev := range []PublishEvent{
		{ProductID: "a", Platform: "pinterest"},
		{ProductID: "a", Platform: "pinterest", Err: errors.New("boom")},
		{ProductID: "a", Platform: "website"},
		{ProductID: "b", Platform: "tiktok"},
	} {
		_, err := h.Record(ctx, ev)
		require.NoError(t, err)
	}

	latest, err := h.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "b", latest[0].ProductID)
	assert.Equal(t, "website", latest[1].Platform)

	summary, err := h.Summary(ctx, "a")
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "pinterest", summary[0].Platform)
	assert.Equal(t, StatusFailed, summary[0].Status)
	assert.Equal(t, int64(1), summary[0].Total)
	assert.Equal(t, StatusPublished, summary[1].Status)
	assert.Equal(t, "website", summary[2].Platform)
}

func TestNew_FileDatabase(t *testing.T) {
	path := t.TempDir() + "/nested/history.db"
	s, err := New(path)
	require.NoError(t, err)
	defer s.Close()

	h := NewHistory(s.Queries)
	_, err = h.Record(context.Background(), PublishEvent{ProductID: "p", Platform: "youtube", RemoteID: "vid"})
	require.NoError(t, err)

	events, err := h.Recent(context.Background(), "p", 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "vid", events[0].RemoteID.String)
}
