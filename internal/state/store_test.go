package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "Data", "app_state.json"))
	require.NoError(t, err)
	return store
}

func readRaw(t *testing.T, store *Store) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestLoad_InvalidDocuments(t *testing.T) {
	tests := []struct {
		name    string
		content string
		backup  bool
	}{
		{name: "empty_file", content: ""},
		{name: "whitespace", content: "  \n"},
		{name: "not_json", content: "{not json", backup: true},
		{name: "array", content: "[1,2,3]", backup: true},
		{name: "null", content: "null", backup: true},
		{name: "products_not_object", content: `{"products": [1], "last_product_id": "x"}`, backup: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.content), 0644))

			st := store.Load(context.Background())
			assert.Empty(t, st.Products)
			assert.NotNil(t, st.Products)
			assert.Empty(t, st.LastProductID)

			backups, err := filepath.Glob(store.Path() + ".corrupt-*")
			require.NoError(t, err)
			if tt.backup {
				assert.Len(t, backups, 1)
			} else {
				assert.Empty(t, backups)
			}
		})
	}
}

func TestLoad_CorruptFileBackedUpOnce(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0644))

	for i := 0; i < 3; i++ {
		store.Load(context.Background())
	}
	backups, err := filepath.Glob(store.Path() + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, backups, 1)
	raw, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(raw))

	// different garbage gets its own copy, even within the same second
	require.NoError(t, os.WriteFile(store.Path(), []byte("[1,2]"), 0644))
	store.Load(context.Background())
	backups, err = filepath.Glob(store.Path() + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, backups, 2)

	// the next write replaces the corrupt document
	require.NoError(t, store.Upsert(context.Background(), "SKU-1", Update{FormValues: map[string]string{"title": "Lamp"}}))
	st := store.Load(context.Background())
	assert.Contains(t, st.Products, "SKU-1")
}

func TestLoad_MissingFile(t *testing.T) {
	store := newTestStore(t)

	st := store.Load(context.Background())
	assert.Empty(t, st.Products)
	assert.Empty(t, st.LastProductID)
}

func TestLoad_DefaultsMissingKeys(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"products": {"SKU-1": {"preview": {"title": "Lamp"}}}}`), 0644))

	st := store.Load(context.Background())
	require.Contains(t, st.Products, "SKU-1")
	entry := st.Products["SKU-1"]
	assert.NotNil(t, entry.Platforms)
	assert.NotNil(t, entry.Assets)
	assert.NotNil(t, entry.Results)
	assert.Equal(t, "Lamp", entry.Preview.String("title"))
	assert.Empty(t, st.LastProductID)
}

func TestLoad_ClearsDanglingLastProduct(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"products": {}, "last_product_id": "gone"}`), 0644))

	st := store.Load(context.Background())
	assert.Empty(t, st.LastProductID)
}

func TestUpsert_EmptyIDIsNoop(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(context.Background(), "", Update{Assets: map[string]string{"a": "b"}}))

	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestUpsert_CreatesEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := gofakeit.UUID()
	title := gofakeit.ProductName()

	err := store.Upsert(ctx, id, Update{
		FormValues: map[string]string{"title": title, "sku_or_url": id},
		Preview:    Preview{"title": title, "tags": []string{"a", "b"}},
		Assets:     map[string]string{AssetOriginalImage: "originals/x.png"},
		Platforms:  map[string]Snapshot{PlatformPinterest: {"status": "pending"}},
	})
	require.NoError(t, err)

	gotID, entry, ok := store.LastEntry(ctx)
	require.True(t, ok)
	assert.Equal(t, id, gotID)
	assert.Equal(t, title, entry.FormValues["title"])
	assert.Equal(t, []string{"a", "b"}, entry.Preview.Strings("tags"))
	assert.Equal(t, "originals/x.png", entry.Assets[AssetOriginalImage])
	assert.Equal(t, "pending", entry.PlatformStatus(PlatformPinterest))
	assert.NotNil(t, entry.Results)
}

func TestUpsert_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	update := Update{
		FormValues: map[string]string{"title": "Desk Lamp"},
		Preview:    Preview{"title": "Desk Lamp", "price": 19.5},
		Assets:     map[string]string{AssetGeneratedImage: "generated/a.png"},
		Platforms:  map[string]Snapshot{PlatformPinterest: {"status": "published", "pin_id": "123"}},
		Results:    map[string]Result{PlatformPinterest: {"id": "123"}},
	}

	require.NoError(t, store.Upsert(ctx, "SKU-1", update))
	first, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	require.NoError(t, store.Upsert(ctx, "SKU-1", update))
	second, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
}

func TestUpsert_PlatformSnapshotsMerge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "SKU-1", Update{
		Platforms: map[string]Snapshot{PlatformTikTok: {"status": "pending", "video_path": "a"}},
	}))
	require.NoError(t, store.Upsert(ctx, "SKU-1", Update{
		Platforms: map[string]Snapshot{PlatformTikTok: {"status": "published"}},
	}))

	entry, ok := store.Entry(ctx, "SKU-1")
	require.True(t, ok)
	assert.Equal(t, Snapshot{"status": "published", "video_path": "a"}, entry.Platforms[PlatformTikTok])
}

func TestUpsert_AssetsAndResultsMerge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "SKU-1", Update{
		Assets:  map[string]string{AssetOriginalImage: "originals/a.png"},
		Results: map[string]Result{PlatformPinterest: {"id": "1"}},
	}))
	require.NoError(t, store.Upsert(ctx, "SKU-1", Update{
		Assets:  map[string]string{AssetGeneratedImage: "generated/b.png"},
		Results: map[string]Result{PlatformWebsite: {"product_url": "https://shop.example/p/1"}},
	}))

	entry, ok := store.Entry(ctx, "SKU-1")
	require.True(t, ok)
	assert.Equal(t, "originals/a.png", entry.Assets[AssetOriginalImage])
	assert.Equal(t, "generated/b.png", entry.Assets[AssetGeneratedImage])
	assert.Len(t, entry.Results, 2)
	assert.Equal(t, "https://shop.example/p/1", store.WebsiteProductURL(ctx, "SKU-1"))
}

func TestUpsert_PreviewReplacedAndBinaryStripped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "SKU-1", Update{Preview: Preview{"title": "Old", "description": "kept?"}}))
	require.NoError(t, store.Upsert(ctx, "SKU-1", Update{Preview: Preview{
		"title":                "New",
		"image_data":           strings.Repeat("A", 64),
		"instagram_image_data": strings.Repeat("B", 64),
	}}))

	entry, ok := store.Entry(ctx, "SKU-1")
	require.True(t, ok)
	assert.Equal(t, "New", entry.Preview.String("title"))
	assert.NotContains(t, entry.Preview, "description")
	assert.NotContains(t, entry.Preview, "image_data")
	assert.NotContains(t, entry.Preview, "instagram_image_data")

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "image_data")
}

func TestUpsert_DoesNotMutateCallerPreview(t *testing.T) {
	store := newTestStore(t)
	preview := Preview{"title": "Lamp", "image_data": "abc"}

	require.NoError(t, store.Upsert(context.Background(), "SKU-1", Update{Preview: preview}))
	assert.Equal(t, "abc", preview["image_data"])
}

func TestResetPlatform_UnknownPlatform(t *testing.T) {
	store := newTestStore(t)

	err := store.ResetPlatform(context.Background(), "SKU-1", "myspace")
	assert.ErrorIs(t, err, ErrUnknownPlatform)

	err = store.ResetPlatform(context.Background(), "SKU-1", PlatformWebsite)
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestResetPlatform_MissingProductIsNoop(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.ResetPlatform(context.Background(), "nope", PlatformYouTube))
}

func TestResetPlatform_Pinterest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "SKU-1", Update{Preview: Preview{"title": "Lamp"}}))
	require.NoError(t, store.Upsert(ctx, "SKU-2", Update{Preview: Preview{"title": "Chair"}}))

	require.NoError(t, store.ResetPlatform(ctx, "SKU-2", "Pinterest"))

	st := store.Load(ctx)
	assert.NotContains(t, st.Products, "SKU-2")
	assert.Contains(t, st.Products, "SKU-1")
	assert.Empty(t, st.LastProductID)

	doc := readRaw(t, store)
	assert.Equal(t, "", doc["last_product_id"])
}

func TestResetPlatform_PinterestKeepsOtherLastProduct(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "SKU-1", Update{}))
	require.NoError(t, store.Upsert(ctx, "SKU-2", Update{}))

	require.NoError(t, store.ResetPlatform(ctx, "SKU-1", PlatformPinterest))

	assert.Equal(t, "SKU-2", store.Load(ctx).LastProductID)
}

func TestResetPlatform_Instagram(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "SKU-1", Update{
		Preview: Preview{
			"title":                      "Lamp",
			"instagram_caption":          "Glow up",
			"instagram_hashtags":         []string{"lamp"},
			"instagram_hashtags_payload": `["lamp"]`,
			"instagram_image_path":       "generated/ig.png",
			"instagram_image_url":        "/media/generated/ig.png",
			"instagram_image_public_url": "https://example.com/media/generated/ig.png",
		},
		Assets: map[string]string{
			AssetOriginalImage:  "originals/a.png",
			AssetInstagramImage: "generated/ig.png",
		},
		Platforms: map[string]Snapshot{
			PlatformInstagramFeed:  {"status": "published"},
			PlatformInstagramStory: {"status": "pending"},
			PlatformPinterest:      {"status": "published"},
		},
	}))

	require.NoError(t, store.ResetPlatform(ctx, "SKU-1", PlatformInstagram))

	entry, ok := store.Entry(ctx, "SKU-1")
	require.True(t, ok)
	assert.Equal(t, "originals/a.png", entry.Assets[AssetOriginalImage])
	assert.NotContains(t, entry.Assets, AssetInstagramImage)
	assert.NotContains(t, entry.Platforms, PlatformInstagramFeed)
	assert.NotContains(t, entry.Platforms, PlatformInstagramStory)
	assert.Equal(t, "published", entry.PlatformStatus(PlatformPinterest))
	assert.Equal(t, "Lamp", entry.Preview.String("title"))
	for key := range entry.Preview {
		assert.False(t, strings.HasPrefix(key, "instagram_"), "unexpected preview key %s", key)
	}
}

func TestResetPlatform_VideoPlatforms(t *testing.T) {
	for _, platform := range []string{PlatformYouTube, PlatformTikTok} {
		t.Run(platform, func(t *testing.T) {
			store := newTestStore(t)
			ctx := context.Background()
			require.NoError(t, store.Upsert(ctx, "SKU-1", Update{
				Preview: Preview{
					"title":                "Lamp",
					"youtube_title":        "Lamp Short",
					"youtube_keywords":     []string{"lamp"},
					"tiktok_caption":       "Lamp vibes",
					"tiktok_hashtags":      []string{"lamp"},
					"generated_video_path": "videos/v.mp4",
				},
				Assets:    map[string]string{AssetGeneratedVideo: "videos/v.mp4"},
				Platforms: map[string]Snapshot{platform: {"status": "published"}},
				Results:   map[string]Result{platform: {"id": "remote"}},
			}))

			require.NoError(t, store.ResetPlatform(ctx, "SKU-1", platform))

			entry, ok := store.Entry(ctx, "SKU-1")
			require.True(t, ok)
			assert.NotContains(t, entry.Platforms, platform)
			assert.NotContains(t, entry.Results, platform)
			assert.Equal(t, "videos/v.mp4", entry.Assets[AssetGeneratedVideo])
			assert.Equal(t, "videos/v.mp4", entry.Preview.String("generated_video_path"))
			for key := range entry.Preview {
				assert.False(t, strings.HasPrefix(key, platform+"_"), "unexpected preview key %s", key)
			}
		})
	}
}

func TestSave_ThenLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	st := emptyState()
	entry := newEntry()
	entry.Preview = Preview{"title": "Lamp"}
	st.Products["SKU-1"] = entry
	st.LastProductID = "SKU-1"

	require.NoError(t, store.Save(ctx, st))

	loaded := store.Load(ctx)
	assert.Equal(t, "SKU-1", loaded.LastProductID)
	assert.Equal(t, "Lamp", loaded.Products["SKU-1"].Preview.String("title"))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(store.Path()), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestUpsert_ConcurrentWritersKeepEveryProduct(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = gofakeit.Regex(`SKU-[A-Z0-9]{8}`)
	}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, store.Upsert(ctx, id, Update{Assets: map[string]string{AssetOriginalImage: id}}))
		}(id)
	}
	wg.Wait()

	st := store.Load(ctx)
	for _, id := range ids {
		assert.Contains(t, st.Products, id)
	}
}

func TestNormalizeProductID(t *testing.T) {
	assert.Equal(t, "B00TEST123", NormalizeProductID("  B00TEST123 \n"))
	assert.Equal(t, "", NormalizeProductID("   "))
}

func TestIsResettable(t *testing.T) {
	assert.True(t, IsResettable("TikTok"))
	assert.False(t, IsResettable(PlatformWebsite))
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		assert.True(t, IsTruthy(v), v)
	}
	for _, v := range []string{"", "0", "false", "off", "y"} {
		assert.False(t, IsTruthy(v), v)
	}
}
