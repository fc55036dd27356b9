package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kaymio/productcast/internal/creative"
	"github.com/kaymio/productcast/internal/generation"
	"github.com/kaymio/productcast/internal/importer"
	"github.com/kaymio/productcast/internal/media"
	"github.com/kaymio/productcast/internal/platforms/canopy"
	"github.com/kaymio/productcast/internal/platforms/instagram"
	"github.com/kaymio/productcast/internal/platforms/pinterest"
	"github.com/kaymio/productcast/internal/platforms/tiktok"
	"github.com/kaymio/productcast/internal/platforms/woocommerce"
	"github.com/kaymio/productcast/internal/platforms/youtube"
	"github.com/kaymio/productcast/internal/state"
	"github.com/kaymio/productcast/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://shop.test"

type fakeCreative struct{}

func (fakeCreative) Name() string { return "fake" }

func (fakeCreative) EditImage(ctx context.Context, req creative.ImageEdit) ([]byte, error) {
	return req.Image, nil
}

func (fakeCreative) GenerateVideo(ctx context.Context, req creative.VideoRequest) ([]byte, error) {
	return []byte("fake mp4 data"), nil
}

type fakePinterest struct {
	mu     sync.Mutex
	pins   []pinterest.Pin
	result *pinterest.PinResult
	err    error
}

func (f *fakePinterest) CreatePin(ctx context.Context, pin pinterest.Pin) (*pinterest.PinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pins = append(f.pins, pin)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &pinterest.PinResult{Status: pinterest.StatusCreated, ID: "pin-1", URL: "https://www.pinterest.com/pin/pin-1/"}, nil
}

type fakeInstagram struct {
	posts   []instagram.Post
	stories []instagram.Post
	err     error
}

func (f *fakeInstagram) PublishPost(ctx context.Context, post instagram.Post) (*instagram.PublishResult, error) {
	f.posts = append(f.posts, post)
	if f.err != nil {
		return nil, f.err
	}
	return &instagram.PublishResult{ID: "ig-post-1", CreationID: "container-1", ImageURL: post.ImageURL}, nil
}

func (f *fakeInstagram) PublishStory(ctx context.Context, post instagram.Post) (*instagram.PublishResult, error) {
	f.stories = append(f.stories, post)
	if f.err != nil {
		return nil, f.err
	}
	return &instagram.PublishResult{ID: "ig-story-1", CreationID: "container-2", ImageURL: post.ImageURL}, nil
}

type tiktokCall struct {
	video   []byte
	caption string
	privacy string
}

type fakeTikTok struct {
	calls []tiktokCall
	err   error
}

func (f *fakeTikTok) PublishVideo(ctx context.Context, video []byte, caption, privacy string) (*tiktok.PublishResult, error) {
	f.calls = append(f.calls, tiktokCall{video: video, caption: caption, privacy: privacy})
	if f.err != nil {
		return nil, f.err
	}
	return &tiktok.PublishResult{PublishID: "tt-1"}, nil
}

type fakeYouTube struct {
	shorts []youtube.Short
	err    error
}

func (f *fakeYouTube) UploadShort(ctx context.Context, short youtube.Short) (*youtube.ShortResult, error) {
	f.shorts = append(f.shorts, short)
	if f.err != nil {
		return nil, f.err
	}
	return &youtube.ShortResult{Status: "uploaded", VideoID: "yt-1", URL: "https://youtube.com/watch?v=yt-1"}, nil
}

type fakeStorefront struct {
	products   []woocommerce.ExternalProduct
	uploads    []string
	productURL string
	err        error
	uploadErr  error
	categoryID int
}

func (f *fakeStorefront) CreateExternalProduct(ctx context.Context, p woocommerce.ExternalProduct) (string, error) {
	f.products = append(f.products, p)
	if f.err != nil {
		return "", f.err
	}
	return f.productURL, nil
}

func (f *fakeStorefront) UploadMedia(ctx context.Context, path string) (string, error) {
	f.uploads = append(f.uploads, path)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "https://kaymio.test/wp-content/uploads/" + filepath.Base(path), nil
}

func (f *fakeStorefront) NearestCategory(ctx context.Context, name string) (int, bool) {
	return f.categoryID, f.categoryID != 0
}

type fakeAmazon struct {
	product *canopy.Product
	err     error
}

func (f *fakeAmazon) LookupProduct(ctx context.Context, asin, country string) (*canopy.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.product, nil
}

type fakeImages struct {
	images []importer.DownloadedImage
	err    error
}

func (f *fakeImages) DownloadImages(ctx context.Context, urls []string, limit int) ([]importer.DownloadedImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.images, nil
}

type workflowFixture struct {
	handler    *WorkflowHandler
	state      *state.Store
	media      *media.Store
	history    *storage.History
	pinterest  *fakePinterest
	instagram  *fakeInstagram
	tiktok     *fakeTikTok
	youtube    *fakeYouTube
	storefront *fakeStorefront
	amazon     *fakeAmazon
	images     *fakeImages
}

func setupWorkflow(t *testing.T) *workflowFixture {
	t.Helper()
	dir := t.TempDir()

	mediaStore, err := media.New(filepath.Join(dir, "media"))
	require.NoError(t, err)
	stateStore, err := state.NewStore(filepath.Join(dir, "state", "app_state.json"))
	require.NoError(t, err)

	_, queries, cleanup := NewTestDB()
	t.Cleanup(cleanup)

	f := &workflowFixture{
		state:      stateStore,
		media:      mediaStore,
		history:    storage.NewHistory(queries),
		pinterest:  &fakePinterest{},
		instagram:  &fakeInstagram{},
		tiktok:     &fakeTikTok{},
		youtube:    &fakeYouTube{},
		storefront: &fakeStorefront{productURL: "https://kaymio.test/product/widget/"},
		amazon:     &fakeAmazon{},
		images:     &fakeImages{},
	}
	f.handler = NewWorkflowHandler(WorkflowDeps{
		State:         stateStore,
		Media:         mediaStore,
		Generator:     generation.New(nil, fakeCreative{}, mediaStore),
		History:       f.history,
		Pinterest:     f.pinterest,
		Instagram:     f.instagram,
		TikTok:        f.tiktok,
		YouTube:       f.youtube,
		Storefront:    f.storefront,
		Amazon:        f.amazon,
		Images:        f.images,
		BaseURL:       testBaseURL,
		AmazonCountry: "US",
	})
	return f
}

// pngBytes draws a small image so the resize steps have something to decode.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// storeGenerated saves an image as if the pin generator had produced it.
func (f *workflowFixture) storeGenerated(t *testing.T) string {
	t.Helper()
	path, err := f.media.SaveGenerated(pngBytes(t, 20, 30))
	require.NoError(t, err)
	return path
}

func (f *workflowFixture) entry(t *testing.T, id string) *state.Entry {
	t.Helper()
	entry, ok := f.state.Entry(context.Background(), id)
	require.True(t, ok, "expected state entry for %s", id)
	return entry
}

func TestHandleHome_RendersLastProduct(t *testing.T) {
	f := setupWorkflow(t)
	ctx := context.Background()
	require.NoError(t, f.state.Upsert(ctx, "SKU-42", state.Update{
		FormValues: map[string]string{"sku_or_url": "SKU-42", "title": "Desk Lamp"},
	}))

	c, rec := NewTestContext("GET", "/", nil)
	require.NoError(t, f.handler.HandleHome(c))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Desk Lamp")
}

func TestHandleHome_EmptyState(t *testing.T) {
	f := setupWorkflow(t)

	c, rec := NewTestContext("GET", "/", nil)
	require.NoError(t, f.handler.HandleHome(c))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "sku_or_url")
}

func TestRecord_WritesHistory(t *testing.T) {
	f := setupWorkflow(t)
	ctx := context.Background()

	f.handler.record(ctx, storage.PublishEvent{ProductID: "SKU-1", Platform: state.PlatformTikTok, Status: storage.StatusPublished, RemoteID: "tt-9"})
	f.handler.record(ctx, storage.PublishEvent{Platform: state.PlatformTikTok, Status: storage.StatusPublished})

	events, err := f.history.Latest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1, "events without a product id are only logged")
	assert.Equal(t, "SKU-1", events[0].ProductID)
	assert.Equal(t, "tt-9", events[0].RemoteID.String)
}
