package handlers

import (
	"context"
	"log/slog"

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
	"github.com/kaymio/productcast/storage/db"
	"github.com/kaymio/productcast/views/home"
	"github.com/labstack/echo/v4"
)

type PinPublisher interface {
	CreatePin(ctx context.Context, pin pinterest.Pin) (*pinterest.PinResult, error)
}

type InstagramPublisher interface {
	PublishPost(ctx context.Context, post instagram.Post) (*instagram.PublishResult, error)
	PublishStory(ctx context.Context, post instagram.Post) (*instagram.PublishResult, error)
}

type TikTokPublisher interface {
	PublishVideo(ctx context.Context, video []byte, caption, privacy string) (*tiktok.PublishResult, error)
}

type ShortUploader interface {
	UploadShort(ctx context.Context, short youtube.Short) (*youtube.ShortResult, error)
}

// Storefront is the WooCommerce surface used by publish-website.
type Storefront interface {
	CreateExternalProduct(ctx context.Context, p woocommerce.ExternalProduct) (string, error)
	UploadMedia(ctx context.Context, path string) (string, error)
	NearestCategory(ctx context.Context, name string) (int, bool)
}

type ProductLookup interface {
	LookupProduct(ctx context.Context, asin, country string) (*canopy.Product, error)
}

type ImageFetcher interface {
	DownloadImages(ctx context.Context, urls []string, limit int) ([]importer.DownloadedImage, error)
}

// WorkflowDeps are the collaborators of the workflow routes. History may be
// nil, in which case publish attempts are only logged.
type WorkflowDeps struct {
	State     *state.Store
	Media     *media.Store
	Generator *generation.Orchestrator
	History   *storage.History

	Pinterest  PinPublisher
	Instagram  InstagramPublisher
	TikTok     TikTokPublisher
	YouTube    ShortUploader
	Storefront Storefront
	Amazon     ProductLookup
	Images     ImageFetcher

	// BaseURL is the externally reachable origin used for public media
	// links. Empty means the request's own scheme and host.
	BaseURL       string
	AmazonCountry string
}

// WorkflowHandler serves the single page product workflow.
type WorkflowHandler struct {
	deps WorkflowDeps
}

func NewWorkflowHandler(deps WorkflowDeps) *WorkflowHandler {
	return &WorkflowHandler{deps: deps}
}

// homeView is one render of the workflow page. Nil website and platforms
// are loaded from state for productID.
type homeView struct {
	productID string
	form      map[string]string
	preview   state.Preview
	pinterest state.Result
	website   state.Result
	platforms map[string]state.Snapshot
}

func (h *WorkflowHandler) render(c echo.Context, v homeView) error {
	ctx := c.Request().Context()
	if v.productID != "" && (v.website == nil || v.platforms == nil) {
		if entry, ok := h.deps.State.Entry(ctx, v.productID); ok {
			if v.website == nil {
				v.website = entry.Results[state.PlatformWebsite]
			}
			if v.platforms == nil {
				v.platforms = entry.Platforms
			}
		}
	}

	return Render(c, home.Page(home.Data{
		ProductID: v.productID,
		Form:      v.form,
		Preview:   v.preview,
		Pinterest: v.pinterest,
		Website:   v.website,
		Platforms: v.platforms,
		Flashes:   flashes(c),
		History:   h.history(ctx, v.productID),
	}))
}

// renderEntry renders everything stored for productID.
func (h *WorkflowHandler) renderEntry(c echo.Context, productID string) error {
	if productID == "" {
		return h.render(c, homeView{})
	}
	entry, ok := h.deps.State.Entry(c.Request().Context(), productID)
	if !ok {
		return h.render(c, homeView{productID: productID})
	}
	return h.render(c, homeView{
		productID: productID,
		form:      entry.FormValues,
		preview:   h.hydrate(c, entry.Preview, entry.Assets),
		pinterest: entry.Results[state.PlatformPinterest],
		website:   entry.Results[state.PlatformWebsite],
		platforms: entry.Platforms,
	})
}

// HandleHome renders the last product worked on.
func (h *WorkflowHandler) HandleHome(c echo.Context) error {
	id, _, _ := h.deps.State.LastEntry(c.Request().Context())
	return h.renderEntry(c, id)
}

func (h *WorkflowHandler) history(ctx context.Context, productID string) []db.PublishEvent {
	if h.deps.History == nil {
		return nil
	}
	var (
		events []db.PublishEvent
		err    error
	)
	if productID == "" {
		events, err = h.deps.History.Latest(ctx, storage.DefaultHistoryLimit)
	} else {
		events, err = h.deps.History.Recent(ctx, productID, storage.DefaultHistoryLimit)
	}
	if err != nil {
		slog.Error("failed to load publish history", "product_id", productID, "error", err)
		return nil
	}
	return events
}

// record appends a publish attempt to the history. Failures to record are
// logged and never change the workflow outcome.
func (h *WorkflowHandler) record(ctx context.Context, ev storage.PublishEvent) {
	if ev.Err != nil {
		slog.Error("publish failed", "platform", ev.Platform, "product_id", ev.ProductID, "error", ev.Err)
	} else {
		slog.Info("publish attempt", "platform", ev.Platform, "product_id", ev.ProductID, "status", ev.Status, "remote_id", ev.RemoteID)
	}
	if h.deps.History == nil || ev.ProductID == "" {
		return
	}
	if _, err := h.deps.History.Record(ctx, ev); err != nil {
		slog.Error("failed to record publish event", "platform", ev.Platform, "product_id", ev.ProductID, "error", err)
	}
}

// upsert persists an update. A failed write is flashed; the page still
// renders from the request data.
func (h *WorkflowHandler) upsert(c echo.Context, productID string, update state.Update) {
	if err := h.deps.State.Upsert(c.Request().Context(), productID, update); err != nil {
		slog.Error("failed to save product state", "product_id", productID, "error", err)
		flash(c, flashError, "Unable to save progress: %v", err)
	}
}
