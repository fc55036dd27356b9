package handlers

import (
	"errors"
	"log/slog"

	"github.com/kaymio/productcast/internal/platforms"
	"github.com/kaymio/productcast/internal/platforms/woocommerce"
	"github.com/kaymio/productcast/internal/social"
	"github.com/kaymio/productcast/internal/state"
	"github.com/kaymio/productcast/storage"
	"github.com/labstack/echo/v4"
)

// HandlePublishWebsite lists the product on the WooCommerce store as an
// external (affiliate) product.
func (h *WorkflowHandler) HandlePublishWebsite(c echo.Context) error {
	ctx := c.Request().Context()
	raw := collectForm(c)
	form := extractDefaults(raw)
	id := productID(form)
	preview := h.rebuildPreview(c, raw)

	var entry *state.Entry
	if id != "" {
		entry, _ = h.deps.State.Entry(ctx, id)
	}
	if preview == nil && entry != nil && len(entry.Preview) > 0 {
		preview = h.hydrate(c, entry.Preview, entry.Assets)
	}

	if id == "" {
		flash(c, flashError, "Provide a SKU or product link before publishing to Kaymio.")
		return h.render(c, homeView{form: form, preview: preview})
	}

	affiliateLink := form["affiliate_link"]
	price := form["price"]
	category := form["category"]
	boost := form["website_boost_prompt"]
	if affiliateLink == "" {
		flash(c, flashError, "Affiliate link is required for WooCommerce external products.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}
	if price == "" {
		flash(c, flashError, "Add a price before publishing to Kaymio.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	imageRel := websiteImage(preview, raw, entry)
	imagePath, ok := h.deps.Media.Resolve(imageRel)
	if imageRel == "" || !ok {
		flash(c, flashError, "Upload an original product image before publishing to Kaymio.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	if preview == nil {
		preview = state.Preview{
			"title":                form["title"],
			"description":          form["description"],
			"tags":                 social.ParseTags(raw["tags"]),
			"original_image_path":  imageRel,
			"generated_image_path": "",
			"category":             category,
			"price":                price,
			"website_boost_prompt": boost,
		}
	}

	title := social.FirstNonEmpty(preview.String("title"), form["title"])
	description := social.FirstNonEmpty(preview.String("description"), form["description"])
	if title == "" || description == "" {
		flash(c, flashError, "Missing product title or description. Please provide them before publishing.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	enriched := h.deps.Generator.WebsiteDescription(ctx, title, description, boost)

	var categoryID int
	if category != "" {
		if match, ok := h.deps.Storefront.NearestCategory(ctx, category); ok {
			categoryID = match
		} else {
			slog.Warn("no store category matched", "category", category)
		}
	}

	var images []string
	if imageURL, err := h.deps.Storefront.UploadMedia(ctx, imagePath); err != nil {
		slog.Warn("product image upload failed, publishing without images", "path", imageRel, "error", err)
	} else {
		images = append(images, imageURL)
	}

	productURL, err := h.deps.Storefront.CreateExternalProduct(ctx, woocommerce.ExternalProduct{
		Name:          title,
		Description:   enriched,
		Price:         price,
		Images:        images,
		Tags:          preview.Strings("tags"),
		AffiliateLink: affiliateLink,
		CategoryID:    categoryID,
	})
	if err != nil {
		h.record(ctx, storage.PublishEvent{ProductID: id, Platform: state.PlatformWebsite, Err: err})
		if errors.Is(err, platforms.ErrNotConfigured) {
			flash(c, flashError, "Failed to publish product to Kaymio. Check WooCommerce credentials.")
		} else {
			flash(c, flashError, "Unable to publish to Kaymio: %v", err)
		}
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	h.record(ctx, storage.PublishEvent{ProductID: id, Platform: state.PlatformWebsite, Status: storage.StatusPublished, RemoteURL: productURL})
	flash(c, flashSuccess, "Product published to Kaymio successfully!")

	website := state.Result{
		"product_url": productURL,
		"title":       title,
		"description": enriched,
		"price":       price,
		"category":    category,
	}
	h.upsert(c, id, state.Update{
		FormValues: form,
		Preview:    preview,
		Platforms: map[string]state.Snapshot{
			state.PlatformWebsite: {"status": "published", "product_url": productURL},
		},
		Results: map[string]state.Result{state.PlatformWebsite: website},
	})

	pin, _ := h.deps.State.Result(ctx, id, state.PlatformPinterest)
	return h.render(c, homeView{
		form:      form,
		preview:   preview,
		pinterest: pin,
		website:   website,
		productID: id,
	})
}

// websiteImage picks the listing image: the preview's original, then its
// generated image, then the submitted original, then stored assets.
func websiteImage(preview state.Preview, raw map[string]string, entry *state.Entry) string {
	if preview != nil {
		if path := social.FirstNonEmpty(preview.String("original_image_path"), preview.String("generated_image_path")); path != "" {
			return path
		}
	}
	if path := raw["original_image_path"]; path != "" {
		return path
	}
	if entry != nil {
		return social.FirstNonEmpty(entry.Assets[state.AssetOriginalImage], entry.Assets[state.AssetGeneratedImage])
	}
	return ""
}
