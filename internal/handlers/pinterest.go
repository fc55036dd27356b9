package handlers

import (
	"context"

	"github.com/kaymio/productcast/internal/generation"
	"github.com/kaymio/productcast/internal/imaging"
	"github.com/kaymio/productcast/internal/platforms/pinterest"
	"github.com/kaymio/productcast/internal/social"
	"github.com/kaymio/productcast/internal/state"
	"github.com/kaymio/productcast/storage"
	"github.com/labstack/echo/v4"
)

// HandleGeneratePinterest validates the product form, stores the original
// image and builds the full creative preview.
func (h *WorkflowHandler) HandleGeneratePinterest(c echo.Context) error {
	ctx := c.Request().Context()
	raw := collectForm(c)
	originalPath := raw["original_image_path"]
	delete(raw, "original_image_path")

	form := cloneForm(raw)
	id := productID(form)
	if originalPath == "" && id != "" {
		if entry, ok := h.deps.State.Entry(ctx, id); ok {
			originalPath = entry.Assets[state.AssetOriginalImage]
		}
	}
	if _, ok := form["use_affiliate_link"]; !ok {
		form["use_affiliate_link"] = "0"
	}

	file, err := readUpload(c, productImageField)
	if err != nil {
		flash(c, flashError, "Unable to read the uploaded image: %v", err)
		return h.render(c, homeView{form: form, productID: id})
	}

	var problems []string
	if form["market"] == "" {
		problems = append(problems, "Please choose a marketplace before continuing.")
	}
	if form["sku_or_url"] == "" {
		problems = append(problems, "Please provide a SKU, ASIN, or product link.")
	}
	if form["title"] == "" {
		problems = append(problems, "Please provide a product title for Pinterest.")
	}
	if form["affiliate_link"] == "" {
		problems = append(problems, "Affiliate link is required so shoppers can reach the product.")
	}
	if file == nil && originalPath == "" {
		problems = append(problems, "Upload at least one product image so we can craft a pin.")
	} else if file != nil && !imaging.Allowed(file.filename) {
		problems = append(problems, msgUnsupportedImage)
	}
	if len(problems) > 0 {
		for _, p := range problems {
			flash(c, flashError, "%s", p)
		}
		return h.render(c, homeView{form: form, productID: id})
	}

	var original []byte
	if file != nil {
		if len(file.data) == 0 {
			flash(c, flashError, "The uploaded image appears to be empty.")
			return h.render(c, homeView{form: form, productID: id})
		}
		if originalPath, err = h.deps.Media.SaveOriginal(file.data, file.filename); err != nil {
			flash(c, flashError, "Unable to store the uploaded image: %v", err)
			return h.render(c, homeView{form: form, productID: id})
		}
		original = file.data
	} else if original, err = h.deps.Media.Load(originalPath); err != nil {
		flash(c, flashError, "Unable to load the previously uploaded image. Please upload again.")
		return h.render(c, homeView{form: form, productID: id})
	}

	generated, err := h.deps.Generator.BuildPreview(ctx, generation.PreviewInput{
		FormValues:        form,
		OriginalImage:     original,
		OriginalImagePath: originalPath,
	})
	if err != nil {
		flash(c, flashError, "Unable to generate Pinterest pin: %v", err)
		return h.render(c, homeView{form: form, productID: id})
	}
	preview := h.generatedPreview(c, generated, form, raw["generated_video_path"])
	flash(c, flashInfo, "Preview generated. Choose where to publish your content.")

	h.upsert(c, id, state.Update{
		FormValues: form,
		Preview:    preview,
		Platforms: map[string]state.Snapshot{
			state.PlatformPinterest: {
				"status":             "pending",
				"title":              generated.Title,
				"description":        generated.Description,
				"tags":               generated.Tags,
				"use_affiliate_link": useAffiliateLink(form),
			},
		},
		Assets: map[string]string{
			state.AssetOriginalImage:  originalPath,
			state.AssetGeneratedImage: generated.GeneratedImagePath,
		},
	})
	return h.render(c, homeView{form: form, preview: preview, productID: id})
}

// HandleConfirmPinterest publishes the previewed pin.
func (h *WorkflowHandler) HandleConfirmPinterest(c echo.Context) error {
	ctx := c.Request().Context()
	raw := collectForm(c)
	generatedPath := raw["generated_image_path"]
	originalPath := raw["original_image_path"]
	form := extractDefaults(raw)
	id := productID(form)
	tags := social.ParseTags(raw["tags"])
	preview := h.rebuildPreview(c, raw)
	useAffiliate := state.IsTruthy(valueOr(raw, "use_affiliate_link", form["use_affiliate_link"]))

	image, err := h.deps.Media.Load(generatedPath)
	if err != nil {
		flash(c, flashError, "Unable to load the generated image. Please regenerate it.")
		return h.render(c, homeView{form: form, productID: id})
	}

	title := raw["title"]
	description := raw["description"]
	link := h.destination(ctx, id, valueOr(raw, "affiliate_link", form["affiliate_link"]), useAffiliate)

	pin, err := h.deps.Pinterest.CreatePin(ctx, pinterest.Pin{
		Image:       image,
		Title:       title,
		Description: description,
		Link:        link,
		Tags:        tags,
	})
	if err != nil {
		h.record(ctx, storage.PublishEvent{ProductID: id, Platform: state.PlatformPinterest, Err: err})
		flash(c, flashError, "Unable to publish Pinterest pin: %v", err)
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	assets := nonEmpty(map[string]string{
		state.AssetOriginalImage:  originalPath,
		state.AssetGeneratedImage: generatedPath,
	})

	if pin.Status == pinterest.StatusSkipped {
		h.record(ctx, storage.PublishEvent{ProductID: id, Platform: state.PlatformPinterest, Status: storage.StatusSkipped})
		flash(c, flashInfo, "Pinterest is not configured, so the pin was not published. Add Pinterest credentials and try again.")
		h.upsert(c, id, state.Update{
			FormValues: form,
			Preview:    preview,
			Platforms: map[string]state.Snapshot{
				state.PlatformPinterest: {"status": "pending", "use_affiliate_link": useAffiliate},
			},
			Assets: assets,
		})
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	result := state.Result{
		"title":       title,
		"description": description,
		"tags":        tags,
		"pin_id":      pin.ID,
		"pin_url":     pin.URL,
		"status":      pin.Status,
	}
	h.record(ctx, storage.PublishEvent{
		ProductID: id,
		Platform:  state.PlatformPinterest,
		Status:    storage.StatusPublished,
		RemoteID:  pin.ID,
		RemoteURL: pin.URL,
	})
	flash(c, flashSuccess, "Pinterest pin published successfully!")
	h.upsert(c, id, state.Update{
		FormValues: form,
		Preview:    preview,
		Results:    map[string]state.Result{state.PlatformPinterest: result},
		Platforms: map[string]state.Snapshot{
			state.PlatformPinterest: {
				"status":             "published",
				"pin_id":             pin.ID,
				"pin_url":            pin.URL,
				"published":          true,
				"use_affiliate_link": useAffiliate,
			},
		},
		Assets: assets,
	})
	return h.render(c, homeView{form: form, pinterest: result, productID: id})
}

// destination is where a pin links to: the affiliate link when asked for
// (or when there is no product), otherwise the store listing if one exists.
func (h *WorkflowHandler) destination(ctx context.Context, id, affiliateLink string, useAffiliate bool) string {
	if useAffiliate || id == "" {
		return affiliateLink
	}
	if productURL := h.deps.State.WebsiteProductURL(ctx, id); productURL != "" {
		return productURL
	}
	return affiliateLink
}
