package handlers

import (
	"encoding/base64"
	"strings"

	"github.com/kaymio/productcast/internal/generation"
	"github.com/kaymio/productcast/internal/platforms/instagram"
	"github.com/kaymio/productcast/internal/social"
	"github.com/kaymio/productcast/internal/state"
	"github.com/kaymio/productcast/storage"
	"github.com/labstack/echo/v4"
)

// HandleGenerateInstagramImage restyles the product image for the feed or
// story format.
func (h *WorkflowHandler) HandleGenerateInstagramImage(c echo.Context) error {
	ctx := c.Request().Context()
	raw := collectForm(c)
	form := extractDefaults(raw)
	id := productID(form)
	preview := h.rebuildPreview(c, raw)

	basePath := firstSet(raw["original_image_path"], raw["generated_image_path"])
	if basePath == "" {
		flash(c, flashError, "Upload a product image before generating Instagram visuals.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}
	base, err := h.deps.Media.Load(basePath)
	if err != nil {
		flash(c, flashError, "Unable to load the base image. Please regenerate your creative first.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	variant := generation.NormalizeVariant(raw["instagram_variant"])
	promptForm := cloneForm(form)
	promptForm["title"] = raw["title"]

	path, err := h.deps.Generator.GenerateInstagramImage(ctx, base, variant, promptForm)
	if err != nil {
		flash(c, flashError, "Unable to generate the Instagram visual: %v", err)
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	if preview == nil {
		preview = h.storedPreview(c, id)
	}
	preview["instagram_image_path"] = path
	preview["instagram_image_url"] = mediaURL(path)
	preview["instagram_image_public_url"] = h.publicURL(c, path)
	if data, err := h.deps.Media.Load(path); err == nil {
		preview["instagram_image_data"] = base64.StdEncoding.EncodeToString(data)
	}

	flash(c, flashSuccess, "Instagram %s visual refreshed.", variant)
	h.upsert(c, id, state.Update{
		FormValues: form,
		Preview:    preview,
		Platforms: map[string]state.Snapshot{
			instagramChannel(variant): {
				"status":             "pending",
				"image_path":         path,
				"variant":            variant,
				"use_affiliate_link": useAffiliateLink(form),
			},
		},
		Assets: map[string]string{state.AssetInstagramImage: path},
	})
	return h.render(c, homeView{form: form, preview: preview, productID: id})
}

// HandlePublishInstagram publishes the Instagram visual as a feed post
// (caption plus hashtag block) or a story.
func (h *WorkflowHandler) HandlePublishInstagram(c echo.Context) error {
	ctx := c.Request().Context()
	raw := collectForm(c)
	form := extractDefaults(raw)
	id := productID(form)
	preview := h.rebuildPreview(c, raw)

	imagePath := firstSet(raw["instagram_image_path"], raw["generated_image_path"])
	if imagePath == "" {
		flash(c, flashError, "Missing generated creative. Please run the generator first.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	caption := raw["instagram_caption"]
	hashtags := social.ParseTags(firstSet(raw["instagram_hashtags_payload"], "[]"))
	target := generation.NormalizeVariant(raw["target"])
	post := instagram.Post{ImageURL: h.publicURL(c, imagePath)}

	var (
		res *instagram.PublishResult
		err error
	)
	if target == generation.VariantStory {
		post.Caption = strings.TrimSpace(caption)
		res, err = h.deps.Instagram.PublishStory(ctx, post)
	} else {
		post.Caption = social.InstagramCaption(caption, hashtags)
		res, err = h.deps.Instagram.PublishPost(ctx, post)
	}

	channel := instagramChannel(target)
	if err != nil {
		h.record(ctx, storage.PublishEvent{ProductID: id, Platform: channel, Err: err})
		flash(c, flashError, "Unable to publish to Instagram: %v", err)
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	h.record(ctx, storage.PublishEvent{ProductID: id, Platform: channel, Status: storage.StatusPublished, RemoteID: res.ID})
	flash(c, flashSuccess, "Instagram content published successfully!")
	h.upsert(c, id, state.Update{
		FormValues: form,
		Preview:    preview,
		Platforms: map[string]state.Snapshot{
			channel: {
				"status":             "published",
				"media_id":           res.ID,
				"use_affiliate_link": useAffiliateLink(form),
			},
		},
	})
	return h.render(c, homeView{form: form, preview: preview, productID: id})
}

func instagramChannel(variant string) string {
	if variant == generation.VariantStory {
		return state.PlatformInstagramStory
	}
	return state.PlatformInstagramFeed
}
