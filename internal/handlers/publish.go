package handlers

import (
	"github.com/kaymio/productcast/internal/platforms/tiktok"
	"github.com/kaymio/productcast/internal/platforms/youtube"
	"github.com/kaymio/productcast/internal/social"
	"github.com/kaymio/productcast/internal/state"
	"github.com/kaymio/productcast/storage"
	"github.com/labstack/echo/v4"
)

// videoPath is the generated video the page carried, if any.
func videoPath(raw map[string]string, preview state.Preview) string {
	if path := raw["generated_video_path"]; path != "" {
		return path
	}
	if preview != nil {
		return preview.String("generated_video_path")
	}
	return ""
}

// HandlePublishYouTube uploads the generated video as a Short. A blank title
// or description falls back to the product's own; whatever is still missing
// is filled in by the text generator.
func (h *WorkflowHandler) HandlePublishYouTube(c echo.Context) error {
	ctx := c.Request().Context()
	raw := collectForm(c)
	form := extractDefaults(raw)
	id := productID(form)
	preview := h.rebuildPreview(c, raw)

	path := videoPath(raw, preview)
	if path == "" {
		flash(c, flashError, "Generate the YouTube Short first, then publish.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}
	video, err := h.deps.Media.Load(path)
	if err != nil {
		flash(c, flashError, "Unable to load the generated video. Please regenerate it.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	baseTitle := firstSet(raw["title"], form["title"])
	baseDescription := firstSet(raw["description"], form["description"])
	title := firstSet(raw["youtube_title"], baseTitle)
	description := firstSet(raw["youtube_description"], baseDescription)
	keywords := social.ParseTags(firstSet(raw["youtube_keywords_payload"], "[]"))

	if title == "" || description == "" || len(keywords) == 0 {
		meta := h.deps.Generator.YouTubeMetadata(ctx, baseTitle, baseDescription)
		title = firstSet(title, meta.Title)
		description = firstSet(description, meta.Description)
		if len(keywords) == 0 {
			keywords = meta.Keywords
		}
		if preview != nil {
			preview["youtube_title"] = title
			preview["youtube_description"] = description
			preview["youtube_keywords"] = keywords
			preview["youtube_keywords_payload"] = social.TagsPayload(keywords)
		}
	}

	res, err := h.deps.YouTube.UploadShort(ctx, youtube.Short{
		Video:         video,
		Title:         title,
		Description:   description,
		Tags:          keywords,
		PrivacyStatus: firstSet(raw["privacy_status"], "public"),
	})
	if err != nil {
		h.record(ctx, storage.PublishEvent{ProductID: id, Platform: state.PlatformYouTube, Err: err})
		flash(c, flashError, "Unable to publish to YouTube: %v", err)
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	h.record(ctx, storage.PublishEvent{
		ProductID: id,
		Platform:  state.PlatformYouTube,
		Status:    storage.StatusPublished,
		RemoteID:  res.VideoID,
		RemoteURL: res.URL,
	})
	flash(c, flashSuccess, "YouTube Short uploaded (video url: %s).", res.URL)
	h.upsert(c, id, state.Update{
		FormValues: form,
		Preview:    preview,
		Platforms: map[string]state.Snapshot{
			state.PlatformYouTube: {
				"status":             "published",
				"video_id":           res.VideoID,
				"use_affiliate_link": useAffiliateLink(form),
			},
		},
		Results: map[string]state.Result{
			state.PlatformYouTube: {
				"title":       title,
				"description": description,
				"video_id":    res.VideoID,
			},
		},
	})
	return h.render(c, homeView{form: form, preview: preview, productID: id})
}

// HandlePublishTikTok posts the generated video with the caption and its
// hashtag block.
func (h *WorkflowHandler) HandlePublishTikTok(c echo.Context) error {
	ctx := c.Request().Context()
	raw := collectForm(c)
	form := extractDefaults(raw)
	id := productID(form)
	preview := h.rebuildPreview(c, raw)

	path := videoPath(raw, preview)
	if path == "" {
		flash(c, flashError, "Generate the TikTok video first, then publish.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}
	video, err := h.deps.Media.Load(path)
	if err != nil {
		flash(c, flashError, "Unable to load the generated video. Please regenerate it.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	hashtags := social.ParseTags(firstSet(raw["tiktok_hashtags_payload"], "[]"))
	caption := social.TikTokCaption(raw["tiktok_caption"], hashtags)
	privacy := firstSet(raw["privacy_level"], tiktok.PrivacyPublic)

	res, err := h.deps.TikTok.PublishVideo(ctx, video, caption, privacy)
	if err != nil {
		h.record(ctx, storage.PublishEvent{ProductID: id, Platform: state.PlatformTikTok, Err: err})
		flash(c, flashError, "Unable to publish to TikTok: %v", err)
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	h.record(ctx, storage.PublishEvent{
		ProductID: id,
		Platform:  state.PlatformTikTok,
		Status:    storage.StatusPublished,
		RemoteID:  res.PublishID,
	})
	flash(c, flashSuccess, "TikTok video published successfully!")
	h.upsert(c, id, state.Update{
		FormValues: form,
		Preview:    preview,
		Platforms: map[string]state.Snapshot{
			state.PlatformTikTok: {
				"status":             "published",
				"publish_id":         res.PublishID,
				"use_affiliate_link": useAffiliateLink(form),
			},
		},
		Results: map[string]state.Result{
			state.PlatformTikTok: {
				"caption":       caption,
				"privacy_level": privacy,
				"publish_id":    res.PublishID,
			},
		},
	})
	return h.render(c, homeView{form: form, preview: preview, productID: id})
}
