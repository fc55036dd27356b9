package handlers

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/kaymio/productcast/internal/generation"
	"github.com/kaymio/productcast/internal/social"
	"github.com/kaymio/productcast/internal/state"
	"github.com/labstack/echo/v4"
)

const mediaPrefix = "/media/"

func mediaURL(rel string) string {
	return mediaPrefix + strings.TrimPrefix(rel, "/")
}

// publicURL is the absolute URL for a stored media path.
func (h *WorkflowHandler) publicURL(c echo.Context, rel string) string {
	base := strings.TrimSuffix(h.deps.BaseURL, "/")
	if base == "" {
		base = c.Scheme() + "://" + c.Request().Host
	}
	return base + mediaURL(rel)
}

// generatedPreview converts a fresh creative bundle into the preview kept
// in state and rendered on the page.
func (h *WorkflowHandler) generatedPreview(c echo.Context, p *generation.Preview, form map[string]string, videoPath string) state.Preview {
	imageData := base64.StdEncoding.EncodeToString(p.GeneratedImage)
	imageURL := mediaURL(p.GeneratedImagePath)
	imagePublicURL := h.publicURL(c, p.GeneratedImagePath)

	return state.Preview{
		"title":                      p.Title,
		"description":                p.Description,
		"tags":                       p.Tags,
		"tags_payload":               social.TagsPayload(p.Tags),
		"image_data":                 imageData,
		"generated_image_path":       p.GeneratedImagePath,
		"original_image_path":        p.OriginalImagePath,
		"affiliate_link":             form["affiliate_link"],
		"market":                     form["market"],
		"sku_or_url":                 form["sku_or_url"],
		"pinterest_extra":            form["pinterest_extra"],
		"title_input":                form["title"],
		"description_input":          form["description"],
		"generated_image_url":        imageURL,
		"image_public_url":           imagePublicURL,
		"instagram_caption":          p.InstagramCaption,
		"instagram_hashtags":         p.InstagramHashtags,
		"instagram_hashtags_payload": social.TagsPayload(p.InstagramHashtags),
		"instagram_image_path":       p.GeneratedImagePath,
		"instagram_image_url":        imageURL,
		"instagram_image_public_url": imagePublicURL,
		"instagram_image_data":       imageData,
		"tiktok_caption":             p.TikTokCaption,
		"tiktok_hashtags":            p.TikTokHashtags,
		"tiktok_hashtags_payload":    social.TagsPayload(p.TikTokHashtags),
		"youtube_title":              p.YouTube.Title,
		"youtube_description":        p.YouTube.Description,
		"youtube_keywords":           p.YouTube.Keywords,
		"youtube_keywords_payload":   social.TagsPayload(p.YouTube.Keywords),
		"generated_video_path":       videoPath,
		"video_url":                  "",
		"video_public_url":           "",
		"video_duration_seconds":     strconv.Itoa(p.VideoDurationSeconds),
		"video_prompt":               p.VideoPrompt,
		"category":                   form["category"],
		"price":                      form["price"],
		"website_boost_prompt":       form["website_boost_prompt"],
		"youtube_boost_prompt":       form["youtube_boost_prompt"],
		"use_affiliate_link":         firstSet(form["use_affiliate_link"], "0"),
	}
}

// rebuildPreview reconstructs the preview from the hidden fields a page
// submits. It returns nil when there is no loadable generated image.
func (h *WorkflowHandler) rebuildPreview(c echo.Context, raw map[string]string) state.Preview {
	imagePath := raw["generated_image_path"]
	if imagePath == "" {
		return nil
	}
	image, err := h.deps.Media.Load(imagePath)
	if err != nil {
		return nil
	}

	tagsPayload := firstSet(raw["tags_payload"], raw["tags"], "[]")
	instagramPayload := firstSet(raw["instagram_hashtags_payload"], "[]")
	tiktokPayload := firstSet(raw["tiktok_hashtags_payload"], "[]")
	youtubePayload := firstSet(raw["youtube_keywords_payload"], "[]")

	preview := state.Preview{
		"title":                      raw["title"],
		"description":                raw["description"],
		"tags":                       social.ParseTags(tagsPayload),
		"tags_payload":               tagsPayload,
		"image_data":                 base64.StdEncoding.EncodeToString(image),
		"generated_image_path":       imagePath,
		"original_image_path":        raw["original_image_path"],
		"affiliate_link":             raw["affiliate_link"],
		"market":                     raw["market"],
		"sku_or_url":                 raw["sku_or_url"],
		"pinterest_extra":            raw["pinterest_extra"],
		"title_input":                raw["title"],
		"description_input":          raw["description"],
		"instagram_caption":          raw["instagram_caption"],
		"instagram_hashtags":         social.ParseTags(instagramPayload),
		"instagram_hashtags_payload": instagramPayload,
		"tiktok_caption":             raw["tiktok_caption"],
		"tiktok_hashtags":            social.ParseTags(tiktokPayload),
		"tiktok_hashtags_payload":    tiktokPayload,
		"youtube_title":              valueOr(raw, "youtube_title", raw["title"]),
		"youtube_description":        valueOr(raw, "youtube_description", raw["description"]),
		"youtube_keywords":           social.ParseTags(youtubePayload),
		"youtube_keywords_payload":   youtubePayload,
		"video_prompt":               raw["video_prompt"],
		"instagram_image_path":       raw["instagram_image_path"],
		"category":                   raw["category"],
		"price":                      raw["price"],
		"website_boost_prompt":       raw["website_boost_prompt"],
		"youtube_boost_prompt":       raw["youtube_boost_prompt"],
		"use_affiliate_link":         firstSet(raw["use_affiliate_link"], raw["use_affiliate_link_pref"], "0"),
		"generated_image_url":        mediaURL(imagePath),
		"image_public_url":           h.publicURL(c, imagePath),
		"instagram_image_url":        "",
		"instagram_image_public_url": "",
		"instagram_image_data":       "",
	}
	if duration := raw["video_duration_seconds"]; duration != "" {
		preview["video_duration_seconds"] = duration
	}

	videoPath := raw["generated_video_path"]
	preview["generated_video_path"] = videoPath
	preview["video_url"] = ""
	preview["video_public_url"] = ""
	if videoPath != "" {
		preview["video_url"] = mediaURL(videoPath)
		preview["video_public_url"] = h.publicURL(c, videoPath)
	}

	if igPath := raw["instagram_image_path"]; igPath != "" {
		if data, err := h.deps.Media.Load(igPath); err == nil {
			preview["instagram_image_url"] = mediaURL(igPath)
			preview["instagram_image_public_url"] = h.publicURL(c, igPath)
			preview["instagram_image_data"] = base64.StdEncoding.EncodeToString(data)
		}
	}
	return preview
}

// hydrate restores the inline image data and media URLs stripped from a
// stored preview. The stored preview is not modified.
func (h *WorkflowHandler) hydrate(c echo.Context, stored state.Preview, assets map[string]string) state.Preview {
	if len(stored) == 0 {
		return nil
	}
	preview := stored.Clone()

	if imagePath := preview.String("generated_image_path"); imagePath != "" && preview.String("image_data") == "" {
		if data, err := h.deps.Media.Load(imagePath); err == nil {
			preview["image_data"] = base64.StdEncoding.EncodeToString(data)
			setDefault(preview, "generated_image_url", mediaURL(imagePath))
			setDefault(preview, "image_public_url", h.publicURL(c, imagePath))
		} else {
			preview["image_data"] = ""
		}
	}

	if igPath := preview.String("instagram_image_path"); igPath != "" && preview.String("instagram_image_data") == "" {
		if data, err := h.deps.Media.Load(igPath); err == nil {
			preview["instagram_image_data"] = base64.StdEncoding.EncodeToString(data)
			setDefault(preview, "instagram_image_url", mediaURL(igPath))
			setDefault(preview, "instagram_image_public_url", h.publicURL(c, igPath))
		} else {
			preview["instagram_image_data"] = ""
		}
	}

	videoPath := preview.String("generated_video_path")
	if videoPath == "" {
		videoPath = assets[state.AssetGeneratedVideo]
		if videoPath != "" {
			preview["generated_video_path"] = videoPath
		}
	}
	if videoPath != "" {
		if preview.String("video_url") == "" {
			preview["video_url"] = mediaURL(videoPath)
		}
		if preview.String("video_public_url") == "" {
			preview["video_public_url"] = h.publicURL(c, videoPath)
		}
	}
	return preview
}

// storedPreview is the persisted preview for id, or an empty one. Used
// when the page did not carry a preview but a step must still add to it.
func (h *WorkflowHandler) storedPreview(c echo.Context, id string) state.Preview {
	if entry, ok := h.deps.State.Entry(c.Request().Context(), id); ok && len(entry.Preview) > 0 {
		return entry.Preview.Clone()
	}
	return state.Preview{}
}

// setDefault sets key only when it is absent.
func setDefault(p state.Preview, key string, value any) {
	if _, ok := p[key]; !ok {
		p[key] = value
	}
}

// valueOr returns raw[key] when the key was submitted at all.
func valueOr(raw map[string]string, key, fallback string) string {
	if v, ok := raw[key]; ok {
		return v
	}
	return fallback
}
