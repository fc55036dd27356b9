package handlers

import (
	"strconv"
	"strings"

	"github.com/kaymio/productcast/internal/generation"
	"github.com/kaymio/productcast/internal/social"
	"github.com/kaymio/productcast/internal/state"
	"github.com/labstack/echo/v4"
)

// HandleGenerateVideo renders a short vertical video for YouTube or TikTok
// from the best available product visual.
func (h *WorkflowHandler) HandleGenerateVideo(c echo.Context) error {
	target := strings.ToLower(c.Param("platform"))
	if target != generation.TargetYouTube && target != generation.TargetTikTok {
		return echo.ErrNotFound
	}

	ctx := c.Request().Context()
	raw := collectForm(c)
	form := extractDefaults(raw)
	id := productID(form)
	preview := h.rebuildPreview(c, raw)
	label := social.Platform(target).Title()

	basePath := firstSet(raw["original_image_path"], raw["instagram_image_path"], raw["generated_image_path"])
	if basePath == "" {
		flash(c, flashError, "Generate an image first to feed the video workflow.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}
	base, err := h.deps.Media.Load(basePath)
	if err != nil {
		flash(c, flashError, "Unable to load the base visual. Please regenerate it.")
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	duration := raw["video_duration_seconds"]
	if duration == "" && preview != nil {
		duration = preview.String("video_duration_seconds")
	}

	boost := ""
	if target == generation.TargetYouTube {
		boost = raw["youtube_boost_prompt"]
		form["youtube_boost_prompt"] = boost
	}

	video, err := h.deps.Generator.GenerateVideo(ctx, generation.VideoInput{
		Target:      target,
		Title:       firstSet(raw["title"], form["title"]),
		BoostPrompt: boost,
		Duration:    duration,
		BaseImage:   base,
	})
	if err != nil {
		flash(c, flashError, "Unable to generate the %s video: %v", label, err)
		return h.render(c, homeView{form: form, preview: preview, productID: id})
	}

	if preview == nil {
		preview = h.storedPreview(c, id)
	}
	if target == generation.TargetYouTube {
		preview["youtube_boost_prompt"] = boost
	}
	preview["generated_video_path"] = video.Path
	preview["video_duration_seconds"] = strconv.Itoa(video.DurationSeconds)
	preview["video_prompt"] = video.Prompt
	preview["video_url"] = mediaURL(video.Path)
	preview["video_public_url"] = h.publicURL(c, video.Path)

	flash(c, flashSuccess, "%s video generated.", label)
	h.upsert(c, id, state.Update{
		FormValues: form,
		Preview:    preview,
		Platforms: map[string]state.Snapshot{
			target: {
				"status":             "pending",
				"video_path":         video.Path,
				"base_image_path":    basePath,
				"use_affiliate_link": useAffiliateLink(form),
			},
		},
		Assets: map[string]string{state.AssetGeneratedVideo: video.Path},
	})
	return h.render(c, homeView{form: form, preview: preview, productID: id})
}
