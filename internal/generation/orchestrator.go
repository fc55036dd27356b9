// Package generation turns one product's form input into the creative bundle
// (copy, hashtags, images and video) used by every publishing channel. Each
// text step falls back to deterministic copy when the text generator fails.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/kaymio/productcast/internal/creative"
	"github.com/kaymio/productcast/internal/imaging"
	"github.com/kaymio/productcast/internal/media"
	"github.com/kaymio/productcast/internal/openai"
	"github.com/kaymio/productcast/internal/social"
)

const (
	DefaultVideoDuration = 8
	MinVideoDuration     = 4
	MaxVideoDuration     = 60

	VariantFeed  = "feed"
	VariantStory = "story"

	TargetYouTube = "youtube"
	TargetTikTok  = "tiktok"

	pinAspect       = "2:3"
	feedAspect      = "4:5"
	storyAspect     = "9:16"
	videoAspect     = "9:16"
	videoResolution = "720p"
	maxYouTubeTitle = 100
)

var (
	pinSize   = [2]int{1000, 1500}
	feedSize  = [2]int{1080, 1350}
	storySize = [2]int{1080, 1920}
)

// ErrUnknownTarget is returned by GenerateVideo for targets other than
// youtube and tiktok.
var ErrUnknownTarget = errors.New("unsupported video target")

// TextGenerator produces free-form text for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt openai.Prompt) (string, error)
}

// Orchestrator sequences text, image and video generation for a product.
type Orchestrator struct {
	text    TextGenerator
	creator creative.Generator
	media   *media.Store
}

// New wires an orchestrator. text may be nil, in which case every text step
// uses its fallback.
func New(text TextGenerator, creator creative.Generator, store *media.Store) *Orchestrator {
	if creator == nil {
		creator = creative.NewPassthrough()
	}
	return &Orchestrator{text: text, creator: creator, media: store}
}

// YouTubeMeta is the title, description and keyword set for a Short.
type YouTubeMeta struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// PreviewInput is the validated form plus the stored original image.
type PreviewInput struct {
	FormValues        map[string]string
	OriginalImage     []byte
	OriginalImagePath string
}

// Preview is the creative bundle produced for a product.
type Preview struct {
	Title                string
	Description          string
	Tags                 []string
	GeneratedImage       []byte
	GeneratedImagePath   string
	OriginalImagePath    string
	InstagramCaption     string
	InstagramHashtags    []string
	TikTokCaption        string
	TikTokHashtags       []string
	YouTube              YouTubeMeta
	VideoDurationSeconds int
	VideoPrompt          string
}

// BuildPreview runs the text steps in order and then the pin image edit.
// Only the image step can fail the preview.
func (o *Orchestrator) BuildPreview(ctx context.Context, in PreviewInput) (*Preview, error) {
	form := in.FormValues
	rawTitle := strings.TrimSpace(form["title"])
	rawDescription := strings.TrimSpace(form["description"])
	extra := form["pinterest_extra"]

	title := o.RefinedTitle(ctx, rawTitle, rawDescription, extra)
	description := o.Description(ctx, title, rawDescription, extra)

	p := &Preview{
		Title:                title,
		Description:          description,
		Tags:                 o.PinterestTags(ctx, title, description),
		OriginalImagePath:    in.OriginalImagePath,
		InstagramCaption:     o.InstagramCaption(ctx, title, description, extra),
		InstagramHashtags:    o.InstagramHashtags(ctx, title, description),
		TikTokCaption:        o.TikTokCaption(ctx, title, description),
		TikTokHashtags:       o.TikTokHashtags(ctx, title, description),
		YouTube:              o.YouTubeMetadata(ctx, title, description),
		VideoDurationSeconds: DefaultVideoDuration,
		VideoPrompt:          fmt.Sprintf(previewVideoPrompt, title),
	}

	withTitle := copyForm(form)
	withTitle["title"] = title

	image, err := o.creator.EditImage(ctx, creative.ImageEdit{
		Image:       in.OriginalImage,
		Prompt:      pinImagePrompt,
		Context:     PromptContext(withTitle),
		AspectRatio: pinAspect,
	})
	if err != nil {
		return nil, fmt.Errorf("edit pin image: %w", err)
	}
	image = imaging.FitOrOriginal(image, pinSize[0], pinSize[1])

	path, err := o.media.SaveGenerated(image)
	if err != nil {
		return nil, fmt.Errorf("save pin image: %w", err)
	}
	p.GeneratedImage = image
	p.GeneratedImagePath = path

	slog.Info("preview generated",
		"title", title,
		"generator", o.creator.Name(),
		"image_path", path,
		"pinterest_tags", len(p.Tags),
	)
	return p, nil
}

// GenerateInstagramImage restyles base for the feed (4:5) or story (9:16)
// variant and stores it. Anything other than "story" is treated as feed.
func (o *Orchestrator) GenerateInstagramImage(ctx context.Context, base []byte, variant string, formValues map[string]string) (string, error) {
	variant = NormalizeVariant(variant)
	aspect, size := feedAspect, feedSize
	if variant == VariantStory {
		aspect, size = storyAspect, storySize
	}

	image, err := o.creator.EditImage(ctx, creative.ImageEdit{
		Image:       base,
		Prompt:      fmt.Sprintf(instagramImagePrompt, variant),
		Context:     PromptContext(formValues),
		AspectRatio: aspect,
	})
	if err != nil {
		return "", fmt.Errorf("edit instagram %s image: %w", variant, err)
	}
	image = imaging.FitOrOriginal(image, size[0], size[1])

	path, err := o.media.SaveGenerated(image)
	if err != nil {
		return "", fmt.Errorf("save instagram image: %w", err)
	}
	slog.Info("instagram image generated", "variant", variant, "path", path)
	return path, nil
}

// NormalizeVariant maps free-form input to feed or story.
func NormalizeVariant(variant string) string {
	if strings.EqualFold(strings.TrimSpace(variant), VariantStory) {
		return VariantStory
	}
	return VariantFeed
}

// VideoInput describes one platform video request.
type VideoInput struct {
	Target      string
	Title       string
	BoostPrompt string
	Duration    string
	BaseImage   []byte
}

// VideoOutput is a stored generated video.
type VideoOutput struct {
	Path            string
	DurationSeconds int
	Prompt          string
}

func (o *Orchestrator) GenerateVideo(ctx context.Context, in VideoInput) (*VideoOutput, error) {
	target := strings.ToLower(in.Target)
	if target != TargetYouTube && target != TargetTikTok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, in.Target)
	}

	boost := ""
	if target == TargetYouTube {
		boost = in.BoostPrompt
	}
	prompt := videoPrompt(target, in.Title, boost)
	duration := ClampDuration(in.Duration)

	video, err := o.creator.GenerateVideo(ctx, creative.VideoRequest{
		Prompt:          prompt,
		Image:           in.BaseImage,
		DurationSeconds: duration,
		AspectRatio:     videoAspect,
		Resolution:      videoResolution,
	})
	if err != nil {
		return nil, fmt.Errorf("generate %s video: %w", target, err)
	}

	path, err := o.media.SaveVideo(video)
	if err != nil {
		return nil, fmt.Errorf("save video: %w", err)
	}
	slog.Info("video generated", "target", target, "path", path, "duration", duration, "bytes", len(video))
	return &VideoOutput{Path: path, DurationSeconds: duration, Prompt: prompt}, nil
}

// ClampDuration parses raw seconds (integer or decimal) into [4,60]. Blank,
// unparsable or NaN input yields the default of 8.
func ClampDuration(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) {
		return DefaultVideoDuration
	}
	// clamp before converting; out-of-range floats don't survive int()
	return int(math.Max(MinVideoDuration, math.Min(MaxVideoDuration, f)))
}

// RefinedTitle asks for a Pinterest title. The raw title is kept when the
// generator fails or answers with the placeholder concept.
func (o *Orchestrator) RefinedTitle(ctx context.Context, title, description, extra string) string {
	refined := stripQuotes(o.generate(ctx, "refined title", refinedTitlePrompt(title, description, extra)))
	if refined == "" || strings.EqualFold(refined, defaultConcept) {
		return social.FirstNonEmpty(title, defaultConcept)
	}
	return refined
}

func (o *Orchestrator) Description(ctx context.Context, title, description, extra string) string {
	generated := stripQuotes(o.generate(ctx, "description", descriptionPrompt(title, description, extra)))
	return social.FirstNonEmpty(generated, description, defaultDescription)
}

func (o *Orchestrator) PinterestTags(ctx context.Context, title, description string) []string {
	fallback := social.KeywordFallback(title, defaultPinterestSeed, social.FallbackPinterestTags)
	tags, ok := o.jsonList(ctx, "pinterest tags", pinterestTagsPrompt(title, description))
	if !ok {
		return fallback
	}
	return social.CleanTags(tags, social.MaxPinterestTags)
}

func (o *Orchestrator) InstagramCaption(ctx context.Context, title, description, cta string) string {
	caption := o.generate(ctx, "instagram caption", instagramCaptionPrompt(title, description, cta))
	return social.FirstNonEmpty(caption, description, title, "Instagram caption")
}

func (o *Orchestrator) InstagramHashtags(ctx context.Context, title, description string) []string {
	fallback := squash(social.HashtagFallback(title, defaultInstagramSeed, social.FallbackInstagramTags))
	tags, ok := o.jsonList(ctx, "instagram hashtags", instagramHashtagsPrompt(title, description))
	if !ok {
		return fallback
	}
	return social.CleanTags(stripHash(tags), social.MaxInstagramTags)
}

func (o *Orchestrator) TikTokCaption(ctx context.Context, title, description string) string {
	caption := o.generate(ctx, "tiktok caption", tiktokCaptionPrompt(title, description))
	return social.FirstNonEmpty(caption, description, title, "TikTok caption")
}

func (o *Orchestrator) TikTokHashtags(ctx context.Context, title, description string) []string {
	fallback := squash(social.HashtagFallback(title, defaultTikTokSeed, social.FallbackTikTokTags))
	tags, ok := o.jsonList(ctx, "tiktok hashtags", tiktokHashtagsPrompt(title, description))
	if !ok {
		return fallback
	}
	return social.CleanTags(stripHash(tags), social.MaxTikTokTags)
}

// YouTubeMetadata returns Shorts metadata, filling any field the generator
// leaves out from the deterministic fallback.
func (o *Orchestrator) YouTubeMetadata(ctx context.Context, title, description string) YouTubeMeta {
	fallback := YouTubeMeta{
		Title:       social.Clip(strings.TrimSpace(social.FirstNonEmpty(title, defaultShortTitle)), maxYouTubeTitle),
		Description: strings.TrimSpace(social.FirstNonEmpty(description, defaultShortDesc)),
		Keywords:    social.KeywordFallback(title, defaultYouTubeSeed, social.FallbackYouTubeKeywords),
	}

	text := o.generate(ctx, "youtube metadata", youtubeMetadataPrompt(title, description))
	if text == "" {
		return fallback
	}
	var raw struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Keywords    []any  `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(stripFence(text)), &raw); err != nil {
		slog.Warn("youtube metadata response was not JSON", "error", err, "response", social.Clip(text, 200))
		return fallback
	}

	meta := YouTubeMeta{
		Title:       social.Clip(strings.TrimSpace(social.FirstNonEmpty(raw.Title, fallback.Title)), maxYouTubeTitle),
		Description: strings.TrimSpace(social.FirstNonEmpty(raw.Description, fallback.Description)),
		Keywords:    fallback.Keywords,
	}
	if raw.Keywords != nil {
		keywords := make([]string, 0, len(raw.Keywords))
		for _, k := range raw.Keywords {
			if k != nil {
				keywords = append(keywords, fmt.Sprint(k))
			}
		}
		meta.Keywords = social.CleanTags(keywords, social.MaxYouTubeKeywords)
	}
	return meta
}

// WebsiteDescription rewrites base with the boost prompt. Without a boost
// prompt, or when generation fails, base is returned unchanged.
func (o *Orchestrator) WebsiteDescription(ctx context.Context, title, base, boost string) string {
	if strings.TrimSpace(boost) == "" {
		return base
	}
	rewritten := stripQuotes(o.generate(ctx, "website description", websiteDescriptionPrompt(title, base, boost)))
	return social.FirstNonEmpty(rewritten, base)
}

var promptContextFields = []struct{ key, label string }{
	{"market", "Market"},
	{"sku_or_url", "Sku Or Url"},
	{"title", "Title"},
	{"description", "Description"},
	{"affiliate_link", "Affiliate Link"},
	{"pinterest_extra", "Pinterest Extra"},
}

// PromptContext flattens the non-empty product fields into one line for
// image prompts.
func PromptContext(formValues map[string]string) string {
	bits := make([]string, 0, len(promptContextFields))
	for _, f := range promptContextFields {
		if v := formValues[f.key]; v != "" {
			bits = append(bits, f.label+": "+v)
		}
	}
	return strings.Join(bits, " | ")
}

func (o *Orchestrator) generate(ctx context.Context, step string, prompt openai.Prompt) string {
	if o.text == nil {
		return ""
	}
	text, err := o.text.GenerateText(ctx, prompt)
	if err != nil {
		slog.Warn("text generation failed, using fallback", "step", step, "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (o *Orchestrator) jsonList(ctx context.Context, step string, prompt openai.Prompt) ([]string, bool) {
	text := o.generate(ctx, step, prompt)
	if text == "" {
		return nil, false
	}
	var items []any
	if err := json.Unmarshal([]byte(stripFence(text)), &items); err != nil {
		slog.Warn("generated list was not a JSON array", "step", step, "response", social.Clip(text, 200))
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, fmt.Sprint(item))
		}
	}
	return out, true
}

// stripFence removes a surrounding ```json fence.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}

func stripQuotes(s string) string {
	return strings.TrimSpace(strings.NewReplacer(`"`, "", "'", "").Replace(s))
}

func stripHash(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = strings.TrimLeft(strings.TrimSpace(t), "#")
	}
	return out
}

func squash(tags []string) []string {
	for i, t := range tags {
		tags[i] = strings.ReplaceAll(t, " ", "")
	}
	return tags
}

func copyForm(form map[string]string) map[string]string {
	out := make(map[string]string, len(form)+1)
	for k, v := range form {
		out[k] = v
	}
	return out
}
