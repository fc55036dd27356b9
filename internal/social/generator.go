package social

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

type Platform string

const (
	PlatformPinterest Platform = "pinterest"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformWebsite   Platform = "website"
)

var AllPlatforms = []Platform{
	PlatformPinterest,
	PlatformInstagram,
	PlatformTikTok,
	PlatformYouTube,
	PlatformWebsite,
}

// Title returns the display name used in operator messages.
func (p Platform) Title() string {
	switch p {
	case PlatformTikTok:
		return "Tiktok"
	case PlatformYouTube:
		return "Youtube"
	}
	s := string(p)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Hashtag limits per platform.
const (
	MaxPinterestTags   = 8
	MaxInstagramTags   = 15
	MaxTikTokTags      = 10
	MaxYouTubeKeywords = 12
)

// Fallback limits used when the text generator is unavailable.
const (
	FallbackPinterestTags   = 6
	FallbackInstagramTags   = 10
	FallbackTikTokTags      = 6
	FallbackYouTubeKeywords = 8
)

// NormalizeHashtags strips leading '#' and inner spaces, dropping empties.
func NormalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ReplaceAll(strings.TrimLeft(strings.TrimSpace(tag), "#"), " ", "")
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// HashtagBlock renders tags as "#a #b #c".
func HashtagBlock(tags []string) string {
	normalized := NormalizeHashtags(tags)
	if len(normalized) == 0 {
		return ""
	}
	return "#" + strings.Join(normalized, " #")
}

// InstagramCaption separates the caption from the hashtag block with a blank line.
func InstagramCaption(caption string, tags []string) string {
	caption = strings.TrimSpace(caption)
	block := HashtagBlock(tags)
	switch {
	case block == "":
		return caption
	case caption == "":
		return block
	default:
		return fmt.Sprintf("%s\n\n%s", caption, block)
	}
}

// TikTokCaption appends the hashtag block on the same line.
func TikTokCaption(caption string, tags []string) string {
	block := HashtagBlock(tags)
	if block == "" {
		return strings.TrimSpace(caption)
	}
	if caption == "" {
		return block
	}
	return strings.TrimSpace(caption + " " + block)
}

// PinterestDescription appends hashtags to the pin description.
func PinterestDescription(description string, tags []string) string {
	block := HashtagBlock(tags)
	if block == "" {
		return description
	}
	return strings.TrimSpace(description + " " + block)
}

// ParseTags accepts a JSON array or a comma separated list.
func ParseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if item == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	out := []string{}
	for _, segment := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(segment); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TagsPayload encodes tags as the JSON array carried in hidden form fields.
func TagsPayload(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// CleanTags trims entries, drops empties and caps the result at max.
func CleanTags(tags []string, max int) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// KeywordFallback splits title (or def when title is blank) into at most n words.
func KeywordFallback(title, def string, n int) []string {
	if strings.TrimSpace(title) == "" {
		title = def
	}
	return CleanTags(strings.Fields(title), n)
}

// HashtagFallback is KeywordFallback lowercased.
func HashtagFallback(title, def string, n int) []string {
	words := KeywordFallback(title, def, n)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// Clip cuts s to at most n runes.
func Clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// TruncateText shortens text on a word boundary and adds an ellipsis.
func TruncateText(text string, maxLength int) string {
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}
	if maxLength <= 3 {
		return Clip(text, maxLength)
	}

	truncated := Clip(text, maxLength-3)
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}

// FirstNonEmpty returns the first value that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
