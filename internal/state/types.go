package state

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Platform channel keys used in Entry.Platforms and Entry.Results.
const (
	PlatformPinterest      = "pinterest"
	PlatformInstagram      = "instagram"
	PlatformInstagramFeed  = "instagram_feed"
	PlatformInstagramStory = "instagram_story"
	PlatformYouTube        = "youtube"
	PlatformTikTok         = "tiktok"
	PlatformWebsite        = "website"
)

// Asset keys that survive platform resets.
const (
	AssetOriginalImage  = "original_image_path"
	AssetGeneratedImage = "generated_image_path"
	AssetGeneratedVideo = "generated_video_path"
	AssetInstagramImage = "instagram_image_path"
)

// Preview fields holding base64 image data. They are rebuilt from media paths
// and never written to the state file.
var binaryPreviewFields = []string{"image_data", "instagram_image_data"}

// AppState is the root persisted document.
type AppState struct {
	Products      map[string]*Entry `json:"products"`
	LastProductID string            `json:"last_product_id"`
}

func emptyState() AppState {
	return AppState{Products: map[string]*Entry{}}
}

// Entry is the resumable record for one product id.
type Entry struct {
	FormValues map[string]string   `json:"form_values,omitempty"`
	Preview    Preview             `json:"preview,omitempty"`
	Platforms  map[string]Snapshot `json:"platforms"`
	Assets     map[string]string   `json:"assets"`
	Results    map[string]Result   `json:"results"`
}

func newEntry() *Entry {
	return &Entry{
		Platforms: map[string]Snapshot{},
		Assets:    map[string]string{},
		Results:   map[string]Result{},
	}
}

func (e *Entry) normalize() {
	if e.Platforms == nil {
		e.Platforms = map[string]Snapshot{}
	}
	if e.Assets == nil {
		e.Assets = map[string]string{}
	}
	if e.Results == nil {
		e.Results = map[string]Result{}
	}
}

// PlatformStatus returns the stored status for a platform channel, or "".
func (e *Entry) PlatformStatus(platform string) string {
	if e == nil {
		return ""
	}
	return e.Platforms[platform].String("status")
}

var truthyValues = map[string]struct{}{"1": {}, "true": {}, "yes": {}, "on": {}}

// IsTruthy reports whether a form flag such as use_affiliate_link is set.
func IsTruthy(v string) bool {
	_, ok := truthyValues[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// Preview is the generated creative bundle. Values are JSON native
// (string, float64, bool, []any, map[string]any).
type Preview map[string]any

// Snapshot is the last known status and metadata for one platform channel.
type Snapshot map[string]any

// Result is a terminal publish outcome (ids, urls) for one platform.
type Result map[string]any

func (p Preview) String(key string) string   { return stringValue(p[key]) }
func (s Snapshot) String(key string) string  { return stringValue(s[key]) }
func (r Result) String(key string) string    { return stringValue(r[key]) }
func (p Preview) Strings(key string) []string { return stringsValue(p[key]) }
func (r Result) Strings(key string) []string  { return stringsValue(r[key]) }

// Clone returns a deep copy of the preview.
func (p Preview) Clone() Preview {
	if p == nil {
		return nil
	}
	cloned, err := jsonSafe(map[string]any(p))
	if err != nil {
		out := make(Preview, len(p))
		for k, v := range p {
			out[k] = v
		}
		return out
	}
	return Preview(cloned)
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func stringsValue(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := strings.TrimSpace(stringValue(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// jsonSafe normalizes arbitrary values into their JSON decoded form so that
// what is held in memory matches what a later Load would return.
func jsonSafe(in map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
