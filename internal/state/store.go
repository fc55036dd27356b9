package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// ErrUnknownPlatform is returned by ResetPlatform for platforms outside the
// resettable set.
var ErrUnknownPlatform = errors.New("unknown platform")

var resettablePlatforms = map[string]struct{}{
	PlatformPinterest: {},
	PlatformInstagram: {},
	PlatformYouTube:   {},
	PlatformTikTok:    {},
}

var resetPreviewFields = map[string][]string{
	PlatformInstagram: {
		"instagram_caption",
		"instagram_hashtags",
		"instagram_hashtags_payload",
		"instagram_image_path",
		"instagram_image_url",
		"instagram_image_public_url",
		"instagram_image_data",
	},
	PlatformYouTube: {
		"youtube_title",
		"youtube_description",
		"youtube_keywords",
		"youtube_keywords_payload",
	},
	PlatformTikTok: {
		"tiktok_caption",
		"tiktok_hashtags",
		"tiktok_hashtags_payload",
	},
}

// IsResettable reports whether platform can be passed to ResetPlatform.
func IsResettable(platform string) bool {
	_, ok := resettablePlatforms[strings.ToLower(strings.TrimSpace(platform))]
	return ok
}

// Store is the JSON file backed product state. Every read-modify-write cycle
// runs under an exclusive advisory lock on "<path>.lock".
type Store struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Update lists the parts of an entry to merge. Nil fields are left untouched.
type Update struct {
	FormValues map[string]string
	Preview    Preview
	Platforms  map[string]Snapshot
	Assets     map[string]string
	Results    map[string]Result
}

// NormalizeProductID trims the operator supplied SKU, ASIN or URL.
func NormalizeProductID(raw string) string {
	return strings.TrimSpace(raw)
}

// Load reads the state document. It never fails: a missing, unreadable or
// malformed document yields an empty state.
func (s *Store) Load(ctx context.Context) AppState {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		slog.Warn("state read lock unavailable, reading without it", "path", s.path, "error", err)
	} else {
		defer s.unlock()
	}

	return s.read()
}

// Save overwrites the state document.
func (s *Store) Save(ctx context.Context, st AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.unlock()

	return s.write(st)
}

// Entry returns a copy of the stored entry for id.
func (s *Store) Entry(ctx context.Context, id string) (*Entry, bool) {
	if id == "" {
		return nil, false
	}
	st := s.Load(ctx)
	entry, ok := st.Products[id]
	return entry, ok
}

// LastEntry returns the most recently touched product.
func (s *Store) LastEntry(ctx context.Context) (string, *Entry, bool) {
	st := s.Load(ctx)
	if st.LastProductID == "" {
		return "", nil, false
	}
	entry, ok := st.Products[st.LastProductID]
	if !ok {
		return "", nil, false
	}
	return st.LastProductID, entry, true
}

// Result returns the stored publish result for a platform.
func (s *Store) Result(ctx context.Context, id, platform string) (Result, bool) {
	entry, ok := s.Entry(ctx, id)
	if !ok {
		return nil, false
	}
	result, ok := entry.Results[platform]
	return result, ok && result != nil
}

// WebsiteProductURL returns the storefront URL published for id, if any.
func (s *Store) WebsiteProductURL(ctx context.Context, id string) string {
	result, ok := s.Result(ctx, id, PlatformWebsite)
	if !ok {
		return ""
	}
	return result.String("product_url")
}

// Upsert merges update into the entry for id, creating it when absent, and
// marks id as the last product.
func (s *Store) Upsert(ctx context.Context, id string, update Update) error {
	if id == "" {
		return nil
	}
	return s.mutate(ctx, func(st *AppState) (bool, error) {
		entry, ok := st.Products[id]
		if !ok || entry == nil {
			entry = newEntry()
		}
		entry.normalize()

		if update.FormValues != nil {
			values := make(map[string]string, len(update.FormValues))
			for k, v := range update.FormValues {
				values[k] = v
			}
			entry.FormValues = values
		}

		if update.Preview != nil {
			preview, err := sanitizePreview(update.Preview)
			if err != nil {
				return false, fmt.Errorf("sanitize preview: %w", err)
			}
			entry.Preview = preview
		}

		for k, v := range update.Assets {
			entry.Assets[k] = v
		}

		for k, v := range update.Results {
			safe, err := jsonSafe(v)
			if err != nil {
				return false, fmt.Errorf("encode %s result: %w", k, err)
			}
			entry.Results[k] = safe
		}

		for name, payload := range update.Platforms {
			safe, err := jsonSafe(payload)
			if err != nil {
				return false, fmt.Errorf("encode %s snapshot: %w", name, err)
			}
			snapshot := entry.Platforms[name]
			if snapshot == nil {
				snapshot = Snapshot{}
			}
			for k, v := range safe {
				snapshot[k] = v
			}
			entry.Platforms[name] = snapshot
		}

		st.Products[id] = entry
		st.LastProductID = id
		return true, nil
	})
}

// ResetPlatform clears one platform's state for id. Resetting pinterest
// removes the whole entry. Unknown products are a no-op.
func (s *Store) ResetPlatform(ctx context.Context, id, platform string) error {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if _, ok := resettablePlatforms[platform]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
	if id == "" {
		return nil
	}

	return s.mutate(ctx, func(st *AppState) (bool, error) {
		entry, ok := st.Products[id]
		if !ok || entry == nil {
			return false, nil
		}

		if platform == PlatformPinterest {
			delete(st.Products, id)
			if st.LastProductID == id {
				st.LastProductID = ""
			}
			return true, nil
		}

		entry.normalize()
		switch platform {
		case PlatformInstagram:
			delete(entry.Platforms, PlatformInstagramFeed)
			delete(entry.Platforms, PlatformInstagramStory)
			delete(entry.Assets, AssetInstagramImage)
		case PlatformYouTube, PlatformTikTok:
			delete(entry.Platforms, platform)
			delete(entry.Results, platform)
		}
		for _, field := range resetPreviewFields[platform] {
			delete(entry.Preview, field)
		}
		return true, nil
	})
}

func (s *Store) mutate(ctx context.Context, fn func(*AppState) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.unlock()

	st := s.read()
	changed, err := fn(&st)
	if err != nil || !changed {
		return err
	}
	return s.write(st)
}

func (s *Store) acquire(ctx context.Context) error {
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock state file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock state file: %s is busy", s.lock.Path())
	}
	return nil
}

func (s *Store) unlock() {
	if err := s.lock.Unlock(); err != nil {
		slog.Warn("failed to release state lock", "path", s.lock.Path(), "error", err)
	}
}

func (s *Store) read() AppState {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to read state file, starting empty", "path", s.path, "error", err)
		}
		return emptyState()
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return emptyState()
	}

	st, err := decode(raw)
	if err != nil {
		backup := s.backupCorrupt(raw)
		slog.Warn("state file is invalid, starting empty", "path", s.path, "backup", backup, "error", err)
		return emptyState()
	}
	return st
}

func decode(raw []byte) (AppState, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return AppState{}, fmt.Errorf("parse document: %w", err)
	}
	if doc == nil {
		return AppState{}, errors.New("document is not an object")
	}

	st := emptyState()
	if productsRaw, ok := doc["products"]; ok && !isNull(productsRaw) {
		var products map[string]*Entry
		if err := json.Unmarshal(productsRaw, &products); err != nil {
			return AppState{}, fmt.Errorf("parse products: %w", err)
		}
		for id, entry := range products {
			if entry == nil {
				continue
			}
			entry.normalize()
			st.Products[id] = entry
		}
	}
	if lastRaw, ok := doc["last_product_id"]; ok && !isNull(lastRaw) {
		if err := json.Unmarshal(lastRaw, &st.LastProductID); err != nil {
			return AppState{}, fmt.Errorf("parse last_product_id: %w", err)
		}
	}
	if _, ok := st.Products[st.LastProductID]; !ok {
		st.LastProductID = ""
	}
	return st, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// write replaces the document through a temp file so readers never see a
// partially written state.
func (s *Store) write(st AppState) error {
	if st.Products == nil {
		st.Products = map[string]*Entry{}
	}
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// backupCorrupt copies raw next to the state file once per distinct content.
// A file that stays corrupt across reads keeps its first backup.
func (s *Store) backupCorrupt(raw []byte) string {
	pattern := filepath.Base(s.path) + ".corrupt-*"
	existing, _ := filepath.Glob(filepath.Join(filepath.Dir(s.path), pattern))
	for _, path := range existing {
		if prev, err := os.ReadFile(path); err == nil && bytes.Equal(prev, raw) {
			return path
		}
	}

	f, err := os.CreateTemp(filepath.Dir(s.path), pattern)
	if err != nil {
		slog.Error("failed to back up corrupt state file", "path", s.path, "error", err)
		return ""
	}
	backup := f.Name()
	_, err = f.Write(raw)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(backup)
		slog.Error("failed to back up corrupt state file", "path", backup, "error", err)
		return ""
	}
	return backup
}

func sanitizePreview(preview Preview) (Preview, error) {
	stripped := make(map[string]any, len(preview))
	for k, v := range preview {
		stripped[k] = v
	}
	for _, field := range binaryPreviewFields {
		delete(stripped, field)
	}
	safe, err := jsonSafe(stripped)
	if err != nil {
		return nil, err
	}
	return Preview(safe), nil
}
