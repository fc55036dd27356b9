package media

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Category is one of the fixed storage subfolders.
type Category string

const (
	CategoryOriginal  Category = "originals"
	CategoryGenerated Category = "generated"
	CategoryVideo     Category = "videos"
)

var (
	ErrNotFound    = errors.New("media not found")
	ErrInvalidPath = errors.New("invalid media path")
)

var defaultExtensions = map[Category]string{
	CategoryOriginal:  ".png",
	CategoryGenerated: ".png",
	CategoryVideo:     ".mp4",
}

// Store persists uploaded and generated media under a single root.
// All paths handed out are root-relative and slash separated.
type Store struct {
	root string
}

func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	for category := range defaultExtensions {
		if err := os.MkdirAll(filepath.Join(abs, string(category)), 0755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", category, err)
		}
	}
	return &Store{root: abs}, nil
}

func (s *Store) Root() string {
	return s.root
}

// Store writes data under category using a random file name. An empty ext
// falls back to the category's canonical extension.
func (s *Store) Store(data []byte, category Category, ext string) (string, error) {
	if ext == "" {
		ext = defaultExtensions[category]
	}
	if ext == "" {
		return "", fmt.Errorf("unknown media category %q", category)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	dir := filepath.Join(s.root, string(category))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create category dir: %w", err)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ToLower(ext)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("write media: %w", err)
	}

	return path.Join(string(category), name), nil
}

// SaveOriginal keeps the uploaded file's extension.
func (s *Store) SaveOriginal(data []byte, filename string) (string, error) {
	return s.Store(data, CategoryOriginal, strings.ToLower(filepath.Ext(filename)))
}

func (s *Store) SaveGenerated(data []byte) (string, error) {
	return s.Store(data, CategoryGenerated, "")
}

func (s *Store) SaveVideo(data []byte) (string, error) {
	return s.Store(data, CategoryVideo, "")
}

// Load returns the bytes stored at rel.
func (s *Store) Load(rel string) ([]byte, error) {
	if strings.TrimSpace(rel) == "" {
		return nil, fmt.Errorf("%w: missing path", ErrNotFound)
	}
	target, err := s.contain(rel)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, rel)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("read media: %w", err)
	}
	return data, nil
}

// Resolve returns the absolute path for rel when it lies inside the root and
// points at an existing regular file.
func (s *Store) Resolve(rel string) (string, bool) {
	if strings.TrimSpace(rel) == "" {
		return "", false
	}
	target, err := s.contain(rel)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return "", false
	}
	return target, true
}

func (s *Store) Exists(rel string) bool {
	_, ok := s.Resolve(rel)
	return ok
}

// contain joins rel onto the root and rejects anything that ends up outside it,
// symlinks included.
func (s *Store) contain(rel string) (string, error) {
	target := filepath.Join(s.root, filepath.FromSlash(rel))
	if !within(s.root, target) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		// Missing files are reported by the caller.
		return target, nil
	}
	root, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		root = s.root
	}
	if !within(root, resolved) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}
	return resolved, nil
}

func within(root, target string) bool {
	relative, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator)) && relative != "."
}
