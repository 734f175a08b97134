// Package assets is a local photo library: a directory of images listed
// newest first, with native pixel dimensions after EXIF orientation.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"spacelens/internal/common/fsutil"
	"spacelens/internal/sam3d"
	"spacelens/pkg/types"
)

// DefaultPageSize is used when Page is called with a non-positive limit.
const DefaultPageSize = 60

var (
	// ErrNotFound is returned for unknown asset ids.
	ErrNotFound = errors.New("asset not found")
	// ErrBadCursor is returned when a page cursor names no known asset.
	ErrBadCursor = errors.New("invalid cursor")
	// ErrOutsideLibrary is returned by Add for a path not directly in the
	// library directory.
	ErrOutsideLibrary = errors.New("outside the library")
	// ErrUnsupportedType is returned by Add for a file that is not a known
	// image type.
	ErrUnsupportedType = errors.New("unsupported image type")
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// namespace seeds the name-based asset ids.
var namespace = uuid.MustParse("8d3c5b52-64a8-4d0e-9b7e-3f1f3c1a9a10")

// ID returns the stable id for a file name.
func ID(name string) string {
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// Library holds the scanned assets. It is safe for concurrent use.
type Library struct {
	dir string
	log zerolog.Logger

	mu    sync.RWMutex
	byID  map[string]types.Asset
	order []string
}

// LoadDir scans dir for jpg, jpeg, png, gif and webp files. Files that cannot
// be decoded are skipped with a warning.
func LoadDir(dir string, log zerolog.Logger) (*Library, error) {
	abs, err := fsutil.ResolveDir(dir)
	if err != nil {
		return nil, fmt.Errorf("photos dir: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	l := &Library{dir: abs, log: log, byID: make(map[string]types.Asset)}
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		a, err := scan(filepath.Join(abs, e.Name()))
		if err != nil {
			log.Warn().Str("file", e.Name()).Err(err).Msg("skip unreadable photo")
			continue
		}
		l.byID[a.ID] = a
	}
	l.reorder()
	log.Info().Str("dir", abs).Int("assets", len(l.order)).Msg("photo library loaded")
	return l, nil
}

func isImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

func scan(path string) (types.Asset, error) {
	a, _, err := load(path)
	return a, err
}

// load decodes the file upright and describes it.
func load(path string) (types.Asset, image.Image, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return types.Asset{}, nil, err
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return types.Asset{}, nil, err
	}
	b := img.Bounds()
	return types.Asset{
		ID:      ID(filepath.Base(path)),
		URI:     path,
		Width:   b.Dx(),
		Height:  b.Dy(),
		ModTime: fi.ModTime(),
	}, img, nil
}

// reorder sorts newest first, ties broken by file name. Callers hold l.mu.
func (l *Library) reorder() {
	l.order = l.order[:0]
	for id := range l.byID {
		l.order = append(l.order, id)
	}
	sort.Slice(l.order, func(i, j int) bool {
		a, b := l.byID[l.order[i]], l.byID[l.order[j]]
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
		return filepath.Base(a.URI) < filepath.Base(b.URI)
	})
}

// Dir returns the absolute library directory.
func (l *Library) Dir() string { return l.dir }

// Len returns the number of assets.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Get returns the asset with the given id.
func (l *Library) Get(id string) (types.Asset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.byID[id]
	return a, ok
}

// Page returns up to limit assets after cursor. The cursor is the opaque
// next_cursor of the previous page; empty starts from the newest asset.
func (l *Library) Page(cursor string, limit int) (types.AssetsResponse, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 || n > len(l.order) {
			return types.AssetsResponse{}, ErrBadCursor
		}
		start = n
	}
	end := start + limit
	if end > len(l.order) {
		end = len(l.order)
	}
	out := types.AssetsResponse{Assets: make([]types.Asset, 0, end-start)}
	for _, id := range l.order[start:end] {
		out.Assets = append(out.Assets, l.byID[id])
	}
	if end < len(l.order) {
		out.HasMore = true
		out.NextCursor = strconv.Itoa(end)
	}
	return out, nil
}

// Add scans one file into the library. The file must live in the library
// directory; a relative path is taken relative to it.
func (l *Library) Add(path string) (types.Asset, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dir, path)
	}
	path = filepath.Clean(path)
	if filepath.Dir(path) != l.dir {
		return types.Asset{}, fmt.Errorf("%s: %w", path, ErrOutsideLibrary)
	}
	if !isImage(path) {
		return types.Asset{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedType)
	}
	a, err := scan(path)
	if err != nil {
		return types.Asset{}, err
	}
	l.mu.Lock()
	l.byID[a.ID] = a
	l.reorder()
	l.mu.Unlock()
	return a, nil
}

// Delete removes the asset's file and forgets it.
func (l *Library) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.byID[id]
	if !ok {
		return ErrNotFound
	}
	if err := os.Remove(a.URI); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	delete(l.byID, id)
	l.reorder()
	return nil
}

// Image returns the asset re-encoded as an upright JPEG named "<id>.jpg",
// the form the remote service expects for uploads.
func (l *Library) Image(asset types.Asset) (sam3d.Image, error) {
	a, ok := l.Get(asset.ID)
	if !ok {
		return sam3d.Image{}, ErrNotFound
	}
	img, err := imaging.Open(a.URI, imaging.AutoOrientation(true))
	if err != nil {
		return sam3d.Image{}, err
	}
	data, err := encodeJPEG(img)
	if err != nil {
		return sam3d.Image{}, err
	}
	return sam3d.Image{Filename: a.ID + ".jpg", ContentType: "image/jpeg", Data: data}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadFile reads one photo outside any library and returns it as an asset
// with its upload bytes.
func LoadFile(path string) (types.Asset, sam3d.Image, error) {
	a, img, err := load(path)
	if err != nil {
		return types.Asset{}, sam3d.Image{}, err
	}
	data, err := encodeJPEG(img)
	if err != nil {
		return types.Asset{}, sam3d.Image{}, err
	}
	return a, sam3d.Image{Filename: a.ID + ".jpg", ContentType: "image/jpeg", Data: data}, nil
}
