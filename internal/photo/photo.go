// Package photo stores task completion photos on disk: originals under
// uploads/task-photos with generated names, thumbnails alongside under
// thumbnails/. Database rows reference files by their web path.
package photo

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/mjimenez-dev/casita/internal/apperr"
)

const (
	// MaxUploadSize caps a single photo upload.
	MaxUploadSize = 10 << 20

	thumbnailSize    = 300
	thumbnailQuality = 85

	// WebPrefix is the URL prefix files are served under.
	WebPrefix = "/uploads"

	photoDir = "task-photos"
	thumbDir = "thumbnails"
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// SavedFile describes a stored photo pair.
type SavedFile struct {
	Filename      string // generated name on disk
	FilePath      string // web path of the original
	ThumbnailPath string // web path of the thumbnail, "" if generation failed
	Size          int64
	MimeType      string
}

type Store struct {
	root   string // filesystem dir that WebPrefix maps to
	logger *slog.Logger
}

// NewStore prepares the upload directories under root.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	for _, dir := range []string{
		filepath.Join(root, photoDir),
		filepath.Join(root, photoDir, thumbDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &Store{root: root, logger: logger.With("component", "photo")}, nil
}

// Save validates and writes one uploaded photo, then generates its
// thumbnail. The stored name is a fresh UUID so uploads never collide or
// leak the original filename. A thumbnail failure is logged, not fatal.
func (s *Store) Save(src io.Reader, originalName string) (*SavedFile, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	mimeType, ok := allowedExtensions[ext]
	if !ok {
		return nil, apperr.New(apperr.Validation, "unsupported file type, use jpg, png or webp")
	}

	name := uuid.NewString() + ext
	diskPath := filepath.Join(s.root, photoDir, name)

	dst, err := os.Create(diskPath)
	if err != nil {
		return nil, fmt.Errorf("create photo file: %w", err)
	}

	// +1 so an oversized body is detectable rather than silently truncated
	size, err := io.Copy(dst, io.LimitReader(src, MaxUploadSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(diskPath)
		return nil, fmt.Errorf("write photo file: %w", err)
	}
	if size > MaxUploadSize {
		os.Remove(diskPath)
		return nil, apperr.New(apperr.Validation, "photo exceeds the 10MB limit")
	}

	saved := &SavedFile{
		Filename: name,
		FilePath: path.Join(WebPrefix, photoDir, name),
		Size:     size,
		MimeType: mimeType,
	}

	thumbName := "thumb_" + strings.TrimSuffix(name, ext) + ".jpg"
	thumbDisk := filepath.Join(s.root, photoDir, thumbDir, thumbName)
	if err := makeThumbnail(diskPath, thumbDisk); err != nil {
		s.logger.Warn("thumbnail generation failed", "file", name, "error", err)
	} else {
		saved.ThumbnailPath = path.Join(WebPrefix, photoDir, thumbDir, thumbName)
	}

	return saved, nil
}

// Delete removes stored files by web path, tolerating already-missing
// ones. Paths outside the upload tree are refused.
func (s *Store) Delete(webPaths ...string) {
	for _, p := range webPaths {
		if p == "" {
			continue
		}
		diskPath, err := s.diskPath(p)
		if err != nil {
			s.logger.Warn("skipping file removal", "path", p, "error", err)
			continue
		}
		if err := os.Remove(diskPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("file removal failed", "path", p, "error", err)
		}
	}
}

// Root returns the filesystem dir that WebPrefix serves from.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) diskPath(webPath string) (string, error) {
	rel := strings.TrimPrefix(webPath, WebPrefix+"/")
	if rel == webPath {
		return "", fmt.Errorf("path %q is outside %s", webPath, WebPrefix)
	}
	rel = filepath.FromSlash(path.Clean(rel))
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the upload dir", webPath)
	}
	return filepath.Join(s.root, rel), nil
}

// makeThumbnail scales the image to fit within thumbnailSize on its
// longer edge and writes it as JPEG.
func makeThumbnail(srcPath, dstPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > h {
		h = h * thumbnailSize / w
		w = thumbnailSize
	} else {
		w = w * thumbnailSize / h
		h = thumbnailSize
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	thumb := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(thumb, thumb.Bounds(), img, bounds, draw.Over, nil)

	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create thumbnail: %w", err)
	}
	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		out.Close()
		os.Remove(dstPath)
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return out.Close()
}
