package photo

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mjimenez-dev/casita/internal/apperr"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestSaveJPEG(t *testing.T) {
	s := setupStore(t)

	data := testJPEG(t, 640, 480)
	saved, err := s.Save(bytes.NewReader(data), "kitchen.jpg")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.MimeType != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg", saved.MimeType)
	}
	if saved.Size != int64(len(data)) {
		t.Errorf("size = %d, want %d", saved.Size, len(data))
	}
	if saved.Filename == "kitchen.jpg" {
		t.Error("stored name should not be the original filename")
	}
	if !strings.HasPrefix(saved.FilePath, "/uploads/task-photos/") {
		t.Errorf("file_path = %q, want /uploads/task-photos/ prefix", saved.FilePath)
	}

	// Original exists on disk
	diskPath := filepath.Join(s.Root(), "task-photos", saved.Filename)
	if _, err := os.Stat(diskPath); err != nil {
		t.Errorf("stored file missing: %v", err)
	}

	// Thumbnail was generated and fits the bounding box
	if saved.ThumbnailPath == "" {
		t.Fatal("expected a thumbnail")
	}
	thumbDisk := filepath.Join(s.Root(), "task-photos", "thumbnails", filepath.Base(saved.ThumbnailPath))
	tf, err := os.Open(thumbDisk)
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	defer tf.Close()
	cfg, _, err := image.DecodeConfig(tf)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != 300 {
		t.Errorf("thumbnail width = %d, want 300", cfg.Width)
	}
	if cfg.Height != 225 {
		t.Errorf("thumbnail height = %d, want 225", cfg.Height)
	}
}

func TestSavePNG(t *testing.T) {
	s := setupStore(t)

	img := image.NewRGBA(image.Rect(0, 0, 10, 20))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	saved, err := s.Save(&buf, "tiny.PNG")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.MimeType != "image/png" {
		t.Errorf("mime = %q, want image/png", saved.MimeType)
	}
	if !strings.HasSuffix(saved.Filename, ".png") {
		t.Errorf("filename = %q, want lowercased .png extension", saved.Filename)
	}
	if saved.ThumbnailPath == "" {
		t.Error("expected a thumbnail for png input")
	}
}

func TestSaveRejectsExtension(t *testing.T) {
	s := setupStore(t)

	_, err := s.Save(strings.NewReader("#!/bin/sh"), "evil.sh")
	if apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestSaveRejectsOversized(t *testing.T) {
	s := setupStore(t)

	big := bytes.NewReader(make([]byte, MaxUploadSize+1))
	_, err := s.Save(big, "huge.jpg")
	if apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected Validation, got %v", err)
	}

	// No partial file left behind
	entries, err := os.ReadDir(filepath.Join(s.Root(), "task-photos"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			t.Errorf("unexpected leftover file %s", e.Name())
		}
	}
}

func TestSaveBadImageStillStored(t *testing.T) {
	s := setupStore(t)

	// Valid extension, garbage content: the original is kept, the
	// thumbnail just fails.
	saved, err := s.Save(strings.NewReader("not an image"), "broken.jpg")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ThumbnailPath != "" {
		t.Errorf("thumbnail_path = %q, want empty", saved.ThumbnailPath)
	}
}

func TestDelete(t *testing.T) {
	s := setupStore(t)

	saved, err := s.Save(bytes.NewReader(testJPEG(t, 100, 100)), "x.jpg")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	s.Delete(saved.FilePath, saved.ThumbnailPath)

	diskPath := filepath.Join(s.Root(), "task-photos", saved.Filename)
	if _, err := os.Stat(diskPath); !os.IsNotExist(err) {
		t.Error("original should be removed")
	}

	// Deleting again is a no-op
	s.Delete(saved.FilePath, "", "/uploads/task-photos/never-existed.jpg")
}

func TestDeleteRefusesEscape(t *testing.T) {
	s := setupStore(t)

	outside := filepath.Join(filepath.Dir(s.Root()), "keep.txt")
	if err := os.WriteFile(outside, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	s.Delete("/uploads/../keep.txt", "/etc/passwd")

	if _, err := os.Stat(outside); err != nil {
		t.Errorf("file outside upload dir was touched: %v", err)
	}
}
