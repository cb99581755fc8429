package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), 100, 255})
		}
	}
	return img
}

func TestDecodeUpload_PNG(t *testing.T) {
	data := encodePNG(t, testImage(32, 16))

	img, format, err := DecodeUploadBytes(data)
	if err != nil {
		t.Fatalf("DecodeUploadBytes failed: %v", err)
	}
	if format != "png" {
		t.Errorf("format: got %s, want png", format)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 16 {
		t.Errorf("dimensions: got %dx%d, want 32x16", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestDecodeUpload_JPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(20, 20), nil); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}

	_, format, err := DecodeUploadBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeUploadBytes failed: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format: got %s, want jpeg", format)
	}
}

func TestDecodeUpload_RejectsGIF(t *testing.T) {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, testImage(10, 10), nil); err != nil {
		t.Fatalf("failed to encode GIF: %v", err)
	}

	_, _, err := DecodeUploadBytes(buf.Bytes())
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("got %v, want ErrUnsupportedFormat", err)
	}
}

func TestDecodeUpload_RejectsGarbage(t *testing.T) {
	_, _, err := DecodeUploadBytes([]byte("definitely not an image"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("got %v, want ErrUnsupportedFormat", err)
	}
}

func TestImageCache_LoadAndEvict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	if err := os.WriteFile(path, encodePNG(t, testImage(8, 8)), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}

	cache := NewImageCache()
	img, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("width: got %d, want 8", img.Bounds().Dx())
	}

	// Second load is served from cache even after the file disappears.
	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}
	if _, err := cache.Load(path); err != nil {
		t.Errorf("cached Load failed: %v", err)
	}

	cache.Evict(path)
	if _, err := cache.Load(path); err == nil {
		t.Error("Load after Evict should hit the missing file")
	}
}

func TestImageCache_LoadMissingFile(t *testing.T) {
	cache := NewImageCache()
	if _, err := cache.Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}

func TestImageCache_Clear(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	if err := os.WriteFile(path, encodePNG(t, testImage(4, 4)), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}

	cache := NewImageCache()
	if _, err := cache.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cache.Clear()

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}
	if _, err := cache.Load(path); err == nil {
		t.Error("Load after Clear should re-read the (now missing) file")
	}
}
