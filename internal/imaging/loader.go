package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"sync"
)

// ErrUnsupportedFormat indicates an upload that is neither JPEG nor PNG.
// It is rejected at the boundary, before any model invocation.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// DecodeUpload decodes uploaded image bytes, accepting only JPEG and PNG.
//
// The format is taken from the decoded stream, not from any client-supplied
// content type or filename. Returns the decoded image and the detected
// format name ("jpeg" or "png").
func DecodeUpload(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	switch format {
	case "jpeg", "png":
		return img, format, nil
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// DecodeUploadBytes is DecodeUpload over an in-memory byte slice.
func DecodeUploadBytes(data []byte) (image.Image, string, error) {
	return DecodeUpload(bytes.NewReader(data))
}

// ImageCache provides thread-safe caching of decoded images keyed by file
// path, so batch scans touching the same file repeatedly avoid redundant
// disk reads.
//
// Cached images remain in memory until Evict or Clear; batch runs over
// many large MRI files should clear the cache between batches.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates an empty cache ready for concurrent use.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load returns the cached image for path, reading and decoding it on the
// first request. Only JPEG and PNG files are accepted.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := DecodeUpload(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all cached images, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a single cached image by its exact load path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}
