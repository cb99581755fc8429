// Package artifact serializes annotated images into downloadable byte
// streams.
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// ErrEncode indicates the image buffer could not be serialized. It always
// propagates to the caller; a partial or corrupt artifact is never
// offered for download.
var ErrEncode = errors.New("encoding failed")

// DefaultJPEGQuality is the encoder quality used when none is configured.
const DefaultJPEGQuality = 90

// Encoder turns pixel buffers into JPEG download artifacts.
type Encoder struct {
	quality int
}

// NewEncoder creates an Encoder with the given JPEG quality; values
// outside [1,100] fall back to DefaultJPEGQuality.
func NewEncoder(quality int) *Encoder {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Encoder{quality: quality}
}

// Encode serializes img to JPEG bytes. A zero-area buffer fails with a
// wrapped ErrEncode.
func (e *Encoder) Encode(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: zero-area image %dx%d", ErrEncode, bounds.Dx(), bounds.Dy())
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(e.quality)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// Filename suggests a download name derived from the given wall-clock
// time: tumor_result_<YYYYMMDD_HHMMSS>.jpg. The name is only a download
// label, never an internal identity.
func Filename(now time.Time) string {
	return fmt.Sprintf("tumor_result_%s.jpg", now.Format("20060102_150405"))
}
