package detect

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ErrInvalidConfiguration indicates a request parameter that must be
// rejected before the model is invoked, such as a confidence threshold
// outside [0,1].
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Box is an axis-aligned bounding box in image pixel space.
//
// (X1, Y1) is the top-left corner and (X2, Y2) the bottom-right corner,
// with X1 < X2 and Y1 < Y2.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

// Area returns the box area; zero or negative extents yield 0.
func (b Box) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection-over-union of two boxes, in [0,1].
func (b Box) IoU(o Box) float64 {
	ix1 := max64(b.X1, o.X1)
	iy1 := max64(b.Y1, o.Y1)
	ix2 := min64(b.X2, o.X2)
	iy2 := min64(b.Y2, o.Y2)

	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Detection is one raw output unit from the model: a bounding box, the
// class id within the model's label table, and a confidence in [0,1].
type Detection struct {
	Box        Box     `json:"box"`
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
}

// LabelTable maps a model class id to its category name. The table is
// owned by the model and fixed for the model's lifetime.
type LabelTable map[int]string

// Lookup resolves a class id to its raw (unnormalized) category name.
// The second return is false when the id is outside the table.
func (t LabelTable) Lookup(classID int) (string, bool) {
	name, ok := t[classID]
	return name, ok
}

// Detector is the abstract detection model boundary. The pipeline works
// unchanged with any implementation honoring this contract.
type Detector interface {
	// Detect runs the model on img and returns every detection whose
	// confidence clears threshold. An empty result is not an error.
	// The input image is never mutated.
	Detect(ctx context.Context, img image.Image, threshold float64) ([]Detection, error)

	// Names returns the model's fixed label table.
	Names() LabelTable
}

// ValidateThreshold rejects confidence thresholds outside [0,1].
func ValidateThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: confidence threshold %v outside [0,1]", ErrInvalidConfiguration, threshold)
	}
	return nil
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
