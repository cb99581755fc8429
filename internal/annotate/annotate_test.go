package annotate

import (
	"image"
	"image/color"
	"testing"

	"github.com/brainmri/tumorscan/internal/detect"
)

var testLabels = detect.LabelTable{0: "Glioma", 1: "Meningioma"}

// createInMemoryImage builds a solid-color RGBA test image.
func createInMemoryImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func pixelsEqual(a, b *image.RGBA) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	for y := a.Bounds().Min.Y; y < a.Bounds().Max.Y; y++ {
		for x := a.Bounds().Min.X; x < a.Bounds().Max.X; x++ {
			if a.RGBAAt(x, y) != b.RGBAAt(x, y) {
				return false
			}
		}
	}
	return true
}

func TestLabelText(t *testing.T) {
	tests := []struct {
		category   string
		confidence float64
		want       string
	}{
		{"meningioma", 0.8734, "meningioma (87.34%)"},
		{"glioma", 0.9, "glioma (90.00%)"},
		{"tumor", 1.0, "tumor (100.00%)"},
		{"pituitary", 0.005, "pituitary (0.50%)"},
	}
	for _, tt := range tests {
		if got := LabelText(tt.category, tt.confidence); got != tt.want {
			t.Errorf("LabelText(%q, %v) = %q, want %q", tt.category, tt.confidence, got, tt.want)
		}
	}
}

func TestAnnotate_EmptyDetectionsReturnsIdenticalCopy(t *testing.T) {
	src := createInMemoryImage(64, 64, color.RGBA{10, 20, 30, 255})
	a := New(testLabels)

	out := a.Annotate(src, nil)
	if out == src {
		t.Fatal("Annotate must return a fresh buffer, not the input")
	}
	if !pixelsEqual(out, src) {
		t.Error("with zero detections the output must be pixel-identical to the input")
	}
}

func TestAnnotate_DoesNotMutateSource(t *testing.T) {
	src := createInMemoryImage(64, 64, color.RGBA{10, 20, 30, 255})
	reference := createInMemoryImage(64, 64, color.RGBA{10, 20, 30, 255})
	a := New(testLabels)

	a.Annotate(src, []detect.Detection{
		{Box: detect.Box{X1: 10, Y1: 10, X2: 50, Y2: 50}, ClassID: 0, Confidence: 0.9},
	})
	if !pixelsEqual(src, reference) {
		t.Error("Annotate mutated the source image")
	}
}

func TestAnnotate_DrawsBoxOutline(t *testing.T) {
	base := color.RGBA{10, 20, 30, 255}
	src := createInMemoryImage(100, 100, base)
	a := New(testLabels)

	out := a.Annotate(src, []detect.Detection{
		{Box: detect.Box{X1: 20, Y1: 40, X2: 80, Y2: 90}, ClassID: 0, Confidence: 0.9},
	})

	// Outline pixels changed.
	if out.RGBAAt(20, 40) == base || out.RGBAAt(79, 89) == base {
		t.Error("box outline corners should be painted")
	}
	if out.RGBAAt(50, 40) == base {
		t.Error("box top edge should be painted")
	}
	// Interior untouched.
	if out.RGBAAt(50, 70) != base {
		t.Error("box interior should be untouched")
	}
	if out.Bounds() != src.Bounds() {
		t.Errorf("dimensions changed: got %v, want %v", out.Bounds(), src.Bounds())
	}
}

func TestAnnotate_FullyOutsideBoxSkipped(t *testing.T) {
	base := color.RGBA{10, 20, 30, 255}
	src := createInMemoryImage(50, 50, base)
	a := New(testLabels)

	out := a.Annotate(src, []detect.Detection{
		{Box: detect.Box{X1: 200, Y1: 200, X2: 300, Y2: 300}, ClassID: 0, Confidence: 0.9},
		{Box: detect.Box{X1: -100, Y1: -100, X2: -10, Y2: -10}, ClassID: 1, Confidence: 0.8},
	})

	if out.Bounds() != src.Bounds() {
		t.Errorf("dimensions: got %v, want %v", out.Bounds(), src.Bounds())
	}
	if !pixelsEqual(out, src) {
		t.Error("fully out-of-frame boxes must be skipped without drawing")
	}
}

func TestAnnotate_PartiallyOutsideBoxClamped(t *testing.T) {
	base := color.RGBA{10, 20, 30, 255}
	src := createInMemoryImage(50, 50, base)
	a := New(testLabels)

	out := a.Annotate(src, []detect.Detection{
		{Box: detect.Box{X1: -20, Y1: 30, X2: 25, Y2: 80}, ClassID: 0, Confidence: 0.5},
	})

	if out.Bounds() != src.Bounds() {
		t.Fatalf("dimensions: got %v, want %v", out.Bounds(), src.Bounds())
	}
	// Clamped top edge at y=30 inside the frame should be painted.
	if out.RGBAAt(10, 30) == base {
		t.Error("clamped box edge should be painted inside the frame")
	}
}

func TestAnnotate_BoxAtTopEdgePlacesLabelBelow(t *testing.T) {
	base := color.RGBA{10, 20, 30, 255}
	src := createInMemoryImage(200, 100, base)
	a := New(testLabels)

	out := a.Annotate(src, []detect.Detection{
		{Box: detect.Box{X1: 10, Y1: 0, X2: 190, Y2: 60}, ClassID: 1, Confidence: 0.8734},
	})

	// No room above the box, so the label background must appear just
	// below the top edge, inside the image.
	changed := false
	for y := 0; y < 20 && !changed; y++ {
		for x := 10; x < 60; x++ {
			if out.RGBAAt(x, y) != base {
				changed = true
				break
			}
		}
	}
	if !changed {
		t.Error("label should be drawn inside the canvas when the box touches the top edge")
	}
}

func TestAnnotate_UnknownClassStillDrawsBox(t *testing.T) {
	base := color.RGBA{10, 20, 30, 255}
	src := createInMemoryImage(100, 100, base)
	a := New(testLabels)

	out := a.Annotate(src, []detect.Detection{
		{Box: detect.Box{X1: 20, Y1: 40, X2: 80, Y2: 90}, ClassID: 99, Confidence: 0.6},
	})
	if out.RGBAAt(50, 40) == base {
		t.Error("box with unknown class id should still be drawn")
	}
}

func TestAnnotate_DuplicateCategoriesEachGetBox(t *testing.T) {
	base := color.RGBA{10, 20, 30, 255}
	src := createInMemoryImage(200, 100, base)
	a := New(testLabels)

	out := a.Annotate(src, []detect.Detection{
		{Box: detect.Box{X1: 10, Y1: 40, X2: 60, Y2: 90}, ClassID: 0, Confidence: 0.9},
		{Box: detect.Box{X1: 120, Y1: 40, X2: 180, Y2: 90}, ClassID: 0, Confidence: 0.7},
	})

	if out.RGBAAt(30, 40) == base {
		t.Error("first glioma box should be drawn")
	}
	if out.RGBAAt(150, 40) == base {
		t.Error("second glioma box should be drawn; the annotator never deduplicates")
	}
}

func TestCategoryColor_Deterministic(t *testing.T) {
	if categoryColor("glioma") != categoryColor("glioma") {
		t.Error("same category must map to the same color")
	}
	if categoryColor("glioma") == categoryColor("meningioma") {
		t.Error("distinct categories should get distinct colors")
	}
}
