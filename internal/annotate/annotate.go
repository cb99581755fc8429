// Package annotate renders detection overlays onto a copy of the source
// image.
//
// Annotation never mutates the input pixel buffer: callers display the
// original and annotated images side by side. Every detection gets its own
// box and label in input order, with later draws painting over earlier
// ones. Boxes are clamped to the image bounds; a box left with no overlap
// after clamping is skipped silently so slightly broken geometry never
// fails the whole image.
package annotate

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/clone"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/brainmri/tumorscan/internal/analyze"
	"github.com/brainmri/tumorscan/internal/detect"
)

const (
	boxThickness = 2
	labelPad     = 2
)

// LabelText formats the display label for one detection: the normalized
// category name and the confidence as a percentage with two decimals.
// This exact format is part of the display contract.
func LabelText(category string, confidence float64) string {
	return fmt.Sprintf("%s (%.2f%%)", category, confidence*100)
}

// Annotator draws detection overlays using a fixed label table.
type Annotator struct {
	labels detect.LabelTable
}

// New creates an Annotator over the given label table.
func New(labels detect.LabelTable) *Annotator {
	return &Annotator{labels: labels}
}

// Annotate returns a fresh annotated copy of img. The source image is
// never modified; with zero detections the copy is pixel-identical to the
// input.
//
// Detections with a class id outside the label table are drawn with the
// literal category "unknown" rather than dropped: the box geometry is
// still valid signal even when the name is not.
func (a *Annotator) Annotate(img image.Image, dets []detect.Detection) *image.RGBA {
	out := clone.AsRGBA(img)
	bounds := out.Bounds()

	for _, d := range dets {
		rect, ok := clampBox(d.Box, bounds)
		if !ok {
			continue
		}

		category := "unknown"
		if name, err := analyze.Resolve(d.ClassID, a.labels); err == nil {
			category = name
		}

		col := categoryColor(category)
		drawRect(out, rect, col, boxThickness)
		drawBoxLabel(out, rect, LabelText(category, d.Confidence), col)
	}
	return out
}

// clampBox clips a detection box to the image bounds, rounding to pixel
// coordinates. Returns false when nothing of the box overlaps the image.
func clampBox(b detect.Box, bounds image.Rectangle) (image.Rectangle, bool) {
	r := image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2)).Intersect(bounds)
	if r.Empty() {
		return image.Rectangle{}, false
	}
	return r, true
}

// drawRect paints a rectangle outline of the given thickness, clipped to
// the image bounds.
func drawRect(img *image.RGBA, rect image.Rectangle, col color.RGBA, thickness int) {
	bounds := img.Bounds()
	for t := 0; t < thickness; t++ {
		top := rect.Min.Y + t
		bottom := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			setIfInside(img, bounds, x, top, col)
			setIfInside(img, bounds, x, bottom, col)
		}
		left := rect.Min.X + t
		right := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			setIfInside(img, bounds, left, y, col)
			setIfInside(img, bounds, right, y, col)
		}
	}
}

func setIfInside(img *image.RGBA, bounds image.Rectangle, x, y int, col color.RGBA) {
	if image.Pt(x, y).In(bounds) {
		img.SetRGBA(x, y, col)
	}
}

// drawBoxLabel places text above the box's top edge, or below it when the
// box touches the top of the canvas, clamped so it never renders
// off-canvas horizontally.
func drawBoxLabel(img *image.RGBA, rect image.Rectangle, text string, bg color.RGBA) {
	bounds := img.Bounds()
	face := basicfont.Face7x13

	textWidth := font.MeasureString(face, text).Ceil()
	labelW := textWidth + 2*labelPad
	labelH := face.Height + 2*labelPad

	x := rect.Min.X
	if x+labelW > bounds.Max.X {
		x = bounds.Max.X - labelW
	}
	if x < bounds.Min.X {
		x = bounds.Min.X
	}

	y := rect.Min.Y - labelH
	if y < bounds.Min.Y {
		// Box touches the top edge: place the label inside, below it.
		y = rect.Min.Y
	}

	label := image.Rect(x, y, x+labelW, y+labelH).Intersect(bounds)
	if label.Empty() {
		return
	}
	draw.Draw(img, label, image.NewUniform(bg), image.Point{}, draw.Src)

	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelTextColor(bg)),
		Face: face,
		Dot:  fixed.P(x+labelPad, y+labelPad+face.Ascent),
	}
	drawer.DrawString(text)
}

// categoryColor derives a stable, saturated box color from the category
// name so the same category always gets the same hue across images.
func categoryColor(category string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(category))
	hue := float64(h.Sum32() % 360)

	r, g, b := colorful.Hsv(hue, 0.78, 0.92).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// labelTextColor picks black or white text for contrast against the label
// background.
func labelTextColor(bg color.RGBA) color.RGBA {
	// Perceived luminance, ITU-R BT.601 weights.
	lum := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if lum > 150 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}
