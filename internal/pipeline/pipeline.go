// Package pipeline runs the full per-image flow: detect, aggregate and
// annotate, then encode the download artifact.
//
// One Run call owns every structure it creates; nothing is shared between
// concurrent runs except the injected detector, which guards itself.
// Batches process one image at a time and isolate per-image failures:
// a failed image is reported alongside the successes, never aborting the
// batch.
package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brainmri/tumorscan/internal/analyze"
	"github.com/brainmri/tumorscan/internal/annotate"
	"github.com/brainmri/tumorscan/internal/artifact"
	"github.com/brainmri/tumorscan/internal/detect"
	"github.com/brainmri/tumorscan/internal/info"
)

// Finding is one deduplicated category, its strongest confidence, and its
// descriptive text.
type Finding struct {
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// Result is the pipeline output bundle for one image.
type Result struct {
	// ID identifies this pipeline run, not the image.
	ID string `json:"id"`

	Findings   []Finding `json:"findings"`
	Detections int       `json:"detections"`

	// Skipped counts detections dropped for unknown class ids.
	Skipped int `json:"skipped,omitempty"`

	// AnnotatedJPEG is the encoded download artifact; Filename its
	// suggested download name.
	AnnotatedJPEG []byte `json:"-"`
	Filename      string `json:"filename"`

	Elapsed time.Duration `json:"-"`
}

// Runner wires the pipeline stages together. Construct once, use for the
// process lifetime.
type Runner struct {
	detector   detect.Detector
	aggregator *analyze.Aggregator
	annotator  *annotate.Annotator
	encoder    *artifact.Encoder
	resolver   *info.Resolver
	log        *logrus.Logger

	// now is the wall clock; swapped in tests for deterministic filenames.
	now func() time.Time
}

// Options tunes a Runner beyond its required collaborators.
type Options struct {
	JPEGQuality int
	Log         *logrus.Logger
	Now         func() time.Time
}

// NewRunner builds a Runner around an injected detector and resolver.
func NewRunner(detector detect.Detector, resolver *info.Resolver, opts Options) *Runner {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	labels := detector.Names()
	return &Runner{
		detector:   detector,
		aggregator: analyze.New(labels, opts.Log),
		annotator:  annotate.New(labels),
		encoder:    artifact.NewEncoder(opts.JPEGQuality),
		resolver:   resolver,
		log:        opts.Log,
		now:        opts.Now,
	}
}

// Run executes the full pipeline for one image. Zero detections is a
// valid outcome and yields a well-formed Result with empty findings and
// an annotated image identical to the input.
func (r *Runner) Run(ctx context.Context, img image.Image, threshold float64) (*Result, error) {
	start := r.now()
	id := uuid.NewString()

	dets, err := r.detector.Detect(ctx, img, threshold)
	if err != nil {
		return nil, err
	}

	findings, skipped := r.aggregator.Aggregate(dets)
	annotated := r.annotator.Annotate(img, dets)

	data, err := r.encoder.Encode(annotated)
	if err != nil {
		return nil, err
	}

	out := &Result{
		ID:            id,
		Findings:      make([]Finding, 0, len(findings)),
		Detections:    len(dets),
		Skipped:       skipped,
		AnnotatedJPEG: data,
		Filename:      artifact.Filename(r.now()),
		Elapsed:       r.now().Sub(start),
	}
	for _, f := range findings {
		out.Findings = append(out.Findings, Finding{
			Category:    f.Category,
			Confidence:  f.Confidence,
			Description: r.resolver.Describe(f.Category),
		})
	}

	r.log.WithFields(logrus.Fields{
		"run":        id,
		"detections": out.Detections,
		"findings":   len(out.Findings),
		"skipped":    skipped,
		"elapsed":    out.Elapsed,
	}).Info("scan complete")

	return out, nil
}

// BatchItem is one named image in a batch run.
type BatchItem struct {
	Name  string
	Image image.Image
}

// BatchResult pairs an item's name with its result or its error. Exactly
// one of Result and Err is set.
type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// RunBatch processes items sequentially with per-image isolation. The
// context is checked between images: cancelling stops before the next
// image, never mid-pipeline. Already-produced results are returned along
// with one cancellation error entry per unprocessed item.
func (r *Runner) RunBatch(ctx context.Context, items []BatchItem, threshold float64) []BatchResult {
	results := make([]BatchResult, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			for _, rest := range items[i:] {
				results = append(results, BatchResult{Name: rest.Name, Err: err})
			}
			break
		}

		res, err := r.Run(ctx, item.Image, threshold)
		if err != nil {
			r.log.WithError(err).WithField("image", item.Name).Error("scan failed")
			results = append(results, BatchResult{Name: item.Name, Err: err})
			continue
		}
		results = append(results, BatchResult{Name: item.Name, Result: res})
	}
	return results
}
