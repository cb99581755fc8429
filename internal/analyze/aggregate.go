// Package analyze collapses raw detections into the stable set of tumor
// categories found in an image.
//
// Aggregation is purely a function of the detection multiset: two
// detection sequences that are permutations of each other yield identical
// findings. The dedup key is the normalized category name (lower-cased,
// trimmed), and each finding carries the strongest confidence observed for
// its category.
package analyze

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/brainmri/tumorscan/internal/detect"
)

// ErrUnknownCategory indicates a detection whose class id is outside the
// model's label table.
var ErrUnknownCategory = errors.New("unknown category")

// Finding is one deduplicated category with the maximum confidence seen
// among its contributing detections.
type Finding struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Normalize lower-cases and trims a category name. This is the dedup key
// for aggregation and the lookup key for descriptions; it is idempotent.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve maps a class id to its normalized category name, failing with
// ErrUnknownCategory when the id is outside the table.
func Resolve(classID int, labels detect.LabelTable) (string, error) {
	name, ok := labels.Lookup(classID)
	if !ok {
		return "", fmt.Errorf("%w: class id %d outside label table of %d entries", ErrUnknownCategory, classID, len(labels))
	}
	return Normalize(name), nil
}

// Aggregator collapses detection sequences against a fixed label table.
type Aggregator struct {
	labels detect.LabelTable
	log    *logrus.Logger
}

// New creates an Aggregator over the given label table.
func New(labels detect.LabelTable, log *logrus.Logger) *Aggregator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{labels: labels, log: log}
}

// Aggregate returns the deduplicated findings for a detection sequence,
// sorted lexicographically by category, plus the number of detections
// skipped for referencing an unknown class id.
//
// A skipped detection is logged and never aborts aggregation: one
// malformed detection must not discard the rest of the image's results.
func (a *Aggregator) Aggregate(dets []detect.Detection) ([]Finding, int) {
	best := make(map[string]float64)
	skipped := 0

	for _, d := range dets {
		category, err := Resolve(d.ClassID, a.labels)
		if err != nil {
			skipped++
			a.log.WithFields(logrus.Fields{
				"class_id":   d.ClassID,
				"confidence": d.Confidence,
			}).Warn("skipping detection with unknown class id")
			continue
		}
		// Strict > keeps the first-seen value on ties.
		if cur, ok := best[category]; !ok || d.Confidence > cur {
			best[category] = d.Confidence
		}
	}

	findings := make([]Finding, 0, len(best))
	for category, conf := range best {
		findings = append(findings, Finding{Category: category, Confidence: conf})
	}
	sort.Slice(findings, func(i, j int) bool {
		return findings[i].Category < findings[j].Category
	})
	return findings, skipped
}
