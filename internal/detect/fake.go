package detect

import (
	"context"
	"image"
)

// Static is a deterministic Detector that returns a fixed detection set
// filtered by the requested threshold. It backs tests and the -fake
// serving mode, where no model checkpoint is available.
type Static struct {
	Detections []Detection
	Labels     LabelTable

	// Err, when set, is returned from every Detect call.
	Err error
}

// Names returns the configured label table.
func (s *Static) Names() LabelTable { return s.Labels }

// Detect returns the configured detections at or above threshold, in
// configured order. The input image is ignored apart from the contract
// check on threshold.
func (s *Static) Detect(_ context.Context, _ image.Image, threshold float64) ([]Detection, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	var out []Detection
	for _, d := range s.Detections {
		if d.Confidence >= threshold {
			out = append(out, d)
		}
	}
	return out, nil
}
