package detect

import (
	"fmt"
	"sort"
)

// DecodeOutput flattens a YOLO-style output head into detections in input
// image pixel space.
//
// The raw tensor has layout [4+numClasses][boxes] flattened row-major: the
// first four rows are center-x, center-y, width, height in model input
// coordinates, followed by one row of per-class scores per class. Boxes are
// kept when their best class score clears threshold, converted to corner
// form, and scaled from the model's square input back to the original
// imgWidth x imgHeight frame.
//
// Returns an error when the tensor length is not a multiple of
// 4+numClasses, which indicates a model/config mismatch.
func DecodeOutput(output []float32, numClasses, inputSize int, imgWidth, imgHeight int, threshold float64) ([]Detection, error) {
	rows := numClasses + 4
	if numClasses <= 0 || len(output) == 0 || len(output)%rows != 0 {
		return nil, fmt.Errorf("output tensor length %d does not match %d classes", len(output), numClasses)
	}
	boxes := len(output) / rows

	scaleX := float64(imgWidth) / float64(inputSize)
	scaleY := float64(imgHeight) / float64(inputSize)

	var dets []Detection
	for i := 0; i < boxes; i++ {
		classID, score := 0, float32(0)
		for c := 0; c < numClasses; c++ {
			if s := output[(c+4)*boxes+i]; s > score {
				score = s
				classID = c
			}
		}
		if float64(score) < threshold {
			continue
		}

		xc := float64(output[i])
		yc := float64(output[boxes+i])
		w := float64(output[2*boxes+i])
		h := float64(output[3*boxes+i])

		dets = append(dets, Detection{
			Box: Box{
				X1: (xc - w/2) * scaleX,
				Y1: (yc - h/2) * scaleY,
				X2: (xc + w/2) * scaleX,
				Y2: (yc + h/2) * scaleY,
			},
			ClassID:    classID,
			Confidence: float64(score),
		})
	}
	return dets, nil
}

// NonMaxSuppression drops boxes that overlap a higher-confidence box of
// any class by more than iouThreshold. Survivors come back sorted by
// confidence, strongest first; the input slice is not modified.
func NonMaxSuppression(dets []Detection, iouThreshold float64) []Detection {
	if len(dets) == 0 {
		return nil
	}

	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	suppressed := make([]bool, len(sorted))
	var kept []Detection
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] {
				continue
			}
			if sorted[i].Box.IoU(sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
