// Package detect defines the detection model boundary for the tumor
// scanning pipeline.
//
// The pipeline never talks to a concrete model directly. It depends on the
// Detector interface: given a decoded image and a confidence threshold, a
// Detector returns zero or more Detection records and exposes the model's
// fixed label table. The ONNX-backed implementation in this package is one
// such Detector; tests and the -fake serving mode use Static instead.
//
// # Coordinate System
//
// Box coordinates are in input-image pixel space with (0,0) at the top-left
// corner, X increasing rightward and Y increasing downward. X1 < X2 and
// Y1 < Y2 always hold for boxes produced by this package; consumers are
// still expected to clamp boxes to image bounds before drawing, since the
// model may place edges slightly outside the frame.
//
// # Error Handling
//
// A threshold outside [0,1] fails with ErrInvalidConfiguration before any
// model invocation. An empty result is not an error: images without tumors
// are a common, valid outcome and yield an empty slice.
package detect
