// Package server exposes the scanning pipeline over HTTP.
//
// The surface is deliberately small: POST /api/v1/scan accepts one or
// more JPEG/PNG uploads in a multipart form plus an optional confidence
// threshold, runs each image through the pipeline, and returns per-file
// findings, the base64 annotated JPEG, and a suggested download filename.
// Per-file failures are reported inline; one broken upload never fails
// its siblings.
//
// Unsupported formats and malformed thresholds are rejected at this
// boundary, before the detection model runs. There is no persistence:
// download bytes ride inside the scan response.
package server
