// Package imaging handles image ingestion for the scanning pipeline.
//
// Two entry points exist: DecodeUpload for bytes arriving over the upload
// boundary, and ImageCache.Load for files scanned from disk in batch mode.
// Both restrict inputs to the formats the product supports (JPEG and PNG)
// and reject everything else before the detection pipeline runs.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Decoded images are immutable by
// convention: every downstream consumer that needs to draw works on its
// own copy.
package imaging
