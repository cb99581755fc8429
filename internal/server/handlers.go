package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/brainmri/tumorscan/internal/detect"
	"github.com/brainmri/tumorscan/internal/imaging"
	"github.com/brainmri/tumorscan/internal/pipeline"
)

// scanResponse is the reply to POST /api/v1/scan.
type scanResponse struct {
	RequestID string       `json:"request_id"`
	Threshold float64      `json:"threshold"`
	Results   []scanResult `json:"results"`
}

// scanResult reports one uploaded file. Exactly one of Error and the
// payload fields is populated.
type scanResult struct {
	File       string             `json:"file"`
	Findings   []pipeline.Finding `json:"findings,omitempty"`
	Detections int                `json:"detections"`
	Skipped    int                `json:"skipped,omitempty"`

	// AnnotatedImage is the base64 JPEG download artifact; Filename its
	// suggested download name.
	AnnotatedImage string `json:"annotated_image,omitempty"`
	MimeType       string `json:"mime_type,omitempty"`
	Filename       string `json:"filename,omitempty"`

	Error string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScan accepts a multipart form with one or more image files and an
// optional "threshold" field. Bad thresholds and empty uploads fail the
// whole request; everything per-file is isolated to its result slot.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to parse multipart form: " + err.Error()})
		return
	}

	threshold := s.defaultThreshold
	if raw := r.FormValue("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "threshold is not a number: " + raw})
			return
		}
		threshold = parsed
	}
	if err := detect.ValidateThreshold(threshold); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	files := collectFiles(r.MultipartForm)
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no image files in request"})
		return
	}

	resp := scanResponse{
		RequestID: uuid.NewString(),
		Threshold: threshold,
		Results:   make([]scanResult, 0, len(files)),
	}
	for _, fh := range files {
		resp.Results = append(resp.Results, s.scanOne(r, fh, threshold))
	}

	writeJSON(w, http.StatusOK, resp)
}

// scanOne decodes and scans a single uploaded file, mapping any failure
// into the result's Error field.
func (s *Server) scanOne(r *http.Request, fh *multipart.FileHeader, threshold float64) scanResult {
	result := scanResult{File: fh.Filename}

	f, err := fh.Open()
	if err != nil {
		result.Error = "failed to open upload: " + err.Error()
		return result
	}
	defer f.Close()

	img, _, err := imaging.DecodeUpload(f)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			result.Error = "unsupported image format; only JPEG and PNG are accepted"
		} else {
			result.Error = err.Error()
		}
		return result
	}

	res, err := s.runner.Run(r.Context(), img, threshold)
	if err != nil {
		s.log.WithError(err).WithField("file", fh.Filename).Error("scan failed")
		result.Error = err.Error()
		return result
	}

	result.Findings = res.Findings
	result.Detections = res.Detections
	result.Skipped = res.Skipped
	result.AnnotatedImage = base64.StdEncoding.EncodeToString(res.AnnotatedJPEG)
	result.MimeType = "image/jpeg"
	result.Filename = res.Filename
	return result
}

// collectFiles flattens every file part of the form in a stable order.
func collectFiles(form *multipart.Form) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	keys := make([]string, 0, len(form.File))
	for key := range form.File {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var files []*multipart.FileHeader
	for _, key := range keys {
		files = append(files, form.File[key]...)
	}
	return files
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
