// Package handler serves the multipart upload endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
)

const multipartMemory = 8 << 20

var errTooBig = apperrors.New(apperrors.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "file is too big to upload")

type Processor interface {
	Process(ctx context.Context, name string, content []byte) (*ingestion.DocumentResponse, error)
}

type Lister interface {
	List() ([]string, error)
}

type Handler struct {
	processor      Processor
	files          Lister
	maxFileSize    int64
	maxRequestSize int64
	logger         *slog.Logger
}

func New(proc Processor, files Lister, maxFileSize, maxRequestSize int64) *Handler {
	return &Handler{
		processor:      proc,
		files:          files,
		maxFileSize:    maxFileSize,
		maxRequestSize: maxRequestSize,
		logger:         slog.Default().With("component", "upload-handler"),
	}
}

// Register mounts the upload routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /files/single", h.UploadSingle)
	mux.HandleFunc("POST /files/multiple", h.UploadMultiple)
	mux.HandleFunc("GET /files", h.ListFiles)
}

// UploadSingle stores and indexes the multipart field "file".
func (h *Handler) UploadSingle(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseForm(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		h.writeError(w, r, apperrors.New(apperrors.ErrBadFile, http.StatusBadRequest, "file can't be null"))
		return
	}
	resp, err := h.process(r.Context(), files[0])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// UploadMultiple processes every part of the field "files" in order and
// stops at the first failure. Files accepted before the failure stay indexed.
func (h *Handler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseForm(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		h.writeError(w, r, apperrors.New(apperrors.ErrBadFile, http.StatusBadRequest, "file can't be null"))
		return
	}
	responses := make([]*ingestion.DocumentResponse, 0, len(files))
	for _, fh := range files {
		resp, err := h.process(r.Context(), fh)
		if err != nil {
			logger.FromContext(r.Context()).Warn("batch upload stopped",
				"accepted", len(responses),
				"failed", fh.Filename,
			)
			h.writeError(w, r, err)
			return
		}
		responses = append(responses, resp)
	}
	h.writeJSON(w, http.StatusOK, responses)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	names, err := h.files.List()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, names)
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	if h.maxRequestSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errTooBig
		}
		return nil, apperrors.Newf(apperrors.ErrBadFile, http.StatusBadRequest, "invalid multipart body: %v", err)
	}
	return r.MultipartForm, nil
}

func (h *Handler) process(ctx context.Context, fh *multipart.FileHeader) (*ingestion.DocumentResponse, error) {
	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		return nil, errTooBig
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.New(apperrors.ErrBadFile, http.StatusBadRequest, "can't read file")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrBadFile, http.StatusBadRequest, "can't read file")
	}
	return h.processor.Process(ctx, fh.Filename, content)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	body := map[string]any{"error": apperrors.PublicMessage(err)}
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		body["error"] = "validation failed"
		body["fields"] = verr.Fields
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("upload failed", "error", err)
	}
	h.writeJSON(w, status, body)
}
