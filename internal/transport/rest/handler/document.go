package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"traflow/internal/service"
)

// maxUploadBytes bounds a single document upload
const maxUploadBytes = 16 << 20

// DocumentHandler handles document upload and retrieval endpoints
type DocumentHandler struct {
	documents *service.DocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Upload handles POST /v1/assessments/{assessmentId}/documents
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	assessmentID := mux.Vars(r)["assessmentId"]

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	sessionID := r.FormValue("sessionId")

	doc, err := h.documents.Upload(r.Context(), sessionID, assessmentID, header.Filename, contentType, data)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// List handles GET /v1/assessments/{assessmentId}/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context(), mux.Vars(r)["assessmentId"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

// Content handles GET /v1/documents/{documentId}/content
func (h *DocumentHandler) Content(w http.ResponseWriter, r *http.Request) {
	doc, data, err := h.documents.Fetch(r.Context(), mux.Vars(r)["documentId"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
