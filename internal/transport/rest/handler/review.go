package handler

import (
	"net/http"

	"traflow/internal/service"
)

// ReviewHandler validates assessor review links and serves the read-only view
type ReviewHandler struct {
	links  *service.LinkService
	status *service.StatusService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(links *service.LinkService, status *service.StatusService) *ReviewHandler {
	return &ReviewHandler{links: links, status: status}
}

// Validate handles GET /v1/review?token=...
func (h *ReviewHandler) Validate(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	claims, err := h.links.ValidateAssessorToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	review, err := h.status.ReviewAnswers(r.Context(), claims.AssessmentID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assessmentId": claims.AssessmentID,
		"role":         claims.Role,
		"review":       review,
	})
}
