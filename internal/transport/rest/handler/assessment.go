package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"traflow/internal/model"
	"traflow/internal/repository"
	"traflow/internal/service"
)

// AssessmentHandler handles assessment endpoints
type AssessmentHandler struct {
	assessments *service.AssessmentService
	status      *service.StatusService
	events      repository.EventRepository
}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler(assessments *service.AssessmentService, status *service.StatusService, events repository.EventRepository) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments, status: status, events: events}
}

// CreateAssessmentRequest is the request body for creating an assessment
type CreateAssessmentRequest struct {
	SessionID    string `json:"sessionId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	BusinessUnit string `json:"businessUnit"`
}

// UpdateStateRequest is the request body for a lifecycle transition
type UpdateStateRequest struct {
	State model.AssessmentState `json:"state"`
}

// AddRiskAreaRequest is the request body for attaching a risk area
type AddRiskAreaRequest struct {
	RiskArea string `json:"riskArea"`
}

// Create handles POST /v1/assessments
func (h *AssessmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assessment, err := h.assessments.Create(r.Context(), req.SessionID, req.Title, req.Description, req.BusinessUnit)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, assessment)
}

// Get handles GET /v1/assessments/{assessmentId}
func (h *AssessmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	assessment, err := h.assessments.Get(r.Context(), mux.Vars(r)["assessmentId"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

// List handles GET /v1/assessments
func (h *AssessmentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.AssessmentFilter{
		SessionID: r.URL.Query().Get("sessionId"),
		State:     model.AssessmentState(r.URL.Query().Get("state")),
	}
	assessments, err := h.assessments.List(r.Context(), filter)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assessments": assessments})
}

// UpdateState handles POST /v1/assessments/{assessmentId}/state
func (h *AssessmentHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	var req UpdateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assessment, err := h.assessments.UpdateState(r.Context(), mux.Vars(r)["assessmentId"], req.State)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

// AddRiskArea handles POST /v1/assessments/{assessmentId}/risk-areas
func (h *AssessmentHandler) AddRiskArea(w http.ResponseWriter, r *http.Request) {
	var req AddRiskAreaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assessment, _, err := h.assessments.AddRiskArea(r.Context(), mux.Vars(r)["assessmentId"], req.RiskArea)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

// RemoveRiskArea handles DELETE /v1/assessments/{assessmentId}/risk-areas/{areaId}
func (h *AssessmentHandler) RemoveRiskArea(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assessment, _, err := h.assessments.RemoveRiskArea(r.Context(), vars["assessmentId"], vars["areaId"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

// Events handles GET /v1/assessments/{assessmentId}/events
func (h *AssessmentHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.GetByAssessmentID(r.Context(), mux.Vars(r)["assessmentId"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// Summary handles GET /v1/assessments/{assessmentId}/summary
func (h *AssessmentHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.status.Summary(r.Context(), mux.Vars(r)["assessmentId"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// statusFor maps structured turn errors onto HTTP status codes
func statusFor(err error) int {
	switch model.KindOf(err) {
	case model.ErrKindNotFound:
		return http.StatusNotFound
	case model.ErrKindValidation:
		return http.StatusBadRequest
	case model.ErrKindAmbiguousIntent:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
