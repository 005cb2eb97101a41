package router

import (
	"context"
	"strings"

	"traflow/internal/model"
	"traflow/internal/service"
)

// StatusHandler answers progress, review, and finalization turns
type StatusHandler struct {
	status *service.StatusService
}

func NewStatusHandler(status *service.StatusService) *StatusHandler {
	return &StatusHandler{status: status}
}

func (h *StatusHandler) Handle(ctx context.Context, tc *model.TurnContext, message string) (string, error) {
	if tc.AssessmentID == "" {
		return "There's no active assessment in this session yet, so there's nothing to report. Say \"create a new assessment\" to start one.", nil
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "review"):
		return h.status.ReviewAnswers(ctx, tc.AssessmentID)
	case strings.Contains(lower, "finalize") || strings.Contains(lower, "finalise") || strings.Contains(lower, "submit"):
		return h.Finalize(ctx, tc)
	case strings.Contains(lower, "status") && !strings.Contains(lower, "progress"):
		return h.status.CheckStatus(ctx, tc.AssessmentID)
	}
	return h.status.Summary(ctx, tc.AssessmentID)
}

// Finalize submits the assessment and clears per-turn question state
func (h *StatusHandler) Finalize(ctx context.Context, tc *model.TurnContext) (string, error) {
	reply, err := h.status.Finalize(ctx, tc.AssessmentID)
	if err != nil {
		return "", err
	}
	tc.RiskArea = ""
	tc.SubFlow = model.SubFlowIdle
	tc.PendingMenu = nil
	return reply, nil
}

// Review renders all recorded answers
func (h *StatusHandler) Review(ctx context.Context, tc *model.TurnContext) (string, error) {
	if tc.AssessmentID == "" {
		return "There's no active assessment to review yet.", nil
	}
	return h.status.ReviewAnswers(ctx, tc.AssessmentID)
}
