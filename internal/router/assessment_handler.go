package router

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"traflow/internal/catalog"
	"traflow/internal/model"
	"traflow/internal/repository"
	"traflow/internal/service"
)

var (
	createPattern = regexp.MustCompile(`(?i)\b(create|new|start)\b.*\b(assessment|tra)\b`)
	addPattern    = regexp.MustCompile(`(?i)\badd\b\s+(?:the\s+)?(.+?)(?:\s+risk\s+area)?\s*$`)
	removePattern = regexp.MustCompile(`(?i)\b(remove|delete|drop)\b\s+(?:the\s+)?(.+?)(?:\s+risk\s+area)?\s*$`)
	titlePattern  = regexp.MustCompile(`(?i)\b(?:called|named|titled|for)\s+["“]?([^"”]+?)["”]?\s*$`)
)

// AssessmentHandler manages assessment lifecycle turns: creation, risk-area
// management, and listing.
type AssessmentHandler struct {
	assessments *service.AssessmentService
	catalog     *catalog.Catalog
}

func NewAssessmentHandler(assessments *service.AssessmentService, cat *catalog.Catalog) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments, catalog: cat}
}

func (h *AssessmentHandler) Handle(ctx context.Context, tc *model.TurnContext, message string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(message))

	// A previous turn asked for the project name; this message is the answer.
	if tc.WaitingForProjectName {
		tc.WaitingForProjectName = false
		return h.create(ctx, tc, strings.TrimSpace(message))
	}

	switch {
	case createPattern.MatchString(lower):
		if m := titlePattern.FindStringSubmatch(message); m != nil {
			return h.create(ctx, tc, strings.TrimSpace(m[1]))
		}
		tc.WaitingForProjectName = true
		return "Sure, let's start a new technology risk assessment. What's the project called?", nil

	case strings.Contains(lower, "list") && strings.Contains(lower, "assessment"):
		return h.list(ctx, tc)

	case removePattern.MatchString(lower):
		m := removePattern.FindStringSubmatch(message)
		return h.removeArea(ctx, tc, m[2])

	case strings.HasPrefix(lower, "add "):
		m := addPattern.FindStringSubmatch(message)
		return h.addArea(ctx, tc, m[1])

	case strings.Contains(lower, "risk area"):
		return h.listAreas(tc), nil
	}

	if tc.AssessmentID == "" {
		tc.WaitingForProjectName = true
		return "There's no assessment in this session yet. What's the project called?", nil
	}
	return h.describe(ctx, tc)
}

func (h *AssessmentHandler) create(ctx context.Context, tc *model.TurnContext, title string) (string, error) {
	assessment, err := h.assessments.Create(ctx, tc.SessionID, title, "", "")
	if err != nil {
		return "", err
	}
	tc.AssessmentID = assessment.ID
	tc.RiskArea = ""
	tc.SubFlow = model.SubFlowIdle

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Created assessment **%s** (%s).\n\n", assessment.Title, assessment.ID)
	b.WriteString("Next, I can walk you through a few qualifying questions to identify which risk areas apply. ")
	b.WriteString("Say \"start the assessment\" when you're ready, or upload a project document and I'll suggest risk areas from it.")
	return b.String(), nil
}

func (h *AssessmentHandler) list(ctx context.Context, tc *model.TurnContext) (string, error) {
	assessments, err := h.assessments.List(ctx, repository.AssessmentFilter{SessionID: tc.SessionID})
	if err != nil {
		return "", err
	}
	if len(assessments) == 0 {
		return "No assessments in this session yet. Say \"create a new assessment\" to start one.", nil
	}

	var b strings.Builder
	b.WriteString("Assessments in this session:\n")
	for _, a := range assessments {
		fmt.Fprintf(&b, "• %s — %s (%s, %.1f%% complete)\n", a.ID, a.Title, a.State, a.CompletionPercentage)
	}
	return b.String(), nil
}

func (h *AssessmentHandler) addArea(ctx context.Context, tc *model.TurnContext, area string) (string, error) {
	if tc.AssessmentID == "" {
		return "There's no active assessment to add a risk area to. Create one first.", nil
	}
	_, name, err := h.assessments.AddRiskArea(ctx, tc.AssessmentID, area)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Risk area **%s** is attached to the assessment. Say \"start questions\" to begin answering.", name), nil
}

func (h *AssessmentHandler) removeArea(ctx context.Context, tc *model.TurnContext, area string) (string, error) {
	if tc.AssessmentID == "" {
		return "There's no active assessment in this session.", nil
	}
	_, name, err := h.assessments.RemoveRiskArea(ctx, tc.AssessmentID, area)
	if err != nil {
		return "", err
	}
	if tc.RiskArea != "" {
		if areaID, ok := h.catalog.ResolveAreaID(area); ok && areaID == tc.RiskArea {
			tc.RiskArea = ""
		}
	}
	return fmt.Sprintf("Risk area **%s** has been removed. Its answers are kept in case you add it back.", name), nil
}

func (h *AssessmentHandler) listAreas(tc *model.TurnContext) string {
	var b strings.Builder
	b.WriteString("Available risk areas:\n")
	for i, ra := range h.catalog.RiskAreas {
		fmt.Fprintf(&b, "%d. %s", i+1, ra.Name)
		if ra.Description != "" {
			fmt.Fprintf(&b, " — %s", ra.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nSay \"add <risk area>\" to attach one to your assessment.")

	ids := make([]string, len(h.catalog.RiskAreas))
	options := make([]string, len(h.catalog.RiskAreas))
	for i, ra := range h.catalog.RiskAreas {
		ids[i] = ra.ID
		options[i] = ra.Name
	}
	tc.SubFlow = model.SubFlowAwaitingArea
	tc.AvailableRiskAreas = ids
	tc.RemainingRiskAreaIDs = nil
	tc.PendingMenu = &model.PendingMenu{Kind: model.MenuKindNumber, Options: options}
	return b.String()
}

func (h *AssessmentHandler) describe(ctx context.Context, tc *model.TurnContext) (string, error) {
	assessment, err := h.assessments.Get(ctx, tc.AssessmentID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current assessment: **%s** (%s), status %s.\n", assessment.Title, assessment.ID, assessment.State)
	if len(assessment.ActiveRiskAreas) == 0 {
		b.WriteString("No risk areas attached yet. Say \"start the assessment\" to identify them.")
		return b.String(), nil
	}
	b.WriteString("Attached risk areas:\n")
	for _, areaID := range assessment.ActiveRiskAreas {
		fmt.Fprintf(&b, "• %s\n", h.catalog.AreaName(areaID))
	}
	return b.String(), nil
}
