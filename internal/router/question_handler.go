package router

import (
	"context"
	"fmt"
	"log"
	"strings"

	"traflow/internal/cache"
	"traflow/internal/catalog"
	"traflow/internal/flow"
	"traflow/internal/model"
	"traflow/internal/repository"
	"traflow/internal/service"
)

// QuestionHandler drives the answer-and-advance loop for risk-area questions
type QuestionHandler struct {
	controller  *flow.Controller
	qualifying  *flow.QualifyingFlow
	assessments repository.AssessmentRepository
	catalog     *catalog.Catalog
	suggestions cache.SuggestionCache
	documents   *service.DocumentService
	ai          *service.AIService
}

func NewQuestionHandler(controller *flow.Controller, qualifying *flow.QualifyingFlow, assessments repository.AssessmentRepository, cat *catalog.Catalog, suggestions cache.SuggestionCache, documents *service.DocumentService, ai *service.AIService) *QuestionHandler {
	return &QuestionHandler{
		controller:  controller,
		qualifying:  qualifying,
		assessments: assessments,
		catalog:     cat,
		suggestions: suggestions,
		documents:   documents,
		ai:          ai,
	}
}

// Handle covers generic question intents: answer the open question if one
// exists, otherwise start or continue the questionnaire.
func (h *QuestionHandler) Handle(ctx context.Context, tc *model.TurnContext, message string) (string, error) {
	if tc.AssessmentID == "" {
		return "There's no active assessment in this session yet. Say \"create a new assessment\" to get started.", nil
	}

	assessment, err := h.assessments.GetByID(ctx, tc.AssessmentID)
	if err != nil {
		if err == repository.ErrNotFound {
			return "", model.NotFoundErr("assessment %s not found", tc.AssessmentID)
		}
		return "", model.UpstreamErr("load assessment", err)
	}

	if assessment.CurrentQuestionID != "" {
		return h.Answer(ctx, tc, message)
	}
	if len(assessment.ActiveRiskAreas) == 0 {
		return h.qualifying.Start(ctx, tc)
	}
	return h.Start(ctx, tc, "")
}

// Answer submits the message as the answer to the open question
func (h *QuestionHandler) Answer(ctx context.Context, tc *model.TurnContext, message string) (string, error) {
	result, err := h.controller.Advance(ctx, tc.AssessmentID, tc.RiskArea, &message)
	if err != nil {
		return "", err
	}
	return h.render(ctx, tc, result)
}

// Start fetches the next question in a risk area without saving anything.
// An empty areaID lets the flow pick the current or first attached area.
func (h *QuestionHandler) Start(ctx context.Context, tc *model.TurnContext, areaID string) (string, error) {
	result, err := h.controller.Advance(ctx, tc.AssessmentID, areaID, nil)
	if err != nil {
		return "", err
	}
	return h.render(ctx, tc, result)
}

func (h *QuestionHandler) render(ctx context.Context, tc *model.TurnContext, result *flow.AdvanceResult) (string, error) {
	var b strings.Builder
	if result.SavedMessage != "" {
		b.WriteString(result.SavedMessage)
		b.WriteString("\n\n")
	}

	if result.NextQuestion != nil {
		tc.RiskArea = result.RiskArea
		b.WriteString(h.renderQuestion(ctx, tc, *result.NextQuestion))
		return b.String(), nil
	}

	tc.RiskArea = ""
	fmt.Fprintf(&b, "🎉 All questions for **%s** are complete.\n", h.catalog.AreaName(result.RiskArea))

	remaining := h.remainingAreas(ctx, tc.AssessmentID, result.RiskArea)
	if len(remaining) == 0 {
		b.WriteString("\nEvery attached risk area is fully answered. Say \"finalize the assessment\" to submit it for review.")
		return b.String(), nil
	}

	b.WriteString("\nWhich risk area would you like to work on next?\n")
	options := make([]string, len(remaining))
	for i, id := range remaining {
		options[i] = h.catalog.AreaName(id)
		fmt.Fprintf(&b, "%d. %s\n", i+1, options[i])
	}
	tc.SubFlow = model.SubFlowAwaitingArea
	tc.RemainingRiskAreaIDs = remaining
	tc.PendingMenu = &model.PendingMenu{Kind: model.MenuKindNumber, Options: options}
	return b.String(), nil
}

// remainingAreas lists attached areas that still have unanswered applicable
// questions, excluding the one just completed.
func (h *QuestionHandler) remainingAreas(ctx context.Context, assessmentID, completedArea string) []string {
	assessment, err := h.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		log.Printf("[QuestionHandler] Failed to reload assessment %s: %v", assessmentID, err)
		return nil
	}
	var remaining []string
	for _, areaID := range assessment.ActiveRiskAreas {
		if areaID == completedArea {
			continue
		}
		applicable, answered := flow.CountApplicable(areaID, assessment.AreaAnswers(areaID), h.catalog)
		if answered < applicable {
			remaining = append(remaining, areaID)
		}
	}
	return remaining
}

func (h *QuestionHandler) renderQuestion(ctx context.Context, tc *model.TurnContext, q model.QuestionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** — %s\n\n%s\n", h.catalog.AreaName(q.RiskArea), q.ID, q.Text)
	if q.HelpText != "" {
		fmt.Fprintf(&b, "_%s_\n", q.HelpText)
	}
	if len(q.Options) > 0 {
		b.WriteString("\nOptions:\n")
		for _, opt := range q.Options {
			fmt.Fprintf(&b, "• %s\n", opt.Label)
		}
		if q.Type == model.AnswerTypeMultiSelect {
			b.WriteString("(Select all that apply, separated by commas.)\n")
		}
	}

	if suggestion := h.suggestionFor(ctx, tc.AssessmentID, q); suggestion != nil {
		fmt.Fprintf(&b, "\n💡 Suggested from your documents: %q (%s confidence)\n", suggestion.Answer, suggestion.Confidence)
	}
	return b.String()
}

// suggestionFor checks the cache first; on a miss it asks the completion
// service against the assessment's document text. Failures only cost the hint.
func (h *QuestionHandler) suggestionFor(ctx context.Context, assessmentID string, q model.QuestionRecord) *cache.Suggestion {
	if cached, err := h.suggestions.Get(ctx, assessmentID, q.ID); err == nil {
		if cached.Answer == "" {
			return nil
		}
		return cached
	}

	text := h.documents.CombinedText(ctx, assessmentID)
	if text == "" {
		return nil
	}
	answer, err := h.ai.SuggestAnswer(ctx, q, text)
	if err != nil || answer == nil {
		return nil
	}

	// A negative result is cached too so the next render skips the call.
	suggestion := &cache.Suggestion{}
	if answer.HasSuggestion {
		suggestion.Answer = answer.SuggestedAnswer
		suggestion.Confidence = answer.Confidence
		suggestion.Reasoning = answer.Reasoning
	}
	if err := h.suggestions.Set(ctx, assessmentID, q.ID, suggestion); err != nil {
		log.Printf("[QuestionHandler] Failed to cache suggestion for %s/%s: %v", assessmentID, q.ID, err)
	}
	if suggestion.Answer == "" {
		return nil
	}
	return suggestion
}
