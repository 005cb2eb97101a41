package flow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"traflow/internal/catalog"
	"traflow/internal/model"
	"traflow/internal/repository"
)

// AdvanceResult is the structured outcome of one Advance call
type AdvanceResult struct {
	SavedMessage string                // non-empty when an answer was persisted this call
	NextQuestion *model.QuestionRecord // nil when the risk area is complete
	Completed    bool
	RiskArea     string
	Completion   float64
}

// Controller orchestrates "save this answer, then give me the next question"
type Controller struct {
	assessments repository.AssessmentRepository
	events      repository.EventRepository
	catalog     *catalog.Catalog
}

func NewController(assessments repository.AssessmentRepository, events repository.EventRepository, cat *catalog.Catalog) *Controller {
	return &Controller{
		assessments: assessments,
		events:      events,
		catalog:     cat,
	}
}

// Advance loads the assessment, optionally saves an answer to the open
// question, recomputes the skip list, and derives the next eligible question
// for the target risk area. Passing answer == nil only fetches the next
// question. All failures come back as structured errors, never panics.
func (c *Controller) Advance(ctx context.Context, assessmentID, areaHint string, answer *string) (*AdvanceResult, error) {
	assessment, err := c.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, model.NotFoundErr("assessment %s not found", assessmentID)
		}
		return nil, model.UpstreamErr("load assessment", err)
	}

	if answer != nil && assessment.Locked() {
		return nil, model.ValidationErr("assessment %s is %s; answers can no longer be changed", assessmentID, assessment.State)
	}

	riskArea := c.resolveRiskArea(assessment, areaHint)
	if riskArea == "" {
		return nil, model.ValidationErr("no risk area specified and no active risk areas in assessment")
	}

	savedMessage := ""
	if answer != nil {
		assessment, savedMessage, err = c.saveAnswer(ctx, assessment, riskArea, *answer)
		if err != nil {
			return nil, err
		}
	}

	answers := assessment.AreaAnswers(riskArea)
	skip := DeriveSkipList(answers, c.catalog)

	// Persisted for observability only; always re-derived next turn.
	skipIDs := make([]string, 0, len(skip))
	for id := range skip {
		skipIDs = append(skipIDs, id)
	}

	questions := c.catalog.AreaQuestions(riskArea)
	for _, q := range questions {
		if !ShouldShow(q, answers, skip, questions) {
			continue
		}
		next := q
		if _, err := c.assessments.Update(ctx, assessmentID, map[string]interface{}{
			"currentQuestionId": q.ID,
			"currentRiskArea":   riskArea,
			"skippedQuestions":  skipIDs,
		}); err != nil {
			return nil, model.UpstreamErr("persist current question", err)
		}
		return &AdvanceResult{
			SavedMessage: savedMessage,
			NextQuestion: &next,
			RiskArea:     riskArea,
			Completion:   assessment.CompletionPercentage,
		}, nil
	}

	if _, err := c.assessments.Update(ctx, assessmentID, map[string]interface{}{
		"currentQuestionId": "",
		"currentRiskArea":   riskArea,
		"skippedQuestions":  skipIDs,
	}); err != nil {
		return nil, model.UpstreamErr("persist completion", err)
	}
	return &AdvanceResult{
		SavedMessage: savedMessage,
		Completed:    true,
		RiskArea:     riskArea,
		Completion:   assessment.CompletionPercentage,
	}, nil
}

// resolveRiskArea picks the target area: the hint when attached, else the
// stored current area, else the first attached area.
func (c *Controller) resolveRiskArea(a *model.Assessment, hint string) string {
	if hint != "" && a.HasRiskArea(hint) {
		return hint
	}
	if a.CurrentRiskArea != "" && a.HasRiskArea(a.CurrentRiskArea) {
		return a.CurrentRiskArea
	}
	if len(a.ActiveRiskAreas) > 0 {
		return a.ActiveRiskAreas[0]
	}
	return ""
}

func (c *Controller) saveAnswer(ctx context.Context, assessment *model.Assessment, riskArea, raw string) (*model.Assessment, string, error) {
	questionID := assessment.CurrentQuestionID
	if questionID == "" {
		return nil, "", model.ValidationErr("no active question to answer")
	}

	question, ok := c.catalog.Question(questionID)
	if !ok {
		return nil, "", model.NotFoundErr("question %s not found", questionID)
	}

	normalized, err := NormalizeAnswer(question, raw)
	if err != nil {
		return nil, "", err
	}

	// The answer belongs to the question's own area. The navigation cursor
	// can point elsewhere when areas changed between turns, so it is not a
	// safe key for the write.
	targetArea := question.RiskArea
	allAnswers := assessment.AnswersByRiskArea
	if allAnswers == nil {
		allAnswers = make(map[string]model.AnswerSet)
	}
	answers := allAnswers[targetArea]
	if answers == nil {
		answers = model.AnswerSet{}
	}
	answers[questionID] = normalized
	allAnswers[targetArea] = answers

	// Qualifying-style questions can auto-attach the risk area their trigger
	// names. Idempotent: an already-attached area is left alone.
	activeAreas := assessment.ActiveRiskAreas
	if qq, isQualifying := c.catalog.QualifyingQuestion(questionID); isQualifying &&
		model.IsYes(normalized.Value) && qq.OnYes != nil && qq.OnYes.Action == model.SkipActionShowAll {
		if areaID, resolved := c.catalog.ResolveAreaID(qq.OnYes.RiskArea); resolved && !assessment.HasRiskArea(areaID) {
			activeAreas = append(activeAreas, areaID)
			log.Printf("[Flow] Auto-attached risk area %s from %s=Yes", areaID, questionID)
		}
	}

	// Overall completion spans every active risk area, not just the current one.
	totalApplicable, totalAnswered := 0, 0
	for _, areaID := range activeAreas {
		applicable, answeredCount := CountApplicable(areaID, allAnswers[areaID], c.catalog)
		totalApplicable += applicable
		totalAnswered += answeredCount
	}
	completion := CompletionPercent(totalAnswered, totalApplicable)

	updated, err := c.assessments.Update(ctx, assessment.ID, map[string]interface{}{
		"answersByRiskArea":    allAnswers,
		"activeRiskAreas":      activeAreas,
		"completionPercentage": completion,
		"currentQuestionId":    "",
		"currentRiskArea":      riskArea,
	})
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, "", model.NotFoundErr("assessment %s not found", assessment.ID)
		}
		return nil, "", model.UpstreamErr("save answer", err)
	}

	if c.events != nil {
		if err := c.events.Record(ctx, &model.Event{
			AssessmentID: assessment.ID,
			Type:         model.EventQuestionAnswered,
			Description:  fmt.Sprintf("Answered %s in %s", questionID, targetArea),
			Metadata:     map[string]string{"questionId": questionID, "riskArea": targetArea},
		}); err != nil {
			log.Printf("[Flow] Failed to record answer event: %v", err)
		}
	}

	msg := fmt.Sprintf("✓ Answer %q saved. Overall progress: %.1f%%", normalized.Display(), completion)
	return updated, msg, nil
}

// NormalizeAnswer validates a raw answer against the question's type and
// maps it onto canonical option values.
func NormalizeAnswer(q model.QuestionRecord, raw string) (model.AnswerValue, error) {
	trimmed := strings.TrimSpace(raw)
	if q.Required && trimmed == "" {
		return model.AnswerValue{}, model.ValidationErr("this question is required")
	}

	switch q.Type {
	case model.AnswerTypeSelect:
		if trimmed == "" {
			return model.SingleAnswer(""), nil
		}
		for _, opt := range q.Options {
			if strings.EqualFold(opt.Value, trimmed) || strings.EqualFold(opt.Label, trimmed) {
				return model.SingleAnswer(opt.Value), nil
			}
		}
		labels := make([]string, len(q.Options))
		for i, opt := range q.Options {
			labels[i] = opt.Label
		}
		return model.AnswerValue{}, model.ValidationErr("invalid option %q, expected one of: %s", trimmed, strings.Join(labels, ", "))

	case model.AnswerTypeMultiSelect:
		// Comma-separated input, case-insensitively mapped per item;
		// unmatched tokens are dropped, not rejected.
		var values []string
		for _, part := range strings.Split(trimmed, ",") {
			token := strings.TrimSpace(part)
			if token == "" {
				continue
			}
			for _, opt := range q.Options {
				if strings.EqualFold(opt.Value, token) || strings.EqualFold(opt.Label, token) {
					values = append(values, opt.Value)
					break
				}
			}
		}
		if q.Required && len(values) == 0 {
			return model.AnswerValue{}, model.ValidationErr("please select at least one option")
		}
		return model.MultiAnswer(values), nil
	}

	return model.SingleAnswer(trimmed), nil
}
