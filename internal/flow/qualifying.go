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

// QualifyingFlow walks the fixed-order qualifying question list. While it is
// active it owns the conversation outright; the router forwards every turn
// here without evaluating other routes.
type QualifyingFlow struct {
	assessments repository.AssessmentRepository
	events      repository.EventRepository
	catalog     *catalog.Catalog
}

func NewQualifyingFlow(assessments repository.AssessmentRepository, events repository.EventRepository, cat *catalog.Catalog) *QualifyingFlow {
	return &QualifyingFlow{
		assessments: assessments,
		events:      events,
		catalog:     cat,
	}
}

// Start opens the sub-flow at the first qualifying question
func (f *QualifyingFlow) Start(ctx context.Context, tc *model.TurnContext) (string, error) {
	questions := f.catalog.QualifyingQuestions
	if len(questions) == 0 {
		tc.ClearQualifying()
		return "", model.NotFoundErr("no qualifying questions configured")
	}

	assessment, err := f.assessments.GetByID(ctx, tc.AssessmentID)
	if err != nil {
		tc.ClearQualifying()
		if err == repository.ErrNotFound {
			return "", model.NotFoundErr("assessment %s not found", tc.AssessmentID)
		}
		return "", model.UpstreamErr("load assessment", err)
	}

	first := questions[0]
	tc.SubFlow = model.SubFlowQualifying
	tc.CurrentQualifyingQuestion = first.ID
	tc.QualifyingAnswers = make(map[string]string)
	tc.TriggeredRiskAreas = nil

	title := assessment.Title
	if title == "" {
		title = "Untitled"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Risk area identification for %s\n\n", title)
	b.WriteString("I'll ask a few questions to identify the relevant risk areas for your assessment.\n\n")
	b.WriteString(f.renderQuestion(first, 1, len(questions)))
	return b.String(), nil
}

// HandleTurn records the answer to the current qualifying question and either
// advances to the next one or attaches the accumulated risk areas and exits.
func (f *QualifyingFlow) HandleTurn(ctx context.Context, message string, tc *model.TurnContext) (string, error) {
	questions := f.catalog.QualifyingQuestions
	currentID := tc.CurrentQualifyingQuestion
	if currentID == "" {
		tc.ClearQualifying()
		return "", model.ValidationErr("lost track of the current qualifying question")
	}

	if tc.QualifyingAnswers == nil {
		tc.QualifyingAnswers = make(map[string]string)
	}
	tc.QualifyingAnswers[currentID] = message

	current, ok := f.catalog.QualifyingQuestion(currentID)
	if ok && current.OnYes != nil && current.OnYes.RiskArea != "" && isAffirmative(message) {
		if areaID, resolved := f.catalog.ResolveAreaID(current.OnYes.RiskArea); resolved {
			tc.TriggeredRiskAreas = appendUnique(tc.TriggeredRiskAreas, areaID)
			log.Printf("[Qualifying] %s=Yes triggered risk area %s", currentID, areaID)
		} else {
			log.Printf("[Qualifying] Could not map trigger %q to a risk area", current.OnYes.RiskArea)
		}
	}

	idx := -1
	for i, q := range questions {
		if q.ID == currentID {
			idx = i
			break
		}
	}
	if idx >= 0 && idx < len(questions)-1 {
		next := questions[idx+1]
		tc.CurrentQualifyingQuestion = next.ID
		return f.renderQuestion(next, idx+2, len(questions)), nil
	}

	return f.finish(ctx, tc)
}

// finish attaches every triggered risk area and closes the sub-flow
func (f *QualifyingFlow) finish(ctx context.Context, tc *model.TurnContext) (string, error) {
	triggered := tc.TriggeredRiskAreas
	tc.ClearQualifying()

	if len(triggered) == 0 {
		tc.PendingMenu = nil
		return "✅ Risk area identification complete.\n\n" +
			"No risk areas were triggered by your answers. You can select from the standard risk areas manually, " +
			"or upload a project document for analysis.", nil
	}

	assessment, err := f.assessments.GetByID(ctx, tc.AssessmentID)
	if err != nil {
		if err == repository.ErrNotFound {
			return "", model.NotFoundErr("assessment %s not found", tc.AssessmentID)
		}
		return "", model.UpstreamErr("load assessment", err)
	}

	active := assessment.ActiveRiskAreas
	var added []string
	for _, areaID := range triggered {
		if !assessment.HasRiskArea(areaID) {
			active = append(active, areaID)
			added = append(added, f.catalog.AreaName(areaID))
		}
	}
	if _, err := f.assessments.Update(ctx, assessment.ID, map[string]interface{}{
		"activeRiskAreas": active,
	}); err != nil {
		return "", model.UpstreamErr("attach risk areas", err)
	}
	if f.events != nil {
		for _, areaID := range triggered {
			_ = f.events.Record(ctx, &model.Event{
				AssessmentID: assessment.ID,
				Type:         model.EventRiskAreaAdded,
				Description:  "Risk area attached by qualifying questions",
				Metadata:     map[string]string{"riskArea": areaID},
			})
		}
	}

	var b strings.Builder
	b.WriteString("✅ Risk area identification complete.\n\n")
	b.WriteString("Based on your answers, these risk areas were added to your assessment:\n")
	for _, name := range added {
		fmt.Fprintf(&b, "• %s\n", name)
	}
	b.WriteString("\nWhat would you like to do next?\n")
	menu := []string{
		"Start answering questions for these risk areas",
		"Add more risk areas manually",
		"View assessment status",
	}
	for i, opt := range menu {
		fmt.Fprintf(&b, "%c) %s\n", 'A'+i, opt)
	}
	tc.PendingMenu = &model.PendingMenu{Kind: model.MenuKindLetter, Options: menu}
	return b.String(), nil
}

func (f *QualifyingFlow) renderQuestion(q model.QuestionRecord, number, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Question %d of %d**\n%s\n", number, total, q.Text)
	if q.Type == model.AnswerTypeSelect && len(q.Options) == 2 {
		b.WriteString("\nPlease answer: Yes or No")
	} else {
		b.WriteString("\nPlease provide your answer:")
	}
	return b.String()
}

// isAffirmative is looser than model.IsYes on purpose: qualifying answers
// arrive as free text ("yes, we do", "I believe yes").
func isAffirmative(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	return m == "yes" || m == "y" ||
		strings.HasPrefix(m, "yes ") || strings.HasPrefix(m, "yes,") ||
		strings.Contains(m, " yes")
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
