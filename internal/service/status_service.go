package service

import (
	"context"
	"fmt"
	"strings"

	"traflow/internal/catalog"
	"traflow/internal/flow"
)

// StatusService renders progress, review, and status reports
type StatusService struct {
	assessments *AssessmentService
	catalog     *catalog.Catalog
	links       *LinkService
}

func NewStatusService(assessments *AssessmentService, cat *catalog.Catalog, links *LinkService) *StatusService {
	return &StatusService{assessments: assessments, catalog: cat, links: links}
}

// Summary renders per-area progress for an assessment
func (s *StatusService) Summary(ctx context.Context, assessmentID string) (string, error) {
	assessment, err := s.assessments.Get(ctx, assessmentID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 **%s** (%s)\n", assessment.Title, assessment.ID)
	fmt.Fprintf(&b, "Status: %s\n", assessment.State)
	if len(assessment.ActiveRiskAreas) == 0 {
		b.WriteString("\nNo risk areas attached yet. Say \"start assessment\" to identify applicable risk areas.")
		return b.String(), nil
	}

	b.WriteString("\nRisk area progress:\n")
	totalApplicable, totalAnswered := 0, 0
	for _, areaID := range assessment.ActiveRiskAreas {
		applicable, answered := flow.CountApplicable(areaID, assessment.AreaAnswers(areaID), s.catalog)
		totalApplicable += applicable
		totalAnswered += answered
		fmt.Fprintf(&b, "- %s: %d of %d questions answered (%.1f%%)\n",
			s.catalog.AreaName(areaID), answered, applicable, flow.CompletionPercent(answered, applicable))
	}
	fmt.Fprintf(&b, "\nOverall progress: %.1f%%", flow.CompletionPercent(totalAnswered, totalApplicable))
	return b.String(), nil
}

// ReviewAnswers renders every recorded answer grouped by risk area
func (s *StatusService) ReviewAnswers(ctx context.Context, assessmentID string) (string, error) {
	assessment, err := s.assessments.Get(ctx, assessmentID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📝 Review of answers for **%s** (%s)\n", assessment.Title, assessment.ID)

	any := false
	for _, areaID := range assessment.ActiveRiskAreas {
		answers := assessment.AreaAnswers(areaID)
		if len(answers) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n**%s**\n", s.catalog.AreaName(areaID))
		for _, q := range s.catalog.AreaQuestions(areaID) {
			answer, ok := answers[q.ID]
			if !ok {
				continue
			}
			any = true
			fmt.Fprintf(&b, "- %s\n  → %s\n", q.Text, answer.Display())
		}
	}
	if !any {
		b.WriteString("\nNo answers recorded yet.")
	}
	return b.String(), nil
}

// CheckStatus renders lifecycle state and timestamps
func (s *StatusService) CheckStatus(ctx context.Context, assessmentID string) (string, error) {
	assessment, err := s.assessments.Get(ctx, assessmentID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Assessment %s is **%s**.\n", assessment.ID, assessment.State)
	fmt.Fprintf(&b, "Created: %s\n", assessment.CreatedAt.Format("2006-01-02 15:04"))
	if assessment.SubmittedAt != nil {
		fmt.Fprintf(&b, "Submitted: %s\n", assessment.SubmittedAt.Format("2006-01-02 15:04"))
	}
	if assessment.FinalizedAt != nil {
		fmt.Fprintf(&b, "Finalized: %s\n", assessment.FinalizedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "Completion: %.1f%%", assessment.CompletionPercentage)
	return b.String(), nil
}

// Finalize submits the assessment and returns an assessor review link
func (s *StatusService) Finalize(ctx context.Context, assessmentID string) (string, error) {
	assessment, err := s.assessments.Submit(ctx, assessmentID)
	if err != nil {
		return "", err
	}

	link, err := s.links.GenerateAssessorLink(assessment.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Assessment **%s** has been submitted for review.\n", assessment.Title)
	b.WriteString("Answers are now locked. An assessor can review it here:\n")
	b.WriteString(link.URL)
	return b.String(), nil
}
