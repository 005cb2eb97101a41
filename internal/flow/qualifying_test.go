package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traflow/internal/catalog"
	"traflow/internal/model"
)

const qualifyingCatalogDoc = `
qualifying_questions:
  - id: C-01
    question: "Does the project use AI?"
    response_type: Yes/No
    on_yes:
      action: show_all_questions
      risk_area: "Artificial Intelligence"
  - id: C-02
    question: "Does the project process personal data?"
    response_type: Yes/No
    on_yes:
      action: show_all_questions
      risk_area: "Data Privacy Risk"

risk_areas:
  ai_risk:
    name: "AI Risk"
    questions:
      - id: AI-01
        question: "Does the model make decisions about people?"
        response_type: Yes/No
  data_privacy:
    name: "Data Privacy Risk"
    questions:
      - id: DP-01
        question: "Any cross-border transfer?"
        response_type: Yes/No
`

func qualifyingCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(qualifyingCatalogDoc))
	require.NoError(t, err)
	return cat
}

func TestQualifyingStart(t *testing.T) {
	cat := qualifyingCatalog(t)
	repo := newMemAssessments()
	seedAssessment(repo)
	qf := NewQualifyingFlow(repo, &memEvents{}, cat)

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"

	reply, err := qf.Start(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, model.SubFlowQualifying, tc.SubFlow)
	assert.Equal(t, "C-01", tc.CurrentQualifyingQuestion)
	assert.Contains(t, reply, "Question 1 of 2")
	assert.Contains(t, reply, "Does the project use AI?")
}

func TestQualifyingTriggersAndAttaches(t *testing.T) {
	cat := qualifyingCatalog(t)
	repo := newMemAssessments()
	seedAssessment(repo)
	events := &memEvents{}
	qf := NewQualifyingFlow(repo, events, cat)
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	_, err := qf.Start(ctx, tc)
	require.NoError(t, err)

	// Yes on C-01 triggers AI Risk via the synonym mapping
	reply, err := qf.HandleTurn(ctx, "yes, we do", tc)
	require.NoError(t, err)
	assert.Contains(t, reply, "Question 2 of 2")
	assert.Equal(t, []string{"ai_risk"}, tc.TriggeredRiskAreas)

	// No on the last question finishes and attaches the triggers
	reply, err = qf.HandleTurn(ctx, "No", tc)
	require.NoError(t, err)
	assert.Contains(t, reply, "AI Risk")
	assert.Equal(t, model.SubFlowIdle, tc.SubFlow)
	assert.Empty(t, tc.CurrentQualifyingQuestion)

	stored, _ := repo.GetByID(ctx, "TRA-2026-TEST01")
	assert.Equal(t, []string{"ai_risk"}, stored.ActiveRiskAreas)
	require.Len(t, events.events, 1)
	assert.Equal(t, model.EventRiskAreaAdded, events.events[0].Type)

	// A follow-up menu is persisted explicitly
	require.NotNil(t, tc.PendingMenu)
	assert.Equal(t, model.MenuKindLetter, tc.PendingMenu.Kind)
	assert.Len(t, tc.PendingMenu.Options, 3)
}

func TestQualifyingNoTriggers(t *testing.T) {
	cat := qualifyingCatalog(t)
	repo := newMemAssessments()
	seedAssessment(repo)
	qf := NewQualifyingFlow(repo, &memEvents{}, cat)
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	_, err := qf.Start(ctx, tc)
	require.NoError(t, err)

	_, err = qf.HandleTurn(ctx, "No", tc)
	require.NoError(t, err)
	reply, err := qf.HandleTurn(ctx, "No", tc)
	require.NoError(t, err)

	assert.Contains(t, reply, "No risk areas were triggered")
	assert.Nil(t, tc.PendingMenu)

	stored, _ := repo.GetByID(ctx, "TRA-2026-TEST01")
	assert.Empty(t, stored.ActiveRiskAreas)
}

func TestQualifyingDuplicateTriggerIsIdempotent(t *testing.T) {
	cat := qualifyingCatalog(t)
	repo := newMemAssessments()
	a := seedAssessment(repo)
	a.ActiveRiskAreas = []string{"ai_risk"}
	qf := NewQualifyingFlow(repo, &memEvents{}, cat)
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	_, err := qf.Start(ctx, tc)
	require.NoError(t, err)

	_, err = qf.HandleTurn(ctx, "Yes", tc)
	require.NoError(t, err)
	_, err = qf.HandleTurn(ctx, "No", tc)
	require.NoError(t, err)

	stored, _ := repo.GetByID(ctx, "TRA-2026-TEST01")
	assert.Equal(t, []string{"ai_risk"}, stored.ActiveRiskAreas, "already-attached areas are not duplicated")
}
