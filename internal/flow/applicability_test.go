package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traflow/internal/catalog"
	"traflow/internal/model"
)

const testCatalogDoc = `
qualifying_questions:
  - id: C-01
    question: "Does the project use AI?"
    response_type: Yes/No
    on_yes:
      action: show_all_questions
      risk_area: "AI Risk"

risk_areas:
  ai_risk:
    name: "AI Risk"
    questions:
      - id: A
        question: "Does the model make decisions about people?"
        response_type: Yes/No
        on_no:
          action: skip_questions
          skip_questions: [C]
      - id: B
        question: "Is there human review?"
        response_type: Yes/No
        depends_on:
          question_id: A
          answer: "Yes"
      - id: C
        question: "Which decision categories?"
        type: multiselect
        options:
          - label: "Credit or lending"
            value: credit
          - label: "Hiring"
            value: hiring
      - id: D
        question: "Describe monitoring."
        response_type: free-text
        required: false
  data_privacy:
    name: "Data Privacy Risk"
    questions:
      - id: DP-01
        question: "Any cross-border transfer?"
        response_type: Yes/No
        show_questions: [DP-02]
      - id: DP-02
        question: "Which mechanism?"
        response_type: free-text
      - id: DP-03
        question: "Retention details?"
        response_type: free-text
        conditions:
          - question_id: DP-01
            operator: equals
            value: "Yes"
`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalogDoc))
	require.NoError(t, err)
	return cat
}

func TestShouldShowNoDependencies(t *testing.T) {
	cat := testCatalog(t)
	questions := cat.AreaQuestions("ai_risk")
	q, _ := cat.Question("A")

	assert.True(t, ShouldShow(q, model.AnswerSet{}, nil, questions))
	assert.False(t, ShouldShow(q, model.AnswerSet{"A": model.SingleAnswer("Yes")}, nil, questions),
		"answered questions are never re-presented")
}

func TestShouldShowDependsOn(t *testing.T) {
	cat := testCatalog(t)
	questions := cat.AreaQuestions("ai_risk")
	b, _ := cat.Question("B")

	assert.False(t, ShouldShow(b, model.AnswerSet{}, nil, questions), "hidden until parent answered")
	assert.False(t, ShouldShow(b, model.AnswerSet{"A": model.SingleAnswer("No")}, nil, questions))
	assert.True(t, ShouldShow(b, model.AnswerSet{"A": model.SingleAnswer("Yes")}, nil, questions))
	assert.True(t, ShouldShow(b, model.AnswerSet{"A": model.SingleAnswer("yes")}, nil, questions),
		"depends_on match is case-insensitive")
}

func TestShouldShowSkipList(t *testing.T) {
	cat := testCatalog(t)
	questions := cat.AreaQuestions("ai_risk")
	c, _ := cat.Question("C")

	assert.True(t, ShouldShow(c, model.AnswerSet{}, nil, questions))
	assert.False(t, ShouldShow(c, model.AnswerSet{}, map[string]bool{"C": true}, questions))
}

func TestShouldShowConditions(t *testing.T) {
	cat := testCatalog(t)
	questions := cat.AreaQuestions("data_privacy")
	q, _ := cat.Question("DP-03")

	assert.False(t, ShouldShow(q, model.AnswerSet{}, nil, questions),
		"conditions referencing unanswered questions fail")
	assert.False(t, ShouldShow(q, model.AnswerSet{"DP-01": model.SingleAnswer("No")}, nil, questions))
	assert.True(t, ShouldShow(q, model.AnswerSet{"DP-01": model.SingleAnswer("Yes")}, nil, questions))
}

func TestShouldShowShowQuestionsGate(t *testing.T) {
	cat := testCatalog(t)
	questions := cat.AreaQuestions("data_privacy")
	q, _ := cat.Question("DP-02")

	assert.False(t, ShouldShow(q, model.AnswerSet{}, nil, questions),
		"gated until a naming parent is answered")
	assert.True(t, ShouldShow(q, model.AnswerSet{"DP-01": model.SingleAnswer("No")}, nil, questions),
		"any answer on the parent opens the gate")
}

func TestDeriveSkipList(t *testing.T) {
	cat := testCatalog(t)

	skip := DeriveSkipList(model.AnswerSet{"A": model.SingleAnswer("No")}, cat)
	assert.True(t, skip["C"])

	// Changing the answer re-derives the whole set
	skip = DeriveSkipList(model.AnswerSet{"A": model.SingleAnswer("Yes")}, cat)
	assert.Empty(t, skip)
}

func TestCountApplicable(t *testing.T) {
	cat := testCatalog(t)

	// Nothing answered: A and D are determinable, B (depends_on) and C are
	// countable too since C has no gate. B is excluded (parent unanswered).
	applicable, answered := CountApplicable("ai_risk", model.AnswerSet{}, cat)
	assert.Equal(t, 3, applicable) // A, C, D
	assert.Equal(t, 0, answered)

	// A=No skips C and keeps B hidden; A itself stays applicable.
	applicable, answered = CountApplicable("ai_risk", model.AnswerSet{
		"A": model.SingleAnswer("No"),
	}, cat)
	assert.Equal(t, 2, applicable) // A, D
	assert.Equal(t, 1, answered)

	// A=Yes opens B; denominator grows as eligibility becomes determinable.
	applicable, answered = CountApplicable("ai_risk", model.AnswerSet{
		"A": model.SingleAnswer("Yes"),
	}, cat)
	assert.Equal(t, 4, applicable) // A, B, C, D
	assert.Equal(t, 1, answered)

	// Answered questions stay in the applicable count.
	applicable, answered = CountApplicable("ai_risk", model.AnswerSet{
		"A": model.SingleAnswer("Yes"),
		"B": model.SingleAnswer("Yes"),
		"C": model.MultiAnswer([]string{"credit"}),
		"D": model.SingleAnswer("weekly dashboards"),
	}, cat)
	assert.Equal(t, 4, applicable)
	assert.Equal(t, 4, answered)
}

func TestCompletionPercent(t *testing.T) {
	assert.Equal(t, 0.0, CompletionPercent(0, 0))
	assert.Equal(t, 0.0, CompletionPercent(3, 0))
	assert.Equal(t, 50.0, CompletionPercent(1, 2))
	assert.Equal(t, 33.3, CompletionPercent(1, 3))
	assert.Equal(t, 66.7, CompletionPercent(2, 3))
	assert.Equal(t, 100.0, CompletionPercent(4, 4))
}

func TestNormalizeAnswerSelect(t *testing.T) {
	cat := testCatalog(t)
	q, _ := cat.Question("A")

	v, err := NormalizeAnswer(q, "yes")
	require.NoError(t, err)
	assert.Equal(t, "Yes", v.Value, "matches map onto the canonical option value")

	_, err = NormalizeAnswer(q, "maybe")
	require.Error(t, err)
	assert.Equal(t, model.ErrKindValidation, model.KindOf(err))
	assert.Contains(t, err.Error(), "Yes")

	_, err = NormalizeAnswer(q, "  ")
	require.Error(t, err, "required questions reject empty answers")
}

func TestNormalizeAnswerMultiSelect(t *testing.T) {
	cat := testCatalog(t)
	q, _ := cat.Question("C")

	v, err := NormalizeAnswer(q, "Credit or lending, hiring")
	require.NoError(t, err)
	assert.Equal(t, []string{"credit", "hiring"}, v.Values)

	// Unmatched tokens are dropped, not rejected
	v, err = NormalizeAnswer(q, "hiring, flying cars")
	require.NoError(t, err)
	assert.Equal(t, []string{"hiring"}, v.Values)

	// Nothing matching on a required question is an error
	_, err = NormalizeAnswer(q, "flying cars")
	require.Error(t, err)
}

func TestNormalizeAnswerText(t *testing.T) {
	cat := testCatalog(t)
	q, _ := cat.Question("D")

	v, err := NormalizeAnswer(q, "  weekly dashboards  ")
	require.NoError(t, err)
	assert.Equal(t, "weekly dashboards", v.Value)

	// Optional question accepts empty
	v, err = NormalizeAnswer(q, "")
	require.NoError(t, err)
	assert.True(t, v.IsEmpty())
}
