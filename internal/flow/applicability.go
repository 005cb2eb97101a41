// Package flow implements the conditional question-applicability engine and
// the turn-by-turn question flow over it.
package flow

import (
	"strconv"
	"strings"

	"traflow/internal/catalog"
	"traflow/internal/model"
)

// ShouldShow decides whether a question should currently be presented.
// A question is shown only when it is unanswered, not suppressed by the skip
// list, its depends_on parent (if any) is answered with the required value,
// every legacy condition holds, and its show_questions gate (if any other
// question names it) has at least one answered parent.
func ShouldShow(q model.QuestionRecord, answers model.AnswerSet, skipIDs map[string]bool, areaQuestions []model.QuestionRecord) bool {
	if _, answered := answers[q.ID]; answered {
		return false
	}
	if skipIDs[q.ID] {
		return false
	}
	if !dependsOnMet(q, answers) {
		return false
	}
	if len(q.Conditions) > 0 && !conditionsMet(q.Conditions, answers) {
		return false
	}
	return showQuestionsGateOpen(q.ID, areaQuestions, answers)
}

// DeriveSkipList recomputes the suppressed-question set from the full answer
// set. Never patched incrementally: a changed earlier answer re-derives the
// whole set, correctly un-skipping or re-skipping later questions.
func DeriveSkipList(answers model.AnswerSet, cat *catalog.Catalog) map[string]bool {
	skip := make(map[string]bool)
	for id, answer := range answers {
		q, ok := cat.Question(id)
		if !ok {
			continue
		}
		if model.IsYes(answer.Value) && q.OnYes != nil && q.OnYes.Action == model.SkipActionSkipQuestions {
			for _, target := range q.OnYes.SkipQuestions {
				skip[target] = true
			}
		}
		if model.IsNo(answer.Value) && q.OnNo != nil && q.OnNo.Action == model.SkipActionSkipQuestions {
			for _, target := range q.OnNo.SkipQuestions {
				skip[target] = true
			}
		}
	}
	return skip
}

// CountApplicable computes (applicable, answered) for a risk area. Answered
// questions stay in the applicable count. Questions whose eligibility cannot
// yet be determined (unanswered depends_on parent, condition referencing an
// unanswered question, closed show_questions gate) are excluded from both
// counts so the completion denominator never includes questions the user may
// never see.
func CountApplicable(areaID string, answers model.AnswerSet, cat *catalog.Catalog) (applicable, answered int) {
	questions := cat.AreaQuestions(areaID)
	skip := DeriveSkipList(answers, cat)

	for _, q := range questions {
		_, isAnswered := answers[q.ID]

		if skip[q.ID] {
			continue
		}
		if q.DependsOn != nil {
			if _, parentAnswered := answers[q.DependsOn.QuestionID]; !parentAnswered {
				continue
			}
			if !dependsOnMet(q, answers) {
				continue
			}
		}
		if len(q.Conditions) > 0 {
			evaluable := true
			for _, c := range q.Conditions {
				if _, ok := answers[c.QuestionID]; !ok {
					evaluable = false
					break
				}
			}
			if !evaluable || !conditionsMet(q.Conditions, answers) {
				continue
			}
		}
		if !showQuestionsGateOpen(q.ID, questions, answers) {
			continue
		}

		applicable++
		if isAnswered {
			answered++
		}
	}
	return applicable, answered
}

// CompletionPercent turns (answered, applicable) totals into a percentage,
// rounded to one decimal. Zero applicable questions yields 0, not an error.
func CompletionPercent(answered, applicable int) float64 {
	if applicable <= 0 {
		return 0
	}
	pct := float64(answered) / float64(applicable) * 100
	return float64(int(pct*10+0.5)) / 10
}

func dependsOnMet(q model.QuestionRecord, answers model.AnswerSet) bool {
	if q.DependsOn == nil || q.DependsOn.QuestionID == "" {
		return true
	}
	actual, ok := answers[q.DependsOn.QuestionID]
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(actual.Value), strings.TrimSpace(q.DependsOn.Answer))
}

// conditionsMet evaluates the legacy condition list. A condition referencing
// an unanswered question fails the whole check.
func conditionsMet(conditions []model.Condition, answers model.AnswerSet) bool {
	for _, c := range conditions {
		actual, ok := answers[c.QuestionID]
		if !ok {
			return false
		}
		if !conditionHolds(c, actual) {
			return false
		}
	}
	return true
}

func conditionHolds(c model.Condition, actual model.AnswerValue) bool {
	switch c.Operator {
	case "equals":
		return actual.Value == c.Value
	case "not_equals":
		return actual.Value != c.Value
	case "contains":
		return strings.Contains(actual.Display(), c.Value)
	case "greater_than":
		a, b, ok := numericPair(actual.Value, c.Value)
		return ok && a > b
	case "less_than":
		a, b, ok := numericPair(actual.Value, c.Value)
		return ok && a < b
	}
	return false
}

func numericPair(a, b string) (float64, float64, bool) {
	av, err1 := strconv.ParseFloat(strings.TrimSpace(a), 64)
	bv, err2 := strconv.ParseFloat(strings.TrimSpace(b), 64)
	return av, bv, err1 == nil && err2 == nil
}

// showQuestionsGateOpen implements the inverted dependency: a question named
// in at least one other question's show_questions list needs one of those
// naming questions answered first. Questions named by nobody are open.
func showQuestionsGateOpen(id string, areaQuestions []model.QuestionRecord, answers model.AnswerSet) bool {
	var parents []string
	for _, q := range areaQuestions {
		for _, shown := range q.ShowQuestions {
			if shown == id {
				parents = append(parents, q.ID)
			}
		}
	}
	if len(parents) == 0 {
		return true
	}
	for _, parent := range parents {
		if _, ok := answers[parent]; ok {
			return true
		}
	}
	return false
}
