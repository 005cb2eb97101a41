package model

import (
	"strings"
	"time"
)

// AssessmentState is the workflow state of an assessment
type AssessmentState string

const (
	StateDraft       AssessmentState = "draft"
	StateSubmitted   AssessmentState = "submitted"
	StateUnderReview AssessmentState = "under_review"
	StateSentBack    AssessmentState = "sent_back"
	StateFinalized   AssessmentState = "finalized"
)

// AnswerValue holds one normalized answer: a single value for text/select
// questions or a value list for multi-select questions.
type AnswerValue struct {
	Value  string   `json:"value,omitempty" bson:"value,omitempty"`
	Values []string `json:"values,omitempty" bson:"values,omitempty"`
	Multi  bool     `json:"multi,omitempty" bson:"multi,omitempty"`
}

// SingleAnswer builds a single-valued answer
func SingleAnswer(v string) AnswerValue {
	return AnswerValue{Value: v}
}

// MultiAnswer builds a multi-select answer
func MultiAnswer(vs []string) AnswerValue {
	return AnswerValue{Values: vs, Multi: true}
}

// IsEmpty reports whether the answer carries no value at all
func (a AnswerValue) IsEmpty() bool {
	if a.Multi {
		return len(a.Values) == 0
	}
	return strings.TrimSpace(a.Value) == ""
}

// Display renders the answer for user-facing output
func (a AnswerValue) Display() string {
	if a.Multi {
		return strings.Join(a.Values, ", ")
	}
	return a.Value
}

// AnswerSet maps question id to normalized answer within one risk area
type AnswerSet map[string]AnswerValue

// Assessment is the persisted questionnaire record
type Assessment struct {
	ID                   string               `json:"assessmentId" bson:"_id"`
	SessionID            string               `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
	Title                string               `json:"title,omitempty" bson:"title,omitempty"`
	Description          string               `json:"description,omitempty" bson:"description,omitempty"`
	BusinessUnit         string               `json:"businessUnit,omitempty" bson:"businessUnit,omitempty"`
	State                AssessmentState      `json:"currentState" bson:"currentState"`
	ActiveRiskAreas      []string             `json:"activeRiskAreas" bson:"activeRiskAreas"`
	AnswersByRiskArea    map[string]AnswerSet `json:"answersByRiskArea" bson:"answersByRiskArea"`
	CurrentQuestionID    string               `json:"currentQuestionId,omitempty" bson:"currentQuestionId,omitempty"`
	CurrentRiskArea      string               `json:"currentRiskArea,omitempty" bson:"currentRiskArea,omitempty"`
	SkippedQuestions     []string             `json:"skippedQuestions,omitempty" bson:"skippedQuestions,omitempty"`
	CompletionPercentage float64              `json:"completionPercentage" bson:"completionPercentage"`
	LinkedDocuments      []string             `json:"linkedDocuments,omitempty" bson:"linkedDocuments,omitempty"`
	CreatedAt            time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt" bson:"updatedAt"`
	SubmittedAt          *time.Time           `json:"submittedAt,omitempty" bson:"submittedAt,omitempty"`
	FinalizedAt          *time.Time           `json:"finalizedAt,omitempty" bson:"finalizedAt,omitempty"`
}

// HasRiskArea reports whether the risk area is attached
func (a *Assessment) HasRiskArea(areaID string) bool {
	for _, id := range a.ActiveRiskAreas {
		if id == areaID {
			return true
		}
	}
	return false
}

// AreaAnswers returns the answer set for a risk area, never nil
func (a *Assessment) AreaAnswers(areaID string) AnswerSet {
	if a.AnswersByRiskArea == nil {
		return AnswerSet{}
	}
	if answers, ok := a.AnswersByRiskArea[areaID]; ok {
		return answers
	}
	return AnswerSet{}
}

// Locked reports whether answers may no longer change
func (a *Assessment) Locked() bool {
	return a.State == StateSubmitted || a.State == StateUnderReview || a.State == StateFinalized
}
