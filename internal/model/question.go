package model

import "strings"

// AnswerType defines how a question is answered
type AnswerType string

const (
	AnswerTypeText        AnswerType = "text"        // Free text
	AnswerTypeTextarea    AnswerType = "textarea"    // Free text, long form
	AnswerTypeSelect      AnswerType = "select"      // Single option
	AnswerTypeMultiSelect AnswerType = "multiselect" // Multiple options
)

// Option is a selectable answer choice
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// DependsOn gates a question on a parent question's answer
type DependsOn struct {
	QuestionID string `json:"questionId" yaml:"question_id"`
	Answer     string `json:"answer" yaml:"answer"`
}

// Condition is the legacy conditional format kept for older catalog documents
type Condition struct {
	QuestionID string `json:"questionId" yaml:"question_id"`
	Operator   string `json:"operator" yaml:"operator"` // equals, not_equals, contains, greater_than, less_than
	Value      string `json:"value" yaml:"value"`
}

// SkipDirective declares what a yes/no answer does to downstream questions.
// For risk-area questions the action is skip_questions; for qualifying
// questions it is show_all_questions and names the risk area to attach.
type SkipDirective struct {
	Action        string   `json:"action" yaml:"action"`
	SkipQuestions []string `json:"skipQuestions,omitempty" yaml:"skip_questions"`
	RiskArea      string   `json:"riskArea,omitempty" yaml:"risk_area"`
	Level         string   `json:"level,omitempty" yaml:"level"`
}

const (
	SkipActionSkipQuestions = "skip_questions"
	SkipActionShowAll       = "show_all_questions"
)

// QuestionRecord is one normalized catalog question. Immutable after load.
type QuestionRecord struct {
	ID            string         `json:"id" yaml:"id"`
	RiskArea      string         `json:"riskArea" yaml:"risk_area"` // owning risk-area id; "qualifying" for qualifying questions
	Level         string         `json:"level,omitempty" yaml:"level"`
	Text          string         `json:"question" yaml:"question"`
	Type          AnswerType     `json:"type" yaml:"type"`
	Required      bool           `json:"required" yaml:"required"`
	HelpText      string         `json:"helpText,omitempty" yaml:"help_text"`
	Options       []Option       `json:"options,omitempty" yaml:"options"`
	DependsOn     *DependsOn     `json:"dependsOn,omitempty" yaml:"depends_on"`
	Conditions    []Condition    `json:"conditions,omitempty" yaml:"conditions"`
	OnYes         *SkipDirective `json:"onYes,omitempty" yaml:"on_yes"`
	OnNo          *SkipDirective `json:"onNo,omitempty" yaml:"on_no"`
	ShowQuestions []string       `json:"showQuestions,omitempty" yaml:"show_questions"`
}

// RiskArea is a named questionnaire section with its own question list
type RiskArea struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// QualifyingAreaID is the pseudo risk-area id owning qualifying questions
const QualifyingAreaID = "qualifying"

// IsYes reports whether an answer value counts as a yes-equivalent
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y", "true":
		return true
	}
	return false
}

// IsNo reports whether an answer value counts as a no-equivalent
func IsNo(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "no", "n", "false":
		return true
	}
	return false
}
