package model

// HandlerType identifies one of the specialized turn handlers
type HandlerType string

const (
	HandlerAssessment HandlerType = "assessment"
	HandlerDocument   HandlerType = "document"
	HandlerQuestion   HandlerType = "question"
	HandlerStatus     HandlerType = "status"
)

// SubFlow tags which sub-dialogue currently owns the conversation
type SubFlow string

const (
	SubFlowIdle          SubFlow = "idle"
	SubFlowAwaitingArea  SubFlow = "awaiting_risk_area_selection"
	SubFlowQualifying    SubFlow = "qualifying_questions"
	SubFlowMenuSelection SubFlow = "menu_selection"
)

// MenuKind is how a pending menu's options are labelled
type MenuKind string

const (
	MenuKindLetter MenuKind = "letter"
	MenuKindNumber MenuKind = "number"
)

// PendingMenu is an explicitly persisted option menu awaiting a selection.
// Written when a menu is presented, consumed when the reply resolves it.
type PendingMenu struct {
	Kind    MenuKind `json:"kind"`
	Options []string `json:"options"`
}

// TurnContext is the per-session mutable state threaded through every turn.
// It is cached between turns by the transport layer and never stored on the
// assessment record. One turn per session is in flight at a time, so there
// is no locking here.
type TurnContext struct {
	SessionID    string  `json:"sessionId"`
	AssessmentID string  `json:"assessmentId,omitempty"`
	RiskArea     string  `json:"riskArea,omitempty"`
	SubFlow      SubFlow `json:"subFlow"`

	// Risk-area reselection after completing an area
	RemainingRiskAreaIDs []string `json:"remainingRiskAreaIds,omitempty"`
	AvailableRiskAreas   []string `json:"availableRiskAreas,omitempty"`

	// Qualifying-questions sub-flow
	CurrentQualifyingQuestion string            `json:"currentQualifyingQuestion,omitempty"`
	QualifyingAnswers         map[string]string `json:"qualifyingAnswers,omitempty"`
	TriggeredRiskAreas        []string          `json:"triggeredRiskAreas,omitempty"`

	// Routing state
	LastRoutedHandler     HandlerType  `json:"lastRoutedHandler,omitempty"`
	PendingMenu           *PendingMenu `json:"pendingMenu,omitempty"`
	WaitingForProjectName bool         `json:"waitingForProjectName,omitempty"`
	LastMessage           string       `json:"lastMessage,omitempty"`
}

// NewTurnContext creates an empty context for a fresh session
func NewTurnContext(sessionID string) *TurnContext {
	return &TurnContext{
		SessionID: sessionID,
		SubFlow:   SubFlowIdle,
	}
}

// Reset wipes everything except the session id
func (tc *TurnContext) Reset() {
	*tc = TurnContext{
		SessionID: tc.SessionID,
		SubFlow:   SubFlowIdle,
	}
}

// ClearQualifying drops all qualifying sub-flow state
func (tc *TurnContext) ClearQualifying() {
	tc.CurrentQualifyingQuestion = ""
	tc.QualifyingAnswers = nil
	tc.TriggeredRiskAreas = nil
	if tc.SubFlow == SubFlowQualifying {
		tc.SubFlow = SubFlowIdle
	}
}
