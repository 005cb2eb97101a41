package model

import "time"

// EventType identifies audit-trail events
type EventType string

const (
	EventAssessmentCreated   EventType = "assessment_created"
	EventQuestionAnswered    EventType = "question_answered"
	EventRiskAreaAdded       EventType = "risk_area_added"
	EventRiskAreaRemoved     EventType = "risk_area_removed"
	EventDocumentUploaded    EventType = "document_uploaded"
	EventAssessmentSubmitted EventType = "assessment_submitted"
	EventAssessmentFinalized EventType = "assessment_finalized"
)

// Event is one audit-trail entry for an assessment
type Event struct {
	ID           string            `json:"eventId" bson:"_id"`
	AssessmentID string            `json:"assessmentId" bson:"assessmentId"`
	SessionID    string            `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
	Type         EventType         `json:"eventType" bson:"eventType"`
	Description  string            `json:"description" bson:"description"`
	Metadata     map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Timestamp    time.Time         `json:"timestamp" bson:"timestamp"`
}
