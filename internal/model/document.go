package model

import "time"

// DocumentStatus tracks processing of an uploaded document
type DocumentStatus string

const (
	DocumentUploaded  DocumentStatus = "uploaded"
	DocumentProcessed DocumentStatus = "processed"
	DocumentFailed    DocumentStatus = "failed"
)

// Document is metadata for an uploaded file; the bytes live in the object store
type Document struct {
	ID                 string         `json:"documentId" bson:"_id"`
	AssessmentID       string         `json:"assessmentId,omitempty" bson:"assessmentId,omitempty"`
	SessionID          string         `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
	Filename           string         `json:"filename" bson:"filename"`
	ContentType        string         `json:"contentType,omitempty" bson:"contentType,omitempty"`
	StorageKey         string         `json:"storageKey" bson:"storageKey"`
	Status             DocumentStatus `json:"status" bson:"status"`
	ExtractedText      string         `json:"-" bson:"extractedText,omitempty"`
	SuggestedRiskAreas []string       `json:"suggestedRiskAreas,omitempty" bson:"suggestedRiskAreas,omitempty"`
	UploadedAt         time.Time      `json:"uploadedAt" bson:"uploadedAt"`
}
