package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"traflow/internal/catalog"
	"traflow/internal/model"
	"traflow/internal/repository"
	"traflow/internal/storage"
)

// DocumentService stores uploaded project documents and links them to
// assessments. Text extraction only handles plain-text payloads; anything
// else is stored as-is and skipped for suggestions.
type DocumentService struct {
	documents   repository.DocumentRepository
	assessments repository.AssessmentRepository
	events      repository.EventRepository
	objects     storage.ObjectStore
	ai          *AIService
	catalog     *catalog.Catalog
}

func NewDocumentService(documents repository.DocumentRepository, assessments repository.AssessmentRepository, events repository.EventRepository, objects storage.ObjectStore, ai *AIService, cat *catalog.Catalog) *DocumentService {
	return &DocumentService{
		documents:   documents,
		assessments: assessments,
		events:      events,
		objects:     objects,
		ai:          ai,
		catalog:     cat,
	}
}

// Upload stores a document, records its metadata, and when possible suggests
// risk areas from its text. Suggested areas are attached to the assessment
// unless they are already active.
func (s *DocumentService) Upload(ctx context.Context, sessionID, assessmentID, filename, contentType string, data []byte) (*model.Document, error) {
	if len(data) == 0 {
		return nil, model.ValidationErr("uploaded file %q is empty", filename)
	}

	doc := &model.Document{
		ID:           "doc_" + uuid.New().String(),
		AssessmentID: assessmentID,
		SessionID:    sessionID,
		Filename:     filename,
		ContentType:  contentType,
		Status:       model.DocumentUploaded,
		UploadedAt:   time.Now().UTC(),
	}
	doc.StorageKey = fmt.Sprintf("documents/%s/%s", doc.ID, filename)

	if err := s.objects.Put(ctx, doc.StorageKey, contentType, data); err != nil {
		return nil, model.UpstreamErr("failed to store document", err)
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, model.UpstreamErr("failed to record document", err)
	}

	s.events.Record(ctx, &model.Event{
		AssessmentID: assessmentID,
		SessionID:    sessionID,
		Type:         model.EventDocumentUploaded,
		Description:  filename,
	})

	text := extractText(contentType, data)
	if text == "" {
		s.documents.UpdateStatus(ctx, doc.ID, model.DocumentProcessed, "", nil)
		doc.Status = model.DocumentProcessed
		return doc, nil
	}

	suggested, err := s.ai.SuggestRiskAreas(ctx, text, s.catalog.RiskAreas)
	if err != nil {
		log.Printf("[DocumentService] risk area suggestion failed for %s: %v", doc.ID, err)
		suggested = nil
	}
	if err := s.documents.UpdateStatus(ctx, doc.ID, model.DocumentProcessed, text, suggested); err != nil {
		log.Printf("[DocumentService] failed to update document %s: %v", doc.ID, err)
	}
	doc.Status = model.DocumentProcessed
	doc.ExtractedText = text
	doc.SuggestedRiskAreas = suggested

	if assessmentID != "" {
		s.attachSuggestions(ctx, assessmentID, doc)
	}
	return doc, nil
}

// List returns documents uploaded to an assessment
func (s *DocumentService) List(ctx context.Context, assessmentID string) ([]*model.Document, error) {
	docs, err := s.documents.GetByAssessmentID(ctx, assessmentID)
	if err != nil {
		return nil, model.UpstreamErr("failed to list documents", err)
	}
	return docs, nil
}

// Fetch returns the raw bytes of a stored document
func (s *DocumentService) Fetch(ctx context.Context, documentID string) (*model.Document, []byte, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err == repository.ErrNotFound {
		return nil, nil, model.NotFoundErr("document %s not found", documentID)
	}
	if err != nil {
		return nil, nil, model.UpstreamErr("failed to load document", err)
	}

	data, err := s.objects.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, model.UpstreamErr("failed to load document contents", err)
	}
	return doc, data, nil
}

// CombinedText concatenates extracted text across an assessment's documents
// for answer suggestions.
func (s *DocumentService) CombinedText(ctx context.Context, assessmentID string) string {
	docs, err := s.documents.GetByAssessmentID(ctx, assessmentID)
	if err != nil {
		log.Printf("[DocumentService] failed to load documents for %s: %v", assessmentID, err)
		return ""
	}
	var parts []string
	for _, doc := range docs {
		if doc.ExtractedText != "" {
			parts = append(parts, doc.ExtractedText)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (s *DocumentService) attachSuggestions(ctx context.Context, assessmentID string, doc *model.Document) {
	assessment, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		log.Printf("[DocumentService] failed to load assessment %s: %v", assessmentID, err)
		return
	}
	if assessment.Locked() {
		return
	}

	changed := false
	areas := assessment.ActiveRiskAreas
	linked := append([]string{}, assessment.LinkedDocuments...)
	linked = append(linked, doc.ID)
	for _, raw := range doc.SuggestedRiskAreas {
		areaID, ok := s.catalog.ResolveAreaID(raw)
		if !ok || assessment.HasRiskArea(areaID) {
			continue
		}
		areas = append(areas, areaID)
		assessment.ActiveRiskAreas = areas
		changed = true
		s.events.Record(ctx, &model.Event{
			AssessmentID: assessmentID,
			SessionID:    assessment.SessionID,
			Type:         model.EventRiskAreaAdded,
			Description:  areaID,
			Metadata:     map[string]string{"source": "document", "documentId": doc.ID},
		})
	}

	fields := map[string]interface{}{"linkedDocuments": linked}
	if changed {
		fields["activeRiskAreas"] = areas
	}
	if _, err := s.assessments.Update(ctx, assessmentID, fields); err != nil {
		log.Printf("[DocumentService] failed to link document %s to %s: %v", doc.ID, assessmentID, err)
	}
}

// extractText pulls usable text out of an upload. Only textual content types
// are handled here; PDF and office formats need an external extractor.
func extractText(contentType string, data []byte) string {
	ct := strings.ToLower(contentType)
	if strings.HasPrefix(ct, "text/") || strings.Contains(ct, "json") || strings.Contains(ct, "markdown") {
		return strings.TrimSpace(string(data))
	}
	return ""
}
