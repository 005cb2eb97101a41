package router

import (
	"context"
	"fmt"
	"strings"

	"traflow/internal/catalog"
	"traflow/internal/model"
	"traflow/internal/service"
)

// DocumentHandler answers document-related chat turns. Actual uploads arrive
// over the REST endpoint; chat only lists and explains.
type DocumentHandler struct {
	documents *service.DocumentService
	catalog   *catalog.Catalog
}

func NewDocumentHandler(documents *service.DocumentService, cat *catalog.Catalog) *DocumentHandler {
	return &DocumentHandler{documents: documents, catalog: cat}
}

func (h *DocumentHandler) Handle(ctx context.Context, tc *model.TurnContext, message string) (string, error) {
	if tc.AssessmentID == "" {
		return "Documents are linked to an assessment, and there's no active assessment in this session yet. Create one first, then upload your project documents.", nil
	}

	lower := strings.ToLower(message)
	if strings.Contains(lower, "list") || strings.Contains(lower, "what") || strings.Contains(lower, "which") {
		return h.list(ctx, tc)
	}
	return "You can upload project documents (architecture notes, data flow descriptions, vendor contracts) and I'll suggest which risk areas apply. " +
		"Use the upload button, or POST the file to the documents endpoint for this assessment.", nil
}

func (h *DocumentHandler) list(ctx context.Context, tc *model.TurnContext) (string, error) {
	docs, err := h.documents.List(ctx, tc.AssessmentID)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "No documents uploaded to this assessment yet.", nil
	}

	var b strings.Builder
	b.WriteString("Documents on this assessment:\n")
	for _, doc := range docs {
		fmt.Fprintf(&b, "• %s (%s)", doc.Filename, doc.Status)
		if len(doc.SuggestedRiskAreas) > 0 {
			names := make([]string, 0, len(doc.SuggestedRiskAreas))
			for _, id := range doc.SuggestedRiskAreas {
				names = append(names, h.catalog.AreaName(id))
			}
			fmt.Fprintf(&b, " — suggested: %s", strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
