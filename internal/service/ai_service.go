package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"traflow/internal/config"
	"traflow/internal/model"
)

// Classification is the intent-classifier verdict for one message
type Classification struct {
	Categories []string `json:"intent"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// AnswerSuggestion is a document-grounded suggested answer
type AnswerSuggestion struct {
	HasSuggestion   bool   `json:"hasSuggestion"`
	SuggestedAnswer string `json:"suggestedAnswer"`
	Confidence      string `json:"confidence"` // high, medium, low
	Reasoning       string `json:"reasoning"`
}

// AIService talks to the hosted completion API. Every method degrades
// cleanly when no API key is configured.
type AIService struct {
	config *config.AIConfig
	client *http.Client
}

func NewAIService(cfg *config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
	}
}

// Enabled reports whether the completion API is configured
func (s *AIService) Enabled() bool {
	return s.config.IsEnabled()
}

// Classify extracts intent for the dialogue router. A transport failure is
// returned as an error (callers fall back to keyword matching); a malformed
// model response fails closed to confidence 0.
func (s *AIService) Classify(ctx context.Context, message string) (*Classification, error) {
	if !s.config.IsEnabled() {
		return nil, fmt.Errorf("completion service not configured")
	}

	prompt := fmt.Sprintf(`Classify the user request into one or more of these handler types: assessment, document, question, status.
Respond in JSON: {"intent": [handler_types], "confidence": float (0-1), "reasoning": string}.
If ambiguous, set confidence below 0.7 and explain in reasoning.

User message: %q`, message)

	response, err := s.callGemini(ctx, s.config.Models.Classify, prompt)
	if err != nil {
		return nil, err
	}

	var result Classification
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return &Classification{Confidence: 0, Reasoning: "malformed classifier response"}, nil
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		result.Confidence = 0
	}
	return &result, nil
}

// SuggestAnswer proposes an answer to a question from uploaded-document text
func (s *AIService) SuggestAnswer(ctx context.Context, question model.QuestionRecord, documentText string) (*AnswerSuggestion, error) {
	if !s.config.IsEnabled() || strings.TrimSpace(documentText) == "" {
		return &AnswerSuggestion{HasSuggestion: false}, nil
	}

	var optionsHint string
	if len(question.Options) > 0 {
		labels := make([]string, len(question.Options))
		for i, opt := range question.Options {
			labels[i] = opt.Label
		}
		optionsHint = "Valid options: " + strings.Join(labels, ", ") + "\n"
	}

	prompt := fmt.Sprintf(`You are suggesting an answer to a technology-risk questionnaire question based on project documents.
Return ONLY valid JSON: {"hasSuggestion": bool, "suggestedAnswer": string, "confidence": "high"|"medium"|"low", "reasoning": string}.
If the documents do not support a confident answer, set hasSuggestion to false.

Question: %s
%sDocument excerpts:
%s`, question.Text, optionsHint, truncate(documentText, 6000))

	response, err := s.callGemini(ctx, s.config.Models.Suggest, prompt)
	if err != nil {
		return &AnswerSuggestion{HasSuggestion: false}, nil
	}

	var suggestion AnswerSuggestion
	if err := json.Unmarshal([]byte(response), &suggestion); err != nil {
		return &AnswerSuggestion{HasSuggestion: false}, nil
	}
	return &suggestion, nil
}

// SuggestRiskAreas proposes risk-area ids for an uploaded document
func (s *AIService) SuggestRiskAreas(ctx context.Context, documentText string, areas []model.RiskArea) ([]string, error) {
	if !s.config.IsEnabled() || strings.TrimSpace(documentText) == "" {
		return nil, nil
	}

	var b strings.Builder
	for _, ra := range areas {
		fmt.Fprintf(&b, "- %s: %s\n", ra.ID, ra.Name)
	}
	prompt := fmt.Sprintf(`Read the project document excerpts and pick which risk areas apply.
Return ONLY valid JSON: {"riskAreas": [risk_area_ids]}. Use only ids from this list:
%s
Document excerpts:
%s`, b.String(), truncate(documentText, 6000))

	response, err := s.callGemini(ctx, s.config.Models.Summary, prompt)
	if err != nil {
		return nil, err
	}

	var result struct {
		RiskAreas []string `json:"riskAreas"`
	}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, nil
	}
	return result.RiskAreas, nil
}

// Summarize produces a short narrative summary of an assessment's answers
func (s *AIService) Summarize(ctx context.Context, title string, answers string) (string, error) {
	if !s.config.IsEnabled() {
		return "", nil
	}
	prompt := fmt.Sprintf(`Summarize this technology-risk assessment in at most four sentences for a reviewer.
Return ONLY valid JSON: {"summary": string}.

Assessment: %s
Answers:
%s`, title, truncate(answers, 6000))

	response, err := s.callGemini(ctx, s.config.Models.Summary, prompt)
	if err != nil {
		return "", err
	}
	var result struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return "", nil
	}
	return result.Summary, nil
}

// callGemini makes a request to the completion API
func (s *AIService) callGemini(ctx context.Context, modelName, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", s.config.ModelEndpoint(modelName), s.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", err
	}
	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}
	return "", fmt.Errorf("empty response from completion service")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
