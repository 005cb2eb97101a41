package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traflow/internal/cache"
	"traflow/internal/catalog"
	aiconfig "traflow/internal/config"
	"traflow/internal/flow"
	"traflow/internal/model"
	"traflow/internal/repository"
	"traflow/internal/service"
)

const routerCatalogDoc = `
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
      - id: AI-01
        question: "Does the model make decisions about people?"
        response_type: Yes/No
      - id: AI-02
        question: "Describe monitoring."
        response_type: free-text
        required: false
  data_privacy:
    name: "Data Privacy Risk"
    questions:
      - id: DP-01
        question: "Any cross-border transfer?"
        response_type: Yes/No
`

// fakeContexts is an in-memory ContextCache
type fakeContexts struct {
	bySession map[string]*model.TurnContext
}

func newFakeContexts() *fakeContexts {
	return &fakeContexts{bySession: make(map[string]*model.TurnContext)}
}

func (c *fakeContexts) Set(_ context.Context, tc *model.TurnContext) error {
	copied := *tc
	c.bySession[tc.SessionID] = &copied
	return nil
}

func (c *fakeContexts) Get(_ context.Context, sessionID string) (*model.TurnContext, error) {
	tc, ok := c.bySession[sessionID]
	if !ok {
		return nil, cache.ErrMiss
	}
	copied := *tc
	return &copied, nil
}

func (c *fakeContexts) Delete(_ context.Context, sessionID string) error {
	delete(c.bySession, sessionID)
	return nil
}

// fakeSuggestions always misses and swallows writes
type fakeSuggestions struct{}

func (fakeSuggestions) Set(_ context.Context, _, _ string, _ *cache.Suggestion) error {
	return nil
}

func (fakeSuggestions) Get(_ context.Context, _, _ string) (*cache.Suggestion, error) {
	return nil, cache.ErrMiss
}

// memAssessments is an in-memory AssessmentRepository
type memAssessments struct {
	byID map[string]*model.Assessment
}

func newMemAssessments() *memAssessments {
	return &memAssessments{byID: make(map[string]*model.Assessment)}
}

func (m *memAssessments) Create(_ context.Context, a *model.Assessment) error {
	m.byID[a.ID] = a
	return nil
}

func (m *memAssessments) GetByID(_ context.Context, id string) (*model.Assessment, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *memAssessments) Update(_ context.Context, id string, fields map[string]interface{}) (*model.Assessment, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "activeRiskAreas":
			a.ActiveRiskAreas = value.([]string)
		case "answersByRiskArea":
			a.AnswersByRiskArea = value.(map[string]model.AnswerSet)
		case "completionPercentage":
			a.CompletionPercentage = value.(float64)
		case "currentQuestionId":
			a.CurrentQuestionID = value.(string)
		case "currentRiskArea":
			a.CurrentRiskArea = value.(string)
		case "skippedQuestions":
			a.SkippedQuestions = value.([]string)
		case "currentState":
			a.State = value.(model.AssessmentState)
		case "linkedDocuments":
			a.LinkedDocuments = value.([]string)
		case "submittedAt":
			t := value.(time.Time)
			a.SubmittedAt = &t
		case "finalizedAt":
			t := value.(time.Time)
			a.FinalizedAt = &t
		}
	}
	copied := *a
	return &copied, nil
}

func (m *memAssessments) List(_ context.Context, filter repository.AssessmentFilter) ([]*model.Assessment, error) {
	var out []*model.Assessment
	for _, a := range m.byID {
		if filter.SessionID != "" && a.SessionID != filter.SessionID {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}

type memEvents struct {
	events []*model.Event
}

func (m *memEvents) Record(_ context.Context, e *model.Event) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memEvents) GetByAssessmentID(_ context.Context, assessmentID string) ([]*model.Event, error) {
	var out []*model.Event
	for _, e := range m.events {
		if e.AssessmentID == assessmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memDocuments struct {
	byID map[string]*model.Document
}

func newMemDocuments() *memDocuments {
	return &memDocuments{byID: make(map[string]*model.Document)}
}

func (m *memDocuments) Create(_ context.Context, d *model.Document) error {
	m.byID[d.ID] = d
	return nil
}

func (m *memDocuments) GetByID(_ context.Context, id string) (*model.Document, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (m *memDocuments) GetByAssessmentID(_ context.Context, assessmentID string) ([]*model.Document, error) {
	var out []*model.Document
	for _, d := range m.byID {
		if d.AssessmentID == assessmentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDocuments) UpdateStatus(_ context.Context, id string, status model.DocumentStatus, extractedText string, suggestedAreas []string) error {
	if d, ok := m.byID[id]; ok {
		d.Status = status
		if extractedText != "" {
			d.ExtractedText = extractedText
		}
		if suggestedAreas != nil {
			d.SuggestedRiskAreas = suggestedAreas
		}
	}
	return nil
}

type memObjects struct {
	blobs map[string][]byte
}

func newMemObjects() *memObjects {
	return &memObjects{blobs: make(map[string][]byte)}
}

func (m *memObjects) Put(_ context.Context, key, _ string, data []byte) error {
	m.blobs[key] = data
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return data, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	delete(m.blobs, key)
	return nil
}

type fixture struct {
	router      *Router
	contexts    *fakeContexts
	assessments *memAssessments
	events      *memEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureAI(t, &aiconfig.AIConfig{TimeoutMS: 1000})
}

func newFixtureAI(t *testing.T, aiCfg *aiconfig.AIConfig) *fixture {
	t.Helper()
	cat, err := catalog.Parse([]byte(routerCatalogDoc))
	require.NoError(t, err)

	assessments := newMemAssessments()
	events := &memEvents{}
	documents := newMemDocuments()
	objects := newMemObjects()
	contexts := newFakeContexts()

	aiSvc := service.NewAIService(aiCfg)
	assessmentSvc := service.NewAssessmentService(assessments, events, cat)
	linkSvc := service.NewLinkService("test-secret", "http://localhost:8080")
	statusSvc := service.NewStatusService(assessmentSvc, cat, linkSvc)
	documentSvc := service.NewDocumentService(documents, assessments, events, objects, aiSvc, cat)

	controller := flow.NewController(assessments, events, cat)
	qualifying := flow.NewQualifyingFlow(assessments, events, cat)

	questionHandler := NewQuestionHandler(controller, qualifying, assessments, cat, fakeSuggestions{}, documentSvc, aiSvc)
	assessmentHandler := NewAssessmentHandler(assessmentSvc, cat)
	statusHandler := NewStatusHandler(statusSvc)
	documentHandler := NewDocumentHandler(documentSvc, cat)

	r := NewRouter(contexts, assessments, cat, qualifying, aiSvc,
		questionHandler, assessmentHandler, statusHandler, documentHandler)

	return &fixture{router: r, contexts: contexts, assessments: assessments, events: events}
}

func (f *fixture) seedAssessment(areas ...string) *model.Assessment {
	a := &model.Assessment{
		ID:                "TRA-2026-TEST01",
		SessionID:         "sess-1",
		Title:             "Test Project",
		State:             model.StateDraft,
		ActiveRiskAreas:   areas,
		AnswersByRiskArea: map[string]model.AnswerSet{},
		CreatedAt:         time.Now().UTC(),
	}
	f.assessments.byID[a.ID] = a
	return a
}

func (f *fixture) seedContext(tc *model.TurnContext) {
	f.contexts.bySession[tc.SessionID] = tc
}

func TestCreateAssessmentFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply, err := f.router.HandleTurn(ctx, "sess-1", "Please create a new assessment called Phoenix Replatform")
	require.NoError(t, err)
	assert.Contains(t, reply, "Phoenix Replatform")

	tc, err := f.contexts.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.NotEmpty(t, tc.AssessmentID)
	assert.Equal(t, model.HandlerAssessment, tc.LastRoutedHandler)
}

func TestCreateAssessmentAsksForName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply, err := f.router.HandleTurn(ctx, "sess-1", "I want to create a new assessment please thanks")
	require.NoError(t, err)
	assert.Contains(t, reply, "called")

	// The next message is consumed as the project name
	reply, err = f.router.HandleTurn(ctx, "sess-1", "Payments Gateway Upgrade Program Initiative Phase Two")
	require.NoError(t, err)
	assert.Contains(t, reply, "Payments Gateway Upgrade")

	tc, _ := f.contexts.Get(ctx, "sess-1")
	assert.NotEmpty(t, tc.AssessmentID)
	assert.False(t, tc.WaitingForProjectName)
}

func TestStartAssessmentEntersQualifying(t *testing.T) {
	f := newFixture(t)
	f.seedAssessment()
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	f.seedContext(tc)

	reply, err := f.router.HandleTurn(ctx, "sess-1", "start the assessment for me please and thank you")
	require.NoError(t, err)
	assert.Contains(t, reply, "Question 1 of 1")

	stored, _ := f.contexts.Get(ctx, "sess-1")
	assert.Equal(t, model.SubFlowQualifying, stored.SubFlow)

	// While qualifying, every turn goes to the sub-flow, never the classifier
	reply, err = f.router.HandleTurn(ctx, "sess-1", "yes")
	require.NoError(t, err)
	assert.Contains(t, reply, "AI Risk")

	stored, _ = f.contexts.Get(ctx, "sess-1")
	assert.Equal(t, model.SubFlowIdle, stored.SubFlow)

	assessment, _ := f.assessments.GetByID(ctx, "TRA-2026-TEST01")
	assert.Equal(t, []string{"ai_risk"}, assessment.ActiveRiskAreas)
}

func TestOpenQuestionRoutesMessageAsAnswer(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssessment("ai_risk")
	a.CurrentQuestionID = "AI-01"
	a.CurrentRiskArea = "ai_risk"
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	tc.RiskArea = "ai_risk"
	f.seedContext(tc)

	// "No" would never survive intent classification; the open question
	// must capture it first.
	reply, err := f.router.HandleTurn(ctx, "sess-1", "No")
	require.NoError(t, err)
	assert.Contains(t, reply, "saved")

	assessment, _ := f.assessments.GetByID(ctx, "TRA-2026-TEST01")
	assert.Equal(t, "No", assessment.AnswersByRiskArea["ai_risk"]["AI-01"].Value)
}

func TestInvalidAnswerYieldsRecoveryReply(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssessment("ai_risk")
	a.CurrentQuestionID = "AI-01"
	a.CurrentRiskArea = "ai_risk"
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	f.seedContext(tc)

	reply, err := f.router.HandleTurn(ctx, "sess-1", "perhaps")
	require.NoError(t, err, "validation failures become replies, not transport errors")
	assert.Contains(t, reply, "Yes")

	// The open question is still open
	assessment, _ := f.assessments.GetByID(ctx, "TRA-2026-TEST01")
	assert.Equal(t, "AI-01", assessment.CurrentQuestionID)
}

func TestResetClearsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	tc.SubFlow = model.SubFlowQualifying
	f.seedContext(tc)

	reply, err := f.router.HandleTurn(ctx, "sess-1", "reset")
	require.NoError(t, err)
	assert.Contains(t, reply, "reset")

	stored, _ := f.contexts.Get(ctx, "sess-1")
	assert.Empty(t, stored.AssessmentID)
	assert.Equal(t, model.SubFlowIdle, stored.SubFlow)
}

func TestAwaitingAreaNumberSelection(t *testing.T) {
	f := newFixture(t)
	f.seedAssessment("ai_risk", "data_privacy")
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	tc.SubFlow = model.SubFlowAwaitingArea
	tc.RemainingRiskAreaIDs = []string{"ai_risk", "data_privacy"}
	tc.PendingMenu = &model.PendingMenu{Kind: model.MenuKindNumber, Options: []string{"AI Risk", "Data Privacy Risk"}}
	f.seedContext(tc)

	reply, err := f.router.HandleTurn(ctx, "sess-1", "2")
	require.NoError(t, err)
	assert.Contains(t, reply, "Any cross-border transfer?")

	stored, _ := f.contexts.Get(ctx, "sess-1")
	assert.Equal(t, model.SubFlowIdle, stored.SubFlow)
	assert.Nil(t, stored.PendingMenu)
	assert.Equal(t, "data_privacy", stored.RiskArea)
}

func TestAwaitingAreaNameSelection(t *testing.T) {
	f := newFixture(t)
	f.seedAssessment("ai_risk", "data_privacy")
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	tc.SubFlow = model.SubFlowAwaitingArea
	tc.RemainingRiskAreaIDs = []string{"ai_risk", "data_privacy"}
	f.seedContext(tc)

	reply, err := f.router.HandleTurn(ctx, "sess-1", "data privacy")
	require.NoError(t, err)
	assert.Contains(t, reply, "Any cross-border transfer?")
}

func TestAwaitingAreaUnrecognizedMessageKeepsSelection(t *testing.T) {
	f := newFixture(t)
	f.seedAssessment("ai_risk")
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	tc.SubFlow = model.SubFlowAwaitingArea
	tc.RemainingRiskAreaIDs = []string{"ai_risk"}
	f.seedContext(tc)

	// Not a valid pick and not routable anywhere else
	reply, err := f.router.HandleTurn(ctx, "sess-1", "42")
	require.NoError(t, err)
	assert.Contains(t, reply, "not sure")

	stored, _ := f.contexts.Get(ctx, "sess-1")
	assert.Equal(t, model.SubFlowAwaitingArea, stored.SubFlow, "selection state survives an unrecognized turn")

	// A valid pick on the next turn still works
	reply, err = f.router.HandleTurn(ctx, "sess-1", "1")
	require.NoError(t, err)
	assert.Contains(t, reply, "Does the model make decisions about people?")
}

func TestAwaitingAreaDoesNotSwallowCommands(t *testing.T) {
	f := newFixture(t)
	f.seedAssessment("ai_risk", "data_privacy")
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	tc.SubFlow = model.SubFlowAwaitingArea
	tc.RemainingRiskAreaIDs = []string{"data_privacy"}
	tc.PendingMenu = &model.PendingMenu{Kind: model.MenuKindNumber, Options: []string{"Data Privacy Risk"}}
	f.seedContext(tc)

	// A status request mid-selection routes to status, not the menu
	reply, err := f.router.HandleTurn(ctx, "sess-1", "show me the overall progress please")
	require.NoError(t, err)
	assert.Contains(t, reply, "Test Project")

	stored, _ := f.contexts.Get(ctx, "sess-1")
	assert.Equal(t, model.HandlerStatus, stored.LastRoutedHandler)
	assert.Equal(t, model.SubFlowAwaitingArea, stored.SubFlow, "the pending selection survives the detour")

	// ...and the selection can still be completed afterwards
	reply, err = f.router.HandleTurn(ctx, "sess-1", "1")
	require.NoError(t, err)
	assert.Contains(t, reply, "Any cross-border transfer?")
}

func TestFinalizeCommand(t *testing.T) {
	f := newFixture(t)
	f.seedAssessment("ai_risk")
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	f.seedContext(tc)

	reply, err := f.router.HandleTurn(ctx, "sess-1", "please finalize the assessment now")
	require.NoError(t, err)
	assert.Contains(t, reply, "submitted")
	assert.Contains(t, reply, "token=")

	assessment, _ := f.assessments.GetByID(ctx, "TRA-2026-TEST01")
	assert.Equal(t, model.StateSubmitted, assessment.State)
	require.NotNil(t, assessment.SubmittedAt)
}

func TestFollowUpSticksWithLastHandler(t *testing.T) {
	f := newFixture(t)
	f.seedAssessment("ai_risk")
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	tc.LastRoutedHandler = model.HandlerStatus
	f.seedContext(tc)

	reply, err := f.router.HandleTurn(ctx, "sess-1", "and overall?")
	require.NoError(t, err)
	assert.Contains(t, reply, "Test Project", "short follow-up re-enters the status handler")
}

func TestClarificationForUnroutableMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reply, err := f.router.HandleTurn(ctx, "sess-1", "the weather in Zurich seems particularly nice today somehow")
	require.NoError(t, err)
	assert.Contains(t, reply, "not sure")
}

func TestKeywordFallbackRoutesStatus(t *testing.T) {
	f := newFixture(t)
	f.seedAssessment("ai_risk")
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	f.seedContext(tc)

	reply, err := f.router.HandleTurn(ctx, "sess-1", "could you show me the current progress of everything")
	require.NoError(t, err)
	assert.Contains(t, reply, "Test Project")

	stored, _ := f.contexts.Get(ctx, "sess-1")
	assert.Equal(t, model.HandlerStatus, stored.LastRoutedHandler)
}

func TestStartVerbAloneDoesNotEnterQuestionFlow(t *testing.T) {
	f := newFixture(t)
	f.seedAssessment("ai_risk")
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	f.seedContext(tc)

	// "begin" without questionnaire phrasing must not hijack the turn;
	// the document keywords win here.
	reply, err := f.router.HandleTurn(ctx, "sess-1", "where do I begin with my uploaded files here")
	require.NoError(t, err)
	assert.Contains(t, reply, "upload")

	stored, _ := f.contexts.Get(ctx, "sess-1")
	assert.Equal(t, model.HandlerDocument, stored.LastRoutedHandler)
}

// geminiStub serves a fixed classifier verdict wrapped in the completion
// API's candidates envelope.
func geminiStub(t *testing.T, verdict string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		envelope := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": verdict}},
				}},
			},
		}
		_ = json.NewEncoder(w).Encode(envelope)
	}))
}

func classifierFixture(t *testing.T, verdict string) *fixture {
	t.Helper()
	srv := geminiStub(t, verdict)
	t.Cleanup(srv.Close)
	return newFixtureAI(t, &aiconfig.AIConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		Models:    aiconfig.GeminiModels{Classify: "stub", Suggest: "stub", Summary: "stub"},
		TimeoutMS: 2000,
	})
}

func TestClassifierRoutesConfidentIntent(t *testing.T) {
	f := classifierFixture(t, `{"intent": ["status"], "confidence": 0.92, "reasoning": "asks about progress"}`)
	f.seedAssessment("ai_risk")
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	f.seedContext(tc)

	reply, err := f.router.HandleTurn(ctx, "sess-1", "tell me how things are looking across the whole initiative")
	require.NoError(t, err)
	assert.Contains(t, reply, "Test Project")

	stored, _ := f.contexts.Get(ctx, "sess-1")
	assert.Equal(t, model.HandlerStatus, stored.LastRoutedHandler)
}

func TestClassifierLowConfidenceAsksForClarification(t *testing.T) {
	f := classifierFixture(t, `{"intent": ["status", "question"], "confidence": 0.40, "reasoning": "could be either"}`)
	f.seedAssessment("ai_risk")
	ctx := context.Background()

	tc := model.NewTurnContext("sess-1")
	tc.AssessmentID = "TRA-2026-TEST01"
	f.seedContext(tc)

	reply, err := f.router.HandleTurn(ctx, "sess-1", "tell me how things are looking across the whole initiative")
	require.NoError(t, err, "an unclear intent becomes a clarification reply, not a transport error")
	assert.Contains(t, reply, "not sure")
}
