package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"traflow/internal/catalog"
	"traflow/internal/model"
	"traflow/internal/repository"
)

// stateTransitions lists the allowed lifecycle moves
var stateTransitions = map[model.AssessmentState][]model.AssessmentState{
	model.StateDraft:       {model.StateSubmitted},
	model.StateSubmitted:   {model.StateUnderReview},
	model.StateUnderReview: {model.StateSentBack, model.StateFinalized},
	model.StateSentBack:    {model.StateSubmitted},
}

// AssessmentService owns the assessment lifecycle
type AssessmentService struct {
	assessments repository.AssessmentRepository
	events      repository.EventRepository
	catalog     *catalog.Catalog
}

func NewAssessmentService(assessments repository.AssessmentRepository, events repository.EventRepository, cat *catalog.Catalog) *AssessmentService {
	return &AssessmentService{assessments: assessments, events: events, catalog: cat}
}

// NewID generates an assessment id like TRA-2026-4F9A2C
func NewID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:6]
	return fmt.Sprintf("TRA-%d-%s", now.Year(), suffix)
}

// Create starts a new draft assessment for a session
func (s *AssessmentService) Create(ctx context.Context, sessionID, title, description, businessUnit string) (*model.Assessment, error) {
	if strings.TrimSpace(title) == "" {
		return nil, model.ValidationErr("assessment title is required")
	}

	now := time.Now().UTC()
	assessment := &model.Assessment{
		ID:                NewID(now),
		SessionID:         sessionID,
		Title:             strings.TrimSpace(title),
		Description:       strings.TrimSpace(description),
		BusinessUnit:      strings.TrimSpace(businessUnit),
		State:             model.StateDraft,
		ActiveRiskAreas:   []string{},
		AnswersByRiskArea: map[string]model.AnswerSet{},
		SkippedQuestions:  []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.assessments.Create(ctx, assessment); err != nil {
		return nil, model.UpstreamErr("failed to create assessment", err)
	}

	s.events.Record(ctx, &model.Event{
		AssessmentID: assessment.ID,
		SessionID:    sessionID,
		Type:         model.EventAssessmentCreated,
		Description:  assessment.Title,
	})
	return assessment, nil
}

func (s *AssessmentService) Get(ctx context.Context, id string) (*model.Assessment, error) {
	assessment, err := s.assessments.GetByID(ctx, id)
	if err == repository.ErrNotFound {
		return nil, model.NotFoundErr("assessment %s not found", id)
	}
	if err != nil {
		return nil, model.UpstreamErr("failed to load assessment", err)
	}
	return assessment, nil
}

func (s *AssessmentService) List(ctx context.Context, filter repository.AssessmentFilter) ([]*model.Assessment, error) {
	assessments, err := s.assessments.List(ctx, filter)
	if err != nil {
		return nil, model.UpstreamErr("failed to list assessments", err)
	}
	return assessments, nil
}

// AddRiskArea attaches a risk area to an assessment. Adding an area that is
// already attached is a no-op, not an error.
func (s *AssessmentService) AddRiskArea(ctx context.Context, assessmentID, area string) (*model.Assessment, string, error) {
	assessment, err := s.Get(ctx, assessmentID)
	if err != nil {
		return nil, "", err
	}
	if assessment.Locked() {
		return nil, "", model.ValidationErr("assessment %s is %s and can no longer be changed", assessmentID, assessment.State)
	}

	areaID, ok := s.catalog.ResolveAreaID(area)
	if !ok {
		return nil, "", model.ValidationErr("unknown risk area %q", area)
	}
	name := s.catalog.AreaName(areaID)
	if assessment.HasRiskArea(areaID) {
		return assessment, name, nil
	}

	assessment.ActiveRiskAreas = append(assessment.ActiveRiskAreas, areaID)
	updated, err := s.assessments.Update(ctx, assessmentID, map[string]interface{}{
		"activeRiskAreas": assessment.ActiveRiskAreas,
	})
	if err != nil {
		return nil, "", model.UpstreamErr("failed to update assessment", err)
	}

	s.events.Record(ctx, &model.Event{
		AssessmentID: assessmentID,
		SessionID:    assessment.SessionID,
		Type:         model.EventRiskAreaAdded,
		Description:  areaID,
	})
	return updated, name, nil
}

// RemoveRiskArea detaches a risk area. Recorded answers for the area are kept
// so that re-attaching restores progress.
func (s *AssessmentService) RemoveRiskArea(ctx context.Context, assessmentID, area string) (*model.Assessment, string, error) {
	assessment, err := s.Get(ctx, assessmentID)
	if err != nil {
		return nil, "", err
	}
	if assessment.Locked() {
		return nil, "", model.ValidationErr("assessment %s is %s and can no longer be changed", assessmentID, assessment.State)
	}

	areaID, ok := s.catalog.ResolveAreaID(area)
	if !ok || !assessment.HasRiskArea(areaID) {
		return nil, "", model.ValidationErr("risk area %q is not attached to assessment %s", area, assessmentID)
	}

	remaining := make([]string, 0, len(assessment.ActiveRiskAreas))
	for _, id := range assessment.ActiveRiskAreas {
		if id != areaID {
			remaining = append(remaining, id)
		}
	}

	fields := map[string]interface{}{"activeRiskAreas": remaining}
	if assessment.CurrentRiskArea == areaID {
		fields["currentQuestionId"] = ""
		fields["currentRiskArea"] = ""
	}
	updated, err := s.assessments.Update(ctx, assessmentID, fields)
	if err != nil {
		return nil, "", model.UpstreamErr("failed to update assessment", err)
	}

	s.events.Record(ctx, &model.Event{
		AssessmentID: assessmentID,
		SessionID:    assessment.SessionID,
		Type:         model.EventRiskAreaRemoved,
		Description:  areaID,
	})
	return updated, s.catalog.AreaName(areaID), nil
}

// Submit moves a draft or sent-back assessment to submitted and locks answers
func (s *AssessmentService) Submit(ctx context.Context, assessmentID string) (*model.Assessment, error) {
	return s.transition(ctx, assessmentID, model.StateSubmitted, model.EventAssessmentSubmitted)
}

// UpdateState applies an arbitrary allowed lifecycle transition
func (s *AssessmentService) UpdateState(ctx context.Context, assessmentID string, target model.AssessmentState) (*model.Assessment, error) {
	eventType := model.EventType("")
	switch target {
	case model.StateSubmitted:
		eventType = model.EventAssessmentSubmitted
	case model.StateFinalized:
		eventType = model.EventAssessmentFinalized
	}
	return s.transition(ctx, assessmentID, target, eventType)
}

func (s *AssessmentService) transition(ctx context.Context, assessmentID string, target model.AssessmentState, eventType model.EventType) (*model.Assessment, error) {
	assessment, err := s.Get(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range stateTransitions[assessment.State] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, model.ValidationErr("cannot move assessment %s from %s to %s", assessmentID, assessment.State, target)
	}

	fields := map[string]interface{}{"currentState": target}
	now := time.Now().UTC()
	switch target {
	case model.StateSubmitted:
		fields["submittedAt"] = now
	case model.StateFinalized:
		fields["finalizedAt"] = now
	}

	updated, err := s.assessments.Update(ctx, assessmentID, fields)
	if err != nil {
		return nil, model.UpstreamErr("failed to update assessment state", err)
	}
	if eventType != "" {
		s.events.Record(ctx, &model.Event{
			AssessmentID: assessmentID,
			SessionID:    assessment.SessionID,
			Type:         eventType,
			Description:  string(target),
		})
	}
	return updated, nil
}
