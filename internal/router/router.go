package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"traflow/internal/cache"
	"traflow/internal/catalog"
	"traflow/internal/flow"
	"traflow/internal/model"
	"traflow/internal/repository"
	"traflow/internal/service"
)

// confidenceThreshold is the minimum classifier confidence for a direct route
const confidenceThreshold = 0.7

var (
	finalizePattern = regexp.MustCompile(`(?i)\b(finali[sz]e|submit)\b`)
	reviewPattern   = regexp.MustCompile(`(?i)\breview\b`)
	startPattern    = regexp.MustCompile(`(?i)\b(start|begin|continue|resume)\b.*\b(assessment|tra|questions?|questionnaire|answering)\b`)
	numberPattern   = regexp.MustCompile(`^\s*(\d+)\s*\.?\s*$`)
	letterPattern   = regexp.MustCompile(`^\s*([A-Za-z])\s*[.)]?\s*$`)
)

var resetPhrases = []string{"reset", "start over", "restart"}

// keywordRoutes is the deterministic fallback when the classifier is
// unavailable. Order matters: first hit wins.
var keywordRoutes = []struct {
	handler  model.HandlerType
	keywords []string
}{
	{model.HandlerDocument, []string{"document", "upload", "file", "attach"}},
	{model.HandlerStatus, []string{"status", "progress", "summary", "report", "how far", "how much"}},
	{model.HandlerAssessment, []string{"assessment", "create", "new", "risk area", "list"}},
	{model.HandlerQuestion, []string{"question", "answer", "next", "skip", "continue", "resume"}},
}

// Router is the per-turn dispatcher. Deterministic routes run before the
// intent classifier so that mid-flow answers never leave the question loop.
type Router struct {
	contexts    cache.ContextCache
	assessments repository.AssessmentRepository
	catalog     *catalog.Catalog
	qualifying  *flow.QualifyingFlow
	ai          *service.AIService

	question   *QuestionHandler
	assessment *AssessmentHandler
	status     *StatusHandler
	document   *DocumentHandler
}

func NewRouter(contexts cache.ContextCache, assessments repository.AssessmentRepository, cat *catalog.Catalog, qualifying *flow.QualifyingFlow, ai *service.AIService, question *QuestionHandler, assessment *AssessmentHandler, status *StatusHandler, document *DocumentHandler) *Router {
	return &Router{
		contexts:    contexts,
		assessments: assessments,
		catalog:     cat,
		qualifying:  qualifying,
		ai:          ai,
		question:    question,
		assessment:  assessment,
		status:      status,
		document:    document,
	}
}

// HandleTurn processes one user message for a session and returns the reply.
// Per-turn failures are folded into a user-facing recovery message; the error
// return is reserved for context-store failures.
func (r *Router) HandleTurn(ctx context.Context, sessionID, message string) (string, error) {
	tc, err := r.contexts.Get(ctx, sessionID)
	if err != nil {
		if err != cache.ErrMiss {
			log.Printf("[Router] Context load failed for %s, starting fresh: %v", sessionID, err)
		}
		tc = model.NewTurnContext(sessionID)
	}

	reply, err := r.dispatch(ctx, tc, strings.TrimSpace(message))
	if err != nil {
		log.Printf("[Router] Turn failed for %s: %v", sessionID, err)
		reply = recoveryReply(err)
	}

	tc.LastMessage = message
	if err := r.contexts.Set(ctx, tc); err != nil {
		return "", fmt.Errorf("save turn context: %w", err)
	}
	return reply, nil
}

// dispatch walks the routing waterfall top to bottom
func (r *Router) dispatch(ctx context.Context, tc *model.TurnContext, message string) (string, error) {
	lower := strings.ToLower(message)

	// 1. Reset always wins, even mid-sub-flow.
	for _, phrase := range resetPhrases {
		if lower == phrase {
			tc.Reset()
			if err := r.contexts.Delete(ctx, tc.SessionID); err != nil {
				log.Printf("[Router] Context delete failed for %s: %v", tc.SessionID, err)
			}
			return "🔄 Session reset. Say \"create a new assessment\" to start again.", nil
		}
	}

	// 2. The qualifying sub-flow owns the conversation while active.
	if tc.SubFlow == model.SubFlowQualifying {
		tc.LastRoutedHandler = model.HandlerQuestion
		return r.qualifying.HandleTurn(ctx, message, tc)
	}

	// 3-4. Finalize and review are explicit commands.
	if finalizePattern.MatchString(lower) {
		tc.LastRoutedHandler = model.HandlerStatus
		return r.status.Finalize(ctx, tc)
	}
	if reviewPattern.MatchString(lower) {
		tc.LastRoutedHandler = model.HandlerStatus
		return r.status.Review(ctx, tc)
	}

	// 5. A pending prompt, menu, or risk-area selection consumes this turn.
	if tc.WaitingForProjectName {
		tc.LastRoutedHandler = model.HandlerAssessment
		return r.assessment.Handle(ctx, tc, message)
	}
	if tc.SubFlow == model.SubFlowAwaitingArea {
		if reply, handled, err := r.resolveAreaSelection(ctx, tc, message); handled || err != nil {
			return reply, err
		}
	}
	if tc.PendingMenu != nil {
		if reply, handled, err := r.resolveMenu(ctx, tc, message); handled || err != nil {
			return reply, err
		}
	}

	// 6. An open question means the message is its answer.
	if tc.AssessmentID != "" {
		if assessment, err := r.assessments.GetByID(ctx, tc.AssessmentID); err == nil && assessment.CurrentQuestionID != "" {
			tc.LastRoutedHandler = model.HandlerQuestion
			return r.question.Answer(ctx, tc, message)
		}
	}

	// 7. A short message naming a risk area starts its questions.
	if tc.AssessmentID != "" && wordCount(message) <= 4 {
		if areaID, ok := r.catalog.ResolveAreaID(message); ok {
			tc.LastRoutedHandler = model.HandlerQuestion
			return r.question.Start(ctx, tc, areaID)
		}
	}

	// 8. Terse follow-ups stick with the previous handler.
	if wordCount(message) <= 5 && tc.LastRoutedHandler != "" {
		return r.routeTo(ctx, tc, tc.LastRoutedHandler, message)
	}

	// 9. Start/continue verbs go to the question flow.
	if startPattern.MatchString(lower) {
		tc.LastRoutedHandler = model.HandlerQuestion
		return r.question.Handle(ctx, tc, message)
	}

	// 10. Intent classifier, when configured.
	if r.ai.Enabled() {
		classification, err := r.ai.Classify(ctx, message)
		if err == nil {
			if classification.Confidence >= confidenceThreshold && len(classification.Categories) == 1 {
				if handler, ok := parseHandlerType(classification.Categories[0]); ok {
					return r.routeTo(ctx, tc, handler, message)
				}
			}
			return "", model.AmbiguousErr("classifier confidence %.2f across %v", classification.Confidence, classification.Categories)
		}
		log.Printf("[Router] Classifier failed, using keywords: %v", err)
	}

	// 11. Keyword fallback.
	if handler, ok := matchKeywords(lower); ok {
		return r.routeTo(ctx, tc, handler, message)
	}
	return clarificationReply(), nil
}

func (r *Router) routeTo(ctx context.Context, tc *model.TurnContext, handler model.HandlerType, message string) (string, error) {
	tc.LastRoutedHandler = handler
	switch handler {
	case model.HandlerQuestion:
		return r.question.Handle(ctx, tc, message)
	case model.HandlerAssessment:
		return r.assessment.Handle(ctx, tc, message)
	case model.HandlerStatus:
		return r.status.Handle(ctx, tc, message)
	case model.HandlerDocument:
		return r.document.Handle(ctx, tc, message)
	}
	return clarificationReply(), nil
}

// resolveAreaSelection handles a turn while the session waits for the user to
// pick a risk area by number or name. Messages that match neither are not
// consumed here: the waterfall below gets a shot at them, with the selection
// state left intact for the next turn.
func (r *Router) resolveAreaSelection(ctx context.Context, tc *model.TurnContext, message string) (string, bool, error) {
	candidates := tc.RemainingRiskAreaIDs
	if len(candidates) == 0 {
		candidates = tc.AvailableRiskAreas
	}

	var chosen string
	if m := numberPattern.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= len(candidates) {
			chosen = candidates[n-1]
		}
	}
	if chosen == "" {
		if areaID, ok := r.catalog.ResolveAreaID(message); ok {
			for _, id := range candidates {
				if id == areaID {
					chosen = id
					break
				}
			}
		}
	}

	if chosen == "" {
		return "", false, nil
	}

	tc.SubFlow = model.SubFlowIdle
	tc.RemainingRiskAreaIDs = nil
	tc.AvailableRiskAreas = nil
	tc.PendingMenu = nil
	tc.LastRoutedHandler = model.HandlerQuestion

	// Areas listed for attachment still need attaching before questions start.
	if tc.AssessmentID != "" {
		if assessment, err := r.assessments.GetByID(ctx, tc.AssessmentID); err == nil && !assessment.HasRiskArea(chosen) {
			if _, _, err := r.assessment.assessments.AddRiskArea(ctx, tc.AssessmentID, chosen); err != nil {
				return "", true, err
			}
		}
	}
	reply, err := r.question.Start(ctx, tc, chosen)
	return reply, true, err
}

// resolveMenu handles a pending lettered menu, falling back to text matching
// against the option labels. A message matching no option is left for the
// waterfall, and the menu stays pending.
func (r *Router) resolveMenu(ctx context.Context, tc *model.TurnContext, message string) (string, bool, error) {
	menu := tc.PendingMenu
	idx := -1

	switch menu.Kind {
	case model.MenuKindLetter:
		if m := letterPattern.FindStringSubmatch(message); m != nil {
			idx = int(strings.ToUpper(m[1])[0] - 'A')
		}
	case model.MenuKindNumber:
		if m := numberPattern.FindStringSubmatch(message); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				idx = n - 1
			}
		}
	}
	if idx < 0 || idx >= len(menu.Options) {
		lower := strings.ToLower(message)
		for i, opt := range menu.Options {
			if strings.Contains(strings.ToLower(opt), lower) || strings.Contains(lower, strings.ToLower(opt)) {
				idx = i
				break
			}
		}
	}
	if idx < 0 || idx >= len(menu.Options) {
		return "", false, nil
	}

	chosen := strings.ToLower(menu.Options[idx])
	tc.PendingMenu = nil
	switch {
	case strings.Contains(chosen, "start answering"):
		tc.LastRoutedHandler = model.HandlerQuestion
		reply, err := r.question.Handle(ctx, tc, "start questions")
		return reply, true, err
	case strings.Contains(chosen, "add more"):
		tc.LastRoutedHandler = model.HandlerAssessment
		return r.assessment.listAreas(tc), true, nil
	case strings.Contains(chosen, "status"):
		tc.LastRoutedHandler = model.HandlerStatus
		reply, err := r.status.Handle(ctx, tc, "status")
		return reply, true, err
	}
	return clarificationReply(), true, nil
}

func clarificationReply() string {
	return "I'm not sure what you'd like to do. I can help you:\n" +
		"• Create or manage an assessment (\"create a new assessment\")\n" +
		"• Answer risk questions (\"start questions\")\n" +
		"• Upload and review documents (\"list documents\")\n" +
		"• Check progress (\"show status\")"
}

// recoveryReply maps a structured turn error onto a user-facing message
func recoveryReply(err error) string {
	switch model.KindOf(err) {
	case model.ErrKindNotFound, model.ErrKindValidation:
		var te *model.TurnError
		if errors.As(err, &te) {
			return "⚠️ " + te.Msg
		}
		return "⚠️ That didn't work, please check and try again."
	case model.ErrKindAmbiguousIntent:
		return clarificationReply()
	}
	return "😕 Something went wrong on my side. Your progress is saved, please try again in a moment."
}

func parseHandlerType(s string) (model.HandlerType, bool) {
	switch model.HandlerType(strings.ToLower(strings.TrimSpace(s))) {
	case model.HandlerAssessment:
		return model.HandlerAssessment, true
	case model.HandlerDocument:
		return model.HandlerDocument, true
	case model.HandlerQuestion:
		return model.HandlerQuestion, true
	case model.HandlerStatus:
		return model.HandlerStatus, true
	}
	return "", false
}

func matchKeywords(lower string) (model.HandlerType, bool) {
	for _, route := range keywordRoutes {
		for _, keyword := range route.keywords {
			if strings.Contains(lower, keyword) {
				return route.handler, true
			}
		}
	}
	return "", false
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
