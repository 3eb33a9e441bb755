// Package router is the conversation core: it routes each incoming turn to
// exactly one response strategy, evaluated in strict priority order.
//
// Per turn the stages are: direct option mapping, diagnostic detection,
// fuzzy payment check, explicit action, keyword intent detection, and
// finally the generated fallback. The first stage that matches wins. The
// router itself is stateless; the only conversation memory is the session's
// current node, owned by the session store.
package router

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voltgrid/supportbot/internal/domain"
	"github.com/voltgrid/supportbot/internal/fuzzy"
	"github.com/voltgrid/supportbot/internal/intent"
)

// walletNode is where the fuzzy payment check routes, ahead of whatever the
// exact-keyword intent stage would have decided.
const walletNode = "wallet_issues"

// fallbackPlaceholder stands in for the message when a turn carries neither
// message nor action.
const fallbackPlaceholder = "Hello"

// diagnosticFollowUps are offered after every diagnostic response to collect
// feedback on whether the solutions helped.
var diagnosticFollowUps = []string{
	"✅ Yes, issue resolved",
	"❌ No, still having issues",
	"Back to Menu",
}

// Router evaluates the priority stages and sequences session side effects.
// It is safe for concurrent use: stage evaluation reads immutable tables,
// and all mutable state lives in the collaborators.
type Router struct {
	flows    domain.FlowStore
	detector domain.FaultDetector
	sessions domain.SessionStore
	fallback domain.Generator
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New wires the router to its collaborators.
func New(flows domain.FlowStore, detector domain.FaultDetector, sessions domain.SessionStore, fallback domain.Generator, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		flows:    flows,
		detector: detector,
		sessions: sessions,
		fallback: fallback,
		logger:   logger,
		tracer:   otel.Tracer("supportbot/router"),
	}
}

// Route processes one turn: fetch-or-create the session, pick a strategy,
// persist the resulting node, append history, and return the decision.
// Session store failures abort the turn and propagate to the caller.
func (r *Router) Route(ctx context.Context, userID, message, action, platform string) (domain.Decision, error) {
	ctx, span := r.tracer.Start(ctx, "router.Route")
	defer span.End()

	session, err := r.sessions.GetOrCreate(ctx, userID, platform)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("get session: %w", err)
	}

	decision, nextNode := r.decide(ctx, session, message, action)
	span.SetAttributes(
		attribute.String("decision.type", string(decision.Type)),
		attribute.String("decision.node", nextNode),
	)

	if err := r.sessions.Update(ctx, userID, session.SessionID, nextNode); err != nil {
		return domain.Decision{}, fmt.Errorf("update session: %w", err)
	}
	if message != "" {
		if err := r.sessions.AppendHistory(ctx, userID, session.SessionID, "user", message); err != nil {
			return domain.Decision{}, fmt.Errorf("append user message: %w", err)
		}
	}
	if err := r.sessions.AppendHistory(ctx, userID, session.SessionID, "assistant", decision.Text); err != nil {
		return domain.Decision{}, fmt.Errorf("append assistant message: %w", err)
	}

	return decision, nil
}

// decide evaluates the six stages in order and returns the decision plus
// the node to persist. Stages that answer in place rather than advance the
// conversation (diagnostic, fallback) return the current node unchanged.
func (r *Router) decide(ctx context.Context, session domain.Session, message, action string) (domain.Decision, string) {
	// Stage 1: direct option mapping. Button clicks route without any
	// intent checks; error-option labels fall through to detection.
	if message != "" {
		if node, ok := intent.OptionNode(message); ok {
			r.logger.Debug("routing option to node",
				slog.String("option", message), slog.String("node", node))
			return r.flowDecision(session.SessionID, node), node
		}
	}

	// Stage 2: diagnostic detection. A hit answers in place.
	if message != "" {
		if fault := r.detector.Detect(message); fault != nil {
			r.logger.Info("diagnostic match", slog.String("code", fault.Code))
			return r.diagnosticDecision(session.SessionID, fault), session.CurrentNode
		}
	}

	// Stage 3: fuzzy payment check. Catches misspellings like "payement"
	// that the exact-keyword intent stage would miss.
	if message != "" && fuzzy.MatchesAnyKeyword(message, intent.PaymentKeywords) {
		r.logger.Debug("payment keywords detected, routing to wallet flow")
		return r.flowDecision(session.SessionID, walletNode), walletNode
	}

	// Stage 4: explicit action routes directly, no further checks.
	if action != "" {
		r.logger.Debug("routing explicit action", slog.String("action", action))
		return r.flowDecision(session.SessionID, action), action
	}

	// Stage 5: keyword intent detection over the ordered rule table.
	if message != "" {
		if detected := intent.Detect(message); detected != "" {
			node := intent.NodeFor(detected)
			r.logger.Debug("intent detected",
				slog.String("intent", detected), slog.String("node", node))
			return r.flowDecision(session.SessionID, node), node
		}
	}

	// Stage 6: generated fallback.
	prompt := message
	if prompt == "" {
		prompt = fallbackPlaceholder
	}
	text := r.fallback.Generate(ctx, prompt)
	return domain.NewAIDecision(session.SessionID, text), session.CurrentNode
}

func (r *Router) flowDecision(sessionID, nodeID string) domain.Decision {
	node := r.flows.GetNode(nodeID)
	return domain.NewFlowDecision(sessionID, node.Text, node.Options, node.Steps, node.Action)
}

func (r *Router) diagnosticDecision(sessionID string, fault *domain.Fault) domain.Decision {
	text := fmt.Sprintf("I found information about %s - %s. Please review the solutions below.",
		fault.Code, fault.Title)
	return domain.NewDiagnosticDecision(sessionID, text, fault.Code, fault.Description,
		fault.Solutions, diagnosticFollowUps)
}
