// Package domain defines the core types exchanged between the router and
// its collaborators.
package domain

import "time"

// DecisionType discriminates the mutually exclusive response shapes.
type DecisionType string

const (
	DecisionDiagnostic DecisionType = "diagnostic"
	DecisionFlow       DecisionType = "flow"
	DecisionAI         DecisionType = "ai"
)

// Decision is the router's output. Exactly one variant's fields are
// populated, selected by Type; the constructors below are how the router
// builds one, which keeps the invariant honest.
type Decision struct {
	Type DecisionType `json:"type"`
	Text string       `json:"text"`

	// Diagnostic variant.
	ErrorCode   string   `json:"error_code,omitempty"`
	Description string   `json:"description,omitempty"`
	Solutions   []string `json:"solutions,omitempty"`

	// Flow variant (Options also carries diagnostic follow-ups).
	Options []string `json:"options,omitempty"`
	Steps   []string `json:"steps,omitempty"`
	Action  string   `json:"action,omitempty"`

	SessionID string `json:"session_id"`
}

// NewDiagnosticDecision builds a diagnostic decision from a detected fault.
func NewDiagnosticDecision(sessionID, text, code, description string, solutions, options []string) Decision {
	return Decision{
		Type:        DecisionDiagnostic,
		Text:        text,
		ErrorCode:   code,
		Description: description,
		Solutions:   solutions,
		Options:     options,
		SessionID:   sessionID,
	}
}

// NewFlowDecision builds a flow decision from flow node content.
func NewFlowDecision(sessionID, text string, options, steps []string, action string) Decision {
	return Decision{
		Type:      DecisionFlow,
		Text:      text,
		Options:   options,
		Steps:     steps,
		Action:    action,
		SessionID: sessionID,
	}
}

// NewAIDecision builds a generated-fallback decision.
func NewAIDecision(sessionID, text string) Decision {
	return Decision{
		Type:      DecisionAI,
		Text:      text,
		SessionID: sessionID,
	}
}

// Session is the conversation state the router reads. The router never
// mutates it; the session store owns persistence.
type Session struct {
	SessionID   string
	UserID      string
	CurrentNode string
	Platform    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FlowNode is a unit of externally-authored conversation content addressed
// by string id.
type FlowNode struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
	Steps   []string `json:"steps,omitempty"`
	Action  string   `json:"action,omitempty"`
}

// Fault is the flattened view of a detected catalog record, identical in
// shape regardless of which detection stage matched.
type Fault struct {
	Code        string   `json:"error_code"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Solutions   []string `json:"solutions"`
}
