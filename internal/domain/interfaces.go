package domain

import "context"

// FlowStore resolves flow nodes by id. GetNode never fails: unknown ids
// resolve to the default start node.
type FlowStore interface {
	GetNode(nodeID string) FlowNode
}

// SessionStore owns session persistence and conversation history. Cross-turn
// ordering for a given user is this collaborator's responsibility.
type SessionStore interface {
	GetOrCreate(ctx context.Context, userID, platform string) (Session, error)
	Update(ctx context.Context, userID, sessionID, currentNode string) error
	AppendHistory(ctx context.Context, userID, sessionID, role, content string) error
}

// FaultDetector resolves a fault from free text. A nil result is a normal
// miss, not an error.
type FaultDetector interface {
	Detect(message string) *Fault
}

// Generator produces fallback text. Implementations must always return some
// text, masking their own failures with a safe default.
type Generator interface {
	Generate(ctx context.Context, message string) string
}
