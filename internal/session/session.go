// Package session defines shared session-store types and defaults. The
// backends live in the memory and sqlite subpackages.
package session

import "time"

// DefaultTimeout is how long a session stays live without activity before
// the next request starts a fresh one.
const DefaultTimeout = 30 * time.Minute

// Message is one history entry in a session transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
