package generate

import (
	"context"

	"github.com/voltgrid/supportbot/internal/domain"
)

// Static answers from the canned reply table without any network calls.
// It is the generator used when no OpenAI API key is configured.
type Static struct{}

var _ domain.Generator = Static{}

// NewStatic returns the offline generator.
func NewStatic() Static { return Static{} }

func (Static) Generate(_ context.Context, message string) string {
	return canned(message)
}
