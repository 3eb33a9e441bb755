package generate

import (
	"context"
	"strings"
	"testing"
)

func TestStatic_Generate(t *testing.T) {
	g := NewStatic()
	ctx := context.Background()

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"help request", "I need some help here", "error code"},
		{"question", "what is the meaning of life?", "good question"},
		{"thanks", "thanks a lot!", "You're welcome"},
		{"gibberish", "zxcvbnm", "not sure I understood"},
		{"empty", "", "not sure I understood"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Generate(ctx, tt.message)
			if !strings.Contains(got, tt.want) {
				t.Errorf("Generate(%q) = %q, want substring %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestStatic_NeverEmpty(t *testing.T) {
	g := NewStatic()
	for _, msg := range []string{"", "???", "hello", strings.Repeat("x", 5000)} {
		if got := g.Generate(context.Background(), msg); got == "" {
			t.Errorf("Generate(%q) returned empty reply", msg)
		}
	}
}
