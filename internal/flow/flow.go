// Package flow serves conversation flow nodes loaded from a JSON content
// file. The engine walks nodes by id; authoring the content is out of scope.
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/voltgrid/supportbot/internal/domain"
)

// StartNode is the well-known default node id.
const StartNode = "start"

type flowsFile struct {
	Flows map[string]domain.FlowNode `json:"flows"`
}

// Store resolves flow nodes by id. Lookups never fail: unknown ids fall
// back to the start node, and a missing start node falls back to a built-in
// minimal node.
type Store struct {
	current atomic.Pointer[map[string]domain.FlowNode]
	logger  *slog.Logger
}

var _ domain.FlowStore = (*Store)(nil)

// New returns a store holding only the built-in minimal default flow.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{logger: logger}
	defaults := defaultFlows()
	s.current.Store(&defaults)
	return s
}

func defaultFlows() map[string]domain.FlowNode {
	return map[string]domain.FlowNode{
		StartNode: {
			Text:    "Welcome to EV Charging Technical Support. How can I help you?",
			Options: []string{"Report Error Code", "Troubleshoot Issue", "Contact Support"},
		},
	}
}

// Load reads the flows file at path and atomically replaces the node map.
// On error the previous map stays in place.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read flows %s: %w", path, err)
	}

	var parsed flowsFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse flows %s: %w", path, err)
	}
	if parsed.Flows == nil {
		parsed.Flows = map[string]domain.FlowNode{}
	}

	s.current.Store(&parsed.Flows)
	s.logger.Info("conversation flows loaded",
		slog.String("path", path),
		slog.Int("nodes", len(parsed.Flows)))
	return nil
}

// Len returns the number of loaded nodes.
func (s *Store) Len() int {
	return len(*s.current.Load())
}

// GetNode resolves a node by id. Unknown ids resolve to the start node;
// if even that is missing, a built-in fallback node is returned.
func (s *Store) GetNode(nodeID string) domain.FlowNode {
	flows := *s.current.Load()

	if node, ok := flows[nodeID]; ok {
		return node
	}

	s.logger.Warn("flow node not found, falling back to start", slog.String("node", nodeID))
	if node, ok := flows[StartNode]; ok {
		return node
	}
	return domain.FlowNode{Text: "How can I assist you with EV charging today?"}
}

// Watch reloads the flows file on write events until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	s.logger.Info("watching flows file for changes", slog.String("path", path))

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write != fsnotify.Write {
					continue
				}
				s.logger.Info("flows file changed, reloading", slog.String("path", event.Name))
				if err := s.Load(path); err != nil {
					s.logger.Error("flows reload failed",
						slog.String("error", err.Error()),
						slog.String("path", path))
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("flows watch error", slog.String("error", err.Error()))
			}
		}
	}()

	return nil
}
