package memory

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestGetOrCreate(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	sess, err := s.GetOrCreate(ctx, "user-1", "web")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if !strings.HasPrefix(sess.SessionID, "sess_") || len(sess.SessionID) != len("sess_")+16 {
		t.Errorf("session id = %q", sess.SessionID)
	}
	if sess.CurrentNode != "start" || sess.Platform != "web" {
		t.Errorf("new session = %+v", sess)
	}

	// Same user within the timeout gets the same session.
	again, err := s.GetOrCreate(ctx, "user-1", "web")
	if err != nil {
		t.Fatal(err)
	}
	if again.SessionID != sess.SessionID {
		t.Errorf("session id changed: %q vs %q", again.SessionID, sess.SessionID)
	}

	// Different user gets a different session.
	other, err := s.GetOrCreate(ctx, "user-2", "android")
	if err != nil {
		t.Fatal(err)
	}
	if other.SessionID == sess.SessionID {
		t.Error("sessions shared across users")
	}
}

func TestGetOrCreate_EmptyUser(t *testing.T) {
	s := New(0)
	if _, err := s.GetOrCreate(context.Background(), "", "web"); err == nil {
		t.Fatal("GetOrCreate(\"\") returned nil error")
	}
}

func TestGetOrCreate_Expiry(t *testing.T) {
	s := New(30 * time.Minute)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	first, err := s.GetOrCreate(ctx, "user-1", "web")
	if err != nil {
		t.Fatal(err)
	}

	// Just inside the window: same session.
	s.now = func() time.Time { return now.Add(29 * time.Minute) }
	same, _ := s.GetOrCreate(ctx, "user-1", "web")
	if same.SessionID != first.SessionID {
		t.Error("session replaced before expiry")
	}

	// Past the window: fresh session.
	s.now = func() time.Time { return now.Add(61 * time.Minute) }
	fresh, _ := s.GetOrCreate(ctx, "user-1", "web")
	if fresh.SessionID == first.SessionID {
		t.Error("expired session reused")
	}
	if fresh.CurrentNode != "start" {
		t.Errorf("fresh session node = %q", fresh.CurrentNode)
	}
}

func TestUpdate(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	sess, _ := s.GetOrCreate(ctx, "user-1", "web")
	if err := s.Update(ctx, "user-1", sess.SessionID, "wallet_issues"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := s.GetOrCreate(ctx, "user-1", "web")
	if got.CurrentNode != "wallet_issues" {
		t.Errorf("CurrentNode = %q, want wallet_issues", got.CurrentNode)
	}

	if err := s.Update(ctx, "user-1", "sess_wrong", "start"); err == nil {
		t.Error("Update() with wrong session id returned nil error")
	}
	if err := s.Update(ctx, "nobody", sess.SessionID, "start"); err == nil {
		t.Error("Update() for unknown user returned nil error")
	}
}

func TestAppendHistory(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	sess, _ := s.GetOrCreate(ctx, "user-1", "web")
	if err := s.AppendHistory(ctx, "user-1", sess.SessionID, "user", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendHistory(ctx, "user-1", sess.SessionID, "assistant", "hi, how can I help?"); err != nil {
		t.Fatal(err)
	}

	history, err := s.History(ctx, "user-1", sess.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Role != "user" || history[0].Content != "hello" {
		t.Errorf("history[0] = %+v", history[0])
	}
	if history[1].Role != "assistant" {
		t.Errorf("history[1] = %+v", history[1])
	}

	if err := s.AppendHistory(ctx, "user-1", "sess_wrong", "user", "x"); err == nil {
		t.Error("AppendHistory() with wrong session id returned nil error")
	}
}

func TestActivityExtendsSession(t *testing.T) {
	s := New(30 * time.Minute)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }
	sess, _ := s.GetOrCreate(ctx, "user-1", "web")

	// Activity at minute 20 pushes the expiry window forward.
	s.now = func() time.Time { return now.Add(20 * time.Minute) }
	if err := s.Update(ctx, "user-1", sess.SessionID, "support"); err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return now.Add(45 * time.Minute) }
	got, _ := s.GetOrCreate(ctx, "user-1", "web")
	if got.SessionID != sess.SessionID {
		t.Error("session expired despite recent activity")
	}
}
