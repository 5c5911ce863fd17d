package memory

import (
	"testing"

	"peace-cake-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	engine := app.NewEngine(store, app.DefaultRules())

	snap, err := engine.CreateSession("quiz-1", []string{"Red", "Blue"}, 20)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}
	session, ok := store.Get(snap.ID)
	if !ok {
		t.Fatalf("expected session present")
	}
	if session.ID() != snap.ID {
		t.Fatalf("expected id %s, got %s", snap.ID, session.ID())
	}

	if err := store.Add(session); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if _, ok := store.Get("missing"); ok {
		t.Fatalf("expected unknown session to be absent")
	}
}
