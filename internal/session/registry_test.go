package session

import (
	"testing"

	"github.com/cairnmsg/mlscore/internal/identity"
	"github.com/cairnmsg/mlscore/internal/mlserr"
)

func testBundle(t *testing.T, fill byte) identity.Bundle {
	t.Helper()
	ident := make([]byte, 32)
	for i := range ident {
		ident[i] = fill
	}
	bundle, err := identity.CreateCredential(ident)
	if err != nil {
		t.Fatalf("create credential: %v", err)
	}
	return bundle
}

// TestIDUniqueness asserts testable property 10: session IDs produced
// in a process are pairwise distinct.
func TestIDUniqueness(t *testing.T) {
	r := NewRegistry(nil)
	seen := make(map[uint32]bool)
	for i := 0; i < 10; i++ {
		id, err := r.New(testBundle(t, byte(i)))
		if err != nil {
			t.Fatalf("new session: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate session id %d", id)
		}
		seen[id] = true
	}
}

// TestSessionDestruction asserts testable property 9: after destroy,
// further calls with that id return SessionNotFound, and a second
// destroy reports false.
func TestSessionDestruction(t *testing.T) {
	r := NewRegistry(nil)
	id, err := r.New(testBundle(t, 0x09))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if !r.Drop(id) {
		t.Fatal("expected first Drop to report true")
	}
	if r.Drop(id) {
		t.Fatal("expected second Drop to report false")
	}
	err = r.With(id, func(*Session) error { return nil })
	merr, ok := err.(*mlserr.Error)
	if !ok || merr.Kind != mlserr.SessionNotFound {
		t.Fatalf("expected SessionNotFound after destruction, got %v", err)
	}
}

func TestWithUnknownSession(t *testing.T) {
	r := NewRegistry(nil)
	err := r.With(999999, func(*Session) error { return nil })
	merr, ok := err.(*mlserr.Error)
	if !ok || merr.Kind != mlserr.SessionNotFound {
		t.Fatalf("expected SessionNotFound, got %v", err)
	}
}

func TestCountTracksLiveSessions(t *testing.T) {
	r := NewRegistry(nil)
	if r.Count() != 0 {
		t.Fatalf("expected 0 sessions, got %d", r.Count())
	}
	id, err := r.New(testBundle(t, 0x0A))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if r.Count() != 1 {
		t.Fatalf("expected 1 session, got %d", r.Count())
	}
	r.Drop(id)
	if r.Count() != 0 {
		t.Fatalf("expected 0 sessions after drop, got %d", r.Count())
	}
}
