package session

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestManager() *Manager {
	return NewManager(func(id string) *Session {
		return New(id, testDatasets(), nil, Options{Log: zerolog.Nop()})
	}, nil)
}

func TestManagerLifecycle(t *testing.T) {
	m := newTestManager()
	s := m.Create()
	if s.ID == "" {
		t.Fatal("empty session id")
	}

	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("get: %v", err)
	}
	if other := m.Create(); other.ID == s.ID {
		t.Fatal("session ids must be unique")
	}

	m.Delete(s.ID)
	if _, err := m.Get(s.ID); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("err=%v, want ErrUnknownSession", err)
	}
	if m.Len() != 1 {
		t.Fatalf("len=%d", m.Len())
	}
}

func TestManagerPrune(t *testing.T) {
	m := newTestManager()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle := m.Create()
	now = now.Add(20 * time.Minute)
	active := m.Create()

	if n := m.Prune(10 * time.Minute); n != 1 {
		t.Fatalf("pruned=%d, want 1", n)
	}
	if _, err := m.Get(idle.ID); err == nil {
		t.Fatal("idle session survived")
	}
	if _, err := m.Get(active.ID); err != nil {
		t.Fatal(err)
	}
}
