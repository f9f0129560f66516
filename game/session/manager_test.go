package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/goleak"

	"github.com/wricardo/moodjournal/game/engine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func createTestConfig() *engine.GameConfig {
	config := &engine.GameConfig{
		Name:        "session-test",
		Description: "Test configuration",
		Pairs:       2,
		Symbols:     []string{"X", "Y", "Z"},
	}
	config.Messages = engine.ConfigMessages{
		Welcome:   "Welcome!",
		Completed: "Score: %d",
	}
	return config
}

func newTestManager(t *testing.T) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	manager := NewManager(WithClock(clock))
	t.Cleanup(manager.CloseAll)
	return manager, clock
}

func TestManager_Create(t *testing.T) {
	manager, clock := newTestManager(t)
	config := createTestConfig()

	t.Run("create with specific ID", func(t *testing.T) {
		session, err := manager.Create("test-123", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-123" {
			t.Errorf("Expected ID test-123, got %s", session.ID)
		}
		if session.Engine == nil {
			t.Error("Expected engine to be created")
		}
		if !session.CreatedAt.Equal(clock.Now()) {
			t.Errorf("Expected CreatedAt from the manager clock, got %v", session.CreatedAt)
		}
	})

	t.Run("create with generated ID", func(t *testing.T) {
		session, err := manager.Create("", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got %q", session.ID)
		}
	})

	t.Run("duplicate ID is case-insensitive", func(t *testing.T) {
		_, err := manager.Create("TEST-123", config)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("invalid ID", func(t *testing.T) {
		_, err := manager.Create("a/b", config)
		if !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := createTestConfig()
		bad.Pairs = 5
		if _, err := manager.Create("bad", bad); err == nil {
			t.Error("Expected error for invalid config")
		}
		if manager.sessionExists("bad") {
			t.Error("Failed creation must not register a session")
		}
	})

	t.Run("user id from engine options", func(t *testing.T) {
		session, err := manager.Create("with-user", config, engine.WithUserID("u1"))
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.UserID != "u1" {
			t.Errorf("Expected user u1, got %q", session.UserID)
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager, _ := newTestManager(t)
	created, _ := manager.Create("AbCd", createTestConfig())

	for _, id := range []string{"AbCd", "abcd", "ABCD"} {
		got, err := manager.Get(id)
		if err != nil {
			t.Errorf("Get(%q) failed: %v", id, err)
			continue
		}
		if got.Engine != created.Engine || got.ID != "AbCd" {
			t.Errorf("Get(%q) returned a different session", id)
		}
	}

	// callers get copies; the manager keeps the access time
	got, _ := manager.Get("abcd")
	got.LastAccessedAt = time.Time{}
	if again, _ := manager.Get("abcd"); again.LastAccessedAt.IsZero() {
		t.Error("Expected Get to return a copy")
	}

	if _, err := manager.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	manager, clock := newTestManager(t)
	session, _ := manager.Create("del", createTestConfig())

	// leave a mismatch pending so the engine owns a scheduled task
	state := session.Engine.State()
	var a, b int
	for _, c := range state.Cards[1:] {
		if c.Value != state.Cards[0].Value {
			b = c.ID
			break
		}
	}
	session.Engine.Flip(a)
	session.Engine.Flip(b)

	if err := manager.Delete("DEL"); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if _, err := manager.Get("del"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected session to be gone")
	}

	before := session.Engine.State()
	clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if after := session.Engine.State(); after.ElapsedSeconds != before.ElapsedSeconds || len(after.FlippedIDs) != 2 {
		t.Error("Deleted session kept running scheduled tasks")
	}
	if got := session.Engine.Flip(2); got != engine.OutcomeIgnored {
		t.Errorf("Expected flips on a deleted session to be ignored, got %s", got)
	}

	if err := manager.Delete("del"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestManager_List(t *testing.T) {
	manager, _ := newTestManager(t)
	for i := 0; i < 3; i++ {
		if _, err := manager.Create(fmt.Sprintf("s%d", i), createTestConfig()); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
	}

	found := make(map[string]bool)
	for _, s := range manager.List() {
		found[s.ID] = true
	}
	for i := 0; i < 3; i++ {
		if !found[fmt.Sprintf("s%d", i)] {
			t.Errorf("Session s%d not found in list", i)
		}
	}
	if manager.Count() != 3 {
		t.Errorf("Expected 3 sessions, got %d", manager.Count())
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager, clock := newTestManager(t)
	config := createTestConfig()

	manager.Create("expired", config)
	clock.Advance(2 * time.Hour)
	manager.Create("active", config)

	deleted := manager.CleanupExpiredSessions(time.Hour)
	if deleted != 1 {
		t.Errorf("Expected 1 session to be deleted, got %d", deleted)
	}
	if _, err := manager.Get("expired"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected expired session to be deleted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to still exist")
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager, clock := newTestManager(t)
	session, _ := manager.Create("access-test", createTestConfig())
	originalTime := session.LastAccessedAt

	clock.Advance(time.Minute)
	if err := manager.UpdateLastAccessed("ACCESS-TEST"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}

	updated, _ := manager.Get("access-test")
	if !updated.LastAccessedAt.After(originalTime) {
		t.Error("Expected LastAccessedAt to be updated")
	}

	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager, _ := newTestManager(t)
	config := createTestConfig()

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := manager.Create("", config)
			if err != nil {
				errs <- err
				return
			}
			session.Engine.Flip(0)
			if _, err := manager.Get(session.ID); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 50 {
		t.Errorf("Expected 50 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager, _ := newTestManager(t)
	config := createTestConfig()

	session1, _ := manager.Create("iso-1", config)
	session2, _ := manager.Create("iso-2", config)

	session1.Engine.Flip(0)

	if session2.Engine.State().Started {
		t.Error("Session 2 should not be affected by session 1 flips")
	}
	if !session1.Engine.State().Started {
		t.Error("Session 1 should be started")
	}
}
