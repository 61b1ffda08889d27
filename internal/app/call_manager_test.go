package app

import (
	"testing"
	"time"

	"github.com/uday-incquet/AiVoice/internal/relay"
)

func TestCallManager_RegisterListUnregister(t *testing.T) {
	cm := NewCallManager()

	s1 := relay.NewSession(relay.Config{})
	s2 := relay.NewSession(relay.Config{})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cm.Register(s2, CallInfo{SessionID: s2.ID(), StartedAt: base.Add(time.Minute)})
	cm.Register(s1, CallInfo{SessionID: s1.ID(), StartedAt: base})

	if cm.Count() != 2 {
		t.Fatalf("count = %d, want 2", cm.Count())
	}

	list := cm.List()
	if len(list) != 2 || list[0].SessionID != s1.ID() || list[1].SessionID != s2.ID() {
		t.Errorf("list not ordered by start time: %+v", list)
	}

	cm.Unregister(s1.ID())
	if cm.Count() != 1 {
		t.Errorf("count after unregister = %d, want 1", cm.Count())
	}

	// Unknown IDs are a no-op.
	cm.Unregister("missing")
	if cm.Count() != 1 {
		t.Errorf("count after unknown unregister = %d, want 1", cm.Count())
	}
}

func TestCallManager_CloseAll(t *testing.T) {
	cm := NewCallManager()
	s := relay.NewSession(relay.Config{})
	cm.Register(s, CallInfo{SessionID: s.ID(), StartedAt: time.Now()})

	cm.CloseAll()

	// Close is idempotent, so a second sweep must not panic.
	cm.CloseAll()
}
