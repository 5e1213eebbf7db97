package tracer

import (
	"strings"
	"testing"
	"time"
)

func TestNewRequestIDFormat(t *testing.T) {
	id := NewRequestID()
	if !strings.HasPrefix(id, "r-") {
		t.Fatalf("expected r- prefix, got %q", id)
	}
	if len(id) != len("r-")+12 {
		t.Errorf("expected 12 hex chars, got %q", id)
	}
}

func TestNewRequestIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewRequestID()
		if seen[id] {
			t.Fatalf("duplicate request ID %q", id)
		}
		seen[id] = true
	}
}

func TestNewAgentID(t *testing.T) {
	id := NewAgentID()
	if !strings.HasPrefix(id, "agent-") || len(id) != len("agent-")+8 {
		t.Errorf("unexpected agent ID %q", id)
	}
	if id == NewAgentID() {
		t.Error("expected distinct agent IDs")
	}
}

func TestUTCNowISOParses(t *testing.T) {
	if _, err := time.Parse("2006-01-02T15:04:05.000Z", UTCNowISO()); err != nil {
		t.Errorf("timestamp does not parse: %v", err)
	}
}
