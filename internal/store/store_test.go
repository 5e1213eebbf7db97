package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ppiankov/clearlift/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func event(kind model.EventKind, req, agent string, target model.Floor) model.Event {
	return model.Event{
		Kind:      kind,
		RequestID: req,
		AgentID:   agent,
		Clearance: model.Secret,
		Origin:    model.Ground,
		Target:    target,
		Elevator:  target,
	}
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	events := []model.Event{
		event(model.EventCallPlaced, "r-1", "a", model.TopSecret1),
		event(model.EventDoorStayedClosed, "r-1", "a", model.TopSecret1),
		event(model.EventRetry, "r-1", "a", model.Ground),
		event(model.EventDoorOpened, "r-1", "a", model.Ground),
		event(model.EventCallPlaced, "r-2", "b", model.Secure),
		event(model.EventDoorOpened, "r-2", "b", model.Secure),
	}
	for _, ev := range events {
		if err := s.Record(ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
}

func TestRecordAndReadBack(t *testing.T) {
	s := newTestStore(t)
	ev := event(model.EventDoorStayedClosed, "r-1", "a", model.TopSecret2)
	ev.Clearance = model.Confidential
	ev.Reason = "TopSecret required"
	if err := s.Record(ev); err != nil {
		t.Fatal(err)
	}

	got, err := s.Events(context.Background(), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	g := got[0]
	if g.Timestamp == "" {
		t.Error("expected stored event to be stamped")
	}
	g.Timestamp = ""
	if g != ev {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", g, ev)
	}
}

func TestEventsFilters(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 6},
		{"by agent", Filter{AgentID: "a"}, 4},
		{"by request", Filter{RequestID: "r-2"}, 2},
		{"by kind", Filter{Kind: model.EventDoorOpened}, 2},
		{"combined", Filter{AgentID: "a", Kind: model.EventRetry}, 1},
		{"limit", Filter{Limit: 3}, 3},
		{"no match", Filter{AgentID: "ghost"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Events(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, len(got))
			}
		})
	}
}

func TestEventsPreserveOrder(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	got, err := s.Events(context.Background(), Filter{RequestID: "r-1"})
	if err != nil {
		t.Fatal(err)
	}
	want := []model.EventKind{model.EventCallPlaced, model.EventDoorStayedClosed, model.EventRetry, model.EventDoorOpened}
	for i, k := range want {
		if got[i].Kind != k {
			t.Errorf("event %d: expected %s, got %s", i, k, got[i].Kind)
		}
	}
}

func TestCounts(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	c, err := s.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := Counts{Events: 6, Requests: 2, Agents: 2, Granted: 1, Denied: 1, Retries: 1}
	if c != want {
		t.Errorf("expected %+v, got %+v", want, c)
	}
}

func TestCountsGroundRetryIsNotAGrant(t *testing.T) {
	s := newTestStore(t)
	events := []model.Event{
		event(model.EventButtonPressed, "r-1", "a", model.Secure),
		event(model.EventCallPlaced, "r-1", "a", model.Secure),
		event(model.EventDoorStayedClosed, "r-1", "a", model.Secure),
		event(model.EventRetry, "r-1", "a", model.Ground),
		event(model.EventDoorOpened, "r-1", "a", model.Ground),
		event(model.EventButtonPressed, "r-2", "b", model.TopSecret1),
		event(model.EventDoorStayedClosed, "r-2", "b", model.TopSecret1),
		event(model.EventRetry, "r-2", "b", model.Ground),
		event(model.EventDoorOpened, "r-2", "b", model.Ground),
	}
	for _, ev := range events {
		if err := s.Record(ev); err != nil {
			t.Fatal(err)
		}
	}

	c, err := s.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.Requests != 2 || c.Granted != 0 || c.Denied != 2 || c.Retries != 2 {
		t.Errorf("expected 2 denied requests and no grants, got %+v", c)
	}
}

func TestCountsEmpty(t *testing.T) {
	s := newTestStore(t)
	c, err := s.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c != (Counts{}) {
		t.Errorf("expected zero counts, got %+v", c)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	seed(t, s1)
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	got, err := s2.Events(context.Background(), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 6 {
		t.Errorf("expected 6 events after reopen, got %d", len(got))
	}
}

func TestConcurrentRecords(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Record(event(model.EventFloorReached, "r-x", "a", model.Secure)); err != nil {
				t.Errorf("record: %v", err)
			}
		}()
	}
	wg.Wait()

	c, err := s.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.Events != 50 {
		t.Errorf("expected 50 events, got %d", c.Events)
	}
}

func TestClosedStore(t *testing.T) {
	s := newTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(event(model.EventMoving, "r", "a", model.Secure)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}
