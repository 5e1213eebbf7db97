package server

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/ppiankov/clearlift/internal/control"
	"github.com/ppiankov/clearlift/internal/elevator"
	"github.com/ppiankov/clearlift/internal/journal"
	"github.com/ppiankov/clearlift/internal/model"
	"github.com/ppiankov/clearlift/internal/roster"
)

type testEnv struct {
	srv    *Server
	conn   *grpc.ClientConn
	roster *roster.Roster
	mem    *journal.Memory
}

func newTestServer(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	mem := journal.NewMemory()
	e := elevator.New(elevator.WithStepDelay(0), elevator.WithRecorder(mem))
	r := roster.New()

	srv, err := New(cfg, control.New(e, r), r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.ServeOn(lis)

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		srv.GracefulStop()
	})
	return &testEnv{srv: srv, conn: conn, roster: r, mem: mem}
}

func (env *testEnv) press(t *testing.T, req *PressRequest) (*PressResponse, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp := new(PressResponse)
	err := env.conn.Invoke(ctx, pressMethod, req, resp)
	return resp, err
}

func TestPressGranted(t *testing.T) {
	env := newTestServer(t, Config{})

	resp, err := env.press(t, &PressRequest{AgentID: "ts", Clearance: "TopSecret", Floor: "T2"})
	if err != nil {
		t.Fatalf("Press: %v", err)
	}
	out := resp.Outcome
	if !out.Granted || out.FinalFloor != model.TopSecret2 || out.Attempts != 1 {
		t.Errorf("expected direct grant to T2, got %+v", out)
	}
	if out.RequestID == "" {
		t.Error("expected request ID in outcome")
	}
}

func TestPressDeniedReturnsToGround(t *testing.T) {
	env := newTestServer(t, Config{})

	resp, err := env.press(t, &PressRequest{AgentID: "c", Clearance: "confidential", StartFloor: "G", Floor: "S"})
	if err != nil {
		t.Fatalf("Press: %v", err)
	}
	out := resp.Outcome
	if out.Granted || out.FinalFloor != model.Ground || out.Attempts != 2 {
		t.Errorf("expected denial ending on G, got %+v", out)
	}
	if err := journal.CheckSerialized(env.mem.Events()); err != nil {
		t.Errorf("trace: %v", err)
	}
}

func TestPressInvalidArgument(t *testing.T) {
	env := newTestServer(t, Config{})

	tests := []struct {
		name string
		req  PressRequest
	}{
		{"bad clearance", PressRequest{AgentID: "a", Clearance: "cosmic", Floor: "S"}},
		{"bad floor", PressRequest{AgentID: "a", Clearance: "secret", Floor: "roof"}},
		{"bad start", PressRequest{AgentID: "a", Clearance: "secret", StartFloor: "9", Floor: "S"}},
		{"missing agent", PressRequest{Clearance: "secret", Floor: "S"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.press(t, &tt.req)
			if status.Code(err) != codes.InvalidArgument {
				t.Errorf("expected InvalidArgument, got %v", err)
			}
		})
	}
	if env.mem.Len() != 0 {
		t.Errorf("rejected presses should record nothing, got %d events", env.mem.Len())
	}
}

func TestPressClearanceMismatch(t *testing.T) {
	env := newTestServer(t, Config{})

	if _, err := env.press(t, &PressRequest{AgentID: "a", Clearance: "secret", Floor: "S"}); err != nil {
		t.Fatal(err)
	}
	_, err := env.press(t, &PressRequest{AgentID: "a", Clearance: "topsecret", Floor: "T1"})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument for clearance change, got %v", err)
	}
}

func TestCheckAccess(t *testing.T) {
	env := newTestServer(t, Config{})

	tests := []struct {
		clearance string
		floor     string
		allowed   bool
	}{
		{"Confidential", "G", true},
		{"Confidential", "S", false},
		{"Secret", "S", true},
		{"Secret", "T1", false},
		{"TopSecret", "T2", true},
	}
	for _, tt := range tests {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		resp := new(CheckAccessResponse)
		err := env.conn.Invoke(ctx, checkAccessMethod, &CheckAccessRequest{Clearance: tt.clearance, Floor: tt.floor}, resp)
		cancel()
		if err != nil {
			t.Fatalf("CheckAccess(%s, %s): %v", tt.clearance, tt.floor, err)
		}
		if resp.Allowed != tt.allowed {
			t.Errorf("CheckAccess(%s, %s) = %v, want %v", tt.clearance, tt.floor, resp.Allowed, tt.allowed)
		}
		if resp.PolicyID == "" {
			t.Errorf("CheckAccess(%s, %s): empty policy id", tt.clearance, tt.floor)
		}
	}
	if env.mem.Len() != 0 {
		t.Error("CheckAccess must not move the car")
	}
}

func TestStatusReportsAgents(t *testing.T) {
	env := newTestServer(t, Config{})

	if _, err := env.press(t, &PressRequest{AgentID: "s", Clearance: "secret", Floor: "S"}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp := new(StatusResponse)
	if err := env.conn.Invoke(ctx, statusMethod, &StatusRequest{}, resp); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if resp.ElevatorFloor != model.Secure {
		t.Errorf("expected car on S, got %s", resp.ElevatorFloor)
	}
	if resp.Presses != 1 || resp.Granted != 1 {
		t.Errorf("expected 1 press granted, got %+v", resp)
	}
	if len(resp.Agents) != 1 || resp.Agents[0].Floor != model.Secure {
		t.Errorf("unexpected agents: %+v", resp.Agents)
	}
}

func writeAgents(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write agents: %v", err)
	}
}

func TestNewRegistersAgentsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	writeAgents(t, path, `agents:
  - id: alice
    clearance: Secret
    start_floor: S
  - id: bob
    clearance: Confidential
`)

	env := newTestServer(t, Config{AgentsPath: path})
	if env.roster.Len() != 2 {
		t.Fatalf("expected 2 preloaded agents, got %d", env.roster.Len())
	}
	a, err := env.roster.Get("alice")
	if err != nil {
		t.Fatal(err)
	}
	if a.CurrentFloor() != model.Secure {
		t.Errorf("expected alice on S, got %s", a.CurrentFloor())
	}

	// Registered clearance wins over the request.
	_, err = env.press(t, &PressRequest{AgentID: "bob", Clearance: "topsecret", Floor: "T1"})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestNewRejectsBadAgentsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	writeAgents(t, path, "agents: [")

	r := roster.New()
	e := elevator.New(elevator.WithStepDelay(0))
	if _, err := New(Config{AgentsPath: path}, control.New(e, r), r); err == nil {
		t.Fatal("expected error for invalid agents file")
	}
}

func TestNewRejectsMissingAgentsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")

	r := roster.New()
	e := elevator.New(elevator.WithStepDelay(0))
	_, err := New(Config{AgentsPath: path}, control.New(e, r), r)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("missing agents file must not register agents, got %d", r.Len())
	}
}

func TestAgentsFileWithoutAgentsRegistersNothing(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"only step delay", "step_delay: 10ms\n"},
		{"empty file", ""},
		{"empty list", "agents: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "agents.yaml")
			writeAgents(t, path, tt.body)

			env := newTestServer(t, Config{AgentsPath: path})
			if env.roster.Len() != 0 {
				t.Errorf("expected no registered agents, got %d", env.roster.Len())
			}
			added, err := env.srv.ReloadAgents()
			if err != nil || added != 0 {
				t.Errorf("expected no-op reload, got added=%d err=%v", added, err)
			}
		})
	}
}

func TestReloadAgentsAddsOnlyNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	writeAgents(t, path, "agents:\n  - id: alice\n    clearance: Secret\n")
	env := newTestServer(t, Config{AgentsPath: path})

	writeAgents(t, path, "agents:\n  - id: alice\n    clearance: Secret\n  - id: carol\n    clearance: TopSecret\n    start_floor: T2\n")
	added, err := env.srv.ReloadAgents()
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 || env.roster.Len() != 2 {
		t.Errorf("expected 1 new agent (2 total), got added=%d total=%d", added, env.roster.Len())
	}
}

func TestReloadAgentsReportsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	writeAgents(t, path, "agents:\n  - id: alice\n    clearance: Secret\n")
	env := newTestServer(t, Config{AgentsPath: path})

	writeAgents(t, path, "agents:\n  - id: alice\n    clearance: Confidential\n")
	if _, err := env.srv.ReloadAgents(); err == nil {
		t.Fatal("expected clearance mismatch error")
	}
	a, _ := env.roster.Get("alice")
	if a.Security() != model.Secret {
		t.Errorf("registered clearance should not change, got %s", a.Security())
	}
}

func TestReloaderPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	writeAgents(t, path, "agents:\n  - id: alice\n    clearance: Secret\n")
	env := newTestServer(t, Config{AgentsPath: path})

	r, err := NewReloader(env.srv)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher a moment to start.
	time.Sleep(50 * time.Millisecond)
	writeAgents(t, path, "agents:\n  - id: alice\n    clearance: Secret\n  - id: dave\n    clearance: Confidential\n")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if env.roster.Len() == 2 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("reloader did not register new agent, roster has %d", env.roster.Len())
}

func TestReloaderDropsPendingReloadOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	writeAgents(t, path, "agents:\n  - id: alice\n    clearance: Secret\n")
	env := newTestServer(t, Config{AgentsPath: path})

	r, err := NewReloader(env.srv)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	writeAgents(t, path, "agents:\n  - id: alice\n    clearance: Secret\n  - id: erin\n    clearance: TopSecret\n")
	// Let the write event arm the debounce, then stop well before it fires.
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	time.Sleep(reloadDebounce + 200*time.Millisecond)
	if env.roster.Len() != 1 {
		t.Errorf("reload ran after the reloader stopped, roster has %d", env.roster.Len())
	}
}

func TestNewReloaderRequiresAgentsPath(t *testing.T) {
	env := newTestServer(t, Config{})
	if _, err := NewReloader(env.srv); err == nil {
		t.Fatal("expected error without agents file")
	}
}

func TestNewRequiresController(t *testing.T) {
	if _, err := New(Config{}, nil, nil); err == nil {
		t.Fatal("expected error for nil controller")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	data, err := c.Marshal(&CheckAccessRequest{Clearance: "Secret", Floor: "S"})
	if err != nil {
		t.Fatal(err)
	}
	var got CheckAccessRequest
	if err := c.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Clearance != "Secret" || got.Floor != "S" {
		t.Errorf("unexpected decode: %+v", got)
	}
	if err := c.Unmarshal(nil, &StatusRequest{}); err != nil {
		t.Errorf("empty payload should decode: %v", err)
	}
}
