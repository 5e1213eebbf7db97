// Package server exposes one shared elevator over gRPC.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clearlift/internal/control"
	"github.com/ppiankov/clearlift/internal/model"
	"github.com/ppiankov/clearlift/internal/roster"
	"github.com/ppiankov/clearlift/internal/sim"
)

// DefaultPort is the port used when Config.Port is zero.
const DefaultPort = 9371

// Config holds gRPC server configuration.
type Config struct {
	Port int

	// AgentsPath is an optional sim config whose agents are registered at
	// startup and again whenever the file changes.
	AgentsPath string
}

// Server implements ElevatorService on top of a control.Controller.
type Server struct {
	ctrl   *control.Controller
	roster *roster.Roster
	cfg    Config

	grpcServer *grpc.Server
}

// New creates a gRPC server backed by ctrl. r must be the roster ctrl was
// built with; it may be nil when AgentsPath is empty.
func New(cfg Config, ctrl *control.Controller, r *roster.Roster) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("server: nil controller")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	s := &Server{
		ctrl:       ctrl,
		roster:     r,
		cfg:        cfg,
		grpcServer: grpc.NewServer(),
	}

	if cfg.AgentsPath != "" {
		if _, err := s.ReloadAgents(); err != nil {
			return nil, err
		}
	}

	RegisterElevatorServiceServer(s.grpcServer, s)
	return s, nil
}

// Serve starts the gRPC server on the configured port. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}
	return s.grpcServer.Serve(lis)
}

// ServeOn starts the gRPC server on the given listener. For testing.
func (s *Server) ServeOn(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// GracefulStop waits for in-flight presses, then shuts down.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// Press implements the Press RPC.
func (s *Server) Press(ctx context.Context, req *PressRequest) (*PressResponse, error) {
	clearance, err := model.ParseSecurityLevel(req.Clearance)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	floor, err := model.ParseFloor(req.Floor)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	start := model.Ground
	if req.StartFloor != "" {
		start, err = model.ParseFloor(req.StartFloor)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("start floor: %v", err))
		}
	}

	out, err := s.ctrl.Press(ctx, control.PressRequest{
		AgentID:    req.AgentID,
		Clearance:  clearance,
		StartFloor: start,
		Floor:      floor,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &PressResponse{Outcome: out}, nil
}

// CheckAccess implements the CheckAccess RPC.
func (s *Server) CheckAccess(ctx context.Context, req *CheckAccessRequest) (*CheckAccessResponse, error) {
	clearance, err := model.ParseSecurityLevel(req.Clearance)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	floor, err := model.ParseFloor(req.Floor)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := s.ctrl.Check(control.CheckRequest{Clearance: clearance, Floor: floor})
	if err != nil {
		return nil, toStatus(err)
	}
	return &resp, nil
}

// Status implements the Status RPC.
func (s *Server) Status(ctx context.Context, _ *StatusRequest) (*StatusResponse, error) {
	st, err := s.ctrl.Status(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &st, nil
}

// agentsFile is the part of a sim config the server reads. Other keys are
// ignored.
type agentsFile struct {
	Agents []sim.AgentSpec `yaml:"agents"`
}

// ReloadAgents registers every agent listed in AgentsPath that the roster
// does not know yet. Known agents keep their current floor. Returns the
// number of newly registered agents. A missing file is an error and a file
// without an agents list registers nothing.
func (s *Server) ReloadAgents() (int, error) {
	if s.cfg.AgentsPath == "" {
		return 0, nil
	}
	if s.roster == nil {
		return 0, errors.New("server: agents file configured without a roster")
	}

	data, err := os.ReadFile(s.cfg.AgentsPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read agents: %w", err)
	}
	var file agentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse agents: %w", err)
	}

	var errs []error
	added := 0
	for _, spec := range file.Agents {
		_, created, err := s.roster.Resolve(spec.ID, spec.Clearance, spec.StartFloor)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if created {
			added++
		}
	}
	return added, errors.Join(errs...)
}

func toStatus(err error) error {
	switch {
	case control.IsRequestError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
