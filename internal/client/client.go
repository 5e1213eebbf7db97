// Package client calls a remote clearlift ElevatorService.
package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ppiankov/clearlift/internal/model"
	"github.com/ppiankov/clearlift/internal/server"
)

// callTimeout bounds the quick RPCs. Press has no fixed bound because a
// denied call includes the ride back to Ground.
const callTimeout = 5 * time.Second

// Client connects to a clearlift gRPC server.
type Client struct {
	conn *grpc.ClientConn
}

// New creates a gRPC client for addr. The connection is established
// lazily on the first call.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(server.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elevator server: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Press asks the server to press floor's button for the given agent and
// waits for the full call sequence.
func (c *Client) Press(ctx context.Context, req *server.PressRequest) (model.Outcome, error) {
	resp := new(server.PressResponse)
	if err := c.conn.Invoke(ctx, "/"+server.ServiceName+"/Press", req, resp); err != nil {
		return model.Outcome{}, err
	}
	return resp.Outcome, nil
}

// CheckAccess asks whether clearance may enter floor.
func (c *Client) CheckAccess(clearance, floor string) (*server.CheckAccessResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	resp := new(server.CheckAccessResponse)
	req := &server.CheckAccessRequest{Clearance: clearance, Floor: floor}
	if err := c.conn.Invoke(ctx, "/"+server.ServiceName+"/CheckAccess", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Status fetches the elevator snapshot. It may wait for an in-flight
// sequence, so the timeout is the caller's.
func (c *Client) Status(ctx context.Context) (*server.StatusResponse, error) {
	resp := new(server.StatusResponse)
	if err := c.conn.Invoke(ctx, "/"+server.ServiceName+"/Status", &server.StatusRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
