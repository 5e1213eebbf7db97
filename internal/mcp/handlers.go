package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/clearlift/internal/control"
	"github.com/ppiankov/clearlift/internal/model"
)

// --- Input/Output types ---

// PressInput defines parameters for the elevator_press tool.
type PressInput struct {
	AgentID    string `json:"agent_id" jsonschema:"stable agent identifier; first use registers the agent"`
	Clearance  string `json:"clearance" jsonschema:"Confidential, Secret or TopSecret"`
	StartFloor string `json:"start_floor,omitempty" jsonschema:"floor the agent starts on when first registered (default G)"`
	Floor      string `json:"floor" jsonschema:"button to press: G, S, T1 or T2"`
}

// PressOutput reports the outcome of one press.
type PressOutput struct {
	RequestID  string `json:"request_id,omitempty"`
	AgentID    string `json:"agent_id,omitempty"`
	Requested  string `json:"requested,omitempty"`
	Granted    bool   `json:"granted"`
	Attempts   int    `json:"attempts"`
	FinalFloor string `json:"final_floor,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CheckInput defines parameters for the elevator_check tool.
type CheckInput struct {
	Clearance string `json:"clearance" jsonschema:"Confidential, Secret or TopSecret"`
	Floor     string `json:"floor" jsonschema:"G, S, T1 or T2"`
}

// CheckOutput contains the access decision.
type CheckOutput struct {
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason,omitempty"`
	PolicyID string `json:"policy_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// AgentOutput is one agent in StatusOutput.
type AgentOutput struct {
	ID        string `json:"id"`
	Clearance string `json:"clearance"`
	Floor     string `json:"floor"`
}

// StatusOutput is the elevator snapshot.
type StatusOutput struct {
	ElevatorFloor string        `json:"elevator_floor"`
	Busy          bool          `json:"busy"`
	Presses       int64         `json:"presses"`
	Granted       int64         `json:"granted"`
	Denied        int64         `json:"denied"`
	Agents        []AgentOutput `json:"agents"`
}

// --- Handlers ---

func (s *Server) handlePress(ctx context.Context, req *mcpsdk.CallToolRequest, input PressInput) (*mcpsdk.CallToolResult, PressOutput, error) {
	creq, err := parsePress(input)
	if err != nil {
		return errorResult(err), PressOutput{Error: err.Error()}, nil
	}

	out, err := s.ctrl.Press(ctx, creq)
	if err != nil {
		if control.IsRequestError(err) {
			return errorResult(err), PressOutput{Error: err.Error()}, nil
		}
		return nil, PressOutput{}, err
	}

	return nil, PressOutput{
		RequestID:  out.RequestID,
		AgentID:    out.AgentID,
		Requested:  out.Requested.String(),
		Granted:    out.Granted,
		Attempts:   out.Attempts,
		FinalFloor: out.FinalFloor.String(),
		Reason:     out.Reason,
	}, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	clearance, err := model.ParseSecurityLevel(input.Clearance)
	if err != nil {
		return errorResult(err), CheckOutput{Error: err.Error()}, nil
	}
	floor, err := model.ParseFloor(input.Floor)
	if err != nil {
		return errorResult(err), CheckOutput{Error: err.Error()}, nil
	}

	resp, err := s.ctrl.Check(control.CheckRequest{Clearance: clearance, Floor: floor})
	if err != nil {
		return errorResult(err), CheckOutput{Error: err.Error()}, nil
	}
	return nil, CheckOutput{
		Allowed:  resp.Allowed,
		Reason:   resp.Reason,
		PolicyID: resp.PolicyID,
	}, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.ctrl.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	out := StatusOutput{
		ElevatorFloor: st.ElevatorFloor.String(),
		Busy:          st.Busy,
		Presses:       st.Presses,
		Granted:       st.Granted,
		Denied:        st.Denied,
		Agents:        make([]AgentOutput, 0, len(st.Agents)),
	}
	for _, a := range st.Agents {
		out.Agents = append(out.Agents, AgentOutput{
			ID:        a.ID,
			Clearance: a.Clearance.String(),
			Floor:     a.Floor.String(),
		})
	}
	return nil, out, nil
}

func parsePress(input PressInput) (control.PressRequest, error) {
	clearance, err := model.ParseSecurityLevel(input.Clearance)
	if err != nil {
		return control.PressRequest{}, err
	}
	floor, err := model.ParseFloor(input.Floor)
	if err != nil {
		return control.PressRequest{}, err
	}
	start := model.Ground
	if input.StartFloor != "" {
		start, err = model.ParseFloor(input.StartFloor)
		if err != nil {
			return control.PressRequest{}, fmt.Errorf("start floor: %w", err)
		}
	}
	return control.PressRequest{
		AgentID:    input.AgentID,
		Clearance:  clearance,
		StartFloor: start,
		Floor:      floor,
	}, nil
}

func errorResult(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
	}
}
