package policy

import (
	"fmt"

	"github.com/ppiankov/clearlift/internal/model"
)

// Result is the door decision for one (clearance, floor) pair.
type Result struct {
	Decision model.Decision `json:"decision"`
	Reason   string         `json:"reason"`
	PolicyID string         `json:"policy_id"`
}

// Allowed reports whether the decision lets the agent out.
func (r Result) Allowed() bool {
	return r.Decision == model.Allow
}

// CanAccess reports whether an agent with the given clearance may leave the
// elevator at floor. Pure; unknown floors are always denied.
//
//	G      any clearance
//	S      Secret or higher
//	T1, T2 TopSecret only
func CanAccess(security model.SecurityLevel, floor model.Floor) bool {
	switch floor {
	case model.Ground:
		return true
	case model.Secure:
		return security >= model.Secret
	case model.TopSecret1, model.TopSecret2:
		return security == model.TopSecret
	default:
		return false
	}
}

// Decide evaluates CanAccess and attaches a reason and stable policy ID.
func Decide(security model.SecurityLevel, floor model.Floor) Result {
	allowed := CanAccess(security, floor)

	decision := model.Deny
	if allowed {
		decision = model.Allow
	}

	switch floor {
	case model.Ground:
		return Result{
			Decision: decision,
			Reason:   "ground floor is open to every clearance",
			PolicyID: "floor.ground.open",
		}
	case model.Secure:
		reason := fmt.Sprintf("%s clearance meets Secret requirement for %s", security, floor.Name())
		if !allowed {
			reason = fmt.Sprintf("%s requires Secret clearance or higher, agent has %s", floor.Name(), security)
		}
		return Result{Decision: decision, Reason: reason, PolicyID: "floor.secure.secret"}
	case model.TopSecret1, model.TopSecret2:
		reason := fmt.Sprintf("TopSecret clearance admitted to %s", floor.Name())
		if !allowed {
			reason = fmt.Sprintf("%s requires TopSecret clearance, agent has %s", floor.Name(), security)
		}
		return Result{Decision: decision, Reason: reason, PolicyID: "floor.topsecret.topsecret"}
	default:
		return Result{
			Decision: model.Deny,
			Reason:   fmt.Sprintf("unknown floor %d: fail-closed", int(floor)),
			PolicyID: "floor.unknown",
		}
	}
}

// MatrixEntry is one row of the access table.
type MatrixEntry struct {
	Clearance model.SecurityLevel `json:"clearance"`
	Floor     model.Floor         `json:"floor"`
	Result
}

// Matrix evaluates every (clearance, floor) pair, clearances lowest first.
func Matrix() []MatrixEntry {
	var entries []MatrixEntry
	for _, level := range model.SecurityLevels() {
		for _, floor := range model.Floors() {
			entries = append(entries, MatrixEntry{
				Clearance: level,
				Floor:     floor,
				Result:    Decide(level, floor),
			})
		}
	}
	return entries
}
