// Package gamification converts a user's complaint history into a point
// balance and derives access control and progression state from it. All of
// it is deterministic arithmetic over a reputation snapshot: the ledger
// never touches storage, never gates eligibility (that is the policy
// evaluator's job), and never blocks.
package gamification

import "civiceye/internal/model"

// Rules holds the tunable point values and thresholds. Thresholds are
// inclusive: a user at exactly MinPointsToRegister is restricted, a user at
// exactly PermanentBanThreshold is banned, and a user with exactly
// MaxPendingComplaints pending may still register one more.
type Rules struct {
	PointsResolved        int
	FakePenalty           int
	MinPointsToRegister   int
	PermanentBanThreshold int
	MaxPendingComplaints  int
}

// DefaultRules returns the production rule set.
func DefaultRules() Rules {
	return Rules{
		PointsResolved:        10,
		FakePenalty:           -5,
		MinPointsToRegister:   -20,
		PermanentBanThreshold: -40,
		MaxPendingComplaints:  2,
	}
}

// Engine applies complaint lifecycle events to reputation snapshots and
// evaluates access policy against them.
type Engine struct {
	rules Rules
}

func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

func (e *Engine) Rules() Rules {
	return e.rules
}

// ApplyRegistration records a newly submitted complaint. No point change;
// eligibility must have been checked via CanRegisterComplaint before the
// complaint was accepted.
func (e *Engine) ApplyRegistration(rep model.Reputation) model.Reputation {
	rep.TotalComplaints++
	rep.PendingComplaints++
	return rep
}

// ApplyResolution records a complaint leaving the pending set as resolved.
// A genuine complaint earns PointsResolved; a complaint already flagged
// fake earns nothing even if an authority later marks it resolved.
func (e *Engine) ApplyResolution(rep model.Reputation, wasFake bool) model.Reputation {
	rep.PendingComplaints = decrement(rep.PendingComplaints)
	if !wasFake {
		rep.ResolvedComplaints++
		rep.Points += e.rules.PointsResolved
	}
	return rep
}

// ApplyFakeFlag records a complaint being flagged fake. The penalty is
// applied unconditionally: callers must track which complaints have already
// been penalized, or a double call double-penalizes.
func (e *Engine) ApplyFakeFlag(rep model.Reputation) model.Reputation {
	rep.FakeComplaints++
	rep.PendingComplaints = decrement(rep.PendingComplaints)
	rep.Points += e.rules.FakePenalty
	return rep
}

// ApplyRejection records a complaint closed without resolution. No point
// change.
func (e *Engine) ApplyRejection(rep model.Reputation) model.Reputation {
	rep.PendingComplaints = decrement(rep.PendingComplaints)
	return rep
}

// decrement floors at zero so a stray event can never produce a negative
// pending counter and corrupt the threshold checks downstream.
func decrement(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}
