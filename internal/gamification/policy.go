package gamification

import "fmt"

// DecisionStatus is the outcome of an access policy evaluation.
type DecisionStatus int

const (
	Allowed DecisionStatus = iota
	TemporarilyRestricted
	PermanentlyBanned
)

func (s DecisionStatus) String() string {
	switch s {
	case Allowed:
		return "allowed"
	case TemporarilyRestricted:
		return "temporarily_restricted"
	case PermanentlyBanned:
		return "permanently_banned"
	default:
		return "unknown"
	}
}

// Decision reasons, surfaced to clients alongside the human-readable message.
const (
	ReasonLowPoints    = "low_points"
	ReasonPendingLimit = "pending_limit"
	ReasonBanned       = "banned"
)

// Decision is a fresh evaluation of the access policy against a point
// balance. Decisions are never cached: the balance may change between calls.
type Decision struct {
	Status DecisionStatus `json:"status"`
	Reason string         `json:"reason,omitempty"`
	// PointsNeeded is the minimum points the user must gain to clear the
	// registration threshold. Only set for low-points restrictions.
	PointsNeeded int    `json:"points_needed,omitempty"`
	Message      string `json:"message"`
}

// Allowed reports whether the decision permits the requested action.
func (d Decision) Allowed() bool {
	return d.Status == Allowed
}

// CanRegisterComplaint decides whether a user may submit a new complaint.
// Point thresholds are checked before the pending limit, so a banned or
// restricted user always sees the points-based message even when they also
// exceed the pending cap.
func (e *Engine) CanRegisterComplaint(points, pendingCount int) Decision {
	if points <= e.rules.PermanentBanThreshold {
		return Decision{
			Status: PermanentlyBanned,
			Reason: ReasonBanned,
			Message: fmt.Sprintf(
				"Your account has been permanently banned due to excessive fake complaints (%d points). "+
					"This account cannot be used anymore. Please contact support if you believe this is an error.",
				points),
		}
	}

	if points <= e.rules.MinPointsToRegister {
		needed := e.rules.MinPointsToRegister - points + 1
		return Decision{
			Status:       TemporarilyRestricted,
			Reason:       ReasonLowPoints,
			PointsNeeded: needed,
			Message: fmt.Sprintf(
				"Your account is temporarily blocked due to low points (%d). "+
					"You need to gain at least %d points to register complaints again. "+
					"Wait for your pending complaints to be resolved to restore your account.",
				points, needed),
		}
	}

	if pendingCount > e.rules.MaxPendingComplaints {
		return Decision{
			Status: TemporarilyRestricted,
			Reason: ReasonPendingLimit,
			Message: fmt.Sprintf(
				"You have %d pending complaints. Please wait for some of them to be resolved "+
					"before registering new ones. Maximum allowed pending complaints: %d.",
				pendingCount, e.rules.MaxPendingComplaints),
		}
	}

	return Decision{Status: Allowed, Message: "You can register a complaint."}
}

// CanLogin decides whether a user may hold an authenticated session. Only a
// permanent ban gates login; a temporarily restricted user may still log in
// and watch their pending complaints. This must be re-evaluated on every
// authenticated request so a ban acquired mid-session forces a logout on
// the next request.
func (e *Engine) CanLogin(points int) Decision {
	if points <= e.rules.PermanentBanThreshold {
		return Decision{
			Status: PermanentlyBanned,
			Reason: ReasonBanned,
			Message: "Your account has been permanently banned due to excessive fake complaints. " +
				"This account cannot be used anymore.",
		}
	}
	return Decision{Status: Allowed, Message: "Login permitted."}
}
