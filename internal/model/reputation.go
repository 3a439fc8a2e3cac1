package model

import "time"

// Reputation is the per-user complaint statistics snapshot the gamification
// engine operates on. It is a plain value: ledger operations take the
// current snapshot and return the next one, and the caller owns persistence
// and write serialization.
type Reputation struct {
	Points             int `db:"points" json:"points"`
	TotalComplaints    int `db:"total_complaints" json:"total_complaints"`
	ResolvedComplaints int `db:"resolved_complaints" json:"resolved_complaints"`
	FakeComplaints     int `db:"fake_complaints" json:"fake_complaints"`
	PendingComplaints  int `db:"pending_complaints" json:"pending_complaints"`
}

// Complaint lifecycle event types, published to Kafka and recorded in
// ClickHouse for the reputation event history.
const (
	EventRegistered   = "registered"
	EventResolved     = "resolved"
	EventFlaggedFake  = "flagged_fake"
	EventRejected     = "rejected"
	EventManualAdjust = "manual_adjust"
)

// ReputationEvent is a single complaint lifecycle transition applied to a
// user's reputation. It is ephemeral: produced once per transition, fanned
// out to the event stream and analytics store, never read back by the core.
type ReputationEvent struct {
	EventType   string    `json:"event_type"`
	Username    string    `json:"username"`
	ReportID    string    `json:"report_id,omitempty"`
	WasFake     bool      `json:"was_fake,omitempty"`
	PointsDelta int       `json:"points_delta"`
	PointsAfter int       `json:"points_after"`
	OccurredAt  time.Time `json:"occurred_at"`
}
