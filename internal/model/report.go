package model

import "time"

// Report lifecycle statuses. Submitted and in-progress reports count as
// pending for the complaint-registration limit.
const (
	StatusSubmitted  = "submitted"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusRejected   = "rejected"
	StatusClosed     = "closed"
)

// IsPendingStatus reports whether a status is non-terminal.
func IsPendingStatus(status string) bool {
	return status == StatusSubmitted || status == StatusInProgress
}

// IsValidStatus reports whether a status is one of the known lifecycle states.
func IsValidStatus(status string) bool {
	switch status {
	case StatusSubmitted, StatusInProgress, StatusResolved, StatusRejected, StatusClosed:
		return true
	}
	return false
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Report struct {
	ReportID      string    `db:"report_id" json:"report_id"`
	Username      string    `db:"username" json:"username"`
	IssueType     string    `db:"issue_type" json:"issue_type"`
	Description   string    `db:"description" json:"description"`
	ComplaintText string    `db:"complaint_text" json:"complaint_text"`
	Location      Location  `db:"-" json:"location"`
	Status        string    `db:"status" json:"status"`
	Fake          bool      `db:"fake" json:"fake"`
	FakeScore     float64   `db:"fake_score" json:"fake_score"`
	// FakePenalized guards the one-shot fake penalty: the reputation ledger
	// does not deduplicate, so the service layer must never apply the
	// penalty twice for the same report.
	FakePenalized bool       `db:"fake_penalized" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Notification is derived from a user's recent reports for the dashboard;
// it is never persisted.
type Notification struct {
	Message string    `json:"message"`
	Type    string    `json:"type"`
	Date    time.Time `json:"date"`
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}
