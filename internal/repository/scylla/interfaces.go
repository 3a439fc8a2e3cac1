package scylla

import (
	"context"
	"time"

	"civiceye/internal/model"
)

// UserRepository defines the storage operations for user accounts and their
// reputation counters.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	IsUsernameTaken(ctx context.Context, username string) (bool, error)

	// UpdateReputation persists a full reputation snapshot. Callers must
	// hold the per-user reputation lock across the read-apply-write cycle.
	UpdateReputation(ctx context.Context, username string, rep model.Reputation) error
	UpdateLastLogin(ctx context.Context, username string, timestamp time.Time) error

	HealthCheck(ctx context.Context) error
}

// ReportRepository defines the storage operations for complaints.
type ReportRepository interface {
	CreateReport(ctx context.Context, report *model.Report) error
	GetReport(ctx context.Context, reportID string) (*model.Report, error)
	ListUserReports(ctx context.Context, username string, limit int) ([]*model.Report, error)
	ListReportsByDay(ctx context.Context, dateBucket string, limit int) ([]*model.Report, error)

	UpdateStatus(ctx context.Context, report *model.Report, newStatus string) error
	MarkFake(ctx context.Context, report *model.Report, fakeScore float64) error

	HealthCheck(ctx context.Context) error
}
