package service

import (
	"context"

	"civiceye/internal/model"
)

// SessionStore is the session backend the services need. Implemented by
// redis.SessionCache.
type SessionStore interface {
	CreateSession(ctx context.Context, username, role string) (string, error)
	GetSession(ctx context.Context, token string) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
	InvalidateAllUserSessions(ctx context.Context, username string) error
}

// SearchIndex is the full-text index for complaints. Implemented by
// client.ESClient.
type SearchIndex interface {
	IndexReport(ctx context.Context, report *model.Report) error
	SearchReports(ctx context.Context, query string, limit int) ([]model.Report, error)
	DeleteReport(ctx context.Context, reportID string) error
}

// ReputationCoordinator serializes reputation writes and keeps the
// leaderboard. Implemented by redis.ReputationCache.
type ReputationCoordinator interface {
	AcquireLock(ctx context.Context, username string) error
	ReleaseLock(ctx context.Context, username string)
	UpdateLeaderboard(ctx context.Context, username string, points int) error
	TopUsers(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}
