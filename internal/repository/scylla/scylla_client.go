package scylla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"civiceye/internal/config"
	"civiceye/internal/util"
)

// PreparedStatements holds the statements the repositories actually use.
// Users are partitioned by a murmur3 bucket of the username; reports are
// denormalized into three tables (by id, by user, by day) so each read path
// hits a single partition.
type PreparedStatements struct {
	CreateUser        *gocql.Query
	GetUserByUsername *gocql.Query
	UpdateReputation  *gocql.Query
	UpdateLastLogin   *gocql.Query

	CreateReport       *gocql.Query
	CreateReportByUser *gocql.Query
	CreateReportByDay  *gocql.Query
	GetReport          *gocql.Query
	ListUserReports    *gocql.Query
	ListReportsByDay   *gocql.Query

	UpdateReportStatus       *gocql.Query
	UpdateReportStatusByUser *gocql.Query
	MarkReportFake           *gocql.Query
	MarkReportFakeByUser     *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.RWMutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.MaxPreparedStmts = 1000
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}

	if err := client.prepareStatements(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	util.Info("ScyllaDB client initialized with prepared statements",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() error {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()

	if s.isPrepared {
		return nil
	}

	prepared := &PreparedStatements{}

	prepared.CreateUser = s.Session.Query(`
		INSERT INTO users (
			user_bucket, username, user_id, email, name, role,
			password_hash, password_salt, pepper_version,
			points, total_complaints, resolved_complaints, fake_complaints, pending_complaints,
			created_at, updated_at, last_login
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.GetUserByUsername = s.Session.Query(`
		SELECT user_bucket, username, user_id, email, name, role,
			password_hash, password_salt, pepper_version,
			points, total_complaints, resolved_complaints, fake_complaints, pending_complaints,
			created_at, updated_at, last_login
		FROM users WHERE user_bucket = ? AND username = ?`)

	prepared.UpdateReputation = s.Session.Query(`
		UPDATE users SET points = ?, total_complaints = ?, resolved_complaints = ?,
			fake_complaints = ?, pending_complaints = ?, updated_at = ?
		WHERE user_bucket = ? AND username = ?`)

	prepared.UpdateLastLogin = s.Session.Query(`
		UPDATE users SET last_login = ? WHERE user_bucket = ? AND username = ?`)

	prepared.CreateReport = s.Session.Query(`
		INSERT INTO reports (
			report_id, username, issue_type, description, complaint_text,
			latitude, longitude, status, fake, fake_score, fake_penalized,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.CreateReportByUser = s.Session.Query(`
		INSERT INTO reports_by_user (
			username, created_at, report_id, issue_type, description, complaint_text,
			latitude, longitude, status, fake, fake_score, fake_penalized, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.CreateReportByDay = s.Session.Query(`
		INSERT INTO reports_by_day (
			date_bucket, created_at, report_id, username, issue_type, status
		) VALUES (?, ?, ?, ?, ?, ?)`)

	prepared.GetReport = s.Session.Query(`
		SELECT report_id, username, issue_type, description, complaint_text,
			latitude, longitude, status, fake, fake_score, fake_penalized,
			created_at, updated_at
		FROM reports WHERE report_id = ?`)

	prepared.ListUserReports = s.Session.Query(`
		SELECT report_id, username, issue_type, description, complaint_text,
			latitude, longitude, status, fake, fake_score, fake_penalized,
			created_at, updated_at
		FROM reports_by_user WHERE username = ? LIMIT ?`)

	prepared.ListReportsByDay = s.Session.Query(`
		SELECT report_id, username, issue_type, status, created_at
		FROM reports_by_day WHERE date_bucket = ? LIMIT ?`)

	prepared.UpdateReportStatus = s.Session.Query(`
		UPDATE reports SET status = ?, updated_at = ? WHERE report_id = ?`)

	prepared.UpdateReportStatusByUser = s.Session.Query(`
		UPDATE reports_by_user SET status = ?, updated_at = ?
		WHERE username = ? AND created_at = ? AND report_id = ?`)

	prepared.MarkReportFake = s.Session.Query(`
		UPDATE reports SET fake = ?, fake_score = ?, fake_penalized = ?, updated_at = ?
		WHERE report_id = ?`)

	prepared.MarkReportFakeByUser = s.Session.Query(`
		UPDATE reports_by_user SET fake = ?, fake_score = ?, fake_penalized = ?, updated_at = ?
		WHERE username = ? AND created_at = ? AND report_id = ?`)

	s.Prepared = prepared
	s.isPrepared = true

	util.Info("ScyllaDB prepared statements created successfully")
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Batch(typ gocql.BatchType) *gocql.Batch {
	return s.Session.NewBatch(typ)
}

func (s *ScyllaClient) ExecuteBatch(batch *gocql.Batch) error {
	return s.Session.ExecuteBatch(batch)
}

func (s *ScyllaClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	return nil
}

func (s *ScyllaClient) ExecWithRetry(query *gocql.Query) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if err := query.Exec(); err != nil {
			lastErr = err
			if i < 2 {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}

func (s *ScyllaClient) ScanWithRetry(query *gocql.Query, dest ...interface{}) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if err := query.Scan(dest...); err != nil {
			lastErr = err
			if err == gocql.ErrNotFound {
				return err
			}
			if i < 2 {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}
