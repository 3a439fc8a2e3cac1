package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"civiceye/internal/bucketing"
	"civiceye/internal/model"
	"civiceye/internal/util"
)

type userRepository struct {
	client    *ScyllaClient
	bucketing *bucketing.BucketingManager
}

func NewUserRepository(client *ScyllaClient, bucketingMgr *bucketing.BucketingManager) UserRepository {
	return &userRepository{
		client:    client,
		bucketing: bucketingMgr,
	}
}

func (r *userRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}
	user.UserBucket = r.bucketing.GetUserBucket(user.Username)
	user.CreatedAt = time.Now().UTC()

	query := r.client.Prepared.CreateUser.WithContext(ctx).Bind(
		user.UserBucket, user.Username, user.UserID, user.Email, user.Name, user.Role,
		user.PasswordHash, user.PasswordSalt, user.PepperVersion,
		user.Reputation.Points, user.Reputation.TotalComplaints,
		user.Reputation.ResolvedComplaints, user.Reputation.FakeComplaints,
		user.Reputation.PendingComplaints,
		user.CreatedAt, user.CreatedAt, nil,
	)

	if err := r.client.ExecWithRetry(query); err != nil {
		util.Error("Failed to create user",
			zap.String("username", user.Username),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	util.Info("User created",
		zap.String("username", user.Username),
		zap.String("user_id", user.UserID),
		zap.String("role", user.Role),
		zap.Int("user_bucket", user.UserBucket))

	return nil
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	bucket := r.bucketing.GetUserBucket(username)
	user := &model.User{}

	var createdAt, updatedAt, lastLogin time.Time

	query := r.client.Prepared.GetUserByUsername.WithContext(ctx).Bind(bucket, username)
	err := r.client.ScanWithRetry(query,
		&user.UserBucket, &user.Username, &user.UserID, &user.Email, &user.Name, &user.Role,
		&user.PasswordHash, &user.PasswordSalt, &user.PepperVersion,
		&user.Reputation.Points, &user.Reputation.TotalComplaints,
		&user.Reputation.ResolvedComplaints, &user.Reputation.FakeComplaints,
		&user.Reputation.PendingComplaints,
		&createdAt, &updatedAt, &lastLogin,
	)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, gocql.ErrNotFound
		}
		util.Error("Failed to get user",
			zap.String("username", username),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	user.CreatedAt = createdAt
	if !updatedAt.IsZero() {
		user.UpdatedAt = &updatedAt
	}
	if !lastLogin.IsZero() {
		user.LastLogin = &lastLogin
	}

	return user, nil
}

func (r *userRepository) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := r.GetUserByUsername(ctx, username)
	if err == gocql.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *userRepository) UpdateReputation(ctx context.Context, username string, rep model.Reputation) error {
	bucket := r.bucketing.GetUserBucket(username)

	query := r.client.Prepared.UpdateReputation.WithContext(ctx).Bind(
		rep.Points, rep.TotalComplaints, rep.ResolvedComplaints,
		rep.FakeComplaints, rep.PendingComplaints, time.Now().UTC(),
		bucket, username,
	)

	if err := r.client.ExecWithRetry(query); err != nil {
		util.Error("Failed to update reputation",
			zap.String("username", username),
			zap.Int("points", rep.Points),
			zap.Error(err))
		return fmt.Errorf("failed to update reputation: %w", err)
	}

	util.Debug("Reputation updated",
		zap.String("username", username),
		zap.Int("points", rep.Points),
		zap.Int("pending", rep.PendingComplaints))

	return nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, username string, timestamp time.Time) error {
	bucket := r.bucketing.GetUserBucket(username)

	query := r.client.Prepared.UpdateLastLogin.WithContext(ctx).Bind(timestamp, bucket, username)
	if err := r.client.ExecWithRetry(query); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

func (r *userRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck()
}
