package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"civiceye/internal/client"
	"civiceye/internal/model"
	"civiceye/internal/util"
)

const (
	sessionKeyPrefix      = "session:"
	userSessionsKeyPrefix = "user_sessions:"
)

// SessionCache stores login sessions in Redis. Sessions are the only
// source of truth for "who is logged in"; invalidating every session for
// a user is how a ban takes effect immediately.
type SessionCache struct {
	redisClient *client.RedisClient
	sessionTTL  time.Duration
}

func NewSessionCache(redisClient *client.RedisClient, sessionTTL time.Duration) *SessionCache {
	return &SessionCache{
		redisClient: redisClient,
		sessionTTL:  sessionTTL,
	}
}

func (s *SessionCache) CreateSession(ctx context.Context, username, role string) (string, error) {
	token := uuid.New().String()

	session := &model.Session{
		Token:     token,
		Username:  username,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.redisClient.Set(ctx, sessionKeyPrefix+token, string(data), s.sessionTTL); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	// Track the token against the user so a ban can tear down every
	// session at once.
	userKey := userSessionsKeyPrefix + username
	pipe := s.redisClient.Pipeline()
	pipe.SAdd(ctx, userKey, token)
	pipe.Expire(ctx, userKey, s.sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		util.Warn("Failed to track session for user",
			zap.String("username", username),
			zap.Error(err))
	}

	util.Info("Session created",
		zap.String("username", username),
		zap.String("role", role))

	return token, nil
}

func (s *SessionCache) GetSession(ctx context.Context, token string) (*model.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := s.redisClient.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if strings.Contains(err.Error(), "key not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session := &model.Session{}
	if err := json.Unmarshal([]byte(data), session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return session, nil
}

func (s *SessionCache) DeleteSession(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	session, err := s.GetSession(ctx, token)
	if err == nil && session != nil {
		pipe := s.redisClient.Pipeline()
		pipe.SRem(ctx, userSessionsKeyPrefix+session.Username, token)
		pipe.Del(ctx, sessionKeyPrefix+token)
		_, err = pipe.Exec(ctx)
		return err
	}

	return s.redisClient.Del(ctx, sessionKeyPrefix+token)
}

// InvalidateAllUserSessions logs the user out everywhere. Called when a
// user crosses the permanent-ban threshold.
func (s *SessionCache) InvalidateAllUserSessions(ctx context.Context, username string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	userKey := userSessionsKeyPrefix + username
	tokens, err := s.redisClient.SMembers(ctx, userKey)
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	if len(tokens) == 0 {
		return nil
	}

	pipe := s.redisClient.Pipeline()
	for _, token := range tokens {
		pipe.Del(ctx, sessionKeyPrefix+token)
	}
	pipe.Del(ctx, userKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate user sessions: %w", err)
	}

	util.Info("All sessions invalidated for user",
		zap.String("username", username),
		zap.Int("session_count", len(tokens)))

	return nil
}
