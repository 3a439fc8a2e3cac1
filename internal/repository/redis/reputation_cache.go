package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"civiceye/internal/client"
	"civiceye/internal/model"
	"civiceye/internal/util"
)

const (
	reputationLockPrefix = "reputation_lock:"
	leaderboardKey       = "leaderboard:points"

	lockTTL        = 5 * time.Second
	lockRetries    = 10
	lockRetryDelay = 50 * time.Millisecond
)

// ReputationCache coordinates reputation writes and keeps the leaderboard.
// Reputation updates are read-modify-write over the users table, so every
// writer for a given user must hold that user's lock first.
type ReputationCache struct {
	redisClient *client.RedisClient
}

func NewReputationCache(redisClient *client.RedisClient) *ReputationCache {
	return &ReputationCache{redisClient: redisClient}
}

// AcquireLock takes the per-user reputation write lock, retrying briefly
// before giving up. Returns an error if the lock is still held after all
// retries.
func (c *ReputationCache) AcquireLock(ctx context.Context, username string) error {
	key := reputationLockPrefix + username

	for attempt := 0; attempt < lockRetries; attempt++ {
		acquired, err := c.redisClient.SetNX(ctx, key, "1", lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire reputation lock: %w", err)
		}
		if acquired {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	util.Warn("Reputation lock contention",
		zap.String("username", username))
	return fmt.Errorf("reputation lock for %s is held", username)
}

func (c *ReputationCache) ReleaseLock(ctx context.Context, username string) {
	if err := c.redisClient.Del(ctx, reputationLockPrefix+username); err != nil {
		// Lock expires on its own; losing the delete only delays the
		// next writer by up to the TTL.
		util.Warn("Failed to release reputation lock",
			zap.String("username", username),
			zap.Error(err))
	}
}

// UpdateLeaderboard records the user's current points in the global
// leaderboard sorted set.
func (c *ReputationCache) UpdateLeaderboard(ctx context.Context, username string, points int) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return c.redisClient.ZSet(ctx, leaderboardKey, username, float64(points))
}

// TopUsers returns the highest-scoring users, best first.
func (c *ReputationCache) TopUsers(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	members, err := c.redisClient.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(members))
	for i, member := range members {
		username, ok := member.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{
			Rank:     i + 1,
			Username: username,
			Points:   int(member.Score),
		})
	}

	return entries, nil
}
