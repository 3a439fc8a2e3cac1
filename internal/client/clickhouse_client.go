package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"civiceye/internal/config"
	"civiceye/internal/model"
	"civiceye/internal/util"
)

// ClickHouseClient writes the append-only reputation event history used for
// abuse analytics and audit.
type ClickHouseClient struct {
	conn   driver.Conn
	config *config.ClickhouseConfig
	mu     sync.RWMutex
}

func NewClickHouseClient(cfg *config.Config, logger *zap.Logger) (*ClickHouseClient, error) {
	chConfig := cfg.Clickhouse

	opts := &ch.Options{
		Addr: []string{extractHostPort(chConfig.URL)},
		Auth: ch.Auth{
			Username: chConfig.Username,
			Password: chConfig.Password,
			Database: chConfig.Database,
		},
		DialTimeout:          30 * time.Second,
		MaxOpenConns:         100,
		MaxIdleConns:         50,
		ConnMaxLifetime:      time.Hour,
		ConnOpenStrategy:     ch.ConnOpenInOrder,
		BlockBufferSize:      10,
		MaxCompressionBuffer: 10240,
	}

	if cfg.IsProduction() || strings.HasPrefix(chConfig.URL, "https://") {
		opts.TLS = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: extractHostname(chConfig.URL),
		}
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	util.Info("ClickHouse client initialized",
		zap.String("url", chConfig.URL),
		zap.String("database", chConfig.Database),
	)

	return &ClickHouseClient{
		conn:   conn,
		config: &chConfig,
	}, nil
}

// InsertReputationEvent appends one point-history row.
func (c *ClickHouseClient) InsertReputationEvent(ctx context.Context, event model.ReputationEvent) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.conn.Exec(ctx, `
		INSERT INTO reputation_events
			(username, report_id, event_type, was_fake, points_delta, points_after, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.Username, event.ReportID, event.EventType, event.WasFake,
		event.PointsDelta, event.PointsAfter, event.OccurredAt,
	)
}

// PointHistory returns a user's recent point-history rows, newest first.
func (c *ClickHouseClient) PointHistory(ctx context.Context, username string, limit int) ([]model.ReputationEvent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.conn.Query(ctx, `
		SELECT username, report_id, event_type, was_fake, points_delta, points_after, occurred_at
		FROM reputation_events
		WHERE username = ?
		ORDER BY occurred_at DESC
		LIMIT ?`, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query point history: %w", err)
	}
	defer rows.Close()

	var events []model.ReputationEvent
	for rows.Next() {
		var ev model.ReputationEvent
		if err := rows.Scan(&ev.Username, &ev.ReportID, &ev.EventType, &ev.WasFake,
			&ev.PointsDelta, &ev.PointsAfter, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan point history row: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// HealthCheck verifies ClickHouse connectivity
func (c *ClickHouseClient) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.Ping(ctx)
}

func (c *ClickHouseClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			util.Error("Failed to close ClickHouse connection", zap.Error(err))
			return err
		}
		util.Info("ClickHouse connection closed")
	}
	return nil
}

func extractHostPort(url string) string {
	cleanURL := strings.TrimPrefix(url, "http://")
	cleanURL = strings.TrimPrefix(cleanURL, "https://")
	if !strings.Contains(cleanURL, ":") {
		if strings.HasPrefix(url, "https://") {
			return cleanURL + ":8443"
		}
		return cleanURL + ":8123"
	}
	return cleanURL
}

func extractHostname(url string) string {
	hostPort := extractHostPort(url)
	return strings.Split(hostPort, ":")[0]
}
