package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"civiceye/internal/config"
	"civiceye/internal/model"
	"civiceye/internal/util"
)

// KafkaProducer publishes complaint lifecycle events. The event stream is
// best-effort: the service keeps working if Kafka is down, so publish
// failures are logged, not propagated.
type KafkaProducer struct {
	Writer *kafka.Writer
	config *config.KafkaConfig
	logger *zap.Logger
}

func NewKafkaProducer(cfg *config.Config, logger *zap.Logger) (*KafkaProducer, error) {
	kafkaConfig := cfg.Kafka

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kafkaConfig.Brokers...),
		Topic:        kafkaConfig.EventsTopic,
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  3,
		BatchSize:    100,
		BatchBytes:   1048576, // 1MB
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("failed to write kafka messages",
					zap.Error(err),
					zap.Int("message_count", len(messages)),
				)
			}
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Connection probe; a missing topic error still proves the brokers are
	// reachable.
	err := writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte("probe"),
		Value: []byte(`{"probe":true}`),
	})
	if err != nil && isConnectivityError(err) {
		return nil, fmt.Errorf("failed to connect to Kafka brokers: %w", err)
	}

	util.Info("Kafka producer initialized",
		zap.Strings("brokers", kafkaConfig.Brokers),
		zap.String("topic", kafkaConfig.EventsTopic),
	)

	return &KafkaProducer{
		Writer: writer,
		config: &kafkaConfig,
		logger: logger,
	}, nil
}

// PublishReputationEvent emits one complaint lifecycle transition. The
// report ID keys the message so transitions for the same complaint stay
// ordered within a partition.
func (p *KafkaProducer) PublishReputationEvent(ctx context.Context, event model.ReputationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal reputation event: %w", err)
	}

	key := event.ReportID
	if key == "" {
		key = event.Username
	}

	if err := p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("failed to publish reputation event: %w", err)
	}

	util.Debug("Reputation event published",
		zap.String("event_type", event.EventType),
		zap.String("username", event.Username),
		zap.String("report_id", event.ReportID),
		zap.Int("points_delta", event.PointsDelta),
	)

	return nil
}

func (p *KafkaProducer) HealthCheck(ctx context.Context) error {
	err := p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte("health"),
		Value: []byte(`{"probe":true}`),
	})
	if err != nil && isConnectivityError(err) {
		return fmt.Errorf("kafka brokers unreachable: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	if p.Writer != nil {
		if err := p.Writer.Close(); err != nil {
			return fmt.Errorf("failed to close kafka writer: %w", err)
		}
	}
	return nil
}

// isConnectivityError distinguishes broker-unreachable errors from topic or
// payload errors during the startup probe.
func isConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "context deadline exceeded")
}
