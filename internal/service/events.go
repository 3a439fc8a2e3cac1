package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"civiceye/internal/client"
	"civiceye/internal/model"
	"civiceye/internal/util"
)

// eventSink fans reputation events out to the Kafka stream and the
// ClickHouse history table. Both destinations are best-effort: the
// reputation write in ScyllaDB is the source of truth, and a lost event
// only degrades analytics.
type eventSink struct {
	kafka      *client.KafkaProducer
	clickhouse *client.ClickHouseClient
}

func newEventSink(kafka *client.KafkaProducer, clickhouse *client.ClickHouseClient) *eventSink {
	return &eventSink{kafka: kafka, clickhouse: clickhouse}
}

func (s *eventSink) emit(ctx context.Context, eventType, username, reportID string, wasFake bool, delta, after int) {
	event := model.ReputationEvent{
		EventType:   eventType,
		Username:    username,
		ReportID:    reportID,
		WasFake:     wasFake,
		PointsDelta: delta,
		PointsAfter: after,
		OccurredAt:  time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if s.kafka != nil {
		if err := s.kafka.PublishReputationEvent(ctx, event); err != nil {
			util.Warn("Failed to publish reputation event",
				zap.String("event_type", eventType),
				zap.String("username", username),
				zap.Error(err))
		}
	}

	if s.clickhouse != nil {
		if err := s.clickhouse.InsertReputationEvent(ctx, event); err != nil {
			util.Warn("Failed to record reputation event",
				zap.String("event_type", eventType),
				zap.String("username", username),
				zap.Error(err))
		}
	}
}
