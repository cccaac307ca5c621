package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"admin-service/internal/client"
	"admin-service/internal/metrics"
	"admin-service/internal/models"
	"admin-service/internal/repository/clickhouse"
	"admin-service/internal/util"
)

// EventPublisher fans audit entries out to the security event stream.
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// AuditService writes the durable audit trail and mirrors each entry to
// Kafka for downstream consumers. The ClickHouse write is the system of
// record; the Kafka publish is best-effort and never blocks the caller.
type AuditService struct {
	store     clickhouse.AuditRepository
	publisher EventPublisher
}

func NewAuditService(store clickhouse.AuditRepository, publisher EventPublisher) *AuditService {
	return &AuditService{
		store:     store,
		publisher: publisher,
	}
}

// Record writes one audit entry. The entry gets its ID and timestamp
// here so callers cannot produce duplicates by retrying.
func (s *AuditService) Record(ctx context.Context, actorEmail, action, resourceType, resourceID, outcome, detail string) {
	entry := &models.AuditLogEntry{
		ID:           uuid.New().String(),
		ActorEmail:   actorEmail,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Outcome:      outcome,
		Detail:       detail,
		Timestamp:    time.Now().UTC(),
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		// The action itself already happened; losing one audit row is
		// logged loudly but does not roll anything back.
		util.Error("Audit write failed",
			zap.String("action", action),
			zap.String("actor_email", actorEmail),
			zap.Error(err))
	}

	metrics.AuditEntries.WithLabelValues(action, outcome).Inc()

	s.fanOut(entry)
}

// fanOut mirrors the entry to Kafka from a detached goroutine so slow
// brokers cannot hold up request handling.
func (s *AuditService) fanOut(entry *models.AuditLogEntry) {
	if s.publisher == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		payload, err := json.Marshal(entry)
		if err != nil {
			util.Error("Failed to marshal security event", zap.Error(err))
			return
		}

		if err := s.publisher.Publish(ctx, entry.ActorEmail, payload); err != nil {
			metrics.SecurityEventPublishFailures.Inc()
			util.Warn("Failed to publish security event",
				zap.String("action", entry.Action),
				zap.Error(err))
		}
	}()
}

// Query returns filtered audit entries, newest first.
func (s *AuditService) Query(ctx context.Context, q models.AuditQuery) ([]*models.AuditLogEntry, error) {
	return s.store.Query(ctx, q)
}

// kafkaPublisher adapts the Kafka producer to the EventPublisher
// interface, pinning the security event topic.
type kafkaPublisher struct {
	producer *client.KafkaProducer
	topic    string
}

func NewKafkaPublisher(producer *client.KafkaProducer, topic string) EventPublisher {
	return &kafkaPublisher{producer: producer, topic: topic}
}

func (p *kafkaPublisher) Publish(ctx context.Context, key string, payload []byte) error {
	return p.producer.ProduceMessage(ctx, p.topic, []byte(key), payload, map[string]string{
		"source": "admin-service",
	})
}
