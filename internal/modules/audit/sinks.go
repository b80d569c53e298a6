package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"homestay/internal/domain"

	"github.com/redis/go-redis/v9"
)

type AuditStore interface {
	Create(ctx context.Context, l *domain.AuditLog) error
}

// DBSink persists events as audit_logs rows.
type DBSink struct {
	store AuditStore
}

func NewDBSink(store AuditStore) *DBSink {
	return &DBSink{store: store}
}

func (s *DBSink) Name() string { return "db" }

func (s *DBSink) Write(ctx context.Context, e domain.Event) error {
	return s.store.Create(ctx, &domain.AuditLog{
		ID:         e.ID,
		TenantID:   e.TenantID,
		Actor:      e.Actor,
		Action:     e.Type,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    e.Payload,
		CreatedAt:  e.OccurredAt,
	})
}

// Publisher is the slice of *redis.Client used by RedisSink.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes each event as JSON on the tenant's channel and,
// when configured, on a shared firehose channel for webhook workers.
type RedisSink struct {
	client   Publisher
	firehose string
}

func NewRedisSink(client Publisher, firehose string) *RedisSink {
	return &RedisSink{client: client, firehose: firehose}
}

func TenantChannel(tenantID string) string {
	return fmt.Sprintf("tenant:%s:events", tenantID)
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, e domain.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, TenantChannel(e.TenantID), body).Err(); err != nil {
		return err
	}
	if s.firehose != "" {
		return s.client.Publish(ctx, s.firehose, body).Err()
	}
	return nil
}

// HubSink pushes events to websocket subscribers of the event's tenant.
type HubSink struct {
	hub *Hub
}

func NewHubSink(hub *Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Name() string { return "websocket" }

func (s *HubSink) Write(_ context.Context, e domain.Event) error {
	s.hub.Broadcast(e.TenantID, e)
	return nil
}
