package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay/internal/domain"
	"homestay/internal/storetest"
)

type fakePublisher struct {
	channels []string
	messages [][]byte
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if p.err != nil {
		cmd.SetErr(p.err)
		return cmd
	}
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, message.([]byte))
	cmd.SetVal(1)
	return cmd
}

func TestRedisSinkPublishesPerTenant(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewRedisSink(pub, "homestay:events")

	e := domain.Event{ID: "e1", TenantID: "t-9", Type: domain.EventBookingConfirmed, EntityID: "b1"}
	require.NoError(t, sink.Write(context.Background(), e))

	assert.Equal(t, []string{"tenant:t-9:events", "homestay:events"}, pub.channels)
	var decoded domain.Event
	require.NoError(t, json.Unmarshal(pub.messages[0], &decoded))
	assert.Equal(t, domain.EventBookingConfirmed, decoded.Type)
	assert.Equal(t, "b1", decoded.EntityID)

	pub.err = errors.New("connection refused")
	assert.Error(t, sink.Write(context.Background(), e))
}

func TestDBSinkWritesAuditLog(t *testing.T) {
	store := storetest.Open(t)
	sink := NewDBSink(store.Audit)
	ctx := context.Background()

	at := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Write(ctx, domain.Event{
		ID:         "evt-1",
		TenantID:   "t1",
		Type:       domain.EventBookingCancelled,
		EntityType: "booking",
		EntityID:   "b-1",
		Actor:      "user:7",
		Payload:    domain.Metadata{"reason": "hold expired"},
		OccurredAt: at,
	}))

	logs, err := store.Audit.ListByEntity(ctx, "t1", "b-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.EventBookingCancelled, logs[0].Action)
	assert.Equal(t, "user:7", logs[0].Actor)
	assert.Equal(t, "hold expired", logs[0].Details["reason"])

	other, err := store.Audit.ListByEntity(ctx, "t2", "b-1")
	require.NoError(t, err)
	assert.Empty(t, other)
}
