package queue

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/siteatlas/internal/domain"
)

func TestNewConsumerRequiresID(t *testing.T) {
	_, err := NewConsumer(nil, ConsumerConfig{})
	assert.Error(t, err)
}

func TestNewConsumerDefaults(t *testing.T) {
	consumer, err := NewConsumer(nil, ConsumerConfig{ConsumerID: "worker-1"})
	require.NoError(t, err)

	assert.Equal(t, "explorer-workers", consumer.ConsumerGroup())
	assert.Equal(t, "worker-1", consumer.ConsumerID())
	assert.Equal(t, defaultBlockTimeout, consumer.blockTimeout)
	assert.Equal(t, int64(defaultBatchSize), consumer.batchSize)
}

func TestParseMessage(t *testing.T) {
	consumer, err := NewConsumer(nil, ConsumerConfig{ConsumerID: "worker-1"})
	require.NoError(t, err)

	enqueued := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	msg := redis.XMessage{
		ID: "1-0",
		Values: map[string]any{
			ConfigField:     `{"seed_url":"https://example.com","max_depth":2,"max_pages":50,"strategy":"bfs"}`,
			EnqueuedAtField: enqueued.Format(time.RFC3339),
			MetadataField:   `{"requested_by":"scheduler"}`,
		},
	}

	request, err := consumer.parseMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "1-0", request.MessageID)
	assert.Equal(t, "https://example.com", request.Config.SeedURL)
	assert.Equal(t, 2, request.Config.MaxDepth)
	assert.Equal(t, domain.StrategyBFS, request.Config.Strategy)
	assert.Equal(t, enqueued, request.EnqueuedAt)
	assert.Equal(t, "scheduler", request.Metadata["requested_by"])
}

func TestParseMessageMalformed(t *testing.T) {
	consumer, err := NewConsumer(nil, ConsumerConfig{ConsumerID: "worker-1"})
	require.NoError(t, err)

	_, err = consumer.parseMessage(redis.XMessage{ID: "1-0", Values: map[string]any{}})
	assert.Error(t, err)

	_, err = consumer.parseMessage(redis.XMessage{
		ID:     "1-1",
		Values: map[string]any{ConfigField: "{not json"},
	})
	assert.Error(t, err)
}
