package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/siteatlas/internal/domain"
)

const (
	defaultConsumerGroup = "explorer-workers"
	defaultBlockTimeout  = 5 * time.Second
	defaultBatchSize     = 10
	defaultClaimMinIdle  = 5 * time.Minute
	maxPendingCheck      = 100
)

// Consumer reads exploration requests from the Redis stream.
type Consumer struct {
	client        *StreamsClient
	consumerGroup string
	consumerID    string
	blockTimeout  time.Duration
	batchSize     int64
	claimMinIdle  time.Duration
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	ConsumerGroup string        // "" = default
	ConsumerID    string        // required, unique per worker
	BlockTimeout  time.Duration // 0 = default
	BatchSize     int64         // 0 = default
	ClaimMinIdle  time.Duration // 0 = default
}

// ConsumedRequest is one exploration request read from the queue.
type ConsumedRequest struct {
	MessageID  string
	Config     domain.JobConfig
	EnqueuedAt time.Time
	Metadata   map[string]any
}

// NewConsumer creates a request consumer.
func NewConsumer(client *StreamsClient, cfg ConsumerConfig) (*Consumer, error) {
	if cfg.ConsumerID == "" {
		return nil, errors.New("consumer ID is required")
	}

	group := cfg.ConsumerGroup
	if group == "" {
		group = defaultConsumerGroup
	}

	blockTimeout := cfg.BlockTimeout
	if blockTimeout <= 0 {
		blockTimeout = defaultBlockTimeout
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	claimMinIdle := cfg.ClaimMinIdle
	if claimMinIdle <= 0 {
		claimMinIdle = defaultClaimMinIdle
	}

	return &Consumer{
		client:        client,
		consumerGroup: group,
		consumerID:    cfg.ConsumerID,
		blockTimeout:  blockTimeout,
		batchSize:     batchSize,
		claimMinIdle:  claimMinIdle,
	}, nil
}

// Initialize creates the consumer group for the request stream.
func (c *Consumer) Initialize(ctx context.Context) error {
	return c.client.CreateConsumerGroup(ctx, c.consumerGroup)
}

// Read returns the next batch of requests. Stale pending messages from
// dead consumers are reclaimed before new messages are read.
func (c *Consumer) Read(ctx context.Context) ([]*ConsumedRequest, error) {
	reclaimed := c.reclaimPending(ctx)
	if len(reclaimed) > 0 {
		return reclaimed, nil
	}

	streams, err := c.client.XReadGroup(ctx, c.consumerGroup, c.consumerID, c.batchSize, c.blockTimeout)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from request stream: %w", err)
	}

	return c.parseStreams(streams), nil
}

// Acknowledge marks a request as processed.
func (c *Consumer) Acknowledge(ctx context.Context, request *ConsumedRequest) error {
	if request == nil {
		return errors.New("request cannot be nil")
	}
	return c.client.XAck(ctx, c.consumerGroup, request.MessageID)
}

// PendingCount returns the number of delivered-but-unacknowledged
// requests.
func (c *Consumer) PendingCount(ctx context.Context) (int64, error) {
	pending, err := c.client.XPendingExt(ctx, c.consumerGroup, "-", "+", maxPendingCheck)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return int64(len(pending)), nil
}

// reclaimPending claims messages idle past the threshold, typically left
// behind by a crashed worker.
func (c *Consumer) reclaimPending(ctx context.Context) []*ConsumedRequest {
	pending, err := c.client.XPendingExt(ctx, c.consumerGroup, "-", "+", maxPendingCheck)
	if err != nil {
		return nil
	}

	var idsToReclaim []string
	for _, entry := range pending {
		if entry.Idle >= c.claimMinIdle {
			idsToReclaim = append(idsToReclaim, entry.ID)
		}
	}
	if len(idsToReclaim) == 0 {
		return nil
	}

	claimed, err := c.client.XClaim(ctx, c.consumerGroup, c.consumerID, c.claimMinIdle, idsToReclaim...)
	if err != nil {
		return nil
	}

	var requests []*ConsumedRequest
	for _, msg := range claimed {
		request, parseErr := c.parseMessage(msg)
		if parseErr != nil {
			continue
		}
		requests = append(requests, request)
	}
	return requests
}

func (c *Consumer) parseStreams(streams []redis.XStream) []*ConsumedRequest {
	var requests []*ConsumedRequest
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			request, err := c.parseMessage(msg)
			if err != nil {
				// skip malformed messages
				continue
			}
			requests = append(requests, request)
		}
	}
	return requests
}

func (c *Consumer) parseMessage(msg redis.XMessage) (*ConsumedRequest, error) {
	configData, ok := msg.Values[ConfigField].(string)
	if !ok {
		return nil, errors.New("missing or invalid request config")
	}

	var cfg domain.JobConfig
	if err := json.Unmarshal([]byte(configData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request config: %w", err)
	}

	request := &ConsumedRequest{
		MessageID: msg.ID,
		Config:    cfg,
	}

	if enqueuedStr, hasEnqueued := msg.Values[EnqueuedAtField].(string); hasEnqueued {
		if t, parseErr := time.Parse(time.RFC3339, enqueuedStr); parseErr == nil {
			request.EnqueuedAt = t
		}
	}

	if metaStr, hasMeta := msg.Values[MetadataField].(string); hasMeta {
		var metadata map[string]any
		if unmarshalErr := json.Unmarshal([]byte(metaStr), &metadata); unmarshalErr == nil {
			request.Metadata = metadata
		}
	}

	return request, nil
}

// ConsumerGroup returns the consumer group name.
func (c *Consumer) ConsumerGroup() string {
	return c.consumerGroup
}

// ConsumerID returns the consumer ID.
func (c *Consumer) ConsumerID() string {
	return c.consumerID
}
