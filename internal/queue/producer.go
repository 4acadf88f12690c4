package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonesrussell/siteatlas/internal/domain"
)

const (
	// ConfigField is the field name for the serialized job configuration.
	ConfigField = "config"

	// MetadataField is the field name for additional metadata.
	MetadataField = "metadata"

	// EnqueuedAtField is the field name for the enqueue timestamp.
	EnqueuedAtField = "enqueued_at"

	defaultMaxStreamLen = 10000
)

// Producer enqueues exploration requests onto the Redis stream.
type Producer struct {
	client       *StreamsClient
	maxStreamLen int64
}

// ProducerConfig holds configuration for the Producer.
type ProducerConfig struct {
	MaxStreamLen int64 // 0 = default
}

// NewProducer creates a request producer.
func NewProducer(client *StreamsClient, cfg ProducerConfig) *Producer {
	maxLen := cfg.MaxStreamLen
	if maxLen <= 0 {
		maxLen = defaultMaxStreamLen
	}

	return &Producer{
		client:       client,
		maxStreamLen: maxLen,
	}
}

// Enqueue validates cfg and appends it to the request stream. Returns the
// stream message ID.
func (p *Producer) Enqueue(ctx context.Context, cfg domain.JobConfig, metadata map[string]any) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("invalid exploration request: %w", err)
	}

	configData, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to serialize request: %w", err)
	}

	values := map[string]any{
		ConfigField:     string(configData),
		EnqueuedAtField: time.Now().UTC().Format(time.RFC3339),
	}

	if metadata != nil {
		metaData, metaErr := json.Marshal(metadata)
		if metaErr != nil {
			return "", fmt.Errorf("failed to serialize metadata: %w", metaErr)
		}
		values[MetadataField] = string(metaData)
	}

	messageID, err := p.client.XAdd(ctx, values)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue request: %w", err)
	}

	return messageID, nil
}

// EnqueueWithTimeout enqueues a request under a context timeout.
func (p *Producer) EnqueueWithTimeout(ctx context.Context, cfg domain.JobConfig, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return p.Enqueue(ctx, cfg, nil)
}

// TrimStream trims the request stream to the configured maximum length.
func (p *Producer) TrimStream(ctx context.Context) error {
	return p.client.XTrimMaxLen(ctx, p.maxStreamLen)
}

// QueueDepth returns the current length of the request stream.
func (p *Producer) QueueDepth(ctx context.Context) (int64, error) {
	return p.client.XLen(ctx)
}
