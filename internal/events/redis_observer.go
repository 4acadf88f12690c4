package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/logger"
)

// DefaultChannel is the Redis channel progress events are published to.
const DefaultChannel = "siteatlas:progress"

// publishTimeout bounds a single publish so a slow broker cannot stall
// the crawl loop.
const publishTimeout = 2 * time.Second

// RedisObserver publishes progress events to a Redis pub/sub channel for
// cross-process delivery. Publish failures are logged and dropped.
type RedisObserver struct {
	client  *redis.Client
	channel string
	logger  logger.Interface
}

// NewRedisObserver creates an observer publishing to channel. An empty
// channel falls back to DefaultChannel.
func NewRedisObserver(client *redis.Client, channel string, log logger.Interface) *RedisObserver {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisObserver{
		client:  client,
		channel: channel,
		logger:  log.WithComponent("redis-observer"),
	}
}

// publish serializes and publishes one event, best-effort.
func (o *RedisObserver) publish(event domain.ProgressEvent) {
	event.Timestamp = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		o.logger.Error("Failed to encode progress event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := o.client.Publish(ctx, o.channel, payload).Err(); err != nil {
		o.logger.Warn("Failed to publish progress event",
			"channel", o.channel,
			"kind", event.Kind,
			"error", err)
	}
}

// OnProgress publishes a progress event.
func (o *RedisObserver) OnProgress(jobID string, processed, total int, currentURL string) {
	o.publish(domain.ProgressEvent{
		Kind:  domain.EventProgress,
		JobID: jobID,
		Payload: map[string]any{
			"processed": processed,
			"total":     total,
			"url":       currentURL,
		},
	})
}

// OnPageCompleted publishes a page-completed event.
func (o *RedisObserver) OnPageCompleted(jobID, url, title string) {
	o.publish(domain.ProgressEvent{
		Kind:    domain.EventPageCompleted,
		JobID:   jobID,
		Payload: map[string]any{"url": url, "title": title},
	})
}

// OnExternalLink publishes an external-link event.
func (o *RedisObserver) OnExternalLink(jobID, from, to string) {
	o.publish(domain.ProgressEvent{
		Kind:    domain.EventExternalLink,
		JobID:   jobID,
		Payload: map[string]any{"from": from, "to": to},
	})
}

// OnError publishes an error event.
func (o *RedisObserver) OnError(jobID, context, message string) {
	o.publish(domain.ProgressEvent{
		Kind:    domain.EventError,
		JobID:   jobID,
		Payload: map[string]any{"context": context, "message": message},
	})
}
