// Package cache publishes job status changes to redis so that other processes
// can follow jobs without polling the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aistudio/core/jobs"
	"aistudio/logger"
	"aistudio/model"

	"github.com/redis/go-redis/v9"
)

const jobStatusKey = "aistudio:job:%s:%d" // String: last Event JSON

// JobEvents publishes every job event on a channel and keeps the latest event
// per job under a key that expires after ttl.
type JobEvents struct {
	client  *redis.Client
	channel string
	ttl     time.Duration
}

var _ jobs.Notifier = (*JobEvents)(nil)

// NewJobEvents wraps client. A zero ttl keeps status keys forever.
func NewJobEvents(client *redis.Client, channel string, ttl time.Duration) *JobEvents {
	return &JobEvents{client: client, channel: channel, ttl: ttl}
}

// JobStatusKey returns the key holding the last event of a job.
func JobStatusKey(kind model.JobKind, id int64) string {
	return fmt.Sprintf(jobStatusKey, kind, id)
}

// Notify implements jobs.Notifier. Redis errors are logged, never returned,
// so an unavailable redis cannot fail a job.
func (c *JobEvents) Notify(ctx context.Context, event jobs.Event) {
	if err := c.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish job event",
			logger.String("jobKind", string(event.Kind)),
			logger.Int64("jobId", event.JobID),
			logger.ErrorField(err))
	}
}

// Publish stores event as the job's last status and publishes it.
func (c *JobEvents) Publish(ctx context.Context, event jobs.Event) error {
	if c.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, JobStatusKey(event.Kind, event.JobID), data, c.ttl)
	pipe.Publish(ctx, c.channel, data)
	_, err = pipe.Exec(ctx)
	return err
}

// LastStatus returns the most recent event of a job, or nil when redis has
// none.
func (c *JobEvents) LastStatus(ctx context.Context, kind model.JobKind, id int64) (*jobs.Event, error) {
	if c.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}
	data, err := c.client.Get(ctx, JobStatusKey(kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var event jobs.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job event: %w", err)
	}
	return &event, nil
}

// Subscribe calls handle for every event published until ctx is done.
// Malformed messages are skipped.
func (c *JobEvents) Subscribe(ctx context.Context, handle func(jobs.Event)) error {
	if c.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	sub := c.client.Subscribe(ctx, c.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event jobs.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn("Skipping malformed job event", logger.String("payload", msg.Payload))
				continue
			}
			handle(event)
		}
	}
}
