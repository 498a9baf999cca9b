// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rpc-platform/internal/runtime/txn"
	"rpc-platform/pkg/effects"
	apperrors "rpc-platform/pkg/errors"
	"rpc-platform/pkg/log"
	"rpc-platform/pkg/metrics"
	"rpc-platform/pkg/tracing"
	"rpc-platform/pkg/utils"
)

// Publisher delivers one message to a stream.
type Publisher interface {
	Publish(ctx context.Context, stream string, m Message) error
}

// RedisPublisher 以 Redis Streams（XADD）投递消息
type RedisPublisher struct {
	client redis.Cmdable
}

// NewRedisPublisher creates a publisher on an existing client.
func NewRedisPublisher(client redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, stream string, m Message) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"id":             m.ID,
			"type":           m.Type,
			"aggregate_type": m.AggregateType,
			"aggregate_id":   m.AggregateID,
			"payload":        string(m.Payload),
			"created_at":     m.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
}

// RelayConfig relay 配置
type RelayConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	StreamPrefix string        `mapstructure:"stream_prefix"`
}

func (c RelayConfig) withDefaults() RelayConfig {
	c.Interval = utils.Positive(c.Interval, time.Second)
	c.BatchSize = utils.Positive(c.BatchSize, 100)
	c.StreamPrefix = utils.Coalesce(c.StreamPrefix, "outbox:")
	return c
}

// Relay moves committed messages from the messages table to their stream.
// Delivery is at-least-once: a message is marked processed in the same
// transaction that claimed it, after it was published.
type Relay struct {
	db     txn.Beginner
	pub    Publisher
	clock  effects.Clock
	cfg    RelayConfig
	logger *log.Logger
}

// NewRelay creates a relay. clock stamps processed_at.
func NewRelay(db txn.Beginner, pub Publisher, clock effects.Clock, cfg RelayConfig, logger *log.Logger) *Relay {
	return &Relay{db: db, pub: pub, clock: clock, cfg: cfg.withDefaults(), logger: logger}
}

// Stream returns the stream a message is published to.
func (r *Relay) Stream(m Message) string {
	return r.cfg.StreamPrefix + m.AggregateType
}

// RunOnce claims one batch, publishes it in order and marks the delivered
// prefix processed. A publish failure stops the batch; the rest stays pending
// and the failure is returned after the delivered prefix is committed.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	ctx, span := tracing.StartRelaySpan(ctx, r.cfg.BatchSize)
	defer span.End()

	var pubErr error
	n, err := txn.Run(ctx, r.db, func(ctx context.Context, tx *effects.Tx) (int, error) {
		msgs, err := FetchPending(ctx, tx, r.cfg.BatchSize)
		if err != nil {
			return 0, &apperrors.DatabaseError{Cause: err}
		}
		delivered := make([]string, 0, len(msgs))
		for _, m := range msgs {
			if err := r.pub.Publish(ctx, r.Stream(m), m); err != nil {
				metrics.OutboxRelayed.WithLabelValues("failed").Inc()
				pubErr = fmt.Errorf("publish %s: %w", m.ID, err)
				break
			}
			metrics.OutboxRelayed.WithLabelValues("delivered").Inc()
			delivered = append(delivered, m.ID)
		}
		if err := MarkProcessed(ctx, tx, delivered, r.clock.Now()); err != nil {
			return 0, &apperrors.DatabaseError{Cause: err}
		}
		return len(delivered), nil
	})
	if err != nil {
		return 0, err
	}
	return n, pubErr
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		n, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Warn("outbox relay 批次失败", "delivered", n, "error", err)
		} else if n > 0 {
			r.logger.Debug("outbox relay 批次完成", "delivered", n)
		}
		// 满批次时不等待，直接处理下一批
		if err == nil && n == r.cfg.BatchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
