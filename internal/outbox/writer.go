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

	"rpc-platform/pkg/effects"
	"rpc-platform/pkg/metrics"
)

// Env is the capability subset Publish needs.
type Env interface {
	effects.Transactional
	effects.Clocked
}

const insertMessage = `INSERT INTO messages (type, aggregate_type, aggregate_id, payload, created_at)
VALUES ($1, $2, $3, $4, $5)`

// Publish inserts msg through the invocation's transaction. It commits or
// rolls back together with the rest of the effect. created_at comes from the
// invocation clock; the id is assigned by the database.
func Publish(ctx context.Context, env Env, msg Message) error {
	payload := msg.Payload
	if len(payload) == 0 {
		payload = []byte("null")
	}
	if _, err := effects.Exec(ctx, env, insertMessage,
		msg.Type, msg.AggregateType, msg.AggregateID, payload, effects.Now(env),
	); err != nil {
		return err
	}
	metrics.OutboxPublished.WithLabelValues(msg.AggregateType).Inc()
	return nil
}

// PublishEffect lifts Publish into an effect, for composing with FlatMap.
func PublishEffect(msg Message) effects.Effect[struct{}] {
	return func(ctx context.Context, env *effects.Env) (struct{}, error) {
		return struct{}{}, Publish(ctx, env, msg)
	}
}
