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
	"time"

	"rpc-platform/pkg/effects"
)

const selectPending = `SELECT id::text, type, aggregate_type, aggregate_id::text, payload, created_at
FROM messages WHERE processed_at IS NULL ORDER BY created_at LIMIT $1 FOR UPDATE SKIP LOCKED`

const markProcessed = `UPDATE messages SET processed_at = $1 WHERE id = ANY($2::uuid[])`

// FetchPending 在当前事务中认领最多 limit 条未投递消息（行锁，跳过已被其他 relay 锁定的行）
func FetchPending(ctx context.Context, tx *effects.Tx, limit int) ([]Message, error) {
	rows, err := tx.Query(ctx, selectPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var payload []byte
		if err := rows.Scan(&m.ID, &m.Type, &m.AggregateType, &m.AggregateID, &payload, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Payload = payload
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkProcessed 标记消息已投递
func MarkProcessed(ctx context.Context, tx *effects.Tx, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, markProcessed, at, ids)
	return err
}
